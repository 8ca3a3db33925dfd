package ingest

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"tidyxbrl/pkg/core/xbrl"
)

// Loader fetches a document and parses it into an xbrl tree. Inline XBRL
// pages come back already converted to instance form.
type Loader struct {
	client     *Client
	decodeOpts []xbrl.DecodeOption
}

// NewLoader creates a loader. A nil client gets NewClient defaults.
func NewLoader(client *Client, opts ...xbrl.DecodeOption) *Loader {
	if client == nil {
		client = NewClient()
	}
	return &Loader{client: client, decodeOpts: opts}
}

// Load fetches and parses path.
func (l *Loader) Load(ctx context.Context, path string) (*xbrl.Node, error) {
	doc, err := l.client.Fetch(ctx, path)
	if err != nil {
		return nil, err
	}
	return ParseDocument(doc, l.decodeOpts...)
}

// ParseDocument parses fetched content. Well-formed XML goes through the XML
// decoder; malformed content that looks like an HTML page is re-read with the
// HTML parser. Anything else fails with errors.ErrParse.
func ParseDocument(doc *Document, opts ...xbrl.DecodeOption) (*xbrl.Node, error) {
	root, err := xbrl.Decode(bytes.NewReader(doc.Body), opts...)
	if err != nil {
		if !looksLikeHTML(doc) {
			return nil, fmt.Errorf("parse %s: %w", doc.Location, err)
		}
		log.Printf("[Ingest] %s is not well-formed XML (%v), parsing as HTML", doc.Location, err)
		root, err = xbrl.DecodeHTML(bytes.NewReader(doc.Body))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", doc.Location, err)
		}
	}

	if xbrl.IsInline(root) {
		log.Printf("[Ingest] %s is inline XBRL, extracting instance", doc.Location)
		root = xbrl.ExtractInline(root)
	}
	return root, nil
}

func looksLikeHTML(doc *Document) bool {
	if strings.Contains(strings.ToLower(doc.ContentType), "html") {
		return true
	}
	switch strings.ToLower(filepath.Ext(doc.Location)) {
	case ".htm", ".html", ".xhtml":
		return true
	}
	if strings.HasPrefix(http.DetectContentType(doc.Body), "text/html") {
		return true
	}
	head := doc.Body
	if len(head) > 1024 {
		head = head[:1024]
	}
	return bytes.Contains(bytes.ToLower(head), []byte("<html"))
}
