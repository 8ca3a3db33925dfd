package xbrl

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	apperrors "tidyxbrl/pkg/common/errors"
)

// The HTML parser lower-cases every tag and attribute name. These are the
// XBRL and inline XBRL names whose case matters downstream.
var xbrlCaseFixes = map[string]string{
	"contextref":       "contextRef",
	"unitref":          "unitRef",
	"nonfraction":      "nonFraction",
	"nonnumeric":       "nonNumeric",
	"startdate":        "startDate",
	"enddate":          "endDate",
	"explicitmember":   "explicitMember",
	"typedmember":      "typedMember",
	"unitnumerator":    "unitNumerator",
	"unitdenominator":  "unitDenominator",
	"continuedat":      "continuedAt",
	"schemaref":        "schemaRef",
	"linkbaseref":      "linkbaseRef",
	"rolereference":    "roleReference",
	"arcrolereference": "arcroleReference",
	"tupleref":         "tupleRef",
	"tupleid":          "tupleID",
	"footnoterole":     "footnoteRole",
	"fromrefs":         "fromRefs",
	"torefs":           "toRefs",
}

// DecodeHTML parses a document that is not well-formed XML, typically an
// inline XBRL filing saved as plain HTML. Tag and attribute names are split
// on the first colon into prefix and local name, and the XBRL names the HTML
// parser lower-cased are restored.
func DecodeHTML(r io.Reader) (*Node, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrParse, err)
	}

	root := doc.Find("html").First()
	if root.Length() == 0 {
		return nil, fmt.Errorf("%w: no html element", apperrors.ErrParse)
	}
	return convertHTML(root.Get(0)), nil
}

func convertHTML(h *html.Node) *Node {
	n := &Node{}
	n.Prefix, n.Name = splitHTMLName(h.Data)

	for _, a := range h.Attr {
		attr := Attr{Value: a.Val}
		attr.Prefix, attr.Name = splitHTMLName(a.Key)
		if a.Namespace != "" && attr.Prefix == "" {
			attr.Prefix = a.Namespace
		}
		n.Attrs = append(n.Attrs, attr)
	}

	for c := h.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.ElementNode:
			n.Children = append(n.Children, convertHTML(c))
		case html.TextNode:
			appendCharData(n, c.Data)
		}
	}
	return n
}

func splitHTMLName(name string) (prefix, local string) {
	if i := strings.IndexByte(name, ':'); i >= 0 {
		prefix, local = name[:i], name[i+1:]
	} else {
		local = name
	}
	if fixed, ok := xbrlCaseFixes[local]; ok {
		local = fixed
	}
	return prefix, local
}
