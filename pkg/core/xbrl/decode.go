package xbrl

import (
	"encoding/xml"
	"fmt"
	"io"

	"golang.org/x/net/html/charset"

	apperrors "tidyxbrl/pkg/common/errors"
)

// DecodeOption configures Decode.
type DecodeOption func(*decodeConfig)

type decodeConfig struct {
	unqualified map[string]bool
}

// WithUnqualified treats elements carrying any of the given prefixes as if
// they were in the default namespace. Instances written with an explicit
// xbrli: prefix need WithUnqualified("xbrli") for their context vocabulary to
// be discovered. Attributes are left untouched.
func WithUnqualified(prefixes ...string) DecodeOption {
	return func(c *decodeConfig) {
		for _, p := range prefixes {
			c.unqualified[p] = true
		}
	}
}

func (c *decodeConfig) prefix(p string) string {
	if c.unqualified[p] {
		return ""
	}
	return p
}

// Decode parses an XML or XHTML document into a Node tree.
//
// Prefixes are kept exactly as written rather than resolved to namespace
// URIs. The decoder is lenient: HTML entities are accepted, an end tag closes
// back to its nearest matching open element, stray end tags are ignored and
// elements still open at EOF are closed implicitly. Syntax errors are
// reported wrapped in errors.ErrParse.
func Decode(r io.Reader, opts ...DecodeOption) (*Node, error) {
	cfg := &decodeConfig{unqualified: make(map[string]bool)}
	for _, opt := range opts {
		opt(cfg)
	}

	dec := xml.NewDecoder(r)
	dec.Strict = false
	dec.Entity = xml.HTMLEntity
	dec.CharsetReader = charset.NewReaderLabel

	var root *Node
	var stack []*Node

	for {
		tok, err := dec.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrParse, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			node := &Node{
				Prefix: cfg.prefix(t.Name.Space),
				Name:   t.Name.Local,
			}
			if len(t.Attr) > 0 {
				node.Attrs = make([]Attr, 0, len(t.Attr))
				for _, a := range t.Attr {
					node.Attrs = append(node.Attrs, Attr{Prefix: a.Name.Space, Name: a.Name.Local, Value: a.Value})
				}
			}

			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("%w: multiple root elements (%s after %s)", apperrors.ErrParse, node.QName(), root.QName())
				}
				root = node
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, node)
			}
			stack = append(stack, node)

		case xml.EndElement:
			stack = closeElement(stack, cfg.prefix(t.Name.Space), t.Name.Local)

		case xml.CharData:
			if len(stack) == 0 {
				continue
			}
			appendCharData(stack[len(stack)-1], string(t))
		}
	}

	if root == nil {
		return nil, fmt.Errorf("%w: no root element", apperrors.ErrParse)
	}
	return root, nil
}

// closeElement pops the stack back to the innermost open element with the
// given name. An end tag with no open counterpart leaves the stack as is.
func closeElement(stack []*Node, prefix, name string) []*Node {
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i].Prefix == prefix && stack[i].Name == name {
			return stack[:i]
		}
	}
	return stack
}

func appendCharData(parent *Node, data string) {
	if n := len(parent.Children); n > 0 {
		parent.Children[n-1].Tail += data
		return
	}
	parent.Text += data
}
