package xbrl

import (
	"log"
	"strings"
)

const (
	inlinePrefix   = "ix"
	instancePrefix = "xbrli"
)

// Inline fact elements. Everything else under the ix prefix (header,
// references, continuation, exclude) is structure.
var inlineFactTags = map[string]bool{
	"nonFraction": true,
	"nonNumeric":  true,
	"fraction":    true,
}

// IsInline reports whether root is an inline XBRL document, i.e. an (X)HTML
// page carrying ix: elements.
func IsInline(root *Node) bool {
	if root == nil || root.Name != "html" {
		return false
	}
	found := false
	root.Walk(func(n *Node) bool {
		if found {
			return false
		}
		if n.Prefix == inlinePrefix {
			found = true
			return false
		}
		return true
	})
	return found
}

// ExtractInline converts an inline XBRL document into an instance-shaped
// tree: an xbrl root holding every context and unit (with the xbrli prefix
// removed, as in a plain instance) followed by one fact element per ix fact.
//
// A fact element takes its prefix and local name from the ix name attribute,
// its text from the displayed content (with sign="-" applied) and keeps all
// other attributes. Display scaling and ixt formats are not applied; scale
// and format survive as ordinary attributes.
func ExtractInline(root *Node) *Node {
	out := &Node{Name: "xbrl"}
	var facts []*Node
	unnamed := 0

	root.Walk(func(n *Node) bool {
		switch {
		case n.Name == "context" || n.Name == "unit":
			if n.Prefix == instancePrefix || n.Prefix == "" {
				out.Children = append(out.Children, unqualify(n.Clone(), instancePrefix))
				return false
			}
		case n.Prefix == inlinePrefix && inlineFactTags[n.Name]:
			if fact := inlineFact(n); fact != nil {
				facts = append(facts, fact)
			} else {
				unnamed++
				log.Printf("[Inline] WARNING: skipping ix:%s without a name (contextRef %q)", n.Name, attrOrEmpty(n, "contextRef"))
			}
			// Nested facts are legal; keep walking.
		}
		return true
	})

	out.Children = append(out.Children, facts...)
	if unnamed > 0 {
		log.Printf("[Inline] %d inline facts skipped without a name, %d extracted", unnamed, len(facts))
	}
	return out
}

func attrOrEmpty(n *Node, name string) string {
	v, _ := n.Attr(name)
	return v
}

func inlineFact(n *Node) *Node {
	name, ok := n.Attr("name")
	if !ok || name == "" {
		return nil
	}

	fact := &Node{Name: name}
	if i := strings.IndexByte(name, ':'); i >= 0 {
		fact.Prefix, fact.Name = name[:i], name[i+1:]
	}

	for _, a := range n.Attrs {
		if a.Prefix == "" && a.Name == "name" {
			continue
		}
		fact.Attrs = append(fact.Attrs, a)
	}

	text := n.TextContent()
	if sign, _ := n.Attr("sign"); sign == "-" && text != "" {
		text = "-" + text
	}
	fact.Text = text
	return fact
}

// unqualify strips prefix from n and its descendants in place.
func unqualify(n *Node, prefix string) *Node {
	n.Walk(func(c *Node) bool {
		if c.Prefix == prefix {
			c.Prefix = ""
		}
		return true
	})
	return n
}
