// Package xbrl turns XBRL instance documents into tidy fact tables.
//
// A document is first decoded into a generic tree of Nodes (Decode for XML and
// XHTML, DecodeHTML for tag soup). Inline XBRL trees are converted into an
// instance-shaped tree with ExtractInline. Flatten then discovers the column
// vocabulary, builds one row per context and joins every contextRef-bearing
// fact against its context row.
package xbrl

import "strings"

// Attr is a single attribute as written in the source document.
type Attr struct {
	Prefix string // Namespace prefix ("xsi" in xsi:nil), empty when unqualified
	Name   string // Local name
	Value  string
}

// QName returns the attribute name as written, prefix included.
func (a Attr) QName() string {
	if a.Prefix == "" {
		return a.Name
	}
	return a.Prefix + ":" + a.Name
}

// Node is one element of a parsed document. Trees handed to Flatten are
// never modified.
type Node struct {
	Prefix   string
	Name     string
	Text     string // Character data before the first child element
	Tail     string // Character data following this element, inside its parent
	Attrs    []Attr
	Children []*Node
}

// QName returns the tag name as written, prefix included.
func (n *Node) QName() string {
	if n.Prefix == "" {
		return n.Name
	}
	return n.Prefix + ":" + n.Name
}

// Qualified reports whether the tag carries a namespace prefix.
func (n *Node) Qualified() bool {
	return n.Prefix != ""
}

// Attr returns the value of the unqualified attribute with the given name.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Prefix == "" && a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// HasAttr reports whether the unqualified attribute is present.
func (n *Node) HasAttr(name string) bool {
	_, ok := n.Attr(name)
	return ok
}

// TextContent returns the character data of the node and all of its
// descendants in document order, trimmed of surrounding whitespace.
func (n *Node) TextContent() string {
	if len(n.Children) == 0 {
		return strings.TrimSpace(n.Text)
	}
	var sb strings.Builder
	n.appendText(&sb)
	return strings.TrimSpace(sb.String())
}

func (n *Node) appendText(sb *strings.Builder) {
	sb.WriteString(n.Text)
	for _, c := range n.Children {
		c.appendText(sb)
		sb.WriteString(c.Tail)
	}
}

// Walk visits n and its descendants in document (pre-)order. Returning false
// from fn skips the children of that node.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Find returns the first descendant (excluding n) whose local name matches,
// searching in document order and at most maxDepth levels below n.
// maxDepth <= 0 means unbounded.
func (n *Node) Find(name string, maxDepth int) *Node {
	for _, c := range n.Children {
		if found := c.find(name, 1, maxDepth); found != nil {
			return found
		}
	}
	return nil
}

func (n *Node) find(name string, depth, maxDepth int) *Node {
	if n.Name == name {
		return n
	}
	if maxDepth > 0 && depth >= maxDepth {
		return nil
	}
	for _, c := range n.Children {
		if found := c.find(name, depth+1, maxDepth); found != nil {
			return found
		}
	}
	return nil
}

// Clone returns a deep copy of the subtree rooted at n.
func (n *Node) Clone() *Node {
	out := &Node{
		Prefix: n.Prefix,
		Name:   n.Name,
		Text:   n.Text,
		Tail:   n.Tail,
	}
	if len(n.Attrs) > 0 {
		out.Attrs = append([]Attr(nil), n.Attrs...)
	}
	if len(n.Children) > 0 {
		out.Children = make([]*Node, len(n.Children))
		for i, c := range n.Children {
			out.Children[i] = c.Clone()
		}
	}
	return out
}
