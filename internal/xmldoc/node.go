// Package xmldoc provides a small mutable XML tree for Kodi skin files:
// parsing with source lines, serialization, XPath queries and a read-only
// window accessor.
package xmldoc

import (
	"iter"
	"strings"
)

// NodeType identifies the kind of a Node.
type NodeType uint8

const (
	DocumentNode NodeType = iota
	ElementNode
	TextNode
	CommentNode
	// AttributeNode only appears in query results; attributes of an element
	// live in Node.Attrs.
	AttributeNode
)

// Attr is a single element attribute. Name keeps any prefix as written.
type Attr struct {
	Name  string
	Value string
}

// Node is one node of a parsed document.
type Node struct {
	Type     NodeType
	Name     string // element or attribute name
	Data     string // text, comment or attribute value
	Attrs    []Attr
	Children []*Node
	Parent   *Node
	Line     int // 1-based source line, 0 for synthesized nodes
}

// Attr returns the value of the named attribute.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// AttrValue returns the value of the named attribute or "".
func (n *Node) AttrValue(name string) string {
	v, _ := n.Attr(name)
	return v
}

// HasAttr reports whether the named attribute is present.
func (n *Node) HasAttr(name string) bool {
	_, ok := n.Attr(name)
	return ok
}

// Text returns the character data between the start tag and the first
// non-text child.
func (n *Node) Text() string {
	var b strings.Builder
	for _, c := range n.Children {
		if c.Type != TextNode {
			break
		}
		b.WriteString(c.Data)
	}
	return b.String()
}

// InnerText returns the concatenated character data of the whole subtree.
func (n *Node) InnerText() string {
	switch n.Type {
	case TextNode, AttributeNode:
		return n.Data
	case CommentNode:
		return ""
	}
	var b strings.Builder
	for d := range n.Descendants() {
		if d.Type == TextNode {
			b.WriteString(d.Data)
		}
	}
	return b.String()
}

// Elements returns the element children of n.
func (n *Node) Elements() []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Type == ElementNode {
			out = append(out, c)
		}
	}
	return out
}

// DocumentElement returns the root element of a document node, or n itself
// when n is an element.
func (n *Node) DocumentElement() *Node {
	if n.Type == ElementNode {
		return n
	}
	for _, c := range n.Children {
		if c.Type == ElementNode {
			return c
		}
	}
	return nil
}

// Descendants yields every node below n in document order. n itself is not
// included. The sequence snapshots child lists as it goes, so callers may
// replace already visited nodes.
func (n *Node) Descendants() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		walk(n, yield)
	}
}

func walk(n *Node, yield func(*Node) bool) bool {
	for _, c := range n.Children {
		if !yield(c) {
			return false
		}
		if !walk(c, yield) {
			return false
		}
	}
	return true
}

// ElementsByName yields descendant elements whose name is one of names.
func (n *Node) ElementsByName(names ...string) iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		for d := range n.Descendants() {
			if d.Type != ElementNode {
				continue
			}
			for _, name := range names {
				if d.Name == name {
					if !yield(d) {
						return
					}
					break
				}
			}
		}
	}
}

// AppendChild attaches c as the last child of n.
func (n *Node) AppendChild(c *Node) {
	c.Parent = n
	n.Children = append(n.Children, c)
}

// ReplaceChild swaps old for repl in n's child list, keeping sibling order.
// It reports false when old is not a child of n.
func (n *Node) ReplaceChild(old, repl *Node) bool {
	i := n.childIndex(old)
	if i < 0 {
		return false
	}
	n.Children[i] = repl
	repl.Parent = n
	old.Parent = nil
	return true
}

// Clone returns a deep, detached copy of n.
func (n *Node) Clone() *Node {
	c := &Node{
		Type: n.Type,
		Name: n.Name,
		Data: n.Data,
		Line: n.Line,
	}
	if len(n.Attrs) > 0 {
		c.Attrs = append([]Attr(nil), n.Attrs...)
	}
	for _, child := range n.Children {
		cc := child.Clone()
		cc.Parent = c
		c.Children = append(c.Children, cc)
	}
	return c
}

func (n *Node) childIndex(c *Node) int {
	for i, x := range n.Children {
		if x == c {
			return i
		}
	}
	return -1
}

// sibling returns the node offset positions away from n in its parent's
// child list.
func (n *Node) sibling(offset int) *Node {
	if n.Parent == nil {
		return nil
	}
	i := n.Parent.childIndex(n)
	if i < 0 {
		return nil
	}
	j := i + offset
	if j < 0 || j >= len(n.Parent.Children) {
		return nil
	}
	return n.Parent.Children[j]
}

func splitName(name string) (prefix, local string) {
	if i := strings.IndexByte(name, ':'); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}
