package xmldoc

import (
	"fmt"

	"github.com/antchfx/xpath"
)

// Select evaluates an XPath expression with top as the context node and
// returns the matched nodes. Attribute matches are returned as detached
// AttributeNode values whose Parent is the owning element.
func Select(top *Node, expr string) ([]*Node, error) {
	e, err := xpath.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("xmldoc: compile %q: %w", expr, err)
	}
	return SelectExpr(top, e), nil
}

// SelectExpr is Select for a pre-compiled expression.
func SelectExpr(top *Node, e *xpath.Expr) []*Node {
	it := e.Select(newNavigator(top))
	var out []*Node
	seen := make(map[*Node]struct{})
	for it.MoveNext() {
		nav, ok := it.Current().(*navigator)
		if !ok {
			continue
		}
		if nav.attr >= 0 {
			a := nav.curr.Attrs[nav.attr]
			out = append(out, &Node{Type: AttributeNode, Name: a.Name, Data: a.Value, Parent: nav.curr, Line: nav.curr.Line})
			continue
		}
		if _, dup := seen[nav.curr]; dup {
			continue
		}
		seen[nav.curr] = struct{}{}
		out = append(out, nav.curr)
	}
	return out
}

// navigator implements xpath.NodeNavigator over a Node tree.
type navigator struct {
	root, curr *Node
	attr       int
}

var _ xpath.NodeNavigator = (*navigator)(nil)

func newNavigator(top *Node) *navigator {
	root := top
	for root.Parent != nil {
		root = root.Parent
	}
	return &navigator{root: root, curr: top, attr: -1}
}

func (x *navigator) NodeType() xpath.NodeType {
	switch x.curr.Type {
	case DocumentNode:
		return xpath.RootNode
	case TextNode:
		return xpath.TextNode
	case CommentNode:
		return xpath.CommentNode
	}
	if x.attr >= 0 {
		return xpath.AttributeNode
	}
	return xpath.ElementNode
}

func (x *navigator) LocalName() string {
	if x.attr >= 0 {
		_, local := splitName(x.curr.Attrs[x.attr].Name)
		return local
	}
	_, local := splitName(x.curr.Name)
	return local
}

func (x *navigator) Prefix() string {
	if x.attr >= 0 {
		prefix, _ := splitName(x.curr.Attrs[x.attr].Name)
		return prefix
	}
	prefix, _ := splitName(x.curr.Name)
	return prefix
}

func (x *navigator) Value() string {
	if x.attr >= 0 {
		return x.curr.Attrs[x.attr].Value
	}
	switch x.curr.Type {
	case TextNode, CommentNode:
		return x.curr.Data
	}
	return x.curr.InnerText()
}

func (x *navigator) Copy() xpath.NodeNavigator {
	n := *x
	return &n
}

func (x *navigator) MoveToRoot() {
	x.curr = x.root
	x.attr = -1
}

func (x *navigator) MoveToParent() bool {
	if x.attr >= 0 {
		x.attr = -1
		return true
	}
	if x.curr == x.root || x.curr.Parent == nil {
		return false
	}
	x.curr = x.curr.Parent
	return true
}

func (x *navigator) MoveToNextAttribute() bool {
	if x.curr.Type != ElementNode || x.attr >= len(x.curr.Attrs)-1 {
		return false
	}
	x.attr++
	return true
}

func (x *navigator) MoveToChild() bool {
	if x.attr >= 0 || len(x.curr.Children) == 0 {
		return false
	}
	x.curr = x.curr.Children[0]
	return true
}

func (x *navigator) MoveToFirst() bool {
	if x.attr >= 0 || x.curr == x.root || x.curr.Parent == nil {
		return false
	}
	first := x.curr.Parent.Children[0]
	if first == x.curr {
		return false
	}
	x.curr = first
	return true
}

func (x *navigator) MoveToNext() bool {
	if x.attr >= 0 || x.curr == x.root {
		return false
	}
	next := x.curr.sibling(1)
	if next == nil {
		return false
	}
	x.curr = next
	return true
}

func (x *navigator) MoveToPrevious() bool {
	if x.attr >= 0 || x.curr == x.root {
		return false
	}
	prev := x.curr.sibling(-1)
	if prev == nil {
		return false
	}
	x.curr = prev
	return true
}

func (x *navigator) MoveTo(other xpath.NodeNavigator) bool {
	node, ok := other.(*navigator)
	if !ok || node.root != x.root {
		return false
	}
	x.curr = node.curr
	x.attr = node.attr
	return true
}

func (x *navigator) String() string {
	return x.Value()
}
