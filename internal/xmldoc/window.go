package xmldoc

import "iter"

// Window is a read-only view over one parsed skin window or include file.
type Window struct {
	path string
	doc  *Node
}

// Parse loads the window file at path. A missing, unreadable or malformed
// file yields a *ParseError.
func Parse(path string) (*Window, error) {
	doc, err := ParseFile(path)
	if err != nil {
		return nil, err
	}
	return &Window{path: path, doc: doc}, nil
}

// NewWindow wraps an already parsed document.
func NewWindow(path string, doc *Node) *Window {
	return &Window{path: path, doc: doc}
}

// Path returns the file the window was parsed from.
func (w *Window) Path() string { return w.path }

// Document returns the document node.
func (w *Window) Document() *Node { return w.doc }

// Root returns the document element.
func (w *Window) Root() *Node { return w.doc.DocumentElement() }

// Controls yields every <control> element whose type attribute equals
// controlType, in document order. Each range re-walks the tree.
func (w *Window) Controls(controlType string) iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		for n := range w.doc.ElementsByName("control") {
			if v, ok := n.Attr("type"); ok && v == controlType {
				if !yield(n) {
					return
				}
			}
		}
	}
}

// Query evaluates an XPath expression against the document.
func (w *Window) Query(expr string) ([]*Node, error) {
	return Select(w.doc, expr)
}
