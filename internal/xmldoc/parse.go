package xmldoc

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/net/html/charset"
)

// ErrParse matches every *ParseError via errors.Is.
var ErrParse = errors.New("xmldoc: parse failure")

// ParseError reports a file that is missing, unreadable or not well-formed.
type ParseError struct {
	Path string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("xmldoc: %s:%d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("xmldoc: %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrParse) match.
func (e *ParseError) Is(target error) bool { return target == ErrParse }

// ParseFile reads and parses the file at path into a document node.
func ParseFile(path string) (*Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return ParseBytes(path, data)
}

// utf8BOM is the UTF-8 encoded byte-order mark some editors prepend.
var utf8BOM = []byte("\xef\xbb\xbf")

// ParseBytes parses data into a document node. A leading UTF-8 byte-order
// mark is skipped. name is only used for error messages.
func ParseBytes(name string, data []byte) (*Node, error) {
	return decode(name, bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
}

// ParseFragment parses a serialized element (as produced by OuterXML) into a
// detached element node.
func ParseFragment(fragment string) (*Node, error) {
	doc, err := decode("fragment", strings.NewReader(fragment))
	if err != nil {
		return nil, err
	}
	el := doc.DocumentElement()
	doc.Children = nil
	el.Parent = nil
	return el, nil
}

func decode(name string, r io.Reader) (*Node, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel

	fail := func(err error) (*Node, error) {
		line, _ := dec.InputPos()
		return nil, &ParseError{Path: name, Line: line, Err: err}
	}

	doc := &Node{Type: DocumentNode, Line: 1}
	stack := []*Node{doc}
	for {
		// Position before the token is where the token starts.
		line, _ := dec.InputPos()
		tok, err := dec.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fail(err)
		}
		top := stack[len(stack)-1]

		switch t := tok.(type) {
		case xml.StartElement:
			if top == doc && doc.DocumentElement() != nil {
				return fail(errors.New("multiple root elements"))
			}
			el := &Node{Type: ElementNode, Name: qualified(t.Name), Line: line}
			for _, a := range t.Attr {
				el.Attrs = append(el.Attrs, Attr{Name: qualified(a.Name), Value: a.Value})
			}
			top.AppendChild(el)
			stack = append(stack, el)

		case xml.EndElement:
			if top == doc || top.Name != qualified(t.Name) {
				return fail(fmt.Errorf("unexpected end element </%s>", qualified(t.Name)))
			}
			stack = stack[:len(stack)-1]

		case xml.CharData:
			if top == doc {
				if len(bytes.TrimSpace(t)) > 0 {
					return fail(errors.New("character data outside root element"))
				}
				continue
			}
			if n := len(top.Children); n > 0 && top.Children[n-1].Type == TextNode {
				top.Children[n-1].Data += string(t)
				continue
			}
			top.AppendChild(&Node{Type: TextNode, Data: string(t), Line: line})

		case xml.Comment:
			top.AppendChild(&Node{Type: CommentNode, Data: string(t), Line: line})
		}
	}

	if len(stack) > 1 {
		return fail(fmt.Errorf("unclosed element <%s>", stack[len(stack)-1].Name))
	}
	if doc.DocumentElement() == nil {
		return fail(errors.New("no root element"))
	}
	return doc, nil
}

func qualified(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}
