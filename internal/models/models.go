// Package models defines the domain types shared across skinlens packages.
package models

// Include kinds, named after the XML tag that declares them.
const (
	KindInclude    = "include"
	KindVariable   = "variable"
	KindConstant   = "constant"
	KindExpression = "expression"
)

// IncludeKinds lists every tag collected into a folder's symbol table.
var IncludeKinds = []string{KindInclude, KindVariable, KindConstant, KindExpression}

// Include is one named declaration found while walking include files.
// Content is a serialized snapshot of the declaring node.
type Include struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Content string `json:"content"`
	File    string `json:"file"`
	Line    int    `json:"line"`
}

// Location points at a line in a skin file.
type Location struct {
	Folder string `json:"folder,omitempty"`
	File   string `json:"file"`
	Line   int    `json:"line"`
}

// Color is a named entry of a color table.
type Color struct {
	Name    string `json:"name"`
	Content string `json:"content"`
	File    string `json:"file"`
	Line    int    `json:"line"`
}

// Font is one font of the first fontset in Font.xml.
type Font struct {
	Name     string `json:"name"`
	Size     string `json:"size"`
	Filename string `json:"filename"`
	Content  string `json:"content"`
	File     string `json:"file"`
	Line     int    `json:"line"`
}

// FontRef is a leaf <font> element used by a window file.
type FontRef struct {
	Name string `json:"name"`
	File string `json:"file"`
	Line int    `json:"line"`
}

// FileMeta is a lightweight representation returned by list operations.
type FileMeta struct {
	Path     string `json:"path"`
	Checksum string `json:"checksum"`
}

// ReloadResult describes what a single file change rebuilt.
type ReloadResult struct {
	Path        string            `json:"path"`
	Folders     []string          `json:"folders,omitempty"`
	Generations map[string]string `json:"generations,omitempty"`
	Colors      bool              `json:"colors,omitempty"`
	Fonts       []string          `json:"fonts,omitempty"`
}

// Changed reports whether anything was rebuilt.
func (r ReloadResult) Changed() bool {
	return len(r.Folders) > 0 || r.Colors || len(r.Fonts) > 0
}
