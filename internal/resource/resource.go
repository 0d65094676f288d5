// Package resource loads the non-include skin resources: color tables,
// fonts, media and themes.
package resource

import (
	"log/slog"
	"path"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/starford/skinlens/internal/models"
	"github.com/starford/skinlens/internal/storage"
	"github.com/starford/skinlens/internal/xmldoc"
)

const (
	colorDir       = "colors"
	defaultColors  = "colors/defaults.xml"
	mediaDir       = "media"
	themeDir       = "themes"
	fontsetElement = "fontset"
)

var fontFiles = []string{"Font.xml", "font.xml"}

// mediaSkips are path fragments excluded from the media listing.
var mediaSkips = []string{"studio", "recordlabel"}

// Resources holds the color and font tables of a skin.
type Resources struct {
	store   storage.Provider
	logger  *slog.Logger
	folders []string

	mu     sync.RWMutex
	colors []models.Color
	fonts  map[string][]models.Font
}

// Option configures Resources.
type Option func(*Resources)

// WithLogger sets the logger used for diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resources) { r.logger = l }
}

// New loads the colors of the skin behind store and the fonts of every
// folder.
func New(store storage.Provider, folders []string, opts ...Option) *Resources {
	r := &Resources{
		store:   store,
		logger:  slog.Default(),
		folders: slices.Clone(folders),
		fonts:   make(map[string][]models.Font),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.LoadColors()
	r.LoadFonts(r.folders...)
	return r
}

// Colors returns every color of every color file.
func (r *Resources) Colors() []models.Color {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.colors)
}

// ColorNames returns the distinct color names, sorted.
func (r *Resources) ColorNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]struct{}, len(r.colors))
	var out []string
	for _, c := range r.colors {
		if _, dup := seen[c.Name]; dup {
			continue
		}
		seen[c.Name] = struct{}{}
		out = append(out, c.Name)
	}
	sort.Strings(out)
	return out
}

// Fonts returns the fonts of the folder's first fontset.
func (r *Resources) Fonts(folder string) []models.Font {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.fonts[folder])
}

// LoadColors rereads every file of the colors directory.
func (r *Resources) LoadColors() {
	var colors []models.Color
	names, err := r.store.Entries(colorDir)
	if err != nil {
		r.logger.Debug("resource: no color directory", slog.String("error", err.Error()))
	}
	for _, name := range names {
		rel := path.Join(colorDir, name)
		doc, abs, err := r.parse(rel)
		if err != nil {
			r.logger.Info("resource: invalid color file", slog.String("path", rel), slog.String("error", err.Error()))
			continue
		}
		n := 0
		for _, node := range doc.DocumentElement().Elements() {
			if node.Name != "color" {
				continue
			}
			colorName, ok := node.Attr("name")
			if !ok {
				continue
			}
			colors = append(colors, models.Color{
				Name:    colorName,
				Content: node.Text(),
				File:    abs,
				Line:    node.Line,
			})
			n++
		}
		r.logger.Info("resource: found color file", slog.String("path", rel), slog.Int("colors", n))
	}

	r.mu.Lock()
	r.colors = colors
	r.mu.Unlock()
}

// LoadFonts rereads the font file of each folder. A folder without a font
// file gets an empty list.
func (r *Resources) LoadFonts(folders ...string) {
	for _, folder := range folders {
		fonts := r.loadFonts(folder)
		r.mu.Lock()
		r.fonts[folder] = fonts
		r.mu.Unlock()
	}
}

func (r *Resources) loadFonts(folder string) []models.Font {
	var rel string
	for _, name := range fontFiles {
		if p := path.Join(folder, name); r.store.Exists(p) {
			rel = p
			break
		}
	}
	if rel == "" {
		r.logger.Info("resource: no font file", slog.String("folder", folder))
		return nil
	}
	doc, abs, err := r.parse(rel)
	if err != nil {
		r.logger.Info("resource: invalid font file", slog.String("path", rel), slog.String("error", err.Error()))
		return nil
	}
	fontset := firstChild(doc.DocumentElement(), fontsetElement)
	if fontset == nil {
		return nil
	}
	var fonts []models.Font
	for _, node := range fontset.Elements() {
		if node.Name != "font" {
			continue
		}
		fonts = append(fonts, models.Font{
			Name:     childText(node, "name"),
			Size:     childText(node, "size"),
			Filename: childText(node, "filename"),
			Content:  node.OuterXML(),
			File:     abs,
			Line:     node.Line,
		})
	}
	return fonts
}

// Reload rereads colors when path is the default color file and the
// folder's fonts when path is a font file. It reports what it reloaded.
func (r *Resources) Reload(p string) (colors bool, fontFolder string) {
	abs, err := r.store.Abs(p)
	if err != nil {
		return false, ""
	}
	slashed := filepath.ToSlash(abs)
	if strings.HasSuffix(slashed, "/"+defaultColors) {
		r.LoadColors()
		colors = true
	}
	if slices.Contains(fontFiles, path.Base(slashed)) {
		folder := path.Base(path.Dir(slashed))
		if slices.Contains(r.folders, folder) {
			r.LoadFonts(folder)
			fontFolder = folder
		}
	}
	return colors, fontFolder
}

// MediaFiles returns the slash paths below media/, relative to it.
func (r *Resources) MediaFiles() ([]string, error) {
	if !r.isDir(mediaDir) {
		return nil, nil
	}
	metas, err := r.store.List(mediaDir)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(metas))
	for _, m := range metas {
		rel := strings.TrimPrefix(m.Path, mediaDir+"/")
		if skipMedia(path.Dir(rel)) {
			continue
		}
		out = append(out, rel)
	}
	return out, nil
}

// Themes returns the entries of the themes directory.
func (r *Resources) Themes() ([]string, error) {
	if !r.isDir(themeDir) {
		return nil, nil
	}
	return r.store.Entries(themeDir)
}

// FontRefs returns every leaf <font> element of the folder's window files.
func (r *Resources) FontRefs(folder string) ([]models.FontRef, error) {
	metas, err := r.store.List(folder, ".xml")
	if err != nil {
		return nil, err
	}
	var refs []models.FontRef
	for _, m := range metas {
		if path.Dir(m.Path) != folder {
			continue
		}
		abs, err := r.store.Abs(m.Path)
		if err != nil {
			continue
		}
		w, err := xmldoc.Parse(abs)
		if err != nil {
			r.logger.Info("resource: invalid window file", slog.String("path", abs), slog.String("error", err.Error()))
			continue
		}
		nodes, err := w.Query("//font")
		if err != nil {
			return nil, err
		}
		for _, n := range nodes {
			if len(n.Elements()) > 0 {
				continue
			}
			refs = append(refs, models.FontRef{Name: n.Text(), File: abs, Line: n.Line})
		}
	}
	return refs, nil
}

func (r *Resources) parse(rel string) (*xmldoc.Node, string, error) {
	abs, err := r.store.Abs(rel)
	if err != nil {
		return nil, "", err
	}
	data, err := r.store.Read(rel)
	if err != nil {
		return nil, abs, err
	}
	doc, err := xmldoc.ParseBytes(abs, data)
	return doc, abs, err
}

func (r *Resources) isDir(rel string) bool {
	_, err := r.store.Entries(rel)
	return err == nil
}

func skipMedia(dir string) bool {
	for _, s := range mediaSkips {
		if strings.Contains(dir, s) {
			return true
		}
	}
	return false
}

func firstChild(n *xmldoc.Node, name string) *xmldoc.Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Elements() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func childText(n *xmldoc.Node, name string) string {
	if c := firstChild(n, name); c != nil {
		return c.Text()
	}
	return ""
}
