package skin

import (
	"log/slog"
	"slices"
	"strings"

	"github.com/starford/skinlens/internal/models"
	"github.com/starford/skinlens/internal/xmldoc"
)

// ResolveReference materializes the <include> reference ref against the
// folder's table. It returns a freshly parsed copy of the matching
// declaration with nested references inlined, or nil when ref has no text
// or names nothing.
func (s *Skin) ResolveReference(ref *xmldoc.Node, folder string) *xmldoc.Node {
	return s.resolveReference(ref, folder, nil)
}

// ResolveName is ResolveReference for a bare include name.
func (s *Skin) ResolveName(folder, name string) *xmldoc.Node {
	ref := &xmldoc.Node{Type: xmldoc.ElementNode, Name: models.KindInclude}
	ref.AppendChild(&xmldoc.Node{Type: xmldoc.TextNode, Data: name})
	return s.ResolveReference(ref, folder)
}

// ResolveAll replaces every <include> descendant of subtree that resolves
// with its resolved content, in place. Unknown names stay as literal
// references. subtree must be owned by the caller.
func (s *Skin) ResolveAll(subtree *xmldoc.Node, folder string) *xmldoc.Node {
	return s.resolveAll(subtree, folder, nil)
}

func (s *Skin) resolveReference(ref *xmldoc.Node, folder string, stack []string) *xmldoc.Node {
	name := strings.TrimSpace(ref.Text())
	if name == "" {
		return nil
	}
	if slices.Contains(stack, name) {
		s.logger.Info("skin: recursive include left unresolved",
			slog.String("folder", folder),
			slog.String("name", name))
		return nil
	}
	rec, ok := s.Lookup(folder, name)
	if !ok {
		return nil
	}
	root, err := xmldoc.ParseFragment(rec.Content)
	if err != nil {
		s.logger.Warn("skin: stored include does not parse",
			slog.String("name", name),
			slog.String("file", rec.File),
			slog.String("error", err.Error()))
		return nil
	}
	return s.resolveAll(root, folder, append(slices.Clip(stack), name))
}

func (s *Skin) resolveAll(subtree *xmldoc.Node, folder string, stack []string) *xmldoc.Node {
	var refs []*xmldoc.Node
	for n := range subtree.ElementsByName(models.KindInclude) {
		if strings.TrimSpace(n.Text()) != "" {
			refs = append(refs, n)
		}
	}
	for _, ref := range refs {
		resolved := s.resolveReference(ref, folder, stack)
		if resolved == nil {
			s.logger.Debug("skin: include reference unresolved",
				slog.String("folder", folder),
				slog.String("name", strings.TrimSpace(ref.Text())))
			continue
		}
		if ref.Parent != nil {
			ref.Parent.ReplaceChild(ref, resolved)
		}
	}
	return subtree
}
