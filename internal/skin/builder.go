package skin

import (
	"log/slog"
	"path/filepath"
	"slices"

	"github.com/google/uuid"

	"github.com/starford/skinlens/internal/models"
	"github.com/starford/skinlens/internal/xmldoc"
)

// RebuildAll replaces the include table and file registry of every given
// folder with a freshly built one.
func (s *Skin) RebuildAll(folders ...string) {
	for _, folder := range folders {
		s.rebuild(folder)
	}
}

func (s *Skin) rebuild(folder string) {
	l := s.folderLock(folder)
	l.Lock()
	defer l.Unlock()

	t, files := s.build(folder)

	s.mu.Lock()
	s.tables[folder] = t
	s.files[folder] = files
	s.gens[folder] = uuid.NewString()
	s.mu.Unlock()

	s.logger.Info("skin: include list built",
		slog.String("folder", folder),
		slog.Int("nodes", t.len()),
		slog.Int("files", len(files)))
}

// Reload rebuilds the folder owning path when path is one of its include
// files. The folder is the name of path's parent directory. It reports
// whether a rebuild happened.
func (s *Skin) Reload(path string) bool {
	abs, err := s.store.Abs(path)
	if err != nil {
		return false
	}
	folder := FolderOf(abs)

	s.mu.RLock()
	member := slices.Contains(s.files[folder], abs)
	s.mu.RUnlock()

	if !member {
		return false
	}
	s.logger.Debug("skin: include file changed", slog.String("path", abs), slog.String("folder", folder))
	s.RebuildAll(folder)
	return true
}

// FolderOf returns the folder an include file belongs to: the name of its
// parent directory.
func FolderOf(path string) string {
	return filepath.Base(filepath.Dir(path))
}

// builder holds the state of one folder rebuild.
type builder struct {
	s       *Skin
	folder  string
	table   *table
	files   []string
	visited map[string]struct{}
}

func (s *Skin) build(folder string) (*table, []string) {
	b := &builder{
		s:       s,
		folder:  folder,
		table:   newTable(),
		visited: make(map[string]struct{}),
	}
	primary := s.primaryIncludeFile(folder)
	if primary == "" {
		s.logger.Info("skin: no include file", slog.String("folder", folder))
		return b.table, nil
	}
	b.ingest(primary)
	return b.table, b.files
}

func (s *Skin) primaryIncludeFile(folder string) string {
	for _, name := range primaryIncludeFiles {
		rel := filepath.Join(folder, name)
		if s.store.Exists(rel) {
			return rel
		}
	}
	return ""
}

// ingest adds the declarations of one include file and follows its
// file="..." includes. Missing or malformed files end that branch only.
func (b *builder) ingest(rel string) {
	logger := b.s.logger
	abs, err := b.s.store.Abs(rel)
	if err != nil {
		logger.Info("skin: include file outside skin", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	if _, seen := b.visited[abs]; seen {
		logger.Info("skin: include file already visited", slog.String("path", abs), slog.String("folder", b.folder))
		return
	}
	b.visited[abs] = struct{}{}

	if !b.s.store.Exists(rel) {
		logger.Info("skin: could not find include file", slog.String("path", abs))
		return
	}
	data, err := b.s.store.Read(rel)
	if err != nil {
		logger.Info("skin: read include file failed", slog.String("path", abs), slog.String("error", err.Error()))
		return
	}
	doc, err := xmldoc.ParseBytes(abs, data)
	if err != nil {
		logger.Info("skin: invalid include file", slog.String("path", abs), slog.String("error", err.Error()))
		return
	}
	logger.Debug("skin: found include file", slog.String("path", abs))
	b.files = append(b.files, abs)

	for n := range doc.ElementsByName(models.IncludeKinds...) {
		name, ok := n.Attr("name")
		if !ok {
			continue
		}
		b.table.add(models.Include{
			Name:    name,
			Kind:    n.Name,
			Content: n.OuterXML(),
			File:    abs,
			Line:    n.Line,
		})
	}

	for _, n := range doc.DocumentElement().Elements() {
		if n.Name != models.KindInclude {
			continue
		}
		file, ok := n.Attr("file")
		if !ok {
			continue
		}
		if file == ShortcutsIncludeFile {
			logger.Debug("skin: skipping skin shortcuts include", slog.String("path", abs))
			continue
		}
		b.ingest(filepath.Join(b.folder, filepath.FromSlash(file)))
	}
}
