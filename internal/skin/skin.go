// Package skin builds per-folder include symbol tables for a Kodi skin and
// resolves <include> references against them.
package skin

import (
	"log/slog"
	"slices"
	"sort"
	"sync"

	"github.com/starford/skinlens/internal/models"
	"github.com/starford/skinlens/internal/storage"
)

// ShortcutsIncludeFile is generated by script.skinshortcuts and includes the
// skin's own include files back; it is never followed.
const ShortcutsIncludeFile = "script-skinshortcuts-includes.xml"

// primaryIncludeFiles are tried in order for each folder.
var primaryIncludeFiles = []string{"Includes.xml", "includes.xml"}

// Skin owns the include symbol tables of one loaded skin.
//
// Rebuilds compute a folder's table without holding the read lock and swap
// it in whole, so readers never observe a partially built folder. Rebuilds of
// the same folder are serialized by a per-folder lock held across build and
// swap.
type Skin struct {
	store  storage.Provider
	logger *slog.Logger

	mu      sync.RWMutex
	tables  map[string]*table
	files   map[string][]string
	gens    map[string]string
	folders map[string]*sync.Mutex
}

// Option configures a Skin.
type Option func(*Skin)

// WithLogger sets the logger used for diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Skin) {
		s.logger = l
	}
}

// New creates a Skin for the files behind store and builds the include
// tables of every folder.
func New(store storage.Provider, folders []string, opts ...Option) *Skin {
	s := &Skin{
		store:   store,
		logger:  slog.Default(),
		tables:  make(map[string]*table),
		files:   make(map[string][]string),
		gens:    make(map[string]string),
		folders: make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.RebuildAll(folders...)
	return s
}

// Folders returns the known folder names, sorted.
func (s *Skin) Folders() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.tables))
	for f := range s.tables {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// HasFolder reports whether folder has been built.
func (s *Skin) HasFolder(folder string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.tables[folder]
	return ok
}

// Includes returns a copy of the folder's records in discovery order,
// shadowed duplicates included.
func (s *Skin) Includes(folder string) []models.Include {
	t := s.table(folder)
	if t == nil {
		return nil
	}
	return t.all()
}

// ActiveIncludes returns the records that win the last-wins rule, in
// discovery order of the winners.
func (s *Skin) ActiveIncludes(folder string) []models.Include {
	t := s.table(folder)
	if t == nil {
		return nil
	}
	return t.active()
}

// Lookup returns the record a reference to name resolves against.
func (s *Skin) Lookup(folder, name string) (models.Include, bool) {
	t := s.table(folder)
	if t == nil {
		return models.Include{}, false
	}
	return t.lookup(name)
}

// Definition returns the declaration site of name in folder.
func (s *Skin) Definition(folder, name string) (models.Location, bool) {
	rec, ok := s.Lookup(folder, name)
	if !ok {
		return models.Location{}, false
	}
	return models.Location{Folder: folder, File: rec.File, Line: rec.Line}, true
}

// ConstantNames returns the sorted names of every constant in folder.
func (s *Skin) ConstantNames(folder string) []string {
	t := s.table(folder)
	if t == nil {
		return nil
	}
	return t.names(models.KindConstant)
}

// IncludeFiles returns the absolute paths that contributed to the folder's
// table, root include file first.
func (s *Skin) IncludeFiles(folder string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.files[folder])
}

// Generation returns an identifier that changes on every rebuild of folder.
func (s *Skin) Generation(folder string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gens[folder]
}

// folderLock returns the mutex serializing rebuilds of folder.
func (s *Skin) folderLock(folder string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.folders[folder]
	if !ok {
		l = new(sync.Mutex)
		s.folders[folder] = l
	}
	return l
}

func (s *Skin) table(folder string) *table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tables[folder]
}
