// Package skinservice coordinates the include tables, the resources and the
// search index of one loaded skin.
package skinservice

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/starford/skinlens/internal/apperr"
	"github.com/starford/skinlens/internal/index"
	"github.com/starford/skinlens/internal/models"
	"github.com/starford/skinlens/internal/resource"
	"github.com/starford/skinlens/internal/skin"
	"github.com/starford/skinlens/internal/storage"
)

// FolderInfo summarizes one resolution folder.
type FolderInfo struct {
	Folder     string `json:"folder"`
	Default    bool   `json:"default"`
	Includes   int    `json:"includes"`
	Files      int    `json:"files"`
	Generation string `json:"generation"`
}

// IncludeDetail is a single include record, optionally with its fully
// inlined form.
type IncludeDetail struct {
	models.Include
	Folder   string `json:"folder"`
	Resolved string `json:"resolved,omitempty"`
}

// Service is the single entry point used by the HTTP API, the MCP server and
// the watcher.
type Service struct {
	store         storage.Provider
	skin          *skin.Skin
	res           *resource.Resources
	db            index.IncludeIndex
	defaultFolder string
	logger        *slog.Logger

	// reloadMu orders reloads so index commits follow the table swaps.
	reloadMu sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithIndex mirrors every rebuild into db and serves definition and search
// queries from it.
func WithIndex(db index.IncludeIndex) Option {
	return func(s *Service) { s.db = db }
}

// WithDefaultFolder marks folder as the skin's fallback folder.
func WithDefaultFolder(folder string) Option {
	return func(s *Service) { s.defaultFolder = folder }
}

// NewService creates a service over an already built skin and its resources.
func NewService(store storage.Provider, sk *skin.Skin, res *resource.Resources, opts ...Option) *Service {
	s := &Service{store: store, skin: sk, res: res, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Skin returns the underlying include tables.
func (s *Service) Skin() *skin.Skin { return s.skin }

// SyncIndex mirrors every folder into the index. It is a no-op without one.
func (s *Service) SyncIndex(_ context.Context) error {
	if s.db == nil {
		return nil
	}
	return index.Sync(s.db, s.skin, s.logger)
}

// Folders lists the known folders.
func (s *Service) Folders(_ context.Context) []FolderInfo {
	folders := s.skin.Folders()
	out := make([]FolderInfo, 0, len(folders))
	for _, f := range folders {
		out = append(out, FolderInfo{
			Folder:     f,
			Default:    f == s.defaultFolder,
			Includes:   len(s.skin.Includes(f)),
			Files:      len(s.skin.IncludeFiles(f)),
			Generation: s.skin.Generation(f),
		})
	}
	return out
}

// Includes lists the active records of folder. kind restricts the result to
// one declaration kind, query to names containing it (case-insensitive).
// A non-positive limit means no limit.
func (s *Service) Includes(_ context.Context, folder, kind, query string, limit int) ([]models.Include, error) {
	if err := s.checkFolder(folder); err != nil {
		return nil, err
	}
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	query = strings.ToLower(query)
	var out []models.Include
	for _, rec := range s.skin.ActiveIncludes(folder) {
		if kind != "" && rec.Kind != kind {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(rec.Name), query) {
			continue
		}
		out = append(out, rec)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Include returns the record a reference to name resolves against. With
// resolved set, the fully inlined declaration is attached.
func (s *Service) Include(_ context.Context, folder, name string, resolved bool) (*IncludeDetail, error) {
	if err := s.checkFolder(folder); err != nil {
		return nil, err
	}
	rec, ok := s.skin.Lookup(folder, name)
	if !ok {
		return nil, fmt.Errorf("include %q: %w", name, apperr.ErrNotFound)
	}
	d := &IncludeDetail{Include: rec, Folder: folder}
	if resolved {
		if n := s.skin.ResolveName(folder, name); n != nil {
			d.Resolved = n.OuterXML()
		}
	}
	return d, nil
}

// Complete returns active names of folder starting with prefix. It needs the
// index and falls back to an in-memory scan without one.
func (s *Service) Complete(ctx context.Context, folder, prefix, kind string, limit int) ([]index.IncludeRow, error) {
	if err := s.checkFolder(folder); err != nil {
		return nil, err
	}
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	if s.db != nil {
		return s.db.Complete(folder, prefix, kind, limit)
	}
	recs, err := s.Includes(ctx, folder, kind, "", 0)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(recs, func(a, b models.Include) int { return strings.Compare(a.Name, b.Name) })
	prefix = strings.ToLower(prefix)
	var out []index.IncludeRow
	for _, r := range recs {
		if !strings.HasPrefix(strings.ToLower(r.Name), prefix) {
			continue
		}
		out = append(out, index.IncludeRow{Folder: folder, Name: r.Name, Kind: r.Kind, File: r.File, Line: r.Line})
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Search runs a content search over every folder. It requires the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty query: %w", apperr.ErrInvalidArgument)
	}
	if s.db == nil {
		return nil, fmt.Errorf("search index disabled: %w", apperr.ErrNotFound)
	}
	return s.db.Search(query, limit)
}

// Constants returns the sorted constant names of folder.
func (s *Service) Constants(_ context.Context, folder string) ([]string, error) {
	if err := s.checkFolder(folder); err != nil {
		return nil, err
	}
	return s.skin.ConstantNames(folder), nil
}

// Files returns the include files of folder relative to the skin root, root
// include file first.
func (s *Service) Files(_ context.Context, folder string) ([]string, error) {
	if err := s.checkFolder(folder); err != nil {
		return nil, err
	}
	abs := s.skin.IncludeFiles(folder)
	out := make([]string, 0, len(abs))
	for _, p := range abs {
		rel, err := s.store.Rel(p)
		if err != nil {
			return nil, err
		}
		out = append(out, filepath.ToSlash(rel))
	}
	return out, nil
}

// Definitions returns where name is declared in each folder.
func (s *Service) Definitions(_ context.Context, name string) ([]models.Location, error) {
	if name == "" {
		return nil, fmt.Errorf("empty name: %w", apperr.ErrInvalidArgument)
	}
	var locs []models.Location
	if s.db != nil {
		var err error
		if locs, err = s.db.Definitions(name); err != nil {
			return nil, err
		}
	} else {
		for _, f := range s.skin.Folders() {
			if loc, ok := s.skin.Definition(f, name); ok {
				locs = append(locs, loc)
			}
		}
	}
	if len(locs) == 0 {
		return nil, fmt.Errorf("definition %q: %w", name, apperr.ErrNotFound)
	}
	return locs, nil
}

// Colors returns every color of the skin.
func (s *Service) Colors(_ context.Context) []models.Color {
	return s.res.Colors()
}

// Fonts returns the fonts of folder.
func (s *Service) Fonts(_ context.Context, folder string) ([]models.Font, error) {
	if err := s.checkFolder(folder); err != nil {
		return nil, err
	}
	return s.res.Fonts(folder), nil
}

// FontRefs returns the font references of the folder's window files.
func (s *Service) FontRefs(_ context.Context, folder string) ([]models.FontRef, error) {
	if err := s.checkFolder(folder); err != nil {
		return nil, err
	}
	return s.res.FontRefs(folder)
}

// Media returns the media files of the skin.
func (s *Service) Media(_ context.Context) ([]string, error) {
	return s.res.MediaFiles()
}

// Themes returns the theme entries of the skin.
func (s *Service) Themes(_ context.Context) ([]string, error) {
	return s.res.Themes()
}

// Reload updates whatever depends on path: the owning folder's include table
// (and its index rows), the colors and the folder's fonts.
func (s *Service) Reload(_ context.Context, path string) (models.ReloadResult, error) {
	if path == "" {
		return models.ReloadResult{}, fmt.Errorf("empty path: %w", apperr.ErrInvalidArgument)
	}
	if _, err := s.store.Abs(path); err != nil {
		return models.ReloadResult{}, fmt.Errorf("%w: %v", apperr.ErrInvalidArgument, err)
	}
	return s.ReloadFile(path), nil
}

// ReloadFile is Reload without argument checks; it satisfies
// watch.Reloader.
func (s *Service) ReloadFile(path string) models.ReloadResult {
	res := models.ReloadResult{Path: path}
	abs, err := s.store.Abs(path)
	if err != nil {
		return res
	}
	res.Path = abs

	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	if folders := s.reloadIncludes(abs); len(folders) > 0 {
		res.Folders = folders
		res.Generations = make(map[string]string, len(folders))
		for _, folder := range folders {
			res.Generations[folder] = s.skin.Generation(folder)
		}
		if s.db != nil {
			if err := index.Sync(s.db, s.skin, s.logger, folders...); err != nil {
				s.logger.Warn("service: index sync failed", slog.Any("folders", folders), slog.String("error", err.Error()))
			}
		}
	}

	colors, fontFolder := s.res.Reload(abs)
	res.Colors = colors
	if fontFolder != "" {
		res.Fonts = []string{fontFolder}
	}

	if res.Changed() {
		s.logger.Info("service: reloaded",
			slog.String("path", abs),
			slog.Any("folders", res.Folders),
			slog.Bool("colors", res.Colors),
			slog.Any("fonts", res.Fonts))
	}
	return res
}

// reloadIncludes rebuilds the folders whose include set contains abs. Files
// that do not sit directly in their folder are found through the index's
// file registry.
func (s *Service) reloadIncludes(abs string) []string {
	if s.skin.Reload(abs) {
		return []string{skin.FolderOf(abs)}
	}
	if s.db == nil {
		return nil
	}
	folders, err := s.db.FolderForFile(abs)
	if err != nil {
		s.logger.Warn("service: file registry lookup failed", slog.String("path", abs), slog.String("error", err.Error()))
		return nil
	}
	if len(folders) > 0 {
		s.skin.RebuildAll(folders...)
	}
	return folders
}

func (s *Service) checkFolder(folder string) error {
	if !s.skin.HasFolder(folder) {
		return fmt.Errorf("folder %q: %w", folder, apperr.ErrUnknownFolder)
	}
	return nil
}

func checkKind(kind string) error {
	if kind == "" || slices.Contains(models.IncludeKinds, kind) {
		return nil
	}
	return fmt.Errorf("kind %q: %w", kind, apperr.ErrInvalidArgument)
}
