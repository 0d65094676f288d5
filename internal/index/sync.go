package index

import (
	"log/slog"

	"github.com/starford/skinlens/internal/models"
)

// Source is the in-memory include table the index mirrors.
type Source interface {
	Folders() []string
	Includes(folder string) []models.Include
	IncludeFiles(folder string) []string
	Generation(folder string) string
}

// Sync brings the index up to date with src:
//   - folders whose generation changed are replaced
//   - on a full sync (no folders given), indexed folders src no longer knows are deleted
func Sync(db IncludeIndex, src Source, logger *slog.Logger, folders ...string) error {
	full := len(folders) == 0
	if full {
		folders = src.Folders()
	}

	rows, err := db.Folders()
	if err != nil {
		return err
	}
	indexed := make(map[string]string, len(rows))
	for _, r := range rows {
		indexed[r.Folder] = r.Generation
	}

	for _, folder := range folders {
		gen := src.Generation(folder)
		if g, ok := indexed[folder]; ok && g == gen && gen != "" {
			continue
		}
		recs := src.Includes(folder)
		if err := db.ReplaceFolder(folder, gen, recs, src.IncludeFiles(folder)); err != nil {
			logger.Warn("sync: replace folder failed", slog.String("folder", folder), slog.String("error", err.Error()))
			continue
		}
		logger.Debug("sync: indexed folder", slog.String("folder", folder), slog.Int("includes", len(recs)))
	}

	if !full {
		return nil
	}

	known := make(map[string]struct{}, len(folders))
	for _, f := range folders {
		known[f] = struct{}{}
	}
	for f := range indexed {
		if _, ok := known[f]; ok {
			continue
		}
		if err := db.DeleteFolder(f); err != nil {
			logger.Warn("sync: delete failed", slog.String("folder", f), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: removed stale", slog.String("folder", f))
		}
	}
	return nil
}
