package index

import "github.com/starford/skinlens/internal/models"

// IncludeIndex defines the interface for include index operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type IncludeIndex interface {
	ReplaceFolder(folder, generation string, recs []models.Include, files []string) error
	DeleteFolder(folder string) error
	Folders() ([]FolderRow, error)
	Complete(folder, prefix, kind string, limit int) ([]IncludeRow, error)
	Definitions(name string) ([]models.Location, error)
	FolderForFile(path string) ([]string, error)
	Search(query string, limit int) ([]SearchResult, error)
	Close() error
}

// Verify *DB satisfies IncludeIndex at compile time.
var _ IncludeIndex = (*DB)(nil)
