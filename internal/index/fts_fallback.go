//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"

	"github.com/starford/skinlens/internal/models"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; content search uses LIKE on includes.content.
	return nil
}

func ftsReplace(_ *sql.Tx, _ string, _ []models.Include, _ map[string]int) error {
	return nil
}

func ftsDelete(_ *sql.Tx, _ string) {}

// Search performs a LIKE-based search over active include names and content
// (fallback when FTS5 is not compiled in).
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + escapeLike(query) + "%"
	rows, err := db.conn.Query(`
		SELECT folder, name, kind, substr(content, 1, 200)
		FROM includes
		WHERE active = 1 AND (name LIKE ? ESCAPE '\' OR content LIKE ? ESCAPE '\')
		ORDER BY folder, position
		LIMIT ?
	`, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Folder, &r.Name, &r.Kind, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
