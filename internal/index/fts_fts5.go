//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"

	"github.com/starford/skinlens/internal/models"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS includes_fts USING fts5(
			folder UNINDEXED,
			name,
			kind UNINDEXED,
			content,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

// ftsReplace indexes the active records of folder. Callers must have
// cleared the folder with ftsDelete first.
func ftsReplace(tx *sql.Tx, folder string, recs []models.Include, winner map[string]int) error {
	for i, r := range recs {
		if winner[r.Name] != i {
			continue
		}
		if _, err := tx.Exec(`INSERT INTO includes_fts (folder, name, kind, content) VALUES (?, ?, ?, ?)`,
			folder, r.Name, r.Kind, r.Content); err != nil {
			return fmt.Errorf("index: insert fts: %w", err)
		}
	}
	return nil
}

func ftsDelete(tx *sql.Tx, folder string) {
	_, _ = tx.Exec(`DELETE FROM includes_fts WHERE folder = ?`, folder)
}

// Search performs an FTS5 full-text search over active include content and
// returns matching results with snippets.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT folder,
		       name,
		       kind,
		       snippet(includes_fts, 3, '<b>', '</b>', '...', 64)
		FROM includes_fts
		WHERE includes_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
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
