package index

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/starford/skinlens/internal/models"
)

// FolderRow summarizes one indexed folder.
type FolderRow struct {
	Folder     string    `json:"folder"`
	Generation string    `json:"generation"`
	Includes   int       `json:"includes"`
	Files      int       `json:"files"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// IncludeRow is an active include record together with its folder.
type IncludeRow struct {
	Folder string `json:"folder"`
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	File   string `json:"file"`
	Line   int    `json:"line"`
}

// SearchResult represents one content search hit.
type SearchResult struct {
	Folder  string `json:"folder"`
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Snippet string `json:"snippet"`
}

// ReplaceFolder swaps every row of folder for recs and files within a
// transaction. Only the last record of each name is marked active.
func (db *DB) ReplaceFolder(folder, generation string, recs []models.Include, files []string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if err := deleteFolderRows(tx, folder); err != nil {
		return err
	}

	if _, err := tx.Exec(`
		INSERT INTO folders (folder, generation, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(folder) DO UPDATE SET
			generation = excluded.generation,
			updated_at = excluded.updated_at
	`, folder, generation, time.Now()); err != nil {
		return fmt.Errorf("index: upsert folder: %w", err)
	}

	winner := make(map[string]int, len(recs))
	for i, r := range recs {
		winner[r.Name] = i
	}

	if len(recs) > 0 {
		stmt, err := tx.Prepare(`INSERT INTO includes (folder, position, name, kind, file, line, content, active) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare include insert: %w", err)
		}
		defer stmt.Close()
		for i, r := range recs {
			if _, err := stmt.Exec(folder, i, r.Name, r.Kind, r.File, r.Line, r.Content, winner[r.Name] == i); err != nil {
				return fmt.Errorf("index: insert include: %w", err)
			}
		}
	}

	if len(files) > 0 {
		stmt, err := tx.Prepare(`INSERT INTO include_files (folder, position, path) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare file insert: %w", err)
		}
		defer stmt.Close()
		for i, p := range files {
			if _, err := stmt.Exec(folder, i, p); err != nil {
				return fmt.Errorf("index: insert include file: %w", err)
			}
		}
	}

	if err := ftsReplace(tx, folder, recs, winner); err != nil {
		return err
	}

	return tx.Commit()
}

// DeleteFolder removes a folder and all of its rows.
func (db *DB) DeleteFolder(folder string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := deleteFolderRows(tx, folder); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM folders WHERE folder = ?`, folder); err != nil {
		return fmt.Errorf("index: delete folder: %w", err)
	}
	return tx.Commit()
}

func deleteFolderRows(tx *sql.Tx, folder string) error {
	if _, err := tx.Exec(`DELETE FROM includes WHERE folder = ?`, folder); err != nil {
		return fmt.Errorf("index: delete includes: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM include_files WHERE folder = ?`, folder); err != nil {
		return fmt.Errorf("index: delete include files: %w", err)
	}
	ftsDelete(tx, folder)
	return nil
}

// Folders returns a summary row per indexed folder, ordered by name.
func (db *DB) Folders() ([]FolderRow, error) {
	rows, err := db.conn.Query(`
		SELECT f.folder, f.generation, f.updated_at,
		       (SELECT count(*) FROM includes i WHERE i.folder = f.folder),
		       (SELECT count(*) FROM include_files p WHERE p.folder = f.folder)
		FROM folders f
		ORDER BY f.folder
	`)
	if err != nil {
		return nil, fmt.Errorf("index: folders: %w", err)
	}
	defer rows.Close()

	var out []FolderRow
	for rows.Next() {
		var r FolderRow
		if err := rows.Scan(&r.Folder, &r.Generation, &r.UpdatedAt, &r.Includes, &r.Files); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Complete returns active records of folder whose name starts with prefix
// (case-insensitive), optionally restricted to kind, ordered by name.
func (db *DB) Complete(folder, prefix, kind string, limit int) ([]IncludeRow, error) {
	if limit <= 0 {
		limit = 50
	}
	q := `SELECT folder, name, kind, file, line FROM includes WHERE folder = ? AND active = 1 AND name LIKE ? ESCAPE '\'`
	args := []any{folder, escapeLike(prefix) + "%"}
	if kind != "" {
		q += ` AND kind = ?`
		args = append(args, kind)
	}
	q += ` ORDER BY name LIMIT ?`
	args = append(args, limit)

	rows, err := db.conn.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("index: complete: %w", err)
	}
	defer rows.Close()
	return scanIncludeRows(rows)
}

// Definitions returns the declaration site of name in every folder that
// defines it.
func (db *DB) Definitions(name string) ([]models.Location, error) {
	rows, err := db.conn.Query(`SELECT folder, file, line FROM includes WHERE name = ? AND active = 1 ORDER BY folder`, name)
	if err != nil {
		return nil, fmt.Errorf("index: definitions: %w", err)
	}
	defer rows.Close()

	var out []models.Location
	for rows.Next() {
		var l models.Location
		if err := rows.Scan(&l.Folder, &l.File, &l.Line); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// FolderForFile returns the folders whose registry contains path.
func (db *DB) FolderForFile(path string) ([]string, error) {
	rows, err := db.conn.Query(`SELECT DISTINCT folder FROM include_files WHERE path = ? ORDER BY folder`, path)
	if err != nil {
		return nil, fmt.Errorf("index: folder for file: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func scanIncludeRows(rows *sql.Rows) ([]IncludeRow, error) {
	var out []IncludeRow
	for rows.Next() {
		var r IncludeRow
		if err := rows.Scan(&r.Folder, &r.Name, &r.Kind, &r.File, &r.Line); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
