//go:build sqlite_fts5

package index

import (
	"testing"

	"github.com/starford/skinlens/internal/models"
)

func TestFTS5_TableExists(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM includes_fts`).Scan(&count); err != nil {
		t.Fatalf("includes_fts table missing: %v", err)
	}
}

func TestFTS5_SearchWithSnippet(t *testing.T) {
	db := testDB(t)
	recs := []models.Include{{
		Name:    "Spotlight",
		Kind:    models.KindExpression,
		Content: `<expression name="Spotlight">Skin.HasSetting(spotlight.enabled)</expression>`,
		File:    "/skin/xml/Includes.xml",
		Line:    4,
	}}
	if err := db.ReplaceFolder("xml", "g", recs, nil); err != nil {
		t.Fatalf("ReplaceFolder: %v", err)
	}

	results, err := db.Search("spotlight", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Kind != models.KindExpression {
		t.Errorf("kind = %q", results[0].Kind)
	}
	if results[0].Snippet == "" {
		t.Error("expected non-empty snippet")
	}
}

func TestFTS5_DeleteRemovesFromFTS(t *testing.T) {
	db := testDB(t)
	recs := []models.Include{{Name: "Gone", Kind: models.KindInclude, Content: `<include name="Gone">vanishing</include>`}}
	_ = db.ReplaceFolder("xml", "g", recs, nil)
	_ = db.DeleteFolder("xml")

	results, _ := db.Search("vanishing", 10)
	if len(results) != 0 {
		t.Errorf("deleted folder still in FTS index: %+v", results)
	}
}
