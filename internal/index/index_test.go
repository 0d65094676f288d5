package index

import (
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/starford/skinlens/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "skinlens-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func sampleRecords() []models.Include {
	return []models.Include{
		{Name: "Header", Kind: models.KindInclude, Content: `<include name="Header"><control type="label"/></include>`, File: "/skin/xml/Includes.xml", Line: 2},
		{Name: "PosX", Kind: models.KindConstant, Content: `<constant name="PosX">20</constant>`, File: "/skin/xml/Includes.xml", Line: 3},
		{Name: "Header", Kind: models.KindInclude, Content: `<include name="Header"><control type="image"/></include>`, File: "/skin/xml/Extra.xml", Line: 7},
	}
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	for _, table := range []string{"folders", "includes", "include_files"} {
		if err := db.conn.QueryRow(`SELECT count(*) FROM ` + table).Scan(&count); err != nil {
			t.Fatalf("%s table missing: %v", table, err)
		}
	}
}

func TestReplaceFolder_ActiveIsLastRecord(t *testing.T) {
	db := testDB(t)
	files := []string{"/skin/xml/Includes.xml", "/skin/xml/Extra.xml"}
	if err := db.ReplaceFolder("xml", "g1", sampleRecords(), files); err != nil {
		t.Fatalf("ReplaceFolder: %v", err)
	}

	locs, err := db.Definitions("Header")
	if err != nil {
		t.Fatalf("Definitions: %v", err)
	}
	if len(locs) != 1 {
		t.Fatalf("expected 1 definition, got %d", len(locs))
	}
	if locs[0].File != "/skin/xml/Extra.xml" || locs[0].Line != 7 || locs[0].Folder != "xml" {
		t.Errorf("definition = %+v", locs[0])
	}

	rows, err := db.Folders()
	if err != nil {
		t.Fatalf("Folders: %v", err)
	}
	if len(rows) != 1 || rows[0].Includes != 3 || rows[0].Files != 2 || rows[0].Generation != "g1" {
		t.Errorf("folder rows = %+v", rows)
	}
}

func TestReplaceFolder_ReplacesPreviousRows(t *testing.T) {
	db := testDB(t)
	_ = db.ReplaceFolder("xml", "g1", sampleRecords(), []string{"/skin/xml/Includes.xml"})
	if err := db.ReplaceFolder("xml", "g2", sampleRecords()[1:2], []string{"/skin/xml/Includes.xml"}); err != nil {
		t.Fatalf("ReplaceFolder: %v", err)
	}

	locs, _ := db.Definitions("Header")
	if len(locs) != 0 {
		t.Errorf("stale definitions: %+v", locs)
	}
	rows, _ := db.Folders()
	if len(rows) != 1 || rows[0].Includes != 1 || rows[0].Generation != "g2" {
		t.Errorf("folder rows = %+v", rows)
	}
}

func TestDefinitions_AcrossFolders(t *testing.T) {
	db := testDB(t)
	_ = db.ReplaceFolder("16x9", "a", sampleRecords(), nil)
	_ = db.ReplaceFolder("21x9", "b", sampleRecords()[:1], nil)

	locs, err := db.Definitions("Header")
	if err != nil {
		t.Fatalf("Definitions: %v", err)
	}
	if len(locs) != 2 {
		t.Fatalf("expected 2 definitions, got %d", len(locs))
	}
	if locs[0].Folder != "16x9" || locs[1].Folder != "21x9" {
		t.Errorf("folders = %q, %q", locs[0].Folder, locs[1].Folder)
	}
}

func TestComplete(t *testing.T) {
	db := testDB(t)
	_ = db.ReplaceFolder("xml", "g", sampleRecords(), nil)

	rows, err := db.Complete("xml", "he", "", 10)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if len(rows) != 1 || rows[0].Name != "Header" || rows[0].Line != 7 {
		t.Errorf("rows = %+v", rows)
	}

	rows, _ = db.Complete("xml", "", models.KindConstant, 10)
	if len(rows) != 1 || rows[0].Name != "PosX" {
		t.Errorf("constant rows = %+v", rows)
	}

	rows, _ = db.Complete("xml", "%", "", 10)
	if len(rows) != 0 {
		t.Errorf("wildcard prefix should be literal, got %+v", rows)
	}
}

func TestFolderForFile(t *testing.T) {
	db := testDB(t)
	_ = db.ReplaceFolder("16x9", "a", nil, []string{"/skin/16x9/Includes.xml"})
	_ = db.ReplaceFolder("21x9", "b", nil, []string{"/skin/21x9/Includes.xml"})

	folders, err := db.FolderForFile("/skin/21x9/Includes.xml")
	if err != nil {
		t.Fatalf("FolderForFile: %v", err)
	}
	if len(folders) != 1 || folders[0] != "21x9" {
		t.Errorf("folders = %v", folders)
	}
}

func TestDeleteFolder(t *testing.T) {
	db := testDB(t)
	_ = db.ReplaceFolder("xml", "g", sampleRecords(), []string{"/skin/xml/Includes.xml"})
	if err := db.DeleteFolder("xml"); err != nil {
		t.Fatalf("DeleteFolder: %v", err)
	}
	rows, _ := db.Folders()
	if len(rows) != 0 {
		t.Errorf("folders after delete = %+v", rows)
	}
	files, _ := db.FolderForFile("/skin/xml/Includes.xml")
	if len(files) != 0 {
		t.Errorf("files after delete = %v", files)
	}
}

func TestSearch(t *testing.T) {
	db := testDB(t)
	_ = db.ReplaceFolder("xml", "g", sampleRecords(), nil)

	results, err := db.Search("image", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Name != "Header" {
		t.Fatalf("results = %+v", results)
	}
	if results[0].Snippet == "" {
		t.Error("expected non-empty snippet")
	}

	// Shadowed records are not searchable.
	results, _ = db.Search("label", 10)
	if len(results) != 0 {
		t.Errorf("shadowed record matched: %+v", results)
	}
}

type fakeSource struct {
	recs map[string][]models.Include
	gens map[string]string
}

func (f *fakeSource) Folders() []string {
	var out []string
	for k := range f.recs {
		out = append(out, k)
	}
	return out
}
func (f *fakeSource) Includes(folder string) []models.Include { return f.recs[folder] }
func (f *fakeSource) IncludeFiles(folder string) []string {
	return []string{"/skin/" + folder + "/Includes.xml"}
}
func (f *fakeSource) Generation(folder string) string { return f.gens[folder] }

func TestSync_AddsReplacesAndRemoves(t *testing.T) {
	db := testDB(t)
	_ = db.ReplaceFolder("gone", "old", sampleRecords(), nil)

	src := &fakeSource{
		recs: map[string][]models.Include{"xml": sampleRecords()},
		gens: map[string]string{"xml": "g1"},
	}
	if err := Sync(db, src, quietLogger()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	rows, _ := db.Folders()
	if len(rows) != 1 || rows[0].Folder != "xml" || rows[0].Generation != "g1" {
		t.Fatalf("rows after full sync = %+v", rows)
	}

	src.recs["xml"] = sampleRecords()[1:2]
	src.gens["xml"] = "g2"
	if err := Sync(db, src, quietLogger(), "xml"); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	rows, _ = db.Folders()
	if rows[0].Includes != 1 || rows[0].Generation != "g2" {
		t.Errorf("rows after folder sync = %+v", rows)
	}
}

func TestSync_SkipsUnchangedGeneration(t *testing.T) {
	db := testDB(t)
	src := &fakeSource{
		recs: map[string][]models.Include{"xml": sampleRecords()},
		gens: map[string]string{"xml": "g1"},
	}
	_ = Sync(db, src, quietLogger())

	// Same generation with different records: sync must not touch the rows.
	src.recs["xml"] = nil
	_ = Sync(db, src, quietLogger())
	rows, _ := db.Folders()
	if len(rows) != 1 || rows[0].Includes != 3 {
		t.Errorf("rows = %+v", rows)
	}
}
