package skin

import (
	"sort"

	"github.com/starford/skinlens/internal/models"
)

// table is an insertion-ordered symbol table. Appending a record with an
// existing name makes it the lookup winner; earlier records stay listed.
// A table is immutable once it has been published to a Skin.
type table struct {
	records []models.Include
	byName  map[string]int
}

func newTable() *table {
	return &table{byName: make(map[string]int)}
}

func (t *table) add(rec models.Include) {
	t.byName[rec.Name] = len(t.records)
	t.records = append(t.records, rec)
}

func (t *table) lookup(name string) (models.Include, bool) {
	i, ok := t.byName[name]
	if !ok {
		return models.Include{}, false
	}
	return t.records[i], true
}

func (t *table) len() int { return len(t.records) }

func (t *table) all() []models.Include {
	out := make([]models.Include, len(t.records))
	copy(out, t.records)
	return out
}

func (t *table) active() []models.Include {
	out := make([]models.Include, 0, len(t.byName))
	for i, rec := range t.records {
		if t.byName[rec.Name] == i {
			out = append(out, rec)
		}
	}
	return out
}

func (t *table) names(kind string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, rec := range t.records {
		if rec.Kind != kind {
			continue
		}
		if _, dup := seen[rec.Name]; dup {
			continue
		}
		seen[rec.Name] = struct{}{}
		out = append(out, rec.Name)
	}
	sort.Strings(out)
	return out
}
