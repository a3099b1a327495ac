package deck

import (
	"encoding/json"
	"testing"

	"go.uber.org/zap/zaptest"
)

func TestRegistry_MergeDualKeys(t *testing.T) {
	r := NewRegistry(zaptest.NewLogger(t))
	m := &Model{CrowdAnkiUUID: "uuid-1", ID: json.Number("42"), Name: "Basic"}
	r.Merge([]*Model{m})

	for _, key := range []string{"uuid-1", "42"} {
		got, ok := r.Lookup(key)
		if !ok {
			t.Fatalf("Lookup(%q) found nothing", key)
		}
		if got != m {
			t.Errorf("Lookup(%q) = %v, want the registered model", key, got)
		}
	}
	if r.Len() != 2 {
		t.Errorf("Len() = %d, want 2", r.Len())
	}
}

func TestRegistry_MergeLastWins(t *testing.T) {
	r := NewRegistry(zaptest.NewLogger(t))
	first := &Model{CrowdAnkiUUID: "uuid-1", Name: "old"}
	second := &Model{CrowdAnkiUUID: "uuid-1", Name: "new"}
	r.Merge([]*Model{first})
	r.Merge([]*Model{second})

	got, ok := r.Lookup("uuid-1")
	if !ok || got.Name != "new" {
		t.Errorf("Lookup() = %v, want the later merged model", got)
	}
}

func TestRegistry_ResolveOrder(t *testing.T) {
	r := NewRegistry(zaptest.NewLogger(t))
	byUUID := &Model{CrowdAnkiUUID: "uuid-1", Name: "by uuid"}
	byID := &Model{ID: json.Number("42"), Name: "by id"}
	r.Merge([]*Model{byUUID, byID})

	n := &Note{
		Attributes: map[string]string{AttrNoteModelUUID: "uuid-1"},
		Extra:      map[string]any{"note_model_id": json.Number("42")},
	}
	got, ok := r.Resolve(n)
	if !ok || got != byUUID {
		t.Errorf("Resolve() = %v, want attribute reference to win over extra id", got)
	}

	n.Attributes = nil
	got, ok = r.Resolve(n)
	if !ok || got != byID {
		t.Errorf("Resolve() = %v, want fallback to extra id", got)
	}

	n.Extra = nil
	if _, ok := r.Resolve(n); ok {
		t.Error("Resolve() found a model for a note without references")
	}
}

func TestRegistry_Models(t *testing.T) {
	r := NewRegistry(zaptest.NewLogger(t))
	m := &Model{CrowdAnkiUUID: "uuid-1", ID: json.Number("42")}
	r.Merge([]*Model{m})

	models := r.Models()
	if len(models) != 1 {
		t.Errorf("Models() returned %d entries, want 1 despite two keys", len(models))
	}
}

func TestModel_FieldName(t *testing.T) {
	m := &Model{Fields: []ModelField{{Name: "Front"}, {Name: "Back"}}}
	if got := m.FieldName(1); got != "Back" {
		t.Errorf("FieldName(1) = %q, want %q", got, "Back")
	}
	if got := m.FieldName(5); got != "Field 6" {
		t.Errorf("FieldName(5) = %q, want %q", got, "Field 6")
	}
	var nilModel *Model
	if got := nilModel.FieldName(0); got != "Field 1" {
		t.Errorf("FieldName(0) on nil model = %q, want %q", got, "Field 1")
	}
}

func TestParseModelFile_NumericIDs(t *testing.T) {
	mf, err := ParseModelFile([]byte(`{"note_models":[{"id":1425274727596,"name":"Basic"}]}`))
	if err != nil {
		t.Fatalf("ParseModelFile() error = %v", err)
	}
	if len(mf.NoteModels) != 1 {
		t.Fatalf("ParseModelFile() returned %d models, want 1", len(mf.NoteModels))
	}
	if got := mf.NoteModels[0].ID.String(); got != "1425274727596" {
		t.Errorf("model id = %q, want it preserved verbatim", got)
	}
}
