// Package deck defines the flashcard corpus model: notes recovered from the
// notes markup, note models describing how a note is presented, and the deck
// manifest tree.
package deck

import (
	"encoding/json"
	"fmt"
)

// Attribute keys recognized on card elements. Keys absent from the markup are
// omitted from Note.Attributes, not defaulted.
const (
	AttrGUID          = "guid"
	AttrNoteModelUUID = "note_model_uuid"
	AttrDeckName      = "deck_name"
)

var attributeKeys = []string{AttrGUID, AttrNoteModelUUID, AttrDeckName}

// Note is a single flashcard source record. Field order is significant - it
// is the only link between a field value and its name in the resolved model.
type Note struct {
	Attributes map[string]string
	Fields     []string
	Tags       []string
	Extra      map[string]any
}

// ModelRefs returns note model identifier candidates in resolution order:
// the primary model reference attribute first, then the legacy numeric id
// from extra data if present.
func (n *Note) ModelRefs() []string {
	var refs []string
	if id, ok := n.Attributes[AttrNoteModelUUID]; ok && len(id) != 0 {
		refs = append(refs, id)
	}
	if v, ok := n.Extra["note_model_id"]; ok {
		switch id := v.(type) {
		case string:
			if len(id) != 0 {
				refs = append(refs, id)
			}
		case json.Number:
			refs = append(refs, id.String())
		}
	}
	return refs
}

// ModelField is a single field definition of a note model.
type ModelField struct {
	Name string `json:"name"`
}

// ModelTemplate holds front and back formats of one card template.
type ModelTemplate struct {
	Name           string `json:"name,omitempty"`
	QuestionFormat string `json:"qfmt"`
	AnswerFormat   string `json:"afmt"`
}

// Model is a note type definition. Models are immutable once loaded, the
// registry may expose the same model under several identifier schemes.
type Model struct {
	CrowdAnkiUUID string          `json:"crowdanki_uuid,omitempty"`
	ID            json.Number     `json:"id,omitempty"`
	Name          string          `json:"name,omitempty"`
	Fields        []ModelField    `json:"flds,omitempty"`
	Templates     []ModelTemplate `json:"tmpls,omitempty"`
	CSS           string          `json:"css,omitempty"`
}

// Keys returns every non-empty identifier the model carries.
func (m *Model) Keys() []string {
	var keys []string
	if len(m.CrowdAnkiUUID) != 0 {
		keys = append(keys, m.CrowdAnkiUUID)
	}
	if len(m.ID) != 0 {
		keys = append(keys, m.ID.String())
	}
	return keys
}

// FieldName returns the display name for a field position, synthesizing a
// positional "Field N" label when the model has no definition for it.
func (m *Model) FieldName(idx int) string {
	if m != nil && idx >= 0 && idx < len(m.Fields) {
		return m.Fields[idx].Name
	}
	return fmt.Sprintf("Field %d", idx+1)
}

// ModelFile is the note model resource layout.
type ModelFile struct {
	NoteModels []*Model `json:"note_models"`
}

// ParseModelFile decodes a note model resource. Numeric model identifiers are
// kept verbatim so they can serve as registry keys without float rounding.
func ParseModelFile(data []byte) (*ModelFile, error) {
	var mf ModelFile
	if err := json.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("unable to decode note models: %w", err)
	}
	return &mf, nil
}
