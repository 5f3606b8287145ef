package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Document is a raw store document: its identifier plus open fields.
type Document struct {
	ID     string                 `json:"id"`
	Fields map[string]interface{} `json:"fields"`
}

// Flatten returns the fields with the identifier folded in, the shape used by
// backup export.
func (d Document) Flatten() map[string]interface{} {
	out := make(map[string]interface{}, len(d.Fields)+1)
	for k, v := range d.Fields {
		out[k] = v
	}
	out[FieldID] = d.ID
	return out
}

// Record is one typed variant per collection.
type Record interface {
	RecordID() string
	Collection() Collection
	Created() time.Time
}

// Branched is implemented by records of branch-scoped collections.
type Branched interface {
	Record
	BranchTag() string
}

var recordValidator = validator.New()

// DecodeRecord turns a store document into the typed variant of its
// collection and validates it.
func DecodeRecord(c Collection, doc Document) (Record, error) {
	var rec Record
	switch c {
	case CollectionTasks:
		rec = &Task{}
	case CollectionOrders:
		rec = &Order{}
	case CollectionDeliveries:
		rec = &Delivery{}
	case CollectionNotes:
		rec = &Note{}
	case CollectionProcedures:
		rec = &Procedure{}
	case CollectionScripts:
		rec = &Script{}
	default:
		return nil, fmt.Errorf("unknown collection %q", c)
	}

	raw, err := json.Marshal(doc.Fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s/%s: %w", c, doc.ID, err)
	}
	if err := json.Unmarshal(raw, rec); err != nil {
		return nil, fmt.Errorf("failed to decode %s/%s: %w", c, doc.ID, err)
	}

	switch r := rec.(type) {
	case *Task:
		r.ID = doc.ID
		r.normalize()
	case *Order:
		r.ID = doc.ID
	case *Delivery:
		r.ID = doc.ID
		r.normalize()
	case *Note:
		r.ID = doc.ID
		if r.Type == "" {
			r.Type = NoteTypeNormal
		}
	case *Procedure:
		r.ID = doc.ID
	case *Script:
		r.ID = doc.ID
	}

	if err := recordValidator.Struct(rec); err != nil {
		return nil, fmt.Errorf("invalid %s/%s: %w", c, doc.ID, err)
	}

	return rec, nil
}
