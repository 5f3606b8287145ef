package domain

import "time"

type NoteType string

const (
	NoteTypeNormal NoteType = "normal"
	NoteTypeCart   NoteType = "cart"
)

type Note struct {
	ID        string     `json:"id"`
	Type      NoteType   `json:"type" validate:"oneof=normal cart"`
	Content   string     `json:"content"`
	Branch    string     `json:"branch" validate:"required"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

func (n *Note) RecordID() string       { return n.ID }
func (n *Note) Collection() Collection { return CollectionNotes }
func (n *Note) Created() time.Time     { return n.CreatedAt }
func (n *Note) BranchTag() string      { return n.Branch }

type CreateNoteRequest struct {
	Type    NoteType `json:"type" validate:"required,oneof=normal cart"`
	Content string   `json:"content" validate:"required"`
	Branch  string   `json:"branch" validate:"required"`
}

type UpdateNoteRequest struct {
	Type    *NoteType `json:"type" validate:"omitempty,oneof=normal cart"`
	Content *string   `json:"content" validate:"omitempty,min=1"`
}
