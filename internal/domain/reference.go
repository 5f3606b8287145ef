package domain

import "time"

// Procedure and Script are shared by every branch.

type Procedure struct {
	ID        string     `json:"id"`
	Title     string     `json:"title" validate:"required"`
	Steps     string     `json:"steps"`
	Color     string     `json:"color"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

func (p *Procedure) RecordID() string       { return p.ID }
func (p *Procedure) Collection() Collection { return CollectionProcedures }
func (p *Procedure) Created() time.Time     { return p.CreatedAt }

type Script struct {
	ID        string     `json:"id"`
	Title     string     `json:"title" validate:"required"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

func (s *Script) RecordID() string       { return s.ID }
func (s *Script) Collection() Collection { return CollectionScripts }
func (s *Script) Created() time.Time     { return s.CreatedAt }

type CreateProcedureRequest struct {
	Title string `json:"title" validate:"required"`
	Steps string `json:"steps"`
	Color string `json:"color" validate:"omitempty,oneof=blue green yellow red purple gray"`
}

type UpdateProcedureRequest struct {
	Title *string `json:"title" validate:"omitempty,min=1"`
	Steps *string `json:"steps"`
	Color *string `json:"color" validate:"omitempty,oneof=blue green yellow red purple gray"`
}

type CreateScriptRequest struct {
	Title   string `json:"title" validate:"required"`
	Content string `json:"content"`
}

type UpdateScriptRequest struct {
	Title   *string `json:"title" validate:"omitempty,min=1"`
	Content *string `json:"content"`
}
