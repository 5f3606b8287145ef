package service

import (
	"context"

	"branchdesk-server/internal/domain"
	"branchdesk-server/pkg/sanitize"
)

type NoteService struct {
	data *DataService
}

func NewNoteService(data *DataService) *NoteService {
	return &NoteService{data: data}
}

func (s *NoteService) Create(ctx context.Context, req *domain.CreateNoteRequest) (string, error) {
	if err := validateRequest(req); err != nil {
		return "", err
	}

	return s.data.Add(ctx, domain.CollectionNotes, sanitize.Fields{
		"type":    req.Type,
		"content": req.Content,
		"branch":  req.Branch,
	})
}

func (s *NoteService) Update(ctx context.Context, id string, req *domain.UpdateNoteRequest) error {
	if err := validateRequest(req); err != nil {
		return err
	}

	return s.data.Update(ctx, domain.CollectionNotes, id, sanitize.Fields{
		"type":    sanitize.Optional(req.Type),
		"content": sanitize.Optional(req.Content),
	})
}

func (s *NoteService) Delete(ctx context.Context, id string) error {
	return s.data.Delete(ctx, domain.CollectionNotes, id)
}
