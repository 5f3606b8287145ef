package service

import (
	"context"

	"branchdesk-server/internal/domain"
	"branchdesk-server/pkg/sanitize"
)

// ReferenceService manages procedures and scripts, which every branch shares.
type ReferenceService struct {
	data *DataService
}

func NewReferenceService(data *DataService) *ReferenceService {
	return &ReferenceService{data: data}
}

func (s *ReferenceService) CreateProcedure(ctx context.Context, req *domain.CreateProcedureRequest) (string, error) {
	if err := validateRequest(req); err != nil {
		return "", err
	}

	color := req.Color
	if color == "" {
		color = "blue"
	}

	return s.data.Add(ctx, domain.CollectionProcedures, sanitize.Fields{
		"title": req.Title,
		"steps": req.Steps,
		"color": color,
	})
}

func (s *ReferenceService) UpdateProcedure(ctx context.Context, id string, req *domain.UpdateProcedureRequest) error {
	if err := validateRequest(req); err != nil {
		return err
	}

	return s.data.Update(ctx, domain.CollectionProcedures, id, sanitize.Fields{
		"title": sanitize.Optional(req.Title),
		"steps": sanitize.Optional(req.Steps),
		"color": sanitize.Optional(req.Color),
	})
}

func (s *ReferenceService) DeleteProcedure(ctx context.Context, id string) error {
	return s.data.Delete(ctx, domain.CollectionProcedures, id)
}

func (s *ReferenceService) CreateScript(ctx context.Context, req *domain.CreateScriptRequest) (string, error) {
	if err := validateRequest(req); err != nil {
		return "", err
	}

	return s.data.Add(ctx, domain.CollectionScripts, sanitize.Fields{
		"title":   req.Title,
		"content": req.Content,
	})
}

func (s *ReferenceService) UpdateScript(ctx context.Context, id string, req *domain.UpdateScriptRequest) error {
	if err := validateRequest(req); err != nil {
		return err
	}

	return s.data.Update(ctx, domain.CollectionScripts, id, sanitize.Fields{
		"title":   sanitize.Optional(req.Title),
		"content": sanitize.Optional(req.Content),
	})
}

func (s *ReferenceService) DeleteScript(ctx context.Context, id string) error {
	return s.data.Delete(ctx, domain.CollectionScripts, id)
}
