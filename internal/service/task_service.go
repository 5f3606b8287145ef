package service

import (
	"context"
	"fmt"
	"time"

	"branchdesk-server/internal/domain"
	"branchdesk-server/pkg/sanitize"
)

type TaskService struct {
	data     *DataService
	location *time.Location
}

func NewTaskService(data *DataService, location *time.Location) *TaskService {
	if location == nil {
		location = time.Local
	}
	return &TaskService{
		data:     data,
		location: location,
	}
}

func (s *TaskService) Create(ctx context.Context, req *domain.CreateTaskRequest) (string, error) {
	if err := validateRequest(req); err != nil {
		return "", err
	}

	cycle := req.Cycle
	if cycle == "" {
		cycle = domain.CycleNone
	}

	return s.data.Add(ctx, domain.CollectionTasks, sanitize.Fields{
		"text":     req.Text,
		"assignee": req.Assignee,
		"priority": req.Priority,
		"cycle":    cycle,
		"status":   domain.TaskPending,
		"branch":   req.Branch,
	})
}

func (s *TaskService) Update(ctx context.Context, id string, req *domain.UpdateTaskRequest) error {
	if err := validateRequest(req); err != nil {
		return err
	}

	return s.data.Update(ctx, domain.CollectionTasks, id, sanitize.Fields{
		"text":     sanitize.Optional(req.Text),
		"assignee": sanitize.Optional(req.Assignee),
		"priority": sanitize.Optional(req.Priority),
		"cycle":    sanitize.Optional(req.Cycle),
	})
}

// Complete marks a task done. Recurring tasks also record the completion
// time, which is what makes them read as done for the rest of the day.
func (s *TaskService) Complete(ctx context.Context, id string) error {
	task, err := s.get(ctx, id)
	if err != nil {
		return err
	}

	fields := sanitize.Fields{"status": domain.TaskDone}
	if task.Cycle.Recurring() {
		fields["lastDone"] = s.data.Now()
	}

	return s.data.Update(ctx, domain.CollectionTasks, id, fields)
}

// MarkPartial is only allowed from a task that currently reads as pending.
func (s *TaskService) MarkPartial(ctx context.Context, id string) error {
	task, err := s.get(ctx, id)
	if err != nil {
		return err
	}

	if current := task.DisplayStatus(s.data.Now(), s.location); current != domain.TaskPending {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, domain.TaskPartial)
	}

	return s.data.Update(ctx, domain.CollectionTasks, id, sanitize.Fields{
		"status": domain.TaskPartial,
	})
}

// Undo returns a task to pending whatever its cycle. lastDone is cleared so
// a recurring task completed today reads as pending again.
func (s *TaskService) Undo(ctx context.Context, id string) error {
	return s.data.Update(ctx, domain.CollectionTasks, id, sanitize.Fields{
		"status":   domain.TaskPending,
		"lastDone": nil,
	})
}

func (s *TaskService) Delete(ctx context.Context, id string) error {
	return s.data.Delete(ctx, domain.CollectionTasks, id)
}

func (s *TaskService) get(ctx context.Context, id string) (*domain.Task, error) {
	rec, err := s.data.Get(ctx, domain.CollectionTasks, id)
	if err != nil {
		return nil, err
	}
	return rec.(*domain.Task), nil
}
