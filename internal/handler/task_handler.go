package handler

import (
	"net/http"

	"branchdesk-server/internal/domain"
	"branchdesk-server/internal/service"
	"branchdesk-server/pkg/response"
)

type TaskHandler struct {
	service *service.TaskService
}

func NewTaskHandler(service *service.TaskService) *TaskHandler {
	return &TaskHandler{service: service}
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}

	id, err := h.service.Create(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err, "save task")
		return
	}

	response.Created(w, map[string]string{"id": id})
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}

	if err := h.service.Update(r.Context(), pathID(r), &req); err != nil {
		writeServiceError(w, err, "update task")
		return
	}

	response.Message(w, "Task updated")
}

func (h *TaskHandler) Complete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Complete(r.Context(), pathID(r)); err != nil {
		writeServiceError(w, err, "complete task")
		return
	}

	response.Message(w, "Task completed")
}

func (h *TaskHandler) Partial(w http.ResponseWriter, r *http.Request) {
	if err := h.service.MarkPartial(r.Context(), pathID(r)); err != nil {
		writeServiceError(w, err, "mark task as partial")
		return
	}

	response.Message(w, "Task marked as partial")
}

func (h *TaskHandler) Undo(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Undo(r.Context(), pathID(r)); err != nil {
		writeServiceError(w, err, "undo task")
		return
	}

	response.Message(w, "Task reopened")
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), pathID(r)); err != nil {
		writeServiceError(w, err, "delete task")
		return
	}

	response.Message(w, "Task deleted")
}
