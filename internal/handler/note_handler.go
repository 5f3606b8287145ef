package handler

import (
	"net/http"

	"branchdesk-server/internal/domain"
	"branchdesk-server/internal/service"
	"branchdesk-server/pkg/response"
)

type NoteHandler struct {
	service *service.NoteService
}

func NewNoteHandler(service *service.NoteService) *NoteHandler {
	return &NoteHandler{service: service}
}

func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateNoteRequest
	if err := decodeJSON(r, &req); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}

	id, err := h.service.Create(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err, "save note")
		return
	}

	response.Created(w, map[string]string{"id": id})
}

func (h *NoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateNoteRequest
	if err := decodeJSON(r, &req); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}

	if err := h.service.Update(r.Context(), pathID(r), &req); err != nil {
		writeServiceError(w, err, "update note")
		return
	}

	response.Message(w, "Note updated")
}

func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), pathID(r)); err != nil {
		writeServiceError(w, err, "delete note")
		return
	}

	response.Message(w, "Note deleted")
}
