package handler

import (
	"net/http"

	"branchdesk-server/internal/domain"
	"branchdesk-server/internal/service"
	"branchdesk-server/pkg/response"
)

// ReferenceHandler serves procedures and scripts.
type ReferenceHandler struct {
	service *service.ReferenceService
}

func NewReferenceHandler(service *service.ReferenceService) *ReferenceHandler {
	return &ReferenceHandler{service: service}
}

func (h *ReferenceHandler) CreateProcedure(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateProcedureRequest
	if err := decodeJSON(r, &req); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}

	id, err := h.service.CreateProcedure(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err, "save procedure")
		return
	}

	response.Created(w, map[string]string{"id": id})
}

func (h *ReferenceHandler) UpdateProcedure(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateProcedureRequest
	if err := decodeJSON(r, &req); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}

	if err := h.service.UpdateProcedure(r.Context(), pathID(r), &req); err != nil {
		writeServiceError(w, err, "update procedure")
		return
	}

	response.Message(w, "Procedure updated")
}

func (h *ReferenceHandler) DeleteProcedure(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteProcedure(r.Context(), pathID(r)); err != nil {
		writeServiceError(w, err, "delete procedure")
		return
	}

	response.Message(w, "Procedure deleted")
}

func (h *ReferenceHandler) CreateScript(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateScriptRequest
	if err := decodeJSON(r, &req); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}

	id, err := h.service.CreateScript(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err, "save script")
		return
	}

	response.Created(w, map[string]string{"id": id})
}

func (h *ReferenceHandler) UpdateScript(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateScriptRequest
	if err := decodeJSON(r, &req); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}

	if err := h.service.UpdateScript(r.Context(), pathID(r), &req); err != nil {
		writeServiceError(w, err, "update script")
		return
	}

	response.Message(w, "Script updated")
}

func (h *ReferenceHandler) DeleteScript(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteScript(r.Context(), pathID(r)); err != nil {
		writeServiceError(w, err, "delete script")
		return
	}

	response.Message(w, "Script deleted")
}
