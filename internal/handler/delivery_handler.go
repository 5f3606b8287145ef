package handler

import (
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"branchdesk-server/internal/domain"
	"branchdesk-server/internal/service"
	"branchdesk-server/pkg/response"
)

const (
	formPayload = "payload"
	formPhoto   = "photo"
)

type DeliveryHandler struct {
	service       *service.DeliveryService
	maxUploadSize int64
}

func NewDeliveryHandler(service *service.DeliveryService, maxUploadSize int64) *DeliveryHandler {
	return &DeliveryHandler{
		service:       service,
		maxUploadSize: maxUploadSize,
	}
}

// Create accepts either a JSON body or a multipart form with the delivery
// as JSON in "payload" and an optional ticket photo in "photo".
func (h *DeliveryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var (
		req   domain.CreateDeliveryRequest
		photo *service.Upload
	)

	if isMultipart(r) {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
		if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
			response.BadRequest(w, "Invalid or oversized form")
			return
		}
		defer r.MultipartForm.RemoveAll()

		if err := json.Unmarshal([]byte(r.FormValue(formPayload)), &req); err != nil {
			response.BadRequest(w, "Invalid request payload")
			return
		}

		file, header, err := r.FormFile(formPhoto)
		switch {
		case err == nil:
			defer file.Close()
			photo = uploadFromPart(file, header)
		case !errors.Is(err, http.ErrMissingFile):
			response.BadRequest(w, "Invalid photo")
			return
		}
	} else if err := decodeJSON(r, &req); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}

	if req.SubmissionKey == "" {
		req.SubmissionKey = r.Header.Get("Idempotency-Key")
	}

	created, err := h.service.Create(r.Context(), &req, photo)
	if err != nil {
		writeServiceError(w, err, "save delivery")
		return
	}

	response.Created(w, created)
}

func (h *DeliveryHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateDeliveryRequest
	if err := decodeJSON(r, &req); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}

	if err := h.service.Update(r.Context(), pathID(r), &req); err != nil {
		writeServiceError(w, err, "update delivery")
		return
	}

	response.Message(w, "Delivery updated")
}

func (h *DeliveryHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req domain.SetDeliveryStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}

	if err := h.service.SetStatus(r.Context(), pathID(r), &req); err != nil {
		writeServiceError(w, err, "update delivery status")
		return
	}

	response.Message(w, "Delivery status updated")
}

func (h *DeliveryHandler) AttachTicket(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		response.BadRequest(w, "Invalid or oversized form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(formPhoto)
	if err != nil {
		response.BadRequest(w, "Photo is required")
		return
	}
	defer file.Close()

	url, err := h.service.AttachTicket(r.Context(), pathID(r), *uploadFromPart(file, header))
	if err != nil {
		writeServiceError(w, err, "upload ticket photo")
		return
	}

	response.Success(w, map[string]string{"ticketImg": url})
}

func (h *DeliveryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), pathID(r)); err != nil {
		writeServiceError(w, err, "delete delivery")
		return
	}

	response.Message(w, "Delivery deleted")
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

func uploadFromPart(file multipart.File, header *multipart.FileHeader) *service.Upload {
	return &service.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	}
}
