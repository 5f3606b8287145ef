package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"branchdesk-server/internal/service"
	"branchdesk-server/pkg/response"

	"github.com/gorilla/mux"
)

// writeServiceError maps the service error taxonomy onto HTTP statuses. The
// message names the action that failed.
func writeServiceError(w http.ResponseWriter, err error, action string) {
	var (
		validationErr  *service.ValidationError
		persistenceErr *service.PersistenceError
		uploadErr      *service.UploadError
		authErr        *service.AuthError
	)

	switch {
	case errors.As(err, &validationErr):
		response.BadRequest(w, validationErr.Error())
	case errors.Is(err, service.ErrInvalidTransition):
		response.Error(w, http.StatusConflict, err.Error())
	case errors.As(err, &persistenceErr) && persistenceErr.NotFound():
		response.Failed(w, http.StatusNotFound, action)
	case errors.As(err, &uploadErr):
		log.Printf("[Handler] upload failed while trying to %s: %v", action, err)
		response.Failed(w, http.StatusBadGateway, action)
	case errors.As(err, &authErr):
		response.Failed(w, http.StatusUnauthorized, action)
	default:
		log.Printf("[Handler] failed to %s: %v", action, err)
		response.Failed(w, http.StatusInternalServerError, action)
	}
}

func decodeJSON(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func pathID(r *http.Request) string {
	return mux.Vars(r)["id"]
}
