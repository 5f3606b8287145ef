package handler

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"branchdesk-server/internal/domain"
	"branchdesk-server/internal/repository"
	"branchdesk-server/internal/service"
	"branchdesk-server/internal/viewsync"
	"branchdesk-server/pkg/hash"
	"branchdesk-server/pkg/response"

	"github.com/gorilla/mux"
)

const backupPassphraseHeader = "X-Backup-Passphrase"

// DataHandler serves reads that cut across collections: raw listings,
// rendered views, the stock catalog, backups and uploaded files.
type DataHandler struct {
	data       *service.DataService
	objects    repository.ObjectStorage
	branches   []string
	location   *time.Location
	backupHash string
}

func NewDataHandler(data *service.DataService, objects repository.ObjectStorage, branches []string, location *time.Location, backupHash string) *DataHandler {
	return &DataHandler{
		data:       data,
		objects:    objects,
		branches:   branches,
		location:   location,
		backupHash: backupHash,
	}
}

func (h *DataHandler) List(w http.ResponseWriter, r *http.Request) {
	c, ok := domain.ParseCollection(mux.Vars(r)["collection"])
	if !ok {
		response.NotFound(w, "Unknown collection")
		return
	}

	records, err := h.data.List(r.Context(), c)
	if err != nil {
		writeServiceError(w, err, "load "+string(c))
		return
	}

	response.Success(w, records)
}

func (h *DataHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, ok := domain.ParseCollection(mux.Vars(r)["collection"])
	if !ok {
		response.NotFound(w, "Unknown collection")
		return
	}

	rec, err := h.data.Get(r.Context(), c, pathID(r))
	if err != nil {
		writeServiceError(w, err, "load "+string(c))
		return
	}

	response.Success(w, rec)
}

// View runs a one-shot read through the same filter, sort and derive steps
// the live dashboard applies.
func (h *DataHandler) View(w http.ResponseWriter, r *http.Request) {
	c, ok := domain.ParseCollection(mux.Vars(r)["collection"])
	if !ok {
		response.NotFound(w, "Unknown collection")
		return
	}

	branch := r.URL.Query().Get("branch")
	if c.BranchScoped() && !h.knownBranch(branch) {
		response.BadRequest(w, "Unknown branch")
		return
	}

	records, err := h.data.List(r.Context(), c)
	if err != nil {
		writeServiceError(w, err, "load "+string(c))
		return
	}

	response.Success(w, viewsync.Snapshot{
		Collection: c,
		Branch:     branch,
		Items:      viewsync.Pipeline(c, records, branch, h.data.Now(), h.location),
	})
}

func (h *DataHandler) Stock(w http.ResponseWriter, r *http.Request) {
	response.Success(w, map[string][]string{
		"items": h.data.FetchStockList(r.Context()),
	})
}

func (h *DataHandler) Backup(w http.ResponseWriter, r *http.Request) {
	if err := hash.Guard(h.backupHash, r.Header.Get(backupPassphraseHeader)); err != nil {
		response.Forbidden(w, "Invalid backup passphrase")
		return
	}

	backup := h.data.GenerateBackup(r.Context())
	response.Attachment(w, service.BackupFilename(h.data.Now().In(h.location)), backup)
}

func (h *DataHandler) File(w http.ResponseWriter, r *http.Request) {
	path := mux.Vars(r)["path"]

	body, ref, err := h.objects.Open(r.Context(), path)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.NotFound(w, "File not found")
			return
		}
		log.Printf("[Files] failed to open %s: %v", path, err)
		response.InternalError(w, "Failed to load file")
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", ref.ContentType)
	if ref.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(ref.Size, 10))
	}
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.WriteHeader(http.StatusOK)
	io.Copy(w, body)
}

func (h *DataHandler) knownBranch(branch string) bool {
	for _, b := range h.branches {
		if b == branch {
			return true
		}
	}
	return false
}
