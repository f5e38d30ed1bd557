package drive

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// Browser is the part of Service the discovery handler needs.
type Browser interface {
	ListFiles(ctx context.Context, folderID string) ([]*File, error)
	FindFolderByPath(ctx context.Context, path string) (string, error)
	Stat(ctx context.Context, fileID string) (*File, error)
}

// Handler exposes read-only Drive discovery so operators can find the file id
// of the catalog sheet.
type Handler struct {
	service Browser
}

func NewHandler(service Browser) *Handler {
	return &Handler{service: service}
}

// Router returns a mux router rooted at prefix, e.g. "/api/v1/drive".
func (h *Handler) Router(prefix string) *mux.Router {
	router := mux.NewRouter()
	sub := router.PathPrefix(prefix).Subrouter()
	sub.HandleFunc("/files", h.ListFiles).Methods(http.MethodGet)
	sub.HandleFunc("/files/{id}", h.StatFile).Methods(http.MethodGet)
	return router
}

func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()
	folderID := query.Get("folderId")

	if path := query.Get("path"); path != "" {
		id, err := h.service.FindFolderByPath(ctx, path)
		if err != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		folderID = id
	}

	files, err := h.service.ListFiles(ctx, folderID)
	if err != nil {
		log.Error().Err(err).Str("folder", folderID).Msg("drive: list files failed")
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, files)
}

func (h *Handler) StatFile(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	file, err := h.service.Stat(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, file)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("drive: encode response failed")
	}
}
