package archive

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/karnataka-health/anemia-platform/internal/shared/errors"
)

// SeverityStore supplies aggregates over the archived subject history.
type SeverityStore interface {
	SeverityCounts(ctx context.Context) (map[string]int, error)
}

// Handler provides HTTP handlers over the subject archive
type Handler struct {
	store SeverityStore
}

// NewHandler creates a new archive handler
func NewHandler(store SeverityStore) *Handler {
	return &Handler{store: store}
}

// Routes registers the archive routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/severities", h.Severities)

	return r
}

// Severities reports the archived anemia severity distribution. Unlike the
// live dashboard summary this spans every archived cycle, not just the
// current snapshot.
func (h *Handler) Severities(w http.ResponseWriter, r *http.Request) {
	counts, err := h.store.SeverityCounts(r.Context())
	if err != nil {
		writeError(w, errors.Wrap(err, "failed to load severity counts"))
		return
	}

	total := 0
	for _, c := range counts {
		total += c
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"severities": counts,
		"total":      total,
	})
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")

	if appErr, ok := err.(*errors.AppError); ok {
		w.WriteHeader(appErr.HTTPStatus)
		json.NewEncoder(w).Encode(map[string]any{
			"error":   appErr.Message,
			"code":    appErr.Code,
			"details": appErr.Details,
		})
		return
	}

	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]string{"error": "internal server error"})
}
