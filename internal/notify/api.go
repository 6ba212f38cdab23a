package notify

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/karnataka-health/anemia-platform/internal/record"
	"github.com/karnataka-health/anemia-platform/internal/shared/errors"
)

// SnapshotFunc supplies the current reconciled subject set.
type SnapshotFunc func() []record.Subject

// Handler provides HTTP handlers for the notification module
type Handler struct {
	ledger   *Ledger
	snapshot SnapshotFunc
}

// NewHandler creates a new notification handler
func NewHandler(ledger *Ledger, snapshot SnapshotFunc) *Handler {
	return &Handler{ledger: ledger, snapshot: snapshot}
}

// Routes registers the notification routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/mark", h.Mark)
	r.Post("/reset", h.Reset)
	r.Post("/reset-subject", h.ResetSubject)
	r.Get("/status", h.Status)
	r.Get("/summaries", h.Summaries)
	r.Get("/pending", h.Pending)

	return r
}

type markRequest struct {
	Worker string `json:"worker"`
	ID     string `json:"id"`
}

// Mark records a notification for a worker/subject pair
func (h *Handler) Mark(w http.ResponseWriter, r *http.Request) {
	var req markRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body: "+err.Error()))
		return
	}
	if req.ID == "" {
		writeError(w, errors.Validation("id is required", nil))
		return
	}

	if err := h.ledger.MarkNotified(req.Worker, req.ID, time.Now()); err != nil {
		writeError(w, errors.Wrap(err, "failed to record notification"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":      "notified",
		"notified_at": h.ledger.NotifiedAt(req.Worker, req.ID),
	})
}

// Reset clears all ledger entries for a worker
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Worker string `json:"worker"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body: "+err.Error()))
		return
	}

	if err := h.ledger.Reset(req.Worker); err != nil {
		writeError(w, errors.Wrap(err, "failed to reset notifications"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// ResetSubject clears a subject's ledger entries across all workers
func (h *Handler) ResetSubject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body: "+err.Error()))
		return
	}
	if req.ID == "" {
		writeError(w, errors.Validation("id is required", nil))
		return
	}

	if err := h.ledger.ResetSubject(req.ID); err != nil {
		writeError(w, errors.Wrap(err, "failed to reset subject notifications"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// Status reports whether a worker/subject pair has been notified
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	worker := r.URL.Query().Get("worker")
	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, errors.Validation("id is required", nil))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"notified":    h.ledger.IsNotified(worker, id),
		"notified_at": h.ledger.NotifiedAt(worker, id),
	})
}

type summaryResponse struct {
	Worker       string `json:"worker"`
	Village      string `json:"village"`
	Text         string `json:"text"`
	Count        int    `json:"count"`
	ShowWhatsapp bool   `json:"show_whatsapp"`
	Link         string `json:"link,omitempty"`
}

// Summaries returns the weekly per-worker follow-up digests. The raw
// contact number stays server-side; only the composed send link leaves.
func (h *Handler) Summaries(w http.ResponseWriter, r *http.Request) {
	summaries := WeeklySummaries(h.snapshot())

	out := make([]summaryResponse, 0, len(summaries))
	for _, s := range summaries {
		resp := summaryResponse{
			Worker:       s.Worker,
			Village:      s.Village,
			Text:         s.Text,
			Count:        s.Count,
			ShowWhatsapp: s.ShowWhatsapp,
		}
		if s.ShowWhatsapp {
			resp.Link = FollowUpLink(s.Contact, s.Text)
		}
		out = append(out, resp)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"summaries": out,
		"count":     len(out),
	})
}

// Pending lists a worker's anemic subjects with no ledger entry yet
func (h *Handler) Pending(w http.ResponseWriter, r *http.Request) {
	worker := r.URL.Query().Get("worker")
	if worker == "" {
		writeError(w, errors.Validation("worker is required", nil))
		return
	}

	pending := PendingFor(h.ledger, worker, h.snapshot())
	writeJSON(w, http.StatusOK, map[string]any{
		"worker":  worker,
		"pending": pending,
		"count":   len(pending),
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
