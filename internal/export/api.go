package export

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/karnataka-health/anemia-platform/internal/record"
	"github.com/karnataka-health/anemia-platform/internal/shared/errors"
)

// SnapshotFunc supplies the current reconciled subject set.
type SnapshotFunc func() []record.Subject

// Handler provides HTTP handlers for file exports
type Handler struct {
	snapshot SnapshotFunc
}

// NewHandler creates a new export handler
func NewHandler(snapshot SnapshotFunc) *Handler {
	return &Handler{snapshot: snapshot}
}

// Routes registers the export routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/csv", h.CSV)
	r.Get("/xlsx", h.XLSX)

	return r
}

// CSV streams the current subject set as a CSV download
func (h *Handler) CSV(w http.ResponseWriter, r *http.Request) {
	data, err := CSV(h.snapshot())
	if err != nil {
		writeError(w, errors.Wrap(err, "failed to build CSV export"))
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportName("csv")))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// XLSX streams the current subject set as a workbook download
func (h *Handler) XLSX(w http.ResponseWriter, r *http.Request) {
	data, err := XLSX(h.snapshot())
	if err != nil {
		writeError(w, errors.Wrap(err, "failed to build XLSX export"))
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportName("xlsx")))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// exportName builds a collision-free download filename.
func exportName(ext string) string {
	return fmt.Sprintf("subjects_%s_%s.%s",
		time.Now().Format("20060102"), uuid.New().String()[:8], ext)
}

func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")

	if appErr, ok := err.(*errors.AppError); ok {
		w.WriteHeader(appErr.HTTPStatus)
		json.NewEncoder(w).Encode(map[string]any{
			"error": appErr.Message,
			"code":  appErr.Code,
		})
		return
	}

	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]string{"error": "internal server error"})
}
