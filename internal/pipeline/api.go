package pipeline

import (
	"encoding/json"
	"math"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/karnataka-health/anemia-platform/internal/record"
)

// Handler provides HTTP handlers for the dashboard data surface
type Handler struct {
	pipeline *Pipeline
}

// NewHandler creates a new pipeline handler
func NewHandler(p *Pipeline) *Handler {
	return &Handler{pipeline: p}
}

// Routes registers the dashboard data routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Get("/summary", h.Summary)
	r.Get("/status", h.Status)

	return r
}

// Filter narrows the subject set the way the dashboard's dropdowns do.
// Every criterion is optional; multiple values for one criterion are
// comma-separated and OR-ed, criteria are AND-ed.
type Filter struct {
	Blocks        []string
	Locations     []string
	Beneficiaries []string
	Severities    []string
	Workers       []string
}

func filterFromQuery(r *http.Request) Filter {
	get := func(key string) []string {
		raw := r.URL.Query().Get(key)
		if raw == "" {
			return nil
		}
		parts := strings.Split(raw, ",")
		out := parts[:0]
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return Filter{
		Blocks:        get("block"),
		Locations:     get("location"),
		Beneficiaries: get("beneficiary"),
		Severities:    get("anemia"),
		Workers:       get("worker"),
	}
}

func (f Filter) apply(subjects []record.Subject) []record.Subject {
	out := make([]record.Subject, 0, len(subjects))
	for _, s := range subjects {
		if matches(f.Blocks, s.BlockLabel) &&
			matches(f.Locations, s.Location) &&
			matches(f.Beneficiaries, s.Beneficiary) &&
			matches(f.Severities, string(s.AnemiaCategory)) &&
			matches(f.Workers, s.Worker) {
			out = append(out, s)
		}
	}
	return out
}

func matches(wanted []string, value string) bool {
	if len(wanted) == 0 {
		return true
	}
	for _, w := range wanted {
		if strings.EqualFold(w, value) {
			return true
		}
	}
	return false
}

// List returns the filtered subject set
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	subjects := filterFromQuery(r).apply(h.pipeline.Subjects())

	writeJSON(w, http.StatusOK, map[string]any{
		"subjects": subjects,
		"count":    len(subjects),
	})
}

type summaryResponse struct {
	Total       int                `json:"total"`
	Counts      map[string]int     `json:"counts"`
	Percentages map[string]float64 `json:"percentages"`
	Prevalence  float64            `json:"prevalence"`
	AvgHGB      float64            `json:"avg_hgb"`
	DietYes     int                `json:"diet_yes"`
	Villages    []string           `json:"villages"`
}

// Summary returns the KPI aggregates for the filtered subject set
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	subjects := filterFromQuery(r).apply(h.pipeline.Subjects())

	counts := map[string]int{}
	villageSet := map[string]bool{}
	var hgbSum float64
	var hgbCount, dietYes int
	for _, s := range subjects {
		counts[string(s.AnemiaCategory)]++
		if s.HGB != nil {
			hgbSum += *s.HGB
			hgbCount++
		}
		if strings.EqualFold(strings.TrimSpace(s.Diet1), "yes") {
			dietYes++
		}
		if s.PSUName != "" {
			villageSet[s.PSUName] = true
		}
	}

	total := len(subjects)
	anemic := counts["mild"] + counts["moderate"] + counts["severe"]

	var prevalence, avgHGB float64
	if total > 0 {
		prevalence = round1(float64(anemic) / float64(total) * 100)
	}
	if hgbCount > 0 {
		avgHGB = math.Round(hgbSum/float64(hgbCount)*100) / 100
	}

	villages := make([]string, 0, len(villageSet))
	for v := range villageSet {
		villages = append(villages, v)
	}
	sort.Strings(villages)

	writeJSON(w, http.StatusOK, summaryResponse{
		Total:       total,
		Counts:      counts,
		Percentages: balancedPercentages(counts, total, prevalence),
		Prevalence:  prevalence,
		AvgHGB:      avgHGB,
		DietYes:     dietYes,
		Villages:    villages,
	})
}

// balancedPercentages produces display percentages that add up exactly.
// Normal is strictly the remainder of 100 minus prevalence; the anemic
// bands are rounded individually and the band with the highest count
// absorbs the rounding difference so they sum exactly to prevalence.
func balancedPercentages(counts map[string]int, total int, prevalence float64) map[string]float64 {
	pcts := map[string]float64{"normal": 0, "mild": 0, "moderate": 0, "severe": 0}
	if total == 0 {
		return pcts
	}

	pcts["normal"] = round1(100.0 - prevalence)

	bands := []string{"mild", "moderate", "severe"}
	var sum float64
	for _, b := range bands {
		pcts[b] = round1(float64(counts[b]) / float64(total) * 100)
		sum += pcts[b]
	}
	sum = round1(sum)

	if sum != round1(prevalence) && sum != 0 {
		diff := round1(prevalence - sum)
		maxBand := bands[0]
		for _, b := range bands[1:] {
			if counts[b] > counts[maxBand] || (counts[b] == counts[maxBand] && b > maxBand) {
				maxBand = b
			}
		}
		pcts[maxBand] = round1(pcts[maxBand] + diff)
	}
	return pcts
}

// Status reports the last refresh outcome
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	snap := h.pipeline.Snapshot()

	writeJSON(w, http.StatusOK, map[string]any{
		"cycle_id":     snap.CycleID,
		"status":       snap.Status,
		"error":        snap.Err,
		"subjects":     len(snap.Subjects),
		"last_updated": snap.LastUpdated,
	})
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
