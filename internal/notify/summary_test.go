package notify

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/karnataka-health/anemia-platform/internal/classify"
	"github.com/karnataka-health/anemia-platform/internal/record"
)

func anemicSubject(id, worker string, severity classify.Severity, hgb float64) record.Subject {
	return record.Subject{
		ID:             id,
		Worker:         worker,
		Name:           "S****t",
		PSUName:        "Kunikera",
		AnemiaCategory: severity,
		HGB:            &hgb,
	}
}

func TestWeeklySummariesGroupsByWorker(t *testing.T) {
	subjects := []record.Subject{
		anemicSubject("X1", "R****i", classify.SeveritySevere, 6.5),
		anemicSubject("X2", "R****i", classify.SeverityMild, 11.0),
		anemicSubject("X3", "S****a", classify.SeverityModerate, 9.0),
		{ID: "X4", Worker: "R****i", AnemiaCategory: classify.SeverityNormal},
	}

	summaries := WeeklySummaries(subjects)
	if len(summaries) != 2 {
		t.Fatalf("got %d summaries, want 2", len(summaries))
	}

	var radha *Summary
	for i := range summaries {
		if summaries[i].Worker == "R****i" {
			radha = &summaries[i]
		}
	}
	if radha == nil {
		t.Fatal("no summary for R****i")
	}
	if radha.Count != 2 {
		t.Errorf("count = %d, want 2 (normal subject excluded)", radha.Count)
	}
	if !strings.Contains(radha.Text, "Total Severe: 1 | Moderate: 0") {
		t.Errorf("text missing counts:\n%s", radha.Text)
	}
	if !strings.Contains(radha.Text, "X1") || !strings.Contains(radha.Text, "X2") {
		t.Errorf("text missing subject lines:\n%s", radha.Text)
	}

	// Severe subjects list before mild ones.
	if strings.Index(radha.Text, "X1") > strings.Index(radha.Text, "X2") {
		t.Error("severe subject should precede mild subject")
	}
}

func TestWeeklySummariesMissingWorker(t *testing.T) {
	subjects := []record.Subject{
		anemicSubject("X1", "", classify.SeveritySevere, 6.5),
		anemicSubject("X2", "nan", classify.SeverityModerate, 9.0),
	}

	summaries := WeeklySummaries(subjects)
	if len(summaries) != 1 {
		t.Fatalf("got %d summaries, want 1 pooled group", len(summaries))
	}
	s := summaries[0]
	if s.Worker != missingWorkerLabel {
		t.Errorf("worker = %q, want placeholder", s.Worker)
	}
	if s.ShowWhatsapp {
		t.Error("missing worker must not get a send link")
	}
}

func TestWeeklySummariesNoAnemicSubjects(t *testing.T) {
	subjects := []record.Subject{
		{ID: "X1", AnemiaCategory: classify.SeverityNormal},
		{ID: "X2", AnemiaCategory: classify.SeverityIncomplete},
	}
	if got := WeeklySummaries(subjects); got != nil {
		t.Errorf("got %v, want nil", got)
	}
}

func TestFollowUpLink(t *testing.T) {
	link := FollowUpLink("919876543210", "Weekly Summary\nVillage: Kunikera")

	if !strings.HasPrefix(link, "https://wa.me/919876543210?text=") {
		t.Errorf("link = %q", link)
	}
	if strings.Contains(link, "\n") || strings.Contains(link, " ") {
		t.Errorf("link not fully encoded: %q", link)
	}
}

func TestPendingFor(t *testing.T) {
	ledger := NewLedger(filepath.Join(t.TempDir(), "ledger.json"))
	subjects := []record.Subject{
		anemicSubject("X1", "R****i", classify.SeveritySevere, 6.5),
		anemicSubject("X2", "R****i", classify.SeverityMild, 11.0),
		{ID: "X3", Worker: "R****i", AnemiaCategory: classify.SeverityNormal},
	}

	pending := PendingFor(ledger, "R****i", subjects)
	if len(pending) != 2 {
		t.Fatalf("pending = %d, want 2", len(pending))
	}

	ledger.MarkNotified("R****i", "X1", time.Now())

	pending = PendingFor(ledger, "R****i", subjects)
	if len(pending) != 1 || pending[0].ID != "X2" {
		t.Fatalf("pending after mark = %v, want only X2", pending)
	}
}
