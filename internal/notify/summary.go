package notify

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/karnataka-health/anemia-platform/internal/classify"
	"github.com/karnataka-health/anemia-platform/internal/record"
)

// missingWorkerLabel stands in for absent worker names in summaries.
const missingWorkerLabel = "Worker Details Missing"

// Summary is one worker's weekly follow-up digest.
type Summary struct {
	Worker       string `json:"worker"`
	Contact      string `json:"contact,omitempty"`
	Village      string `json:"village"`
	Text         string `json:"text"`
	Count        int    `json:"count"`
	ShowWhatsapp bool   `json:"show_whatsapp"`
}

// WeeklySummaries groups the anemic subjects (severe, moderate, mild) by
// worker and renders one message per worker. Workers without a usable name
// are pooled under a placeholder with no send link; the contact embedded in
// a summary is the unmasked number and must only reach the follow-up link
// builder.
func WeeklySummaries(subjects []record.Subject) []Summary {
	anemic := make([]record.Subject, 0, len(subjects))
	for _, s := range subjects {
		if classify.IsAnemic(s.AnemiaCategory) {
			anemic = append(anemic, s)
		}
	}
	if len(anemic) == 0 {
		return nil
	}

	// Severe first, then by ascending haemoglobin within a band
	sort.SliceStable(anemic, func(i, j int) bool {
		si, sj := severityRank(anemic[i].AnemiaCategory), severityRank(anemic[j].AnemiaCategory)
		if si != sj {
			return si > sj
		}
		return hgbValue(anemic[i]) < hgbValue(anemic[j])
	})

	groups := make(map[string][]record.Subject)
	var order []string
	for _, s := range anemic {
		name := s.Worker
		if !s.HasWorker() {
			name = missingWorkerLabel
		}
		if _, ok := groups[name]; !ok {
			order = append(order, name)
		}
		groups[name] = append(groups[name], s)
	}
	sort.Strings(order)

	summaries := make([]Summary, 0, len(order))
	for _, name := range order {
		group := groups[name]
		summaries = append(summaries, buildSummary(name, group))
	}
	return summaries
}

func buildSummary(name string, group []record.Subject) Summary {
	contact := group[0].RealContact()
	showWhatsapp := name != missingWorkerLabel && contact != ""

	village := "Unknown"
	if group[0].PSUName != "" {
		village = group[0].PSUName
	}

	var severe, moderate int
	for _, s := range group {
		switch s.AnemiaCategory {
		case classify.SeveritySevere:
			severe++
		case classify.SeverityModerate:
			moderate++
		}
	}

	lines := []string{
		fmt.Sprintf("*Weekly Summary for Worker: %s*", name),
		fmt.Sprintf("Village: %s", village),
		fmt.Sprintf("Total Severe: %d | Moderate: %d", severe, moderate),
		"",
		"*Subjects to Check:*",
	}
	for i, s := range group {
		lines = append(lines, fmt.Sprintf("%d. %s (%s) - %s (Hb: %s)",
			i+1, s.Name, s.ID, capitalize(string(s.AnemiaCategory)), formatHGB(s)))
	}

	return Summary{
		Worker:       name,
		Contact:      contact,
		Village:      village,
		Text:         strings.Join(lines, "\n"),
		Count:        len(group),
		ShowWhatsapp: showWhatsapp,
	}
}

// FollowUpLink builds the wa.me URL carrying a prepared message to the
// given contact number.
func FollowUpLink(contact, text string) string {
	return fmt.Sprintf("https://wa.me/%s?text=%s", contact, url.QueryEscape(text))
}

// PendingFor returns the worker's anemic subjects that have no ledger entry
// yet, in snapshot order.
func PendingFor(ledger *Ledger, worker string, subjects []record.Subject) []record.Subject {
	var pending []record.Subject
	for _, s := range subjects {
		if s.Worker != worker || !classify.IsAnemic(s.AnemiaCategory) {
			continue
		}
		if !ledger.IsNotified(worker, s.ID) {
			pending = append(pending, s)
		}
	}
	return pending
}

func severityRank(s classify.Severity) int {
	switch s {
	case classify.SeveritySevere:
		return 3
	case classify.SeverityModerate:
		return 2
	case classify.SeverityMild:
		return 1
	default:
		return 0
	}
}

func hgbValue(s record.Subject) float64 {
	if s.HGB == nil {
		return 0
	}
	return *s.HGB
}

func formatHGB(s record.Subject) string {
	if s.HGB == nil {
		return "-"
	}
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.1f", *s.HGB), "0"), ".")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
