package sync

import (
	"strconv"
	"strings"
	"time"

	"github.com/karnataka-health/anemia-platform/internal/record"
)

// column is one entry of the canonical sync projection. The same ordered
// list drives both the change-detection signature and the outbound push
// payload, so a row is pushed with exactly the columns it was diffed on.
type column struct {
	name  string
	value func(record.Subject) string
}

// columns is fixed and ordered. The order must never change: a reorder
// would mark every cached row as modified and re-push the whole sheet.
var columns = []column{
	{"Sl.No", func(s record.Subject) string { return strconv.Itoa(s.Serial) }},
	{"ID", func(s record.Subject) string { return s.ID }},
	{"Enrollment Date", func(s record.Subject) string { return formatTime(s.EnrollmentDate) }},
	{"Area Code", func(s record.Subject) string { return s.AreaCode }},
	{"PSU Name", func(s record.Subject) string { return s.PSUName }},
	{"Name", func(s record.Subject) string { return s.Name }},
	{"Gender", func(s record.Subject) string { return s.Gender }},
	{"Beneficiary", func(s record.Subject) string { return s.Beneficiary }},
	{"HGB", func(s record.Subject) string { return formatFloat(s.HGB) }},
	{"Anemia Category", func(s record.Subject) string { return string(s.AnemiaCategory) }},
	{"Length", func(s record.Subject) string { return formatFloat(s.Length) }},
	{"Height", func(s record.Subject) string { return formatFloat(s.Height) }},
	{"Weight", func(s record.Subject) string { return formatFloat(s.Weight) }},
	{"Age", func(s record.Subject) string { return formatFloat(s.AgeYears) }},
	{"Whatsapp", func(s record.Subject) string { return s.Whatsapp }},
	{"Diet 1", func(s record.Subject) string { return s.Diet1 }},
	{"Diet 2", func(s record.Subject) string { return s.Diet2 }},
	{"Field Investigator", func(s record.Subject) string { return s.FieldInvestigator }},
	{"Worker", func(s record.Subject) string { return s.Worker }},
	{"Data Operator", func(s record.Subject) string { return s.DataOperator }},
	{"Sample Collected Date", func(s record.Subject) string { return formatTime(s.SampleDate) }},
	{"Nutritional Status", func(s record.Subject) string { return string(s.NutritionalStatus) }},
	{"BMI", func(s record.Subject) string { return formatFloat(s.BMI) }},
	{"Email", func(s record.Subject) string { return s.Email }},
	{"Status", func(s record.Subject) string { return s.Status }},
}

// Signature builds the change-detection string for one subject: the masked
// canonical projection joined with "|".
func Signature(s record.Subject) string {
	values := make([]string, len(columns))
	for i, c := range columns {
		values[i] = strings.TrimSpace(c.value(s))
	}
	return strings.Join(values, "|")
}

// Row builds the outbound form of one subject, restricted to the canonical
// column set the signature is computed over. Nothing outside that set, the
// masked contact included, is ever pushed downstream.
func Row(s record.Subject) map[string]string {
	row := make(map[string]string, len(columns))
	for _, c := range columns {
		row[c.name] = strings.TrimSpace(c.value(s))
	}
	return row
}

func formatFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}
