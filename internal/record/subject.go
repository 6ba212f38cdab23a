package record

import (
	"strings"
	"time"

	"github.com/karnataka-health/anemia-platform/internal/classify"
)

// Subject is one normalized, classified, anonymized survey record. All
// identity fields carry their masked display form; the raw contact number
// survives only on the unexported shadow field for follow-up links.
type Subject struct {
	ID                string                   `json:"id"`
	Token             string                   `json:"token,omitempty"`
	Serial            int                      `json:"serial"`
	AgeYears          *float64                 `json:"age_years,omitempty"`
	Gender            string                   `json:"gender,omitempty"`
	Beneficiary       string                   `json:"beneficiary_category,omitempty"`
	Trimester         string                   `json:"trimester,omitempty"`
	HGB               *float64                 `json:"hgb,omitempty"`
	Length            *float64                 `json:"length,omitempty"`
	Height            *float64                 `json:"height,omitempty"`
	Weight            *float64                 `json:"weight,omitempty"`
	BMI               *float64                 `json:"bmi,omitempty"`
	AnemiaCategory    classify.Severity        `json:"anemia_category"`
	NutritionalStatus classify.NutritionStatus `json:"nutritional_status"`
	BlockLabel        string                   `json:"block,omitempty"`
	AreaCode          string                   `json:"area_code,omitempty"`
	PSUName           string                   `json:"psu_name,omitempty"`
	Location          string                   `json:"location,omitempty"`
	Name              string                   `json:"name,omitempty"`
	HouseholdName     string                   `json:"household_name,omitempty"`
	Worker            string                   `json:"worker,omitempty"`
	Contact           string                   `json:"contact,omitempty"`
	Email             string                   `json:"email,omitempty"`
	FieldInvestigator string                   `json:"field_investigator,omitempty"`
	DataOperator      string                   `json:"data_operator,omitempty"`
	CollectedBy       string                   `json:"collected_by,omitempty"`
	SampleStatus      string                   `json:"sample_status,omitempty"`
	Diet1             string                   `json:"diet1,omitempty"`
	Diet2             string                   `json:"diet2,omitempty"`
	Whatsapp          string                   `json:"whatsapp,omitempty"`
	Status            string                   `json:"status,omitempty"`
	EnrollmentDate    *time.Time               `json:"enrollment_date,omitempty"`
	SampleDate        *time.Time               `json:"sample_collected_date,omitempty"`
	DOB               *time.Time               `json:"-"`

	realContact string
}

// RealContact returns the unmasked, normalized contact number. It exists
// solely for notification-link construction and must never be serialized.
func (s *Subject) RealContact() string {
	return s.realContact
}

// HasWorker reports whether a usable worker name is attached; placeholder
// tokens from the feed count as missing.
func (s *Subject) HasWorker() bool {
	w := strings.ToLower(strings.TrimSpace(s.Worker))
	return w != "" && w != "nan" && w != "none" && w != "missing"
}
