package record

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/karnataka-health/anemia-platform/internal/age"
	"github.com/karnataka-health/anemia-platform/internal/anonymize"
	"github.com/karnataka-health/anemia-platform/internal/classify"
)

// beneficiaryMap translates the feed's numeric cohort codes.
var beneficiaryMap = map[int]string{
	2: "Pregnant Women",
	3: "Children 5-59 Months",
	4: "Children Aged 5-9 Years",
	5: "Adolescent Girls 10-19 Years",
	6: "Adolescent Boys 10-19 Years",
	7: "Women Of Reproductive Age",
}

// blockCodeMap translates administrative block codes to block names.
var blockCodeMap = map[string]string{
	"2": "Yelburga",
	"3": "Kushtagi",
	"4": "Gangavathi",
	"5": "Koppal",
}

// Reconciler runs the ordered normalization pipeline over a raw snapshot.
// Stage order is fixed: age must be final before either classifier runs,
// both classifiers before anonymization, and everything before dedup.
type Reconciler struct {
	masker *anonymize.Masker
	now    func() time.Time
}

func NewReconciler(masker *anonymize.Masker) *Reconciler {
	return &Reconciler{masker: masker, now: time.Now}
}

// Reconcile normalizes, classifies, anonymizes, deduplicates and filters a
// raw snapshot. Per-field coercion failures degrade the field to its zero
// or unresolved form; no single bad row fails the batch.
func (r *Reconciler) Reconcile(raws []RawRecord) []Subject {
	subjects := make([]Subject, 0, len(raws))
	for i, raw := range raws {
		s := r.build(i+1, Project(raw))
		subjects = append(subjects, s)
	}

	subjects = dedupe(subjects)

	kept := subjects[:0]
	for _, s := range subjects {
		if retained(s) {
			kept = append(kept, s)
		}
	}
	return kept
}

func (r *Reconciler) build(serial int, row map[Field]any) Subject {
	s := Subject{
		ID:           asString(row[FieldID]),
		Serial:       serial,
		Gender:       strings.ToLower(asString(row[FieldGender])),
		Trimester:    asString(row[FieldTrimester]),
		AreaCode:     asString(row[FieldAreaCode]),
		PSUName:      asString(row[FieldPSUName]),
		SampleStatus: asString(row[FieldSampleStatus]),
		Diet1:        asString(row[FieldDiet1]),
		Diet2:        asString(row[FieldDiet2]),
		Whatsapp:     asString(row[FieldWhatsapp]),
		Status:       asString(row[FieldStatus]),
		HGB:          asFloat(row[FieldHGB]),
		Length:       asFloat(row[FieldLength]),
		Height:       asFloat(row[FieldHeight]),
		Weight:       asFloat(row[FieldWeight]),
	}

	s.EnrollmentDate = asTime(row[FieldEnrollmentDate])
	s.SampleDate = asTime(row[FieldSampleDate])
	s.DOB = asTime(row[FieldDOB])
	s.Beneficiary = beneficiaryName(row[FieldBeneficiary])

	// Age: resolve the raw value, then fall back to the birth date measured
	// against enrollment (or processing time when enrollment is unknown)
	if v, ok := age.Resolve(row[FieldAge]); ok {
		s.AgeYears = &v
	} else if s.DOB != nil {
		ref := r.now()
		if s.EnrollmentDate != nil {
			ref = *s.EnrollmentDate
		}
		if v, ok := age.FromBirthDate(*s.DOB, ref); ok {
			s.AgeYears = &v
		}
	}

	// Anthropometrics: height preferred, infant length as fallback
	if s.Weight != nil {
		stature := s.Height
		if stature == nil {
			stature = s.Length
		}
		if stature != nil {
			if bmi, ok := classify.BMI(*s.Weight, *stature); ok {
				s.BMI = &bmi
			}
		}
	}

	s.NutritionalStatus = classify.Nutrition(s.BMI, s.AgeYears, s.Gender, s.Beneficiary)
	s.AnemiaCategory = classify.Anemia(s.HGB, s.AgeYears, s.Gender, s.Beneficiary)

	r.anonymize(&s, row)
	r.derive(&s, row)
	return s
}

// anonymize replaces identity fields with their masked display forms. The
// normalized raw contact is kept on the shadow field only. The token is a
// salted hash of the raw identity, stable across cycles, so downstream
// consumers can link a subject between snapshots without seeing any PII.
func (r *Reconciler) anonymize(s *Subject, row map[Field]any) {
	rawName := asString(row[FieldName])
	contact := anonymize.NormalizePhone(asString(row[FieldContact]))

	s.Token = r.masker.SaltHash(rawName+"|"+contact, "SUBJ-")
	s.Name = anonymize.MaskReadable(titleCase(rawName))
	s.HouseholdName = anonymize.MaskReadable(asString(row[FieldHouseholdName]))
	s.Worker = anonymize.MaskReadable(titleCase(asString(row[FieldWorker])))
	s.Email = anonymize.MaskReadable(asString(row[FieldEmail]))
	s.FieldInvestigator = anonymize.MaskReadable(asString(row[FieldFieldInvestigator]))
	s.DataOperator = anonymize.MaskReadable(asString(row[FieldDataOperator]))
	s.CollectedBy = anonymize.MaskReadable(asString(row[FieldCollectedBy]))

	s.realContact = contact
	s.Contact = anonymize.MaskContact(contact)
}

// derive fills the presentation fields built from other columns.
func (r *Reconciler) derive(s *Subject, row map[Field]any) {
	if s.AreaCode != "" {
		for len(s.AreaCode) < 3 {
			s.AreaCode = "0" + s.AreaCode
		}
	}

	switch {
	case s.PSUName != "" && s.AreaCode != "":
		s.Location = fmt.Sprintf("%s (%s)", s.PSUName, s.AreaCode)
	case s.PSUName != "":
		s.Location = s.PSUName
	default:
		s.Location = "Missing"
	}

	if raw := asString(row[FieldBlockCode]); raw != "" {
		s.BlockLabel = blockLabel(raw)
	}
}

func blockLabel(raw string) string {
	code := raw
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		code = strconv.Itoa(int(f))
	} else {
		return raw
	}
	name, ok := blockCodeMap[code]
	if !ok {
		name = "Unknown"
	}
	return fmt.Sprintf("%s (%s)", name, code)
}

// beneficiaryName maps numeric cohort codes through the fixed table;
// non-numeric values pass through title-cased.
func beneficiaryName(v any) string {
	raw := asString(v)
	if raw == "" {
		return ""
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		if name, ok := beneficiaryMap[int(f)]; ok {
			return name
		}
		return raw
	}
	return titleCase(raw)
}

// dedupe sorts by sample date ascending and keeps the last record per id.
// Undated records sort first, so a dated duplicate always beats an undated
// one regardless of feed order. Records without a usable id are dropped;
// there is no field merging, the surviving record wins verbatim.
func dedupe(subjects []Subject) []Subject {
	sort.SliceStable(subjects, func(i, j int) bool {
		ti, tj := subjects[i].SampleDate, subjects[j].SampleDate
		switch {
		case ti == nil:
			return tj != nil
		case tj == nil:
			return false
		default:
			return ti.Before(*tj)
		}
	})

	latest := make(map[string]int, len(subjects))
	order := make([]string, 0, len(subjects))
	for i, s := range subjects {
		id := strings.TrimSpace(s.ID)
		if id == "" || strings.EqualFold(id, "nan") {
			continue
		}
		if _, seen := latest[id]; !seen {
			order = append(order, id)
		}
		latest[id] = i
	}

	out := make([]Subject, 0, len(order))
	for _, id := range order {
		out = append(out, subjects[latest[id]])
	}
	return out
}

// retained implements the ambiguity filter: a subject survives iff it has a
// resolved age or a usable beneficiary category.
func retained(s Subject) bool {
	if s.AgeYears != nil {
		return true
	}
	b := strings.ToLower(strings.TrimSpace(s.Beneficiary))
	return b != "" && b != "nan" && b != "none"
}

// asString coerces a raw cell to a trimmed string; nil and the feed's
// textual null markers become empty.
func asString(v any) string {
	var s string
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		s = val
	case float64:
		if val == float64(int64(val)) {
			s = strconv.FormatInt(int64(val), 10)
		} else {
			s = strconv.FormatFloat(val, 'f', -1, 64)
		}
	case int:
		s = strconv.Itoa(val)
	case bool:
		s = strconv.FormatBool(val)
	default:
		s = fmt.Sprintf("%v", val)
	}
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "nan", "none", "null":
		return ""
	}
	return s
}

func asFloat(v any) *float64 {
	switch val := v.(type) {
	case float64:
		return &val
	case int:
		f := float64(val)
		return &f
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return &f
		}
	}
	return nil
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
	"02-01-2006",
}

func asTime(v any) *time.Time {
	switch val := v.(type) {
	case time.Time:
		return &val
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return nil
		}
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return &t
			}
		}
	}
	return nil
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
