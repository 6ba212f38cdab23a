// Package record turns raw survey rows into normalized subjects. The feed's
// column names drift between deployments, so reconciliation starts from an
// explicit schema: a closed set of canonical fields, each with a prioritized
// synonym list. Columns that match nothing in the schema are ignored.
package record

import "strings"

// RawRecord is one untyped row as delivered by the source feed.
type RawRecord map[string]any

// Field is a canonical column in the reconciled schema.
type Field string

const (
	FieldID                Field = "id"
	FieldSerial            Field = "serial"
	FieldEnrollmentDate    Field = "enrollment_date"
	FieldBlockCode         Field = "block_code"
	FieldAreaCode          Field = "area_code"
	FieldPSUName           Field = "psu_name"
	FieldName              Field = "name"
	FieldHouseholdName     Field = "household_name"
	FieldGender            Field = "gender"
	FieldBeneficiary       Field = "beneficiary"
	FieldTrimester         Field = "trimester"
	FieldDOB               Field = "dob"
	FieldAge               Field = "age"
	FieldSampleStatus      Field = "sample_status"
	FieldSampleDate        Field = "sample_collected_date"
	FieldCollectedBy       Field = "collected_by"
	FieldHGB               Field = "hgb"
	FieldFieldInvestigator Field = "field_investigator"
	FieldDataOperator      Field = "data_operator"
	FieldWorker            Field = "worker"
	FieldContact           Field = "contact"
	FieldDiet1             Field = "diet1"
	FieldDiet2             Field = "diet2"
	FieldLength            Field = "length"
	FieldHeight            Field = "height"
	FieldWeight            Field = "weight"
	FieldEmail             Field = "email"
	FieldStatus            Field = "status"
	FieldWhatsapp          Field = "whatsapp"
)

// synonyms maps each canonical field to its accepted source column names in
// priority order: when a row carries several candidates for one field, the
// earliest listed synonym wins. Names are compared after normalization, so
// "Asha_Worker", "asha worker" and "ASHA WORKER" all land on FieldWorker.
// The "diet1" source column deliberately feeds FieldDiet2: older forms
// numbered the second diet question "Diet1".
var synonyms = map[Field][]string{
	FieldID:                {"id"},
	FieldSerial:            {"sl.no", "sl no", "slno"},
	FieldEnrollmentDate:    {"enrollment date"},
	FieldBlockCode:         {"blockcode", "block code"},
	FieldAreaCode:          {"area code"},
	FieldPSUName:           {"psu name"},
	FieldName:              {"name"},
	FieldHouseholdName:     {"household name"},
	FieldGender:            {"gender"},
	FieldBeneficiary:       {"benificiery", "beneficiary", "beneficiary category"},
	FieldTrimester:         {"trimester"},
	FieldDOB:               {"dob", "date of birth"},
	FieldAge:               {"age"},
	FieldSampleStatus:      {"sample status"},
	FieldSampleDate:        {"sample collected date"},
	FieldCollectedBy:       {"collected by"},
	FieldHGB:               {"hgb", "hb"},
	FieldFieldInvestigator: {"field investigator"},
	FieldDataOperator:      {"data operator"},
	FieldWorker:            {"asha worker", "asha", "ashaworker"},
	FieldContact:           {"aasha contact", "asha contact", "asha number", "contact", "aasha contact number"},
	FieldDiet1:             {"diet 1", "diet"},
	FieldDiet2:             {"diet 2", "diet1"},
	FieldLength:            {"length"},
	FieldHeight:            {"height"},
	FieldWeight:            {"weight"},
	FieldEmail:             {"email"},
	FieldStatus:            {"status"},
	FieldWhatsapp:          {"whatsapp"},
}

// normalizeKey reduces a source column name to its comparison form:
// lower-cased, underscores folded to spaces, runs of whitespace collapsed.
// Spacing inside a name stays significant ("diet 1" and "diet1" are
// different source columns with different meanings).
func normalizeKey(key string) string {
	k := strings.ToLower(strings.TrimSpace(key))
	k = strings.ReplaceAll(k, "_", " ")
	return strings.Join(strings.Fields(k), " ")
}

// Project resolves a raw row against the canonical schema, returning one
// value per recognized field. Unmatched source columns are dropped.
func Project(raw RawRecord) map[Field]any {
	byKey := make(map[string]any, len(raw))
	for k, v := range raw {
		norm := normalizeKey(k)
		if _, taken := byKey[norm]; !taken {
			byKey[norm] = v
		}
	}

	out := make(map[Field]any)
	for field, names := range synonyms {
		for _, name := range names {
			if v, ok := byKey[name]; ok {
				out[field] = v
				break
			}
		}
	}
	return out
}
