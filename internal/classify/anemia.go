// Package classify maps haemoglobin and anthropometric measurements to
// WHO-guideline categories. Both classifiers are ordered rule tables
// evaluated by a single threshold-lookup routine, so every band comparison
// lives in exactly one place.
package classify

import "strings"

// Severity is a WHO anemia severity band.
type Severity string

const (
	SeverityNormal     Severity = "normal"
	SeverityMild       Severity = "mild"
	SeverityModerate   Severity = "moderate"
	SeveritySevere     Severity = "severe"
	SeverityIncomplete Severity = "incomplete"
)

// Severities lists the bands in display order.
var Severities = []Severity{SeverityNormal, SeverityMild, SeverityModerate, SeveritySevere, SeverityIncomplete}

// hgbThresholds holds the lower bounds of the normal, mild and moderate
// bands in g/dL; anything below the moderate bound is severe.
type hgbThresholds struct {
	normal   float64
	mild     float64
	moderate float64
}

// WHO haemoglobin cut-offs per beneficiary cohort.
var (
	thresholdsPregnant   = hgbThresholds{11.0, 10.0, 7.0}
	thresholdsUnderFive  = hgbThresholds{11.0, 10.0, 7.0}
	thresholdsChild5to11 = hgbThresholds{11.5, 11.0, 8.0}
	thresholdsFemale12Up = hgbThresholds{12.0, 11.0, 8.0}
	thresholdsMale15Up   = hgbThresholds{13.0, 11.0, 8.0}
)

// categoryRule matches a beneficiary category (with optional gender
// qualifier) to a threshold table. Rules are evaluated in order; the first
// match wins.
type categoryRule struct {
	match      func(beneficiary, gender string) bool
	thresholds hgbThresholds
}

func containsRule(substr string) func(string, string) bool {
	return func(b, _ string) bool { return strings.Contains(b, substr) }
}

var categoryRules = []categoryRule{
	{containsRule("pregnant"), thresholdsPregnant},
	{containsRule("5-59 months"), thresholdsUnderFive},
	{containsRule("5-9 years"), thresholdsChild5to11},
	{func(b, g string) bool {
		return strings.Contains(b, "adolescent girls") ||
			(strings.Contains(b, "adolescent") && strings.Contains(g, "female"))
	}, thresholdsFemale12Up},
	{func(b, g string) bool {
		return strings.Contains(b, "adolescent boys") ||
			(strings.Contains(b, "adolescent") && strings.Contains(g, "male"))
	}, thresholdsFemale12Up},
	{containsRule("reproductive age"), thresholdsFemale12Up},
}

// Anemia classifies a haemoglobin reading against WHO cut-offs.
//
// hgb is mandatory: a missing reading is always incomplete, whatever else
// is known. The beneficiary category decides the threshold table when it
// matches a known cohort; otherwise age and gender select a band. With
// neither category nor age usable the result is incomplete. All lower
// bounds are inclusive.
func Anemia(hgb, ageYears *float64, gender, beneficiary string) Severity {
	if hgb == nil {
		return SeverityIncomplete
	}

	g := strings.ToLower(strings.TrimSpace(gender))
	b := strings.ToLower(strings.TrimSpace(beneficiary))

	for _, rule := range categoryRules {
		if rule.match(b, g) {
			return grade(*hgb, rule.thresholds)
		}
	}

	if ageYears != nil {
		return grade(*hgb, thresholdsForAge(*ageYears, g))
	}

	return SeverityIncomplete
}

// thresholdsForAge selects the band for subjects whose beneficiary category
// did not match any cohort. Unknown gender at 12+ defaults to the female
// table, the more conservative of the two.
func thresholdsForAge(ageYears float64, gender string) hgbThresholds {
	switch {
	case ageYears < 5:
		return thresholdsUnderFive
	case ageYears < 12:
		return thresholdsChild5to11
	case strings.Contains(gender, "female") || gender == "f":
		return thresholdsFemale12Up
	case strings.Contains(gender, "male") || gender == "m":
		return thresholdsMale15Up
	default:
		return thresholdsFemale12Up
	}
}

func grade(hgb float64, t hgbThresholds) Severity {
	switch {
	case hgb >= t.normal:
		return SeverityNormal
	case hgb >= t.mild:
		return SeverityMild
	case hgb >= t.moderate:
		return SeverityModerate
	default:
		return SeveritySevere
	}
}

// IsAnemic reports whether a severity needs follow-up.
func IsAnemic(s Severity) bool {
	return s == SeverityMild || s == SeverityModerate || s == SeveritySevere
}
