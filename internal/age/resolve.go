// Package age resolves heterogeneous field-entered age values into a
// numeric age in years. Survey forms deliver ages as plain numbers,
// "21y 3m" style strings, bare birth years, or stray dates; everything
// that cannot be resolved degrades to "unresolved" rather than erroring.
package age

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	datePattern  = regexp.MustCompile(`\d{1,4}[-/]\d{1,2}[-/]\d{1,4}`)
	yearsPattern = regexp.MustCompile(`(\d+(\.\d+)?)\s*(y|yr|year)`)
	monthPattern = regexp.MustCompile(`(\d+(\.\d+)?)\s*(m|mo|month)`)
	numPattern   = regexp.MustCompile(`\d+(\.\d+)?`)
)

// Resolve converts one cell value of unknown shape into an age in years.
// The second return is false when the value cannot be interpreted as an age.
//
// Resolution order: numeric pass-through (<150), date values rejected,
// unit-suffix strip, date-pattern reject, explicit y/m unit tags, then a
// positional fallback over all numeric tokens. A lone number above 1900 is
// read as a birth year with no years component; that silently yields zero
// years and so resolves to nothing, which matches the upstream collection
// tooling this feed was built against.
func Resolve(v any) (float64, bool) {
	switch val := v.(type) {
	case nil:
		return 0, false
	case float64:
		return acceptNumeric(val)
	case float32:
		return acceptNumeric(float64(val))
	case int:
		return acceptNumeric(float64(val))
	case int64:
		return acceptNumeric(float64(val))
	case time.Time:
		// A date is not an age; without a reference date there is
		// nothing to infer here.
		return 0, false
	case string:
		return resolveString(val)
	default:
		return 0, false
	}
}

func acceptNumeric(v float64) (float64, bool) {
	if math.IsNaN(v) || v >= 150 {
		return 0, false
	}
	return v, true
}

func resolveString(s string) (float64, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "nan" || s == "none" {
		return 0, false
	}

	// Simple number, possibly with a unit suffix ("21", "21.5", "21 yrs")
	clean := strings.ReplaceAll(s, "yr", "")
	clean = strings.ReplaceAll(clean, "yrs", "")
	clean = strings.ReplaceAll(clean, "yr.", "")
	if v, err := strconv.ParseFloat(strings.TrimSpace(clean), 64); err == nil {
		if v >= 150 {
			return 0, false
		}
		return v, true
	}

	// Full dates ("2021-06-01", "21/06/19") are not ages
	if datePattern.MatchString(s) {
		return 0, false
	}

	var years, months float64

	yMatch := yearsPattern.FindStringSubmatch(s)
	mMatch := monthPattern.FindStringSubmatch(s)

	if yMatch != nil || mMatch != nil {
		if yMatch != nil {
			years, _ = strconv.ParseFloat(yMatch[1], 64)
		}
		if mMatch != nil {
			months, _ = strconv.ParseFloat(mMatch[1], 64)
		}
		// A "years" value that is really a birth year carries no age
		if years > 1900 {
			years = 0
		}
	} else {
		// No unit tags: positional parse of the numeric tokens
		nums := numPattern.FindAllString(s, -1)
		if len(nums) >= 1 {
			first, _ := strconv.ParseFloat(nums[0], 64)
			if first > 1900 {
				// First token is a birth year; any following tokens
				// supply years and months
				if len(nums) >= 2 {
					years, _ = strconv.ParseFloat(nums[1], 64)
				}
				if len(nums) >= 3 {
					months, _ = strconv.ParseFloat(nums[2], 64)
				}
			} else {
				years = first
				if len(nums) >= 2 {
					months, _ = strconv.ParseFloat(nums[1], 64)
				}
			}
		}
	}

	res := round2(years + months/12)
	if res <= 0 || res >= 150 {
		return 0, false
	}
	return res, true
}

// FromBirthDate derives age in years from a birth date and reference date
// (enrollment date when known, otherwise the processing time). Both inputs
// are reduced to tz-naive instants before subtraction. Results outside
// [0, 150) stay unresolved.
func FromBirthDate(dob, reference time.Time) (float64, bool) {
	days := stripZone(reference).Sub(stripZone(dob)).Hours() / 24
	years := round2(days / 365.25)
	if years < 0 || years >= 150 {
		return 0, false
	}
	return years, true
}

func stripZone(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
