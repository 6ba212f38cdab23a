package classify

import (
	"math"
	"strings"
)

// NutritionStatus is a BMI-derived nutrition category.
type NutritionStatus string

const (
	NutritionSevereUnderweight NutritionStatus = "Severe Underweight"
	NutritionUnderweight       NutritionStatus = "Underweight"
	NutritionNormal            NutritionStatus = "Normal"
	NutritionRiskOfOverweight  NutritionStatus = "Risk of Overweight"
	NutritionOverweight        NutritionStatus = "Overweight"
	NutritionObese             NutritionStatus = "Obese"
	NutritionPregnancy         NutritionStatus = "Pregnancy"
	NutritionDataMissing       NutritionStatus = "Data Missing"
)

// canonical gender tokens accepted by the growth-reference tables
var genderMap = map[string]string{
	"male":   "boys",
	"m":      "boys",
	"boy":    "boys",
	"boys":   "boys",
	"female": "girls",
	"f":      "girls",
	"girl":   "girls",
	"girls":  "girls",
}

// BMI computes body mass index from weight in kg and height in cm, rounded
// to one decimal. Non-positive inputs yield no result.
func BMI(weightKg, heightCm float64) (float64, bool) {
	if weightKg <= 0 || heightCm <= 0 {
		return 0, false
	}
	h := heightCm / 100
	return math.Round(weightKg/(h*h)*10) / 10, true
}

// Nutrition classifies a subject's nutritional status from BMI, age, gender
// and beneficiary category.
//
// Pregnant subjects are exempt from the standard bands: they are Obese only
// at BMI >= 30, and "Pregnancy" otherwise. Children and adolescents under
// 19 with a known gender go through the growth-reference z-score path; if
// the reference lookup fails for the row, the adult bands apply instead.
func Nutrition(bmi, ageYears *float64, gender, beneficiary string) NutritionStatus {
	b := strings.ToLower(strings.TrimSpace(beneficiary))
	if strings.Contains(b, "pregnant") || strings.Contains(b, "(pw)") {
		if bmi != nil && *bmi >= 30 {
			return NutritionObese
		}
		return NutritionPregnancy
	}

	if bmi == nil {
		return NutritionDataMissing
	}

	sex, sexKnown := genderMap[strings.ToLower(strings.TrimSpace(gender))]
	if ageYears != nil && *ageYears < 19 && sexKnown {
		if z, err := BMIZScore(*bmi, *ageYears, sex); err == nil {
			return ClassifyZScore(z, *ageYears)
		}
	}

	return adultBands(*bmi)
}

func adultBands(bmi float64) NutritionStatus {
	switch {
	case bmi < 18.5:
		return NutritionUnderweight
	case bmi < 25:
		return NutritionNormal
	case bmi < 30:
		return NutritionOverweight
	default:
		return NutritionObese
	}
}

// ClassifyZScore maps a BMI-for-age z-score to a nutrition band. Children
// under five use the preschool bands, which carry an extra "risk of
// overweight" tier; five and over use the school-age bands.
func ClassifyZScore(z, ageYears float64) NutritionStatus {
	if ageYears < 5 {
		switch {
		case z > 3:
			return NutritionObese
		case z > 2:
			return NutritionOverweight
		case z > 1:
			return NutritionRiskOfOverweight
		case z >= -2:
			return NutritionNormal
		case z >= -3:
			return NutritionUnderweight
		default:
			return NutritionSevereUnderweight
		}
	}
	switch {
	case z > 2:
		return NutritionObese
	case z > 1:
		return NutritionOverweight
	case z >= -2:
		return NutritionNormal
	case z >= -3:
		return NutritionUnderweight
	default:
		return NutritionSevereUnderweight
	}
}
