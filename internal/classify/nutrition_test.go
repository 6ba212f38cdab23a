package classify

import (
	"math"
	"testing"
)

func TestBMI(t *testing.T) {
	tests := []struct {
		name     string
		weightKg float64
		heightCm float64
		want     float64
		ok       bool
	}{
		{"adult", 50, 160, 19.5, true},
		{"child", 14, 95, 15.5, true},
		{"rounds to one decimal", 70, 175, 22.9, true},
		{"zero weight", 0, 160, 0, false},
		{"zero height", 50, 0, 0, false},
		{"negative height", 50, -160, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := BMI(tt.weightKg, tt.heightCm)
			if ok != tt.ok {
				t.Fatalf("BMI(%v, %v) ok = %v, want %v", tt.weightKg, tt.heightCm, ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("BMI(%v, %v) = %v, want %v", tt.weightKg, tt.heightCm, got, tt.want)
			}
		})
	}
}

func TestNutritionPregnancyExemption(t *testing.T) {
	tests := []struct {
		name        string
		bmi         *float64
		beneficiary string
		want        NutritionStatus
	}{
		{"pregnant normal bmi", fp(22.0), "Pregnant Women", NutritionPregnancy},
		{"pregnant overweight range", fp(28.0), "Pregnant Women", NutritionPregnancy},
		{"pregnant obese", fp(31.0), "Pregnant Women", NutritionObese},
		{"pregnant obese at bound", fp(30.0), "Pregnant Women", NutritionObese},
		{"pw marker", fp(22.0), "Lactating Mother (PW)", NutritionPregnancy},
		{"pregnant missing bmi", nil, "Pregnant Women", NutritionPregnancy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Nutrition(tt.bmi, fp(28), "female", tt.beneficiary)
			if got != tt.want {
				t.Errorf("Nutrition() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNutritionAdultBands(t *testing.T) {
	tests := []struct {
		bmi  float64
		want NutritionStatus
	}{
		{17.0, NutritionUnderweight},
		{18.5, NutritionNormal},
		{24.9, NutritionNormal},
		{25.0, NutritionOverweight},
		{29.9, NutritionOverweight},
		{30.0, NutritionObese},
	}

	for _, tt := range tests {
		got := Nutrition(&tt.bmi, fp(35), "female", "Women Of Reproductive Age")
		if got != tt.want {
			t.Errorf("Nutrition(bmi=%v) = %v, want %v", tt.bmi, got, tt.want)
		}
	}
}

func TestNutritionMissingData(t *testing.T) {
	if got := Nutrition(nil, fp(35), "male", ""); got != NutritionDataMissing {
		t.Errorf("missing bmi = %v, want %v", got, NutritionDataMissing)
	}
}

func TestNutritionChildUsesGrowthReference(t *testing.T) {
	// A BMI of 21 is normal for an adult but well above the reference
	// median for a four-year-old boy.
	got := Nutrition(fp(21.0), fp(4), "male", "Children 5-59 Months")
	if got != NutritionObese && got != NutritionOverweight {
		t.Errorf("child bmi 21 = %v, want an overweight band", got)
	}

	// Same BMI with unknown gender falls back to the adult bands.
	got = Nutrition(fp(21.0), fp(4), "", "")
	if got != NutritionNormal {
		t.Errorf("child bmi 21 unknown gender = %v, want %v", got, NutritionNormal)
	}

	// Adolescents past the reference range use adult bands too.
	got = Nutrition(fp(21.0), fp(19), "male", "")
	if got != NutritionNormal {
		t.Errorf("age 19 bmi 21 = %v, want %v", got, NutritionNormal)
	}
}

func TestBMIZScore(t *testing.T) {
	// A BMI at the reference median must score approximately zero.
	z, err := BMIZScore(15.2, 5, "boys")
	if err != nil {
		t.Fatalf("BMIZScore: %v", err)
	}
	if math.Abs(z) > 0.1 {
		t.Errorf("median BMI z-score = %v, want ~0", z)
	}

	// Above-median BMI scores positive, below-median negative.
	zHigh, _ := BMIZScore(20, 5, "boys")
	zLow, _ := BMIZScore(12, 5, "boys")
	if zHigh <= 0 || zLow >= 0 {
		t.Errorf("z-scores not monotone around median: high=%v low=%v", zHigh, zLow)
	}
}

func TestBMIZScoreUnavailable(t *testing.T) {
	tests := []struct {
		name string
		bmi  float64
		age  float64
		sex  string
	}{
		{"unknown sex", 16, 5, "other"},
		{"past reference range", 22, 20, "boys"},
		{"non-positive bmi", 0, 5, "girls"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := BMIZScore(tt.bmi, tt.age, tt.sex); err != ErrZScoreUnavailable {
				t.Errorf("BMIZScore err = %v, want ErrZScoreUnavailable", err)
			}
		})
	}
}

func TestClassifyZScoreBands(t *testing.T) {
	tests := []struct {
		name string
		z    float64
		age  float64
		want NutritionStatus
	}{
		{"under five obese", 3.5, 3, NutritionObese},
		{"under five overweight", 2.5, 3, NutritionOverweight},
		{"under five risk", 1.5, 3, NutritionRiskOfOverweight},
		{"under five normal", 0, 3, NutritionNormal},
		{"under five normal lower bound", -2, 3, NutritionNormal},
		{"under five underweight", -2.5, 3, NutritionUnderweight},
		{"under five severe", -3.5, 3, NutritionSevereUnderweight},
		{"school age obese", 2.5, 10, NutritionObese},
		{"school age overweight", 1.5, 10, NutritionOverweight},
		{"school age normal", 0.5, 10, NutritionNormal},
		{"school age underweight", -2.5, 10, NutritionUnderweight},
		{"school age severe", -3.5, 10, NutritionSevereUnderweight},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyZScore(tt.z, tt.age); got != tt.want {
				t.Errorf("ClassifyZScore(%v, %v) = %v, want %v", tt.z, tt.age, got, tt.want)
			}
		})
	}
}
