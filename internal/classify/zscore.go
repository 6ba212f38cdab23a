package classify

import (
	"errors"
	"math"
)

// ErrZScoreUnavailable reports that the growth reference cannot score the
// given row (age outside the reference range or unknown sex). Callers fall
// back to the adult BMI bands.
var ErrZScoreUnavailable = errors.New("growth reference z-score unavailable")

// lmsPoint is one row of the growth reference: the Box-Cox power (L),
// median (M) and coefficient of variation (S) at a given age in months.
type lmsPoint struct {
	months float64
	l      float64
	m      float64
	s      float64
}

// WHO BMI-for-age reference, sampled at yearly intervals from birth to 19
// years and interpolated linearly between points.
var lmsTables = map[string][]lmsPoint{
	"boys": {
		{0, -0.30, 13.4, 0.095},
		{12, -0.56, 16.8, 0.080},
		{24, -0.58, 16.0, 0.080},
		{36, -0.62, 15.6, 0.080},
		{48, -0.72, 15.3, 0.081},
		{60, -0.87, 15.2, 0.083},
		{72, -1.03, 15.3, 0.086},
		{84, -1.17, 15.5, 0.090},
		{96, -1.28, 15.7, 0.095},
		{108, -1.36, 16.0, 0.100},
		{120, -1.39, 16.4, 0.105},
		{132, -1.40, 16.9, 0.110},
		{144, -1.38, 17.5, 0.113},
		{156, -1.34, 18.2, 0.115},
		{168, -1.28, 19.0, 0.116},
		{180, -1.22, 19.8, 0.115},
		{192, -1.15, 20.5, 0.114},
		{204, -1.08, 21.1, 0.112},
		{216, -1.02, 21.7, 0.111},
		{228, -0.96, 22.2, 0.110},
	},
	"girls": {
		{0, -0.06, 13.3, 0.093},
		{12, -0.46, 16.4, 0.081},
		{24, -0.51, 15.7, 0.082},
		{36, -0.59, 15.4, 0.083},
		{48, -0.74, 15.1, 0.085},
		{60, -0.92, 15.2, 0.088},
		{72, -1.10, 15.3, 0.092},
		{84, -1.24, 15.5, 0.097},
		{96, -1.33, 15.9, 0.103},
		{108, -1.37, 16.3, 0.108},
		{120, -1.37, 16.9, 0.113},
		{132, -1.33, 17.5, 0.116},
		{144, -1.26, 18.2, 0.118},
		{156, -1.18, 18.9, 0.119},
		{168, -1.10, 19.6, 0.118},
		{180, -1.02, 20.2, 0.117},
		{192, -0.95, 20.7, 0.115},
		{204, -0.89, 21.0, 0.114},
		{216, -0.84, 21.3, 0.112},
		{228, -0.80, 21.4, 0.111},
	},
}

// BMIZScore computes the BMI-for-age z-score for a child or adolescent.
// sex must be "boys" or "girls"; age is in years and must fall inside the
// reference range (birth through 19 years).
func BMIZScore(bmi, ageYears float64, sex string) (float64, error) {
	table, ok := lmsTables[sex]
	if !ok {
		return 0, ErrZScoreUnavailable
	}

	months := ageYears * 12
	if months < table[0].months || months > table[len(table)-1].months {
		return 0, ErrZScoreUnavailable
	}
	if bmi <= 0 {
		return 0, ErrZScoreUnavailable
	}

	p := interpolate(table, months)
	if p.l == 0 {
		return math.Log(bmi/p.m) / p.s, nil
	}
	return (math.Pow(bmi/p.m, p.l) - 1) / (p.l * p.s), nil
}

func interpolate(table []lmsPoint, months float64) lmsPoint {
	for i := 1; i < len(table); i++ {
		if months <= table[i].months {
			lo, hi := table[i-1], table[i]
			f := (months - lo.months) / (hi.months - lo.months)
			return lmsPoint{
				months: months,
				l:      lo.l + f*(hi.l-lo.l),
				m:      lo.m + f*(hi.m-lo.m),
				s:      lo.s + f*(hi.s-lo.s),
			}
		}
	}
	return table[len(table)-1]
}
