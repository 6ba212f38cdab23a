package age

import (
	"testing"
	"time"
)

func TestResolveNumeric(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want float64
		ok   bool
	}{
		{"float years", 45.0, 45.0, true},
		{"int years", 7, 7.0, true},
		{"int64 years", int64(23), 23.0, true},
		{"float32 years", float32(12.5), 12.5, true},
		{"at upper bound", 150.0, 0, false},
		{"above upper bound", 1987.0, 0, false},
		{"nil", nil, 0, false},
		{"date value", time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Resolve(tt.in)
			if ok != tt.ok {
				t.Fatalf("Resolve(%v) ok = %v, want %v", tt.in, ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("Resolve(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestResolveString(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want float64
		ok   bool
	}{
		{"plain number", "45", 45.0, true},
		{"decimal number", "21.5", 21.5, true},
		{"yrs suffix", "32 yrs", 32.0, true},
		{"yr suffix", "32yr", 32.0, true},
		{"years and months", "21y 3m", 21.25, true},
		{"year word", "4 years 6 months", 4.5, true},
		{"months only", "18 months", 1.5, true},
		{"mo tag", "7 mo", 0.58, true},
		{"birth year with age", "1998, 26y", 26.0, true},
		{"positional birth year first", "1998 26 6", 26.5, true},
		{"positional years months", "8 4", 8.33, true},
		{"iso date rejected", "2021-06-01", 0, false},
		{"slash date rejected", "21/06/19", 0, false},
		{"lone birth year unresolved", "1965", 0, false},
		{"tagged birth year unresolved", "1965y", 0, false},
		{"empty", "", 0, false},
		{"whitespace", "   ", 0, false},
		{"nan literal", "nan", 0, false},
		{"none literal", "none", 0, false},
		{"no digits", "adult", 0, false},
		{"too large", "450", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Resolve(tt.in)
			if ok != tt.ok {
				t.Fatalf("Resolve(%q) ok = %v, want %v (got %v)", tt.in, ok, tt.ok, got)
			}
			if ok && got != tt.want {
				t.Errorf("Resolve(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestFromBirthDate(t *testing.T) {
	ref := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		dob  time.Time
		want float64
		ok   bool
	}{
		{"adult", time.Date(1995, 6, 1, 0, 0, 0, 0, time.UTC), 30.0, true},
		{"infant", time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), 0.5, true},
		{"same day", ref, 0.0, true},
		{"future dob", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 0, false},
		{"implausibly old", time.Date(1850, 1, 1, 0, 0, 0, 0, time.UTC), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FromBirthDate(tt.dob, ref)
			if ok != tt.ok {
				t.Fatalf("FromBirthDate ok = %v, want %v (got %v)", ok, tt.ok, got)
			}
			if ok && (got < tt.want-0.01 || got > tt.want+0.01) {
				t.Errorf("FromBirthDate = %v, want ~%v", got, tt.want)
			}
		})
	}
}

func TestFromBirthDateIgnoresZone(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	dob := time.Date(2000, 1, 1, 23, 0, 0, 0, ist)
	ref := time.Date(2025, 1, 1, 23, 0, 0, 0, time.UTC)

	got, ok := FromBirthDate(dob, ref)
	if !ok {
		t.Fatal("expected resolvable age")
	}
	if got < 24.9 || got > 25.1 {
		t.Errorf("FromBirthDate across zones = %v, want ~25", got)
	}
}
