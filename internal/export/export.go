// Package export renders the filtered subject set as downloadable CSV or
// XLSX files. Only the masked projection of a subject is written; the
// unmasked contact field never reaches an export.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/karnataka-health/anemia-platform/internal/record"
)

// headers is the export column order, mirroring the dashboard table.
var headers = []string{
	"Sl.No", "ID", "Enrollment Date", "Block", "Area Code", "PSU Name",
	"Location", "Name", "Household Name", "Gender", "Beneficiary",
	"Trimester", "Age", "Length", "Height", "Weight", "BMI",
	"Nutritional Status", "Sample Status", "Sample Collected Date",
	"Collected By", "HGB", "Anemia Category", "Worker", "Contact",
	"Field Investigator", "Diet 1", "Diet 2", "Data Operator",
}

func rowValues(s record.Subject) []string {
	return []string{
		fmt.Sprintf("%d", s.Serial),
		s.ID,
		formatDate(s.EnrollmentDate),
		s.BlockLabel,
		s.AreaCode,
		s.PSUName,
		s.Location,
		s.Name,
		s.HouseholdName,
		s.Gender,
		s.Beneficiary,
		s.Trimester,
		formatFloat(s.AgeYears),
		formatFloat(s.Length),
		formatFloat(s.Height),
		formatFloat(s.Weight),
		formatFloat(s.BMI),
		string(s.NutritionalStatus),
		s.SampleStatus,
		formatDate(s.SampleDate),
		s.CollectedBy,
		formatFloat(s.HGB),
		string(s.AnemiaCategory),
		s.Worker,
		s.Contact,
		s.FieldInvestigator,
		s.Diet1,
		s.Diet2,
		s.DataOperator,
	}
}

// CSV renders the subject set as CSV bytes.
func CSV(subjects []record.Subject) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, s := range subjects {
		if err := w.Write(rowValues(s)); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV: %w", err)
	}
	return buf.Bytes(), nil
}

// XLSX renders the subject set as a single-sheet workbook.
func XLSX(subjects []record.Subject) ([]byte, error) {
	f := excelize.NewFile()
	const sheet = "Subjects"

	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to drop default sheet: %w", err)
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}

	for rowIdx, s := range subjects {
		for colIdx, v := range rowValues(s) {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, fmt.Errorf("failed to write row %d: %w", rowIdx+1, err)
			}
		}
	}

	_ = f.SetColWidth(sheet, "A", "B", 12)
	_ = f.SetColWidth(sheet, "C", "G", 18)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func formatFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return fmt.Sprintf("%g", *f)
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
