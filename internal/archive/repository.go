// Package archive persists reconciled cycles to Postgres for longitudinal
// analysis. The archive is optional supporting storage: the platform runs
// fully without it and the pipeline treats archive failures as soft.
package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/karnataka-health/anemia-platform/internal/record"
	"github.com/karnataka-health/anemia-platform/internal/shared/database"
	"github.com/karnataka-health/anemia-platform/internal/shared/metrics"
)

// Repository writes subject snapshots to the subjects table.
type Repository struct {
	db *database.DB
}

func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// ArchiveCycle upserts every subject of a reconciled cycle in one batch.
// Masked identity fields only; the unmasked contact is not persisted.
func (r *Repository) ArchiveCycle(ctx context.Context, cycleID string, subjects []record.Subject) error {
	if len(subjects) == 0 {
		return nil
	}
	start := time.Now()

	batch := &pgx.Batch{}
	for _, s := range subjects {
		batch.Queue(`
			INSERT INTO subjects (
				id, cycle_id, age_years, gender, beneficiary_category,
				hgb, bmi, anemia_category, nutritional_status,
				block_label, area_code, psu_name, location,
				name_masked, household_masked, worker_masked,
				contact_masked, email_masked, sample_status,
				diet1, diet2, enrollment_date, sample_collected_date, updated_at
			) VALUES (
				$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
				$13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, NOW()
			)
			ON CONFLICT (id) DO UPDATE SET
				cycle_id = EXCLUDED.cycle_id,
				age_years = EXCLUDED.age_years,
				gender = EXCLUDED.gender,
				beneficiary_category = EXCLUDED.beneficiary_category,
				hgb = EXCLUDED.hgb,
				bmi = EXCLUDED.bmi,
				anemia_category = EXCLUDED.anemia_category,
				nutritional_status = EXCLUDED.nutritional_status,
				block_label = EXCLUDED.block_label,
				area_code = EXCLUDED.area_code,
				psu_name = EXCLUDED.psu_name,
				location = EXCLUDED.location,
				name_masked = EXCLUDED.name_masked,
				household_masked = EXCLUDED.household_masked,
				worker_masked = EXCLUDED.worker_masked,
				contact_masked = EXCLUDED.contact_masked,
				email_masked = EXCLUDED.email_masked,
				sample_status = EXCLUDED.sample_status,
				diet1 = EXCLUDED.diet1,
				diet2 = EXCLUDED.diet2,
				enrollment_date = EXCLUDED.enrollment_date,
				sample_collected_date = EXCLUDED.sample_collected_date,
				updated_at = NOW()`,
			s.ID, cycleID, s.AgeYears, s.Gender, s.Beneficiary,
			s.HGB, s.BMI, string(s.AnemiaCategory), string(s.NutritionalStatus),
			s.BlockLabel, s.AreaCode, s.PSUName, s.Location,
			s.Name, s.HouseholdName, s.Worker,
			s.Contact, s.Email, s.SampleStatus,
			s.Diet1, s.Diet2, s.EnrollmentDate, s.SampleDate,
		)
	}

	results := r.db.Pool.SendBatch(ctx, batch)
	defer results.Close()

	for range subjects {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to archive subject batch: %w", err)
		}
	}

	metrics.RecordDBQuery("archive_cycle", time.Since(start))
	return nil
}

// SeverityCounts returns the archived distribution of anemia severities.
func (r *Repository) SeverityCounts(ctx context.Context) (map[string]int, error) {
	start := time.Now()

	rows, err := r.db.Pool.Query(ctx,
		`SELECT anemia_category, COUNT(*) FROM subjects GROUP BY anemia_category`)
	if err != nil {
		return nil, fmt.Errorf("failed to query severity counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return nil, fmt.Errorf("failed to scan severity count: %w", err)
		}
		counts[category] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read severity counts: %w", err)
	}

	metrics.RecordDBQuery("severity_counts", time.Since(start))
	return counts, nil
}
