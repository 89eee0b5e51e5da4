package admission

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) CreateBatch(ctx context.Context, patientID string, admissions []*Admission) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin admission batch: %w", err)
	}
	defer tx.Rollback(ctx)

	// Reassembly replaces the patient's previous episodes wholesale.
	if _, err := tx.Exec(ctx, `DELETE FROM admission WHERE patient_id = $1`, patientID); err != nil {
		return fmt.Errorf("clear admissions for %s: %w", patientID, err)
	}

	for _, a := range admissions {
		if a.ID == uuid.Nil {
			a.ID = uuid.New()
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO admission (id, patient_id, hospital_code, department_code, period_start, period_end)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			a.ID, a.PatientID, a.HospitalCode, a.DepartmentCode, a.Start, a.End); err != nil {
			return fmt.Errorf("insert admission: %w", err)
		}
		for _, ref := range a.SourceRefs {
			if _, err := tx.Exec(ctx, `
				INSERT INTO admission_source_ref (admission_id, source_id, source_db)
				VALUES ($1,$2,$3)`, a.ID, ref.ID, ref.Database); err != nil {
				return fmt.Errorf("insert admission source ref: %w", err)
			}
		}
		for i, d := range a.Diagnoses {
			if _, err := tx.Exec(ctx, `
				INSERT INTO admission_diagnosis (admission_id, ordinal, code, type, supplementary_code)
				VALUES ($1,$2,$3,$4,$5)`, a.ID, i, d.Code, d.Type, d.SupplementaryCode); err != nil {
				return fmt.Errorf("insert admission diagnosis: %w", err)
			}
		}
		for i, p := range a.Procedures {
			if _, err := tx.Exec(ctx, `
				INSERT INTO admission_procedure (admission_id, ordinal, code, type, supplementary_code, hospital_code, department_code, performed)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
				a.ID, i, p.Code, p.Type, p.SupplementaryCode, p.HospitalCode, p.DepartmentCode, p.Performed); err != nil {
				return fmt.Errorf("insert admission procedure: %w", err)
			}
		}
	}

	return tx.Commit(ctx)
}
