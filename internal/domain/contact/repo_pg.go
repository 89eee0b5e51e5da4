package contact

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) PatientsWithUnprocessed(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT patient_id FROM contact
		WHERE imported_at IS NULL
		ORDER BY patient_id`)
	if err != nil {
		return nil, fmt.Errorf("list unprocessed patients: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *repoPG) FetchUnprocessed(ctx context.Context, patientID string) ([]*Contact, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT source_id, source_db, patient_id, hospital_code, department_code,
		       period_start, period_end
		FROM contact
		WHERE patient_id = $1
		ORDER BY period_start, period_end, source_id`, patientID)
	if err != nil {
		return nil, fmt.Errorf("fetch contacts for %s: %w", patientID, err)
	}
	defer rows.Close()

	var contacts []*Contact
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.Ref.ID, &c.Ref.Database, &c.PatientID,
			&c.HospitalCode, &c.DepartmentCode, &c.Start, &c.End); err != nil {
			return nil, err
		}
		c.MergedRefs = []SourceRef{c.Ref}
		contacts = append(contacts, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, c := range contacts {
		if err := r.loadDiagnoses(ctx, c); err != nil {
			return nil, err
		}
		if err := r.loadProcedures(ctx, c); err != nil {
			return nil, err
		}
	}
	return contacts, nil
}

func (r *repoPG) loadDiagnoses(ctx context.Context, c *Contact) error {
	rows, err := r.pool.Query(ctx, `
		SELECT code, type, COALESCE(supplementary_code, '')
		FROM contact_diagnosis
		WHERE source_id = $1 AND source_db = $2
		ORDER BY ordinal`, c.Ref.ID, c.Ref.Database)
	if err != nil {
		return fmt.Errorf("load diagnoses for %s: %w", c.Ref, err)
	}
	defer rows.Close()

	for rows.Next() {
		var d Diagnosis
		if err := rows.Scan(&d.Code, &d.Type, &d.SupplementaryCode); err != nil {
			return err
		}
		c.Diagnoses = append(c.Diagnoses, d)
	}
	return rows.Err()
}

func (r *repoPG) loadProcedures(ctx context.Context, c *Contact) error {
	rows, err := r.pool.Query(ctx, `
		SELECT code, type, COALESCE(supplementary_code, ''),
		       COALESCE(hospital_code, ''), COALESCE(department_code, ''), performed
		FROM contact_procedure
		WHERE source_id = $1 AND source_db = $2
		ORDER BY ordinal`, c.Ref.ID, c.Ref.Database)
	if err != nil {
		return fmt.Errorf("load procedures for %s: %w", c.Ref, err)
	}
	defer rows.Close()

	for rows.Next() {
		var p Procedure
		if err := rows.Scan(&p.Code, &p.Type, &p.SupplementaryCode,
			&p.HospitalCode, &p.DepartmentCode, &p.Performed); err != nil {
			return err
		}
		c.Procedures = append(c.Procedures, p)
	}
	return rows.Err()
}

func (r *repoPG) MarkImported(ctx context.Context, ref SourceRef, outcome Outcome) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE contact SET imported_at = NOW(), import_outcome = $3
		WHERE source_id = $1 AND source_db = $2`, ref.ID, ref.Database, string(outcome))
	if err != nil {
		return fmt.Errorf("mark %s imported: %w", ref, err)
	}
	return nil
}
