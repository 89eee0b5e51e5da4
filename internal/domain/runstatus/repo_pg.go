package runstatus

import (
	"context"
	"fmt"
	"time"

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

const runCols = `id, started_at, ended_at, outcome, patients_processed, patients_aborted,
	contacts_seen, contacts_failed, admissions_created, error`

func (r *repoPG) Begin(ctx context.Context, run *Run) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	run.Outcome = OutcomeRunning
	_, err := r.pool.Exec(ctx, `
		INSERT INTO import_run (id, started_at, outcome)
		VALUES ($1,$2,$3)`, run.ID, run.StartedAt, run.Outcome)
	if err != nil {
		return fmt.Errorf("begin import run: %w", err)
	}
	return nil
}

func (r *repoPG) Finish(ctx context.Context, run *Run) error {
	if run.EndedAt == nil {
		now := time.Now().UTC()
		run.EndedAt = &now
	}
	_, err := r.pool.Exec(ctx, `
		UPDATE import_run SET
			ended_at=$2, outcome=$3, patients_processed=$4, patients_aborted=$5,
			contacts_seen=$6, contacts_failed=$7, admissions_created=$8, error=$9
		WHERE id = $1`,
		run.ID, run.EndedAt, run.Outcome, run.PatientsProcessed, run.PatientsAborted,
		run.ContactsSeen, run.ContactsFailed, run.AdmissionsCreated, run.Error)
	if err != nil {
		return fmt.Errorf("finish import run: %w", err)
	}
	return nil
}

func (r *repoPG) Latest(ctx context.Context, limit int) ([]*Run, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+runCols+` FROM import_run ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list import runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Run, error) {
	return scanRun(r.pool.QueryRow(ctx, `SELECT `+runCols+` FROM import_run WHERE id = $1`, id))
}

func scanRun(row pgx.Row) (*Run, error) {
	var run Run
	err := row.Scan(&run.ID, &run.StartedAt, &run.EndedAt, &run.Outcome,
		&run.PatientsProcessed, &run.PatientsAborted,
		&run.ContactsSeen, &run.ContactsFailed, &run.AdmissionsCreated, &run.Error)
	if err != nil {
		return nil, err
	}
	return &run, nil
}
