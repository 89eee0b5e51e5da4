package rulelog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) Log(ctx context.Context, e *Entry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO business_rule_error (id, source_id, source_db, description, rule_name)
		VALUES ($1,$2,$3,$4,$5)`,
		e.ID, e.Ref.ID, e.Ref.Database, e.Description, e.RuleName)
	if err != nil {
		return fmt.Errorf("log business rule error: %w", err)
	}
	return nil
}
