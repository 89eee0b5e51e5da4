package runstatus

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Begin(ctx context.Context, r *Run) error
	Finish(ctx context.Context, r *Run) error
	Latest(ctx context.Context, limit int) ([]*Run, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Run, error)
}
