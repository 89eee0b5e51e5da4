package rulelog

import "context"

// Repository appends business-rule audit records.
type Repository interface {
	Log(ctx context.Context, e *Entry) error
}
