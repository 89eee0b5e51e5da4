package rulelog

import (
	"time"

	"github.com/google/uuid"

	"github.com/ehr/admissions/internal/domain/contact"
)

// Entry is one business-rule audit record. It maps to the
// business_rule_error table and is the only trace a rejected source row
// leaves besides its FAILURE import marker.
type Entry struct {
	ID          uuid.UUID         `db:"id" json:"id"`
	Ref         contact.SourceRef `json:"ref"`
	Description string            `db:"description" json:"description"`
	RuleName    string            `db:"rule_name" json:"rule_name"`
	CreatedAt   time.Time         `db:"created_at" json:"created_at"`
}
