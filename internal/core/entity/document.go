package entity

import (
	"context"
	"time"

	"bizdesk/internal/core/apperror"
	"bizdesk/internal/core/id"
)

// Document is the base type for numbered business documents
// (sales, service orders).
type Document struct {
	BaseDocument

	// Number is issued by the sequence allocator and never reused.
	Number string `db:"number" json:"number"`

	// Date is the business date of the document
	Date time.Time `db:"date" json:"date"`

	// Comment is an optional user comment
	Comment string `db:"comment" json:"comment,omitempty"`
}

// NewDocument creates a new Document with generated ID.
func NewDocument() Document {
	return Document{
		BaseDocument: NewBaseDocument(),
		Date:         time.Now().UTC(),
	}
}

// Validate implements Validatable.
func (d *Document) Validate(ctx context.Context) error {
	if d.Date.IsZero() {
		return apperror.NewValidation("date is required").
			WithDetail("field", "date")
	}
	return nil
}

// GetID returns the document ID.
func (d *Document) GetID() id.ID {
	return d.ID
}

// IsNumbered reports whether a number has been assigned.
func (d *Document) IsNumbered() bool {
	return d.Number != ""
}
