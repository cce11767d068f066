package sale

import (
	"context"
	"time"

	"bizdesk/internal/core/id"
	"bizdesk/internal/domain"
)

// Repository defines persistence for sales.
type Repository interface {
	Create(ctx context.Context, doc *Sale) error
	GetByID(ctx context.Context, docID id.ID) (*Sale, error)
	GetByNumber(ctx context.Context, kind Kind, number string) (*Sale, error)

	GetLines(ctx context.Context, docID id.ID) ([]Line, error)
	SaveLines(ctx context.Context, docID id.ID, lines []Line) error

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Sale], error)
}

// ListFilter for filtering sales.
type ListFilter struct {
	domain.ListFilter

	Kind       *Kind
	CustomerID *id.ID
	DateFrom   *time.Time
	DateTo     *time.Time
}
