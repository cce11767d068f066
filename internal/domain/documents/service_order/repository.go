package service_order

import (
	"context"
	"time"

	"bizdesk/internal/core/id"
	"bizdesk/internal/domain"
)

// Repository defines persistence for service orders.
type Repository interface {
	Create(ctx context.Context, doc *ServiceOrder) error
	GetByID(ctx context.Context, docID id.ID) (*ServiceOrder, error)
	GetByNumber(ctx context.Context, number string) (*ServiceOrder, error)

	// Update writes header fields if the stored version matches doc.Version.
	Update(ctx context.Context, doc *ServiceOrder) error

	GetEquipment(ctx context.Context, docID id.ID) ([]Equipment, error)
	SaveEquipment(ctx context.Context, docID id.ID, lines []Equipment) error
	GetChecklist(ctx context.Context, docID id.ID) ([]ChecklistItem, error)
	SaveChecklist(ctx context.Context, docID id.ID, items []ChecklistItem) error

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*ServiceOrder], error)
}

// ListFilter for filtering service orders.
type ListFilter struct {
	domain.ListFilter

	Status       *Status
	CustomerID   *id.ID
	TechnicianID *id.ID
	DateFrom     *time.Time
	DateTo       *time.Time
}
