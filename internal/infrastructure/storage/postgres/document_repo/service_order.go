package document_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"bizdesk/internal/core/id"
	"bizdesk/internal/domain"
	"bizdesk/internal/domain/documents/service_order"
	"bizdesk/internal/infrastructure/storage/postgres"
)

const serviceOrdersTable = "doc_service_orders"

var (
	serviceOrderEquipment = tablePart{
		table:   "doc_service_order_equipment",
		columns: []string{"line_id", "line_no", "type", "brand", "model", "serial", "reported_defect"},
	}
	serviceOrderChecklist = tablePart{
		table:   "doc_service_order_checklist",
		columns: []string{"line_id", "line_no", "label", "checked"},
	}
)

// ServiceOrderRepo implements service_order.Repository.
type ServiceOrderRepo struct {
	*BaseDocumentRepo[*service_order.ServiceOrder]
}

var _ service_order.Repository = (*ServiceOrderRepo)(nil)

// NewServiceOrderRepo creates a new service order repository.
func NewServiceOrderRepo(txm *postgres.TxManager) *ServiceOrderRepo {
	return &ServiceOrderRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txm,
			serviceOrdersTable,
			postgres.ExtractDBColumns[service_order.ServiceOrder](),
			func() *service_order.ServiceOrder { return &service_order.ServiceOrder{} },
		),
	}
}

// GetByNumber retrieves a service order by number.
func (r *ServiceOrderRepo) GetByNumber(ctx context.Context, number string) (*service_order.ServiceOrder, error) {
	return r.getOne(ctx, squirrel.Eq{"number": number}, number)
}

// GetEquipment retrieves the equipment lines.
func (r *ServiceOrderRepo) GetEquipment(ctx context.Context, docID id.ID) ([]service_order.Equipment, error) {
	return loadTablePart[service_order.Equipment](ctx, r.querier(ctx), serviceOrderEquipment, docID)
}

// SaveEquipment replaces the equipment lines.
func (r *ServiceOrderRepo) SaveEquipment(ctx context.Context, docID id.ID, lines []service_order.Equipment) error {
	rows := make([][]any, 0, len(lines))
	for _, e := range lines {
		rows = append(rows, []any{e.LineID, e.LineNo, e.Type, e.Brand, e.Model, e.Serial, e.ReportedDefect})
	}
	return r.replaceTablePart(ctx, serviceOrderEquipment, docID, rows)
}

// GetChecklist retrieves the checklist items.
func (r *ServiceOrderRepo) GetChecklist(ctx context.Context, docID id.ID) ([]service_order.ChecklistItem, error) {
	return loadTablePart[service_order.ChecklistItem](ctx, r.querier(ctx), serviceOrderChecklist, docID)
}

// SaveChecklist replaces the checklist items.
func (r *ServiceOrderRepo) SaveChecklist(ctx context.Context, docID id.ID, items []service_order.ChecklistItem) error {
	rows := make([][]any, 0, len(items))
	for _, item := range items {
		rows = append(rows, []any{item.LineID, item.LineNo, item.Label, item.Checked})
	}
	return r.replaceTablePart(ctx, serviceOrderChecklist, docID, rows)
}

// List retrieves service orders with filtering.
func (r *ServiceOrderRepo) List(ctx context.Context, filter service_order.ListFilter) (domain.ListResult[*service_order.ServiceOrder], error) {
	return r.list(ctx, filter.ListFilter, serviceOrderConditions(filter)...)
}

func serviceOrderConditions(filter service_order.ListFilter) []squirrel.Sqlizer {
	var where []squirrel.Sqlizer
	if filter.Status != nil {
		where = append(where, squirrel.Eq{"status": *filter.Status})
	}
	if filter.CustomerID != nil {
		where = append(where, squirrel.Eq{"customer_id": *filter.CustomerID})
	}
	if filter.TechnicianID != nil {
		where = append(where, squirrel.Eq{"technician_id": *filter.TechnicianID})
	}
	if filter.DateFrom != nil {
		where = append(where, squirrel.GtOrEq{"date": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		where = append(where, squirrel.LtOrEq{"date": *filter.DateTo})
	}
	return where
}
