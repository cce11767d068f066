package document_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"bizdesk/internal/core/id"
	"bizdesk/internal/domain"
	"bizdesk/internal/domain/documents/sale"
	"bizdesk/internal/infrastructure/storage/postgres"
)

const salesTable = "doc_sales"

var saleLines = tablePart{
	table: "doc_sale_lines",
	columns: []string{
		"line_id", "line_no", "item_id", "description", "serial",
		"quantity", "unit_price", "amount",
	},
}

// SaleRepo implements sale.Repository.
type SaleRepo struct {
	*BaseDocumentRepo[*sale.Sale]
}

var _ sale.Repository = (*SaleRepo)(nil)

// NewSaleRepo creates a new sale repository.
func NewSaleRepo(txm *postgres.TxManager) *SaleRepo {
	return &SaleRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txm,
			salesTable,
			postgres.ExtractDBColumns[sale.Sale](),
			func() *sale.Sale { return &sale.Sale{} },
		),
	}
}

// GetByNumber retrieves a sale by kind and number.
func (r *SaleRepo) GetByNumber(ctx context.Context, kind sale.Kind, number string) (*sale.Sale, error) {
	return r.getOne(ctx, squirrel.Eq{"kind": kind, "number": number}, number)
}

// GetLines retrieves lines for a sale.
func (r *SaleRepo) GetLines(ctx context.Context, docID id.ID) ([]sale.Line, error) {
	return loadTablePart[sale.Line](ctx, r.querier(ctx), saleLines, docID)
}

// SaveLines replaces lines of a sale.
func (r *SaleRepo) SaveLines(ctx context.Context, docID id.ID, lines []sale.Line) error {
	rows := make([][]any, 0, len(lines))
	for _, l := range lines {
		rows = append(rows, []any{
			l.LineID, l.LineNo, l.ItemID, l.Description, l.Serial,
			l.Quantity, l.UnitPrice, l.Amount,
		})
	}
	return r.replaceTablePart(ctx, saleLines, docID, rows)
}

// List retrieves sales with filtering.
func (r *SaleRepo) List(ctx context.Context, filter sale.ListFilter) (domain.ListResult[*sale.Sale], error) {
	return r.list(ctx, filter.ListFilter, saleConditions(filter)...)
}

func saleConditions(filter sale.ListFilter) []squirrel.Sqlizer {
	var where []squirrel.Sqlizer
	if filter.Kind != nil {
		where = append(where, squirrel.Eq{"kind": *filter.Kind})
	}
	if filter.CustomerID != nil {
		where = append(where, squirrel.Eq{"customer_id": *filter.CustomerID})
	}
	if filter.DateFrom != nil {
		where = append(where, squirrel.GtOrEq{"date": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		where = append(where, squirrel.LtOrEq{"date": *filter.DateTo})
	}
	return where
}
