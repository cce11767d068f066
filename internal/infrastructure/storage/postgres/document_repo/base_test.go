package document_repo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizdesk/internal/core/apperror"
	"bizdesk/internal/core/id"
	"bizdesk/internal/domain"
	"bizdesk/internal/domain/documents/sale"
	"bizdesk/internal/domain/documents/service_order"
)

func TestListQueries_DefaultsAndConditions(t *testing.T) {
	repo := NewServiceOrderRepo(nil)
	status := service_order.StatusOpen

	page, count, err := repo.listQueries(
		domain.ListFilter{Search: "00", Limit: 20, Offset: 40},
		serviceOrderConditions(service_order.ListFilter{Status: &status})...,
	)
	require.NoError(t, err)

	sql, args, err := page.ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "FROM doc_service_orders WHERE deletion_mark = $1 AND number ILIKE $2 AND status = $3")
	assert.Contains(t, sql, "ORDER BY date DESC LIMIT 20 OFFSET 40")
	assert.Equal(t, []any{false, "%00%", service_order.StatusOpen}, args)

	countSQL, countArgs, err := count.ToSql()
	require.NoError(t, err)
	assert.Contains(t, countSQL, "SELECT COUNT(*) FROM (SELECT")
	assert.Equal(t, args, countArgs)
}

func TestListQueries_OrderBy(t *testing.T) {
	repo := NewSaleRepo(nil)

	page, _, err := repo.listQueries(domain.ListFilter{OrderBy: "-number", IncludeDeleted: true})
	require.NoError(t, err)
	sql, _, err := page.ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "ORDER BY number DESC")
	assert.NotContains(t, sql, "deletion_mark =")

	_, _, err = repo.listQueries(domain.ListFilter{OrderBy: "total; DROP TABLE doc_sales"})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestBuildInsert_Sale(t *testing.T) {
	repo := NewSaleRepo(nil)
	doc := sale.NewSale(sale.KindDevice, id.New())
	doc.Number = "0007"

	sql, args, err := repo.buildInsert(doc)
	require.NoError(t, err)

	assert.Contains(t, sql, "INSERT INTO doc_sales (")
	assert.Len(t, args, len(repo.selectCols))
	assert.Contains(t, args, "0007")
	assert.Contains(t, args, sale.KindDevice)
}

func TestBuildUpdate_ServiceOrder(t *testing.T) {
	repo := NewServiceOrderRepo(nil)
	doc := service_order.NewServiceOrder(id.New())
	doc.Version = 3

	sql, args, entityID, err := repo.buildUpdate(doc)
	require.NoError(t, err)

	assert.Equal(t, doc.ID, entityID)
	assert.Contains(t, sql, "UPDATE doc_service_orders SET")
	assert.Contains(t, sql, "version = version + 1")
	assert.Contains(t, sql, "updated_at = NOW()")
	assert.NotContains(t, sql, "number =")
	assert.NotContains(t, sql, "created_at =")
	// squirrel.Eq resolves driver.Valuer, so the id travels as its string form.
	assert.Equal(t, []any{doc.ID.String(), 3}, args[len(args)-2:])
}

func TestTablePart_Queries(t *testing.T) {
	docID := id.New()
	b := NewSaleRepo(nil).Builder()

	sql, args, err := serviceOrderChecklist.selectQuery(b, docID)
	require.NoError(t, err)
	assert.Equal(t, "SELECT line_id, line_no, label, checked FROM doc_service_order_checklist WHERE document_id = $1 ORDER BY line_no", sql)
	assert.Equal(t, []any{docID.String()}, args)

	lineID := id.New()
	sql, args, err = serviceOrderChecklist.insertQuery(b, docID, [][]any{{lineID, 1, "screen", true}})
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO doc_service_order_checklist (document_id,line_id,line_no,label,checked) VALUES ($1,$2,$3,$4,$5)", sql)
	assert.Equal(t, []any{docID, lineID, 1, "screen", true}, args)
}
