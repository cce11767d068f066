package handlers

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizdesk/internal/core/apperror"
	"bizdesk/internal/core/id"
	"bizdesk/internal/domain"
	"bizdesk/internal/domain/documents/service_order"
)

func newServiceOrderRouter(svc ServiceOrderService, now time.Time) *gin.Engine {
	h := NewServiceOrderHandler(NewBaseHandler(), svc)
	h.now = func() time.Time { return now }

	r := newTestRouter()
	g := r.Group("/service-orders")
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PATCH("/:id/status", h.ChangeStatus)
	g.PATCH("/:id/checklist/:item", h.ToggleChecklistItem)
	return r
}

func TestServiceOrderHandler_Create(t *testing.T) {
	var created *service_order.ServiceOrder
	r := newServiceOrderRouter(&mockServiceOrderService{
		CreateFunc: func(ctx context.Context, doc *service_order.ServiceOrder) error {
			created = doc
			doc.Number = "0015"
			return nil
		},
	}, time.Now())

	body := fmt.Sprintf(`{
		"customerId": %q,
		"warrantyDays": 90,
		"equipment": [{"type": "notebook", "brand": "Dell", "reportedDefect": "no power"}],
		"checklist": ["charger", "battery"]
	}`, id.New())
	w := do(r, http.MethodPost, "/service-orders", body)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.NotNil(t, created)
	assert.Equal(t, service_order.StatusOpen, created.Status)
	assert.Len(t, created.Checklist, 2)

	resp := decodeBody(t, w)
	assert.Equal(t, "0015", resp["number"])
	assert.Equal(t, "open", resp["status"])
	assert.Equal(t, false, resp["inWarranty"])
}

func TestServiceOrderHandler_CreateRequiresEquipment(t *testing.T) {
	r := newServiceOrderRouter(&mockServiceOrderService{}, time.Now())

	w := do(r, http.MethodPost, "/service-orders", fmt.Sprintf(`{"customerId":%q,"equipment":[]}`, id.New()))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServiceOrderHandler_ChangeStatus(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	docID := id.New()
	var gotStatus service_order.Status
	var gotVersion int
	r := newServiceOrderRouter(&mockServiceOrderService{
		ChangeStatusFunc: func(ctx context.Context, got id.ID, status service_order.Status, version int) (*service_order.ServiceOrder, error) {
			gotStatus, gotVersion = status, version
			doc := service_order.NewServiceOrder(id.New())
			doc.ID = got
			doc.Status = status
			doc.WarrantyDays = 30
			delivered := now.Add(-24 * time.Hour)
			doc.DeliveredAt = &delivered
			return doc, nil
		},
	}, now)

	w := do(r, http.MethodPatch, "/service-orders/"+docID.String()+"/status", `{"status":"delivered","version":4}`)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, service_order.StatusDelivered, gotStatus)
	assert.Equal(t, 4, gotVersion)
	resp := decodeBody(t, w)
	assert.Equal(t, true, resp["inWarranty"])
	assert.NotEmpty(t, resp["warrantyExpiresAt"])
}

func TestServiceOrderHandler_ChangeStatusRejected(t *testing.T) {
	r := newServiceOrderRouter(&mockServiceOrderService{
		ChangeStatusFunc: func(ctx context.Context, docID id.ID, status service_order.Status, version int) (*service_order.ServiceOrder, error) {
			return nil, apperror.NewInvalidTransition(service_order.EntityName, "delivered", string(status))
		},
	}, time.Now())

	w := do(r, http.MethodPatch, "/service-orders/"+id.New().String()+"/status", `{"status":"open"}`)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, apperror.CodeInvalidTransition, decodeBody(t, w)["code"])
}

func TestServiceOrderHandler_ToggleChecklistItem(t *testing.T) {
	var gotLine int
	r := newServiceOrderRouter(&mockServiceOrderService{
		ToggleFunc: func(ctx context.Context, docID id.ID, lineNo int) (*service_order.ServiceOrder, error) {
			gotLine = lineNo
			doc := service_order.NewServiceOrder(id.New())
			doc.AddChecklistItem("charger")
			doc.Checklist[0].Checked = true
			return doc, nil
		},
	}, time.Now())

	w := do(r, http.MethodPatch, "/service-orders/"+id.New().String()+"/checklist/1", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 1, gotLine)

	w = do(r, http.MethodPatch, "/service-orders/"+id.New().String()+"/checklist/zero", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServiceOrderHandler_List(t *testing.T) {
	technician := id.New()
	var got service_order.ListFilter
	r := newServiceOrderRouter(&mockServiceOrderService{
		ListFunc: func(ctx context.Context, filter service_order.ListFilter) (domain.ListResult[*service_order.ServiceOrder], error) {
			got = filter
			return domain.ListResult[*service_order.ServiceOrder]{Items: []*service_order.ServiceOrder{}}, nil
		},
	}, time.Now())

	w := do(r, http.MethodGet, "/service-orders?status=in_progress&technicianId="+technician.String(), "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NotNil(t, got.Status)
	assert.Equal(t, service_order.StatusInProgress, *got.Status)
	require.NotNil(t, got.TechnicianID)
	assert.Equal(t, technician, *got.TechnicianID)
	assert.Equal(t, domain.DefaultListFilter().Limit, got.Limit)

	w = do(r, http.MethodGet, "/service-orders?technicianId=bad", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
