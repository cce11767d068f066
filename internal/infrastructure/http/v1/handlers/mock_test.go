package handlers

import (
	"context"

	"bizdesk/internal/core/apperror"
	"bizdesk/internal/core/id"
	"bizdesk/internal/domain"
	"bizdesk/internal/domain/documents/sale"
	"bizdesk/internal/domain/documents/service_order"
)

type mockSaleService struct {
	CreateFunc      func(ctx context.Context, doc *sale.Sale) error
	GetByIDFunc     func(ctx context.Context, docID id.ID) (*sale.Sale, error)
	GetByNumberFunc func(ctx context.Context, kind sale.Kind, number string) (*sale.Sale, error)
	ListFunc        func(ctx context.Context, filter sale.ListFilter) (domain.ListResult[*sale.Sale], error)
}

func (m *mockSaleService) Create(ctx context.Context, doc *sale.Sale) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, doc)
	}
	doc.Number = "0001"
	return nil
}

func (m *mockSaleService) GetByID(ctx context.Context, docID id.ID) (*sale.Sale, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, docID)
	}
	return nil, apperror.NewNotFound(sale.EntityName, docID.String())
}

func (m *mockSaleService) GetByNumber(ctx context.Context, kind sale.Kind, number string) (*sale.Sale, error) {
	if m.GetByNumberFunc != nil {
		return m.GetByNumberFunc(ctx, kind, number)
	}
	return nil, apperror.NewNotFound(sale.EntityName, number)
}

func (m *mockSaleService) List(ctx context.Context, filter sale.ListFilter) (domain.ListResult[*sale.Sale], error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	return domain.ListResult[*sale.Sale]{Items: []*sale.Sale{}}, nil
}

type mockServiceOrderService struct {
	CreateFunc       func(ctx context.Context, doc *service_order.ServiceOrder) error
	GetByIDFunc      func(ctx context.Context, docID id.ID) (*service_order.ServiceOrder, error)
	ListFunc         func(ctx context.Context, filter service_order.ListFilter) (domain.ListResult[*service_order.ServiceOrder], error)
	ChangeStatusFunc func(ctx context.Context, docID id.ID, status service_order.Status, expectedVersion int) (*service_order.ServiceOrder, error)
	ToggleFunc       func(ctx context.Context, docID id.ID, lineNo int) (*service_order.ServiceOrder, error)
}

func (m *mockServiceOrderService) Create(ctx context.Context, doc *service_order.ServiceOrder) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, doc)
	}
	doc.Number = "0001"
	return nil
}

func (m *mockServiceOrderService) GetByID(ctx context.Context, docID id.ID) (*service_order.ServiceOrder, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, docID)
	}
	return nil, apperror.NewNotFound(service_order.EntityName, docID.String())
}

func (m *mockServiceOrderService) GetByNumber(ctx context.Context, number string) (*service_order.ServiceOrder, error) {
	return nil, apperror.NewNotFound(service_order.EntityName, number)
}

func (m *mockServiceOrderService) List(ctx context.Context, filter service_order.ListFilter) (domain.ListResult[*service_order.ServiceOrder], error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	return domain.ListResult[*service_order.ServiceOrder]{Items: []*service_order.ServiceOrder{}}, nil
}

func (m *mockServiceOrderService) ChangeStatus(ctx context.Context, docID id.ID, status service_order.Status, expectedVersion int) (*service_order.ServiceOrder, error) {
	return m.ChangeStatusFunc(ctx, docID, status, expectedVersion)
}

func (m *mockServiceOrderService) ToggleChecklistItem(ctx context.Context, docID id.ID, lineNo int) (*service_order.ServiceOrder, error) {
	return m.ToggleFunc(ctx, docID, lineNo)
}

var (
	_ SaleService         = (*mockSaleService)(nil)
	_ ServiceOrderService = (*mockServiceOrderService)(nil)
)
