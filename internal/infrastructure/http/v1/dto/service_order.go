package dto

import (
	"time"

	"bizdesk/internal/domain/documents/service_order"
)

// --- Request DTOs ---

// CreateServiceOrderRequest represents a request to open a service order.
type CreateServiceOrderRequest struct {
	Date         *time.Time         `json:"date,omitempty"`
	CustomerID   string             `json:"customerId" binding:"required"`
	TechnicianID *string            `json:"technicianId,omitempty"`
	WarrantyDays int                `json:"warrantyDays" binding:"min=0,max=3650"`
	Comment      string             `json:"comment,omitempty" binding:"max=1000"`
	Equipment    []EquipmentRequest `json:"equipment" binding:"required,min=1,dive"`
	Checklist    []string           `json:"checklist,omitempty" binding:"dive,required"`
}

// EquipmentRequest represents one equipment line.
type EquipmentRequest struct {
	Type           string `json:"type" binding:"required"`
	Brand          string `json:"brand,omitempty"`
	Model          string `json:"model,omitempty"`
	Serial         string `json:"serial,omitempty"`
	ReportedDefect string `json:"reportedDefect,omitempty"`
}

// ToEntity converts request to domain entity.
func (r *CreateServiceOrderRequest) ToEntity() (*service_order.ServiceOrder, error) {
	customerID, err := ParseID("customerId", r.CustomerID)
	if err != nil {
		return nil, err
	}
	technicianID, err := ParseOptionalID("technicianId", r.TechnicianID)
	if err != nil {
		return nil, err
	}

	doc := service_order.NewServiceOrder(customerID)
	doc.TechnicianID = technicianID
	doc.WarrantyDays = r.WarrantyDays
	doc.Comment = r.Comment
	if r.Date != nil {
		doc.Date = r.Date.UTC()
	}
	for _, e := range r.Equipment {
		doc.AddEquipment(service_order.Equipment{
			Type:           e.Type,
			Brand:          e.Brand,
			Model:          e.Model,
			Serial:         e.Serial,
			ReportedDefect: e.ReportedDefect,
		})
	}
	for _, label := range r.Checklist {
		doc.AddChecklistItem(label)
	}
	return doc, nil
}

// ChangeStatusRequest moves an order through its lifecycle.
// Version, when set, must match the stored version.
type ChangeStatusRequest struct {
	Status  string `json:"status" binding:"required"`
	Version int    `json:"version" binding:"min=0"`
}

// ServiceOrderListQuery contains service order list filters.
type ServiceOrderListQuery struct {
	ListQuery
	Status       string     `form:"status"`
	CustomerID   string     `form:"customerId"`
	TechnicianID string     `form:"technicianId"`
	DateFrom     *time.Time `form:"dateFrom" time_format:"2006-01-02"`
	DateTo       *time.Time `form:"dateTo" time_format:"2006-01-02"`
}

// ToFilter converts query parameters to a service order filter.
func (q ServiceOrderListQuery) ToFilter() (service_order.ListFilter, error) {
	f := service_order.ListFilter{
		ListFilter: q.ListQuery.ToFilter(),
		DateFrom:   q.DateFrom,
		DateTo:     q.DateTo,
	}
	if q.Status != "" {
		status := service_order.Status(q.Status)
		f.Status = &status
	}
	var err error
	if f.CustomerID, err = ParseOptionalID("customerId", &q.CustomerID); err != nil {
		return service_order.ListFilter{}, err
	}
	if f.TechnicianID, err = ParseOptionalID("technicianId", &q.TechnicianID); err != nil {
		return service_order.ListFilter{}, err
	}
	return f, nil
}

// --- Response DTOs ---

// ServiceOrderResponse represents a service order in API responses.
type ServiceOrderResponse struct {
	DocumentResponse
	CustomerID        string                  `json:"customerId"`
	TechnicianID      *string                 `json:"technicianId,omitempty"`
	Status            string                  `json:"status"`
	WarrantyDays      int                     `json:"warrantyDays"`
	DeliveredAt       *time.Time              `json:"deliveredAt,omitempty"`
	WarrantyExpiresAt *time.Time              `json:"warrantyExpiresAt,omitempty"`
	InWarranty        bool                    `json:"inWarranty"`
	Equipment         []EquipmentResponse     `json:"equipment,omitempty"`
	Checklist         []ChecklistItemResponse `json:"checklist,omitempty"`
}

// EquipmentResponse represents one equipment line.
type EquipmentResponse struct {
	LineNo         int    `json:"lineNo"`
	Type           string `json:"type"`
	Brand          string `json:"brand,omitempty"`
	Model          string `json:"model,omitempty"`
	Serial         string `json:"serial,omitempty"`
	ReportedDefect string `json:"reportedDefect,omitempty"`
}

// ChecklistItemResponse represents one checklist item.
type ChecklistItemResponse struct {
	LineNo  int    `json:"lineNo"`
	Label   string `json:"label"`
	Checked bool   `json:"checked"`
}

// FromServiceOrder creates ServiceOrderResponse from the domain entity.
// now decides InWarranty.
func FromServiceOrder(doc *service_order.ServiceOrder, now time.Time) ServiceOrderResponse {
	resp := ServiceOrderResponse{
		DocumentResponse:  FromDocument(doc.Document),
		CustomerID:        doc.CustomerID.String(),
		TechnicianID:      optionalString(doc.TechnicianID),
		Status:            string(doc.Status),
		WarrantyDays:      doc.WarrantyDays,
		DeliveredAt:       doc.DeliveredAt,
		WarrantyExpiresAt: doc.WarrantyExpiresAt(),
		InWarranty:        doc.InWarranty(now),
	}
	for _, e := range doc.Equipment {
		resp.Equipment = append(resp.Equipment, EquipmentResponse{
			LineNo:         e.LineNo,
			Type:           e.Type,
			Brand:          e.Brand,
			Model:          e.Model,
			Serial:         e.Serial,
			ReportedDefect: e.ReportedDefect,
		})
	}
	for _, item := range doc.Checklist {
		resp.Checklist = append(resp.Checklist, ChecklistItemResponse{
			LineNo:  item.LineNo,
			Label:   item.Label,
			Checked: item.Checked,
		})
	}
	return resp
}
