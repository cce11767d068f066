// Package service_order provides the ServiceOrder document (repair/maintenance order).
package service_order

import (
	"context"
	"strings"
	"time"

	"bizdesk/internal/core/apperror"
	"bizdesk/internal/core/entity"
	"bizdesk/internal/core/id"
)

// MaxWarrantyDays bounds the warranty period.
const MaxWarrantyDays = 3650

// ServiceOrder records equipment received for service.
type ServiceOrder struct {
	entity.Document

	CustomerID   id.ID      `db:"customer_id" json:"customerId"`
	TechnicianID *id.ID     `db:"technician_id" json:"technicianId,omitempty"`
	Status       Status     `db:"status" json:"status"`
	WarrantyDays int        `db:"warranty_days" json:"warrantyDays"`
	DeliveredAt  *time.Time `db:"delivered_at" json:"deliveredAt,omitempty"`

	// Table parts
	Equipment []Equipment     `db:"-" json:"equipment"`
	Checklist []ChecklistItem `db:"-" json:"checklist"`
}

// Equipment is one device left by the customer.
type Equipment struct {
	LineID         id.ID  `db:"line_id" json:"lineId"`
	LineNo         int    `db:"line_no" json:"lineNo"`
	Type           string `db:"type" json:"type"`
	Brand          string `db:"brand" json:"brand,omitempty"`
	Model          string `db:"model" json:"model,omitempty"`
	Serial         string `db:"serial" json:"serial,omitempty"`
	ReportedDefect string `db:"reported_defect" json:"reportedDefect,omitempty"`
}

// ChecklistItem is one inspection step.
type ChecklistItem struct {
	LineID  id.ID  `db:"line_id" json:"lineId"`
	LineNo  int    `db:"line_no" json:"lineNo"`
	Label   string `db:"label" json:"label"`
	Checked bool   `db:"checked" json:"checked"`
}

// NewServiceOrder creates an open service order.
func NewServiceOrder(customerID id.ID) *ServiceOrder {
	return &ServiceOrder{
		Document:   entity.NewDocument(),
		CustomerID: customerID,
		Status:     StatusOpen,
		Equipment:  make([]Equipment, 0),
		Checklist:  make([]ChecklistItem, 0),
	}
}

// AddEquipment appends an equipment line.
func (o *ServiceOrder) AddEquipment(e Equipment) {
	e.LineID = id.New()
	e.LineNo = len(o.Equipment) + 1
	o.Equipment = append(o.Equipment, e)
}

// AddChecklistItem appends an unchecked item.
func (o *ServiceOrder) AddChecklistItem(label string) {
	o.Checklist = append(o.Checklist, ChecklistItem{
		LineID: id.New(),
		LineNo: len(o.Checklist) + 1,
		Label:  label,
	})
}

// CanModify rejects edits of delivered or cancelled orders.
func (o *ServiceOrder) CanModify() error {
	if o.Status.IsTerminal() {
		return apperror.NewBusinessRule(
			apperror.CodeBusinessRule,
			"Service order is closed and cannot be modified",
		).WithDetail("status", string(o.Status)).WithDetail("document_id", o.ID.String())
	}
	return nil
}

// TransitionTo moves the order to next, stamping DeliveredAt on delivery.
func (o *ServiceOrder) TransitionTo(next Status, now time.Time) error {
	if !next.IsValid() {
		return apperror.NewValidation("unknown status").
			WithDetail("field", "status").
			WithDetail("value", string(next))
	}
	if !o.Status.CanTransitionTo(next) {
		return apperror.NewInvalidTransition(EntityName, string(o.Status), string(next))
	}

	o.Status = next
	if next == StatusDelivered {
		t := now.UTC()
		o.DeliveredAt = &t
	}
	return nil
}

// ToggleChecklistItem flips the item with lineNo and returns its new state.
func (o *ServiceOrder) ToggleChecklistItem(lineNo int) (bool, error) {
	if err := o.CanModify(); err != nil {
		return false, err
	}
	for i := range o.Checklist {
		if o.Checklist[i].LineNo == lineNo {
			o.Checklist[i].Checked = !o.Checklist[i].Checked
			return o.Checklist[i].Checked, nil
		}
	}
	return false, apperror.NewNotFound("checklist item", lineNo)
}

// WarrantyExpiresAt returns the end of warranty, or nil before delivery.
func (o *ServiceOrder) WarrantyExpiresAt() *time.Time {
	if o.DeliveredAt == nil || o.WarrantyDays == 0 {
		return nil
	}
	t := o.DeliveredAt.AddDate(0, 0, o.WarrantyDays)
	return &t
}

// InWarranty reports whether the order is delivered and still covered at now.
func (o *ServiceOrder) InWarranty(now time.Time) bool {
	exp := o.WarrantyExpiresAt()
	return exp != nil && now.Before(*exp)
}

// Validate implements entity.Validatable.
func (o *ServiceOrder) Validate(ctx context.Context) error {
	if err := o.Document.Validate(ctx); err != nil {
		return err
	}

	if id.IsNil(o.CustomerID) {
		return apperror.NewValidation("customer is required").
			WithDetail("field", "customerId")
	}

	if !o.Status.IsValid() {
		return apperror.NewValidation("unknown status").
			WithDetail("field", "status")
	}

	if o.WarrantyDays < 0 || o.WarrantyDays > MaxWarrantyDays {
		return apperror.NewValidation("warranty days out of range").
			WithDetail("field", "warrantyDays").
			WithDetail("max", MaxWarrantyDays)
	}

	if len(o.Equipment) == 0 {
		return apperror.NewValidation("at least one equipment is required").
			WithDetail("field", "equipment")
	}

	for i, e := range o.Equipment {
		if strings.TrimSpace(e.Type) == "" {
			return apperror.NewValidation("equipment type is required").
				WithDetail("field", "equipment").
				WithDetail("lineNo", i+1)
		}
	}

	for i, item := range o.Checklist {
		if strings.TrimSpace(item.Label) == "" {
			return apperror.NewValidation("checklist label is required").
				WithDetail("field", "checklist").
				WithDetail("lineNo", i+1)
		}
	}

	return nil
}
