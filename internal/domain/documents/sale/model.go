// Package sale provides the Sale document.
package sale

import (
	"context"

	"github.com/shopspring/decimal"

	"bizdesk/internal/core/apperror"
	"bizdesk/internal/core/entity"
	"bizdesk/internal/core/id"
	"bizdesk/internal/core/types"
)

// Kind distinguishes device sales from product sales.
type Kind string

const (
	KindDevice  Kind = "device"
	KindProduct Kind = "product"
)

// IsValid reports whether k is a known kind.
func (k Kind) IsValid() bool {
	return k == KindDevice || k == KindProduct
}

// SequenceKey returns the numbering key for the kind.
func (k Kind) SequenceKey() string {
	if k == KindDevice {
		return SequenceKeyDevice
	}
	return SequenceKeyProduct
}

// DiscountKind selects how DiscountValue is applied.
type DiscountKind string

const (
	DiscountNone    DiscountKind = "none"
	DiscountPercent DiscountKind = "percent"
	DiscountFixed   DiscountKind = "fixed"
)

// Sale is a numbered sale of devices or products to a customer.
type Sale struct {
	entity.Document

	Kind       Kind   `db:"kind" json:"kind"`
	CustomerID id.ID  `db:"customer_id" json:"customerId"`
	SellerID   *id.ID `db:"seller_id" json:"sellerId,omitempty"`

	DiscountKind  DiscountKind    `db:"discount_kind" json:"discountKind"`
	DiscountValue decimal.Decimal `db:"discount_value" json:"discountValue"`

	// Totals (calculated from lines)
	Subtotal types.Money `db:"subtotal" json:"subtotal"`
	Discount types.Money `db:"discount" json:"discount"`
	Total    types.Money `db:"total" json:"total"`

	Lines []Line `db:"-" json:"lines"`
}

// Line is one sold item.
type Line struct {
	LineID      id.ID           `db:"line_id" json:"lineId"`
	LineNo      int             `db:"line_no" json:"lineNo"`
	ItemID      id.ID           `db:"item_id" json:"itemId"`
	Description string          `db:"description" json:"description,omitempty"`
	Serial      string          `db:"serial" json:"serial,omitempty"`
	Quantity    decimal.Decimal `db:"quantity" json:"quantity"`
	UnitPrice   types.Money     `db:"unit_price" json:"unitPrice"`
	Amount      types.Money     `db:"amount" json:"amount"`
}

// NewSale creates an empty sale.
func NewSale(kind Kind, customerID id.ID) *Sale {
	return &Sale{
		Document:     entity.NewDocument(),
		Kind:         kind,
		CustomerID:   customerID,
		DiscountKind: DiscountNone,
		Lines:        make([]Line, 0),
	}
}

// AddLine appends a line and recalculates totals.
func (s *Sale) AddLine(itemID id.ID, description string, quantity decimal.Decimal, unitPrice types.Money) *Line {
	s.Lines = append(s.Lines, Line{
		LineID:      id.New(),
		LineNo:      len(s.Lines) + 1,
		ItemID:      itemID,
		Description: description,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
	})
	s.Recalculate()
	return &s.Lines[len(s.Lines)-1]
}

// SetDiscount sets the discount and recalculates totals.
func (s *Sale) SetDiscount(kind DiscountKind, value decimal.Decimal) {
	s.DiscountKind = kind
	s.DiscountValue = value
	s.Recalculate()
}

// Recalculate updates line amounts and document totals.
// The discount never exceeds the subtotal.
func (s *Sale) Recalculate() {
	subtotal := types.Zero()
	for i := range s.Lines {
		line := &s.Lines[i]
		line.LineNo = i + 1
		line.Amount = types.RoundMoney(line.Quantity.Mul(line.UnitPrice))
		subtotal = subtotal.Add(line.Amount)
	}

	discount := types.Zero()
	switch s.DiscountKind {
	case DiscountPercent:
		discount = types.Percent(subtotal, s.DiscountValue)
	case DiscountFixed:
		discount = types.RoundMoney(s.DiscountValue)
	}
	if discount.IsNegative() {
		discount = types.Zero()
	}

	s.Subtotal = subtotal
	s.Discount = types.MinMoney(discount, subtotal)
	s.Total = subtotal.Sub(s.Discount)
}

// Validate implements entity.Validatable.
func (s *Sale) Validate(ctx context.Context) error {
	if err := s.Document.Validate(ctx); err != nil {
		return err
	}

	if !s.Kind.IsValid() {
		return apperror.NewValidation("sale kind must be device or product").
			WithDetail("field", "kind")
	}

	if id.IsNil(s.CustomerID) {
		return apperror.NewValidation("customer is required").
			WithDetail("field", "customerId")
	}

	switch s.DiscountKind {
	case DiscountNone:
	case DiscountPercent:
		if s.DiscountValue.IsNegative() || s.DiscountValue.GreaterThan(decimal.NewFromInt(100)) {
			return apperror.NewValidation("discount percent must be between 0 and 100").
				WithDetail("field", "discountValue")
		}
	case DiscountFixed:
		if s.DiscountValue.IsNegative() {
			return apperror.NewValidation("discount must not be negative").
				WithDetail("field", "discountValue")
		}
	default:
		return apperror.NewValidation("unknown discount kind").
			WithDetail("field", "discountKind")
	}

	if len(s.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").
			WithDetail("field", "lines")
	}

	for i, line := range s.Lines {
		if id.IsNil(line.ItemID) {
			return apperror.NewValidation("item is required").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if !line.Quantity.IsPositive() {
			return apperror.NewValidation("quantity must be positive").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if s.Kind == KindDevice && !line.Quantity.IsInteger() {
			return apperror.NewValidation("device quantity must be a whole number").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if line.UnitPrice.IsNegative() {
			return apperror.NewValidation("unit price must not be negative").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
	}

	return nil
}
