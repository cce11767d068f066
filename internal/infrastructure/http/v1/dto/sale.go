package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"bizdesk/internal/core/apperror"
	"bizdesk/internal/core/id"
	"bizdesk/internal/domain/documents/sale"
)

// --- Request DTOs ---

// CreateSaleRequest represents a request to create a sale.
// The number is always issued by the allocator.
type CreateSaleRequest struct {
	Kind          string            `json:"kind" binding:"required,oneof=device product"`
	Date          *time.Time        `json:"date,omitempty"`
	CustomerID    string            `json:"customerId" binding:"required"`
	SellerID      *string           `json:"sellerId,omitempty"`
	DiscountKind  string            `json:"discountKind,omitempty" binding:"omitempty,oneof=none percent fixed"`
	DiscountValue decimal.Decimal   `json:"discountValue"`
	Comment       string            `json:"comment,omitempty" binding:"max=1000"`
	Lines         []SaleLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// SaleLineRequest represents a line in a create request.
type SaleLineRequest struct {
	ItemID      string          `json:"itemId" binding:"required"`
	Description string          `json:"description,omitempty"`
	Serial      string          `json:"serial,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

// ToEntity converts request to domain entity.
func (r *CreateSaleRequest) ToEntity() (*sale.Sale, error) {
	customerID, err := ParseID("customerId", r.CustomerID)
	if err != nil {
		return nil, err
	}
	sellerID, err := ParseOptionalID("sellerId", r.SellerID)
	if err != nil {
		return nil, err
	}

	doc := sale.NewSale(sale.Kind(r.Kind), customerID)
	doc.SellerID = sellerID
	doc.Comment = r.Comment
	if r.Date != nil {
		doc.Date = r.Date.UTC()
	}

	for i, line := range r.Lines {
		itemID, err := id.Parse(line.ItemID)
		if err != nil {
			return nil, apperror.NewValidation("invalid id format").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		added := doc.AddLine(itemID, line.Description, line.Quantity, line.UnitPrice)
		added.Serial = line.Serial
	}

	if r.DiscountKind != "" {
		doc.SetDiscount(sale.DiscountKind(r.DiscountKind), r.DiscountValue)
	}
	return doc, nil
}

// SaleListQuery contains sale list filters.
type SaleListQuery struct {
	ListQuery
	Kind       string     `form:"kind" binding:"omitempty,oneof=device product"`
	CustomerID string     `form:"customerId"`
	DateFrom   *time.Time `form:"dateFrom" time_format:"2006-01-02"`
	DateTo     *time.Time `form:"dateTo" time_format:"2006-01-02"`
}

// ToFilter converts query parameters to a sale filter.
func (q SaleListQuery) ToFilter() (sale.ListFilter, error) {
	f := sale.ListFilter{
		ListFilter: q.ListQuery.ToFilter(),
		DateFrom:   q.DateFrom,
		DateTo:     q.DateTo,
	}
	if q.Kind != "" {
		kind := sale.Kind(q.Kind)
		f.Kind = &kind
	}
	customerID, err := ParseOptionalID("customerId", &q.CustomerID)
	if err != nil {
		return sale.ListFilter{}, err
	}
	f.CustomerID = customerID
	return f, nil
}

// --- Response DTOs ---

// SaleResponse represents a sale in API responses.
type SaleResponse struct {
	DocumentResponse
	Kind          string             `json:"kind"`
	CustomerID    string             `json:"customerId"`
	SellerID      *string            `json:"sellerId,omitempty"`
	DiscountKind  string             `json:"discountKind"`
	DiscountValue decimal.Decimal    `json:"discountValue"`
	Subtotal      decimal.Decimal    `json:"subtotal"`
	Discount      decimal.Decimal    `json:"discount"`
	Total         decimal.Decimal    `json:"total"`
	Lines         []SaleLineResponse `json:"lines,omitempty"`
}

// SaleLineResponse represents a sale line.
type SaleLineResponse struct {
	LineNo      int             `json:"lineNo"`
	ItemID      string          `json:"itemId"`
	Description string          `json:"description,omitempty"`
	Serial      string          `json:"serial,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Amount      decimal.Decimal `json:"amount"`
}

// FromSale creates SaleResponse from the domain entity.
func FromSale(doc *sale.Sale) SaleResponse {
	resp := SaleResponse{
		DocumentResponse: FromDocument(doc.Document),
		Kind:             string(doc.Kind),
		CustomerID:       doc.CustomerID.String(),
		SellerID:         optionalString(doc.SellerID),
		DiscountKind:     string(doc.DiscountKind),
		DiscountValue:    doc.DiscountValue,
		Subtotal:         doc.Subtotal,
		Discount:         doc.Discount,
		Total:            doc.Total,
	}
	for _, line := range doc.Lines {
		resp.Lines = append(resp.Lines, SaleLineResponse{
			LineNo:      line.LineNo,
			ItemID:      line.ItemID.String(),
			Description: line.Description,
			Serial:      line.Serial,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			Amount:      line.Amount,
		})
	}
	return resp
}
