// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"strings"
	"time"

	"bizdesk/internal/core/apperror"
	"bizdesk/internal/core/entity"
	"bizdesk/internal/core/id"
	"bizdesk/internal/domain"
)

// --- List ---

// ListQuery contains the common list query parameters.
type ListQuery struct {
	Search         string `form:"search"`
	OrderBy        string `form:"orderBy"`
	Limit          int    `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset         int    `form:"offset" binding:"omitempty,min=0"`
	IncludeDeleted bool   `form:"includeDeleted"`
}

// ToFilter converts query parameters to a domain filter.
func (q ListQuery) ToFilter() domain.ListFilter {
	f := domain.DefaultListFilter()
	f.Search = strings.TrimSpace(q.Search)
	if q.OrderBy != "" {
		f.OrderBy = q.OrderBy
	}
	if q.Limit > 0 {
		f.Limit = q.Limit
	}
	f.Offset = q.Offset
	f.IncludeDeleted = q.IncludeDeleted
	return f
}

// ListResponse wraps list results with pagination.
type ListResponse[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// NewListResponse maps a domain page with fn.
func NewListResponse[E any, T any](res domain.ListResult[E], fn func(E) T) ListResponse[T] {
	items := make([]T, 0, len(res.Items))
	for _, e := range res.Items {
		items = append(items, fn(e))
	}
	return ListResponse[T]{
		Items:      items,
		TotalCount: res.TotalCount,
		Limit:      res.Limit,
		Offset:     res.Offset,
	}
}

// --- Base DTOs ---

// DocumentResponse contains common document fields.
type DocumentResponse struct {
	ID           string    `json:"id"`
	Number       string    `json:"number"`
	Date         time.Time `json:"date"`
	Comment      string    `json:"comment,omitempty"`
	DeletionMark bool      `json:"deletionMark"`
	Version      int       `json:"version"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	CreatedBy    string    `json:"createdBy,omitempty"`
	UpdatedBy    string    `json:"updatedBy,omitempty"`
}

// FromDocument creates DocumentResponse from entity.Document.
func FromDocument(d entity.Document) DocumentResponse {
	return DocumentResponse{
		ID:           d.ID.String(),
		Number:       d.Number,
		Date:         d.Date,
		Comment:      d.Comment,
		DeletionMark: d.DeletionMark,
		Version:      d.Version,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
		CreatedBy:    d.CreatedBy,
		UpdatedBy:    d.UpdatedBy,
	}
}

// --- Error Response ---

// ErrorResponse for error details.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// --- ID parsing ---

// ParseID parses a required UUID field.
func ParseID(field, value string) (id.ID, error) {
	parsed, err := id.Parse(value)
	if err != nil || id.IsNil(parsed) {
		return id.Nil(), apperror.NewValidation("invalid id format").
			WithDetail("field", field).
			WithDetail("value", value)
	}
	return parsed, nil
}

// ParseOptionalID parses an optional UUID field; empty means nil.
func ParseOptionalID(field string, value *string) (*id.ID, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	parsed, err := ParseID(field, *value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// optionalString returns nil for a nil ID.
func optionalString(v *id.ID) *string {
	if v == nil {
		return nil
	}
	s := v.String()
	return &s
}
