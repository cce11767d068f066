package sale

import (
	"context"
	"fmt"

	"bizdesk/internal/core/id"
	"bizdesk/internal/core/numerator"
	"bizdesk/internal/core/tx"
	"bizdesk/internal/domain"
	"bizdesk/internal/domain/audit"
	"bizdesk/pkg/logger"
)

// Service provides business operations for sales.
type Service struct {
	repo      Repository
	numerator numerator.Generator
	txManager tx.Manager
	audit     audit.Recorder
	hooks     *domain.HookRegistry[*Sale]
}

// NewService creates a new sale service. A nil recorder disables the audit log.
func NewService(
	repo Repository,
	numerator numerator.Generator,
	txManager tx.Manager,
	recorder audit.Recorder,
) *Service {
	if recorder == nil {
		recorder = audit.NopRecorder{}
	}
	s := &Service{
		repo:      repo,
		numerator: numerator,
		txManager: txManager,
		audit:     recorder,
		hooks:     domain.NewHookRegistry[*Sale](),
	}
	s.hooks.OnBeforeCreate(audit.EnrichCreatedBy[*Sale])
	return s
}

// Hooks returns the hook registry for registering callbacks.
func (s *Service) Hooks() *domain.HookRegistry[*Sale] {
	return s.hooks
}

// Create validates the sale, assigns its number and persists it with lines.
// If numbering fails nothing is written.
func (s *Service) Create(ctx context.Context, doc *Sale) error {
	if err := s.hooks.RunBeforeCreate(ctx, doc); err != nil {
		return err
	}

	doc.Recalculate()
	if err := doc.Validate(ctx); err != nil {
		return domain.NormalizeValidationErr(err)
	}

	if err := domain.AssignNumber(ctx, s.numerator, doc.Kind.SequenceKey(), &doc.Number); err != nil {
		return err
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, doc); err != nil {
			return fmt.Errorf("create document: %w", err)
		}

		if err := s.repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}

		return s.audit.LogChange(ctx, EntityName, doc.ID, audit.ActionCreate, map[string]any{
			"number": doc.Number,
			"kind":   doc.Kind,
			"total":  doc.Total.StringFixed(2),
			"lines":  len(doc.Lines),
		})
	})
	if err != nil {
		return err
	}

	if err := s.hooks.RunAfterCreate(ctx, doc); err != nil {
		logger.Warn(ctx, "after-create hook failed", "error", err)
	}

	logger.Info(ctx, "sale created",
		"id", doc.ID,
		"kind", doc.Kind,
		"number", doc.Number,
		"total", doc.Total.StringFixed(2))

	return nil
}

// GetByID retrieves a sale with lines.
func (s *Service) GetByID(ctx context.Context, docID id.ID) (*Sale, error) {
	doc, err := s.repo.GetByID(ctx, docID)
	if err != nil {
		return nil, domain.NormalizeGetErr(err, EntityName, docID.String())
	}
	return s.withLines(ctx, doc)
}

// GetByNumber retrieves a sale by its kind and number.
func (s *Service) GetByNumber(ctx context.Context, kind Kind, number string) (*Sale, error) {
	doc, err := s.repo.GetByNumber(ctx, kind, number)
	if err != nil {
		return nil, domain.NormalizeGetErr(err, EntityName, number)
	}
	return s.withLines(ctx, doc)
}

func (s *Service) withLines(ctx context.Context, doc *Sale) (*Sale, error) {
	lines, err := s.repo.GetLines(ctx, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	doc.Lines = lines
	return doc, nil
}

// List returns a page of sales without lines.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Sale], error) {
	filter.ListFilter = filter.ListFilter.Normalize()
	return s.repo.List(ctx, filter)
}
