package service_order

import (
	"context"
	"fmt"
	"time"

	"bizdesk/internal/core/id"
	"bizdesk/internal/core/numerator"
	"bizdesk/internal/core/tx"
	"bizdesk/internal/domain"
	"bizdesk/internal/domain/audit"
	"bizdesk/pkg/logger"
)

// Service provides business operations for service orders.
type Service struct {
	repo      Repository
	numerator numerator.Generator
	txManager tx.Manager
	audit     audit.Recorder
	hooks     *domain.HookRegistry[*ServiceOrder]
	now       func() time.Time
}

// NewService creates a new service order service. A nil recorder disables the audit log.
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
		hooks:     domain.NewHookRegistry[*ServiceOrder](),
		now:       time.Now,
	}
	s.hooks.OnBeforeCreate(audit.EnrichCreatedBy[*ServiceOrder])
	s.hooks.OnBeforeUpdate(audit.EnrichUpdatedBy[*ServiceOrder])
	return s
}

// Hooks returns the hook registry for registering callbacks.
func (s *Service) Hooks() *domain.HookRegistry[*ServiceOrder] {
	return s.hooks
}

// Create validates the order, assigns its number and persists it.
func (s *Service) Create(ctx context.Context, doc *ServiceOrder) error {
	if err := s.hooks.RunBeforeCreate(ctx, doc); err != nil {
		return err
	}

	if doc.Status == "" {
		doc.Status = StatusOpen
	}
	if err := doc.Validate(ctx); err != nil {
		return domain.NormalizeValidationErr(err)
	}

	if err := domain.AssignNumber(ctx, s.numerator, SequenceKey, &doc.Number); err != nil {
		return err
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, doc); err != nil {
			return fmt.Errorf("create document: %w", err)
		}
		if err := s.repo.SaveEquipment(ctx, doc.ID, doc.Equipment); err != nil {
			return fmt.Errorf("save equipment: %w", err)
		}
		if err := s.repo.SaveChecklist(ctx, doc.ID, doc.Checklist); err != nil {
			return fmt.Errorf("save checklist: %w", err)
		}

		return s.audit.LogChange(ctx, EntityName, doc.ID, audit.ActionCreate, map[string]any{
			"number":    doc.Number,
			"status":    doc.Status,
			"equipment": len(doc.Equipment),
		})
	})
	if err != nil {
		return err
	}

	if err := s.hooks.RunAfterCreate(ctx, doc); err != nil {
		logger.Warn(ctx, "after-create hook failed", "error", err)
	}

	logger.Info(ctx, "service order created",
		"id", doc.ID,
		"number", doc.Number)

	return nil
}

// GetByID retrieves a service order with its table parts.
func (s *Service) GetByID(ctx context.Context, docID id.ID) (*ServiceOrder, error) {
	doc, err := s.repo.GetByID(ctx, docID)
	if err != nil {
		return nil, domain.NormalizeGetErr(err, EntityName, docID.String())
	}
	return s.withTableParts(ctx, doc)
}

// GetByNumber retrieves a service order by number.
func (s *Service) GetByNumber(ctx context.Context, number string) (*ServiceOrder, error) {
	doc, err := s.repo.GetByNumber(ctx, number)
	if err != nil {
		return nil, domain.NormalizeGetErr(err, EntityName, number)
	}
	return s.withTableParts(ctx, doc)
}

func (s *Service) withTableParts(ctx context.Context, doc *ServiceOrder) (*ServiceOrder, error) {
	equipment, err := s.repo.GetEquipment(ctx, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("get equipment: %w", err)
	}
	checklist, err := s.repo.GetChecklist(ctx, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("get checklist: %w", err)
	}
	doc.Equipment = equipment
	doc.Checklist = checklist
	return doc, nil
}

// List returns a page of service orders without table parts.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*ServiceOrder], error) {
	filter.ListFilter = filter.ListFilter.Normalize()
	return s.repo.List(ctx, filter)
}

// ChangeStatus moves the order to status. A non-zero expectedVersion must
// match the stored version.
func (s *Service) ChangeStatus(ctx context.Context, docID id.ID, status Status, expectedVersion int) (*ServiceOrder, error) {
	var doc *ServiceOrder
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		doc, err = s.GetByID(ctx, docID)
		if err != nil {
			return err
		}
		if expectedVersion != 0 {
			doc.Version = expectedVersion
		}

		from := doc.Status
		if err := doc.TransitionTo(status, s.now()); err != nil {
			return err
		}
		if err := s.update(ctx, doc); err != nil {
			return err
		}

		return s.audit.LogChange(ctx, EntityName, doc.ID, audit.ActionStatusChange, map[string]any{
			"status": map[string]any{"old": from, "new": status},
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "service order status changed",
		"id", doc.ID,
		"number", doc.Number,
		"status", doc.Status)

	return doc, nil
}

// ToggleChecklistItem flips one checklist item of an open order.
func (s *Service) ToggleChecklistItem(ctx context.Context, docID id.ID, lineNo int) (*ServiceOrder, error) {
	var doc *ServiceOrder
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		doc, err = s.GetByID(ctx, docID)
		if err != nil {
			return err
		}

		checked, err := doc.ToggleChecklistItem(lineNo)
		if err != nil {
			return err
		}
		if err := s.update(ctx, doc); err != nil {
			return err
		}
		if err := s.repo.SaveChecklist(ctx, doc.ID, doc.Checklist); err != nil {
			return fmt.Errorf("save checklist: %w", err)
		}

		return s.audit.LogChange(ctx, EntityName, doc.ID, audit.ActionUpdate, map[string]any{
			"checklist": map[string]any{"lineNo": lineNo, "checked": checked},
		})
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// update writes the header with optimistic locking and bumps the in-memory version.
func (s *Service) update(ctx context.Context, doc *ServiceOrder) error {
	if err := s.hooks.RunBeforeUpdate(ctx, doc); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, doc); err != nil {
		return err
	}
	doc.Touch()

	if err := s.hooks.RunAfterUpdate(ctx, doc); err != nil {
		logger.Warn(ctx, "after-update hook failed", "error", err)
	}
	return nil
}
