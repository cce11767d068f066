package domain

import (
	"context"
	"fmt"

	"bizdesk/internal/core/apperror"
	"bizdesk/internal/core/numerator"
)

// NormalizeValidationErr keeps structured validation errors and wraps plain ones.
func NormalizeValidationErr(err error) error {
	if err == nil {
		return nil
	}
	if apperror.IsAppError(err) {
		return err
	}
	return apperror.NewValidation(err.Error())
}

// NormalizeGetErr maps repository errors to API errors for entityName.
func NormalizeGetErr(err error, entityName string, idOrNumber any) error {
	if err == nil {
		return nil
	}
	if apperror.IsNotFound(err) {
		return apperror.NewNotFound(entityName, idOrNumber)
	}
	if apperror.IsAppError(err) {
		return err
	}
	return apperror.NewInternal(err).WithDetail("entity", entityName).WithDetail("id", idOrNumber)
}

// AssignNumber issues the next number for key unless number is already set.
// Allocation errors abort document creation; nothing is persisted without a number.
func AssignNumber(ctx context.Context, gen numerator.Generator, key string, number *string) error {
	if *number != "" {
		return nil
	}
	n, err := gen.NextNumber(ctx, key)
	if err != nil {
		if apperror.IsAppError(err) {
			return err
		}
		return fmt.Errorf("generate number: %w", err)
	}
	*number = n
	return nil
}
