package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/harwood/breachdb/internal/model"
)

// Validation errors.
var (
	ErrNilContext         = errors.New("context cannot be nil")
	ErrEmptyString        = errors.New("string parameter cannot be empty")
	ErrNilParameter       = errors.New("parameter cannot be nil")
	ErrInvalidCase        = errors.New("invalid enforcement case")
	ErrInvalidOffender    = errors.New("invalid offender")
	ErrInvalidLegislation = errors.New("invalid legislation reference")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateOffender validates an offender before insert.
func validateOffender(offender *model.OffenderRecord) error {
	if offender == nil {
		return fmt.Errorf("%w: offender", ErrNilParameter)
	}
	if strings.TrimSpace(offender.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidOffender)
	}
	if strings.TrimSpace(offender.NormalizedName) == "" {
		return fmt.Errorf("%w: missing normalized name", ErrInvalidOffender)
	}
	return nil
}

// validateCase validates an enforcement case before insert.
func validateCase(c *model.EnforcementCase) error {
	if c == nil {
		return fmt.Errorf("%w: case", ErrNilParameter)
	}
	if c.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidCase)
	}
	if c.Hash == "" {
		return fmt.Errorf("%w: missing hash", ErrInvalidCase)
	}
	if c.OffenderID == 0 {
		return fmt.Errorf("%w: missing offender", ErrInvalidCase)
	}
	if c.Fine.IsNegative() || c.Costs.IsNegative() {
		return fmt.Errorf("%w: negative amount", ErrInvalidCase)
	}
	return nil
}

// validateLegislation validates a legislation reference before insert.
func validateLegislation(ref *model.LegislationReference) error {
	if ref == nil {
		return fmt.Errorf("%w: legislation", ErrNilParameter)
	}
	if strings.TrimSpace(ref.Title) == "" {
		return fmt.Errorf("%w: missing title", ErrInvalidLegislation)
	}
	if ref.Type == "" {
		return fmt.Errorf("%w: missing type", ErrInvalidLegislation)
	}
	return nil
}
