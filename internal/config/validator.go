package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validate validates GateConfig using struct tags plus cross-field rules
// that validator tags cannot express.
func (c *GateConfig) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())

	if err := v.Struct(c); err != nil {
		return formatValidationErrors(err)
	}

	if err := c.validateApprovalBackend(); err != nil {
		return err
	}

	return nil
}

// validateApprovalBackend ensures a sqlite approval backend always has a
// database path to open.
func (c *GateConfig) validateApprovalBackend() error {
	if ApprovalBackend(c.ApprovalBackend) == ApprovalBackendSQLite && c.ApprovalDBPath == "" {
		return errors.New("config: approval_backend=sqlite requires approval_db_path")
	}
	return nil
}

func formatValidationErrors(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		if len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return fmt.Errorf("config: field %q failed validation %q", fe.Namespace(), fe.Tag())
		}
	}
	return fmt.Errorf("config: %w", err)
}
