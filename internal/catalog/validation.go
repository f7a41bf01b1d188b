package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/usagereg/usagereg/internal/shared"
)

// MinPasswordLength is the shortest secret the auth provider accepts.
const MinPasswordLength = 6

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validator exposes the shared validator so other packages register no second instance.
func Validator() *validator.Validate {
	return validate
}

// Validate checks the struct tags of v and reports the first failing field.
func Validate(entity Entity, v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return shared.E(shared.KindValidation, "validate", string(entity), err)
	}
	return FieldError(entity, fieldErrs[0])
}

// FieldError converts one validator failure into a validation error.
func FieldError(entity Entity, fe validator.FieldError) error {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return shared.E(shared.KindValidation, "validate", string(entity), fmt.Errorf("%s: %w", field, shared.ErrRequiredField))
	case "min":
		return shared.E(shared.KindValidation, "validate", string(entity), fmt.Errorf("%s must be at least %s characters", field, fe.Param()))
	default:
		return shared.E(shared.KindValidation, "validate", string(entity), fmt.Errorf("%s: invalid value %v", field, fe.Value()))
	}
}

// RequireName rejects an empty display name for string-set entities.
func RequireName(entity Entity, name string) error {
	if strings.TrimSpace(name) == "" {
		return shared.E(shared.KindValidation, "validate", string(entity), fmt.Errorf("name: %w", shared.ErrRequiredField))
	}
	return nil
}

// Conflict reports whether value is already used by an item whose key differs from exceptKey.
func Conflict[T Record](items []T, field func(T) string, value, exceptKey string) bool {
	if value == "" {
		return false
	}
	for _, item := range items {
		if item.Key() != exceptKey && field(item) == value {
			return true
		}
	}
	return false
}

// DuplicateError reports a local uniqueness violation.
func DuplicateError(entity Entity, field, value string) error {
	return shared.E(shared.KindValidation, "validate", string(entity), fmt.Errorf("%s %q: %w", field, value, shared.ErrDuplicate))
}

// NormalizeUser trims user input and applies the default role.
func NormalizeUser(u User) User {
	u.Name = strings.TrimSpace(u.Name)
	u.BadgeCode = strings.TrimSpace(u.BadgeCode)
	if u.Role == "" {
		u.Role = RoleUser
	}
	return u
}

// NormalizeProduct trims user input.
func NormalizeProduct(p Product) Product {
	p.Name = strings.TrimSpace(p.Name)
	p.QRCode = strings.TrimSpace(p.QRCode)
	p.CategoryID = strings.TrimSpace(p.CategoryID)
	if p.CategoryID == "none" {
		p.CategoryID = ""
	}
	return p
}

// NormalizeCategory trims user input.
func NormalizeCategory(c Category) Category {
	c.Name = strings.TrimSpace(c.Name)
	return c
}
