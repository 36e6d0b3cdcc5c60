package validation

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// FieldError is a single rejected config value
type FieldError struct {
	Config string
	Field  string
	Err    error
}

func (e *FieldError) Error() string {
	return e.Config + "." + e.Field + ": " + e.Err.Error()
}

func (e *FieldError) Unwrap() error { return e.Err }

// Path is the dotted config.field name
func (e *FieldError) Path() string { return e.Config + "." + e.Field }

// ConfigValidator checks the fields of one config section in a chain. Every
// failing rule is kept, so a single Validate call reports all of them.
type ConfigValidator struct {
	name   string
	errors []error
}

// NewConfigValidator starts a chain for the section called configName
func NewConfigValidator(configName string) *ConfigValidator {
	return &ConfigValidator{name: configName}
}

func (cv *ConfigValidator) fail(field string, err error) *ConfigValidator {
	cv.errors = append(cv.errors, &FieldError{Config: cv.name, Field: field, Err: err})
	return cv
}

func (cv *ConfigValidator) failf(field, format string, args ...any) *ConfigValidator {
	return cv.fail(field, fmt.Errorf(format, args...))
}

// Positive requires value > 0
func (cv *ConfigValidator) Positive(field string, value int) *ConfigValidator {
	if value > 0 {
		return cv
	}
	return cv.failf(field, "%d is not positive", value)
}

// NonNegative requires value >= 0
func (cv *ConfigValidator) NonNegative(field string, value int) *ConfigValidator {
	if value >= 0 {
		return cv
	}
	return cv.failf(field, "%d is negative", value)
}

// Finite rejects NaN and both infinities
func (cv *ConfigValidator) Finite(field string, value float64) *ConfigValidator {
	if !math.IsNaN(value) && !math.IsInf(value, 0) {
		return cv
	}
	return cv.failf(field, "%g is not finite", value)
}

// PositiveFloat requires value > 0. NaN fails.
func (cv *ConfigValidator) PositiveFloat(field string, value float64) *ConfigValidator {
	if value > 0 {
		return cv
	}
	return cv.failf(field, "%g is not positive", value)
}

// NonNegativeFloat requires value >= 0. NaN fails.
func (cv *ConfigValidator) NonNegativeFloat(field string, value float64) *ConfigValidator {
	if value >= 0 {
		return cv
	}
	return cv.failf(field, "%g is negative", value)
}

// RangeFloat requires min <= value <= max
func (cv *ConfigValidator) RangeFloat(field string, value, min, max float64) *ConfigValidator {
	if value >= min && value <= max {
		return cv
	}
	return cv.failf(field, "%g is outside [%g, %g]", value, min, max)
}

// LessFloat requires low < high. The failure is reported against lowField.
func (cv *ConfigValidator) LessFloat(lowField string, low float64, highField string, high float64) *ConfigValidator {
	if low < high {
		return cv
	}
	return cv.failf(lowField, "%g is not below %s (%g)", low, highField, high)
}

// OneOf requires value to be in allowed
func (cv *ConfigValidator) OneOf(field, value string, allowed []string) *ConfigValidator {
	if slices.Contains(allowed, value) {
		return cv
	}
	return cv.failf(field, "%q is not one of %v", value, allowed)
}

// Custom records whatever fn returns against field
func (cv *ConfigValidator) Custom(field string, fn func() error) *ConfigValidator {
	if err := fn(); err != nil {
		return cv.fail(field, err)
	}
	return cv
}

// When runs validations only if condition holds
func (cv *ConfigValidator) When(condition bool, validations func(*ConfigValidator)) *ConfigValidator {
	if condition {
		validations(cv)
	}
	return cv
}

func (cv *ConfigValidator) HasErrors() bool { return len(cv.errors) > 0 }

// Errors returns the failures in the order the rules ran. Each is a *FieldError.
func (cv *ConfigValidator) Errors() []error { return cv.errors }

// Validate returns nil, the lone failure, or every failure joined under the
// section name.
func (cv *ConfigValidator) Validate() error {
	switch len(cv.errors) {
	case 0:
		return nil
	case 1:
		return cv.errors[0]
	}
	return fmt.Errorf("%s: %d errors: %w", cv.name, len(cv.errors), errors.Join(cv.errors...))
}

// Validatable is anything with a Validate method, usually a config section
type Validatable interface {
	Validate() error
}

// ValidateAll validates every section and joins the failures. A nil section
// is itself a failure.
func ValidateAll(configs ...Validatable) error {
	var errs []error
	for _, c := range configs {
		if c == nil {
			errs = append(errs, errors.New("config section is nil"))
			continue
		}
		errs = append(errs, c.Validate())
	}
	return errors.Join(errs...)
}

// FieldPaths lists the dotted paths of every FieldError inside err
func FieldPaths(err error) []string {
	var paths []string
	var walk func(error)
	walk = func(err error) {
		switch e := err.(type) {
		case nil:
		case *FieldError:
			paths = append(paths, e.Path())
		case interface{ Unwrap() []error }:
			for _, inner := range e.Unwrap() {
				walk(inner)
			}
		case interface{ Unwrap() error }:
			walk(e.Unwrap())
		}
	}
	walk(err)
	return paths
}

// DefaultOr returns value unless it is the zero value
func DefaultOr[T comparable](value, defaultValue T) T {
	var zero T
	if value == zero {
		return defaultValue
	}
	return value
}
