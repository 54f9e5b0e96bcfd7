// Package validator runs ozzo-validation rules and converts their errors into layered errors
package validator

import (
	"github.com/KOMKZ/go-yogan-logconf/errcode"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Validatable is implemented by ozzo-validated types
type Validatable interface {
	Validate() error
}

// Validate runs v.Validate and reports ozzo field errors as base with the offending
// fields attached. Other errors are wrapped by base unchanged.
func Validate(v Validatable, base *errcode.LayeredError) error {
	err := v.Validate()
	if err == nil {
		return nil
	}

	if validationErrs, ok := err.(validation.Errors); ok {
		return ConvertValidationError(validationErrs, base)
	}
	return base.Wrap(err)
}

// ConvertValidationError turns ozzo field errors into base carrying those fields.
// The message lists the fields in name order, e.g. "invalid appender: file: cannot be blank"
func ConvertValidationError(validationErrs validation.Errors, base *errcode.LayeredError) error {
	fields := make(map[string]string, len(validationErrs))
	for field, fieldErr := range validationErrs {
		if fieldErr != nil {
			fields[field] = fieldErr.Error()
		}
	}
	return base.WithFields(fields)
}
