// Package validator validates request structs with go-playground/validator
// and reports failures as a snake_case field-to-message map.
package validator

// Validator validates a struct.
type Validator interface {
	Validate(data any) error
}
