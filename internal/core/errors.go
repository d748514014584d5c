package core

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingRequiredField marks a contact that cannot produce a record.
	ErrMissingRequiredField = errors.New("missing required field")

	// ErrMissingOptionalField marks an absent field that only leaves a column empty.
	ErrMissingOptionalField = errors.New("missing optional field")

	// ErrUnknownField is returned for a column identifier outside AllFields.
	ErrUnknownField = errors.New("unknown field")

	// ErrEmptyInput is returned for an upload with no bytes in it.
	ErrEmptyInput = errors.New("empty input")

	// ErrInvalidInput wraps parser failures on malformed vCard data.
	ErrInvalidInput = errors.New("invalid vCard data")
)

// MissingFieldError reports a field that was absent on a contact.
type MissingFieldError struct {
	Field    string // "organization", "address" or an address part
	Contact  string // display name, empty when the name itself is missing
	Required bool
}

func (e *MissingFieldError) Error() string {
	if e.Contact == "" {
		return fmt.Sprintf("contact is missing %q", e.Field)
	}
	return fmt.Sprintf("%s is missing %q", e.Contact, e.Field)
}

// Is lets errors.Is classify the error by severity.
func (e *MissingFieldError) Is(target error) bool {
	if e.Required {
		return target == ErrMissingRequiredField
	}
	return target == ErrMissingOptionalField
}

func missingRequired(field string) *MissingFieldError {
	return &MissingFieldError{Field: field, Required: true}
}

func missingOptional(contact, field string) *MissingFieldError {
	return &MissingFieldError{Field: field, Contact: contact}
}
