package validator

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrEmptyPhone indicates phone number is empty
	ErrEmptyPhone = errors.New("phone number cannot be empty")

	// ErrInvalidFormat indicates phone number contains invalid characters
	ErrInvalidFormat = errors.New("phone number can only contain digits")

	// ErrInvalidLength indicates phone number length is out of range
	ErrInvalidLength = errors.New("phone number must have 7 to 15 digits")
)

var phoneRegex = regexp.MustCompile(`^\+?\d+$`)

// separators accepted between digit groups
var phoneSeparators = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")

// PhoneValidator checks contact numbers stored on traveler accounts
type PhoneValidator struct{}

// NewPhoneValidator creates a new phone validator instance
func NewPhoneValidator() *PhoneValidator {
	return &PhoneValidator{}
}

// Validate accepts local (0771234567) and international (+94 77 123 4567)
// numbers with common separators. It returns the number with separators removed.
func (v *PhoneValidator) Validate(phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", ErrEmptyPhone
	}

	sanitized := v.Sanitize(phone)
	if !phoneRegex.MatchString(sanitized) {
		return "", ErrInvalidFormat
	}

	digits := strings.TrimPrefix(sanitized, "+")
	if len(digits) < 7 || len(digits) > 15 {
		return "", ErrInvalidLength
	}

	return sanitized, nil
}

// Sanitize removes separators, keeping a leading +
func (v *PhoneValidator) Sanitize(phone string) string {
	return phoneSeparators.Replace(strings.TrimSpace(phone))
}

// IsValid is a convenience method that returns true if phone is valid
func (v *PhoneValidator) IsValid(phone string) bool {
	_, err := v.Validate(phone)
	return err == nil
}
