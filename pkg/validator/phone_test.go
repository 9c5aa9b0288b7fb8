package validator

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPhoneValidator(t *testing.T) {
	assert.NotNil(t, NewPhoneValidator())
}

func TestValidate_ValidNumbers(t *testing.T) {
	validator := NewPhoneValidator()

	validNumbers := []struct {
		input    string
		expected string
		name     string
	}{
		{"0771234567", "0771234567", "Local format"},
		{"077 123 4567", "0771234567", "With spaces"},
		{"077-123-4567", "0771234567", "With dashes"},
		{"077.123.4567", "0771234567", "With dots"},
		{"(077) 123 4567", "0771234567", "With parentheses"},
		{"+94 77 123 4567", "+94771234567", "International"},
		{"  0771234567 ", "0771234567", "Surrounding whitespace"},
	}

	for _, tc := range validNumbers {
		t.Run(tc.name, func(t *testing.T) {
			sanitized, err := validator.Validate(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, sanitized)
		})
	}
}

func TestValidate_InvalidNumbers(t *testing.T) {
	validator := NewPhoneValidator()

	invalidNumbers := []struct {
		input string
		err   error
		name  string
	}{
		{"", ErrEmptyPhone, "Empty"},
		{"   ", ErrEmptyPhone, "Whitespace only"},
		{"077123456a", ErrInvalidFormat, "Contains letter"},
		{"77+1234567", ErrInvalidFormat, "Plus in the middle"},
		{"12345", ErrInvalidLength, "Too short"},
		{"+1234567890123456", ErrInvalidLength, "Too long"},
	}

	for _, tc := range invalidNumbers {
		t.Run(tc.name, func(t *testing.T) {
			_, err := validator.Validate(tc.input)
			assert.ErrorIs(t, err, tc.err)
			assert.False(t, validator.IsValid(tc.input))
		})
	}
}

func TestConcurrentValidation(t *testing.T) {
	validator := NewPhoneValidator()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.True(t, validator.IsValid("0771234567"))
		}()
	}
	wg.Wait()
}
