package validator

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var hhmmRegex = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d(:[0-5]\d)?$`)

// RegisterBindingValidators adds the custom tags used by request structs to
// gin's validator: hhmm (departure times), ymd (calendar dates) and phone.
// JSON field names are reported instead of Go field names.
func RegisterBindingValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected binding validator engine %T", binding.Validator.Engine())
	}
	return Register(v)
}

// Register installs the custom tags on v
func Register(v *validator.Validate) error {
	v.RegisterTagNameFunc(jsonFieldName)

	phones := NewPhoneValidator()
	tags := map[string]validator.Func{
		"hhmm": func(fl validator.FieldLevel) bool {
			return hhmmRegex.MatchString(fl.Field().String())
		},
		"ymd": func(fl validator.FieldLevel) bool {
			_, err := time.Parse("2006-01-02", fl.Field().String())
			return err == nil
		},
		"phone": func(fl validator.FieldLevel) bool {
			return phones.IsValid(fl.Field().String())
		},
	}
	for tag, fn := range tags {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("register %s: %w", tag, err)
		}
	}
	return nil
}

func jsonFieldName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

// FieldErrors converts validator errors to field -> message
func FieldErrors(err error) map[string]string {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return nil
	}

	out := make(map[string]string, len(validationErrors))
	for _, fe := range validationErrors {
		out[fe.Field()] = message(fe)
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "min":
		return fmt.Sprintf("Minimum is %s", fe.Param())
	case "max":
		return fmt.Sprintf("Maximum is %s", fe.Param())
	case "gt":
		return fmt.Sprintf("Must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("Must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("Must be at most %s", fe.Param())
	case "nefield":
		return fmt.Sprintf("Must differ from %s", fe.Param())
	case "hhmm":
		return "Must be a time in HH:MM format"
	case "ymd":
		return "Must be a date in YYYY-MM-DD format"
	case "phone":
		return "Invalid phone number"
	default:
		return fmt.Sprintf("Invalid %s field", fe.Field())
	}
}
