// ==============================================================================
// VALIDATOR PACKAGE - pkg/validator/validator.go
// ==============================================================================
package validator

import (
	"fmt"
	"html"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var countryCode = regexp.MustCompile(`^[A-Z]{2}$`)

type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := &Validator{
		validate: validator.New(),
	}
	v.registerCustomValidations()
	return v
}

func (v *Validator) Validate(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			var errMessages []string
			for _, e := range validationErrors {
				errMessages = append(errMessages, fmt.Sprintf(
					"Field '%s' failed validation '%s'",
					e.Field(),
					e.Tag(),
				))
			}
			return fmt.Errorf("validation failed: %v", errMessages)
		}
		return err
	}
	return nil
}

// ValidateStructured returns a map of field -> error message for frontend usage
func (v *Validator) ValidateStructured(i interface{}) map[string]string {
	errs := make(map[string]string)
	if err := v.validate.Struct(i); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			for _, e := range validationErrors {
				msg := fmt.Sprintf("failed validation on '%s'", e.Tag())
				switch e.Tag() {
				case "required":
					msg = "This field is required"
				case "email":
					msg = "Invalid email address"
				case "min":
					msg = fmt.Sprintf("Must be at least %s characters", e.Param())
				case "max":
					msg = fmt.Sprintf("Must be at most %s characters", e.Param())
				case "gt":
					msg = fmt.Sprintf("Must be greater than %s", e.Param())
				case "gte":
					msg = fmt.Sprintf("Must be at least %s", e.Param())
				case "currency":
					msg = "Currency must be one of RUB, USD, EUR"
				case "payment_method":
					msg = "Payment method must be cloudpayments or yookassa"
				case "frequency":
					msg = "Frequency must be daily, weekly or monthly"
				case "country_code":
					msg = "Country code must be two uppercase letters"
				case "money":
					msg = "At most two decimal places are allowed"
				}
				errs[e.Field()] = msg
			}
		} else {
			errs["_global"] = err.Error()
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func (v *Validator) registerCustomValidations() {
	// decimal.Decimal is validated as float64 for gt/gte checks
	v.validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if val, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := val.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	_ = v.validate.RegisterValidation("currency", oneOf("RUB", "USD", "EUR"))
	_ = v.validate.RegisterValidation("payment_method", oneOf("cloudpayments", "yookassa"))
	_ = v.validate.RegisterValidation("frequency", oneOf("daily", "weekly", "monthly"))

	_ = v.validate.RegisterValidation("country_code", func(fl validator.FieldLevel) bool {
		return countryCode.MatchString(fl.Field().String())
	})

	// money rejects more than two fractional digits. The custom type func has
	// already turned decimals into float64, so the original is read from the parent.
	_ = v.validate.RegisterValidation("money", func(fl validator.FieldLevel) bool {
		parent := fl.Parent()
		if parent.Kind() == reflect.Ptr {
			parent = parent.Elem()
		}
		if parent.Kind() != reflect.Struct {
			return true
		}
		raw := parent.FieldByName(fl.StructFieldName())
		if !raw.IsValid() {
			return true
		}
		d, ok := raw.Interface().(decimal.Decimal)
		if !ok {
			return true
		}
		return d.Exponent() >= -2 || d.Equal(d.Round(2))
	})
}

func oneOf(values ...string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		for _, v := range values {
			if s == v {
				return true
			}
		}
		return false
	}
}

// Sanitize cleans string input to prevent XSS attacks
func Sanitize(input string) string {
	return html.EscapeString(strings.TrimSpace(input))
}
