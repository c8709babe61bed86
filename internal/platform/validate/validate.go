// Package validate plugs go-playground/validator into echo's c.Validate.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/nyaruka/phonenumbers"

	"github.com/lims/lims/internal/platform/apperr"
)

// DefaultRegion is used for numbers written without a country prefix.
const DefaultRegion = "IN"

type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report json names so messages match the request body.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return ValidPhone(fl.Field().String())
	})
	return &Validator{v: v}
}

// Validate implements echo.Validator. Failures come back as validation
// errors naming the first offending field.
func (cv *Validator) Validate(i interface{}) error {
	err := cv.v.Struct(i)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return apperr.Validation("%s", message(verrs[0]))
	}
	return apperr.Validation("%s", err.Error())
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "phone":
		return field + " must be a valid phone number"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be >= %s", field, fe.Param())
	case "uuid", "uuid4":
		return field + " must be a valid id"
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// ValidPhone reports whether s parses as a possible phone number. Empty
// input is accepted; pair with "required" to forbid it.
func ValidPhone(s string) bool {
	if strings.TrimSpace(s) == "" {
		return true
	}
	num, err := phonenumbers.Parse(s, DefaultRegion)
	if err != nil {
		return false
	}
	return phonenumbers.IsPossibleNumber(num)
}

// NormalizePhone formats a number as E.164, returning the input unchanged
// when it cannot be parsed.
func NormalizePhone(s string) string {
	if strings.TrimSpace(s) == "" {
		return s
	}
	num, err := phonenumbers.Parse(s, DefaultRegion)
	if err != nil {
		return s
	}
	return phonenumbers.Format(num, phonenumbers.E164)
}
