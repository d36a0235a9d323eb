package validator

import (
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ErrorResponse struct {
	FailedField string
	Tag         string
	Value       string
}

var (
	validate     = validator.New()
	phonePattern = regexp.MustCompile(`^[0-9]{10}$`)
)

func init() {
	validate.RegisterValidation("uuid_required", func(fl validator.FieldLevel) bool {
		if id, ok := fl.Field().Interface().(uuid.UUID); ok {
			return id != uuid.Nil
		}
		return false
	})

	// Exactly ten digits, no separators.
	validate.RegisterValidation("phone10", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})

	validate.RegisterValidation("dec_gt0", func(fl validator.FieldLevel) bool {
		d, ok := decimalOf(fl)
		return ok && d.IsPositive()
	})
	validate.RegisterValidation("dec_gte0", func(fl validator.FieldLevel) bool {
		d, ok := decimalOf(fl)
		return ok && !d.IsNegative()
	})

	// At most three decimal places, the scale of the kg and price columns.
	validate.RegisterValidation("dec_scale3", func(fl validator.FieldLevel) bool {
		d, ok := decimalOf(fl)
		return ok && d.Equal(d.Truncate(3))
	})
}

// decimalOf unwraps decimal.Decimal and *decimal.Decimal fields. The validator
// dereferences pointers before calling custom tags, so both arrive as a value.
func decimalOf(fl validator.FieldLevel) (decimal.Decimal, bool) {
	switch v := fl.Field().Interface().(type) {
	case decimal.Decimal:
		return v, true
	case *decimal.Decimal:
		if v == nil {
			return decimal.Zero, false
		}
		return *v, true
	}
	return decimal.Zero, false
}

func ValidateStruct(data interface{}) []*ErrorResponse {
	var errors []*ErrorResponse
	err := validate.Struct(data)
	if err != nil {
		validationErrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return []*ErrorResponse{{FailedField: "", Tag: "invalid", Value: err.Error()}}
		}
		for _, err := range validationErrs {
			var element ErrorResponse
			element.FailedField = err.StructNamespace()
			element.Tag = err.Tag()
			element.Value = err.Param()
			errors = append(errors, &element)
		}
	}
	return errors
}
