package google

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var phonePattern = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)

// RegisterValidations adds the "phone" rule to v.
func RegisterValidations(v *validator.Validate) error {
	return v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
}

type rowValidator struct {
	validate *validator.Validate
}

func newRowValidator() *rowValidator {
	v := validator.New()
	if err := RegisterValidations(v); err != nil {
		panic(err)
	}
	return &rowValidator{validate: v}
}

// check returns a short description of the first failing field, or "".
func (r *rowValidator) check(value interface{}) string {
	err := r.validate.Struct(value)
	if err == nil {
		return ""
	}
	if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
		if fieldErrs[0].Tag() == "phone" {
			return "Phone Number Invalid."
		}
		return fieldErrs[0].Field() + " is invalid."
	}
	return err.Error()
}
