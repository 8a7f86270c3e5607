package httpapi

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/go-playground/validator/v10"
)

var (
	usernamePattern   = regexp.MustCompile(`^[a-zA-Z0-9._]+$`)
	personNamePattern = regexp.MustCompile(`^[a-zA-Z\s-]+$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	mustRegister(v, "username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "personname", func(fl validator.FieldLevel) bool {
		return personNamePattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "gender", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case "male", "Male", "female", "Female":
			return true
		}
		return false
	})

	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

// validateBody runs struct validation and converts the first failure into a
// field-level ValidationFailed error.
func validateBody(body any) error {
	err := validate.Struct(body)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return badBody(err)
	}

	fe := fieldErrs[0]
	return &goAccount.Error{
		Kind:    goAccount.ErrValidationFailed,
		Field:   fe.Field(),
		Message: fieldMessage(fe),
	}
}

func fieldMessage(fe validator.FieldError) string {
	name := fe.Field()

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%q is required", name)
	case "email":
		return fmt.Sprintf("%q must be a valid email", name)
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%q length must be at least %s characters long", name, fe.Param())
		}
		return fmt.Sprintf("%q must be greater than or equal to %s", name, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%q length must be less than or equal to %s characters long", name, fe.Param())
		}
		return fmt.Sprintf("%q must be less than or equal to %s", name, fe.Param())
	case "username":
		return "Username must consist of alphanumeric characters only"
	case "personname":
		return "Name must be letters only"
	case "gender":
		return `"gender" must be either male, Male, female, or Female`
	case "eqfield":
		return "Passwords do not match"
	case "numeric":
		return fmt.Sprintf("%q must be a number", name)
	}

	return fmt.Sprintf("%q is invalid", name)
}
