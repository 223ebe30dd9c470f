package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator is implemented by payloads with cross-field rules
type Validator interface {
	Validate() error
}

var (
	// Validate is the shared go-playground instance with the editor rules registered
	Validate *validator.Validate

	nodeIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_.:-]+$`)
	formIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)
)

func init() {
	Validate = validator.New()

	Validate.RegisterValidation("node_id", validateNodeID)
	Validate.RegisterValidation("form_id", validateFormID)

	// Report JSON field names, not Go field names
	Validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
}

// ValidateStruct runs the tag rules, then the payload's own Validate method
func ValidateStruct(s interface{}) error {
	if err := Validate.Struct(s); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			return formatValidationErrors(fieldErrs)
		}
		return err
	}
	if v, ok := s.(Validator); ok {
		return v.Validate()
	}
	return nil
}

// IsNodeID reports whether s is an acceptable node identifier
func IsNodeID(s string) bool {
	return len(s) <= 100 && nodeIDPattern.MatchString(s)
}

// IsFormID reports whether s is an acceptable form identifier
func IsFormID(s string) bool {
	return len(s) <= 64 && formIDPattern.MatchString(s)
}

func formatValidationErrors(fieldErrs validator.ValidationErrors) ValidationErrors {
	out := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, ValidationError{
			Field:   fe.Field(),
			Value:   fe.Value(),
			Message: getErrorMessage(fe),
		})
	}
	return out
}

func getErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field is required"
	case "min":
		return fmt.Sprintf("minimum value/length is %s", fe.Param())
	case "max":
		return fmt.Sprintf("maximum value/length is %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "node_id":
		return "must be a valid node identifier"
	case "form_id":
		return "must be a valid form identifier (lowercase alphanumeric, underscore, hyphen)"
	default:
		return fmt.Sprintf("validation failed: %s", fe.Tag())
	}
}

func validateNodeID(fl validator.FieldLevel) bool {
	return IsNodeID(fl.Field().String())
}

func validateFormID(fl validator.FieldLevel) bool {
	return IsFormID(fl.Field().String())
}
