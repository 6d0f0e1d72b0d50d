package validate

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Struct runs the validate tags of a request DTO and flattens any failures
// into a single error suitable for a 400 response body.
func Struct(data any) error {
	err := validate.Struct(data)
	if err == nil {
		return nil
	}

	violations, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	parts := make([]string, 0, len(violations))
	for _, violation := range violations {
		parts = append(parts, fmt.Sprintf("%s failed on %s", violation.Field(), violation.Tag()))
	}
	return fmt.Errorf("validation: %s", strings.Join(parts, "; "))
}
