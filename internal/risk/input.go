package risk

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// TextInput is the request for the text pipeline. A nil Text means the field
// was absent; an empty string is a valid message.
type TextInput struct {
	Text *string `json:"text" validate:"required"`
}

// URLInput is the request for the URL pipeline.
type URLInput struct {
	URL *string `json:"url" validate:"required"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks that every required field is present. The returned error wraps ErrInvalidInput.
func Validate(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, strings.ToLower(fe.Field()))
		}
		return fmt.Errorf("%w: missing required field %s", ErrInvalidInput, strings.Join(fields, ", "))
	}
	return fmt.Errorf("%w: %v", ErrInvalidInput, err)
}
