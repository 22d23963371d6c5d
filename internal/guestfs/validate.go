package guestfs

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidationError represents a field-level validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors holds every problem found in a request
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v *ValidationErrors) Error() string {
	if len(v.Errors) == 0 {
		return "validation failed"
	}
	messages := make([]string, len(v.Errors))
	for i, e := range v.Errors {
		messages[i] = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// Validate checks the fields every request needs regardless of state.
func (r *Request) Validate() error {
	if err := validate.Struct(r); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		out := &ValidationErrors{}
		for _, e := range fieldErrs {
			out.Errors = append(out.Errors, ValidationError{
				Field:   toSnakeCase(e.Field()),
				Message: formatValidationMessage(e),
			})
		}
		return out
	}

	if err := r.Credentials.check(); err != nil {
		return &ValidationErrors{Errors: []ValidationError{{Field: "credentials", Message: err.Error()}}}
	}
	return nil
}

// check enforces the secret each credential type needs.
func (c *Credentials) check() error {
	switch c.Type {
	case CredentialUsernamePassword:
		if c.UserName == "" {
			return fmt.Errorf("user_name is required for %s", CredentialUsernamePassword)
		}
	case CredentialSAMLBearerToken:
		if c.SAMLToken == "" {
			return fmt.Errorf("saml_token is required for %s", CredentialSAMLBearerToken)
		}
	}
	return nil
}

func formatValidationMessage(e validator.FieldError) string {
	field := toSnakeCase(e.Field())
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, e.Tag())
	}
}

// toSnakeCase converts PascalCase field names to snake_case; runs of
// capitals such as "VM" or "SAML" stay one word.
func toSnakeCase(s string) string {
	var result strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if r >= 'A' && r <= 'Z' {
			nextLower := i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z'
			prevLower := i > 0 && runes[i-1] >= 'a' && runes[i-1] <= 'z'
			if i > 0 && (prevLower || nextLower) {
				result.WriteByte('_')
			}
			result.WriteRune(r + 'a' - 'A')
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}
