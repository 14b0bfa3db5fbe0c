package ai

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var configValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the static configuration of provider: a well-formed base
// URL, non-empty model ids and a positive rate limit when one is set.
// A missing key is checked separately by ValidateCredentials since keys are
// resolved at construction, not stored in the configuration.
func (c ProviderConfiguration) Validate(provider string) error {
	err := configValidator.Struct(c)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return NewInvalidConfiguration(provider, err.Error())
	}

	problems := make([]string, 0, len(validationErrs))
	for _, fieldErr := range validationErrs {
		problems = append(problems, describeFieldError(fieldErr))
	}
	return NewInvalidConfiguration(provider, strings.Join(problems, "; "))
}

// ValidateCredentials fails when the configuration requires a key and none was supplied.
func (c ProviderConfiguration) ValidateCredentials(provider, apiKey string) error {
	if c.RequiresAPIKey && strings.TrimSpace(apiKey) == "" {
		return NewInvalidConfiguration(provider, "API key is required")
	}
	return nil
}

func describeFieldError(fieldErr validator.FieldError) string {
	switch fieldErr.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fieldErr.Namespace())
	case "url":
		return fmt.Sprintf("%s %q is not a valid URL", fieldErr.Namespace(), fieldErr.Value())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fieldErr.Namespace(), fieldErr.Param())
	}
	return fmt.Sprintf("%s failed %q validation", fieldErr.Namespace(), fieldErr.Tag())
}
