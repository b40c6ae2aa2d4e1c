package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/msto63/dolmetscher/pkg/core/apperr"
)

// validate is the shared validator instance
var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// Report toml key names instead of Go field names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("toml"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
}

// Validate checks field constraints and cross-field rules. Any violation
// is reported as INVALID_CONFIG with the offending key as detail.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if ok := asValidationErrors(err, &verrs); ok && len(verrs) > 0 {
			first := verrs[0]
			key := strings.TrimPrefix(first.Namespace(), "Config.")
			e := apperr.Newf(apperr.CodeInvalidConfig, "%s %s", key, formatValidationMessage(first)).
				WithDetail("field", key)
			if len(verrs) > 1 {
				e = e.WithDetail("more", len(verrs)-1)
			}
			return e
		}
		return apperr.Wrap(err, apperr.CodeInvalidConfig, "config validation failed")
	}

	switch {
	case c.Silence.Duration.Duration <= 0:
		return invalid("silence.duration", "must be positive")
	case c.Session.MaxUtterance.Duration < 0:
		return invalid("session.max_utterance", "must not be negative")
	case c.Memory.Interval.Duration <= 0:
		return invalid("memory.interval", "must be positive")
	case c.Memory.Critical <= c.Memory.Warning:
		return invalid("memory.critical", "must be above memory.warning")
	case c.Hotkey.Enabled && c.Hotkey.Key == "":
		return invalid("hotkey.key", "is required when the hotkey is enabled")
	}

	for _, p := range c.Models.TranslationPairs {
		from, to, ok := strings.Cut(p, "-")
		if !ok || !supportedLanguage(from) || !supportedLanguage(to) {
			return invalid("models.translation_pairs", fmt.Sprintf("has invalid pair %q", p))
		}
	}
	return nil
}

func invalid(key, msg string) error {
	return apperr.Newf(apperr.CodeInvalidConfig, "%s %s", key, msg).WithDetail("field", key)
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	verrs, ok := err.(validator.ValidationErrors)
	if ok {
		*target = verrs
	}
	return ok
}

func supportedLanguage(code string) bool {
	switch code {
	case "en", "fr", "es", "de", "it", "pt":
		return true
	}
	return false
}

// formatValidationMessage creates a human-readable message from a validator error
func formatValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", e.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", e.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", e.Param())
	case "lt":
		return fmt.Sprintf("must be less than %s", e.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", e.Param())
	case "url":
		return "must be a valid URL"
	case "len":
		return fmt.Sprintf("must have length %s", e.Param())
	default:
		return fmt.Sprintf("failed validation '%s'", e.Tag())
	}
}
