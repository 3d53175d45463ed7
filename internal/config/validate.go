package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError lists every missing or malformed setting at once, so a
// misconfigured deployment is fixed in one pass.
type ValidationError struct {
	Missing []string
	Invalid []string
}

func (e *ValidationError) Error() string {
	parts := []string{}
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required settings: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid settings: "+strings.Join(e.Invalid, ", "))
	}
	return strings.Join(parts, "; ")
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		if name := field.Tag.Get("env"); name != "" {
			return name
		}
		return field.Name
	})
	return v
}

// ResolveEnv returns env with the document's per-sink overrides applied.
func (d *AlertDocument) ResolveEnv(env EnvConfig) EnvConfig {
	if d.Output.Twilio != nil {
		if d.Output.Twilio.From != "" {
			env.Twilio.From = d.Output.Twilio.From
		}
		if d.Output.Twilio.To != "" {
			env.Twilio.To = d.Output.Twilio.To
		}
	}
	if d.Output.SMTP != nil {
		if d.Output.SMTP.From != "" {
			env.SMTP.From = d.Output.SMTP.From
		}
		if d.Output.SMTP.To != "" {
			env.SMTP.To = d.Output.SMTP.To
		}
	}
	if d.Output.Telegram != nil && d.Output.Telegram.ChatID != 0 {
		env.Telegram.ChatID = d.Output.Telegram.ChatID
	}
	if env.StoreDSN == "" {
		env.StoreDSN = d.Store.DSN
	}
	return env
}

// ValidateCredentials checks the credentials needed by the configured source,
// sink, and store. It performs no I/O and must run before any network call.
func ValidateCredentials(doc *AlertDocument, env EnvConfig) error {
	env = doc.ResolveEnv(env)
	v := newValidator()
	verr := &ValidationError{}

	check := func(s interface{}) error {
		err := v.Struct(s)
		if err == nil {
			return nil
		}
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("validate settings: %w", err)
		}
		for _, fe := range fieldErrs {
			if fe.Tag() == "required" {
				verr.Missing = append(verr.Missing, fe.Field())
				continue
			}
			verr.Invalid = append(verr.Invalid, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
		}
		return nil
	}

	var targets []interface{}
	if doc.Source.Adzuna != nil {
		targets = append(targets, env.Adzuna)
	}
	switch doc.OutputKind() {
	case "smtp":
		targets = append(targets, env.SMTP)
	case "telegram":
		targets = append(targets, env.Telegram)
	default:
		targets = append(targets, env.Twilio)
	}
	for _, target := range targets {
		if err := check(target); err != nil {
			return err
		}
	}
	if doc.Store.Type == StorePostgres && env.StoreDSN == "" {
		verr.Missing = append(verr.Missing, "STORE_DSN")
	}

	if len(verr.Missing) > 0 || len(verr.Invalid) > 0 {
		return verr
	}
	return nil
}
