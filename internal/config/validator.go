package config

import (
	"fmt"
	"strings"
)

type SecretValidator struct {
	config   *Config
	errors   []string
	warnings []string
}

func NewSecretValidator(cfg *Config) *SecretValidator {
	return &SecretValidator{
		config:   cfg,
		errors:   []string{},
		warnings: []string{},
	}
}

// Validate checks the secrets the service needs at runtime. Missing secrets are
// fatal in production and reported as warnings everywhere else.
func (v *SecretValidator) Validate() error {
	isProduction := v.config.App.IsProduction()

	v.validateWebhookSecret(isProduction)
	v.validateOpenAIKey(isProduction)
	v.validateEmailProvider(isProduction)
	v.validateJobs()

	if len(v.errors) > 0 {
		return fmt.Errorf("secret validation failed:\n%s", strings.Join(v.errors, "\n"))
	}

	return nil
}

// Warnings returns the non-fatal findings of the last Validate call.
func (v *SecretValidator) Warnings() []string {
	return v.warnings
}

func (v *SecretValidator) validateWebhookSecret(isProduction bool) {
	secret := v.config.Webhook.Secret

	if secret == "" {
		v.addError("webhook.secret is not set; inbound email webhooks will be rejected", isProduction)
		return
	}

	if !strings.HasPrefix(secret, "whsec_") {
		v.addWarning("webhook.secret does not carry the whsec_ prefix")
	}
}

func (v *SecretValidator) validateOpenAIKey(isProduction bool) {
	if v.config.OpenAI.APIKey == "" {
		v.addError("openai.api_key is not set", isProduction)
	}
	if v.config.OpenAI.MaxTokens <= 0 {
		v.addWarning("openai.max_tokens should be positive")
	}
}

func (v *SecretValidator) validateEmailProvider(isProduction bool) {
	switch v.config.Email.Provider {
	case "resend":
		if v.config.Email.ResendAPIKey == "" {
			v.addError("email.resend_api_key is not set", isProduction)
		}
	case "smtp":
		if v.config.Email.SMTP.Host == "" {
			v.addError("email.smtp.host is not set", isProduction)
		}
	case "log":
		if !v.config.App.IsDevelopment() {
			v.addError(fmt.Sprintf("email.provider=log only prints emails and is meant for development (app.env=%q)", v.config.App.Env), isProduction)
		}
	default:
		v.addError(fmt.Sprintf("unknown email.provider %q", v.config.Email.Provider), true)
	}
}

func (v *SecretValidator) validateJobs() {
	switch v.config.Jobs.Backend {
	case "local", "asynq":
	default:
		v.addError(fmt.Sprintf("unknown jobs.backend %q", v.config.Jobs.Backend), true)
	}
}

func (v *SecretValidator) addError(message string, isProduction bool) {
	if isProduction {
		v.errors = append(v.errors, "   ❌ "+message)
	} else {
		v.warnings = append(v.warnings, "   ⚠️  "+message)
	}
}

func (v *SecretValidator) addWarning(message string) {
	v.warnings = append(v.warnings, "   ⚠️  "+message)
}

func ValidateSecrets(cfg *Config) ([]string, error) {
	validator := NewSecretValidator(cfg)
	err := validator.Validate()
	return validator.Warnings(), err
}
