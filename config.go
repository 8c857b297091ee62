package identity

import (
	"encoding/json"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/goliatone/go-errors"
)

// Config is the explicit configuration object built once at process
// start and passed into the auth components; nothing here is read from
// ambient globals after load.
type Config struct {
	SigningSecret  string
	SignupDisabled bool
	DatabaseDSN    string
	SeedAdmin      *SeedAdmin
	Providers      []ProviderConfig
}

// ResolveSecret returns the effective signing secret: the configured
// one, or a secret derived from the deployment fingerprint.
func (c Config) ResolveSecret(logger Logger) string {
	return ResolveSigningSecret(logger, c.SigningSecret, c.DatabaseDSN, c.seedFingerprint())
}

func (c Config) seedFingerprint() string {
	if c.SeedAdmin == nil {
		return ""
	}
	return c.SeedAdmin.Email
}

// ProviderConfig is a tagged provider-configuration variant. The
// enabled set is built by explicit construction from the environment,
// never by runtime type probing.
type ProviderConfig interface {
	ProviderName() string
}

// OAuthProviderConfig configures a third-party OAuth provider.
type OAuthProviderConfig struct {
	Name         string
	ClientID     string
	ClientSecret string
}

func (c OAuthProviderConfig) ProviderName() string { return c.Name }

// SSOProviderConfig configures an enterprise SSO provider.
type SSOProviderConfig struct {
	Name         string
	IssuerURL    string
	ClientID     string
	ClientSecret string
}

func (c SSOProviderConfig) ProviderName() string { return c.Name }

// CredentialsProviderConfig enables the local username/password path.
type CredentialsProviderConfig struct {
	Seed *SeedAdmin
}

func (CredentialsProviderConfig) ProviderName() string { return ProviderCredentials }

// rawEnv holds the raw env values consumed by this core. Provider
// enablement derives from presence of the provider's credentials.
type rawEnv struct {
	SigningSecret     string `env:"IDENTITY_SIGNING_SECRET"`
	SignupDisabled    bool   `env:"IDENTITY_SIGNUP_DISABLED"`
	DatabaseDSN       string `env:"IDENTITY_DATABASE_DSN"`
	SeedAdminJSON     string `env:"IDENTITY_SEED_ADMIN"`
	SeedAdminEmail    string `env:"IDENTITY_SEED_ADMIN_EMAIL"`
	SeedAdminPassword string `env:"IDENTITY_SEED_ADMIN_PASSWORD"`

	GoogleClientID     string `env:"IDENTITY_GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"IDENTITY_GOOGLE_CLIENT_SECRET"`
	GithubClientID     string `env:"IDENTITY_GITHUB_CLIENT_ID"`
	GithubClientSecret string `env:"IDENTITY_GITHUB_CLIENT_SECRET"`
	SSOIssuerURL       string `env:"IDENTITY_SSO_ISSUER_URL"`
	SSOClientID        string `env:"IDENTITY_SSO_CLIENT_ID"`
	SSOClientSecret    string `env:"IDENTITY_SSO_CLIENT_SECRET"`
}

// LoadConfigFromEnv loads the configuration surface from environment
// variables.
func LoadConfigFromEnv(logger Logger) (Config, error) {
	if logger == nil {
		logger = defLogger{}
	}

	var raw rawEnv
	if err := env.Parse(&raw); err != nil {
		return Config{}, errors.Wrap(err, errors.CategoryBadInput, "failed to parse environment")
	}

	cfg := Config{
		SigningSecret:  raw.SigningSecret,
		SignupDisabled: raw.SignupDisabled,
		DatabaseDSN:    raw.DatabaseDSN,
		SeedAdmin:      seedFromEnv(raw, logger),
	}
	cfg.Providers = buildProviders(raw, cfg.SeedAdmin)

	return cfg, nil
}

// seedFromEnv prefers the JSON blob form; the split email/password
// variables are the fallback.
func seedFromEnv(raw rawEnv, logger Logger) *SeedAdmin {
	seed := &SeedAdmin{}
	if ParseJSONEnv(raw.SeedAdminJSON, seed, logger) && seed.Email != "" && seed.Password != "" {
		return seed
	}

	if raw.SeedAdminEmail != "" && raw.SeedAdminPassword != "" {
		return &SeedAdmin{Email: raw.SeedAdminEmail, Password: raw.SeedAdminPassword}
	}

	return nil
}

func buildProviders(raw rawEnv, seed *SeedAdmin) []ProviderConfig {
	providers := []ProviderConfig{
		CredentialsProviderConfig{Seed: seed},
	}

	if raw.GoogleClientID != "" && raw.GoogleClientSecret != "" {
		providers = append(providers, OAuthProviderConfig{
			Name:         "google",
			ClientID:     raw.GoogleClientID,
			ClientSecret: raw.GoogleClientSecret,
		})
	}

	if raw.GithubClientID != "" && raw.GithubClientSecret != "" {
		providers = append(providers, OAuthProviderConfig{
			Name:         "github",
			ClientID:     raw.GithubClientID,
			ClientSecret: raw.GithubClientSecret,
		})
	}

	if raw.SSOIssuerURL != "" && raw.SSOClientID != "" && raw.SSOClientSecret != "" {
		providers = append(providers, SSOProviderConfig{
			Name:         "sso",
			IssuerURL:    raw.SSOIssuerURL,
			ClientID:     raw.SSOClientID,
			ClientSecret: raw.SSOClientSecret,
		})
	}

	return providers
}

// ParseJSONEnv decodes a JSON value held in an environment variable
// into out. It returns false for an empty value, for the JSON empty
// string, and for malformed input; malformed input is additionally
// logged. Callers must treat "no config" and "malformed config" the
// same way.
func ParseJSONEnv(raw string, out any, logger Logger) bool {
	if logger == nil {
		logger = defLogger{}
	}

	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed == `""` {
		return false
	}

	if err := json.Unmarshal([]byte(trimmed), out); err != nil {
		logger.Error("failed to parse JSON env value: %v", err)
		return false
	}

	return true
}
