package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/fiche/internal/history"
	"github.com/starford/fiche/internal/models"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Anthropic AnthropicConfig   `yaml:"anthropic"`
	SQLite    SQLiteConfig      `yaml:"sqlite"`
	Prompts   PromptsConfig     `yaml:"prompts"`
	Auth      AuthConfig        `yaml:"auth"`
	Defaults  DefaultsConfig    `yaml:"defaults"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Anthropic.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return c.Defaults.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// AnthropicConfig holds the generation service credential and default
// model tier. The key in settings takes precedence over APIKey; either
// may be empty until the user configures one.
type AnthropicConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// Validate validates the generation service configuration.
func (c *AnthropicConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Model, validation.In("", history.ModelSonnet, history.ModelHaiku)),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// PromptsConfig holds the directory of per-subject instruction files.
// An empty dir disables custom instructions and hot reload.
type PromptsConfig struct {
	Dir string `yaml:"dir"`
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// DefaultsConfig holds generation defaults applied when neither the
// request nor the stored settings name a value.
type DefaultsConfig struct {
	FontSize int    `yaml:"font_size"`
	Subject  string `yaml:"subject"`
}

// Validate validates the defaults.
func (c *DefaultsConfig) Validate() error {
	if c.Subject != "" && !models.ValidSubject(c.Subject) {
		return fmt.Errorf("defaults: unknown subject %q", c.Subject)
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.FontSize, validation.Min(0), validation.Max(24)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Anthropic: AnthropicConfig{
			Model: history.ModelSonnet,
		},
		SQLite: SQLiteConfig{
			Path: "./fiche.db",
		},
		Prompts: PromptsConfig{
			Dir: "./prompts",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Defaults: DefaultsConfig{
			FontSize: 14,
		},
	}
}
