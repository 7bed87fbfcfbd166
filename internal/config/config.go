// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/jonathan/term-sync/internal/schemas"
	"github.com/jonathan/term-sync/internal/types"
)

// Environment variables consulted when the matching field is empty.
const (
	EnvDatabaseURL = "DATABASE_URL"
	EnvUsername    = "TERM_SYNC_USERNAME"
	EnvPassword    = "TERM_SYNC_PASSWORD"
	EnvOneTimeCode = "TERM_SYNC_OTP"
)

// Config represents the CLI configuration that can be loaded from a JSON or YAML file.
// All fields are optional; missing values use defaults or must be provided via CLI flags
// or the environment.
type Config struct {
	// Target site and credentials
	LoginURL    string `json:"login_url,omitempty" yaml:"login_url,omitempty" validate:"omitempty,url"`
	Username    string `json:"username,omitempty" yaml:"username,omitempty"`
	Password    string `json:"password,omitempty" yaml:"password,omitempty"`
	OneTimeCode string `json:"one_time_code,omitempty" yaml:"one_time_code,omitempty" validate:"omitempty,numeric"`
	DatabaseURL string `json:"database_url,omitempty" yaml:"database_url,omitempty"`

	// Search parameters
	TermTag       string `json:"term_tag,omitempty" yaml:"term_tag,omitempty" validate:"omitempty,termtag"`
	TermValue     string `json:"term_value,omitempty" yaml:"term_value,omitempty"`
	Career        string `json:"career,omitempty" yaml:"career,omitempty"`
	MatchMode     string `json:"match_mode,omitempty" yaml:"match_mode,omitempty" validate:"omitempty,oneof=C E G T L"`
	CatalogNumber string `json:"catalog_number,omitempty" yaml:"catalog_number,omitempty"`
	OpenOnly      bool   `json:"open_only,omitempty" yaml:"open_only,omitempty"`
	FrameMarker   string `json:"frame_marker,omitempty" yaml:"frame_marker,omitempty"`

	// Browser and waits
	Headless           *bool `json:"headless,omitempty" yaml:"headless,omitempty"`
	MFAWaitSeconds     int   `json:"mfa_wait_seconds,omitempty" yaml:"mfa_wait_seconds,omitempty" validate:"gte=0"`
	OutcomeWaitSeconds int   `json:"outcome_wait_seconds,omitempty" yaml:"outcome_wait_seconds,omitempty" validate:"gte=0"`
	SettleMillis       int   `json:"settle_millis,omitempty" yaml:"settle_millis,omitempty" validate:"gte=0"`
	OpTimeoutSeconds   int   `json:"op_timeout_seconds,omitempty" yaml:"op_timeout_seconds,omitempty" validate:"gte=0"`

	// Run scope
	Workers     int      `json:"workers,omitempty" yaml:"workers,omitempty" validate:"omitempty,min=1,max=8"`
	Prefixes    []string `json:"prefixes,omitempty" yaml:"prefixes,omitempty" validate:"dive,required"`
	ResumeAfter string   `json:"resume_after,omitempty" yaml:"resume_after,omitempty"`
	Schedule    string   `json:"schedule,omitempty" yaml:"schedule,omitempty"`

	// Output
	LogLevel       string `json:"log_level,omitempty" yaml:"log_level,omitempty" validate:"omitempty,oneof=trace debug info warn warning error"`
	LogFormat      string `json:"log_format,omitempty" yaml:"log_format,omitempty" validate:"omitempty,oneof=console json"`
	DiagnosticsDir string `json:"diagnostics_dir,omitempty" yaml:"diagnostics_dir,omitempty"`
	Verbose        bool   `json:"verbose,omitempty" yaml:"verbose,omitempty"`
}

// Defaults returns the values used for anything left unset.
func Defaults() Config {
	headless := true
	return Config{
		TermTag:            "Fall",
		TermValue:          "1259",
		Career:             "UGRD",
		MatchMode:          "G",
		CatalogNumber:      "0",
		FrameMarker:        "CLASS_SEARCH.GBL",
		Headless:           &headless,
		MFAWaitSeconds:     150,
		OutcomeWaitSeconds: 10,
		SettleMillis:       3000,
		OpTimeoutSeconds:   30,
		Workers:            1,
		LogLevel:           "info",
		LogFormat:          "console",
	}
}

// LoadConfig loads configuration from a JSON or YAML file (chosen by extension). The
// document is checked against the embedded config schema before decoding.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var doc any
	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
		if err := validateDocument(doc); err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
		if err := validateDocument(doc); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	return &cfg, nil
}

func validateDocument(doc any) error {
	if doc == nil {
		// empty file
		return nil
	}
	if err := schemas.ValidateDocument(schemas.ConfigSchema, doc); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	return nil
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for required fields since those are handled
// by RequireRunFields after merging flags, file and environment.
func (c *Config) Validate() error {
	if err := newValidator().Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if c.ResumeAfter != "" && len(c.Prefixes) > 0 && !contains(c.Prefixes, c.ResumeAfter) {
		return fmt.Errorf("config error: 'resume_after' %q is not one of 'prefixes'", c.ResumeAfter)
	}
	return nil
}

// RequireRunFields reports the settings a sync run cannot start without.
func (c *Config) RequireRunFields() error {
	var missing []string
	if c.LoginURL == "" {
		missing = append(missing, "login_url")
	}
	if c.Username == "" {
		missing = append(missing, "username ("+EnvUsername+")")
	}
	if c.Password == "" {
		missing = append(missing, "password ("+EnvPassword+")")
	}
	if c.DatabaseURL == "" {
		missing = append(missing, "database_url ("+EnvDatabaseURL+")")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config error: missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// ApplyEnv fills empty credential and database fields from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if c.DatabaseURL == "" {
		c.DatabaseURL = getenv(EnvDatabaseURL)
	}
	if c.Username == "" {
		c.Username = getenv(EnvUsername)
	}
	if c.Password == "" {
		c.Password = getenv(EnvPassword)
	}
	if c.OneTimeCode == "" {
		c.OneTimeCode = getenv(EnvOneTimeCode)
	}
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	mergeString(&result.LoginURL, defaults.LoginURL)
	mergeString(&result.Username, defaults.Username)
	mergeString(&result.Password, defaults.Password)
	mergeString(&result.OneTimeCode, defaults.OneTimeCode)
	mergeString(&result.DatabaseURL, defaults.DatabaseURL)
	mergeString(&result.TermTag, defaults.TermTag)
	mergeString(&result.TermValue, defaults.TermValue)
	mergeString(&result.Career, defaults.Career)
	mergeString(&result.MatchMode, defaults.MatchMode)
	mergeString(&result.CatalogNumber, defaults.CatalogNumber)
	mergeString(&result.FrameMarker, defaults.FrameMarker)
	mergeString(&result.ResumeAfter, defaults.ResumeAfter)
	mergeString(&result.Schedule, defaults.Schedule)
	mergeString(&result.LogLevel, defaults.LogLevel)
	mergeString(&result.LogFormat, defaults.LogFormat)
	mergeString(&result.DiagnosticsDir, defaults.DiagnosticsDir)

	// Int fields: use default if zero
	mergeInt(&result.MFAWaitSeconds, defaults.MFAWaitSeconds)
	mergeInt(&result.OutcomeWaitSeconds, defaults.OutcomeWaitSeconds)
	mergeInt(&result.SettleMillis, defaults.SettleMillis)
	mergeInt(&result.OpTimeoutSeconds, defaults.OpTimeoutSeconds)
	mergeInt(&result.Workers, defaults.Workers)

	if len(result.Prefixes) == 0 {
		result.Prefixes = defaults.Prefixes
	}
	if result.Headless == nil {
		result.Headless = defaults.Headless
	}

	// Plain bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// IsHeadless reports the headless setting, true when unset.
func (c *Config) IsHeadless() bool {
	return c.Headless == nil || *c.Headless
}

// MFAWait is the second-factor probe window.
func (c *Config) MFAWait() time.Duration {
	return time.Duration(c.MFAWaitSeconds) * time.Second
}

// OutcomeWait is the post-submit outcome detection window.
func (c *Config) OutcomeWait() time.Duration {
	return time.Duration(c.OutcomeWaitSeconds) * time.Second
}

// Settle is the fixed delay after menu clicks.
func (c *Config) Settle() time.Duration {
	return time.Duration(c.SettleMillis) * time.Millisecond
}

// OpTimeout bounds every single browser operation.
func (c *Config) OpTimeout() time.Duration {
	return time.Duration(c.OpTimeoutSeconds) * time.Second
}

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("termtag", func(fl validator.FieldLevel) bool {
		return types.TermTag(fl.Field().String()).IsValid()
	})
	return v
}

func mergeString(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

func mergeInt(dst *int, def int) {
	if *dst == 0 {
		*dst = def
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
