package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jonathan/term-sync/internal/config"
	"github.com/jonathan/term-sync/internal/logging"
)

// runFlags are the run-scope flags shared by sync and schedule.
type runFlags struct {
	loginURL       string
	databaseURL    string
	term           string
	termValue      string
	career         string
	openOnly       bool
	frameMarker    string
	headless       bool
	workers        int
	prefixes       []string
	resumeAfter    string
	diagnosticsDir string
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.loginURL, "login-url", "", "Login page URL")
	cmd.Flags().StringVar(&f.databaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")
	cmd.Flags().StringVarP(&f.term, "term", "t", "", "Term tag to apply (Fall, Winter, Spring, Summer)")
	cmd.Flags().StringVar(&f.termValue, "term-value", "", "Term selector value on the search form (e.g. 1259)")
	cmd.Flags().StringVar(&f.career, "career", "", "Course career selector value (e.g. UGRD)")
	cmd.Flags().BoolVar(&f.openOnly, "open-only", false, "Restrict searches to open sections")
	cmd.Flags().StringVar(&f.frameMarker, "frame-marker", "", "Substring identifying the class search frame address")
	cmd.Flags().BoolVar(&f.headless, "headless", true, "Run Chrome headless")
	cmd.Flags().IntVarP(&f.workers, "workers", "w", 0, "Parallel browser sessions (1-8)")
	cmd.Flags().StringSliceVarP(&f.prefixes, "prefix", "p", nil, "Only process these prefixes (repeatable)")
	cmd.Flags().StringVar(&f.resumeAfter, "resume-after", "", "Skip every prefix up to and including this one")
	cmd.Flags().StringVar(&f.diagnosticsDir, "diagnostics-dir", "", "Directory for screenshots taken when a session aborts")
}

// apply copies explicitly set flags over cfg.
func (f *runFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("login-url") {
		cfg.LoginURL = f.loginURL
	}
	if flags.Changed("db-url") {
		cfg.DatabaseURL = f.databaseURL
	}
	if flags.Changed("term") {
		cfg.TermTag = f.term
	}
	if flags.Changed("term-value") {
		cfg.TermValue = f.termValue
	}
	if flags.Changed("career") {
		cfg.Career = f.career
	}
	if flags.Changed("open-only") {
		cfg.OpenOnly = f.openOnly
	}
	if flags.Changed("frame-marker") {
		cfg.FrameMarker = f.frameMarker
	}
	if flags.Changed("headless") {
		headless := f.headless
		cfg.Headless = &headless
	}
	if flags.Changed("workers") {
		cfg.Workers = f.workers
	}
	if flags.Changed("prefix") {
		cfg.Prefixes = f.prefixes
	}
	if flags.Changed("resume-after") {
		cfg.ResumeAfter = f.resumeAfter
	}
	if flags.Changed("diagnostics-dir") {
		cfg.DiagnosticsDir = f.diagnosticsDir
	}
}

// loadConfig resolves the effective configuration: file, then flags, then environment,
// then defaults. extra applies command-specific flags.
func loadConfig(cmd *cobra.Command, extra func(*config.Config)) (config.Config, error) {
	// Step 1: Load config file if provided
	var cfg config.Config
	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return cfg, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loaded
	}

	// Step 2: Apply CLI overrides (only flags that were explicitly set)
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if cmd.Flags().Changed("log-format") {
		cfg.LogFormat = logFormat
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = verbose
	}
	if extra != nil {
		extra(&cfg)
	}

	// Step 3: Environment fallbacks, then defaults for anything still unset
	cfg.ApplyEnv(os.Getenv)
	cfg = cfg.MergeWithDefaults(config.Defaults())

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func newLogger(cfg config.Config) (zerolog.Logger, error) {
	return logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: logging.Format(cfg.LogFormat),
		Out:    os.Stderr,
	})
}
