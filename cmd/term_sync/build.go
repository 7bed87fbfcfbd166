package main

import (
	"github.com/rs/zerolog"

	"github.com/jonathan/term-sync/internal/auth"
	"github.com/jonathan/term-sync/internal/browser"
	"github.com/jonathan/term-sync/internal/catalog"
	"github.com/jonathan/term-sync/internal/config"
	"github.com/jonathan/term-sync/internal/navigator"
	"github.com/jonathan/term-sync/internal/pipeline"
	"github.com/jonathan/term-sync/internal/recovery"
	"github.com/jonathan/term-sync/internal/search"
	"github.com/jonathan/term-sync/internal/site"
	"github.com/jonathan/term-sync/internal/termsync"
)

// buildPipeline wires every component from the site profile and cfg. rec may be nil.
func buildPipeline(cfg config.Config, profile site.Profile, store catalog.Store, rec pipeline.Recorder, log zerolog.Logger) *pipeline.Pipeline {
	profile = profile.WithFrameMarker(cfg.FrameMarker)

	steps := make([]navigator.Step, len(profile.Menu))
	copy(steps, profile.Menu)
	for i := range steps {
		steps[i].Settle = cfg.Settle()
	}

	params := search.DefaultParams()
	params.TermValue = cfg.TermValue
	params.MatchMode = cfg.MatchMode
	params.CatalogNumber = cfg.CatalogNumber
	params.Career = cfg.Career
	params.OpenOnly = cfg.OpenOnly

	return &pipeline.Pipeline{
		Store: store,
		Auth: &auth.Authenticator{
			LoginURL: cfg.LoginURL,
			Credentials: auth.Credentials{
				Username:    cfg.Username,
				Password:    cfg.Password,
				OneTimeCode: cfg.OneTimeCode,
			},
			Controls: profile.Login,
			MFAWait:  cfg.MFAWait(),
			Log:      log,
		},
		Navigator: &navigator.Navigator{
			PopupLauncher: profile.PopupLauncher,
			Steps:         steps,
			FrameMarker:   profile.FrameMarker,
			LoadSettle:    cfg.Settle(),
			Log:           log,
		},
		Search: &search.Driver{
			Form:        profile.Form,
			Markers:     profile.Markers,
			Params:      params,
			OutcomeWait: cfg.OutcomeWait(),
			Log:         log,
		},
		Reset:          &recovery.Controller{NewSearch: profile.NewSearch, Ready: profile.Form.Subject, Log: log},
		Sync:           termsync.New(store, cfg.TermTag, log),
		Recorder:       rec,
		DiagnosticsDir: cfg.DiagnosticsDir,
		Log:            log,
	}
}

func newLauncher(cfg config.Config, log zerolog.Logger) *browser.ChromeLauncher {
	return browser.NewChromeLauncher(browser.Options{
		Headless:  cfg.IsHeadless(),
		OpTimeout: cfg.OpTimeout(),
		Log:       log,
	})
}

func runOptions(cfg config.Config) pipeline.RunOptions {
	return pipeline.RunOptions{
		Only:        cfg.Prefixes,
		ResumeAfter: cfg.ResumeAfter,
		Workers:     cfg.Workers,
	}
}
