// Package search drives the class search form for one prefix and classifies the outcome.
package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/jonathan/term-sync/internal/browser"
	"github.com/jonathan/term-sync/internal/types"
)

// Defaults.
const (
	DefaultOutcomeWait = 10 * time.Second
	DefaultFieldSettle = time.Second
)

// Form is the search form schema. Career and OpenOnly are normally non-essential.
type Form struct {
	Term          browser.Control
	Subject       browser.Control
	MatchMode     browser.Control
	CatalogNumber browser.Control
	Career        browser.Control
	OpenOnly      browser.Control
	Submit        browser.Control
}

// Markers are the post-submit signals and the row source.
type Markers struct {
	Results browser.Control
	// Truncated is the "more results than the default page" indicator; ViewAll dismisses
	// it and asks for the full list.
	Truncated browser.Control
	ViewAll   browser.Control
	// NoResults is an optional explicit message that ends the wait early.
	NoResults browser.Control
	Rows      browser.Control
}

// Params are the fixed search parameters; only the subject prefix varies per search.
type Params struct {
	TermValue     string `json:"term_value"`
	MatchMode     string `json:"match_mode"`
	CatalogNumber string `json:"catalog_number"`
	Career        string `json:"career"`
	OpenOnly      bool   `json:"open_only"`
}

// DefaultParams returns the parameters the scraper has always searched with.
func DefaultParams() Params {
	return Params{
		TermValue:     "1259",
		MatchMode:     "G",
		CatalogNumber: "0",
		Career:        "UGRD",
	}
}

// Result is what one submitted search produced.
type Result struct {
	Prefix  string
	Outcome types.SearchOutcome
	Rows    []string
	// ViewAll is true when the truncation indicator was seen and dismissed.
	ViewAll bool
}

// Driver is the Search Driver.
type Driver struct {
	Form    Form
	Markers Markers
	Params  Params

	OutcomeWait  time.Duration
	FieldSettle  time.Duration // negative disables
	PollInterval time.Duration

	Log zerolog.Logger
}

// Search fills the form for prefix, submits it and waits for an outcome. Missing essential
// controls are returned as errors; no results is a normal outcome.
func (d *Driver) Search(ctx context.Context, frame browser.Surface, prefix string) (*Result, error) {
	log := d.Log.With().Str("component", "search").Str("prefix", prefix).Logger()

	if err := d.fill(ctx, frame, prefix, log); err != nil {
		return nil, err
	}
	if _, err := browser.Click(ctx, frame, d.Form.Submit, log); err != nil {
		return nil, fmt.Errorf("failed to submit search: %w", err)
	}
	log.Debug().Msg("search submitted")

	res := &Result{Prefix: prefix}
	outcome, err := d.awaitOutcome(ctx, frame, res, log)
	if err != nil {
		return nil, err
	}
	res.Outcome = outcome
	if outcome == types.OutcomeNoResults {
		log.Info().Msg("no results")
		return res, nil
	}

	rows, err := d.readRows(ctx, frame)
	if err != nil {
		return nil, fmt.Errorf("failed to read result rows: %w", err)
	}
	res.Rows = rows
	log.Info().Str("outcome", string(outcome)).Int("rows", len(rows)).Msg("results read")
	return res, nil
}

func (d *Driver) fill(ctx context.Context, frame browser.Surface, prefix string, log zerolog.Logger) error {
	p := d.Params
	steps := []struct {
		name string
		do   func() (bool, error)
	}{
		{"term", func() (bool, error) { return browser.Select(ctx, frame, d.Form.Term, p.TermValue, log) }},
		{"subject", func() (bool, error) { return browser.Fill(ctx, frame, d.Form.Subject, prefix, log) }},
		{"match mode", func() (bool, error) { return browser.Select(ctx, frame, d.Form.MatchMode, p.MatchMode, log) }},
		{"catalog number", func() (bool, error) { return browser.Fill(ctx, frame, d.Form.CatalogNumber, p.CatalogNumber, log) }},
		{"career", func() (bool, error) { return browser.Select(ctx, frame, d.Form.Career, p.Career, log) }},
		{"open only", func() (bool, error) { return browser.SetChecked(ctx, frame, d.Form.OpenOnly, p.OpenOnly, log) }},
	}
	for _, s := range steps {
		done, err := s.do()
		if err != nil {
			return fmt.Errorf("failed to set %s: %w", s.name, err)
		}
		// PeopleSoft re-renders the form after each change.
		if done {
			if err := browser.Settle(ctx, d.fieldSettle()); err != nil {
				return err
			}
		}
	}
	return nil
}

// awaitOutcome polls until results, truncation or an explicit no-results message shows up.
// Truncation is checked first on every tick since it can coexist with the result list.
func (d *Driver) awaitOutcome(ctx context.Context, frame browser.Surface, res *Result, log zerolog.Logger) (types.SearchOutcome, error) {
	wait := d.OutcomeWait
	if wait <= 0 {
		wait = DefaultOutcomeWait
	}
	deadline := time.Now().Add(wait)

	var outcome types.SearchOutcome
	err := browser.Poll(ctx, wait, d.PollInterval, func(ctx context.Context) (bool, error) {
		if browser.Present(ctx, frame, d.Markers.Truncated) != nil {
			outcome = types.OutcomePaginated
			return true, nil
		}
		if browser.Present(ctx, frame, d.Markers.Results) != nil {
			outcome = types.OutcomeResults
			return true, nil
		}
		if len(d.Markers.NoResults.Locators) > 0 && browser.Present(ctx, frame, d.Markers.NoResults) != nil {
			outcome = types.OutcomeNoResults
			return true, nil
		}
		return false, nil
	})
	switch {
	case errors.Is(err, browser.ErrTimeout):
		if browser.Present(ctx, frame, d.Markers.Truncated) == nil {
			return types.OutcomeNoResults, nil
		}
		outcome = types.OutcomePaginated
	case err != nil:
		return "", err
	}

	if outcome != types.OutcomePaginated {
		return outcome, nil
	}

	res.ViewAll = d.viewAll(ctx, frame, log)
	if res.ViewAll {
		// The truncated list stays on the page until the full one replaces it.
		err := browser.Poll(ctx, d.remaining(deadline), d.PollInterval, func(ctx context.Context) (bool, error) {
			return browser.Present(ctx, frame, d.Markers.Truncated) == nil, nil
		})
		switch {
		case errors.Is(err, browser.ErrTimeout):
			log.Warn().Msg("truncation notice still shown after view all, reading what is there")
		case err != nil:
			return "", err
		}
	}
	if _, err := browser.WaitForAny(ctx, frame, d.remaining(deadline), d.PollInterval, d.Markers.Results.Locators...); err != nil {
		if !errors.Is(err, browser.ErrTimeout) {
			return "", err
		}
		log.Warn().Msg("result list did not appear after truncation notice, reading what is there")
	}
	return types.OutcomePaginated, nil
}

// remaining is the time left before deadline, at least one poll interval.
func (d *Driver) remaining(deadline time.Time) time.Duration {
	if r := time.Until(deadline); r > d.pollInterval() {
		return r
	}
	return d.pollInterval()
}

func (d *Driver) viewAll(ctx context.Context, frame browser.Surface, log zerolog.Logger) bool {
	done, err := browser.Click(ctx, frame, d.Markers.ViewAll, log)
	if err != nil {
		log.Warn().Err(err).Str("control", d.Markers.ViewAll.Name).Msg("view-all unavailable, reading partial results")
		return false
	}
	return done
}

func (d *Driver) readRows(ctx context.Context, frame browser.Surface) ([]string, error) {
	var lastErr error
	for _, loc := range d.Markers.Rows.Locators {
		texts, err := frame.Texts(ctx, loc)
		if err != nil {
			lastErr = err
			continue
		}
		if len(texts) > 0 {
			return texts, nil
		}
	}
	return nil, lastErr
}

func (d *Driver) fieldSettle() time.Duration {
	switch {
	case d.FieldSettle > 0:
		return d.FieldSettle
	case d.FieldSettle < 0:
		return 0
	default:
		return DefaultFieldSettle
	}
}

func (d *Driver) pollInterval() time.Duration {
	if d.PollInterval > 0 {
		return d.PollInterval
	}
	return browser.DefaultPollInterval
}
