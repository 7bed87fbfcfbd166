package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/term-sync/internal/browser/browsertest"
	"github.com/jonathan/term-sync/internal/catalog"
	"github.com/jonathan/term-sync/internal/config"
	"github.com/jonathan/term-sync/internal/pipeline"
	"github.com/jonathan/term-sync/internal/site"
	"github.com/jonathan/term-sync/internal/types"
)

func testConfig() config.Config {
	cfg := config.Config{
		LoginURL:     "https://cas.example.edu/login",
		Username:     "jdoe",
		Password:     "secret",
		TermTag:      "Winter",
		TermValue:    "1261",
		Career:       "GRAD",
		OpenOnly:     true,
		FrameMarker:  "CLASS_SEARCH_NEW.GBL",
		SettleMillis: 250,
		Prefixes:     []string{"CPS", "MTH"},
		ResumeAfter:  "CPS",
		Workers:      2,
	}
	return cfg.MergeWithDefaults(config.Defaults())
}

func TestBuildPipeline(t *testing.T) {
	cfg := testConfig()
	store := catalog.NewMemoryStore(nil, nil)
	p := buildPipeline(cfg, site.PeopleSoft(), store, nil, zerolog.Nop())

	assert.Equal(t, "https://cas.example.edu/login", p.Auth.LoginURL)
	assert.Equal(t, "jdoe", p.Auth.Credentials.Username)
	assert.Equal(t, 150*time.Second, p.Auth.MFAWait)

	assert.Equal(t, "CLASS_SEARCH_NEW.GBL", p.Navigator.FrameMarker)
	assert.Equal(t, 250*time.Millisecond, p.Navigator.LoadSettle)
	require.NotEmpty(t, p.Navigator.Steps)
	for _, step := range p.Navigator.Steps {
		assert.Equal(t, 250*time.Millisecond, step.Settle)
	}

	assert.Equal(t, "1261", p.Search.Params.TermValue)
	assert.Equal(t, "GRAD", p.Search.Params.Career)
	assert.Equal(t, "G", p.Search.Params.MatchMode)
	assert.Equal(t, "0", p.Search.Params.CatalogNumber)
	assert.True(t, p.Search.Params.OpenOnly)
	assert.Equal(t, 10*time.Second, p.Search.OutcomeWait)

	assert.Equal(t, "Winter", p.Sync.TermTag)
	assert.Nil(t, p.Recorder)

	opts := runOptions(cfg)
	assert.Equal(t, []string{"CPS", "MTH"}, opts.Only)
	assert.Equal(t, "CPS", opts.ResumeAfter)
	assert.Equal(t, 2, opts.Workers)
}

func TestBuildPipeline_LeavesProfileUntouched(t *testing.T) {
	profile := site.PeopleSoft()
	before := profile.Menu[0].Settle

	buildPipeline(testConfig(), profile, catalog.NewMemoryStore(nil, nil), nil, zerolog.Nop())

	assert.Equal(t, before, profile.Menu[0].Settle)
	assert.Equal(t, site.DefaultFrameMarker, profile.FrameMarker)
}

func TestExecuteSync_AbortPrintsSummary(t *testing.T) {
	cfg := testConfig()
	cfg.Verbose = true
	cfg.ResumeAfter = ""
	cfg.Workers = 1
	store := catalog.NewMemoryStore([]types.Department{{ID: 1, Name: "CS", Prefixes: []string{"CPS", "MTH"}}}, nil)
	p := buildPipeline(cfg, site.PeopleSoft(), store, nil, zerolog.Nop())

	// A blank login page: the username field never exists.
	launcher := browsertest.NewLauncher(browsertest.NewPage("about:blank"))

	var out bytes.Buffer
	summary, err := executeSync(context.Background(), p, launcher, cfg, &out, zerolog.Nop())

	var abort *pipeline.AbortError
	require.ErrorAs(t, err, &abort)
	assert.Equal(t, pipeline.StageLogin, abort.Stage)
	require.NotNil(t, summary)
	assert.True(t, summary.Aborted)
	assert.Equal(t, 2, summary.CountOutcome(types.OutcomeSkipped))
	assert.Contains(t, out.String(), "TERM SYNC SUMMARY")
	assert.Contains(t, out.String(), "aborted")
}

func TestExecuteSync_NoPrefixes(t *testing.T) {
	cfg := testConfig()
	cfg.Prefixes = nil
	cfg.ResumeAfter = ""
	store := catalog.NewMemoryStore(nil, nil)
	p := buildPipeline(cfg, site.PeopleSoft(), store, nil, zerolog.Nop())
	launcher := browsertest.NewLauncher()

	var out bytes.Buffer
	summary, err := executeSync(context.Background(), p, launcher, cfg, &out, zerolog.Nop())

	require.NoError(t, err)
	assert.Empty(t, summary.Prefixes)
	assert.Zero(t, launcher.Launched())
	assert.Empty(t, out.String())
}
