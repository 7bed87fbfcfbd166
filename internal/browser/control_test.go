package browser_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/term-sync/internal/browser"
	"github.com/jonathan/term-sync/internal/browser/browsertest"
)

var (
	primary  = browser.ByRole("checkbox", "Show Open Classes Only")
	fallback = browser.ByCSS(`label[for="SSR_CLSRCH_WRK_SSR_OPEN_ONLY$3"]`)
)

func TestClick_PrimaryLocator(t *testing.T) {
	page := browsertest.NewPage("https://example.edu").Set(primary)
	c := browser.Optional("open only", primary, fallback)

	done, err := browser.Click(context.Background(), page, c, zerolog.Nop())
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, []string{primary.String()}, page.Clicks())
}

func TestClick_FallsBackWhenPrimaryAbsent(t *testing.T) {
	page := browsertest.NewPage("https://example.edu").Set(fallback)
	c := browser.Optional("open only", primary, fallback)

	done, err := browser.Click(context.Background(), page, c, zerolog.Nop())
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, []string{fallback.String()}, page.Clicks())
}

func TestClick_NonEssentialMissingIsSwallowedAndLogged(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)
	page := browsertest.NewPage("https://example.edu")
	c := browser.Optional("open only", primary, fallback)

	done, err := browser.Click(context.Background(), page, c, log)
	require.NoError(t, err)
	assert.False(t, done)
	assert.Contains(t, buf.String(), `"control":"open only"`)
	assert.Contains(t, buf.String(), `"fallback_attempted":true`)
}

func TestFill_EssentialMissingReturnsControlError(t *testing.T) {
	page := browsertest.NewPage("https://example.edu")
	c := browser.NewControl("subject", browser.ByLabel("Subject"), browser.ByCSS(`input[name="SSR_CLSRCH_WRK_SUBJECT$0"]`))

	done, err := browser.Fill(context.Background(), page, c, "CPS", zerolog.Nop())
	assert.False(t, done)

	var cerr *browser.ControlError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "subject", cerr.Control)
	assert.Equal(t, "fill", cerr.Action)
	assert.Len(t, cerr.Attempts, 2)
	assert.ErrorIs(t, err, browser.ErrNotFound)
}

func TestSelect_FallsBackWhenOptionRejected(t *testing.T) {
	byLabel := browser.ByLabel("Term")
	byID := browser.ByCSS(`select[id^="CLASS_SRCH_WRK2_STRM"]`)
	page := browsertest.NewPage("https://example.edu").
		SetOptions(byLabel, "1251").
		SetOptions(byID, "1259")
	c := browser.NewControl("term", byLabel, byID)

	done, err := browser.Select(context.Background(), page, c, "1259", zerolog.Nop())
	require.NoError(t, err)
	assert.True(t, done)
	v, ok := page.Selected(byID)
	assert.True(t, ok)
	assert.Equal(t, "1259", v)
}

func TestPresent(t *testing.T) {
	page := browsertest.NewPage("https://example.edu").Set(fallback)
	c := browser.Optional("open only", primary, fallback)

	assert.Equal(t, fallback, browser.Present(context.Background(), page, c))
	assert.Nil(t, browser.Present(context.Background(), browsertest.NewPage("x"), c))
}
