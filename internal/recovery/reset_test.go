package recovery

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/term-sync/internal/browser"
	"github.com/jonathan/term-sync/internal/browser/browsertest"
	"github.com/jonathan/term-sync/internal/navigator"
)

const frameURL = "https://cs.example.edu/psc/CLASS_SEARCH.GBL"

var (
	launcher     = browser.ByCSS("a#tabLink_u13l1s1000")
	menuStep     = browser.ByCSS(`[id="SCC_LO_FL_WRK_SCC_VIEW_BTN$3"]`)
	newSearch    = browser.ByRole("button", "New Search")
	newSearchCSS = browser.ByCSS(`[id="CLASS_SRCH_WRK2_SSR_PB_NEW_SEARCH"]`)
	subject      = browser.ByCSS(`input[id^="SSR_CLSRCH_WRK_SUBJECT"]`)
)

func controller() *Controller {
	return &Controller{
		NewSearch: browser.NewControl("new search", newSearch, newSearchCSS),
		Settle:    -1,
		Log:       zerolog.Nop(),
	}
}

// openRoute builds a popup whose menu step attaches a fresh search frame; newFrame is
// applied to every frame the popup creates.
func openRoute(t *testing.T, newFrame func(popup, frame *browsertest.Page)) (*navigator.Route, *browsertest.Page, browser.Surface) {
	t.Helper()
	popup := browsertest.NewPage("https://cs.example.edu/psc/landing").Set(menuStep)
	popup.OnClick(menuStep, func(p *browsertest.Page) {
		newFrame(p, p.ReplaceFrame(frameURL))
	})
	login := browsertest.NewPage("https://my.example.edu").SetPopup(launcher, popup)

	nav := &navigator.Navigator{
		PopupLauncher: browser.NewControl("launcher", launcher),
		Steps:         []navigator.Step{{Name: "class search", Control: browser.NewControl("class search", menuStep), Settle: -1}},
		FrameMarker:   "CLASS_SEARCH.GBL",
		LoadSettle:    -1,
		FrameTimeout:  30 * time.Millisecond,
		PollInterval:  5 * time.Millisecond,
		Log:           zerolog.Nop(),
	}
	route, err := nav.Open(context.Background(), login)
	require.NoError(t, err)
	frame, err := route.AcquireFrame(context.Background())
	require.NoError(t, err)
	return route, popup, frame
}

func TestReset_NewSearchControl(t *testing.T) {
	route, popup, frame := openRoute(t, func(popup, f *browsertest.Page) {
		f.Set(newSearchCSS)
		f.OnClick(newSearchCSS, func(*browsertest.Page) {
			popup.ReplaceFrame(frameURL).Set(newSearchCSS)
		})
	})

	next, err := controller().Reset(context.Background(), route, frame)
	require.NoError(t, err)

	assert.NotSame(t, frame, next)
	assert.Empty(t, popup.Navigations(), "menu path must not be replayed")
	_, err = frame.Location(context.Background())
	assert.ErrorIs(t, err, browser.ErrDetached)
}

func TestReset_FallsBackToMenuPath(t *testing.T) {
	route, popup, frame := openRoute(t, func(*browsertest.Page, *browsertest.Page) {})

	next, err := controller().Reset(context.Background(), route, frame)
	require.NoError(t, err)

	require.NotNil(t, next)
	assert.Equal(t, []string{"https://cs.example.edu/psc/landing"}, popup.Navigations())
}

func TestReset_NilFrame(t *testing.T) {
	route, popup, _ := openRoute(t, func(*browsertest.Page, *browsertest.Page) {})

	next, err := controller().Reset(context.Background(), route, nil)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Len(t, popup.Navigations(), 1)
}

func TestReset_NewSearchLeavesNoFrame(t *testing.T) {
	route, popup, frame := openRoute(t, func(popup, f *browsertest.Page) {
		f.Set(newSearch)
		f.OnClick(newSearch, func(*browsertest.Page) { popup.DetachFrames() })
	})

	next, err := controller().Reset(context.Background(), route, frame)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Len(t, popup.Navigations(), 1)
}

func TestReset_ReacquireFailureIsFatal(t *testing.T) {
	route, popup, frame := openRoute(t, func(*browsertest.Page, *browsertest.Page) {})
	popup.Remove(menuStep)

	_, err := controller().Reset(context.Background(), route, frame)

	var rerr *ResetError
	require.ErrorAs(t, err, &rerr)
	var cerr *browser.ControlError
	assert.ErrorAs(t, err, &cerr)
}

func TestReset_FrameNeverReappears(t *testing.T) {
	route, popup, frame := openRoute(t, func(*browsertest.Page, *browsertest.Page) {})
	popup.OnClick(menuStep, func(p *browsertest.Page) { p.DetachFrames() })

	_, err := controller().Reset(context.Background(), route, frame)

	var rerr *ResetError
	require.ErrorAs(t, err, &rerr)
	assert.ErrorIs(t, err, navigator.ErrFrameNotFound)
}

func readyController() *Controller {
	c := controller()
	c.Ready = browser.NewControl("subject", subject)
	c.ReadyTimeout = 500 * time.Millisecond
	c.PollInterval = 5 * time.Millisecond
	return c
}

func TestReset_WaitsForFreshForm(t *testing.T) {
	route, popup, frame := openRoute(t, func(popup, f *browsertest.Page) {
		f.Set(newSearchCSS)
		// The results page stays attached for a moment before the new form replaces it.
		f.OnClick(newSearchCSS, func(*browsertest.Page) {
			time.AfterFunc(20*time.Millisecond, func() {
				popup.ReplaceFrame(frameURL).Set(subject).Set(newSearchCSS)
			})
		})
	})

	next, err := readyController().Reset(context.Background(), route, frame)
	require.NoError(t, err)

	assert.NotSame(t, frame, next)
	ok, err := next.Exists(context.Background(), subject)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, popup.Navigations(), "menu path must not be replayed")
}

func TestReset_FormNeverReadyReplaysMenuPath(t *testing.T) {
	route, popup, frame := openRoute(t, func(popup, f *browsertest.Page) {
		f.Set(newSearchCSS)
		if len(popup.Navigations()) > 0 {
			f.Set(subject)
		}
	})

	c := readyController()
	c.ReadyTimeout = 30 * time.Millisecond
	next, err := c.Reset(context.Background(), route, frame)
	require.NoError(t, err)

	assert.Len(t, popup.Navigations(), 1)
	ok, err := next.Exists(context.Background(), subject)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReset_FormNeverReadyIsFatal(t *testing.T) {
	route, _, frame := openRoute(t, func(_, f *browsertest.Page) { f.Set(newSearchCSS) })

	c := readyController()
	c.ReadyTimeout = 30 * time.Millisecond
	_, err := c.Reset(context.Background(), route, frame)

	var rerr *ResetError
	require.ErrorAs(t, err, &rerr)
	assert.ErrorIs(t, err, browser.ErrTimeout)
}
