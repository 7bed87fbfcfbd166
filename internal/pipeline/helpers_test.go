package pipeline

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jonathan/term-sync/internal/auth"
	"github.com/jonathan/term-sync/internal/browser"
	"github.com/jonathan/term-sync/internal/browser/browsertest"
	"github.com/jonathan/term-sync/internal/catalog"
	"github.com/jonathan/term-sync/internal/navigator"
	"github.com/jonathan/term-sync/internal/recovery"
	"github.com/jonathan/term-sync/internal/search"
	"github.com/jonathan/term-sync/internal/site"
	"github.com/jonathan/term-sync/internal/termsync"
)

const searchURL = "https://cs.example.edu/psc/CS/EMPLOYEE/SA/c/SA_LEARNER_SERVICES.CLASS_SEARCH.GBL"

var profile = site.PeopleSoft()

// structural returns the last (structural) locator of c; the fake site only answers to
// those, so every interaction goes through the fallback tier.
func structural(c browser.Control) browser.Locator {
	return c.Locators[len(c.Locators)-1]
}

// fakeSite is a scripted CAS + PeopleSoft session.
type fakeSite struct {
	mu       sync.Mutex
	results  map[string][]string
	searched []string
	frames   int
	// configure runs on every new search frame; n counts frames from 1.
	configure func(n int, frame *browsertest.Page)

	login *browsertest.Page
	popup *browsertest.Page
}

func newFakeSite(results map[string][]string) *fakeSite {
	fs := &fakeSite{results: results}

	fs.popup = browsertest.NewPage("https://cs.example.edu/psc/CS/EMPLOYEE/SA/c/NUI_FRAMEWORK.PT_LANDINGPAGE.GBL")
	for _, step := range profile.Menu {
		fs.popup.Set(structural(step.Control))
	}
	fs.popup.OnClick(structural(profile.Menu[len(profile.Menu)-1].Control), func(p *browsertest.Page) {
		fs.newFrame()
	})

	fs.login = browsertest.NewPage("https://cas.example.edu/login").
		Set(structural(profile.Login.Username)).
		Set(structural(profile.Login.Password)).
		Set(structural(profile.Login.Submit)).
		SetPopup(structural(profile.PopupLauncher), fs.popup)
	return fs
}

func (fs *fakeSite) newFrame() {
	fs.mu.Lock()
	fs.frames++
	n := fs.frames
	configure := fs.configure
	fs.mu.Unlock()

	f := fs.popup.ReplaceFrame(searchURL)
	subject := structural(profile.Form.Subject)
	submit := structural(profile.Form.Submit)

	f.SetOptions(structural(profile.Form.Term), "1259", "1261").
		Set(subject).
		SetOptions(structural(profile.Form.MatchMode), "C", "E", "G").
		Set(structural(profile.Form.CatalogNumber)).
		SetOptions(structural(profile.Form.Career), "UGRD", "GRAD").
		Set(structural(profile.Form.OpenOnly)).
		Set(submit).
		Set(structural(profile.NewSearch))

	f.OnClick(submit, func(p *browsertest.Page) {
		prefix, _ := p.Filled(subject)
		fs.mu.Lock()
		fs.searched = append(fs.searched, prefix)
		rows := fs.results[prefix]
		fs.mu.Unlock()
		if len(rows) > 0 {
			p.Set(structural(profile.Markers.Results))
			p.Set(structural(profile.Markers.Rows), rows...)
		}
	})
	f.OnClick(structural(profile.NewSearch), func(*browsertest.Page) {
		fs.newFrame()
	})
	if configure != nil {
		configure(n, f)
	}
}

func (fs *fakeSite) Searched() []string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return append([]string(nil), fs.searched...)
}

func testPipeline(store catalog.Store) *Pipeline {
	log := zerolog.Nop()
	return &Pipeline{
		Store: store,
		Auth: &auth.Authenticator{
			LoginURL:     "https://cas.example.edu/login",
			Credentials:  auth.Credentials{Username: "u", Password: "p"},
			Controls:     profile.Login,
			MFAWait:      20 * time.Millisecond,
			PollInterval: 5 * time.Millisecond,
			Log:          log,
		},
		Navigator: &navigator.Navigator{
			PopupLauncher: profile.PopupLauncher,
			Steps:         noSettle(profile.Menu),
			FrameMarker:   profile.FrameMarker,
			LoadSettle:    -1,
			FrameTimeout:  40 * time.Millisecond,
			PollInterval:  5 * time.Millisecond,
			Log:           log,
		},
		Search: &search.Driver{
			Form:         profile.Form,
			Markers:      profile.Markers,
			Params:       search.DefaultParams(),
			OutcomeWait:  30 * time.Millisecond,
			FieldSettle:  -1,
			PollInterval: 5 * time.Millisecond,
			Log:          log,
		},
		Reset: &recovery.Controller{
			NewSearch:    profile.NewSearch,
			Ready:        profile.Form.Subject,
			ReadyTimeout: 60 * time.Millisecond,
			PollInterval: 5 * time.Millisecond,
			Log:          log,
		},
		Sync: termsync.New(store, "Fall", log),
		Log:  log,
	}
}

func noSettle(steps []navigator.Step) []navigator.Step {
	out := append([]navigator.Step(nil), steps...)
	for i := range out {
		out[i].Settle = -1
	}
	return out
}
