// Package site holds the control catalogue for the target platform: a CAS login in front of
// a PeopleSoft Campus Solutions class search. Each control lists a semantic locator first
// and the structural selectors the pages have actually used after it.
package site

import (
	"github.com/jonathan/term-sync/internal/auth"
	"github.com/jonathan/term-sync/internal/browser"
	"github.com/jonathan/term-sync/internal/navigator"
	"github.com/jonathan/term-sync/internal/search"
)

// DefaultFrameMarker is contained in the class search frame's address.
const DefaultFrameMarker = "CLASS_SEARCH.GBL"

// Profile is every control the pipeline touches on one site.
type Profile struct {
	Name          string
	Login         auth.Controls
	PopupLauncher browser.Control
	Menu          []navigator.Step
	FrameMarker   string
	Form          search.Form
	Markers       search.Markers
	NewSearch     browser.Control
}

// PeopleSoft returns the profile for CAS + PeopleSoft class search.
func PeopleSoft() Profile {
	casSubmit := browser.ByCSS(`input[type="submit"]`)

	return Profile{
		Name: "peoplesoft",
		Login: auth.Controls{
			Username: browser.NewControl("username",
				browser.ByLabel("Username"),
				browser.ByCSS(`input[name="username"]`)),
			Password: browser.NewControl("password",
				browser.ByLabel("Password"),
				browser.ByCSS(`input[name="password"]`)),
			Submit: browser.NewControl("login",
				browser.ByRole("button", "Log in"),
				casSubmit),
			LoginError: browser.Optional("login error",
				browser.ByCSS("#msg.errors"),
				browser.ByCSS(".alert-danger")),
			Token: browser.NewControl("one-time code",
				browser.ByLabel("Passcode"),
				browser.ByCSS(`input[name="token"]`)),
			RememberDevice: browser.Optional("remember device",
				browser.ByRole("checkbox", "Remember"),
				browser.ByCSS(`label[for="remember-me"]`)),
			TokenSubmit: browser.NewControl("verify",
				browser.ByRole("button", "Verify"),
				casSubmit),
		},
		PopupLauncher: browser.NewControl("student centre tab",
			browser.ByRole("link", "Student Centre"),
			browser.ByCSS("a#tabLink_u13l1s1000")),
		Menu: []navigator.Step{
			{
				Name: "manage classes",
				Control: browser.NewControl("manage classes tile",
					browser.ByRole("link", "Manage Classes"),
					browser.ByCSS(`[id="win0divPTNUI_LAND_REC_GROUPLET$2"]`)),
			},
			{
				Name: "class search",
				Control: browser.NewControl("class search",
					browser.ByRole("button", "Class Search"),
					browser.ByCSS(`[id="SCC_LO_FL_WRK_SCC_VIEW_BTN$3"]`)),
			},
		},
		FrameMarker: DefaultFrameMarker,
		Form: search.Form{
			Term: browser.NewControl("term",
				browser.ByLabel("Term"),
				browser.ByCSS(`select[id="CLASS_SRCH_WRK2_STRM$35$"]`)),
			Subject: browser.NewControl("subject",
				browser.ByLabel("Subject"),
				browser.ByCSS(`input[id^="SSR_CLSRCH_WRK_SUBJECT"]`)),
			MatchMode: browser.NewControl("course number match",
				browser.ByRole("combobox", "Course Number"),
				browser.ByCSS(`select[id^="SSR_CLSRCH_WRK_SSR_EXACT_MATCH1"]`)),
			CatalogNumber: browser.NewControl("course number",
				browser.ByCSS(`input[name="SSR_CLSRCH_WRK_CATALOG_NBR$1"]`)),
			Career: browser.Optional("course career",
				browser.ByLabel("Course Career"),
				browser.ByCSS(`select[id^="SSR_CLSRCH_WRK_ACAD_CAREER"]`)),
			OpenOnly: browser.Optional("open classes only",
				browser.ByLabel("Show Open Classes Only"),
				browser.ByCSS(`label[for="SSR_CLSRCH_WRK_SSR_OPEN_ONLY$3"]`)),
			Submit: browser.NewControl("search",
				browser.ByRole("link", "Search"),
				browser.ByCSS(`[id$="divCLASS_SRCH_WRK2_SSR_PB_CLASS_SRCH"] a`)),
		},
		Markers: search.Markers{
			Results: browser.Optional("result list",
				browser.ByCSS(`a[name^="SSR_CLSRSLT_WRK_GROUPBOX2"]`)),
			Truncated: browser.Optional("large result notice",
				browser.ByCSS(`[id$="divPSTOOLBAR"] .PSPUSHBUTTON.PSPRIMARY`)),
			ViewAll: browser.Optional("view all",
				browser.ByRole("button", "OK"),
				browser.ByText(`[id$="divPSTOOLBAR"] a, [id$="divPSTOOLBAR"] input`, "OK"),
				browser.ByText("a", "View All")),
			NoResults: browser.Optional("no results message",
				browser.ByCSS(`[id="DERIVED_CLSMSG_ERROR_TEXT"]`)),
			Rows: browser.Optional("result rows",
				browser.ByCSS(`div[id*="divSSR_CLSRSLT_WRK_GROUPBOX2GP"]`)),
		},
		NewSearch: browser.Optional("new search",
			browser.ByRole("link", "New Search"),
			browser.ByCSS(`[id="CLASS_SRCH_WRK2_SSR_PB_NEW_SEARCH"]`)),
	}
}

// WithFrameMarker overrides the frame marker when non-empty.
func (p Profile) WithFrameMarker(marker string) Profile {
	if marker != "" {
		p.FrameMarker = marker
	}
	return p
}

// Controls returns every control in the profile, for listing and validation.
func (p Profile) Controls() []browser.Control {
	out := []browser.Control{
		p.Login.Username, p.Login.Password, p.Login.Submit, p.Login.LoginError,
		p.Login.Token, p.Login.RememberDevice, p.Login.TokenSubmit,
		p.PopupLauncher,
	}
	for _, s := range p.Menu {
		out = append(out, s.Control)
	}
	out = append(out,
		p.Form.Term, p.Form.Subject, p.Form.MatchMode, p.Form.CatalogNumber,
		p.Form.Career, p.Form.OpenOnly, p.Form.Submit,
		p.Markers.Results, p.Markers.Truncated, p.Markers.ViewAll,
		p.Markers.NoResults, p.Markers.Rows,
		p.NewSearch,
	)
	return out
}
