package auth

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/jonathan/term-sync/internal/browser"
)

// DefaultMFAWait bounds how long the second-factor challenge is probed for.
const DefaultMFAWait = 150 * time.Second

// Credentials are supplied externally (config or environment).
type Credentials struct {
	Username    string
	Password    string
	OneTimeCode string
}

// Controls is the login page schema.
type Controls struct {
	Username       browser.Control
	Password       browser.Control
	Submit         browser.Control
	LoginError     browser.Control
	Token          browser.Control
	RememberDevice browser.Control
	TokenSubmit    browser.Control
}

// Authenticator is the Session Authenticator.
type Authenticator struct {
	LoginURL     string
	Credentials  Credentials
	Controls     Controls
	MFAWait      time.Duration
	PollInterval time.Duration
	Log          zerolog.Logger
}

// Login navigates win to the login page and signs in. A second-factor challenge that
// never appears within MFAWait means none is required and is not an error.
func (a *Authenticator) Login(ctx context.Context, win browser.Window) error {
	log := a.Log.With().Str("component", "auth").Logger()
	wait := a.MFAWait
	if wait <= 0 {
		wait = DefaultMFAWait
	}

	if err := win.Navigate(ctx, a.LoginURL); err != nil {
		return &AuthError{Step: "primary", Message: "login page unreachable", Cause: err}
	}
	if _, err := browser.Fill(ctx, win, a.Controls.Username, a.Credentials.Username, log); err != nil {
		return &AuthError{Step: "primary", Message: "username field unavailable", Cause: err}
	}
	if _, err := browser.Fill(ctx, win, a.Controls.Password, a.Credentials.Password, log); err != nil {
		return &AuthError{Step: "primary", Message: "password field unavailable", Cause: err}
	}
	if _, err := browser.Click(ctx, win, a.Controls.Submit, log); err != nil {
		return &AuthError{Step: "primary", Message: "login submit unavailable", Cause: err}
	}
	log.Info().Str("user", a.Credentials.Username).Msg("primary credentials submitted")

	challenged, err := a.probeChallenge(ctx, win, wait)
	if err != nil {
		return err
	}
	if !challenged {
		log.Info().Dur("waited", wait).Msg("no second-factor challenge, continuing")
		return nil
	}

	if a.Credentials.OneTimeCode == "" {
		return &AuthError{Step: "second_factor", Message: "challenge presented", Cause: ErrMissingOneTimeCode}
	}
	if _, err := browser.Fill(ctx, win, a.Controls.Token, a.Credentials.OneTimeCode, log); err != nil {
		return &AuthError{Step: "second_factor", Message: "token field unavailable", Cause: err}
	}
	if done, _ := browser.Click(ctx, win, a.Controls.RememberDevice, log); done {
		log.Debug().Msg("remember-device selected")
	}
	if _, err := browser.Click(ctx, win, a.Controls.TokenSubmit, log); err != nil {
		return &AuthError{Step: "second_factor", Message: "token submit unavailable", Cause: err}
	}
	log.Info().Msg("second factor submitted")
	return nil
}

// probeChallenge waits for either the token field or the login error indicator.
func (a *Authenticator) probeChallenge(ctx context.Context, win browser.Window, wait time.Duration) (bool, error) {
	var rejected bool
	err := browser.Poll(ctx, wait, a.PollInterval, func(ctx context.Context) (bool, error) {
		if len(a.Controls.LoginError.Locators) > 0 && browser.Present(ctx, win, a.Controls.LoginError) != nil {
			rejected = true
			return true, nil
		}
		return browser.Present(ctx, win, a.Controls.Token) != nil, nil
	})
	switch {
	case errors.Is(err, browser.ErrTimeout):
		return false, nil
	case err != nil:
		return false, &AuthError{Step: "second_factor", Message: "probe interrupted", Cause: err}
	case rejected:
		return false, &AuthError{Step: "primary", Message: "login page reported an error", Cause: ErrCredentialsRejected}
	}
	return true, nil
}
