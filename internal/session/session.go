// Package session establishes an authenticated browser session. Saved
// cookies are tried first; a credential login is the fallback.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/example/outreachbot/internal/behavior"
	"github.com/example/outreachbot/internal/browser"
	"github.com/example/outreachbot/internal/config"
	"github.com/example/outreachbot/internal/logging"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

type Session struct {
	br  *browser.Browser
	cfg *config.Config
	log *logging.Logger
}

func New(br *browser.Browser, cfg *config.Config) *Session {
	return &Session{br: br, cfg: cfg, log: logging.New(cfg.Logging.Level).With("module", "session")}
}

// Ensure returns an authenticated page. Cookie restore is attempted first;
// if the restored session does not validate, a fresh credential login runs
// and the new cookies are persisted.
func (s *Session) Ensure(ctx context.Context) (*rod.Page, error) {
	p, err := s.br.NewPage(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.loadCookies(p); err == nil {
		if s.validate(ctx, p) {
			s.log.Info("session restored from cookies")
			return p, nil
		}
		s.log.Info("saved cookies stale, falling back to login")
	}
	if err := s.login(ctx, p); err != nil {
		p.Close()
		return nil, err
	}
	if err := s.saveCookies(p); err != nil {
		s.log.Warn("save cookies failed", "err", err)
	}
	return p, nil
}

func (s *Session) login(ctx context.Context, p *rod.Page) error {
	email := os.Getenv("LINKEDIN_EMAIL")
	pass := os.Getenv("LINKEDIN_PASSWORD")
	if email == "" || pass == "" {
		return errors.New("missing LINKEDIN_EMAIL or LINKEDIN_PASSWORD env")
	}

	s.log.Info("attempting login", "email", email)

	if err := p.Navigate(s.cfg.LinkedIn.BaseURL + "login"); err != nil {
		return fmt.Errorf("navigate to login page: %w", err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("login page load: %w", err)
	}
	behavior.Pause(behavior.General)

	usernameInput, err := p.Timeout(5 * time.Second).Element("input#username")
	if err != nil {
		// Some sessions land on the legacy login route.
		if err := p.Navigate(s.cfg.LinkedIn.BaseURL + "uas/login"); err != nil {
			return fmt.Errorf("navigate to fallback login: %w", err)
		}
		if err := p.WaitLoad(); err != nil {
			return fmt.Errorf("fallback login page load: %w", err)
		}
		usernameInput, err = p.Timeout(5 * time.Second).Element("input#username")
		if err != nil {
			return browser.ScreenshotOnError(p, "login-page-fail", fmt.Errorf("username input not found: %w", err))
		}
	}

	if err := behavior.TypeHumanLike(usernameInput, email); err != nil {
		return fmt.Errorf("type email: %w", err)
	}
	passwordInput, err := p.Timeout(5 * time.Second).Element("input#password")
	if err != nil {
		return fmt.Errorf("password input not found: %w", err)
	}
	if err := behavior.TypeHumanLike(passwordInput, pass); err != nil {
		return fmt.Errorf("type password: %w", err)
	}
	behavior.ThinkTime()

	submit, err := p.Timeout(5 * time.Second).Element("button[type='submit']")
	if err != nil {
		return fmt.Errorf("submit button not found: %w", err)
	}
	if err := behavior.ClickHumanLike(p, submit); err != nil {
		return fmt.Errorf("click submit: %w", err)
	}
	time.Sleep(5 * time.Second)

	return s.verifyLogin(p)
}

// loggedInProbes are markers that only render for an authenticated user,
// tried in order after the login form is submitted.
var loggedInProbes = []struct {
	name string
	sel  string
}{
	{"search box", "input[placeholder*='Search'], input[aria-label*='Search']"},
	{"navigation bar", "nav.global-nav, [class*='global-nav']"},
	{"feed link", "a[href*='/feed']"},
	{"profile menu", "[data-control-name='identity_profile_photo'], .global-nav__me-photo"},
}

func (s *Session) verifyLogin(p *rod.Page) error {
	currentURL := p.MustInfo().URL
	if strings.Contains(currentURL, "/feed") {
		s.log.Info("login successful", "detection", "feed redirect")
		return nil
	}

	for _, probe := range loggedInProbes {
		if el, err := p.Timeout(3 * time.Second).Element(probe.sel); err == nil {
			if visible, _ := el.Visible(); visible {
				s.log.Info("login successful", "detection", probe.name, "url", currentURL)
				return nil
			}
		}
	}

	if _, err := p.Timeout(2 * time.Second).Element("[data-test-id='checkpoint'], .challenge-dialog"); err == nil {
		return browser.ScreenshotOnError(p, "login-checkpoint",
			errors.New("login blocked by checkpoint verification, complete it manually first"))
	}
	if errEl, err := p.Timeout(2 * time.Second).Element(".alert--error, .form__label--error, .error"); err == nil {
		if errText, _ := errEl.Text(); errText != "" {
			return browser.ScreenshotOnError(p, "login-error", fmt.Errorf("login failed: %s", errText))
		}
	}
	if strings.Contains(currentURL, "/login") {
		return browser.ScreenshotOnError(p, "login-stuck",
			errors.New("login failed: still on login page after submitting credentials"))
	}

	// Navigated somewhere that is neither the login page nor a known
	// logged-in surface. Treat as success but leave a trace.
	s.log.Warn("login state ambiguous, continuing", "url", currentURL)
	return nil
}

func (s *Session) validate(ctx context.Context, p *rod.Page) bool {
	if err := p.Navigate(s.cfg.LinkedIn.BaseURL + "feed/"); err != nil {
		return false
	}
	if err := p.WaitLoad(); err != nil {
		return false
	}
	_, err := p.Timeout(5 * time.Second).Element("a[href*='/feed/']")
	return err == nil
}

func cookiesPath() string {
	return filepath.Join(".cache", "cookies.json")
}

func (s *Session) loadCookies(p *rod.Page) error {
	b, err := os.ReadFile(cookiesPath())
	if err != nil {
		return err
	}
	var cookies []*proto.NetworkCookie
	if err := json.Unmarshal(b, &cookies); err != nil {
		return err
	}
	for _, c := range cookies {
		_, _ = proto.NetworkSetCookie{
			Domain: c.Domain, Name: c.Name, Value: c.Value, Path: c.Path,
			Expires: c.Expires, HTTPOnly: c.HTTPOnly, Secure: c.Secure,
		}.Call(p)
	}
	return nil
}

func (s *Session) saveCookies(p *rod.Page) error {
	pp := p.Timeout(20 * time.Second)
	cookies, err := proto.StorageGetCookies{}.Call(pp)
	if err != nil {
		time.Sleep(500 * time.Millisecond)
		cookies, err = proto.StorageGetCookies{}.Call(pp)
		if err != nil {
			return err
		}
	}
	b, _ := json.MarshalIndent(cookies.Cookies, "", "  ")
	_ = os.MkdirAll(filepath.Dir(cookiesPath()), 0o755)
	return os.WriteFile(cookiesPath(), b, 0o644)
}
