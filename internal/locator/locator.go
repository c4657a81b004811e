// Package locator resolves semantic element roles ("connect button",
// "message field") against a live page by interpreting an externally
// supplied set of detection strategies. Markup changes on the target site
// are handled by editing the selector config, not this code.
package locator

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/example/outreachbot/internal/logging"
	"github.com/go-rod/rod"
	"gopkg.in/yaml.v3"
)

type Role string

const (
	RoleConnect      Role = "connect_button"
	RoleMessageInput Role = "message_input"
	RoleSend         Role = "send_button"
	RoleAddNote      Role = "add_note_button"
)

// RoleSelectors is the ordered strategy set for one role. Strategies are
// tried text-first, then attribute, then xpath, then (for buttons) a
// positional heuristic anchored on the page heading.
type RoleSelectors struct {
	// Text patterns matched against visible element text (regex).
	Text []string `yaml:"text"`
	// Attr are CSS selectors, typically aria/data-attribute based.
	Attr []string `yaml:"attr"`
	// XPath expressions.
	XPath []string `yaml:"xpath"`
	// Positional enables the anchor-relative fallback; Hint is the text
	// the fallback looks for in candidate buttons.
	Positional bool   `yaml:"positional"`
	Hint       string `yaml:"hint"`
}

type RetryConfig struct {
	MaxAttempts  int `yaml:"max_attempts"`
	BackoffMinMs int `yaml:"backoff_min_ms"`
	BackoffMaxMs int `yaml:"backoff_max_ms"`
}

type Config struct {
	Roles map[Role]RoleSelectors `yaml:"roles"`
	Retry RetryConfig            `yaml:"retry"`
}

// LoadConfig reads the selector config; a missing or unreadable file falls
// back to the built-in defaults so the resolver always has a strategy set.
func LoadConfig(path string) Config {
	b, err := os.ReadFile(path)
	if err != nil {
		return DefaultConfig()
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return DefaultConfig()
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultConfig().Retry
	}
	return cfg
}

func DefaultConfig() Config {
	return Config{
		Roles: map[Role]RoleSelectors{
			RoleConnect: {
				Text: []string{`^Connect$`},
				Attr: []string{
					`button[data-test-id="connect-button"]`,
					`button[aria-label*="Invite"][aria-label*="connect"]`,
					`button[aria-label*="Connect"]`,
					`button[data-control-name*="connect"]`,
				},
				XPath: []string{
					`//button[contains(text(), "Connect")]`,
					`//button[contains(@data-control-name, "connect")]`,
					`//button[contains(@aria-label, "Connect")]`,
				},
				Positional: true,
				Hint:       "Connect",
			},
			RoleMessageInput: {
				Attr: []string{
					`textarea[name="message"]`,
					`textarea[placeholder*="Add a note"]`,
					`textarea[aria-label*="message"]`,
					`input[aria-label*="message"]`,
					`div[role="textbox"]`,
					`div[contenteditable="true"]`,
				},
				XPath: []string{
					`//textarea[contains(@placeholder, "Add a note")]`,
					`//input[@role="textbox"]`,
					`//div[@contenteditable="true"]`,
				},
			},
			RoleSend: {
				Text: []string{`^Send$`, `^Send invitation$`},
				Attr: []string{
					`button[data-test-id="send-button"]`,
					`button[aria-label*="Send"]`,
					`button[data-action="send"]`,
				},
				XPath: []string{
					`//button[contains(text(), "Send")]`,
				},
				Positional: true,
				Hint:       "Send",
			},
			RoleAddNote: {
				Text: []string{`Add a note`},
				Attr: []string{
					`button[aria-label*="Add a note"]`,
				},
			},
		},
		Retry: RetryConfig{MaxAttempts: 3, BackoffMinMs: 1000, BackoffMaxMs: 3000},
	}
}

// handle is the minimal element surface the resolution loop needs; it lets
// the loop be exercised without a browser.
type handle interface {
	Visible() (bool, error)
}

type strategy struct {
	name string
	find func() (handle, error)
}

// resolveFirst tries strategies in order and returns the first one whose
// element is currently visible. A strategy error (including a panic from a
// malformed selector) counts as "no match", never as a failure. Once a
// strategy wins, later strategies are not evaluated.
func resolveFirst(strats []strategy, log *logging.Logger) (handle, string, bool) {
	for _, s := range strats {
		h, err := safeFind(s.find)
		if err != nil {
			log.Debug("locator strategy failed", "strategy", s.name, "err", err)
			continue
		}
		if h == nil {
			continue
		}
		visible, err := h.Visible()
		if err != nil || !visible {
			continue
		}
		return h, s.name, true
	}
	return nil, "", false
}

func safeFind(find func() (handle, error)) (h handle, err error) {
	defer func() {
		if r := recover(); r != nil {
			h = nil
			err = fmt.Errorf("strategy panic: %v", r)
		}
	}()
	return find()
}

type Resolver struct {
	page    *rod.Page
	cfg     Config
	timeout time.Duration
	log     *logging.Logger
}

func New(page *rod.Page, cfg Config, log *logging.Logger) *Resolver {
	return &Resolver{
		page:    page,
		cfg:     cfg,
		timeout: time.Second,
		log:     log.With("module", "locator"),
	}
}

// Retry exposes the declarative retry settings for callers that wrap
// Resolve in their own retry loop.
func (r *Resolver) Retry() RetryConfig { return r.cfg.Retry }

// Resolve returns the first visible element for a role, or false if no
// strategy matched. Total latency is bounded by strategies x per-strategy
// timeout; callers decide whether a miss is fatal.
func (r *Resolver) Resolve(role Role) (*rod.Element, bool) {
	sel, ok := r.cfg.Roles[role]
	if !ok {
		r.log.Warn("no strategies configured for role", "role", string(role))
		return nil, false
	}

	h, name, found := resolveFirst(r.strategies(sel), r.log)
	if !found {
		r.log.Debug("no strategy matched", "role", string(role))
		return nil, false
	}
	r.log.Info("element resolved", "role", string(role), "strategy", name)
	return h.(*rod.Element), true
}

func (r *Resolver) strategies(sel RoleSelectors) []strategy {
	var strats []strategy
	for _, pat := range sel.Text {
		pat := pat
		strats = append(strats, strategy{
			name: "text:" + pat,
			find: func() (handle, error) {
				el, err := r.page.Timeout(r.timeout).ElementR("button, a, span, div", pat)
				if err != nil {
					return nil, err
				}
				return el, nil
			},
		})
	}
	for _, css := range sel.Attr {
		css := css
		strats = append(strats, strategy{
			name: "attr:" + css,
			find: func() (handle, error) {
				el, err := r.page.Timeout(r.timeout).Element(css)
				if err != nil {
					return nil, err
				}
				return el, nil
			},
		})
	}
	for _, xp := range sel.XPath {
		xp := xp
		strats = append(strats, strategy{
			name: "xpath:" + xp,
			find: func() (handle, error) {
				el, err := r.page.Timeout(r.timeout).ElementX(xp)
				if err != nil {
					return nil, err
				}
				return el, nil
			},
		})
	}
	if sel.Positional && sel.Hint != "" {
		strats = append(strats, strategy{
			name: "positional:" + sel.Hint,
			find: func() (handle, error) { return r.findNearHeading(sel.Hint) },
		})
	}
	return strats
}

// findNearHeading scans buttons for hint text, anchored on the presence of
// a visible page heading. Last-resort heuristic for buttons whose classes
// and attributes are randomized.
func (r *Resolver) findNearHeading(hint string) (handle, error) {
	heading, err := r.page.Timeout(r.timeout).Element("h1, h2")
	if err != nil {
		return nil, err
	}
	if visible, err := heading.Visible(); err != nil || !visible {
		return nil, fmt.Errorf("no visible heading anchor")
	}
	buttons, err := r.page.Timeout(r.timeout).Elements("button")
	if err != nil {
		return nil, err
	}
	for _, btn := range buttons {
		text, err := btn.Text()
		if err != nil {
			continue
		}
		if strings.Contains(text, hint) {
			return btn, nil
		}
	}
	return nil, fmt.Errorf("no button containing %q near heading", hint)
}

// Page type indicators, probed in order. These are content classifications,
// not transport checks.
var (
	profileIndicators = []string{
		`h1[data-test-id="profile-name"]`,
		`[data-test-id="profile-name"]`,
		`.pv-top-card--list`,
		`div.pv-text-details__left-panel`,
	}
	feedIndicators = []string{
		`[data-test-id="feed"]`,
		`[data-test-id="feed-content"]`,
		`div.feed-identity-module`,
	}
	searchIndicators = []string{
		`.search-results-container`,
		`ul.reusable-search__entity-result-list`,
		`button[aria-label="All filters"]`,
	}
)

// PageType classifies the current page as profile, feed, search or unknown.
func (r *Resolver) PageType() string {
	for _, sel := range profileIndicators {
		if r.visibleWithin(sel) {
			return "profile"
		}
	}
	for _, sel := range feedIndicators {
		if r.visibleWithin(sel) {
			return "feed"
		}
	}
	for _, sel := range searchIndicators {
		if r.visibleWithin(sel) {
			return "search"
		}
	}
	return "unknown"
}

func (r *Resolver) visibleWithin(sel string) bool {
	el, err := r.page.Timeout(r.timeout).Element(sel)
	if err != nil {
		return false
	}
	visible, err := el.Visible()
	return err == nil && visible
}
