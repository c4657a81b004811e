// Package connect drives the connection-request flow: navigate to a
// profile, compose a note, find and click through the invite modal, and
// record an immutable result per attempt.
package connect

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/example/outreachbot/internal/behavior"
	"github.com/example/outreachbot/internal/browser"
	"github.com/example/outreachbot/internal/config"
	"github.com/example/outreachbot/internal/locator"
	"github.com/example/outreachbot/internal/logging"
	"github.com/example/outreachbot/internal/message"
	"github.com/example/outreachbot/internal/models"
	"github.com/example/outreachbot/internal/profile"
	"github.com/example/outreachbot/internal/store"
	"github.com/go-rod/rod"
)

type Service struct {
	cfg *config.Config
	st  *store.Store
	gen message.Generator
	ext *profile.Extractor
	sel locator.Config
	log *logging.Logger

	// Indirections for the bulk loop so pacing and sending can be
	// exercised without a browser.
	sleep       func(time.Duration)
	send        func(ctx context.Context, p *rod.Page, prospect *models.Prospect) *models.ConnectionResult
	rateLimited func(p *rod.Page) bool
}

func New(cfg *config.Config, st *store.Store, gen message.Generator) *Service {
	log := logging.New(cfg.Logging.Level).With("module", "connect")
	s := &Service{
		cfg:   cfg,
		st:    st,
		gen:   gen,
		ext:   profile.NewExtractor(log),
		sel:   locator.LoadConfig(cfg.Locator.Path),
		log:   log,
		sleep: time.Sleep,
	}
	s.send = s.SendRequest
	s.rateLimited = s.pageRateLimited
	return s
}

// rateLimitPhrases are the page texts that mean the account is being
// throttled and the run must back off hard.
var rateLimitPhrases = []string{
	"rate limit",
	"too many requests",
	"temporarily blocked",
	"unusual activity",
	"verify your identity",
}

// IsRateLimited reports whether page or error text indicates throttling.
func IsRateLimited(text string) bool {
	t := strings.ToLower(text)
	for _, phrase := range rateLimitPhrases {
		if strings.Contains(t, phrase) {
			return true
		}
	}
	return false
}

// SendRequest runs the full flow for one prospect and always returns a
// result: navigate, extract context, compose note, locate the connect
// button with retries, work the invite modal, send.
func (s *Service) SendRequest(ctx context.Context, p *rod.Page, prospect *models.Prospect) *models.ConnectionResult {
	start := time.Now()
	res := &models.ConnectionResult{ProfileURL: prospect.ProfileURL}
	defer func() { res.Elapsed = time.Since(start) }()

	if err := p.Navigate(prospect.ProfileURL); err != nil {
		return s.fail(res, models.ErrClassNavigation, err)
	}
	if err := p.WaitLoad(); err != nil {
		return s.fail(res, models.ErrClassNavigation, err)
	}

	_ = behavior.WakeUpMovement(p)
	behavior.ThinkTime()
	behavior.ScrollHumanLike(p)
	behavior.RandomHover(p, []string{"h1", "div.pv-text-details__left-panel", "button"})

	resolver := locator.New(p, s.sel, s.log)
	if pt := resolver.PageType(); pt != "profile" {
		s.log.Warn("landed on unexpected page type", "type", pt, "profile", prospect.ProfileURL)
	}

	pc := s.ext.Extract(p)
	fillFromContext(prospect, pc)

	note, err := s.composeMessage(ctx, prospect, pc)
	if err != nil {
		return s.fail(res, models.ErrClassInsufficientData, err)
	}
	res.UsedFallback = note.UsedFallback

	connectBtn, retries, found := locateWithRetry(
		func() (*rod.Element, bool) { return resolver.Resolve(locator.RoleConnect) },
		resolver.Retry(),
		func(attempt int) {
			s.log.Info("connect button not found, retrying", "attempt", attempt)
			behavior.Simulate(p, behavior.Scroll)
			behavior.SleepRandom(s.sel.Retry.BackoffMinMs, s.sel.Retry.BackoffMaxMs)
		},
	)
	res.RetryCount = retries
	if !found {
		_ = browser.ScreenshotOnError(p, "connect-button-fail", fmt.Errorf("unresolved"))
		return s.fail(res, models.ErrClassButtonNotFound,
			fmt.Errorf("connect button not resolved after %d attempts", retries+1))
	}

	if err := behavior.ClickHumanLike(p, connectBtn); err != nil {
		return s.fail(res, models.ErrClassModalHandling, fmt.Errorf("click connect: %w", err))
	}
	behavior.Pause(behavior.General)

	if err := s.workModal(p, resolver, note.Text); err != nil {
		_ = browser.ScreenshotOnError(p, "invite-modal-fail", err)
		return s.fail(res, models.ErrClassModalHandling, err)
	}
	res.MessageSent = note.Text
	res.Success = true
	s.log.Info("connection request sent",
		"profile", prospect.ProfileURL, "fallback", res.UsedFallback)
	return res
}

// workModal types the note into the invite modal and clicks send. The note
// is mandatory: an invite without it is not a success, so a missing input
// or send control fails the attempt.
func (s *Service) workModal(p *rod.Page, resolver *locator.Resolver, note string) error {
	if addNote, ok := resolver.Resolve(locator.RoleAddNote); ok {
		if err := behavior.ClickHumanLike(p, addNote); err != nil {
			return fmt.Errorf("click add-note: %w", err)
		}
		behavior.SleepRandom(500, 1000)
	}
	input, ok := resolver.Resolve(locator.RoleMessageInput)
	if !ok {
		return fmt.Errorf("note input not resolved")
	}
	if err := behavior.TypeHumanLike(input, note); err != nil {
		return fmt.Errorf("type note: %w", err)
	}
	behavior.ThinkTime()

	sendBtn, ok := resolver.Resolve(locator.RoleSend)
	if !ok {
		return fmt.Errorf("send button not resolved")
	}
	_ = behavior.MouseIdleMovement(p)
	if err := behavior.ClickHumanLike(p, sendBtn); err != nil {
		return fmt.Errorf("click send: %w", err)
	}
	behavior.Pause(behavior.General)
	return nil
}

// composeMessage rejects insufficient context before the generator runs:
// the identity trio must be present and the optional-signal score must
// reach the threshold, otherwise the whole attempt fails.
func (s *Service) composeMessage(ctx context.Context, p *models.Prospect, pc *profile.Context) (message.Generated, error) {
	if !profile.IsSufficient(pc) {
		return message.Generated{}, fmt.Errorf(
			"profile context insufficient for %s: score %d, name=%t title=%t company=%t",
			p.ProfileURL, profile.Score(pc), pc.Name != "", pc.JobTitle != "", pc.Company != "")
	}
	return s.gen.Generate(ctx, p, pc), nil
}

// locateWithRetry runs resolve up to retry.MaxAttempts times, invoking
// between before each repeat. Returns the element, the number of retries
// performed, and whether resolution succeeded.
func locateWithRetry(resolve func() (*rod.Element, bool), retry locator.RetryConfig, between func(attempt int)) (*rod.Element, int, bool) {
	attempts := retry.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		if i > 0 {
			between(i + 1)
		}
		if el, ok := resolve(); ok {
			return el, i, true
		}
	}
	return nil, attempts - 1, false
}

// SendBulk processes pending prospects until the success cap is reached.
// Every attempt's result is persisted; a rate-limit signal triggers the
// extended cooldown instead of aborting the run.
func (s *Service) SendBulk(ctx context.Context, p *rod.Page, limit int) (*models.RunSummary, error) {
	start := time.Now()
	if limit <= 0 || limit > s.cfg.Limits.MaxRequestsPerRun {
		limit = s.cfg.Limits.MaxRequestsPerRun
	}

	prospects, err := s.st.LoadPendingProspects(ctx, limit*3)
	if err != nil {
		return nil, err
	}
	summary := &models.RunSummary{RunType: models.RunTypeConnection, TotalProspects: len(prospects)}
	s.log.Info("bulk run starting", "pending", len(prospects), "cap", limit)

	requestCooldown := behavior.CooldownRange{Min: s.cfg.Cooldowns.RequestMin, Max: s.cfg.Cooldowns.RequestMax}
	rateLimitCooldown := behavior.CooldownRange{Min: s.cfg.Cooldowns.RateLimitMin, Max: s.cfg.Cooldowns.RateLimitMax}

	first := true
	for _, prospect := range prospects {
		if summary.Successful >= limit {
			s.log.Info("success cap reached", "sent", summary.Successful)
			break
		}
		if !first {
			d := requestCooldown.Duration()
			s.log.Info("inter-request cooldown", "duration", d.String())
			s.sleep(d)
		}
		first = false

		prospect := prospect
		res := s.send(ctx, p, &prospect)
		if err := s.st.AppendResult(ctx, res); err != nil {
			s.log.Warn("persist result failed", "profile", prospect.ProfileURL, "err", err)
		}
		if res.Success {
			summary.Successful++
			continue
		}
		summary.Failed++
		if s.rateLimited(p) {
			d := rateLimitCooldown.Duration()
			s.log.Warn("rate limiting detected, extended cooldown", "duration", d.String())
			s.sleep(d)
		}
	}

	summary.Elapsed = time.Since(start)
	if err := s.st.AppendRunSummary(ctx, summary); err != nil {
		s.log.Warn("persist run summary failed", "err", err)
	}
	s.log.Info("bulk run finished",
		"successful", summary.Successful, "failed", summary.Failed, "elapsed", summary.Elapsed.String())
	return summary, nil
}

func (s *Service) pageRateLimited(p *rod.Page) bool {
	if p == nil {
		return false
	}
	body, err := p.Timeout(2 * time.Second).Element("body")
	if err != nil {
		return false
	}
	text, err := body.Text()
	if err != nil {
		return false
	}
	return IsRateLimited(text)
}

// CheckStatus classifies the relationship with a profile: connected,
// pending, connect (can invite), or unknown. A transport failure yields
// "error", distinct from the content-classification miss "unknown".
func (s *Service) CheckStatus(ctx context.Context, p *rod.Page, profileURL string) (string, error) {
	if err := p.Navigate(profileURL); err != nil {
		return "error", err
	}
	if err := p.WaitLoad(); err != nil {
		return "error", err
	}
	behavior.Pause(behavior.General)

	if browser.HasElement(p, `span.distance-badge .dist-value, [aria-label*="1st degree"]`) {
		return "connected", nil
	}
	if browser.HasElementWithText(p, "^Pending$") {
		return "pending", nil
	}
	resolver := locator.New(p, s.sel, s.log)
	if _, ok := resolver.Resolve(locator.RoleConnect); ok {
		return "connect", nil
	}
	return "unknown", nil
}

func (s *Service) fail(res *models.ConnectionResult, class string, err error) *models.ConnectionResult {
	res.Success = false
	res.ErrorClass = class
	s.log.Warn("connection attempt failed", "profile", res.ProfileURL, "class", class, "err", err)
	return res
}

// fillFromContext backfills prospect fields discovery could not see.
func fillFromContext(p *models.Prospect, pc *profile.Context) {
	if p.Name == "" {
		p.Name = pc.Name
	}
	if p.JobTitle == "" {
		p.JobTitle = pc.JobTitle
	}
	if p.Company == "" {
		p.Company = pc.Company
	}
	if p.Location == "" {
		p.Location = pc.Location
	}
}
