package connect

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/outreachbot/internal/config"
	"github.com/example/outreachbot/internal/locator"
	"github.com/example/outreachbot/internal/message"
	"github.com/example/outreachbot/internal/models"
	"github.com/example/outreachbot/internal/profile"
	"github.com/example/outreachbot/internal/store"
	"github.com/go-rod/rod"
	"github.com/stretchr/testify/require"
)

type stubGenerator struct {
	called bool
	text   string
}

func (g *stubGenerator) Generate(ctx context.Context, p *models.Prospect, pc *profile.Context) message.Generated {
	g.called = true
	return message.Generated{Text: g.text}
}

func testService(t *testing.T) (*Service, *store.Store, *stubGenerator) {
	t.Helper()
	cfg := &config.Config{}
	cfg.Limits.MaxRequestsPerRun = 9
	cfg.Cooldowns.RequestMin = 30
	cfg.Cooldowns.RequestMax = 120
	cfg.Cooldowns.RateLimitMin = 300
	cfg.Cooldowns.RateLimitMax = 900
	cfg.Logging.Level = "error"
	cfg.Locator.Path = filepath.Join(t.TempDir(), "absent.yaml")
	cfg.Database.Path = filepath.Join(t.TempDir(), "test.db")

	st, err := store.Open(cfg.Database.Path)
	require.NoError(t, err)
	t.Cleanup(st.Close)
	require.NoError(t, st.Migrate(context.Background()))

	gen := &stubGenerator{text: "Hi Alice, great work."}
	s := New(cfg, st, gen)
	s.sleep = func(time.Duration) {}
	s.rateLimited = func(*rod.Page) bool { return false }
	return s, st, gen
}

func seedProspects(t *testing.T, st *store.Store, n int) {
	t.Helper()
	var batch []models.Prospect
	for i := 0; i < n; i++ {
		batch = append(batch, models.Prospect{
			ProfileURL: "https://www.linkedin.com/in/p" + string(rune('a'+i)),
			Name:       "Prospect " + string(rune('A'+i)),
			JobTitle:   "Recruiter",
		})
	}
	_, _, err := st.AppendProspects(context.Background(), batch)
	require.NoError(t, err)
}

func TestIsRateLimited(t *testing.T) {
	for _, text := range []string{
		"You have hit a RATE LIMIT",
		"Error: too many requests, slow down",
		"Your account has been temporarily blocked",
		"We noticed unusual activity",
		"Please verify your identity to continue",
	} {
		require.True(t, IsRateLimited(text), text)
	}
	require.False(t, IsRateLimited("Connection sent successfully"))
	require.False(t, IsRateLimited(""))
}

func TestLocateWithRetryBound(t *testing.T) {
	calls := 0
	backoffs := []int{}
	_, retries, ok := locateWithRetry(
		func() (*rod.Element, bool) { calls++; return nil, false },
		locator.RetryConfig{MaxAttempts: 3},
		func(attempt int) { backoffs = append(backoffs, attempt) },
	)
	require.False(t, ok)
	require.Equal(t, 3, calls, "resolution is attempted exactly MaxAttempts times")
	require.Equal(t, 2, retries)
	require.Equal(t, []int{2, 3}, backoffs, "backoff runs before each repeat, not before the first attempt")
}

func TestLocateWithRetrySucceedsMidway(t *testing.T) {
	calls := 0
	el := &rod.Element{}
	got, retries, ok := locateWithRetry(
		func() (*rod.Element, bool) {
			calls++
			return el, calls == 2
		},
		locator.RetryConfig{MaxAttempts: 3},
		func(int) {},
	)
	require.True(t, ok)
	require.Same(t, el, got)
	require.Equal(t, 2, calls, "no further attempts after success")
	require.Equal(t, 1, retries)
}

func TestComposeMessageRejectsInsufficientContext(t *testing.T) {
	s, _, gen := testService(t)
	p := &models.Prospect{Name: "Alice Chen", JobTitle: "Recruiter"}

	// Company missing: identity trio incomplete, so the attempt is
	// rejected and no message of any kind is produced.
	noCompany := &profile.Context{
		Name: "Alice Chen", JobTitle: "Recruiter",
		Summary:    "Recruiting since 2010.",
		Experience: []string{"Recruiter"},
	}
	_, err := s.composeMessage(context.Background(), p, noCompany)
	require.Error(t, err)
	require.False(t, gen.called, "rejected attempts never reach the generator")

	// Identity present but too little optional signal.
	thin := &profile.Context{Name: "Alice Chen", JobTitle: "Recruiter", Company: "Initech"}
	_, err = s.composeMessage(context.Background(), p, thin)
	require.Error(t, err)
	require.False(t, gen.called)

	rich := &profile.Context{
		Name: "Alice Chen", JobTitle: "Recruiter", Company: "Initech",
		Summary:    "Recruiting since 2010.",
		Experience: []string{"Recruiter at Initech"},
	}
	out, err := s.composeMessage(context.Background(), p, rich)
	require.NoError(t, err)
	require.True(t, gen.called)
	require.False(t, out.UsedFallback)
}

func TestSendBulkStopsAtSuccessCap(t *testing.T) {
	s, st, _ := testService(t)
	s.cfg.Limits.MaxRequestsPerRun = 2
	seedProspects(t, st, 5)

	attempts := 0
	s.send = func(ctx context.Context, _ *rod.Page, p *models.Prospect) *models.ConnectionResult {
		attempts++
		return &models.ConnectionResult{ProfileURL: p.ProfileURL, Success: true, MessageSent: "Hi"}
	}

	summary, err := s.SendBulk(context.Background(), nil, 0)
	require.NoError(t, err)
	require.Equal(t, 2, summary.Successful)
	require.Equal(t, 0, summary.Failed)
	require.Equal(t, 2, attempts, "no attempts beyond the success cap")

	pending, err := st.LoadPendingProspects(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 3)
}

func TestSendBulkFailuresDoNotConsumeCap(t *testing.T) {
	s, st, _ := testService(t)
	s.cfg.Limits.MaxRequestsPerRun = 2
	seedProspects(t, st, 3)

	// First attempt fails, the next two succeed: the cap counts
	// successes, so all three prospects are attempted.
	attempts := 0
	s.send = func(ctx context.Context, _ *rod.Page, p *models.Prospect) *models.ConnectionResult {
		attempts++
		if attempts == 1 {
			return &models.ConnectionResult{
				ProfileURL: p.ProfileURL,
				ErrorClass: models.ErrClassButtonNotFound,
				RetryCount: 2,
			}
		}
		return &models.ConnectionResult{ProfileURL: p.ProfileURL, Success: true, MessageSent: "Hi"}
	}

	summary, err := s.SendBulk(context.Background(), nil, 0)
	require.NoError(t, err)
	require.Equal(t, 2, summary.Successful)
	require.Equal(t, 1, summary.Failed)
	require.Equal(t, 3, attempts)

	stats, err := st.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, stats.RequestsSent)
	require.Equal(t, 1, stats.RequestsFailed)
}

func TestSendBulkThreeProspectScenario(t *testing.T) {
	s, st, _ := testService(t)
	seedProspects(t, st, 3)

	outcomes := []func(p *models.Prospect) *models.ConnectionResult{
		func(p *models.Prospect) *models.ConnectionResult {
			return &models.ConnectionResult{ProfileURL: p.ProfileURL, ErrorClass: models.ErrClassInsufficientData}
		},
		func(p *models.Prospect) *models.ConnectionResult {
			return &models.ConnectionResult{ProfileURL: p.ProfileURL, ErrorClass: models.ErrClassButtonNotFound, RetryCount: 2}
		},
		func(p *models.Prospect) *models.ConnectionResult {
			return &models.ConnectionResult{ProfileURL: p.ProfileURL, Success: true, MessageSent: "Hi"}
		},
	}
	attempts := 0
	s.send = func(ctx context.Context, _ *rod.Page, p *models.Prospect) *models.ConnectionResult {
		res := outcomes[attempts](p)
		attempts++
		return res
	}

	summary, err := s.SendBulk(context.Background(), nil, 0)
	require.NoError(t, err)
	require.Equal(t, 3, attempts, "one attempt per prospect")
	require.Equal(t, 1, summary.Successful)
	require.Equal(t, 2, summary.Failed)

	// Every attempt left exactly one immutable result row.
	stats, err := st.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, stats.RequestsSent)
	require.Equal(t, 2, stats.RequestsFailed)
}

func TestSendBulkCooldowns(t *testing.T) {
	s, st, _ := testService(t)
	seedProspects(t, st, 3)

	var slept []time.Duration
	s.sleep = func(d time.Duration) { slept = append(slept, d) }

	rateLimitHits := 0
	s.rateLimited = func(*rod.Page) bool {
		rateLimitHits++
		return rateLimitHits == 1 // only the first failure trips it
	}

	attempts := 0
	s.send = func(ctx context.Context, _ *rod.Page, p *models.Prospect) *models.ConnectionResult {
		attempts++
		if attempts == 1 {
			return &models.ConnectionResult{ProfileURL: p.ProfileURL, ErrorClass: models.ErrClassNavigation}
		}
		return &models.ConnectionResult{ProfileURL: p.ProfileURL, Success: true, MessageSent: "Hi"}
	}

	_, err := s.SendBulk(context.Background(), nil, 0)
	require.NoError(t, err)

	// Sleeps: rate-limit cooldown after the first failure, then an
	// inter-request cooldown before each of the two follow-up attempts.
	// No cooldown precedes the first attempt.
	require.Len(t, slept, 3)
	require.GreaterOrEqual(t, slept[0], 300*time.Second, "rate-limit cooldown uses the extended range")
	require.LessOrEqual(t, slept[0], 900*time.Second)
	for _, d := range slept[1:] {
		require.GreaterOrEqual(t, d, 30*time.Second)
		require.LessOrEqual(t, d, 120*time.Second)
	}
}
