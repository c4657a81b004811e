// Package discovery finds prospects through people search: it builds a
// query matrix from configured titles, locations and companies, harvests
// result pages, and stores validated, deduplicated prospects.
package discovery

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/example/outreachbot/internal/behavior"
	"github.com/example/outreachbot/internal/browser"
	"github.com/example/outreachbot/internal/config"
	"github.com/example/outreachbot/internal/logging"
	"github.com/example/outreachbot/internal/models"
	"github.com/example/outreachbot/internal/store"
	"github.com/go-rod/rod"
)

// Company-derived queries are capped so one run never burns the whole
// search budget on a single company list.
const (
	maxCompaniesPerRun    = 5
	maxTitlesPerCompany   = 3
	maxPagesPerQuery      = 5
	resultsRenderWaitMs   = 2500
	liveVerifyTimeoutSecs = 10
)

type Query struct {
	Keywords string
	Source   string
}

type Service struct {
	cfg *config.Config
	st  *store.Store
	log *logging.Logger

	sleep func(time.Duration)
}

func New(cfg *config.Config, st *store.Store) *Service {
	return &Service{
		cfg:   cfg,
		st:    st,
		log:   logging.New(cfg.Logging.Level).With("module", "discovery"),
		sleep: time.Sleep,
	}
}

// BuildQueries expands the configured search matrix: every title paired
// with every location, then titles paired with companies under the
// per-run company caps.
func BuildQueries(cfg *config.Config) []Query {
	var queries []Query
	for _, title := range cfg.Search.JobTitles {
		for _, loc := range cfg.Search.Locations {
			queries = append(queries, Query{
				Keywords: title + " " + loc,
				Source:   fmt.Sprintf("%s | %s", title, loc),
			})
		}
	}
	companies := cfg.Search.Companies
	if len(companies) > maxCompaniesPerRun {
		companies = companies[:maxCompaniesPerRun]
	}
	titles := cfg.Search.JobTitles
	if len(titles) > maxTitlesPerCompany {
		titles = titles[:maxTitlesPerCompany]
	}
	for _, company := range companies {
		for _, title := range titles {
			queries = append(queries, Query{
				Keywords: title + " " + company,
				Source:   fmt.Sprintf("%s | %s", title, company),
			})
		}
	}
	return queries
}

// SearchURL builds the people-search URL for a query and page number.
func SearchURL(baseURL, keywords string, page int) string {
	u := fmt.Sprintf("%ssearch/results/people/?keywords=%s&origin=GLOBAL_SEARCH_HEADER",
		baseURL, url.QueryEscape(keywords))
	if page > 1 {
		u = fmt.Sprintf("%s&page=%d", u, page)
	}
	return u
}

// Run executes the query matrix until the prospect or search budget is
// spent, persisting validated prospects as it goes.
func (s *Service) Run(ctx context.Context, p *rod.Page) (*models.RunSummary, error) {
	start := time.Now()
	summary := &models.RunSummary{RunType: models.RunTypeDiscovery}

	seen, err := s.st.LoadProspectURLs(ctx)
	if err != nil {
		return nil, err
	}

	queries := BuildQueries(s.cfg)
	if len(queries) > s.cfg.Limits.MaxSearchesPerRun {
		queries = queries[:s.cfg.Limits.MaxSearchesPerRun]
	}
	searchCooldown := behavior.CooldownRange{Min: s.cfg.Cooldowns.SearchMin, Max: s.cfg.Cooldowns.SearchMax}
	s.log.Info("discovery run starting",
		"queries", len(queries), "known_urls", len(seen), "budget", s.cfg.Limits.MaxProspectsPerRun)

	for i, q := range queries {
		if summary.ProspectsFound >= s.cfg.Limits.MaxProspectsPerRun {
			s.log.Info("prospect budget reached", "found", summary.ProspectsFound)
			break
		}
		if i > 0 {
			d := searchCooldown.Duration()
			s.log.Info("per-search cooldown", "duration", d.String())
			s.sleep(d)
		}

		found, dups, invalid, err := s.runQuery(ctx, p, q, seen, summary.ProspectsFound)
		if err != nil {
			s.log.Warn("query failed", "keywords", q.Keywords, "err", err)
			continue
		}
		summary.ProspectsFound += found
		summary.DuplicatesFound += dups
		summary.ValidationErrors += invalid
	}

	summary.Elapsed = time.Since(start)
	if err := s.st.AppendRunSummary(ctx, summary); err != nil {
		s.log.Warn("persist run summary failed", "err", err)
	}
	s.log.Info("discovery run finished",
		"found", summary.ProspectsFound, "duplicates", summary.DuplicatesFound,
		"validation_errors", summary.ValidationErrors, "elapsed", summary.Elapsed.String())
	return summary, nil
}

func (s *Service) runQuery(ctx context.Context, p *rod.Page, q Query, seen map[string]bool, alreadyFound int) (found, dups, invalid int, err error) {
	budget := s.cfg.Limits.MaxProspectsPerRun - alreadyFound
	behavior.Simulate(p, behavior.PreSearch)

	for pageNum := 1; pageNum <= maxPagesPerQuery && found < budget; pageNum++ {
		pageURL := SearchURL(s.cfg.LinkedIn.BaseURL, q.Keywords, pageNum)
		s.log.Info("navigating to search page", "keywords", q.Keywords, "page", pageNum)
		if err := navigateWithRetry(p, pageURL); err != nil {
			return found, dups, invalid, err
		}

		html, ok := s.awaitResults(p)
		if !ok {
			if pageNum == 1 {
				_ = browser.ScreenshotOnError(p, "search-fail", fmt.Errorf("no results page"))
				return found, dups, invalid, fmt.Errorf("results never rendered")
			}
			break
		}

		entries, err := parseResults(html)
		if err != nil {
			return found, dups, invalid, err
		}
		if len(entries) == 0 {
			break
		}

		prospects, stats := filterEntries(entries, seen, s.cfg.Search.RelevanceKeywords, q.Source)
		if len(prospects) > budget-found {
			prospects = prospects[:budget-found]
		}
		if s.cfg.Search.LiveVerification {
			prospects = s.verifyLive(p, prospects, &stats)
		}

		stored, storeDups, err := s.st.AppendProspects(ctx, prospects)
		if err != nil {
			return found, dups, invalid, err
		}
		found += stored
		dups += stats.Duplicates + storeDups
		invalid += stats.Invalid + stats.Irrelevant
		s.log.Info("page harvested", "page", pageNum, "stored", stored,
			"duplicates", stats.Duplicates+storeDups, "rejected", stats.Invalid+stats.Irrelevant)

		if stats.Accepted == 0 {
			break
		}
		behavior.Simulate(p, behavior.Scroll)
	}
	return found, dups, invalid, nil
}

// navigateWithRetry retries a failed navigation once before giving up on
// the query.
func navigateWithRetry(p *rod.Page, pageURL string) error {
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			behavior.Pause(behavior.General)
		}
		if err = p.Navigate(pageURL); err != nil {
			continue
		}
		if err = p.WaitLoad(); err == nil {
			return nil
		}
	}
	return fmt.Errorf("navigate %s: %w", pageURL, err)
}

// awaitResults gives the results container two chances to render before
// the no-results markers are consulted. A slow page is indistinguishable
// from a broken one on the first look, so absence of positives alone
// never fails the page.
func (s *Service) awaitResults(p *rod.Page) (string, bool) {
	var html string
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			behavior.ScrollHumanLike(p)
		}
		behavior.SleepRandom(resultsRenderWaitMs, resultsRenderWaitMs+1500)
		h, err := p.HTML()
		if err != nil {
			continue
		}
		html = h
		if hasResultsMarker(html) {
			return html, true
		}
	}
	switch {
	case hasBlockMarker(html):
		s.log.Warn("search page blocked or challenged")
	case hasNoResultsMarker(html):
		s.log.Info("search returned no results")
	default:
		s.log.Warn("results page unrecognized")
	}
	return html, false
}

// verifyLive opens each candidate profile and keeps only those whose page
// actually renders an identity heading. Expensive, off by default.
func (s *Service) verifyLive(p *rod.Page, prospects []models.Prospect, stats *filterStats) []models.Prospect {
	var out []models.Prospect
	for _, prospect := range prospects {
		if err := p.Navigate(prospect.ProfileURL); err != nil {
			stats.Invalid++
			continue
		}
		if err := p.WaitLoad(); err != nil {
			stats.Invalid++
			continue
		}
		if _, err := p.Timeout(liveVerifyTimeoutSecs * time.Second).Element("h1"); err != nil {
			s.log.Info("live verification rejected prospect", "url", prospect.ProfileURL)
			stats.Invalid++
			continue
		}
		out = append(out, prospect)
		behavior.Pause(behavior.General)
	}
	return out
}
