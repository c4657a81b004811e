package discovery

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/example/outreachbot/internal/models"
)

// Entry is one raw search result before validation.
type Entry struct {
	ProfileURL string
	Name       string
	JobTitle   string
	Company    string
	Location   string
}

// Markers separating a rendered results page from an interstitial or an
// empty page. Positive markers are probed twice on the live page before
// the negatives are consulted. Block markers get their own class so a
// captcha or lockout page is logged as such, not as an empty search.
var (
	resultsMarkers = []string{
		"search-results-container",
		"reusable-search__result-container",
		"entity-result",
	}
	noResultsMarkers = []string{
		"No results found",
		"Try searching for",
		"search-no-results",
	}
	blockMarkers = []string{
		"Oops",
		"Captcha",
		"captcha",
		"Access denied",
	}
)

func hasResultsMarker(html string) bool {
	for _, m := range resultsMarkers {
		if strings.Contains(html, m) {
			return true
		}
	}
	return false
}

func hasNoResultsMarker(html string) bool {
	for _, m := range noResultsMarkers {
		if strings.Contains(html, m) {
			return true
		}
	}
	return false
}

func hasBlockMarker(html string) bool {
	for _, m := range blockMarkers {
		if strings.Contains(html, m) {
			return true
		}
	}
	return false
}

// parseResults extracts result entries from a search page. Parsing is
// tolerant: a card missing fields still yields an entry, validation
// decides later whether it survives.
func parseResults(html string) ([]Entry, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse search page: %w", err)
	}

	var entries []Entry
	cards := doc.Find("li.reusable-search__result-container, div.entity-result")
	cards.Each(func(_ int, card *goquery.Selection) {
		link := card.Find(`a[href*="/in/"]`).First()
		href, ok := link.Attr("href")
		if !ok {
			return
		}
		e := Entry{
			ProfileURL: NormalizeProfileURL(href),
			Name:       cleanText(card.Find(`span[dir="ltr"] span[aria-hidden="true"]`).First().Text()),
			JobTitle:   cleanText(card.Find("div.entity-result__primary-subtitle").First().Text()),
			Location:   cleanText(card.Find("div.entity-result__secondary-subtitle").First().Text()),
		}
		if e.Name == "" {
			e.Name = cleanText(link.Text())
		}
		e.Company = companyFromCard(card, e.JobTitle)
		entries = append(entries, e)
	})

	// Markup drifted: fall back to bare profile links so a run degrades
	// instead of going blind.
	if len(entries) == 0 {
		doc.Find(`a[href*="/in/"]`).Each(func(_ int, link *goquery.Selection) {
			if href, ok := link.Attr("href"); ok {
				entries = append(entries, Entry{
					ProfileURL: NormalizeProfileURL(href),
					Name:       cleanText(link.Text()),
				})
			}
		})
	}
	return entries, nil
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// companyFromCard reads the company off the result card's summary line
// ("Current: Recruiter at Initech"), falling back to the title's own
// "<role> at <company>" shape.
func companyFromCard(card *goquery.Selection, title string) string {
	summary := cleanText(card.Find("p.entity-result__summary, div.entity-result__summary").First().Text())
	summary = strings.TrimPrefix(summary, "Current: ")
	if _, after, found := strings.Cut(summary, " at "); found {
		return strings.TrimSpace(after)
	}
	if _, after, found := strings.Cut(title, " at "); found {
		return strings.TrimSpace(after)
	}
	return ""
}

// NormalizeProfileURL canonicalizes a profile link so URL-keyed dedup is
// stable: query and fragment stripped, host forced, no trailing slash.
func NormalizeProfileURL(u string) string {
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	u = strings.TrimSuffix(u, "/")
	if !strings.HasPrefix(u, "http") {
		u = "https://www.linkedin.com" + u
	}
	u = strings.Replace(u, "http://", "https://", 1)
	u = strings.Replace(u, "https://linkedin.com", "https://www.linkedin.com", 1)
	return u
}

// validateEntry enforces the structural minimums a usable prospect needs.
func validateEntry(e Entry) error {
	if !strings.Contains(e.ProfileURL, "/in/") {
		return fmt.Errorf("not a profile URL: %s", e.ProfileURL)
	}
	if utf8.RuneCountInString(e.Name) < 2 {
		return fmt.Errorf("name too short: %q", e.Name)
	}
	if utf8.RuneCountInString(e.JobTitle) < 3 {
		return fmt.Errorf("job title too short: %q", e.JobTitle)
	}
	if utf8.RuneCountInString(e.Location) < 2 {
		return fmt.Errorf("location missing or too short: %q", e.Location)
	}
	return nil
}

// isRelevant keeps only titles matching at least one configured keyword.
func isRelevant(title string, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	t := strings.ToLower(title)
	for _, kw := range keywords {
		if strings.Contains(t, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// filterStats breaks down what the validation pipeline did to a batch.
type filterStats struct {
	Accepted   int
	Duplicates int
	Invalid    int
	Irrelevant int
}

// filterEntries runs the validation pipeline over parsed entries:
// structural checks, relevance gate, then URL-keyed dedup against both the
// store snapshot and the current batch. seen is mutated as entries are
// accepted.
func filterEntries(entries []Entry, seen map[string]bool, keywords []string, source string) ([]models.Prospect, filterStats) {
	var out []models.Prospect
	var stats filterStats
	for _, e := range entries {
		if err := validateEntry(e); err != nil {
			stats.Invalid++
			continue
		}
		if !isRelevant(e.JobTitle, keywords) {
			stats.Irrelevant++
			continue
		}
		if seen[e.ProfileURL] {
			stats.Duplicates++
			continue
		}
		seen[e.ProfileURL] = true
		stats.Accepted++
		out = append(out, models.Prospect{
			ProfileURL:   e.ProfileURL,
			Name:         e.Name,
			JobTitle:     e.JobTitle,
			Company:      e.Company,
			Location:     e.Location,
			SearchSource: source,
		})
	}
	return out, stats
}
