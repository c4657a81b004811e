package discovery

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const resultsFixture = `
<div class="search-results-container">
<ul role="list">
  <li class="reusable-search__result-container">
    <a href="https://www.linkedin.com/in/alice-chen?miniProfile=abc" data-test-app-aware-link="">
      <span dir="ltr"><span aria-hidden="true">Alice Chen</span></span>
    </a>
    <div class="entity-result__primary-subtitle">Talent Acquisition Lead</div>
    <div class="entity-result__secondary-subtitle">Berlin, Germany</div>
    <p class="entity-result__summary">Current: Talent Acquisition Lead at Initech</p>
  </li>
  <li class="reusable-search__result-container">
    <a href="/in/bob-okafor/">
      <span dir="ltr"><span aria-hidden="true">Bob Okafor</span></span>
    </a>
    <div class="entity-result__primary-subtitle">Hiring Manager</div>
    <div class="entity-result__secondary-subtitle">London, United Kingdom</div>
  </li>
  <li class="reusable-search__result-container">
    <a href="/in/carol-diaz">
      <span dir="ltr"><span aria-hidden="true">Carol Diaz</span></span>
    </a>
    <div class="entity-result__primary-subtitle">Marketing Analyst</div>
    <div class="entity-result__secondary-subtitle">Madrid, Spain</div>
  </li>
  <li class="reusable-search__result-container">
    <a href="/in/no-name"><span dir="ltr"><span aria-hidden="true">X</span></span></a>
    <div class="entity-result__primary-subtitle">Recruiter</div>
  </li>
</ul>
</div>`

func TestParseResults(t *testing.T) {
	entries, err := parseResults(resultsFixture)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	require.Equal(t, "https://www.linkedin.com/in/alice-chen", entries[0].ProfileURL, "query string stripped")
	require.Equal(t, "Alice Chen", entries[0].Name)
	require.Equal(t, "Talent Acquisition Lead", entries[0].JobTitle)
	require.Equal(t, "Initech", entries[0].Company, "company read off the summary line")
	require.Equal(t, "Berlin, Germany", entries[0].Location)

	require.Equal(t, "https://www.linkedin.com/in/bob-okafor", entries[1].ProfileURL, "relative href gets host, trailing slash dropped")
	require.Empty(t, entries[1].Company, "no summary and no company in the title")
}

func TestParseResultsFallsBackToBareLinks(t *testing.T) {
	html := `<div><a href="/in/dave-smith">Dave Smith</a><a href="/feed/">Feed</a></div>`
	entries, err := parseResults(html)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "https://www.linkedin.com/in/dave-smith", entries[0].ProfileURL)
}

func TestNormalizeProfileURL(t *testing.T) {
	cases := map[string]string{
		"/in/alice?x=1":                            "https://www.linkedin.com/in/alice",
		"/in/alice/":                               "https://www.linkedin.com/in/alice",
		"https://www.linkedin.com/in/alice#about":  "https://www.linkedin.com/in/alice",
		"http://www.linkedin.com/in/alice":         "https://www.linkedin.com/in/alice",
		"https://linkedin.com/in/alice":            "https://www.linkedin.com/in/alice",
		"https://www.linkedin.com/in/alice?a=1#b":  "https://www.linkedin.com/in/alice",
	}
	for in, want := range cases {
		require.Equal(t, want, NormalizeProfileURL(in), in)
	}
}

func TestValidateEntry(t *testing.T) {
	good := Entry{ProfileURL: "https://www.linkedin.com/in/alice", Name: "Alice Chen", JobTitle: "Recruiter", Location: "Berlin"}
	require.NoError(t, validateEntry(good))

	bad := good
	bad.ProfileURL = "https://www.linkedin.com/company/initech"
	require.Error(t, validateEntry(bad), "non-profile URL")

	bad = good
	bad.Name = "A"
	require.Error(t, validateEntry(bad), "name under 2 runes")

	bad = good
	bad.JobTitle = "HR"
	require.Error(t, validateEntry(bad), "title under 3 runes")

	bad = good
	bad.Location = "B"
	require.Error(t, validateEntry(bad), "location under 2 runes")

	bad = good
	bad.Location = ""
	require.Error(t, validateEntry(bad), "location is required")
}

func TestFilterEntriesPipeline(t *testing.T) {
	entries, err := parseResults(resultsFixture)
	require.NoError(t, err)

	keywords := []string{"hiring", "talent", "recruit"}
	seen := map[string]bool{
		"https://www.linkedin.com/in/bob-okafor": true, // already stored
	}

	prospects, stats := filterEntries(entries, seen, keywords, "Talent Acquisition | Germany")
	// Alice passes; Bob is a duplicate; Carol's title is irrelevant;
	// the one-letter name fails structurally.
	require.Len(t, prospects, 1)
	require.Equal(t, "Alice Chen", prospects[0].Name)
	require.Equal(t, "Initech", prospects[0].Company)
	require.Equal(t, "Talent Acquisition | Germany", prospects[0].SearchSource)
	require.Equal(t, 1, stats.Accepted)
	require.Equal(t, 1, stats.Duplicates)
	require.Equal(t, 1, stats.Irrelevant)
	require.Equal(t, 1, stats.Invalid)

	// Re-running the same batch yields nothing new: accepted URLs joined
	// the seen set.
	prospects, stats = filterEntries(entries, seen, keywords, "again")
	require.Empty(t, prospects)
	require.Equal(t, 2, stats.Duplicates)
}

func TestResultsMarkers(t *testing.T) {
	require.True(t, hasResultsMarker(resultsFixture))
	require.False(t, hasResultsMarker("<html><body>loading...</body></html>"))
	require.True(t, hasNoResultsMarker(`<div class="search-no-results">No results found</div>`))
	require.False(t, hasNoResultsMarker(resultsFixture))

	require.True(t, hasBlockMarker(`<h1>Oops, something went wrong</h1>`))
	require.True(t, hasBlockMarker(`<div id="captcha-internal"></div>`))
	require.True(t, hasBlockMarker(`<h1>Access denied</h1>`))
	require.False(t, hasBlockMarker(resultsFixture))
}
