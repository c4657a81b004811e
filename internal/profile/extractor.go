// Package profile extracts structured context from a profile page and
// scores whether enough of it is present to personalize a message.
package profile

import (
	"strings"
	"time"

	"github.com/example/outreachbot/internal/behavior"
	"github.com/example/outreachbot/internal/logging"
	"github.com/go-rod/rod"
)

// Context is everything the message generator may draw on. Every field is
// optional except the identity trio (Name, JobTitle, Company), which
// sufficiency requires.
type Context struct {
	Name        string
	JobTitle    string
	Company     string
	Location    string
	Industry    string
	Summary     string
	Skills      []string
	Experience  []string
	Education   []string
	RecentPosts []string
}

// InferIndustry buckets a job title by keyword. Inferred, never scored:
// it steers template choice and prompt framing only.
func InferIndustry(title string) string {
	t := strings.ToLower(title)
	switch {
	case containsAny(t, "recruit", "talent", "hiring", "hr", "people", "human resources"):
		return "recruiting"
	case containsAny(t, "engineer", "developer", "architect", "devops", "sre"):
		return "engineering"
	case containsAny(t, "director", "vp", "head of", "chief", "founder", "lead"):
		return "leadership"
	default:
		return "generic"
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// Score weighs the optional field groups. Identity fields do not score;
// they are a hard requirement checked separately.
func Score(c *Context) int {
	score := 0
	if c.Summary != "" {
		score += 2
	}
	if len(c.Skills) > 0 {
		score++
	}
	if len(c.Experience) > 0 {
		score += 2
	}
	if len(c.Education) > 0 {
		score++
	}
	if len(c.RecentPosts) > 0 {
		score += 2
	}
	return score
}

// IsSufficient reports whether the context supports AI personalization:
// identity trio present and at least 3 points of optional signal.
func IsSufficient(c *Context) bool {
	if c.Name == "" || c.JobTitle == "" || c.Company == "" {
		return false
	}
	return Score(c) >= 3
}

type Extractor struct {
	log *logging.Logger
}

func NewExtractor(log *logging.Logger) *Extractor {
	return &Extractor{log: log.With("module", "profile")}
}

// Extract reads whatever field groups the current profile page exposes.
// Missing sections are skipped silently; extraction never fails as a whole.
func (e *Extractor) Extract(p *rod.Page) *Context {
	behavior.Simulate(p, behavior.Scroll)

	c := &Context{}
	c.Name = firstText(p, []string{
		`h1[data-test-id="profile-name"]`,
		`h1.text-heading-xlarge`,
		`div.pv-text-details__left-panel h1`,
	})
	c.JobTitle = firstText(p, []string{
		`div[data-test-id="profile-headline"]`,
		`div.text-body-medium.break-words`,
	})
	c.Location = firstText(p, []string{
		`span[data-test-id="profile-location"]`,
		`span.text-body-small.inline.t-black--light.break-words`,
	})
	c.Company = firstText(p, []string{
		`div[data-test-id="current-company"]`,
		`button[aria-label*="Current company"]`,
		`ul.pv-text-details__right-panel li button span`,
	})
	if c.Company == "" {
		// Headlines like "Recruiter at Initech" carry the company.
		if _, after, found := strings.Cut(c.JobTitle, " at "); found {
			c.Company = strings.TrimSpace(after)
		}
	}
	c.Industry = InferIndustry(c.JobTitle)

	c.Summary = firstText(p, []string{
		`section[data-test-id="about"] div.inline-show-more-text`,
		`div#about ~ div div.inline-show-more-text`,
	})
	c.Skills = allTexts(p, `section[data-test-id="skills"] span[aria-hidden="true"], div#skills ~ div li span[aria-hidden="true"]`, 10)
	c.Experience = allTexts(p, `section[data-test-id="experience"] li div.display-flex span[aria-hidden="true"], div#experience ~ div li div span[aria-hidden="true"]`, 6)
	c.Education = allTexts(p, `section[data-test-id="education"] li span[aria-hidden="true"], div#education ~ div li span[aria-hidden="true"]`, 4)
	c.RecentPosts = allTexts(p, `div.feed-shared-update-v2 span.break-words, section[data-test-id="recent-activity"] li span[dir="ltr"]`, 4)

	e.log.Info("profile context extracted",
		"name", c.Name, "score", Score(c), "sufficient", IsSufficient(c))
	return c
}

func firstText(p *rod.Page, selectors []string) string {
	for _, sel := range selectors {
		el, err := p.Timeout(time.Second).Element(sel)
		if err != nil {
			continue
		}
		text, err := el.Text()
		if err != nil {
			continue
		}
		if t := strings.TrimSpace(text); t != "" {
			return t
		}
	}
	return ""
}

func allTexts(p *rod.Page, selector string, limit int) []string {
	els, err := p.Timeout(time.Second).Elements(selector)
	if err != nil {
		return nil
	}
	var out []string
	seen := make(map[string]bool)
	for _, el := range els {
		text, err := el.Text()
		if err != nil {
			continue
		}
		t := strings.TrimSpace(text)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
		if len(out) >= limit {
			break
		}
	}
	return out
}
