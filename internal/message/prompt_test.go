package message

import (
	"strings"
	"testing"

	"github.com/example/outreachbot/internal/models"
	"github.com/example/outreachbot/internal/profile"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	p := &models.Prospect{Name: "Alice Chen"}

	require.NoError(t, Validate("Hi Alice, great to connect.", p))
	require.Error(t, Validate("", p), "empty")
	require.Error(t, Validate(strings.Repeat("a", 301), p), "too long")
	require.Error(t, Validate("Hi Alice, click here for a limited time offer!", p), "spam phrase")
	require.Error(t, Validate("Hello, I would like to connect.", p), "missing first name")
}

func TestSanitize(t *testing.T) {
	require.Equal(t, "Hi Alice, great work.", Sanitize(`  "Hi Alice, great work."  `))
	require.Equal(t, "Hi Alice.", Sanitize("Here is your note: Hi Alice."))
}

func TestBuildPromptTruncatesContext(t *testing.T) {
	p := &models.Prospect{Name: "Alice Chen", SearchSource: "Talent Acquisition United States"}
	pc := &profile.Context{
		Name:     "Alice Chen",
		JobTitle: "Recruiter",
		Company:  "Initech",
		Industry: "recruiting",
		Summary:  strings.Repeat("s", 600),
		Skills:   []string{"skill1", "skill2", "skill3", "skill4", "skill5", "skill6"},
	}
	prompt := BuildPrompt(p, pc)
	require.Contains(t, prompt, "Alice Chen, Recruiter at Initech")
	require.Contains(t, prompt, "Industry: recruiting")
	require.NotContains(t, prompt, strings.Repeat("s", 501), "summary capped at 500 chars")
	require.Contains(t, prompt, "skill5")
	require.NotContains(t, prompt, "skill6", "skills capped at top 5")
	require.Contains(t, prompt, "Found via search: Talent Acquisition United States")
}

func TestTemplateForAlwaysValid(t *testing.T) {
	prospects := []*models.Prospect{
		{Name: "Alice Chen", JobTitle: "Talent Acquisition Lead", Company: "Initech"},
		{Name: "Bob Okafor", JobTitle: "Staff Engineer"},
		{Name: "Carol Diaz", JobTitle: "VP of People", Company: "Globex"},
		{Name: "", JobTitle: ""},
	}
	for _, p := range prospects {
		for i := 0; i < 10; i++ {
			text := TemplateFor(p)
			require.NotEmpty(t, text)
			require.LessOrEqual(t, len(text), 300)
			if p.Name != "" {
				require.Contains(t, text, FirstName(p.Name))
			}
		}
	}
}
