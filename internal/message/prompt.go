package message

import (
	"fmt"
	"strings"

	"github.com/example/outreachbot/internal/models"
	"github.com/example/outreachbot/internal/profile"
)

const systemPrompt = "You write short, warm LinkedIn connection notes. " +
	"Output only the note text, no quotes, no preamble. " +
	"Maximum 300 characters. Mention one specific detail from the profile. " +
	"Never sound like a sales pitch."

// Prompt context limits. Oversized context hurts generation quality and
// wastes tokens, so each group is capped before it reaches the model.
const (
	maxSummaryChars = 500
	maxSkills       = 5
	maxExperience   = 2
	maxEducation    = 2
	maxPosts        = 2
)

// BuildPrompt flattens the prospect and profile context into the user
// message for the chat model.
func BuildPrompt(p *models.Prospect, pc *profile.Context) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a connection note to %s, %s", pc.Name, pc.JobTitle)
	if pc.Company != "" {
		fmt.Fprintf(&b, " at %s", pc.Company)
	}
	b.WriteString(".\n")
	if pc.Location != "" {
		fmt.Fprintf(&b, "Location: %s\n", pc.Location)
	}
	if pc.Industry != "" {
		fmt.Fprintf(&b, "Industry: %s\n", pc.Industry)
	}
	if pc.Summary != "" {
		fmt.Fprintf(&b, "About: %s\n", truncate(pc.Summary, maxSummaryChars))
	}
	if len(pc.Skills) > 0 {
		fmt.Fprintf(&b, "Skills: %s\n", strings.Join(head(pc.Skills, maxSkills), ", "))
	}
	if len(pc.Experience) > 0 {
		fmt.Fprintf(&b, "Experience: %s\n", strings.Join(head(pc.Experience, maxExperience), "; "))
	}
	if len(pc.Education) > 0 {
		fmt.Fprintf(&b, "Education: %s\n", strings.Join(head(pc.Education, maxEducation), "; "))
	}
	if len(pc.RecentPosts) > 0 {
		fmt.Fprintf(&b, "Recent posts: %s\n", strings.Join(head(pc.RecentPosts, maxPosts), "; "))
	}
	if p.SearchSource != "" {
		fmt.Fprintf(&b, "Found via search: %s\n", p.SearchSource)
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func head(ss []string, n int) []string {
	if len(ss) <= n {
		return ss
	}
	return ss[:n]
}

// Connection notes are capped by the platform.
const maxNoteChars = 300

var spamPhrases = []string{
	"click here",
	"buy now",
	"limited time",
	"act now",
	"100% free",
	"guarantee",
}

// Sanitize strips the wrapping a chat model tends to add around the note.
func Sanitize(text string) string {
	t := strings.TrimSpace(text)
	t = strings.Trim(t, `"'`)
	if _, after, found := strings.Cut(t, "note:"); found && len(after) < len(t) {
		t = strings.TrimSpace(after)
	}
	return t
}

// Validate rejects generated notes that are empty, oversized, impersonal
// or spammy. A rejection routes the caller to the template fallback.
func Validate(text string, p *models.Prospect) error {
	if text == "" {
		return fmt.Errorf("empty message")
	}
	if len(text) > maxNoteChars {
		return fmt.Errorf("message exceeds %d characters (%d)", maxNoteChars, len(text))
	}
	lower := strings.ToLower(text)
	for _, phrase := range spamPhrases {
		if strings.Contains(lower, phrase) {
			return fmt.Errorf("message contains spam phrase %q", phrase)
		}
	}
	if first := FirstName(p.Name); first != "" && !strings.Contains(text, first) {
		return fmt.Errorf("message does not address %s by name", first)
	}
	return nil
}
