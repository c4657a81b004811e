package message

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/example/outreachbot/internal/models"
	"github.com/example/outreachbot/internal/profile"
)

// Template families keyed by inferred industry. Placeholders are filled
// with the prospect's first name and company; blanks degrade to generic
// phrasing rather than leaving holes.
var templateFamilies = map[string][]string{
	"recruiting": {
		"Hi %s, I came across your work in talent acquisition%s and would love to connect and exchange notes on hiring.",
		"Hi %s, your recruiting background%s stood out to me. Would be great to connect.",
	},
	"engineering": {
		"Hi %s, I noticed your engineering work%s and would enjoy connecting with people building similar things.",
		"Hi %s, your technical background%s caught my attention. Happy to connect.",
	},
	"leadership": {
		"Hi %s, I admire the team you are building%s and would love to connect.",
		"Hi %s, your leadership experience%s resonates with what I am working on. Would be glad to connect.",
	},
	"generic": {
		"Hi %s, I came across your profile%s and would love to add you to my network.",
		"Hi %s, your experience%s looks interesting. Would be great to connect.",
	},
}

// TemplateFor renders a fallback note for a prospect. Always valid per
// Validate: short, named, no spam phrasing.
func TemplateFor(p *models.Prospect) string {
	family := templateFamilies[profile.InferIndustry(p.JobTitle)]
	tmpl := family[rand.Intn(len(family))]

	name := FirstName(p.Name)
	if name == "" {
		name = "there"
	}
	at := ""
	if p.Company != "" {
		at = " at " + p.Company
	}
	return fmt.Sprintf(tmpl, name, at)
}

func FirstName(full string) string {
	fields := strings.Fields(strings.TrimSpace(full))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
