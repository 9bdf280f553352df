// Package query expands a classified query into provider search queries,
// broadening them on each retry.
package query

import (
	"fmt"
	"strings"

	"github.com/jonathan/fit-agent/internal/types"
)

const (
	// MinQueries is the fewest queries Expand returns for an in-scope query.
	MinQueries = 3
	// MaxQueries is the most queries Expand returns.
	MaxQueries = 5
)

// noiseSites are excluded on the first, most precise attempt.
var noiseSites = []string{"pinterest.com", "quora.com"}

// SearchQuery is one provider query with the reason it was issued
type SearchQuery struct {
	Text    string `json:"text"`
	Purpose string `json:"purpose"`
}

// Level is how far an iteration has moved away from the most precise queries
type Level int

const (
	// Precise uses title, site, exclusion and phrase operators
	Precise Level = iota
	// Relaxed drops site restriction and exclusions
	Relaxed
	// Broad drops every operator and switches to plainer topic terms
	Broad
	// Lateral also drops qualifier words from the company name and asks
	// about adjacent topics
	Lateral
)

// LevelFor maps a retry iteration to a level. Every iteration up to the
// retry limit gets its own level.
func LevelFor(iteration int) Level {
	switch {
	case iteration <= 0:
		return Precise
	case iteration == 1:
		return Relaxed
	case iteration == 2:
		return Broad
	default:
		return Lateral
	}
}

// topics is the wording attached to the subject for each query purpose.
type topics struct {
	role     string
	skills   string
	stack    string
	culture  string
	overview string
	reviews  string
}

var wording = map[Level]topics{
	Precise: {
		role:     "job requirements",
		skills:   "engineering roles",
		stack:    "engineering blog tech stack",
		culture:  "culture values careers",
		overview: "company overview",
		reviews:  "employee reviews",
	},
	Broad: {
		role:     "job description",
		skills:   "developer jobs",
		stack:    "technology stack",
		culture:  "work culture",
		overview: "about",
		reviews:  "reviews",
	},
	Lateral: {
		role:     "role expectations",
		skills:   "hiring",
		stack:    "engineering",
		culture:  "careers",
		overview: "company",
		reviews:  "glassdoor",
	},
}

func wordingFor(level Level) topics {
	if level == Relaxed {
		return wording[Precise]
	}
	return wording[level]
}

// qualifiers are trailing company-name words dropped at the Lateral level.
var qualifiers = map[string]bool{
	"inc": true, "incorporated": true, "corp": true, "corporation": true,
	"co": true, "company": true, "llc": true, "ltd": true, "limited": true,
	"plc": true, "gmbh": true, "group": true, "holdings": true,
	"technologies": true, "labs": true,
}

// CoreName strips trailing legal and qualifier words, e.g.
// "Acme Corp, Inc." -> "Acme". A name made only of qualifiers is kept whole.
func CoreName(company string) string {
	words := strings.Fields(company)
	n := len(words)
	for n > 1 && qualifiers[strings.ToLower(strings.Trim(words[n-1], ".,"))] {
		n--
	}
	return strings.TrimRight(strings.Join(words[:n], " "), ",")
}

// Expander builds search queries. It holds no per-request state.
type Expander struct{}

// NewExpander creates an Expander
func NewExpander() *Expander {
	return &Expander{}
}

// Expand returns 3 to 5 deduplicated queries for the classification at the
// given retry iteration. It does not modify c.
func (e *Expander) Expand(c types.Classification, iteration int) []SearchQuery {
	level := LevelFor(iteration)
	w := wordingFor(level)
	company := strings.TrimSpace(c.Company)
	if level >= Lateral {
		company = CoreName(company)
	}
	subject := company
	title := strings.TrimSpace(c.JobTitle)
	if subject == "" {
		subject = title
	}
	if subject == "" && len(c.Skills) > 0 {
		subject = strings.Join(firstN(c.Skills, 2), " ")
	}
	if subject == "" {
		return nil
	}

	b := &builder{level: level, seen: make(map[string]bool)}
	domain := GuessDomain(c.Company)

	switch c.Type {
	case types.QueryJobDescription, types.QueryJobTitle:
		if title != "" && company != "" {
			b.add(b.phrase(company)+" "+b.title(title)+" "+w.role, "role requirements")
		} else if title != "" {
			b.add(b.title(title)+" "+w.role+b.exclusions(), "role requirements")
		}
		switch {
		case len(c.Skills) > 0 && (company != "" || title != ""):
			b.add(fmt.Sprintf("%s %s", b.phrase(subject), strings.Join(firstN(c.Skills, 3), " ")), "skill evidence")
		case len(c.Skills) > 0:
			b.add(strings.Join(firstN(c.Skills, 3), " ")+" "+w.skills+b.exclusions(), "skill evidence")
		}
	}

	if company != "" {
		b.add(b.phrase(company)+" "+w.stack+b.site(domain), "technology stack")
		b.add(b.phrase(company)+" "+w.culture+b.exclusions(), "culture signals")
		b.add(b.phrase(company)+" "+w.overview, "employer summary")
		b.add(b.phrase(company)+" "+w.reviews, "third-party perspective")
	}

	// Fillers keep the minimum count when the classification is thin
	fillers := []SearchQuery{
		{Text: subject + " overview", Purpose: "general background"},
		{Text: subject + " news", Purpose: "recent news"},
		{Text: subject + " technology", Purpose: "technology stack"},
	}
	for _, f := range fillers {
		if len(b.out) >= MinQueries {
			break
		}
		b.add(f.Text, f.Purpose)
	}

	if len(b.out) > MaxQueries {
		b.out = b.out[:MaxQueries]
	}
	return b.out
}

type builder struct {
	level Level
	seen  map[string]bool
	out   []SearchQuery
}

func (b *builder) add(text, purpose string) {
	text = strings.Join(strings.Fields(text), " ")
	key := strings.ToLower(text)
	if text == "" || b.seen[key] {
		return
	}
	b.seen[key] = true
	b.out = append(b.out, SearchQuery{Text: text, Purpose: purpose})
}

func (b *builder) phrase(s string) string {
	if b.level >= Broad || !strings.Contains(strings.TrimSpace(s), " ") {
		return s
	}
	return `"` + s + `"`
}

func (b *builder) title(s string) string {
	if b.level >= Broad {
		return s
	}
	return "intitle:" + b.phrase(s)
}

func (b *builder) site(domain string) string {
	if b.level >= Relaxed || domain == "" {
		return ""
	}
	return " site:" + domain
}

func (b *builder) exclusions() string {
	if b.level >= Relaxed {
		return ""
	}
	parts := make([]string, 0, len(noiseSites))
	for _, s := range noiseSites {
		parts = append(parts, "-site:"+s)
	}
	return " " + strings.Join(parts, " ")
}

// GuessDomain derives a likely company domain, e.g. "Acme Corp" -> "acmecorp.com".
func GuessDomain(company string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(company) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		}
	}
	if sb.Len() == 0 {
		return ""
	}
	return sb.String() + ".com"
}

func firstN(s []string, n int) []string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
