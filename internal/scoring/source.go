// Package scoring scores candidate documents concurrently and grades the
// quality of the gathered evidence.
package scoring

import (
	"net/url"
	"strings"
)

// SourceType is the extractability class of a document's origin
type SourceType string

const (
	SourceVideo    SourceType = "video"
	SourceSocial   SourceType = "social"
	SourceWiki     SourceType = "wiki"
	SourceArticle  SourceType = "article"
	SourceOfficial SourceType = "official"
)

// multipliers are the extractability adjustments per source type.
var multipliers = map[SourceType]float64{
	SourceVideo:    0.8,
	SourceSocial:   0.85,
	SourceWiki:     1.2,
	SourceArticle:  1.0,
	SourceOfficial: 1.0,
}

// Multiplier returns the extractability multiplier for a source type.
// Unknown types are treated as articles.
func Multiplier(t SourceType) float64 {
	if m, ok := multipliers[t]; ok {
		return m
	}
	return 1.0
}

var (
	videoDomains = []string{"youtube.com", "youtu.be", "vimeo.com", "tiktok.com", "twitch.tv"}

	socialDomains = []string{
		"linkedin.com", "twitter.com", "x.com", "facebook.com", "instagram.com",
		"reddit.com", "threads.net", "mastodon.social",
	}

	wikiDomains = []string{"wikipedia.org", "wikiwand.com", "fandom.com"}

	// jobBoardDomains host postings published by the employer itself
	jobBoardDomains = []string{
		"greenhouse.io", "lever.co", "workday.com", "myworkdayjobs.com",
		"ashbyhq.com", "smartrecruiters.com",
	}
)

// Classifier assigns a SourceType to URLs. Company domains mark official sources.
type Classifier struct {
	companyDomains []string
}

// NewClassifier creates a Classifier for the given company domains
func NewClassifier(companyDomains ...string) *Classifier {
	domains := make([]string, 0, len(companyDomains))
	for _, d := range companyDomains {
		d = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(d, "www.")))
		if d != "" {
			domains = append(domains, d)
		}
	}
	return &Classifier{companyDomains: domains}
}

// Classify returns the source type of urlStr
func (c *Classifier) Classify(urlStr string) SourceType {
	host := strings.ToLower(ExtractDomain(urlStr))
	if host == "" {
		return SourceArticle
	}

	switch {
	case IsFromDomain(urlStr, videoDomains):
		return SourceVideo
	case IsFromDomain(urlStr, socialDomains):
		return SourceSocial
	case IsFromDomain(urlStr, wikiDomains) || strings.HasPrefix(host, "wiki."):
		return SourceWiki
	case IsFromDomain(urlStr, c.companyDomains) || IsFromDomain(urlStr, jobBoardDomains):
		return SourceOfficial
	default:
		return SourceArticle
	}
}

// ExtractDomain returns the host of a URL without a leading "www."
func ExtractDomain(urlStr string) string {
	if urlStr == "" {
		return ""
	}

	if !strings.Contains(urlStr, "://") {
		urlStr = "https://" + urlStr
	}

	parsed, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}

	return strings.TrimPrefix(parsed.Hostname(), "www.")
}

// IsFromDomain reports whether urlStr is on one of domains or a subdomain of it.
func IsFromDomain(urlStr string, domains []string) bool {
	host := strings.ToLower(ExtractDomain(urlStr))
	if host == "" {
		return false
	}
	return matchesAny(host, domains)
}

func matchesAny(host string, domains []string) bool {
	for _, d := range domains {
		d = strings.ToLower(d)
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
