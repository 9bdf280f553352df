package fetch

import (
	"net/url"
	"strings"
)

// Platform is a hosted job board whose markup we know
type Platform string

const (
	PlatformGreenhouse Platform = "greenhouse"
	PlatformLever      Platform = "lever"
	PlatformWorkday    Platform = "workday"
	PlatformAshby      Platform = "ashby"
	PlatformUnknown    Platform = "unknown"
)

type platformRule struct {
	hosts   []string
	content []string
	noise   []string
}

var platformRules = map[Platform]platformRule{
	PlatformGreenhouse: {
		hosts:   []string{"greenhouse.io"},
		content: []string{".job__description.body", ".job__description", "#content", ".job-post-container"},
		noise:   []string{".application--wrapper", ".voluntary-self-id", "#usa_self_id_section"},
	},
	PlatformLever: {
		hosts:   []string{"lever.co"},
		content: []string{".posting-page", ".section-wrapper.page-full-width", ".posting-description"},
		noise:   []string{".apply-section", ".posting-apply"},
	},
	PlatformWorkday: {
		hosts:   []string{"workday.com", "myworkdayjobs.com"},
		content: []string{"[data-automation-id='jobDescription']", ".job-description"},
		noise:   []string{"[data-automation-id='applyButton']"},
	},
	PlatformAshby: {
		hosts:   []string{"ashbyhq.com"},
		content: []string{"[class*='descriptionText']", "main"},
	},
}

// jobBoardNoise applies to every posting page
var jobBoardNoise = []string{
	"form", ".application-form", ".apply-button-container",
	".eeo-statement", ".voluntary-disclosure", ".legal-disclosure",
	".social-share", ".cookie-consent", ".gdpr-notice",
}

// DetectPlatform identifies the job board hosting urlStr.
func DetectPlatform(urlStr string) Platform {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return PlatformUnknown
	}
	host := strings.ToLower(parsed.Hostname())

	for p, rule := range platformRules {
		for _, h := range rule.hosts {
			if host == h || strings.HasSuffix(host, "."+h) {
				return p
			}
		}
	}
	return PlatformUnknown
}

// SelectorsFor returns content and noise selectors suited to urlStr.
// Known job boards get their own selectors ahead of the generic ones.
func SelectorsFor(urlStr string) (content, noise []string) {
	p := DetectPlatform(urlStr)
	rule, ok := platformRules[p]
	if !ok {
		return CompanyPageSelectors(), nil
	}

	content = append(append([]string{}, rule.content...), DefaultTextSelectors()...)
	noise = append(append([]string{}, jobBoardNoise...), rule.noise...)
	return content, noise
}
