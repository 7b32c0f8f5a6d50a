package llm

import (
	"net/url"
	"regexp"
	"strings"
)

// primaryDomainPatterns match hosts considered primary or reputable sources:
// government TLDs, international organisations, legislative and court records,
// major wire services and outlets, and academic repositories.
var primaryDomainPatterns = []*regexp.Regexp{
	// government and academic TLDs
	regexp.MustCompile(`\.gov(\.|$)`),
	regexp.MustCompile(`\.gob(\.|$)`),
	regexp.MustCompile(`\.go\.[a-z]{2}$`),
	regexp.MustCompile(`\.edu`),
	// international organisations
	regexp.MustCompile(`(^|\.)un\.org$`),
	regexp.MustCompile(`(^|\.)icj-cij\.org$`),
	regexp.MustCompile(`(^|\.)icc-cpi\.int$`),
	regexp.MustCompile(`(^|\.)who\.int$`),
	regexp.MustCompile(`(^|\.)worldbank\.org$`),
	regexp.MustCompile(`(^|\.)imf\.org$`),
	regexp.MustCompile(`(^|\.)europa\.eu$`),
	// government data and legislative records
	regexp.MustCompile(`(^|\.)data\.gov$`),
	regexp.MustCompile(`(^|\.)congress\.gov$`),
	regexp.MustCompile(`(^|\.)legislation\.gov\.uk$`),
	regexp.MustCompile(`(^|\.)justice\.gc\.ca$`),
	regexp.MustCompile(`(^|\.)parliament\.`),
	regexp.MustCompile(`court`),
	// wire services and reputable outlets
	regexp.MustCompile(`reuters`),
	regexp.MustCompile(`(^|\.)ap\.org$`),
	regexp.MustCompile(`(^|\.)bbc\.(com|co\.uk)$`),
	regexp.MustCompile(`(^|\.)npr\.org$`),
	regexp.MustCompile(`(^|\.)pbs\.org$`),
	regexp.MustCompile(`(^|\.)aljazeera\.com$`),
	regexp.MustCompile(`(^|\.)dw\.com$`),
	regexp.MustCompile(`(^|\.)france24\.com$`),
	regexp.MustCompile(`(^|\.)cnn\.com$`),
	regexp.MustCompile(`(^|\.)nytimes\.com$`),
	regexp.MustCompile(`(^|\.)washingtonpost\.com$`),
	regexp.MustCompile(`(^|\.)wsj\.com$`),
	regexp.MustCompile(`(^|\.)bloomberg\.com$`),
	regexp.MustCompile(`(^|\.)ft\.com$`),
	regexp.MustCompile(`(^|\.)economist\.com$`),
	// research
	regexp.MustCompile(`(^|\.)arxiv\.org$`),
	regexp.MustCompile(`(^|\.)researchgate\.net$`),
	regexp.MustCompile(`(^|\.)scholar\.google\.com$`),
}

// isPrimarySource reports whether the URL's host matches the allow-list
func isPrimarySource(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, p := range primaryDomainPatterns {
		if p.MatchString(host) {
			return true
		}
	}
	return false
}

// hasPrimarySource reports whether any source URL is primary
func hasPrimarySource(sources []string) bool {
	for _, s := range sources {
		if isPrimarySource(s) {
			return true
		}
	}
	return false
}
