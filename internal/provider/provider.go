// Package provider classifies URLs by video hosting provider and pulls
// thumbnail URLs out of the providers' pages.
package provider

import (
	"html"
	"regexp"
	"strings"
)

// Extractor finds a provider's canonical thumbnail in a fetched page.
type Extractor interface {
	// Name returns the provider identifier, e.g. "youtube".
	Name() string

	// Thumbnail returns the thumbnail URL declared in page, if any.
	Thumbnail(page string) (string, bool)
}

// patternExtractor applies one provider-specific pattern and returns its first
// capture group.
type patternExtractor struct {
	name    string
	pattern *regexp.Regexp
	clean   func(string) string
}

func (p *patternExtractor) Name() string { return p.name }

func (p *patternExtractor) Thumbnail(page string) (string, bool) {
	m := p.pattern.FindStringSubmatch(page)
	if len(m) < 2 {
		return "", false
	}
	src := html.UnescapeString(strings.TrimSpace(m[1]))
	if p.clean != nil {
		src = p.clean(src)
	}
	if src == "" {
		return "", false
	}
	return src, true
}
