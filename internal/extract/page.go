// Package extract pulls preview metadata (title, description, image
// candidates) out of generic web pages.
package extract

import (
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dyatlov/go-opengraph/opengraph"
)

var (
	titlePattern = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)

	// Description patterns, tried in order: content before name, then name before content.
	descriptionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)<meta +content ?= ?(?:"([^"]*)"|'([^']*)') +name ?= ?['"]description['"]`),
		regexp.MustCompile(`(?i)<meta +name ?= ?['"]description['"] +content ?= ?(?:"([^"]*)"|'([^']*)')`),
	}

	// <link rel="image_src" href="..."> in either attribute order.
	imageSrcPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)<link[^>]*rel="image_src"[^>]*href="([^"]*)"[^>]*>`),
		regexp.MustCompile(`(?i)<link[^>]*href="([^"]*)"[^>]*rel="image_src"[^>]*>`),
	}

	imgPattern = regexp.MustCompile(`(?i)<img[^>]*src=['"]([^'"]*)['"]`)
)

// firstGroup returns the first non-empty capture group of re in s.
func firstGroup(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	for _, g := range m[1:] {
		if g != "" {
			return g
		}
	}
	return ""
}

// Title returns the contents of the first <title> element, or "".
func Title(page string) string {
	m := titlePattern.FindStringSubmatch(page)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(m[1]))
}

// Description returns the page's meta description. The two attribute orders
// are matched directly; anything else falls back to a DOM scan.
func Description(page string) string {
	for _, re := range descriptionPatterns {
		if d := firstGroup(re, page); d != "" {
			return strings.TrimSpace(html.UnescapeString(d))
		}
	}
	return descriptionFromDOM(page)
}

func descriptionFromDOM(page string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return ""
	}

	desc := ""
	doc.Find("meta").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.AttrOr("name", "") != "description" {
			return true
		}
		desc = s.AttrOr("content", "")
		return false
	})
	return strings.TrimSpace(desc)
}

// ImageSrcLink returns the href of <link rel="image_src">.
func ImageSrcLink(page string) (string, bool) {
	for _, re := range imageSrcPatterns {
		if src := strings.TrimSpace(firstGroup(re, page)); src != "" {
			return html.UnescapeString(src), true
		}
	}
	return "", false
}

// OpenGraphImage returns the first og:image declared by the page.
func OpenGraphImage(page string) (string, bool) {
	og := opengraph.NewOpenGraph()
	if err := og.ProcessHTML(strings.NewReader(page)); err != nil {
		return "", false
	}
	for _, img := range og.Images {
		if img == nil {
			continue
		}
		if src := strings.TrimSpace(img.URL); src != "" {
			return src, true
		}
	}
	return "", false
}

// ImageSources returns the src of every <img> tag in document order.
func ImageSources(page string) []string {
	var sources []string
	for _, m := range imgPattern.FindAllStringSubmatch(page, -1) {
		src := strings.TrimSpace(html.UnescapeString(m[1]))
		if src != "" {
			sources = append(sources, src)
		}
	}
	return sources
}

// ResolveURL makes ref absolute against pageURL. Protocol-relative references
// take the page's scheme; absolute http(s) references are returned as is.
// Results that are not http(s) URLs are rejected.
func ResolveURL(pageURL, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("empty reference")
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("parsing page URL: %w", err)
	}

	var resolved string
	switch {
	case strings.HasPrefix(ref, "//"):
		resolved = base.Scheme + ":" + ref
	case hasHTTPScheme(ref):
		resolved = ref
	default:
		r, err := url.Parse(ref)
		if err != nil {
			return "", fmt.Errorf("parsing reference %q: %w", ref, err)
		}
		resolved = base.ResolveReference(r).String()
	}

	if !hasHTTPScheme(resolved) {
		return "", fmt.Errorf("not an http(s) URL: %q", resolved)
	}
	return resolved, nil
}

func hasHTTPScheme(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
