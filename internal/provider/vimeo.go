package provider

import (
	"regexp"
	"strings"
)

// vimeo reads the "thumbnailUrl" field of the JSON-LD block embedded in video pages.
var vimeo = &patternExtractor{
	name:    "vimeo",
	pattern: regexp.MustCompile(`(?i)"thumbnailUrl":"([^"]*)"`),
	clean:   unescapeJSONSlashes,
}

// unescapeJSONSlashes turns `https:\/\/host\/x.jpg` into `https://host/x.jpg`.
func unescapeJSONSlashes(s string) string {
	return strings.ReplaceAll(s, `\/`, `/`)
}
