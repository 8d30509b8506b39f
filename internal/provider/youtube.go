package provider

import "regexp"

// youtube reads the <link itemprop="thumbnailUrl"> tag of watch pages.
var youtube = &patternExtractor{
	name:    "youtube",
	pattern: regexp.MustCompile(`(?i)<link itemprop="thumbnailUrl" href="([^"]*)">`),
}
