package provider

import "regexp"

// rutube reads the itemprop="thumbnailUrl" meta content.
var rutube = &patternExtractor{
	name:    "rutube",
	pattern: regexp.MustCompile(`(?i)thumbnailUrl" content="([^"]*)"`),
}
