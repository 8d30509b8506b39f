package provider

import "regexp"

// coub reads <link href="..." rel="thumbnail">, with either quote style.
var coub = &patternExtractor{
	name:    "coub",
	pattern: regexp.MustCompile(`(?i)<link href=['"]([^'"]*)['"] rel=['"]thumbnail['"]`),
}
