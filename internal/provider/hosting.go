package provider

import (
	"regexp"
	"slices"
)

// Rule maps a hosting provider to the URL fragment that identifies it.
type Rule struct {
	Name    string
	Pattern string
}

// rules is matched in order; the first hit wins.
var rules = []Rule{
	{Name: "youtube", Pattern: "youtu"},
	{Name: "vimeo", Pattern: "vimeo"},
	{Name: "rutube", Pattern: "rutube"},
	{Name: "coub", Pattern: "coub"},
}

var extractorsByName = map[string]Extractor{
	youtube.Name(): youtube,
	vimeo.Name():   vimeo,
	rutube.Name():  rutube,
	coub.Name():    coub,
}

type compiledRule struct {
	name string
	re   *regexp.Regexp
}

var compiledRules = compileRules(rules)

func compileRules(rs []Rule) []compiledRule {
	out := make([]compiledRule, 0, len(rs))
	for _, r := range rs {
		out = append(out, compiledRule{name: r.Name, re: regexp.MustCompile(`(?i)` + r.Pattern)})
	}
	return out
}

// Rules returns a copy of the classification table in match order.
func Rules() []Rule {
	return slices.Clone(rules)
}

// Classify returns the extractor of the first provider whose pattern matches
// rawURL, case-insensitively.
func Classify(rawURL string) (Extractor, bool) {
	for _, r := range compiledRules {
		if r.re.MatchString(rawURL) {
			return ByName(r.name)
		}
	}
	return nil, false
}

// ByName returns the extractor registered for a provider name.
func ByName(name string) (Extractor, bool) {
	e, ok := extractorsByName[name]
	return e, ok
}
