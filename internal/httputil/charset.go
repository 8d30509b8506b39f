package httputil

import (
	"regexp"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

var charsetPattern = regexp.MustCompile(`(?i)charset=([A-Za-z0-9_\-]+)`)

// DeclaredCharset returns the charset= parameter of the Content-Type header
// lines, or "" when none declares one.
func DeclaredCharset(headers []string) string {
	for _, h := range headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok || !strings.EqualFold(strings.TrimSpace(name), "Content-Type") {
			continue
		}
		if m := charsetPattern.FindStringSubmatch(value); m != nil {
			return m[1]
		}
	}
	return ""
}

// Transcode converts body from the named charset to UTF-8. Byte sequences
// that cannot be decoded are dropped. Unknown charsets return body unchanged.
func Transcode(body, charset string) string {
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return body
	}

	if name, _ := htmlindex.Name(enc); name == "utf-8" {
		return strings.ToValidUTF8(body, "")
	}

	out, _, err := transform.String(enc.NewDecoder(), body)
	if err != nil {
		return body
	}
	out = strings.ToValidUTF8(out, "")

	// U+FFFD in the output comes from undecodable input unless the source
	// charset can encode it itself (UTF-16, GB18030); those keep it.
	if !encodesReplacementChar(enc) {
		out = strings.ReplaceAll(out, "\uFFFD", "")
	}
	return out
}

func encodesReplacementChar(enc encoding.Encoding) bool {
	_, err := enc.NewEncoder().String("\uFFFD")
	return err == nil
}
