// Package httputil provides the page fetcher and input sanitization utilities.
package httputil

import (
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"linkparser/internal/media"
)

var (
	// ErrInvalidURL is returned when a URL cannot be fetched or yields no content.
	ErrInvalidURL = errors.New("invalid url")

	// ErrTooManyRedirects is returned when a redirect chain exceeds the hop limit.
	ErrTooManyRedirects = errors.New("too many redirects")
)

// maxBodySize caps how much of a response body is read.
const maxBodySize = 10 * 1024 * 1024

// Options configures a Fetcher.
type Options struct {
	Timeout        time.Duration // Total time for one request, per hop
	ConnectTimeout time.Duration
	UserAgent      string
	MaxRedirects   int
	Debug          bool // Dump raw responses to the debug log
}

// NewClient creates the HTTP client used for previews: certificate checks are
// off, and redirects are returned to the caller instead of being followed.
func NewClient(timeout, connectTimeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout: connectTimeout,
			}).DialContext,
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: true, //nolint:gosec // previews are fetched from arbitrary hosts
			},
			TLSHandshakeTimeout: connectTimeout,
			ForceAttemptHTTP2:   true,
			MaxIdleConns:        10,
			IdleConnTimeout:     30 * time.Second,
			MaxIdleConnsPerHost: 5,
		},
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// Fetcher performs GET requests and follows redirects itself, up to a fixed
// number of hops.
type Fetcher struct {
	client       *http.Client
	userAgent    string
	maxRedirects int
	debug        bool
	log          zerolog.Logger
}

// NewFetcher creates a Fetcher from opts.
func NewFetcher(opts Options, log zerolog.Logger) *Fetcher {
	return &Fetcher{
		client:       NewClient(opts.Timeout, opts.ConnectTimeout),
		userAgent:    opts.UserAgent,
		maxRedirects: opts.MaxRedirects,
		debug:        opts.Debug,
		log:          log,
	}
}

// Fetch retrieves rawURL. With headersOnly set the body is left unread and only
// the header lines are returned. Bodies with a declared charset are transcoded to UTF-8.
func (f *Fetcher) Fetch(rawURL string, headersOnly bool) (*media.FetchResult, error) {
	return f.fetch(rawURL, headersOnly, true)
}

// FetchRaw retrieves rawURL and returns the body bytes untouched, whatever
// charset the response declares.
func (f *Fetcher) FetchRaw(rawURL string) (*media.FetchResult, error) {
	return f.fetch(rawURL, false, false)
}

func (f *Fetcher) fetch(rawURL string, headersOnly, decode bool) (*media.FetchResult, error) {
	current := rawURL
	for hop := 0; ; hop++ {
		resp, err := f.get(current)
		if err != nil {
			return nil, err
		}

		location := resp.Header.Get("Location")
		if resp.StatusCode >= 300 && resp.StatusCode <= 399 && location != "" {
			resp.Body.Close()
			if hop >= f.maxRedirects {
				return nil, fmt.Errorf("%w: gave up after %d hops at %s", ErrTooManyRedirects, hop, current)
			}
			next, err := resolveLocation(current, location)
			if err != nil {
				return nil, fmt.Errorf("%w: bad redirect from %s: %v", ErrInvalidURL, current, err)
			}
			f.log.Debug().Str("from", current).Str("to", next).Int("status", resp.StatusCode).Msg("following redirect")
			current = next
			continue
		}

		return f.read(current, resp, headersOnly, decode)
	}
}

// get issues a single GET with the fixed preview headers.
func (f *Fetcher) get(rawURL string) (*http.Response, error) {
	if err := ValidateURL(rawURL); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", ErrInvalidURL, err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html, */*;charset=UTF-8")
	req.Header.Set("Accept-Charset", "UTF-8")
	req.Header.Set("Accept-Language", "en-EN")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %v", ErrInvalidURL, err)
	}
	return resp, nil
}

// read turns the final response into a FetchResult and closes its body.
func (f *Fetcher) read(rawURL string, resp *http.Response, headersOnly, decode bool) (*media.FetchResult, error) {
	defer resp.Body.Close()

	result := &media.FetchResult{
		URL:        rawURL,
		StatusCode: resp.StatusCode,
		Headers:    headerLines(resp),
	}

	if headersOnly {
		if f.debug {
			f.log.Debug().Str("url", rawURL).Strs("headers", result.Headers).Msg("raw response headers")
		}
		return result, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrInvalidURL, err)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty response from %s", ErrInvalidURL, rawURL)
	}

	result.Body = string(body)
	if decode {
		if name := DeclaredCharset(result.Headers); name != "" {
			result.Body = Transcode(result.Body, name)
		}
	}

	if f.debug {
		ev := f.log.Debug().Str("url", rawURL).Strs("headers", result.Headers)
		if decode {
			ev = ev.Str("body", result.Body)
		} else {
			ev = ev.Int("bytes", len(body))
		}
		ev.Msg("raw response")
	}

	return result, nil
}

// headerLines renders the status line and headers as raw text lines.
// Header names are sorted so the output is stable.
func headerLines(resp *http.Response) []string {
	lines := []string{fmt.Sprintf("%s %s", resp.Proto, resp.Status)}

	keys := make([]string, 0, len(resp.Header))
	for k := range resp.Header {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		for _, v := range resp.Header[k] {
			lines = append(lines, k+": "+v)
		}
	}
	return lines
}

// resolveLocation resolves a Location header value against the URL that produced it.
func resolveLocation(base, location string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(strings.TrimSpace(location))
	if err != nil {
		return "", err
	}
	return b.ResolveReference(ref).String(), nil
}
