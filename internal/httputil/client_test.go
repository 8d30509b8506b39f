package httputil

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestFetcher(maxRedirects int) *Fetcher {
	return NewFetcher(Options{
		Timeout:        5 * time.Second,
		ConnectTimeout: 3 * time.Second,
		UserAgent:      "linkparser test",
		MaxRedirects:   maxRedirects,
		Debug:          true,
	}, zerolog.Nop())
}

func TestFetchFollowsRedirect(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/start":
			w.Header().Set("Location", srv.URL+"/final")
			w.WriteHeader(http.StatusFound)
		case "/final":
			w.Write([]byte("<html>final page</html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	res, err := newTestFetcher(5).Fetch(srv.URL+"/start", false)
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if res.Body != "<html>final page</html>" {
		t.Errorf("body = %q, want the final page", res.Body)
	}
	if res.URL != srv.URL+"/final" {
		t.Errorf("final URL = %q, want %q", res.URL, srv.URL+"/final")
	}
	if res.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", res.StatusCode)
	}
}

func TestFetchRelativeRedirect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/a/start" {
			w.Header().Set("Location", "next")
			w.WriteHeader(http.StatusMovedPermanently)
			return
		}
		w.Write([]byte(r.URL.Path))
	}))
	defer srv.Close()

	res, err := newTestFetcher(5).Fetch(srv.URL+"/a/start", false)
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if res.Body != "/a/next" {
		t.Errorf("body = %q, want /a/next", res.Body)
	}
}

func TestFetchTooManyRedirects(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Location", "/loop")
		w.WriteHeader(http.StatusFound)
	}))
	defer srv.Close()

	_, err := newTestFetcher(3).Fetch(srv.URL+"/loop", false)
	if !errors.Is(err, ErrTooManyRedirects) {
		t.Fatalf("Fetch() error = %v, want ErrTooManyRedirects", err)
	}
	if got := hits.Load(); got != 4 {
		t.Errorf("server hit %d times, want 4 (initial request + 3 hops)", got)
	}
}

func TestFetchEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	_, err := newTestFetcher(5).Fetch(srv.URL, false)
	if !errors.Is(err, ErrInvalidURL) {
		t.Fatalf("Fetch() error = %v, want ErrInvalidURL", err)
	}
}

func TestFetchInvalidURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"unsupported scheme", "ftp://example.com/file"},
		{"empty", ""},
		{"connection refused", "http://127.0.0.1:1/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestFetcher(5).Fetch(tt.url, false)
			if !errors.Is(err, ErrInvalidURL) {
				t.Errorf("Fetch(%q) error = %v, want ErrInvalidURL", tt.url, err)
			}
		})
	}
}

func TestFetchHeadersOnly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("not really a png"))
	}))
	defer srv.Close()

	res, err := newTestFetcher(5).Fetch(srv.URL+"/pic.png", true)
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if res.Body != "" {
		t.Errorf("headers-only fetch returned body %q", res.Body)
	}
	if !strings.HasPrefix(res.Headers[0], "HTTP/1.1 200") {
		t.Errorf("first header line = %q, want status line", res.Headers[0])
	}

	found := false
	for _, h := range res.Headers {
		if h == "Content-Type: image/png" {
			found = true
		}
	}
	if !found {
		t.Errorf("headers %q missing Content-Type: image/png", res.Headers)
	}
}

func TestFetchSendsPreviewHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "linkparser test" {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		if r.Header.Get("Accept-Charset") != "UTF-8" {
			t.Errorf("Accept-Charset = %q", r.Header.Get("Accept-Charset"))
		}
		if r.Header.Get("Accept-Language") != "en-EN" {
			t.Errorf("Accept-Language = %q", r.Header.Get("Accept-Language"))
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	if _, err := newTestFetcher(5).Fetch(srv.URL, false); err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
}

func TestFetchSkipsCertificateVerification(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("secure"))
	}))
	defer srv.Close()

	res, err := newTestFetcher(5).Fetch(srv.URL, false)
	if err != nil {
		t.Fatalf("Fetch() against self-signed server error: %v", err)
	}
	if res.Body != "secure" {
		t.Errorf("body = %q, want secure", res.Body)
	}
}

func TestFetchTranscodesDeclaredCharset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=windows-1251")
		// "Привет" in windows-1251
		w.Write([]byte{0xCF, 0xF0, 0xE8, 0xE2, 0xE5, 0xF2})
	}))
	defer srv.Close()

	res, err := newTestFetcher(5).Fetch(srv.URL, false)
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if res.Body != "Привет" {
		t.Errorf("body = %q, want Привет", res.Body)
	}
}

func TestFetchRawSkipsTranscoding(t *testing.T) {
	raw := []byte{0x89, 'P', 'N', 'G', 0xCF, 0xF0, 0xFF, 0x00, 0xE8}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png; charset=utf-8")
		w.Write(raw)
	}))
	defer srv.Close()

	f := newTestFetcher(5)

	res, err := f.FetchRaw(srv.URL)
	if err != nil {
		t.Fatalf("FetchRaw() error: %v", err)
	}
	if res.Body != string(raw) {
		t.Errorf("FetchRaw() body = %q, want the bytes as served", res.Body)
	}

	decoded, err := f.Fetch(srv.URL, false)
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if decoded.Body == string(raw) {
		t.Error("Fetch() should transcode a body with a declared charset")
	}
}

func TestDeclaredCharset(t *testing.T) {
	tests := []struct {
		name    string
		headers []string
		want    string
	}{
		{"content type", []string{"HTTP/1.1 200 OK", "Content-Type: text/html; charset=UTF-8"}, "UTF-8"},
		{"upper case token", []string{"Content-Type: text/html; CHARSET=koi8-r"}, "koi8-r"},
		{"none", []string{"Content-Type: text/html"}, ""},
		{"sorted before content type", []string{"HTTP/1.1 200 OK", "Cache-Control: x-charset=koi8-r", "Content-Type: text/html; charset=windows-1251"}, "windows-1251"},
		{"only outside content type", []string{"Cache-Control: x-charset=koi8-r", "Content-Type: text/html"}, ""},
		{"lower case header name", []string{"content-type: text/html; charset=iso-8859-1"}, "iso-8859-1"},
		{"empty", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeclaredCharset(tt.headers); got != tt.want {
				t.Errorf("DeclaredCharset() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTranscode(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		charset string
		want    string
	}{
		{"utf-8 passthrough", "héllo", "utf-8", "héllo"},
		{"invalid utf-8 dropped", "ab\xffcd", "utf-8", "abcd"},
		{"utf-8 keeps replacement char", "a\uFFFDb\xff", "utf-8", "a\uFFFDb"},
		{"utf-16 keeps replacement char", "a\x00\xfd\xff", "utf-16le", "a\uFFFD"},
		{"latin1", "caf\xe9", "iso-8859-1", "café"},
		{"unknown charset", "raw\xff", "x-made-up", "raw\xff"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Transcode(tt.body, tt.charset); got != tt.want {
				t.Errorf("Transcode(%q, %q) = %q, want %q", tt.body, tt.charset, got, tt.want)
			}
		})
	}
}
