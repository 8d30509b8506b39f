// Package preview builds link previews: it classifies a URL, fetches the
// page and picks a thumbnail that is re-hosted locally.
package preview

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/rs/zerolog"

	"linkparser/internal/config"
	"linkparser/internal/extract"
	"linkparser/internal/httputil"
	"linkparser/internal/media"
	"linkparser/internal/provider"
	"linkparser/internal/relay"
	"linkparser/internal/storage"
)

// invalidURLMessage is reported under errors["url"] when the page cannot be fetched.
const invalidURLMessage = "Invalid url"

var imageHeader = regexp.MustCompile(`(?i)image/`)

// pageFetcher retrieves pages and header-only responses.
type pageFetcher interface {
	Fetch(rawURL string, headersOnly bool) (*media.FetchResult, error)
}

// imageRelay re-hosts an image and returns its public URL.
type imageRelay interface {
	Relay(url string) (string, error)
}

// stage tries to complete a preview. It returns the updated result and
// whether the preview is finished.
type stage func(url string, res media.PreviewResult) (media.PreviewResult, bool)

// Previewer produces previews. It holds no per-request state and is safe for
// concurrent use.
type Previewer struct {
	fetcher   pageFetcher
	relay     imageRelay
	maxImages int
	log       zerolog.Logger
}

// New wires a Previewer from cfg: the page fetcher, the upload store and the image relay.
func New(cfg *config.Config, log zerolog.Logger) (*Previewer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	dir, err := cfg.ExpandUploadPath()
	if err != nil {
		return nil, err
	}
	store, err := storage.New(dir, cfg.UploadURL)
	if err != nil {
		return nil, err
	}

	fetcher := httputil.NewFetcher(httputil.Options{
		Timeout:        cfg.Timeout(),
		ConnectTimeout: cfg.ConnectTimeout(),
		UserAgent:      cfg.UserAgent,
		MaxRedirects:   cfg.MaxRedirects,
		Debug:          cfg.Debug,
	}, log.With().Str("component", "fetcher").Logger())

	return &Previewer{
		fetcher:   fetcher,
		relay:     relay.New(fetcher, store, cfg.MinWidth, cfg.MinHeight, log),
		maxImages: cfg.MaxImages,
		log:       log.With().Str("component", "preview").Logger(),
	}, nil
}

// Preview returns the preview for url. Failures never abort the preview;
// they leave fields empty or are reported in Errors.
func (p *Previewer) Preview(url string) media.PreviewResult {
	res := media.PreviewResult{Type: media.Link}

	for _, s := range []stage{p.video, p.image, p.page} {
		next, done := s(url, res)
		res = next
		if done {
			break
		}
	}

	if len(res.Errors) > 0 {
		res.Status = "error"
	}
	return res
}

// video handles URLs of known hosting providers.
func (p *Previewer) video(url string, res media.PreviewResult) (media.PreviewResult, bool) {
	ex, ok := provider.Classify(url)
	if !ok {
		return res, false
	}

	res.Type = media.Video
	res.Hosting = ex.Name()

	page, res := p.content(url, res)
	if page == nil {
		return res, true
	}

	thumb, ok := ex.Thumbnail(page.Body)
	if !ok {
		p.log.Debug().Str("url", url).Str("hosting", ex.Name()).Msg("no thumbnail on page")
		return res, true
	}
	if src, ok := p.relayRef(page.URL, thumb); ok {
		res.ImageSrc = src
	}
	return res, true
}

// image handles URLs that point straight at an image.
func (p *Previewer) image(url string, res media.PreviewResult) (media.PreviewResult, bool) {
	head, err := p.fetcher.Fetch(url, true)
	if err != nil {
		return res, false
	}

	for _, h := range head.Headers {
		if !imageHeader.MatchString(h) {
			continue
		}
		if src, err := p.relay.Relay(url); err == nil {
			res.ImageSrc = src
		} else {
			p.log.Debug().Err(err).Str("url", url).Msg("direct image not relayed")
		}
		res.Type = media.Link
		res.Status = "OK"
		return res, true
	}
	return res, false
}

// page handles every other URL: the thumbnail is taken from the image_src
// link, then og:image, then the page's <img> tags.
func (p *Previewer) page(url string, res media.PreviewResult) (media.PreviewResult, bool) {
	res.Type = media.Link

	page, res := p.content(url, res)
	if page == nil {
		return res, true
	}

	if ref, ok := extract.ImageSrcLink(page.Body); ok {
		if src, ok := p.relayRef(page.URL, ref); ok {
			res.ImageSrc = src
			return res, true
		}
	}

	if ref, ok := extract.OpenGraphImage(page.Body); ok {
		if src, ok := p.relayRef(page.URL, ref); ok {
			res.ImageSrc = src
			return res, true
		}
	}

	if src, ok := p.scanImages(page.URL, extract.ImageSources(page.Body)); ok {
		res.ImageSrc = src
	}
	return res, true
}

// content fetches the page and fills in its title and description. A nil
// page means the fetch failed and the error has been recorded.
func (p *Previewer) content(url string, res media.PreviewResult) (*media.FetchResult, media.PreviewResult) {
	page, err := p.fetcher.Fetch(url, false)
	if err != nil {
		p.log.Debug().Err(err).Str("url", url).Msg("page fetch failed")
		if errors.Is(err, httputil.ErrInvalidURL) || errors.Is(err, httputil.ErrTooManyRedirects) {
			res.Errors = withError(res.Errors, "url", invalidURLMessage)
		}
		return nil, res
	}

	res.Title = extract.Title(page.Body)
	res.Description = extract.Description(page.Body)
	return page, res
}

// scanImages relays candidates in order until one is accepted, making at most
// maxImages relay attempts.
func (p *Previewer) scanImages(pageURL string, refs []string) (string, bool) {
	attempts := 0
	for _, ref := range refs {
		if attempts >= p.maxImages {
			break
		}
		abs, err := extract.ResolveURL(pageURL, ref)
		if err != nil {
			continue
		}
		attempts++
		src, err := p.relay.Relay(abs)
		if err != nil {
			p.log.Debug().Err(err).Str("image", abs).Msg("image candidate skipped")
			continue
		}
		return src, true
	}
	return "", false
}

// relayRef resolves ref against the page and relays it.
func (p *Previewer) relayRef(pageURL, ref string) (string, bool) {
	abs, err := extract.ResolveURL(pageURL, ref)
	if err != nil {
		p.log.Debug().Err(err).Str("ref", ref).Msg("unusable image reference")
		return "", false
	}
	src, err := p.relay.Relay(abs)
	if err != nil {
		p.log.Debug().Err(err).Str("image", abs).Msg("image not relayed")
		return "", false
	}
	return src, true
}

// withError returns a copy of errs with key set, leaving errs untouched.
func withError(errs map[string]string, key, msg string) map[string]string {
	out := make(map[string]string, len(errs)+1)
	for k, v := range errs {
		out[k] = v
	}
	out[key] = msg
	return out
}
