// Package relay downloads remote images, re-hosts them in local storage
// and keeps only those large enough to serve as a preview thumbnail.
package relay

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/rs/zerolog"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"linkparser/internal/media"
	"linkparser/internal/storage"
)

// ErrRejectedImage is returned when a downloaded image is too small or cannot be decoded.
var ErrRejectedImage = errors.New("image rejected")

// Fetcher retrieves a URL without altering the body bytes. httputil.Fetcher satisfies it.
type Fetcher interface {
	FetchRaw(rawURL string) (*media.FetchResult, error)
}

// Relay fetches images and stores the acceptable ones.
type Relay struct {
	fetcher   Fetcher
	store     *storage.Store
	minWidth  int
	minHeight int
	log       zerolog.Logger
}

// New returns a Relay that accepts images at least minWidth wide or minHeight tall.
func New(fetcher Fetcher, store *storage.Store, minWidth, minHeight int, log zerolog.Logger) *Relay {
	return &Relay{
		fetcher:   fetcher,
		store:     store,
		minWidth:  minWidth,
		minHeight: minHeight,
		log:       log.With().Str("component", "relay").Logger(),
	}
}

// Candidate downloads url, stores it and measures the stored file.
// Undecodable images are deleted and reported as ErrRejectedImage.
func (r *Relay) Candidate(url string) (*media.ImageCandidate, error) {
	res, err := r.fetcher.FetchRaw(url)
	if err != nil {
		return nil, fmt.Errorf("fetching image: %w", err)
	}
	if res.Body == "" {
		return nil, fmt.Errorf("fetching image %s: empty response", url)
	}

	blob, err := r.store.Write([]byte(res.Body))
	if err != nil {
		return nil, fmt.Errorf("storing image: %w", err)
	}

	width, height, err := dimensions(blob.Path)
	if err != nil {
		r.discard(blob.Path)
		return nil, fmt.Errorf("%w: %s: %v", ErrRejectedImage, url, err)
	}

	return &media.ImageCandidate{
		Width:      width,
		Height:     height,
		StoredPath: blob.Path,
		PublicURL:  r.store.URL(blob),
	}, nil
}

// Relay re-hosts url and returns its public URL. Images smaller than the
// minimum in both dimensions are deleted and reported as ErrRejectedImage.
func (r *Relay) Relay(url string) (string, error) {
	c, err := r.Candidate(url)
	if err != nil {
		return "", err
	}

	if !r.accepts(c) {
		r.discard(c.StoredPath)
		r.log.Debug().Str("url", url).Int("width", c.Width).Int("height", c.Height).Msg("image too small")
		return "", fmt.Errorf("%w: %s is %dx%d", ErrRejectedImage, url, c.Width, c.Height)
	}

	r.log.Debug().Str("url", url).Str("stored", c.PublicURL).Msg("image relayed")
	return c.PublicURL, nil
}

// accepts reports whether either dimension reaches its minimum.
func (r *Relay) accepts(c *media.ImageCandidate) bool {
	return c.Width >= r.minWidth || c.Height >= r.minHeight
}

func (r *Relay) discard(path string) {
	if err := r.store.Delete(path); err != nil {
		r.log.Warn().Err(err).Str("path", path).Msg("failed to delete rejected image")
	}
}

func dimensions(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("opening stored image: %w", err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("decoding image: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}
