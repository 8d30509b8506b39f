// Package media defines the records shared by the fetch, extraction and relay stages.
package media

import "fmt"

// PreviewType tells whether a preview describes a video hosting page or a plain link.
type PreviewType int

const (
	Link PreviewType = iota
	Video
)

func (p PreviewType) String() string {
	switch p {
	case Link:
		return "link"
	case Video:
		return "video"
	default:
		return "unknown"
	}
}

// MarshalText encodes the type as "link" or "video".
func (p PreviewType) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes "link" or "video".
func (p *PreviewType) UnmarshalText(text []byte) error {
	switch string(text) {
	case "link":
		*p = Link
	case "video":
		*p = Video
	default:
		return fmt.Errorf("unknown preview type %q", text)
	}
	return nil
}

// FetchResult is a single HTTP response split into its header lines and body.
type FetchResult struct {
	URL        string   // Final URL after redirects
	StatusCode int      // Status of the final response
	Headers    []string // Raw header lines, status line first
	Body       string   // Body, transcoded to UTF-8 when a charset was declared
}

// PreviewResult is the preview record returned for a URL.
type PreviewResult struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	ImageSrc    string            `json:"image_src,omitempty"` // Always a locally re-hosted copy
	Type        PreviewType       `json:"type"`
	Hosting     string            `json:"hosting,omitempty"` // Provider name, video previews only
	Status      string            `json:"status,omitempty"`
	Errors      map[string]string `json:"errors,omitempty"`
}

// ImageCandidate is a downloaded image awaiting the size check.
type ImageCandidate struct {
	Width      int
	Height     int
	StoredPath string // Location of the stored blob
	PublicURL  string // URL the blob is served under
}
