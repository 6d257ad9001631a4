// Package vimeo fetches video thumbnails through the Vimeo oEmbed endpoint.
package vimeo

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"github.com/trezcool/ead/core/discipline"
	"github.com/trezcool/ead/core/media"
)

const (
	DefaultOEmbedURL = "https://vimeo.com/api/oembed.json"
	defaultTimeout   = 3 * time.Second
	maxBodySize      = 64 << 10
)

var (
	ErrNotVimeo    = errors.New("not a vimeo video")
	ErrNoThumbnail = errors.New("no thumbnail in oembed response")
)

type Client struct {
	endpoint string
	timeout  time.Duration
	http     *http.Client
}

var _ discipline.ThumbnailFetcher = (*Client)(nil)

// NewClient falls back to the public oEmbed endpoint & a 3s timeout on zero values.
// httpClient may be nil.
func NewClient(endpoint string, timeout time.Duration, httpClient *http.Client) *Client {
	if endpoint == "" {
		endpoint = DefaultOEmbedURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{endpoint: endpoint, timeout: timeout, http: httpClient}
}

// Thumbnail returns the thumbnail URL of a resolved Vimeo video.
func (c *Client) Thumbnail(ctx context.Context, d media.Descriptor) (string, error) {
	if d.Provider != media.ProviderVimeo || d.NativeID == "" {
		return "", ErrNotVimeo
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	q := make(url.Values)
	q.Set("url", "https://vimeo.com/"+d.NativeID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return "", errors.Wrap(err, "building oembed request")
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "requesting oembed")
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		return "", errors.Errorf("oembed status: %d", res.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(res.Body, maxBodySize))
	if err != nil {
		return "", errors.Wrap(err, "reading oembed response")
	}

	thumb := gjson.GetBytes(body, "thumbnail_url")
	if !thumb.Exists() || thumb.String() == "" {
		return "", ErrNoThumbnail
	}
	return thumb.String(), nil
}
