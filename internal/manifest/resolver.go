// Package manifest resolves a stream variant into its ordered segment list
// and decryption key material.
package manifest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/grafov/m3u8"

	"hanidl/internal/domain"
)

type Resolver struct {
	http *http.Client
}

func NewResolver(httpClient *http.Client) *Resolver {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Resolver{http: httpClient}
}

// Resolve fetches and parses the variant's media playlist. One request, no
// retry: a malformed or unreachable manifest aborts the job, unlike segment
// fetches which degrade. A playlist without a key locator is fatal too; all
// known streams are CBC-encrypted.
func (r *Resolver) Resolve(ctx context.Context, variant domain.StreamVariant) (*domain.Manifest, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", variant.URL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("manifest fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("manifest returned status: %d", resp.StatusCode)
	}

	playlist, listType, err := m3u8.DecodeFrom(resp.Body, true)
	if err != nil {
		return nil, fmt.Errorf("manifest parse failed: %w", err)
	}
	if listType != m3u8.MEDIA {
		return nil, fmt.Errorf("manifest is not a media playlist")
	}
	media := playlist.(*m3u8.MediaPlaylist)

	base, err := url.Parse(variant.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid manifest URL: %w", err)
	}

	out := &domain.Manifest{}

	if media.Key != nil && media.Key.URI != "" && media.Key.Method != "NONE" {
		out.KeyURI = resolveURL(base, media.Key.URI)
		out.KeyIV = media.Key.IV
	}

	for _, seg := range media.Segments {
		if seg == nil || seg.URI == "" {
			continue
		}
		out.SegmentURIs = append(out.SegmentURIs, resolveURL(base, seg.URI))

		// Streams that declare the key on the first segment instead of the
		// playlist header: take the first key seen.
		if out.KeyURI == "" && seg.Key != nil && seg.Key.URI != "" && seg.Key.Method != "NONE" {
			out.KeyURI = resolveURL(base, seg.Key.URI)
			out.KeyIV = seg.Key.IV
		}
	}

	if out.KeyURI == "" {
		return nil, domain.ErrMissingDecryptionKey
	}

	return out, nil
}

// FetchKey retrieves the raw key bytes referenced by the manifest.
func (r *Resolver) FetchKey(ctx context.Context, keyURI string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", keyURI, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("key fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("key returned status: %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// resolveURL resolves a relative reference against the playlist URL.
func resolveURL(base *url.URL, ref string) string {
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(refURL).String()
}
