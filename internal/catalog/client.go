package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"hanidl/internal/domain"
)

// EpisodeInfo is the catalog entry for one episode: its franchise title,
// the stream variant catalog in server-declared quality order, and the
// sibling episodes of the same franchise for batch expansion.
type EpisodeInfo struct {
	Title    string
	Variants []domain.StreamVariant
	Episodes []EpisodeRef
}

// EpisodeRef points at a sibling episode in the same franchise.
type EpisodeRef struct {
	ID   int64  `json:"id"`
	Slug string `json:"slug"`
}

type Client struct {
	BaseURL string
	http    *http.Client
}

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{BaseURL: baseURL, http: httpClient}
}

// Wire structs. The API nests the stream catalog under the first server of
// the videos manifest; heights arrive as strings.
type videoResponse struct {
	HentaiFranchise struct {
		Title string `json:"title"`
	} `json:"hentai_franchise"`
	HentaiFranchiseHentaiVideos []EpisodeRef `json:"hentai_franchise_hentai_videos"`
	VideosManifest              struct {
		Servers []struct {
			Streams []wireStream `json:"streams"`
		} `json:"servers"`
	} `json:"videos_manifest"`
}

type wireStream struct {
	Height         string `json:"height"`
	URL            string `json:"url"`
	IsGuestAllowed bool   `json:"is_guest_allowed"`
}

// FetchInfo retrieves the episode metadata and stream catalog for an
// episode identifier.
func (c *Client) FetchInfo(ctx context.Context, id string) (*EpisodeInfo, error) {
	u := fmt.Sprintf("%s/video?id=%s", c.BaseURL, id)

	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog returned status: %d", resp.StatusCode)
	}

	var wire videoResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("catalog decode failed: %w", err)
	}

	info := &EpisodeInfo{
		Title:    wire.HentaiFranchise.Title,
		Episodes: wire.HentaiFranchiseHentaiVideos,
	}

	if len(wire.VideosManifest.Servers) == 0 {
		return nil, fmt.Errorf("catalog carries no stream servers for %s", id)
	}

	for _, s := range wire.VideosManifest.Servers[0].Streams {
		height, err := strconv.Atoi(s.Height)
		if err != nil {
			// Unparseable heights keep their catalog slot so the fixed
			// quality-index lookup stays aligned.
			height = 0
		}
		info.Variants = append(info.Variants, domain.StreamVariant{
			Height:          height,
			URL:             s.URL,
			GuestAccessible: s.IsGuestAllowed,
		})
	}

	return info, nil
}
