package catalog

import (
	"regexp"

	"hanidl/internal/domain"
)

// episodePagePattern matches canonical episode page URLs. The trailing slug
// doubles as the episode identifier used against the API.
var episodePagePattern = regexp.MustCompile(`(?i)^https://hanime\.tv/videos/hentai/([A-Za-z0-9]+(?:-[A-Za-z0-9]+)+)`)

// ExtractID resolves an episode page URL to its identifier slug.
func ExtractID(pageURL string) (string, error) {
	m := episodePagePattern.FindStringSubmatch(pageURL)
	if m == nil {
		return "", domain.ErrInvalidURL
	}
	return m[1], nil
}
