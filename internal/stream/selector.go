// Package stream picks the best usable stream variant for a requested
// quality, with deterministic fallback when the request can't be honored.
package stream

import (
	"strconv"
	"strings"

	"hanidl/internal/domain"
)

// qualityIndex maps a resolution label to its expected slot in the catalog.
// The server publishes variants in a fixed quality ranking; the indexed
// lookup trusts that ranking before falling back to a linear scan.
var qualityIndex = map[string]int{
	"1080p": 0,
	"720p":  1,
	"480p":  2,
	"360p":  3,
}

// Select resolves a resolution preference like "720p" against the variant
// catalog. Three tiers, in priority order: the declared catalog slot when
// it is guest-accessible and matches the requested height, then the first
// guest-accessible variant of the requested height, then the first
// guest-accessible variant of any height.
func Select(preference string, variants []domain.StreamVariant) (domain.StreamVariant, error) {
	wantHeight := parseHeight(preference)

	// Tier 1: trust the declared quality ranking.
	if idx, ok := qualityIndex[preference]; ok && idx < len(variants) {
		v := variants[idx]
		if v.GuestAccessible && v.Height == wantHeight {
			return v, nil
		}
	}

	// Tier 2: same height, anywhere in the catalog.
	for _, v := range variants {
		if v.GuestAccessible && v.Height == wantHeight {
			return v, nil
		}
	}

	// Tier 3: anything a guest can reach.
	for _, v := range variants {
		if v.GuestAccessible {
			return v, nil
		}
	}

	return domain.StreamVariant{}, domain.ErrNoAccessibleStream
}

func parseHeight(preference string) int {
	h, err := strconv.Atoi(strings.TrimSuffix(preference, "p"))
	if err != nil {
		return 0
	}
	return h
}
