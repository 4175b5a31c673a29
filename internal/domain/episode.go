package domain

// StreamVariant is one entry of the stream catalog returned by the hosting
// API. Immutable once fetched; the catalog order carries the server's own
// quality ranking.
type StreamVariant struct {
	Height          int    `json:"height"`
	URL             string `json:"url"`
	GuestAccessible bool   `json:"guest_accessible"`
}

// Manifest is the resolved segment playlist of one stream variant. The
// position of a URI in SegmentURIs is the only thing that determines where
// its bytes land in the assembled file.
type Manifest struct {
	SegmentURIs []string
	KeyURI      string
	KeyIV       string // hex EXT-X-KEY IV attribute, empty when absent
}

// SegmentResult is the terminal outcome of one segment fetch pipeline.
// A nil Payload means the segment exhausted its retry budget and must be
// skipped at its position, not that the job failed. Degraded marks payloads
// recovered through the pad-then-unpad fallback.
type SegmentResult struct {
	Index    int
	Payload  []byte
	Degraded bool
}

// Missing reports whether the segment must be skipped during assembly.
func (r SegmentResult) Missing() bool {
	return r.Payload == nil
}

// DownloadJob is one episode download from URL validation to final file.
// It holds no connection state; sockets live inside the segment pipeline.
type DownloadJob struct {
	EpisodeID            string
	Title                string
	OutputPath           string
	ResolutionPreference string
	ConcurrencyLimit     int
}
