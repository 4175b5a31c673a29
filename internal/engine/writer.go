package engine

import (
	"fmt"
	"os"

	"hanidl/internal/domain"
	"hanidl/internal/progress"
)

// writeSegments assembles the final file: destination opened once for
// append, results written in strictly increasing index order. Missing
// segments are skipped with a diagnostic event, never an error, so a few
// failed segments cost frames instead of the whole episode.
func writeSegments(outputPath string, results []domain.SegmentResult, report progress.Reporter) error {
	out, err := os.OpenFile(outputPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("could not open output file: %w", err)
	}
	defer out.Close()

	for _, res := range results {
		if res.Missing() {
			report.Log("Missing video segment",
				fmt.Sprintf("Segment %d is missing, skipping.", res.Index))
			continue
		}

		if _, err := out.Write(res.Payload); err != nil {
			return fmt.Errorf("write failed at segment %d: %w", res.Index, err)
		}
	}

	return out.Sync()
}
