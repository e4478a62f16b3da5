package pipeline

import (
	"sort"
	"strings"
)

// Transcript is the reassembled output of a pipeline run. FullText is
// the space-joined concatenation of successful segment texts in
// ascending index order; if FailedSegments is non-empty the text is
// necessarily partial.
type Transcript struct {
	FullText       string
	FailedSegments []int
}

// Partial reports whether any segment failed recognition.
func (t *Transcript) Partial() bool {
	return len(t.FailedSegments) > 0
}

// Reassemble collects per-segment results back into temporal order.
// Results may arrive in any order (the worker pool completes segments
// as backends respond); ordering in FullText always matches the
// original audio regardless.
func Reassemble(results []Result) *Transcript {
	ordered := make([]Result, len(results))
	copy(ordered, results)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].SegmentIndex < ordered[j].SegmentIndex
	})

	var (
		parts  []string
		failed []int
	)
	for _, r := range ordered {
		if r.Err != nil {
			failed = append(failed, r.SegmentIndex)
			continue
		}
		if text := strings.TrimSpace(r.Text); text != "" {
			parts = append(parts, text)
		}
	}

	return &Transcript{
		FullText:       strings.Join(parts, " "),
		FailedSegments: failed,
	}
}
