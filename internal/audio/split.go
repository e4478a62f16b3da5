package audio

import "fmt"

// DefaultMaxSegmentMs bounds a single recognition call. Backends cap
// per-call duration/size, so longer recordings are sliced before they
// are sent out. Configurable policy, not a protocol constant.
const DefaultMaxSegmentMs = 30000

// Segment is a contiguous sub-range of a Buffer. Segments are ordered
// 0..N-1, non-overlapping, and cover the whole buffer; EndMs of segment
// i equals StartMs of segment i+1 except for the final segment.
type Segment struct {
	Index        int
	StartMs      int64
	EndMs        int64
	Bytes        []byte
	SampleRateHz int
	Channels     int
}

// DurationMs returns the segment length in milliseconds.
func (s Segment) DurationMs() int64 {
	return s.EndMs - s.StartMs
}

// Split decodes raw WAV bytes and slices them into bounded-duration
// segments. A recording no longer than maxSegmentMs comes back as a
// single segment equal to the whole buffer. Decode failures surface as
// ErrMalformedAudio. Pure function over its inputs.
func Split(raw []byte, maxSegmentMs int) ([]Segment, error) {
	buf, err := ParseWAV(raw)
	if err != nil {
		return nil, err
	}
	return SplitBuffer(buf, maxSegmentMs)
}

// SplitBuffer slices an already-decoded Buffer. Slice boundaries are
// aligned to whole sample frames so every segment is itself valid PCM.
func SplitBuffer(buf *Buffer, maxSegmentMs int) ([]Segment, error) {
	if maxSegmentMs <= 0 {
		return nil, fmt.Errorf("maxSegmentMs must be positive, got %d", maxSegmentMs)
	}

	totalMs := buf.DurationMs()
	if totalMs <= int64(maxSegmentMs) {
		return []Segment{{
			Index:        0,
			StartMs:      0,
			EndMs:        totalMs,
			Bytes:        buf.PCM,
			SampleRateHz: buf.SampleRateHz,
			Channels:     buf.Channels,
		}}, nil
	}

	// Byte offsets are derived from each segment's ms boundaries, not
	// from a per-ms byte count: a truncated bytes-per-ms figure drifts
	// at rates that do not divide 1000 evenly.
	frame := int64(buf.frameSize())
	rate := int64(buf.SampleRateHz)

	n := (totalMs + int64(maxSegmentMs) - 1) / int64(maxSegmentMs)
	segs := make([]Segment, 0, n)

	for i := int64(0); i < n; i++ {
		startMs := i * int64(maxSegmentMs)
		endMs := startMs + int64(maxSegmentMs)
		if endMs > totalMs {
			endMs = totalMs
		}
		start := startMs * rate / 1000 * frame
		end := endMs * rate / 1000 * frame
		if i == n-1 {
			// Residual frames lost to ms flooring belong to the tail.
			end = int64(len(buf.PCM))
		}
		segs = append(segs, Segment{
			Index:        int(i),
			StartMs:      startMs,
			EndMs:        endMs,
			Bytes:        buf.PCM[start:end],
			SampleRateHz: buf.SampleRateHz,
			Channels:     buf.Channels,
		})
	}

	return segs, nil
}
