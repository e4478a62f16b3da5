// Package google provides a Google Cloud Speech-to-Text recognition
// adapter for the transcription pipeline.
package google

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"community-intake-service/internal/audio"
	"community-intake-service/internal/stt"
)

// calibrationWindowMs is how much leading audio is sampled to estimate
// the ambient noise floor before a recognition attempt.
const calibrationWindowMs = 300

// Adapter implements stt.Recognizer using the synchronous Recognize
// RPC. Safe for concurrent use; the underlying client multiplexes.
type Adapter struct {
	client *speech.Client
}

// New creates a Google STT adapter. Requires
// GOOGLE_APPLICATION_CREDENTIALS to be set in the environment.
func New(ctx context.Context) (*Adapter, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create speech client: %w", err)
	}
	return &Adapter{client: c}, nil
}

// Close releases the underlying client connection.
func (a *Adapter) Close() error {
	return a.client.Close()
}

// Recognize converts one segment into text. A brief ambient-noise
// calibration pass over the leading window short-circuits segments that
// hold nothing but the noise floor, saving a network round trip.
func (a *Adapter) Recognize(ctx context.Context, seg audio.Segment, languageTag string) (string, error) {
	if len(seg.Bytes) == 0 {
		return "", stt.Unsupported(errors.New("empty segment"))
	}
	if !aboveNoiseFloor(seg) {
		return "", stt.NoSpeech(errors.New("segment below ambient noise floor"))
	}

	resp, err := a.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:        speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz: int32(seg.SampleRateHz),
			LanguageCode:    languageTag,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: seg.Bytes},
		},
	})
	if err != nil {
		return "", mapStatus(err)
	}

	var parts []string
	for _, r := range resp.Results {
		if len(r.Alternatives) == 0 {
			continue
		}
		if text := strings.TrimSpace(r.Alternatives[0].Transcript); text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		return "", stt.NoSpeech(nil)
	}
	return strings.Join(parts, " "), nil
}

// mapStatus folds gRPC status codes into the tagged error taxonomy.
func mapStatus(err error) error {
	s, ok := status.FromError(err)
	if !ok {
		return stt.Unavailable(err)
	}
	switch s.Code() {
	case codes.InvalidArgument, codes.OutOfRange:
		return stt.Unsupported(err)
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
		return stt.Unavailable(err)
	default:
		return stt.Unavailable(err)
	}
}

// aboveNoiseFloor estimates the ambient level from the leading window
// and reports whether any later window rises meaningfully above it.
// Mirrors the capture-side practice of calibrating against a moment of
// room tone before listening.
func aboveNoiseFloor(seg audio.Segment) bool {
	window := seg.SampleRateHz * seg.Channels * calibrationWindowMs / 1000
	if window == 0 || len(seg.Bytes) < window*4 {
		// Too short to calibrate; let the backend decide.
		return true
	}

	floor := rms(seg.Bytes[:window*2])
	threshold := floor*2 + 100 // margin above room tone, int16 scale

	for off := window * 2; off+window*2 <= len(seg.Bytes); off += window * 2 {
		if rms(seg.Bytes[off:off+window*2]) > threshold {
			return true
		}
	}
	return false
}

// rms computes the root-mean-square amplitude of little-endian int16
// samples, in int16 scale.
func rms(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		s := float64(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
		sum += s * s
	}
	return math.Sqrt(sum / float64(n))
}
