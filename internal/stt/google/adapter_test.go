package google

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"community-intake-service/internal/audio"
	"community-intake-service/internal/stt"
)

func TestMapStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want stt.Kind
	}{
		{"unavailable", status.Error(codes.Unavailable, "down"), stt.KindUnavailable},
		{"deadline", status.Error(codes.DeadlineExceeded, "slow"), stt.KindUnavailable},
		{"invalid argument", status.Error(codes.InvalidArgument, "bad encoding"), stt.KindUnsupported},
		{"out of range", status.Error(codes.OutOfRange, "too long"), stt.KindUnsupported},
		{"internal", status.Error(codes.Internal, "boom"), stt.KindUnavailable},
		{"plain error", errors.New("dial tcp: refused"), stt.KindUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapped := mapStatus(tt.err)
			var recErr *stt.RecognitionError
			if !errors.As(mapped, &recErr) {
				t.Fatalf("expected RecognitionError, got %T", mapped)
			}
			if recErr.Kind != tt.want {
				t.Errorf("expected kind %s, got %s", tt.want, recErr.Kind)
			}
		})
	}
}

// tone builds a mono 16 kHz segment: leading room tone at the given
// noise amplitude, then a body at the given signal amplitude.
func tone(noiseAmp, signalAmp float64, durationMs int) audio.Segment {
	const rate = 16000
	frames := rate * durationMs / 1000
	pcm := make([]byte, frames*2)

	lead := rate * calibrationWindowMs / 1000
	for i := 0; i < frames; i++ {
		amp := signalAmp
		if i < lead {
			amp = noiseAmp
		}
		s := int16(amp * math.Sin(2*math.Pi*220*float64(i)/rate))
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(s))
	}
	return audio.Segment{
		Index:        0,
		StartMs:      0,
		EndMs:        int64(durationMs),
		Bytes:        pcm,
		SampleRateHz: rate,
		Channels:     1,
	}
}

func TestAboveNoiseFloor(t *testing.T) {
	if !aboveNoiseFloor(tone(200, 8000, 3000)) {
		t.Error("clear speech above room tone must pass calibration")
	}
	if aboveNoiseFloor(tone(200, 200, 3000)) {
		t.Error("unbroken room tone must be treated as silence")
	}
	if !aboveNoiseFloor(tone(200, 200, 400)) {
		t.Error("segments too short to calibrate go to the backend")
	}
}
