package pipeline

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"community-intake-service/internal/audio"
	"community-intake-service/internal/stt"
)

func makeWAV(t *testing.T, durationMs int) []byte {
	t.Helper()

	const sampleRate = 16000
	dataLen := sampleRate * durationMs / 1000 * 2

	buf := make([]byte, 44+dataLen)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataLen))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1)
	binary.LittleEndian.PutUint16(buf[22:24], 1)
	binary.LittleEndian.PutUint32(buf[24:28], sampleRate)
	binary.LittleEndian.PutUint32(buf[28:32], sampleRate*2)
	binary.LittleEndian.PutUint16(buf[32:34], 2)
	binary.LittleEndian.PutUint16(buf[34:36], 16)
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataLen))
	return buf
}

func newTestPipeline(t *testing.T, rec stt.Recognizer, parallelism int) *Pipeline {
	t.Helper()

	opts := DefaultOptions()
	opts.Parallelism = parallelism
	opts.CallTimeout = 5 * time.Second
	opts.Provider = "test"
	p, err := New(rec, opts, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

// isWholeBuffer reports whether a segment spans more than one slice
// worth of audio, i.e. it is the fallback's unsegmented call.
func isWholeBuffer(seg audio.Segment) bool {
	return seg.DurationMs() > audio.DefaultMaxSegmentMs
}

func TestNew_NilBackendIsConfigurationError(t *testing.T) {
	if _, err := New(nil, DefaultOptions(), zerolog.Nop()); err == nil {
		t.Fatal("expected error for nil backend")
	}
}

func TestTranscribe_MalformedAudio(t *testing.T) {
	p := newTestPipeline(t, stt.RecognizerFunc(func(context.Context, audio.Segment, string) (string, error) {
		t.Fatal("backend must not be called for malformed audio")
		return "", nil
	}), 1)

	_, err := p.Transcribe(context.Background(), []byte("garbage"), "vi-VN")
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestTranscribe_AllSegmentsSucceed_OrderPreserved(t *testing.T) {
	// 75 s -> segments of 30s, 30s, 15s with texts A, B, C. Delays are
	// inverted so completion order is C, B, A; the transcript must
	// still read "A B C".
	texts := map[int]string{0: "A", 1: "B", 2: "C"}
	rec := stt.RecognizerFunc(func(ctx context.Context, seg audio.Segment, lang string) (string, error) {
		time.Sleep(time.Duration(3-seg.Index) * 20 * time.Millisecond)
		return texts[seg.Index], nil
	})

	p := newTestPipeline(t, rec, 3)
	tr, err := p.Transcribe(context.Background(), makeWAV(t, 75000), "vi-VN")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.FullText != "A B C" {
		t.Errorf("expected %q, got %q", "A B C", tr.FullText)
	}
	if tr.Partial() {
		t.Errorf("expected no failed segments, got %v", tr.FailedSegments)
	}
}

func TestTranscribe_FallbackReplacesPartial(t *testing.T) {
	rec := stt.RecognizerFunc(func(ctx context.Context, seg audio.Segment, lang string) (string, error) {
		if isWholeBuffer(seg) {
			return "the whole recording at once", nil
		}
		if seg.Index == 1 {
			return "", stt.Unavailable(errors.New("backend hiccup"))
		}
		return fmt.Sprintf("chunk %d", seg.Index), nil
	})

	p := newTestPipeline(t, rec, 1)
	tr, err := p.Transcribe(context.Background(), makeWAV(t, 75000), "vi-VN")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.FullText != "the whole recording at once" {
		t.Errorf("fallback text must replace the partial verbatim, got %q", tr.FullText)
	}
	if tr.Partial() {
		t.Errorf("fallback success must clear the failure record, got %v", tr.FailedSegments)
	}
}

func TestTranscribe_FallbackExhausted_ReturnsPartial(t *testing.T) {
	rec := stt.RecognizerFunc(func(ctx context.Context, seg audio.Segment, lang string) (string, error) {
		if isWholeBuffer(seg) {
			return "", stt.Unavailable(errors.New("still down"))
		}
		if seg.Index == 1 {
			return "", stt.Unavailable(errors.New("backend hiccup"))
		}
		return fmt.Sprintf("chunk %d", seg.Index), nil
	})

	p := newTestPipeline(t, rec, 1)
	tr, err := p.Transcribe(context.Background(), makeWAV(t, 75000), "vi-VN")
	if err != nil {
		t.Fatalf("best-effort partial must not be a hard failure: %v", err)
	}
	if tr.FullText != "chunk 0 chunk 2" {
		t.Errorf("expected %q, got %q", "chunk 0 chunk 2", tr.FullText)
	}
	if len(tr.FailedSegments) != 1 || tr.FailedSegments[0] != 1 {
		t.Errorf("expected failed segment [1], got %v", tr.FailedSegments)
	}
}

func TestTranscribe_SingleSegmentFailure(t *testing.T) {
	calls := 0
	rec := stt.RecognizerFunc(func(ctx context.Context, seg audio.Segment, lang string) (string, error) {
		calls++
		return "", stt.NoSpeech(nil)
	})

	p := newTestPipeline(t, rec, 1)
	_, err := p.Transcribe(context.Background(), makeWAV(t, 10000), "vi-VN")
	if !errors.Is(err, ErrRecognitionFailed) {
		t.Fatalf("expected ErrRecognitionFailed, got %v", err)
	}
	if calls != 1 {
		t.Errorf("a single segment has no distinct fallback, got %d calls", calls)
	}

	var recErr *stt.RecognitionError
	if !errors.As(err, &recErr) || recErr.Kind != stt.KindNoSpeech {
		t.Errorf("error must carry the failure kind, got %v", err)
	}
}

func TestTranscribe_AllSegmentsAndFallbackFail(t *testing.T) {
	rec := stt.RecognizerFunc(func(ctx context.Context, seg audio.Segment, lang string) (string, error) {
		return "", stt.Unavailable(errors.New("down"))
	})

	p := newTestPipeline(t, rec, 2)
	_, err := p.Transcribe(context.Background(), makeWAV(t, 75000), "vi-VN")
	if !errors.Is(err, ErrRecognitionFailed) {
		t.Fatalf("an empty transcript must be a failure, not a success: %v", err)
	}
}

func TestTranscribe_TimeoutMapsToUnavailable(t *testing.T) {
	rec := stt.RecognizerFunc(func(ctx context.Context, seg audio.Segment, lang string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})

	opts := DefaultOptions()
	opts.CallTimeout = 10 * time.Millisecond
	opts.Provider = "test"
	p, err := New(rec, opts, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = p.Transcribe(context.Background(), makeWAV(t, 10000), "vi-VN")
	var recErr *stt.RecognitionError
	if !errors.As(err, &recErr) || recErr.Kind != stt.KindUnavailable {
		t.Fatalf("timeout must surface as service-unavailable, got %v", err)
	}
}

func TestTranscribe_CallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rec := stt.RecognizerFunc(func(ctx context.Context, seg audio.Segment, lang string) (string, error) {
		cancel()
		return "discarded", nil
	})

	p := newTestPipeline(t, rec, 1)
	_, err := p.Transcribe(ctx, makeWAV(t, 75000), "vi-VN")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("abandoned run must discard partial results, got %v", err)
	}
}

func TestReassemble_SortsByIndex(t *testing.T) {
	results := []Result{
		{SegmentIndex: 2, Text: "C"},
		{SegmentIndex: 0, Text: "A"},
		{SegmentIndex: 3, Err: stt.Unavailable(nil)},
		{SegmentIndex: 1, Text: "B"},
	}

	tr := Reassemble(results)
	if tr.FullText != "A B C" {
		t.Errorf("expected %q, got %q", "A B C", tr.FullText)
	}
	if len(tr.FailedSegments) != 1 || tr.FailedSegments[0] != 3 {
		t.Errorf("expected failed [3], got %v", tr.FailedSegments)
	}
}

func TestReassemble_AllFailed(t *testing.T) {
	results := []Result{
		{SegmentIndex: 0, Err: stt.Unavailable(nil)},
		{SegmentIndex: 1, Err: stt.NoSpeech(nil)},
	}

	tr := Reassemble(results)
	if tr.FullText != "" {
		t.Errorf("expected empty text, got %q", tr.FullText)
	}
	if len(tr.FailedSegments) != 2 {
		t.Errorf("expected 2 failed segments, got %v", tr.FailedSegments)
	}
}
