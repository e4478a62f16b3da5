package pipeline

import (
	"context"
	"errors"
	"time"

	"community-intake-service/internal/audio"
	"community-intake-service/internal/observability/metrics"
	"community-intake-service/internal/stt"
)

// Result is the outcome of recognizing one segment. Exactly one of Text
// or Err is meaningful: Err == nil means Text holds the segment's
// transcript (possibly empty is never produced; no-speech is an error).
type Result struct {
	SegmentIndex int
	Text         string
	Err          *stt.RecognitionError
}

// Worker drives one segment through the recognition backend. Workers
// hold no per-segment state; segments are processed independently and
// retries belong to the pipeline, never here.
type Worker struct {
	rec      stt.Recognizer
	provider string
	timeout  time.Duration
	metrics  *metrics.Metrics
}

// NewWorker creates a worker around the given backend. timeout bounds a
// single backend call; expiry is reported as service-unavailable rather
// than a crash.
func NewWorker(rec stt.Recognizer, provider string, timeout time.Duration) *Worker {
	return &Worker{
		rec:      rec,
		provider: provider,
		timeout:  timeout,
		metrics:  metrics.DefaultMetrics,
	}
}

// Process recognizes a single segment and returns its Result. Failures
// are data, not control flow: the returned Result carries the tagged
// error kind and the caller decides what to do with it.
func (w *Worker) Process(ctx context.Context, seg audio.Segment, languageTag string) Result {
	cctx := ctx
	if w.timeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := w.rec.Recognize(cctx, seg, languageTag)
	elapsed := time.Since(start).Seconds()

	if err == nil {
		w.metrics.RecordSegment(w.provider, "", elapsed)
		return Result{SegmentIndex: seg.Index, Text: text}
	}

	recErr := classify(err)
	w.metrics.RecordSegment(w.provider, string(recErr.Kind), elapsed)
	return Result{SegmentIndex: seg.Index, Err: recErr}
}

// classify maps an arbitrary backend error to a tagged RecognitionError.
// Deadline expiry and unrecognized faults both count as transient.
func classify(err error) *stt.RecognitionError {
	var recErr *stt.RecognitionError
	if errors.As(err, &recErr) {
		return recErr
	}
	return stt.Unavailable(err)
}
