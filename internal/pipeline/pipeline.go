// Package pipeline turns an arbitrarily long recording into text over a
// recognition backend with per-call duration limits. Long recordings
// are segmented, recognized with bounded parallelism, and reassembled
// in temporal order; a one-shot whole-buffer fallback covers backends
// that handle a single medium recording better than odd-length chunks.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"community-intake-service/internal/audio"
	"community-intake-service/internal/observability/metrics"
	"community-intake-service/internal/stt"
)

var (
	// ErrInvalidInput - the audio could not be parsed; never retried.
	ErrInvalidInput = errors.New("invalid input")
	// ErrRecognitionFailed - no usable text could be produced. The
	// wrapped RecognitionError carries the failure kind.
	ErrRecognitionFailed = errors.New("recognition failed")
)

// Options is the segmentation and concurrency policy for a pipeline.
type Options struct {
	MaxSegmentMs int           // per-segment duration bound
	Parallelism  int           // worker pool size; 1 means sequential
	CallTimeout  time.Duration // per backend call
	Provider     string        // label for logs and metrics
}

// DefaultOptions returns the policy used when none is configured.
func DefaultOptions() Options {
	return Options{
		MaxSegmentMs: audio.DefaultMaxSegmentMs,
		Parallelism:  4,
		CallTimeout:  30 * time.Second,
		Provider:     "unknown",
	}
}

// Pipeline is the top-level transcription entry point.
type Pipeline struct {
	worker  *Worker
	opts    Options
	log     zerolog.Logger
	metrics *metrics.Metrics
}

// New constructs a Pipeline. A nil backend is a configuration error:
// absence of a recognition provider is decided at wiring time, not
// discovered per call.
func New(rec stt.Recognizer, opts Options, log zerolog.Logger) (*Pipeline, error) {
	if rec == nil {
		return nil, errors.New("pipeline: recognition backend not configured")
	}
	if opts.MaxSegmentMs <= 0 {
		opts.MaxSegmentMs = audio.DefaultMaxSegmentMs
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = 1
	}
	return &Pipeline{
		worker:  NewWorker(rec, opts.Provider, opts.CallTimeout),
		opts:    opts,
		log:     log.With().Str("component", "pipeline").Logger(),
		metrics: metrics.DefaultMetrics,
	}, nil
}

// Transcribe converts raw WAV bytes into a Transcript.
//
// Failure semantics: malformed audio returns ErrInvalidInput; a
// transcript where every segment failed (including the fallback)
// returns ErrRecognitionFailed; a transcript with some failed segments
// after an exhausted fallback is returned best-effort with its
// FailedSegments record intact.
func (p *Pipeline) Transcribe(ctx context.Context, raw []byte, languageTag string) (*Transcript, error) {
	segs, err := audio.Split(raw, p.opts.MaxSegmentMs)
	if err != nil {
		p.metrics.RecordPipelineRun("invalid_input")
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	p.metrics.AudioBytesReceived.Add(float64(len(raw)))

	results := p.runWorkers(ctx, segs, languageTag)
	if ctx.Err() != nil {
		// Abandoned by the caller: discard partial results, persist nothing.
		p.metrics.RecordPipelineRun("canceled")
		return nil, ctx.Err()
	}

	tr := Reassemble(results)
	if !tr.Partial() {
		p.metrics.RecordPipelineRun("ok")
		return tr, nil
	}

	if len(segs) == 1 {
		// Nothing distinct to fall back to.
		p.metrics.RecordPipelineRun("failed")
		return nil, fmt.Errorf("%w: %w", ErrRecognitionFailed, results[0].Err)
	}

	return p.fallback(ctx, segs, tr, languageTag)
}

// runWorkers recognizes every segment with bounded parallelism and
// returns one Result per segment, index-addressed.
func (p *Pipeline) runWorkers(ctx context.Context, segs []audio.Segment, languageTag string) []Result {
	results := make([]Result, len(segs))

	if p.opts.Parallelism == 1 || len(segs) == 1 {
		for i, seg := range segs {
			results[i] = p.worker.Process(ctx, seg, languageTag)
		}
		return results
	}

	var g errgroup.Group
	g.SetLimit(p.opts.Parallelism)
	for i, seg := range segs {
		g.Go(func() error {
			results[i] = p.worker.Process(ctx, seg, languageTag)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// fallback re-attempts the entire unsegmented buffer once. Success
// replaces the partial transcript wholesale: chunked and whole-buffer
// outputs are not aligned, so merging them would scramble word order.
func (p *Pipeline) fallback(ctx context.Context, segs []audio.Segment, partial *Transcript, languageTag string) (*Transcript, error) {
	whole := wholeBufferSegment(segs)

	p.log.Warn().
		Ints("failedSegments", partial.FailedSegments).
		Int("segmentCount", len(segs)).
		Msg("partial segment failure, retrying whole buffer")

	r := p.worker.Process(ctx, whole, languageTag)
	if r.Err == nil {
		p.metrics.RecordFallback("ok")
		p.metrics.RecordPipelineRun("ok")
		return &Transcript{FullText: r.Text}, nil
	}
	p.metrics.RecordFallback("failed")

	allFailed := len(partial.FailedSegments) == len(segs)
	if allFailed {
		p.metrics.RecordPipelineRun("failed")
		return nil, fmt.Errorf("%w: %w", ErrRecognitionFailed, r.Err)
	}

	// Best-effort partial result, reported with its failure record.
	p.metrics.TranscriptPartiality.Inc()
	p.metrics.RecordPipelineRun("partial")
	p.log.Warn().
		Ints("failedSegments", partial.FailedSegments).
		Msg("fallback exhausted, returning partial transcript")
	return partial, nil
}

// wholeBufferSegment reconstitutes the original buffer as one segment.
func wholeBufferSegment(segs []audio.Segment) audio.Segment {
	last := segs[len(segs)-1]
	var total int
	for _, s := range segs {
		total += len(s.Bytes)
	}
	pcm := make([]byte, 0, total)
	for _, s := range segs {
		pcm = append(pcm, s.Bytes...)
	}
	return audio.Segment{
		Index:        0,
		StartMs:      0,
		EndMs:        last.EndMs,
		Bytes:        pcm,
		SampleRateHz: last.SampleRateHz,
		Channels:     last.Channels,
	}
}
