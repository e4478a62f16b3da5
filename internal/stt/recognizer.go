// Package stt defines the seam between the transcription pipeline and
// speech-to-text providers. A provider converts one audio segment plus a
// language tag into text, or a typed recognition failure. This is the
// only interface a test double needs to implement.
package stt

import (
	"context"
	"fmt"

	"community-intake-service/internal/audio"
)

// Kind classifies a recognition failure.
type Kind string

const (
	// KindNoSpeech - the backend found no recognizable speech.
	KindNoSpeech Kind = "no_speech_detected"
	// KindUnavailable - network/backend fault, potentially transient.
	KindUnavailable Kind = "service_unavailable"
	// KindUnsupported - malformed or unsupported audio encoding.
	KindUnsupported Kind = "unsupported"
)

// RecognitionError is the tagged failure type returned by Recognizers.
// Expected negative outcomes ("no speech") travel through the same type
// as genuine faults; callers branch on Kind, never on string matching.
type RecognitionError struct {
	Kind Kind
	Err  error
}

func (e *RecognitionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("recognition failed (%s): %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("recognition failed (%s)", e.Kind)
}

func (e *RecognitionError) Unwrap() error {
	return e.Err
}

// NoSpeech wraps err as a no-speech-detected failure.
func NoSpeech(err error) *RecognitionError {
	return &RecognitionError{Kind: KindNoSpeech, Err: err}
}

// Unavailable wraps err as a transient backend failure.
func Unavailable(err error) *RecognitionError {
	return &RecognitionError{Kind: KindUnavailable, Err: err}
}

// Unsupported wraps err as an unsupported-audio failure.
func Unsupported(err error) *RecognitionError {
	return &RecognitionError{Kind: KindUnsupported, Err: err}
}

// Recognizer converts one audio segment into text. Implementations must
// be safe for concurrent use; the pipeline fans segments out to a
// bounded worker pool.
type Recognizer interface {
	Recognize(ctx context.Context, seg audio.Segment, languageTag string) (string, error)
}

// RecognizerFunc adapts a function to the Recognizer interface.
type RecognizerFunc func(ctx context.Context, seg audio.Segment, languageTag string) (string, error)

func (f RecognizerFunc) Recognize(ctx context.Context, seg audio.Segment, languageTag string) (string, error) {
	return f(ctx, seg, languageTag)
}
