// Package mock provides a scripted recognizer for local runs and tests
// without cloud credentials.
package mock

import (
	"context"
	"sync"

	"community-intake-service/internal/audio"
	"community-intake-service/internal/stt"
)

// DefaultPhrases are the canned per-segment transcripts. Calls cycle
// through them in order.
var DefaultPhrases = []string{
	"toi muon phan anh mot vu viec xay ra toi qua",
	"tai khu vuc cho dem co nhom thanh nien gay roi",
	"mong co quan chuc nang xu ly som",
	"xin cam on",
}

// Adapter implements stt.Recognizer with scripted responses. The
// zero value cycles DefaultPhrases; Script and Fail override behavior
// per segment index.
type Adapter struct {
	mu    sync.Mutex
	calls int

	// Script maps a segment index to its transcript.
	Script map[int]string
	// Fail maps a segment index to a recognition failure.
	Fail map[int]*stt.RecognitionError
}

// New creates a mock recognizer cycling DefaultPhrases.
func New() *Adapter {
	return &Adapter{}
}

// Recognize returns the scripted response for the segment.
func (a *Adapter) Recognize(_ context.Context, seg audio.Segment, _ string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err, ok := a.Fail[seg.Index]; ok {
		return "", err
	}
	if text, ok := a.Script[seg.Index]; ok {
		return text, nil
	}

	phrase := DefaultPhrases[a.calls%len(DefaultPhrases)]
	a.calls++
	return phrase, nil
}

// Calls reports how many unscripted phrases were served.
func (a *Adapter) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}
