// Package audio provides the normalized audio buffer model and
// bounded-duration segmentation used by the transcription pipeline.
//
// Input is assumed to already be in the normalized capture form:
// single-channel 16-bit PCM WAV, 16 kHz preferred. Anything else is an
// adapter concern upstream of this package.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

// ErrMalformedAudio indicates the raw bytes could not be parsed into
// sample data (wrong header, unsupported encoding, zero length).
var ErrMalformedAudio = errors.New("malformed audio")

// Buffer is an immutable, decoded audio recording. PCM holds raw
// little-endian 16-bit samples with the RIFF framing stripped.
type Buffer struct {
	PCM          []byte
	SampleRateHz int
	Channels     int
	Duration     time.Duration
}

// DurationMs returns the total duration in whole milliseconds.
func (b *Buffer) DurationMs() int64 {
	return b.Duration.Milliseconds()
}

// frameSize is the byte width of one sample frame across all channels.
func (b *Buffer) frameSize() int {
	return b.Channels * 2
}

// ParseWAV decodes a canonical RIFF/WAVE byte stream into a Buffer.
// Only uncompressed 16-bit PCM is accepted; everything else returns
// ErrMalformedAudio.
func ParseWAV(raw []byte) (*Buffer, error) {
	if len(raw) < 12 {
		return nil, fmt.Errorf("%w: truncated header (%d bytes)", ErrMalformedAudio, len(raw))
	}
	if string(raw[0:4]) != "RIFF" || string(raw[8:12]) != "WAVE" {
		return nil, fmt.Errorf("%w: not a RIFF/WAVE stream", ErrMalformedAudio)
	}

	var (
		sampleRate int
		channels   int
		bits       int
		format     int
		pcm        []byte
		haveFmt    bool
	)

	// Walk the chunk list. Chunks are word-aligned; a padding byte
	// follows any odd-sized chunk.
	off := 12
	for off+8 <= len(raw) {
		id := string(raw[off : off+4])
		size := int(binary.LittleEndian.Uint32(raw[off+4 : off+8]))
		body := off + 8
		if size < 0 || body+size > len(raw) {
			return nil, fmt.Errorf("%w: chunk %q overruns stream", ErrMalformedAudio, id)
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, fmt.Errorf("%w: fmt chunk too small", ErrMalformedAudio)
			}
			format = int(binary.LittleEndian.Uint16(raw[body : body+2]))
			channels = int(binary.LittleEndian.Uint16(raw[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(raw[body+4 : body+8]))
			bits = int(binary.LittleEndian.Uint16(raw[body+14 : body+16]))
			haveFmt = true
		case "data":
			pcm = raw[body : body+size]
		}

		off = body + size
		if size%2 == 1 {
			off++
		}
	}

	if !haveFmt {
		return nil, fmt.Errorf("%w: missing fmt chunk", ErrMalformedAudio)
	}
	if format != 1 || bits != 16 {
		return nil, fmt.Errorf("%w: unsupported encoding (format=%d bits=%d)", ErrMalformedAudio, format, bits)
	}
	if channels < 1 || sampleRate <= 0 {
		return nil, fmt.Errorf("%w: invalid fmt (channels=%d rate=%d)", ErrMalformedAudio, channels, sampleRate)
	}
	if len(pcm) == 0 {
		return nil, fmt.Errorf("%w: empty data chunk", ErrMalformedAudio)
	}

	frames := len(pcm) / (channels * 2)
	dur := time.Duration(frames) * time.Second / time.Duration(sampleRate)

	return &Buffer{
		PCM:          pcm,
		SampleRateHz: sampleRate,
		Channels:     channels,
		Duration:     dur,
	}, nil
}
