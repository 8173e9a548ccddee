// ABOUTME: Opus encoder glue for the send pipeline
// ABOUTME: Encodes indexed float32 frames into indexed compressed frames
package pipeline

import (
	"encoding/binary"
	"fmt"
	"math"

	"gopkg.in/hraban/opus.v2"
)

// maxPacketBytes is the upper bound on one compressed frame; Opus
// packets cannot exceed this.
const maxPacketBytes = 4000

// Encoder compresses indexed float32 PCM frames. Indices pass through
// untouched: the codec is position-agnostic.
type Encoder struct {
	enc      *opus.Encoder
	channels int
	scratch  []float32
}

// NewEncoder creates an Opus encoder at sampleRate/channels with
// frameSamples samples per channel per frame. Bitrate is 64 kbps per
// channel.
func NewEncoder(sampleRate, channels, frameSamples int) (*Encoder, error) {
	enc, err := opus.NewEncoder(sampleRate, channels, opus.AppAudio)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus encoder: %w", err)
	}

	if err := enc.SetBitrate(64000 * channels); err != nil {
		return nil, fmt.Errorf("failed to set opus bitrate: %w", err)
	}

	return &Encoder{
		enc:      enc,
		channels: channels,
		scratch:  make([]float32, frameSamples*channels),
	}, nil
}

// Encode compresses one resampled frame. The input Data is float32
// little-endian PCM (a view into the resampler's alignment buffer); it
// is consumed before Encode returns, so the view is not retained.
func (e *Encoder) Encode(c Chunk) (Chunk, error) {
	if len(c.Data) != len(e.scratch)*4 {
		return Chunk{}, fmt.Errorf("frame %d: unexpected size %d bytes", c.Index, len(c.Data))
	}

	for i := range e.scratch {
		e.scratch[i] = math.Float32frombits(binary.LittleEndian.Uint32(c.Data[i*4:]))
	}

	packet := make([]byte, maxPacketBytes)
	n, err := e.enc.EncodeFloat32(e.scratch, packet)
	if err != nil {
		return Chunk{}, fmt.Errorf("opus encode failed: %w", err)
	}

	return Chunk{Index: c.Index, Data: packet[:n]}, nil
}
