// ABOUTME: Opus decoder glue for the receive pipeline
// ABOUTME: Decodes ordered compressed frames to PCM, with packet-loss concealment
package pipeline

import (
	"fmt"

	"gopkg.in/hraban/opus.v2"
)

// Decoder decompresses ordered frames into interleaved int16 PCM for
// playback. An empty payload signals a lost frame: the decoder runs
// packet-loss concealment for one frame instead of decoding.
type Decoder struct {
	dec          *opus.Decoder
	channels     int
	frameSamples int
}

// NewDecoder creates an Opus decoder at sampleRate/channels with
// frameSamples samples per channel per frame.
func NewDecoder(sampleRate, channels, frameSamples int) (*Decoder, error) {
	dec, err := opus.NewDecoder(sampleRate, channels)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus decoder: %w", err)
	}

	return &Decoder{
		dec:          dec,
		channels:     channels,
		frameSamples: frameSamples,
	}, nil
}

// Decode decompresses one frame to interleaved PCM. Empty Data invokes
// the codec's concealment, synthesizing one frame of plausible audio
// from decoder state.
func (d *Decoder) Decode(c Chunk) ([]int16, error) {
	pcm := make([]int16, d.frameSamples*d.channels)

	if len(c.Data) == 0 {
		if err := d.dec.DecodePLC(pcm); err != nil {
			return nil, fmt.Errorf("opus conceal failed for frame %d: %w", c.Index, err)
		}
		return pcm, nil
	}

	n, err := d.dec.Decode(c.Data, pcm)
	if err != nil {
		return nil, fmt.Errorf("opus decode failed for frame %d: %w", c.Index, err)
	}
	return pcm[:n*d.channels], nil
}
