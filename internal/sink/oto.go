// ABOUTME: Oto-based playback sink
// ABOUTME: Streams decoded PCM to the system audio device with software volume
package sink

import (
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/ebitengine/oto/v3"
)

// Oto plays int16 PCM through the system audio device. A persistent
// player reads from a pipe so playback is gapless across writes.
type Oto struct {
	otoCtx     *oto.Context
	player     *oto.Player
	pipeReader *io.PipeReader
	pipeWriter *io.PipeWriter

	mu     sync.Mutex
	volume int
	muted  bool
}

// NewOto opens the audio device at the given rate and channel count.
func NewOto(sampleRate, channels int) (*Oto, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-readyChan

	pr, pw := io.Pipe()
	player := ctx.NewPlayer(pr)
	player.Play()

	log.Printf("Audio output initialized: %dHz, %d channels", sampleRate, channels)

	return &Oto{
		otoCtx:     ctx,
		player:     player,
		pipeReader: pr,
		pipeWriter: pw,
		volume:     100,
	}, nil
}

// Write applies volume and streams the samples to the device, blocking
// until the pipe accepts them.
func (o *Oto) Write(pcm []int16) error {
	o.mu.Lock()
	multiplier := float64(o.volume) / 100.0
	if o.muted {
		multiplier = 0
	}
	o.mu.Unlock()

	out := make([]byte, len(pcm)*2)
	for i, sample := range pcm {
		scaled := int32(float64(sample) * multiplier)
		if scaled > 32767 {
			scaled = 32767
		} else if scaled < -32768 {
			scaled = -32768
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(scaled)))
	}

	if _, err := o.pipeWriter.Write(out); err != nil {
		return fmt.Errorf("pipe write failed: %w", err)
	}
	return nil
}

// SetVolume sets playback volume (0-100, clamped).
func (o *Oto) SetVolume(volume int) {
	if volume < 0 {
		volume = 0
	}
	if volume > 100 {
		volume = 100
	}

	o.mu.Lock()
	o.volume = volume
	o.mu.Unlock()
}

// SetMuted sets the mute state.
func (o *Oto) SetMuted(muted bool) {
	o.mu.Lock()
	o.muted = muted
	o.mu.Unlock()
}

// Volume returns the current volume.
func (o *Oto) Volume() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.volume
}

// Close tears down the player and suspends the device context. A
// blocked Write returns with an error.
func (o *Oto) Close() error {
	o.pipeWriter.Close()
	o.player.Close()
	o.pipeReader.Close()
	o.otoCtx.Suspend()
	return nil
}
