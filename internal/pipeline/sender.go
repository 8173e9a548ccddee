// ABOUTME: Send-side pipeline assembly
// ABOUTME: Drives source -> chunker -> resampler -> encoder -> framer -> transport
package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/Airwave-Audio/airwave-go/internal/source"
	"github.com/Airwave-Audio/airwave-go/internal/transport"
	"github.com/Airwave-Audio/airwave-go/internal/wire"
)

// SenderConfig configures a send pipeline.
type SenderConfig struct {
	Source source.Source
	Conn   transport.Conn

	CodecRate       int // codec operating rate (48000)
	ChunksPerSecond int // emission cadence (50 -> 20ms chunks)
	MaxLatencyMs    int // end-to-end latency ceiling
}

// Sender runs the send half of the pipeline. The chunker paces on its
// own goroutine; every stage downstream of it runs in order on the
// goroutine that calls Run, one chunk at a time.
type Sender struct {
	cfg SenderConfig

	chunker   *Chunker
	resampler *Resampler
	encoder   *Encoder

	sent    atomic.Int64
	dropped atomic.Int64
}

// SenderStats is a snapshot of send-side counters.
type SenderStats struct {
	Chunker ChunkerStats
	Sent    int64 // wire records transmitted
	Dropped int64 // chunks dropped before resampling, plus frames that failed to encode
}

// NewSender assembles a send pipeline. The source's rate and channel
// count determine chunk geometry; the codec rate and cadence determine
// frame geometry.
func NewSender(cfg SenderConfig) (*Sender, error) {
	srcRate := cfg.Source.SampleRate()
	channels := cfg.Source.Channels()

	interval := time.Second / time.Duration(cfg.ChunksPerSecond)
	chunkBytes := srcRate / cfg.ChunksPerSecond * channels * 2
	frameSamples := cfg.CodecRate / cfg.ChunksPerSecond

	resampler, err := NewResampler(channels, srcRate, cfg.CodecRate, frameSamples, cfg.MaxLatencyMs)
	if err != nil {
		return nil, err
	}

	encoder, err := NewEncoder(cfg.CodecRate, channels, frameSamples)
	if err != nil {
		return nil, err
	}

	return &Sender{
		cfg:       cfg,
		chunker:   NewChunker(cfg.Source, chunkBytes, interval, time.Now()),
		resampler: resampler,
		encoder:   encoder,
	}, nil
}

// Stats returns a snapshot of send-side counters.
func (s *Sender) Stats() SenderStats {
	return SenderStats{
		Chunker: s.chunker.Stats(),
		Sent:    s.sent.Load(),
		Dropped: s.dropped.Load(),
	}
}

// Run streams until ctx is cancelled, the source ends, or the transport
// fails. Transient per-frame failures are logged and dropped; only a
// dead transport is fatal.
func (s *Sender) Run(ctx context.Context) error {
	go s.chunker.Run(ctx)

	for chunk := range s.chunker.Output() {
		if s.resampler == nil || s.encoder == nil {
			// Latency priority: never queue input behind a stage that
			// is not ready.
			s.dropped.Add(1)
			continue
		}

		for _, frame := range s.resampler.Process(chunk) {
			encoded, err := s.encoder.Encode(frame)
			if err != nil {
				log.Printf("Sender: dropping frame %d: %v", frame.Index, err)
				s.dropped.Add(1)
				continue
			}

			record := wire.Frame(encoded.Index, encoded.Data)
			if err := s.cfg.Conn.Send(record); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("transport send failed: %w", err)
			}
			s.sent.Add(1)
		}
	}

	return nil
}
