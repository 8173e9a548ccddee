// ABOUTME: Receive-side pipeline assembly
// ABOUTME: Drives transport -> deframer -> orderer -> decoder -> sink
package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"

	"github.com/Airwave-Audio/airwave-go/internal/sink"
	"github.com/Airwave-Audio/airwave-go/internal/transport"
	"github.com/Airwave-Audio/airwave-go/internal/wire"
)

// ReceiverConfig configures a receive pipeline.
type ReceiverConfig struct {
	Conn transport.Conn
	Sink sink.Sink

	CodecRate       int
	Channels        int
	ChunksPerSecond int
	MaxUnordered    int
}

// Receiver runs the receive half of the pipeline: records off the
// transport are deframed, reordered, decoded, and played. Everything
// downstream of Receive is synchronous with the record that arrived.
type Receiver struct {
	cfg ReceiverConfig

	orderer *Orderer
	decoder *Decoder

	malformed    atomic.Int64
	decoded      atomic.Int64
	decodeErrors atomic.Int64
}

// ReceiverStats is a snapshot of receive-side counters.
type ReceiverStats struct {
	Orderer      OrdererStats
	Malformed    int64 // records shorter than the index prefix
	Decoded      int64 // frames decoded (including concealments)
	DecodeErrors int64
	BufferDepth  int // frames currently held by the orderer
}

// NewReceiver assembles a receive pipeline.
func NewReceiver(cfg ReceiverConfig) (*Receiver, error) {
	frameSamples := cfg.CodecRate / cfg.ChunksPerSecond

	decoder, err := NewDecoder(cfg.CodecRate, cfg.Channels, frameSamples)
	if err != nil {
		return nil, err
	}

	return &Receiver{
		cfg:     cfg,
		orderer: NewOrderer(cfg.MaxUnordered),
		decoder: decoder,
	}, nil
}

// Stats returns a snapshot of receive-side counters.
func (r *Receiver) Stats() ReceiverStats {
	return ReceiverStats{
		Orderer:      r.orderer.Stats(),
		Malformed:    r.malformed.Load(),
		Decoded:      r.decoded.Load(),
		DecodeErrors: r.decodeErrors.Load(),
		BufferDepth:  r.orderer.Depth(),
	}
}

// Run receives until ctx is cancelled or the transport closes. Cancel
// by closing the transport: a blocked Receive then returns an error,
// which is reported as clean shutdown when ctx is done.
func (r *Receiver) Run(ctx context.Context) error {
	for {
		record, err := r.cfg.Conn.Receive()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("transport receive failed: %w", err)
		}

		index, payload, err := wire.Deframe(record)
		if err != nil {
			r.malformed.Add(1)
			continue
		}

		for _, frame := range r.orderer.Push(Chunk{Index: index, Data: payload}) {
			pcm, err := r.decoder.Decode(frame)
			if err != nil {
				r.decodeErrors.Add(1)
				log.Printf("Receiver: dropping frame %d: %v", frame.Index, err)
				continue
			}
			r.decoded.Add(1)

			if err := r.cfg.Sink.Write(pcm); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("sink write failed: %w", err)
			}
		}
	}
}
