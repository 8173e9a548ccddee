// ABOUTME: Wall-clock paced PCM chunker
// ABOUTME: Converts a bursty byte source into fixed-size chunks with time-derived indices
package pipeline

import (
	"context"
	"errors"
	"io"
	"log"
	"sync/atomic"
	"time"

	"github.com/Airwave-Audio/airwave-go/internal/source"
)

// maxIdleIterations is how many consecutive empty reads the drain loop
// tolerates before the chunker stops its timer and waits for the source
// to become readable again.
const maxIdleIterations = 5

// Chunker turns a byte-rate-bursty PCM source into a clock-rate-stable
// sequence of fixed-size chunks. Each chunk's index reflects real time:
// index = floor((now - start) / interval) when (re)anchoring, otherwise
// lastIndex + 1. After a prolonged source stall the chunker re-anchors to
// the wall clock, so indices jump forward instead of drifting behind.
type Chunker struct {
	src        source.Source
	chunkBytes int
	interval   time.Duration
	start      time.Time
	out        chan Chunk

	now func() time.Time // injectable for tests

	lastIndex int64 // -1 means no chunk emitted since the last (re)anchor
	idle      int

	emitted atomic.Int64
	stalls  atomic.Int64
	padded  atomic.Int64
}

// ChunkerStats is a snapshot of chunker counters.
type ChunkerStats struct {
	Emitted int64 // chunks emitted
	Stalls  int64 // times the timer was stopped due to source starvation
	Padded  int64 // chunks zero-padded at end of stream
}

// NewChunker creates a chunker that emits chunkBytes-sized chunks every
// interval, indexed relative to start.
func NewChunker(src source.Source, chunkBytes int, interval time.Duration, start time.Time) *Chunker {
	return &Chunker{
		src:        src,
		chunkBytes: chunkBytes,
		interval:   interval,
		start:      start,
		out:        make(chan Chunk, 32),
		now:        time.Now,
		lastIndex:  -1,
	}
}

// Output returns the chunk channel. It is closed when the source closes.
func (c *Chunker) Output() <-chan Chunk {
	return c.out
}

// Stats returns a snapshot of chunker counters.
func (c *Chunker) Stats() ChunkerStats {
	return ChunkerStats{
		Emitted: c.emitted.Load(),
		Stalls:  c.stalls.Load(),
		Padded:  c.padded.Load(),
	}
}

// Run drives the chunker until ctx is cancelled or the source closes.
// It closes the output channel on return.
func (c *Chunker) Run(ctx context.Context) {
	defer close(c.out)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	paused := false
	readable := c.src.Readable()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			if paused {
				continue
			}
			switch c.drain(ctx) {
			case drainStall:
				ticker.Stop()
				paused = true
			case drainEOF, drainCancelled:
				return
			}

		case _, ok := <-readable:
			if !ok {
				// Source closed. Keep ticking so any buffered tail is
				// paced out; drain reports EOF once the buffer is empty.
				readable = nil
				if paused {
					ticker.Reset(c.interval)
					paused = false
				}
				continue
			}
			if paused {
				ticker.Reset(c.interval)
				paused = false
			}
			switch c.drain(ctx) {
			case drainStall:
				ticker.Stop()
				paused = true
			case drainEOF, drainCancelled:
				return
			}
		}
	}
}

type drainResult int

const (
	drainOK        drainResult = iota // caught up, keep ticking
	drainStall                        // source starved, timer stopped
	drainEOF                          // source exhausted, stream over
	drainCancelled                    // context cancelled mid-emit
)

// drain emits every chunk whose slot on the time grid has already passed,
// reading from the source as it goes. It catches up on backed-up input in
// one call so a missed tick never loses a chunk slot.
func (c *Chunker) drain(ctx context.Context) drainResult {
	for {
		var target int64
		if c.lastIndex >= 0 {
			target = c.lastIndex + 1
		} else {
			target = int64(c.now().Sub(c.start) / c.interval)
		}

		// The target chunk is still in the future; wait for its tick.
		if c.now().Sub(c.start) < time.Duration(target)*c.interval {
			return drainOK
		}

		buf := make([]byte, c.chunkBytes)
		n, err := c.src.ReadChunk(buf)
		if err != nil && !errors.Is(err, io.EOF) {
			// A failed read is treated the same as no data.
			n = 0
			err = nil
		}

		if n == 0 {
			if err != nil {
				// Source closed and fully drained.
				return drainEOF
			}
			c.idle++
			if c.idle >= maxIdleIterations {
				// Prolonged starvation: stop pacing and re-anchor the
				// index to the wall clock once data returns.
				c.idle = 0
				c.lastIndex = -1
				c.stalls.Add(1)
				log.Printf("Chunker: source starved, pausing until readable")
				return drainStall
			}
			return drainOK
		}

		if n < c.chunkBytes {
			// End-of-stream tail: buf is already zeroed past n.
			c.padded.Add(1)
		} else {
			c.idle = 0
		}

		select {
		case c.out <- Chunk{Index: uint32(target), Data: buf}:
		case <-ctx.Done():
			return drainCancelled
		}
		c.lastIndex = target
		c.emitted.Add(1)

		if err != nil {
			// The padded tail was the last chunk.
			return drainEOF
		}
	}
}
