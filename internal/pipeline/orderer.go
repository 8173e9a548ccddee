// ABOUTME: In-order frame reconstruction from an unordered lossy stream
// ABOUTME: Buffers out-of-order frames and substitutes empty payloads for single gaps
package pipeline

import (
	"container/heap"
	"sync/atomic"
)

// DefaultMaxUnordered is the default reorder window: the number of
// out-of-order frames tolerated before the orderer forces forward
// progress.
const DefaultMaxUnordered = 10

// Orderer restores index order from an unordered, lossy frame stream
// with bounded buffering and bounded delay. A single missing frame is
// replaced with an empty payload so the decoder's packet-loss
// concealment can run; larger gaps are skipped.
type Orderer struct {
	maxUnordered int

	buffer    frameHeap
	nextIndex int64 // -1 until the first frame anchors the stream

	received  atomic.Int64
	emitted   atomic.Int64
	late      atomic.Int64
	concealed atomic.Int64
	skipped   atomic.Int64
}

// OrdererStats is a snapshot of orderer counters.
type OrdererStats struct {
	Received  int64 // frames pushed in
	Emitted   int64 // frames emitted in order (including concealments)
	Late      int64 // frames discarded for arriving behind the cursor
	Concealed int64 // synthetic empty frames emitted for single gaps
	Skipped   int64 // frames lost to window overflow (cursor jumps)
}

// NewOrderer creates an orderer holding at most maxUnordered frames.
// Values < 1 fall back to DefaultMaxUnordered.
func NewOrderer(maxUnordered int) *Orderer {
	if maxUnordered < 1 {
		maxUnordered = DefaultMaxUnordered
	}
	return &Orderer{
		maxUnordered: maxUnordered,
		nextIndex:    -1,
	}
}

// Stats returns a snapshot of orderer counters.
func (o *Orderer) Stats() OrdererStats {
	return OrdererStats{
		Received:  o.received.Load(),
		Emitted:   o.emitted.Load(),
		Late:      o.late.Load(),
		Concealed: o.concealed.Load(),
		Skipped:   o.skipped.Load(),
	}
}

// Depth returns the number of frames currently buffered.
func (o *Orderer) Depth() int { return o.buffer.Len() }

// Push feeds one received frame and returns the frames now deliverable
// in strictly increasing index order. A returned frame with empty Data
// is a concealment placeholder for a single lost frame.
func (o *Orderer) Push(c Chunk) []Chunk {
	o.received.Add(1)

	// The first frame seen anchors the stream.
	if o.nextIndex < 0 {
		o.nextIndex = int64(c.Index)
	}

	var out []Chunk

	switch {
	case int64(c.Index) < o.nextIndex:
		// Late frame: its slot has already been delivered or skipped.
		o.late.Add(1)
		return nil

	case int64(c.Index) == o.nextIndex:
		out = append(out, c)
		o.nextIndex++

	default:
		heap.Push(&o.buffer, c)
	}

	out = o.drain(out)

	// Window overflow: force progress past the gap. A gap of exactly one
	// frame gets an empty placeholder so the decoder can conceal it.
	if o.buffer.Len() >= o.maxUnordered {
		headIndex := int64(o.buffer[0].Index)
		if headIndex-o.nextIndex == 1 {
			out = append(out, Chunk{Index: uint32(o.nextIndex)})
			o.concealed.Add(1)
		} else {
			o.skipped.Add(headIndex - o.nextIndex)
		}
		o.nextIndex = headIndex
		out = o.drain(out)
	}

	o.emitted.Add(int64(len(out)))
	return out
}

// drain pops contiguous frames from the head of the buffer, dropping
// duplicates of already-delivered indices.
func (o *Orderer) drain(out []Chunk) []Chunk {
	for o.buffer.Len() > 0 {
		head := int64(o.buffer[0].Index)
		if head < o.nextIndex {
			// Duplicate of a delivered frame.
			heap.Pop(&o.buffer)
			o.late.Add(1)
			continue
		}
		if head != o.nextIndex {
			break
		}
		out = append(out, heap.Pop(&o.buffer).(Chunk))
		o.nextIndex++
	}
	return out
}

// frameHeap is a min-heap of chunks ordered by index.
type frameHeap []Chunk

func (h frameHeap) Len() int            { return len(h) }
func (h frameHeap) Less(i, j int) bool  { return h[i].Index < h[j].Index }
func (h frameHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *frameHeap) Push(x interface{}) { *h = append(*h, x.(Chunk)) }

func (h *frameHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
