// ABOUTME: Tests for the reordering buffer
// ABOUTME: Covers reorder, single-gap concealment, large-gap skip, and window bounds
package pipeline

import (
	"testing"
)

// pushAll feeds indices (with 1-byte payloads) and returns all emitted
// chunks in order.
func pushAll(o *Orderer, indices []uint32) []Chunk {
	var out []Chunk
	for _, i := range indices {
		out = append(out, o.Push(Chunk{Index: i, Data: []byte{byte(i)}})...)
	}
	return out
}

func emittedIndices(chunks []Chunk) []uint32 {
	out := make([]uint32, len(chunks))
	for i, c := range chunks {
		out[i] = c.Index
	}
	return out
}

func checkIndices(t *testing.T, got []uint32, want []uint32) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d emitted frames %v, got %d %v", len(want), want, len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position %d: expected index %d, got %d (%v)", i, want[i], got[i], got)
		}
	}
}

func TestOrdererInOrderPassThrough(t *testing.T) {
	o := NewOrderer(10)
	out := pushAll(o, []uint32{0, 1, 2, 3, 4})
	checkIndices(t, emittedIndices(out), []uint32{0, 1, 2, 3, 4})

	if depth := o.Depth(); depth != 0 {
		t.Errorf("expected empty buffer, got depth %d", depth)
	}
}

func TestOrdererReorders(t *testing.T) {
	o := NewOrderer(10)
	out := pushAll(o, []uint32{0, 2, 1, 3, 5, 4})
	checkIndices(t, emittedIndices(out), []uint32{0, 1, 2, 3, 4, 5})
}

func TestOrdererAnchorsOnFirstFrame(t *testing.T) {
	// The first frame seen anchors the stream even mid-sequence.
	o := NewOrderer(10)
	out := pushAll(o, []uint32{100, 101, 102})
	checkIndices(t, emittedIndices(out), []uint32{100, 101, 102})
}

func TestOrdererDiscardsLate(t *testing.T) {
	o := NewOrderer(10)
	pushAll(o, []uint32{0, 1, 2})

	out := o.Push(Chunk{Index: 1, Data: []byte{1}})
	if len(out) != 0 {
		t.Fatalf("expected late frame discarded, got %d frames", len(out))
	}
	if got := o.Stats().Late; got != 1 {
		t.Errorf("expected 1 late frame counted, got %d", got)
	}
}

func TestOrdererSingleGapConceal(t *testing.T) {
	// With index 1 missing, the buffer fills to the window; the gap of
	// exactly one frame is concealed with an empty payload.
	o := NewOrderer(10)
	out := pushAll(o, []uint32{0, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11})

	checkIndices(t, emittedIndices(out), []uint32{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11})

	if len(out[1].Data) != 0 {
		t.Errorf("expected concealment frame 1 to have empty payload, got %d bytes", len(out[1].Data))
	}
	for i, c := range out {
		if c.Index != 1 && len(c.Data) == 0 {
			t.Errorf("frame %d (index %d): unexpected empty payload", i, c.Index)
		}
	}

	stats := o.Stats()
	if stats.Concealed != 1 {
		t.Errorf("expected 1 concealment, got %d", stats.Concealed)
	}
	if stats.Skipped != 0 {
		t.Errorf("expected no skips, got %d", stats.Skipped)
	}
}

func TestOrdererLargeGapSkips(t *testing.T) {
	// Indices 1..4 lost: too wide to conceal, the window forces a jump
	// straight to the buffered head.
	o := NewOrderer(10)
	out := pushAll(o, []uint32{0, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14})

	checkIndices(t, emittedIndices(out), []uint32{0, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14})

	stats := o.Stats()
	if stats.Concealed != 0 {
		t.Errorf("expected no concealment, got %d", stats.Concealed)
	}
	if stats.Skipped != 4 {
		t.Errorf("expected 4 skipped frames, got %d", stats.Skipped)
	}
}

func TestOrdererBufferBounded(t *testing.T) {
	o := NewOrderer(10)
	o.Push(Chunk{Index: 0, Data: []byte{0}})

	// A permanent gap at 1: keep pushing ahead and verify the buffer
	// never exceeds the window.
	for i := uint32(2); i < 100; i++ {
		o.Push(Chunk{Index: i, Data: []byte{byte(i)}})
		if depth := o.Depth(); depth > 10 {
			t.Fatalf("buffer depth %d exceeds window after index %d", depth, i)
		}
	}
}

func TestOrdererOutputStrictlyIncreasing(t *testing.T) {
	o := NewOrderer(4)
	input := []uint32{3, 0, 1, 7, 2, 9, 4, 4, 8, 5, 12, 6, 11, 10, 15, 13, 14}

	var all []Chunk
	for _, i := range input {
		all = append(all, o.Push(Chunk{Index: i, Data: []byte{byte(i)}})...)
	}

	for i := 1; i < len(all); i++ {
		if all[i].Index <= all[i-1].Index {
			t.Fatalf("output not strictly increasing: %d then %d", all[i-1].Index, all[i].Index)
		}
	}
}

func TestOrdererDuplicateDiscarded(t *testing.T) {
	o := NewOrderer(10)
	out := pushAll(o, []uint32{0, 2, 2, 1})
	checkIndices(t, emittedIndices(out), []uint32{0, 1, 2})
}
