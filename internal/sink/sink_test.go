// ABOUTME: Tests for the capturing sink
// ABOUTME: Verifies frames are copied, not aliased
package sink

import "testing"

func TestCaptureCopiesFrames(t *testing.T) {
	c := NewCapture()

	frame := []int16{1, 2, 3}
	if err := c.Write(frame); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	frame[0] = 99

	frames := c.Frames()
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}
	if frames[0][0] != 1 {
		t.Errorf("frame aliases caller buffer: %v", frames[0])
	}
}

func TestCaptureOrder(t *testing.T) {
	c := NewCapture()
	c.Write([]int16{1})
	c.Write([]int16{2})
	c.Write([]int16{3})

	frames := c.Frames()
	if len(frames) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(frames))
	}
	for i, f := range frames {
		if f[0] != int16(i+1) {
			t.Errorf("frame %d: expected %d, got %d", i, i+1, f[0])
		}
	}
}
