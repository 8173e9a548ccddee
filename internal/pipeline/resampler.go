// ABOUTME: Streaming sample-rate converter with index-preserving frame alignment
// ABOUTME: Converts int16 PCM chunks to float32 codec frames via a circular alignment buffer
package pipeline

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Resampler converts indexed PCM chunks at the source rate into indexed
// float32 frames at the codec rate, preserving the 1:1 mapping between
// input chunk index and output frame index.
//
// Output frames are views into a circular alignment buffer, not copies.
// A view stays valid until the buffer wraps back over it, which takes
// capacity/frameBytes further frames (6 stereo frames at 48kHz with a
// 960ms ceiling), so the consumer must use or copy each frame within
// that window.
type Resampler struct {
	channels   int
	frameBytes int // bytes per output frame (frameSamples * channels * 4)

	conv rateConverter

	ring     []byte
	writeOff int
	buffered int

	pending []uint32 // input indices awaiting a full output frame

	scratch []float32
}

// NewResampler creates a resampler from inRate int16 PCM to outRate
// float32 PCM in frames of frameSamples per channel. The alignment
// buffer's capacity is maxLatencyMs*outRate/1000 bytes and must be a
// positive multiple of the output frame size; this keeps every emitted
// frame contiguous (a frame never straddles the wrap point).
func NewResampler(channels, inRate, outRate, frameSamples, maxLatencyMs int) (*Resampler, error) {
	if channels < 1 || inRate <= 0 || outRate <= 0 || frameSamples <= 0 {
		return nil, fmt.Errorf("invalid resampler parameters: %dch %d->%dHz frame %d",
			channels, inRate, outRate, frameSamples)
	}

	frameBytes := frameSamples * channels * 4
	capacity := maxLatencyMs * outRate / 1000
	if capacity <= 0 || capacity%frameBytes != 0 {
		return nil, fmt.Errorf("alignment buffer capacity %d is not a positive multiple of frame size %d",
			capacity, frameBytes)
	}

	return &Resampler{
		channels:   channels,
		frameBytes: frameBytes,
		conv: rateConverter{
			channels: channels,
			inRate:   inRate,
			outRate:  outRate,
		},
		ring: make([]byte, capacity),
	}, nil
}

// FrameBytes returns the size in bytes of one output frame.
func (r *Resampler) FrameBytes() int { return r.frameBytes }

// Process feeds one input chunk and returns every output frame that
// became complete. Input indices are consumed in arrival order; when a
// chunk yields less than a full frame its index stays queued and is
// inherited by the first subsequently completed frame.
func (r *Resampler) Process(c Chunk) []Chunk {
	r.pending = append(r.pending, c.Index)

	r.scratch = r.conv.convert(c.Data, r.scratch[:0])
	r.write(r.scratch)

	var frames []Chunk
	for r.buffered >= r.frameBytes && len(r.pending) > 0 {
		j := r.pending[0]
		r.pending = r.pending[1:]

		readOff := r.writeOff - r.buffered
		if readOff < 0 {
			readOff += len(r.ring)
		}
		frames = append(frames, Chunk{Index: j, Data: r.ring[readOff : readOff+r.frameBytes]})
		r.buffered -= r.frameBytes
	}
	return frames
}

// write appends float32 samples to the ring as little-endian bytes,
// splitting across the wrap boundary if necessary.
func (r *Resampler) write(samples []float32) {
	for _, s := range samples {
		binary.LittleEndian.PutUint32(r.ring[r.writeOff:], math.Float32bits(s))
		r.writeOff += 4
		if r.writeOff == len(r.ring) {
			r.writeOff = 0
		}
	}
	r.buffered += len(samples) * 4
}

// rateConverter is a streaming linear interpolator from inRate int16 PCM
// to outRate float32 PCM. Output positions are tracked as exact rationals
// (outCount * inRate / outRate), so the input↔output frame mapping never
// drifts: at equal rates it is the identity.
type rateConverter struct {
	channels int
	inRate   int
	outRate  int

	in       []float32 // carried input frames, starting at frame inBase
	inBase   int64
	inTotal  int64 // input frames consumed so far
	outCount int64 // output frames produced so far
}

// convert feeds interleaved s16le PCM and appends produced float32
// samples to dst. May produce nothing (short input) or more than one
// frame's worth (catch-up after accumulating).
func (c *rateConverter) convert(pcm []byte, dst []float32) []float32 {
	n := len(pcm) / (2 * c.channels)
	for i := 0; i < n*c.channels; i++ {
		s := int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
		c.in = append(c.in, float32(s)/32768.0)
	}
	c.inTotal += int64(n)

	for {
		num := c.outCount * int64(c.inRate)
		idx := num / int64(c.outRate)
		rem := num % int64(c.outRate)

		if rem == 0 {
			if idx >= c.inTotal {
				break
			}
		} else if idx+1 >= c.inTotal {
			break
		}

		base := int(idx-c.inBase) * c.channels
		if rem == 0 {
			dst = append(dst, c.in[base:base+c.channels]...)
		} else {
			frac := float32(rem) / float32(c.outRate)
			next := base + c.channels
			for ch := 0; ch < c.channels; ch++ {
				s0 := c.in[base+ch]
				s1 := c.in[next+ch]
				dst = append(dst, s0*(1-frac)+s1*frac)
			}
		}
		c.outCount++
	}

	// Drop input frames the next output can no longer reference.
	keepFrom := c.outCount * int64(c.inRate) / int64(c.outRate)
	if keepFrom > c.inBase {
		kept := copy(c.in, c.in[int(keepFrom-c.inBase)*c.channels:])
		c.in = c.in[:kept]
		c.inBase = keepFrom
	}
	return dst
}
