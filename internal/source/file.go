// ABOUTME: File-backed PCM sources for MP3 and FLAC
// ABOUTME: Decodes in a background goroutine into a bounded buffer for non-blocking reads
package source

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/hajimehoshi/go-mp3"
	"github.com/mewkiz/flac"
)

// FileSource streams PCM decoded from a local audio file. A background
// goroutine decodes ahead into a bounded buffer; ReadChunk never blocks.
type FileSource struct {
	buf        *pcmBuffer
	sampleRate int
	channels   int
	title      string
}

// NewFile opens an MP3 or FLAC file as a PCM source. If loop is true the
// file restarts from the beginning on EOF; otherwise the source closes
// after the final bytes, which surface as a short tail read.
func NewFile(path string, loop bool) (*FileSource, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("audio file not found: %s", path)
	}

	title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".mp3":
		return newMP3File(path, title, loop)
	case ".flac":
		return newFLACFile(path, title, loop)
	default:
		return nil, fmt.Errorf("unsupported audio format: %s (supported: .mp3, .flac)", ext)
	}
}

func (s *FileSource) ReadChunk(p []byte) (int, error) { return s.buf.read(p) }
func (s *FileSource) Readable() <-chan struct{}       { return s.buf.readable }
func (s *FileSource) SampleRate() int                 { return s.sampleRate }
func (s *FileSource) Channels() int                   { return s.channels }

// Title returns the display name derived from the file name.
func (s *FileSource) Title() string { return s.title }

// Close stops the decode goroutine and ends the stream.
func (s *FileSource) Close() error {
	s.buf.close()
	return nil
}

// newMP3File starts a decode goroutine feeding MP3 PCM into the buffer.
// go-mp3 outputs interleaved s16le stereo, which is already our wire-in
// format.
func newMP3File(path, title string, loop bool) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open MP3 file: %w", err)
	}

	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}

	const channels = 2 // go-mp3 always outputs stereo
	s := &FileSource{
		buf:        newPCMBuffer(decoder.SampleRate() * channels * 2), // ~1s of audio
		sampleRate: decoder.SampleRate(),
		channels:   channels,
		title:      title,
	}

	log.Printf("Loaded MP3: %s (sample rate: %d Hz)", title, s.sampleRate)

	go func() {
		defer f.Close()
		defer s.buf.close()

		chunk := make([]byte, 8192)
		for {
			n, err := decoder.Read(chunk)
			if n > 0 {
				if !s.buf.append(chunk[:n]) {
					return
				}
			}
			if err == io.EOF {
				if !loop {
					return
				}
				if _, err := f.Seek(0, io.SeekStart); err != nil {
					log.Printf("MP3 source: seek failed: %v", err)
					return
				}
				decoder, err = mp3.NewDecoder(f)
				if err != nil {
					log.Printf("MP3 source: restart failed: %v", err)
					return
				}
				continue
			}
			if err != nil {
				log.Printf("MP3 source: decode error: %v", err)
				return
			}
		}
	}()

	return s, nil
}

// newFLACFile starts a decode goroutine feeding FLAC PCM into the buffer.
// FLAC samples are normalized to int16 regardless of stored bit depth.
func newFLACFile(path, title string, loop bool) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open FLAC file: %w", err)
	}

	stream, err := flac.New(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode FLAC: %w", err)
	}

	info := stream.Info
	s := &FileSource{
		buf:        newPCMBuffer(int(info.SampleRate) * int(info.NChannels) * 2),
		sampleRate: int(info.SampleRate),
		channels:   int(info.NChannels),
		title:      title,
	}
	bitDepth := int(info.BitsPerSample)

	log.Printf("Loaded FLAC: %s (sample rate: %d Hz, channels: %d, bit depth: %d)",
		title, s.sampleRate, s.channels, bitDepth)

	go func() {
		defer f.Close()
		defer s.buf.close()

		for {
			frame, err := stream.ParseNext()
			if err == io.EOF {
				if !loop {
					return
				}
				if _, err := f.Seek(0, io.SeekStart); err != nil {
					log.Printf("FLAC source: seek failed: %v", err)
					return
				}
				stream, err = flac.New(f)
				if err != nil {
					log.Printf("FLAC source: restart failed: %v", err)
					return
				}
				continue
			}
			if err != nil {
				log.Printf("FLAC source: decode error: %v", err)
				return
			}

			// Interleave channels and scale to int16.
			blockSize := int(frame.BlockSize)
			pcm := make([]byte, blockSize*s.channels*2)
			for i := 0; i < blockSize; i++ {
				for ch := 0; ch < s.channels; ch++ {
					sample := scaleToInt16(frame.Subframes[ch].Samples[i], bitDepth)
					off := (i*s.channels + ch) * 2
					pcm[off] = byte(sample)
					pcm[off+1] = byte(sample >> 8)
				}
			}
			if !s.buf.append(pcm) {
				return
			}
		}
	}()

	return s, nil
}

// scaleToInt16 converts a FLAC sample of the given bit depth to int16.
func scaleToInt16(sample int32, bitDepth int) int16 {
	shift := bitDepth - 16
	if shift > 0 {
		return int16(sample >> shift)
	}
	return int16(sample << -shift)
}
