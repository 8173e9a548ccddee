// ABOUTME: Pipeline configuration schema and YAML loader
// ABOUTME: Binds the stream geometry constants and validates their coupling
package config

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Transport selects the record channel between sender and receiver.
type Transport string

const (
	TransportUDP       Transport = "udp"
	TransportWebSocket Transport = "websocket"
)

// IsValid reports whether t is a recognised transport.
func (t Transport) IsValid() bool {
	return t == TransportUDP || t == TransportWebSocket
}

// Config holds the stream geometry and link settings shared by the
// sender and receiver. Both ends must agree on everything except Port.
type Config struct {
	// CodecRate is the Opus operating rate in Hz.
	CodecRate int `yaml:"codec_rate"`

	// ChunksPerSecond is the chunk emission cadence. 50 gives 20ms
	// chunks, the native Opus frame duration.
	ChunksPerSecond int `yaml:"chunks_per_second"`

	// Channels is the stream channel count (1 or 2).
	Channels int `yaml:"channels"`

	// MaxLatencyMs is the end-to-end latency ceiling. It sizes the
	// resampler's alignment buffer, so MaxLatencyMs * CodecRate / 1000
	// must be a multiple of the output frame size.
	MaxLatencyMs int `yaml:"max_latency_ms"`

	// MaxUnordered is the receiver's reorder window in frames.
	MaxUnordered int `yaml:"max_unordered"`

	// Transport selects udp or websocket.
	Transport Transport `yaml:"transport"`

	// Port is the receiver's listen port.
	Port int `yaml:"port"`

	// ToneHz is the test tone frequency used when no audio file is
	// given to the sender.
	ToneHz float64 `yaml:"tone_hz"`
}

// Default returns the stock configuration: 48kHz stereo Opus, 20ms
// chunks, 960ms latency ceiling, UDP on port 8931.
func Default() Config {
	return Config{
		CodecRate:       48000,
		ChunksPerSecond: 50,
		Channels:        2,
		MaxLatencyMs:    960,
		MaxUnordered:    10,
		Transport:       TransportUDP,
		Port:            8931,
		ToneHz:          440.0,
	}
}

// Load reads a YAML config file. Missing fields keep their defaults.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()

	return LoadFromReader(f)
}

// LoadFromReader parses YAML config from r on top of the defaults and
// validates the result.
func LoadFromReader(r io.Reader) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field ranges and the coupling between latency ceiling
// and frame geometry.
func (c Config) Validate() error {
	if c.CodecRate <= 0 {
		return fmt.Errorf("codec_rate must be positive, got %d", c.CodecRate)
	}
	if c.ChunksPerSecond <= 0 || 1000%c.ChunksPerSecond != 0 {
		return fmt.Errorf("chunks_per_second must divide 1000, got %d", c.ChunksPerSecond)
	}
	if c.CodecRate%c.ChunksPerSecond != 0 {
		return fmt.Errorf("codec_rate %d is not a multiple of chunks_per_second %d",
			c.CodecRate, c.ChunksPerSecond)
	}
	if c.Channels != 1 && c.Channels != 2 {
		return fmt.Errorf("channels must be 1 or 2, got %d", c.Channels)
	}
	if c.MaxUnordered < 1 {
		return fmt.Errorf("max_unordered must be at least 1, got %d", c.MaxUnordered)
	}
	if !c.Transport.IsValid() {
		return fmt.Errorf("unknown transport %q (want udp or websocket)", c.Transport)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port out of range: %d", c.Port)
	}

	// The alignment buffer must hold a whole number of output frames.
	capacity := c.MaxLatencyMs * c.CodecRate / 1000
	frameBytes := c.FrameSamples() * c.Channels * 4
	if capacity <= 0 || capacity%frameBytes != 0 {
		return fmt.Errorf("max_latency_ms %d: buffer capacity %d is not a positive multiple of frame size %d",
			c.MaxLatencyMs, capacity, frameBytes)
	}

	return nil
}

// ChunkDurationMs returns the duration of one chunk in milliseconds.
func (c Config) ChunkDurationMs() int {
	return 1000 / c.ChunksPerSecond
}

// FrameSamples returns the codec frame size in samples per channel.
func (c Config) FrameSamples() int {
	return c.CodecRate / c.ChunksPerSecond
}
