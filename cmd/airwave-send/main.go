// ABOUTME: Entry point for the Airwave sender
// ABOUTME: Opens a PCM source, discovers or dials a receiver, and runs the send pipeline
package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Airwave-Audio/airwave-go/internal/config"
	"github.com/Airwave-Audio/airwave-go/internal/discovery"
	"github.com/Airwave-Audio/airwave-go/internal/pipeline"
	"github.com/Airwave-Audio/airwave-go/internal/source"
	"github.com/Airwave-Audio/airwave-go/internal/transport"
	"github.com/Airwave-Audio/airwave-go/internal/version"
)

var (
	configPath = flag.String("config", "", "YAML config file (defaults apply if empty)")
	target     = flag.String("to", "", "Receiver address host:port (empty: discover via mDNS)")
	audioFile  = flag.String("audio", "", "Audio file to stream (MP3, FLAC). If not specified, sends a test tone")
	loop       = flag.Bool("loop", false, "Restart the audio file from the beginning on EOF")
	logFile    = flag.String("log-file", "airwave-sender.log", "Log file path")
)

func main() {
	flag.Parse()

	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer f.Close()
	log.SetOutput(io.MultiWriter(os.Stdout, f))

	cfg := config.Default()
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("config error: %v", err)
		}
	}

	log.Printf("Starting %s sender v%s", version.Product, version.Version)

	src, err := openSource(cfg)
	if err != nil {
		log.Fatalf("source error: %v", err)
	}
	defer src.Close()

	// The receiver decodes with the configured channel count; a source
	// that disagrees would produce garbage on the far end.
	if src.Channels() != cfg.Channels {
		log.Fatalf("source has %d channels but config expects %d", src.Channels(), cfg.Channels)
	}

	addr := *target
	if addr == "" {
		log.Printf("No receiver given, browsing via mDNS...")
		recv, err := discovery.NewBrowser().Find(10*time.Second, cfg.CodecRate, cfg.Channels)
		if err != nil {
			log.Fatalf("discovery failed: %v", err)
		}
		if recv.Transport != "" && recv.Transport != string(cfg.Transport) {
			log.Printf("Warning: receiver advertises %s transport, config says %s",
				recv.Transport, cfg.Transport)
		}
		addr = recv.Addr()
	}

	conn, err := dial(cfg, addr)
	if err != nil {
		log.Fatalf("transport error: %v", err)
	}
	defer conn.Close()

	log.Printf("Streaming to %s over %s (%dHz %dch -> opus %dHz, %dms chunks)",
		addr, cfg.Transport, src.SampleRate(), src.Channels(), cfg.CodecRate, cfg.ChunkDurationMs())

	sender, err := pipeline.NewSender(pipeline.SenderConfig{
		Source:          src,
		Conn:            conn,
		CodecRate:       cfg.CodecRate,
		ChunksPerSecond: cfg.ChunksPerSecond,
		MaxLatencyMs:    cfg.MaxLatencyMs,
	})
	if err != nil {
		log.Fatalf("pipeline error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- sender.Run(ctx) }()
	go statsLoop(ctx, sender)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Printf("Received %v, shutting down", sig)
		cancel()
		src.Close()
	case err := <-runErr:
		if err != nil {
			log.Fatalf("Sender error: %v", err)
		}
		log.Printf("Stream finished")
	}

	log.Printf("Sender stopped")
}

// openSource opens the file source, or the test tone if none was given.
func openSource(cfg config.Config) (source.Source, error) {
	if *audioFile == "" {
		log.Printf("Sending %.0f Hz test tone", cfg.ToneHz)
		return source.NewTone(cfg.CodecRate, cfg.Channels, cfg.ToneHz), nil
	}
	return source.NewFile(*audioFile, *loop)
}

// dial connects to the receiver over the configured transport.
func dial(cfg config.Config, addr string) (transport.Conn, error) {
	if cfg.Transport == config.TransportWebSocket {
		return transport.DialWebSocket(addr)
	}
	return transport.DialUDP(addr)
}

// statsLoop periodically logs send-side counters.
func statsLoop(ctx context.Context, sender *pipeline.Sender) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := sender.Stats()
			log.Printf("chunks=%d sent=%d dropped=%d stalls=%d",
				stats.Chunker.Emitted, stats.Sent, stats.Dropped, stats.Chunker.Stalls)
		}
	}
}
