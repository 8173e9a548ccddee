// ABOUTME: Entry point for the Airwave receiver
// ABOUTME: Parses CLI flags, opens the transport and audio device, and runs the receive pipeline
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/Airwave-Audio/airwave-go/internal/config"
	"github.com/Airwave-Audio/airwave-go/internal/discovery"
	"github.com/Airwave-Audio/airwave-go/internal/pipeline"
	"github.com/Airwave-Audio/airwave-go/internal/sink"
	"github.com/Airwave-Audio/airwave-go/internal/transport"
	"github.com/Airwave-Audio/airwave-go/internal/ui"
	"github.com/Airwave-Audio/airwave-go/internal/version"
)

var (
	configPath = flag.String("config", "", "YAML config file (defaults apply if empty)")
	port       = flag.Int("port", 0, "Listen port override")
	name       = flag.String("name", "", "Receiver friendly name (default: hostname-airwave)")
	logFile    = flag.String("log-file", "airwave-receiver.log", "Log file path")
	noMDNS     = flag.Bool("no-mdns", false, "Disable mDNS advertisement")
	noTUI      = flag.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
)

func main() {
	flag.Parse()

	useTUI := !*noTUI

	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	if useTUI {
		// TUI mode: log only to file so the panel stays readable.
		log.SetOutput(f)
	} else {
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	cfg := config.Default()
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("config error: %v", err)
		}
	}
	if *port != 0 {
		cfg.Port = *port
	}

	receiverName := *name
	if receiverName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		receiverName = fmt.Sprintf("%s-airwave", hostname)
	}
	instanceID := strings.Split(uuid.NewString(), "-")[0]

	log.Printf("Starting %s receiver %s (%s) v%s", version.Product, receiverName, instanceID, version.Version)

	conn, boundPort, err := listen(cfg)
	if err != nil {
		log.Fatalf("transport error: %v", err)
	}

	if !*noMDNS {
		ad, err := discovery.Advertise(discovery.Announcement{
			InstanceName: fmt.Sprintf("%s-%s", receiverName, instanceID),
			Port:         boundPort,
			CodecRate:    cfg.CodecRate,
			Channels:     cfg.Channels,
			Transport:    string(cfg.Transport),
		})
		if err != nil {
			log.Printf("mDNS advertisement failed: %v", err)
		} else {
			defer ad.Shutdown()
		}
	}

	output, err := sink.NewOto(cfg.CodecRate, cfg.Channels)
	if err != nil {
		log.Fatalf("audio output error: %v", err)
	}

	recv, err := pipeline.NewReceiver(pipeline.ReceiverConfig{
		Conn:            conn,
		Sink:            output,
		CodecRate:       cfg.CodecRate,
		Channels:        cfg.Channels,
		ChunksPerSecond: cfg.ChunksPerSecond,
		MaxUnordered:    cfg.MaxUnordered,
	})
	if err != nil {
		log.Fatalf("pipeline error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- recv.Run(ctx) }()

	var tuiProg *tea.Program
	var controls *ui.Controls
	tuiDone := make(chan struct{})

	if useTUI {
		controls = ui.NewControls()
		tuiProg = ui.Run(controls)
		go func() {
			defer close(tuiDone)
			if _, err := tuiProg.Run(); err != nil {
				log.Printf("TUI error: %v", err)
			}
		}()

		listening := true
		tuiProg.Send(ui.StatusMsg{
			Listening:  &listening,
			Transport:  string(cfg.Transport),
			Port:       boundPort,
			SampleRate: cfg.CodecRate,
			Channels:   cfg.Channels,
			Window:     cfg.MaxUnordered,
		})

		go statsLoop(ctx, recv, tuiProg)
		go handleVolume(ctx, output, controls)
	} else {
		go logStatsLoop(ctx, recv)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Printf("Received %v, shutting down", sig)
	case <-quitChan(controls):
		log.Printf("Quit requested from TUI")
	case err := <-runErr:
		if err != nil {
			log.Printf("Receiver error: %v", err)
		}
	}

	// Teardown: cancel the pipeline context first so the receive error
	// that follows reads as clean shutdown, then close the transport so
	// the pipeline loop unblocks, then the audio device.
	cancel()
	conn.Close()
	output.Close()
	if tuiProg != nil {
		tuiProg.Quit()
		<-tuiDone
	}
	log.Printf("Receiver stopped")
}

// listen opens the configured transport and reports the bound port.
func listen(cfg config.Config) (transport.Conn, int, error) {
	switch cfg.Transport {
	case config.TransportWebSocket:
		l, err := transport.ListenWebSocket(cfg.Port)
		if err != nil {
			return nil, 0, err
		}
		return l, l.LocalPort(), nil
	default:
		l, err := transport.ListenUDP(cfg.Port)
		if err != nil {
			return nil, 0, err
		}
		return l, l.LocalPort(), nil
	}
}

// quitChan adapts the optional TUI quit channel for select.
func quitChan(controls *ui.Controls) <-chan ui.QuitMsg {
	if controls == nil {
		return nil
	}
	return controls.Quit
}

// handleVolume forwards TUI volume changes to the audio sink.
func handleVolume(ctx context.Context, output *sink.Oto, controls *ui.Controls) {
	for {
		select {
		case <-ctx.Done():
			return
		case change := <-controls.Changes:
			output.SetVolume(change.Volume)
			output.SetMuted(change.Muted)
		}
	}
}

// statsLoop periodically pushes pipeline counters into the TUI.
func statsLoop(ctx context.Context, recv *pipeline.Receiver, prog *tea.Program) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := recv.Stats()
			prog.Send(ui.StatusMsg{
				Received:    stats.Orderer.Received,
				Decoded:     stats.Decoded,
				Concealed:   stats.Orderer.Concealed,
				Late:        stats.Orderer.Late,
				Skipped:     stats.Orderer.Skipped,
				Malformed:   stats.Malformed,
				BufferDepth: stats.BufferDepth,
			})
		}
	}
}

// logStatsLoop logs pipeline counters when the TUI is disabled.
func logStatsLoop(ctx context.Context, recv *pipeline.Receiver) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := recv.Stats()
			log.Printf("rx=%d played=%d concealed=%d late=%d skipped=%d bad=%d buffer=%d",
				stats.Orderer.Received, stats.Decoded, stats.Orderer.Concealed,
				stats.Orderer.Late, stats.Orderer.Skipped, stats.Malformed, stats.BufferDepth)
		}
	}
}
