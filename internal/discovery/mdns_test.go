// ABOUTME: Tests for discovery announcements and browsing
// ABOUTME: Covers TXT geometry round-trip, compatibility checks, and sighting dedup
package discovery

import (
	"net"
	"testing"
	"time"

	"github.com/hashicorp/mdns"
)

func TestAnnouncementTXTRoundTrip(t *testing.T) {
	a := Announcement{
		InstanceName: "den-airwave",
		Port:         8931,
		CodecRate:    48000,
		Channels:     2,
		Transport:    "udp",
	}

	rate, channels, transportName := parseTXT(a.txtRecords())
	if rate != 48000 {
		t.Errorf("expected rate 48000, got %d", rate)
	}
	if channels != 2 {
		t.Errorf("expected 2 channels, got %d", channels)
	}
	if transportName != "udp" {
		t.Errorf("expected transport udp, got %q", transportName)
	}
}

func TestParseTXTIgnoresGarbage(t *testing.T) {
	rate, channels, transportName := parseTXT([]string{
		"path=/sendspin", "novalue", "rate=48000", "ch=notanumber",
	})
	if rate != 48000 {
		t.Errorf("expected rate parsed despite noise, got %d", rate)
	}
	if channels != 0 {
		t.Errorf("expected unparsable channels to stay 0, got %d", channels)
	}
	if transportName != "" {
		t.Errorf("expected empty transport, got %q", transportName)
	}
}

func TestReceiverCompatible(t *testing.T) {
	r := &Receiver{CodecRate: 48000, Channels: 2}

	if !r.Compatible(48000, 2) {
		t.Error("matching geometry should be compatible")
	}
	if r.Compatible(48000, 1) {
		t.Error("channel mismatch should be incompatible")
	}
	if r.Compatible(24000, 2) {
		t.Error("rate mismatch should be incompatible")
	}

	// No advertised geometry: assume compatible.
	bare := &Receiver{}
	if !bare.Compatible(48000, 2) {
		t.Error("receiver without TXT geometry should be assumed compatible")
	}
}

func TestReceiverAddr(t *testing.T) {
	r := &Receiver{Host: "192.168.1.7", Port: 8931}
	if addr := r.Addr(); addr != "192.168.1.7:8931" {
		t.Errorf("expected 192.168.1.7:8931, got %s", addr)
	}
}

func TestBrowserKeepsLatestSighting(t *testing.T) {
	b := NewBrowser()

	b.observe(&mdns.ServiceEntry{
		Name:       "den-airwave",
		AddrV4:     net.IPv4(10, 0, 0, 5),
		Port:       8931,
		InfoFields: []string{"rate=48000", "ch=2", "transport=udp"},
	})
	time.Sleep(time.Millisecond)
	// Same instance reappears on a new port: the old sighting is stale.
	b.observe(&mdns.ServiceEntry{
		Name:       "den-airwave",
		AddrV4:     net.IPv4(10, 0, 0, 5),
		Port:       9000,
		InfoFields: []string{"rate=48000", "ch=2", "transport=udp"},
	})

	known := b.snapshot()
	if len(known) != 1 {
		t.Fatalf("expected 1 deduped receiver, got %d", len(known))
	}
	if known[0].Port != 9000 {
		t.Errorf("expected latest sighting (port 9000), got %d", known[0].Port)
	}
}

func TestBrowserSnapshotMostRecentFirst(t *testing.T) {
	b := NewBrowser()

	b.observe(&mdns.ServiceEntry{Name: "old", AddrV4: net.IPv4(10, 0, 0, 1), Port: 1})
	time.Sleep(time.Millisecond)
	b.observe(&mdns.ServiceEntry{Name: "new", AddrV4: net.IPv4(10, 0, 0, 2), Port: 2})

	known := b.snapshot()
	if len(known) != 2 {
		t.Fatalf("expected 2 receivers, got %d", len(known))
	}
	if known[0].Name != "new" {
		t.Errorf("expected most recent sighting first, got %q", known[0].Name)
	}
}

func TestBrowserIgnoresEntriesWithoutAddress(t *testing.T) {
	b := NewBrowser()
	b.observe(&mdns.ServiceEntry{Name: "ghost", Port: 8931})

	if known := b.snapshot(); len(known) != 0 {
		t.Errorf("expected address-less entry ignored, got %d receivers", len(known))
	}
}
