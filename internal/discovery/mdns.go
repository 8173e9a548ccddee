// ABOUTME: mDNS discovery with stream-geometry advertisement
// ABOUTME: Receivers announce port and format; senders browse and check compatibility before dialing
package discovery

import (
	"fmt"
	"log"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/mdns"
)

// serviceType is the mDNS service type receivers advertise under.
const serviceType = "_airwave._udp"

// Announcement is what a receiver publishes: where to send, and the
// stream geometry it will decode with. Geometry rides in the TXT record
// so a sender can reject an incompatible receiver before dialing it.
type Announcement struct {
	InstanceName string
	Port         int
	CodecRate    int
	Channels     int
	Transport    string // "udp" or "websocket"
}

// txtRecords encodes the announcement's geometry as TXT key=value pairs.
func (a Announcement) txtRecords() []string {
	return []string{
		"rate=" + strconv.Itoa(a.CodecRate),
		"ch=" + strconv.Itoa(a.Channels),
		"transport=" + a.Transport,
	}
}

// Receiver is a discovered receiver with its advertised geometry.
// CodecRate and Channels are zero when the TXT record was absent or
// unparsable (an older or foreign announcer).
type Receiver struct {
	Name      string
	Host      string
	Port      int
	CodecRate int
	Channels  int
	Transport string
	SeenAt    time.Time
}

// Addr returns the receiver's host:port.
func (r *Receiver) Addr() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}

// Compatible reports whether the receiver advertised the same stream
// geometry the sender is configured for. A receiver that advertised no
// geometry is assumed compatible.
func (r *Receiver) Compatible(codecRate, channels int) bool {
	if r.CodecRate == 0 {
		return true
	}
	return r.CodecRate == codecRate && r.Channels == channels
}

// Advertiser publishes a receiver announcement until Shutdown.
type Advertiser struct {
	server *mdns.Server
}

// Advertise publishes the announcement on the local network.
func Advertise(a Announcement) (*Advertiser, error) {
	ips, err := advertisableIPs()
	if err != nil {
		return nil, fmt.Errorf("failed to get local IPs: %w", err)
	}

	service, err := mdns.NewMDNSService(
		a.InstanceName,
		serviceType,
		"",
		"",
		a.Port,
		ips,
		a.txtRecords(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("failed to create mdns server: %w", err)
	}

	log.Printf("Advertising receiver %q on port %d (%s, %dHz %dch)",
		a.InstanceName, a.Port, serviceType, a.CodecRate, a.Channels)

	return &Advertiser{server: server}, nil
}

// Shutdown stops the advertisement.
func (ad *Advertiser) Shutdown() {
	ad.server.Shutdown()
}

// Browser collects receiver announcements, keeping the most recent
// sighting per instance so a receiver that restarted on a new port
// supersedes its stale entry.
type Browser struct {
	mu    sync.Mutex
	known map[string]Receiver
}

// NewBrowser creates an empty browser.
func NewBrowser() *Browser {
	return &Browser{known: make(map[string]Receiver)}
}

// Find browses until a receiver compatible with the given geometry
// appears or the timeout elapses. Incompatible receivers are logged and
// skipped, not returned.
func (b *Browser) Find(timeout time.Duration, codecRate, channels int) (*Receiver, error) {
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		entries := make(chan *mdns.ServiceEntry, 10)
		done := make(chan struct{})

		go func() {
			defer close(done)
			for entry := range entries {
				b.observe(entry)
			}
		}()

		mdns.Query(&mdns.QueryParam{
			Service: serviceType,
			Domain:  "local",
			Timeout: 2,
			Entries: entries,
		})
		close(entries)
		<-done

		for _, recv := range b.snapshot() {
			if !recv.Compatible(codecRate, channels) {
				log.Printf("Skipping %s: advertises %dHz %dch, want %dHz %dch",
					recv.Name, recv.CodecRate, recv.Channels, codecRate, channels)
				continue
			}
			log.Printf("Discovered receiver: %s at %s", recv.Name, recv.Addr())
			return &recv, nil
		}
	}

	return nil, fmt.Errorf("no compatible receiver found within %v", timeout)
}

// observe records one service entry, replacing any older sighting of
// the same instance.
func (b *Browser) observe(entry *mdns.ServiceEntry) {
	if entry.AddrV4 == nil {
		return
	}

	recv := Receiver{
		Name:   entry.Name,
		Host:   entry.AddrV4.String(),
		Port:   entry.Port,
		SeenAt: time.Now(),
	}
	recv.CodecRate, recv.Channels, recv.Transport = parseTXT(entry.InfoFields)

	b.mu.Lock()
	b.known[recv.Name] = recv
	b.mu.Unlock()
}

// snapshot returns the known receivers, most recently seen first.
func (b *Browser) snapshot() []Receiver {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Receiver, 0, len(b.known))
	for _, recv := range b.known {
		out = append(out, recv)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].SeenAt.After(out[j-1].SeenAt); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// parseTXT extracts the stream geometry from TXT key=value fields.
// Unknown keys are ignored; missing keys leave zero values.
func parseTXT(fields []string) (codecRate, channels int, transportName string) {
	for _, field := range fields {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}
		switch key {
		case "rate":
			codecRate, _ = strconv.Atoi(value)
		case "ch":
			channels, _ = strconv.Atoi(value)
		case "transport":
			transportName = value
		}
	}
	return codecRate, channels, transportName
}

// advertisableIPs returns the non-loopback IPv4 addresses to bind the
// announcement to.
func advertisableIPs() ([]net.IP, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil, err
	}

	var ips []net.IP
	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() {
			continue
		}
		if ip4 := ipnet.IP.To4(); ip4 != nil {
			ips = append(ips, ip4)
		}
	}

	if len(ips) == 0 {
		return nil, fmt.Errorf("no advertisable IPv4 address")
	}
	return ips, nil
}
