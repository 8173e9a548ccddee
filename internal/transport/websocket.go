// ABOUTME: WebSocket transport for networks that drop UDP
// ABOUTME: Carries one wire record per binary message over a single connection
package transport

import (
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"
)

// wsPath is the upgrade endpoint on the receiver's HTTP listener.
const wsPath = "/airwave"

// WSConn is a Conn over a single WebSocket connection: one binary
// message per wire record. TCP delivers in order, but the pipeline makes
// no use of that — the receive path still runs through the orderer.
type WSConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

// DialWebSocket connects a sender to the receiver at addr (host:port).
func DialWebSocket(addr string) (*WSConn, error) {
	u := url.URL{Scheme: "ws", Host: addr, Path: wsPath}

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}

	return &WSConn{conn: conn}, nil
}

// Send transmits one record as a binary message.
func (w *WSConn) Send(record []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteMessage(websocket.BinaryMessage, record)
}

// Receive blocks for the next binary message. Text messages are ignored.
func (w *WSConn) Receive() ([]byte, error) {
	for {
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if messageType == websocket.BinaryMessage {
			return data, nil
		}
	}
}

// Close closes the connection.
func (w *WSConn) Close() error {
	return w.conn.Close()
}

// WSListener accepts sender connections on the receiver side. Records
// from the current sender flow into a single receive channel; a new
// sender replaces the previous one.
type WSListener struct {
	server   *http.Server
	listener net.Listener
	upgrader websocket.Upgrader

	records chan []byte
	done    chan struct{}

	mu     sync.Mutex
	active *websocket.Conn
	closed bool
}

// ListenWebSocket starts a WebSocket listener on the given port.
func ListenWebSocket(port int) (*WSListener, error) {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("websocket listen failed: %w", err)
	}

	l := &WSListener{
		listener: listener,
		records:  make(chan []byte, 64),
		done:     make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc(wsPath, l.handleUpgrade)
	l.server = &http.Server{Handler: mux}

	go func() {
		if err := l.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("WebSocket listener error: %v", err)
		}
	}()

	return l, nil
}

// handleUpgrade accepts a sender connection and pumps its binary
// messages into the record channel.
func (l *WSListener) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	l.mu.Lock()
	if l.active != nil {
		l.active.Close()
	}
	l.active = conn
	l.mu.Unlock()

	log.Printf("Sender connected via WebSocket: %s", conn.RemoteAddr())

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			log.Printf("Sender disconnected: %v", err)
			return
		}
		if messageType != websocket.BinaryMessage {
			continue
		}
		select {
		case l.records <- data:
		case <-l.done:
			return
		default:
			// Prefer drop over delay: a slow consumer loses records.
		}
	}
}

// Send is not supported on the listening side: the pipeline is
// unidirectional.
func (l *WSListener) Send(record []byte) error {
	return fmt.Errorf("websocket listener is receive-only")
}

// Receive blocks for the next record from the connected sender.
func (l *WSListener) Receive() ([]byte, error) {
	select {
	case record := <-l.records:
		return record, nil
	case <-l.done:
		return nil, net.ErrClosed
	}
}

// LocalPort returns the bound TCP port.
func (l *WSListener) LocalPort() int {
	return l.listener.Addr().(*net.TCPAddr).Port
}

// Close shuts the listener and any active sender connection.
func (l *WSListener) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	if l.active != nil {
		l.active.Close()
	}
	close(l.done)
	l.mu.Unlock()

	return l.server.Close()
}
