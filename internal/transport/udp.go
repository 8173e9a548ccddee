// ABOUTME: UDP datagram transport
// ABOUTME: Carries one wire record per datagram between sender and receiver
package transport

import (
	"fmt"
	"net"
)

// maxDatagram bounds one received record: comfortably above the 4-byte
// index prefix plus the largest Opus packet.
const maxDatagram = 65535

// UDPConn carries one wire record per UDP datagram. The sender side is
// a connected socket; the receiver side is a listener that accepts
// records from any peer.
type UDPConn struct {
	conn *net.UDPConn
	buf  []byte
}

// DialUDP connects a sender to the receiver at addr (host:port).
func DialUDP(addr string) (*UDPConn, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", addr, err)
	}

	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, fmt.Errorf("udp dial failed: %w", err)
	}

	return &UDPConn{conn: conn, buf: make([]byte, maxDatagram)}, nil
}

// ListenUDP opens a receiver socket on the given port.
func ListenUDP(port int) (*UDPConn, error) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: port})
	if err != nil {
		return nil, fmt.Errorf("udp listen failed: %w", err)
	}

	return &UDPConn{conn: conn, buf: make([]byte, maxDatagram)}, nil
}

// Send transmits one record as a single datagram.
func (u *UDPConn) Send(record []byte) error {
	_, err := u.conn.Write(record)
	return err
}

// Receive blocks for the next datagram. The returned slice aliases the
// connection's receive buffer and is overwritten by the next call.
func (u *UDPConn) Receive() ([]byte, error) {
	n, _, err := u.conn.ReadFromUDP(u.buf)
	if err != nil {
		return nil, err
	}
	return u.buf[:n], nil
}

// LocalPort returns the bound local port (useful after listening on 0).
func (u *UDPConn) LocalPort() int {
	return u.conn.LocalAddr().(*net.UDPAddr).Port
}

// Close closes the socket. A blocked Receive returns with an error.
func (u *UDPConn) Close() error {
	return u.conn.Close()
}
