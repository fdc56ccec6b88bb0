// Package transport sends and receives SPDU fragments over UDP,
// replacing the original simulator's raw sendto/recvfrom socket calls
// (spec.md §4.4).
package transport

import (
	"fmt"
	"net"
	"time"

	verrors "github.com/twardokus/v2verifier/internal/errors"
	"github.com/twardokus/v2verifier/pkg/wire"
)

// Transport wraps a UDP socket and a fragment codec.
type Transport struct {
	conn  *net.UDPConn
	codec *wire.Codec

	readTimeout  time.Duration
	writeTimeout time.Duration
}

// Sender opens a UDP socket for sending fragments to addr (host:port).
func Sender(addr string) (*Transport, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", verrors.ErrSocketBind, err)
	}
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", verrors.ErrSocketBind, err)
	}
	return &Transport{conn: conn, codec: wire.NewCodec()}, nil
}

// Receiver binds a UDP socket on port to receive fragments.
func Receiver(port int) (*Transport, error) {
	udpAddr := &net.UDPAddr{Port: port}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", verrors.ErrSocketBind, err)
	}
	return &Transport{conn: conn, codec: wire.NewCodec()}, nil
}

// SetReadTimeout sets the deadline applied to every subsequent Receive.
func (t *Transport) SetReadTimeout(d time.Duration) {
	t.readTimeout = d
}

// SetWriteTimeout sets the deadline applied to every subsequent Send.
func (t *Transport) SetWriteTimeout(d time.Duration) {
	t.writeTimeout = d
}

// Send encodes and writes fragment to the socket's connected peer.
func (t *Transport) Send(fragment *wire.Fragment) error {
	encoded, err := t.codec.Encode(fragment)
	if err != nil {
		return err
	}
	if t.writeTimeout > 0 {
		_ = t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout))
	}
	if _, err := t.conn.Write(encoded); err != nil {
		return fmt.Errorf("%w: %v", verrors.ErrSocketSend, err)
	}
	return nil
}

// Receive blocks until one fragment is read and decoded, returning the
// sender's address alongside it.
func (t *Transport) Receive() (*wire.Fragment, net.Addr, time.Time, error) {
	if t.readTimeout > 0 {
		_ = t.conn.SetReadDeadline(time.Now().Add(t.readTimeout))
	}

	buf := make([]byte, wire.FragmentWireSize)
	n, addr, err := t.conn.ReadFromUDP(buf)
	receivedAt := time.Now()
	if err != nil {
		return nil, nil, receivedAt, err
	}

	fragment, err := t.codec.Decode(buf[:n])
	if err != nil {
		return nil, addr, receivedAt, err
	}
	return fragment, addr, receivedAt, nil
}

// LocalAddr returns the socket's local address.
func (t *Transport) LocalAddr() net.Addr {
	return t.conn.LocalAddr()
}

// Close closes the underlying socket.
func (t *Transport) Close() error {
	return t.conn.Close()
}
