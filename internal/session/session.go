package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Pablu23/Rudp/internal/common"
)

type Role uint8

const (
	Initiator Role = iota
	Responder
)

func (role Role) String() string {
	switch role {
	case Initiator:
		return "Initiator"
	case Responder:
		return "Responder"
	default:
		return "INVALID"
	}
}

type State uint8

const (
	Idle State = iota
	SynSent
	SynReceived
	Connected
	Closed
)

func (state State) String() string {
	switch state {
	case Idle:
		return "Idle"
	case SynSent:
		return "SynSent"
	case SynReceived:
		return "SynReceived"
	case Connected:
		return "Connected"
	case Closed:
		return "Closed"
	default:
		return "INVALID"
	}
}

// Session is one end of a reliable transfer over UDP.
//
// A Session is not safe for concurrent use. Every operation blocks until it
// completes, times out or fails, and exactly one segment is in flight at a time.
type Session struct {
	conn    *net.UDPConn
	role    Role
	state   State
	peer    *net.UDPAddr
	options *Options

	sendSeq     uint32
	expectedSeq uint32

	// sendBuf holds one marshalled segment, recvBuf one received datagram. recvBuf
	// is a byte longer than the largest segment so oversized datagrams are noticed.
	sendBuf []byte
	recvBuf []byte
}

// New allocates the datagram endpoint. A Responder binds it to listenPort on all
// interfaces, an Initiator uses an ephemeral port and ignores listenPort.
func New(role Role, listenPort int, opts ...func(*Options)) (*Session, error) {
	options := NewDefaultOptions()

	for _, opt := range opts {
		opt(options)
	}

	if options.SegmentSize <= 0 || options.SegmentSize > common.MaxSegmentSize {
		return nil, fmt.Errorf("segment size %d out of range 1..%d", options.SegmentSize, common.MaxSegmentSize)
	}

	var address string
	switch role {
	case Initiator:
		address = ":0"
	case Responder:
		address = fmt.Sprintf(":%d", listenPort)
	default:
		return nil, fmt.Errorf("invalid role %v", role)
	}

	lc := net.ListenConfig{}
	if options.ReuseAddr {
		lc.Control = reuseAddr
	}

	pc, err := lc.ListenPacket(context.Background(), "udp4", address)
	if err != nil {
		return nil, fmt.Errorf("could not create endpoint on %v: %w", address, err)
	}

	wireSize := common.WireSize(options.SegmentSize)
	session := &Session{
		conn:    pc.(*net.UDPConn),
		role:    role,
		state:   Idle,
		options: options,
		sendBuf: make([]byte, wireSize),
		recvBuf: make([]byte, wireSize+1),
	}

	log.WithFields(log.Fields{
		"Role":    role,
		"Address": session.conn.LocalAddr(),
	}).Debug("Created session")

	return session, nil
}

func (s *Session) Role() Role {
	return s.role
}

func (s *Session) State() State {
	return s.state
}

// PeerAddr returns the peer's address, or nil while no peer is known.
func (s *Session) PeerAddr() *net.UDPAddr {
	return s.peer
}

func (s *Session) LocalAddr() *net.UDPAddr {
	return s.conn.LocalAddr().(*net.UDPAddr)
}

// Disconnect releases the endpoint of a connected session.
func (s *Session) Disconnect() error {
	if err := s.connected(); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"Role": s.role,
		"Peer": s.peer,
	}).Info("Disconnecting session")

	return s.release()
}

// Close releases the endpoint regardless of the connection state. Closing a
// closed session is a no-op.
func (s *Session) Close() error {
	if s.state == Closed {
		return nil
	}
	return s.release()
}

func (s *Session) release() error {
	s.state = Closed
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("could not close endpoint: %w", err)
	}
	return nil
}

func (s *Session) connected() error {
	switch s.state {
	case Connected:
		return nil
	case Closed:
		return ErrClosed
	default:
		return ErrNotConnected
	}
}

// read receives one datagram into recvBuf. A zero timeout blocks indefinitely.
func (s *Session) read(timeout time.Duration) (int, *net.UDPAddr, error) {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	if err := s.conn.SetReadDeadline(deadline); err != nil {
		return 0, nil, err
	}

	return s.conn.ReadFromUDP(s.recvBuf)
}

func (s *Session) readControl(timeout time.Duration) (common.ControlHeader, *net.UDPAddr, error) {
	n, addr, err := s.read(timeout)
	if err != nil {
		return common.ControlHeader{}, addr, err
	}

	header, err := common.ControlHeaderFromBytes(s.recvBuf[:n])
	return header, addr, err
}

func (s *Session) writeControl(flag common.HeaderFlag, addr *net.UDPAddr) error {
	_, err := s.conn.WriteToUDP(common.NewControl(flag).ToBytes(), addr)
	return err
}

func isTimeout(err error) bool {
	return errors.Is(err, os.ErrDeadlineExceeded)
}
