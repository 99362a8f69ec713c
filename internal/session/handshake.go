package session

import (
	"fmt"
	"net"
	"strconv"

	log "github.com/sirupsen/logrus"

	"github.com/Pablu23/Rudp/internal/common"
)

func (s *Session) checkHandshake(want Role) error {
	switch {
	case s.state == Closed:
		return ErrClosed
	case s.state == Connected:
		return ErrAlreadyConnected
	case s.role != want:
		return ErrWrongRole
	}
	return nil
}

func (s *Session) failHandshake(step string, err error) error {
	s.state = Idle
	s.peer = nil

	log.WithFields(log.Fields{
		"Role": s.role,
		"Step": step,
	}).WithError(err).Warn("Handshake failed")

	return &HandshakeError{Step: step, Err: err}
}

// Connect performs the initiator's side of the three-way handshake with the
// Responder at address:port. The SYN_ACK must arrive within the handshake timeout.
func (s *Session) Connect(address string, port int) error {
	if err := s.checkHandshake(Initiator); err != nil {
		return err
	}

	peer, err := net.ResolveUDPAddr("udp4", net.JoinHostPort(address, strconv.Itoa(port)))
	if err != nil {
		return s.failHandshake("resolve", err)
	}
	s.peer = peer

	if err := s.writeControl(common.Syn, s.peer); err != nil {
		return s.failHandshake("SYN", err)
	}
	s.state = SynSent

	header, from, err := s.readControl(s.options.HandshakeTimeout)
	if err != nil {
		return s.failHandshake("SYN_ACK", err)
	}
	if header.Flags != common.SynAck {
		return s.failHandshake("SYN_ACK", fmt.Errorf("received %v instead of SYN_ACK", header.Flags))
	}

	// The responder may answer from a more specific address than the one dialed.
	s.peer = from

	if err := s.writeControl(common.Ack, s.peer); err != nil {
		return s.failHandshake("ACK", err)
	}
	s.state = Connected

	log.WithFields(log.Fields{
		"Role": s.role,
		"Peer": s.peer,
	}).Info("Connected")

	return nil
}

// Accept blocks until an Initiator completes the three-way handshake.
func (s *Session) Accept() error {
	if err := s.checkHandshake(Responder); err != nil {
		return err
	}

	header, from, err := s.readControl(0)
	if err != nil {
		return s.failHandshake("SYN", err)
	}
	if header.Flags != common.Syn {
		return s.failHandshake("SYN", fmt.Errorf("received %v instead of SYN", header.Flags))
	}

	s.peer = from
	s.state = SynReceived

	if err := s.writeControl(common.SynAck, s.peer); err != nil {
		return s.failHandshake("SYN_ACK", err)
	}

	header, from, err = s.readControl(0)
	if err != nil {
		return s.failHandshake("ACK", err)
	}
	if !sameAddr(from, s.peer) {
		return s.failHandshake("ACK", fmt.Errorf("ACK from %v, expected %v", from, s.peer))
	}
	if header.Flags != common.Ack {
		return s.failHandshake("ACK", fmt.Errorf("received %v instead of ACK", header.Flags))
	}
	s.state = Connected

	log.WithFields(log.Fields{
		"Role": s.role,
		"Peer": s.peer,
	}).Info("Accepted connection")

	return nil
}

func sameAddr(a, b *net.UDPAddr) bool {
	return a != nil && b != nil && a.IP.Equal(b.IP) && a.Port == b.Port
}
