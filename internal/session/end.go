package session

import (
	log "github.com/sirupsen/logrus"

	"github.com/Pablu23/Rudp/internal/common"
)

type EndSignal uint8

const (
	NoSignal EndSignal = iota
	EndSignalReceived
)

func (signal EndSignal) String() string {
	if signal == EndSignalReceived {
		return "end signal received"
	}
	return "no signal"
}

// SendEndSignal tells the peer that no further data follows on this session.
func (s *Session) SendEndSignal() error {
	if err := s.connected(); err != nil {
		return err
	}

	log.WithField("Peer", s.peer).Debug("Sending end signal")
	return s.writeControl(common.End, s.peer)
}

// RecvEndSignal waits up to the end signal timeout for one datagram. A timeout
// or any datagram that is not an END control header reports NoSignal.
func (s *Session) RecvEndSignal() (EndSignal, error) {
	if err := s.connected(); err != nil {
		return NoSignal, err
	}

	n, _, err := s.read(s.options.EndSignalTimeout)
	if isTimeout(err) {
		return NoSignal, nil
	} else if err != nil {
		return NoSignal, err
	}

	if isEndSignal(s.recvBuf[:n]) {
		return EndSignalReceived, nil
	}
	return NoSignal, nil
}
