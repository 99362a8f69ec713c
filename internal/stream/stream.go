// Package stream moves the benchmark payload over TCP, so the stop-and-wait
// session can be compared against the kernel's stream transport.
//
// Every run uses its own connection. The sender writes the payload length as a
// little endian uint64 followed by the payload, the receiver confirms with a
// single byte once it has read everything. A length of zero ends the session.
package stream

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Pablu23/Rudp/internal/common"
)

const lengthSize = 8

var ErrShortConfirm = errors.New("receiver did not confirm the run")

type Receiver struct {
	listener net.Listener
	stats    common.Statistics
}

// Listen opens the receiver on port on all interfaces. Accepted connections
// inherit the congestion control algorithm of the listener.
func Listen(port int, congestion string) (*Receiver, error) {
	lc := net.ListenConfig{Control: congestionControl(congestion)}

	listener, err := lc.Listen(context.Background(), "tcp4", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, err
	}

	return &Receiver{listener: listener}, nil
}

func (r *Receiver) Addr() *net.TCPAddr {
	return r.listener.Addr().(*net.TCPAddr)
}

func (r *Receiver) Close() error {
	return r.listener.Close()
}

// Serve receives runs until a sender ends the session.
func (r *Receiver) Serve() (common.Statistics, error) {
	log.WithField("Address", r.Addr()).Info("Waiting for TCP connections")

	var buf []byte
	for run := 1; ; run++ {
		conn, err := r.listener.Accept()
		if err != nil {
			return r.stats, err
		}

		start := time.Now()
		var done bool
		buf, done, err = r.receive(conn, buf)
		elapsed := time.Since(start)

		if err := conn.Close(); err != nil {
			log.WithError(err).Warn("Could not close TCP connection")
		}
		if err != nil {
			return r.stats, fmt.Errorf("run %d: %w", run, err)
		}
		if done {
			log.WithField("Peer", conn.RemoteAddr()).Info("Received exit message from sender")
			break
		}

		result := common.Run{
			Number:  run,
			Bytes:   len(buf),
			Elapsed: elapsed,
			Digest:  common.Digest(buf),
		}
		result.Log("tcp-receiver")
		r.stats.Add(result)
	}

	r.stats.Log("tcp-receiver")
	return r.stats, nil
}

// receive reads one run into buf, growing it if needed.
func (r *Receiver) receive(conn net.Conn, buf []byte) ([]byte, bool, error) {
	var header [lengthSize]byte
	if _, err := io.ReadFull(conn, header[:]); err != nil {
		return buf, false, fmt.Errorf("could not read length: %w", err)
	}

	length := binary.LittleEndian.Uint64(header[:])
	if length == 0 {
		return buf, true, nil
	}

	if uint64(cap(buf)) < length {
		buf = make([]byte, length)
	}
	buf = buf[:length]

	if _, err := io.ReadFull(conn, buf); err != nil {
		return buf, false, fmt.Errorf("could not read payload: %w", err)
	}
	if _, err := conn.Write([]byte{1}); err != nil {
		return buf, false, fmt.Errorf("could not confirm: %w", err)
	}
	return buf, false, nil
}

type Sender struct {
	dialer  net.Dialer
	address string
}

func NewSender(address string, port int, congestion string) *Sender {
	return &Sender{
		dialer:  net.Dialer{Timeout: 5 * time.Second, Control: congestionControl(congestion)},
		address: net.JoinHostPort(address, strconv.Itoa(port)),
	}
}

// Send moves data over a fresh connection and waits for the receiver's confirmation.
func (s *Sender) Send(data []byte) error {
	if len(data) == 0 {
		return errors.New("payload is empty")
	}

	return s.write(data, func(conn net.Conn) error {
		var confirm [1]byte
		if _, err := io.ReadFull(conn, confirm[:]); err != nil {
			return fmt.Errorf("%w: %w", ErrShortConfirm, err)
		}
		return nil
	})
}

// End tells the receiver that no further run follows.
func (s *Sender) End() error {
	return s.write(nil, nil)
}

func (s *Sender) write(data []byte, after func(net.Conn) error) (err error) {
	conn, err := s.dialer.Dial("tcp4", s.address)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	var header [lengthSize]byte
	binary.LittleEndian.PutUint64(header[:], uint64(len(data)))

	if _, err = conn.Write(header[:]); err != nil {
		return err
	}
	if _, err = conn.Write(data); err != nil {
		return err
	}

	if after != nil {
		err = after(conn)
	}
	return
}

// Run sends data once per run until repeater stops, then ends the session.
func (s *Sender) Run(data []byte, repeater *common.Repeater) (common.Statistics, error) {
	var stats common.Statistics
	digest := common.Digest(data)

	for run := 1; ; run++ {
		start := time.Now()
		if err := s.Send(data); err != nil {
			return stats, fmt.Errorf("run %d: %w", run, err)
		}

		result := common.Run{
			Number:  run,
			Bytes:   len(data),
			Elapsed: time.Since(start),
			Digest:  digest,
		}
		result.Log("tcp-sender")
		stats.Add(result)

		if !repeater.Again(run) {
			break
		}
	}

	if err := s.End(); err != nil {
		return stats, fmt.Errorf("could not send exit message: %w", err)
	}

	stats.Log("tcp-sender")
	return stats, nil
}
