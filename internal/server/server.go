package server

import (
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Pablu23/Rudp/internal/common"
	"github.com/Pablu23/Rudp/internal/session"
)

// Server is the receiving side of the benchmark. It accepts one sender and
// receives runs of a fixed transfer size until the sender ends the session.
type Server struct {
	session *session.Session
	options *Options
	stats   common.Statistics
}

func New(opts ...func(*Options)) (*Server, error) {
	options := NewDefaultOptions()

	for _, opt := range opts {
		opt(options)
	}

	if options.TransferSize <= 0 {
		return nil, fmt.Errorf("transfer size %d must be positive", options.TransferSize)
	}

	s, err := session.New(session.Responder, options.Port, options.Session...)
	if err != nil {
		return nil, err
	}

	return &Server{
		session: s,
		options: options,
	}, nil
}

func (server *Server) Addr() *net.UDPAddr {
	return server.session.LocalAddr()
}

// Serve accepts a sender and receives its runs. With a fixed number of runs the
// server waits for the end signal afterwards, otherwise it receives until the
// sender ends the session.
func (server *Server) Serve() (common.Statistics, error) {
	defer func() {
		if err := server.session.Close(); err != nil {
			log.WithError(err).Error("Could not close session")
		}
	}()

	log.WithField("Address", server.Addr()).Info("Waiting for RUDP connections")

	if err := server.session.Accept(); err != nil {
		return server.stats, err
	}

	log.WithField("Peer", server.session.PeerAddr()).Info("Connection accepted, ready to receive data")

	buf := make([]byte, server.options.TransferSize)
	for run := 1; server.options.Runs == 0 || run <= server.options.Runs; run++ {
		log.WithField("Run", run).Debug("Waiting for run")

		start := time.Now()
		n, err := server.session.Receive(buf)
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return server.stats, fmt.Errorf("run %d: %w", run, err)
		}

		result := common.Run{
			Number:  run,
			Bytes:   len(buf),
			Elapsed: time.Since(start),
			Digest:  common.Digest(buf),
		}
		result.Log("receiver")
		server.stats.Add(result)

		log.WithFields(log.Fields{
			"Run":      run,
			"Datagram": n,
		}).Debug("Received datagram bytes")
	}

	if server.options.Runs > 0 {
		signal, err := server.session.RecvEndSignal()
		if err != nil {
			return server.stats, err
		}
		log.WithField("Signal", signal).Info("Sender finished")
	}

	if err := server.session.Disconnect(); err != nil {
		return server.stats, err
	}

	server.stats.Log("receiver")
	return server.stats, nil
}
