package client

import (
	"crypto/rand"
	"fmt"
	"io"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Pablu23/Rudp/internal/common"
	"github.com/Pablu23/Rudp/internal/config"
	"github.com/Pablu23/Rudp/internal/session"
)

type Options struct {
	Address      string
	Port         int
	Runs         int
	TransferSize int
	Session      []func(*session.Options)
	Input        io.Reader
	Output       io.Writer
}

func NewDefaultOptions() *Options {
	return &Options{
		Address:      "127.0.0.1",
		Port:         9000,
		TransferSize: config.DefaultTransferSize,
		Input:        os.Stdin,
		Output:       os.Stdout,
	}
}

// WithConfig takes the receiver address, runs, transfer size and session options from conf.
func WithConfig(conf *config.Config) func(*Options) {
	return func(o *Options) {
		o.Address = conf.Sender.Address
		o.Port = conf.Sender.Port
		o.Runs = conf.Sender.Runs
		o.TransferSize = conf.Protocol.TransferSize
		o.Session = conf.SessionOptions()
	}
}

// RandomPayload fills a buffer of size bytes from crypto/rand.
func RandomPayload(size int) ([]byte, error) {
	data := make([]byte, size)
	if _, err := rand.Read(data); err != nil {
		return nil, err
	}
	return data, nil
}

// SendFile connects to the receiver and sends the same random payload once per
// run. After the last run it sends the end signal and disconnects.
func SendFile(opts ...func(*Options)) (common.Statistics, error) {
	options := NewDefaultOptions()

	for _, opt := range opts {
		opt(options)
	}

	var stats common.Statistics

	data, err := RandomPayload(options.TransferSize)
	if err != nil {
		return stats, err
	}
	digest := common.Digest(data)

	s, err := session.New(session.Initiator, 0, options.Session...)
	if err != nil {
		return stats, err
	}
	defer func() {
		if err := s.Close(); err != nil {
			log.WithError(err).Error("Could not close session")
		}
	}()

	if err := s.Connect(options.Address, options.Port); err != nil {
		return stats, err
	}

	repeater := common.NewRepeater(options.Runs, options.Input, options.Output)
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
		result.Log("sender")
		stats.Add(result)

		if !repeater.Again(run) {
			break
		}
	}

	if err := s.SendEndSignal(); err != nil {
		log.WithError(err).Error("Failed to send end signal")
	}
	log.WithField("Runs", len(stats.Runs)).Info("Sender is done sending")

	if err := s.Disconnect(); err != nil {
		return stats, err
	}

	stats.Log("sender")
	return stats, nil
}
