package server

import (
	"github.com/Pablu23/Rudp/internal/config"
	"github.com/Pablu23/Rudp/internal/session"
)

type Options struct {
	Port         int
	Runs         int
	TransferSize int
	Session      []func(*session.Options)
}

func NewDefaultOptions() *Options {
	return &Options{
		Port:         9000,
		Runs:         0,
		TransferSize: config.DefaultTransferSize,
	}
}

// WithConfig takes port, runs, transfer size and session options from conf.
func WithConfig(conf *config.Config) func(*Options) {
	return func(o *Options) {
		o.Port = conf.Receiver.Port
		o.Runs = conf.Receiver.Runs
		o.TransferSize = conf.Protocol.TransferSize
		o.Session = conf.SessionOptions()
	}
}
