package session

import (
	"time"

	"github.com/Pablu23/Rudp/internal/common"
)

type Options struct {
	// SegmentSize is the regular payload capacity. Both peers must use the same value.
	SegmentSize int
	// HandshakeTimeout bounds the wait for the SYN_ACK after sending a SYN.
	HandshakeTimeout time.Duration
	// EndSignalTimeout bounds RecvEndSignal.
	EndSignalTimeout time.Duration
	// AckTimeout bounds every acknowledgment wait of Send, zero blocks indefinitely.
	// An expired wait aborts the transfer; segments are never retransmitted.
	AckTimeout time.Duration
	// ReuseAddr sets SO_REUSEADDR on the endpoint.
	ReuseAddr bool
}

func NewDefaultOptions() *Options {
	return &Options{
		SegmentSize:      common.DefaultSegmentSize,
		HandshakeTimeout: 5 * time.Second,
		EndSignalTimeout: 30 * time.Second,
		AckTimeout:       0,
		ReuseAddr:        true,
	}
}

func WithSegmentSize(size int) func(*Options) {
	return func(o *Options) {
		o.SegmentSize = size
	}
}

func WithHandshakeTimeout(timeout time.Duration) func(*Options) {
	return func(o *Options) {
		o.HandshakeTimeout = timeout
	}
}

func WithEndSignalTimeout(timeout time.Duration) func(*Options) {
	return func(o *Options) {
		o.EndSignalTimeout = timeout
	}
}

func WithAckTimeout(timeout time.Duration) func(*Options) {
	return func(o *Options) {
		o.AckTimeout = timeout
	}
}
