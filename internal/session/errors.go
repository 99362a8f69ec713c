package session

import (
	"errors"
	"fmt"
)

var (
	ErrNotConnected     = errors.New("session is not connected")
	ErrAlreadyConnected = errors.New("session is already connected")
	ErrWrongRole        = errors.New("operation not permitted for this role")
	ErrClosed           = errors.New("session is closed")
	ErrEmptyBuffer      = errors.New("buffer is empty")

	ErrSequenceMismatch = errors.New("unexpected sequence number")
	ErrDuplicateSegment = errors.New("duplicate segment")
	ErrChecksumMismatch = errors.New("checksum mismatch")
	ErrOverflow         = errors.New("segment exceeds output buffer")
	ErrMalformedSegment = errors.New("malformed segment")
	ErrNotAcknowledged  = errors.New("segment was not acknowledged")
)

// HandshakeError reports a failed connection establishment. The session stays not connected.
type HandshakeError struct {
	Step string
	Err  error
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("handshake failed at %s: %v", e.Step, e.Err)
}

func (e *HandshakeError) Unwrap() error {
	return e.Err
}

// SegmentError aborts a transfer at segment Seq.
type SegmentError struct {
	Seq uint32
	Err error
}

func (e *SegmentError) Error() string {
	return fmt.Sprintf("segment %d: %v", e.Seq, e.Err)
}

func (e *SegmentError) Unwrap() error {
	return e.Err
}
