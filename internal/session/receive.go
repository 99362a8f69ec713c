package session

import (
	"fmt"
	"io"

	"github.com/kelindar/bitmap"
	log "github.com/sirupsen/logrus"

	"github.com/Pablu23/Rudp/internal/common"
)

// Receive reassembles one transfer of exactly len(out) bytes into out and
// returns the number of datagram bytes received, headers included.
//
// Segments must arrive in unbroken order starting at sequence 1. A gap, a
// duplicate, a checksum mismatch or a segment that would overflow out aborts the
// transfer. If the peer sends an END signal before the first segment, Receive
// returns io.EOF.
func (s *Session) Receive(out []byte) (int, error) {
	if err := s.connected(); err != nil {
		return 0, err
	}
	if len(out) == 0 {
		return 0, ErrEmptyBuffer
	}

	plan, err := common.Decompose(len(out), s.options.SegmentSize)
	if err != nil {
		return 0, err
	}

	var accepted bitmap.Bitmap

	total := 0
	received := 0

	for s.expectedSeq = 1; received < len(out); s.expectedSeq++ {
		n, from, err := s.read(0)
		if err != nil {
			return total, &SegmentError{Seq: s.expectedSeq, Err: fmt.Errorf("could not read segment: %w", err)}
		}
		total += n
		datagram := s.recvBuf[:n]

		if received == 0 && isEndSignal(datagram) {
			log.WithField("Peer", from).Info("Peer ended the session")
			return 0, io.EOF
		}

		seg, err := s.checkSegment(datagram, plan, received, len(out), &accepted)
		if err != nil {
			log.WithFields(log.Fields{
				"Expected": s.expectedSeq,
				"Received": received,
			}).WithError(err).Warn("Transfer aborted")
			return total, &SegmentError{Seq: s.expectedSeq, Err: err}
		}

		received += copy(out[received:], seg.Data())

		if err := s.writeControl(common.Ack, from); err != nil {
			return total, &SegmentError{Seq: seg.Seq, Err: fmt.Errorf("could not acknowledge: %w", err)}
		}
		accepted.Set(seg.Seq)

		log.WithFields(log.Fields{
			"Seq":    seg.Seq,
			"Length": seg.Header.Length,
		}).Trace("Acknowledged segment")
	}

	log.WithFields(log.Fields{
		"Peer":     s.peer,
		"Size":     received,
		"Segments": accepted.Count(),
	}).Debug("Received transfer")

	return total, nil
}

// checkSegment validates one datagram before anything is copied to the output buffer.
func (s *Session) checkSegment(datagram []byte, plan common.Plan, offset, capacity int, accepted *bitmap.Bitmap) (common.Segment, error) {
	if len(datagram) > common.WireSize(s.options.SegmentSize) {
		return common.Segment{}, fmt.Errorf("%w: %d byte datagram", ErrMalformedSegment, len(datagram))
	}

	seg, err := common.SegmentFromBytes(datagram)
	if err != nil {
		return common.Segment{}, fmt.Errorf("%w: %v", ErrMalformedSegment, err)
	}

	if seg.Seq != s.expectedSeq {
		if accepted.Contains(seg.Seq) {
			return seg, fmt.Errorf("%w: %d", ErrDuplicateSegment, seg.Seq)
		}
		return seg, fmt.Errorf("%w: got %d", ErrSequenceMismatch, seg.Seq)
	}

	length := int(seg.Header.Length)
	if length > len(seg.Payload) {
		return seg, fmt.Errorf("%w: length %d exceeds %d byte slot", ErrMalformedSegment, length, len(seg.Payload))
	}

	if !seg.Verify() {
		return seg, fmt.Errorf("%w: %#04x", ErrChecksumMismatch, seg.Header.Checksum)
	}

	if offset+length > capacity {
		return seg, fmt.Errorf("%w: %d bytes at offset %d, capacity %d", ErrOverflow, length, offset, capacity)
	}

	if want := plan.LengthOf(seg.Seq); length != want || len(seg.Payload) != want {
		return seg, fmt.Errorf("%w: %d bytes in a %d byte slot, expected %d", ErrMalformedSegment, length, len(seg.Payload), want)
	}

	return seg, nil
}

func isEndSignal(datagram []byte) bool {
	header, err := common.ControlHeaderFromBytes(datagram)
	return err == nil && header.Flags.Has(common.End)
}
