package session

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/Pablu23/Rudp/internal/common"
)

// Send transfers buf to the peer, one segment at a time. Every segment must be
// acknowledged before the next one is sent. Any failure aborts the transfer,
// nothing is retransmitted.
func (s *Session) Send(buf []byte) error {
	if err := s.connected(); err != nil {
		return err
	}
	if len(buf) == 0 {
		return ErrEmptyBuffer
	}

	plan, err := common.Decompose(len(buf), s.options.SegmentSize)
	if err != nil {
		return err
	}

	logger := log.WithFields(log.Fields{
		"Peer":     s.peer,
		"Size":     plan.Size,
		"Segments": plan.Count,
	})
	logger.Debug("Sending transfer")

	for s.sendSeq = 1; s.sendSeq <= plan.Terminal(); s.sendSeq++ {
		seq := s.sendSeq
		offset := plan.Offset(seq)
		seg := common.NewSegment(seq, buf[offset:offset+plan.LengthOf(seq)])

		if err := s.sendSegment(seg); err != nil {
			logger.WithField("Seq", seq).WithError(err).Error("Transfer aborted")
			return &SegmentError{Seq: seq, Err: err}
		}
	}

	logger.Debug("Transfer acknowledged")
	return nil
}

// sendSegment transmits seg as one datagram and blocks for its acknowledgment.
func (s *Session) sendSegment(seg *common.Segment) error {
	n, err := seg.MarshalTo(s.sendBuf)
	if err != nil {
		return err
	}

	if _, err := s.conn.WriteToUDP(s.sendBuf[:n], s.peer); err != nil {
		return fmt.Errorf("could not write segment: %w", err)
	}

	log.WithFields(log.Fields{
		"Seq":    seg.Seq,
		"Length": seg.Header.Length,
	}).Trace("Sent segment")

	header, _, err := s.readControl(s.options.AckTimeout)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNotAcknowledged, err)
	}
	if !header.Flags.Has(common.Ack) {
		return fmt.Errorf("%w: received %v", ErrNotAcknowledged, header.Flags)
	}

	return nil
}
