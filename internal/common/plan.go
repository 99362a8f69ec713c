package common

import (
	"errors"
	"fmt"
)

// Plan describes how a transfer of Size bytes is split into segments.
// Sequence numbers run from 1 to Count, the segment with sequence Count is
// the terminal segment and carries TerminalSize bytes, every other segment
// carries exactly SegmentSize bytes.
type Plan struct {
	Size         int
	SegmentSize  int
	Count        int
	TerminalSize int
}

var ErrEmptyTransfer = errors.New("transfer size must be positive")

func Decompose(size int, segmentSize int) (Plan, error) {
	if size <= 0 {
		return Plan{}, ErrEmptyTransfer
	}
	if segmentSize <= 0 || segmentSize > MaxSegmentSize {
		return Plan{}, fmt.Errorf("segment size %d out of range 1..%d", segmentSize, MaxSegmentSize)
	}

	count := (size + segmentSize - 1) / segmentSize
	return Plan{
		Size:         size,
		SegmentSize:  segmentSize,
		Count:        count,
		TerminalSize: size - (count-1)*segmentSize,
	}, nil
}

// Terminal returns the sequence number of the terminal segment.
func (p Plan) Terminal() uint32 {
	return uint32(p.Count)
}

// LengthOf returns the payload length planned for seq, or 0 if seq is not part of the plan.
func (p Plan) LengthOf(seq uint32) int {
	switch {
	case seq == 0 || seq > p.Terminal():
		return 0
	case seq == p.Terminal():
		return p.TerminalSize
	default:
		return p.SegmentSize
	}
}

// Offset returns the position of seq's payload within the transferred buffer.
func (p Plan) Offset(seq uint32) int {
	if seq == 0 {
		return 0
	}
	return int(seq-1) * p.SegmentSize
}
