package common

import "strings"

// DefaultSegmentSize is the regular payload capacity of a segment.
const DefaultSegmentSize = 1024

// MaxSegmentSize is bounded by the 16 bit length field of the ControlHeader.
const MaxSegmentSize = 1<<16 - 1

const (
	HeaderSize   int = 2 + 2 + 1
	SeqSize      int = 4
	SegmentExtra     = SeqSize + HeaderSize
)

// WireSize returns the datagram size of a segment carrying a payload slot of capacity bytes.
func WireSize(capacity int) int {
	return SegmentExtra + capacity
}

type HeaderFlag uint8

const (
	Syn    HeaderFlag = 1 << iota
	SynAck HeaderFlag = 1 << iota
	Ack    HeaderFlag = 1 << iota
	End    HeaderFlag = 1 << iota
)

// Has reports whether every bit of f is set.
func (flag HeaderFlag) Has(f HeaderFlag) bool {
	return flag&f == f
}

func (flag HeaderFlag) String() string {
	if flag == 0 {
		return "NONE"
	}

	var names []string
	for _, f := range []struct {
		flag HeaderFlag
		name string
	}{{Syn, "SYN"}, {SynAck, "SYN_ACK"}, {Ack, "ACK"}, {End, "END"}} {
		if flag.Has(f.flag) {
			names = append(names, f.name)
			flag &^= f.flag
		}
	}
	if flag != 0 {
		names = append(names, "INVALID")
	}
	return strings.Join(names, "|")
}
