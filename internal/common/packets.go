package common

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ControlHeader is sent on its own as a control message and embedded at the
// tail of every Segment.
type ControlHeader struct {
	Length   uint16
	Checksum uint16
	Flags    HeaderFlag
}

// Segment is one fragment of a transfer. On the wire it is laid out as the
// sequence number, the payload slot and the ControlHeader.
type Segment struct {
	Seq     uint32
	Payload []byte
	Header  ControlHeader
}

var (
	ErrShortHeader  = errors.New("datagram is not a control header")
	ErrShortSegment = errors.New("datagram is too short for a segment")
	ErrBufferSize   = errors.New("buffer too small")
)

func NewControl(flag HeaderFlag) ControlHeader {
	return ControlHeader{Flags: flag}
}

func (header ControlHeader) PutBytes(arr []byte) {
	binary.LittleEndian.PutUint16(arr[0:2], header.Length)
	binary.LittleEndian.PutUint16(arr[2:4], header.Checksum)
	arr[4] = byte(header.Flags)
}

func (header ControlHeader) ToBytes() []byte {
	arr := make([]byte, HeaderSize)
	header.PutBytes(arr)
	return arr
}

func (header ControlHeader) String() string {
	return fmt.Sprintf("Header(Length=%d, Checksum=%#04x, Flags=%v)", header.Length, header.Checksum, header.Flags)
}

func headerFromBytes(bytes []byte) ControlHeader {
	return ControlHeader{
		Length:   binary.LittleEndian.Uint16(bytes[0:2]),
		Checksum: binary.LittleEndian.Uint16(bytes[2:4]),
		Flags:    HeaderFlag(bytes[4]),
	}
}

// ControlHeaderFromBytes parses a standalone control message, bytes must be exactly one header long.
func ControlHeaderFromBytes(bytes []byte) (ControlHeader, error) {
	if len(bytes) != HeaderSize {
		return ControlHeader{}, fmt.Errorf("%w: %d bytes", ErrShortHeader, len(bytes))
	}
	return headerFromBytes(bytes), nil
}

// NewSegment wraps data as the payload of segment seq and seals it.
func NewSegment(seq uint32, data []byte) *Segment {
	seg := &Segment{
		Seq:     seq,
		Payload: data,
		Header: ControlHeader{
			Length: uint16(len(data)),
		},
	}
	seg.Seal()
	return seg
}

func (seg *Segment) data() ([]byte, bool) {
	if int(seg.Header.Length) > len(seg.Payload) {
		return nil, false
	}
	return seg.Payload[:seg.Header.Length], true
}

// Seal computes the checksum over the declared payload with the checksum field zeroed.
func (seg *Segment) Seal() {
	seg.Header.Checksum = 0
	data, _ := seg.data()
	seg.Header.Checksum = Checksum(data)
}

// Verify zeroes the checksum field, recomputes it and compares it against the
// transmitted value. The transmitted value is restored afterwards.
func (seg *Segment) Verify() bool {
	received := seg.Header.Checksum
	defer func() { seg.Header.Checksum = received }()

	data, ok := seg.data()
	if !ok {
		return false
	}

	seg.Header.Checksum = 0
	return Checksum(data) == received
}

// Data returns the declared part of the payload slot.
func (seg *Segment) Data() []byte {
	data, _ := seg.data()
	return data
}

func (seg *Segment) Size() int {
	return WireSize(len(seg.Payload))
}

func (seg *Segment) MarshalTo(arr []byte) (int, error) {
	size := seg.Size()
	if len(arr) < size {
		return 0, fmt.Errorf("%w: %d bytes for a %d byte segment", ErrBufferSize, len(arr), size)
	}

	binary.LittleEndian.PutUint32(arr[0:SeqSize], seg.Seq)
	copy(arr[SeqSize:SeqSize+len(seg.Payload)], seg.Payload)
	seg.Header.PutBytes(arr[SeqSize+len(seg.Payload) : size])

	return size, nil
}

func (seg *Segment) ToBytes() []byte {
	arr := make([]byte, seg.Size())
	_, _ = seg.MarshalTo(arr)
	return arr
}

// SegmentFromBytes parses one datagram. The returned payload aliases bytes.
func SegmentFromBytes(bytes []byte) (Segment, error) {
	if len(bytes) < SegmentExtra {
		return Segment{}, fmt.Errorf("%w: %d bytes", ErrShortSegment, len(bytes))
	}

	tail := len(bytes) - HeaderSize
	return Segment{
		Seq:     binary.LittleEndian.Uint32(bytes[0:SeqSize]),
		Payload: bytes[SeqSize:tail],
		Header:  headerFromBytes(bytes[tail:]),
	}, nil
}

func (seg Segment) String() string {
	return fmt.Sprintf("Segment(Seq=%d, Slot=%d, %v)", seg.Seq, len(seg.Payload), seg.Header)
}
