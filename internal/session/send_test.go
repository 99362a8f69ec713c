package session

import (
	"bytes"
	"errors"
	"net"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/Pablu23/Rudp/internal/common"
)

func sendAsync(s *Session, data []byte) <-chan error {
	ch := make(chan error, 1)
	go func() { ch <- s.Send(data) }()
	return ch
}

func waitSend(t *testing.T, ch <-chan error) error {
	t.Helper()

	select {
	case err := <-ch:
		return err
	case <-time.After(testTimeout):
		t.Fatal("timeout")
	}
	return nil
}

func readSegment(t *testing.T, conn *net.UDPConn) common.Segment {
	t.Helper()

	raw, _ := readDatagram(t, conn)
	seg, err := common.SegmentFromBytes(raw)
	if err != nil {
		t.Fatal(err)
	}
	if !seg.Verify() {
		t.Fatalf("checksum mismatch on %v", seg)
	}
	return seg
}

func TestSendWireFormat(t *testing.T) {
	initiator, conn, addr := fakeResponder(t)

	ch := sendAsync(initiator, []byte("uff"))

	raw, _ := readDatagram(t, conn)
	expected := []byte{1, 0, 0, 0, 'u', 'f', 'f', 3, 0, 0x99, 0x24, 0}
	if diff := cmp.Diff(expected, raw); diff != "" {
		t.Error(diff)
	}
	writeControlTo(t, conn, common.Ack, addr)

	if err := waitSend(t, ch); err != nil {
		t.Fatal(err)
	}
}

func TestSendStopAndWait(t *testing.T) {
	initiator, conn, addr := fakeResponder(t)

	data := payload(3000, 2)
	ch := sendAsync(initiator, data)

	var received []byte
	for _, want := range []struct {
		seq    uint32
		length int
	}{{1, 1024}, {2, 1024}, {3, 952}} {
		seg := readSegment(t, conn)
		if seg.Seq != want.seq || int(seg.Header.Length) != want.length || len(seg.Payload) != want.length {
			t.Fatalf("expected segment %d with %d bytes, got %v", want.seq, want.length, seg)
		}
		received = append(received, seg.Data()...)

		// Nothing else may be in flight until the segment is acknowledged.
		expectSilence(t, conn, 50*time.Millisecond)
		writeControlTo(t, conn, common.Ack, addr)
	}

	if err := waitSend(t, ch); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, received) {
		t.Error("segments do not add up to the sent data")
	}
}

func TestSendResetsSequence(t *testing.T) {
	initiator, conn, addr := fakeResponder(t)

	for i := 0; i < 2; i++ {
		ch := sendAsync(initiator, payload(2000, byte(i)))

		for _, seq := range []uint32{1, 2} {
			if seg := readSegment(t, conn); seg.Seq != seq {
				t.Fatalf("transfer %d: expected segment %d, got %d", i, seq, seg.Seq)
			}
			writeControlTo(t, conn, common.Ack, addr)
		}

		if err := waitSend(t, ch); err != nil {
			t.Fatal(err)
		}
	}
}

func TestSendNonAckReply(t *testing.T) {
	initiator, conn, addr := fakeResponder(t)

	ch := sendAsync(initiator, payload(3000, 1))

	readSegment(t, conn)
	writeControlTo(t, conn, common.Syn, addr)

	err := waitSend(t, ch)
	if !errors.Is(err, ErrNotAcknowledged) {
		t.Fatalf("expected %v, got %v", ErrNotAcknowledged, err)
	}
	var segErr *SegmentError
	if !errors.As(err, &segErr) || segErr.Seq != 1 {
		t.Errorf("expected failure at segment 1, got %v", err)
	}

	expectSilence(t, conn, 100*time.Millisecond)
}

func TestSendGarbageReply(t *testing.T) {
	initiator, conn, addr := fakeResponder(t)

	ch := sendAsync(initiator, payload(10, 1))

	readSegment(t, conn)
	if _, err := conn.WriteToUDP([]byte{4, 0, 0}, addr); err != nil {
		t.Fatal(err)
	}

	if err := waitSend(t, ch); !errors.Is(err, ErrNotAcknowledged) || !errors.Is(err, common.ErrShortHeader) {
		t.Errorf("expected %v, got %v", ErrNotAcknowledged, err)
	}
}

func TestSendAckWithExtraFlags(t *testing.T) {
	initiator, conn, addr := fakeResponder(t)

	ch := sendAsync(initiator, payload(10, 1))

	readSegment(t, conn)
	writeControlTo(t, conn, common.Ack|common.End, addr)

	if err := waitSend(t, ch); err != nil {
		t.Fatal(err)
	}
}

func TestSendAckTimeout(t *testing.T) {
	initiator, conn, _ := fakeResponder(t, WithAckTimeout(100*time.Millisecond))

	ch := sendAsync(initiator, payload(3000, 1))

	readSegment(t, conn)

	err := waitSend(t, ch)
	if !errors.Is(err, ErrNotAcknowledged) || !errors.Is(err, os.ErrDeadlineExceeded) {
		t.Fatalf("expected acknowledgment timeout, got %v", err)
	}

	// The transfer is aborted, the session itself stays usable.
	if initiator.State() != Connected {
		t.Errorf("expected Connected, got %v", initiator.State())
	}
	expectSilence(t, conn, 100*time.Millisecond)
}
