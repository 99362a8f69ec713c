package session

import (
	"net"
	"testing"
	"time"

	"github.com/Pablu23/Rudp/internal/common"
)

const testTimeout = 5 * time.Second

func newSession(t *testing.T, role Role, opts ...func(*Options)) *Session {
	t.Helper()

	s, err := New(role, 0, opts...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// connectedPair returns an Initiator and a Responder after a completed handshake.
func connectedPair(t *testing.T, opts ...func(*Options)) (initiator, responder *Session) {
	t.Helper()

	responder = newSession(t, Responder, opts...)
	initiator = newSession(t, Initiator, opts...)

	acceptErr := make(chan error, 1)
	go func() { acceptErr <- responder.Accept() }()

	if err := initiator.Connect("127.0.0.1", responder.LocalAddr().Port); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-acceptErr:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(testTimeout):
		t.Fatal("timeout")
	}

	return
}

// fakeInitiator completes a handshake by hand against a Responder and returns
// the raw socket, so tests can put arbitrary datagrams on the wire.
func fakeInitiator(t *testing.T, opts ...func(*Options)) (*Session, *net.UDPConn) {
	t.Helper()

	responder := newSession(t, Responder, opts...)

	conn, err := net.DialUDP("udp4", nil, &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: responder.LocalAddr().Port})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	acceptErr := make(chan error, 1)
	go func() { acceptErr <- responder.Accept() }()

	writeControl(t, conn, common.Syn)
	if header := readControl(t, conn); header.Flags != common.SynAck {
		t.Fatalf("expected SYN_ACK, got %v", header)
	}
	writeControl(t, conn, common.Ack)

	select {
	case err := <-acceptErr:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(testTimeout):
		t.Fatal("timeout")
	}

	return responder, conn
}

// fakeResponder answers an Initiator's handshake by hand.
func fakeResponder(t *testing.T, opts ...func(*Options)) (*Session, *net.UDPConn, *net.UDPAddr) {
	t.Helper()

	initiator := newSession(t, Initiator, opts...)

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	connectErr := make(chan error, 1)
	go func() { connectErr <- initiator.Connect("127.0.0.1", conn.LocalAddr().(*net.UDPAddr).Port) }()

	header, addr := readControlFrom(t, conn)
	if header.Flags != common.Syn {
		t.Fatalf("expected SYN, got %v", header)
	}
	writeControlTo(t, conn, common.SynAck, addr)
	if header, _ := readControlFrom(t, conn); header.Flags != common.Ack {
		t.Fatalf("expected ACK, got %v", header)
	}

	select {
	case err := <-connectErr:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(testTimeout):
		t.Fatal("timeout")
	}

	return initiator, conn, addr
}

func writeControl(t *testing.T, conn *net.UDPConn, flag common.HeaderFlag) {
	t.Helper()

	if _, err := conn.Write(common.NewControl(flag).ToBytes()); err != nil {
		t.Fatal(err)
	}
}

func writeControlTo(t *testing.T, conn *net.UDPConn, flag common.HeaderFlag, addr *net.UDPAddr) {
	t.Helper()

	if _, err := conn.WriteToUDP(common.NewControl(flag).ToBytes(), addr); err != nil {
		t.Fatal(err)
	}
}

func readControl(t *testing.T, conn *net.UDPConn) common.ControlHeader {
	t.Helper()

	header, _ := readControlFrom(t, conn)
	return header
}

func readControlFrom(t *testing.T, conn *net.UDPConn) (common.ControlHeader, *net.UDPAddr) {
	t.Helper()

	n, addr := readDatagram(t, conn)
	header, err := common.ControlHeaderFromBytes(n)
	if err != nil {
		t.Fatal(err)
	}
	return header, addr
}

func readDatagram(t *testing.T, conn *net.UDPConn) ([]byte, *net.UDPAddr) {
	t.Helper()

	buf := make([]byte, common.MaxSegmentSize)
	_ = conn.SetReadDeadline(time.Now().Add(testTimeout))
	n, addr, err := conn.ReadFromUDP(buf)
	if err != nil {
		t.Fatal(err)
	}
	return buf[:n], addr
}

// expectSilence fails if a datagram arrives within d.
func expectSilence(t *testing.T, conn *net.UDPConn, d time.Duration) {
	t.Helper()

	buf := make([]byte, common.MaxSegmentSize)
	_ = conn.SetReadDeadline(time.Now().Add(d))
	if n, _, err := conn.ReadFromUDP(buf); err == nil {
		t.Fatalf("unexpected %d byte datagram", n)
	}
}

func writeSegment(t *testing.T, conn *net.UDPConn, seg *common.Segment) {
	t.Helper()

	if _, err := conn.Write(seg.ToBytes()); err != nil {
		t.Fatal(err)
	}
}

type receiveResult struct {
	n   int
	err error
}

func receiveAsync(s *Session, out []byte) <-chan receiveResult {
	ch := make(chan receiveResult, 1)
	go func() {
		n, err := s.Receive(out)
		ch <- receiveResult{n, err}
	}()
	return ch
}

func waitReceive(t *testing.T, ch <-chan receiveResult) receiveResult {
	t.Helper()

	select {
	case res := <-ch:
		return res
	case <-time.After(testTimeout):
		t.Fatal("timeout")
	}
	return receiveResult{}
}

func payload(size int, seed byte) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i*31) ^ seed
	}
	return data
}
