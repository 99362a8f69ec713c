//go:build linux

package stream

import (
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"
)

// congestionControl returns a net.Dialer / net.ListenConfig Control function
// selecting the TCP congestion control algorithm, see tcp(7). An empty
// algorithm keeps the system default.
func congestionControl(algorithm string) func(network, address string, c syscall.RawConn) error {
	if algorithm == "" {
		return nil
	}

	return func(_, _ string, c syscall.RawConn) error {
		var sockErr error
		err := c.Control(func(fd uintptr) {
			sockErr = unix.SetsockoptString(int(fd), unix.IPPROTO_TCP, unix.TCP_CONGESTION, algorithm)
		})
		if err != nil {
			return err
		}
		if sockErr != nil {
			return fmt.Errorf("could not set congestion control %s: %w", algorithm, sockErr)
		}
		return nil
	}
}
