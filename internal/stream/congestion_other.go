//go:build !linux

package stream

import (
	"fmt"
	"syscall"
)

func congestionControl(algorithm string) func(network, address string, c syscall.RawConn) error {
	if algorithm == "" {
		return nil
	}

	return func(_, _ string, _ syscall.RawConn) error {
		return fmt.Errorf("congestion control %s is only supported on linux", algorithm)
	}
}
