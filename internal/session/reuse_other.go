//go:build !unix

package session

import "syscall"

func reuseAddr(network, address string, c syscall.RawConn) error {
	return nil
}
