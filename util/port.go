package util

import (
	"fmt"
	"net"
)

// GetFreeTcpPort finds an ephemeral TCP port, used to re-read the actual
// listen port after binding a control socket with a configured port of 0.
func GetFreeTcpPort() (uint, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, fmt.Errorf("dns failed: %v", err)
	}

	listener, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer func(listener *net.TCPListener) {
		_ = listener.Close()
	}(listener)

	port := (uint)(listener.Addr().(*net.TCPAddr).Port)
	if port == 0 {
		return 0, fmt.Errorf("could not resolve a port (got 0)")
	}

	return port, nil
}
