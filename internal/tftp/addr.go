package tftp

import (
	"net"
	"strconv"
)

// splitHostPort parses "host" or "host:port", filling in defaultPort when
// no port is given.
func splitHostPort(addr string, defaultPort int) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, defaultPort, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, err
	}
	return host, port, nil
}
