// Package netutil answers which local interface address a given remote
// host would see.
package netutil

import (
	"fmt"
	"net"
)

// LocalIPFor returns the local IPv4 address the OS routing table selects
// for reaching host. No packets are sent; a connected UDP socket is enough
// to make the kernel pick a source address.
func LocalIPFor(host string) (string, error) {
	conn, err := net.Dial("udp4", net.JoinHostPort(host, "80"))
	if err != nil {
		return "", fmt.Errorf("netutil: route to %s: %w", host, err)
	}
	defer conn.Close()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return "", fmt.Errorf("netutil: unexpected local address %v", conn.LocalAddr())
	}
	return addr.IP.String(), nil
}
