package netutil

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalIPForLoopback(t *testing.T) {
	ip, err := LocalIPFor("127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", ip)
}

func TestLocalIPForReturnsUnicastIPv4(t *testing.T) {
	ip, err := LocalIPFor("192.0.2.1")
	require.NoError(t, err)
	parsed := net.ParseIP(ip)
	require.NotNil(t, parsed)
	assert.NotNil(t, parsed.To4())
	assert.False(t, parsed.IsMulticast())
}
