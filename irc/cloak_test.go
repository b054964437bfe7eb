package irc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloakAddressIPv4(t *testing.T) {
	cloaked := CloakAddress("192.168.1.42")

	chunks := strings.Split(cloaked, ".")
	require.Len(t, chunks, 4)

	assert.Equal(t, "IP", chunks[3])
	assert.NotContains(t, cloaked, "192")
	assert.NotContains(t, cloaked, "42")

	for _, chunk := range chunks[:3] {
		assert.Len(t, chunk, 8)
	}

	// Cloaking is deterministic
	assert.Equal(t, cloaked, CloakAddress("192.168.1.42"))

	// Same prefix, same cloaked prefix
	other := CloakAddress("192.168.1.7")
	assert.Equal(t, chunks[:3], strings.Split(other, ".")[:3])

	// Different address, different cloak
	assert.NotEqual(t, cloaked, CloakAddress("10.0.0.1"))
}

func TestCloakAddressIPv6(t *testing.T) {
	cloaked := CloakAddress("2001:db8:0:1:2:3:4:5")

	chunks := strings.Split(cloaked, ":")
	require.Len(t, chunks, 8)

	assert.Equal(t, "IPv6", chunks[7])
	assert.NotContains(t, cloaked, "db8")

	assert.Equal(t, cloaked, CloakAddress("2001:db8:0:1:2:3:4:5"))
}

func TestCloakAddressIPv6Compressed(t *testing.T) {
	cloaked := CloakAddress("::1")

	// Empty groups survive as separators
	assert.True(t, strings.HasPrefix(cloaked, "::"))
	assert.True(t, strings.HasSuffix(cloaked, "IPv6"))
}

func TestCloakAddressMalformed(t *testing.T) {
	// Values that are not dotted quads pass through unchanged
	assert.Equal(t, "localhost", CloakAddress("localhost"))
	assert.Equal(t, "1.2.3", CloakAddress("1.2.3"))
}
