package irc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNickHistoryLookup(t *testing.T) {
	h := NewNickHistory()

	assert.Nil(t, h.Lookup("ghost", 0))

	h.Append("alice", "alice", "host.one", "Alice One")
	h.Append("alice", "alice", "host.two", "Alice Two")
	h.Append("alice", "alice", "host.three", "Alice Three")

	all := h.Lookup("alice", 0)
	require.Len(t, all, 3)
	assert.Equal(t, "host.one", all[0].Hostname)
	assert.Equal(t, "host.three", all[2].Hostname)

	last := h.Lookup("alice", 2)
	require.Len(t, last, 2)
	assert.Equal(t, "host.two", last[0].Hostname)
	assert.Equal(t, "host.three", last[1].Hostname)

	// A count beyond the entry count returns everything
	assert.Len(t, h.Lookup("alice", 10), 3)
}

func TestNickHistoryIsolation(t *testing.T) {
	h := NewNickHistory()
	h.Append("bob", "bob", "host", "Bob")

	entries := h.Lookup("bob", 0)
	require.Len(t, entries, 1)

	// Mutating the returned slice must not affect the log
	entries[0].Hostname = "tampered"
	assert.Equal(t, "host", h.Lookup("bob", 0)[0].Hostname)
}
