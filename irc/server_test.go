package irc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRemoveChannelIfEmpty(t *testing.T) {
	s := NewServer(testConfig())

	channel, created := s.getOrCreateChannel("#keep")
	assert.True(t, created)

	channel.Lock()
	channel.clients["alice"] = &Client{server: s}
	channel.Unlock()

	// A channel that gained a member between the caller's removal and the
	// registry sweep must survive.
	s.removeChannelIfEmpty(channel)
	_, ok := s.getChannel("#keep")
	assert.True(t, ok)

	channel.Lock()
	delete(channel.clients, "alice")
	channel.Unlock()

	s.removeChannelIfEmpty(channel)
	_, ok = s.getChannel("#keep")
	assert.False(t, ok)
}
