package irc

import (
	"sync"
	"time"
)

// HistoryEntry records one identity a nickname was seen with.
type HistoryEntry struct {
	Nick     string
	Username string
	Hostname string
	Realname string
	Seen     time.Time
}

// NickHistory is an append-only log of past nickname identities, keyed by
// nick. Entries are appended at registration and on every nick change, and
// serve WHOWAS queries.
type NickHistory struct {
	sync.Mutex
	entries map[string][]HistoryEntry
}

// NewNickHistory creates an empty history log.
func NewNickHistory() *NickHistory {
	return &NickHistory{
		entries: make(map[string][]HistoryEntry),
	}
}

// Append records an identity under the given nick.
func (h *NickHistory) Append(nick, username, hostname, realname string) {
	h.Lock()
	defer h.Unlock()

	h.entries[nick] = append(h.entries[nick], HistoryEntry{
		Nick:     nick,
		Username: username,
		Hostname: hostname,
		Realname: realname,
		Seen:     time.Now(),
	})
}

// Lookup returns the last count entries recorded for nick, oldest first.
// A count of zero returns every entry.
func (h *NickHistory) Lookup(nick string, count int) []HistoryEntry {
	h.Lock()
	defer h.Unlock()

	entries, ok := h.entries[nick]
	if !ok {
		return nil
	}

	if count > 0 && count < len(entries) {
		entries = entries[len(entries)-count:]
	}

	result := make([]HistoryEntry, len(entries))
	copy(result, entries)
	return result
}
