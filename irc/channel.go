package irc

import (
	"strconv"
	"strings"
	"sync"
)

// Channel represents an IRC channel. The participant role maps and the mode
// record are guarded by the embedded lock; callers must hold it as noted on
// each method.
type Channel struct {
	sync.RWMutex
	name       string
	topic      string
	topicSetBy string
	topicSetAt int64
	clients    map[string]*Client

	// Boolean channel modes (m, i, n, s, t) as a letter set.
	modes string
	key   string
	limit int

	// Role bits per nick. Each tier implies every lower tier.
	owners    map[string]bool
	admins    map[string]bool
	operators map[string]bool
	halfops   map[string]bool
	voices    map[string]bool

	invites    map[string]bool
	bans       map[string]bool
	exceptions map[string]bool
}

func newChannel(name string) *Channel {
	return &Channel{
		name:       name,
		clients:    make(map[string]*Client),
		owners:     make(map[string]bool),
		admins:     make(map[string]bool),
		operators:  make(map[string]bool),
		halfops:    make(map[string]bool),
		voices:     make(map[string]bool),
		invites:    make(map[string]bool),
		bans:       make(map[string]bool),
		exceptions: make(map[string]bool),
	}
}

// hasMode reports whether a boolean channel mode letter is set.
// Callers must hold the channel lock.
func (ch *Channel) hasMode(mode rune) bool {
	return strings.ContainsRune(ch.modes, mode)
}

// setMode sets or clears a boolean channel mode letter, reporting whether the
// polarity actually changed. Callers must hold the channel lock for writing.
func (ch *Channel) setMode(mode rune, on bool) bool {
	if on == ch.hasMode(mode) {
		return false
	}
	if on {
		ch.modes += string(mode)
	} else {
		ch.modes = strings.ReplaceAll(ch.modes, string(mode), "")
	}
	return true
}

// Role tests are inclusive: every tier counts as all of the tiers below it.
// Callers must hold the channel lock.

func (ch *Channel) isOwner(nick string) bool {
	return ch.owners[nick]
}

func (ch *Channel) isAdmin(nick string) bool {
	return ch.admins[nick] || ch.isOwner(nick)
}

func (ch *Channel) isOperator(nick string) bool {
	return ch.operators[nick] || ch.isAdmin(nick)
}

func (ch *Channel) isHalfop(nick string) bool {
	return ch.halfops[nick] || ch.isOperator(nick)
}

func (ch *Channel) isVoiced(nick string) bool {
	return ch.voices[nick] || ch.isHalfop(nick)
}

// roleRank maps a participant to its highest tier; higher outranks lower.
// Callers must hold the channel lock.
func (ch *Channel) roleRank(nick string) int {
	switch {
	case ch.owners[nick]:
		return 5
	case ch.admins[nick]:
		return 4
	case ch.operators[nick]:
		return 3
	case ch.halfops[nick]:
		return 2
	case ch.voices[nick]:
		return 1
	}
	return 0
}

// rolePrefix returns the NAMES prefix for the highest role a participant
// holds. Callers must hold the channel lock.
func (ch *Channel) rolePrefix(nick string) string {
	switch {
	case ch.owners[nick]:
		return "~"
	case ch.admins[nick]:
		return "&"
	case ch.operators[nick]:
		return "@"
	case ch.halfops[nick]:
		return "%"
	case ch.voices[nick]:
		return "+"
	}
	return ""
}

// roleMap returns the role bit map for a channel user mode letter.
// Callers must hold the channel lock.
func (ch *Channel) roleMap(mode rune) map[string]bool {
	switch mode {
	case 'q':
		return ch.owners
	case 'a':
		return ch.admins
	case 'o':
		return ch.operators
	case 'h':
		return ch.halfops
	case 'v':
		return ch.voices
	}
	return nil
}

// isBanned reports whether a user prefix matches a ban mask with no
// exception mask covering it. Callers must hold the channel lock.
func (ch *Channel) isBanned(prefix string) bool {
	for mask := range ch.bans {
		if MatchMask(mask, prefix) {
			return !ch.isExcepted(prefix)
		}
	}
	return false
}

// isExcepted reports whether a user prefix matches a ban-exception mask.
// Callers must hold the channel lock.
func (ch *Channel) isExcepted(prefix string) bool {
	for mask := range ch.exceptions {
		if MatchMask(mask, prefix) {
			return true
		}
	}
	return false
}

// modesDescription renders the channel mode record as "+<letters>", with the
// key and limit values appended when withParams is set. Callers must hold the
// channel lock.
func (ch *Channel) modesDescription(withParams bool) string {
	desc := "+" + ch.modes

	if ch.key != "" {
		desc += "k"
	}
	if ch.limit != 0 {
		desc += "l"
	}

	if withParams {
		params := []string{}
		if ch.key != "" {
			params = append(params, ch.key)
		}
		if ch.limit != 0 {
			params = append(params, strconv.Itoa(ch.limit))
		}
		if len(params) > 0 {
			desc += " " + strings.Join(params, " ")
		}
	}

	return desc
}

// setTopic updates the topic record. Callers must hold the channel lock for
// writing.
func (ch *Channel) setTopic(text, setBy string, setAt int64) {
	ch.topic = text
	ch.topicSetBy = setBy
	ch.topicSetAt = setAt
}

// namesList renders the participant list with role prefixes. Callers must
// hold the channel lock.
func (ch *Channel) namesList() string {
	names := make([]string, 0, len(ch.clients))
	for nick := range ch.clients {
		names = append(names, ch.rolePrefix(nick)+nick)
	}
	return strings.Join(names, " ")
}

// renameParticipant rewrites every membership and role entry from oldNick to
// newNick. Callers must hold the channel lock for writing.
func (ch *Channel) renameParticipant(oldNick, newNick string) {
	if client, ok := ch.clients[oldNick]; ok {
		delete(ch.clients, oldNick)
		ch.clients[newNick] = client
	}

	for _, roles := range []map[string]bool{ch.owners, ch.admins, ch.operators, ch.halfops, ch.voices} {
		if roles[oldNick] {
			delete(roles, oldNick)
			roles[newNick] = true
		}
	}

	if ch.invites[oldNick] {
		delete(ch.invites, oldNick)
		ch.invites[newNick] = true
	}
}

// removeParticipant drops a nick from the membership and every role map.
// Callers must hold the channel lock for writing.
func (ch *Channel) removeParticipant(nick string) {
	delete(ch.clients, nick)
	delete(ch.owners, nick)
	delete(ch.admins, nick)
	delete(ch.operators, nick)
	delete(ch.halfops, nick)
	delete(ch.voices, nick)
}

// snapshotClients returns the current participants; used to fan out a
// broadcast after releasing the channel lock.
func (ch *Channel) snapshotClients() []*Client {
	ch.RLock()
	defer ch.RUnlock()

	clients := make([]*Client, 0, len(ch.clients))
	for _, client := range ch.clients {
		clients = append(clients, client)
	}
	return clients
}
