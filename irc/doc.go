// Package irc implements an IRC daemon: client sessions, channels with
// role-based moderation, operator commands and in-memory services.
//
// A Server accepts TCP connections and runs two goroutines per session: a
// reader that parses and dispatches protocol messages, and a pinger that
// terminates sessions that stop answering PING. Channels track five role
// tiers (owner, admin, operator, halfop, voice) plus ban and ban-exception
// masks, and moderation modes gate who may speak.
//
// Two pseudo-users are reachable by PRIVMSG: NickServ registers and verifies
// nickname ownership, HostServ manages virtual hosts. Neither persists state
// across restarts.
package irc
