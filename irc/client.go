package irc

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"net"
	"net/textproto"
	"strings"
	"sync"
	"time"

	"github.com/horgh/irc"
)

// pingInterval is how often the per-connection pinger fires.
const pingInterval = 30 * time.Second

// Client represents a connected session. Mutable identity fields are guarded
// by the embedded lock; the socket writer has its own.
type Client struct {
	sync.RWMutex
	conn        net.Conn
	server      *Server
	nickname    string
	username    string
	realname    string
	password    string // from PASS, stored but not enforced
	ipAddr      string // raw IP literal
	hostname    string // display host: cloaked label, raw IP or vhost
	cloaked     bool
	channels    map[string]bool
	registered  bool
	quitting    bool
	operator    bool
	identified  bool
	awayMessage string
	idleSince   time.Time
	pongSeen    bool
	writer      *bufio.Writer
	writeLock   sync.Mutex
}

// prefix returns the nick!user@host source string for relayed messages.
func (c *Client) prefix() string {
	c.RLock()
	defer c.RUnlock()
	return fmt.Sprintf("%s!%s@%s", c.nickname, c.username, c.hostname)
}

func (c *Client) nick() string {
	c.RLock()
	defer c.RUnlock()
	return c.nickname
}

func (c *Client) isOperator() bool {
	c.RLock()
	defer c.RUnlock()
	return c.operator
}

func (c *Client) isRegistered() bool {
	c.RLock()
	defer c.RUnlock()
	return c.registered
}

func (c *Client) isAway() (bool, string) {
	c.RLock()
	defer c.RUnlock()
	return c.awayMessage != "", c.awayMessage
}

func (c *Client) setHost(host string, cloaked bool) {
	c.Lock()
	c.hostname = host
	c.cloaked = cloaked
	c.Unlock()
}

func (c *Client) updateIdleTime() {
	c.Lock()
	c.idleSince = time.Now()
	c.Unlock()
}

// handleConnection reads protocol lines until the peer goes away.
func (c *Client) handleConnection() {
	log.Printf("[%s] *** New client connected", c.ipAddr)

	// Use textproto for reliable line-oriented protocol handling
	textReader := textproto.NewReader(bufio.NewReader(c.conn))

	for {
		line, err := textReader.ReadLine()
		if err != nil {
			if err == io.EOF {
				c.quit("EOF")
			} else {
				log.Printf("[%s] Error reading from client: %v", c.ipAddr, err)
				c.quit("Read Error")
			}
			break
		}

		if line == "" {
			continue
		}

		// ReadLine strips the terminator the codec expects back.
		msg, err := irc.ParseMessage(line + "\r\n")
		if err != nil {
			log.Printf("[%s] Dropping malformed line: %v", c.ipAddr, err)
			continue
		}

		c.handleMessage(msg)
	}

	c.teardown()
	log.Printf("[%s] Client disconnected", c.ipAddr)
}

// pingLoop terminates the session when a PING goes unanswered for a full
// interval. Unregistered sessions are never pinged, so their flag stays set.
func (c *Client) pingLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
		case <-c.server.shutdown:
			return
		}

		c.Lock()
		if c.quitting {
			c.Unlock()
			return
		}
		if !c.pongSeen {
			c.Unlock()
			log.Printf("[%s] Client did not respond to ping", c.ipAddr)
			c.quit("Ping timeout")
			return
		}
		registered := c.registered
		if registered {
			c.pongSeen = false
		}
		c.Unlock()

		if registered {
			c.sendRaw(fmt.Sprintf("PING :%s", c.server.Name()))
		}
	}
}

// handleMessage routes one parsed message. Unregistered sessions may only
// speak the registration commands.
func (c *Client) handleMessage(msg irc.Message) {
	command := strings.ToUpper(msg.Command)
	params := msg.Params

	c.server.metrics.MessagesReceived.Inc()

	if !c.isRegistered() {
		switch command {
		case "CAP":
			// IRCv3 negotiation is not supported; ignored.
		case "PASS":
			c.handlePass(params)
		case "NICK":
			c.handleNick(params)
		case "USER":
			c.handleUser(params)
		case "QUIT":
			c.handleQuit(params)
		default:
			c.sendNumeric(ERR_NOTREGISTERED, ":You have not registered")
		}
		return
	}

	switch command {
	case "CAP":
		// Ignored.
	case "PASS":
		c.handlePass(params)
	case "NICK":
		c.handleNick(params)
	case "USER":
		c.handleUser(params)
	case "OPER":
		c.handleOper(params)
	case "QUIT":
		c.handleQuit(params)
	case "JOIN":
		c.handleJoin(params)
	case "PART":
		c.handlePart(params)
	case "TOPIC":
		c.handleTopic(params)
	case "NAMES":
		c.handleNames(params)
	case "LIST":
		c.handleList(params)
	case "INVITE":
		c.handleInvite(params)
	case "KICK":
		c.handleKick(params)
	case "PRIVMSG":
		c.handleChat("PRIVMSG", params)
	case "NOTICE":
		c.handleChat("NOTICE", params)
	case "MOTD":
		c.sendMotd()
	case "VERSION":
		c.handleVersion(params)
	case "STATS":
		c.handleStats(params)
	case "TIME":
		c.handleTime(params)
	case "REHASH":
		c.handleRehash(params)
	case "DIE", "RESTART":
		c.sendNumeric(ERR_NOPRIVILEGES, ":Permission Denied- You're not an IRC operator")
	case "SUMMON":
		c.sendNumeric(ERR_SUMMONDISABLED, ":SUMMON has been disabled")
	case "USERS":
		c.sendNumeric(ERR_USERSDISABLED, ":USERS has been disabled")
	case "WHO":
		c.handleWho(params)
	case "WHOIS":
		c.handleWhois(params)
	case "WHOWAS":
		c.handleWhowas(params)
	case "MODE":
		c.handleMode(params)
	case "PING":
		c.handlePing(params)
	case "PONG":
		c.handlePong(params)
	case "AWAY":
		c.handleAway(params)
	case "USERHOST":
		c.handleUserhost(params)
	case "ISON":
		c.handleIson(params)
	default:
		c.sendNumeric(ERR_UNKNOWNCOMMAND, fmt.Sprintf("%s :Unknown command", command))
	}
}

// handlePass handles a PASS command
func (c *Client) handlePass(params []string) {
	if len(params) < 1 {
		c.sendNumeric(ERR_NEEDMOREPARAMS, "PASS :Not enough parameters")
		return
	}

	c.Lock()
	// PASS must precede NICK and registration.
	tooLate := c.nickname != "" || c.registered
	if !tooLate {
		c.password = params[0]
	}
	c.Unlock()

	if tooLate {
		c.sendNumeric(ERR_ALREADYREGISTRED, ":Unauthorized command (already registered)")
	}
}

// handleNick handles a NICK command
func (c *Client) handleNick(params []string) {
	if len(params) < 1 || params[0] == "" {
		c.sendNumeric(ERR_NONICKNAMEGIVEN, ":No nickname given")
		return
	}

	newNick := params[0]

	if !isValidNickname(newNick) {
		c.sendNumeric(ERR_ERRONEUSNICKNAME, fmt.Sprintf("%s :Erroneous nickname", newNick))
		return
	}

	c.server.Lock()
	if _, exists := c.server.clients[newNick]; exists {
		c.server.Unlock()
		c.sendNumeric(ERR_NICKNAMEINUSE, fmt.Sprintf("%s :Nickname is already in use", newNick))
		return
	}

	c.Lock()
	oldNick := c.nickname
	c.nickname = newNick
	wasOperator := c.operator
	username := c.username
	hostname := c.hostname
	realname := c.realname
	channelNames := make([]string, 0, len(c.channels))
	for name := range c.channels {
		channelNames = append(channelNames, name)
	}
	c.Unlock()

	if oldNick == "" {
		// First NICK promotes the session out of the pending list.
		delete(c.server.pending, c)
	} else {
		delete(c.server.clients, oldNick)
		if wasOperator {
			delete(c.server.opers, oldNick)
			c.server.opers[newNick] = true
		}
	}
	c.server.clients[newNick] = c
	c.server.Unlock()

	if oldNick != "" {
		// The prior identity goes to nick history before the rename
		// becomes visible.
		c.server.history.Append(oldNick, username, hostname, realname)

		nickMsg := fmt.Sprintf(":%s!%s@%s NICK :%s", oldNick, username, hostname, newNick)

		notify := map[*Client]bool{c: true}
		for _, name := range channelNames {
			channel, ok := c.server.getChannel(name)
			if !ok {
				continue
			}
			channel.Lock()
			channel.renameParticipant(oldNick, newNick)
			channel.Unlock()
			for _, member := range channel.snapshotClients() {
				notify[member] = true
			}
		}

		for member := range notify {
			member.sendRaw(nickMsg)
		}
		return
	}

	c.RLock()
	complete := !c.registered && c.username != ""
	c.RUnlock()

	if complete {
		c.completeRegistration()
	}
}

// handleUser handles a USER command
func (c *Client) handleUser(params []string) {
	if c.isRegistered() {
		c.sendNumeric(ERR_ALREADYREGISTRED, ":Unauthorized command (already registered)")
		return
	}

	if len(params) < 4 {
		c.sendNumeric(ERR_NEEDMOREPARAMS, "USER :Not enough parameters")
		return
	}

	c.Lock()
	c.username = params[0]
	c.realname = params[3]
	hasNick := c.nickname != ""
	c.Unlock()

	if hasNick {
		c.completeRegistration()
	}
}

// completeRegistration promotes the session to the registered state and
// sends the welcome burst.
func (c *Client) completeRegistration() {
	c.Lock()
	if c.registered {
		c.Unlock()
		return
	}
	c.registered = true
	nick := c.nickname
	username := c.username
	hostname := c.hostname
	realname := c.realname
	c.Unlock()

	serverName := c.server.Name()

	c.sendNumeric(RPL_WELCOME, fmt.Sprintf(":Welcome to %s %s!%s@%s", serverName, nick, username, hostname))
	c.sendNumeric(RPL_YOURHOST, fmt.Sprintf(":Your host is %s running version %s-%s", serverName, serverSoftware, serverVersion))
	c.sendNumeric(RPL_CREATED, fmt.Sprintf(":This server was created %s", c.server.created.UTC().Format("2006-01-02 15:04:05")))

	c.sendMotd()

	c.updateIdleTime()
	c.server.history.Append(nick, username, hostname, realname)
	c.server.metrics.RegisteredClients.Inc()

	log.Printf("[%s] Client registered as %s", c.ipAddr, nick)
}

// handleOper handles an OPER command
func (c *Client) handleOper(params []string) {
	if c.isOperator() {
		return
	}

	if len(params) < 2 {
		c.sendNumeric(ERR_NEEDMOREPARAMS, "OPER :Not enough parameters")
		return
	}

	if !c.server.checkOperCredentials(params[0], params[1]) {
		c.sendNumeric(ERR_PASSWDMISMATCH, ":Password incorrect")
		return
	}

	c.Lock()
	c.operator = true
	nick := c.nickname
	c.Unlock()

	c.server.Lock()
	c.server.opers[nick] = true
	c.server.Unlock()

	c.sendNumeric(RPL_YOUREOPER, ":You are now an IRC operator")
	c.sendMessage("MODE", nick, "+o")
}

// handleQuit handles a QUIT command
func (c *Client) handleQuit(params []string) {
	reason := c.nick()
	if len(params) > 0 {
		reason = params[0]
	}
	c.quit(reason)
}

// handlePing handles a PING command
func (c *Client) handlePing(params []string) {
	if len(params) < 1 {
		c.sendNumeric(ERR_NOORIGIN, ":No origin specified")
		return
	}

	if len(params) > 1 && params[1] != c.server.Name() {
		c.sendNumeric(ERR_NOSUCHSERVER, fmt.Sprintf("%s :No such server", params[1]))
		return
	}

	c.sendRaw(fmt.Sprintf(":%s PONG %s :%s", c.server.Name(), c.server.Name(), params[0]))
}

// handlePong handles a PONG command. Any PONG counts as liveness, whatever
// its payload.
func (c *Client) handlePong(params []string) {
	c.Lock()
	c.pongSeen = true
	c.Unlock()
}

// handleAway handles an AWAY command
func (c *Client) handleAway(params []string) {
	if len(params) > 0 && params[0] != "" {
		c.Lock()
		c.awayMessage = params[0]
		c.Unlock()
		c.sendNumeric(RPL_NOWAWAY, ":You have been marked as being away")
	} else {
		c.Lock()
		c.awayMessage = ""
		c.Unlock()
		c.sendNumeric(RPL_UNAWAY, ":You are no longer marked as being away")
	}
}

// sendMotd emits the MOTD sequence, or ERR_NOMOTD when no file was loaded.
func (c *Client) sendMotd() {
	s := c.server

	s.motdLock.RLock()
	motd := s.motd
	s.motdLock.RUnlock()

	if motd == nil {
		c.sendNumeric(ERR_NOMOTD, ":MOTD File is missing")
		return
	}

	c.sendNumeric(RPL_MOTDSTART, fmt.Sprintf(":- %s Message of the day - ", s.Name()))
	for _, line := range motd {
		c.sendNumeric(RPL_MOTD, fmt.Sprintf(":- %s", line))
	}
	c.sendNumeric(RPL_ENDOFMOTD, ":End of MOTD command")
}

// quit broadcasts the QUIT to every channel co-member and shuts the writer;
// the reader then unblocks and runs teardown.
func (c *Client) quit(reason string) {
	c.Lock()
	if c.quitting {
		c.Unlock()
		return
	}
	c.quitting = true
	registered := c.registered
	c.Unlock()

	if registered {
		c.broadcastQuit(reason)
	}

	c.conn.Close()
}

// broadcastQuit notifies every nick sharing at least one channel with this
// session.
func (c *Client) broadcastQuit(reason string) {
	quitMsg := fmt.Sprintf(":%s QUIT :%s", c.prefix(), reason)

	notifySet := make(map[*Client]bool)

	c.RLock()
	channelNames := make([]string, 0, len(c.channels))
	for name := range c.channels {
		channelNames = append(channelNames, name)
	}
	c.RUnlock()

	for _, name := range channelNames {
		channel, ok := c.server.getChannel(name)
		if !ok {
			continue
		}
		for _, member := range channel.snapshotClients() {
			if member != c {
				notifySet[member] = true
			}
		}
	}

	for member := range notifySet {
		member.sendRaw(quitMsg)
	}
}

// teardown removes the session from every channel and both registries. It
// runs exactly once, after the reader loop exits.
func (c *Client) teardown() {
	c.Lock()
	if !c.quitting {
		// Reader died without an explicit QUIT; the broadcast already
		// happened in quit() otherwise.
		c.quitting = true
	}
	nick := c.nickname
	channelNames := make([]string, 0, len(c.channels))
	for name := range c.channels {
		channelNames = append(channelNames, name)
	}
	c.channels = make(map[string]bool)
	registered := c.registered
	c.registered = false
	c.Unlock()

	for _, name := range channelNames {
		channel, ok := c.server.getChannel(name)
		if !ok {
			continue
		}
		channel.Lock()
		channel.removeParticipant(nick)
		channel.Unlock()
		c.server.removeChannelIfEmpty(channel)
	}

	c.server.Lock()
	delete(c.server.pending, c)
	if nick != "" {
		delete(c.server.clients, nick)
		delete(c.server.opers, nick)
	}
	c.server.Unlock()

	if registered {
		c.server.metrics.RegisteredClients.Dec()
	}

	c.conn.Close()
}

// sendRaw sends a raw protocol line to the client. Write failures are logged
// and never abort the caller's fan-out.
func (c *Client) sendRaw(message string) {
	c.writeLock.Lock()
	defer c.writeLock.Unlock()

	if _, err := c.writer.WriteString(message + "\r\n"); err != nil {
		log.Printf("[%s] Failed to write message: %v", c.ipAddr, err)
		return
	}
	if err := c.writer.Flush(); err != nil {
		log.Printf("[%s] Failed to flush message: %v", c.ipAddr, err)
		return
	}

	c.server.metrics.MessagesSent.Inc()
}

// sendMessage sends a server-originated IRC message to the client.
func (c *Client) sendMessage(command string, params ...string) {
	var sb strings.Builder

	sb.WriteString(":")
	sb.WriteString(c.server.Name())
	sb.WriteString(" ")
	sb.WriteString(command)

	for i, param := range params {
		sb.WriteString(" ")

		// Last parameter gets a colon if it contains spaces
		if i == len(params)-1 && (strings.Contains(param, " ") || param == "") {
			sb.WriteString(":")
		}

		sb.WriteString(param)
	}

	c.sendRaw(sb.String())
}

// sendNumeric sends a numeric reply to the client.
func (c *Client) sendNumeric(numeric int, message string) {
	nick := c.nick()
	if nick == "" {
		nick = "*"
	}

	c.sendRaw(fmt.Sprintf(":%s %03d %s %s", c.server.Name(), numeric, nick, message))
}

// isValidNickname checks if a nickname is valid: 1 to 24 characters from
// [A-Za-z0-9_-].
func isValidNickname(nick string) bool {
	if len(nick) < 1 || len(nick) > 24 {
		return false
	}

	for _, ch := range nick {
		if !((ch >= 'A' && ch <= 'Z') ||
			(ch >= 'a' && ch <= 'z') ||
			(ch >= '0' && ch <= '9') ||
			ch == '_' || ch == '-') {
			return false
		}
	}

	return true
}
