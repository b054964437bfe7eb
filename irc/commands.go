package irc

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// handleVersion handles a VERSION command
func (c *Client) handleVersion(params []string) {
	if len(params) > 0 && params[0] != c.server.Name() {
		c.sendNumeric(ERR_NOSUCHSERVER, fmt.Sprintf("%s :No such server", params[0]))
		return
	}

	c.sendNumeric(RPL_VERSION, fmt.Sprintf("%s-%s %s :", serverSoftware, serverVersion, c.server.Name()))
}

// handleStats handles a STATS command
func (c *Client) handleStats(params []string) {
	if len(params) < 1 || params[0] == "" {
		c.sendNumeric(ERR_NEEDMOREPARAMS, "STATS :Not enough parameters")
		return
	}

	query := params[0]

	if query == "u" {
		up := c.server.uptime()
		days := up / 86400
		hours := (up % 86400) / 3600
		minutes := (up % 3600) / 60
		seconds := up % 60
		c.sendNumeric(RPL_STATSUPTIME, fmt.Sprintf(":Server Up %d days, %02d:%02d:%02d", days, hours, minutes, seconds))
	}

	c.sendNumeric(RPL_ENDOFSTATS, fmt.Sprintf("%s :End of /STATS report", query))
}

// handleTime handles a TIME command
func (c *Client) handleTime(params []string) {
	now := time.Now().UTC().Format("2006-01-02 15:04:05")
	c.sendNumeric(RPL_TIME, fmt.Sprintf("%s :%s UTC", c.server.Name(), now))
}

// handleRehash handles a REHASH command
func (c *Client) handleRehash(params []string) {
	if !c.isOperator() {
		c.sendNumeric(ERR_NOPRIVILEGES, ":Permission Denied- You're not an IRC operator")
		return
	}

	c.sendNumeric(RPL_REHASHING, fmt.Sprintf("%s :Rehashing", c.server.config.Server.MOTDPath))
	c.server.rehash()
}

// handleIson handles an ISON command
func (c *Client) handleIson(params []string) {
	if len(params) < 1 {
		c.sendNumeric(ERR_NEEDMOREPARAMS, "ISON :Not enough parameters")
		return
	}

	present := make([]string, 0, len(params))
	for _, nick := range params {
		for _, candidate := range strings.Fields(nick) {
			if c.server.isNickMapped(candidate) {
				present = append(present, candidate)
			}
		}
	}

	c.sendNumeric(RPL_ISON, ":"+strings.Join(present, " "))
}

// handleUserhost handles a USERHOST command
func (c *Client) handleUserhost(params []string) {
	if len(params) < 1 {
		c.sendNumeric(ERR_NEEDMOREPARAMS, "USERHOST :Not enough parameters")
		return
	}

	if len(params) > 5 {
		params = params[:5]
	}

	replies := make([]string, 0, len(params))
	for _, nick := range params {
		target, ok := c.server.getClient(nick)
		if !ok {
			continue
		}

		target.RLock()
		operFlag := ""
		if target.operator {
			operFlag = "*"
		}
		awayFlag := "-"
		if target.awayMessage != "" {
			awayFlag = "+"
		}
		entry := fmt.Sprintf("%s%s=%s%s@%s", target.nickname, operFlag, awayFlag, target.nickname, target.hostname)
		target.RUnlock()

		replies = append(replies, entry)
	}

	c.sendNumeric(RPL_USERHOST, ":"+strings.Join(replies, " "))
}

// handleWho handles a WHO command
func (c *Client) handleWho(params []string) {
	if len(params) < 1 || params[0] == "" {
		c.sendWhoEntry("*", c)
		c.sendNumeric(RPL_ENDOFWHO, "* :End of /WHO list.")
		return
	}

	target := params[0]
	opersOnly := len(params) > 1 && params[1] == "o"

	if strings.HasPrefix(target, "#") {
		if channel, ok := c.server.getChannel(target); ok {
			// The "o" filter restricts the listing to channel operators.
			channel.RLock()
			name := channel.name
			members := make([]*Client, 0, len(channel.clients))
			for memberNick, member := range channel.clients {
				if opersOnly && !channel.isOperator(memberNick) {
					continue
				}
				members = append(members, member)
			}
			channel.RUnlock()
			for _, member := range members {
				c.sendWhoEntry(name, member)
			}
		}
	} else if match, ok := c.server.getClient(target); ok {
		if !opersOnly || match.isOperator() {
			c.sendWhoEntry("*", match)
		}
	}

	c.sendNumeric(RPL_ENDOFWHO, fmt.Sprintf("%s :End of /WHO list.", target))
}

// sendWhoEntry emits one RPL_WHOREPLY line for a user, with the H/G presence
// flag, the operator star and the channel status prefix.
func (c *Client) sendWhoEntry(channelName string, target *Client) {
	target.RLock()
	nick := target.nickname
	username := target.username
	hostname := target.hostname
	realname := target.realname
	away := target.awayMessage != ""
	oper := target.operator
	target.RUnlock()

	flags := "H"
	if away {
		flags = "G"
	}
	if oper {
		flags += "*"
	}

	if channelName != "*" {
		if channel, ok := c.server.getChannel(channelName); ok {
			channel.RLock()
			if channel.isOperator(nick) {
				flags += "@"
			} else if channel.isVoiced(nick) {
				flags += "+"
			}
			channel.RUnlock()
		}
	}

	c.sendNumeric(RPL_WHOREPLY, fmt.Sprintf("%s %s %s %s %s %s :0 %s",
		channelName, username, hostname, c.server.Name(), nick, flags, realname))
}

// handleWhois handles a WHOIS command
func (c *Client) handleWhois(params []string) {
	if len(params) < 1 || params[0] == "" {
		c.sendNumeric(ERR_NONICKNAMEGIVEN, ":No nickname given")
		return
	}

	nick := params[0]

	target, ok := c.server.getClient(nick)
	if !ok {
		c.sendNumeric(ERR_NOSUCHNICK, fmt.Sprintf("%s :No such nick/channel", nick))
		c.sendNumeric(RPL_ENDOFWHOIS, fmt.Sprintf("%s :End of /WHOIS list.", nick))
		return
	}

	target.RLock()
	username := target.username
	hostname := target.hostname
	realname := target.realname
	identified := target.identified
	oper := target.operator
	awayMessage := target.awayMessage
	idleSince := target.idleSince
	channelNames := make([]string, 0, len(target.channels))
	for name := range target.channels {
		channelNames = append(channelNames, name)
	}
	target.RUnlock()

	c.sendNumeric(RPL_WHOISUSER, fmt.Sprintf("%s %s %s * :%s", nick, username, hostname, realname))

	if identified {
		c.sendNumeric(RPL_WHOISREGNICK, fmt.Sprintf("%s :has identified for this nick", nick))
	}

	c.sendNumeric(RPL_WHOISSERVER, fmt.Sprintf("%s %s :%s-%s", nick, c.server.Name(), serverSoftware, serverVersion))

	if oper {
		c.sendNumeric(RPL_WHOISOPERATOR, fmt.Sprintf("%s :is an IRC operator", nick))
	}

	if awayMessage != "" {
		c.sendNumeric(RPL_AWAY, fmt.Sprintf("%s :%s", nick, awayMessage))
	}

	// The channel list is privileged information.
	if c.isOperator() && len(channelNames) > 0 {
		prefixed := make([]string, 0, len(channelNames))
		for _, name := range channelNames {
			channel, ok := c.server.getChannel(name)
			if !ok {
				continue
			}
			channel.RLock()
			prefixed = append(prefixed, channel.rolePrefix(nick)+channel.name)
			channel.RUnlock()
		}
		c.sendNumeric(RPL_WHOISCHANNELS, fmt.Sprintf("%s :%s", nick, strings.Join(prefixed, " ")))
	}

	idle := int64(time.Since(idleSince).Seconds())
	c.sendNumeric(RPL_WHOISIDLE, fmt.Sprintf("%s %d 0 :seconds idle, signon time", nick, idle))

	c.sendNumeric(RPL_ENDOFWHOIS, fmt.Sprintf("%s :End of /WHOIS list.", nick))
}

// handleWhowas handles a WHOWAS command
func (c *Client) handleWhowas(params []string) {
	if len(params) < 1 || params[0] == "" {
		c.sendNumeric(ERR_NONICKNAMEGIVEN, ":No nickname given")
		return
	}

	nick := params[0]

	count := 0
	if len(params) > 1 {
		if parsed, err := strconv.Atoi(params[1]); err == nil && parsed > 0 {
			count = parsed
		}
	}

	entries := c.server.history.Lookup(nick, count)
	if len(entries) == 0 {
		c.sendNumeric(ERR_WASNOSUCHNICK, fmt.Sprintf("%s :There was no such nickname", nick))
		c.sendNumeric(RPL_ENDOFWHOWAS, fmt.Sprintf("%s :End of WHOWAS", nick))
		return
	}

	for _, entry := range entries {
		c.sendNumeric(RPL_WHOWASUSER, fmt.Sprintf("%s %s %s * :%s", entry.Nick, entry.Username, entry.Hostname, entry.Realname))
		c.sendNumeric(RPL_WHOISSERVER, fmt.Sprintf("%s %s :%s", entry.Nick, c.server.Name(), entry.Seen.UTC().Format("2006-01-02 15:04:05")))
	}

	c.sendNumeric(RPL_ENDOFWHOWAS, fmt.Sprintf("%s :End of WHOWAS", nick))
}

// handleMode dispatches MODE between channel and user targets.
func (c *Client) handleMode(params []string) {
	if len(params) < 1 {
		c.sendNumeric(ERR_NEEDMOREPARAMS, "MODE :Not enough parameters")
		return
	}

	if strings.HasPrefix(params[0], "#") {
		c.handleChannelMode(params)
		return
	}

	c.handleUserMode(params)
}

// handleUserMode processes MODE for a user target. Only the client's own
// modes may be inspected or changed.
func (c *Client) handleUserMode(params []string) {
	target := params[0]

	if target != c.nick() {
		if c.server.isNickMapped(target) {
			c.sendNumeric(ERR_USERSDONTMATCH, ":Cant change mode for other users")
		} else {
			c.sendNumeric(ERR_NOSUCHNICK, fmt.Sprintf("%s :No such nick/channel", target))
		}
		return
	}

	if len(params) == 1 {
		c.sendNumeric(RPL_UMODEIS, c.userModes())
		return
	}

	adding := true
	var applied strings.Builder
	lastSign := rune(0)

	record := func(mode rune) {
		sign := '-'
		if adding {
			sign = '+'
		}
		if sign != lastSign {
			applied.WriteRune(sign)
			lastSign = sign
		}
		applied.WriteRune(mode)
	}

	for _, mode := range params[1] {
		switch mode {
		case '+':
			adding = true
		case '-':
			adding = false

		case 'o', 'O':
			// Operator status is only ever dropped here; it is granted
			// through OPER.
			if adding {
				continue
			}
			c.Lock()
			wasOper := c.operator
			c.operator = false
			nick := c.nickname
			c.Unlock()
			if wasOper {
				c.server.Lock()
				delete(c.server.opers, nick)
				c.server.Unlock()
				record(mode)
			}

		case 'x':
			c.Lock()
			if adding && !c.cloaked {
				c.hostname = CloakAddress(c.ipAddr)
				c.cloaked = true
				record(mode)
			} else if !adding && c.cloaked {
				c.hostname = c.ipAddr
				c.cloaked = false
				record(mode)
			}
			c.Unlock()

		case 'a':
			// Away status is driven by AWAY, never by MODE.

		default:
			c.sendNumeric(ERR_UMODEUNKNOWNFLAG, fmt.Sprintf("%c :Unknown MODE flag", mode))
		}
	}

	if applied.Len() > 0 {
		c.sendMessage("MODE", c.nick(), applied.String())
	}
}

// userModes renders the client's user mode record.
func (c *Client) userModes() string {
	c.RLock()
	defer c.RUnlock()

	modes := "+"
	if c.operator {
		modes += "o"
	}
	if c.awayMessage != "" {
		modes += "a"
	}
	if c.cloaked {
		modes += "x"
	}
	return modes
}
