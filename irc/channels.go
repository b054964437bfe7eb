package irc

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"
)

// handleJoin handles a JOIN command
func (c *Client) handleJoin(params []string) {
	if len(params) < 1 {
		c.sendNumeric(ERR_NEEDMOREPARAMS, "JOIN :Not enough parameters")
		return
	}

	// JOIN 0 parts every channel
	if params[0] == "0" {
		c.RLock()
		channelNames := make([]string, 0, len(c.channels))
		for name := range c.channels {
			channelNames = append(channelNames, name)
		}
		c.RUnlock()

		for _, name := range channelNames {
			c.partChannel(name, "Leaving")
		}
		return
	}

	targets := strings.Split(params[0], ",")

	var keys []string
	if len(params) > 1 {
		keys = strings.Split(params[1], ",")
	}

	for i, target := range targets {
		if target == "" {
			continue
		}
		key := ""
		if i < len(keys) {
			key = keys[i]
		}
		c.joinChannel(target, key)
	}
}

// joinChannel admits the client to one channel, enforcing the admission
// checks in order: limit, key, invite-only, bans.
func (c *Client) joinChannel(name, key string) {
	if !strings.HasPrefix(name, "#") {
		c.sendNumeric(ERR_NOSUCHCHANNEL, fmt.Sprintf("%s :No such channel", name))
		return
	}

	nick := c.nick()
	prefix := c.prefix()
	oper := c.isOperator()

	channel, created := c.server.getOrCreateChannel(name)

	channel.Lock()

	if _, already := channel.clients[nick]; already {
		channel.Unlock()
		return
	}

	if !oper {
		if channel.limit != 0 && len(channel.clients) >= channel.limit {
			channel.Unlock()
			c.sendNumeric(ERR_CHANNELISFULL, fmt.Sprintf("%s :Cannot join channel (+l)", channel.name))
			return
		}
		if channel.key != "" && channel.key != key {
			channel.Unlock()
			c.sendNumeric(ERR_BADCHANNELKEY, fmt.Sprintf("%s :Cannot join channel (+k)", channel.name))
			return
		}
		if channel.hasMode('i') && !channel.invites[nick] && !channel.isExcepted(prefix) {
			channel.Unlock()
			c.sendNumeric(ERR_INVITEONLYCHAN, fmt.Sprintf("%s :Cannot join channel (+i)", channel.name))
			return
		}
		if channel.isBanned(prefix) {
			channel.Unlock()
			c.sendNumeric(ERR_BANNEDFROMCHAN, fmt.Sprintf("%s :Cannot join channel (+b)", channel.name))
			return
		}
	}

	channel.clients[nick] = c
	delete(channel.invites, nick)
	if created {
		channel.operators[nick] = true
	}

	channelName := channel.name
	topic := channel.topic
	topicSetBy := channel.topicSetBy
	topicSetAt := channel.topicSetAt

	channel.Unlock()

	c.Lock()
	c.channels[strings.ToLower(channelName)] = true
	c.Unlock()

	log.Printf("[%s] %s joined %s", c.ipAddr, nick, channelName)

	joinMsg := fmt.Sprintf(":%s JOIN %s", prefix, channelName)
	for _, member := range channel.snapshotClients() {
		member.sendRaw(joinMsg)
	}

	if topic != "" {
		c.sendNumeric(RPL_TOPIC, fmt.Sprintf("%s :%s", channelName, topic))
		c.sendNumeric(RPL_TOPICSET, fmt.Sprintf("%s %s %d", channelName, topicSetBy, topicSetAt))
	} else {
		c.sendNumeric(RPL_NOTOPIC, fmt.Sprintf("%s :No topic is set", channelName))
	}

	c.sendChannelNames(channel)
}

// sendChannelNames emits the RPL_NAMREPLY/RPL_ENDOFNAMES pair for a channel.
func (c *Client) sendChannelNames(channel *Channel) {
	channel.RLock()
	name := channel.name
	names := channel.namesList()
	channel.RUnlock()

	c.sendNumeric(RPL_NAMREPLY, fmt.Sprintf("= %s :%s", name, names))
	c.sendNumeric(RPL_ENDOFNAMES, fmt.Sprintf("%s :End of /NAMES list.", name))
}

// handlePart handles a PART command
func (c *Client) handlePart(params []string) {
	if len(params) < 1 {
		c.sendNumeric(ERR_NEEDMOREPARAMS, "PART :Not enough parameters")
		return
	}

	reason := "Leaving"
	if len(params) > 1 && params[1] != "" {
		reason = params[1]
	}

	for _, target := range strings.Split(params[0], ",") {
		if target == "" {
			continue
		}
		c.partChannel(target, reason)
	}
}

func (c *Client) partChannel(name, reason string) {
	channel, ok := c.server.getChannel(name)
	if !ok {
		c.sendNumeric(ERR_NOSUCHCHANNEL, fmt.Sprintf("%s :No such channel", name))
		return
	}

	nick := c.nick()

	channel.Lock()
	if _, member := channel.clients[nick]; !member {
		channel.Unlock()
		c.sendNumeric(ERR_NOTONCHANNEL, fmt.Sprintf("%s :You're not on that channel", channel.name))
		return
	}
	channelName := channel.name
	channel.Unlock()

	partMsg := fmt.Sprintf(":%s PART %s :%s", c.prefix(), channelName, reason)
	for _, member := range channel.snapshotClients() {
		member.sendRaw(partMsg)
	}

	channel.Lock()
	channel.removeParticipant(nick)
	channel.Unlock()

	c.Lock()
	delete(c.channels, strings.ToLower(channelName))
	c.Unlock()

	c.server.removeChannelIfEmpty(channel)
}

// handleTopic handles a TOPIC command
func (c *Client) handleTopic(params []string) {
	if len(params) < 1 {
		c.sendNumeric(ERR_NEEDMOREPARAMS, "TOPIC :Not enough parameters")
		return
	}

	channel, ok := c.server.getChannel(params[0])
	if !ok {
		c.sendNumeric(ERR_NOSUCHCHANNEL, fmt.Sprintf("%s :No such channel", params[0]))
		return
	}

	nick := c.nick()

	// Reading the topic requires no membership.
	if len(params) == 1 {
		channel.RLock()
		name := channel.name
		topic := channel.topic
		setBy := channel.topicSetBy
		setAt := channel.topicSetAt
		channel.RUnlock()

		if topic == "" {
			c.sendNumeric(RPL_NOTOPIC, fmt.Sprintf("%s :No topic is set", name))
			return
		}
		c.sendNumeric(RPL_TOPIC, fmt.Sprintf("%s :%s", name, topic))
		c.sendNumeric(RPL_TOPICSET, fmt.Sprintf("%s %s %d", name, setBy, setAt))
		return
	}

	channel.Lock()
	if _, member := channel.clients[nick]; !member {
		channel.Unlock()
		c.sendNumeric(ERR_NOTONCHANNEL, fmt.Sprintf("%s :You're not on that channel", channel.name))
		return
	}
	if channel.hasMode('t') && !channel.isHalfop(nick) && !c.isOperator() {
		channel.Unlock()
		c.sendNumeric(ERR_CHANOPRIVSNEEDED, fmt.Sprintf("%s :You're not channel operator", channel.name))
		return
	}

	channel.setTopic(params[1], nick, time.Now().Unix())
	channelName := channel.name
	channel.Unlock()

	topicMsg := fmt.Sprintf(":%s TOPIC %s :%s", c.prefix(), channelName, params[1])
	for _, member := range channel.snapshotClients() {
		member.sendRaw(topicMsg)
	}
}

// handleNames handles a NAMES command
func (c *Client) handleNames(params []string) {
	if len(params) < 1 {
		c.sendNumeric(RPL_ENDOFNAMES, "* :End of /NAMES list.")
		return
	}

	if strings.Contains(params[0], ",") {
		c.sendNumeric(ERR_TOOMANYTARGETS, fmt.Sprintf("%s :Too many targets", params[0]))
		return
	}

	if len(params) > 1 && params[1] != c.server.Name() {
		c.sendNumeric(ERR_NOSUCHSERVER, fmt.Sprintf("%s :No such server", params[1]))
		return
	}

	channel, ok := c.server.getChannel(params[0])
	if !ok {
		c.sendNumeric(RPL_ENDOFNAMES, fmt.Sprintf("%s :End of /NAMES list.", params[0]))
		return
	}

	nick := c.nick()

	channel.RLock()
	secret := channel.hasMode('s')
	_, member := channel.clients[nick]
	channel.RUnlock()

	if secret && !member && !c.isOperator() {
		c.sendNumeric(RPL_ENDOFNAMES, fmt.Sprintf("%s :End of /NAMES list.", params[0]))
		return
	}

	c.sendChannelNames(channel)
}

// handleList handles a LIST command
func (c *Client) handleList(params []string) {
	nick := c.nick()
	oper := c.isOperator()

	c.server.RLock()
	channels := make([]*Channel, 0, len(c.server.channels))
	for _, channel := range c.server.channels {
		channels = append(channels, channel)
	}
	c.server.RUnlock()

	var filter map[string]bool
	if len(params) > 0 && params[0] != "" {
		filter = make(map[string]bool)
		for _, name := range strings.Split(params[0], ",") {
			filter[strings.ToLower(name)] = true
		}
	}

	c.sendNumeric(RPL_LISTSTART, "Channel :Users  Name")

	for _, channel := range channels {
		channel.RLock()
		name := channel.name
		_, member := channel.clients[nick]
		secret := channel.hasMode('s')
		count := len(channel.clients)
		desc := channel.modesDescription(member || oper)
		topic := channel.topic
		channel.RUnlock()

		if filter != nil && !filter[strings.ToLower(name)] {
			continue
		}
		if secret && !member && !oper {
			continue
		}

		c.sendNumeric(RPL_LIST, fmt.Sprintf("%s %d :%s %s", name, count, desc, topic))
	}

	c.sendNumeric(RPL_LISTEND, ":End of /LIST")
}

// handleInvite handles an INVITE command
func (c *Client) handleInvite(params []string) {
	if len(params) < 2 {
		c.sendNumeric(ERR_NEEDMOREPARAMS, "INVITE :Not enough parameters")
		return
	}

	targetNick := params[0]
	channelName := params[1]

	channel, ok := c.server.getChannel(channelName)
	if !ok {
		c.sendNumeric(ERR_NOSUCHCHANNEL, fmt.Sprintf("%s :No such channel", channelName))
		return
	}

	nick := c.nick()

	channel.RLock()
	name := channel.name
	_, member := channel.clients[nick]
	channel.RUnlock()

	if !member {
		c.sendNumeric(ERR_NOTONCHANNEL, fmt.Sprintf("%s :You're not on that channel", name))
		return
	}

	target, ok := c.server.getClient(targetNick)
	if !ok {
		c.sendNumeric(ERR_NOSUCHNICK, fmt.Sprintf("%s :No such nick/channel", targetNick))
		return
	}

	channel.Lock()
	if _, already := channel.clients[targetNick]; already {
		channel.Unlock()
		c.sendNumeric(ERR_USERONCHANNEL, fmt.Sprintf("%s %s :is already on channel", targetNick, name))
		return
	}
	if !channel.isOperator(nick) && !c.isOperator() {
		channel.Unlock()
		c.sendNumeric(ERR_CHANOPRIVSNEEDED, fmt.Sprintf("%s :You're not channel operator", name))
		return
	}
	channel.invites[targetNick] = true
	channel.Unlock()

	// The channel learns who was invited.
	notice := fmt.Sprintf(":%s NOTICE @%s :%s invited %s into the channel.", c.server.Name(), name, nick, targetNick)
	for _, member := range channel.snapshotClients() {
		member.sendRaw(notice)
	}

	c.sendNumeric(RPL_INVITING, fmt.Sprintf("%s %s", targetNick, name))
	target.sendRaw(fmt.Sprintf(":%s INVITE %s :%s", c.prefix(), targetNick, name))

	if away, msg := target.isAway(); away {
		c.sendNumeric(RPL_AWAY, fmt.Sprintf("%s :%s", targetNick, msg))
	}
}

// handleKick handles a KICK command. One channel with several users kicks
// each of them; equal-length channel and user lists kick pairwise; any other
// shape is ignored.
func (c *Client) handleKick(params []string) {
	if len(params) < 2 {
		c.sendNumeric(ERR_NEEDMOREPARAMS, "KICK :Not enough parameters")
		return
	}

	channels := strings.Split(params[0], ",")
	users := strings.Split(params[1], ",")

	reason := "Kicked"
	if len(params) > 2 && params[2] != "" {
		reason = params[2]
	}

	switch {
	case len(channels) == 1:
		for _, user := range users {
			if user == "" {
				continue
			}
			c.kickUser(channels[0], user, reason)
		}
	case len(channels) == len(users):
		for i, name := range channels {
			if name == "" || users[i] == "" {
				continue
			}
			c.kickUser(name, users[i], reason)
		}
	}
}

func (c *Client) kickUser(channelName, targetNick, reason string) {
	channel, ok := c.server.getChannel(channelName)
	if !ok {
		c.sendNumeric(ERR_NOSUCHCHANNEL, fmt.Sprintf("%s :No such channel", channelName))
		return
	}

	nick := c.nick()

	channel.Lock()
	name := channel.name
	if _, member := channel.clients[nick]; !member {
		channel.Unlock()
		c.sendNumeric(ERR_NOTONCHANNEL, fmt.Sprintf("%s :You're not on that channel", name))
		return
	}
	target, onChannel := channel.clients[targetNick]
	if !onChannel {
		channel.Unlock()
		c.sendNumeric(ERR_USERNOTINCHANNEL, fmt.Sprintf("%s %s :They aren't on that channel", targetNick, name))
		return
	}

	// The kicker needs halfop or better and must strictly outrank the target,
	// unless kicking themselves.
	if !c.isOperator() {
		if !channel.isHalfop(nick) {
			channel.Unlock()
			c.sendNumeric(ERR_CHANOPRIVSNEEDED, fmt.Sprintf("%s :You're not channel operator", name))
			return
		}
		if nick != targetNick && channel.roleRank(nick) <= channel.roleRank(targetNick) {
			channel.Unlock()
			c.sendNumeric(ERR_CHANOPRIVSNEEDED, fmt.Sprintf("%s :You're not channel operator", name))
			return
		}
	}
	channel.Unlock()

	kickMsg := fmt.Sprintf(":%s KICK %s %s :%s", c.prefix(), name, targetNick, reason)
	for _, member := range channel.snapshotClients() {
		member.sendRaw(kickMsg)
	}

	channel.Lock()
	channel.removeParticipant(targetNick)
	channel.Unlock()

	target.Lock()
	delete(target.channels, strings.ToLower(name))
	target.Unlock()

	c.server.removeChannelIfEmpty(channel)
}

// handleChannelMode processes MODE for a channel target.
func (c *Client) handleChannelMode(params []string) {
	channel, ok := c.server.getChannel(params[0])
	if !ok {
		c.sendNumeric(ERR_NOSUCHCHANNEL, fmt.Sprintf("%s :No such channel", params[0]))
		return
	}

	nick := c.nick()
	oper := c.isOperator()

	channel.RLock()
	name := channel.name
	_, member := channel.clients[nick]
	secret := channel.hasMode('s')
	channel.RUnlock()

	// Query: show the mode record. Secret channels stay invisible to
	// outsiders.
	if len(params) == 1 {
		if secret && !member && !oper {
			c.sendNumeric(ERR_NOSUCHCHANNEL, fmt.Sprintf("%s :No such channel", params[0]))
			return
		}
		channel.RLock()
		desc := channel.modesDescription(member || oper)
		channel.RUnlock()
		c.sendNumeric(RPL_CHANNELMODEIS, fmt.Sprintf("%s %s", name, desc))
		return
	}

	// Server operators may change modes from outside the channel.
	if !member && !oper {
		c.sendNumeric(ERR_USERNOTINCHANNEL, fmt.Sprintf("%s %s :They aren't on that channel", nick, name))
		return
	}

	channel.RLock()
	chanop := channel.isOperator(nick)
	channel.RUnlock()

	if !chanop && !oper {
		c.sendNumeric(ERR_CHANOPRIVSNEEDED, ":You're not channel operator")
		return
	}

	c.applyChannelModes(channel, params[1], params[2:])
}

// applyChannelModes walks a mode string, applying each change it can, and
// broadcasts only the letters that actually changed something.
func (c *Client) applyChannelModes(channel *Channel, modeStr string, args []string) {
	nick := c.nick()
	oper := c.isOperator()

	adding := true
	argIndex := 0

	nextArg := func() (string, bool) {
		if argIndex >= len(args) {
			return "", false
		}
		arg := args[argIndex]
		argIndex++
		return arg, true
	}

	var applied strings.Builder
	var appliedArgs []string
	lastSign := rune(0)

	record := func(mode rune, arg string) {
		sign := '-'
		if adding {
			sign = '+'
		}
		if sign != lastSign {
			applied.WriteRune(sign)
			lastSign = sign
		}
		applied.WriteRune(mode)
		if arg != "" {
			appliedArgs = append(appliedArgs, arg)
		}
	}

	channel.Lock()
	name := channel.name

	for _, mode := range modeStr {
		switch mode {
		case '+':
			adding = true
		case '-':
			adding = false

		case 'm', 'i', 'n', 's', 't':
			if channel.setMode(mode, adding) {
				record(mode, "")
			}

		case 'k':
			if adding {
				if channel.key != "" {
					channel.Unlock()
					c.sendNumeric(ERR_KEYSET, fmt.Sprintf("%s :Channel key already set", name))
					channel.Lock()
					continue
				}
				key, ok := nextArg()
				if !ok || key == "" {
					continue
				}
				channel.key = key
				record(mode, key)
			} else if channel.key != "" {
				channel.key = ""
				record(mode, "")
			}

		case 'l':
			if adding {
				arg, ok := nextArg()
				if !ok {
					continue
				}
				limit, err := strconv.Atoi(arg)
				if err != nil || limit < 0 {
					limit = 0
				}
				if channel.limit != limit {
					channel.limit = limit
					record(mode, strconv.Itoa(limit))
				}
			} else if channel.limit != 0 {
				channel.limit = 0
				record(mode, "")
			}

		case 'b', 'e':
			mask, ok := nextArg()
			if !ok || mask == "" {
				continue
			}
			masks := channel.bans
			if mode == 'e' {
				masks = channel.exceptions
			}
			if adding && !masks[mask] {
				masks[mask] = true
				record(mode, mask)
			} else if !adding && masks[mask] {
				delete(masks, mask)
				record(mode, mask)
			}

		case 'q', 'a', 'o', 'h', 'v':
			target, ok := nextArg()
			if !ok || target == "" {
				continue
			}
			if _, onChannel := channel.clients[target]; !onChannel {
				channel.Unlock()
				c.sendNumeric(ERR_USERNOTINCHANNEL, fmt.Sprintf("%s %s :They aren't on that channel", target, name))
				channel.Lock()
				continue
			}
			if !oper && !c.mayChangeRole(channel, nick, mode, adding) {
				channel.Unlock()
				c.sendNumeric(ERR_CHANOPRIVSNEEDED, ":You're not channel operator")
				channel.Lock()
				continue
			}
			roles := channel.roleMap(mode)
			if adding && !roles[target] {
				roles[target] = true
				record(mode, target)
			} else if !adding && roles[target] {
				delete(roles, target)
				record(mode, target)
			}

		default:
			channel.Unlock()
			c.sendNumeric(ERR_UNKNOWNMODE, fmt.Sprintf("%c :is unknown mode char to me", mode))
			channel.Lock()
		}
	}

	channel.Unlock()

	if applied.Len() == 0 {
		return
	}

	modeMsg := fmt.Sprintf(":%s MODE %s %s", c.prefix(), name, applied.String())
	if len(appliedArgs) > 0 {
		modeMsg += " " + strings.Join(appliedArgs, " ")
	}

	for _, member := range channel.snapshotClients() {
		member.sendRaw(modeMsg)
	}
}

// mayChangeRole reports whether a participant may grant or revoke a role bit.
// Granting requires holding at least the role being granted; voice is the
// exception: halfops grant it and any voiced participant may drop it.
// Callers must hold the channel lock.
func (c *Client) mayChangeRole(channel *Channel, nick string, mode rune, adding bool) bool {
	rank := channel.roleRank(nick)

	switch mode {
	case 'q':
		return rank >= 5
	case 'a':
		return rank >= 4
	case 'o':
		return rank >= 3
	case 'h':
		return rank >= 2
	case 'v':
		if adding {
			return rank >= 2
		}
		return rank >= 1
	}
	return false
}
