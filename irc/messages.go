package irc

import (
	"fmt"
	"strings"
)

// handleChat routes PRIVMSG and NOTICE, which differ only in the verb relayed
// and in whether automatic replies (away notices) are generated.
func (c *Client) handleChat(command string, params []string) {
	if len(params) < 1 || params[0] == "" {
		c.sendNumeric(ERR_NORECIPIENT, fmt.Sprintf(":No recipient given (%s)", command))
		return
	}
	if len(params) < 2 {
		c.sendNumeric(ERR_NOTEXTTOSEND, ":No text to send")
		return
	}

	text := params[1]

	c.updateIdleTime()

	for _, target := range strings.Split(params[0], ",") {
		if target == "" {
			continue
		}

		if strings.HasPrefix(target, "#") {
			c.chatToChannel(command, target, text)
			continue
		}

		// Other channel sigils are not supported.
		if strings.HasPrefix(target, "!") || strings.HasPrefix(target, "&") || strings.HasPrefix(target, "+") {
			c.sendNumeric(ERR_NOSUCHCHANNEL, fmt.Sprintf("%s :No such channel", target))
			continue
		}

		c.chatToUser(command, target, text)
	}
}

func (c *Client) chatToChannel(command, target, text string) {
	channel, ok := c.server.getChannel(target)
	if !ok {
		c.sendNumeric(ERR_NOSUCHNICK, fmt.Sprintf("%s :No such nick/channel", target))
		return
	}

	nick := c.nick()

	channel.RLock()
	name := channel.name
	_, member := channel.clients[nick]
	noExternal := channel.hasMode('n')
	moderated := channel.hasMode('m')
	voiced := channel.isVoiced(nick)
	channel.RUnlock()

	if noExternal && !member {
		c.sendNumeric(ERR_CANNOTSENDTOCHAN, fmt.Sprintf("%s :No external messages allowed (%s)", name, name))
		return
	}
	if moderated && !voiced {
		c.sendNumeric(ERR_CANNOTSENDTOCHAN, fmt.Sprintf("%s :You need voice (+v) (%s)", name, name))
		return
	}

	relay := fmt.Sprintf(":%s %s %s :%s", c.prefix(), command, name, text)
	for _, member := range channel.snapshotClients() {
		if member != c {
			member.sendRaw(relay)
		}
	}

	c.server.metrics.MessagesRouted.WithLabelValues("channel").Inc()
}

func (c *Client) chatToUser(command, target, text string) {
	// Service pseudo-users take the message as a command line.
	if svc, ok := c.server.lookupService(target); ok {
		svc.Handle(c, strings.Fields(text))
		c.server.metrics.MessagesRouted.WithLabelValues("service").Inc()
		return
	}

	targetClient, ok := c.server.getClient(target)
	if !ok {
		c.sendNumeric(ERR_NOSUCHNICK, fmt.Sprintf("%s :No such nick/channel", target))
		return
	}

	targetClient.sendRaw(fmt.Sprintf(":%s %s %s :%s", c.prefix(), command, target, text))

	if command == "PRIVMSG" {
		if away, msg := targetClient.isAway(); away {
			c.sendNumeric(RPL_AWAY, fmt.Sprintf("%s :%s", target, msg))
		}
	}

	c.server.metrics.MessagesRouted.WithLabelValues("user").Inc()
}
