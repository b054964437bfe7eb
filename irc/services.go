package irc

import "fmt"

// Service is a pseudo-user reachable by PRIVMSG under a reserved nickname.
// Handle receives the message text split into fields.
type Service interface {
	Name() string
	Handle(c *Client, args []string)
}

// serviceNotice sends a reply from a service pseudo-user.
func serviceNotice(svc Service, c *Client, text string) {
	c.sendRaw(fmt.Sprintf(":%s@services NOTICE %s :%s", svc.Name(), c.nick(), text))
}
