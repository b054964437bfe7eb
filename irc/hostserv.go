package irc

import (
	"fmt"
	"strings"
	"sync"
)

// HostServ manages virtual hosts. A requested vhost either activates
// immediately or sits in the pending queue until an operator approves it,
// depending on the activation policy.
type HostServ struct {
	sync.Mutex
	requireActivation bool
	active            map[string]string // nickname -> approved vhost
	pending           map[string]string // nickname -> requested vhost
}

// NewHostServ creates the service. When requireActivation is set, requests
// wait for operator approval before they can be used.
func NewHostServ(requireActivation bool) *HostServ {
	return &HostServ{
		requireActivation: requireActivation,
		active:            make(map[string]string),
		pending:           make(map[string]string),
	}
}

// Name implements Service.
func (hs *HostServ) Name() string {
	return "HostServ"
}

// Handle implements Service.
func (hs *HostServ) Handle(c *Client, args []string) {
	if len(args) == 0 {
		serviceNotice(hs, c, "No command given. Use HELP for a list of commands.")
		return
	}

	switch strings.ToUpper(args[0]) {
	case "REQUEST":
		hs.request(c, args[1:])
	case "ON":
		hs.on(c)
	case "OFF":
		hs.off(c)
	case "ACTIVATE":
		hs.activate(c, args[1:])
	case "REJECT":
		hs.reject(c, args[1:])
	case "WAITING":
		hs.waiting(c)
	case "DEL":
		hs.del(c, args[1:])
	case "HELP":
		hs.help(c)
	default:
		serviceNotice(hs, c, fmt.Sprintf("Unknown command %s. Use HELP for a list of commands.", args[0]))
	}
}

func (hs *HostServ) request(c *Client, args []string) {
	if len(args) < 1 {
		serviceNotice(hs, c, "Syntax: REQUEST <vhost>")
		return
	}

	vhost := args[0]
	if !isValidVhost(vhost) {
		serviceNotice(hs, c, fmt.Sprintf("%s is not a valid vhost.", vhost))
		return
	}

	nick := c.nick()

	hs.Lock()
	if hs.requireActivation {
		hs.pending[nick] = vhost
	} else {
		hs.active[nick] = vhost
		delete(hs.pending, nick)
	}
	requireActivation := hs.requireActivation
	hs.Unlock()

	if requireActivation {
		serviceNotice(hs, c, fmt.Sprintf("Your vhost request for %s is awaiting activation.", vhost))
	} else {
		serviceNotice(hs, c, fmt.Sprintf("Your vhost %s has been set. Use ON to enable it.", vhost))
	}
}

func (hs *HostServ) on(c *Client) {
	c.RLock()
	identified := c.identified
	c.RUnlock()

	if !identified {
		serviceNotice(hs, c, "You must identify with NickServ first.")
		return
	}

	hs.Lock()
	vhost, ok := hs.active[c.nick()]
	hs.Unlock()

	if !ok {
		serviceNotice(hs, c, "You have no vhost. Use REQUEST to ask for one.")
		return
	}

	c.setHost(vhost, false)
	serviceNotice(hs, c, fmt.Sprintf("Your vhost %s is now active.", vhost))
}

func (hs *HostServ) off(c *Client) {
	c.RLock()
	ip := c.ipAddr
	c.RUnlock()

	c.setHost(CloakAddress(ip), true)
	serviceNotice(hs, c, "Your vhost is now off.")
}

func (hs *HostServ) activate(c *Client, args []string) {
	if !c.isOperator() {
		serviceNotice(hs, c, "Permission denied.")
		return
	}
	if len(args) < 1 {
		serviceNotice(hs, c, "Syntax: ACTIVATE <nickname>")
		return
	}

	nick := args[0]

	hs.Lock()
	vhost, ok := hs.pending[nick]
	if ok {
		delete(hs.pending, nick)
		hs.active[nick] = vhost
	}
	hs.Unlock()

	if !ok {
		serviceNotice(hs, c, fmt.Sprintf("No pending vhost request for %s.", nick))
		return
	}

	serviceNotice(hs, c, fmt.Sprintf("Activated vhost %s for %s.", vhost, nick))

	if target, online := c.server.getClient(nick); online {
		serviceNotice(hs, target, fmt.Sprintf("Your vhost %s has been activated. Use ON to enable it.", vhost))
	}
}

func (hs *HostServ) reject(c *Client, args []string) {
	if !c.isOperator() {
		serviceNotice(hs, c, "Permission denied.")
		return
	}
	if len(args) < 1 {
		serviceNotice(hs, c, "Syntax: REJECT <nickname>")
		return
	}

	nick := args[0]

	hs.Lock()
	vhost, ok := hs.pending[nick]
	delete(hs.pending, nick)
	hs.Unlock()

	if !ok {
		serviceNotice(hs, c, fmt.Sprintf("No pending vhost request for %s.", nick))
		return
	}

	serviceNotice(hs, c, fmt.Sprintf("Rejected vhost %s for %s.", vhost, nick))
}

func (hs *HostServ) waiting(c *Client) {
	if !c.isOperator() {
		serviceNotice(hs, c, "Permission denied.")
		return
	}

	hs.Lock()
	entries := make([]string, 0, len(hs.pending))
	for nick, vhost := range hs.pending {
		entries = append(entries, fmt.Sprintf("%s: %s", nick, vhost))
	}
	hs.Unlock()

	if len(entries) == 0 {
		serviceNotice(hs, c, "No vhost requests are waiting.")
		return
	}

	for _, entry := range entries {
		serviceNotice(hs, c, entry)
	}
}

func (hs *HostServ) del(c *Client, args []string) {
	if !c.isOperator() {
		serviceNotice(hs, c, "Permission denied.")
		return
	}
	if len(args) < 1 {
		serviceNotice(hs, c, "Syntax: DEL <nickname>")
		return
	}
	nick := args[0]

	hs.Lock()
	_, ok := hs.active[nick]
	delete(hs.active, nick)
	delete(hs.pending, nick)
	hs.Unlock()

	if !ok {
		serviceNotice(hs, c, fmt.Sprintf("%s has no vhost.", nick))
		return
	}

	serviceNotice(hs, c, fmt.Sprintf("Deleted vhost for %s.", nick))
}

func (hs *HostServ) help(c *Client) {
	serviceNotice(hs, c, "HostServ commands:")
	serviceNotice(hs, c, "REQUEST <vhost> - request a virtual host")
	serviceNotice(hs, c, "ON - switch your approved vhost on")
	serviceNotice(hs, c, "OFF - switch back to your cloaked host")
	serviceNotice(hs, c, "DEL <nickname> - delete a vhost (operators)")
	serviceNotice(hs, c, "ACTIVATE <nickname> - approve a pending request (operators)")
	serviceNotice(hs, c, "REJECT <nickname> - reject a pending request (operators)")
	serviceNotice(hs, c, "WAITING - list pending requests (operators)")
}

// isValidVhost accepts dot-separated chunks of ASCII letters.
func isValidVhost(vhost string) bool {
	if vhost == "" {
		return false
	}

	for _, chunk := range strings.Split(vhost, ".") {
		if chunk == "" {
			return false
		}
		for _, ch := range chunk {
			if !((ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')) {
				return false
			}
		}
	}

	return true
}
