package irc

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// NickServ is the nickname registration service. Accounts are held in memory
// as bcrypt digests.
type NickServ struct {
	sync.Mutex
	accounts map[string][]byte // nickname -> password digest
}

// NewNickServ creates the service with no accounts.
func NewNickServ() *NickServ {
	return &NickServ{
		accounts: make(map[string][]byte),
	}
}

// Name implements Service.
func (ns *NickServ) Name() string {
	return "NickServ"
}

// Handle implements Service.
func (ns *NickServ) Handle(c *Client, args []string) {
	if len(args) == 0 {
		serviceNotice(ns, c, "No command given. Use HELP for a list of commands.")
		return
	}

	switch strings.ToUpper(args[0]) {
	case "REGISTER":
		ns.register(c, args[1:])
	case "IDENTIFY":
		ns.identify(c, args[1:])
	case "LOGOUT":
		ns.logout(c)
	case "DROP":
		ns.drop(c, args[1:])
	case "HELP":
		ns.help(c)
	default:
		serviceNotice(ns, c, fmt.Sprintf("Unknown command %s. Use HELP for a list of commands.", args[0]))
	}
}

func (ns *NickServ) register(c *Client, args []string) {
	if len(args) < 2 {
		serviceNotice(ns, c, "Syntax: REGISTER <nickname> <password>")
		return
	}

	nick := c.nick()

	// Only the nickname currently in use may be registered.
	if args[0] != nick {
		serviceNotice(ns, c, fmt.Sprintf("You may only register your current nickname, %s.", nick))
		return
	}

	ns.Lock()
	if _, exists := ns.accounts[nick]; exists {
		ns.Unlock()
		serviceNotice(ns, c, fmt.Sprintf("Nickname %s is already registered.", nick))
		return
	}
	ns.Unlock()

	digest, err := bcrypt.GenerateFromPassword([]byte(args[1]), bcrypt.DefaultCost)
	if err != nil {
		serviceNotice(ns, c, "Registration failed. Try again later.")
		return
	}

	ns.Lock()
	ns.accounts[nick] = digest
	ns.Unlock()

	c.Lock()
	c.identified = true
	c.Unlock()

	serviceNotice(ns, c, fmt.Sprintf("Nickname %s registered. You are now identified.", nick))
}

func (ns *NickServ) identify(c *Client, args []string) {
	if len(args) < 2 {
		serviceNotice(ns, c, "Syntax: IDENTIFY <nickname> <password>")
		return
	}

	nick := args[0]

	ns.Lock()
	digest, exists := ns.accounts[nick]
	ns.Unlock()

	if !exists {
		serviceNotice(ns, c, fmt.Sprintf("Nickname %s is not registered.", nick))
		return
	}

	if bcrypt.CompareHashAndPassword(digest, []byte(args[1])) != nil {
		serviceNotice(ns, c, "Invalid password.")
		return
	}

	c.Lock()
	c.identified = true
	c.Unlock()

	serviceNotice(ns, c, fmt.Sprintf("You are now identified for %s.", nick))
}

func (ns *NickServ) logout(c *Client) {
	c.Lock()
	wasIdentified := c.identified
	c.identified = false
	c.Unlock()

	if !wasIdentified {
		serviceNotice(ns, c, "You are not identified.")
		return
	}

	serviceNotice(ns, c, "You have been logged out.")
}

func (ns *NickServ) drop(c *Client, args []string) {
	if len(args) < 2 {
		serviceNotice(ns, c, "Syntax: DROP <nickname> <password>")
		return
	}

	c.RLock()
	identified := c.identified
	c.RUnlock()

	if identified {
		serviceNotice(ns, c, "You must log out before dropping a nickname.")
		return
	}

	nick := args[0]

	ns.Lock()
	digest, exists := ns.accounts[nick]
	ns.Unlock()

	if !exists {
		serviceNotice(ns, c, fmt.Sprintf("Nickname %s is not registered.", nick))
		return
	}

	if bcrypt.CompareHashAndPassword(digest, []byte(args[1])) != nil {
		serviceNotice(ns, c, "Invalid password.")
		return
	}

	ns.Lock()
	delete(ns.accounts, nick)
	ns.Unlock()

	serviceNotice(ns, c, fmt.Sprintf("Nickname %s has been dropped.", nick))
}

func (ns *NickServ) help(c *Client) {
	serviceNotice(ns, c, "NickServ commands:")
	serviceNotice(ns, c, "REGISTER <nickname> <password> - register your current nickname")
	serviceNotice(ns, c, "IDENTIFY <nickname> <password> - identify for a nickname")
	serviceNotice(ns, c, "LOGOUT - forget your identification")
	serviceNotice(ns, c, "DROP <nickname> <password> - unregister a nickname (log out first)")
}
