package irc_test

import (
	"fmt"
	"log"
	"net"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ayame-irc/ayame/irc"
	"github.com/ayame-irc/ayame/irc/config"
)

func init() {
	log.SetFlags(log.Lshortfile | log.Lmicroseconds)
}

// startTestServer boots a server on an ephemeral port and returns its dial
// address.
func startTestServer(t *testing.T) string {
	t.Helper()

	cfg := &config.Config{}
	cfg.Server.Name = "test.irc.server"
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	cfg.Server.MOTDPath = "no-such-motd.txt"
	cfg.Opers = []config.OperConfig{{Name: "root", Password: "sekrit"}}

	server := irc.NewServer(cfg)
	if err := server.Start(); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	t.Cleanup(func() { server.Stop() })

	return server.Addr().String()
}

// TestClient represents a test IRC client
type TestClient struct {
	t        *testing.T
	conn     net.Conn
	tpConn   *textproto.Conn
	nickname string
	mux      sync.Mutex // Protects concurrent read/write operations
}

// NewTestClient connects a test client to the server at addr.
func NewTestClient(t *testing.T, addr, nickname string) *TestClient {
	t.Helper()

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("Failed to connect to server: %v", err)
	}

	c := &TestClient{
		t:        t,
		conn:     conn,
		tpConn:   textproto.NewConn(conn),
		nickname: nickname,
	}
	t.Cleanup(c.Close)
	return c
}

// Register runs the NICK/USER handshake and drains the welcome burst.
func (c *TestClient) Register() {
	c.SendCommand(fmt.Sprintf("NICK %s", c.nickname))
	c.SendCommand(fmt.Sprintf("USER %s 0 * :%s", c.nickname, c.nickname))
	c.WaitForRegistration(2 * time.Second)
}

// Close closes the client connection
func (c *TestClient) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}

// DrainMessages reads and discards all pending messages.
func (c *TestClient) DrainMessages() {
	c.mux.Lock()
	defer c.mux.Unlock()

	c.conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	defer c.conn.SetReadDeadline(time.Time{})

	drained := 0
	for {
		if _, err := c.tpConn.ReadLine(); err != nil {
			break
		}
		drained++
	}
	if drained > 0 {
		log.Printf("[%s] Drained %d messages", c.nickname, drained)
	}
}

// ReadMessages reads up to maxMessages messages from the server with a
// timeout, returning them with line endings trimmed.
func (c *TestClient) ReadMessages(maxMessages int) []string {
	c.mux.Lock()
	defer c.mux.Unlock()

	var messages []string

	c.conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	defer c.conn.SetReadDeadline(time.Time{})

	for i := 0; i < maxMessages; i++ {
		msg, err := c.tpConn.ReadLine()
		if err != nil {
			break
		}
		if msg != "" {
			messages = append(messages, msg)
		}
	}

	return messages
}

// SendCommand sends an IRC command to the server
func (c *TestClient) SendCommand(command string) {
	log.Printf("    [%s] => %#v", c.nickname, command)

	c.mux.Lock()
	err := c.tpConn.PrintfLine("%s", command)
	c.mux.Unlock()

	if err != nil {
		c.t.Errorf("Failed to send command '%s': %v", command, err)
	}
}

// WaitForMessage waits for a line containing expectedMessage and returns true
// if one arrives within the timeout.
func (c *TestClient) WaitForMessage(expectedMessage string, timeout time.Duration) bool {
	c.mux.Lock()
	defer c.mux.Unlock()

	start := time.Now()
	for time.Since(start) < timeout {
		c.conn.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
		msg, err := c.tpConn.ReadLine()
		if err != nil {
			time.Sleep(10 * time.Millisecond)
			continue
		}

		if strings.Contains(msg, expectedMessage) {
			c.conn.SetReadDeadline(time.Time{})
			return true
		}
	}

	c.conn.SetReadDeadline(time.Time{})
	return false
}

// MustSee fails the test unless a line containing expected arrives soon.
func (c *TestClient) MustSee(expected string) {
	c.t.Helper()
	if !c.WaitForMessage(expected, 2*time.Second) {
		c.t.Errorf("[%s] Never saw a line containing %q", c.nickname, expected)
	}
}

// MustSeeNumeric fails the test unless the numeric reply arrives soon.
func (c *TestClient) MustSeeNumeric(numeric int) {
	c.t.Helper()
	if !c.WaitForMessage(fmt.Sprintf(" %03d ", numeric), 2*time.Second) {
		c.t.Errorf("[%s] Never saw numeric %03d", c.nickname, numeric)
	}
}

// WaitForRegistration waits until the welcome numeric arrives, then drains
// the rest of the burst.
func (c *TestClient) WaitForRegistration(timeout time.Duration) {
	c.t.Helper()
	if !c.WaitForMessage(" 001 ", timeout) {
		c.t.Fatalf("[%s] Registration never completed", c.nickname)
	}
	c.DrainMessages()
}

// TestServerIntegration walks two clients through the core session lifecycle:
// registration, a shared channel, chat, a topic, a nick change and a quit.
func TestServerIntegration(t *testing.T) {
	addr := startTestServer(t)

	log.Printf("<STEP 1> Registering alice")
	alice := NewTestClient(t, addr, "alice")
	alice.SendCommand("NICK alice")
	alice.SendCommand("USER alice 0 * :Alice")
	alice.MustSee("001 alice :Welcome to test.irc.server alice!alice@")
	alice.MustSeeNumeric(2)
	alice.MustSeeNumeric(3)
	alice.MustSee("422 alice :MOTD File is missing")

	log.Printf("<STEP 2> Commands before registration are rejected")
	bob := NewTestClient(t, addr, "bob")
	bob.SendCommand("JOIN #lobby")
	bob.MustSeeNumeric(451)
	bob.Register()

	log.Printf("<STEP 3> alice creates #lobby")
	alice.SendCommand("JOIN #lobby")
	alice.MustSee(":alice!alice@")
	alice.DrainMessages()

	log.Printf("<STEP 4> bob joins #lobby")
	bob.SendCommand("JOIN #lobby")
	bob.MustSee("JOIN #lobby")
	bob.MustSee("@alice")
	bob.MustSee("366 bob #lobby :End of /NAMES list.")
	alice.MustSee(":bob!bob@")

	log.Printf("<STEP 5> channel chat is relayed")
	alice.SendCommand("PRIVMSG #lobby :hello bob")
	bob.MustSee(":alice!alice@")
	bob.MustSee("PRIVMSG #lobby :hello bob")

	log.Printf("<STEP 6> topic set and read")
	alice.SendCommand("TOPIC #lobby :welcome home")
	bob.MustSee("TOPIC #lobby :welcome home")
	bob.SendCommand("TOPIC #lobby")
	bob.MustSee("332 bob #lobby :welcome home")
	bob.MustSeeNumeric(333)

	log.Printf("<STEP 7> nick change is broadcast to co-members")
	bob.SendCommand("NICK robert")
	alice.MustSee(":bob!bob@")
	alice.MustSee("NICK :robert")
	bob.MustSee("NICK :robert")
	bob.nickname = "robert"

	log.Printf("<STEP 8> direct messages reach the renamed client")
	alice.SendCommand("PRIVMSG robert :still you?")
	bob.MustSee("PRIVMSG robert :still you?")

	log.Printf("<STEP 9> part and quit")
	bob.SendCommand("PART #lobby :bye")
	alice.MustSee("PART #lobby :bye")
	alice.SendCommand("QUIT :done")

	log.Printf("<STEP 10> whowas remembers bob's old identity")
	bob.SendCommand("WHOWAS bob")
	bob.MustSeeNumeric(314)
	bob.MustSee("369 robert bob :End of WHOWAS")
}
