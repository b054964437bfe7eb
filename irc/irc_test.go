package irc_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestModeratedChannel(t *testing.T) {
	addr := startTestServer(t)

	alice := NewTestClient(t, addr, "alice")
	alice.Register()
	bob := NewTestClient(t, addr, "bob")
	bob.Register()

	alice.SendCommand("JOIN #mod")
	alice.MustSee("End of /NAMES list.")

	alice.SendCommand("MODE #mod +m")
	alice.MustSee("MODE #mod +m")

	bob.SendCommand("JOIN #mod")
	bob.MustSee("End of /NAMES list.")
	alice.DrainMessages()

	// Without voice bob cannot speak
	bob.SendCommand("PRIVMSG #mod :can you hear me?")
	bob.MustSee("404 bob #mod :You need voice (+v) (#mod)")

	alice.SendCommand("MODE #mod +v bob")
	bob.MustSee("MODE #mod +v bob")

	bob.SendCommand("PRIVMSG #mod :now?")
	alice.MustSee("PRIVMSG #mod :now?")

	// Revoking voice silences bob again
	alice.SendCommand("MODE #mod -v bob")
	bob.MustSee("MODE #mod -v bob")
	bob.SendCommand("PRIVMSG #mod :gone again")
	bob.MustSee("404 bob #mod :You need voice (+v) (#mod)")
}

func TestChannelKeyAndLimit(t *testing.T) {
	addr := startTestServer(t)

	alice := NewTestClient(t, addr, "alice")
	alice.Register()
	bob := NewTestClient(t, addr, "bob")
	bob.Register()

	alice.SendCommand("JOIN #keyed")
	alice.MustSee("End of /NAMES list.")
	alice.SendCommand("MODE #keyed +k secret")
	alice.MustSee("MODE #keyed +k secret")

	bob.SendCommand("JOIN #keyed")
	bob.MustSee("475 bob #keyed :Cannot join channel (+k)")
	bob.SendCommand("JOIN #keyed wrong")
	bob.MustSee("475 bob #keyed :Cannot join channel (+k)")
	bob.SendCommand("JOIN #keyed secret")
	bob.MustSee("366 bob #keyed :End of /NAMES list.")

	// Setting a key twice is refused
	alice.DrainMessages()
	alice.SendCommand("MODE #keyed +k other")
	alice.MustSee("467 alice #keyed :Channel key already set")

	alice.SendCommand("JOIN #small")
	alice.MustSee("End of /NAMES list.")
	alice.SendCommand("MODE #small +l 1")
	alice.MustSee("MODE #small +l 1")

	bob.SendCommand("JOIN #small")
	bob.MustSee("471 bob #small :Cannot join channel (+l)")
}

func TestBansAndExceptions(t *testing.T) {
	addr := startTestServer(t)

	alice := NewTestClient(t, addr, "alice")
	alice.Register()
	bob := NewTestClient(t, addr, "bob")
	bob.Register()

	alice.SendCommand("JOIN #fort")
	alice.MustSee("End of /NAMES list.")

	alice.SendCommand("MODE #fort +b *!*@*")
	alice.MustSee("MODE #fort +b")

	bob.SendCommand("JOIN #fort")
	bob.MustSee("474 bob #fort :Cannot join channel (+b)")

	// An exception mask lets bob through the blanket ban
	alice.SendCommand("MODE #fort +e *!bob@*")
	alice.MustSee("MODE #fort +e")

	bob.SendCommand("JOIN #fort")
	bob.MustSee("366 bob #fort :End of /NAMES list.")
}

func TestInviteOnlyChannel(t *testing.T) {
	addr := startTestServer(t)

	alice := NewTestClient(t, addr, "alice")
	alice.Register()
	bob := NewTestClient(t, addr, "bob")
	bob.Register()

	alice.SendCommand("JOIN #priv")
	alice.MustSee("End of /NAMES list.")
	alice.SendCommand("MODE #priv +i")
	alice.MustSee("MODE #priv +i")

	bob.SendCommand("JOIN #priv")
	bob.MustSee("473 bob #priv :Cannot join channel (+i)")

	alice.SendCommand("INVITE bob #priv")
	alice.MustSee("341 alice bob #priv")
	bob.MustSee("INVITE bob :#priv")

	bob.SendCommand("JOIN #priv")
	bob.MustSee("366 bob #priv :End of /NAMES list.")
}

func TestKick(t *testing.T) {
	addr := startTestServer(t)

	alice := NewTestClient(t, addr, "alice")
	alice.Register()
	bob := NewTestClient(t, addr, "bob")
	bob.Register()

	alice.SendCommand("JOIN #arena")
	alice.MustSee("End of /NAMES list.")
	bob.SendCommand("JOIN #arena")
	bob.MustSee("End of /NAMES list.")
	alice.DrainMessages()

	// bob holds no role and cannot kick
	bob.SendCommand("KICK #arena alice")
	bob.MustSee("482 bob #arena :You're not channel operator")

	alice.SendCommand("KICK #arena bob :out you go")
	bob.MustSee("KICK #arena bob :out you go")

	// bob really is gone
	alice.DrainMessages()
	alice.SendCommand("NAMES #arena")
	alice.MustSee("353 alice = #arena :@alice")
}

func TestKickRankRules(t *testing.T) {
	addr := startTestServer(t)

	alice := NewTestClient(t, addr, "alice")
	alice.Register()
	bob := NewTestClient(t, addr, "bob")
	bob.Register()

	alice.SendCommand("JOIN #ring")
	alice.MustSee("End of /NAMES list.")
	bob.SendCommand("JOIN #ring")
	bob.MustSee("End of /NAMES list.")

	alice.SendCommand("MODE #ring +o bob")
	bob.MustSee("MODE #ring +o bob")

	// Equal rank may not kick
	bob.SendCommand("KICK #ring alice")
	bob.MustSee("482 bob #ring :You're not channel operator")

	// Kicking yourself is always allowed
	bob.SendCommand("KICK #ring bob :leaving the hard way")
	bob.MustSee("KICK #ring bob :leaving the hard way")

	// A higher rank still kicks a lower one
	alice.DrainMessages()
	bob.SendCommand("JOIN #ring")
	bob.MustSee("End of /NAMES list.")
	alice.SendCommand("KICK #ring bob")
	bob.MustSee("KICK #ring bob :Kicked")
}

func TestOperatorCommands(t *testing.T) {
	addr := startTestServer(t)

	carol := NewTestClient(t, addr, "carol")
	carol.Register()

	carol.SendCommand("OPER root wrong")
	carol.MustSee("464 carol :Password incorrect")

	carol.SendCommand("OPER root sekrit")
	carol.MustSee("381 carol :You are now an IRC operator")
	carol.MustSee("MODE carol +o")

	carol.SendCommand("REHASH")
	carol.MustSee("382 carol")

	// DIE and RESTART stay disabled even for operators
	carol.SendCommand("DIE")
	carol.MustSee("481 carol :Permission Denied- You're not an IRC operator")
	carol.SendCommand("RESTART")
	carol.MustSeeNumeric(481)

	dave := NewTestClient(t, addr, "dave")
	dave.Register()
	dave.SendCommand("REHASH")
	dave.MustSee("481 dave :Permission Denied- You're not an IRC operator")
}

func TestOperatorModeChangeFromOutside(t *testing.T) {
	addr := startTestServer(t)

	alice := NewTestClient(t, addr, "alice")
	alice.Register()
	carol := NewTestClient(t, addr, "carol")
	carol.Register()

	alice.SendCommand("JOIN #realm")
	alice.MustSee("End of /NAMES list.")

	carol.SendCommand("OPER root sekrit")
	carol.MustSee("381 carol :You are now an IRC operator")

	// A server operator changes channel modes without joining
	carol.SendCommand("MODE #realm +t")
	alice.MustSee("MODE #realm +t")

	// A plain non-member is still refused
	dave := NewTestClient(t, addr, "dave")
	dave.Register()
	dave.SendCommand("MODE #realm +m")
	dave.MustSee("441 dave dave #realm :They aren't on that channel")
}

func TestInviteNoticeReachesAllMembers(t *testing.T) {
	addr := startTestServer(t)

	alice := NewTestClient(t, addr, "alice")
	alice.Register()
	bob := NewTestClient(t, addr, "bob")
	bob.Register()
	carol := NewTestClient(t, addr, "carol")
	carol.Register()

	alice.SendCommand("JOIN #club")
	alice.MustSee("End of /NAMES list.")
	bob.SendCommand("JOIN #club")
	bob.MustSee("End of /NAMES list.")

	alice.SendCommand("INVITE carol #club")
	alice.MustSee("341 alice carol #club")
	carol.MustSee("INVITE carol :#club")

	// Role-less members get the notice too
	bob.MustSee("NOTICE @#club :alice invited carol into the channel.")
}

func TestWhoChannelOperatorFilter(t *testing.T) {
	addr := startTestServer(t)

	alice := NewTestClient(t, addr, "alice")
	alice.Register()
	bob := NewTestClient(t, addr, "bob")
	bob.Register()

	alice.SendCommand("JOIN #staff")
	alice.MustSee("End of /NAMES list.")
	bob.SendCommand("JOIN #staff")
	bob.MustSee("End of /NAMES list.")
	alice.DrainMessages()

	// The "o" filter keeps channel operators only
	alice.SendCommand("WHO #staff o")
	messages := alice.ReadMessages(10)

	var entries []string
	for _, msg := range messages {
		if strings.Contains(msg, " 352 ") {
			entries = append(entries, msg)
		}
	}
	if assert.Len(t, entries, 1) {
		assert.Contains(t, entries[0], "352 alice #staff alice")
	}
}

func TestServerQueries(t *testing.T) {
	addr := startTestServer(t)

	alice := NewTestClient(t, addr, "alice")
	alice.Register()

	alice.SendCommand("VERSION")
	alice.MustSee("351 alice ayame-1.0.0 test.irc.server")
	alice.SendCommand("VERSION elsewhere")
	alice.MustSee("402 alice elsewhere :No such server")

	alice.SendCommand("TIME")
	alice.MustSee("391 alice test.irc.server :")

	alice.SendCommand("STATS")
	alice.MustSee("461 alice STATS :Not enough parameters")
	alice.SendCommand("STATS u")
	alice.MustSee(":Server Up 0 days,")
	alice.MustSee("219 alice u :End of /STATS report")

	alice.SendCommand("SUMMON someone")
	alice.MustSee("445 alice :SUMMON has been disabled")
	alice.SendCommand("USERS")
	alice.MustSee("446 alice :USERS has been disabled")

	alice.SendCommand("PING")
	alice.MustSee("409 alice :No origin specified")
	alice.SendCommand("PING :token")
	alice.MustSee("PONG test.irc.server :token")

	alice.SendCommand("BOGUS x y")
	alice.MustSee("421 alice BOGUS :Unknown command")
}

func TestAwayIsonUserhost(t *testing.T) {
	addr := startTestServer(t)

	alice := NewTestClient(t, addr, "alice")
	alice.Register()
	bob := NewTestClient(t, addr, "bob")
	bob.Register()

	bob.SendCommand("AWAY :gone fishing")
	bob.MustSee("306 bob :You have been marked as being away")

	alice.SendCommand("PRIVMSG bob :you there?")
	alice.MustSee("301 alice bob :gone fishing")
	bob.MustSee("PRIVMSG bob :you there?")

	alice.SendCommand("ISON bob ghost")
	alice.MustSee("303 alice :bob")

	alice.SendCommand("USERHOST bob")
	alice.MustSee("302 alice :bob=+bob@")

	bob.SendCommand("AWAY")
	bob.MustSee("305 bob :You are no longer marked as being away")

	alice.SendCommand("USERHOST bob")
	alice.MustSee("302 alice :bob=-bob@")
}

func TestWhoisAndWho(t *testing.T) {
	addr := startTestServer(t)

	alice := NewTestClient(t, addr, "alice")
	alice.Register()
	bob := NewTestClient(t, addr, "bob")
	bob.Register()

	bob.SendCommand("JOIN #place")
	bob.MustSee("End of /NAMES list.")

	alice.SendCommand("WHOIS bob")
	alice.MustSee("311 alice bob bob")
	alice.MustSee("312 alice bob test.irc.server")
	alice.MustSee(":seconds idle, signon time")
	alice.MustSee("318 alice bob :End of /WHOIS list")

	alice.SendCommand("WHOIS ghost")
	alice.MustSee("401 alice ghost :No such nick/channel")
	alice.MustSee("318 alice ghost :End of /WHOIS list")

	alice.SendCommand("WHOIS")
	alice.MustSee("431 alice :No nickname given")

	alice.SendCommand("WHO #place")
	alice.MustSee("352 alice #place bob")
	alice.MustSee("315 alice #place :End of /WHO list.")

	alice.SendCommand("WHO")
	alice.MustSee("352 alice * alice")
	alice.MustSee("315 alice * :End of /WHO list.")
}

func TestUserModes(t *testing.T) {
	addr := startTestServer(t)

	alice := NewTestClient(t, addr, "alice")
	alice.Register()
	bob := NewTestClient(t, addr, "bob")
	bob.Register()

	alice.SendCommand("MODE alice")
	alice.MustSee("221 alice +x")

	// Dropping the cloak exposes the real address
	alice.SendCommand("MODE alice -x")
	alice.MustSee("MODE alice -x")
	alice.SendCommand("WHOIS alice")
	alice.MustSee("311 alice alice alice 127.0.0.1")

	alice.SendCommand("MODE alice +x")
	alice.MustSee("MODE alice +x")

	alice.SendCommand("MODE alice +z")
	alice.MustSee("501 alice z :Unknown MODE flag")

	alice.SendCommand("MODE bob +x")
	alice.MustSee("502 alice :Cant change mode for other users")

	alice.SendCommand("MODE ghost +x")
	alice.MustSee("401 alice ghost :No such nick/channel")
}

func TestChannelModeQueries(t *testing.T) {
	addr := startTestServer(t)

	alice := NewTestClient(t, addr, "alice")
	alice.Register()
	bob := NewTestClient(t, addr, "bob")
	bob.Register()

	alice.SendCommand("JOIN #q")
	alice.MustSee("End of /NAMES list.")

	alice.SendCommand("MODE #q")
	alice.MustSee("324 alice #q +")

	// A non-member may not change modes
	bob.SendCommand("MODE #q +t")
	bob.MustSee("441 bob bob #q :They aren't on that channel")

	// Secret channels are invisible to outsiders
	alice.SendCommand("MODE #q +s")
	alice.MustSee("MODE #q +s")
	bob.SendCommand("MODE #q")
	bob.MustSee("403 bob #q :No such channel")
	bob.SendCommand("LIST")
	messages := bob.ReadMessages(10)
	for _, msg := range messages {
		assert.NotContains(t, msg, " 322 ")
	}
}

func TestNickCollisionAndValidity(t *testing.T) {
	addr := startTestServer(t)

	alice := NewTestClient(t, addr, "alice")
	alice.Register()

	late := NewTestClient(t, addr, "late")
	late.SendCommand("NICK alice")
	late.MustSee("433 * alice :Nickname is already in use")

	late.SendCommand("NICK we!rd")
	late.MustSee("432 * we!rd :Erroneous nickname")

	late.SendCommand("NICK way-too-long-for-a-nickname")
	late.MustSee("432 * way-too-long-for-a-nickname :Erroneous nickname")

	late.SendCommand("NICK")
	late.MustSee("431 * :No nickname given")

	late.SendCommand("NICK late")
	late.SendCommand("USER late 0 * :Late One")
	late.WaitForRegistration(2 * time.Second)
}

func TestNickServOverWire(t *testing.T) {
	addr := startTestServer(t)

	alice := NewTestClient(t, addr, "alice")
	alice.Register()

	alice.SendCommand("PRIVMSG NickServ :REGISTER alice hunter2")
	alice.MustSee(":NickServ@services NOTICE alice :Nickname alice registered.")

	alice.SendCommand("PRIVMSG NickServ :HELP")
	alice.MustSee("NickServ commands:")

	alice.SendCommand("WHOIS alice")
	alice.MustSee("307 alice alice :has identified for this nick")

	alice.SendCommand("PRIVMSG HostServ :REQUEST neat.host")
	alice.MustSee("Your vhost neat.host has been set.")
	alice.SendCommand("PRIVMSG HostServ :ON")
	alice.MustSee("now active")

	alice.SendCommand("WHOIS alice")
	alice.MustSee("311 alice alice alice neat.host")
}
