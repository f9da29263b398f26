package server

import (
	"strings"

	"github.com/google/uuid"

	"github.com/crowirc/crowd/irc"
)

// Reserved characters that may never appear in a nickname or username.
const (
	illegalNickChars = ".<>'`()?*#"
	illegalUserChars = ".<>'`()"
)

// User is the per-connection identity record. All mutation happens under
// the owning Registry's lock; the struct itself carries no lock of its own.
type User struct {
	conn Conn
	reg  *Registry
	id   string // unique per connection, also seeds fallback nickname synthesis

	username string // write-once
	nickname string
	realname string
	host     string
	address  string // nickname!username@host, kept consistent on every change
	status   string // WHO status flag

	channels     []*Channel // join order
	nickAttempts int
	maxNickLen   int
	maxUserLen   int
}

// newUser creates the identity record for a fresh connection. The conn is
// borrowed from the transport, never owned.
func newUser(reg *Registry, conn Conn) *User {
	u := &User{
		conn:       conn,
		reg:        reg,
		id:         uuid.New().String(),
		host:       conn.Host(),
		status:     "H",
		maxNickLen: reg.maxNickLen,
		maxUserLen: reg.maxUserLen,
	}
	u.refreshAddress()
	return u
}

// refreshAddress recomputes the address from the current nickname,
// username and host. Called after every nickname or username change.
func (u *User) refreshAddress() {
	u.address = irc.FormatAddress(u.nickname, u.username, u.host)
}

// ID returns the connection-unique token.
func (u *User) ID() string { return u.id }

// Nickname returns the current nickname, empty until negotiation succeeds.
func (u *User) Nickname() string { return u.nickname }

// Username returns the username, empty until SetUsername succeeds.
func (u *User) Username() string { return u.username }

// Realname returns the real name supplied with the username.
func (u *User) Realname() string { return u.realname }

// Host returns the remote host string.
func (u *User) Host() string { return u.host }

// Address returns the nickname!username@host identity string.
func (u *User) Address() string { return u.address }

// Conn returns the borrowed connection capability.
func (u *User) Conn() Conn { return u.conn }

// Channels returns a snapshot of the channels the user belongs to, in join
// order. Membership changes under the registry lock, so the snapshot does.
func (u *User) Channels() []*Channel {
	u.reg.mu.Lock()
	defer u.reg.mu.Unlock()

	out := make([]*Channel, len(u.channels))
	copy(out, u.channels)
	return out
}

// setUsernameLocked assigns the write-once username and the real name
// together. Failures are hard setup errors: the transport must stop
// processing the offending command.
func (u *User) setUsernameLocked(username, realname string) Reply {
	switch {
	case u.username != "":
		return reply(AlreadyHasUsername, "Client already has a username.")
	case username == "":
		return reply(BlankUsername, "Username can not be blank.")
	case len(username) > u.maxUserLen:
		return replyf(UsernameTooLong, "Username can not be greater than %d characters.", u.maxUserLen)
	case strings.ContainsAny(username, illegalUserChars):
		return reply(IllegalUsernameCharacters, "Illegal characters in username.")
	}

	u.username = username
	u.realname = realname
	u.refreshAddress()
	return Reply{}
}

// attachChannel records channel membership on the user side. The channel
// side is maintained by Channel.AddUser; both always change together.
func (u *User) attachChannel(ch *Channel) {
	u.channels = append(u.channels, ch)
}

// detachChannel removes channel membership on the user side.
func (u *User) detachChannel(ch *Channel) {
	for i, c := range u.channels {
		if c == ch {
			u.channels = append(u.channels[:i], u.channels[i+1:]...)
			return
		}
	}
}

// inChannel reports membership from the user side.
func (u *User) inChannel(ch *Channel) bool {
	for _, c := range u.channels {
		if c == ch {
			return true
		}
	}
	return false
}
