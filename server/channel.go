package server

import (
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/crowirc/crowd/irc"
)

// QuitReason selects the broadcast template used when a user leaves a
// channel.
type QuitReason int

const (
	QuitUnspecified QuitReason = iota
	QuitLeft
	QuitDisconnected
	QuitTimeout
)

func (r QuitReason) String() string {
	switch r {
	case QuitLeft:
		return "left"
	case QuitDisconnected:
		return "disconnected"
	case QuitTimeout:
		return "timeout"
	default:
		return "unspecified"
	}
}

// OwnerCredential is the primordial owner login for a channel: a fixed
// account name and a bcrypt hash of its password.
type OwnerCredential struct {
	Name         string
	PasswordHash []byte
}

// Channel is a named chat room: an ordered membership set, a single owner
// slot, and the owner-managed operator accounts. All state is guarded by
// the registry lock; exported methods take it, unexported ones expect it
// held.
type Channel struct {
	name                 string
	owner                *User
	lastOwnerLogin       time.Time
	scheduledForDeletion bool
	deleted              bool // terminal
	members              []*User
	ownerCredential      OwnerCredential
	accounts             map[string]*OperatorAccount

	manager *Manager
	reg     *Registry
	log     *slog.Logger
}

func newChannel(name string, cred OwnerCredential, m *Manager) *Channel {
	return &Channel{
		name:            name,
		lastOwnerLogin:  time.Now(),
		ownerCredential: cred,
		accounts:        make(map[string]*OperatorAccount),
		manager:         m,
		reg:             m.reg,
		log:             m.log.With("channel", name),
	}
}

// Name returns the channel name.
func (ch *Channel) Name() string { return ch.name }

// Owner returns the current owner, nil when the channel is ownerless.
func (ch *Channel) Owner() *User {
	ch.reg.mu.Lock()
	defer ch.reg.mu.Unlock()
	return ch.owner
}

// LastOwnerLogin returns the timestamp read by the maintenance sweeper.
func (ch *Channel) LastOwnerLogin() time.Time {
	ch.reg.mu.Lock()
	defer ch.reg.mu.Unlock()
	return ch.lastOwnerLogin
}

// ScheduledForDeletion reports whether the sweeper has marked the channel.
func (ch *Channel) ScheduledForDeletion() bool {
	ch.reg.mu.Lock()
	defer ch.reg.mu.Unlock()
	return ch.scheduledForDeletion
}

// Deleted reports whether the channel has been deleted. Deletion is
// terminal: a deleted channel never accepts members again.
func (ch *Channel) Deleted() bool {
	ch.reg.mu.Lock()
	defer ch.reg.mu.Unlock()
	return ch.deleted
}

// AddUser maps a user into the channel and announces the join. Adding a
// member twice is a no-op; adding to a deleted channel always fails.
func (ch *Channel) AddUser(u *User) Reply {
	ch.reg.mu.Lock()
	defer ch.reg.mu.Unlock()
	return ch.addUserLocked(u)
}

func (ch *Channel) addUserLocked(u *User) Reply {
	if ch.deleted {
		return reply(ChannelDeleting,
			"The channel is being deleted. \nWait a moment and try again to create a new channel with its name.")
	}
	if ch.isMemberLocked(u) {
		return Reply{}
	}

	ch.members = append(ch.members, u)
	u.attachChannel(ch)
	u.conn.JoinedChannel(ch.name)

	line := irc.JoinLine(u.address, ch.name)
	for _, member := range ch.members {
		member.conn.SendLine(line)
	}
	ch.sendNamesLocked(u)

	joinsTotal.Inc()
	ch.log.Debug("user joined", "nick", u.nickname, "members", len(ch.members))
	return Reply{}
}

// RemoveUser unmaps a user and broadcasts a reason-specific quit line to
// the remaining members. Removing the owner vacates the owner slot and
// refreshes lastOwnerLogin so the sweeper never sees a just-vacated channel
// as stale.
func (ch *Channel) RemoveUser(u *User, message string, reason QuitReason, timeoutSeconds int) {
	ch.reg.mu.Lock()
	defer ch.reg.mu.Unlock()
	ch.removeUserLocked(u, message, reason, timeoutSeconds)
}

func (ch *Channel) removeUserLocked(u *User, message string, reason QuitReason, timeoutSeconds int) {
	if !ch.isMemberLocked(u) {
		return
	}

	var line string
	switch reason {
	case QuitLeft:
		if message == "" {
			message = "User Left Channel."
		}
		line = irc.PartLine(u.address, ch.name, message)
	case QuitDisconnected:
		line = irc.QuitLine(u.address, "User Quit Network.")
	case QuitTimeout:
		line = irc.QuitLine(u.address, fmt.Sprintf("Ping timeout: %d seconds", timeoutSeconds))
	default:
		line = irc.QuitLine(u.address, "Unspecified Reason.")
	}

	if ch.owner == u {
		ch.owner = nil
		ch.lastOwnerLogin = time.Now()
	}
	for _, acct := range ch.accounts {
		if acct.user == u {
			acct.user = nil
		}
	}

	for i, member := range ch.members {
		if member == u {
			ch.members = append(ch.members[:i], ch.members[i+1:]...)
			break
		}
	}
	ch.broadcastLineLocked(line)
	u.detachChannel(ch)
	u.conn.PartedChannel(ch.name)

	partsTotal.Inc()
	ch.log.Debug("user removed", "nick", u.nickname, "reason", reason.String(), "members", len(ch.members))
}

// IsMember reports whether the user currently belongs to the channel.
func (ch *Channel) IsMember(u *User) bool {
	ch.reg.mu.Lock()
	defer ch.reg.mu.Unlock()
	return ch.isMemberLocked(u)
}

func (ch *Channel) isMemberLocked(u *User) bool {
	for _, member := range ch.members {
		if member == u {
			return true
		}
	}
	return false
}

// Nicknames returns the member nicknames in membership order.
func (ch *Channel) Nicknames() []string {
	ch.reg.mu.Lock()
	defer ch.reg.mu.Unlock()
	return ch.nicknamesLocked()
}

func (ch *Channel) nicknamesLocked() []string {
	nicks := make([]string, len(ch.members))
	for i, member := range ch.members {
		nicks[i] = member.nickname
	}
	return nicks
}

// WhoEntry is one record of a WHO response, consumed by the reply formatter
// in the transport.
type WhoEntry struct {
	Username string
	Address  string
	Server   string
	Nickname string
	Status   string
	Hops     int
	Realname string
}

// Who returns one entry per member. Callers must be on the channel.
func (ch *Channel) Who(caller *User) ([]WhoEntry, Reply) {
	ch.reg.mu.Lock()
	defer ch.reg.mu.Unlock()

	if !ch.isMemberLocked(caller) {
		return nil, reply(NotAMember,
			irc.NotOnChannelLine(caller.host, ch.name, "You must be on the channel to perform a /who"))
	}

	entries := make([]WhoEntry, len(ch.members))
	for i, member := range ch.members {
		entries[i] = WhoEntry{
			Username: member.username,
			Address:  member.address,
			Server:   ch.manager.serverName,
			Nickname: member.nickname,
			Status:   member.status,
			Hops:     0,
			Realname: member.realname,
		}
	}
	return entries, Reply{}
}

// renameUserLocked broadcasts a NICK change to the other members. The
// renaming user is excluded by identity, not by connection handle.
func (ch *Channel) renameUserLocked(u *User, newNick string) {
	line := irc.NickLine(u.address, newNick)
	for _, member := range ch.members {
		if member == u {
			continue
		}
		member.conn.SendLine(line)
	}
}

// LoginOwner authenticates the caller against the channel's fixed owner
// credential and seats them in the owner slot.
func (ch *Channel) LoginOwner(name, password string, caller *User) Reply {
	ch.reg.mu.Lock()
	defer ch.reg.mu.Unlock()

	if !ch.isMemberLocked(caller) {
		return reply(NotAMember,
			irc.NoPrivilegesLine(caller.host, "You must be on the channel to login as the owner."))
	}
	if name != ch.ownerCredential.Name ||
		bcrypt.CompareHashAndPassword(ch.ownerCredential.PasswordHash, []byte(password)) != nil {
		return reply(CredentialMismatch, irc.PasswordMismatchLine(caller.host))
	}
	if ch.owner != nil {
		return reply(AlreadyOwned,
			irc.NoPrivilegesLine(caller.host, "Channel already has an acting owner."))
	}

	ch.owner = caller
	ch.lastOwnerLogin = time.Now()
	ch.scheduledForDeletion = false
	ch.log.Info("owner logged in", "nick", caller.nickname)
	return reply(OK, fmt.Sprintf("You have logged in as the channel owner of %s", ch.name))
}

// Delete marks the channel deleted and delegates removal to the manager.
// Remaining members are detached first.
func (ch *Channel) Delete() {
	ch.reg.mu.Lock()
	defer ch.reg.mu.Unlock()
	ch.deleteLocked()
}

func (ch *Channel) deleteLocked() {
	if ch.deleted {
		return
	}
	ch.deleted = true
	for len(ch.members) > 0 {
		ch.removeUserLocked(ch.members[0], "", QuitUnspecified, 0)
	}
	ch.manager.removeLocked(ch)
	ch.log.Info("channel deleted")
}

// SendNames sends the full current names list to one user.
func (ch *Channel) SendNames(u *User) {
	ch.reg.mu.Lock()
	defer ch.reg.mu.Unlock()
	ch.sendNamesLocked(u)
}

// sendNamesLocked sends the full current names list to one user.
func (ch *Channel) sendNamesLocked(u *User) {
	server := ch.manager.serverName
	u.conn.SendLine(irc.NamesLine(server, u.nickname, ch.name, ch.nicknamesLocked()))
	u.conn.SendLine(irc.NamesEndLine(server, u.nickname, ch.name))
}

// BroadcastLine sends a raw line to every member.
func (ch *Channel) BroadcastLine(line string) {
	ch.reg.mu.Lock()
	defer ch.reg.mu.Unlock()
	ch.broadcastLineLocked(line)
}

func (ch *Channel) broadcastLineLocked(line string) {
	for _, member := range ch.members {
		member.conn.SendLine(line)
	}
}

// BroadcastMessage fans a channel message out to every member except the
// sender.
func (ch *Channel) BroadcastMessage(message string, sender *User) {
	ch.reg.mu.Lock()
	defer ch.reg.mu.Unlock()

	for _, member := range ch.members {
		if member == sender {
			continue
		}
		member.conn.SendLine(irc.PrivmsgLine(sender.address, ch.name, message))
	}
}

// BroadcastNotice sends a channel notice to every member.
func (ch *Channel) BroadcastNotice(notice string) {
	ch.reg.mu.Lock()
	defer ch.reg.mu.Unlock()

	for _, member := range ch.members {
		member.conn.SendLine(irc.NoticeLine(ch.manager.serverName, ch.name, notice))
	}
}
