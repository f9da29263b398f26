package server

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sort"
	"strings"

	"github.com/crowirc/crowd/irc"
)

// Permission is one grant an operator account can hold.
type Permission string

const (
	PermBan   Permission = "ban"
	PermKick  Permission = "kick"
	PermMute  Permission = "mute"
	PermTopic Permission = "topic"
	PermMOTD  Permission = "motd"
)

// ValidPermissions lists every grantable permission.
var ValidPermissions = []Permission{PermBan, PermKick, PermMute, PermTopic, PermMOTD}

// OperatorAccount is a secondary, owner-managed credential on a channel.
// The account name is the key in Channel.accounts and is not duplicated
// here.
type OperatorAccount struct {
	user        *User // currently logged-in holder, nil when vacant
	password    string
	permissions map[Permission]bool
}

// User returns the logged-in holder, nil when the account is vacant.
func (a *OperatorAccount) User() *User { return a.user }

// Permissions returns the granted permissions in stable order.
func (a *OperatorAccount) Permissions() []Permission {
	out := make([]Permission, 0, len(a.permissions))
	for p := range a.permissions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// generatePassword returns a strong random operator password: 32 bytes of
// entropy, URL-safe base64.
func generatePassword() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate operator password: %w", err)
	}
	return base64.URLEncoding.EncodeToString(buf), nil
}

// requireOwnerLocked is the capability check gating every operator-account
// mutation: it runs before any other validation.
func (ch *Channel) requireOwnerLocked(caller *User) bool {
	return caller != nil && ch.owner == caller
}

func (ch *Channel) notAuthorized(caller *User) Reply {
	host := ch.manager.serverName
	if caller != nil {
		host = caller.host
	}
	return reply(NotAuthorized,
		irc.NoPrivilegesLine(host, "You must be logged in as the channel owner to manage operator accounts."))
}

// notifyHolderLocked sends a server notice to an account's logged-in
// holder, if any.
func (ch *Channel) notifyHolderLocked(acct *OperatorAccount, text string) {
	if acct.user == nil {
		return
	}
	acct.user.conn.SendLine(irc.NoticeLine(ch.manager.serverName, acct.user.nickname, text))
}

// GetOperator lists all operator account names when name is empty, or the
// details of one account.
func (ch *Channel) GetOperator(caller *User, name string) Reply {
	ch.reg.mu.Lock()
	defer ch.reg.mu.Unlock()

	if !ch.requireOwnerLocked(caller) {
		return ch.notAuthorized(caller)
	}
	if len(ch.accounts) == 0 {
		return replyf(OK, "Get Account: (Channel: %s - There are no operator accounts for this channel.)", ch.name)
	}
	if name == "" {
		names := make([]string, 0, len(ch.accounts))
		for n := range ch.accounts {
			names = append(names, n)
		}
		sort.Strings(names)
		return replyf(OK, "Get Account: (Channel: %s - listing all account names: %s)",
			ch.name, strings.Join(names, ", "))
	}
	acct, ok := ch.accounts[name]
	if !ok {
		return replyf(AccountNotFound,
			"Get Account: (Channel: %s - Username: %s - An account with that name does not exist.)", ch.name, name)
	}

	holder := "none"
	if acct.user != nil {
		holder = acct.user.nickname
	}
	perms := make([]string, 0, len(acct.permissions))
	for _, p := range acct.Permissions() {
		perms = append(perms, string(p))
	}
	return replyf(OK, "Get Account: (Channel: %s - Username: %s - Logged in: %s - Permissions: [%s])",
		ch.name, name, holder, strings.Join(perms, ", "))
}

// AddOperator creates an account with a freshly generated password, an
// empty permission set and no logged-in holder. The password is disclosed
// once, in the returned reply.
func (ch *Channel) AddOperator(caller *User, name string) Reply {
	ch.reg.mu.Lock()
	defer ch.reg.mu.Unlock()

	if !ch.requireOwnerLocked(caller) {
		return ch.notAuthorized(caller)
	}
	if name == "" {
		return replyf(MissingParameter, "Add Account: (Channel: %s - Name cannot be empty.)", ch.name)
	}
	if _, exists := ch.accounts[name]; exists {
		return replyf(AccountAlreadyExists,
			"Add Account: (Channel: %s - Username: %s - That name is already in use.)", ch.name, name)
	}

	password, err := generatePassword()
	if err != nil {
		ch.log.Error("operator password generation failed", "error", err)
		return replyf(MissingParameter, "Add Account: (Channel: %s - Could not generate a password, try again.)", ch.name)
	}
	ch.accounts[name] = &OperatorAccount{
		password:    password,
		permissions: make(map[Permission]bool),
	}
	ch.log.Info("operator account added", "account", name)
	return replyf(OK, "Add Account: (Channel: %s - Username: %s - Password: %s - Account added.)",
		ch.name, name, password)
}

// DeleteOperator removes an account, notifying a logged-in holder first.
func (ch *Channel) DeleteOperator(caller *User, name string) Reply {
	ch.reg.mu.Lock()
	defer ch.reg.mu.Unlock()

	if !ch.requireOwnerLocked(caller) {
		return ch.notAuthorized(caller)
	}
	acct, ok := ch.accounts[name]
	if !ok {
		return replyf(AccountNotFound,
			"Delete Account: (Channel: %s - Username: %s - Account with that name does not exist.)", ch.name, name)
	}

	ch.notifyHolderLocked(acct,
		fmt.Sprintf("%s: The account you were logged into has been deleted.", ch.name))
	delete(ch.accounts, name)
	ch.log.Info("operator account deleted", "account", name)
	return replyf(OK, "Delete Account: (Channel: %s - Username: %s - Account was Deleted.)", ch.name, name)
}

// SetOperatorName renames an account, preserving its holder and
// permissions under the new key. A logged-in holder is notified before the
// change commits.
func (ch *Channel) SetOperatorName(caller *User, name, newName string) Reply {
	ch.reg.mu.Lock()
	defer ch.reg.mu.Unlock()

	if !ch.requireOwnerLocked(caller) {
		return ch.notAuthorized(caller)
	}
	if name == "" || newName == "" {
		return replyf(MissingParameter,
			"Set Account Name: (Channel: %s - You must supply all parameters (name, new name).)", ch.name)
	}
	acct, ok := ch.accounts[name]
	if !ok {
		return replyf(AccountNotFound,
			"Set Account Name: (Channel: %s - Username: %s - Account with that name does not exist.)", ch.name, name)
	}
	if _, taken := ch.accounts[newName]; taken {
		return replyf(AccountAlreadyExists,
			"Set Account Name: (Channel: %s - Username: %s - That name is already in use.)", ch.name, newName)
	}

	ch.notifyHolderLocked(acct,
		fmt.Sprintf("%s: The name of the account you were logged into has been changed to '%s'", ch.name, newName))
	delete(ch.accounts, name)
	ch.accounts[newName] = acct
	ch.log.Info("operator account renamed", "account", name, "new", newName)
	return replyf(OK, "Set Account Name: (Channel: %s - Username: %s - Account name changed.)", ch.name, name)
}

// SetOperatorPassword replaces an account's password. A logged-in holder is
// notified before the change commits.
func (ch *Channel) SetOperatorPassword(caller *User, name, newPassword string) Reply {
	ch.reg.mu.Lock()
	defer ch.reg.mu.Unlock()

	if !ch.requireOwnerLocked(caller) {
		return ch.notAuthorized(caller)
	}
	if name == "" || newPassword == "" {
		return replyf(MissingParameter,
			"Set Account Password: (Channel: %s - You must supply all parameters (name, new password).)", ch.name)
	}
	acct, ok := ch.accounts[name]
	if !ok {
		return replyf(AccountNotFound,
			"Set Account Password: (Channel: %s - Username: %s - Account with that name does not exist.)", ch.name, name)
	}

	ch.notifyHolderLocked(acct,
		fmt.Sprintf("%s: The password of the account you were logged into has been changed.", ch.name))
	acct.password = newPassword
	ch.log.Info("operator password changed", "account", name)
	return replyf(OK, "Set Account Password: (Channel: %s - Username: %s - Account Password changed.)", ch.name, name)
}

// LoginOperator seats a member as the holder of an operator account.
func (ch *Channel) LoginOperator(name, password string, caller *User) Reply {
	ch.reg.mu.Lock()
	defer ch.reg.mu.Unlock()

	if !ch.isMemberLocked(caller) {
		return reply(NotAMember,
			irc.NoPrivilegesLine(caller.host, "You must be on the channel to login to an operator account."))
	}
	acct, ok := ch.accounts[name]
	if !ok {
		return replyf(AccountNotFound,
			"Login Account: (Channel: %s - Username: %s - Account with that name does not exist.)", ch.name, name)
	}
	if acct.password != password {
		return reply(CredentialMismatch, irc.PasswordMismatchLine(caller.host))
	}
	if acct.user != nil {
		return replyf(AlreadyOwned,
			"Login Account: (Channel: %s - Username: %s - That account already has an acting operator.)", ch.name, name)
	}

	acct.user = caller
	ch.log.Info("operator logged in", "account", name, "nick", caller.nickname)
	return replyf(OK, "You are now logged into operator account '%s' on %s", name, ch.name)
}
