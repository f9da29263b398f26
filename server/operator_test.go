package server

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ownedChannel returns a #test channel with bob seated as its owner.
func ownedChannel(t *testing.T) (*Manager, *Channel, *User, *fakeConn) {
	t.Helper()
	reg, mgr := newTestCore(t)
	bob, bobConn := connect(t, reg, "bob")
	ch := mgr.GetOrCreate("#test")
	require.True(t, ch.AddUser(bob).OK())
	require.True(t, ch.LoginOwner("admin", "hunter2", bob).OK())
	bobConn.reset()
	return mgr, ch, bob, bobConn
}

func TestOperatorRequiresOwner(t *testing.T) {
	_, ch, _, _ := ownedChannel(t)
	reg := ch.reg
	alice, _ := connect(t, reg, "alice")
	require.True(t, ch.AddUser(alice).OK())

	// Membership is not enough: every mutation demands the owner seat.
	for name, rep := range map[string]Reply{
		"get":     ch.GetOperator(alice, ""),
		"add":     ch.AddOperator(alice, "mod"),
		"delete":  ch.DeleteOperator(alice, "mod"),
		"setname": ch.SetOperatorName(alice, "mod", "mod2"),
		"setpass": ch.SetOperatorPassword(alice, "mod", "secret"),
	} {
		assert.Equal(t, NotAuthorized, rep.Kind, name)
		assert.Contains(t, rep.Line, "481", name)
	}

	// A nil caller is refused the same way, not a crash.
	rep := ch.AddOperator(nil, "mod")
	assert.Equal(t, NotAuthorized, rep.Kind)
	assert.Empty(t, ch.accounts)
}

func TestAddOperator(t *testing.T) {
	_, ch, bob, _ := ownedChannel(t)

	rep := ch.AddOperator(bob, "")
	assert.Equal(t, MissingParameter, rep.Kind)

	rep = ch.AddOperator(bob, "mod")
	require.True(t, rep.OK())
	assert.Contains(t, rep.Line, "Add Account: (Channel: #test - Username: mod - Password: ")
	assert.Contains(t, rep.Line, "Account added.)")

	// The generated password is disclosed exactly once, here.
	_, after, found := strings.Cut(rep.Line, "Password: ")
	require.True(t, found)
	password := strings.TrimSuffix(after, " - Account added.)")
	assert.Len(t, password, 44, "32 bytes of entropy, base64")

	rep = ch.AddOperator(bob, "mod")
	assert.Equal(t, AccountAlreadyExists, rep.Kind)
}

func TestGetOperator(t *testing.T) {
	_, ch, bob, _ := ownedChannel(t)

	rep := ch.GetOperator(bob, "")
	require.True(t, rep.OK())
	assert.Equal(t, "Get Account: (Channel: #test - There are no operator accounts for this channel.)", rep.Line)

	require.True(t, ch.AddOperator(bob, "mod").OK())
	require.True(t, ch.AddOperator(bob, "helper").OK())

	rep = ch.GetOperator(bob, "")
	require.True(t, rep.OK())
	assert.Equal(t, "Get Account: (Channel: #test - listing all account names: helper, mod)", rep.Line)

	rep = ch.GetOperator(bob, "mod")
	require.True(t, rep.OK())
	assert.Equal(t, "Get Account: (Channel: #test - Username: mod - Logged in: none - Permissions: [])", rep.Line)

	rep = ch.GetOperator(bob, "ghost")
	assert.Equal(t, AccountNotFound, rep.Kind)
}

func TestLoginOperator(t *testing.T) {
	_, ch, bob, _ := ownedChannel(t)
	reg := ch.reg
	alice, _ := connect(t, reg, "alice")
	carol, _ := connect(t, reg, "carol")

	rep := ch.AddOperator(bob, "mod")
	require.True(t, rep.OK())
	_, after, _ := strings.Cut(rep.Line, "Password: ")
	password := strings.TrimSuffix(after, " - Account added.)")

	rep = ch.LoginOperator("mod", password, alice)
	assert.Equal(t, NotAMember, rep.Kind)

	require.True(t, ch.AddUser(alice).OK())
	require.True(t, ch.AddUser(carol).OK())

	rep = ch.LoginOperator("ghost", password, alice)
	assert.Equal(t, AccountNotFound, rep.Kind)
	rep = ch.LoginOperator("mod", "wrong", alice)
	assert.Equal(t, CredentialMismatch, rep.Kind)

	rep = ch.LoginOperator("mod", password, alice)
	require.True(t, rep.OK())
	assert.Same(t, alice, ch.accounts["mod"].User())

	rep = ch.LoginOperator("mod", password, carol)
	assert.Equal(t, AlreadyOwned, rep.Kind)
	assert.Same(t, alice, ch.accounts["mod"].User())
}

func TestDeleteOperatorNotifiesHolder(t *testing.T) {
	_, ch, bob, _ := ownedChannel(t)
	reg := ch.reg
	alice, aliceConn := connect(t, reg, "alice")
	require.True(t, ch.AddUser(alice).OK())

	rep := ch.AddOperator(bob, "mod")
	require.True(t, rep.OK())
	_, after, _ := strings.Cut(rep.Line, "Password: ")
	password := strings.TrimSuffix(after, " - Account added.)")
	require.True(t, ch.LoginOperator("mod", password, alice).OK())
	aliceConn.reset()

	rep = ch.DeleteOperator(bob, "ghost")
	assert.Equal(t, AccountNotFound, rep.Kind)

	rep = ch.DeleteOperator(bob, "mod")
	require.True(t, rep.OK())
	assert.Equal(t, "Delete Account: (Channel: #test - Username: mod - Account was Deleted.)", rep.Line)
	assert.Equal(t,
		[]string{":crow.test NOTICE alice :#test: The account you were logged into has been deleted."},
		aliceConn.lines)
}

func TestSetOperatorName(t *testing.T) {
	_, ch, bob, _ := ownedChannel(t)
	reg := ch.reg
	alice, aliceConn := connect(t, reg, "alice")
	require.True(t, ch.AddUser(alice).OK())

	rep := ch.AddOperator(bob, "mod")
	require.True(t, rep.OK())
	_, after, _ := strings.Cut(rep.Line, "Password: ")
	password := strings.TrimSuffix(after, " - Account added.)")
	require.True(t, ch.AddOperator(bob, "helper").OK())
	require.True(t, ch.LoginOperator("mod", password, alice).OK())
	aliceConn.reset()

	rep = ch.SetOperatorName(bob, "", "mod2")
	assert.Equal(t, MissingParameter, rep.Kind)
	rep = ch.SetOperatorName(bob, "ghost", "mod2")
	assert.Equal(t, AccountNotFound, rep.Kind)
	rep = ch.SetOperatorName(bob, "mod", "helper")
	assert.Equal(t, AccountAlreadyExists, rep.Kind)

	rep = ch.SetOperatorName(bob, "mod", "mod2")
	require.True(t, rep.OK())
	assert.Equal(t,
		[]string{":crow.test NOTICE alice :#test: The name of the account you were logged into has been changed to 'mod2'"},
		aliceConn.lines)

	// The account survives under the new key with its holder and password.
	acct := ch.accounts["mod2"]
	require.NotNil(t, acct)
	assert.Same(t, alice, acct.User())
	assert.Nil(t, ch.accounts["mod"])
	rep = ch.LoginOperator("mod2", password, alice)
	assert.Equal(t, AlreadyOwned, rep.Kind, "holder still seated after the rename")
}

func TestSetOperatorPassword(t *testing.T) {
	_, ch, bob, _ := ownedChannel(t)
	reg := ch.reg
	alice, aliceConn := connect(t, reg, "alice")
	require.True(t, ch.AddUser(alice).OK())
	require.True(t, ch.AddOperator(bob, "mod").OK())
	aliceConn.reset()

	rep := ch.SetOperatorPassword(bob, "mod", "")
	assert.Equal(t, MissingParameter, rep.Kind)

	rep = ch.SetOperatorPassword(bob, "mod", "newsecret")
	require.True(t, rep.OK())
	assert.Empty(t, aliceConn.lines, "vacant accounts notify no one")

	rep = ch.LoginOperator("mod", "newsecret", alice)
	assert.True(t, rep.OK())
}

func TestOperatorHolderClearedOnLeave(t *testing.T) {
	_, ch, bob, _ := ownedChannel(t)
	reg := ch.reg
	alice, _ := connect(t, reg, "alice")
	require.True(t, ch.AddUser(alice).OK())

	rep := ch.AddOperator(bob, "mod")
	require.True(t, rep.OK())
	_, after, _ := strings.Cut(rep.Line, "Password: ")
	password := strings.TrimSuffix(after, " - Account added.)")
	require.True(t, ch.LoginOperator("mod", password, alice).OK())

	ch.RemoveUser(alice, "", QuitDisconnected, 0)
	assert.Nil(t, ch.accounts["mod"].User(), "the seat does not dangle after the holder leaves")
}
