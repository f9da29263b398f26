package server

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeConn records everything the core pushes at a connection.
type fakeConn struct {
	host   string
	lines  []string
	joined []string
	parted []string
}

func (c *fakeConn) SendLine(line string)      { c.lines = append(c.lines, line) }
func (c *fakeConn) Host() string              { return c.host }
func (c *fakeConn) JoinedChannel(name string) { c.joined = append(c.joined, name) }
func (c *fakeConn) PartedChannel(name string) { c.parted = append(c.parted, name) }

func (c *fakeConn) reset() { c.lines = nil }

func (c *fakeConn) lastLine() string {
	if len(c.lines) == 0 {
		return ""
	}
	return c.lines[len(c.lines)-1]
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestCore(t *testing.T) (*Registry, *Manager) {
	t.Helper()
	reg := NewRegistry(5, 35, 35, discardLogger())
	seeds := []OwnerSeed{{Channel: "#test", Name: "admin", Password: "hunter2"}}
	mgr := NewManager(reg, "crow.test", 7*24*time.Hour, seeds, discardLogger())
	return reg, mgr
}

// connect registers a user, negotiates its nickname and sets its username,
// then drops any lines produced along the way.
func connect(t *testing.T, reg *Registry, nick string) (*User, *fakeConn) {
	t.Helper()
	conn := &fakeConn{host: "10.0.0.9"}
	u, rep := reg.Add(conn)
	require.True(t, rep.OK())
	require.True(t, reg.SetNickname(u, nick).OK())
	require.True(t, reg.SetUsername(u, nick+"user", "Real Name").OK())
	conn.reset()
	return u, conn
}
