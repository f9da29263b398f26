package server

import (
	"bufio"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crowirc/crowd/config"
)

func startTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.Server.Name = "crow.test"
	cfg.Server.Port = 0
	cfg.Server.PingIntervalSeconds = 60
	cfg.Owners = []config.OwnerEntry{{Channel: "#test", Name: "admin", Password: "hunter2"}}

	srv := New(cfg, discardLogger())
	require.NoError(t, srv.Start())
	t.Cleanup(func() { srv.Stop() })
	return srv
}

// testClient is a raw socket client for end-to-end exercises.
type testClient struct {
	t    *testing.T
	conn net.Conn
	r    *bufio.Reader
}

func dialTestServer(t *testing.T, srv *Server) *testClient {
	t.Helper()
	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &testClient{t: t, conn: conn, r: bufio.NewReader(conn)}
}

func (c *testClient) send(line string) {
	c.t.Helper()
	_, err := c.conn.Write([]byte(line + "\r\n"))
	require.NoError(c.t, err)
}

// expect reads lines until one contains the substring, skipping keepalive
// traffic. It fails the test after two seconds.
func (c *testClient) expect(substr string) string {
	c.t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		require.NoError(c.t, c.conn.SetReadDeadline(deadline))
		raw, err := c.r.ReadString('\n')
		require.NoError(c.t, err, "waiting for %q", substr)
		line := strings.TrimRight(raw, "\r\n")
		if strings.HasPrefix(line, "PING") {
			continue
		}
		if strings.Contains(line, substr) {
			return line
		}
	}
}

// register runs the usual connection preamble over the socket.
func (c *testClient) register(nick string) {
	c.t.Helper()
	c.expect("Welcome")
	c.send("NICK " + nick)
	c.send("USER " + nick + "user 0 * :Real Name")
}

func TestServerEndToEnd(t *testing.T) {
	srv := startTestServer(t)

	bob := dialTestServer(t, srv)
	bob.register("bob")
	bob.send("JOIN #test")
	bob.expect("JOIN :#test")
	bob.expect("353 bob = #test :bob")
	bob.expect("366 bob #test")

	alice := dialTestServer(t, srv)
	alice.register("alice")
	alice.send("JOIN #test")
	alice.expect("353 alice = #test :bob alice")

	// Bob hears alice arrive, then her message.
	bob.expect(":alice!aliceuser@")
	alice.send("PRIVMSG #test :hello bob")
	line := bob.expect("PRIVMSG #test :hello bob")
	assert.True(t, strings.HasPrefix(line, ":alice!aliceuser@"), line)

	assert.Equal(t, 2, srv.Registry().Count())
	assert.Equal(t, 1, srv.Manager().Count())
}

func TestServerNicknameNegotiation(t *testing.T) {
	srv := startTestServer(t)

	bob := dialTestServer(t, srv)
	bob.register("bob")
	bob.send("JOIN #test")
	bob.expect("366 bob #test")

	intruder := dialTestServer(t, srv)
	intruder.expect("Welcome")
	intruder.send("NICK bob")
	intruder.expect("433 * bob :Nickname is already in use")
	intruder.send("NICK bob")
	intruder.expect("433 * bob :Nickname is already in use")

	// The third attempt hands out a generated nickname.
	intruder.send("NICK bob")
	intruder.expect("A random nickname was generated for you.")
	line := intruder.expect(" NICK ")
	nick := line[strings.LastIndex(line, " ")+1:]
	require.NotEmpty(t, nick)
	assert.NotEqual(t, "bob", nick)
	assert.NotNil(t, srv.Registry().FindByNickname(nick))
}

func TestServerOwnerLogin(t *testing.T) {
	srv := startTestServer(t)

	bob := dialTestServer(t, srv)
	bob.register("bob")
	bob.send("JOIN #test")
	bob.expect("366 bob #test")

	bob.send("OWNER #test admin wrongpass")
	bob.expect("464 * :Password Mismatch")

	bob.send("OWNER #test admin hunter2")
	bob.expect("You have logged in as the channel owner of #test")

	bob.send("ACCOUNT #test ADD mod")
	bob.expect("Add Account: (Channel: #test - Username: mod - Password: ")
}

func TestServerQuit(t *testing.T) {
	srv := startTestServer(t)

	bob := dialTestServer(t, srv)
	bob.register("bob")
	bob.send("JOIN #test")
	bob.expect("366 bob #test")

	alice := dialTestServer(t, srv)
	alice.register("alice")
	alice.send("JOIN #test")
	alice.expect("366 alice #test")

	bob.send("QUIT")
	alice.expect("QUIT :User Quit Network.")

	require.Eventually(t, func() bool {
		return srv.Registry().Count() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestServerFull(t *testing.T) {
	srv := startTestServer(t)

	clients := make([]*testClient, 0, 5)
	for i := 0; i < 5; i++ {
		c := dialTestServer(t, srv)
		c.expect("Welcome")
		clients = append(clients, c)
	}

	extra := dialTestServer(t, srv)
	extra.expect("Cannot connect: the server is at its limit of 5 clients.")
	_ = clients
}
