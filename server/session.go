package server

import (
	"bufio"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/crowirc/crowd/irc"
)

// session is the transport side of one client connection. It implements
// Conn, lends itself to the core as the user's connection capability, and
// feeds parsed lines into the command dispatch one at a time.
type session struct {
	srv  *Server
	conn net.Conn
	host string
	user *User

	writeMu sync.Mutex

	// channels is the transport's view of membership, maintained through
	// the join/part callbacks.
	channels map[string]bool

	// lastActivity is a unix-nano timestamp, shared between the read loop
	// and the ping loop.
	lastActivity atomic.Int64

	closed    chan struct{}
	closeOnce sync.Once
}

func newSession(srv *Server, conn net.Conn) *session {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		host = conn.RemoteAddr().String()
	}
	s := &session{
		srv:      srv,
		conn:     conn,
		host:     host,
		channels: make(map[string]bool),
		closed:   make(chan struct{}),
	}
	s.lastActivity.Store(time.Now().UnixNano())
	return s
}

// SendLine writes one protocol line, CRLF-terminated.
func (s *session) SendLine(line string) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.Write([]byte(line + "\r\n"))
}

// Host returns the remote host string used in reply prefixes.
func (s *session) Host() string { return s.host }

// JoinedChannel records a membership the core granted.
func (s *session) JoinedChannel(channel string) { s.channels[channel] = true }

// PartedChannel records a membership the core revoked.
func (s *session) PartedChannel(channel string) { delete(s.channels, channel) }

// sendNotice wraps plain text in a server notice.
func (s *session) sendNotice(text string) {
	target := "*"
	if s.user != nil && s.user.Nickname() != "" {
		target = s.user.Nickname()
	}
	s.SendLine(irc.NoticeLine(s.srv.cfg.Server.Name, target, text))
}

// sendReply relays a core reply to the client. Wire-formatted lines go out
// raw; plain text is wrapped in a server notice. A reply may carry several
// newline-separated lines.
func (s *session) sendReply(r Reply) {
	if r.Line == "" {
		return
	}
	for _, line := range strings.Split(r.Line, "\n") {
		if strings.HasPrefix(line, ":") {
			s.SendLine(line)
		} else {
			s.sendNotice(line)
		}
	}
}

// run reads and dispatches lines until the client quits, the connection
// drops, or the ping loop times the session out.
func (s *session) run() {
	defer s.cleanup(QuitDisconnected, 0)

	go s.pingLoop()

	reader := bufio.NewReader(s.conn)
	for {
		raw, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		s.lastActivity.Store(time.Now().UnixNano())

		msg := irc.Parse(strings.TrimSpace(raw))
		if msg == nil {
			continue
		}
		if !s.dispatch(msg) {
			return
		}
	}
}

// pingLoop keeps the connection alive and times out silent clients.
func (s *session) pingLoop() {
	interval := s.srv.cfg.PingInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			idle := time.Since(time.Unix(0, s.lastActivity.Load()))
			if idle > 4*interval {
				s.cleanup(QuitTimeout, int(idle.Seconds()))
				return
			}
			s.SendLine("PING :" + s.srv.cfg.Server.Name)
		case <-s.closed:
			return
		case <-s.srv.quit:
			return
		}
	}
}

// cleanup detaches the user from every channel with the given reason and
// destroys the registry record. Safe to call more than once.
func (s *session) cleanup(reason QuitReason, timeoutSeconds int) {
	s.closeOnce.Do(func() {
		close(s.closed)
		if s.user != nil {
			for _, ch := range s.user.Channels() {
				ch.RemoveUser(s.user, "", reason, timeoutSeconds)
			}
			s.srv.registry.Remove(s.user)
		}
		s.conn.Close()
	})
}

// close tears the session down from the server side.
func (s *session) close() {
	s.cleanup(QuitDisconnected, 0)
}
