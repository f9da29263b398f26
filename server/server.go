package server

import (
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/crowirc/crowd/config"
)

// Server ties the core together with the TCP line transport: it owns the
// listener, the user registry and the channel manager, and runs one
// session per accepted connection.
type Server struct {
	cfg      *config.Config
	log      *slog.Logger
	registry *Registry
	manager  *Manager

	listener  net.Listener
	startTime time.Time
	quit      chan struct{}
	wg        sync.WaitGroup

	mu       sync.Mutex
	sessions map[*session]struct{}
}

// New builds a stopped server from configuration.
func New(cfg *config.Config, log *slog.Logger) *Server {
	registry := NewRegistry(cfg.Limits.MaxClients, cfg.Limits.MaxNicknameLength,
		cfg.Limits.MaxUsernameLength, log)

	seeds := make([]OwnerSeed, len(cfg.Owners))
	for i, entry := range cfg.Owners {
		seeds[i] = OwnerSeed{Channel: entry.Channel, Name: entry.Name, Password: entry.Password}
	}
	manager := NewManager(registry, cfg.Server.Name, cfg.ChannelUltimatum(), seeds, log)

	return &Server{
		cfg:      cfg,
		log:      log,
		registry: registry,
		manager:  manager,
		quit:     make(chan struct{}),
		sessions: make(map[*session]struct{}),
	}
}

// Registry returns the connected-user registry.
func (s *Server) Registry() *Registry { return s.registry }

// Manager returns the channel manager.
func (s *Server) Manager() *Manager { return s.manager }

// Uptime returns how long the server has been accepting connections.
func (s *Server) Uptime() time.Duration {
	if s.startTime.IsZero() {
		return 0
	}
	return time.Since(s.startTime)
}

// Addr returns the bound listen address, nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Start binds the listener and begins accepting connections.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.cfg.ListenAddress())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.ListenAddress(), err)
	}
	s.listener = listener
	s.startTime = time.Now()
	s.log.Info("listening", "addr", listener.Addr().String(), "server", s.cfg.Server.Name)

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Stop closes the listener and disconnects every session.
func (s *Server) Stop() error {
	close(s.quit)
	if s.listener != nil {
		s.listener.Close()
	}

	s.mu.Lock()
	open := make([]*session, 0, len(s.sessions))
	for sess := range s.sessions {
		open = append(open, sess)
	}
	s.mu.Unlock()

	for _, sess := range open {
		sess.close()
	}
	s.wg.Wait()
	return nil
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return
			default:
				s.log.Warn("accept failed", "error", err)
				continue
			}
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn)
		}()
	}
}

func (s *Server) handleConn(conn net.Conn) {
	sess := newSession(s, conn)

	user, r := s.registry.Add(sess)
	if !r.OK() {
		sess.sendNotice(r.Line)
		conn.Close()
		return
	}
	sess.user = user

	s.mu.Lock()
	s.sessions[sess] = struct{}{}
	s.mu.Unlock()

	sess.sendNotice(s.cfg.Server.Welcome)
	sess.run()

	s.mu.Lock()
	delete(s.sessions, sess)
	s.mu.Unlock()
}
