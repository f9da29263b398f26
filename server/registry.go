package server

import (
	"fmt"
	"log/slog"
	"sync"
)

// Registry owns every connected user and the single lock that serializes
// all core state transitions. The original runtime delivered one event at a
// time; the lock reintroduces that atomicity for real goroutines, and in
// particular makes the nickname uniqueness check and the commit of a new
// nickname one atomic unit.
type Registry struct {
	mu         sync.Mutex
	users      map[string]*User // keyed by connection ID
	maxClients int
	maxNickLen int
	maxUserLen int
	log        *slog.Logger
}

// NewRegistry creates an empty registry with the injected limits.
func NewRegistry(maxClients, maxNickLen, maxUserLen int, log *slog.Logger) *Registry {
	return &Registry{
		users:      make(map[string]*User),
		maxClients: maxClients,
		maxNickLen: maxNickLen,
		maxUserLen: maxUserLen,
		log:        log,
	}
}

// Add creates the User for a fresh connection. It fails when the server is
// at its client limit.
func (r *Registry) Add(conn Conn) (*User, Reply) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.users) >= r.maxClients {
		return nil, replyf(ServerFull, "Cannot connect: the server is at its limit of %d clients.", r.maxClients)
	}

	u := newUser(r, conn)
	r.users[u.id] = u
	connectedClients.Set(float64(len(r.users)))
	r.log.Debug("user connected", "id", u.id, "host", u.host, "clients", len(r.users))
	return u, Reply{}
}

// Remove destroys the user record on disconnect, detaching it from every
// channel it belongs to with the Disconnected quit reason.
func (r *Registry) Remove(u *User) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[u.id]; !ok {
		return
	}
	for len(u.channels) > 0 {
		u.channels[0].removeUserLocked(u, "", QuitDisconnected, 0)
	}
	delete(r.users, u.id)
	connectedClients.Set(float64(len(r.users)))
	r.log.Debug("user disconnected", "id", u.id, "nick", u.nickname, "clients", len(r.users))
}

// SetUsername runs the write-once username assignment under the registry
// lock, so a member's address never changes mid-read for a concurrent WHO
// or broadcast.
func (r *Registry) SetUsername(u *User, username, realname string) Reply {
	r.mu.Lock()
	defer r.mu.Unlock()
	return u.setUsernameLocked(username, realname)
}

// Count returns the number of connected users.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

// FindByNickname returns the connected user holding a nickname, nil when no
// one does.
func (r *Registry) FindByNickname(nickname string) *User {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.nickname == nickname {
			return u
		}
	}
	return nil
}

// nicknamesInUseLocked snapshots every non-empty nickname currently held by
// a connected user.
func (r *Registry) nicknamesInUseLocked() map[string]bool {
	inUse := make(map[string]bool, len(r.users))
	for _, u := range r.users {
		if u.nickname != "" {
			inUse[u.nickname] = true
		}
	}
	return inUse
}

// String describes the registry for logs.
func (r *Registry) String() string {
	return fmt.Sprintf("registry(%d/%d clients)", r.Count(), r.maxClients)
}
