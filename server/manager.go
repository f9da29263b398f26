package server

import (
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// OwnerSeed is a plaintext owner credential from configuration, hashed when
// the channel it names is created. An empty Channel matches any channel
// without a specific entry.
type OwnerSeed struct {
	Channel  string
	Name     string
	Password string
}

// Manager is the channel collaborator: it creates channels on first
// reference, deletes them on request, and sweeps ownerless channels past
// the ultimatum. It shares the registry lock with every other core
// mutation.
type Manager struct {
	reg        *Registry
	channels   map[string]*Channel
	seeds      []OwnerSeed
	serverName string
	ultimatum  time.Duration
	log        *slog.Logger
}

// NewManager creates a channel manager bound to the registry's lock.
func NewManager(reg *Registry, serverName string, ultimatum time.Duration, seeds []OwnerSeed, log *slog.Logger) *Manager {
	return &Manager{
		reg:        reg,
		channels:   make(map[string]*Channel),
		seeds:      seeds,
		serverName: serverName,
		ultimatum:  ultimatum,
		log:        log,
	}
}

// GetOrCreate returns the channel with the given name, creating it on
// first reference.
func (m *Manager) GetOrCreate(name string) *Channel {
	m.reg.mu.Lock()
	defer m.reg.mu.Unlock()

	if ch, ok := m.channels[name]; ok {
		return ch
	}
	ch := newChannel(name, m.credentialFor(name), m)
	m.channels[name] = ch
	channelsGauge.Set(float64(len(m.channels)))
	m.log.Info("channel created", "channel", name)
	return ch
}

// Get returns an existing channel or nil.
func (m *Manager) Get(name string) *Channel {
	m.reg.mu.Lock()
	defer m.reg.mu.Unlock()
	return m.channels[name]
}

// Count returns the number of live channels.
func (m *Manager) Count() int {
	m.reg.mu.Lock()
	defer m.reg.mu.Unlock()
	return len(m.channels)
}

// Names returns the names of every live channel.
func (m *Manager) Names() []string {
	m.reg.mu.Lock()
	defer m.reg.mu.Unlock()

	names := make([]string, 0, len(m.channels))
	for name := range m.channels {
		names = append(names, name)
	}
	return names
}

// removeLocked unmaps a deleted channel. Called by Channel.deleteLocked
// with the registry lock held.
func (m *Manager) removeLocked(ch *Channel) {
	delete(m.channels, ch.name)
	channelsGauge.Set(float64(len(m.channels)))
}

// Sweep walks every channel and advances the deletion ultimatum: an
// ownerless channel whose last owner login is older than the ultimatum is
// first marked scheduled-for-deletion and warned, and deleted on a later
// pass if no owner logs back in. The caller owns the timing; Sweep itself
// never sleeps.
func (m *Manager) Sweep(now time.Time) {
	m.reg.mu.Lock()
	defer m.reg.mu.Unlock()

	for _, ch := range m.channels {
		if ch.owner != nil || now.Sub(ch.lastOwnerLogin) < m.ultimatum {
			continue
		}
		if ch.scheduledForDeletion {
			ch.deleteLocked()
			continue
		}
		ch.scheduledForDeletion = true
		for _, member := range ch.members {
			member.conn.SendLine(
				":" + m.serverName + " NOTICE " + ch.name +
					" :This channel has been ownerless too long and is scheduled for deletion.")
		}
		m.log.Info("channel scheduled for deletion", "channel", ch.name)
	}
}

// credentialFor resolves the owner credential for a new channel: a
// channel-specific seed wins, then the default seed, then an unusable
// random credential so owner login on an unconfigured channel always
// fails.
func (m *Manager) credentialFor(name string) OwnerCredential {
	var fallback *OwnerSeed
	for i := range m.seeds {
		seed := &m.seeds[i]
		if seed.Channel == name {
			return hashSeed(seed)
		}
		if seed.Channel == "" && fallback == nil {
			fallback = seed
		}
	}
	if fallback != nil {
		return hashSeed(fallback)
	}

	password, err := generatePassword()
	if err != nil {
		// A nil hash never compares equal, so login stays impossible.
		return OwnerCredential{Name: "owner"}
	}
	return hashSeed(&OwnerSeed{Name: "owner", Password: password})
}

func hashSeed(seed *OwnerSeed) OwnerCredential {
	hash, err := bcrypt.GenerateFromPassword([]byte(seed.Password), bcrypt.DefaultCost)
	if err != nil {
		// Only reachable for over-long passwords; leave the hash empty so
		// every comparison fails.
		hash = nil
	}
	return OwnerCredential{Name: seed.Name, PasswordHash: hash}
}
