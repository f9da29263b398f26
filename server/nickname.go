package server

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/crowirc/crowd/irc"
)

// maxNickAttempts is the number of rejected negotiations a fresh connection
// gets before a fallback nickname is generated for it.
const maxNickAttempts = 2

// maxFallbackTries bounds fallback synthesis. The random filler alone
// supplies enough entropy that the bound is never reached in practice, but
// the loop must not be able to spin forever.
const maxFallbackTries = 100

const fillerAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// SetNickname runs the nickname negotiation for one user. The whole
// negotiation, from the uniqueness check to the commit, holds the registry
// lock so two users can never race to claim the same nickname.
//
// The branches run in a fixed order and commit no partial state: same
// nickname is a silent no-op, then collision handling, then the length
// check, then the reserved-character check, and only then the commit. The
// length branch deliberately does not touch the attempt counter while the
// reserved-character branch does; the asymmetry is inherited behavior that
// clients may depend on.
func (r *Registry) SetNickname(u *User, desired string) Reply {
	r.mu.Lock()
	defer r.mu.Unlock()

	if desired == u.nickname {
		return Reply{}
	}

	inUse := r.nicknamesInUseLocked()

	if inUse[desired] {
		nickCollisionsTotal.Inc()
		if u.nickname == "" {
			if u.nickAttempts < maxNickAttempts {
				u.nickAttempts++
				return reply(NicknameInUse, irc.NicknameInUseLine(u.host, desired))
			}
			return r.assignFallbackLocked(u, inUse)
		}
		return replyf(NicknameInUse, "The nickname %s is already in use.", desired)
	}

	if len(desired) > u.maxNickLen {
		if u.nickname == "" {
			return reply(ErroneousNickname, irc.ErroneousNicknameLine(u.host, u.nickname))
		}
		return reply(ErroneousNickname, irc.NicknameTooLongLine(u.host, desired, u.maxNickLen))
	}

	if strings.ContainsAny(desired, illegalNickChars) {
		if u.nickname == "" {
			u.nickAttempts++
			return reply(ErroneousNickname, irc.ErroneousNicknameLine(u.host, u.nickname))
		}
		return reply(ErroneousNickname, irc.IllegalNicknameLine(u.host, desired))
	}

	var line string
	if u.nickname != "" || u.nickAttempts != 0 {
		// A rename, or the first success after failed negotiations.
		for _, ch := range u.channels {
			ch.renameUserLocked(u, desired)
		}
		u.nickAttempts = 0
		line = irc.NickLine(u.address, desired)
	}

	u.nickname = desired
	u.refreshAddress()
	return reply(OK, line)
}

// assignFallbackLocked synthesizes a unique pseudo-random nickname for a
// connection that exhausted its attempts, commits it, and emits the rename
// notification in place of a third rejection.
func (r *Registry) assignFallbackLocked(u *User, inUse map[string]bool) Reply {
	nick, err := generateFallbackNick(u.id, u.maxNickLen, inUse)
	if err != nil {
		r.log.Error("fallback nickname synthesis failed", "id", u.id, "error", err)
		return reply(ErroneousNickname, irc.ErroneousNicknameLine(u.host, u.nickname))
	}

	prevAddress := u.address
	for _, ch := range u.channels {
		ch.renameUserLocked(u, nick)
	}
	u.nickname = nick
	u.nickAttempts = 0
	u.refreshAddress()
	generatedNicksTotal.Inc()
	r.log.Info("assigned generated nickname", "id", u.id, "nick", nick)

	return reply(OK,
		"Nickname attempts exceeded(2). A random nickname was generated for you.\n"+
			irc.NickLine(prevAddress, nick))
}

// generateFallbackNick derives a candidate from the connection's unique
// token: shuffle, strip reserved characters, truncate. On collision it
// appends random filler, re-shuffles and re-truncates, a bounded number of
// times.
func generateFallbackNick(seed string, maxLen int, inUse map[string]bool) (string, error) {
	nick := shuffle(strings.ReplaceAll(seed, "-", ""))
	nick = truncate(stripReserved(nick), maxLen)

	for try := 0; try < maxFallbackTries; try++ {
		if nick != "" && !inUse[nick] {
			return nick, nil
		}
		nick = truncate(shuffle(nick+randomFiller(15)), maxLen)
	}
	return "", fmt.Errorf("no unique candidate within %d tries", maxFallbackTries)
}

func shuffle(s string) string {
	runes := []rune(s)
	rand.Shuffle(len(runes), func(i, j int) {
		runes[i], runes[j] = runes[j], runes[i]
	})
	return string(runes)
}

func stripReserved(s string) string {
	var b strings.Builder
	for _, c := range s {
		if !strings.ContainsRune(illegalNickChars, c) {
			b.WriteRune(c)
		}
	}
	return b.String()
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}

func randomFiller(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteByte(fillerAlphabet[rand.Intn(len(fillerAlphabet))])
	}
	return b.String()
}
