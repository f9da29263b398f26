package irc

import (
	"fmt"
	"strings"
)

// The formats below are load-bearing: connected clients match them exactly,
// including the trailing space in NicknameTooLong.

// JoinLine announces a user joining a channel.
func JoinLine(address, channel string) string {
	return fmt.Sprintf(":%s JOIN :%s", address, channel)
}

// NickLine announces a nickname change.
func NickLine(address, newNick string) string {
	return fmt.Sprintf(":%s NICK %s", address, newNick)
}

// PartLine announces a user leaving a channel with a message.
func PartLine(address, channel, message string) string {
	return fmt.Sprintf(":%s PART %s :%s", address, channel, message)
}

// QuitLine announces a user leaving the network.
func QuitLine(address, message string) string {
	return fmt.Sprintf(":%s QUIT :%s", address, message)
}

// PrivmsgLine carries a channel or private message.
func PrivmsgLine(sender, target, text string) string {
	return fmt.Sprintf(":%s PRIVMSG %s :%s", sender, target, text)
}

// NoticeLine carries a server or channel notice.
func NoticeLine(sender, target, text string) string {
	return fmt.Sprintf(":%s NOTICE %s :%s", sender, target, text)
}

// NicknameInUseLine is the 433 rejection sent while the caller has no
// nickname yet.
func NicknameInUseLine(host, desired string) string {
	return fmt.Sprintf(":%s 433 * %s :Nickname is already in use", host, desired)
}

// ErroneousNicknameLine is the 432 rejection sent while the caller has no
// nickname yet. The second field is the caller's current nickname, empty on
// a fresh connection.
func ErroneousNicknameLine(host, nickname string) string {
	return fmt.Sprintf(":%s 432 * %s :Erroneous Nickname", host, nickname)
}

// NicknameTooLongLine is the 436 rejection for an over-length nickname from
// a caller that already has one.
func NicknameTooLongLine(host, desired string, limit int) string {
	return fmt.Sprintf(":%s 436 * %s :Erroneous Nickname - Exceeded max char limit %d ", host, desired, limit)
}

// IllegalNicknameLine is the 436 rejection for reserved characters from a
// caller that already has a nickname.
func IllegalNicknameLine(host, desired string) string {
	return fmt.Sprintf(":%s 436 * %s :Erroneous Nickname - Illegal characters", host, desired)
}

// NamesLine is the 353 names-list reply for a channel.
func NamesLine(server, nickname, channel string, nicknames []string) string {
	return fmt.Sprintf(":%s 353 %s = %s :%s", server, nickname, channel, strings.Join(nicknames, " "))
}

// NamesEndLine is the 366 end-of-names reply.
func NamesEndLine(server, nickname, channel string) string {
	return fmt.Sprintf(":%s 366 %s %s :End of /NAMES list", server, nickname, channel)
}

// NotOnChannelLine is the 442 rejection for commands that require channel
// membership.
func NotOnChannelLine(host, channel, text string) string {
	return fmt.Sprintf(":%s 442 %s :%s", host, channel, text)
}

// PasswordMismatchLine is the 464 credential rejection.
func PasswordMismatchLine(host string) string {
	return fmt.Sprintf(":%s 464 * :Password Mismatch", host)
}

// NoPrivilegesLine is the 481 rejection for privileged operations.
func NoPrivilegesLine(host, text string) string {
	return fmt.Sprintf(":%s 481 * :%s", host, text)
}

// WhoReplyLine is one 352 record of a WHO response.
func WhoReplyLine(server, caller, channel, username, address, nickname, status string, hops int, realname string) string {
	return fmt.Sprintf(":%s 352 %s %s %s %s %s %s %s :%d %s",
		server, caller, channel, username, address, server, nickname, status, hops, realname)
}

// WhoEndLine is the 315 end-of-WHO reply.
func WhoEndLine(server, caller, channel string) string {
	return fmt.Sprintf(":%s 315 %s %s :End of /WHO list", server, caller, channel)
}
