// Package irc implements the wire-level line format shared by the server
// core and the transport: message parsing, hostmask handling, and the fixed
// reply lines clients parse byte for byte.
package irc

import (
	"fmt"
	"strings"
)

// Message is a single IRC protocol line, split into its parts.
type Message struct {
	Prefix  string
	Command string
	Params  []string
}

// Parse splits a raw line into prefix, command and parameters. It returns
// nil for lines that carry no command.
func Parse(line string) *Message {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return nil
	}

	msg := &Message{}

	if line[0] == ':' {
		prefix, rest, ok := strings.Cut(line[1:], " ")
		if !ok {
			return nil
		}
		msg.Prefix = prefix
		line = rest
	}

	command, rest, _ := strings.Cut(line, " ")
	if command == "" {
		return nil
	}
	msg.Command = strings.ToUpper(command)

	for rest != "" {
		if rest[0] == ':' {
			msg.Params = append(msg.Params, rest[1:])
			break
		}
		param, next, _ := strings.Cut(rest, " ")
		msg.Params = append(msg.Params, param)
		rest = next
	}

	return msg
}

// String renders the message back into a wire line, colon-prefixing the
// trailing parameter when it contains spaces or starts with a colon.
func (m *Message) String() string {
	var b strings.Builder

	if m.Prefix != "" {
		b.WriteString(":")
		b.WriteString(m.Prefix)
		b.WriteString(" ")
	}
	b.WriteString(m.Command)

	for i, param := range m.Params {
		b.WriteString(" ")
		if i == len(m.Params)-1 && (strings.Contains(param, " ") || strings.HasPrefix(param, ":")) {
			b.WriteString(":")
		}
		b.WriteString(param)
	}

	return b.String()
}

// FormatAddress builds the nickname!username@host identity string used as
// the sender field on outbound lines. Unset parts render as "*".
func FormatAddress(nickname, username, host string) string {
	if nickname == "" {
		nickname = "*"
	}
	if username == "" {
		username = "*"
	}
	return fmt.Sprintf("%s!%s@%s", nickname, username, host)
}

// ParseAddress splits a nickname!username@host address. Missing separators
// leave the remaining parts empty.
func ParseAddress(address string) (nickname, username, host string) {
	nickname, rest, ok := strings.Cut(address, "!")
	if !ok {
		return address, "", ""
	}
	username, host, _ = strings.Cut(rest, "@")
	return nickname, username, host
}
