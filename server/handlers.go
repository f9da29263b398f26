package server

import (
	"fmt"
	"strings"

	"github.com/crowirc/crowd/irc"
)

// dispatch routes one parsed command to the core. The return value is
// false when the session should end.
func (s *session) dispatch(msg *irc.Message) bool {
	switch msg.Command {
	case "NICK":
		s.handleNick(msg.Params)
	case "USER":
		s.handleUser(msg.Params)
	case "JOIN":
		s.handleJoin(msg.Params)
	case "PART":
		s.handlePart(msg.Params)
	case "WHO":
		s.handleWho(msg.Params)
	case "NAMES":
		s.handleNames(msg.Params)
	case "PRIVMSG":
		s.handlePrivmsg(msg.Params)
	case "OWNER":
		s.handleOwner(msg.Params)
	case "ACCOUNT":
		s.handleAccount(msg.Params)
	case "PING":
		s.handlePing(msg.Params)
	case "PONG":
		// lastActivity was already refreshed by the read loop.
	case "QUIT":
		return false
	default:
		s.SendLine(fmt.Sprintf(":%s 421 %s %s :Unknown command",
			s.srv.cfg.Server.Name, s.targetNick(), msg.Command))
	}
	return true
}

func (s *session) targetNick() string {
	if nick := s.user.Nickname(); nick != "" {
		return nick
	}
	return "*"
}

func (s *session) needParams(command string, params []string, n int) bool {
	if len(params) >= n {
		return true
	}
	s.SendLine(fmt.Sprintf(":%s 461 %s %s :Not enough parameters",
		s.srv.cfg.Server.Name, s.targetNick(), command))
	return false
}

func (s *session) handleNick(params []string) {
	if !s.needParams("NICK", params, 1) {
		return
	}
	s.sendReply(s.srv.registry.SetNickname(s.user, params[0]))
}

func (s *session) handleUser(params []string) {
	if !s.needParams("USER", params, 4) {
		return
	}
	r := s.srv.registry.SetUsername(s.user, params[0], params[3])
	if !r.OK() {
		// Setup failures are hard: report and drop the command.
		s.srv.log.Warn("username rejected", "host", s.host, "kind", r.Kind.String())
		s.sendNotice(r.Line)
	}
}

func (s *session) handleJoin(params []string) {
	if !s.needParams("JOIN", params, 1) {
		return
	}
	ch := s.srv.manager.GetOrCreate(params[0])
	s.sendReply(ch.AddUser(s.user))
}

func (s *session) handlePart(params []string) {
	if !s.needParams("PART", params, 1) {
		return
	}
	ch := s.srv.manager.Get(params[0])
	if ch == nil || !ch.IsMember(s.user) {
		s.SendLine(irc.NotOnChannelLine(s.host, params[0], "You're not on that channel"))
		return
	}
	message := ""
	if len(params) > 1 {
		message = params[1]
	}
	ch.RemoveUser(s.user, message, QuitLeft, 0)
}

func (s *session) handleWho(params []string) {
	if !s.needParams("WHO", params, 1) {
		return
	}
	ch := s.srv.manager.Get(params[0])
	if ch == nil {
		s.SendLine(irc.NotOnChannelLine(s.host, params[0], "You must be on the channel to perform a /who"))
		return
	}
	entries, r := ch.Who(s.user)
	if !r.OK() {
		s.sendReply(r)
		return
	}
	server := s.srv.cfg.Server.Name
	for _, e := range entries {
		s.SendLine(irc.WhoReplyLine(server, s.targetNick(), ch.Name(),
			e.Username, e.Address, e.Nickname, e.Status, e.Hops, e.Realname))
	}
	s.SendLine(irc.WhoEndLine(server, s.targetNick(), ch.Name()))
}

func (s *session) handleNames(params []string) {
	if !s.needParams("NAMES", params, 1) {
		return
	}
	ch := s.srv.manager.Get(params[0])
	if ch == nil {
		return
	}
	ch.SendNames(s.user)
}

func (s *session) handlePrivmsg(params []string) {
	if !s.needParams("PRIVMSG", params, 2) {
		return
	}
	target, text := params[0], params[1]

	if ch := s.srv.manager.Get(target); ch != nil {
		ch.BroadcastMessage(text, s.user)
		return
	}
	if peer := s.srv.registry.FindByNickname(target); peer != nil {
		peer.Conn().SendLine(irc.PrivmsgLine(s.user.Address(), target, text))
		return
	}
	s.SendLine(fmt.Sprintf(":%s 401 %s %s :No such nick/channel",
		s.srv.cfg.Server.Name, s.targetNick(), target))
}

// handleOwner implements OWNER <channel> <name> <password>.
func (s *session) handleOwner(params []string) {
	if !s.needParams("OWNER", params, 3) {
		return
	}
	ch := s.srv.manager.Get(params[0])
	if ch == nil {
		s.SendLine(irc.NotOnChannelLine(s.host, params[0], "You must be on the channel to login as the owner."))
		return
	}
	s.sendReply(ch.LoginOwner(params[1], params[2], s.user))
}

// handleAccount implements the operator-account surface:
//
//	ACCOUNT <channel> LIST [name]
//	ACCOUNT <channel> ADD <name>
//	ACCOUNT <channel> DEL <name>
//	ACCOUNT <channel> SETNAME <name> <newname>
//	ACCOUNT <channel> SETPASS <name> <newpassword>
//	ACCOUNT <channel> LOGIN <name> <password>
func (s *session) handleAccount(params []string) {
	if !s.needParams("ACCOUNT", params, 2) {
		return
	}
	ch := s.srv.manager.Get(params[0])
	if ch == nil {
		s.SendLine(irc.NotOnChannelLine(s.host, params[0], "No such channel"))
		return
	}

	sub := strings.ToUpper(params[1])
	args := params[2:]
	arg := func(i int) string {
		if i < len(args) {
			return args[i]
		}
		return ""
	}

	switch sub {
	case "LIST":
		s.sendReply(ch.GetOperator(s.user, arg(0)))
	case "ADD":
		s.sendReply(ch.AddOperator(s.user, arg(0)))
	case "DEL":
		s.sendReply(ch.DeleteOperator(s.user, arg(0)))
	case "SETNAME":
		s.sendReply(ch.SetOperatorName(s.user, arg(0), arg(1)))
	case "SETPASS":
		s.sendReply(ch.SetOperatorPassword(s.user, arg(0), arg(1)))
	case "LOGIN":
		s.sendReply(ch.LoginOperator(arg(0), arg(1), s.user))
	default:
		s.sendNotice(fmt.Sprintf("Unknown ACCOUNT subcommand '%s'.", params[1]))
	}
}

func (s *session) handlePing(params []string) {
	token := s.srv.cfg.Server.Name
	if len(params) > 0 {
		token = params[0]
	}
	s.SendLine(fmt.Sprintf(":%s PONG %s :%s", s.srv.cfg.Server.Name, s.srv.cfg.Server.Name, token))
}
