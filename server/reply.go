package server

import "fmt"

// Kind tags the outcome of a core operation. The kinds split into two
// groups: recoverable protocol outcomes, which the transport relays and
// moves on from, and hard setup failures, which terminate processing of the
// offending command.
type Kind int

const (
	OK Kind = iota

	// Protocol outcomes.
	NicknameInUse
	ErroneousNickname
	NotAuthorized
	NotAMember
	AccountNotFound
	AccountAlreadyExists
	AlreadyOwned
	CredentialMismatch
	ChannelDeleting
	MissingParameter
	ServerFull

	// Setup validation failures.
	AlreadyHasUsername
	BlankUsername
	UsernameTooLong
	IllegalUsernameCharacters
)

var kindNames = map[Kind]string{
	OK:                        "ok",
	NicknameInUse:             "nickname_in_use",
	ErroneousNickname:         "erroneous_nickname",
	NotAuthorized:             "not_authorized",
	NotAMember:                "not_a_member",
	AccountNotFound:           "account_not_found",
	AccountAlreadyExists:      "account_already_exists",
	AlreadyOwned:              "already_owned",
	CredentialMismatch:        "credential_mismatch",
	ChannelDeleting:           "channel_deleting",
	MissingParameter:          "missing_parameter",
	ServerFull:                "server_full",
	AlreadyHasUsername:        "already_has_username",
	BlankUsername:             "blank_username",
	UsernameTooLong:           "username_too_long",
	IllegalUsernameCharacters: "illegal_username_characters",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Fatal reports whether the kind belongs to the setup-failure group. The
// transport stops processing the offending command on a fatal kind; every
// other kind is scoped to the single request that produced it.
func (k Kind) Fatal() bool {
	return k >= AlreadyHasUsername
}

// Reply is the result of a core operation. The zero value means success
// with nothing to send. When Line is non-empty the caller must forward it
// to the originating connection.
type Reply struct {
	Kind Kind
	Line string
}

// OK reports whether the operation succeeded.
func (r Reply) OK() bool {
	return r.Kind == OK
}

func reply(kind Kind, line string) Reply {
	return Reply{Kind: kind, Line: line}
}

func replyf(kind Kind, format string, args ...any) Reply {
	return Reply{Kind: kind, Line: fmt.Sprintf(format, args...)}
}
