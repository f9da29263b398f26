package server

// Conn is the per-connection capability the transport lends to the core.
// The core never owns the connection: it writes protocol lines through
// SendLine, reads the remote host through Host, and reports membership
// changes through the join/part callbacks so the transport can track which
// channels its client belongs to.
type Conn interface {
	// SendLine queues one protocol line for delivery to the client.
	SendLine(line string)

	// Host returns the remote address string used in reply prefixes.
	Host() string

	// JoinedChannel tells the transport its client was added to a channel.
	JoinedChannel(channel string)

	// PartedChannel tells the transport its client was removed from a
	// channel.
	PartedChannel(channel string)
}
