package registry

// Conn is the registry's view of one live transport connection (a single
// tab, device or socket). The registry holds it only for lookup and
// fan-out; the transport layer owns its lifetime.
type Conn interface {
	// ID identifies this connection uniquely within the process.
	ID() string
	// Enqueue hands data to the connection's outbound queue without
	// blocking. It reports whether the data was accepted; a false return
	// means the frame was dropped (buffer full or connection closing).
	Enqueue(data []byte) bool
}

// TransitionNotifier observes a user's online/offline transitions. The
// registry invokes it inside the same critical section that decides the
// transition, so notifications for one user arrive strictly alternating
// online/offline regardless of how callers interleave. It must not block:
// fan-out behind it has to be a non-blocking enqueue.
type TransitionNotifier func(userID string, online bool)

// Registry maps a logical user id to the set of live connections that user
// currently owns. A user id is present iff it owns at least one connection.
//
// All operations are atomic with respect to each other. The transition
// results of Add and Remove are the presence tracker's source of truth:
// for any user the reported transitions strictly alternate came-online /
// went-offline, starting with came-online, under arbitrary interleaving
// of concurrent calls. Anything that broadcasts those transitions must do
// so through the TransitionNotifier; acting on the returned booleans
// after the call reintroduces the ordering race the notifier closes.
type Registry interface {
	// Add inserts conn into the user's connection set, creating the entry
	// if absent. Adding a connection that is already present is a no-op.
	// It reports whether the user transitioned from offline to online.
	Add(userID string, conn Conn) (cameOnline bool)

	// Remove deletes conn from the user's connection set and deletes the
	// entry when the set becomes empty. Removing an unknown user or
	// connection is a no-op. It reports whether the user transitioned to
	// fully offline.
	Remove(userID string, conn Conn) (wentOffline bool)

	// ConnectionsOf returns a snapshot of the user's live connections.
	// Unknown users yield an empty slice.
	ConnectionsOf(userID string) []Conn

	// OnlineUserIDs returns a snapshot of all user ids that currently own
	// at least one connection.
	OnlineUserIDs() []string
}
