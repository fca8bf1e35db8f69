package registry

import "sync"

// memoryRegistry is the single in-process presence authority. One mutex
// guards the whole structure; every critical section is O(set size) at
// worst and performs no I/O, so contention stays negligible next to the
// websocket reads that drive it.
type memoryRegistry struct {
	mu     sync.Mutex
	users  map[string]map[string]Conn // user id -> conn id -> conn
	notify TransitionNotifier
}

// NewMemoryRegistry creates an empty in-memory Registry. notify may be
// nil; when set it fires under the registry lock, before the mutating
// call returns.
func NewMemoryRegistry(notify TransitionNotifier) Registry {
	return &memoryRegistry{
		users:  make(map[string]map[string]Conn),
		notify: notify,
	}
}

func (r *memoryRegistry) Add(userID string, conn Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns, ok := r.users[userID]
	if !ok {
		conns = make(map[string]Conn)
		r.users[userID] = conns
	}
	if _, dup := conns[conn.ID()]; dup {
		return false
	}
	conns[conn.ID()] = conn
	if len(conns) == 1 {
		if r.notify != nil {
			r.notify(userID, true)
		}
		return true
	}
	return false
}

func (r *memoryRegistry) Remove(userID string, conn Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns, ok := r.users[userID]
	if !ok {
		return false
	}
	if _, present := conns[conn.ID()]; !present {
		return false
	}
	delete(conns, conn.ID())
	if len(conns) == 0 {
		// The entry must go the instant the last connection does, or
		// OnlineUserIDs reports a stale user.
		delete(r.users, userID)
		if r.notify != nil {
			r.notify(userID, false)
		}
		return true
	}
	return false
}

func (r *memoryRegistry) ConnectionsOf(userID string) []Conn {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns := r.users[userID]
	out := make([]Conn, 0, len(conns))
	for _, c := range conns {
		out = append(out, c)
	}
	return out
}

func (r *memoryRegistry) OnlineUserIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.users))
	for id := range r.users {
		out = append(out, id)
	}
	return out
}
