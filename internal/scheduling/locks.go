package scheduling

import "sync"

// roomLocks hands out one mutex per room name so that the conflict check
// and the subsequent write execute as a unit with respect to other
// proposals for the same room within this process.  Cross-process
// exclusion is layered on top via an optional RoomLocker (Redis SetNX);
// the store's create path re-checks inside its transaction as a final
// guard.
type roomLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newRoomLocks() *roomLocks {
	return &roomLocks{locks: make(map[string]*sync.Mutex)}
}

// get returns the mutex for a room, creating it on first use.  Mutexes are
// never removed; a university has a bounded set of rooms.
func (r *roomLocks) get(room string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.locks[room]
	if !ok {
		m = &sync.Mutex{}
		r.locks[room] = m
	}
	return m
}
