package addrmgr

import (
	"net/netip"
	"sync"
	"time"

	"github.com/mudinlove/dibbler/pkg/duid"
	"github.com/mudinlove/dibbler/pkg/logging"
)

// Store is the root container owning all Client records. It is the single
// source of truth shared by every message-handling code path.
//
// Concurrency contract (§5): Store is single-writer. All mutating methods
// acquire an exclusive lock; read-only queries (the get/count/iter methods)
// acquire a shared lock and may run concurrently with each other but never
// with a writer. There are no suspension points inside any Store method —
// every operation here is synchronous and bounded. Persistence I/O (Flush,
// Load) is the only blocking work, and it happens outside the lock: the
// writer snapshots the tree into an in-memory buffer under the lock,
// releases it, then performs the actual file write.
type Store struct {
	mu sync.RWMutex

	clients []*Client
	byDUID  map[string]*Client

	// DeleteEmptyClients mirrors dibbler's DeleteEmptyClient flag (§3
	// invariant 8). Defaults to true.
	DeleteEmptyClients bool

	// SnapshotPath is the file the persistence layer reads from and
	// writes to (§4.6). CfgMgr (out of scope) is the usual source of this
	// value; it is a plain field here so callers can set it directly.
	SnapshotPath string

	// Now returns the current time; overridable in tests so timer-related
	// assertions do not depend on wall-clock timing.
	Now func() time.Time

	// OnLeaseEvent, if set, receives a LeaseEvent for every lease
	// lifecycle transition the allocator makes. Optional — nil is a
	// valid, silent default.
	OnLeaseEvent func(logging.LeaseEvent)
}

func (s *Store) emit(ev logging.LeaseEvent) {
	if s.OnLeaseEvent == nil {
		return
	}
	ev.Time = s.Now()
	s.OnLeaseEvent(ev)
}

// NewStore creates an empty Store. deleteEmptyClients mirrors the
// like-named constructor flag in dibbler's TAddrMgr (default true).
func NewStore(snapshotPath string, deleteEmptyClients bool) *Store {
	return &Store{
		byDUID:             make(map[string]*Client),
		DeleteEmptyClients: deleteEmptyClients,
		SnapshotPath:       snapshotPath,
		Now:                time.Now,
	}
}

func (s *Store) now() int64 {
	if s.Now == nil {
		return time.Now().Unix()
	}
	return s.Now().Unix()
}

// AddClient appends a new client. Fails with ErrDuplicateDUID if the DUID
// is already present (§3 invariant 1, §4.1).
func (s *Store) AddClient(c *Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addClientLocked(c)
}

func (s *Store) addClientLocked(c *Client) error {
	key := string(c.DUID.Bytes())
	if _, exists := s.byDUID[key]; exists {
		return ErrDuplicateDUID
	}
	s.clients = append(s.clients, c)
	s.byDUID[key] = c
	return nil
}

// GetClientByDUID returns the client with the given DUID, if any.
func (s *Store) GetClientByDUID(d duid.DUID) (*Client, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byDUID[string(d.Bytes())]
	return c, ok
}

// GetClientBySPI returns the first client (in insertion order) with the
// given SPI, if any.
func (s *Store) GetClientBySPI(spi uint32) (*Client, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.clients {
		if c.hasSPI && c.SPI == spi {
			return c, true
		}
	}
	return nil, false
}

// GetClientByLeasedAddr returns the first client (in insertion order)
// that has addr leased in an IA_NA. Ties are broken by insertion order;
// IA_TA is never consulted since temporary addresses are never allocated
// (§4.6), and IA_PD prefixes are a distinct namespace — see
// GetClientByLeasedPrefix for that.
func (s *Store) GetClientByLeasedAddr(addr netip.Addr) (*Client, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.clients {
		if c.LeasedAddr(addr) {
			return c, true
		}
	}
	return nil, false
}

// GetClientByLeasedPrefix returns the first client (in insertion order)
// that has the (base, length) prefix delegated in an IA_PD.
func (s *Store) GetClientByLeasedPrefix(base netip.Addr, length int) (*Client, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.clients {
		if c.LeasedPrefix(base, length) {
			return c, true
		}
	}
	return nil, false
}

// DelClient removes the client with the given DUID. Idempotent: returns
// false when no such client exists.
func (s *Store) DelClient(d duid.DUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delClientLocked(d)
}

func (s *Store) delClientLocked(d duid.DUID) bool {
	key := string(d.Bytes())
	c, ok := s.byDUID[key]
	if !ok {
		return false
	}
	delete(s.byDUID, key)
	for i, existing := range s.clients {
		if existing == c {
			s.clients = append(s.clients[:i], s.clients[i+1:]...)
			break
		}
	}
	return true
}

// reapIfEmptyLocked removes c if it owns no IAs of any variant and
// DeleteEmptyClients is set (§3 invariant 8). Must be called with the
// write lock held.
func (s *Store) reapIfEmptyLocked(c *Client) {
	if s.DeleteEmptyClients && c.Empty() {
		s.delClientLocked(c.DUID)
	}
}

// CountClients returns the number of clients currently in the store.
func (s *Store) CountClients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Clients returns all clients in stable insertion order. The returned
// slice is a copy of the index; the underlying Client pointers are shared
// with the store and must be treated as read-only by callers outside the
// writer lock.
func (s *Store) Clients() []*Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Client, len(s.clients))
	copy(out, s.clients)
	return out
}
