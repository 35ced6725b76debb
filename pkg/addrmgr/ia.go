package addrmgr

import (
	"net/netip"

	"github.com/mudinlove/dibbler/pkg/duid"
)

// Variant distinguishes the three kinds of Identity Association.
type Variant int

const (
	IANA Variant = iota
	IATA
	IAPD
)

func (v Variant) String() string {
	switch v {
	case IANA:
		return "IA_NA"
	case IATA:
		return "IA_TA"
	case IAPD:
		return "IA_PD"
	default:
		return "IA_UNKNOWN"
	}
}

// State is the lifecycle state of an IA. The full dibbler state machine
// (NOTCONFIGURED/CONFIGURED/INPROCESS/CONFIRMME/TENTATIVE/DECLINE/RELEASED)
// drives the message-handling layer, which is out of scope here (§1); the
// address manager only needs to set CONFIRMME on restore (§4.6) and carry
// whatever state the allocator last set.
type State int

const (
	StateConfigured State = iota
	StateInProcess
	StateConfirmMe
	StateReleased
)

// IA is an Identity Association: a scoping entity identified by an IAID
// within a Client, owning either addresses (IA_NA/IA_TA) or prefixes
// (IA_PD), never both.
type IA struct {
	IAID    uint32
	Variant Variant
	Iface   int32
	T1      uint32
	T2      uint32
	State   State

	// Timestamp is the unix time of the last refresh (renew/rebind/confirm).
	// Allocator inserts and the serializer never bump it on their own.
	Timestamp int64

	// DUID is the owning-side DUID copy: the server's DUID when this
	// process is acting as a client, the client's DUID when acting as a
	// server (§3).
	DUID duid.DUID

	// Unicast is an optional unicast address hint for this IA.
	Unicast netip.Addr

	tentative bool

	addrs    []*Address
	prefixes []*Prefix
}

// NewIA constructs an IA of the given variant. Callers add resources with
// AddAddr/AddPrefix according to the variant; calling the wrong one returns
// ErrWrongIAVariant.
func NewIA(variant Variant, iface int32, ownerDUID duid.DUID, t1, t2 uint32, iaid uint32) *IA {
	return &IA{
		IAID:    iaid,
		Variant: variant,
		Iface:   iface,
		T1:      t1,
		T2:      t2,
		DUID:    ownerDUID,
	}
}

// Tentative reports the IA's tentative flag, which is the logical OR of
// its children's tentative flags (recomputed by RecomputeTentative).
func (ia *IA) Tentative() bool {
	return ia.tentative
}

// RecomputeTentative sets the IA's tentative flag from its current
// children: tentative if any child is tentative (§4.3).
func (ia *IA) RecomputeTentative() {
	for _, a := range ia.addrs {
		if a.Tentative == TentativeYes {
			ia.tentative = true
			return
		}
	}
	for _, p := range ia.prefixes {
		if p.Tentative == TentativeYes {
			ia.tentative = true
			return
		}
	}
	ia.tentative = false
}

// SetT1 sets the T1 renew timer.
func (ia *IA) SetT1(t1 uint32) { ia.T1 = t1 }

// SetT2 sets the T2 rebind timer.
func (ia *IA) SetT2(t2 uint32) { ia.T2 = t2 }

// SetState sets the IA's lifecycle state.
func (ia *IA) SetState(s State) { ia.State = s }

// SetTimestamp sets the IA's last-refresh timestamp.
func (ia *IA) SetTimestamp(ts int64) { ia.Timestamp = ts }

// SetUnicast sets the IA's optional unicast address hint.
func (ia *IA) SetUnicast(addr netip.Addr) { ia.Unicast = addr }

// AddAddr adds an address to an IA_NA or IA_TA. Returns ErrWrongIAVariant
// for an IA_PD.
func (ia *IA) AddAddr(a *Address) error {
	if ia.Variant == IAPD {
		return ErrWrongIAVariant
	}
	ia.addrs = append(ia.addrs, a)
	return nil
}

// GetAddr returns the address bitwise-equal to addr, if any.
func (ia *IA) GetAddr(addr netip.Addr) (*Address, bool) {
	for _, a := range ia.addrs {
		if a.Equal(addr) {
			return a, true
		}
	}
	return nil, false
}

// DelAddr removes the address bitwise-equal to addr. Returns false if it
// was not present.
func (ia *IA) DelAddr(addr netip.Addr) bool {
	for i, a := range ia.addrs {
		if a.Equal(addr) {
			ia.addrs = append(ia.addrs[:i], ia.addrs[i+1:]...)
			return true
		}
	}
	return false
}

// CountAddrs returns the number of addresses owned by this IA.
func (ia *IA) CountAddrs() int {
	return len(ia.addrs)
}

// IterAddrs returns the addresses in insertion order. The returned slice
// must not be mutated by the caller.
func (ia *IA) IterAddrs() []*Address {
	return ia.addrs
}

// AddPrefix adds a prefix to an IA_PD. Returns ErrWrongIAVariant for an
// IA_NA or IA_TA.
func (ia *IA) AddPrefix(p *Prefix) error {
	if ia.Variant != IAPD {
		return ErrWrongIAVariant
	}
	ia.prefixes = append(ia.prefixes, p)
	return nil
}

// GetPrefix returns the prefix matching (base, length), if any.
func (ia *IA) GetPrefix(base netip.Addr, length int) (*Prefix, bool) {
	for _, p := range ia.prefixes {
		if p.Equal(base, length) {
			return p, true
		}
	}
	return nil, false
}

// DelPrefix removes the prefix matching (base, length). Returns false if
// it was not present.
func (ia *IA) DelPrefix(base netip.Addr, length int) bool {
	for i, p := range ia.prefixes {
		if p.Equal(base, length) {
			ia.prefixes = append(ia.prefixes[:i], ia.prefixes[i+1:]...)
			return true
		}
	}
	return false
}

// CountPrefixes returns the number of prefixes owned by this IA.
func (ia *IA) CountPrefixes() int {
	return len(ia.prefixes)
}

// IterPrefixes returns the prefixes in insertion order. The returned slice
// must not be mutated by the caller.
func (ia *IA) IterPrefixes() []*Prefix {
	return ia.prefixes
}

// Empty reports whether this IA owns no resources, the condition under
// which a Client reaps it (§3 Lifecycle).
func (ia *IA) Empty() bool {
	return len(ia.addrs) == 0 && len(ia.prefixes) == 0
}
