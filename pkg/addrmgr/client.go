package addrmgr

import (
	"net/netip"

	"github.com/mudinlove/dibbler/pkg/duid"
)

// Client is keyed by DUID and owns three disjoint IA collections: one for
// non-temporary addresses (IA_NA), one for temporary addresses (IA_TA,
// parsed from snapshots but never allocated — see the persistence reader),
// and one for delegated prefixes (IA_PD).
type Client struct {
	DUID duid.DUID

	// SPI is the client's Security Parameters Index. No allocation code
	// path sets it today (§9 open question); it is preserved for a future
	// authentication subsystem.
	SPI    uint32
	hasSPI bool

	// LastUnicast is the last unicast address used to reach this client.
	LastUnicast netip.Addr

	na []*IA
	ta []*IA
	pd []*IA
}

// NewClient creates an empty client record for the given DUID.
func NewClient(d duid.DUID) *Client {
	return &Client{DUID: d}
}

// SetSPI records the client's Security Parameters Index.
func (c *Client) SetSPI(spi uint32) {
	c.SPI = spi
	c.hasSPI = true
}

// SPISet reports whether SetSPI has ever been called for this client.
func (c *Client) SPISet() bool {
	return c.hasSPI
}

func (c *Client) collection(variant Variant) *[]*IA {
	switch variant {
	case IANA:
		return &c.na
	case IATA:
		return &c.ta
	case IAPD:
		return &c.pd
	default:
		return &c.na
	}
}

// AddIA adds an IA of the given variant. Returns ErrDuplicateIAID if the
// (variant, IAID) pair is already present (§4.2).
func (c *Client) AddIA(variant Variant, ia *IA) error {
	coll := c.collection(variant)
	for _, existing := range *coll {
		if existing.IAID == ia.IAID {
			return ErrDuplicateIAID
		}
	}
	*coll = append(*coll, ia)
	return nil
}

// GetIA returns the IA of the given variant and IAID, if any.
func (c *Client) GetIA(variant Variant, iaid uint32) (*IA, bool) {
	for _, ia := range *c.collection(variant) {
		if ia.IAID == iaid {
			return ia, true
		}
	}
	return nil, false
}

// DelIA removes the IA of the given variant and IAID. Returns false if it
// was not present.
func (c *Client) DelIA(variant Variant, iaid uint32) bool {
	coll := c.collection(variant)
	for i, ia := range *coll {
		if ia.IAID == iaid {
			*coll = append((*coll)[:i], (*coll)[i+1:]...)
			return true
		}
	}
	return false
}

// Count returns the number of IAs of the given variant.
func (c *Client) Count(variant Variant) int {
	return len(*c.collection(variant))
}

// Iter returns the IAs of the given variant in insertion order. The
// returned slice must not be mutated by the caller.
func (c *Client) Iter(variant Variant) []*IA {
	return *c.collection(variant)
}

// Empty reports whether the client owns no IAs of any variant — the
// condition the Store's delete-empty-clients policy reaps on (§3
// invariant 8).
func (c *Client) Empty() bool {
	return len(c.na) == 0 && len(c.ta) == 0 && len(c.pd) == 0
}

// LeasedAddr reports whether this client has leased addr in any IA_NA.
// IA_TA is never populated (temporary addresses are parsed and discarded
// per §4.6) so it is not consulted here.
func (c *Client) LeasedAddr(addr netip.Addr) bool {
	for _, ia := range c.na {
		if _, ok := ia.GetAddr(addr); ok {
			return true
		}
	}
	return false
}

// LeasedPrefix reports whether this client has leased the (base, length)
// prefix in any IA_PD.
func (c *Client) LeasedPrefix(base netip.Addr, length int) bool {
	for _, ia := range c.pd {
		if _, ok := ia.GetPrefix(base, length); ok {
			return true
		}
	}
	return false
}
