package addrmgr

import (
	"log/slog"
	"net/netip"

	"github.com/mudinlove/dibbler/pkg/logging"
)

// Sweep removes every resource whose valid lifetime has elapsed as of now,
// reaping IAs and Clients that become empty as a result (§3 Lifecycle:
// "destroyed by explicit del or by expiry sweep"). It returns the number
// of resources removed. Sweep holds the store's write lock for its whole
// walk, so it is serialized with allocator calls and never races one;
// cmd/dibblerd calls it periodically from its own ticker goroutine.
func (s *Store) Sweep(now int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	var emptyClients []*Client

	for _, c := range s.clients {
		removed += sweepIAs(c.na, IANA, c, now, s)
		removed += sweepIAs(c.pd, IAPD, c, now, s)

		c.na = reapEmptyIAs(c.na)
		c.pd = reapEmptyIAs(c.pd)

		if c.Empty() {
			emptyClients = append(emptyClients, c)
		}
	}

	if s.DeleteEmptyClients {
		for _, c := range emptyClients {
			s.delClientLocked(c.DUID)
		}
	}

	return removed
}

func sweepIAs(ias []*IA, variant Variant, c *Client, now int64, s *Store) int {
	removed := 0
	for _, ia := range ias {
		switch variant {
		case IANA:
			kept := ia.addrs[:0]
			for _, a := range ia.addrs {
				if a.expired(now) {
					removed++
					slog.Warn("addrmgr: sweep: address expired", "addr", a.Addr, "iaid", ia.IAID, "duid", c.DUID.String())
					s.emit(logging.LeaseEvent{Type: logging.LeaseEventExpire, DUID: c.DUID.Hex(), Variant: variant.String(), IAID: ia.IAID, Detail: a.Addr.String()})
					continue
				}
				kept = append(kept, a)
			}
			ia.addrs = kept
		case IAPD:
			kept := ia.prefixes[:0]
			for _, p := range ia.prefixes {
				if p.expired(now) {
					removed++
					detail := netip.PrefixFrom(p.Base, p.Length).String()
					slog.Warn("addrmgr: sweep: prefix expired", "prefix", detail, "iaid", ia.IAID, "duid", c.DUID.String())
					s.emit(logging.LeaseEvent{Type: logging.LeaseEventExpire, DUID: c.DUID.Hex(), Variant: variant.String(), IAID: ia.IAID, Detail: detail})
					continue
				}
				kept = append(kept, p)
			}
			ia.prefixes = kept
		}
		ia.RecomputeTentative()
	}
	return removed
}

func reapEmptyIAs(ias []*IA) []*IA {
	kept := ias[:0]
	for _, ia := range ias {
		if !ia.Empty() {
			kept = append(kept, ia)
		}
	}
	return kept
}
