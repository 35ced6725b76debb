package addrmgr

// NeverExpires is the sentinel returned by the Min* aggregators when the
// tree (or the slice they were asked to scan) holds no relevant resource.
// Infinity is reused here rather than introducing a second constant since
// both mean "no timer pending" in this domain.
const NeverExpires = Infinity

// MinT1 returns the smallest T1 value, in seconds, across every IA_NA and
// IA_PD owned by every client (§4.5). The value is the IA's stored T1
// interval as is: the time elapsed since the IA's last refresh is not
// subtracted, so this is not the time remaining until renewal. IA_TA is
// excluded: it is never populated with live resources, so it never drives
// a renew timer. Returns NeverExpires if the store owns no IAs.
func (s *Store) MinT1() uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	min := NeverExpires
	for _, c := range s.clients {
		for _, ia := range c.na {
			if ia.T1 < min {
				min = ia.T1
			}
		}
		for _, ia := range c.pd {
			if ia.T1 < min {
				min = ia.T1
			}
		}
	}
	return min
}

// MinT2 returns the smallest T2 value, in seconds, across every IA_NA and
// IA_PD owned by every client (§4.5). Like MinT1, it reports the stored
// interval, not the time remaining. Returns NeverExpires if the store
// owns no IAs.
func (s *Store) MinT2() uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	min := NeverExpires
	for _, c := range s.clients {
		for _, ia := range c.na {
			if ia.T2 < min {
				min = ia.T2
			}
		}
		for _, ia := range c.pd {
			if ia.T2 < min {
				min = ia.T2
			}
		}
	}
	return min
}

// MinPreferred returns the smallest preferred lifetime, in seconds, across
// every leased address and prefix in the store (§4.5). It reports the
// stored lifetime, not the time remaining since the resource's Timestamp.
// Returns NeverExpires if the store holds no resources.
func (s *Store) MinPreferred() uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	min := NeverExpires
	for _, c := range s.clients {
		for _, ia := range c.na {
			for _, a := range ia.addrs {
				if a.PreferredLifetime < min {
					min = a.PreferredLifetime
				}
			}
		}
		for _, ia := range c.pd {
			for _, p := range ia.prefixes {
				if p.PreferredLifetime < min {
					min = p.PreferredLifetime
				}
			}
		}
	}
	return min
}

// MinValid returns the smallest valid lifetime, in seconds, across every
// leased address and prefix in the store (§4.5). It reports the stored
// lifetime, not the time remaining since the resource's Timestamp.
// Returns NeverExpires if the store holds no resources.
func (s *Store) MinValid() uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	min := NeverExpires
	for _, c := range s.clients {
		for _, ia := range c.na {
			for _, a := range ia.addrs {
				if a.ValidLifetime < min {
					min = a.ValidLifetime
				}
			}
		}
		for _, ia := range c.pd {
			for _, p := range ia.prefixes {
				if p.ValidLifetime < min {
					min = p.ValidLifetime
				}
			}
		}
	}
	return min
}
