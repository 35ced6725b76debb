package addrmgr

import (
	"log/slog"
	"net/netip"

	"github.com/mudinlove/dibbler/pkg/duid"
	"github.com/mudinlove/dibbler/pkg/logging"
)

// AddAddress leases an address on an IA_NA, creating the Client and/or IA
// if they do not exist yet (§4.4). Fails with ErrAlreadyAssigned and makes
// no mutation if the address is already leased anywhere in the tree,
// reaping a Client or IA autovivified for this call if that leaves it
// empty. clientAddr is an optional unicast hint recorded on a newly
// created IA; the zero netip.Addr means no hint.
func (s *Store) AddAddress(clientDUID duid.DUID, clientAddr netip.Addr, iface int32, iaid uint32, t1, t2 uint32,
	addr netip.Addr, pref, valid uint32, prefixLenHint int, quiet bool) error {

	if !addr.IsValid() {
		return ErrNullResource
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	client, existed := s.byDUID[string(clientDUID.Bytes())]
	if !existed {
		client = NewClient(clientDUID)
		if err := s.addClientLocked(client); err != nil {
			// Cannot happen: we just checked existence under the same lock.
			return err
		}
		if !quiet {
			slog.Debug("addrmgr: new client", "duid", clientDUID.String())
		}
		s.emit(logging.LeaseEvent{Type: logging.ClientEventNew, DUID: clientDUID.Hex()})
	}

	ia, ok := client.GetIA(IANA, iaid)
	if !ok {
		ia = NewIA(IANA, iface, clientDUID, t1, t2, iaid)
		ia.SetUnicast(clientAddr)
		if err := client.AddIA(IANA, ia); err != nil {
			return err
		}
		if !quiet {
			slog.Debug("addrmgr: new IA_NA", "iaid", iaid, "duid", clientDUID.String())
		}
	}

	if !s.addressIsFreeLocked(addr) {
		slog.Warn("addrmgr: address already assigned", "addr", addr, "iaid", iaid)
		if ia.Empty() {
			client.DelIA(IANA, iaid)
		}
		s.reapIfEmptyLocked(client)
		return ErrAlreadyAssigned
	}

	ia.addrs = append(ia.addrs, &Address{
		Addr:              addr,
		PreferredLifetime: pref,
		ValidLifetime:     valid,
		Timestamp:         s.now(),
		Tentative:         TentativeNo,
		PrefixLengthHint:  prefixLenHint,
	})
	if !quiet {
		slog.Debug("addrmgr: added address", "addr", addr, "iaid", iaid, "duid", clientDUID.String())
	}
	s.emit(logging.LeaseEvent{Type: logging.LeaseEventAdd, DUID: clientDUID.Hex(), Variant: IANA.String(), IAID: iaid, Detail: addr.String()})
	return nil
}

// AddPrefix leases a prefix on an IA_PD, creating the Client and/or IA if
// they do not exist yet (§4.4). Fails with ErrAlreadyAssigned and makes no
// mutation if the prefix's base address is already leased anywhere in the
// tree, reaping a Client or IA autovivified for this call if that leaves
// it empty. clientAddr is an optional unicast hint recorded on a newly
// created IA; the zero netip.Addr means no hint.
func (s *Store) AddPrefix(clientDUID duid.DUID, clientAddr netip.Addr, iface int32, iaid uint32, t1, t2 uint32,
	base netip.Addr, pref, valid uint32, length int, quiet bool) error {

	if !base.IsValid() {
		return ErrNullResource
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	client, existed := s.byDUID[string(clientDUID.Bytes())]
	if !existed {
		client = NewClient(clientDUID)
		if err := s.addClientLocked(client); err != nil {
			return err
		}
		if !quiet {
			slog.Debug("addrmgr: new client", "duid", clientDUID.String())
		}
		s.emit(logging.LeaseEvent{Type: logging.ClientEventNew, DUID: clientDUID.Hex()})
	}

	ia, ok := client.GetIA(IAPD, iaid)
	if !ok {
		ia = NewIA(IAPD, iface, clientDUID, t1, t2, iaid)
		ia.SetUnicast(clientAddr)
		if err := client.AddIA(IAPD, ia); err != nil {
			return err
		}
		if !quiet {
			slog.Debug("addrmgr: new IA_PD", "iaid", iaid, "duid", clientDUID.String())
		}
	}

	if !s.prefixIsFreeLocked(base) {
		slog.Warn("addrmgr: prefix already assigned", "prefix", base, "length", length, "iaid", iaid)
		if ia.Empty() {
			client.DelIA(IAPD, iaid)
		}
		s.reapIfEmptyLocked(client)
		return ErrAlreadyAssigned
	}

	ia.prefixes = append(ia.prefixes, &Prefix{
		Base:              base,
		Length:            length,
		PreferredLifetime: pref,
		ValidLifetime:     valid,
		Timestamp:         s.now(),
		Tentative:         TentativeNo,
	})
	if !quiet {
		slog.Debug("addrmgr: added prefix", "prefix", base, "length", length, "iaid", iaid, "duid", clientDUID.String())
	}
	s.emit(logging.LeaseEvent{Type: logging.LeaseEventAdd, DUID: clientDUID.Hex(), Variant: IAPD.String(), IAID: iaid, Detail: netip.PrefixFrom(base, length).String()})
	return nil
}

// UpdateAddress refreshes an existing address's lifetimes and the owning
// IA's T1/T2/timestamp. Unlike Add*, Update* never autovivifies a missing
// Client or IA (§4.4): it fails with ErrUnknownClient/ErrUnknownIA.
func (s *Store) UpdateAddress(clientDUID duid.DUID, iaid uint32, t1, t2 uint32,
	addr netip.Addr, pref, valid uint32) error {

	if !addr.IsValid() {
		return ErrNullResource
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	client, ok := s.byDUID[string(clientDUID.Bytes())]
	if !ok {
		slog.Error("addrmgr: update address: unknown client", "duid", clientDUID.String())
		return ErrUnknownClient
	}

	ia, ok := client.GetIA(IANA, iaid)
	if !ok {
		slog.Error("addrmgr: update address: unknown IA", "iaid", iaid, "duid", clientDUID.String())
		return ErrUnknownIA
	}

	now := s.now()
	ia.Timestamp = now
	ia.T1 = t1
	ia.T2 = t2

	a, ok := ia.GetAddr(addr)
	if !ok {
		slog.Warn("addrmgr: update address: unknown address", "addr", addr, "iaid", iaid)
		return ErrUnknownAddress
	}

	a.Timestamp = now
	a.PreferredLifetime = pref
	a.ValidLifetime = valid

	s.emit(logging.LeaseEvent{Type: logging.LeaseEventUpdate, DUID: clientDUID.Hex(), Variant: IANA.String(), IAID: iaid, Detail: addr.String()})
	return nil
}

// UpdatePrefix refreshes an existing prefix's lifetimes and the owning
// IA's T1/T2/timestamp. Like UpdateAddress, it never autovivifies.
//
// The original dibbler source assigns pref into the valid slot a second
// time here (TAddrMgr::updatePrefix calls ptrPrefix->setValid(pref)); this
// is a bug (§9 "Open question — update bug"). This implementation sets
// preferred ← pref and valid ← valid, the corrected behavior this
// specification adopts.
func (s *Store) UpdatePrefix(clientDUID duid.DUID, iaid uint32, t1, t2 uint32,
	base netip.Addr, pref, valid uint32, length int) error {

	if !base.IsValid() {
		return ErrNullResource
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	client, ok := s.byDUID[string(clientDUID.Bytes())]
	if !ok {
		slog.Error("addrmgr: update prefix: unknown client", "duid", clientDUID.String())
		return ErrUnknownClient
	}

	ia, ok := client.GetIA(IAPD, iaid)
	if !ok {
		slog.Error("addrmgr: update prefix: unknown IA", "iaid", iaid, "duid", clientDUID.String())
		return ErrUnknownIA
	}

	now := s.now()
	ia.Timestamp = now
	ia.T1 = t1
	ia.T2 = t2

	p, ok := ia.GetPrefix(base, length)
	if !ok {
		slog.Warn("addrmgr: update prefix: unknown prefix", "prefix", base, "length", length, "iaid", iaid)
		return ErrUnknownPrefix
	}

	p.Timestamp = now
	p.PreferredLifetime = pref
	p.ValidLifetime = valid

	s.emit(logging.LeaseEvent{Type: logging.LeaseEventUpdate, DUID: clientDUID.Hex(), Variant: IAPD.String(), IAID: iaid, Detail: netip.PrefixFrom(base, length).String()})
	return nil
}

// DelAddress releases an address, reaping the owning IA and/or Client if
// they become empty (§4.4). Lookup failure at any level is a non-fatal
// false return with a warning log, matching the original's delPrefix.
func (s *Store) DelAddress(clientDUID duid.DUID, iaid uint32, addr netip.Addr) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	client, ok := s.byDUID[string(clientDUID.Bytes())]
	if !ok {
		slog.Warn("addrmgr: delete address: client not found", "duid", clientDUID.String())
		return false
	}

	ia, ok := client.GetIA(IANA, iaid)
	if !ok {
		slog.Warn("addrmgr: delete address: IA not found", "iaid", iaid, "duid", clientDUID.String())
		return false
	}

	if !ia.DelAddr(addr) {
		slog.Warn("addrmgr: delete address: not assigned", "addr", addr, "iaid", iaid)
		return false
	}
	s.emit(logging.LeaseEvent{Type: logging.LeaseEventDelete, DUID: clientDUID.Hex(), Variant: IANA.String(), IAID: iaid, Detail: addr.String()})

	if ia.Empty() {
		client.DelIA(IANA, iaid)
	}
	s.reapIfEmptyLocked(client)
	return true
}

// DelPrefix releases a prefix, reaping the owning IA and/or Client if they
// become empty (§4.4).
func (s *Store) DelPrefix(clientDUID duid.DUID, iaid uint32, base netip.Addr, length int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	client, ok := s.byDUID[string(clientDUID.Bytes())]
	if !ok {
		slog.Warn("addrmgr: delete prefix: client not found", "duid", clientDUID.String())
		return false
	}

	ia, ok := client.GetIA(IAPD, iaid)
	if !ok {
		slog.Warn("addrmgr: delete prefix: IA not found", "iaid", iaid, "duid", clientDUID.String())
		return false
	}

	if !ia.DelPrefix(base, length) {
		slog.Warn("addrmgr: delete prefix: not assigned", "prefix", base, "length", length, "iaid", iaid)
		return false
	}
	s.emit(logging.LeaseEvent{Type: logging.LeaseEventDelete, DUID: clientDUID.Hex(), Variant: IAPD.String(), IAID: iaid, Detail: netip.PrefixFrom(base, length).String()})

	if ia.Empty() {
		client.DelIA(IAPD, iaid)
	}
	s.reapIfEmptyLocked(client)
	return true
}

// AddressIsFree reports whether addr is not leased in any IA_NA or IA_TA
// of any client. IA_TA is always empty (§4.6) but is included here for
// completeness should that ever change.
func (s *Store) AddressIsFree(addr netip.Addr) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addressIsFreeLocked(addr)
}

// PrefixIsFree reports whether base is not leased (as any length) in any
// IA_PD of any client — length is not considered, matching
// TAddrMgr::prefixIsFree, which compares base addresses only.
func (s *Store) PrefixIsFree(base netip.Addr) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefixIsFreeLocked(base)
}

// addressIsFreeLocked is AddressIsFree's scan; callers must already hold
// s.mu, for either read or write.
func (s *Store) addressIsFreeLocked(addr netip.Addr) bool {
	for _, c := range s.clients {
		if c.LeasedAddr(addr) {
			return false
		}
		for _, ia := range c.ta {
			if _, ok := ia.GetAddr(addr); ok {
				return false
			}
		}
	}
	return true
}

// prefixIsFreeLocked is PrefixIsFree's scan; callers must already hold
// s.mu, for either read or write.
func (s *Store) prefixIsFreeLocked(base netip.Addr) bool {
	for _, c := range s.clients {
		for _, ia := range c.pd {
			for _, p := range ia.prefixes {
				if p.Base == base {
					return false
				}
			}
		}
	}
	return true
}
