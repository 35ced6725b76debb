package addrmgr

import (
	"net/netip"
	"testing"

	"github.com/mudinlove/dibbler/pkg/logging"
)

// TestSweepRemovesExpiredAddress confirms that Sweep reaps an address once
// its valid lifetime has elapsed, and reaps the now-empty client along
// with it when DeleteEmptyClients is set.
func TestSweepRemovesExpiredAddress(t *testing.T) {
	s, clock := newTestStore()
	d := testDUID(t, "00:03:00:01:aa:bb:cc:dd:ee:ff")
	addr := mustAddr("2001:db8::1")

	clock.unix = 1000
	if err := s.AddAddress(d, netip.Addr{}, 2, 42, 1000, 1600, addr, 1800, 3600, 0, false); err != nil {
		t.Fatalf("AddAddress: %v", err)
	}

	if n := s.Sweep(clock.unix + 100); n != 0 {
		t.Fatalf("Sweep before expiry removed %d, want 0", n)
	}
	if s.CountClients() != 1 {
		t.Fatalf("CountClients() = %d, want 1 before expiry", s.CountClients())
	}

	if n := s.Sweep(clock.unix + 3600); n != 1 {
		t.Fatalf("Sweep at expiry removed %d, want 1", n)
	}
	if s.CountClients() != 0 {
		t.Errorf("CountClients() = %d, want 0: the now-empty client should be reaped", s.CountClients())
	}
}

// TestSweepRemovesExpiredPrefix mirrors TestSweepRemovesExpiredAddress for
// an IA_PD delegation.
func TestSweepRemovesExpiredPrefix(t *testing.T) {
	s, clock := newTestStore()
	d := testDUID(t, "00:03:00:01:aa:bb:cc:dd:ee:ff")
	base := mustAddr("2001:db8:1::")

	clock.unix = 1000
	if err := s.AddPrefix(d, netip.Addr{}, 2, 1, 1000, 1600, base, 1800, 3600, 48, false); err != nil {
		t.Fatalf("AddPrefix: %v", err)
	}

	if n := s.Sweep(clock.unix + 3600); n != 1 {
		t.Fatalf("Sweep at expiry removed %d, want 1", n)
	}
	if s.CountClients() != 0 {
		t.Errorf("CountClients() = %d, want 0", s.CountClients())
	}
}

// TestSweepKeepsNonExpiredSibling ensures Sweep only removes the resource
// that has actually expired, leaving an unrelated sibling address intact.
func TestSweepKeepsNonExpiredSibling(t *testing.T) {
	s, clock := newTestStore()
	d := testDUID(t, "00:03:00:01:aa:bb:cc:dd:ee:ff")
	expiring := mustAddr("2001:db8::1")
	lasting := mustAddr("2001:db8::2")

	clock.unix = 1000
	if err := s.AddAddress(d, netip.Addr{}, 2, 42, 1000, 1600, expiring, 100, 200, 0, false); err != nil {
		t.Fatal(err)
	}
	if err := s.AddAddress(d, netip.Addr{}, 2, 42, 1000, 1600, lasting, 1800, Infinity, 0, false); err != nil {
		t.Fatal(err)
	}

	if n := s.Sweep(clock.unix + 200); n != 1 {
		t.Fatalf("Sweep removed %d, want 1", n)
	}

	c, ok := s.GetClientByDUID(d)
	if !ok {
		t.Fatal("client should survive: it still owns the lasting address")
	}
	ia, ok := c.GetIA(IANA, 42)
	if !ok {
		t.Fatal("IA should survive")
	}
	if ia.CountAddrs() != 1 {
		t.Fatalf("CountAddrs() = %d, want 1", ia.CountAddrs())
	}
	if _, ok := ia.GetAddr(lasting); !ok {
		t.Error("the non-expired address should still be present")
	}
	if _, ok := ia.GetAddr(expiring); ok {
		t.Error("the expired address should have been removed")
	}
}

// TestSweepDeleteEmptyClientsDisabled confirms the swept-empty client is
// kept, not reaped, when DeleteEmptyClients is false.
func TestSweepDeleteEmptyClientsDisabled(t *testing.T) {
	s, clock := newTestStore()
	s.DeleteEmptyClients = false
	d := testDUID(t, "00:03:00:01:aa:bb:cc:dd:ee:ff")
	addr := mustAddr("2001:db8::1")

	clock.unix = 1000
	if err := s.AddAddress(d, netip.Addr{}, 2, 42, 1000, 1600, addr, 1800, 3600, 0, false); err != nil {
		t.Fatal(err)
	}

	if n := s.Sweep(clock.unix + 3600); n != 1 {
		t.Fatalf("Sweep removed %d, want 1", n)
	}
	if _, ok := s.GetClientByDUID(d); !ok {
		t.Error("client should survive the sweep when DeleteEmptyClients is false")
	}
}

// TestSweepEmitsExpireEvent confirms Sweep drives OnLeaseEvent with a
// LeaseEventExpire entry naming the expired resource.
func TestSweepEmitsExpireEvent(t *testing.T) {
	s, clock := newTestStore()
	d := testDUID(t, "00:03:00:01:aa:bb:cc:dd:ee:ff")
	addr := mustAddr("2001:db8::1")

	var got []logging.LeaseEvent
	s.OnLeaseEvent = func(ev logging.LeaseEvent) { got = append(got, ev) }

	clock.unix = 1000
	if err := s.AddAddress(d, netip.Addr{}, 2, 42, 1000, 1600, addr, 1800, 3600, 0, false); err != nil {
		t.Fatal(err)
	}
	got = nil // discard the LEASE_ADD event from AddAddress

	s.Sweep(clock.unix + 3600)

	if len(got) == 0 {
		t.Fatal("expected at least one event from Sweep")
	}
	var sawExpire bool
	for _, ev := range got {
		if ev.Type == logging.LeaseEventExpire && ev.Detail == addr.String() {
			sawExpire = true
		}
	}
	if !sawExpire {
		t.Errorf("events = %+v, want a LeaseEventExpire for %s", got, addr)
	}
}

// TestSweepNoExpiredResourcesIsNoop confirms an empty tree, and a tree with
// only non-expiring (Infinity) resources, sweeps cleanly with no removals.
func TestSweepNoExpiredResourcesIsNoop(t *testing.T) {
	s, clock := newTestStore()
	if n := s.Sweep(clock.unix); n != 0 {
		t.Fatalf("Sweep on an empty store removed %d, want 0", n)
	}

	d := testDUID(t, "00:03:00:01:aa:bb:cc:dd:ee:ff")
	addr := mustAddr("2001:db8::1")
	if err := s.AddAddress(d, netip.Addr{}, 2, 42, 1000, 1600, addr, 1800, Infinity, 0, false); err != nil {
		t.Fatal(err)
	}
	if n := s.Sweep(clock.unix + 1_000_000); n != 0 {
		t.Fatalf("Sweep removed %d resources with Infinity valid lifetime, want 0", n)
	}
}
