package addrmgr

import (
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestSnapshotRoundTrip is scenario 4: a tree with one client, one IA_NA
// holding two addresses, and one IA_PD holding one prefix survives a
// flush/load cycle, modulo IA state normalizing to CONFIRMME.
func TestSnapshotRoundTrip(t *testing.T) {
	s, clock := newTestStore()
	clock.unix = 5000
	s.SnapshotPath = filepath.Join(t.TempDir(), "snapshot.xml")

	d := testDUID(t, "00:03:00:01:aa:bb:cc:dd:ee:ff")
	if err := s.AddAddress(d, netip.Addr{}, 2, 7, 1000, 1600, mustAddr("2001:db8::1"), 1800, 3600, 0, false); err != nil {
		t.Fatal(err)
	}
	if err := s.AddAddress(d, netip.Addr{}, 2, 7, 1000, 1600, mustAddr("2001:db8::2"), 1800, 3600, 0, false); err != nil {
		t.Fatal(err)
	}
	if err := s.AddPrefix(d, netip.Addr{}, 2, 8, 1000, 1600, mustAddr("2001:db8:abcd::"), 1800, 3600, 48, false); err != nil {
		t.Fatal(err)
	}

	if err := s.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	loaded := NewStore(s.SnapshotPath, true)
	if !loaded.Load() {
		t.Fatal("Load should report success for a snapshot written by Flush")
	}

	if loaded.CountClients() != 1 {
		t.Fatalf("CountClients() = %d, want 1", loaded.CountClients())
	}
	c, ok := loaded.GetClientByDUID(d)
	if !ok {
		t.Fatal("expected the restored client to have the same DUID")
	}

	na, ok := c.GetIA(IANA, 7)
	if !ok {
		t.Fatal("expected restored IA_NA 7")
	}
	if na.CountAddrs() != 2 {
		t.Errorf("restored IA_NA has %d addresses, want 2", na.CountAddrs())
	}
	if na.State != StateConfirmMe {
		t.Errorf("restored IA state = %v, want StateConfirmMe", na.State)
	}
	if _, ok := na.GetAddr(mustAddr("2001:db8::1")); !ok {
		t.Error("missing restored address 2001:db8::1")
	}
	if _, ok := na.GetAddr(mustAddr("2001:db8::2")); !ok {
		t.Error("missing restored address 2001:db8::2")
	}

	pd, ok := c.GetIA(IAPD, 8)
	if !ok {
		t.Fatal("expected restored IA_PD 8")
	}
	if pd.CountPrefixes() != 1 {
		t.Errorf("restored IA_PD has %d prefixes, want 1", pd.CountPrefixes())
	}
	if _, ok := pd.GetPrefix(mustAddr("2001:db8:abcd::"), 48); !ok {
		t.Error("missing restored prefix 2001:db8:abcd::/48")
	}
}

func TestLoadMissingSnapshotReturnsFalse(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "does-not-exist.xml"), true)
	if s.Load() {
		t.Error("Load on a nonexistent snapshot path should return false")
	}
}

// TestMalformedSnapshotRecovery is scenario 6: a snapshot whose second
// client has a malformed duid line, sandwiched between two well-formed
// clients, drops only the malformed one.
func TestMalformedSnapshotRecovery(t *testing.T) {
	snapshot := strings.Join([]string{
		"<AddrMgr>",
		"<timestamp>1000</timestamp>",
		"<AddrClient>",
		"<duid>00:03:00:01:aa:bb:cc:dd:ee:ff</duid>",
		"</AddrClient>",
		"<AddrClient>",
		"<duid>not-hex-at-all</duid>",
		"</AddrClient>",
		"<AddrClient>",
		"<duid>00:03:00:01:77:88:99:aa:bb:cc</duid>",
		"</AddrClient>",
		"</AddrMgr>",
		"",
	}, "\n")

	path := filepath.Join(t.TempDir(), "snapshot.xml")
	if err := os.WriteFile(path, []byte(snapshot), 0644); err != nil {
		t.Fatal(err)
	}

	s := NewStore(path, true)
	if !s.Load() {
		t.Fatal("Load should return true: two of three clients parsed successfully")
	}
	if s.CountClients() != 2 {
		t.Fatalf("CountClients() = %d, want 2", s.CountClients())
	}
	if _, ok := s.GetClientByDUID(testDUID(t, "00:03:00:01:aa:bb:cc:dd:ee:ff")); !ok {
		t.Error("expected the first, well-formed client to survive")
	}
	if _, ok := s.GetClientByDUID(testDUID(t, "00:03:00:01:77:88:99:aa:bb:cc")); !ok {
		t.Error("expected the third, well-formed client to survive")
	}
}

func TestLoadDropsDuplicateIAID(t *testing.T) {
	snapshot := strings.Join([]string{
		"<AddrMgr>",
		"<timestamp>1000</timestamp>",
		"<AddrClient>",
		"<duid>00:03:00:01:aa:bb:cc:dd:ee:ff</duid>",
		"<AddrIA T1=\"1000\" T2=\"1600\" IAID=\"1\" iface=\"2\">",
		"<duid>00:03:00:01:aa:bb:cc:dd:ee:ff</duid>",
		"<AddrAddr timestamp=\"1000\" pref=\"1800\" valid=\"3600\" prefix=\"0\">2001:db8::1</AddrAddr>",
		"</AddrIA>",
		"<AddrIA T1=\"2000\" T2=\"2600\" IAID=\"1\" iface=\"2\">",
		"<duid>00:03:00:01:aa:bb:cc:dd:ee:ff</duid>",
		"<AddrAddr timestamp=\"1000\" pref=\"1800\" valid=\"3600\" prefix=\"0\">2001:db8::2</AddrAddr>",
		"</AddrIA>",
		"</AddrClient>",
		"</AddrMgr>",
		"",
	}, "\n")

	path := filepath.Join(t.TempDir(), "snapshot.xml")
	if err := os.WriteFile(path, []byte(snapshot), 0644); err != nil {
		t.Fatal(err)
	}

	s := NewStore(path, true)
	if !s.Load() {
		t.Fatal("Load should succeed")
	}
	c, ok := s.GetClientByDUID(testDUID(t, "00:03:00:01:aa:bb:cc:dd:ee:ff"))
	if !ok {
		t.Fatal("expected the client to load")
	}
	if c.Count(IANA) != 1 {
		t.Errorf("Count(IANA) = %d, want 1: the duplicate IAID must be dropped", c.Count(IANA))
	}
}

