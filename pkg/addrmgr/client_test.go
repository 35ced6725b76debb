package addrmgr

import "testing"

func TestClientAddIADuplicate(t *testing.T) {
	d := testDUID(t, "00:01:00:01:aa:bb:cc:dd:00:11:22:33:44:55")
	c := NewClient(d)

	ia := NewIA(IANA, 2, d, 1000, 1600, 42)
	if err := c.AddIA(IANA, ia); err != nil {
		t.Fatalf("AddIA: %v", err)
	}
	dup := NewIA(IANA, 2, d, 2000, 2600, 42)
	if err := c.AddIA(IANA, dup); err != ErrDuplicateIAID {
		t.Errorf("AddIA duplicate IAID = %v, want ErrDuplicateIAID", err)
	}
}

func TestClientVariantsAreIndependent(t *testing.T) {
	d := testDUID(t, "00:01:00:01:aa:bb:cc:dd:00:11:22:33:44:55")
	c := NewClient(d)

	if err := c.AddIA(IANA, NewIA(IANA, 2, d, 1000, 1600, 42)); err != nil {
		t.Fatalf("AddIA(IANA): %v", err)
	}
	if err := c.AddIA(IAPD, NewIA(IAPD, 2, d, 1000, 1600, 42)); err != nil {
		t.Fatalf("AddIA(IAPD) with same IAID as an IA_NA should succeed: %v", err)
	}
	if c.Count(IANA) != 1 || c.Count(IAPD) != 1 {
		t.Errorf("Count(IANA)=%d Count(IAPD)=%d, want 1 and 1", c.Count(IANA), c.Count(IAPD))
	}
}

func TestClientLeasedAddrAndPrefix(t *testing.T) {
	d := testDUID(t, "00:01:00:01:aa:bb:cc:dd:00:11:22:33:44:55")
	c := NewClient(d)

	na := NewIA(IANA, 2, d, 1000, 1600, 42)
	addr := mustAddr("2001:db8::1")
	na.addrs = append(na.addrs, &Address{Addr: addr})
	if err := c.AddIA(IANA, na); err != nil {
		t.Fatal(err)
	}

	pd := NewIA(IAPD, 2, d, 1000, 1600, 43)
	pd.prefixes = append(pd.prefixes, &Prefix{Base: mustAddr("2001:db8:1::"), Length: 48})
	if err := c.AddIA(IAPD, pd); err != nil {
		t.Fatal(err)
	}

	if !c.LeasedAddr(addr) {
		t.Error("LeasedAddr should find the address in the IA_NA")
	}
	if c.LeasedAddr(mustAddr("2001:db8::2")) {
		t.Error("LeasedAddr should not find an address never added")
	}
	if !c.LeasedPrefix(mustAddr("2001:db8:1::"), 48) {
		t.Error("LeasedPrefix should find the delegated prefix")
	}
}

func TestClientEmptyAndDelIA(t *testing.T) {
	d := testDUID(t, "00:01:00:01:aa:bb:cc:dd:00:11:22:33:44:55")
	c := NewClient(d)
	if !c.Empty() {
		t.Error("freshly constructed client should be Empty")
	}

	ia := NewIA(IANA, 2, d, 1000, 1600, 42)
	if err := c.AddIA(IANA, ia); err != nil {
		t.Fatal(err)
	}
	if c.Empty() {
		t.Error("client owning an IA should not be Empty")
	}
	if !c.DelIA(IANA, 42) {
		t.Error("DelIA should succeed for a present IA")
	}
	if !c.Empty() {
		t.Error("client should be Empty after its only IA is removed")
	}
}

func TestClientSPI(t *testing.T) {
	d := testDUID(t, "00:01:00:01:aa:bb:cc:dd:00:11:22:33:44:55")
	c := NewClient(d)
	if c.SPISet() {
		t.Error("SPISet should be false before SetSPI is called")
	}
	c.SetSPI(7)
	if !c.SPISet() || c.SPI != 7 {
		t.Errorf("after SetSPI(7): SPISet=%v SPI=%d", c.SPISet(), c.SPI)
	}
}
