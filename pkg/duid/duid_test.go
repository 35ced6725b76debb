package duid

import "testing"

func TestParseHexRoundTrip(t *testing.T) {
	cases := []string{
		"00:01:00:01:aa:bb:cc:dd:00:11:22:33:44:55",
		"00:03:00:01:99:88:77:66:55:44",
	}
	for _, hex := range cases {
		t.Run(hex, func(t *testing.T) {
			d, err := ParseHex(hex)
			if err != nil {
				t.Fatalf("ParseHex(%q): %v", hex, err)
			}
			if got := d.Hex(); got != hex {
				t.Errorf("Hex() = %q, want %q", got, hex)
			}
		})
	}
}

func TestParseHexInvalid(t *testing.T) {
	if _, err := ParseHex("not-hex"); err == nil {
		t.Fatal("expected an error for invalid hex input")
	}
}

func TestIsZero(t *testing.T) {
	var d DUID
	if !d.IsZero() {
		t.Error("zero-value DUID should report IsZero() == true")
	}
	d, err := ParseHex("00:01:00:01:aa:bb:cc:dd:00:11:22:33:44:55")
	if err != nil {
		t.Fatal(err)
	}
	if d.IsZero() {
		t.Error("parsed DUID should not report IsZero()")
	}
}

func TestEqual(t *testing.T) {
	a, _ := ParseHex("00:01:00:01:aa:bb:cc:dd:00:11:22:33:44:55")
	b, _ := ParseHex("00:01:00:01:aa:bb:cc:dd:00:11:22:33:44:55")
	c, _ := ParseHex("00:03:00:01:99:88:77:66:55:44")

	if !a.Equal(b) {
		t.Error("identical DUIDs should compare Equal")
	}
	if a.Equal(c) {
		t.Error("distinct DUIDs should not compare Equal")
	}
}
