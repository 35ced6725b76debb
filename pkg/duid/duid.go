// Package duid wraps the DHCPv6 Unique Identifier type used to key clients
// in the address database.
package duid

import (
	"encoding/hex"
	"strings"

	"github.com/insomniacslk/dhcp/dhcpv6"
)

// DUID identifies a DHCP participant across reboots and interface changes.
// It wraps dhcpv6.DUID so the address database can reuse the wire decoding
// and encoding the DHCPv6 library already implements instead of rolling a
// second byte-string type; Hex and Equal are implemented here over those
// wire bytes.
type DUID struct {
	inner dhcpv6.DUID
}

// FromWire wraps an already-decoded dhcpv6.DUID.
func FromWire(d dhcpv6.DUID) DUID {
	return DUID{inner: d}
}

// Parse decodes a DUID from its wire bytes.
func Parse(b []byte) (DUID, error) {
	d, err := dhcpv6.DUIDFromBytes(b)
	if err != nil {
		return DUID{}, err
	}
	return DUID{inner: d}, nil
}

// ParseHex decodes a DUID from colon-separated hex pairs, the format used
// by the snapshot file (§6: "DUIDs are written as hex pairs separated by
// colons").
func ParseHex(s string) (DUID, error) {
	s = strings.ReplaceAll(s, ":", "")
	b, err := hex.DecodeString(s)
	if err != nil {
		return DUID{}, err
	}
	return Parse(b)
}

// IsZero reports whether this DUID wraps no underlying value.
func (d DUID) IsZero() bool {
	return d.inner == nil
}

// Bytes returns the wire encoding.
func (d DUID) Bytes() []byte {
	if d.inner == nil {
		return nil
	}
	return d.inner.ToBytes()
}

// Hex renders the DUID as colon-separated hex pairs, matching the snapshot
// wire format in §6.
func (d DUID) Hex() string {
	b := d.Bytes()
	parts := make([]string, len(b))
	for i, c := range b {
		parts[i] = hex.EncodeToString([]byte{c})
	}
	return strings.Join(parts, ":")
}

// Equal reports whether two DUIDs have the same wire encoding. This is the
// comparison invariant 1 in §3 relies on ("Within a Store, DUIDs are unique
// across Clients").
func (d DUID) Equal(other DUID) bool {
	return string(d.Bytes()) == string(other.Bytes())
}

// String implements fmt.Stringer using the underlying DHCPv6 DUID's own
// human-readable form.
func (d DUID) String() string {
	if d.inner == nil {
		return "<nil-duid>"
	}
	return d.inner.String()
}
