// Package ifaceresolve resolves interface names to the link-layer index
// IAs carry (§3 "iface index (i32)"). IfaceMgr's own socket binding and
// neighbor discovery are out of scope (§1); this package exists only
// because the allocator's callers deal in interface names, not indexes.
package ifaceresolve

import (
	"fmt"

	"github.com/vishvananda/netlink"
)

// Resolver looks up link indexes via a netlink handle, matching the
// teacher's approach of holding one netlink.Handle per process instead of
// opening a fresh one per call.
type Resolver struct {
	handle *netlink.Handle
}

// New opens a netlink handle for interface resolution.
func New() (*Resolver, error) {
	h, err := netlink.NewHandle()
	if err != nil {
		return nil, fmt.Errorf("ifaceresolve: netlink handle: %w", err)
	}
	return &Resolver{handle: h}, nil
}

// Close releases the underlying netlink handle.
func (r *Resolver) Close() {
	r.handle.Close()
}

// Index returns the link index for the named interface, the value an IA
// stores verbatim (§3).
func (r *Resolver) Index(name string) (int32, error) {
	link, err := r.handle.LinkByName(name)
	if err != nil {
		return 0, fmt.Errorf("ifaceresolve: %s: %w", name, err)
	}
	return int32(link.Attrs().Index), nil
}

// Name returns the interface name for a link index, the reverse of Index.
func (r *Resolver) Name(index int32) (string, error) {
	link, err := r.handle.LinkByIndex(int(index))
	if err != nil {
		return "", fmt.Errorf("ifaceresolve: index %d: %w", index, err)
	}
	return link.Attrs().Name, nil
}
