// Package addrmgr implements the address manager: the authoritative
// in-memory database of DHCPv6 leased addresses and delegated prefixes,
// its timer-driven expiry bookkeeping, and its on-disk snapshot format.
//
// The ownership tree is strict: a Store owns Clients, a Client owns IAs
// (one collection per variant: IA_NA, IA_TA, IA_PD), and an IA owns
// Addresses or Prefixes. There is no shared ownership and no cycles.
// All mutating operations are synchronous and expected to run under a
// single logical writer lock — see Store's doc comment for the exact
// concurrency contract.
package addrmgr
