package addrmgr

import (
	"bufio"
	"log/slog"
	"net/netip"
	"os"
	"strconv"
	"strings"

	"github.com/mudinlove/dibbler/pkg/duid"
)

// Load reads SnapshotPath and reconstructs the tree into s, replacing any
// clients currently held. Recovery is local to the element that fails
// (§4.6): an <AddrAddr> or <AddrPrefix> line whose address text does not
// parse drops only that Resource, and a Client whose duid is missing or
// malformed drops only itself. Numeric attributes are not validated: an
// absent or non-numeric pref or valid reads as Infinity, and any other
// absent or non-numeric attribute reads as 0, without dropping anything.
// EOF inside an IA or Client drops that Client with all its IAs.
// Unknown tags are skipped; <AddrTA> elements are consumed and discarded,
// so IA_TA resources are never reconstructed.
//
// Load returns true if at least one Client was successfully parsed, false
// otherwise; it never returns a process-fatal error, matching the
// reader's failure model in §4.6.
func (s *Store) Load() bool {
	f, err := os.Open(s.SnapshotPath)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Debug("addrmgr: no snapshot to load", "path", s.SnapshotPath)
			return false
		}
		slog.Error("addrmgr: snapshot open failed", "path", s.SnapshotPath, "err", err)
		return false
	}
	defer f.Close()

	r := newSnapshotReader(bufio.NewScanner(f))
	clients := r.parseFile()

	s.mu.Lock()
	s.clients = nil
	s.byDUID = make(map[string]*Client)
	loaded := 0
	for _, c := range clients {
		if err := s.addClientLocked(c); err != nil {
			slog.Error("addrmgr: snapshot: duplicate client duid, dropping", "duid", c.DUID.String())
			continue
		}
		loaded++
	}
	s.mu.Unlock()

	slog.Debug("addrmgr: snapshot loaded", "path", s.SnapshotPath, "clients", loaded)
	return loaded > 0
}

// snapshotReader tokenizes the line-oriented snapshot format by scanning
// each line for the literal substrings documented in §6, rather than
// building a general XML parser — the writer only ever emits the small,
// fixed set of elements the grammar names.
type snapshotReader struct {
	sc   *bufio.Scanner
	line string
	eof  bool
}

func newSnapshotReader(sc *bufio.Scanner) *snapshotReader {
	return &snapshotReader{sc: sc}
}

// next advances to the following line, returning false at EOF.
func (r *snapshotReader) next() bool {
	if r.sc.Scan() {
		r.line = strings.TrimSpace(r.sc.Text())
		return true
	}
	r.eof = true
	return false
}

func (r *snapshotReader) parseFile() []*Client {
	var clients []*Client
	for r.next() {
		switch {
		case strings.Contains(r.line, "<AddrMgr>"):
			continue
		case strings.Contains(r.line, "</AddrMgr>"):
			return clients
		case strings.Contains(r.line, "<timestamp>"):
			continue
		case strings.Contains(r.line, "<AddrClient"):
			if c := r.parseClient(); c != nil {
				clients = append(clients, c)
			}
		default:
			// Unknown top-level tag: skip silently (§4.6).
			continue
		}
	}
	// EOF before "</AddrMgr>" is treated the same as hitting it (§4.6).
	return clients
}

func (r *snapshotReader) parseClient() *Client {
	var d duid.DUID
	var gotDUID bool
	var nas, pds []*IA

	for r.next() {
		switch {
		case strings.Contains(r.line, "</AddrClient>"):
			if !gotDUID {
				slog.Error("addrmgr: snapshot: client missing duid, dropping client")
				return nil
			}
			c := NewClient(d)
			c.na = nas
			c.pd = pds
			return c

		case strings.Contains(r.line, "<duid>"):
			hex, ok := betweenTags(r.line, "<duid>", "</duid>")
			if !ok {
				slog.Error("addrmgr: snapshot: malformed client duid line")
				continue
			}
			parsed, err := duid.ParseHex(hex)
			if err != nil {
				slog.Error("addrmgr: snapshot: malformed client duid", "err", err)
				continue
			}
			d = parsed
			gotDUID = true

		case strings.Contains(r.line, "<AddrIA"):
			if ia := r.parseIA(IANA, "</AddrIA>"); ia != nil {
				if hasIAID(nas, ia.IAID) {
					slog.Error("addrmgr: snapshot: duplicate IA_NA IAID, dropping", "iaid", ia.IAID)
				} else {
					nas = append(nas, ia)
				}
			}

		case strings.Contains(r.line, "<AddrPD"):
			if ia := r.parseIA(IAPD, "</AddrPD>"); ia != nil {
				if hasIAID(pds, ia.IAID) {
					slog.Error("addrmgr: snapshot: duplicate IA_PD IAID, dropping", "iaid", ia.IAID)
				} else {
					pds = append(pds, ia)
				}
			}

		case strings.Contains(r.line, "<AddrTA"):
			// Temporary addresses are parsed and discarded (§4.6): consume
			// the element but build nothing from it.
			r.skipUntil("</AddrTA>")

		default:
			continue
		}
	}
	// EOF before "</AddrClient>": malformed, the Client is dropped (§4.6).
	slog.Error("addrmgr: snapshot: EOF inside client, dropping")
	return nil
}

// parseIA parses either an <AddrIA> (variant IANA) or <AddrPD> (variant
// IAPD) element, whose opening line (already current in r.line) carries
// T1/T2/IAID-or-PDID/iface attributes.
func (r *snapshotReader) parseIA(variant Variant, closeTag string) *IA {
	t1, _ := extractUint(r.line, "T1=")
	t2, _ := extractUint(r.line, "T2=")
	var iaid uint64
	if variant == IAPD {
		iaid, _ = extractUint(r.line, "PDID=")
	} else {
		iaid, _ = extractUint(r.line, "IAID=")
	}
	iface, _ := extractUint(r.line, "iface=")

	ia := NewIA(variant, int32(iface), duid.DUID{}, uint32(t1), uint32(t2), uint32(iaid))
	ia.SetState(StateConfirmMe)

	for r.next() {
		switch {
		case strings.Contains(r.line, closeTag):
			ia.RecomputeTentative()
			return ia

		case strings.Contains(r.line, "<duid>"):
			hex, ok := betweenTags(r.line, "<duid>", "</duid>")
			if !ok {
				slog.Error("addrmgr: snapshot: malformed IA duid line")
				continue
			}
			d, err := duid.ParseHex(hex)
			if err != nil {
				slog.Error("addrmgr: snapshot: malformed IA duid", "err", err)
				continue
			}
			ia.DUID = d

		case variant != IAPD && strings.Contains(r.line, "<AddrAddr"):
			if a := r.parseAddr(); a != nil {
				ia.addrs = append(ia.addrs, a)
			}

		case variant == IAPD && strings.Contains(r.line, "<AddrPrefix"):
			if p := r.parsePrefix(); p != nil {
				ia.prefixes = append(ia.prefixes, p)
			}

		default:
			continue
		}
	}
	// EOF before the closing tag: malformed, this IA is dropped (§4.6).
	slog.Error("addrmgr: snapshot: EOF inside IA, dropping")
	return nil
}

func (r *snapshotReader) parseAddr() *Address {
	line := r.line
	addrText, ok := betweenTags(line, ">", "</AddrAddr>")
	if !ok {
		slog.Error("addrmgr: snapshot: malformed AddrAddr line")
		return nil
	}
	addr, err := netip.ParseAddr(strings.TrimSpace(addrText))
	if err != nil {
		slog.Error("addrmgr: snapshot: malformed address", "err", err)
		return nil
	}

	pref, ok := extractUint(line, "pref=")
	if !ok {
		pref = uint64(Infinity)
	}
	valid, ok := extractUint(line, "valid=")
	if !ok {
		valid = uint64(Infinity)
	}
	ts, _ := extractUint(line, "timestamp=")
	prefixHint, _ := extractUint(line, "prefix=")

	return &Address{
		Addr:              addr,
		PreferredLifetime: uint32(pref),
		ValidLifetime:     uint32(valid),
		Timestamp:         int64(ts),
		Tentative:         TentativeNo,
		PrefixLengthHint:  int(prefixHint),
	}
}

func (r *snapshotReader) parsePrefix() *Prefix {
	line := r.line
	addrText, ok := betweenTags(line, ">", "</AddrPrefix>")
	if !ok {
		slog.Error("addrmgr: snapshot: malformed AddrPrefix line")
		return nil
	}
	base, err := netip.ParseAddr(strings.TrimSpace(addrText))
	if err != nil {
		slog.Error("addrmgr: snapshot: malformed prefix base", "err", err)
		return nil
	}

	pref, ok := extractUint(line, "pref=")
	if !ok {
		pref = uint64(Infinity)
	}
	valid, ok := extractUint(line, "valid=")
	if !ok {
		valid = uint64(Infinity)
	}
	ts, _ := extractUint(line, "timestamp=")
	length, _ := extractUint(line, "length=")

	return &Prefix{
		Base:              base,
		Length:            int(length),
		PreferredLifetime: uint32(pref),
		ValidLifetime:     uint32(valid),
		Timestamp:         int64(ts),
		Tentative:         TentativeNo,
	}
}

// skipUntil consumes lines up to and including one containing tag, or EOF.
func (r *snapshotReader) skipUntil(tag string) {
	for r.next() {
		if strings.Contains(r.line, tag) {
			return
		}
	}
}

// extractUint finds key in line and parses the run of digits immediately
// following it (skipping the `"` that normally separates an XML attribute
// name from its value), mirroring the fixed-offset scan the original
// parser performs for each attribute name in §6.
func extractUint(line, key string) (uint64, bool) {
	idx := strings.Index(line, key)
	if idx < 0 {
		return 0, false
	}
	i := idx + len(key)
	if i < len(line) && line[i] == '"' {
		i++
	}
	start := i
	for i < len(line) && isDigit(line[i]) {
		i++
	}
	if start == i {
		return 0, false
	}
	v, err := strconv.ParseUint(line[start:i], 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func hasIAID(ias []*IA, iaid uint32) bool {
	for _, ia := range ias {
		if ia.IAID == iaid {
			return true
		}
	}
	return false
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// betweenTags extracts the text between the first occurrence of open and
// the following occurrence of close on the same line.
func betweenTags(line, open, close string) (string, bool) {
	oi := strings.Index(line, open)
	if oi < 0 {
		return "", false
	}
	start := oi + len(open)
	ci := strings.Index(line[start:], close)
	if ci < 0 {
		return "", false
	}
	return line[start : start+ci], true
}
