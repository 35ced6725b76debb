package addrmgr

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Flush serializes the tree to SnapshotPath using write-temp-then-rename,
// so a crash mid-write never corrupts the last good snapshot (§4.6, §5).
// The tree is copied into an in-memory buffer under the read lock, which
// is released before the (blocking) file write happens.
func (s *Store) Flush() error {
	buf, err := s.render()
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.SnapshotPath)
	tmp, err := os.CreateTemp(dir, ".addrmgr-*.tmp")
	if err != nil {
		slog.Error("addrmgr: snapshot write failed", "err", err)
		return fmt.Errorf("%w: %v", ErrPersistenceWrite, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		slog.Error("addrmgr: snapshot write failed", "err", err)
		return fmt.Errorf("%w: %v", ErrPersistenceWrite, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		slog.Error("addrmgr: snapshot sync failed", "err", err)
		return fmt.Errorf("%w: %v", ErrPersistenceWrite, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		slog.Error("addrmgr: snapshot close failed", "err", err)
		return fmt.Errorf("%w: %v", ErrPersistenceWrite, err)
	}

	if err := os.Rename(tmpPath, s.SnapshotPath); err != nil {
		os.Remove(tmpPath)
		slog.Error("addrmgr: snapshot rename failed", "err", err)
		return fmt.Errorf("%w: %v", ErrPersistenceWrite, err)
	}

	slog.Debug("addrmgr: snapshot written", "path", s.SnapshotPath, "clients", s.CountClients())
	return nil
}

// render snapshots the tree into the on-disk text format under the read
// lock and returns it as a byte buffer, ready for the (unlocked) write.
func (s *Store) render() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var b strings.Builder
	b.WriteString("<AddrMgr>\n")
	fmt.Fprintf(&b, "<timestamp>%d</timestamp>\n", s.now())

	for _, c := range s.clients {
		fmt.Fprintf(&b, "<AddrClient>\n")
		fmt.Fprintf(&b, "<duid>%s</duid>\n", c.DUID.Hex())

		for _, ia := range c.na {
			writeIA(&b, "AddrIA", ia, "prefix", 0)
		}
		for _, ia := range c.pd {
			writeIAPD(&b, ia)
		}

		b.WriteString("</AddrClient>\n")
	}

	b.WriteString("</AddrMgr>\n")
	return []byte(b.String()), nil
}

func writeIA(b *strings.Builder, tag string, ia *IA, _ string, _ int) {
	fmt.Fprintf(b, "<%s T1=\"%d\" T2=\"%d\" IAID=\"%d\" iface=\"%d\">\n", tag, ia.T1, ia.T2, ia.IAID, ia.Iface)
	fmt.Fprintf(b, "<duid>%s</duid>\n", ia.DUID.Hex())
	for _, a := range ia.addrs {
		fmt.Fprintf(b, "<AddrAddr timestamp=\"%d\" pref=\"%d\" valid=\"%d\" prefix=\"%d\">%s</AddrAddr>\n",
			a.Timestamp, a.PreferredLifetime, a.ValidLifetime, a.PrefixLengthHint, a.Addr.String())
	}
	fmt.Fprintf(b, "</%s>\n", tag)
}

func writeIAPD(b *strings.Builder, ia *IA) {
	fmt.Fprintf(b, "<AddrPD T1=\"%d\" T2=\"%d\" PDID=\"%d\" iface=\"%d\">\n", ia.T1, ia.T2, ia.IAID, ia.Iface)
	fmt.Fprintf(b, "<duid>%s</duid>\n", ia.DUID.Hex())
	for _, p := range ia.prefixes {
		fmt.Fprintf(b, "<AddrPrefix timestamp=\"%d\" pref=\"%d\" valid=\"%d\" length=\"%d\">%s</AddrPrefix>\n",
			p.Timestamp, p.PreferredLifetime, p.ValidLifetime, p.Length, p.Base.String())
	}
	b.WriteString("</AddrPD>\n")
}
