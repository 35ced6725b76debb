// dibbler-shell is a local interactive console over an in-process address
// manager: it loads a snapshot, lets an operator inspect and mutate
// leases by hand, and flushes on exit. It talks to a *addrmgr.Store
// directly rather than over a network API.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/netip"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/mudinlove/dibbler/pkg/addrmgr"
	"github.com/mudinlove/dibbler/pkg/config"
	"github.com/mudinlove/dibbler/pkg/duid"
)

func main() {
	configFile := flag.String("config", "/etc/dibbler/dibblerd.conf", "settings file path")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	settings := config.DefaultSettings()
	if data, err := os.ReadFile(*configFile); err == nil {
		if parsed, err := config.Parse(string(data)); err == nil {
			settings = parsed
		}
	}

	store := addrmgr.NewStore(settings.SnapshotPath, settings.DeleteEmptyClients)
	if store.Load() {
		fmt.Printf("loaded %d client(s) from %s\n", store.CountClients(), settings.SnapshotPath)
	} else {
		fmt.Printf("starting with an empty address database (%s)\n", settings.SnapshotPath)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "dibbler> ",
		HistoryFile:     "/tmp/dibbler_shell_history",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "dibbler-shell: readline: %v\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	sh := &shell{store: store, out: rl.Stdout()}

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}
		if err := sh.dispatch(line); err != nil {
			fmt.Fprintln(sh.out, "error:", err)
		}
	}

	if err := store.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "dibbler-shell: final flush: %v\n", err)
	}
}

type shell struct {
	store *addrmgr.Store
	out   io.Writer
}

func (s *shell) dispatch(line string) error {
	parts := strings.Fields(line)
	switch parts[0] {
	case "show":
		return s.handleShow(parts[1:])
	case "add":
		return s.handleAdd(parts[1:])
	case "del":
		return s.handleDel(parts[1:])
	case "flush":
		return s.store.Flush()
	case "help", "?":
		s.printHelp()
		return nil
	default:
		return fmt.Errorf("unknown command: %s (try 'help')", parts[0])
	}
}

func (s *shell) printHelp() {
	fmt.Fprintln(s.out, "show clients                                        list every client")
	fmt.Fprintln(s.out, "show client <duid-hex>                              show one client's IAs")
	fmt.Fprintln(s.out, "show timers                                         show min T1/T2/pref/valid")
	fmt.Fprintln(s.out, "add address <duid> <iface> <iaid> <addr> <pref> <valid>")
	fmt.Fprintln(s.out, "add prefix  <duid> <iface> <iaid> <prefix/len> <pref> <valid>")
	fmt.Fprintln(s.out, "del address <duid> <iaid> <addr>")
	fmt.Fprintln(s.out, "del prefix  <duid> <iaid> <prefix/len>")
	fmt.Fprintln(s.out, "flush                                               write the snapshot now")
	fmt.Fprintln(s.out, "quit")
}

func (s *shell) handleShow(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: show {clients|client <duid>|timers}")
	}
	switch args[0] {
	case "clients":
		for _, c := range s.store.Clients() {
			fmt.Fprintf(s.out, "%s  na=%d ta=%d pd=%d\n", c.DUID.Hex(),
				c.Count(addrmgr.IANA), c.Count(addrmgr.IATA), c.Count(addrmgr.IAPD))
		}
		return nil
	case "client":
		if len(args) < 2 {
			return fmt.Errorf("usage: show client <duid-hex>")
		}
		return s.showClient(args[1])
	case "timers":
		fmt.Fprintf(s.out, "min_t1=%d min_t2=%d min_preferred=%d min_valid=%d\n",
			s.store.MinT1(), s.store.MinT2(), s.store.MinPreferred(), s.store.MinValid())
		return nil
	default:
		return fmt.Errorf("unknown show target: %s", args[0])
	}
}

func (s *shell) showClient(hex string) error {
	d, err := duid.ParseHex(hex)
	if err != nil {
		return fmt.Errorf("duid: %w", err)
	}
	c, ok := s.store.GetClientByDUID(d)
	if !ok {
		return fmt.Errorf("no such client")
	}
	for _, ia := range c.Iter(addrmgr.IANA) {
		fmt.Fprintf(s.out, "IA_NA iaid=%d iface=%d T1=%d T2=%d\n", ia.IAID, ia.Iface, ia.T1, ia.T2)
		for _, a := range ia.IterAddrs() {
			fmt.Fprintf(s.out, "  %s pref=%d valid=%d\n", a.Addr, a.PreferredLifetime, a.ValidLifetime)
		}
	}
	for _, ia := range c.Iter(addrmgr.IAPD) {
		fmt.Fprintf(s.out, "IA_PD iaid=%d iface=%d T1=%d T2=%d\n", ia.IAID, ia.Iface, ia.T1, ia.T2)
		for _, p := range ia.IterPrefixes() {
			fmt.Fprintf(s.out, "  %s pref=%d valid=%d\n", p.Net(), p.PreferredLifetime, p.ValidLifetime)
		}
	}
	return nil
}

func (s *shell) handleAdd(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: add {address|prefix} ...")
	}
	switch args[0] {
	case "address":
		if len(args) != 7 {
			return fmt.Errorf("usage: add address <duid> <iface> <iaid> <addr> <pref> <valid>")
		}
		d, err := duid.ParseHex(args[1])
		if err != nil {
			return err
		}
		iface, err := strconv.ParseInt(args[2], 10, 32)
		if err != nil {
			return err
		}
		iaid, err := strconv.ParseUint(args[3], 10, 32)
		if err != nil {
			return err
		}
		addr, err := netip.ParseAddr(args[4])
		if err != nil {
			return err
		}
		pref, err := strconv.ParseUint(args[5], 10, 32)
		if err != nil {
			return err
		}
		valid, err := strconv.ParseUint(args[6], 10, 32)
		if err != nil {
			return err
		}
		return s.store.AddAddress(d, netip.Addr{}, int32(iface), uint32(iaid), uint32(pref), uint32(valid),
			addr, uint32(pref), uint32(valid), 0, false)

	case "prefix":
		if len(args) != 7 {
			return fmt.Errorf("usage: add prefix <duid> <iface> <iaid> <prefix/len> <pref> <valid>")
		}
		d, err := duid.ParseHex(args[1])
		if err != nil {
			return err
		}
		iface, err := strconv.ParseInt(args[2], 10, 32)
		if err != nil {
			return err
		}
		iaid, err := strconv.ParseUint(args[3], 10, 32)
		if err != nil {
			return err
		}
		pfx, err := netip.ParsePrefix(args[4])
		if err != nil {
			return err
		}
		pref, err := strconv.ParseUint(args[5], 10, 32)
		if err != nil {
			return err
		}
		valid, err := strconv.ParseUint(args[6], 10, 32)
		if err != nil {
			return err
		}
		return s.store.AddPrefix(d, netip.Addr{}, int32(iface), uint32(iaid), uint32(pref), uint32(valid),
			pfx.Addr(), uint32(pref), uint32(valid), pfx.Bits(), false)

	default:
		return fmt.Errorf("unknown add target: %s", args[0])
	}
}

func (s *shell) handleDel(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: del {address|prefix} ...")
	}
	switch args[0] {
	case "address":
		if len(args) != 4 {
			return fmt.Errorf("usage: del address <duid> <iaid> <addr>")
		}
		d, err := duid.ParseHex(args[1])
		if err != nil {
			return err
		}
		iaid, err := strconv.ParseUint(args[2], 10, 32)
		if err != nil {
			return err
		}
		addr, err := netip.ParseAddr(args[3])
		if err != nil {
			return err
		}
		if !s.store.DelAddress(d, uint32(iaid), addr) {
			return fmt.Errorf("address was not assigned")
		}
		return nil

	case "prefix":
		if len(args) != 4 {
			return fmt.Errorf("usage: del prefix <duid> <iaid> <prefix/len>")
		}
		d, err := duid.ParseHex(args[1])
		if err != nil {
			return err
		}
		iaid, err := strconv.ParseUint(args[2], 10, 32)
		if err != nil {
			return err
		}
		pfx, err := netip.ParsePrefix(args[3])
		if err != nil {
			return err
		}
		if !s.store.DelPrefix(d, uint32(iaid), pfx.Addr(), pfx.Bits()) {
			return fmt.Errorf("prefix was not assigned")
		}
		return nil

	default:
		return fmt.Errorf("unknown del target: %s", args[0])
	}
}
