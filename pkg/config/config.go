package config

import (
	"fmt"
	"strconv"
)

// Role is the DHCPv6 role this process runs as (§1: server, client, relay).
type Role string

const (
	RoleServer Role = "server"
	RoleClient Role = "client"
	RoleRelay  Role = "relay"
)

// Settings is the subset of CfgMgr's configuration the address manager
// needs directly: everything else (DUID generation, option codecs,
// interface selection) belongs to the out-of-scope collaborator.
type Settings struct {
	Role               Role
	SnapshotPath       string
	DeleteEmptyClients bool
}

// DefaultSettings mirrors TAddrMgr's constructor defaults (§3: delete
// empty clients is on by default).
func DefaultSettings() Settings {
	return Settings{
		Role:               RoleServer,
		SnapshotPath:       "/var/lib/dibbler/server-AddrMgr.xml",
		DeleteEmptyClients: true,
	}
}

// Parse reads "set <key> <value>;" statements from text, starting from
// DefaultSettings and overriding as statements are seen. Recognized keys:
// role, snapshot-path, delete-empty-clients. Unknown keys are reported as
// an error rather than silently ignored, since a mistyped settings key
// here is an operator's configuration mistake, not a legacy-format detail
// like the attributes the snapshot reader skips in §4.6.
func Parse(text string) (Settings, error) {
	s := DefaultSettings()
	lex := NewLexer(text)

	for {
		tok := lex.Next()
		if tok.Type == TokenEOF {
			return s, nil
		}
		if tok.Type != TokenIdentifier || tok.Value != "set" {
			return s, fmt.Errorf("config: line %d: expected %q, got %s", tok.Line, "set", tok.Type)
		}

		key := lex.Next()
		if key.Type != TokenIdentifier {
			return s, fmt.Errorf("config: line %d: expected a setting name, got %s", key.Line, key.Type)
		}

		value := lex.Next()
		if value.Type != TokenIdentifier && value.Type != TokenString {
			return s, fmt.Errorf("config: line %d: expected a value for %q, got %s", value.Line, key.Value, value.Type)
		}

		if err := apply(&s, key.Value, value.Value); err != nil {
			return s, fmt.Errorf("config: line %d: %w", key.Line, err)
		}

		semi := lex.Next()
		if semi.Type != TokenSemicolon {
			return s, fmt.Errorf("config: line %d: expected %q, got %s", semi.Line, ";", semi.Type)
		}
	}
}

func apply(s *Settings, key, value string) error {
	switch key {
	case "role":
		switch Role(value) {
		case RoleServer, RoleClient, RoleRelay:
			s.Role = Role(value)
		default:
			return fmt.Errorf("unknown role %q", value)
		}
	case "snapshot-path":
		s.SnapshotPath = value
	case "delete-empty-clients":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("delete-empty-clients: %w", err)
		}
		s.DeleteEmptyClients = b
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
	return nil
}
