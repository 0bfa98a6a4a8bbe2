// Package snapshot persists last-known-good ruleset captures.
//
// Layout under the state directory, whole-file overwrites only:
//
//	rules.v4      rules.v4.bak
//	rules.v6      rules.v6.bak
//	ipsets.save   ipsets.save.bak
//
// A snapshot is only ever written from a successful save of live state.
// Each write copies the prior file to its backup slot before replacing it.
package snapshot

import (
	"fmt"
	"os"
	"path/filepath"

	"grimm.is/rampart/internal/netfilter"
)

const (
	setsFileName = "ipsets.save"
	backupSuffix = ".bak"
	fileMode     = 0o600
	dirMode      = 0o700
)

// RuleSnapshot is one address family's complete ruleset as opaque bytes.
type RuleSnapshot struct {
	Family netfilter.Family
	Data   []byte
}

// Store reads and writes snapshot files. Pure I/O, no policy.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the state directory.
func (s *Store) Dir() string {
	return s.dir
}

// RulesPath returns the primary snapshot path for a family.
func (s *Store) RulesPath(family netfilter.Family) string {
	return filepath.Join(s.dir, "rules."+string(family))
}

// SetsPath returns the named-set snapshot path.
func (s *Store) SetsPath() string {
	return filepath.Join(s.dir, setsFileName)
}

// Load reads the snapshot for a family. A missing file surfaces as an
// error wrapping os.ErrNotExist so callers can distinguish it.
func (s *Store) Load(family netfilter.Family) (*RuleSnapshot, error) {
	if !family.Valid() {
		return nil, fmt.Errorf("unknown address family %q", family)
	}
	data, err := os.ReadFile(s.RulesPath(family))
	if err != nil {
		return nil, fmt.Errorf("load %s snapshot: %w", family, err)
	}
	return &RuleSnapshot{Family: family, Data: data}, nil
}

// Write replaces the snapshot for a family, copying the prior file to the
// backup slot first.
func (s *Store) Write(family netfilter.Family, data []byte) error {
	if !family.Valid() {
		return fmt.Errorf("unknown address family %q", family)
	}
	return s.writeWithBackup(s.RulesPath(family), data)
}

// LoadSets reads the named-set snapshot.
func (s *Store) LoadSets() ([]byte, error) {
	data, err := os.ReadFile(s.SetsPath())
	if err != nil {
		return nil, fmt.Errorf("load set snapshot: %w", err)
	}
	return data, nil
}

// WriteSets replaces the named-set snapshot with the same backup lifecycle
// as rule snapshots.
func (s *Store) WriteSets(data []byte) error {
	return s.writeWithBackup(s.SetsPath(), data)
}

func (s *Store) writeWithBackup(path string, data []byte) error {
	if err := os.MkdirAll(s.dir, dirMode); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	if prior, err := os.ReadFile(path); err == nil {
		if err := os.WriteFile(path+backupSuffix, prior, fileMode); err != nil {
			return fmt.Errorf("write backup: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("read prior snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, fileMode); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}
