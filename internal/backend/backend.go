// Package backend selects and opens the Goal Store a process runs on.
package backend

import (
	"errors"
	"fmt"
	"strings"

	"wealthwise/internal/config"
	"wealthwise/internal/storage"
)

// Kind names a Goal Store implementation.
type Kind string

const (
	Memory Kind = "memory"
	File   Kind = "file"
	SQLite Kind = "sqlite"
)

var ErrUnknownKind = errors.New("unknown data backend")

// Kinds lists the supported kinds in the order they are documented.
func Kinds() []Kind {
	return []Kind{Memory, File, SQLite}
}

// ParseKind accepts a kind name case-insensitively.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := openers[k]; !ok {
		return "", fmt.Errorf("%w %q", ErrUnknownKind, s)
	}
	return k, nil
}

// Durable reports whether goals written to this kind survive a restart
// and are visible to other processes.
func (k Kind) Durable() bool {
	return k != Memory
}

// Config locates the Goal Store.
type Config struct {
	Kind       Kind
	DataDir    string
	SQLitePath string
}

// FromAppConfig picks the backend settings out of the process config.
func FromAppConfig(cfg *config.Config) (Config, error) {
	if cfg == nil {
		return Config{}, errors.New("nil app config")
	}
	kind, err := ParseKind(cfg.DataBackend)
	if err != nil {
		return Config{}, err
	}
	return Config{
		Kind:       kind,
		DataDir:    cfg.DataDir,
		SQLitePath: cfg.SQLiteDBPath,
	}, nil
}

func (c Config) Validate() error {
	switch c.Kind {
	case Memory, File:
		return nil
	case SQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return errors.New("sqlite backend needs a database path")
		}
		return nil
	default:
		return fmt.Errorf("%w %q", ErrUnknownKind, c.Kind)
	}
}

// Backend is an open Goal Store together with where it lives.
type Backend struct {
	storage.Store
	Kind     Kind
	Location string
}
