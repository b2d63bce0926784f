// Package backend assembles a LedgerService on top of the configured store
// and, when a broker is configured, an AMQP event publisher.
package backend

import (
	"errors"
	"fmt"
	"strings"

	"spendwise/internal/config"
)

// Kind names a record store implementation.
type Kind string

const (
	KindMemory Kind = "memory"
	KindSQLite Kind = "sqlite"
)

// Kinds lists every supported store, default first.
func Kinds() []Kind {
	return []Kind{KindMemory, KindSQLite}
}

func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		if string(k) == s {
			return k, nil
		}
	}
	names := make([]string, 0, len(Kinds()))
	for _, k := range Kinds() {
		names = append(names, string(k))
	}
	return "", fmt.Errorf("unknown store %q: want one of %s", s, strings.Join(names, ", "))
}

func (k Kind) String() string { return string(k) }

// Events locates the AMQP exchange change events are published to.
type Events struct {
	URL      string
	Exchange string
	Queue    string
}

// Enabled reports whether a broker URL was given.
func (e Events) Enabled() bool { return e.URL != "" }

type Settings struct {
	Store      Kind
	SQLitePath string
	Events     Events
}

// SettingsFrom picks the backend settings out of the application config.
func SettingsFrom(cfg *config.Config) (Settings, error) {
	if cfg == nil {
		return Settings{}, errors.New("backend: nil config")
	}
	kind, err := ParseKind(cfg.DataBackend)
	if err != nil {
		return Settings{}, err
	}
	return Settings{
		Store:      kind,
		SQLitePath: cfg.SQLiteDBPath,
		Events: Events{
			URL:      cfg.AMQPURL,
			Exchange: cfg.AMQPExchange,
			Queue:    cfg.AMQPQueue,
		},
	}, nil
}

func (s Settings) Validate() error {
	if _, err := ParseKind(string(s.Store)); err != nil {
		return err
	}
	if s.Store == KindSQLite && s.SQLitePath == "" {
		return errors.New("backend: sqlite store needs a database path")
	}
	if s.Events.Enabled() && s.Events.Exchange == "" {
		return errors.New("backend: change events need an exchange name")
	}
	return nil
}
