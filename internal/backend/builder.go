package backend

import (
	"context"
	"errors"
	"fmt"
	"io"

	"spendwise/internal/amqp"
	"spendwise/internal/log"
	"spendwise/internal/services"
	"spendwise/internal/storage"
	"spendwise/internal/store"
	"spendwise/internal/store/memory"
)

// Ledger is a built backend. Close releases it.
type Ledger struct {
	Store   store.Store
	Service *services.LedgerService

	closers []io.Closer
}

// Close shuts the service down before the store it writes to.
func (l *Ledger) Close() error {
	var errs []error
	for _, c := range l.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type Builder struct {
	logger *log.Logger
}

func NewBuilder(logger *log.Logger) *Builder {
	if logger == nil {
		logger = log.Discard()
	}
	return &Builder{logger: logger.WithComponent(log.ComponentBackend)}
}

// Build opens the store named by s and wires a LedgerService over it.
// A broker that cannot be reached is logged and the ledger runs without
// change events.
func (b *Builder) Build(ctx context.Context, s Settings) (*Ledger, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	l := &Ledger{}
	switch s.Store {
	case KindSQLite:
		repo, err := storage.NewSQLiteRepository(s.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		l.Store = repo
		l.closers = append(l.closers, repo)
		b.logger.InfoContext(ctx, "Opened SQLite store", "db_path", s.SQLitePath)
	default:
		l.Store = memory.New()
		b.logger.InfoContext(ctx, "Using in-memory store")
	}

	opts := []services.Option{services.WithLogger(b.logger)}
	if s.Events.Enabled() {
		pub, err := amqp.NewClient(s.Events.URL, s.Events.Exchange, s.Events.Queue)
		if err != nil {
			b.logger.WarnContext(ctx, "AMQP unavailable, change events disabled", log.FieldError, err.Error())
		} else {
			b.logger.InfoContext(ctx, "Publishing change events",
				"exchange", s.Events.Exchange,
				"queue", s.Events.Queue)
			opts = append(opts, services.WithPublisher(pub))
		}
	}

	l.Service = services.NewLedgerService(l.Store, opts...)
	l.closers = append([]io.Closer{l.Service}, l.closers...)
	return l, nil
}
