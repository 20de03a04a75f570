package warehouse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/mchmarny/riskview/pkg/config"
	_ "modernc.org/sqlite"
)

var (
	errSessionNotInitialized = errors.New("warehouse session not initialized")
	errProviderClosed        = errors.New("warehouse provider closed")
)

// Session is an open warehouse connection.
type Session struct {
	db     *sqlx.DB
	driver string
}

// Open connects to the warehouse and verifies the connection.
func Open(ctx context.Context, driver, dsn string) (*Session, error) {
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s warehouse: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach %s warehouse: %w", driver, err)
	}
	return &Session{db: db, driver: driver}, nil
}

// NewSession wraps an already open database handle.
func NewSession(db *sqlx.DB) *Session {
	return &Session{db: db, driver: db.DriverName()}
}

// DB returns the underlying handle.
func (s *Session) DB() *sqlx.DB {
	if s == nil {
		return nil
	}
	return s.db
}

// Driver returns the name of the driver the session was opened with.
func (s *Session) Driver() string {
	if s == nil {
		return ""
	}
	return s.driver
}

// Close closes the session if it was opened.
func (s *Session) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Provider hands out a single session for the lifetime of the process.
// The session is opened on the first Get; every later Get returns the same
// session, or the same error if the first attempt failed.
type Provider struct {
	open func(ctx context.Context) (*Session, error)

	once    sync.Once
	session *Session
	err     error
}

// NewProvider returns a provider that opens its session from c.
func NewProvider(c *config.Connection) *Provider {
	return &Provider{
		open: func(ctx context.Context) (*Session, error) {
			dsn, err := c.DSN()
			if err != nil {
				return nil, fmt.Errorf("invalid connection: %w", err)
			}
			return Open(ctx, c.Driver, dsn)
		},
	}
}

// Get returns the process-wide session, opening it on first use.
func (p *Provider) Get(ctx context.Context) (*Session, error) {
	p.once.Do(func() {
		slog.Debug("opening warehouse session")
		p.session, p.err = p.open(ctx)
		if p.err == nil {
			slog.Info("warehouse session opened", "driver", p.session.Driver())
		}
	})
	return p.session, p.err
}

// Close closes the session if one was opened. A provider closed before its
// first Get never opens one.
func (p *Provider) Close() error {
	p.once.Do(func() {
		p.err = errProviderClosed
	})
	if p.session == nil {
		return nil
	}
	return p.session.Close()
}
