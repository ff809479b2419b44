package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"multi-merchant-settlement/internal/core/domain"
	"multi-merchant-settlement/internal/core/ports"

	"github.com/rs/zerolog"
)

// Provider opens one SQLite file per merchant under dir and implements
// ports.LedgerProvider.
type Provider struct {
	dir string
	log zerolog.Logger

	mu      sync.Mutex
	ledgers map[domain.MerchantRef]*Ledger
	closed  bool
}

// NewProvider creates the ledger directory if needed.
func NewProvider(dir string, log zerolog.Logger) (*Provider, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}
	return &Provider{
		dir:     dir,
		log:     log,
		ledgers: make(map[domain.MerchantRef]*Ledger),
	}, nil
}

// Path returns the ledger file of a merchant.
func (p *Provider) Path(ref domain.MerchantRef) string {
	return filepath.Join(p.dir, fmt.Sprintf("merchant_%d_%d.db", ref.UserID, ref.SiteID))
}

// ForMerchant returns the merchant's ledger, opening it on first use.
func (p *Provider) ForMerchant(ctx context.Context, ref domain.MerchantRef) (ports.MerchantLedger, error) {
	return p.Ledger(ctx, ref)
}

// Ledger is ForMerchant with the concrete type, for seeding products.
func (p *Provider) Ledger(ctx context.Context, ref domain.MerchantRef) (*Ledger, error) {
	if ref.UserID <= 0 || ref.SiteID <= 0 {
		return nil, fmt.Errorf("invalid merchant %s", ref)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, errors.New("ledger provider closed")
	}
	if l, ok := p.ledgers[ref]; ok {
		return l, nil
	}

	db, err := Open(ctx, p.Path(ref))
	if err != nil {
		return nil, fmt.Errorf("open ledger for merchant %s: %w", ref, err)
	}
	l := NewLedger(db, ref)
	p.ledgers[ref] = l

	p.log.Debug().Str("merchant", ref.String()).Msg("merchant ledger opened")
	return l, nil
}

// Close closes every open ledger.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true

	var errs []error
	for ref, l := range p.ledgers {
		if err := l.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close ledger %s: %w", ref, err))
		}
		delete(p.ledgers, ref)
	}
	return errors.Join(errs...)
}

// Ping checks that the ledger directory is still writable.
func (p *Provider) Ping(ctx context.Context) error {
	f, err := os.CreateTemp(p.dir, ".ping-*")
	if err != nil {
		return fmt.Errorf("ledger dir not writable: %w", err)
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

// Name returns the dependency name.
func (p *Provider) Name() string {
	return "ledger"
}

// Open opens (or creates) a ledger file and ensures its tables exist.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One writer per file; pragmas below then stick to that connection.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON", "PRAGMA busy_timeout=5000"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
