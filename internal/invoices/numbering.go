package invoices

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// DefaultNumberPrefix is used when neither the tenant nor the configuration
// provides one.
const DefaultNumberPrefix = "INV"

// Sequencer hands out invoice sequence values. Values start at 1 for each
// tenant and year and never repeat.
type Sequencer interface {
	Next(ctx context.Context, tenantID uuid.UUID, year int) (int, error)
}

// FormatNumber renders an invoice number such as INV-2024-0007.
func FormatNumber(prefix string, year, seq int) string {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		prefix = DefaultNumberPrefix
	}
	return fmt.Sprintf("%s-%d-%04d", prefix, year, seq)
}

type sequenceKey struct {
	tenant uuid.UUID
	year   int
}

// MemorySequencer keeps counters in process memory.
type MemorySequencer struct {
	mu       sync.Mutex
	counters map[sequenceKey]int
}

func NewMemorySequencer() *MemorySequencer {
	return &MemorySequencer{counters: make(map[sequenceKey]int)}
}

func (m *MemorySequencer) Next(_ context.Context, tenantID uuid.UUID, year int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := sequenceKey{tenant: tenantID, year: year}
	m.counters[key]++
	return m.counters[key], nil
}

// BunSequencer increments rows of invoice_sequences inside a transaction.
type BunSequencer struct {
	db *bun.DB
}

func NewBunSequencer(db *bun.DB) *BunSequencer {
	return &BunSequencer{db: db}
}

func (s *BunSequencer) Next(ctx context.Context, tenantID uuid.UUID, year int) (int, error) {
	if s.db == nil {
		return 0, fmt.Errorf("invoice sequencer: database not configured")
	}
	var value int
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*Sequence)(nil)).
			Set("value = value + 1").
			Where("tenant_id = ?", tenantID).
			Where("year = ?", year).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("increment invoice sequence: %w", err)
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			seq := &Sequence{TenantID: tenantID, Year: year, Value: 1}
			if _, err := tx.NewInsert().Model(seq).Exec(ctx); err != nil {
				return fmt.Errorf("create invoice sequence: %w", err)
			}
			value = 1
			return nil
		}
		seq := new(Sequence)
		if err := tx.NewSelect().
			Model(seq).
			Where("?TableAlias.tenant_id = ?", tenantID).
			Where("?TableAlias.year = ?", year).
			Limit(1).
			Scan(ctx); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("invoice sequence vanished for %s/%d", tenantID, year)
			}
			return fmt.Errorf("read invoice sequence: %w", err)
		}
		value = seq.Value
		return nil
	})
	if err != nil {
		return 0, err
	}
	return value, nil
}
