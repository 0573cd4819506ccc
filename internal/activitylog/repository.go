package activitylog

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Repository stores activity entries.
type Repository interface {
	Append(ctx context.Context, entry *Entry) error
	List(ctx context.Context, tenantID uuid.UUID, filter Filter) ([]*Entry, error)
	// Prune removes entries that occurred before the cutoff across all tenants.
	Prune(ctx context.Context, before time.Time) (int, error)
}

func NewEntryRepository(db *bun.DB) repository.Repository[*Entry] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*Entry]{
		NewRecord: func() *Entry { return &Entry{} },
		GetID: func(e *Entry) uuid.UUID {
			return e.ID
		},
		SetID: func(e *Entry, id uuid.UUID) {
			e.ID = id
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(e *Entry) string {
			return e.ID.String()
		},
	})
}

type BunRepository struct {
	db   *bun.DB
	repo repository.Repository[*Entry]
}

func NewBunRepository(db *bun.DB) *BunRepository {
	return &BunRepository{db: db, repo: NewEntryRepository(db)}
}

func (r *BunRepository) Append(ctx context.Context, entry *Entry) error {
	if _, err := r.repo.Create(ctx, entry); err != nil {
		return fmt.Errorf("append activity entry: %w", err)
	}
	return nil
}

func (r *BunRepository) List(ctx context.Context, tenantID uuid.UUID, filter Filter) ([]*Entry, error) {
	records, _, err := r.repo.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			q = q.Where("?TableAlias.tenant_id = ?", tenantID)
			if filter.ObjectType != "" {
				q = q.Where("?TableAlias.object_type = ?", filter.ObjectType)
			}
			if filter.ObjectID != "" {
				q = q.Where("?TableAlias.object_id = ?", filter.ObjectID)
			}
			if filter.ActorID != uuid.Nil {
				q = q.Where("?TableAlias.actor_id = ?", filter.ActorID)
			}
			if filter.Verb != "" {
				q = q.Where("?TableAlias.verb = ?", filter.Verb)
			}
			if filter.Since != nil {
				q = q.Where("?TableAlias.occurred_at >= ?", *filter.Since)
			}
			if filter.Until != nil {
				q = q.Where("?TableAlias.occurred_at < ?", *filter.Until)
			}
			q = q.OrderExpr("?TableAlias.occurred_at DESC")
			return q
		}),
		repository.SelectPaginate(filter.Limit, 0),
	)
	if err != nil {
		return nil, fmt.Errorf("list activity entries: %w", err)
	}
	return records, nil
}

func (r *BunRepository) Prune(ctx context.Context, before time.Time) (int, error) {
	res, err := r.db.NewDelete().
		Model((*Entry)(nil)).
		Where("?TableAlias.occurred_at < ?", before).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("prune activity entries: %w", err)
	}
	affected, _ := res.RowsAffected()
	return int(affected), nil
}

type MemoryRepository struct {
	mu      sync.RWMutex
	entries []*Entry
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (m *MemoryRepository) Append(_ context.Context, entry *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, cloneEntry(entry))
	return nil
}

func (m *MemoryRepository) List(_ context.Context, tenantID uuid.UUID, filter Filter) ([]*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*Entry{}
	for _, entry := range m.entries {
		if entry.TenantID != tenantID || !filter.matches(entry) {
			continue
		}
		out = append(out, cloneEntry(entry))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OccurredAt.After(out[j].OccurredAt)
	})
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *MemoryRepository) Prune(_ context.Context, before time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.entries[:0]
	removed := 0
	for _, entry := range m.entries {
		if entry.OccurredAt.Before(before) {
			removed++
			continue
		}
		kept = append(kept, entry)
	}
	m.entries = kept
	return removed, nil
}

func cloneEntry(src *Entry) *Entry {
	if src == nil {
		return nil
	}
	dst := *src
	if src.Data != nil {
		dst.Data = maps.Clone(src.Data)
	}
	return &dst
}
