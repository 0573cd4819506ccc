package blog

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type MemoryRepository struct {
	mu    sync.RWMutex
	posts map[uuid.UUID]*Post
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{posts: make(map[uuid.UUID]*Post)}
}

func (m *MemoryRepository) Create(_ context.Context, record *Post) (*Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := clonePost(record)
	m.posts[copied.ID] = copied
	return clonePost(copied), nil
}

func (m *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (*Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.posts[id]
	if !ok {
		return nil, &NotFoundError{Resource: "post", Key: id.String()}
	}
	return clonePost(rec), nil
}

func (m *MemoryRepository) GetBySlug(_ context.Context, slug string) (*Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, rec := range m.posts {
		if rec.Slug == slug {
			return clonePost(rec), nil
		}
	}
	return nil, &NotFoundError{Resource: "post", Key: slug}
}

func (m *MemoryRepository) List(_ context.Context, opts ListOptions) ([]*Post, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*Post{}
	for _, rec := range m.posts {
		if opts.Status != "" && rec.Status != opts.Status {
			continue
		}
		if opts.Tag != "" && !hasTag(rec.Tags, opts.Tag) {
			continue
		}
		out = append(out, clonePost(rec))
	}
	sort.Slice(out, func(i, j int) bool {
		if opts.Status == StatusPublished {
			a, b := timeOrZero(out[i].PublishedAt), timeOrZero(out[j].PublishedAt)
			if !a.Equal(b) {
				return a.After(b)
			}
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	total := len(out)
	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return []*Post{}, total, nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(out) {
		out = out[:opts.Limit]
	}
	return out, total, nil
}

func (m *MemoryRepository) Update(_ context.Context, record *Post) (*Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[record.ID]; !ok {
		return nil, &NotFoundError{Resource: "post", Key: record.ID.String()}
	}
	copied := clonePost(record)
	m.posts[copied.ID] = copied
	return clonePost(copied), nil
}

func (m *MemoryRepository) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[id]; !ok {
		return &NotFoundError{Resource: "post", Key: id.String()}
	}
	delete(m.posts, id)
	return nil
}

func clonePost(src *Post) *Post {
	if src == nil {
		return nil
	}
	out := *src
	out.Tags = append([]string(nil), src.Tags...)
	out.PublishAt = cloneTime(src.PublishAt)
	out.PublishedAt = cloneTime(src.PublishedAt)
	return &out
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	out := *value
	return &out
}

func timeOrZero(value *time.Time) time.Time {
	if value == nil {
		return time.Time{}
	}
	return *value
}
