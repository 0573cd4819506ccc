package blog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-contractor/internal/logging"
	"github.com/goliatone/go-contractor/internal/markdown"
	"github.com/goliatone/go-contractor/internal/permissions"
	cscheduler "github.com/goliatone/go-contractor/internal/scheduler"
	"github.com/goliatone/go-contractor/internal/tenancy"
	"github.com/goliatone/go-contractor/pkg/activity"
	"github.com/goliatone/go-contractor/pkg/interfaces"
	"github.com/goliatone/go-slug"
	"github.com/google/uuid"
)

var (
	ErrTitleRequired       = errors.New("blog: title is required")
	ErrSlugInvalid         = errors.New("blog: slug contains invalid characters")
	ErrSlugExists          = errors.New("blog: slug already exists")
	ErrPublishAtRequired   = errors.New("blog: publish time is required")
	ErrPublishAtInPast     = errors.New("blog: publish time must be in the future")
	ErrAlreadyPublished    = errors.New("blog: post is already published")
	ErrNotPublished        = errors.New("blog: post is not published")
	ErrSchedulingDisabled  = errors.New("blog: scheduling is disabled")
	ErrStatusInvalid       = errors.New("blog: unknown status")
	ErrImportSourceMissing = errors.New("blog: import source filesystem is required")
)

type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %q not found", e.Resource, e.Key)
}

// URLResolver builds the public address of a post.
type URLResolver interface {
	PostURL(slug string) (string, error)
}

// Service manages blog posts.
type Service interface {
	Create(ctx context.Context, input CreatePostInput) (*Post, error)
	Update(ctx context.Context, input UpdatePostInput) (*Post, error)
	Get(ctx context.Context, id uuid.UUID) (*Post, error)
	GetBySlug(ctx context.Context, slug string) (*Post, error)
	List(ctx context.Context, opts ListOptions) ([]*Post, int, error)
	ListPublished(ctx context.Context, tag string, limit, offset int) ([]*Post, int, error)
	GetPublished(ctx context.Context, slug string) (*Post, error)
	Publish(ctx context.Context, id uuid.UUID) (*Post, error)
	Unpublish(ctx context.Context, id uuid.UUID) (*Post, error)
	Schedule(ctx context.Context, id uuid.UUID, publishAt time.Time) (*Post, error)
	PublishScheduled(ctx context.Context, id uuid.UUID) (*Post, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Import(ctx context.Context, doc *markdown.Document, opts ImportOptions) (*ImportResult, error)
	ImportDirectory(ctx context.Context, dir string, opts ImportOptions) (*ImportResult, error)
}

type CreatePostInput struct {
	Title   string   `json:"title"`
	Slug    string   `json:"slug"`
	Summary string   `json:"summary"`
	Body    string   `json:"body"`
	Tags    []string `json:"tags"`
	Author  string   `json:"author"`
}

// UpdatePostInput applies the non-nil fields. Body changes re-render HTML.
type UpdatePostInput struct {
	ID      uuid.UUID `json:"-"`
	Title   *string   `json:"title"`
	Slug    *string   `json:"slug"`
	Summary *string   `json:"summary"`
	Body    *string   `json:"body"`
	Tags    *[]string `json:"tags"`
	Author  *string   `json:"author"`
}

type ServiceOption func(*service)

func WithClock(clock func() time.Time) ServiceOption {
	return func(s *service) {
		if clock != nil {
			s.now = clock
		}
	}
}

func WithIDGenerator(generator func() uuid.UUID) ServiceOption {
	return func(s *service) {
		if generator != nil {
			s.id = generator
		}
	}
}

func WithActivityEmitter(emitter *activity.Emitter) ServiceOption {
	return func(s *service) {
		if emitter != nil {
			s.activity = emitter
		}
	}
}

func WithLogger(logger interfaces.Logger) ServiceOption {
	return func(s *service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithScheduler enables Schedule. Without a scheduler Schedule returns
// ErrSchedulingDisabled.
func WithScheduler(scheduler interfaces.Scheduler) ServiceOption {
	return func(s *service) {
		s.scheduler = scheduler
	}
}

func WithRenderer(renderer *markdown.Renderer) ServiceOption {
	return func(s *service) {
		if renderer != nil {
			s.renderer = renderer
		}
	}
}

func WithURLResolver(resolver URLResolver) ServiceOption {
	return func(s *service) {
		s.urls = resolver
	}
}

// WithContentLoader sets the loader ImportDirectory reads Markdown files from.
func WithContentLoader(loader *markdown.Loader) ServiceOption {
	return func(s *service) {
		s.loader = loader
	}
}

type service struct {
	repo      Repository
	now       func() time.Time
	id        func() uuid.UUID
	activity  *activity.Emitter
	logger    interfaces.Logger
	scheduler interfaces.Scheduler
	renderer  *markdown.Renderer
	urls      URLResolver
	loader    *markdown.Loader
}

func NewService(repo Repository, opts ...ServiceOption) Service {
	s := &service{
		repo:     repo,
		now:      time.Now,
		id:       uuid.New,
		activity: activity.NewEmitter(nil, activity.Config{}),
		logger:   logging.NoOp(),
		renderer: markdown.NewRenderer(markdown.Options{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Create(ctx context.Context, input CreatePostInput) (*Post, error) {
	if err := permissions.RequireAction(ctx, permissions.ResourcePosts, permissions.ActionCreate); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	postSlug, err := s.resolveSlug(ctx, input.Slug, title, uuid.Nil)
	if err != nil {
		return nil, err
	}
	html, err := s.render(input.Body)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	record := &Post{
		ID:        s.id(),
		Slug:      postSlug,
		Title:     title,
		Summary:   strings.TrimSpace(input.Summary),
		Body:      input.Body,
		HTML:      html,
		Tags:      normalizeTags(input.Tags),
		Author:    strings.TrimSpace(input.Author),
		Status:    StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return nil, err
	}
	s.emitActivity(ctx, "created", created, nil)
	s.logger.Debug("post.created", "post_id", created.ID, "slug", created.Slug)
	return s.decorate(created), nil
}

func (s *service) Update(ctx context.Context, input UpdatePostInput) (*Post, error) {
	if err := permissions.RequireAction(ctx, permissions.ResourcePosts, permissions.ActionUpdate); err != nil {
		return nil, err
	}
	record, err := s.repo.GetByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, ErrTitleRequired
		}
		record.Title = title
	}
	if input.Slug != nil {
		postSlug, err := s.resolveSlug(ctx, *input.Slug, record.Title, record.ID)
		if err != nil {
			return nil, err
		}
		record.Slug = postSlug
	}
	if input.Summary != nil {
		record.Summary = strings.TrimSpace(*input.Summary)
	}
	if input.Body != nil {
		html, err := s.render(*input.Body)
		if err != nil {
			return nil, err
		}
		record.Body = *input.Body
		record.HTML = html
	}
	if input.Tags != nil {
		record.Tags = normalizeTags(*input.Tags)
	}
	if input.Author != nil {
		record.Author = strings.TrimSpace(*input.Author)
	}
	record.UpdatedAt = s.now().UTC()

	updated, err := s.repo.Update(ctx, record)
	if err != nil {
		return nil, err
	}
	s.emitActivity(ctx, "updated", updated, nil)
	return s.decorate(updated), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*Post, error) {
	if err := permissions.RequireAction(ctx, permissions.ResourcePosts, permissions.ActionRead); err != nil {
		return nil, err
	}
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.decorate(record), nil
}

func (s *service) GetBySlug(ctx context.Context, postSlug string) (*Post, error) {
	if err := permissions.RequireAction(ctx, permissions.ResourcePosts, permissions.ActionRead); err != nil {
		return nil, err
	}
	record, err := s.repo.GetBySlug(ctx, strings.TrimSpace(postSlug))
	if err != nil {
		return nil, err
	}
	return s.decorate(record), nil
}

func (s *service) List(ctx context.Context, opts ListOptions) ([]*Post, int, error) {
	if err := permissions.RequireAction(ctx, permissions.ResourcePosts, permissions.ActionRead); err != nil {
		return nil, 0, err
	}
	if opts.Status != "" {
		switch opts.Status {
		case StatusDraft, StatusScheduled, StatusPublished:
		default:
			return nil, 0, ErrStatusInvalid
		}
	}
	opts.Tag = normalizeTag(opts.Tag)
	records, total, err := s.repo.List(ctx, opts)
	if err != nil {
		return nil, 0, err
	}
	return s.decorateAll(records), total, nil
}

// ListPublished is the public feed, newest first. It needs no permissions.
func (s *service) ListPublished(ctx context.Context, tag string, limit, offset int) ([]*Post, int, error) {
	records, total, err := s.repo.List(ctx, ListOptions{
		Status: StatusPublished,
		Tag:    normalizeTag(tag),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, 0, err
	}
	return s.decorateAll(records), total, nil
}

// GetPublished returns a post by slug only when it is published.
func (s *service) GetPublished(ctx context.Context, postSlug string) (*Post, error) {
	record, err := s.repo.GetBySlug(ctx, strings.TrimSpace(postSlug))
	if err != nil {
		return nil, err
	}
	if record.Status != StatusPublished {
		return nil, &NotFoundError{Resource: "post", Key: postSlug}
	}
	return s.decorate(record), nil
}

func (s *service) Publish(ctx context.Context, id uuid.UUID) (*Post, error) {
	if err := permissions.RequireAction(ctx, permissions.ResourcePosts, permissions.ActionPublish); err != nil {
		return nil, err
	}
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.Status == StatusPublished {
		return nil, ErrAlreadyPublished
	}
	if err := s.cancelScheduled(ctx, record.ID); err != nil {
		return nil, err
	}
	return s.publish(ctx, record)
}

// PublishScheduled publishes a post whose schedule came due. Posts that are no
// longer scheduled are returned unchanged.
func (s *service) PublishScheduled(ctx context.Context, id uuid.UUID) (*Post, error) {
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.Status != StatusScheduled {
		return s.decorate(record), nil
	}
	return s.publish(ctx, record)
}

func (s *service) publish(ctx context.Context, record *Post) (*Post, error) {
	now := s.now().UTC()
	record.Status = StatusPublished
	if record.PublishAt != nil && !record.PublishAt.After(now) {
		publishedAt := *record.PublishAt
		record.PublishedAt = &publishedAt
	} else {
		record.PublishedAt = &now
	}
	record.PublishAt = nil
	record.UpdatedAt = now

	updated, err := s.repo.Update(ctx, record)
	if err != nil {
		return nil, err
	}
	s.emitActivity(ctx, "published", updated, nil)
	s.logger.Info("post.published", "post_id", updated.ID, "slug", updated.Slug)
	return s.decorate(updated), nil
}

func (s *service) Unpublish(ctx context.Context, id uuid.UUID) (*Post, error) {
	if err := permissions.RequireAction(ctx, permissions.ResourcePosts, permissions.ActionPublish); err != nil {
		return nil, err
	}
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch record.Status {
	case StatusPublished:
	case StatusScheduled:
		if err := s.cancelScheduled(ctx, record.ID); err != nil {
			return nil, err
		}
	default:
		return nil, ErrNotPublished
	}

	record.Status = StatusDraft
	record.PublishAt = nil
	record.PublishedAt = nil
	record.UpdatedAt = s.now().UTC()
	updated, err := s.repo.Update(ctx, record)
	if err != nil {
		return nil, err
	}
	s.emitActivity(ctx, "unpublished", updated, nil)
	return s.decorate(updated), nil
}

// Schedule registers a publish job for publishAt and marks the post scheduled.
// Rescheduling replaces the previous job.
func (s *service) Schedule(ctx context.Context, id uuid.UUID, publishAt time.Time) (*Post, error) {
	if err := permissions.RequireAction(ctx, permissions.ResourcePosts, permissions.ActionPublish); err != nil {
		return nil, err
	}
	if s.scheduler == nil {
		return nil, ErrSchedulingDisabled
	}
	if publishAt.IsZero() {
		return nil, ErrPublishAtRequired
	}
	now := s.now().UTC()
	publishAt = publishAt.UTC()
	if !publishAt.After(now) {
		return nil, ErrPublishAtInPast
	}

	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.Status == StatusPublished {
		return nil, ErrAlreadyPublished
	}
	if err := s.enqueuePublish(ctx, record.ID, publishAt); err != nil {
		return nil, err
	}

	record.Status = StatusScheduled
	record.PublishAt = &publishAt
	record.UpdatedAt = now
	updated, err := s.repo.Update(ctx, record)
	if err != nil {
		return nil, err
	}
	s.emitActivity(ctx, "scheduled", updated, map[string]any{"publish_at": publishAt})
	return s.decorate(updated), nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := permissions.RequireAction(ctx, permissions.ResourcePosts, permissions.ActionDelete); err != nil {
		return err
	}
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.cancelScheduled(ctx, record.ID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.emitActivity(ctx, "deleted", record, nil)
	return nil
}

func (s *service) enqueuePublish(ctx context.Context, id uuid.UUID, runAt time.Time) error {
	payload := map[string]any{"post_id": id.String()}
	if actor := tenancy.ActorID(ctx); actor != uuid.Nil {
		payload["scheduled_by"] = actor.String()
	}
	_, err := s.scheduler.Enqueue(ctx, interfaces.JobSpec{
		Key:     cscheduler.PostPublishJobKey(id),
		Type:    cscheduler.JobTypePostPublish,
		RunAt:   runAt,
		Payload: payload,
	})
	return err
}

func (s *service) cancelScheduled(ctx context.Context, id uuid.UUID) error {
	if s.scheduler == nil {
		return nil
	}
	err := s.scheduler.CancelByKey(ctx, cscheduler.PostPublishJobKey(id))
	if err != nil && !errors.Is(err, interfaces.ErrJobNotFound) {
		return err
	}
	return nil
}

func (s *service) resolveSlug(ctx context.Context, requested, title string, self uuid.UUID) (string, error) {
	source := strings.TrimSpace(requested)
	if source == "" {
		source = title
	}
	normalized, err := slug.Normalize(source)
	if err != nil || normalized == "" {
		return "", ErrSlugInvalid
	}
	existing, err := s.repo.GetBySlug(ctx, normalized)
	if err == nil && existing.ID != self {
		return "", ErrSlugExists
	}
	if err != nil {
		var notFound *NotFoundError
		if !errors.As(err, &notFound) {
			return "", err
		}
	}
	return normalized, nil
}

func (s *service) render(body string) (string, error) {
	html, err := s.renderer.Render([]byte(body))
	if err != nil {
		return "", err
	}
	return string(html), nil
}

func (s *service) decorate(record *Post) *Post {
	if record == nil || s.urls == nil {
		return record
	}
	if url, err := s.urls.PostURL(record.Slug); err == nil {
		record.URL = url
	} else {
		s.logger.Warn("post.url.failed", "slug", record.Slug, "error", err)
	}
	return record
}

func (s *service) decorateAll(records []*Post) []*Post {
	for _, record := range records {
		s.decorate(record)
	}
	return records
}

func (s *service) emitActivity(ctx context.Context, verb string, record *Post, meta map[string]any) {
	if s.activity == nil || !s.activity.Enabled() || record == nil {
		return
	}
	if meta == nil {
		meta = map[string]any{}
	}
	meta["slug"] = record.Slug
	meta["status"] = string(record.Status)
	meta[tenancy.RecordMetadataKey] = clonePost(record)
	if err := s.activity.Emit(ctx, tenancy.ActivityEvent(ctx, verb, "post", record.ID, meta)); err != nil {
		s.logger.Warn("post.activity.emit_failed", "error", err)
	}
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := map[string]struct{}{}
	for _, tag := range tags {
		key := normalizeTag(tag)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}

func normalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}
