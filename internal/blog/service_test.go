package blog_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/goliatone/go-contractor/internal/blog"
	"github.com/goliatone/go-contractor/internal/identity"
	"github.com/goliatone/go-contractor/internal/markdown"
	"github.com/goliatone/go-contractor/internal/permissions"
	"github.com/goliatone/go-contractor/internal/scheduler"
	"github.com/goliatone/go-contractor/pkg/interfaces"
)

type fixture struct {
	ctx       context.Context
	now       time.Time
	repo      *blog.MemoryRepository
	scheduler interfaces.Scheduler
	service   blog.Service
}

type staticURLs struct{}

func (staticURLs) PostURL(slug string) (string, error) {
	return "https://example.com/blog/" + slug, nil
}

func newFixture(t *testing.T, opts ...blog.ServiceOption) *fixture {
	t.Helper()
	fx := &fixture{
		ctx:  context.Background(),
		now:  time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		repo: blog.NewMemoryRepository(),
	}
	fx.scheduler = scheduler.NewInMemory(scheduler.WithClock(func() time.Time { return fx.now }))
	base := []blog.ServiceOption{
		blog.WithClock(func() time.Time { return fx.now }),
		blog.WithScheduler(fx.scheduler),
		blog.WithURLResolver(staticURLs{}),
	}
	fx.service = blog.NewService(fx.repo, append(base, opts...)...)
	return fx
}

func TestCreateRendersMarkdownAndDerivesSlug(t *testing.T) {
	fx := newFixture(t)

	post, err := fx.service.Create(fx.ctx, blog.CreatePostInput{
		Title: "Framing Basics",
		Body:  "# Framing\n\nUse <b>16\"</b> centers.",
		Tags:  []string{"Framing", " framing ", "carpentry"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if post.Slug != "framing-basics" {
		t.Fatalf("unexpected slug %q", post.Slug)
	}
	if post.Status != blog.StatusDraft {
		t.Fatalf("expected draft, got %s", post.Status)
	}
	if !strings.Contains(post.HTML, `<h1 id="framing">Framing</h1>`) || strings.Contains(post.HTML, "<b>") {
		t.Fatalf("unexpected html %q", post.HTML)
	}
	if len(post.Tags) != 2 || post.Tags[0] != "framing" {
		t.Fatalf("expected deduplicated tags, got %#v", post.Tags)
	}
	if post.URL != "https://example.com/blog/framing-basics" {
		t.Fatalf("unexpected url %q", post.URL)
	}

	if _, err := fx.service.Create(fx.ctx, blog.CreatePostInput{Title: "Framing Basics"}); !errors.Is(err, blog.ErrSlugExists) {
		t.Fatalf("expected ErrSlugExists, got %v", err)
	}
	if _, err := fx.service.Create(fx.ctx, blog.CreatePostInput{Title: "  "}); !errors.Is(err, blog.ErrTitleRequired) {
		t.Fatalf("expected ErrTitleRequired, got %v", err)
	}
}

func TestUpdateReRendersBody(t *testing.T) {
	fx := newFixture(t)
	post, _ := fx.service.Create(fx.ctx, blog.CreatePostInput{Title: "Roofing", Body: "old"})

	body := "new **bold** text"
	updated, err := fx.service.Update(fx.ctx, blog.UpdatePostInput{ID: post.ID, Body: &body})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.HTML != "<p>new <strong>bold</strong> text</p>\n" {
		t.Fatalf("unexpected html %q", updated.HTML)
	}
}

func TestPublishAndPublicFeed(t *testing.T) {
	fx := newFixture(t)
	first, _ := fx.service.Create(fx.ctx, blog.CreatePostInput{Title: "First", Tags: []string{"news"}})
	second, _ := fx.service.Create(fx.ctx, blog.CreatePostInput{Title: "Second"})
	_, _ = fx.service.Create(fx.ctx, blog.CreatePostInput{Title: "Hidden draft"})

	if _, err := fx.service.Publish(fx.ctx, first.ID); err != nil {
		t.Fatalf("publish first: %v", err)
	}
	fx.now = fx.now.Add(time.Hour)
	published, err := fx.service.Publish(fx.ctx, second.ID)
	if err != nil {
		t.Fatalf("publish second: %v", err)
	}
	if published.PublishedAt == nil || !published.PublishedAt.Equal(fx.now) {
		t.Fatalf("expected published at now, got %v", published.PublishedAt)
	}
	if _, err := fx.service.Publish(fx.ctx, second.ID); !errors.Is(err, blog.ErrAlreadyPublished) {
		t.Fatalf("expected ErrAlreadyPublished, got %v", err)
	}

	feed, total, err := fx.service.ListPublished(fx.ctx, "", 10, 0)
	if err != nil {
		t.Fatalf("list published: %v", err)
	}
	if total != 2 || feed[0].ID != second.ID || feed[1].ID != first.ID {
		t.Fatalf("expected newest first feed, got %d posts", total)
	}

	tagged, total, _ := fx.service.ListPublished(fx.ctx, "NEWS", 10, 0)
	if total != 1 || tagged[0].ID != first.ID {
		t.Fatalf("expected tag filter to match first post")
	}

	if _, err := fx.service.GetPublished(fx.ctx, "hidden-draft"); err == nil {
		t.Fatalf("expected drafts to be hidden from the public lookup")
	}

	if _, err := fx.service.Unpublish(fx.ctx, first.ID); err != nil {
		t.Fatalf("unpublish: %v", err)
	}
	if _, total, _ := fx.service.ListPublished(fx.ctx, "", 10, 0); total != 1 {
		t.Fatalf("expected one published post after unpublish, got %d", total)
	}
}

func TestScheduleRegistersJobAndPublishScheduled(t *testing.T) {
	fx := newFixture(t)
	post, _ := fx.service.Create(fx.ctx, blog.CreatePostInput{Title: "Spring Checklist"})
	when := fx.now.Add(48 * time.Hour)

	if _, err := fx.service.Schedule(fx.ctx, post.ID, fx.now.Add(-time.Minute)); !errors.Is(err, blog.ErrPublishAtInPast) {
		t.Fatalf("expected ErrPublishAtInPast, got %v", err)
	}

	scheduled, err := fx.service.Schedule(fx.ctx, post.ID, when)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if scheduled.Status != blog.StatusScheduled || !scheduled.PublishAt.Equal(when) {
		t.Fatalf("unexpected scheduled post %+v", scheduled)
	}
	job, err := fx.scheduler.GetByKey(fx.ctx, scheduler.PostPublishJobKey(post.ID))
	if err != nil {
		t.Fatalf("expected publish job: %v", err)
	}
	if job.Type != scheduler.JobTypePostPublish || !job.RunAt.Equal(when) || job.Payload["post_id"] != post.ID.String() {
		t.Fatalf("unexpected job %+v", job)
	}

	fx.now = when.Add(time.Minute)
	published, err := fx.service.PublishScheduled(fx.ctx, post.ID)
	if err != nil {
		t.Fatalf("publish scheduled: %v", err)
	}
	if published.Status != blog.StatusPublished || !published.PublishedAt.Equal(when) || published.PublishAt != nil {
		t.Fatalf("unexpected published post %+v", published)
	}

	again, err := fx.service.PublishScheduled(fx.ctx, post.ID)
	if err != nil || again.Status != blog.StatusPublished {
		t.Fatalf("expected idempotent publish, got %v", err)
	}
}

func TestScheduleWithoutSchedulerIsDisabled(t *testing.T) {
	svc := blog.NewService(blog.NewMemoryRepository())
	post, _ := svc.Create(context.Background(), blog.CreatePostInput{Title: "X"})
	if _, err := svc.Schedule(context.Background(), post.ID, time.Now().Add(time.Hour)); !errors.Is(err, blog.ErrSchedulingDisabled) {
		t.Fatalf("expected ErrSchedulingDisabled, got %v", err)
	}
}

func TestUnpublishScheduledCancelsJob(t *testing.T) {
	fx := newFixture(t)
	post, _ := fx.service.Create(fx.ctx, blog.CreatePostInput{Title: "Later"})
	_, _ = fx.service.Schedule(fx.ctx, post.ID, fx.now.Add(time.Hour))

	draft, err := fx.service.Unpublish(fx.ctx, post.ID)
	if err != nil {
		t.Fatalf("unpublish: %v", err)
	}
	if draft.Status != blog.StatusDraft || draft.PublishAt != nil {
		t.Fatalf("expected draft, got %+v", draft)
	}
	if _, err := fx.scheduler.GetByKey(fx.ctx, scheduler.PostPublishJobKey(post.ID)); !errors.Is(err, interfaces.ErrJobNotFound) {
		t.Fatalf("expected job to be cancelled, got %v", err)
	}
}

func TestPermissionsAreEnforced(t *testing.T) {
	fx := newFixture(t)
	post, _ := fx.service.Create(fx.ctx, blog.CreatePostInput{Title: "Guarded"})

	ctx := permissions.WithChecker(fx.ctx, permissions.NewSet("posts:read", "posts:update"))
	if _, err := fx.service.Publish(ctx, post.ID); !errors.Is(err, permissions.ErrPermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}
	if _, err := fx.service.Get(ctx, post.ID); err != nil {
		t.Fatalf("expected read to be allowed: %v", err)
	}
}

const importedPost = `---
title: Winter Concrete
tags: [concrete]
author: Dana
date: 2024-04-01T08:00:00Z
---
Keep it **warm**.
`

func TestImportDirectoryIsIdempotent(t *testing.T) {
	fsys := fstest.MapFS{
		"posts/winter.md": {Data: []byte(importedPost)},
		"posts/draft.md":  {Data: []byte("---\ntitle: Work In Progress\ndraft: true\n---\nsoon")},
		"posts/future.md": {Data: []byte("---\ntitle: Coming Soon\nslug: coming\npublished_at: 2024-06-01T00:00:00Z\n---\nnext month")},
		"posts/broken.md": {Data: []byte("---\nslug: no-title\n---\nbody")},
	}
	fx := newFixture(t, blog.WithContentLoader(markdown.NewLoader(fsys, markdown.LoaderConfig{})))

	result, err := fx.service.ImportDirectory(fx.ctx, "posts", blog.ImportOptions{})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(result.Created) != 3 || len(result.Issues) != 1 || len(result.Scheduled) != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.Issues[0].Path != "posts/broken.md" {
		t.Fatalf("unexpected issue %+v", result.Issues[0])
	}

	winter, err := fx.service.GetBySlug(fx.ctx, "winter-concrete")
	if err != nil {
		t.Fatalf("get imported: %v", err)
	}
	if winter.ID != identity.PostUUID("winter-concrete") {
		t.Fatalf("expected deterministic id")
	}
	if winter.Status != blog.StatusPublished || !winter.PublishedAt.Equal(time.Date(2024, 4, 1, 8, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected imported post %+v", winter)
	}
	if winter.HTML != "<p>Keep it <strong>warm</strong>.</p>\n" || winter.Author != "Dana" {
		t.Fatalf("unexpected rendering %+v", winter)
	}

	coming, _ := fx.service.GetBySlug(fx.ctx, "coming")
	if coming.Status != blog.StatusScheduled {
		t.Fatalf("expected future post to be scheduled, got %s", coming.Status)
	}
	if _, err := fx.scheduler.GetByKey(fx.ctx, scheduler.PostPublishJobKey(coming.ID)); err != nil {
		t.Fatalf("expected job for scheduled import: %v", err)
	}

	again, err := fx.service.ImportDirectory(fx.ctx, "posts", blog.ImportOptions{})
	if err != nil {
		t.Fatalf("reimport: %v", err)
	}
	if len(again.Created) != 0 || len(again.Unchanged) != 3 {
		t.Fatalf("expected unchanged reimport, got %+v", again)
	}

	fsys["posts/winter.md"] = &fstest.MapFile{Data: []byte(strings.Replace(importedPost, "warm", "cosy", 1))}
	changed, _ := fx.service.ImportDirectory(fx.ctx, "posts", blog.ImportOptions{})
	if len(changed.Updated) != 1 || changed.Updated[0] != winter.ID {
		t.Fatalf("expected winter post to be updated, got %+v", changed)
	}
	_, total, _ := fx.service.List(fx.ctx, blog.ListOptions{})
	if total != 3 {
		t.Fatalf("expected three posts in total, got %d", total)
	}
}

func TestImportDryRunWritesNothing(t *testing.T) {
	fx := newFixture(t)
	doc, err := markdown.BuildDocument("winter.md", []byte(importedPost), fx.now)
	if err != nil {
		t.Fatalf("build document: %v", err)
	}

	result, err := fx.service.Import(fx.ctx, doc, blog.ImportOptions{DryRun: true})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(result.Created) != 1 || !result.DryRun {
		t.Fatalf("unexpected result %+v", result)
	}
	if _, total, _ := fx.service.List(fx.ctx, blog.ListOptions{}); total != 0 {
		t.Fatalf("dry run must not persist posts")
	}
	if _, err := fx.service.ImportDirectory(fx.ctx, "posts", blog.ImportOptions{}); !errors.Is(err, blog.ErrImportSourceMissing) {
		t.Fatalf("expected ErrImportSourceMissing, got %v", err)
	}
}
