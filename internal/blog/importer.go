package blog

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/goliatone/go-contractor/internal/identity"
	"github.com/goliatone/go-contractor/internal/markdown"
	"github.com/goliatone/go-contractor/internal/permissions"
	"github.com/goliatone/go-slug"
	"github.com/google/uuid"
)

// ImportOptions controls how Markdown documents become posts.
type ImportOptions struct {
	// DryRun reports what would change without writing.
	DryRun bool
	// Author is used when the front matter has none.
	Author string
}

// ImportResult summarises an import run.
type ImportResult struct {
	Created   []uuid.UUID   `json:"created"`
	Updated   []uuid.UUID   `json:"updated"`
	Unchanged []uuid.UUID   `json:"unchanged"`
	Scheduled []uuid.UUID   `json:"scheduled"`
	Issues    []ImportIssue `json:"issues,omitempty"`
	DryRun    bool          `json:"dry_run"`
}

// ImportIssue reports a document that could not be imported.
type ImportIssue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (r *ImportResult) merge(other *ImportResult) {
	if other == nil {
		return
	}
	r.Created = append(r.Created, other.Created...)
	r.Updated = append(r.Updated, other.Updated...)
	r.Unchanged = append(r.Unchanged, other.Unchanged...)
	r.Scheduled = append(r.Scheduled, other.Scheduled...)
	r.Issues = append(r.Issues, other.Issues...)
}

// Import creates or updates the post described by doc. Post IDs derive from
// the slug, so importing the same file twice updates in place and unchanged
// files are skipped by checksum.
func (s *service) Import(ctx context.Context, doc *markdown.Document, opts ImportOptions) (*ImportResult, error) {
	if err := permissions.RequireAction(ctx, permissions.ResourcePosts, permissions.ActionCreate); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, errors.New("blog: document is nil")
	}
	return s.importDocument(ctx, doc, opts)
}

// ImportDirectory imports every Markdown file the content loader finds under dir.
// Per-file failures are collected as issues and do not stop the run.
func (s *service) ImportDirectory(ctx context.Context, dir string, opts ImportOptions) (*ImportResult, error) {
	if err := permissions.RequireAction(ctx, permissions.ResourcePosts, permissions.ActionCreate); err != nil {
		return nil, err
	}
	if s.loader == nil {
		return nil, ErrImportSourceMissing
	}
	docs, err := s.loader.LoadDirectory(ctx, dir)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{DryRun: opts.DryRun}
	for _, doc := range docs {
		single, err := s.importDocument(ctx, doc, opts)
		if err != nil {
			result.Issues = append(result.Issues, ImportIssue{Path: doc.Path, Message: err.Error()})
			continue
		}
		result.merge(single)
	}
	s.logger.Info("blog.import.completed",
		"dir", dir,
		"created", len(result.Created),
		"updated", len(result.Updated),
		"unchanged", len(result.Unchanged),
		"issues", len(result.Issues),
		"dry_run", opts.DryRun,
	)
	return result, nil
}

func (s *service) importDocument(ctx context.Context, doc *markdown.Document, opts ImportOptions) (*ImportResult, error) {
	fm := doc.FrontMatter
	title := strings.TrimSpace(fm.Title)
	if title == "" {
		return nil, fmt.Errorf("%s: %w", doc.Path, ErrTitleRequired)
	}
	postSlug, err := importSlug(fm.Slug, title, doc.Path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", doc.Path, err)
	}
	id := identity.PostUUID(postSlug)
	checksum := hex.EncodeToString(doc.Checksum)

	result := &ImportResult{DryRun: opts.DryRun}
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		var notFound *NotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		existing = nil
	}
	if existing == nil {
		if other, err := s.repo.GetBySlug(ctx, postSlug); err == nil && other.ID != id {
			return nil, fmt.Errorf("%s: %w", doc.Path, ErrSlugExists)
		}
	}
	if existing != nil && checksum != "" && existing.Checksum == checksum {
		result.Unchanged = append(result.Unchanged, id)
		return result, nil
	}

	html, err := s.render(string(doc.Body))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", doc.Path, err)
	}
	author := strings.TrimSpace(fm.Author)
	if author == "" {
		author = strings.TrimSpace(opts.Author)
	}

	now := s.now().UTC()
	record := &Post{
		ID:         id,
		Slug:       postSlug,
		Title:      title,
		Summary:    strings.TrimSpace(fm.Summary),
		Body:       string(doc.Body),
		HTML:       html,
		Tags:       normalizeTags(fm.Tags),
		Author:     author,
		SourcePath: doc.Path,
		Checksum:   checksum,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if existing != nil {
		record.CreatedAt = existing.CreatedAt
	}

	schedule := false
	switch {
	case fm.Draft:
		record.Status = StatusDraft
	case fm.PublishedAt != nil && fm.PublishedAt.After(now) && s.scheduler != nil:
		publishAt := fm.PublishedAt.UTC()
		record.Status = StatusScheduled
		record.PublishAt = &publishAt
		schedule = true
	default:
		publishedAt := now
		if fm.PublishedAt != nil && !fm.PublishedAt.After(now) {
			publishedAt = fm.PublishedAt.UTC()
		} else if existing != nil && existing.PublishedAt != nil {
			publishedAt = *existing.PublishedAt
		}
		record.Status = StatusPublished
		record.PublishedAt = &publishedAt
	}

	if existing == nil {
		result.Created = append(result.Created, id)
	} else {
		result.Updated = append(result.Updated, id)
	}
	if schedule {
		result.Scheduled = append(result.Scheduled, id)
	}
	if opts.DryRun {
		return result, nil
	}

	if schedule {
		if err := s.enqueuePublish(ctx, id, *record.PublishAt); err != nil {
			return nil, err
		}
	} else if err := s.cancelScheduled(ctx, id); err != nil {
		return nil, err
	}

	verb := "imported"
	if existing == nil {
		if _, err := s.repo.Create(ctx, record); err != nil {
			return nil, err
		}
	} else {
		if _, err := s.repo.Update(ctx, record); err != nil {
			return nil, err
		}
		verb = "reimported"
	}
	s.emitActivity(ctx, verb, record, map[string]any{"source_path": doc.Path})
	return result, nil
}

func importSlug(requested, title, filePath string) (string, error) {
	for _, candidate := range []string{requested, title, strings.TrimSuffix(path.Base(filePath), path.Ext(filePath))} {
		if strings.TrimSpace(candidate) == "" {
			continue
		}
		normalized, err := slug.Normalize(candidate)
		if err == nil && normalized != "" {
			return normalized, nil
		}
	}
	return "", ErrSlugInvalid
}
