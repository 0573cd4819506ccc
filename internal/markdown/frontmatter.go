package markdown

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/adrg/frontmatter"
)

// FrontMatter holds the metadata block at the top of a Markdown file.
type FrontMatter struct {
	Title       string
	Slug        string
	Summary     string
	Tags        []string
	Author      string
	PublishedAt *time.Time
	Draft       bool
	// Custom carries keys that are not mapped to a named field.
	Custom map[string]any
}

// Document is a Markdown file split into front matter and body.
type Document struct {
	Path         string
	FrontMatter  FrontMatter
	Body         []byte
	Checksum     []byte
	LastModified time.Time
}

// ParseFrontMatter extracts metadata and the Markdown body from source. YAML
// (---) and TOML (+++) blocks are recognised; sources without a block return
// an empty FrontMatter and the full input as body.
func ParseFrontMatter(source []byte) (FrontMatter, []byte, error) {
	var meta frontMatterEnvelope

	body, err := frontmatter.Parse(bytes.NewReader(source), &meta)
	if err != nil {
		return FrontMatter{}, nil, fmt.Errorf("parse frontmatter: %w", err)
	}
	return envelopeToFrontMatter(meta), body, nil
}

// BuildDocument assembles a Document from a file path, its content and
// modification time.
func BuildDocument(path string, source []byte, modified time.Time) (*Document, error) {
	fm, body, err := ParseFrontMatter(source)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	sum := sha256.Sum256(source)
	return &Document{
		Path:         path,
		FrontMatter:  fm,
		Body:         body,
		Checksum:     sum[:],
		LastModified: modified,
	}, nil
}

type frontMatterEnvelope struct {
	Title       string         `yaml:"title" toml:"title"`
	Slug        string         `yaml:"slug" toml:"slug"`
	Summary     string         `yaml:"summary" toml:"summary"`
	Tags        []string       `yaml:"tags" toml:"tags"`
	Author      string         `yaml:"author" toml:"author"`
	Date        time.Time      `yaml:"date" toml:"date"`
	PublishedAt time.Time      `yaml:"published_at" toml:"published_at"`
	Draft       bool           `yaml:"draft" toml:"draft"`
	Custom      map[string]any `yaml:",inline" toml:"-"`
}

func envelopeToFrontMatter(env frontMatterEnvelope) FrontMatter {
	fm := FrontMatter{
		Title:   env.Title,
		Slug:    env.Slug,
		Summary: env.Summary,
		Tags:    append([]string(nil), env.Tags...),
		Author:  env.Author,
		Draft:   env.Draft,
		Custom:  cloneMap(env.Custom),
	}
	published := env.PublishedAt
	if published.IsZero() {
		published = env.Date
	}
	if !published.IsZero() {
		value := published.UTC()
		fm.PublishedAt = &value
	}
	return fm
}

func cloneMap(input map[string]any) map[string]any {
	out := make(map[string]any, len(input))
	for key, value := range input {
		out[key] = value
	}
	return out
}
