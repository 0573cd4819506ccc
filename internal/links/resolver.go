// Package links builds public URLs for posts and invoices with go-urlkit.
package links

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	urlkit "github.com/goliatone/go-urlkit"
)

const (
	PublicGroup  = "public"
	RoutePost    = "post"
	RouteInvoice = "invoice"

	DefaultBlogPath    = "/blog/:slug"
	DefaultInvoicePath = "/invoices/:number"
)

var (
	ErrSlugRequired   = errors.New("links: slug is required")
	ErrNumberRequired = errors.New("links: invoice number is required")
)

// Config describes the public site the resolver builds URLs for.
type Config struct {
	BaseURL     string
	BlogPath    string
	InvoicePath string
}

// RouteConfig converts the config into a go-urlkit configuration with a single
// public group.
func (c Config) RouteConfig() *urlkit.Config {
	blogPath := strings.TrimSpace(c.BlogPath)
	if blogPath == "" {
		blogPath = DefaultBlogPath
	}
	invoicePath := strings.TrimSpace(c.InvoicePath)
	if invoicePath == "" {
		invoicePath = DefaultInvoicePath
	}
	return &urlkit.Config{
		Groups: []urlkit.GroupConfig{
			{
				Name:    PublicGroup,
				BaseURL: strings.TrimRight(strings.TrimSpace(c.BaseURL), "/"),
				Paths: map[string]string{
					RoutePost:    blogPath,
					RouteInvoice: invoicePath,
				},
			},
		},
	}
}

// Resolver builds public URLs from a go-urlkit RouteManager.
type Resolver struct {
	manager *urlkit.RouteManager

	mu    sync.RWMutex
	group *urlkit.Group
}

// NewResolver builds a resolver with its own RouteManager.
func NewResolver(cfg Config) *Resolver {
	return NewResolverWithManager(urlkit.NewRouteManager(cfg.RouteConfig()))
}

// NewResolverWithManager reuses a RouteManager that defines the public group.
func NewResolverWithManager(manager *urlkit.RouteManager) *Resolver {
	return &Resolver{manager: manager}
}

// Manager exposes the underlying route manager.
func (r *Resolver) Manager() *urlkit.RouteManager {
	return r.manager
}

// PostURL returns the public address of a blog post.
func (r *Resolver) PostURL(slug string) (string, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return "", ErrSlugRequired
	}
	return r.build(RoutePost, map[string]any{"slug": slug}, nil)
}

// InvoiceURL returns the public address of an invoice. tenantSlug is added as
// the tenant query parameter when present.
func (r *Resolver) InvoiceURL(number, tenantSlug string) (string, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return "", ErrNumberRequired
	}
	var query map[string]string
	if tenant := strings.TrimSpace(tenantSlug); tenant != "" {
		query = map[string]string{"tenant": tenant}
	}
	return r.build(RouteInvoice, map[string]any{"number": number}, query)
}

func (r *Resolver) build(route string, params map[string]any, query map[string]string) (string, error) {
	group, err := r.publicGroup()
	if err != nil {
		return "", err
	}
	builder, err := safeBuilder(group, route)
	if err != nil {
		return "", err
	}
	for key, value := range params {
		builder.WithParam(key, value)
	}
	for key, value := range query {
		builder.WithQuery(key, value)
	}
	return builder.Build()
}

func (r *Resolver) publicGroup() (*urlkit.Group, error) {
	r.mu.RLock()
	group := r.group
	r.mu.RUnlock()
	if group != nil {
		return group, nil
	}
	if r.manager == nil {
		return nil, fmt.Errorf("links: route manager not configured")
	}

	group, err := lookupGroup(r.manager, PublicGroup)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.group = group
	r.mu.Unlock()
	return group, nil
}

// urlkit panics on unknown groups and routes; these helpers turn the panics
// into errors.
func lookupGroup(manager *urlkit.RouteManager, name string) (group *urlkit.Group, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("links: route group %q not found", name)
		}
	}()
	group = manager.Group(name)
	return group, err
}

func safeBuilder(group *urlkit.Group, route string) (builder *urlkit.Builder, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("links: route %q not found: %v", route, rec)
		}
	}()
	builder = group.Builder(route)
	return builder, err
}
