// Package openapi builds a route index for the contractor API in OpenAPI 3
// form.
package openapi

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"
)

// Document represents a minimal OpenAPI document.
type Document struct {
	OpenAPI    string              `json:"openapi"`
	Info       Info                `json:"info"`
	Paths      map[string]PathItem `json:"paths"`
	Components Components          `json:"components,omitempty"`
}

// Info captures OpenAPI metadata.
type Info struct {
	Title   string `json:"title"`
	Version string `json:"version"`
}

// Components aggregates schema components.
type Components struct {
	Schemas map[string]any `json:"schemas,omitempty"`
}

// PathItem maps lower-case HTTP methods to operations.
type PathItem map[string]*Operation

type Operation struct {
	OperationID string              `json:"operationId"`
	Tags        []string            `json:"tags,omitempty"`
	Parameters  []Parameter         `json:"parameters,omitempty"`
	Responses   map[string]Response `json:"responses"`
}

type Parameter struct {
	Name     string         `json:"name"`
	In       string         `json:"in"`
	Required bool           `json:"required"`
	Schema   map[string]any `json:"schema"`
}

type Response struct {
	Description string `json:"description"`
}

// NewDocument constructs an empty document.
func NewDocument(title, version string) *Document {
	return &Document{
		OpenAPI: "3.0.3",
		Info: Info{
			Title:   title,
			Version: version,
		},
		Paths:      map[string]PathItem{},
		Components: Components{Schemas: map[string]any{}},
	}
}

// AddRoute records a gin style route. basePath is stripped when deriving the
// tag, so "/api/invoices/:id" is tagged "invoices".
func (d *Document) AddRoute(method, route, basePath string) {
	if d == nil || route == "" {
		return
	}
	method = strings.ToLower(strings.TrimSpace(method))
	if method == "" {
		method = strings.ToLower(http.MethodGet)
	}

	segments := strings.Split(strings.Trim(route, "/"), "/")
	params := []Parameter{}
	for i, segment := range segments {
		if strings.HasPrefix(segment, ":") || strings.HasPrefix(segment, "*") {
			name := segment[1:]
			segments[i] = "{" + name + "}"
			params = append(params, Parameter{
				Name:     name,
				In:       "path",
				Required: true,
				Schema:   map[string]any{"type": "string"},
			})
		}
	}
	path := "/" + strings.Join(segments, "/")

	item := d.Paths[path]
	if item == nil {
		item = PathItem{}
		d.Paths[path] = item
	}
	op := &Operation{
		OperationID: operationID(method, route, basePath),
		Responses:   map[string]Response{"default": {Description: "JSON response or error envelope"}},
	}
	if tag := routeTag(route, basePath); tag != "" {
		op.Tags = []string{tag}
	}
	if len(params) > 0 {
		op.Parameters = params
	}
	item[method] = op
}

// AddSchema registers a component schema.
func (d *Document) AddSchema(name string, schema any) {
	if d == nil || name == "" || schema == nil {
		return
	}
	if d.Components.Schemas == nil {
		d.Components.Schemas = map[string]any{}
	}
	d.Components.Schemas[name] = schema
}

// AddRawSchema decodes a JSON Schema document and registers it.
func (d *Document) AddRawSchema(name string, raw []byte) error {
	var schema map[string]any
	if err := json.Unmarshal(raw, &schema); err != nil {
		return err
	}
	d.AddSchema(name, schema)
	return nil
}

// Operations lists "METHOD path" pairs in a stable order.
func (d *Document) Operations() []string {
	if d == nil {
		return nil
	}
	out := []string{}
	for path, item := range d.Paths {
		for method := range item {
			out = append(out, strings.ToUpper(method)+" "+path)
		}
	}
	sort.Strings(out)
	return out
}

func relative(route, basePath string) string {
	base := "/" + strings.Trim(strings.TrimSpace(basePath), "/")
	trimmed := "/" + strings.Trim(route, "/")
	if base != "/" && strings.HasPrefix(trimmed, base) {
		trimmed = strings.TrimPrefix(trimmed, base)
	}
	return strings.Trim(trimmed, "/")
}

func routeTag(route, basePath string) string {
	rel := relative(route, basePath)
	if rel == "" {
		return ""
	}
	first, _, _ := strings.Cut(rel, "/")
	if strings.HasPrefix(first, ":") {
		return ""
	}
	return first
}

func operationID(method, route, basePath string) string {
	parts := []string{method}
	for _, segment := range strings.Split(relative(route, basePath), "/") {
		segment = strings.TrimLeft(segment, ":*")
		segment = strings.NewReplacer(".", "_", "-", "_").Replace(segment)
		if segment != "" {
			parts = append(parts, segment)
		}
	}
	return strings.Join(parts, "_")
}
