package permissions

import (
	"context"
	"errors"
	"sort"
	"strings"
)

type Action string

const (
	ActionRead    Action = "read"
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionPublish Action = "publish"
	ActionSend    Action = "send"
	ActionVoid    Action = "void"
)

const (
	ResourceTenants   = "tenants"
	ResourceClients   = "clients"
	ResourceProducts  = "products"
	ResourceProjects  = "projects"
	ResourceInvoices  = "invoices"
	ResourceExpenses  = "expenses"
	ResourceActivity  = "activity"
	ResourceAnalytics = "analytics"
	ResourceExports   = "exports"
	ResourceImports   = "imports"
	ResourcePosts     = "posts"
)

const (
	InvoicesSend = "invoices:send"
	InvoicesVoid = "invoices:void"
	PostsPublish = "posts:publish"
)

// Roles recognised by RoleSet.
const (
	RoleOwner      = "owner"
	RoleAccountant = "accountant"
	RoleManager    = "manager"
	RoleViewer     = "viewer"
	RoleEditor     = "editor"
)

var ErrPermissionDenied = errors.New("permissions: denied")

type Error struct {
	Permission string
}

func (e Error) Error() string {
	if strings.TrimSpace(e.Permission) == "" {
		return "permission denied"
	}
	return "permission denied: " + e.Permission
}

func (e Error) Unwrap() error {
	return ErrPermissionDenied
}

// Join builds a permission token from resource and action.
func Join(resource string, action Action) string {
	res := normalizeToken(resource)
	act := normalizeToken(string(action))
	if res == "" || act == "" {
		return ""
	}
	return res + ":" + act
}

type Checker interface {
	Allowed(permission string) bool
}

type CheckerFunc func(permission string) bool

func (fn CheckerFunc) Allowed(permission string) bool {
	return fn(permission)
}

type Set map[string]struct{}

func NewSet(perms ...string) Set {
	set := Set{}
	for _, perm := range perms {
		normalized := normalizePermission(perm)
		if normalized == "" {
			continue
		}
		set[normalized] = struct{}{}
	}
	return set
}

// Allowed matches exact tokens, "resource:*" and the global "*" wildcard.
func (s Set) Allowed(permission string) bool {
	if len(s) == 0 {
		return false
	}
	normalized := normalizePermission(permission)
	if normalized == "" {
		return false
	}
	if _, ok := s[normalized]; ok {
		return true
	}
	resource, _ := splitPermission(normalized)
	if resource != "" {
		if _, ok := s[resource+":*"]; ok {
			return true
		}
	}
	_, ok := s["*"]
	return ok
}

// List returns the tokens in the set, sorted.
func (s Set) List() []string {
	out := make([]string, 0, len(s))
	for perm := range s {
		out = append(out, perm)
	}
	sort.Strings(out)
	return out
}

var rolePermissions = map[string][]string{
	RoleOwner: {"*"},
	RoleAccountant: {
		"clients:*", "products:read", "projects:read", "invoices:*",
		"expenses:*", "activity:read", "analytics:read", "exports:*", "imports:*",
	},
	RoleManager: {
		"clients:read", "clients:create", "clients:update", "products:read",
		"projects:*", "invoices:read", "invoices:create", "invoices:update",
		"expenses:read", "expenses:create", "expenses:update", "activity:read",
	},
	RoleViewer: {
		"clients:read", "products:read", "projects:read", "invoices:read",
		"expenses:read", "activity:read", "analytics:read",
	},
	RoleEditor: {"posts:*"},
}

// RoleSet expands role names into a permission Set. Unknown roles are
// ignored; raw permission tokens containing ":" or "*" pass through.
func RoleSet(roles ...string) Set {
	perms := []string{}
	for _, role := range roles {
		normalized := normalizeToken(role)
		if normalized == "" {
			continue
		}
		if granted, ok := rolePermissions[normalized]; ok {
			perms = append(perms, granted...)
			continue
		}
		if strings.Contains(normalized, ":") || normalized == "*" {
			perms = append(perms, normalized)
		}
	}
	return NewSet(perms...)
}

type contextKey string

const checkerKey contextKey = "contractor.permissions.checker"

// WithChecker stores a permission checker on the context.
func WithChecker(ctx context.Context, checker Checker) context.Context {
	if ctx == nil || checker == nil {
		return ctx
	}
	return context.WithValue(ctx, checkerKey, checker)
}

// WithPermissions stores a static permission set on the context.
func WithPermissions(ctx context.Context, perms ...string) context.Context {
	if ctx == nil || len(perms) == 0 {
		return ctx
	}
	return WithChecker(ctx, RoleSet(perms...))
}

// CheckerFromContext returns the configured permission checker if available.
func CheckerFromContext(ctx context.Context) Checker {
	if ctx == nil {
		return nil
	}
	checker, _ := ctx.Value(checkerKey).(Checker)
	return checker
}

// Allowed reports whether the permission is granted. Contexts without a
// checker allow everything; identity is resolved by the host.
func Allowed(ctx context.Context, permission string) bool {
	return Require(ctx, permission) == nil
}

// Require enforces a permission requirement when a checker is available on the context.
func Require(ctx context.Context, permission string) error {
	normalized := normalizePermission(permission)
	if normalized == "" {
		return nil
	}
	checker := CheckerFromContext(ctx)
	if checker == nil {
		return nil
	}
	if checker.Allowed(normalized) {
		return nil
	}
	return Error{Permission: normalized}
}

// RequireAction is shorthand for Require(ctx, Join(resource, action)).
func RequireAction(ctx context.Context, resource string, action Action) error {
	return Require(ctx, Join(resource, action))
}

func splitPermission(permission string) (string, Action) {
	normalized := normalizePermission(permission)
	if normalized == "" {
		return "", ""
	}
	parts := strings.SplitN(normalized, ":", 2)
	resource := normalizeToken(parts[0])
	if len(parts) == 1 {
		return resource, ""
	}
	return resource, Action(normalizeToken(parts[1]))
}

func normalizePermission(permission string) string {
	return strings.ToLower(strings.TrimSpace(permission))
}

func normalizeToken(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
