// Package http exposes the contractor services over a gin router.
//
// Routes mount under the configured base path (default /api):
//   - Tenants: /tenants, /tenants/:id, /tenants/:id/settings
//   - Clients, products, projects, expenses: /<resource>, /<resource>/:id
//   - Projects: /projects/:id/status
//   - Expenses: /expenses/:id/receipt
//   - Invoices: /invoices, /invoices/:id, /invoices/:id/send,
//     /invoices/:id/payments, /invoices/:id/void
//   - Activity and analytics: /activity, /analytics/dashboard
//   - Exports and imports: /exports/:kind, /imports/:kind, /imports/:kind/schema
//   - Realtime change feed (Server-Sent Events): /realtime
//   - Blog admin: /posts, /posts/:id, /posts/:id/publish, /posts/:id/unpublish,
//     /posts/:id/schedule
//   - Public blog: /public/posts, /public/posts/:slug
//   - Markdown preview: /markdown/preview
//
// Tenant-scoped routes read the tenant from X-Tenant-ID (or the X-Tenant
// slug). X-Actor-ID and X-Permissions are optional.
package http
