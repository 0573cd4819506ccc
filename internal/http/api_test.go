package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goliatone/go-contractor/internal/activitylog"
	"github.com/goliatone/go-contractor/internal/blog"
	"github.com/goliatone/go-contractor/internal/clients"
	"github.com/goliatone/go-contractor/internal/exports"
	"github.com/goliatone/go-contractor/internal/imports"
	"github.com/goliatone/go-contractor/internal/invoices"
	"github.com/goliatone/go-contractor/internal/objectstore"
	"github.com/goliatone/go-contractor/internal/products"
	"github.com/goliatone/go-contractor/internal/realtime"
	"github.com/goliatone/go-contractor/internal/tenancy"
	"github.com/goliatone/go-contractor/pkg/activity"
	"github.com/google/uuid"
)

type testAPI struct {
	engine *gin.Engine
	broker *realtime.Broker
	now    time.Time
}

func setupAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	broker := realtime.NewBroker(realtime.WithBufferSize(8))
	t.Cleanup(broker.Close)

	activityRepo := activitylog.NewMemoryRepository()
	emitter := activity.NewEmitter(activity.Hooks{
		activitylog.Hook{Repo: activityRepo},
		realtime.Hook{Broker: broker},
	}, activity.Config{Enabled: true})

	tenantRepo := tenancy.NewMemoryRepository()
	clientRepo := clients.NewMemoryRepository()
	productRepo := products.NewMemoryRepository()
	invoiceRepo := invoices.NewMemoryRepository()

	tenantSvc := tenancy.NewService(tenantRepo)
	clientSvc := clients.NewService(clientRepo, clients.WithActivityEmitter(emitter), clients.WithClock(clock))
	productSvc := products.NewService(productRepo)
	invoiceSvc := invoices.NewService(invoiceRepo, invoices.NewMemorySequencer(), tenantRepo, clientRepo,
		invoices.WithProducts(productRepo),
		invoices.WithActivityEmitter(emitter),
		invoices.WithClock(clock),
	)
	exportSvc := exports.NewService(exports.Sources{
		Invoices: invoiceRepo,
		Clients:  clientRepo,
	}, objectstore.NewMemoryStore(), exports.WithClock(clock))

	api := NewAPI(
		WithClock(clock),
		WithTenantService(tenantSvc),
		WithClientService(clientSvc),
		WithProductService(productSvc),
		WithInvoiceService(invoiceSvc),
		WithActivityService(activitylog.NewService(activityRepo)),
		WithExportService(exportSvc),
		WithImportService(imports.NewService(clientSvc, productSvc)),
		WithBroker(broker),
		WithBlogService(blog.NewService(blog.NewMemoryRepository(), blog.WithClock(clock))),
	)
	engine, err := api.Engine()
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	return &testAPI{engine: engine, broker: broker, now: now}
}

func (a *testAPI) do(t *testing.T, method, path string, headers map[string]string, body any, expected int) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case []byte:
		reader = bytes.NewReader(v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	rec := httptest.NewRecorder()
	a.engine.ServeHTTP(rec, req)
	if rec.Code != expected {
		t.Fatalf("%s %s: expected status %d got %d: %s", method, path, expected, rec.Code, rec.Body.String())
	}
	return rec
}

func (a *testAPI) createTenant(t *testing.T, name string) uuid.UUID {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/tenants", nil, map[string]any{"name": name}, http.StatusCreated)
	var tenant tenancy.Tenant
	decode(t, rec, &tenant)
	return tenant.ID
}

func tenantHeader(id uuid.UUID) map[string]string {
	return map[string]string{HeaderTenantID: id.String()}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), target); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
	}
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var payload errorResponse
	decode(t, rec, &payload)
	return payload.Error
}

func TestClientLifecycleIsTenantScoped(t *testing.T) {
	api := setupAPI(t)
	acme := api.createTenant(t, "Acme Builders")
	other := api.createTenant(t, "Other Co")

	rec := api.do(t, http.MethodPost, "/api/clients", tenantHeader(acme), map[string]any{
		"name":  "Jordan Lee",
		"email": "jordan@example.com",
	}, http.StatusCreated)
	var created clients.Client
	decode(t, rec, &created)

	path := "/api/clients/" + created.ID.String()
	api.do(t, http.MethodGet, path, tenantHeader(acme), nil, http.StatusOK)

	rec = api.do(t, http.MethodGet, path, tenantHeader(other), nil, http.StatusNotFound)
	if code := errorCode(t, rec); code != CodeNotFound {
		t.Fatalf("expected %s got %s", CodeNotFound, code)
	}

	rec = api.do(t, http.MethodPatch, path, tenantHeader(acme), map[string]any{"phone": "555-0100"}, http.StatusOK)
	var updated clients.Client
	decode(t, rec, &updated)
	if updated.Phone != "555-0100" {
		t.Fatalf("expected phone update, got %q", updated.Phone)
	}

	rec = api.do(t, http.MethodGet, "/api/clients", tenantHeader(acme), nil, http.StatusOK)
	var list listResponse[clients.Client]
	decode(t, rec, &list)
	if list.Total != 1 || len(list.Items) != 1 {
		t.Fatalf("expected one client, got %+v", list)
	}

	api.do(t, http.MethodDelete, path, tenantHeader(acme), nil, http.StatusNoContent)
	api.do(t, http.MethodGet, path, tenantHeader(acme), nil, http.StatusNotFound)
}

func TestTenantResolvedBySlugHeader(t *testing.T) {
	api := setupAPI(t)
	api.createTenant(t, "Acme Builders")

	api.do(t, http.MethodPost, "/api/clients", map[string]string{HeaderTenantSlug: "acme-builders"}, map[string]any{"name": "Sam"}, http.StatusCreated)
	rec := api.do(t, http.MethodGet, "/api/clients", map[string]string{HeaderTenantSlug: "missing"}, nil, http.StatusNotFound)
	if code := errorCode(t, rec); code != CodeNotFound {
		t.Fatalf("expected %s got %s", CodeNotFound, code)
	}
}

func TestErrorCodes(t *testing.T) {
	api := setupAPI(t)
	acme := api.createTenant(t, "Acme Builders")

	rec := api.do(t, http.MethodGet, "/api/clients", nil, nil, http.StatusBadRequest)
	if code := errorCode(t, rec); code != CodeTenantRequired {
		t.Fatalf("expected %s got %s", CodeTenantRequired, code)
	}

	rec = api.do(t, http.MethodGet, "/api/clients/not-a-uuid", tenantHeader(acme), nil, http.StatusBadRequest)
	if code := errorCode(t, rec); code != CodeInvalidInput {
		t.Fatalf("expected %s got %s", CodeInvalidInput, code)
	}

	headers := tenantHeader(acme)
	headers[HeaderPermissions] = "viewer"
	rec = api.do(t, http.MethodPost, "/api/clients", headers, map[string]any{"name": "Sam"}, http.StatusForbidden)
	if code := errorCode(t, rec); code != CodeForbidden {
		t.Fatalf("expected %s got %s", CodeForbidden, code)
	}

	api.do(t, http.MethodPost, "/api/clients", tenantHeader(acme), map[string]any{"name": "A", "email": "a@example.com"}, http.StatusCreated)
	rec = api.do(t, http.MethodPost, "/api/clients", tenantHeader(acme), map[string]any{"name": "B", "email": "A@example.com"}, http.StatusConflict)
	if code := errorCode(t, rec); code != CodeConflict {
		t.Fatalf("expected %s got %s", CodeConflict, code)
	}

	rec = api.do(t, http.MethodPost, "/api/tenants", nil, map[string]any{"name": "Bad", "email": "nope"}, http.StatusBadRequest)
	if code := errorCode(t, rec); code != CodeInvalidInput {
		t.Fatalf("expected %s got %s", CodeInvalidInput, code)
	}

	rec = api.do(t, http.MethodGet, "/api/clients?offset=5", tenantHeader(acme), nil, http.StatusBadRequest)
	if code := errorCode(t, rec); code != CodeInvalidInput {
		t.Fatalf("expected %s for offset without limit, got %s", CodeInvalidInput, code)
	}
}

func TestInvoiceFlow(t *testing.T) {
	api := setupAPI(t)
	acme := api.createTenant(t, "Acme Builders")
	headers := tenantHeader(acme)

	rec := api.do(t, http.MethodPost, "/api/clients", headers, map[string]any{"name": "Jordan Lee"}, http.StatusCreated)
	var client clients.Client
	decode(t, rec, &client)

	rec = api.do(t, http.MethodPost, "/api/invoices", headers, map[string]any{
		"client_id": client.ID,
		"lines": []map[string]any{
			{"description": "Framing labor", "quantity": 2, "unit_price": 10000},
		},
	}, http.StatusCreated)
	var invoice invoices.Invoice
	decode(t, rec, &invoice)
	if invoice.Number != "INV-2024-0001" {
		t.Fatalf("unexpected number %q", invoice.Number)
	}
	if invoice.Total != 20000 {
		t.Fatalf("expected total 20000 got %d", invoice.Total)
	}

	rec = api.do(t, http.MethodGet, "/api/invoices?number=INV-2024-0001", headers, nil, http.StatusOK)
	var byNumber listResponse[invoices.Invoice]
	decode(t, rec, &byNumber)
	if byNumber.Total != 1 || byNumber.Items[0].ID != invoice.ID {
		t.Fatalf("lookup by number failed: %+v", byNumber)
	}

	path := "/api/invoices/" + invoice.ID.String()
	api.do(t, http.MethodPost, path+"/send", headers, nil, http.StatusOK)

	rec = api.do(t, http.MethodPost, path+"/payments", headers, map[string]any{"amount": 25000}, http.StatusConflict)
	if code := errorCode(t, rec); code != CodeConflict {
		t.Fatalf("expected %s got %s", CodeConflict, code)
	}

	rec = api.do(t, http.MethodPost, path+"/payments", headers, map[string]any{"amount": 20000, "method": "check"}, http.StatusOK)
	var paid invoices.Invoice
	decode(t, rec, &paid)
	if paid.Status != invoices.StatusPaid || paid.AmountPaid != 20000 {
		t.Fatalf("expected paid invoice, got %s/%d", paid.Status, paid.AmountPaid)
	}

	api.do(t, http.MethodPost, path+"/void", headers, map[string]any{"reason": "late"}, http.StatusConflict)

	rec = api.do(t, http.MethodGet, "/api/activity?object_type=invoice", headers, nil, http.StatusOK)
	var entries listResponse[activitylog.Entry]
	decode(t, rec, &entries)
	if entries.Total == 0 {
		t.Fatalf("expected invoice activity entries")
	}
}

func TestImportsReportRowIssues(t *testing.T) {
	api := setupAPI(t)
	acme := api.createTenant(t, "Acme Builders")
	headers := tenantHeader(acme)

	rec := api.do(t, http.MethodPost, "/api/imports/clients", headers, []byte(`[{"name":"Ok"},{"email":"x@example.com"}]`), http.StatusUnprocessableEntity)
	var failure struct {
		Error  string `json:"error"`
		Issues []struct {
			Location string `json:"location"`
		} `json:"issues"`
	}
	decode(t, rec, &failure)
	if failure.Error != CodeSchemaValidation || len(failure.Issues) == 0 || failure.Issues[0].Location != "/1" {
		t.Fatalf("unexpected failure payload %+v", failure)
	}

	api.do(t, http.MethodPost, "/api/imports/clients?dry_run=true", headers, []byte(`[{"name":"Ok"}]`), http.StatusOK)
	rec = api.do(t, http.MethodPost, "/api/imports/clients", headers, []byte(`[{"name":"Ok"},{"name":"Two"}]`), http.StatusCreated)
	var result imports.Result
	decode(t, rec, &result)
	if len(result.Created) != 2 {
		t.Fatalf("expected two created clients, got %d", len(result.Created))
	}

	rec = api.do(t, http.MethodGet, "/api/imports/products/schema", nil, nil, http.StatusOK)
	if !strings.Contains(rec.Body.String(), "unit_price") {
		t.Fatalf("expected products schema, got %s", rec.Body.String())
	}
}

func TestExportDownloadAndGenerate(t *testing.T) {
	api := setupAPI(t)
	acme := api.createTenant(t, "Acme Builders")
	headers := tenantHeader(acme)
	api.do(t, http.MethodPost, "/api/clients", headers, map[string]any{"name": "Jordan Lee"}, http.StatusCreated)

	rec := api.do(t, http.MethodGet, "/api/exports/clients", headers, nil, http.StatusOK)
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/csv") {
		t.Fatalf("unexpected content type %q", rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Body.String(), "Jordan Lee") {
		t.Fatalf("expected client row in CSV, got %s", rec.Body.String())
	}

	rec = api.do(t, http.MethodPost, "/api/exports/clients", headers, nil, http.StatusCreated)
	var result exports.Result
	decode(t, rec, &result)
	if result.Key != exports.Key(acme, exports.KindClients, api.now) || result.Rows != 1 {
		t.Fatalf("unexpected export result %+v", result)
	}

	rec = api.do(t, http.MethodPost, "/api/exports/payroll", headers, nil, http.StatusBadRequest)
	if code := errorCode(t, rec); code != CodeInvalidInput {
		t.Fatalf("expected %s got %s", CodeInvalidInput, code)
	}
}

func TestBlogAdminAndPublicRoutes(t *testing.T) {
	api := setupAPI(t)

	rec := api.do(t, http.MethodPost, "/api/posts", nil, map[string]any{
		"title": "Winter Prep",
		"slug":  "winter-prep",
		"body":  "# Winter\n\nSeal the *gaps*.",
	}, http.StatusCreated)
	var post blog.Post
	decode(t, rec, &post)
	if !strings.Contains(post.HTML, "<em>gaps</em>") {
		t.Fatalf("expected rendered html, got %q", post.HTML)
	}

	api.do(t, http.MethodGet, "/api/public/posts/winter-prep", nil, nil, http.StatusNotFound)
	api.do(t, http.MethodPost, "/api/posts/"+post.ID.String()+"/publish", nil, nil, http.StatusOK)

	rec = api.do(t, http.MethodGet, "/api/public/posts", nil, nil, http.StatusOK)
	var feed listResponse[blog.Post]
	decode(t, rec, &feed)
	if feed.Total != 1 || feed.Items[0].Slug != "winter-prep" {
		t.Fatalf("unexpected public feed %+v", feed)
	}
	api.do(t, http.MethodGet, "/api/public/posts/winter-prep", nil, nil, http.StatusOK)
}

func TestMarkdownPreviewEscapesHTML(t *testing.T) {
	api := setupAPI(t)
	rec := api.do(t, http.MethodPost, "/api/markdown/preview", nil, map[string]any{
		"markdown": "Hello <script>alert(1)</script> **world**",
	}, http.StatusOK)
	var payload struct {
		HTML string `json:"html"`
	}
	decode(t, rec, &payload)
	if strings.Contains(payload.HTML, "<script>") {
		t.Fatalf("raw html leaked: %q", payload.HTML)
	}
	if !strings.Contains(payload.HTML, "<strong>world</strong>") {
		t.Fatalf("expected strong emphasis, got %q", payload.HTML)
	}
}

type syncRecorder struct {
	mu     sync.Mutex
	header http.Header
	body   bytes.Buffer
	code   int
}

func (r *syncRecorder) Header() http.Header { return r.header }

func (r *syncRecorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.body.Write(p)
}

func (r *syncRecorder) WriteHeader(code int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.code = code
}

func (r *syncRecorder) Flush() {}

func (r *syncRecorder) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.body.String()
}

func TestRealtimeStreamsTenantChanges(t *testing.T) {
	api := setupAPI(t)
	acme := api.createTenant(t, "Acme Builders")
	other := api.createTenant(t, "Other Co")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/realtime?types=client", nil).WithContext(ctx)
	req.Header.Set(HeaderTenantID, acme.String())
	rec := &syncRecorder{header: http.Header{}}
	done := make(chan struct{})
	go func() {
		api.engine.ServeHTTP(rec, req)
		close(done)
	}()

	waitFor(t, func() bool { return api.broker.Stats().Subscribers == 1 })

	api.do(t, http.MethodPost, "/api/clients", tenantHeader(other), map[string]any{"name": "Hidden"}, http.StatusCreated)
	api.do(t, http.MethodPost, "/api/clients", tenantHeader(acme), map[string]any{"name": "Visible"}, http.StatusCreated)

	waitFor(t, func() bool { return strings.Contains(rec.String(), "Visible") })
	cancel()
	<-done

	body := rec.String()
	if !strings.Contains(body, "event:insert") {
		t.Fatalf("expected insert event, got %q", body)
	}
	if strings.Contains(body, "Hidden") {
		t.Fatalf("received another tenant's change: %q", body)
	}
	if got := rec.header.Get("Content-Type"); !strings.HasPrefix(got, "text/event-stream") {
		t.Fatalf("unexpected content type %q", got)
	}
}

func TestRealtimeRequiresTenant(t *testing.T) {
	api := setupAPI(t)
	rec := api.do(t, http.MethodGet, "/api/realtime", nil, nil, http.StatusBadRequest)
	if code := errorCode(t, rec); code != CodeTenantRequired {
		t.Fatalf("expected %s got %s", CodeTenantRequired, code)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestOpenAPIListsConfiguredRoutes(t *testing.T) {
	api := setupAPI(t)

	rec := api.do(t, http.MethodGet, "/api/openapi.json", nil, nil, http.StatusOK)
	var doc struct {
		OpenAPI string                    `json:"openapi"`
		Paths   map[string]map[string]any `json:"paths"`
		Comps   struct {
			Schemas map[string]any `json:"schemas"`
		} `json:"components"`
	}
	decode(t, rec, &doc)

	if doc.OpenAPI != "3.0.3" {
		t.Fatalf("unexpected openapi version %q", doc.OpenAPI)
	}
	for path, method := range map[string]string{
		"/api/invoices/{id}/payments": "post",
		"/api/clients":                "get",
		"/api/openapi.json":           "get",
	} {
		if _, ok := doc.Paths[path][method]; !ok {
			t.Fatalf("expected %s %s in document, got %v", method, path, doc.Paths[path])
		}
	}
	if _, ok := doc.Paths["/api/expenses"]; ok {
		t.Fatal("expense routes should be absent without an expense service")
	}
	if _, ok := doc.Comps.Schemas["clients_import"]; !ok {
		t.Fatalf("expected clients import schema, got %v", doc.Comps.Schemas)
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	api := setupAPI(t)

	rec := api.do(t, http.MethodGet, "/api/tenants", map[string]string{HeaderRequestID: "req-42"}, nil, http.StatusOK)
	if got := rec.Header().Get(HeaderRequestID); got != "req-42" {
		t.Fatalf("expected request id to be echoed, got %q", got)
	}
	rec = api.do(t, http.MethodGet, "/api/tenants", nil, nil, http.StatusOK)
	if _, err := uuid.Parse(rec.Header().Get(HeaderRequestID)); err != nil {
		t.Fatalf("expected generated request id, got %q", rec.Header().Get(HeaderRequestID))
	}
}
