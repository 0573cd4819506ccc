package openapi

import (
	"encoding/json"
	"testing"
)

func TestAddRouteConvertsParamsAndTags(t *testing.T) {
	doc := NewDocument("Contractor API", "test")
	doc.AddRoute("POST", "/api/invoices/:id/payments", "/api")
	doc.AddRoute("GET", "/api/invoices/:id/payments", "/api")

	item, ok := doc.Paths["/api/invoices/{id}/payments"]
	if !ok {
		t.Fatalf("expected templated path, got %v", doc.Operations())
	}
	op := item["post"]
	if op == nil {
		t.Fatal("expected post operation")
	}
	if op.OperationID != "post_invoices_id_payments" {
		t.Fatalf("unexpected operation id %q", op.OperationID)
	}
	if len(op.Tags) != 1 || op.Tags[0] != "invoices" {
		t.Fatalf("unexpected tags %v", op.Tags)
	}
	if len(op.Parameters) != 1 || op.Parameters[0].Name != "id" || op.Parameters[0].In != "path" {
		t.Fatalf("unexpected parameters %+v", op.Parameters)
	}
	if got := doc.Operations(); len(got) != 2 || got[0] != "GET /api/invoices/{id}/payments" {
		t.Fatalf("unexpected operations %v", got)
	}
}

func TestAddRawSchemaRejectsInvalidJSON(t *testing.T) {
	doc := NewDocument("Contractor API", "test")
	if err := doc.AddRawSchema("clients_import", []byte(`{"type":"array"}`)); err != nil {
		t.Fatalf("AddRawSchema returned error: %v", err)
	}
	if err := doc.AddRawSchema("broken", []byte(`{`)); err == nil {
		t.Fatal("expected decode error")
	}

	encoded, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	schemas := decoded["components"].(map[string]any)["schemas"].(map[string]any)
	if _, ok := schemas["clients_import"]; !ok {
		t.Fatalf("expected clients_import schema, got %v", schemas)
	}
	if _, ok := schemas["broken"]; ok {
		t.Fatal("broken schema should not be registered")
	}
}
