package validation

import (
	"errors"
	"testing"
)

const rowsSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["name"],
    "additionalProperties": false,
    "properties": {
      "name": {"type": "string", "minLength": 1},
      "email": {"type": "string", "format": "email"},
      "price": {"type": "integer", "minimum": 0}
    }
  }
}`

func TestSchemaValidateJSONCollectsRowIssues(t *testing.T) {
	schema, err := Compile("rows.json", []byte(rowsSchema))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	if err := schema.ValidateJSON([]byte(`[{"name":"Ana","email":"ana@example.com","price":10}]`)); err != nil {
		t.Fatalf("expected valid document, got %v", err)
	}

	err = schema.ValidateJSON([]byte(`[{"name":"Ana"},{"name":"Bo","email":"not-an-email"},{"price":-1}]`))
	if !errors.Is(err, ErrSchemaValidation) {
		t.Fatalf("expected ErrSchemaValidation, got %v", err)
	}
	locations := map[string]bool{}
	for _, issue := range Issues(err) {
		locations[issue.Location] = true
	}
	for _, want := range []string{"/1/email", "/2", "/2/price"} {
		if !locations[want] {
			t.Fatalf("expected issue at %s, got %v", want, Issues(err))
		}
	}
}

func TestSchemaValidateJSONRejectsMalformedInput(t *testing.T) {
	schema := MustCompile("rows.json", []byte(rowsSchema))
	if err := schema.ValidateJSON([]byte(`[{"name":`)); !errors.Is(err, ErrDocumentInvalid) {
		t.Fatalf("expected ErrDocumentInvalid, got %v", err)
	}
}

func TestCompileRejectsInvalidSchema(t *testing.T) {
	if _, err := Compile("broken.json", []byte(`{"type": 12}`)); !errors.Is(err, ErrSchemaInvalid) {
		t.Fatalf("expected ErrSchemaInvalid, got %v", err)
	}
}

func TestIssueString(t *testing.T) {
	issue := ValidationIssue{Location: "/0/email", Message: "is not valid email"}
	if got := issue.String(); got != "/0/email: is not valid email" {
		t.Fatalf("unexpected issue string %q", got)
	}
	if got := (ValidationIssue{Message: "bad"}).String(); got != "/: bad" {
		t.Fatalf("unexpected root issue string %q", got)
	}
}
