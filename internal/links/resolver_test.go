package links

import (
	"errors"
	"testing"

	urlkit "github.com/goliatone/go-urlkit"
)

func TestPostURL(t *testing.T) {
	resolver := NewResolver(Config{BaseURL: "https://build.example.com/"})

	got, err := resolver.PostURL("winter-footings")
	if err != nil {
		t.Fatalf("PostURL: %v", err)
	}
	if got != "https://build.example.com/blog/winter-footings" {
		t.Fatalf("unexpected url %q", got)
	}
	if _, err := resolver.PostURL(" "); !errors.Is(err, ErrSlugRequired) {
		t.Fatalf("expected ErrSlugRequired, got %v", err)
	}
}

func TestInvoiceURLWithTenantQuery(t *testing.T) {
	resolver := NewResolver(Config{BaseURL: "https://build.example.com", InvoicePath: "/pay/:number"})

	got, err := resolver.InvoiceURL("ACME-2024-0001", "acme")
	if err != nil {
		t.Fatalf("InvoiceURL: %v", err)
	}
	if got != "https://build.example.com/pay/ACME-2024-0001?tenant=acme" {
		t.Fatalf("unexpected url %q", got)
	}

	plain, err := resolver.InvoiceURL("ACME-2024-0001", "")
	if err != nil {
		t.Fatalf("InvoiceURL without tenant: %v", err)
	}
	if plain != "https://build.example.com/pay/ACME-2024-0001" {
		t.Fatalf("unexpected url %q", plain)
	}
}

func TestMissingGroupReturnsError(t *testing.T) {
	manager := urlkit.NewRouteManager(&urlkit.Config{
		Groups: []urlkit.GroupConfig{{Name: "admin", BaseURL: "https://admin.example.com", Paths: map[string]string{"home": "/"}}},
	})
	if _, err := NewResolverWithManager(manager).PostURL("x"); err == nil {
		t.Fatalf("expected error when the public group is missing")
	}
}
