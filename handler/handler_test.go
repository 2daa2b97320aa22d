package handler

import (
	"context"
	"log/slog"
	"testing"
)

func noopFactory(_ *slog.Logger, _ string, _ map[string]any) (Handler, error) {
	return FuncMap{}, nil
}

func TestCatalogRegisterResolve(t *testing.T) {
	catalog := NewCatalog()
	catalog.Register("orders", "OrderHandler", noopFactory)

	if _, ok := catalog.Resolve("orders", "OrderHandler"); !ok {
		t.Fatalf("expected registered factory to resolve")
	}
	if _, ok := catalog.Resolve("orders", "Other"); ok {
		t.Fatalf("unexpected resolve for unregistered class")
	}
	if _, ok := catalog.Resolve("invoices", "OrderHandler"); ok {
		t.Fatalf("unexpected resolve for unregistered module")
	}
}

func TestCatalogDuplicateRegistrationPanics(t *testing.T) {
	catalog := NewCatalog()
	catalog.Register("orders", "OrderHandler", noopFactory)

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on duplicate registration")
		}
	}()
	catalog.Register("orders", "OrderHandler", noopFactory)
}

func TestCatalogNilFactoryPanics(t *testing.T) {
	catalog := NewCatalog()
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on nil factory")
		}
	}()
	catalog.Register("orders", "OrderHandler", nil)
}

func TestFuncMap(t *testing.T) {
	called := false
	m := FuncMap{
		"get_order": func(context.Context, map[string]any) (any, error) {
			called = true
			return nil, nil
		},
	}
	fn, ok := m.Func("get_order")
	if !ok {
		t.Fatalf("expected get_order to resolve")
	}
	if _, err := fn(context.Background(), nil); err != nil {
		t.Fatalf("fn() err=%v", err)
	}
	if !called {
		t.Fatalf("bound function was not invoked")
	}
	if _, ok := m.Func("missing"); ok {
		t.Fatalf("unexpected resolve for missing function")
	}
}
