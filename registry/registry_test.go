package registry

import "testing"

func descriptor(name string, path string) FunctionDescriptor {
	return FunctionDescriptor{
		FunctionName: name,
		ModuleName:   "m",
		ClassName:    "C",
		Path:         path,
		Method:       MethodGet,
		Response:     ResponseSpec{Type: ResponsePrimitive},
	}
}

func TestResolveExtractsPlaceholders(t *testing.T) {
	reg, err := New([]FunctionDescriptor{
		descriptor("get_line", "/orders/{order_id}/lines/{line_id}"),
	})
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}

	desc, params, ok := reg.Resolve("/orders/ord-7/lines/3")
	if !ok {
		t.Fatalf("expected match")
	}
	if desc.FunctionName != "get_line" {
		t.Fatalf("function=%q, want get_line", desc.FunctionName)
	}
	if params["order_id"] != "ord-7" || params["line_id"] != "3" {
		t.Fatalf("params=%v", params)
	}
}

func TestResolveFullStringOnly(t *testing.T) {
	reg, err := New([]FunctionDescriptor{
		descriptor("get_order", "/orders/{id}"),
	})
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}

	misses := []string{
		"/orders",         // prefix of the template
		"/orders/",        // empty segment
		"/orders/1/extra", // longer than template
		"/v1/orders/1",    // prefixed path
		"/orders/a/b",     // placeholder must not span segments
		"/ORDERS/1",       // literals match exactly
	}
	for _, path := range misses {
		if _, _, ok := reg.Resolve(path); ok {
			t.Fatalf("path %q: expected no match", path)
		}
	}
}

func TestResolveDeclarationOrderTieBreak(t *testing.T) {
	// Both templates match /items/active; the first declared wins.
	first, err := New([]FunctionDescriptor{
		descriptor("by_id", "/items/{id}"),
		descriptor("active", "/items/active"),
	})
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	desc, params, ok := first.Resolve("/items/active")
	if !ok || desc.FunctionName != "by_id" {
		t.Fatalf("function=%q, want by_id (declared first)", desc.FunctionName)
	}
	if params["id"] != "active" {
		t.Fatalf("params=%v, want id=active", params)
	}

	second, err := New([]FunctionDescriptor{
		descriptor("active", "/items/active"),
		descriptor("by_id", "/items/{id}"),
	})
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	desc, _, ok = second.Resolve("/items/active")
	if !ok || desc.FunctionName != "active" {
		t.Fatalf("function=%q, want active (declared first)", desc.FunctionName)
	}
}

func TestResolveLiteralWithRegexMetacharacters(t *testing.T) {
	reg, err := New([]FunctionDescriptor{
		descriptor("spec", "/files/report.v1/{name}"),
	})
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	if _, _, ok := reg.Resolve("/files/reportXv1/summary"); ok {
		t.Fatalf("dot in literal must not act as a wildcard")
	}
	if _, _, ok := reg.Resolve("/files/report.v1/summary"); !ok {
		t.Fatalf("expected literal match")
	}
}

func TestByName(t *testing.T) {
	reg, err := New([]FunctionDescriptor{
		descriptor("get_order", "/orders/{id}"),
	})
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	if _, ok := reg.ByName("get_order"); !ok {
		t.Fatalf("expected lookup hit")
	}
	if _, ok := reg.ByName("missing"); ok {
		t.Fatalf("unexpected lookup hit")
	}
}

func TestNewRejectsDuplicatesAndMalformedTemplates(t *testing.T) {
	if _, err := New([]FunctionDescriptor{
		descriptor("dup", "/a"),
		descriptor("dup", "/b"),
	}); err == nil {
		t.Fatalf("expected duplicate name error")
	}
}

func TestModules(t *testing.T) {
	fns := []FunctionDescriptor{
		descriptor("a", "/a"),
		descriptor("b", "/b"),
		descriptor("c", "/c"),
	}
	fns[0].ModuleName = "orders"
	fns[1].ModuleName = "invoices"
	fns[2].ModuleName = "orders"

	reg, err := New(fns)
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	got := reg.Modules()
	if len(got) != 2 || got[0] != "orders" || got[1] != "invoices" {
		t.Fatalf("Modules()=%v, want [orders invoices]", got)
	}
}

func TestValidateTemplate(t *testing.T) {
	cases := []struct {
		path string
		ok   bool
	}{
		{"/orders/{id}", true},
		{"/orders/{id}/lines/{line}", true},
		{"/plain", true},
		{"/orders/{id}/{id}", false}, // duplicate placeholder
		{"/orders/{", false},
		{"/orders/{bad-name}", false},
	}
	for _, tc := range cases {
		err := validateTemplate(tc.path)
		if tc.ok && err != nil {
			t.Fatalf("template %q: unexpected err=%v", tc.path, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("template %q: expected error", tc.path)
		}
	}
}
