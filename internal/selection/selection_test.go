package selection

import (
	"strings"
	"testing"
)

func testCollections() []Collection {
	return []Collection{
		{Product: "None", ProductFullName: "None", Version: []string{""}, Language: "en"},
		{Product: "Foo", ProductFullName: "Foo Platform", Version: []string{"1.0", "2.0"}, Language: "en"},
		{Product: "Bar", ProductFullName: "Bar Suite", Version: []string{"3.1-beta"}, Language: "fr"},
	}
}

func newTestContext() *Context {
	ctx := NewContext()
	ctx.SetCollections(testCollections())
	return ctx
}

func TestUnscopedSentinel(t *testing.T) {
	ctx := NewContext()
	if got := ctx.ContextID(); got != NoCollection {
		t.Fatalf("ContextID() = %q, want %q", got, NoCollection)
	}
	if got := ctx.ProductFullName(); got != NoProductName {
		t.Fatalf("ProductFullName() = %q, want %q", got, NoProductName)
	}
	if got := ctx.Version(); got != "" {
		t.Fatalf("Version() = %q, want empty", got)
	}
}

func TestSetProductDefaultsVersionAndLanguage(t *testing.T) {
	ctx := newTestContext()

	ctx.SetProduct("Foo")

	if got := ctx.Version(); got != "1.0" {
		t.Fatalf("Version() = %q, want first available version", got)
	}
	if got := ctx.Language(); got != "en" {
		t.Fatalf("Language() = %q, want product language", got)
	}
	if got := ctx.ContextID(); got != "Foo_en_1_0" {
		t.Fatalf("ContextID() = %q, want Foo_en_1_0", got)
	}
}

func TestSetVersionRecomputesContextID(t *testing.T) {
	ctx := newTestContext()
	ctx.SetProduct("Foo")

	var changes []Change
	ctx.OnChange(func(c Change) { changes = append(changes, c) })

	ctx.SetVersion("2.0")

	if got := ctx.ContextID(); got != "Foo_en_2_0" {
		t.Fatalf("ContextID() = %q, want Foo_en_2_0", got)
	}
	if len(changes) != 1 {
		t.Fatalf("expected exactly one change, got %d", len(changes))
	}
	if changes[0].ProductFullName != "Foo Platform" || changes[0].Version != "2.0" || changes[0].None {
		t.Fatalf("unexpected change: %+v", changes[0])
	}
}

func TestSetVersionSameValueIsNoop(t *testing.T) {
	ctx := newTestContext()
	ctx.SetProduct("Foo")

	var changes int
	ctx.OnChange(func(Change) { changes++ })

	ctx.SetVersion("1.0")
	ctx.SetVersion("9.9") // not offered by the product

	if changes != 0 {
		t.Fatalf("expected no changes, got %d", changes)
	}
	if got := ctx.ContextID(); got != "Foo_en_1_0" {
		t.Fatalf("ContextID() changed: %q", got)
	}
}

func TestSetLanguageEmitsChange(t *testing.T) {
	ctx := newTestContext()
	ctx.SetProduct("Foo")

	var changes int
	ctx.OnChange(func(Change) { changes++ })

	ctx.SetLanguage("fr")
	ctx.SetLanguage("fr")

	if changes != 1 {
		t.Fatalf("expected one change, got %d", changes)
	}
	if got := ctx.ContextID(); got != "Foo_fr_1_0" {
		t.Fatalf("ContextID() = %q, want Foo_fr_1_0", got)
	}
}

func TestSelectingNoneProductUnscopes(t *testing.T) {
	ctx := newTestContext()
	ctx.SetProduct("Foo")

	var last Change
	ctx.OnChange(func(c Change) { last = c })

	ctx.SetProduct("None")

	if !last.None {
		t.Fatalf("expected unscoped change, got %+v", last)
	}
	if got := ctx.ContextID(); got != NoCollection {
		t.Fatalf("ContextID() = %q, want %q", got, NoCollection)
	}
}

func TestUnknownProductIgnored(t *testing.T) {
	ctx := newTestContext()

	var changes int
	ctx.OnChange(func(Change) { changes++ })

	ctx.SetProduct("DoesNotExist")

	if changes != 0 {
		t.Fatalf("expected no change for unknown product, got %d", changes)
	}
	if got := ctx.ContextID(); got != NoCollection {
		t.Fatalf("ContextID() = %q, want sentinel", got)
	}
}

func TestNormalizeIDIsPureAndSafe(t *testing.T) {
	a := NormalizeID("Bar", "fr", "3.1-beta")
	b := NormalizeID("Bar", "fr", "3.1-beta")
	if a != b {
		t.Fatalf("NormalizeID not deterministic: %q vs %q", a, b)
	}
	if a != "Bar_fr_3_1_beta" {
		t.Fatalf("NormalizeID = %q, want Bar_fr_3_1_beta", a)
	}
	if strings.ContainsAny(a, ".-") {
		t.Fatalf("NormalizeID leaked unsafe characters: %q", a)
	}
}

func TestNormalizeIDStripsNonWordRunes(t *testing.T) {
	got := NormalizeID("Pro/duct", "en US", "1.0+hotfix")
	for _, r := range got {
		ok := (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_'
		if !ok {
			t.Fatalf("NormalizeID output contains %q: %s", r, got)
		}
	}
}
