package render

import (
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"
)

func TestResources_HoistStylesheet(t *testing.T) {
	r := NewResources(zaptest.NewLogger(t))

	out, err := r.Hoist(`<link rel="stylesheet" href="deck.css"><p>body</p>`, false)
	if err != nil {
		t.Fatalf("Hoist() error = %v", err)
	}
	if strings.Contains(out, "<link") {
		t.Errorf("Hoist() = %q, stylesheet element must be removed", out)
	}
	if !strings.Contains(out, "<p>body</p>") {
		t.Errorf("Hoist() = %q, content was lost", out)
	}

	styles := r.Stylesheets()
	if len(styles) != 1 || styles[0].Href != "deck.css" {
		t.Errorf("Stylesheets() = %v", styles)
	}
}

func TestResources_HoistDedupes(t *testing.T) {
	r := NewResources(zaptest.NewLogger(t))

	for range 3 {
		out, err := r.Hoist(`<link rel="stylesheet" href="deck.css">x`, false)
		if err != nil {
			t.Fatalf("Hoist() error = %v", err)
		}
		// removed from every fragment even when already registered
		if strings.Contains(out, "<link") {
			t.Errorf("Hoist() = %q, repeated stylesheet kept in fragment", out)
		}
	}
	if got := len(r.Stylesheets()); got != 1 {
		t.Errorf("Stylesheets() has %d entries, want 1", got)
	}
}

func TestResources_HoistScriptAttributes(t *testing.T) {
	r := NewResources(zaptest.NewLogger(t))

	_, err := r.Hoist(`<script src="lib.js" defer onload="init()"></script>`, false)
	if err != nil {
		t.Fatalf("Hoist() error = %v", err)
	}
	scripts := r.Scripts()
	if len(scripts) != 1 {
		t.Fatalf("Scripts() = %v", scripts)
	}
	s := scripts[0]
	if s.Src != "lib.js" || !s.Defer || s.Async || s.OnLoad != "init()" {
		t.Errorf("script ref = %+v, scheduling attributes not preserved", s)
	}
}

func TestResources_InlineScripts(t *testing.T) {
	r := NewResources(zaptest.NewLogger(t))

	out, err := r.Hoist(`<div>x</div><script>setup();</script><script>setup();</script><script>  </script>`, false)
	if err != nil {
		t.Fatalf("Hoist() error = %v", err)
	}
	if strings.Contains(out, "<script") {
		t.Errorf("Hoist() = %q, inline scripts must be removed", out)
	}
	deferred := r.Deferred()
	if len(deferred) != 1 || deferred[0] != "setup();" {
		t.Errorf("Deferred() = %v, want one deduplicated entry", deferred)
	}

	r.ResetDeferred()
	if len(r.Deferred()) != 0 {
		t.Error("Deferred() not empty after reset")
	}

	// same text may run again in the next pass
	if _, err := r.Hoist(`<script>setup();</script>`, false); err != nil {
		t.Fatalf("Hoist() error = %v", err)
	}
	if len(r.Deferred()) != 1 {
		t.Errorf("Deferred() = %v after reset and rehoist", r.Deferred())
	}
}

func TestResources_LibrariesOnlyKeepsInlineScripts(t *testing.T) {
	r := NewResources(zaptest.NewLogger(t))

	out, err := r.Hoist(`<script src="lib.js"></script><script>inline();</script>`, true)
	if err != nil {
		t.Fatalf("Hoist() error = %v", err)
	}
	if !strings.Contains(out, "inline();") {
		t.Errorf("Hoist() = %q, inline script must stay during library preload", out)
	}
	if strings.Contains(out, "lib.js") {
		t.Errorf("Hoist() = %q, external script must still be hoisted", out)
	}
	if len(r.Deferred()) != 0 {
		t.Errorf("Deferred() = %v, library preload must not collect inline scripts", r.Deferred())
	}
}

func TestResources_HoistUnchangedInput(t *testing.T) {
	r := NewResources(zaptest.NewLogger(t))

	const fragment = `<div class="q">What is <i>this</i>?</div>`
	out, err := r.Hoist(fragment, false)
	if err != nil {
		t.Fatalf("Hoist() error = %v", err)
	}
	if out != fragment {
		t.Errorf("Hoist() = %q, want untouched fragment returned verbatim", out)
	}
}

func TestResources_HoistNested(t *testing.T) {
	r := NewResources(zaptest.NewLogger(t))

	out, err := r.Hoist(`<div><span><link rel="stylesheet" href="deep.css"></span>text</div>`, false)
	if err != nil {
		t.Fatalf("Hoist() error = %v", err)
	}
	if strings.Contains(out, "<link") {
		t.Errorf("Hoist() = %q, nested stylesheet kept", out)
	}
	if !r.Registered("deep.css") {
		t.Error("Registered() = false for hoisted nested stylesheet")
	}
}

func TestResources_MarkAndSince(t *testing.T) {
	r := NewResources(zaptest.NewLogger(t))

	if _, err := r.Hoist(`<link rel="stylesheet" href="a.css">`, false); err != nil {
		t.Fatal(err)
	}
	mark := r.Mark()
	if _, err := r.Hoist(`<link rel="stylesheet" href="b.css"><script src="b.js"></script>`, false); err != nil {
		t.Fatal(err)
	}

	styles, scripts := r.Since(mark)
	if len(styles) != 1 || styles[0].Href != "b.css" {
		t.Errorf("Since() styles = %v, want only b.css", styles)
	}
	if len(scripts) != 1 || scripts[0].Src != "b.js" {
		t.Errorf("Since() scripts = %v, want only b.js", scripts)
	}
}
