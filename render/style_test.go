package render

import (
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"
)

func TestScopeCSS_PrefixesSelectors(t *testing.T) {
	got := ScopeCSS(".card { color: red; }\nb, i { font-weight: bold; }", `[data-card="1"]`, zaptest.NewLogger(t))

	for _, want := range []string{
		`[data-card="1"] .card{`,
		`[data-card="1"] b,`,
		`[data-card="1"] i{`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("ScopeCSS() = %q, missing %q", got, want)
		}
	}
	if !strings.Contains(got, "color:") || !strings.Contains(got, "red") {
		t.Errorf("ScopeCSS() = %q, declaration was lost", got)
	}
}

func TestScopeCSS_MediaQueryInnerRules(t *testing.T) {
	got := ScopeCSS("@media (max-width: 600px) { .card { font-size: 90%; } }", ".scope", zaptest.NewLogger(t))

	if !strings.Contains(got, "@media") {
		t.Errorf("ScopeCSS() = %q, at-rule lost", got)
	}
	if !strings.Contains(got, ".scope .card{") {
		t.Errorf("ScopeCSS() = %q, rule inside @media was not scoped", got)
	}
}

func TestScopeCSS_KeyframesLeftAlone(t *testing.T) {
	got := ScopeCSS("@keyframes spin { from { transform: none; } }", ".scope", zaptest.NewLogger(t))

	if !strings.Contains(got, "from{") {
		t.Errorf("ScopeCSS() = %q, keyframe selector was altered", got)
	}
	if strings.Contains(got, ".scope from") {
		t.Errorf("ScopeCSS() = %q, keyframe selector must not be scoped", got)
	}
}

func TestScopeCSS_FontFaceLeftAlone(t *testing.T) {
	got := ScopeCSS(`@font-face { font-family: "Deck"; src: url(deck.woff2); }`, ".scope", zaptest.NewLogger(t))

	if !strings.Contains(got, "@font-face") {
		t.Errorf("ScopeCSS() = %q, @font-face lost", got)
	}
	if strings.Contains(got, ".scope") {
		t.Errorf("ScopeCSS() = %q, nothing inside @font-face may be scoped", got)
	}
}

func TestScopeCSS_Empty(t *testing.T) {
	if got := ScopeCSS("  \n", ".scope", zaptest.NewLogger(t)); got != "  \n" {
		t.Errorf("ScopeCSS() = %q, want blank input unchanged", got)
	}
}
