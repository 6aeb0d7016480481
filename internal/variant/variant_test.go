package variant_test

import (
	"testing"

	"github.com/headline-goat/funnel-goat/internal/variant"
)

func TestResolve_DefaultRules(t *testing.T) {
	r := variant.NewResolver(nil, nil)

	tests := []struct {
		id   string
		want string
	}{
		{"chromium-widget", "widget"},
		{"Mobile-WIDGET", "widget"},
		{"firefox", "control"},
		{"mobile-chrome", "control"},
		{"", "control"},
	}

	for _, tt := range tests {
		got := r.Resolve(tt.id)
		if got.Name != tt.want {
			t.Errorf("Resolve(%q) = %q, want %q", tt.id, got.Name, tt.want)
		}
	}
}

func TestResolve_Deterministic(t *testing.T) {
	r := variant.NewResolver(nil, nil)

	first := r.Resolve("chromium-widget")
	for i := 0; i < 50; i++ {
		if got := r.Resolve("chromium-widget"); got.Name != first.Name {
			t.Fatalf("resolution changed on call %d: %q vs %q", i, got.Name, first.Name)
		}
	}
}

func TestResolve_CustomRulesFirstMatchWins(t *testing.T) {
	rules := []variant.Rule{
		{Match: "modal-v2", Variant: variant.Variant{Name: "modal"}},
		{Match: "modal", Variant: variant.Variant{Name: "legacy-modal"}},
	}
	r := variant.NewResolver(rules, &variant.Variant{Name: "baseline"})

	if got := r.Resolve("webkit-modal-v2"); got.Name != "modal" {
		t.Errorf("got %q, want modal", got.Name)
	}
	if got := r.Resolve("webkit-modal"); got.Name != "legacy-modal" {
		t.Errorf("got %q, want legacy-modal", got.Name)
	}
	if got := r.Resolve("edge"); got.Name != "baseline" {
		t.Errorf("got %q, want baseline", got.Name)
	}
}

func TestResolve_ReturnsCopy(t *testing.T) {
	r := variant.NewResolver(nil, nil)

	v := r.Resolve("chromium-widget")
	v.FeatureFlags["useWidgetPattern"] = false

	again := r.Resolve("chromium-widget")
	if !again.FeatureFlags["useWidgetPattern"] {
		t.Error("mutating a resolved variant leaked into the resolver")
	}
}
