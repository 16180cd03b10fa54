package router

import "testing"

func TestResolveStaticTable(t *testing.T) {
	r := New()

	route := r.Resolve("claude-opus-4-5-20251101")
	if route.UpstreamID != "gemini-3-pro-preview" {
		t.Errorf("expected opus to route to gemini-3-pro-preview, got %s", route.UpstreamID)
	}
	if route.Family != "gemini-3" {
		t.Errorf("expected family gemini-3, got %s", route.Family)
	}
	if !route.Supports1MContext {
		t.Errorf("expected opus route to support 1M context")
	}
	if !route.EnableThinking {
		t.Errorf("expected gemini-3 family to force-enable thinking")
	}
}

func TestResolveHaikuDoesNotSupport1MContext(t *testing.T) {
	r := New()
	route := r.Resolve("claude-haiku-4-5")
	if route.Supports1MContext {
		t.Errorf("expected haiku route to not support 1M context")
	}
}

func TestResolveUnknownModelIsUnresolved(t *testing.T) {
	r := New()
	route := r.Resolve("some-custom-cloud-code-model")
	if route.Resolved {
		t.Errorf("expected unrecognized model to be unresolved")
	}
}

func TestResolveKnownModelIsResolved(t *testing.T) {
	r := New()
	route := r.Resolve("claude-opus-4-5")
	if !route.Resolved {
		t.Errorf("expected known model to be resolved")
	}
}

func TestResolveOverridesSetEnableThinkingAndWideContext(t *testing.T) {
	r := New()
	r.SetOverrides("gemini-3-pro-preview-custom", "", "")

	route := r.Resolve("claude-opus-4-5")
	if route.UpstreamID != "gemini-3-pro-preview-custom" {
		t.Errorf("expected override to apply, got %s", route.UpstreamID)
	}
	if !route.EnableThinking {
		t.Errorf("expected override branch to still set EnableThinking")
	}
	if !route.Supports1MContext {
		t.Errorf("expected override branch to still set Supports1MContext for opus")
	}
}

func TestResolveHaikuOverrideDoesNotForce1MContext(t *testing.T) {
	r := New()
	r.SetOverrides("", "", "gemini-2.5-flash-custom")

	route := r.Resolve("claude-haiku-4-5")
	if route.UpstreamID != "gemini-2.5-flash-custom" {
		t.Errorf("expected haiku override to apply, got %s", route.UpstreamID)
	}
	if route.Supports1MContext {
		t.Errorf("expected haiku override to not set Supports1MContext")
	}
}

func TestSetWide1MContextWidensUpstreamID(t *testing.T) {
	r := New()
	r.SetWide1MContext(true)

	route := r.Resolve("claude-opus-4-5")
	if route.UpstreamID != "gemini-3-pro-preview[1m]" {
		t.Errorf("expected widened upstream id, got %s", route.UpstreamID)
	}
}

func TestEnableThinkingOnModelNameContainingThinking(t *testing.T) {
	r := New()
	route := r.Resolve("gpt-4-thinking")
	if !route.EnableThinking {
		t.Errorf("expected thinking substring to force-enable thinking")
	}
}
