// Package router implements the model router: a static table from
// caller-facing model names to upstream Cloud Code model IDs, grouped
// into families that feed the signature cache's fallback namespace and
// carrying thinking-enablement and 1M-context metadata per route.
package router

import (
	"strings"
	"sync"

	"cloudcode-proxy/pkg/constants"
)

// Route is what the router resolves a caller-supplied model name to.
// Resolved is false when the caller's name matched nothing in the table
// and carries no override; callers should reject such a request rather
// than forward an arbitrary string to the upstream.
type Route struct {
	UpstreamID        string
	Family            string
	EnableThinking    bool
	Supports1MContext bool
	Resolved          bool
}

// entry is one static table row, matched by substring against the
// lower-cased caller model name.
type entry struct {
	match             string
	upstreamID        string
	family            string
	supports1MContext bool
}

var table = []entry{
	{match: "opus", upstreamID: "gemini-3-pro-preview", family: "gemini-3", supports1MContext: true},
	{match: "sonnet", upstreamID: "gemini-3-flash-preview", family: "gemini-3", supports1MContext: true},
	{match: "haiku", upstreamID: "gemini-2.5-flash", family: "gemini-2.5", supports1MContext: false},
	{match: "gpt-4o", upstreamID: "gemini-2.5-pro", family: "gemini-2.5", supports1MContext: false},
	{match: "gpt-4", upstreamID: "gemini-2.5-pro", family: "gemini-2.5", supports1MContext: false},
	{match: "gpt-3.5", upstreamID: "gemini-2.5-flash", family: "gemini-2.5", supports1MContext: false},
	{match: "o1", upstreamID: "gemini-3-pro-preview", family: "gemini-3", supports1MContext: true},
	{match: "o3", upstreamID: "gemini-3-pro-preview", family: "gemini-3", supports1MContext: true},
	{match: "gemini-3", upstreamID: "gemini-3-pro-preview", family: "gemini-3", supports1MContext: true},
	{match: "gemini-2.5", upstreamID: "gemini-2.5-pro", family: "gemini-2.5", supports1MContext: false},
}

// Router resolves caller model names and holds the single piece of
// shared mutable router state: the 1M-context toggle.
type Router struct {
	mu             sync.RWMutex
	wide1MContext  bool
	overrideOpus   string
	overrideSonnet string
	overrideHaiku  string
}

func New() *Router {
	return &Router{}
}

// SetOverrides lets the ambient config layer redirect the three Claude
// tiers to specific upstream IDs, driven by the ANTHROPIC_DEFAULT_*_MODEL
// environment variables.
func (r *Router) SetOverrides(opus, sonnet, haiku string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overrideOpus = opus
	r.overrideSonnet = sonnet
	r.overrideHaiku = haiku
}

// SetWide1MContext flips the global toggle that widens Gemini-family
// routes to their [1m]-suffixed upstream ID.
func (r *Router) SetWide1MContext(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.wide1MContext = enabled
}

// Resolve maps a caller-supplied model name to an upstream route.
// Unrecognized names come back with Resolved false; callers must reject
// those requests rather than forward the raw name to the upstream.
func (r *Router) Resolve(callerModel string) Route {
	lower := strings.ToLower(callerModel)

	r.mu.RLock()
	opus, sonnet, haiku, wide := r.overrideOpus, r.overrideSonnet, r.overrideHaiku, r.wide1MContext
	r.mu.RUnlock()

	if strings.Contains(lower, "opus") && opus != "" {
		route := r.finish(opus, "gemini-3", wide)
		route.EnableThinking = enableThinking(lower) || enableThinking(strings.ToLower(route.UpstreamID))
		route.Supports1MContext = true
		return route
	}
	if strings.Contains(lower, "sonnet") && sonnet != "" {
		route := r.finish(sonnet, "gemini-3", wide)
		route.EnableThinking = enableThinking(lower) || enableThinking(strings.ToLower(route.UpstreamID))
		route.Supports1MContext = true
		return route
	}
	if strings.Contains(lower, "haiku") && haiku != "" {
		route := r.finish(haiku, "gemini-2.5", wide)
		route.EnableThinking = enableThinking(lower) || enableThinking(strings.ToLower(route.UpstreamID))
		return route
	}

	for _, e := range table {
		if strings.Contains(lower, e.match) {
			route := r.finish(e.upstreamID, e.family, wide && e.supports1MContext)
			route.EnableThinking = enableThinking(lower) || enableThinking(strings.ToLower(route.UpstreamID))
			route.Supports1MContext = e.supports1MContext
			return route
		}
	}

	return Route{}
}

func (r *Router) finish(upstreamID, family string, widen bool) Route {
	id := upstreamID
	if widen {
		id = upstreamID + "[1m]"
	}
	return Route{UpstreamID: id, Family: family, Resolved: true}
}

// enableThinking reports whether a lower-cased model name signals that
// thinking should be forced on. Resolve applies it to both the caller's
// model name and the resolved upstream ID.
func enableThinking(lowerModel string) bool {
	return strings.Contains(lowerModel, "thinking") || strings.Contains(lowerModel, "gemini-3")
}

// ThinkingBudget is the fixed token budget applied when thinking is
// force-enabled by model name rather than requested explicitly.
const ThinkingBudget = constants.ThinkingBudgetTokens
