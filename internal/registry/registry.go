package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Descriptor identifies one deduplicated, reusable generated component.
// The JSON tags match the registryEntry block of the generator contract.
type Descriptor struct {
	Name         string    `json:"componentName"`
	Path         string    `json:"path"`
	Content      string    `json:"content,omitempty"`
	Tokens       []string  `json:"tokens,omitempty"`
	Variants     []string  `json:"variants,omitempty"`
	ScreensUsed  []string  `json:"screensUsed,omitempty"`
	Dependencies []string  `json:"dependencies,omitempty"`
	GeneratedAt  time.Time `json:"lastGenerated,omitempty"`
}

// Normalize produces the deduplication key for a component name:
// case-insensitive, surrounding whitespace ignored.
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Registry deduplicates generated components within one job. It is the
// only shared mutable state in the pipeline, so every operation holds
// the registry lock. A Registry holds nothing across jobs.
type Registry struct {
	mu       sync.Mutex
	entries  map[string]*Descriptor
	order    []string
	warnings []string
}

func New() *Registry {
	return &Registry{entries: map[string]*Descriptor{}}
}

// Register adds d under its normalized name. Registering a name twice
// is idempotent for content: the first-registered path and content are
// kept, variant and screens-used sets are merged. A later registration
// with different content is recorded as a non-fatal warning and the
// caller gets the surviving descriptor back.
//
// The returned bool is true when d created a new entry.
func (r *Registry) Register(d *Descriptor) (*Descriptor, bool) {
	key := Normalize(d.Name)
	if key == "" {
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.entries[key]
	if !ok {
		stored := cloneDescriptor(d)
		r.entries[key] = stored
		r.order = append(r.order, key)
		return cloneDescriptor(stored), true
	}

	if d.Content != "" && existing.Content != "" && d.Content != existing.Content {
		r.warnings = append(r.warnings, fmt.Sprintf(
			"component %q re-registered with different content; keeping first from %s",
			existing.Name, firstScreen(existing)))
	}
	existing.Variants = mergeSet(existing.Variants, d.Variants)
	existing.ScreensUsed = mergeSet(existing.ScreensUsed, d.ScreensUsed)
	existing.Dependencies = mergeSet(existing.Dependencies, d.Dependencies)
	existing.Tokens = mergeSet(existing.Tokens, d.Tokens)
	return cloneDescriptor(existing), false
}

// Resolve returns the descriptor stored under name, if any.
func (r *Registry) Resolve(name string) (*Descriptor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.entries[Normalize(name)]
	if !ok {
		return nil, false
	}
	return cloneDescriptor(d), true
}

// RecordUsage adds screen to the screens-used set of an existing
// component. It reports false when the component is unknown.
func (r *Registry) RecordUsage(name, screen string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.entries[Normalize(name)]
	if !ok {
		return false
	}
	d.ScreensUsed = mergeSet(d.ScreensUsed, []string{screen})
	return true
}

// Known returns a snapshot of the registered component names in
// registration order, for inclusion in generation requests. Names
// keep their original casing, not the normalized lookup key.
func (r *Registry) Known() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.entries[key].Name)
	}
	return out
}

// Components returns all descriptors sorted by normalized name.
func (r *Registry) Components() []*Descriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]*Descriptor, 0, len(keys))
	for _, k := range keys {
		out = append(out, cloneDescriptor(r.entries[k]))
	}
	return out
}

// Warnings returns collision warnings recorded so far.
func (r *Registry) Warnings() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.warnings...)
}

func cloneDescriptor(d *Descriptor) *Descriptor {
	cp := *d
	cp.Tokens = append([]string(nil), d.Tokens...)
	cp.Variants = append([]string(nil), d.Variants...)
	cp.ScreensUsed = append([]string(nil), d.ScreensUsed...)
	cp.Dependencies = append([]string(nil), d.Dependencies...)
	return &cp
}

func mergeSet(dst, add []string) []string {
	seen := make(map[string]struct{}, len(dst))
	for _, v := range dst {
		seen[v] = struct{}{}
	}
	for _, v := range add {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		dst = append(dst, v)
	}
	return dst
}

func firstScreen(d *Descriptor) string {
	if len(d.ScreensUsed) > 0 {
		return d.ScreensUsed[0]
	}
	return "unknown screen"
}
