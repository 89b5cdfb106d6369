package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Errors returned by registry operations.
var (
	// ErrConflictingType indicates a key was registered twice with different types.
	ErrConflictingType = errors.New("setting registered with conflicting type")

	// ErrInvalidKey indicates an empty domain or key.
	ErrInvalidKey = errors.New("invalid setting key")
)

// Conflict records a rejected re-registration.
type Conflict struct {
	Domain    string
	Key       string
	Existing  Type
	Attempted Type
}

// String describes the conflict.
func (c Conflict) String() string {
	return fmt.Sprintf("%s.%s registered as %s, re-registered as %s", c.Domain, c.Key, c.Existing, c.Attempted)
}

// Registry maintains all known setting declarations.
//
// Registry is safe for concurrent use. Registration normally happens at
// startup; lookups happen on every resolution pass.
type Registry struct {
	mu        sync.RWMutex
	domains   map[string]map[string]*Setting
	conflicts []Conflict
}

// New creates an empty registry with the built-in domains declared.
func New() *Registry {
	r := &Registry{
		domains: make(map[string]map[string]*Setting),
	}
	for _, d := range []string{DomainEditor, DomainKeymap, DomainTheme, DomainPlugins, DomainIgnore} {
		r.domains[d] = make(map[string]*Setting)
	}
	return r
}

// NewWithDefaults creates a registry with the built-in schema registered.
func NewWithDefaults() *Registry {
	r := New()
	r.RegisterDefaults()
	return r
}

// Register declares domain.key with the expected type and default.
// Registering the same key again with the same type is a no-op. A different
// type is rejected with ErrConflictingType and remembered in Conflicts.
func (r *Registry) Register(domain, key string, typ Type, def any) error {
	return r.RegisterSetting(Setting{Domain: domain, Key: key, Type: typ, Default: def})
}

// RegisterSetting declares a setting with its full metadata.
func (r *Registry) RegisterSetting(s Setting) error {
	if s.Domain == "" || s.Key == "" {
		return fmt.Errorf("%w: %q", ErrInvalidKey, s.Domain+"."+s.Key)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	keys, ok := r.domains[s.Domain]
	if !ok {
		keys = make(map[string]*Setting)
		r.domains[s.Domain] = keys
	}

	if existing, exists := keys[s.Key]; exists {
		if existing.Type == s.Type {
			return nil
		}
		r.conflicts = append(r.conflicts, Conflict{
			Domain:    s.Domain,
			Key:       s.Key,
			Existing:  existing.Type,
			Attempted: s.Type,
		})
		return fmt.Errorf("%w: %s.%s is %s, not %s", ErrConflictingType, s.Domain, s.Key, existing.Type, s.Type)
	}

	setting := s
	keys[s.Key] = &setting
	return nil
}

// Lookup returns the declaration for domain.key. Exact declarations win
// over wildcard patterns; among patterns the one with the fewest wildcards
// wins, ties broken by key order.
func (r *Registry) Lookup(domain, key string) (Setting, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys, ok := r.domains[domain]
	if !ok {
		return Setting{}, false
	}
	if s, ok := keys[key]; ok {
		return *s, true
	}

	var best *Setting
	for _, s := range keys {
		if !s.IsPattern() || !s.matches(key) {
			continue
		}
		if best == nil || s.wildcards() < best.wildcards() ||
			(s.wildcards() == best.wildcards() && s.Key < best.Key) {
			best = s
		}
	}
	if best == nil {
		return Setting{}, false
	}
	return *best, true
}

// LookupPath is Lookup for a full dotted path ("editor.tab_size").
func (r *Registry) LookupPath(path string) (Setting, bool) {
	domain, key, ok := strings.Cut(path, ".")
	if !ok {
		return Setting{}, false
	}
	return r.Lookup(domain, key)
}

// AllKeys returns every declared key of a domain, sorted.
func (r *Registry) AllKeys(domain string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.domains[domain]))
	for k := range r.domains[domain] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// HasDomain reports whether the domain is known.
func (r *Registry) HasDomain(domain string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.domains[domain]
	return ok
}

// Domains returns all known domain names, sorted.
func (r *Registry) Domains() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.domains))
	for d := range r.domains {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Defaults returns the default value of every concrete (non-pattern)
// setting that has one, keyed by full dotted path.
func (r *Registry) Defaults() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]any)
	for _, keys := range r.domains {
		for _, s := range keys {
			if s.Default == nil || s.IsPattern() {
				continue
			}
			out[s.Path()] = s.Default
		}
	}
	return out
}

// Required returns the required settings of a domain sorted by key.
func (r *Registry) Required(domain string) []Setting {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Setting
	for _, s := range r.domains[domain] {
		if s.Required && !s.IsPattern() {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Conflicts returns the rejected re-registrations in the order they happened.
func (r *Registry) Conflicts() []Conflict {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Conflict, len(r.conflicts))
	copy(out, r.conflicts)
	return out
}
