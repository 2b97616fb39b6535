package prompts

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// PromptRegistry manages versioned prompts.
type PromptRegistry struct {
	mu      sync.RWMutex
	prompts map[string]map[PromptVersion]*Prompt // ID -> Version -> Prompt
}

var defaultRegistry *PromptRegistry
var defaultRegistryOnce sync.Once

// DefaultRegistry returns the global registry with the built-in prompts registered.
func DefaultRegistry() *PromptRegistry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewPromptRegistry()
		registerBuiltins(defaultRegistry)
	})
	return defaultRegistry
}

// NewPromptRegistry creates an empty prompt registry.
func NewPromptRegistry() *PromptRegistry {
	return &PromptRegistry{
		prompts: make(map[string]map[PromptVersion]*Prompt),
	}
}

// Register registers a prompt in the registry.
func (r *PromptRegistry) Register(p *Prompt) {
	if p == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.prompts[p.ID] == nil {
		r.prompts[p.ID] = make(map[PromptVersion]*Prompt)
	}
	r.prompts[p.ID][p.Version] = p
}

// Get retrieves a specific version of a prompt.
func (r *PromptRegistry) Get(id string, version PromptVersion) (*Prompt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	versions, ok := r.prompts[id]
	if !ok {
		return nil, fmt.Errorf("prompt not found: %s", id)
	}

	prompt, ok := versions[version]
	if !ok {
		return nil, fmt.Errorf("prompt %s version %s not found", id, version)
	}

	return prompt, nil
}

// GetLatest retrieves the highest non-deprecated version of a prompt.
// If all versions are deprecated, returns the highest version.
func (r *PromptRegistry) GetLatest(id string) (*Prompt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	versions, ok := r.prompts[id]
	if !ok || len(versions) == 0 {
		return nil, fmt.Errorf("prompt not found: %s", id)
	}

	ordered := make([]*Prompt, 0, len(versions))
	for _, p := range versions {
		ordered = append(ordered, p)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return compareVersions(ordered[i].Version, ordered[j].Version) > 0
	})

	for _, p := range ordered {
		if !p.Deprecated {
			return p, nil
		}
	}
	return ordered[0], nil
}

// List returns all prompt IDs in the registry, sorted.
func (r *PromptRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.prompts))
	for id := range r.prompts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// compareVersions orders dotted numeric versions ("1.10.0" > "1.9.0").
// Non-numeric components compare as strings.
func compareVersions(a, b PromptVersion) int {
	ap := strings.Split(string(a), ".")
	bp := strings.Split(string(b), ".")
	for i := 0; i < len(ap) || i < len(bp); i++ {
		var as, bs string
		if i < len(ap) {
			as = ap[i]
		}
		if i < len(bp) {
			bs = bp[i]
		}
		an, aErr := strconv.Atoi(as)
		bn, bErr := strconv.Atoi(bs)
		if aErr == nil && bErr == nil {
			if an != bn {
				if an > bn {
					return 1
				}
				return -1
			}
			continue
		}
		if c := strings.Compare(as, bs); c != 0 {
			return c
		}
	}
	return 0
}
