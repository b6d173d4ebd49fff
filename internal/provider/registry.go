package provider

import (
	"context"
	"sort"
	"sync"

	"github.com/Iron-Ham/quorum/internal/debate"
	"github.com/Iron-Ham/quorum/internal/errors"
)

// Registry maps provider tags (the Participant.Provider field) to Invokers.
// Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	invokers map[string]Invoker
	fallback string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{invokers: make(map[string]Invoker)}
}

// Register adds an Invoker under the given tag. The first registered
// tag becomes the fallback for participants with an empty provider.
func (r *Registry) Register(tag string, inv Invoker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.invokers) == 0 {
		r.fallback = tag
	}
	r.invokers[tag] = inv
}

// Lookup resolves the Invoker for a participant. An empty provider tag
// resolves to the fallback.
func (r *Registry) Lookup(p debate.Participant) (Invoker, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tag := p.Provider
	if tag == "" {
		tag = r.fallback
	}
	inv, ok := r.invokers[tag]
	if !ok {
		return nil, errors.NewProviderError("no provider registered for tag "+tag, errors.ErrNoProvider).
			WithProvider(tag).
			WithRetryable(false)
	}
	return inv, nil
}

// Invoke resolves and calls the participant's provider in one step,
// so the Registry itself satisfies Invoker.
func (r *Registry) Invoke(ctx context.Context, p debate.Participant, req Request) (*Response, error) {
	inv, err := r.Lookup(p)
	if err != nil {
		return nil, err
	}
	return inv.Invoke(ctx, p, req)
}

// Tags returns the registered provider tags, sorted.
func (r *Registry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tags := make([]string, 0, len(r.invokers))
	for tag := range r.invokers {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
