// Package roster resolves which configured participants serve which
// debate roles. Entries bind a model to one or more role patterns
// (glob syntax, so "critic" and "*_expert" and "*" all work), and the
// orchestrator asks the roster for the drafter, the critics, and the
// synthesizer of each round.
package roster

import (
	"context"
	"fmt"

	"github.com/gobwas/glob"

	"github.com/Iron-Ham/quorum/internal/debate"
	"github.com/Iron-Ham/quorum/internal/errors"
)

// Entry is one configured roster member.
type Entry struct {
	// Model is the provider-specific model identifier.
	Model string `json:"model" mapstructure:"model"`
	// DisplayName is the human-facing name used in transcripts and logs.
	DisplayName string `json:"display_name,omitempty" mapstructure:"display_name"`
	// Provider is the registry tag selecting the invoker.
	Provider string `json:"provider,omitempty" mapstructure:"provider"`
	// Roles are glob patterns matched against role names.
	Roles []string `json:"roles" mapstructure:"roles"`
	// Disabled excludes the entry without deleting its configuration.
	Disabled bool `json:"disabled,omitempty" mapstructure:"disabled"`
}

type compiledEntry struct {
	entry Entry
	globs []glob.Glob
}

// Roster is an immutable, compiled participant directory.
type Roster struct {
	entries []compiledEntry
}

// New compiles a roster from entries. Disabled entries are dropped,
// invalid role patterns are an error.
func New(entries []Entry) (*Roster, error) {
	r := &Roster{}
	for i, e := range entries {
		if e.Disabled {
			continue
		}
		if e.Model == "" {
			return nil, fmt.Errorf("roster entry %d: model is required", i)
		}
		roles := e.Roles
		if len(roles) == 0 {
			roles = []string{"*"}
		}
		ce := compiledEntry{entry: e}
		for _, pattern := range roles {
			g, err := glob.Compile(pattern)
			if err != nil {
				return nil, fmt.Errorf("roster entry %d: invalid role pattern %q: %w", i, pattern, err)
			}
			ce.globs = append(ce.globs, g)
		}
		r.entries = append(r.entries, ce)
	}
	return r, nil
}

// ForRole returns every participant whose role patterns match the role,
// in configuration order. The returned participants carry the queried
// role so contributions are attributed to the capacity they were
// invoked in, not the pattern that matched.
func (r *Roster) ForRole(role debate.Role) []debate.Participant {
	var out []debate.Participant
	for _, ce := range r.entries {
		for _, g := range ce.globs {
			if g.Match(string(role)) {
				out = append(out, ce.participant(role))
				break
			}
		}
	}
	return out
}

// Drafter returns the first participant matching the drafter role.
func (r *Roster) Drafter() (debate.Participant, error) {
	return r.first(debate.RoleDrafter)
}

// Synthesizer returns the first participant matching the synthesizer
// role, falling back to the drafter when none is configured.
func (r *Roster) Synthesizer() (debate.Participant, error) {
	if p, err := r.first(debate.RoleSynthesizer); err == nil {
		return p, nil
	}
	return r.first(debate.RoleDrafter)
}

// Critics returns all participants matching the critic role, requiring
// at least min of them.
func (r *Roster) Critics(min int) ([]debate.Participant, error) {
	critics := r.ForRole(debate.RoleCritic)
	if len(critics) < min {
		return nil, errors.NewOrchestrationError(
			fmt.Sprintf("need at least %d critics, roster has %d", min, len(critics)),
			errors.ErrNoParticipant)
	}
	return critics, nil
}

// Experts returns participants matching the domain expert role. May be
// empty; expert deferral is skipped when no expert is configured.
func (r *Roster) Experts() []debate.Participant {
	return r.ForRole(debate.RoleDomainExpert)
}

// Participants returns one participant per enabled entry, carrying the
// first role each entry matches among the known roles.
func (r *Roster) Participants() []debate.Participant {
	known := []debate.Role{
		debate.RoleDrafter,
		debate.RoleCritic,
		debate.RoleSynthesizer,
		debate.RoleDomainExpert,
		debate.RoleCodeReviewer,
	}
	var out []debate.Participant
	for _, ce := range r.entries {
		role := debate.RoleCritic
	match:
		for _, candidate := range known {
			for _, g := range ce.globs {
				if g.Match(string(candidate)) {
					role = candidate
					break match
				}
			}
		}
		out = append(out, ce.participant(role))
	}
	return out
}

// Len returns the number of enabled entries.
func (r *Roster) Len() int { return len(r.entries) }

// FilterHealthy returns a roster restricted to entries whose provider
// passes the health check. Entries without a health verdict are kept.
func (r *Roster) FilterHealthy(ctx context.Context, healthy func(ctx context.Context, p debate.Participant) (bool, bool)) *Roster {
	out := &Roster{}
	for _, ce := range r.entries {
		ok, known := healthy(ctx, ce.participant(debate.RoleCritic))
		if known && !ok {
			continue
		}
		out.entries = append(out.entries, ce)
	}
	return out
}

func (r *Roster) first(role debate.Role) (debate.Participant, error) {
	ps := r.ForRole(role)
	if len(ps) == 0 {
		return debate.Participant{}, errors.NewOrchestrationError(
			"no participant for role "+string(role), errors.ErrNoParticipant)
	}
	return ps[0], nil
}

func (ce compiledEntry) participant(role debate.Role) debate.Participant {
	return debate.Participant{
		Model:       ce.entry.Model,
		DisplayName: ce.entry.DisplayName,
		Provider:    ce.entry.Provider,
		Role:        role,
	}
}
