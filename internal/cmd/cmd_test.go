package cmd

import (
	"context"
	"testing"

	"github.com/Iron-Ham/quorum/internal/config"
	"github.com/Iron-Ham/quorum/internal/debate"
	"github.com/Iron-Ham/quorum/internal/provider"
	"github.com/Iron-Ham/quorum/internal/render"
	"github.com/Iron-Ham/quorum/internal/roster"
)

func TestRootCommand(t *testing.T) {
	if rootCmd == nil {
		t.Fatal("rootCmd is nil")
	}
	if rootCmd.Use != "quorum" {
		t.Errorf("rootCmd.Use = %q, want %q", rootCmd.Use, "quorum")
	}

	// Check for expected subcommands (compare by Name(), not Use which includes args)
	expectedCmds := []string{"run", "resume", "sessions", "version"}
	cmdMap := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		cmdMap[cmd.Name()] = true
	}
	for _, name := range expectedCmds {
		if !cmdMap[name] {
			t.Errorf("rootCmd missing subcommand %q", name)
		}
	}
}

func TestParseParticipantFlags(t *testing.T) {
	tests := []struct {
		name      string
		input     []string
		wantLen   int
		wantRoles []string
		wantErr   bool
	}{
		{
			name:      "model with roles",
			input:     []string{"claude-opus-4:drafter,synthesizer"},
			wantLen:   1,
			wantRoles: []string{"drafter", "synthesizer"},
		},
		{
			name:    "model without roles gets wildcard later",
			input:   []string{"claude-sonnet-4"},
			wantLen: 1,
		},
		{
			name:    "multiple flags",
			input:   []string{"a:drafter", "b:critic"},
			wantLen: 2,
		},
		{
			name:    "empty model",
			input:   []string{":critic"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := parseParticipantFlags(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("parseParticipantFlags() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseParticipantFlags() error = %v", err)
			}
			if len(entries) != tt.wantLen {
				t.Fatalf("len(entries) = %d, want %d", len(entries), tt.wantLen)
			}
			if tt.wantRoles != nil {
				got := entries[0].Roles
				if len(got) != len(tt.wantRoles) {
					t.Fatalf("Roles = %v, want %v", got, tt.wantRoles)
				}
				for i := range got {
					if got[i] != tt.wantRoles[i] {
						t.Errorf("Roles[%d] = %q, want %q", i, got[i], tt.wantRoles[i])
					}
				}
			}
		})
	}
}

func TestEntriesFromParticipants(t *testing.T) {
	participants := []debate.Participant{
		{Model: "model-a", Provider: "claude", Role: debate.RoleDrafter},
		{Model: "model-a", Provider: "claude", Role: debate.RoleSynthesizer},
		{Model: "model-b", Provider: "claude", Role: debate.RoleCritic},
	}

	entries := entriesFromParticipants(participants)
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2 (same model merged)", len(entries))
	}
	if entries[0].Model != "model-a" {
		t.Errorf("entries[0].Model = %q, want model-a (order preserved)", entries[0].Model)
	}
	if len(entries[0].Roles) != 2 {
		t.Errorf("entries[0].Roles = %v, want both roles", entries[0].Roles)
	}
	if len(entries[1].Roles) != 1 || entries[1].Roles[0] != "critic" {
		t.Errorf("entries[1].Roles = %v, want [critic]", entries[1].Roles)
	}
}

func TestBuildRegistryClaudeFallback(t *testing.T) {
	cfg := config.Default()
	cfg.Providers["codex"] = config.ProviderConfig{Command: "codex"}

	reg := buildRegistry(cfg)
	tags := reg.Tags()
	if len(tags) != 2 {
		t.Fatalf("Tags() = %v, want 2 providers", tags)
	}

	// A participant without a provider tag resolves to the claude
	// fallback rather than erroring.
	p := debate.Participant{Model: "m", Role: debate.RoleCritic}
	if _, err := reg.Lookup(p); err != nil {
		t.Errorf("Lookup(untagged) error = %v, want fallback", err)
	}
}

type stubInvoker struct{}

func (stubInvoker) Invoke(context.Context, debate.Participant, provider.Request) (*provider.Response, error) {
	return &provider.Response{}, nil
}

type healthStubInvoker struct {
	stubInvoker
	up bool
}

func (h healthStubInvoker) Healthy(context.Context) bool { return h.up }

func TestHealthyRosterFiltersUnavailable(t *testing.T) {
	reg := provider.NewRegistry()
	reg.Register("up", healthStubInvoker{up: true})
	reg.Register("down", healthStubInvoker{up: false})
	reg.Register("plain", stubInvoker{})

	ros, err := roster.New([]roster.Entry{
		{Model: "a", Provider: "up", Roles: []string{"drafter"}},
		{Model: "b", Provider: "down", Roles: []string{"critic"}},
		{Model: "c", Provider: "plain", Roles: []string{"critic"}},
	})
	if err != nil {
		t.Fatalf("roster.New: %v", err)
	}

	got := healthyRoster(context.Background(), ros, reg)
	if got.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 after dropping the unhealthy provider", got.Len())
	}
	for _, p := range got.Participants() {
		if p.Provider == "down" {
			t.Errorf("unhealthy provider %q survived the filter", p.Provider)
		}
	}

	// An unregistered provider tag counts as unavailable.
	orphan, err := roster.New([]roster.Entry{{Model: "d", Provider: "missing", Roles: []string{"critic"}}})
	if err != nil {
		t.Fatalf("roster.New: %v", err)
	}
	if got := healthyRoster(context.Background(), orphan, reg); got.Len() != 0 {
		t.Errorf("Len() = %d, want 0 for an unregistered provider", got.Len())
	}
}

func TestFormatExtension(t *testing.T) {
	tests := []struct {
		format render.Format
		want   string
	}{
		{render.FormatMarkdown, ".md"},
		{render.FormatJSON, ".json"},
		{render.FormatYAML, ".yaml"},
	}
	for _, tt := range tests {
		if got := formatExtension(tt.format); got != tt.want {
			t.Errorf("formatExtension(%q) = %q, want %q", tt.format, got, tt.want)
		}
	}
}
