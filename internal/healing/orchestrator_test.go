package healing

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/anchor-mcp/anchor/internal/probe"
)

// scriptedProbe returns canned results in order and records every call.
type scriptedProbe struct {
	script   []probe.Result
	calls    int
	timeouts []time.Duration
	configs  []probe.ServerConfig
}

func (s *scriptedProbe) Probe(ctx context.Context, serverName string, cfg probe.ServerConfig, timeout time.Duration) probe.Result {
	s.timeouts = append(s.timeouts, timeout)
	s.configs = append(s.configs, cfg)
	res := probe.Result{ErrorText: "unscripted failure"}
	if s.calls < len(s.script) {
		res = s.script[s.calls]
	}
	s.calls++
	return res
}

func resolveAll(command string) (string, error) { return "/usr/bin/" + command, nil }

func TestHealHumanActionFirstMeansZeroProbes(t *testing.T) {
	p := &scriptedProbe{}
	o := New(p, 3, 15*time.Second)

	outcome := o.Heal(context.Background(), "pg", probe.ServerConfig{Command: "npx"}, "GITHUB_TOKEN is not set")

	if p.calls != 0 {
		t.Errorf("probe called %d times, want 0", p.calls)
	}
	if outcome.Fixed {
		t.Error("run must report failure")
	}
	if len(outcome.Attempts) != 1 || outcome.Attempts[0].Succeeded {
		t.Errorf("expected one failed attempt in the trail, got %+v", outcome.Attempts)
	}
	if outcome.HumanAction == "" {
		t.Error("human action text must be surfaced")
	}
}

func TestHealSucceedsAfterCommandResolution(t *testing.T) {
	p := &scriptedProbe{script: []probe.Result{{Success: true, ToolNames: []string{"query"}}}}
	o := New(p, 3, 15*time.Second).WithLookPath(resolveAll)

	outcome := o.Heal(context.Background(), "pg",
		probe.ServerConfig{Command: "npx", Args: []string{"-y", "pkg"}},
		"command not found: npx")

	if !outcome.Fixed {
		t.Fatalf("expected success, got %+v", outcome)
	}
	if outcome.Config.Command != "/usr/bin/npx" {
		t.Errorf("effective config = %+v, want resolved command", outcome.Config)
	}
	if diff := cmp.Diff([]string{"query"}, outcome.Tools); diff != "" {
		t.Errorf("tools mismatch (-want +got):\n%s", diff)
	}
	if outcome.HumanAction != "" {
		t.Errorf("human action must be empty on success, got %q", outcome.HumanAction)
	}
	if len(outcome.Attempts) != 1 || !outcome.Attempts[0].Succeeded {
		t.Errorf("audit trail wrong: %+v", outcome.Attempts)
	}
}

func TestHealTimeoutsEscalateGeometrically(t *testing.T) {
	p := &scriptedProbe{script: []probe.Result{
		{ErrorText: "connection timed out"},
		{ErrorText: "connection timed out"},
		{ErrorText: "connection timed out"},
	}}
	o := New(p, 3, 15*time.Second)

	outcome := o.Heal(context.Background(), "pg", probe.ServerConfig{Command: "npx"}, "connection timed out")

	want := []time.Duration{30 * time.Second, 60 * time.Second, 120 * time.Second}
	if diff := cmp.Diff(want, p.timeouts); diff != "" {
		t.Errorf("timeouts must strictly double (-want +got):\n%s", diff)
	}
	if outcome.Fixed {
		t.Error("expected exhaustion")
	}
}

func TestHealNeverExceedsAttemptBudget(t *testing.T) {
	p := &scriptedProbe{script: []probe.Result{
		{ErrorText: "connection timed out"},
		{ErrorText: "connection timed out"},
		{ErrorText: "connection timed out"},
		{ErrorText: "connection timed out"},
	}}
	o := New(p, 2, 15*time.Second)

	outcome := o.Heal(context.Background(), "pg", probe.ServerConfig{Command: "npx"}, "connection timed out")

	if p.calls > 2 {
		t.Errorf("probe called %d times, budget is 2", p.calls)
	}
	if len(outcome.Attempts) != 2 {
		t.Errorf("attempt trail has %d entries, want 2", len(outcome.Attempts))
	}
	if outcome.HumanAction == "" {
		t.Error("exhaustion must surface a human action message")
	}
}

func TestHealStopsWhenNewErrorNeedsHuman(t *testing.T) {
	// First reprobe fails with an auth error; the engine must stop without
	// a second probe.
	p := &scriptedProbe{script: []probe.Result{{ErrorText: "401 Unauthorized"}}}
	o := New(p, 5, 15*time.Second)

	outcome := o.Heal(context.Background(), "pg", probe.ServerConfig{Command: "npx"}, "connection timed out")

	if p.calls != 1 {
		t.Errorf("probe called %d times, want 1", p.calls)
	}
	if len(outcome.Attempts) != 2 {
		t.Fatalf("expected timeout attempt + auth attempt, got %+v", outcome.Attempts)
	}
	if outcome.Attempts[1].Diagnosis.Category != CategoryAuthFailed {
		t.Errorf("second attempt category = %s, want auth-failed", outcome.Attempts[1].Diagnosis.Category)
	}
	if outcome.Fixed || outcome.HumanAction == "" {
		t.Errorf("expected blocked-on-user outcome, got %+v", outcome)
	}
}

func TestHealKeepsLastAttemptedConfigOnFailure(t *testing.T) {
	p := &scriptedProbe{script: []probe.Result{{ErrorText: "still broken: inexplicable"}}}
	o := New(p, 3, 15*time.Second).WithLookPath(resolveAll)

	outcome := o.Heal(context.Background(), "pg",
		probe.ServerConfig{Command: "npx", Args: []string{"-y", "pkg"}},
		"command not found: npx")

	if outcome.Fixed {
		t.Fatal("expected failure")
	}
	// The command-not-found fix was applied before the reprobe failed, so
	// the effective config is the resolved one.
	if outcome.Config.Command != "/usr/bin/npx" {
		t.Errorf("effective config = %+v, want last attempted", outcome.Config)
	}
}
