package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func TestSourceLabel(t *testing.T) {
	tests := []struct {
		provenance string
		want       string
	}{
		{"both", "npm+pulse"},
		{"primary-only", "npm"},
		{"secondary-only", "pulse"},
	}
	for _, tt := range tests {
		if got := sourceLabel(tt.provenance); got != tt.want {
			t.Errorf("sourceLabel(%q) = %q, want %q", tt.provenance, got, tt.want)
		}
	}
}

func TestPrintSearchTable(t *testing.T) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	entries := []searchEntry{
		{Name: "server-postgres", Version: "1.2.3", Provenance: "both", UsageCount: 4200, Verified: true, Description: "Postgres access over MCP"},
		{Name: "server-git", Provenance: "primary-only", Description: strings.Repeat("x", 80)},
	}
	if err := printSearchTable(cmd, entries); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "server-postgres *") {
		t.Errorf("verified marker missing:\n%s", out)
	}
	if !strings.Contains(out, "npm+pulse") {
		t.Errorf("merged source label missing:\n%s", out)
	}
	if !strings.Contains(out, "...") {
		t.Errorf("long description not truncated:\n%s", out)
	}
	if !strings.Contains(out, "4200") {
		t.Errorf("usage count missing:\n%s", out)
	}
}

func TestParseEnvFlags(t *testing.T) {
	env, err := parseEnvFlags([]string{"PG_URL=postgres://x", "TOKEN=a=b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env["PG_URL"] != "postgres://x" {
		t.Errorf("PG_URL = %q", env["PG_URL"])
	}
	// Values may themselves contain '='.
	if env["TOKEN"] != "a=b" {
		t.Errorf("TOKEN = %q", env["TOKEN"])
	}

	if _, err := parseEnvFlags([]string{"NOVALUE"}); err == nil {
		t.Error("expected error for malformed pair")
	}
	if env, err := parseEnvFlags(nil); err != nil || env != nil {
		t.Errorf("empty input should yield nil map, got %v, %v", env, err)
	}
}
