package drift

import (
	"fmt"
	"sort"
	"strings"

	"github.com/anchor-mcp/anchor/internal/lockfile"
)

// Kind classifies one drift finding.
type Kind string

const (
	KindMissing        Kind = "missing"
	KindExtra          Kind = "extra"
	KindConfigChanged  Kind = "config-changed"
	KindToolsChanged   Kind = "tools-changed"
	KindVersionChanged Kind = "version-changed"
)

// Severity labels how urgently a finding needs operator attention.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Finding is one detected discrepancy for one server.
type Finding struct {
	Server   string   `json:"server" yaml:"server"`
	Kind     Kind     `json:"kind" yaml:"kind"`
	Severity Severity `json:"severity" yaml:"severity"`
	Detail   string   `json:"detail" yaml:"detail"`
}

// Installed is one server entry as read from the live host configuration.
type Installed struct {
	Command string
	Args    []string
}

// Health is one server's live probe outcome. Tool drift is evaluated only
// for servers whose health was actually observed and healthy.
type Health struct {
	Healthy bool
	Tools   []string
}

// Detect diffs locked entries against installed entries and optional live
// health results. Findings come back sorted by server name; a server can
// receive a config-changed and a tools-changed finding at once but never
// two findings of the same kind.
func Detect(locked map[string]lockfile.Entry, installed map[string]Installed, health map[string]Health) []Finding {
	var findings []Finding

	for _, name := range sortedKeys(locked) {
		entry := locked[name]

		inst, ok := installed[name]
		if !ok {
			findings = append(findings, Finding{
				Server:   name,
				Kind:     KindMissing,
				Severity: SeverityWarning,
				Detail:   fmt.Sprintf("locked server %q is not present in the host configuration", name),
			})
			continue
		}

		if f, changed := diffConfig(name, entry, inst); changed {
			findings = append(findings, f)
		}
		if f, changed := diffTools(name, entry, health); changed {
			findings = append(findings, f)
		}
	}

	for _, name := range sortedKeys(installed) {
		if _, ok := locked[name]; ok {
			continue
		}
		findings = append(findings, Finding{
			Server:   name,
			Kind:     KindExtra,
			Severity: SeverityInfo,
			Detail:   fmt.Sprintf("server %q is installed but not tracked by the lockfile", name),
		})
	}

	sort.SliceStable(findings, func(i, j int) bool {
		return findings[i].Server < findings[j].Server
	})
	return findings
}

// diffConfig compares command and argument list, order-sensitive. Any
// difference yields one finding showing both configurations.
func diffConfig(name string, entry lockfile.Entry, inst Installed) (Finding, bool) {
	if entry.Config.Command == inst.Command && equalArgs(entry.Config.Args, inst.Args) {
		return Finding{}, false
	}
	return Finding{
		Server:   name,
		Kind:     KindConfigChanged,
		Severity: SeverityWarning,
		Detail: fmt.Sprintf("locked: %s | installed: %s",
			renderCommand(entry.Config.Command, entry.Config.Args),
			renderCommand(inst.Command, inst.Args)),
	}, true
}

// diffTools compares the locked tool hash against the live tool list. It is
// evaluated only when live health exists for this exact name, reports the
// server healthy, and the locked entry has a non-empty tool list. An
// absent, unhealthy, or timed-out probe never fabricates a finding.
func diffTools(name string, entry lockfile.Entry, health map[string]Health) (Finding, bool) {
	h, ok := health[name]
	if !ok || !h.Healthy || len(entry.Tools) == 0 {
		return Finding{}, false
	}

	current := lockfile.ToolsHash(h.Tools)
	if hashesEqual(entry.ToolsHash, current) {
		return Finding{}, false
	}

	added, removed := setDiff(h.Tools, entry.Tools)
	return Finding{
		Server:   name,
		Kind:     KindToolsChanged,
		Severity: SeverityError,
		Detail:   fmt.Sprintf("tool set changed; added: [%s], removed: [%s]", strings.Join(added, ", "), strings.Join(removed, ", ")),
	}, true
}

// setDiff returns sorted (current - locked, locked - current).
func setDiff(current, locked []string) (added, removed []string) {
	currentSet := make(map[string]bool, len(current))
	for _, tool := range current {
		currentSet[tool] = true
	}
	lockedSet := make(map[string]bool, len(locked))
	for _, tool := range locked {
		lockedSet[tool] = true
	}

	for tool := range currentSet {
		if !lockedSet[tool] {
			added = append(added, tool)
		}
	}
	for tool := range lockedSet {
		if !currentSet[tool] {
			removed = append(removed, tool)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}

func hashesEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalArgs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func renderCommand(command string, args []string) string {
	if len(args) == 0 {
		return command
	}
	return command + " " + strings.Join(args, " ")
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
