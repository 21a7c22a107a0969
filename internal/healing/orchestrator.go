package healing

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/anchor-mcp/anchor/internal/probe"
)

// Attempt pairs one diagnosis with the fix tried for it and whether the
// reprobe after applying it succeeded. The ordered attempt list is the
// audit trail of one healing run.
type Attempt struct {
	Diagnosis Diagnosis
	Fix       Fix
	Succeeded bool
}

// Outcome is the result of one healing run.
type Outcome struct {
	Fixed bool
	// Attempts is always populated, on failure too.
	Attempts []Attempt
	// Config is the fixed configuration on success, otherwise the last one
	// attempted.
	Config probe.ServerConfig
	// Tools is the tool list reported by the successful reprobe.
	Tools []string
	// HumanAction is empty on full success.
	HumanAction string
}

// Orchestrator drives the diagnose→fix→reprobe loop.
type Orchestrator struct {
	probe          probe.Probe
	maxAttempts    int
	initialTimeout time.Duration
	lookPath       func(string) (string, error)
}

// New creates an orchestrator with the given attempt budget and the probe
// timeout the failed initial attempt used.
func New(p probe.Probe, maxAttempts int, initialTimeout time.Duration) *Orchestrator {
	return &Orchestrator{
		probe:          p,
		maxAttempts:    maxAttempts,
		initialTimeout: initialTimeout,
		lookPath:       exec.LookPath,
	}
}

// WithLookPath replaces the command resolver (for tests) and returns the
// orchestrator.
func (o *Orchestrator) WithLookPath(lookPath func(string) (string, error)) *Orchestrator {
	o.lookPath = lookPath
	return o
}

// Heal runs up to maxAttempts diagnose→fix→reprobe iterations, starting
// from the error text of the already-failed initial probe (no probe is
// wasted re-observing it). It stops on the first success, on the first fix
// that needs a human, or when the budget runs out. The probe is called at
// most maxAttempts times.
func (o *Orchestrator) Heal(ctx context.Context, serverName string, cfg probe.ServerConfig, initialError string) Outcome {
	outcome := Outcome{Config: cfg}
	errorText := initialError
	timeout := o.initialTimeout

	for len(outcome.Attempts) < o.maxAttempts {
		diag := Diagnose(errorText)
		fix := GenerateFix(diag, outcome.Config, o.lookPath)

		if fix.RequiresHuman {
			outcome.Attempts = append(outcome.Attempts, Attempt{Diagnosis: diag, Fix: fix})
			outcome.HumanAction = humanActionText(fix)
			return outcome
		}

		if fix.Config != nil {
			outcome.Config = *fix.Config
		}
		// Successive timeout diagnoses escalate geometrically; other
		// categories reprobe with the current timeout.
		if diag.Category == CategoryTimeout {
			timeout *= 2
		}

		result := o.probe.Probe(ctx, serverName, outcome.Config, timeout)
		outcome.Attempts = append(outcome.Attempts, Attempt{
			Diagnosis: diag,
			Fix:       fix,
			Succeeded: result.Success,
		})

		if result.Success {
			outcome.Fixed = true
			outcome.Tools = result.ToolNames
			return outcome
		}
		errorText = result.ErrorText
	}

	outcome.HumanAction = fmt.Sprintf(
		"automatic repair attempts exhausted after %d attempt(s); last error: %s",
		len(outcome.Attempts), errorText)
	return outcome
}

func humanActionText(fix Fix) string {
	text := fix.Description
	if fix.InstallHint != "" {
		text += "; " + fix.InstallHint
	}
	if fix.EnvVarHint != "" && fix.EnvVarHint != fix.Description {
		text += " (" + fix.EnvVarHint + ")"
	}
	return text
}
