// Package healing turns a failed server connection into a bounded repair
// loop: classify the error, generate a candidate fix, apply it, reprobe,
// and either stop on success, stop when a fix needs a human, or loop until
// the attempt budget runs out. Every attempt is recorded so the full
// diagnose→fix→reprobe trail can be shown to the user.
package healing
