// Package drift compares desired state (the lockfile) against observed
// state (the live host configuration, optionally enriched with live health
// probes) and reports the discrepancies as findings.
//
// Detection is a pure function of its inputs: it never touches the
// filesystem or the network, and findings are informational output, never
// errors.
package drift
