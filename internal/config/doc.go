// Package config manages the persistent CLI configuration stored under
// ~/.anchor/config.yaml and its environment-variable overrides (ANCHOR_*).
//
// It wraps Viper with the handful of typed tunables this tool cares about:
// catalog endpoints, the search cache TTL, the healing attempt budget, and
// the initial connection-probe timeout.
package config
