package lockfile

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// ToolsHash returns the content fingerprint of a tool name list: a sha256
// over the sorted, pipe-joined names, rendered as "sha256-<hex>". The hash
// is order-independent by construction. An empty list has no hash.
func ToolsHash(tools []string) *string {
	if len(tools) == 0 {
		return nil
	}

	sorted := make([]string, len(tools))
	copy(sorted, tools)
	sort.Strings(sorted)

	sum := sha256.Sum256([]byte(strings.Join(sorted, "|")))
	h := "sha256-" + hex.EncodeToString(sum[:])
	return &h
}
