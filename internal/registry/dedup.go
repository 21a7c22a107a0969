package registry

import (
	"net/url"
	"strings"
)

// RepoKey derives the normalized "owner/repo" identity from a repository
// URL. It returns false when the URL carries no usable owner/repo pair.
func RepoKey(repoURL string) (string, bool) {
	if repoURL == "" {
		return "", false
	}

	raw := strings.TrimSpace(repoURL)
	raw = strings.TrimPrefix(raw, "git+")
	raw = strings.TrimSuffix(raw, ".git")

	// ssh-style remotes: git@github.com:owner/repo
	if at := strings.Index(raw, "@"); at >= 0 && strings.Contains(raw[at:], ":") && !strings.Contains(raw, "://") {
		raw = strings.Replace(raw[at+1:], ":", "/", 1)
		raw = "https://" + raw
	}

	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", false
	}

	return strings.ToLower(parts[0] + "/" + parts[1]), true
}

// DedupKey returns the derived identity used to recognize the same logical
// server across catalogs: owner/repo when a repository URL is present,
// otherwise the alternate id. Returns false when neither is usable.
func DedupKey(r Record) (string, bool) {
	if key, ok := RepoKey(r.RepositoryURL); ok {
		return "repo:" + key, true
	}
	if r.AlternateID != "" {
		return "alt:" + strings.ToLower(r.AlternateID), true
	}
	return "", false
}
