package healing

import (
	"regexp"
	"strings"
)

// Category classifies a connection error into the vocabulary the fix
// generator understands.
type Category string

const (
	CategoryCommandNotFound   Category = "command-not-found"
	CategoryConnectionRefused Category = "connection-refused"
	CategoryTimeout           Category = "timeout"
	CategoryAuthFailed        Category = "auth-failed"
	CategoryMissingEnvVar     Category = "missing-env-var"
	CategoryPermissionDenied  Category = "permission-denied"
	CategoryTransportMismatch Category = "transport-mismatch"
	CategoryUnknown           Category = "unknown"
)

// Diagnosis is the immutable result of classifying one error text.
type Diagnosis struct {
	Category     Category
	ErrorText    string
	Explanation  string
	SuggestedFix string
	// Confidence is in [0,1]; the unknown fallback scores lowest.
	Confidence float64
}

// envVarToken matches an upper-snake-case token resembling an environment
// variable name (at least one underscore, e.g. GITHUB_TOKEN, PG_URL).
var envVarToken = regexp.MustCompile(`\b[A-Z][A-Z0-9]*(?:_[A-Z0-9]+)+\b`)

var missingKeywords = []string{"not set", "missing", "required", "must be set", "undefined"}

// Diagnose classifies an error text by checking pattern rules in priority
// order. The first matching rule wins; nothing ever fails to classify
// because unknown is the fallback.
func Diagnose(errorText string) Diagnosis {
	lower := strings.ToLower(errorText)

	contains := func(substrings ...string) bool {
		for _, sub := range substrings {
			if strings.Contains(lower, sub) {
				return true
			}
		}
		return false
	}

	switch {
	case contains("command not found", "executable file not found", "no such file or directory", "enoent", "is not recognized"):
		return Diagnosis{
			Category:     CategoryCommandNotFound,
			ErrorText:    errorText,
			Explanation:  "The launch command could not be found on this machine.",
			SuggestedFix: "Install the runtime (e.g. Node.js for npx, uv for uvx) or use the command's absolute path.",
			Confidence:   0.95,
		}

	case contains("connection refused", "econnrefused", "connection reset", "socket hang up", "broken pipe"):
		return Diagnosis{
			Category:     CategoryConnectionRefused,
			ErrorText:    errorText,
			Explanation:  "The server process started but refused or dropped the connection.",
			SuggestedFix: "Check that the server supports stdio transport and that nothing else is bound to its port.",
			Confidence:   0.85,
		}

	case contains("timed out", "timeout", "etimedout", "deadline exceeded"):
		return Diagnosis{
			Category:     CategoryTimeout,
			ErrorText:    errorText,
			Explanation:  "The server did not answer the handshake in time; first runs often download packages.",
			SuggestedFix: "Retry with a longer timeout.",
			Confidence:   0.9,
		}

	case contains("unauthorized", "authentication failed", "auth failed", "invalid api key", "invalid token", "401", "403", "forbidden"):
		return Diagnosis{
			Category:     CategoryAuthFailed,
			ErrorText:    errorText,
			Explanation:  "The server rejected the configured credentials.",
			SuggestedFix: "Set or refresh the server's API credentials in its environment variables.",
			Confidence:   0.85,
		}

	case isMissingEnvVar(errorText, lower):
		return Diagnosis{
			Category:     CategoryMissingEnvVar,
			ErrorText:    errorText,
			Explanation:  "The server requires an environment variable that is not set.",
			SuggestedFix: "Export the named variable before starting the server.",
			Confidence:   0.9,
		}

	case contains("permission denied", "eacces", "eperm", "operation not permitted"):
		return Diagnosis{
			Category:     CategoryPermissionDenied,
			ErrorText:    errorText,
			Explanation:  "The operating system denied access to a file or resource the server needs.",
			SuggestedFix: "Fix the ownership or mode of the affected path.",
			Confidence:   0.85,
		}

	case contains("transport", "sse endpoint", "stdio required"):
		return Diagnosis{
			Category:     CategoryTransportMismatch,
			ErrorText:    errorText,
			Explanation:  "The server is speaking a different transport than the client expects.",
			SuggestedFix: "Run the server in stdio mode.",
			Confidence:   0.7,
		}

	default:
		return Diagnosis{
			Category:     CategoryUnknown,
			ErrorText:    errorText,
			Explanation:  "The error does not match a known failure pattern.",
			SuggestedFix: "Inspect the server's own logs.",
			Confidence:   0.3,
		}
	}
}

// isMissingEnvVar requires both a missing/required keyword and a signal
// that the missing thing is an environment variable: either an
// upper-snake-case token or the literal phrase. A bare "missing X" is not
// enough.
func isMissingEnvVar(errorText, lower string) bool {
	keyword := false
	for _, kw := range missingKeywords {
		if strings.Contains(lower, kw) {
			keyword = true
			break
		}
	}
	if !keyword {
		return false
	}
	return envVarToken.MatchString(errorText) || strings.Contains(lower, "environment variable")
}

// EnvVarFromError extracts the first token resembling an environment
// variable name, or "" when none is present.
func EnvVarFromError(errorText string) string {
	return envVarToken.FindString(errorText)
}
