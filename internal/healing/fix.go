package healing

import (
	"fmt"
	"strings"

	"github.com/anchor-mcp/anchor/internal/probe"
)

// Fix is one candidate repair produced from exactly one diagnosis.
type Fix struct {
	Description string
	// Config is the replacement launch configuration, nil when the fix
	// changes nothing (e.g. a plain retry).
	Config *probe.ServerConfig
	// InstallHint names a package or runtime the user may need to install.
	InstallHint string
	// EnvVarHint names the environment variable the user must provide.
	EnvVarHint string
	// RequiresHuman is true when nothing can be retried automatically.
	RequiresHuman bool
}

// stdioFlag is the transport flag added when a server appears to default to
// a non-stdio transport.
const stdioFlag = "--stdio"

// GenerateFix maps a diagnosis to a candidate fix for the given
// configuration. It is a pure decision: the only host interaction is the
// injected lookPath, and it never probes.
func GenerateFix(diag Diagnosis, cfg probe.ServerConfig, lookPath func(string) (string, error)) Fix {
	switch diag.Category {
	case CategoryCommandNotFound:
		resolved, err := lookPath(cfg.Command)
		if err != nil || resolved == cfg.Command {
			return Fix{
				Description:   fmt.Sprintf("%q is not installed or not on PATH", cfg.Command),
				InstallHint:   installHintFor(cfg.Command),
				RequiresHuman: true,
			}
		}
		fixed := cfg.Clone()
		fixed.Command = resolved
		return Fix{
			Description: fmt.Sprintf("use resolved path %s", resolved),
			Config:      &fixed,
		}

	case CategoryTimeout:
		return Fix{Description: "retry with a longer timeout"}

	case CategoryTransportMismatch:
		if hasArg(cfg.Args, stdioFlag) {
			return Fix{
				Description:   "server still rejects stdio transport; its documentation may require a different launch mode",
				RequiresHuman: true,
			}
		}
		fixed := cfg.Clone()
		fixed.Args = append(fixed.Args, stdioFlag)
		return Fix{
			Description: "add " + stdioFlag + " to force stdio transport",
			Config:      &fixed,
		}

	case CategoryAuthFailed:
		return Fix{
			Description:   "set valid credentials for this server",
			EnvVarHint:    envHint(diag),
			RequiresHuman: true,
		}

	case CategoryMissingEnvVar:
		hint := envHint(diag)
		desc := "set the required environment variable"
		if hint != "" {
			desc = "set the required environment variable " + hint
		}
		return Fix{
			Description:   desc,
			EnvVarHint:    hint,
			RequiresHuman: true,
		}

	case CategoryConnectionRefused:
		return Fix{
			Description:   "the server refused the connection; check its transport and port configuration",
			RequiresHuman: true,
		}

	case CategoryPermissionDenied:
		return Fix{
			Description:   "fix filesystem permissions for the server's files",
			RequiresHuman: true,
		}

	default:
		return Fix{
			Description:   "unrecognized failure; check the server's logs",
			RequiresHuman: true,
		}
	}
}

func envHint(diag Diagnosis) string {
	return EnvVarFromError(diag.ErrorText)
}

// installHintFor suggests the runtime that provides well-known launchers.
func installHintFor(command string) string {
	switch strings.TrimSuffix(command, ".exe") {
	case "npx", "npm", "node":
		return "install Node.js (https://nodejs.org)"
	case "uvx", "uv":
		return "install uv (https://docs.astral.sh/uv)"
	case "docker":
		return "install Docker"
	default:
		return "install " + command
	}
}

func hasArg(args []string, flag string) bool {
	for _, arg := range args {
		if arg == flag {
			return true
		}
	}
	return false
}
