package probe

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// fakeServer answers the handshake over in-memory pipes the way a minimal
// MCP stdio server would.
func fakeServer(t *testing.T, tools []string, failToolsList bool) (io.WriteCloser, io.Reader) {
	t.Helper()

	clientOut, serverIn := io.Pipe()
	serverOut, clientIn := io.Pipe()

	go func() {
		defer clientIn.Close()
		scanner := bufio.NewScanner(clientOut)
		for scanner.Scan() {
			var req rpcRequest
			if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
				return
			}

			switch req.Method {
			case "initialize":
				fmt.Fprintf(clientIn, `{"jsonrpc":"2.0","id":%d,"result":{"protocolVersion":"%s"}}`+"\n", req.ID, protocolVersion)
			case "notifications/initialized":
				// no response
			case "tools/list":
				if failToolsList {
					fmt.Fprintf(clientIn, `{"jsonrpc":"2.0","id":%d,"error":{"code":-32601,"message":"tools not supported"}}`+"\n", req.ID)
					return
				}
				names, _ := json.Marshal(toolObjects(tools))
				fmt.Fprintf(clientIn, `{"jsonrpc":"2.0","id":%d,"result":{"tools":%s}}`+"\n", req.ID, names)
			}
		}
	}()

	return serverIn, serverOut
}

func toolObjects(names []string) []map[string]string {
	out := make([]map[string]string, 0, len(names))
	for _, name := range names {
		out = append(out, map[string]string{"name": name})
	}
	return out
}

func TestHandshakeCollectsToolNames(t *testing.T) {
	stdin, stdout := fakeServer(t, []string{"query", "describe"}, false)

	res := handshake(stdin, stdout)
	if !res.Success {
		t.Fatalf("handshake failed: %s", res.ErrorText)
	}
	if diff := cmp.Diff([]string{"query", "describe"}, res.ToolNames); diff != "" {
		t.Errorf("tool names mismatch (-want +got):\n%s", diff)
	}
}

func TestHandshakeSurfacesServerError(t *testing.T) {
	stdin, stdout := fakeServer(t, nil, true)

	res := handshake(stdin, stdout)
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.ErrorText == "" {
		t.Error("expected an error text")
	}
}

func TestServerConfigCloneIsIndependent(t *testing.T) {
	orig := ServerConfig{
		Command: "npx",
		Args:    []string{"-y", "pkg"},
		Env:     map[string]string{"PG_URL": "postgres://localhost"},
	}

	clone := orig.Clone()
	clone.Args[0] = "changed"
	clone.Env["PG_URL"] = "other"

	if orig.Args[0] != "-y" || orig.Env["PG_URL"] != "postgres://localhost" {
		t.Error("clone shares state with the original")
	}
}

func TestServerConfigEnvKeysSortedWithoutValues(t *testing.T) {
	cfg := ServerConfig{Env: map[string]string{"Z_TOKEN": "secret", "A_URL": "x"}}
	got := cfg.EnvKeys()
	if diff := cmp.Diff([]string{"A_URL", "Z_TOKEN"}, got); diff != "" {
		t.Errorf("env keys mismatch (-want +got):\n%s", diff)
	}
}
