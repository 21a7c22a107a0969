package probe

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"
)

const protocolVersion = "2025-03-26"

// StdioProbe launches a server process and speaks newline-delimited
// JSON-RPC over its stdin/stdout: initialize, initialized, tools/list.
type StdioProbe struct{}

// NewStdioProbe returns the default probe implementation.
func NewStdioProbe() *StdioProbe { return &StdioProbe{} }

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id,omitempty"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcResponse struct {
	ID     int             `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type toolsListResult struct {
	Tools []struct {
		Name string `json:"name"`
	} `json:"tools"`
}

// Probe implements Probe. The spawned process and its whole process group
// are torn down when the handshake finishes or the timeout expires; a timed
// out probe never leaves an orphaned child behind.
func (p *StdioProbe) Probe(ctx context.Context, serverName string, cfg ServerConfig, timeout time.Duration) Result {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.Command(cfg.Command, cfg.Args...)
	cmd.Env = mergedEnv(cfg.Env)
	setProcGroup(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return failure("opening stdin pipe: %v", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return failure("opening stdout pipe: %v", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return failure("%v", err)
	}

	resultCh := make(chan Result, 1)
	go func() {
		resultCh <- handshake(stdin, stdout)
	}()

	var res Result
	select {
	case res = <-resultCh:
	case <-ctx.Done():
		res = failure("connection to %s timed out after %s", serverName, timeout)
	}

	terminate(cmd)
	_ = cmd.Wait()

	// A handshake failure with stderr output usually explains itself better
	// than a broken pipe does.
	if !res.Success {
		if errText := strings.TrimSpace(stderr.String()); errText != "" {
			res.ErrorText = res.ErrorText + ": " + lastLine(errText)
		}
	}
	return res
}

// handshake drives the minimal MCP exchange and extracts tool names.
func handshake(stdin io.WriteCloser, stdout io.Reader) Result {
	reader := bufio.NewReaderSize(stdout, 1<<20)

	initReq := rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "initialize",
		Params: map[string]any{
			"protocolVersion": protocolVersion,
			"capabilities":    map[string]any{},
			"clientInfo":      map[string]any{"name": "anchor", "version": "1"},
		},
	}
	if _, err := readRoundTrip(stdin, reader, initReq); err != nil {
		return failure("initialize failed: %v", err)
	}

	notifyInitialized := rpcRequest{JSONRPC: "2.0", Method: "notifications/initialized"}
	if err := writeMessage(stdin, notifyInitialized); err != nil {
		return failure("initialized notification failed: %v", err)
	}

	listReq := rpcRequest{JSONRPC: "2.0", ID: 2, Method: "tools/list", Params: map[string]any{}}
	raw, err := readRoundTrip(stdin, reader, listReq)
	if err != nil {
		return failure("tools/list failed: %v", err)
	}

	var parsed toolsListResult
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return failure("parsing tools/list result: %v", err)
	}

	names := make([]string, 0, len(parsed.Tools))
	for _, tool := range parsed.Tools {
		names = append(names, tool.Name)
	}
	return Result{Success: true, ToolNames: names}
}

// readRoundTrip writes one request and reads lines until the matching
// response id arrives, skipping server-initiated notifications.
func readRoundTrip(stdin io.Writer, reader *bufio.Reader, req rpcRequest) (json.RawMessage, error) {
	if err := writeMessage(stdin, req); err != nil {
		return nil, err
	}

	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			return nil, fmt.Errorf("reading response: %w", err)
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		var resp rpcResponse
		if err := json.Unmarshal(line, &resp); err != nil {
			return nil, fmt.Errorf("malformed response line: %w", err)
		}
		if resp.ID != req.ID {
			continue
		}
		if resp.Error != nil {
			return nil, fmt.Errorf("server error %d: %s", resp.Error.Code, resp.Error.Message)
		}
		return resp.Result, nil
	}
}

func writeMessage(w io.Writer, msg rpcRequest) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing request: %w", err)
	}
	return nil
}

func mergedEnv(extra map[string]string) []string {
	env := os.Environ()
	for k, v := range extra {
		env = append(env, k+"="+v)
	}
	return env
}

func failure(format string, args ...any) Result {
	return Result{ErrorText: fmt.Sprintf(format, args...)}
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
