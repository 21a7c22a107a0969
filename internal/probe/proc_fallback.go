//go:build !unix

package probe

import "os/exec"

func setProcGroup(cmd *exec.Cmd) {}

// terminate kills the direct process handle; process groups are not
// available on this platform.
func terminate(cmd *exec.Cmd) {
	if cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
}
