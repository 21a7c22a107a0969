//go:build unix

package probe

import (
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

const termGrace = 2 * time.Second

// setProcGroup puts the child in its own process group so a timeout can
// take down the whole tree, npx wrapper and grandchildren included.
func setProcGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// terminate stops the probe process: SIGTERM to the group, a short grace
// period, then SIGKILL. If the group cannot be resolved it falls back to
// killing the direct process handle.
func terminate(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}

	pgid, err := unix.Getpgid(cmd.Process.Pid)
	if err != nil {
		_ = cmd.Process.Kill()
		return
	}

	_ = unix.Kill(-pgid, unix.SIGTERM)

	done := make(chan struct{})
	go func() {
		// Poll for group exit; signal 0 only checks existence.
		for unix.Kill(-pgid, 0) == nil {
			time.Sleep(50 * time.Millisecond)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(termGrace):
		_ = unix.Kill(-pgid, unix.SIGKILL)
	}
}
