//go:build !unix

package lockfile

import (
	"fmt"
	"os"
	"time"
)

const (
	dirLockTimeout = 10 * time.Second
	dirLockPoll    = 25 * time.Millisecond
)

// acquireFileLock emulates an advisory lock where flock is unavailable:
// atomic directory creation is the mutual-exclusion primitive. The returned
// release func must be called on every exit path.
func acquireFileLock(path string) (release func(), err error) {
	lockDir := path + ".d"
	deadline := time.Now().Add(dirLockTimeout)

	for {
		err := os.Mkdir(lockDir, 0755)
		if err == nil {
			return func() { _ = os.Remove(lockDir) }, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("creating lock directory %s: %w", lockDir, err)
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("timed out waiting for lock directory %s", lockDir)
		}
		time.Sleep(dirLockPoll)
	}
}
