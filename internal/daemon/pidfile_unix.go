//go:build !windows

package daemon

import (
	"errors"
	"fmt"
	"syscall"
	"time"
)

// Running returns the record and whether its process is still alive.
func (p *PIDFile) Running() (Record, bool) {
	r, err := p.Read()
	if err != nil {
		return Record{}, false
	}
	return r, alive(r.PID)
}

func alive(pid int) bool {
	err := syscall.Kill(pid, 0)
	return err == nil || errors.Is(err, syscall.EPERM)
}

// Stop sends SIGTERM to the recorded process and waits up to timeout for
// it to exit. The PID file is removed once the process is gone.
func (p *PIDFile) Stop(timeout time.Duration) error {
	r, err := p.Read()
	if err != nil {
		return fmt.Errorf("read PID file: %w", err)
	}
	if err := syscall.Kill(r.PID, syscall.SIGTERM); err != nil {
		if errors.Is(err, syscall.ESRCH) {
			return p.Remove()
		}
		return fmt.Errorf("signal %d: %w", r.PID, err)
	}

	deadline := time.Now().Add(timeout)
	for alive(r.PID) {
		if time.Now().After(deadline) {
			return fmt.Errorf("process %d still running after %s", r.PID, timeout)
		}
		time.Sleep(100 * time.Millisecond)
	}
	return p.Remove()
}
