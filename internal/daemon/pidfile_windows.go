//go:build windows

package daemon

import (
	"fmt"
	"os"
	"syscall"
	"time"
)

// Running returns the record and whether its process is still alive.
func (p *PIDFile) Running() (Record, bool) {
	r, err := p.Read()
	if err != nil {
		return Record{}, false
	}
	proc, err := os.FindProcess(r.PID)
	if err != nil {
		return r, false
	}
	// FindProcess always succeeds on Windows.
	return r, proc.Signal(syscall.Signal(0)) == nil
}

// Stop kills the recorded process; Windows has no SIGTERM. timeout is
// unused.
func (p *PIDFile) Stop(_ time.Duration) error {
	r, err := p.Read()
	if err != nil {
		return fmt.Errorf("read PID file: %w", err)
	}
	proc, err := os.FindProcess(r.PID)
	if err != nil {
		return fmt.Errorf("find process %d: %w", r.PID, err)
	}
	if err := proc.Kill(); err != nil {
		return fmt.Errorf("kill %d: %w", r.PID, err)
	}
	return p.Remove()
}
