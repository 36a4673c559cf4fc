// Package daemon tracks a running admin server through a PID file so other
// invocations can report on it or stop it.
package daemon

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Record is what a running server leaves behind: its process id and the
// address it listens on.
type Record struct {
	PID  int
	Addr string
}

// PIDFile reads and writes a Record at Path.
type PIDFile struct {
	Path string
}

func NewPIDFile(path string) *PIDFile {
	return &PIDFile{Path: path}
}

// Write records the current process as listening on addr.
func (p *PIDFile) Write(addr string) error {
	return p.WriteRecord(Record{PID: os.Getpid(), Addr: addr})
}

// WriteRecord stores r as "pid\naddr\n", creating the parent directory.
func (p *PIDFile) WriteRecord(r Record) error {
	if r.PID <= 0 {
		return fmt.Errorf("invalid PID %d", r.PID)
	}
	if err := os.MkdirAll(filepath.Dir(p.Path), 0o755); err != nil {
		return fmt.Errorf("create PID dir: %w", err)
	}
	data := strconv.Itoa(r.PID) + "\n" + r.Addr + "\n"
	return os.WriteFile(p.Path, []byte(data), 0o644)
}

// Read loads the record. The address line is optional.
func (p *PIDFile) Read() (Record, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return Record{}, err
	}
	lines := strings.SplitN(strings.TrimSpace(string(data)), "\n", 2)
	pid, err := strconv.Atoi(strings.TrimSpace(lines[0]))
	if err != nil || pid <= 0 {
		return Record{}, fmt.Errorf("invalid PID file content %q", lines[0])
	}
	r := Record{PID: pid}
	if len(lines) == 2 {
		r.Addr = strings.TrimSpace(lines[1])
	}
	return r, nil
}

// Remove deletes the PID file. A file that is already gone is not an error.
func (p *PIDFile) Remove() error {
	if err := os.Remove(p.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
