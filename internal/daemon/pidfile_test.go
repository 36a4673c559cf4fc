package daemon

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPIDFile_WriteAndRead(t *testing.T) {
	pf := NewPIDFile(filepath.Join(t.TempDir(), "run", "serve.pid"))

	require.NoError(t, pf.WriteRecord(Record{PID: 12345, Addr: "127.0.0.1:8787"}))

	r, err := pf.Read()
	require.NoError(t, err)
	assert.Equal(t, Record{PID: 12345, Addr: "127.0.0.1:8787"}, r)
}

func TestPIDFile_Write_CurrentPID(t *testing.T) {
	pf := NewPIDFile(filepath.Join(t.TempDir(), "serve.pid"))

	require.NoError(t, pf.Write(":8787"))

	r, err := pf.Read()
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), r.PID)
	assert.Equal(t, ":8787", r.Addr)
}

func TestPIDFile_WriteRecord_InvalidPID(t *testing.T) {
	pf := NewPIDFile(filepath.Join(t.TempDir(), "serve.pid"))
	assert.Error(t, pf.WriteRecord(Record{PID: 0}))
}

func TestPIDFile_Read_PIDOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "serve.pid")
	require.NoError(t, os.WriteFile(path, []byte("42\n"), 0o644))

	r, err := NewPIDFile(path).Read()
	require.NoError(t, err)
	assert.Equal(t, Record{PID: 42}, r)
}

func TestPIDFile_Read_MissingFile(t *testing.T) {
	_, err := NewPIDFile(filepath.Join(t.TempDir(), "nonexistent.pid")).Read()
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestPIDFile_Read_InvalidContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.pid")
	require.NoError(t, os.WriteFile(path, []byte("not-a-number\n"), 0o644))

	_, err := NewPIDFile(path).Read()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid PID file content")
}

func TestPIDFile_Remove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "serve.pid")
	pf := NewPIDFile(path)

	require.NoError(t, pf.WriteRecord(Record{PID: 1}))
	require.NoError(t, pf.Remove())

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// Removing again is fine.
	assert.NoError(t, pf.Remove())
}

func TestPIDFile_Running_CurrentProcess(t *testing.T) {
	pf := NewPIDFile(filepath.Join(t.TempDir(), "serve.pid"))
	require.NoError(t, pf.Write("localhost:8787"))

	r, running := pf.Running()
	assert.True(t, running)
	assert.Equal(t, os.Getpid(), r.PID)
	assert.Equal(t, "localhost:8787", r.Addr)
}

func TestPIDFile_Running_NoFile(t *testing.T) {
	r, running := NewPIDFile(filepath.Join(t.TempDir(), "nonexistent.pid")).Running()
	assert.Equal(t, Record{}, r)
	assert.False(t, running)
}

func TestPIDFile_Stop_NoFile(t *testing.T) {
	err := NewPIDFile(filepath.Join(t.TempDir(), "nonexistent.pid")).Stop(0)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "read PID file")
}
