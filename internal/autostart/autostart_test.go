package autostart

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	calls [][]string
	err   error
}

func (r *recorder) run(name string, args ...string) ([]byte, error) {
	r.calls = append(r.calls, append([]string{name}, args...))
	return nil, r.err
}

func TestLinuxInstallUninstall(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	rec := &recorder{}
	l := &LinuxAutoStarter{run: rec.run}

	require.NoError(t, l.Install("/usr/local/bin/statsync"))

	b, err := os.ReadFile(filepath.Join(home, ".config", "systemd", "user", "statsync.service"))
	require.NoError(t, err)
	assert.Contains(t, string(b), "ExecStart=/usr/local/bin/statsync daemon")
	assert.Contains(t, string(b), "[Service]")

	installed, err := l.IsInstalled()
	require.NoError(t, err)
	assert.True(t, installed)

	require.Len(t, rec.calls, 2)
	assert.Equal(t, "systemctl --user enable --now statsync.service", strings.Join(rec.calls[1], " "))

	require.NoError(t, l.Uninstall())
	installed, err = l.IsInstalled()
	require.NoError(t, err)
	assert.False(t, installed)
}

func TestLinuxInstallReportsSystemctlFailure(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	l := &LinuxAutoStarter{run: (&recorder{err: errors.New("exit status 1")}).run}
	assert.ErrorContains(t, l.Install("/bin/statsync"), "daemon-reload")
}

func TestWindowsTask(t *testing.T) {
	rec := &recorder{}
	w := &WindowsAutoStarter{run: rec.run}

	require.NoError(t, w.Install(`C:\statsync.exe`))
	require.Len(t, rec.calls, 1)
	assert.Contains(t, rec.calls[0], `"C:\statsync.exe" daemon`)

	installed, err := w.IsInstalled()
	require.NoError(t, err)
	assert.True(t, installed)
}
