package autostart

import (
	"fmt"
	"os"
	"path/filepath"
	"text/template"
)

const unitTemplate = `[Unit]
Description=statsync sync job daemon
After=network-online.target
Wants=network-online.target

[Service]
ExecStart={{.ExecPath}} daemon
Restart=on-failure
RestartSec=5

[Install]
WantedBy=default.target
`

var unit = template.Must(template.New("unit").Parse(unitTemplate))

// LinuxAutoStarter runs the daemon as a systemd user service.
type LinuxAutoStarter struct {
	run runner
}

func (l *LinuxAutoStarter) unitName() string {
	return serviceName + ".service"
}

func (l *LinuxAutoStarter) unitPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	dir := filepath.Join(home, ".config", "systemd", "user")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	return filepath.Join(dir, l.unitName()), nil
}

func (l *LinuxAutoStarter) Install(execPath string) error {
	path, err := l.unitPath()
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create unit file: %w", err)
	}

	if err := unit.Execute(f, map[string]string{"ExecPath": execPath}); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write unit file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write unit file: %w", err)
	}

	cmds := [][]string{
		{"systemctl", "--user", "daemon-reload"},
		{"systemctl", "--user", "enable", "--now", l.unitName()},
	}

	for _, args := range cmds {
		if out, err := l.run(args[0], args[1:]...); err != nil {
			return fmt.Errorf("failed to run %v: %w\n%s", args, err, out)
		}
	}

	return nil
}

func (l *LinuxAutoStarter) Uninstall() error {
	_, _ = l.run("systemctl", "--user", "disable", "--now", l.unitName())

	path, err := l.unitPath()
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove unit file: %w", err)
	}

	_, _ = l.run("systemctl", "--user", "daemon-reload")
	return nil
}

func (l *LinuxAutoStarter) IsInstalled() (bool, error) {
	path, err := l.unitPath()
	if err != nil {
		return false, err
	}

	_, err = os.Stat(path)
	return err == nil, nil
}
