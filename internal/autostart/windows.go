package autostart

import (
	"fmt"
)

const taskName = "StatsyncDaemon"

// WindowsAutoStarter registers the daemon as a logon scheduled task.
type WindowsAutoStarter struct {
	run runner
}

func (w *WindowsAutoStarter) Install(execPath string) error {
	out, err := w.run("schtasks", "/create",
		"/TN", taskName,
		"/TR", fmt.Sprintf(`"%s" daemon`, execPath),
		"/SC", "ONLOGON",
		"/F")
	if err != nil {
		return fmt.Errorf("failed to register task: %w\n%s", err, out)
	}

	return nil
}

func (w *WindowsAutoStarter) Uninstall() error {
	out, err := w.run("schtasks", "/DELETE", "/TN", taskName, "/F")
	if err != nil {
		return fmt.Errorf("failed to remove task: %w\n%s", err, out)
	}

	return nil
}

func (w *WindowsAutoStarter) IsInstalled() (bool, error) {
	_, err := w.run("schtasks", "/Query", "/TN", taskName)
	return err == nil, nil
}
