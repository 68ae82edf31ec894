package cmd

import (
	"errors"
	"fmt"

	"github.com/go-resty/resty/v2"
)

// errDaemonDown means the local daemon did not answer at all.
var errDaemonDown = errors.New("daemon not running")

type daemonError struct {
	Error string `json:"error"`
}

// callDaemon sends a request to the local daemon's API and decodes a
// successful answer into result.
func callDaemon(method, path string, body, result any) error {
	req := resty.New().R().SetError(&daemonError{})
	if body != nil {
		req.SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}

	resp, err := req.Execute(method, daemonURL(path))
	if err != nil {
		return fmt.Errorf("%w: %w", errDaemonDown, err)
	}

	if resp.IsError() {
		if e, ok := resp.Error().(*daemonError); ok && e.Error != "" {
			return errors.New(e.Error)
		}
		return fmt.Errorf("daemon returned %s", resp.Status())
	}

	return nil
}
