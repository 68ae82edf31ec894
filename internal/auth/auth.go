package auth

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"statsync/internal/config"

	"github.com/zalando/go-keyring"
)

const (
	service = "statsync"

	tokenUser   = "api-token"
	sessionUser = "session-cookie"
)

type Kind int

const (
	KindToken Kind = iota
	KindSession
)

func (k Kind) user() string {
	if k == KindSession {
		return sessionUser
	}
	return tokenUser
}

func (k Kind) String() string {
	if k == KindSession {
		return "session cookie"
	}
	return "API token"
}

// Save stores a credential in the OS keyring.
func Save(kind Kind, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return fmt.Errorf("empty %s", kind)
	}
	if err := keyring.Set(service, kind.user(), value); err != nil {
		return fmt.Errorf("failed to store %s in keyring: %w", kind, err)
	}
	return nil
}

// Load returns the stored credential, or "" when none is stored.
func Load(kind Kind) (string, error) {
	v, err := keyring.Get(service, kind.user())
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s from keyring: %w", kind, err)
	}
	return v, nil
}

// Clear removes every stored credential. Missing entries are not an error.
func Clear() error {
	for _, kind := range []Kind{KindToken, KindSession} {
		if err := keyring.Delete(service, kind.user()); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("failed to delete %s from keyring: %w", kind, err)
		}
	}
	return nil
}

// Fill copies keyring credentials into cfg where the config file and
// environment left them empty.
func Fill(cfg *config.Config) error {
	if cfg.APIToken == "" {
		v, err := Load(KindToken)
		if err != nil {
			return err
		}
		cfg.APIToken = v
	}

	if cfg.SessionCookie == "" {
		v, err := Load(KindSession)
		if err != nil {
			return err
		}
		cfg.SessionCookie = v
	}

	return nil
}

// Prompt reads a credential from r after printing a hint to w.
func Prompt(kind Kind, r io.Reader, w io.Writer) (string, error) {
	fmt.Fprintf(w, "Enter the %s: ", kind)

	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read %s: %w", kind, err)
	}

	line = strings.TrimSpace(line)
	if line == "" {
		return "", fmt.Errorf("empty %s", kind)
	}
	return line, nil
}
