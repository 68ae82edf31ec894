package auth

import (
	"bytes"
	"strings"
	"testing"

	"statsync/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestSaveLoadClear(t *testing.T) {
	keyring.MockInit()

	v, err := Load(KindToken)
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, Save(KindToken, "  tok-123 \n"))
	require.NoError(t, Save(KindSession, "abc"))

	v, err = Load(KindToken)
	require.NoError(t, err)
	assert.Equal(t, "tok-123", v)

	require.NoError(t, Clear())
	require.NoError(t, Clear(), "clearing twice is fine")

	v, err = Load(KindSession)
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestSaveRejectsEmpty(t *testing.T) {
	keyring.MockInit()
	assert.Error(t, Save(KindSession, "   "))
}

func TestFill(t *testing.T) {
	keyring.MockInit()
	require.NoError(t, Save(KindToken, "from-keyring"))
	require.NoError(t, Save(KindSession, "sess-keyring"))

	cfg := config.Default
	cfg.SessionCookie = "from-config"
	require.NoError(t, Fill(&cfg))

	assert.Equal(t, "from-keyring", cfg.APIToken)
	assert.Equal(t, "from-config", cfg.SessionCookie, "explicit config wins")
}

func TestPrompt(t *testing.T) {
	var out bytes.Buffer
	v, err := Prompt(KindToken, strings.NewReader("secret\n"), &out)
	require.NoError(t, err)
	assert.Equal(t, "secret", v)
	assert.Contains(t, out.String(), "API token")

	_, err = Prompt(KindToken, strings.NewReader("\n"), &out)
	assert.Error(t, err)
}
