package initiator

import (
	"io"
	"os"
	"strings"
	"testing"

	"github.com/MrSnakeDoc/cellar/internal/globalconfig"
	"github.com/MrSnakeDoc/cellar/internal/logger"
	"github.com/MrSnakeDoc/cellar/internal/prompter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.UseTestMode()
	os.Exit(m.Run())
}

func answers(lines ...string) prompter.Prompter {
	return prompter.New(strings.NewReader(strings.Join(lines, "\n")+"\n"), io.Discard)
}

func TestExecute_PromptsForMissingValues(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := New(globalconfig.PersistentConfig{Root: home}, answers("minio.local:9000", "archive")).Execute()
	require.NoError(t, err)
	assert.Equal(t, "minio.local:9000", cfg.Endpoint)
	assert.Equal(t, "archive", cfg.Bucket)

	loaded, err := globalconfig.LoadPersistentConfig()
	require.NoError(t, err)
	assert.Equal(t, "archive", loaded.Bucket)
	assert.Equal(t, home, loaded.Root)
}

func TestExecute_ExistingConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	base := globalconfig.PersistentConfig{Root: home, Endpoint: "e", Bucket: "one"}
	_, err := New(base, answers()).Execute()
	require.NoError(t, err)

	base.Bucket = "two"
	_, err = New(base, answers("n")).Execute()
	assert.ErrorContains(t, err, "kept existing configuration")

	i := New(base, answers())
	i.Force = true
	cfg, err := i.Execute()
	require.NoError(t, err)
	assert.Equal(t, "two", cfg.Bucket)
}

func TestExecute_Errors(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	_, err := New(globalconfig.PersistentConfig{Root: home, Endpoint: "e"}, answers("")).Execute()
	assert.ErrorContains(t, err, "a value is required")

	_, err = New(globalconfig.PersistentConfig{Root: home + "/nope", Endpoint: "e", Bucket: "b"}, answers()).Execute()
	assert.ErrorContains(t, err, "not a directory")
}
