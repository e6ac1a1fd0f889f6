package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	local := filepath.Join(dir, ".env.local")
	shared := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(local, []byte("SHEETMAILER_TEST_A=local\n"), 0o600))
	require.NoError(t, os.WriteFile(shared, []byte("SHEETMAILER_TEST_A=shared\nSHEETMAILER_TEST_B=shared\nSHEETMAILER_TEST_C=shared\n"), 0o600))

	t.Setenv("SHEETMAILER_TEST_C", "process")
	t.Setenv("SHEETMAILER_TEST_A", "")
	t.Setenv("SHEETMAILER_TEST_B", "")
	require.NoError(t, os.Unsetenv("SHEETMAILER_TEST_A"))
	require.NoError(t, os.Unsetenv("SHEETMAILER_TEST_B"))

	require.NoError(t, loadDotEnv(local, filepath.Join(dir, "missing.env"), shared))

	assert.Equal(t, "local", os.Getenv("SHEETMAILER_TEST_A"))
	assert.Equal(t, "shared", os.Getenv("SHEETMAILER_TEST_B"))
	assert.Equal(t, "process", os.Getenv("SHEETMAILER_TEST_C"))
}

func TestEnvOr(t *testing.T) {
	t.Setenv("SHEETMAILER_TEST_ENV", "from-env")
	assert.Equal(t, "flag", envOr("flag", "SHEETMAILER_TEST_ENV"))
	assert.Equal(t, "from-env", envOr("", "SHEETMAILER_TEST_ENV"))
}
