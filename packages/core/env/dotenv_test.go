package env

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDotEnv(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected map[string]string
	}{
		{
			name:     "simple key-value",
			content:  "POSTMAN_API_KEY=PMAK-123",
			expected: map[string]string{"POSTMAN_API_KEY": "PMAK-123"},
		},
		{
			name:    "multiple keys",
			content: "POSTMAN_COLLECTION_UID=c-1\nPOSTMAN_ENVIRONMENT_UID=e-1",
			expected: map[string]string{
				"POSTMAN_COLLECTION_UID":  "c-1",
				"POSTMAN_ENVIRONMENT_UID": "e-1",
			},
		},
		{
			name:     "export prefix",
			content:  "export PORT=4000",
			expected: map[string]string{"PORT": "4000"},
		},
		{
			name:     "double quoted value",
			content:  `TITLE="Nightly API run"`,
			expected: map[string]string{"TITLE": "Nightly API run"},
		},
		{
			name:     "single quoted value",
			content:  `TITLE='Nightly API run'`,
			expected: map[string]string{"TITLE": "Nightly API run"},
		},
		{
			name:     "comments and blank lines are skipped",
			content:  "# comment\n\nPORT=3000\n",
			expected: map[string]string{"PORT": "3000"},
		},
		{
			name:     "value with equals sign",
			content:  "URL=https://api.example.test/?a=b",
			expected: map[string]string{"URL": "https://api.example.test/?a=b"},
		},
		{
			name:     "lines without equals are skipped",
			content:  "garbage\nPORT=1",
			expected: map[string]string{"PORT": "1"},
		},
		{
			name:     "empty file",
			content:  "",
			expected: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := LoadDotEnv(writeEnvFile(t, tt.content))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestLoadDotEnv_FileNotFound(t *testing.T) {
	_, err := LoadDotEnv("/nonexistent/path/.env")
	assert.Error(t, err)
}

func TestLoadAndExportDotEnv_DoesNotOverride(t *testing.T) {
	t.Setenv("HITBOARD_TEST_KEEP", "original")
	os.Unsetenv("HITBOARD_TEST_NEW")
	t.Cleanup(func() { os.Unsetenv("HITBOARD_TEST_NEW") })

	path := writeEnvFile(t, "HITBOARD_TEST_KEEP=changed\nHITBOARD_TEST_NEW=value\n")

	exported, err := LoadAndExportDotEnv(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"HITBOARD_TEST_NEW"}, exported)
	assert.Equal(t, "original", os.Getenv("HITBOARD_TEST_KEEP"))
	assert.Equal(t, "value", os.Getenv("HITBOARD_TEST_NEW"))
}

func TestLoadOptional(t *testing.T) {
	exported, err := LoadOptional(filepath.Join(t.TempDir(), ".env"))
	require.NoError(t, err)
	assert.Empty(t, exported)

	exported, err = LoadOptional("")
	require.NoError(t, err)
	assert.Empty(t, exported)
}
