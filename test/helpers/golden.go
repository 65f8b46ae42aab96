package helpers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// UpdateGoldenEnv rewrites golden files instead of comparing when set to 1.
const UpdateGoldenEnv = "UPDATE_GOLDEN"

// GoldenFilePath resolves relPath against the project root.
func GoldenFilePath(t *testing.T, relPath string) string {
	t.Helper()
	root, err := FindProjectRoot()
	require.NoError(t, err)
	return filepath.Join(root, relPath)
}

func LoadGolden(t *testing.T, relPath string) []byte {
	t.Helper()
	content, err := os.ReadFile(GoldenFilePath(t, relPath))
	require.NoError(t, err, "golden file missing; run with %s=1 to create it", UpdateGoldenEnv)
	return content
}

// CompareWithGolden fails the test when actual differs from the golden file.
func CompareWithGolden(t *testing.T, actual []byte, relPath string) {
	t.Helper()
	if os.Getenv(UpdateGoldenEnv) == "1" {
		path := GoldenFilePath(t, relPath)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, actual, 0o600))
	}
	expected := LoadGolden(t, relPath)
	require.Equal(t, string(expected), string(actual), "output drifted from %s", relPath)
}
