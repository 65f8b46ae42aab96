package helpers

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultTestTimeout bounds a single database round trip in tests.
const DefaultTestTimeout = 30 * time.Second

// GetTestEnvOrDefault returns the test environment variable value or a default value
func GetTestEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FindProjectRoot finds the project root by looking for go.mod file
func FindProjectRoot() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	root := wd
	for {
		if _, err := os.Stat(filepath.Join(root, "go.mod")); err == nil {
			return root, nil
		}
		parent := filepath.Dir(root)
		if parent == root {
			return "", fmt.Errorf("could not find project root (go.mod not found)")
		}
		root = parent
	}
}
