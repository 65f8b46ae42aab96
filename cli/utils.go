package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/compozy/tzprobe/pkg/config/definition"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const keepTableFlag = "keep-table"

// addConfigFlags declares one flag per configuration path, with the
// registry default and help text.
func addConfigFlags(fs *pflag.FlagSet, registry *definition.Registry, paths ...string) {
	for _, path := range paths {
		field, ok := registry.GetField(path)
		if !ok || field.CLIFlag == "" {
			continue
		}
		help := field.Help
		if field.EnvVar != "" {
			help = fmt.Sprintf("%s (env: %s)", help, field.EnvVar)
		}
		switch def := field.Default.(type) {
		case int:
			fs.IntP(field.CLIFlag, field.Shorthand, def, help)
		case bool:
			fs.BoolP(field.CLIFlag, field.Shorthand, def, help)
		case time.Duration:
			fs.DurationP(field.CLIFlag, field.Shorthand, def, help)
		default:
			fs.StringP(field.CLIFlag, field.Shorthand, getStringDefault(registry, path), help)
		}
	}
}

// extractCLIFlags extracts command line flags from a flag set into a map.
// It processes only flags that have been explicitly changed by the user.
func extractCLIFlags(fs *pflag.FlagSet, registry *definition.Registry) map[string]any {
	flags := make(map[string]any)
	for flagName, path := range registry.GetCLIFlagMapping() {
		if !fs.Changed(flagName) {
			continue
		}
		field, _ := registry.GetField(path)
		var (
			value any
			err   error
		)
		switch field.Default.(type) {
		case int:
			value, err = fs.GetInt(flagName)
		case bool:
			value, err = fs.GetBool(flagName)
		case time.Duration:
			value, err = fs.GetDuration(flagName)
		default:
			value, err = fs.GetString(flagName)
		}
		if err == nil {
			flags[flagName] = value
		}
	}
	if fs.Changed(keepTableFlag) {
		if keep, err := fs.GetBool(keepTableFlag); err == nil {
			flags["probe.drop_table_after_finish"] = !keep
		}
	}
	return flags
}

func getStringDefault(registry *definition.Registry, path string) string {
	if val := registry.GetDefault(path); val != nil {
		if s, ok := val.(string); ok {
			return s
		}
	}
	return ""
}

// loadEnvFile loads environment variables from a file with security validation.
// A missing file is not an error. Variables already set are not overridden.
func loadEnvFile(cmd *cobra.Command) (string, error) {
	envFile, err := cmd.Flags().GetString("env-file")
	if err != nil {
		return "", fmt.Errorf("failed to get env-file flag: %w", err)
	}
	if envFile == "" {
		return "", nil
	}
	pwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %w", err)
	}
	if !filepath.IsAbs(envFile) {
		envFile = filepath.Join(pwd, envFile)
	}
	absPath, err := filepath.Abs(filepath.Clean(envFile))
	if err != nil {
		return "", fmt.Errorf("failed to resolve env file path: %w", err)
	}
	if !isPathWithinDirectory(absPath, pwd) {
		return "", fmt.Errorf("env file path '%s' is outside the working directory", envFile)
	}
	fileInfo, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return absPath, nil
		}
		return "", fmt.Errorf("failed to stat env file: %w", err)
	}
	if !fileInfo.Mode().IsRegular() {
		return "", fmt.Errorf("env file path '%s' is not a regular file", envFile)
	}
	if err := godotenv.Load(absPath); err != nil {
		return "", fmt.Errorf("failed to load env file %s: %w", absPath, err)
	}
	return absPath, nil
}

// isPathWithinDirectory checks if a given path is within the specified directory
func isPathWithinDirectory(path, dir string) bool {
	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return false
	}
	absDir, err := filepath.Abs(filepath.Clean(dir))
	if err != nil {
		return false
	}
	if !strings.HasSuffix(absDir, string(filepath.Separator)) {
		absDir += string(filepath.Separator)
	}
	return strings.HasPrefix(absPath, absDir) || absPath == strings.TrimSuffix(absDir, string(filepath.Separator))
}
