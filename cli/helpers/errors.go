package helpers

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/compozy/tzprobe/engine/infra/postgres"
	"github.com/compozy/tzprobe/engine/probe"
)

// ErrConfig is matched by every configuration failure.
var ErrConfig = errors.New("invalid configuration")

// ConfigError is a failure detected before any connection is attempted.
type ConfigError struct {
	Field string
	Cause error
}

func (e *ConfigError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invalid %s: %v", e.Field, e.Cause)
	}
	return fmt.Sprintf("invalid %s", e.Field)
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// NewConfigError creates a new configuration error
func NewConfigError(field string, cause error) error {
	return &ConfigError{Field: field, Cause: cause}
}

var stepNames = map[string]string{
	probe.StepConnect:     "connecting to the database",
	probe.StepDropTable:   "dropping the demo table",
	probe.StepCreateTable: "creating the demo table",
	probe.StepInsert:      "inserting data",
	probe.StepRead:        "reading data",
	probe.StepServerZone:  "reading the session time zone",
}

// ExtractErrorDetails splits err into a headline and optional details. The
// SQLSTATE is included whenever the server reported one.
func ExtractErrorDetails(err error) (string, string) {
	var probeErr *probe.Error
	if errors.As(err, &probeErr) {
		message := "Database operation failed"
		if name, ok := stepNames[probeErr.Step]; ok {
			message += " while " + name
		}
		return message, databaseDetails(probeErr.Err)
	}
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		message := "Invalid configuration"
		if cfgErr.Cause == nil {
			return message, cfgErr.Field
		}
		return message, fmt.Sprintf("%s: %v", cfgErr.Field, cfgErr.Cause)
	}
	return err.Error(), ""
}

func databaseDetails(err error) string {
	if err == nil {
		return ""
	}
	if pgErr, ok := postgres.AsPgError(err); ok {
		var b strings.Builder
		fmt.Fprintf(&b, "%s (SQLSTATE %s)", pgErr.Message, pgErr.Code)
		if pgErr.Detail != "" {
			b.WriteString("; " + pgErr.Detail)
		}
		return b.String()
	}
	return err.Error()
}

// FormatError renders err with lipgloss styles suited to w.
func FormatError(w io.Writer, err error) string {
	renderer := lipgloss.NewRenderer(w)
	message, details := ExtractErrorDetails(err)
	out := formatErrorMessage(renderer, message)
	if details != "" {
		out += formatErrorDetails(renderer, details)
	}
	return out
}

// formatErrorMessage formats the main error message with icon
func formatErrorMessage(renderer *lipgloss.Renderer, message string) string {
	style := renderer.NewStyle().
		Foreground(lipgloss.Color("#FF6B6B")).
		Bold(true)
	return fmt.Sprintf("%s %s", "✘", style.Render(message))
}

// formatErrorDetails formats error details
func formatErrorDetails(renderer *lipgloss.Renderer, details string) string {
	detailStyle := renderer.NewStyle().
		Foreground(lipgloss.Color("#888888")).
		Italic(true)
	return "\n" + detailStyle.Render(fmt.Sprintf("Details: %s", details))
}

// OutputError writes err to w, usually stderr.
func OutputError(w io.Writer, err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(w, FormatError(w, err))
}
