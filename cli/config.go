package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/compozy/tzprobe/pkg/config"
	"github.com/compozy/tzprobe/pkg/config/definition"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// ConfigCmd returns the config command
func ConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration diagnostics",
	}
	cmd.AddCommand(configShowCmd())
	return cmd
}

// configShowCmd shows the effective configuration with source information
func configShowCmd() *cobra.Command {
	var (
		format      string
		showSources bool
	)
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration values and their sources",
		Long: `Display the effective configuration. Precedence, highest first: CLI flags,
environment (TZPROBE_*), YAML file, defaults. Secrets are redacted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromContext(cmd.Context())
			return formatConfigOutput(cmd.OutOrStdout(), cfg, sourcesFromContext(cmd.Context()), format, showSources)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format (json, yaml, table)")
	cmd.Flags().BoolVarP(&showSources, "sources", "s", true, "Show configuration sources")
	registry := definition.CreateRegistry()
	addConfigFlags(cmd.Flags(), registry, databaseFlagPaths...)
	addConfigFlags(cmd.Flags(), registry, probeFlagPaths...)
	cmd.Flags().Bool(keepTableFlag, false, "Keep the demo table after the run")
	return cmd
}

// formatConfigOutput formats and outputs configuration based on requested format
func formatConfigOutput(
	w io.Writer,
	cfg *config.Config,
	sources map[string]config.SourceType,
	format string,
	showSources bool,
) error {
	values, err := displayValues(cfg)
	if err != nil {
		return err
	}
	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(structuredOutput(values, sources, showSources))
	case "yaml":
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(structuredOutput(values, sources, showSources)); err != nil {
			return err
		}
		return encoder.Close()
	case "table":
		return outputTable(w, values, sources, showSources)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// displayValues flattens cfg into printable values. Secrets stay redacted.
func displayValues(cfg *config.Config) (map[string]any, error) {
	flat, err := config.Flatten(cfg)
	if err != nil {
		return nil, err
	}
	values := make(map[string]any, len(flat))
	for key, value := range flat {
		switch v := value.(type) {
		case config.SensitiveString:
			values[key] = v.String()
		case time.Duration:
			values[key] = v.String()
		default:
			values[key] = v
		}
	}
	return values, nil
}

func structuredOutput(values map[string]any, sources map[string]config.SourceType, showSources bool) map[string]any {
	output := map[string]any{"config": values}
	if showSources && len(sources) > 0 {
		output["sources"] = sources
	}
	return output
}

func outputTable(w io.Writer, values map[string]any, sources map[string]config.SourceType, showSources bool) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if showSources {
		fmt.Fprintln(tw, "KEY\tVALUE\tSOURCE")
	} else {
		fmt.Fprintln(tw, "KEY\tVALUE")
	}
	for _, key := range keys {
		if showSources {
			source := sources[key]
			if source == "" {
				source = config.SourceDefault
			}
			fmt.Fprintf(tw, "%s\t%v\t%s\n", key, values[key], source)
			continue
		}
		fmt.Fprintf(tw, "%s\t%v\n", key, values[key])
	}
	return tw.Flush()
}
