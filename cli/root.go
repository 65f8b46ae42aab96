package cli

import (
	"context"

	"github.com/compozy/tzprobe/cli/helpers"
	"github.com/compozy/tzprobe/pkg/config"
	"github.com/compozy/tzprobe/pkg/config/definition"
	"github.com/compozy/tzprobe/pkg/logger"
	"github.com/compozy/tzprobe/pkg/version"
	"github.com/spf13/cobra"
)

type contextKey string

const sourcesCtxKey contextKey = "config_sources"

func RootCmd() *cobra.Command {
	registry := definition.CreateRegistry()
	root := &cobra.Command{
		Use:   "tzprobe",
		Short: "Show how timestamps survive a round trip through PostgreSQL",
		Long: `tzprobe writes one reference moment into zone-aware and zone-naive
PostgreSQL columns through several client-side representations, reads every
row back through every representation and marks which ones still denote the
original instant.`,
		Version:       version.Get().String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return SetupGlobalConfig(cmd)
		},
	}

	root.PersistentFlags().String("config", "tzprobe.yaml", "Path to the configuration file")
	root.PersistentFlags().String("env-file", ".env", "Path to the environment file")
	root.PersistentFlags().String("log-level", getStringDefault(registry, "runtime.log_level"),
		"Log level (debug, info, warn, error, disabled) (env: TZPROBE_LOG_LEVEL)")
	root.PersistentFlags().Bool("log-json", false, "Output logs in JSON format (env: TZPROBE_LOG_JSON)")
	root.PersistentFlags().Bool("log-source", false, "Include source file and line in logs")

	root.AddCommand(
		RunCmd(),
		ServerZoneCmd(),
		ConfigCmd(),
	)

	return root
}

// SetupGlobalConfig loads the environment file and the layered
// configuration, configures logging and stores both in the command context.
func SetupGlobalConfig(cmd *cobra.Command) error {
	if _, err := loadEnvFile(cmd); err != nil {
		return helpers.NewConfigError("env-file", err)
	}
	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return helpers.NewConfigError("config", err)
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, sources, err := loadConfigWithSources(ctx, cmd, configFile)
	if err != nil {
		return helpers.NewConfigError("configuration", err)
	}

	_, _, logSource, err := logger.GetLoggerConfig(cmd)
	if err != nil {
		return err
	}
	logger.SetupLogger(cfg.Runtime.LogLevel, cfg.Runtime.LogJSON, logSource)
	log := logger.GetDefault()
	log.Debug("Configuration loaded", "config_file", configFile, "process_zone", cfg.Probe.ProcessZone)

	ctx = config.ContextWithConfig(ctx, cfg)
	ctx = logger.ContextWithLogger(ctx, log)
	ctx = context.WithValue(ctx, sourcesCtxKey, sources)
	cmd.SetContext(ctx)
	return nil
}

// loadConfigWithSources loads configuration and tracks the source of every key.
func loadConfigWithSources(
	ctx context.Context,
	cmd *cobra.Command,
	configFile string,
) (*config.Config, map[string]config.SourceType, error) {
	service := config.NewService()
	registry := definition.CreateRegistry()

	sources := []config.Source{
		config.NewDefaultProvider(),
		config.NewEnvProvider(),
	}
	if configFile != "" {
		sources = append(sources, config.NewYAMLProvider(configFile))
	}
	if cliFlags := extractCLIFlags(cmd.Flags(), registry); len(cliFlags) > 0 {
		sources = append(sources, config.NewCLIProvider(cliFlags))
	}

	cfg, err := service.Load(ctx, sources...)
	if err != nil {
		return nil, nil, err
	}
	sourceMap := make(map[string]config.SourceType)
	for _, field := range registry.Fields() {
		sourceMap[field.Path] = service.GetSource(field.Path)
	}
	return cfg, sourceMap, nil
}

func sourcesFromContext(ctx context.Context) map[string]config.SourceType {
	if sources, ok := ctx.Value(sourcesCtxKey).(map[string]config.SourceType); ok {
		return sources
	}
	return map[string]config.SourceType{}
}
