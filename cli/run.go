package cli

import (
	"github.com/compozy/tzprobe/cli/helpers"
	"github.com/compozy/tzprobe/engine/infra/postgres"
	"github.com/compozy/tzprobe/engine/moment"
	"github.com/compozy/tzprobe/engine/probe"
	"github.com/compozy/tzprobe/engine/report"
	"github.com/compozy/tzprobe/pkg/config"
	"github.com/compozy/tzprobe/pkg/config/definition"
	"github.com/compozy/tzprobe/pkg/logger"
	"github.com/spf13/cobra"
)

var databaseFlagPaths = []string{
	"database.conn_string",
	"database.host",
	"database.port",
	"database.name",
	"database.user",
	"database.password",
	"database.ssl_mode",
	"database.connect_timeout",
}

var probeFlagPaths = []string{
	"probe.schema",
	"probe.table",
	"probe.process_zone",
	"probe.app_zone",
	"probe.reference",
}

// RunCmd returns the command that executes the full probe.
func RunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Write the reference moment through every representation and report what comes back",
		Args:  cobra.NoArgs,
		RunE:  runProbe,
	}
	registry := definition.CreateRegistry()
	addConfigFlags(cmd.Flags(), registry, databaseFlagPaths...)
	addConfigFlags(cmd.Flags(), registry, probeFlagPaths...)
	cmd.Flags().Bool(keepTableFlag, false, "Keep the demo table after the run (env: TZPROBE_DROP_TABLE_AFTER_FINISH=false)")
	return cmd
}

func runProbe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg := config.FromContext(ctx)
	log := logger.FromContext(ctx)

	zones, err := moment.LoadZones(cfg.Probe.ProcessZone, cfg.Probe.AppZone)
	if err != nil {
		return helpers.NewConfigError("zones", err)
	}
	ref, err := moment.ParseReference(cfg.Probe.Reference, zones.App)
	if err != nil {
		return helpers.NewConfigError("reference", err)
	}
	connector, err := postgres.NewConnector(postgresConfig(cfg, cfg.Probe.ProcessZone))
	if err != nil {
		return helpers.NewConfigError("database", err)
	}

	log.Info("Starting probe",
		"process_zone", zones.Process.String(),
		"app_zone", zones.App.String(),
		"reference", ref.Instant,
	)
	out := cmd.OutOrStdout()
	runner := probe.NewRunner(connector, report.New(out), out, probe.Options{
		Schema:               cfg.Probe.Schema,
		Table:                cfg.Probe.Table,
		DropTableAfterFinish: cfg.Probe.DropTableAfterFinish,
		Zones:                zones,
		Reference:            ref,
	})
	_, err = runner.Run(ctx)
	return err
}

// postgresConfig maps the database settings to the driver config. An empty
// timeZone keeps the server's default session zone.
func postgresConfig(cfg *config.Config, timeZone string) *postgres.Config {
	return &postgres.Config{
		ConnString:     cfg.Database.ConnString,
		Host:           cfg.Database.Host,
		Port:           cfg.Database.Port,
		User:           cfg.Database.User,
		Password:       cfg.Database.Password.Value(),
		DBName:         cfg.Database.Name,
		SSLMode:        cfg.Database.SSLMode,
		ConnectTimeout: cfg.Database.ConnectTimeout,
		TimeZone:       timeZone,
	}
}
