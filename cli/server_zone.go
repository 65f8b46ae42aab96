package cli

import (
	"fmt"

	"github.com/compozy/tzprobe/cli/helpers"
	"github.com/compozy/tzprobe/engine/infra/postgres"
	"github.com/compozy/tzprobe/engine/probe"
	"github.com/compozy/tzprobe/pkg/config"
	"github.com/compozy/tzprobe/pkg/config/definition"
	"github.com/compozy/tzprobe/pkg/logger"
	"github.com/spf13/cobra"
)

// ServerZoneCmd returns the command that prints the server's session zone.
func ServerZoneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server-zone",
		Short: "Print the session time zone reported by the server",
		Long: `Print the TimeZone setting of a fresh session. Without --process-zone the
server default is shown; with it the session is opened the way "run" opens it.`,
		Args: cobra.NoArgs,
		RunE: runServerZone,
	}
	registry := definition.CreateRegistry()
	addConfigFlags(cmd.Flags(), registry, databaseFlagPaths...)
	addConfigFlags(cmd.Flags(), registry, "probe.process_zone")
	return cmd
}

func runServerZone(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg := config.FromContext(ctx)
	sessionZone := ""
	if cmd.Flags().Changed("process-zone") {
		sessionZone = cfg.Probe.ProcessZone
	}
	connector, err := postgres.NewConnector(postgresConfig(cfg, sessionZone))
	if err != nil {
		return helpers.NewConfigError("database", err)
	}
	conn, err := connector.Connect(ctx)
	if err != nil {
		return probe.NewError(probe.StepConnect, err)
	}
	defer func() {
		if cerr := conn.Close(ctx); cerr != nil {
			logger.FromContext(ctx).Warn("Failed to close database connection", "error", cerr)
		}
	}()
	zone, err := postgres.ServerZone(ctx, conn)
	if err != nil {
		return probe.NewError(probe.StepServerZone, err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), zone)
	return err
}
