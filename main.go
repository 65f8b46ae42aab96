package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/compozy/tzprobe/cli"
	"github.com/compozy/tzprobe/cli/helpers"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	cmd := cli.RootCmd()
	err := cmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		helpers.OutputError(os.Stderr, err)
		os.Exit(1)
	}
}
