package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/keskad/locond/pkgs/app"
	"github.com/spf13/cobra"
)

func NewRunCommand(app *app.LocoNodeApp) *cobra.Command {
	command := &cobra.Command{
		Use:   "run",
		Short: "Run the Loconet node daemon until interrupted",
		RunE: func(command *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return app.RunAction(ctx)
		},
	}

	command.Flags().BoolVarP(&app.Debug, "debug", "v", false, "Increase verbosity to the debug level")

	return command
}
