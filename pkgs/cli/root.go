package cli

import (
	"errors"

	"github.com/keskad/locond/pkgs/app"
	"github.com/spf13/cobra"
)

func NewRootCommand(app *app.LocoNodeApp) *cobra.Command {
	command := &cobra.Command{
		Use:   "locond",
		Short: "A Loconet bus node daemon and LNCV programming tool",
		RunE: func(command *cobra.Command, args []string) error {
			return errors.New("please select a command")
		},
	}

	command.AddCommand(NewRunCommand(app))
	command.AddCommand(NewLncvCommand(app))

	return command
}
