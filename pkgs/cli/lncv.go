package cli

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/keskad/locond/pkgs/app"
	"github.com/spf13/cobra"
)

func NewLncvCommand(app *app.LocoNodeApp) *cobra.Command {
	command := &cobra.Command{
		Use:   "lncv",
		Short: "Read & write LNCVs on a module over the bus",
		RunE: func(command *cobra.Command, args []string) error {
			return errors.New("please select a command")
		},
	}

	command.AddCommand(NewLncvGetCommand(app))
	command.AddCommand(NewLncvSetCommand(app))

	return command
}

func NewLncvGetCommand(app *app.LocoNodeApp) *cobra.Command {
	type Args struct {
		Destination uint16
		Timeout     uint16
		Retries     uint8
	}
	cmdArgs := Args{}

	command := &cobra.Command{
		Use:   "get <lncv>",
		Short: "Read a single LNCV from a module",
		Args:  cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, args []string) error {
			number, err := parseLncvNumber(args[0])
			if err != nil {
				return err
			}
			return app.LncvGetAction(cmdArgs.Destination, number, time.Second*time.Duration(cmdArgs.Timeout), cmdArgs.Retries)
		},
	}

	command.Flags().BoolVarP(&app.Debug, "debug", "v", false, "Increase verbosity to the debug level")
	command.Flags().Uint16VarP(&cmdArgs.Destination, "dest", "d", 0, "Destination module address (0 broadcasts to the currently addressed module)")
	command.Flags().Uint16VarP(&cmdArgs.Timeout, "timeout", "", 2, "Seconds to wait for a response")
	command.Flags().Uint8VarP(&cmdArgs.Retries, "retry", "", 2, "Retry the request this many times on timeout")

	return command
}

func NewLncvSetCommand(app *app.LocoNodeApp) *cobra.Command {
	type Args struct {
		Destination uint16
		Timeout     uint16
		Retries     uint8
		Verify      bool
	}
	cmdArgs := Args{}

	command := &cobra.Command{
		Use:   "set <lncv> <value>",
		Short: "Write a single LNCV on a module (enters and leaves programming mode automatically)",
		Args:  cobra.ExactArgs(2),
		RunE: func(command *cobra.Command, args []string) error {
			number, err := parseLncvNumber(args[0])
			if err != nil {
				return err
			}
			value64, err := strconv.ParseUint(args[1], 10, 16)
			if err != nil {
				return fmt.Errorf("invalid lncv value %q: %w", args[1], err)
			}
			return app.LncvSetAction(cmdArgs.Destination, number, uint16(value64), cmdArgs.Verify, time.Second*time.Duration(cmdArgs.Timeout), cmdArgs.Retries)
		},
	}

	command.Flags().BoolVarP(&app.Debug, "debug", "v", false, "Increase verbosity to the debug level")
	command.Flags().Uint16VarP(&cmdArgs.Destination, "dest", "d", 0, "Destination module address")
	command.Flags().Uint16VarP(&cmdArgs.Timeout, "timeout", "", 2, "Seconds to wait for a response")
	command.Flags().Uint8VarP(&cmdArgs.Retries, "retry", "", 2, "Retry the request this many times on timeout")
	command.Flags().BoolVarP(&cmdArgs.Verify, "verify", "", false, "Read the value back after writing to confirm it stuck")

	return command
}

func parseLncvNumber(raw string) (uint16, error) {
	n, err := strconv.ParseUint(raw, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid lncv number %q: %w", raw, err)
	}
	return uint16(n), nil
}
