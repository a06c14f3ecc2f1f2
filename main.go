package main

import (
	"os"

	"github.com/keskad/locond/pkgs/app"
	"github.com/keskad/locond/pkgs/cli"
	"github.com/keskad/locond/pkgs/output"
)

func main() {
	app := app.LocoNodeApp{P: output.ConsolePrinter{}}
	cmd := cli.NewRootCommand(&app)
	args := os.Args
	if args != nil {
		args = args[1:]
		cmd.SetArgs(args)
	}
	err := cmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
