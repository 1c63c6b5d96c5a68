package main

import (
	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/minigit/cmd"
)

// init sets the default log level until flags override it.
func init() {
	logrus.SetLevel(logrus.InfoLevel)
}

// main delegates to the cmd package, which parses flags and runs the server
// or one of the repository subcommands.
func main() {
	cmd.Execute()
}
