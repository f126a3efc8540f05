// Command chartctl builds chart datasets from dashboard API payload files, for debugging
// payloads without the bot.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"

	"portfolioDashboard/internal/config"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(&priceCmd{}, "views")
	commander.Register(&performanceCmd{}, "views")
	commander.Register(&sentimentCmd{}, "views")

	logLevel := flag.String("log-level", "warn", "Log level (debug, info, warn, error)")
	flag.Parse()
	config.SetupLogging(*logLevel)
	os.Exit(int(commander.Execute(context.Background())))
}
