// Command broadcaster replays recorded test sessions into JSON reports,
// JSON Lines event streams and webhooks.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"github.com/rlch/broadcaster"
	"github.com/rlch/broadcaster/destination"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "loading .env: %v\n", err)
	}

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "broadcaster",
		Usage:   "Turn test sessions into structured JSON events and reports",
		Version: broadcaster.Version,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "enable debug logging",
				Sources: cli.EnvVars("BROADCASTER_DEBUG"),
			},
		},
		Commands: []*cli.Command{
			replayCommand(),
			versionCommand(),
		},
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Print the version and the available destination kinds",
		Action: func(_ context.Context, cmd *cli.Command) error {
			w := cmd.Root().Writer

			fmt.Fprintf(w, "broadcaster %s\n", broadcaster.Version)

			for _, kind := range destination.Registered() {
				fmt.Fprintf(w, "  destination: %s\n", kind)
			}

			return nil
		},
	}
}
