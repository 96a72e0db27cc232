package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/matheus3301/charly/internal/profile"
	"github.com/matheus3301/charly/internal/tui/client"
)

const callTimeout = 10 * time.Second

func main() {
	app := &cli.App{
		Name:  "charlyctl",
		Usage: "control the charly assistant daemon",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "profile", Aliases: []string{"p"}, Usage: "profile name (overrides config default)"},
			&cli.BoolFlag{Name: "json", Usage: "output in JSON format"},
			&cli.BoolFlag{Name: "start", Usage: "start the daemon when it is not running"},
		},
		Before: func(c *cli.Context) error {
			return profile.ValidateName(profileName(c))
		},
		Commands: []*cli.Command{
			statusCommand(),
			loginCommand(),
			logoutCommand(),
			sendCommand(),
			newCommand(),
			prefsCommand(),
			historyCommand(),
			voiceCommand(),
			animateCommand(),
			devserverCommand(),
			configCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func profileName(c *cli.Context) string {
	return profile.Resolve(c.String("profile"))
}

// withClient connects to the profile daemon and runs fn with a bounded context.
func withClient(c *cli.Context, timeout time.Duration, fn func(ctx context.Context, cl *client.Client) error) error {
	name := profileName(c)
	socketPath := profile.SocketPath(name)
	if c.Bool("start") {
		if err := client.EnsureDaemon(name, socketPath, 10*time.Second); err != nil {
			return err
		}
	}

	cl, err := client.New(socketPath)
	if err != nil {
		return fmt.Errorf("cannot connect to daemon for profile %q: %w", name, err)
	}
	defer func() { _ = cl.Close() }()

	ctx, cancel := context.WithTimeout(c.Context, timeout)
	defer cancel()
	return fn(ctx, cl)
}
