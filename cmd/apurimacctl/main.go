package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/matheus3301/apurimac/internal/api"
	"github.com/matheus3301/apurimac/internal/lock"
	"github.com/matheus3301/apurimac/internal/session"
	"github.com/urfave/cli/v2"
)

const callTimeout = 30 * time.Second

type contextKey int

const contextKeyClient contextKey = iota

func getClient(ctx *cli.Context) *api.Client {
	return ctx.Context.Value(contextKeyClient).(*api.Client)
}

// connect resolves the session and dials its daemon. A missing daemon is
// reported before dialing since the gRPC dial itself is lazy.
func connect(ctx *cli.Context) error {
	name := session.Resolve(ctx.String("session"))
	if err := session.ValidateName(name); err != nil {
		return err
	}
	h, err := lock.ReadHolder(session.LockPath(name))
	if err != nil {
		return err
	}
	if h.PID == 0 {
		return fmt.Errorf("daemon for session %q is not running, start it with 'apurimacd --session %s'", name, name)
	}
	c, err := api.Dial(session.SocketPath(name))
	if err != nil {
		return fmt.Errorf("cannot connect to daemon for session %q: %w", name, err)
	}
	ctx.Context = context.WithValue(ctx.Context, contextKeyClient, c)
	return nil
}

func disconnect(ctx *cli.Context) error {
	if c, ok := ctx.Context.Value(contextKeyClient).(*api.Client); ok {
		return c.Close()
	}
	return nil
}

// callContext bounds a single RPC.
func callContext(ctx *cli.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx.Context, callTimeout)
}

func main() {
	app := &cli.App{
		Name:  "apurimacctl",
		Usage: "Drive a running apurimacd session",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "session",
				Usage: "session name (overrides config default)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "output in JSON format",
			},
		},
		Before: connect,
		After:  disconnect,
		Commands: []*cli.Command{
			signUpCommand,
			loginCommand,
			logoutCommand,
			profileCommand,
			avatarCommand,
			addChatCommand,
			openCommand,
			closeCommand,
			sendCommand,
			statusPostCommand,
			stateCommand,
			watchCommand,
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
