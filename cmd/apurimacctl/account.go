package main

import (
	"fmt"
	"os"

	"github.com/matheus3301/apurimac/internal/api"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"
)

// readPassword is swapped out where no terminal is attached.
var readPassword = term.ReadPassword

var passwordFlag = &cli.StringFlag{
	Name:  "password",
	Usage: "account password (prompted when omitted)",
}

var signUpCommand = &cli.Command{
	Name:      "signup",
	Usage:     "Create an account and sign in",
	ArgsUsage: "<name> <phone> <email>",
	Flags:     []cli.Flag{passwordFlag},
	Action: func(ctx *cli.Context) error {
		if ctx.NArg() != 3 {
			return cli.ShowSubcommandHelp(ctx)
		}
		pw, err := password(ctx)
		if err != nil {
			return err
		}
		cctx, cancel := callContext(ctx)
		defer cancel()
		st, err := getClient(ctx).SignUp(cctx, api.SignUpRequest{
			Name:        ctx.Args().Get(0),
			PhoneNumber: ctx.Args().Get(1),
			Email:       ctx.Args().Get(2),
			Password:    pw,
		})
		if err != nil {
			return err
		}
		return printState(ctx, st)
	},
}

var loginCommand = &cli.Command{
	Name:      "login",
	Usage:     "Sign in to an existing account",
	ArgsUsage: "<email>",
	Flags:     []cli.Flag{passwordFlag},
	Action: func(ctx *cli.Context) error {
		if ctx.NArg() != 1 {
			return cli.ShowSubcommandHelp(ctx)
		}
		pw, err := password(ctx)
		if err != nil {
			return err
		}
		cctx, cancel := callContext(ctx)
		defer cancel()
		st, err := getClient(ctx).SignIn(cctx, ctx.Args().First(), pw)
		if err != nil {
			return err
		}
		return printState(ctx, st)
	},
}

var logoutCommand = &cli.Command{
	Name:  "logout",
	Usage: "Sign out",
	Action: func(ctx *cli.Context) error {
		cctx, cancel := callContext(ctx)
		defer cancel()
		st, err := getClient(ctx).SignOut(cctx)
		if err != nil {
			return err
		}
		return printState(ctx, st)
	},
}

var profileCommand = &cli.Command{
	Name:      "profile",
	Usage:     "Update the display name and phone number",
	ArgsUsage: "<name> <phone>",
	Action: func(ctx *cli.Context) error {
		if ctx.NArg() != 2 {
			return cli.ShowSubcommandHelp(ctx)
		}
		cctx, cancel := callContext(ctx)
		defer cancel()
		st, err := getClient(ctx).UpdateProfile(cctx, ctx.Args().Get(0), ctx.Args().Get(1))
		if err != nil {
			return err
		}
		return printState(ctx, st)
	},
}

var avatarCommand = &cli.Command{
	Name:      "avatar",
	Usage:     "Upload a profile image",
	ArgsUsage: "<image file>",
	Action: func(ctx *cli.Context) error {
		if ctx.NArg() != 1 {
			return cli.ShowSubcommandHelp(ctx)
		}
		data, err := os.ReadFile(ctx.Args().First())
		if err != nil {
			return err
		}
		cctx, cancel := callContext(ctx)
		defer cancel()
		addr, err := getClient(ctx).UploadProfileImage(cctx, data)
		if err != nil {
			return err
		}
		if ctx.Bool("json") {
			return outputJSON(api.UploadResponse{Address: addr})
		}
		fmt.Println(addr)
		return nil
	},
}

func password(ctx *cli.Context) (string, error) {
	if pw := ctx.String("password"); pw != "" {
		return pw, nil
	}
	fmt.Fprint(os.Stderr, "Password: ")
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(pw), nil
}
