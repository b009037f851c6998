package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
)

var addChatCommand = &cli.Command{
	Name:      "add-chat",
	Usage:     "Start a chat with the user registered under a phone number",
	ArgsUsage: "<phone>",
	Action: func(ctx *cli.Context) error {
		if ctx.NArg() != 1 {
			return cli.ShowSubcommandHelp(ctx)
		}
		cctx, cancel := callContext(ctx)
		defer cancel()
		chat, err := getClient(ctx).AddChat(cctx, ctx.Args().First())
		if err != nil {
			return err
		}
		if ctx.Bool("json") {
			return outputJSON(chat)
		}
		fmt.Println(chat.ChatID)
		return nil
	},
}

var openCommand = &cli.Command{
	Name:      "open",
	Usage:     "Mirror the messages of a chat",
	ArgsUsage: "<chat id>",
	Action: func(ctx *cli.Context) error {
		if ctx.NArg() != 1 {
			return cli.ShowSubcommandHelp(ctx)
		}
		cctx, cancel := callContext(ctx)
		defer cancel()
		st, err := getClient(ctx).OpenChat(cctx, ctx.Args().First())
		if err != nil {
			return err
		}
		return printState(ctx, st)
	},
}

var closeCommand = &cli.Command{
	Name:  "close",
	Usage: "Stop mirroring the open chat",
	Action: func(ctx *cli.Context) error {
		cctx, cancel := callContext(ctx)
		defer cancel()
		st, err := getClient(ctx).CloseChat(cctx)
		if err != nil {
			return err
		}
		return printState(ctx, st)
	},
}

var sendCommand = &cli.Command{
	Name:      "send",
	Usage:     "Send a text message",
	ArgsUsage: "<chat id> <text...>",
	Action: func(ctx *cli.Context) error {
		if ctx.NArg() < 2 {
			return cli.ShowSubcommandHelp(ctx)
		}
		cctx, cancel := callContext(ctx)
		defer cancel()
		text := strings.Join(ctx.Args().Tail(), " ")
		st, err := getClient(ctx).SendMessage(cctx, ctx.Args().First(), text)
		if err != nil {
			return err
		}
		return printState(ctx, st)
	},
}

var statusPostCommand = &cli.Command{
	Name:      "status-post",
	Usage:     "Post an image status",
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
		post, err := getClient(ctx).UploadStatus(cctx, data)
		if err != nil {
			return err
		}
		if ctx.Bool("json") {
			return outputJSON(post)
		}
		fmt.Println(post.MediaURL)
		return nil
	},
}
