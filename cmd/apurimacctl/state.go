package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/matheus3301/apurimac/internal/api"
	"github.com/urfave/cli/v2"
)

var stateCommand = &cli.Command{
	Name:  "state",
	Usage: "Show the mirrored state",
	Action: func(ctx *cli.Context) error {
		cctx, cancel := callContext(ctx)
		defer cancel()
		st, err := getClient(ctx).GetState(cctx)
		if err != nil {
			return err
		}
		return printState(ctx, st)
	},
}

var watchCommand = &cli.Command{
	Name:  "watch",
	Usage: "Print the state every time it changes",
	Action: func(ctx *cli.Context) error {
		return getClient(ctx).Watch(ctx.Context, func(st api.State) error {
			return printState(ctx, st)
		})
	},
}

func printState(ctx *cli.Context, st api.State) error {
	if ctx.Bool("json") {
		return outputJSON(st)
	}
	fmt.Printf("Phase:   %s\n", st.Phase)
	if st.User != nil {
		fmt.Printf("User:    %s (%s)\n", st.User.Email, st.User.UserID)
	}
	if p := st.Profile; p != nil {
		fmt.Printf("Profile: %s %s\n", orDash(p.Name), orDash(p.PhoneNumber))
		if p.ImageURL != nil {
			fmt.Printf("Image:   %s\n", *p.ImageURL)
		}
	}
	if busy := loadingAreas(st.Loading); len(busy) > 0 {
		fmt.Printf("Loading: %s\n", strings.Join(busy, ", "))
	}
	if len(st.Chats) > 0 {
		fmt.Println("Chats:")
		for _, c := range st.Chats {
			other := c.Other(userID(st))
			fmt.Printf("  %-38s %s %s\n", c.ChatID, other.Name, other.PhoneNumber)
		}
	}
	if st.ActiveChat != "" {
		fmt.Printf("Open chat %s:\n", st.ActiveChat)
		for _, m := range st.Messages {
			marker := ""
			if m.Delivery != "" {
				marker = " [" + m.Delivery + "]"
			}
			fmt.Printf("  %s %s: %s%s\n", m.Timestamp, m.SenderID, m.Text, marker)
		}
	}
	if n := len(st.Statuses.Own); n > 0 {
		fmt.Printf("My status: %d post(s)\n", n)
	}
	for _, g := range st.Statuses.Others {
		fmt.Printf("Status %s: %d post(s)\n", g.Author.Name, len(g.Posts))
	}
	if st.Notification != "" {
		fmt.Printf("Notice:  %s\n", st.Notification)
	}
	return nil
}

func userID(st api.State) string {
	if st.User == nil {
		return ""
	}
	return st.User.UserID
}

func loadingAreas(m map[string]bool) []string {
	var out []string
	for area, on := range m {
		if on {
			out = append(out, area)
		}
	}
	sort.Strings(out)
	return out
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
