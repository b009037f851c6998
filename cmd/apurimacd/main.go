package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/matheus3301/apurimac/internal/config"
	"github.com/matheus3301/apurimac/internal/daemon"
	"github.com/matheus3301/apurimac/internal/session"
	"go.uber.org/fx"
)

func main() {
	sessionFlag := flag.String("session", "", "session name (overrides $APURIMAC_SESSION and config default)")
	configFlag := flag.String("config", "", "config file (default $APURIMAC_HOME/config.toml)")
	flag.Parse()

	sessionName := session.Resolve(*sessionFlag)
	if err := session.ValidateName(sessionName); err != nil {
		fatal(err)
	}

	p := daemon.Params{SessionName: sessionName}
	if *configFlag != "" {
		cfg, err := config.Load(*configFlag)
		if err != nil {
			fatal(err)
		}
		p.Config = cfg
	}

	fx.New(daemon.Module(p)).Run()
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
