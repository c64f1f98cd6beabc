// Command scinthd is the ScintillatorSynth server: it parses configuration,
// wires the server skeleton (component P), and runs until a Quit command or
// a terminating signal arrives.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/scinthd/engine/config"
	"github.com/spaghettifunk/scinthd/engine/core"
	"github.com/spaghettifunk/scinthd/engine/server"
)

// version is the build version string reported by the Version control
// command; real builds can overwrite it with -ldflags "-X main.version=...".
var version = "0.1.0-dev"

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.Default()
	if err := config.ParseFlags(&cfg, "scinthd", os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	logger := core.NewLogger(os.Stderr, cfg.LogLevelValue(), "scinthd ")

	s, err := server.New(cfg, logger, version)
	if err != nil {
		logger.Errorf("init: %v", err)
		return 1
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	go func() {
		<-sigCh
		s.Shutdown()
	}()

	if err := s.Run(); err != nil {
		logger.Errorf("run: %v", err)
		return 2
	}
	return 0
}
