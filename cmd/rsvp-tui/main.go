package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/docopt/docopt-go"

	"github.com/undangan/rsvp-service/internal/bootstrap"
	"github.com/undangan/rsvp-service/internal/config"
	"github.com/undangan/rsvp-service/internal/tui"
	"github.com/undangan/rsvp-service/pkg/logger"
)

const Version = "0.1.0"

const usage = `RSVP terminal client.

Usage:
    rsvp-tui [--memory] [--log-file=<path>] [--log-level=<level>]
    rsvp-tui -h | --help
    rsvp-tui --version

Options:
    -h --help             Show this screen.
    --version             Show version.
    --memory              Use an in-process store instead of MongoDB.
    --log-file=<path>     Write logs to this file. Logs are discarded otherwise.
    --log-level=<level>   debug, info, warn or error [default: info].
`

func main() {
	opts, err := docopt.ParseArgs(usage, os.Args[1:], Version)
	if err != nil {
		panic(err)
	}
	if err := run(opts); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(opts docopt.Opts) error {
	level, _ := opts.String("--log-level")
	logger.Init(level)

	// the terminal belongs to the UI, so logs never go to stdout
	var out io.Writer = io.Discard
	if path, _ := opts.String("--log-file"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		out = f
	}
	logger.SetOutput(out)

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	memory, _ := opts.Bool("--memory")

	comps, err := bootstrap.Build(cfg, memory)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		if err := comps.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Errorf("change feed stopped: %v", err)
		}
	}()
	defer comps.Close(context.Background())

	return tui.Run(ctx, comps.Service)
}
