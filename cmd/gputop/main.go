package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/tomek7667/gputop/internal/monitor"
	"github.com/tomek7667/gputop/internal/nvsmi"
	"github.com/tomek7667/gputop/internal/server"
)

func main() {
	app := &cli.App{
		Name:        "gputop",
		Description: "periodic terminal monitor for NVIDIA GPUs built on nvidia-smi",
		Usage:       "watch GPU utilization and per-process activity",
		Version:     appVersion(),
		Flags: []cli.Flag{
			&cli.Float64Flag{
				Name:    "interval",
				Aliases: []string{"i"},
				Usage:   "refresh interval in seconds",
				Value:   1.0,
			},
			&cli.IntFlag{
				Name:    "max-procs",
				Aliases: []string{"n"},
				Usage:   "max process rows per GPU",
				Value:   10,
			},
			&cli.BoolFlag{
				Name:  "once",
				Usage: "print a single frame and exit",
			},
			&cli.BoolFlag{
				Name:  "sort-util",
				Usage: "sort process rows by instantaneous utilization",
			},
			&cli.StringFlag{
				Name:    "nvidia-smi",
				EnvVars: []string{"GPUTOP_NVIDIA_SMI"},
				Usage:   "path to the nvidia-smi binary",
			},
		},
		Commands: []*cli.Command{
			cmdServe(),
		},
		CommandNotFound: func(c *cli.Context, command string) {
			fmt.Fprintf(os.Stderr, "unknown command %q\n\n", command)
			cli.ShowAppHelpAndExit(c, 1)
		},
		Action:       runMonitor,
		BashComplete: cli.ShowCompletions,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runMonitor(c *cli.Context) error {
	m := monitor.New(collectorFrom(c), monitor.Config{
		Interval:   time.Duration(c.Float64("interval") * float64(time.Second)),
		MaxProcs:   c.Int("max-procs"),
		SortByUtil: c.Bool("sort-util"),
	})

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if c.Bool("once") {
		if err := m.RunOnce(ctx); err != nil {
			return cli.Exit(err.Error(), 1)
		}
		return nil
	}
	return m.Run(ctx)
}

func cmdServe() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "expose snapshots over HTTP instead of rendering a terminal",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				EnvVars: []string{"PORT"},
				Value:   8080,
			},
		},
		Action: func(c *cli.Context) error {
			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			s := server.New(c.Int("port"), collectorFrom(c))
			return s.Serve(ctx)
		},
	}
}

func collectorFrom(c *cli.Context) *nvsmi.Collector {
	return nvsmi.NewCollector(nvsmi.NewRunner(c.String("nvidia-smi")))
}

func appVersion() string {
	bi, ok := debug.ReadBuildInfo()
	if !ok || bi == nil {
		return "unknown"
	}

	version := bi.Main.Version
	var rev string
	var modified bool
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.modified":
			modified = s.Value == "true"
		}
	}

	if version != "" && version != "(devel)" {
		return version
	}
	if rev != "" {
		if modified {
			return rev + " (modified)"
		}
		return rev
	}
	if version != "" {
		return version
	}
	return "unknown"
}
