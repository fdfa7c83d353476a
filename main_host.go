//go:build !tinygo

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"smpcore/app"
	"smpcore/config"
	"smpcore/hal"
	"smpcore/internal/buildinfo"
)

func main() {
	var path string
	var cores, iterations, pingpong int
	var timeout time.Duration
	var trace bool
	flag.StringVar(&path, "config", "", "Board config (YAML).")
	flag.IntVar(&cores, "cores", 0, "Simulated cores (0 = from config).")
	flag.IntVar(&iterations, "iterations", -1, "Counter increments per core (-1 = from config).")
	flag.IntVar(&pingpong, "pingpong", -1, "Cross-core ping-pong rounds (-1 = from config).")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "Abort the run after this long (0 = never).")
	flag.BoolVar(&trace, "trace", false, "Log doorbells and task exits.")
	flag.Parse()

	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(2)
		}
	}
	if cores > 0 {
		cfg.Cores = cores
	}
	if iterations >= 0 {
		cfg.Workload.Iterations = iterations
	}
	if pingpong >= 0 {
		cfg.Workload.PingPong = pingpong
	}
	cfg.Trace = cfg.Trace || trace
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	h := hal.New(cfg.Host())
	h.Logger().WriteLineString(buildinfo.Banner("host", cfg.Cores))

	r, err := app.Run(ctx, h, cfg.Port(), cfg.App())
	r.Print(h.Logger())
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
