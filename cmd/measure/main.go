package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"influx_events/internal/logger"
	"influx_events/internal/measure"
	"influx_events/internal/synth"
)

func main() {
	planPath := flag.String("plan", "", "path to a TOML plan (default: built-in plan)")
	outDir := flag.String("out", "", "output directory (overrides the plan)")
	seed := flag.Uint64("seed", 0, "seed for client-side events (0 picks one from the clock)")
	level := flag.String("log-level", logger.InfoLevel, "log level")
	flag.Parse()

	log := logger.Get(*level)
	defer func() { _ = log.Sync() }()

	plan, err := measure.LoadPlan(*planPath)
	if err != nil {
		log.Fatalw("error reading plan", "err", err)
	}
	if *outDir != "" {
		plan.OutputDir = *outDir
	}
	if *seed == 0 {
		*seed = uint64(time.Now().UnixNano())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Infow("measure_started", "host", plan.Host, "runs", plan.Runs, "spans", plan.Spans, "suites", plan.Suites)
	runner := measure.NewRunner(plan, measure.NewClient(plan), synth.New(*seed), log)
	res, runErr := runner.Run(ctx)
	if runErr != nil {
		log.Warnw("measure_interrupted", "err", runErr)
	}

	paths, err := measure.WriteResults(plan.OutputDir, res)
	if err != nil {
		log.Errorw("failed to write results", "err", err)
		os.Exit(1)
	}
	log.Infow("measure_finished", "files", paths)
	if runErr != nil {
		os.Exit(1)
	}
}
