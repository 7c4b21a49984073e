/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/xid"
	"github.com/spf13/cobra"

	"github.com/acronis/go-floodgate/config"
	"github.com/acronis/go-floodgate/floodgate"
	"github.com/acronis/go-floodgate/internal/bench"
	"github.com/acronis/go-floodgate/log"
)

const envVarsPrefix = "FLOODGATE_BENCH"

const (
	outputTable = "table"
	outputYAML  = "yaml"
)

type runFlags struct {
	scenarios   []string
	limiters    []string
	maxCalls    int64
	concurrency int
	output      string
	metricsFile string
}

func newRunCommand() *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Replay scenarios against the limiters and print the results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(cmd, flags)
		},
	}
	cmd.Flags().StringSliceVarP(&flags.scenarios, "scenario", "s", nil, "scenarios to run (default all)")
	cmd.Flags().StringSliceVarP(&flags.limiters, "limiter", "l", nil, "limiters to compare (default all)")
	cmd.Flags().Int64Var(&flags.maxCalls, "max-calls", 0, "limit the number of events sent in every run (0 means no limit)")
	cmd.Flags().IntVar(&flags.concurrency, "concurrency", bench.DefaultConcurrency, "number of runs executed in parallel")
	cmd.Flags().StringVarP(&flags.output, "output", "o", outputTable, "output format: table or yaml")
	cmd.Flags().StringVar(&flags.metricsFile, "metrics-file", "", "write floodgate Prometheus metrics to the file after the runs")
	return cmd
}

func newScenariosCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "scenarios",
		Short: "List built-in scenarios",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return renderScenarios(cmd.OutOrStdout(), bench.DefaultScenarios(), floodgate.DefaultBucketDuration)
		},
	}
}

func runBench(cmd *cobra.Command, flags runFlags) error {
	if flags.output != outputTable && flags.output != outputYAML {
		return fmt.Errorf("unsupported output format %q", flags.output)
	}

	cfgPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}
	throttlingCfg, logCfg, benchCfg, err := loadConfigs(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyFlags(cmd, flags, benchCfg)

	scenarios, err := bench.FindScenarios(benchCfg.Scenarios)
	if err != nil {
		return err
	}

	runID := xid.New().String()
	logger, closeLogger := newLogger(cmd, logCfg)
	defer closeLogger()
	logger = logger.With(log.String("run_id", runID))

	metrics := floodgate.NewPrometheusMetrics()
	registry := prometheus.NewRegistry()
	registry.MustRegister(metrics.ActorsAmount, metrics.EventsTotal, metrics.CleanupEvictionsTotal, metrics.CleanupFailuresTotal)

	factories, err := bench.FilterFactories(bench.Factories(throttlingCfg, logger, metrics), benchCfg.Limiters)
	if err != nil {
		return err
	}
	runner, err := bench.NewRunner(throttlingCfg.BucketDuration, bench.RunnerOpts{
		MaxCalls:    benchCfg.MaxCalls,
		Concurrency: benchCfg.Concurrency,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(benchCfg.Timeout))
	defer cancel()

	logger.Info("benchmark started", log.Int("scenarios", len(scenarios)), log.Int("limiters", len(factories)))
	startedAt := time.Now()
	results, err := runner.RunAll(ctx, scenarios, factories)
	if err != nil {
		logger.Error("benchmark failed", log.Error(err))
		return err
	}
	logger.Info("benchmark finished", log.DurationIn(time.Since(startedAt), time.Millisecond))

	if flags.metricsFile != "" {
		if err = prometheus.WriteToTextfile(flags.metricsFile, registry); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}

	if flags.output == outputYAML {
		return renderYAML(cmd.OutOrStdout(), newReport(runID, throttlingCfg, results))
	}
	return renderTable(cmd.OutOrStdout(), results)
}

func loadConfigs(path string) (*floodgate.Config, *log.Config, *bench.Config, error) {
	throttlingCfg := floodgate.NewConfig("")
	logCfg := log.NewConfig("")
	benchCfg := bench.NewConfig("")
	loader := config.NewDefaultLoader(envVarsPrefix)

	var err error
	if path == "" {
		err = loader.LoadDefaults(throttlingCfg, logCfg, benchCfg)
	} else {
		var dataType config.DataType
		if dataType, err = config.DataTypeFromPath(path); err != nil {
			return nil, nil, nil, err
		}
		err = loader.LoadFromFile(path, dataType, throttlingCfg, logCfg, benchCfg)
	}
	if err != nil {
		return nil, nil, nil, err
	}
	return throttlingCfg, logCfg, benchCfg, nil
}

func applyFlags(cmd *cobra.Command, flags runFlags, cfg *bench.Config) {
	if cmd.Flags().Changed("scenario") {
		cfg.Scenarios = flags.scenarios
	}
	if cmd.Flags().Changed("limiter") {
		cfg.Limiters = flags.limiters
	}
	if cmd.Flags().Changed("max-calls") {
		cfg.MaxCalls = flags.maxCalls
	}
	if cmd.Flags().Changed("concurrency") {
		cfg.Concurrency = flags.concurrency
	}
}

// newLogger keeps stdout for the report unless logs are written to a file.
func newLogger(cmd *cobra.Command, cfg *log.Config) (log.FieldLogger, func()) {
	var logger log.FieldLogger
	var closeFn log.CloseFunc
	if cfg.Output == log.OutputFile {
		logger, closeFn = log.NewLogger(cfg)
	} else {
		logger, closeFn = log.NewLoggerWithWriter(cfg, cmd.ErrOrStderr())
	}
	return logger, func() { closeFn() }
}
