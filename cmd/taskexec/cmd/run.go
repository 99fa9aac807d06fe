package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vnykmshr/taskexec/internal/config"
	"github.com/vnykmshr/taskexec/internal/logging"
	"github.com/vnykmshr/taskexec/pkg/metrics"
	"github.com/vnykmshr/taskexec/pkg/scheduling/executor"
	"github.com/vnykmshr/taskexec/pkg/scheduling/scheduler"
)

func newRunCommand() *cobra.Command {
	var configPath string

	c := &cobra.Command{
		Use:   "run",
		Short: "Run the executor and its scheduled jobs until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, cmd.ErrOrStderr())
		},
	}
	c.Flags().StringVarP(&configPath, "config", "c", "", "YAML config file (defaults plus TASKEXEC_* environment when empty)")
	return c
}

func run(ctx context.Context, cfg config.Config, logOut io.Writer) error {
	logger, err := logging.New(cfg.Log, logOut)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var ln net.Listener
	if cfg.Metrics.Enabled {
		ln, err = net.Listen("tcp", cfg.Metrics.Listen)
		if err != nil {
			return fmt.Errorf("metrics listener: %w", err)
		}
	}

	exec, err := executor.NewWithConfigAndMetrics(executor.Config{
		Name:          cfg.Executor.Name,
		FailurePolicy: cfg.Executor.Policy(),
		Logger:        &logger,
	}, cfg.Executor.Name, metrics.Config{
		Enabled:   cfg.Metrics.Enabled,
		Registry:  reg,
		Namespace: cfg.Metrics.Namespace,
	})
	if err != nil {
		if ln != nil {
			ln.Close()
		}
		return err
	}

	schedConfig := scheduler.Config{
		Executor: exec,
		Name:     cfg.Executor.Name,
		Logger:   &logger,
	}
	if cfg.Metrics.Enabled {
		schedConfig.Metrics = exec.Registry()
	}
	sched, err := scheduler.New(schedConfig)
	if err == nil {
		err = scheduleJobs(sched, cfg.Jobs, logger)
	}
	if err == nil {
		err = sched.Start()
	}
	if err != nil {
		if ln != nil {
			ln.Close()
		}
		_ = exec.Shutdown()
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	var srv *http.Server
	if ln != nil {
		srv = newMetricsServer(reg)
		logger.Info().Str("addr", ln.Addr().String()).Msg("serving metrics")
		g.Go(func() error {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}

	logger.Info().
		Str("executor", cfg.Executor.Name).
		Stringer("failure_policy", cfg.Executor.Policy()).
		Int("jobs", len(cfg.Jobs)).
		Msg("taskexec started")

	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-exec.Done():
			logger.Error().Err(exec.Err()).Msg("worker stopped, exiting")
		}

		if err := sched.Stop(); err != nil {
			logger.Warn().Err(err).Msg("scheduler stop")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Executor.ShutdownTimeout)
		defer cancel()

		execErr := exec.ShutdownWithContext(shutdownCtx)
		if srv != nil {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn().Err(err).Msg("metrics server shutdown")
			}
		}

		s := exec.Stats()
		logger.Info().
			Uint64("executed", s.Executed).
			Uint64("failed", s.Failed).
			Uint64("skipped", s.Skipped).
			Msg("taskexec stopped")
		return execErr
	})

	return g.Wait()
}

func scheduleJobs(s scheduler.Scheduler, jobs []config.Job, logger zerolog.Logger) error {
	for _, job := range jobs {
		cmd := jobCommand(job, logger)

		var err error
		if job.Cron != "" {
			err = s.ScheduleCron(job.ID, job.Cron, cmd)
		} else {
			err = s.ScheduleRepeating(job.ID, cmd, job.Every)
		}
		if err != nil {
			return fmt.Errorf("job %q: %w", job.ID, err)
		}
	}
	return nil
}

func jobCommand(job config.Job, logger zerolog.Logger) executor.Command {
	return executor.CommandFunc(func(context.Context) error {
		logger.Info().Str("job", job.ID).Msg(job.Message)
		return nil
	})
}

func newMetricsServer(g prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	return &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
