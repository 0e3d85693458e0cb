package main

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/gauger/internal/api"
	"github.com/yourusername/gauger/internal/scheduler"
	"github.com/yourusername/gauger/internal/service"
	"github.com/yourusername/gauger/internal/tracing"
)

func newServeCmd() *cobra.Command {
	var runOnStart bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the snapshot scheduler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), runOnStart)
		},
	}

	cmd.Flags().BoolVar(&runOnStart, "run-on-start", false, "Take a snapshot immediately when the scheduler is enabled")
	return cmd
}

func runServer(ctx context.Context, runOnStart bool) error {
	if err := tracing.Initialize(tracing.ConfigFromServer(cfg.App.Name, cfg.Server), appLog); err != nil {
		return err
	}

	serverCfg := api.Config{
		ServiceName: cfg.App.Name,
		Version:     Version,
		Commit:      GitCommit,
		Port:        cfg.Server.Port,
		Defaults:    cfg.Analysis,
		Logger:      appLog,
		Analyzer:    analyzer,
	}
	if cfg.Metrics.Enabled {
		serverCfg.MetricsPath = cfg.Metrics.Path
	}

	var sched *scheduler.Scheduler
	if cfg.Database.Enabled {
		db, repos, err := openRepositories(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		snapshots := service.NewSnapshotService(analyzer, repos.Snapshot, cfg.Analysis.Period, cfg.Analysis.Key, appLog)
		serverCfg.DB = db
		serverCfg.Snapshots = snapshots

		if cfg.Scheduler.Enabled {
			sched = scheduler.NewScheduler(appLog)
			if err := sched.ScheduleSnapshots(cfg.Scheduler.Cron, snapshots, cfg.Scheduler.Timeout()); err != nil {
				return err
			}
			if cfg.Scheduler.RetentionCron != "" && cfg.Scheduler.RetentionDays > 0 {
				if err := sched.ScheduleRetention(cfg.Scheduler.RetentionCron, repos.Snapshot, cfg.Scheduler.Retention()); err != nil {
					return err
				}
			}
			if err := sched.Start(); err != nil {
				return err
			}
			defer func() {
				if err := sched.Stop(); err != nil {
					appLog.WithError(err).Error("Error during scheduler shutdown")
				}
			}()

			if runOnStart {
				go sched.RunNow(ctx, snapshots)
			}
		}
	}

	server := api.NewServer(serverCfg)
	if err := server.Start(ctx); err != nil {
		return err
	}
	server.SetReady(true)

	fields := logrus.Fields{
		"port":        cfg.Server.Port,
		"provider":    provider.Name(),
		"environment": cfg.App.Environment,
		"tracing":     tracing.Enabled(),
	}
	if sched != nil {
		fields["next_snapshot"] = sched.GetNextRun()
	}
	appLog.WithFields(fields).Info("gauger is running")

	<-ctx.Done()
	appLog.Info("Shutdown signal received")
	server.SetReady(false)
	return server.Shutdown()
}
