package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jwalitptl/adherence-api/internal/config"
	"github.com/jwalitptl/adherence-api/internal/email"
	"github.com/jwalitptl/adherence-api/internal/service/dose"
	"github.com/jwalitptl/adherence-api/internal/service/event"
	"github.com/jwalitptl/adherence-api/internal/service/report"
	"github.com/jwalitptl/adherence-api/internal/worker"
	"github.com/jwalitptl/adherence-api/pkg/logger"
	"github.com/jwalitptl/adherence-api/pkg/mailer"
	pkgworker "github.com/jwalitptl/adherence-api/pkg/worker"
)

func workerCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the scheduled jobs: missed-dose sweep, low-stock digest and outbox cleanup",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, lg := load()
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			inf, err := openInfra(ctx, cfg, lg)
			if err != nil {
				return err
			}
			defer inf.Close()

			loc := cfg.App.Location()
			events := event.NewOutboxRecorder(inf.repos.Outbox)
			doses := dose.NewService(inf.repos.Doses, inf.repos.Medications, inf.repos.Clients, inf.repos.Issues, events, inf.metrics, dose.Config{
				MissedGrace: cfg.Doses.MissedGrace,
				Location:    loc,
			})
			reports := report.NewService(inf.repos.Doses, inf.repos.Medications, inf.repos.Clients, report.Config{Location: loc})

			jobs, err := newJobs(ctx, cfg, lg, inf, doses, reports)
			if err != nil {
				return err
			}
			lg.Info("Worker started")
			jobs.Start(ctx)
			return nil
		},
	}
}

func newJobs(ctx context.Context, cfg *config.Config, lg *logger.Logger, inf *infra, doses worker.MissedDoseMarker, reports worker.LowStockLister) (*worker.Jobs, error) {
	var mail email.Service
	if cfg.SMTP.Enabled() {
		mail = email.NewService(mailer.NewSMTPSender(mailer.Config{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		}))
	}

	retentionDays := int(cfg.Jobs.OutboxRetention.Hours() / 24)
	cleaner := pkgworker.NewOutboxCleanupWorker(inf.repos.Outbox, retentionDays, lg, inf.metrics)

	jobs := worker.NewJobs(worker.JobsConfig{
		MissedDoseSweep: cfg.Jobs.MissedDoseSweep,
		LowStockDigest:  cfg.Jobs.LowStockDigest,
		OutboxCleanup:   cfg.Jobs.OutboxCleanup,
	}, doses, inf.repos.Pharmacies, reports, mail, cleaner, lg, inf.metrics)

	if err := jobs.Schedule(ctx); err != nil {
		return nil, err
	}
	return jobs, nil
}
