package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/jwalitptl/adherence-api/internal/email"
	"github.com/jwalitptl/adherence-api/internal/model"
	"github.com/jwalitptl/adherence-api/internal/repository"
	"github.com/jwalitptl/adherence-api/pkg/logger"
	"github.com/jwalitptl/adherence-api/pkg/metrics"
)

// digestLimit caps the rows mailed per pharmacy.
const digestLimit = 30

type MissedDoseMarker interface {
	MarkAllMissed(ctx context.Context) (int64, error)
}

type LowStockLister interface {
	LowStock(ctx context.Context, pharmacyID uuid.UUID, limit int) ([]*model.LowStockRow, error)
}

type OutboxCleaner interface {
	Run(ctx context.Context) (int64, error)
}

type JobsConfig struct {
	MissedDoseSweep string
	LowStockDigest  string
	OutboxCleanup   string
	// JobTimeout bounds a single run of any job.
	JobTimeout time.Duration
}

// Jobs runs the periodic maintenance tasks on a cron schedule. A nil mailer
// disables the low-stock digest.
type Jobs struct {
	cron       *cron.Cron
	config     JobsConfig
	doses      MissedDoseMarker
	pharmacies repository.PharmacyRepository
	reports    LowStockLister
	mailer     email.Service
	cleaner    OutboxCleaner
	logger     *logger.Logger
	metrics    *metrics.Metrics
}

func NewJobs(
	config JobsConfig,
	doses MissedDoseMarker,
	pharmacies repository.PharmacyRepository,
	reports LowStockLister,
	mailer email.Service,
	cleaner OutboxCleaner,
	logger *logger.Logger,
	m *metrics.Metrics,
) *Jobs {
	if config.JobTimeout <= 0 {
		config.JobTimeout = 5 * time.Minute
	}
	cl := newCronLogger(logger)
	return &Jobs{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		config:     config,
		doses:      doses,
		pharmacies: pharmacies,
		reports:    reports,
		mailer:     mailer,
		cleaner:    cleaner,
		logger:     logger,
		metrics:    m,
	}
}

// Schedule registers every job with a non-empty cron expression.
func (j *Jobs) Schedule(ctx context.Context) error {
	jobs := []struct {
		name string
		spec string
		run  func(context.Context) error
	}{
		{"missed_dose_sweep", j.config.MissedDoseSweep, j.SweepMissedDoses},
		{"low_stock_digest", j.config.LowStockDigest, j.SendLowStockDigests},
		{"outbox_cleanup", j.config.OutboxCleanup, j.CleanupOutbox},
	}

	for _, job := range jobs {
		if job.spec == "" {
			continue
		}
		if job.name == "low_stock_digest" && j.mailer == nil {
			j.logger.Info("SMTP not configured, low-stock digest disabled")
			continue
		}
		job := job
		if _, err := j.cron.AddFunc(job.spec, func() {
			runCtx, cancel := context.WithTimeout(ctx, j.config.JobTimeout)
			defer cancel()
			if err := job.run(runCtx); err != nil {
				j.logger.Error(err, "Job failed", "job", job.name)
			}
		}); err != nil {
			return fmt.Errorf("failed to schedule %s: %w", job.name, err)
		}
		j.logger.Info("Job scheduled", "job", job.name, "spec", job.spec)
	}
	return nil
}

// Start runs the scheduler until ctx is cancelled, then waits for running
// jobs to finish.
func (j *Jobs) Start(ctx context.Context) {
	j.cron.Start()
	<-ctx.Done()
	<-j.cron.Stop().Done()
	j.logger.Info("Job scheduler stopped")
}

func (j *Jobs) SweepMissedDoses(ctx context.Context) error {
	n, err := j.doses.MarkAllMissed(ctx)
	if err != nil {
		return fmt.Errorf("failed to mark missed doses: %w", err)
	}
	if n > 0 {
		j.logger.Info("Missed doses marked", "count", n)
	}
	return nil
}

// SendLowStockDigests mails every pharmacy with an email its medications
// about to run out. A failure for one pharmacy does not stop the others.
func (j *Jobs) SendLowStockDigests(ctx context.Context) error {
	if j.mailer == nil {
		return nil
	}
	pharmacies, err := j.pharmacies.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list pharmacies: %w", err)
	}

	var failed int
	for _, p := range pharmacies {
		if p.Email == "" {
			continue
		}
		rows, err := j.reports.LowStock(ctx, p.ID, digestLimit)
		if err != nil {
			j.logger.Error(err, "Failed to load low stock", "pharmacy_id", p.ID.String())
			failed++
			continue
		}
		if len(rows) == 0 {
			continue
		}
		if err := j.mailer.SendLowStockDigest(ctx, p, rows); err != nil {
			j.metrics.EmailsSent.WithLabelValues("low_stock_digest", "error").Inc()
			j.logger.Error(err, "Failed to send low-stock digest", "pharmacy_id", p.ID.String())
			failed++
			continue
		}
		j.metrics.EmailsSent.WithLabelValues("low_stock_digest", "success").Inc()
	}

	if failed > 0 {
		return fmt.Errorf("low-stock digest failed for %d pharmacies", failed)
	}
	return nil
}

func (j *Jobs) CleanupOutbox(ctx context.Context) error {
	_, err := j.cleaner.Run(ctx)
	return err
}
