package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jwalitptl/adherence-api/internal/app"
	"github.com/jwalitptl/adherence-api/internal/handler/health"
	"github.com/jwalitptl/adherence-api/internal/model"
	"github.com/jwalitptl/adherence-api/internal/realtime"
	"github.com/jwalitptl/adherence-api/pkg/blobstore"
	"github.com/jwalitptl/adherence-api/pkg/messaging"
	"github.com/jwalitptl/adherence-api/pkg/security"
	"github.com/jwalitptl/adherence-api/pkg/worker"
)

func serveCmd(load loader) *cobra.Command {
	var withJobs bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, websocket relay and outbox processor",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, lg := load()
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			inf, err := openInfra(ctx, cfg, lg)
			if err != nil {
				return err
			}
			defer inf.Close()

			store, err := blobstore.NewLocalStore(cfg.Media.Dir, cfg.Media.MaxBytes)
			if err != nil {
				return fmt.Errorf("failed to open media store: %w", err)
			}

			deps := app.Deps{
				Repos:   inf.repos,
				Store:   store,
				Hasher:  security.NewBcryptHasher(0),
				Metrics: inf.metrics,
				Checks: map[string]health.Check{
					"database": inf.db.PingContext,
				},
				Gatherer: inf.registry,
			}
			svcs, err := app.NewServices(cfg, deps)
			if err != nil {
				return err
			}

			hub := realtime.NewHub(inf.metrics)
			relay := realtime.NewRelay(inf.broker, hub, messaging.ChannelEvents)
			relay.OnEvent(func(ev model.ChangeEvent) {
				if id, ok := model.PharmacyIDFromTopic(ev.Topic); ok {
					svcs.Report.Invalidate(id)
				}
			})

			processor := worker.NewOutboxProcessor(inf.repos.Outbox, inf.broker, worker.OutboxProcessorConfig{
				BatchSize:     cfg.Outbox.BatchSize,
				PollInterval:  cfg.Outbox.PollInterval,
				RetryAttempts: cfg.Outbox.RetryAttempts,
				RetryDelay:    cfg.Outbox.RetryDelay,
				ClaimTimeout:  cfg.Outbox.ClaimTimeout,
			}, lg, inf.metrics)

			var wg sync.WaitGroup
			wg.Add(2)
			go func() {
				defer wg.Done()
				if err := relay.Run(ctx); err != nil {
					lg.Error(err, "Realtime relay stopped")
				}
			}()
			go func() {
				defer wg.Done()
				processor.Start(ctx)
			}()

			if withJobs {
				jobs, err := newJobs(ctx, cfg, lg, inf, svcs.Dose, svcs.Report)
				if err != nil {
					return err
				}
				wg.Add(1)
				go func() {
					defer wg.Done()
					jobs.Start(ctx)
				}()
			}

			r := app.NewRouter(cfg, deps, svcs, hub)
			srv := &http.Server{
				Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
				Handler:           r.Engine(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				lg.Info("HTTP server listening", "addr", srv.Addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					stop()
					wg.Wait()
					return fmt.Errorf("server failed: %w", err)
				}
			case <-ctx.Done():
			}

			lg.Info("Shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				lg.Error(err, "Server forced to shutdown")
			}
			wg.Wait()
			lg.Info("Server exited")
			return nil
		},
	}
	cmd.Flags().BoolVar(&withJobs, "with-jobs", false, "also run the scheduled jobs in this process")
	return cmd
}
