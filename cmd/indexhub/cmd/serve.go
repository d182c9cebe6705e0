package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/indexhub/internal/ingest"
	"github.com/Aman-CERP/indexhub/internal/store"
	"github.com/Aman-CERP/indexhub/internal/watcher"
)

// newServeCmd creates the serve command: watch configured content
// directories and keep their indexes current until interrupted.
func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Watch content directories and index changes",
		Long: `Run the indexing pipeline: every configured index with a content
directory is watched, changed document files are parsed and their
documents submitted as jobs. Runs until SIGINT/SIGTERM.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(cfg)
			if err != nil {
				return err
			}

			submit := func(index string, payload *store.Job) error {
				_, err := a.manager.Submit(index, payload)
				return err
			}
			parser := ingest.NewParser(log)

			var watchers []*watcher.ContentWatcher
			if cfg.Watch.Enabled {
				for _, idx := range cfg.Indexes {
					if idx.ContentDir == "" {
						continue
					}
					w := watcher.New(idx.ID, idx.ContentDir, submit, parser, watcher.Options{
						Debounce: cfg.Watch.Debounce,
						Logger:   log,
					})
					if err := w.Start(ctx); err != nil {
						return err
					}
					watchers = append(watchers, w)
				}
			}

			var metricsSrv *http.Server
			if cfg.Server.MetricsAddr != "" {
				mux := http.NewServeMux()
				mux.Handle("/metrics", a.metrics.Handler())
				metricsSrv = &http.Server{Addr: cfg.Server.MetricsAddr, Handler: mux}
				go func() {
					if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						log.Error("metrics endpoint failed", slog.String("error", err.Error()))
					}
				}()
				log.Info("metrics endpoint listening", slog.String("addr", cfg.Server.MetricsAddr))
			}

			log.Info("indexing pipeline running",
				slog.Int("indexes", len(cfg.Indexes)),
				slog.Int("watchers", len(watchers)))
			<-ctx.Done()

			log.Info("shutting down")
			for _, st := range a.manager.Stats() {
				log.Info("index state",
					slog.String("index", st.Index),
					slog.Int("queued", st.QueueDepth),
					slog.Time("last_commit", st.LastCommit))
			}
			for _, w := range watchers {
				w.Stop()
			}
			if metricsSrv != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				_ = metricsSrv.Shutdown(shutdownCtx)
				cancel()
			}

			drainCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := a.close(drainCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			return nil
		},
	}
	return cmd
}
