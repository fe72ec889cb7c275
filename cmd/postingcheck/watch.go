package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"postingcore/internal/infrastructure/cache"
	"postingcore/internal/infrastructure/storage/memory"
	"postingcore/internal/infrastructure/storage/postgres"
	"postingcore/pkg/logger"
)

const poolStatsInterval = time.Minute

func watchCmd(f *flags) *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch [FILE...]",
		Short: "Keep the rule cache current and re-validate files whenever rules change",
		Long: `watch keeps running until interrupted. With a rules file it reloads the
file on change; with a database it listens for rule change notifications.
Either way the rule cache is dropped and the given posting files are
validated again. METRICS_ADDR exposes Prometheus metrics.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			ctx, a, err := openApp(ctx, f)
			if err != nil {
				return err
			}
			defer a.Close()

			return a.watch(ctx, cmd.OutOrStdout(), args, debounce)
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", memory.DefaultDebounce, "Delay before reloading a changed rules file")
	return cmd
}

func (a *app) watch(ctx context.Context, out io.Writer, paths []string, debounce time.Duration) error {
	var mu sync.Mutex
	revalidate := func() {
		if len(paths) == 0 {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if err := writeReports(out, validateFiles(ctx, a.validator, paths)); err != nil {
			logger.Error(ctx, "write results failed", "error", err)
		}
	}

	if a.files != nil {
		w, err := memory.NewWatcher(a.files, a.cfg.RulesFile, a.cache, debounce)
		if err != nil {
			return fmt.Errorf("watch rules file: %w", err)
		}
		w.OnReload = func(err error) {
			if err == nil {
				revalidate()
			}
		}
		if err := w.Start(ctx); err != nil {
			return fmt.Errorf("watch rules file: %w", err)
		}
		defer w.Stop()
	}

	if a.pool != nil {
		l := cache.NewNotifyListener(a.pool.Unwrap(), a.cfg.NotifyChannel, a.cache)
		l.OnInvalidation(func(string, string) { revalidate() })
		if err := l.Start(ctx); err != nil {
			return fmt.Errorf("listen for rule changes: %w", err)
		}
		defer l.Stop()
		go a.logPoolStats(ctx)
	}

	if a.cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              a.cfg.MetricsAddr,
			Handler:           promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			a.log.Infow("metrics server starting", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.log.Errorw("metrics server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	revalidate()
	<-ctx.Done()
	a.log.Info("watch stopped")
	return nil
}

func (a *app) logPoolStats(ctx context.Context) {
	ticker := time.NewTicker(poolStatsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			postgres.LogPoolStats(ctx, a.pool.Unwrap())
		}
	}
}
