package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/deusflow/biobrief/internal/app"
	"github.com/deusflow/biobrief/internal/config"
	"github.com/deusflow/biobrief/internal/logger"
	"github.com/deusflow/biobrief/internal/scheduler"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "biobrief: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	once := flag.Bool("once", false, "run one briefing and exit even if SCHEDULE is set")
	days := flag.Int("days", 0, "lookback in days (overrides LOOKBACK_DAYS)")
	start := flag.String("start", "", "period start, YYYY-MM-DD")
	end := flag.String("end", "", "period end, YYYY-MM-DD (inclusive)")
	output := flag.String("output", "", "output directory (overrides OUTPUT_DIR)")
	flag.Parse()

	_ = godotenv.Load()
	logger.Init()
	log := logger.With("main")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if *output != "" {
		cfg.OutputDir = *output
	}

	window, err := app.ParseWindow(*start, *end, *days, time.Now().UTC())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.HTTPMonitor {
		srv := newMonitorServer(cfg.HTTPAddr, a)
		go func() {
			log.Info("Starting monitoring server", "addr", cfg.HTTPAddr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("Monitoring server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	if *once || cfg.Schedule == "" {
		_, err := a.Run(ctx, window)
		return err
	}

	// A fixed window only makes sense once; scheduled runs use the lookback.
	s, err := scheduler.New(ctx, cfg.Schedule, func(ctx context.Context) error {
		_, err := a.Run(ctx, app.Window{})
		return err
	})
	if err != nil {
		return err
	}
	s.Trigger()
	s.Start()

	<-ctx.Done()
	log.Info("Shutting down")
	s.Stop()
	return nil
}
