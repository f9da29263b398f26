package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/lmittmann/tint"

	"github.com/crowirc/crowd/admin"
	"github.com/crowirc/crowd/config"
	"github.com/crowirc/crowd/server"
)

func main() {
	configPath := flag.String("config", "", "configuration file (toml, yaml or json)")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	log := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
	}))
	slog.SetDefault(log)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	srv := server.New(cfg, log)
	if err := srv.Start(); err != nil {
		log.Error("failed to start server", "error", err)
		os.Exit(1)
	}

	var adminSrv *admin.Server
	if cfg.Admin.Enabled {
		adminSrv = admin.New(cfg, srv, log)
		go func() {
			if err := adminSrv.Start(); err != nil {
				log.Error("admin endpoint failed", "error", err)
			}
		}()
	}

	// The channel sweeper: the core exposes the deletion state, the timing
	// loop lives out here.
	sweepDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(cfg.ChannelScanInterval())
		defer ticker.Stop()
		for {
			select {
			case now := <-ticker.C:
				srv.Manager().Sweep(now)
			case <-sweepDone:
				return
			}
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	log.Info("shutting down")

	close(sweepDone)
	if adminSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := adminSrv.Stop(ctx); err != nil {
			log.Warn("admin shutdown error", "error", err)
		}
	}
	if err := srv.Stop(); err != nil {
		log.Warn("server shutdown error", "error", err)
	}
}
