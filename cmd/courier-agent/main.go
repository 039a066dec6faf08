// Command courier-agent forwards a courier's positions to the expedition API.
// Positions are replayed from EXPEDITION_POSITIONS_FILE (or stdin) as
// newline-delimited JSON.
package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/tiibntick/service-expedition/internal/config"
	"github.com/tiibntick/service-expedition/internal/platform/auth"
	"github.com/tiibntick/service-expedition/internal/platform/logger"
	"github.com/tiibntick/service-expedition/internal/tracker"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadAgent()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewNamed(cfg.AppEnv, "courier-agent")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	session, err := auth.SessionFromToken(cfg.Token)
	if err != nil {
		log.Fatal("invalid token", zap.Error(err))
	}
	if !session.IsCourier() {
		log.Fatal("token does not belong to a courier", zap.String("role", session.Role))
	}

	var input io.Reader = os.Stdin
	if cfg.PositionsFile != "" {
		f, err := os.Open(cfg.PositionsFile)
		if err != nil {
			log.Fatal("failed to open positions file", zap.Error(err))
		}
		defer f.Close()
		input = f
	}

	geolocator := tracker.NewReplayGeolocator(input, cfg.Interval, tracker.SystemClock)
	sink := tracker.NewHTTPSink(cfg.APIURL, cfg.HTTPTimeout)
	reporter := tracker.NewReporter(geolocator, sink, log)

	log.Info("courier agent started",
		zap.String("api_url", cfg.APIURL),
		zap.String("courier_id", session.CourierID),
	)
	reporter.SetSession(session)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info("shutting down courier agent...")
	case <-geolocator.Done():
		log.Info("positions exhausted")
	}

	reporter.Close()
	log.Info("courier agent stopped")
}
