package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/therealmerengue/PlaceYourGuessServer/config"
	"github.com/therealmerengue/PlaceYourGuessServer/countries"
	"github.com/therealmerengue/PlaceYourGuessServer/game"
	"github.com/therealmerengue/PlaceYourGuessServer/geocode"
	"github.com/therealmerengue/PlaceYourGuessServer/location"
	"github.com/therealmerengue/PlaceYourGuessServer/logger"
	"github.com/therealmerengue/PlaceYourGuessServer/observability"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logger.New(cfg.LogLevel)
	gin.SetMode(cfg.GinMode)

	// --- Reference data ---
	boxes, err := countries.LoadBoxes(cfg.BoxesPath)
	if err != nil {
		return fmt.Errorf("loading boundary table: %w", err)
	}
	codes, err := countries.LoadCodes(cfg.CodesPath)
	if err != nil {
		return fmt.Errorf("loading code table: %w", err)
	}
	cities, err := countries.LoadCities(cfg.CitiesPath)
	if err != nil {
		// The cities mode is optional; everything else works without it.
		log.Warn().Err(err).Msg("city table unavailable, cities mode disabled")
		cities = nil
	}
	log.Info().Int("countries", boxes.Len()).Int("cities", cities.Len()).Msg("reference data loaded")

	// --- Metrics ---
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	metrics, err := observability.NewCollector(registry)
	if err != nil {
		return fmt.Errorf("registering metrics: %w", err)
	}

	// --- Engine and rooms ---
	client := geocode.NewClient(geocode.Options{
		BaseURL: cfg.GeocodeBaseURL,
		RPS:     cfg.GeocodeRPS,
		Burst:   cfg.GeocodeBurst,
		HTTP:    &http.Client{Timeout: cfg.GeocodeTimeout},
	}, log)
	generator := location.NewGenerator(client, boxes, codes, cities, cfg.LocationMaxAttempts, metrics, log)
	rooms := game.NewRegistry(metrics, log)
	handler := game.NewHandler(rooms, generator, cfg.GenerateTimeout, log)

	// --- HTTP ---
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		AllowCredentials: true,
	}))
	router.GET("/health", func(ctx *gin.Context) { ctx.String(http.StatusOK, "healthy") })
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	router.GET("/ws", handler.Websocket)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("server listening")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
