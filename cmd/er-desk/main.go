package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/acil/er-desk/internal/config"
	"github.com/acil/er-desk/internal/domain/appointment"
	"github.com/acil/er-desk/internal/domain/doctornote"
	"github.com/acil/er-desk/internal/domain/session"
	"github.com/acil/er-desk/internal/platform/middleware"
	"github.com/acil/er-desk/pkg/erclient"
)

const version = "0.1.0"

const sweepInterval = time.Minute

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "er-desk",
		Short:        "Emergency department desk: BFF server and CLI for the ER backend",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("api-url", "", "ER backend base URL (overrides API_BASE_URL)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(loginCmd())
	rootCmd.AddCommand(appointmentCmd())
	rootCmd.AddCommand(noteCmd())
	return rootCmd
}

func newLogger(cfg *config.Config, out io.Writer) zerolog.Logger {
	logger := zerolog.New(out).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: out}).With().Timestamp().Logger()
	}
	return logger.Level(cfg.Level())
}

// loadConfig loads and validates configuration, applying the --api-url
// override when given.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if u, _ := cmd.Flags().GetString("api-url"); u != "" {
		cfg.APIBaseURL = u
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the ER desk BFF server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runServer(cfg)
		},
	}
}

// server bundles the echo instance with the session service so the caller
// can run the sweeper alongside it.
type server struct {
	echo     *echo.Echo
	sessions *session.Service
}

func newServer(cfg *config.Config, logger zerolog.Logger) (*server, error) {
	client, err := erclient.New(cfg.APIBaseURL, erclient.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("create ER client: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	sessions := session.NewService(session.NewStore(), client, cfg.SessionSecret, cfg.SessionTTL)

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	// Audit wraps the session check so rejected attempts are recorded too.
	e.Use(middleware.Audit(logger))
	e.Use(session.Middleware(sessions))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})

	api := e.Group("/api")

	session.NewHandler(sessions).RegisterRoutes(api, middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.LoginRateLimitRPS,
		BurstSize:         cfg.LoginRateLimitBurst,
	}))

	apptSvc := appointment.NewService(appointment.NewAPIRepo(client))
	appointment.NewHandler(apptSvc).RegisterRoutes(api)

	noteSvc := doctornote.NewService(doctornote.NewAPIRepo(client), apptSvc)
	doctornote.NewHandler(noteSvc).RegisterRoutes(api)

	logger.Info().Str("api_base_url", client.BaseURL()).Msg("routes registered")
	return &server{echo: e, sessions: sessions}, nil
}

func runServer(cfg *config.Config) error {
	logger := newLogger(cfg, os.Stdout)

	srv, err := newServer(cfg, logger)
	if err != nil {
		return err
	}

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go srv.sessions.RunSweeper(sweepCtx, sweepInterval)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := srv.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}
