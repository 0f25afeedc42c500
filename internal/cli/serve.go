package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"tradebot-config/internal/api"
	"tradebot-config/internal/auth"
	"tradebot-config/internal/events"

	"github.com/spf13/cobra"
)

// NewServeCommand creates the serve command
func NewServeCommand(container *Container) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve configuration snapshots and health checks over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), container)
		},
	}
}

func runServe(ctx context.Context, container *Container) error {
	cfg := container.Config
	logger := container.Logger

	eventBus := events.NewEventBus()
	recent := events.NewRecorder(100)
	eventBus.SubscribeAll(recent.Record)
	logger.AddErrorHook(events.LogHook(eventBus))

	session, closeSession, err := container.openSession(ctx, cfg.SecurityConfig.InBacktesting)
	if err != nil {
		return err
	}
	defer closeSession()

	if _, err := session.Start(); err != nil {
		return err
	}

	var jwtManager *auth.JWTManager
	if cfg.AuthConfig.Enabled {
		if cfg.AuthConfig.JWTSecret == "" {
			return errors.New("auth enabled but AUTH_JWT_SECRET is empty")
		}
		jwtManager = auth.NewJWTManager(cfg.AuthConfig.JWTSecret, cfg.AuthConfig.Issuer)
	}

	server := api.NewServer(api.ServerConfig{
		Host:           cfg.ServerConfig.Host,
		Port:           cfg.ServerConfig.Port,
		AllowedOrigins: splitOrigins(cfg.ServerConfig.AllowedOrigins),
		ReadTimeout:    time.Duration(cfg.ServerConfig.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.ServerConfig.WriteTimeout) * time.Second,
		ProductionMode: !strings.EqualFold(cfg.LoggingConfig.Level, "DEBUG"),
	}, session, jwtManager, logger).WithEvents(eventBus, recent)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerConfig.ShutdownDuration())
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, origin := range strings.Split(raw, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}
