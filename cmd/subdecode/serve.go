package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Resinat/subdecode/internal/api"
	"github.com/Resinat/subdecode/internal/config"
	"github.com/Resinat/subdecode/internal/metrics"
	"github.com/Resinat/subdecode/internal/service"
)

const shutdownTimeout = 5 * time.Second

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the subscription decoding HTTP API",
		Long:  "Run the HTTP API. All settings are read from SUBDECODE_* environment variables.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// 1. Load and validate environment config
			envCfg, err := config.LoadEnvConfig()
			if err != nil {
				return err
			}
			logger := envCfg.NewLogger()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			ln, err := net.Listen("tcp", net.JoinHostPort(envCfg.ListenAddress, strconv.Itoa(envCfg.Port)))
			if err != nil {
				return fmt.Errorf("listen: %w", err)
			}
			return serve(ctx, envCfg, logger, ln)
		},
	}
}

// serve runs the API on ln until ctx is done, then shuts down gracefully.
func serve(ctx context.Context, envCfg *config.EnvConfig, logger logrus.FieldLogger, ln net.Listener) error {
	warnAdminToken(envCfg.AdminToken, logger)

	// 2. Wire services
	collector := metrics.NewCollector(envCfg.MetricLatencyBinWidthMS, envCfg.MetricLatencyBinOverflowMS)
	subSvc, closeSubSvc := newSubscriptionService(envCfg, logger, collector)
	defer closeSubSvc()

	// 3. Create and start API server
	srv := api.NewServer(api.ServerConfig{
		ListenAddress:   envCfg.ListenAddress,
		Port:            envCfg.Port,
		AdminToken:      envCfg.AdminToken,
		APIMaxBodyBytes: envCfg.APIMaxBodyBytes,
		System:          service.NewMemorySystemService(service.CurrentSystemInfo()),
		Subscriptions:   subSvc,
		Metrics:         collector,
		Logger:          logger,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	logger.WithField("addr", ln.Addr().String()).Info("subdecode API server started")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api server: %w", err)
	case <-ctx.Done():
	}

	// 4. Graceful shutdown
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api server shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

func warnAdminToken(token string, logger logrus.FieldLogger) {
	switch {
	case token == "":
		logger.Warn("SUBDECODE_ADMIN_TOKEN is empty, API authentication is disabled")
	case config.IsWeakToken(token):
		logger.Warn("SUBDECODE_ADMIN_TOKEN is weak, use a longer random token")
	}
}
