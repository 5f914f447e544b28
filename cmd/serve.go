package cmd

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/photoauth/internal/auth"
	"github.com/example/photoauth/internal/checkin"
	"github.com/example/photoauth/internal/config"
	"github.com/example/photoauth/internal/handlers"
	"github.com/example/photoauth/internal/logging"
	"github.com/example/photoauth/internal/server"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the check-in kiosk web interface",
		Long: `Starts the kiosk web interface and its JSON API.

The /api routes require an operator bearer token when PHOTOAUTH_JWT_SECRET
is set.`,
		Example: `  # Listen on the configured address (default :8080)
  photoauth serve

  # Listen on a custom address
  photoauth serve --addr 127.0.0.1:3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}

			logger, err := logging.NewLogger(cfg.LogLevel)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			a, err := buildApp(cmd.Context(), cfg, logger)
			if err != nil {
				logger.Error("startup failed", zap.Error(err))
				return err
			}
			defer a.close()

			kiosk := checkin.New(a.usecase, newCamera(cfg, logger), nil, logger)
			defer kiosk.Close() //nolint:errcheck

			gin.SetMode(gin.ReleaseMode)
			router := gin.Default()
			router.MaxMultipartMemory = handlers.MaxUploadSize

			var middleware []gin.HandlerFunc
			if cfg.JWTSecret != "" {
				middleware = append(middleware, auth.Middleware(cfg.JWTSecret, cfg.JWTAudience))
			} else {
				logger.Warn("PHOTOAUTH_JWT_SECRET not set, kiosk API is unauthenticated")
			}
			handlers.RegisterRoutes(router, kiosk, a.usecase, logger, middleware...)

			srv := &http.Server{
				Addr:    cfg.Addr,
				Handler: router,
			}
			srv.RegisterOnShutdown(func() {
				if err := kiosk.Close(); err != nil {
					logger.Warn("camera release failed", zap.Error(err))
				}
			})

			logger.Info("kiosk listening", zap.String("addr", cfg.Addr), zap.String("storage", cfg.StorageBackend))
			if err := server.Run(cmd.Context(), srv, logger, server.Options{}); err != nil {
				logger.Error("server failed", zap.Error(err))
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Address to listen on (overrides PHOTOAUTH_ADDR)")

	return cmd
}
