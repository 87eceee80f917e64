package main

import (
	"context"
	"os/signal"
	"strings"
	"syscall"

	"cycletracker/docs"
	"cycletracker/internal/app"
	"cycletracker/internal/config"
	"cycletracker/internal/logging"
)

// @title Cycle Tracker API
// @version 1.0
// @description Menstrual cycle tracking API with JWT authentication, period and symptom logging.
// @host localhost:8080
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg := config.MustLoad()
	log := logging.New(cfg.AppName, cfg.AppEnv, cfg.LogLevel)

	docs.SwaggerInfo.BasePath = cfg.APIPrefix
	if cfg.SwaggerHost != "" {
		// Swagger wants a bare host; SWAGGER_HOST may carry a scheme.
		host := strings.TrimPrefix(strings.TrimPrefix(cfg.SwaggerHost, "https://"), "http://")
		docs.SwaggerInfo.Host = host
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init app")
	}
	defer application.Close()

	log.Info().Str("url", "http://"+docs.SwaggerInfo.Host+"/swagger/index.html").Msg("swagger documentation available")
	if err := application.Run(ctx); err != nil {
		log.Error().Err(err).Msg("app stopped")
	}
}
