package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"storefront/app"
	"storefront/config"
	"storefront/logging"
	"storefront/models"
)

var (
	handler http.Handler
	initErr error
	once    sync.Once
)

func initApp() {
	once.Do(func() {
		cfg := config.Load()
		// serverless instances stay small
		if cfg.Database.MaxConns == 0 || cfg.Database.MaxConns > 5 {
			cfg.Database.MaxConns = 5
		}
		cfg.Database.MinConns = 0

		logger := logging.MustNewLogger("storefront", cfg.AppEnv)
		application, err := app.New(context.Background(), cfg, logger)
		if err != nil {
			logger.Error("failed to start application", zap.Error(err))
			initErr = err
			return
		}
		handler = application.Router
	})
}

// Handler is the serverless entry point.
func Handler(w http.ResponseWriter, r *http.Request) {
	initApp()
	if initErr != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(models.ErrorResponse{Success: false, Message: "Service unavailable"})
		return
	}
	handler.ServeHTTP(w, r)
}
