package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/lidofinance/govtx/client/api/http_api"
	"github.com/lidofinance/govtx/client/config"
	"github.com/lidofinance/govtx/client/services"
)

const shutdownTimeout = 5 * time.Second

type IServerAbstractFactory interface {
	NewServer(cfg *config.Config, sp *services.ServiceProvider) error
	Start() error
	Stop(ctx context.Context) error
}

// Run serves the API until ctx is done
func Run(ctx context.Context, cfg *config.Config, sp *services.ServiceProvider) error {
	var server IServerAbstractFactory = &http_api.RESTApiProvider{}
	if err := server.NewServer(cfg, sp); err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()
	sp.GetLogger().Log("HTTP server is listening on %s", cfg.ListenAddr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTP server failed: %w", err)
	case <-ctx.Done():
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Stop(stopCtx); err != nil {
		return fmt.Errorf("failed to stop HTTP server: %w", err)
	}
	return nil
}
