package http_api

import (
	"context"

	"github.com/labstack/echo/v4"
	echo_middleware "github.com/labstack/echo/v4/middleware"

	"github.com/lidofinance/govtx/client/api/http_api/handlers"
	"github.com/lidofinance/govtx/client/api/http_api/router"
	"github.com/lidofinance/govtx/client/config"
	"github.com/lidofinance/govtx/client/modules/logger"
	"github.com/lidofinance/govtx/client/modules/metrics"
	"github.com/lidofinance/govtx/client/services"
)

type RESTApiProvider struct {
	config       config.HttpApiConfig
	echoInstance *echo.Echo
}

func (p *RESTApiProvider) NewServer(cfg *config.Config, sp *services.ServiceProvider) error {
	p.config = cfg.HttpApiConfig
	p.echoInstance = NewEcho(handlers.NewHTTPApp(handlers.Deps{
		Username: cfg.Username,
		Address:  sp.GetSigner().Address(),
		Network:  sp.GetNetwork(),
		Chain:    sp.GetChain(),
		Rates:    sp.GetRates(),
		Flows:    sp.GetFlowService(),
	}), sp.GetLogger(), sp.GetMetrics())
	return nil
}

// NewEcho builds the echo instance serving the flow API
func NewEcho(h *handlers.HTTPApp, l logger.Logger, m *metrics.Metrics) *echo.Echo {
	e := echo.New()

	e.HideBanner = true
	e.HidePort = true
	e.Debug = false

	e.HTTPErrorHandler = customHTTPErrorHandler

	// Middlewares

	e.Use(echo_middleware.Recover())
	e.Use(requestLoggerMiddleware(l))
	if m != nil {
		e.Use(m.Middleware())
	}
	e.Use(contextServiceMiddleware)

	router.SetRouter(e, h, m)

	return e
}

func (p *RESTApiProvider) Start() error {
	return p.echoInstance.Start(p.config.ListenAddr)
}

func (p *RESTApiProvider) Stop(ctx context.Context) error {
	return p.echoInstance.Shutdown(ctx)
}
