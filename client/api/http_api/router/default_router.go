package router

import (
	"github.com/labstack/echo/v4"

	"github.com/lidofinance/govtx/client/api/http_api/handlers"
	"github.com/lidofinance/govtx/client/modules/metrics"
)

func SetRouter(e *echo.Echo, h *handlers.HTTPApp, m *metrics.Metrics) {
	e.GET("/getUsername", h.GetUsername)
	e.GET("/getAddress", h.GetAddress)
	e.GET("/getRate", h.GetRate)
	e.GET("/getNextRfpTitle", h.GetNextRfpTitle)

	e.POST("/createRfpFlow", h.CreateRfpFlow)
	e.POST("/createTipFlow", h.CreateTipFlow)
	e.GET("/getFlows", h.GetFlows)
	e.GET("/getFlow", h.GetFlow)
	e.POST("/deleteFlow", h.DeleteFlow)

	e.GET("/getActiveStep", h.GetActiveStep)
	e.GET("/getCostEstimate", h.GetCostEstimate)
	e.POST("/submitStep", h.SubmitStep)
	e.GET("/getAttempts", h.GetAttempts)
	e.GET("/getReferendumIndex", h.GetReferendumIndex)

	if m != nil {
		e.GET("/metrics", echo.WrapHandler(m.Handler()))
	}
}
