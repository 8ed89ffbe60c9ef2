package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	cs "github.com/lidofinance/govtx/client/api/http_api/context_service"
	"github.com/lidofinance/govtx/client/api/http_api/responses"
	"github.com/lidofinance/govtx/client/types"
)

func (a *HTTPApp) GetUsername(c echo.Context) error {
	stx := c.(*cs.ContextService)

	return stx.Json(http.StatusOK, a.username)
}

func (a *HTTPApp) GetAddress(c echo.Context) error {
	stx := c.(*cs.ContextService)

	account, err := a.chain.Account(stx.Request().Context(), a.address)
	if err != nil {
		return stx.JsonError(http.StatusServiceUnavailable, err)
	}
	var free types.Balance
	if account != nil {
		free = account.Free
	}
	return stx.Json(http.StatusOK, responses.AddressResponse{
		Address: a.address,
		Network: a.network.Name,
		Free:    free,
	})
}

// GetRate returns the USD price of one native token
func (a *HTTPApp) GetRate(c echo.Context) error {
	stx := c.(*cs.ContextService)

	r, err := a.rates.Rate(stx.Request().Context())
	if err != nil {
		return stx.JsonServiceError(err)
	}
	return stx.Json(http.StatusOK, r.String())
}
