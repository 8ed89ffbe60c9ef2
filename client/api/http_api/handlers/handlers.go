package handlers

import (
	"github.com/lidofinance/govtx/client/modules/chain"
	"github.com/lidofinance/govtx/client/modules/rate"
	"github.com/lidofinance/govtx/client/services/flow"
	"github.com/lidofinance/govtx/client/types"
)

type HTTPApp struct {
	username string
	address  string
	network  types.Network
	chain    chain.Client
	rates    rate.Provider
	flows    *flow.Service
}

type Deps struct {
	Username string
	Address  string
	Network  types.Network
	Chain    chain.Client
	Rates    rate.Provider
	Flows    *flow.Service
}

func NewHTTPApp(deps Deps) *HTTPApp {
	return &HTTPApp{
		username: deps.Username,
		address:  deps.Address,
		network:  deps.Network,
		chain:    deps.Chain,
		rates:    deps.Rates,
		flows:    deps.Flows,
	}
}
