package services

import (
	"github.com/lidofinance/govtx/client/config"
	"github.com/lidofinance/govtx/client/modules/chain"
	"github.com/lidofinance/govtx/client/modules/keystore"
	"github.com/lidofinance/govtx/client/modules/logger"
	"github.com/lidofinance/govtx/client/modules/metrics"
	"github.com/lidofinance/govtx/client/modules/rate"
	"github.com/lidofinance/govtx/client/modules/state"
	"github.com/lidofinance/govtx/client/services/flow"
	"github.com/lidofinance/govtx/client/types"
	"github.com/lidofinance/govtx/storage"
)

var provider ServiceProvider

// ServiceProvider holds the daemon services, built once by InitServices
type ServiceProvider struct {
	config   *config.Config
	network  types.Network
	state    state.State
	keyStore keystore.KeyStore
	signer   *keystore.Signer
	journal  storage.Storage
	chain    chain.Client
	rates    rate.Provider
	metrics  *metrics.Metrics
	flows    *flow.Service
	logger   logger.Logger
}

func (p *ServiceProvider) GetConfig() *config.Config {
	return p.config
}

func (p *ServiceProvider) GetNetwork() types.Network {
	return p.network
}

func (p *ServiceProvider) GetState() state.State {
	return p.state
}

func (p *ServiceProvider) GetSigner() *keystore.Signer {
	return p.signer
}

func (p *ServiceProvider) GetJournal() storage.Storage {
	return p.journal
}

func (p *ServiceProvider) GetChain() chain.Client {
	return p.chain
}

func (p *ServiceProvider) GetRates() rate.Provider {
	return p.rates
}

func (p *ServiceProvider) GetMetrics() *metrics.Metrics {
	return p.metrics
}

func (p *ServiceProvider) GetFlowService() *flow.Service {
	return p.flows
}

func (p *ServiceProvider) GetLogger() logger.Logger {
	return p.logger
}

// Close releases the storages in reverse order of opening
func (p *ServiceProvider) Close() {
	if p.flows != nil {
		p.flows.Stop()
	}
	if p.journal != nil {
		if err := p.journal.Close(); err != nil {
			p.logger.Error(err, "failed to close journal")
		}
	}
	if p.keyStore != nil {
		if err := p.keyStore.Close(); err != nil {
			p.logger.Error(err, "failed to close key store")
		}
	}
	if p.state != nil {
		if err := p.state.Close(); err != nil {
			p.logger.Error(err, "failed to close state")
		}
	}
}

func App() *ServiceProvider {
	return &provider
}
