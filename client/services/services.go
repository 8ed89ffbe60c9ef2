package services

import (
	"context"
	"fmt"

	"github.com/lidofinance/govtx/client/config"
	"github.com/lidofinance/govtx/client/modules/chain/gateway"
	"github.com/lidofinance/govtx/client/modules/keystore"
	"github.com/lidofinance/govtx/client/modules/logger"
	"github.com/lidofinance/govtx/client/modules/metrics"
	"github.com/lidofinance/govtx/client/modules/rate"
	"github.com/lidofinance/govtx/client/modules/state"
	"github.com/lidofinance/govtx/client/repositories/attempt"
	flowrepo "github.com/lidofinance/govtx/client/repositories/flow"
	"github.com/lidofinance/govtx/client/services/flow"
	"github.com/lidofinance/govtx/storage"
	"github.com/lidofinance/govtx/storage/file_storage"
	"github.com/lidofinance/govtx/storage/kafka_storage"
)

// InitServices opens the storages, loads the signing key of the configured
// user and resumes the stored flows
func InitServices(ctx context.Context, cfg *config.Config, l logger.Logger) error {
	network, err := cfg.Network()
	if err != nil {
		return err
	}

	p := ServiceProvider{
		config:  cfg,
		network: network,
		logger:  l,
		metrics: metrics.New(),
	}

	if p.state, err = state.NewLevelDBState(cfg.StateDBDSN); err != nil {
		return fmt.Errorf("failed to init state: %w", err)
	}

	ks, err := keystore.NewLevelDBKeyStore(cfg.KeyStoreDBDSN)
	if err != nil {
		p.Close()
		return fmt.Errorf("failed to init key store: %w", err)
	}
	p.keyStore = ks
	keyPair, err := ks.LoadKeys(cfg.Username, "")
	if err != nil {
		p.Close()
		return fmt.Errorf("failed to load keys of %s: %w", cfg.Username, err)
	}
	p.signer = keystore.NewSigner(keyPair, network.SS58Prefix)

	journal, err := newJournal(cfg)
	if err != nil {
		p.Close()
		return fmt.Errorf("failed to init journal: %w", err)
	}
	p.journal = journal

	p.chain = gateway.NewGateway(cfg.GatewayURL, cfg.PollingPeriod, l.WithField("module", "gateway"))
	p.rates = rate.NewCachedProvider(
		rate.NewHTTPSource(cfg.RateConfig.URL, cfg.CoinID, cfg.MinInterval),
		cfg.TTL,
		cfg.MaxStale,
		l.WithField("module", "rate"),
	)

	p.flows = flow.NewService(flow.Deps{
		Chain:         p.chain,
		Rates:         p.rates,
		Network:       network,
		Signer:        p.signer,
		Journal:       p.journal,
		Flows:         flowrepo.NewFlowRepo(p.state),
		Attempts:      attempt.NewAttemptRepo(p.state),
		Metrics:       p.metrics,
		Logger:        l,
		DescriptorTTL: cfg.DescriptorTTL,
	})
	if err := p.flows.Resume(ctx); err != nil {
		p.Close()
		return fmt.Errorf("failed to resume flows: %w", err)
	}

	l.Log("signing as %s on %s", p.signer.Address(), network.Name)
	provider = p
	return nil
}

// newJournal returns a nil storage when journalling is disabled
func newJournal(cfg *config.Config) (storage.Storage, error) {
	switch cfg.JournalConfig.Type {
	case config.JournalNone:
		return nil, nil
	case config.JournalFile:
		fs, err := file_storage.NewFileStorage(cfg.DBDSN, cfg.DBDSN+".lock")
		if err != nil {
			return nil, err
		}
		return fs, nil
	case config.JournalKafka:
		tlsConfig, err := kafka_storage.GetTLSConfig(cfg.TrustStorePath)
		if err != nil {
			return nil, fmt.Errorf("failed to create tls config: %w", err)
		}
		producerCreds, err := kafka_storage.ParseCredentials(cfg.ProducerCredentials)
		if err != nil {
			return nil, fmt.Errorf("failed to parse producer credentials: %w", err)
		}
		consumerCreds, err := kafka_storage.ParseCredentials(cfg.ConsumerCredentials)
		if err != nil {
			return nil, fmt.Errorf("failed to parse consumer credentials: %w", err)
		}
		ks, err := kafka_storage.NewKafkaStorage(cfg.DBDSN, cfg.Topic, tlsConfig, producerCreds, consumerCreds, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		return ks, nil
	default:
		return nil, fmt.Errorf("unknown journal type %q", cfg.JournalConfig.Type)
	}
}
