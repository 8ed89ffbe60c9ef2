package rate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/lidofinance/govtx/client/modules/logger"
)

const (
	rateKey      = "rate"
	staleRateKey = "stale_rate"
	vsCurrency   = "usd"
)

var ErrRateUnavailable = errors.New("currency rate is unavailable")

// Provider returns the USD price of one native token
type Provider interface {
	Rate(ctx context.Context) (decimal.Decimal, error)
}

// FixedProvider always returns the same rate
type FixedProvider decimal.Decimal

func (p FixedProvider) Rate(_ context.Context) (decimal.Decimal, error) {
	d := decimal.Decimal(p)
	if !d.IsPositive() {
		return decimal.Zero, ErrRateUnavailable
	}
	return d, nil
}

// HTTPSource fetches prices from a CoinGecko compatible "simple/price" endpoint
type HTTPSource struct {
	baseURL    string
	coinID     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewHTTPSource makes at most one request per minInterval
func NewHTTPSource(baseURL, coinID string, minInterval time.Duration) *HTTPSource {
	return &HTTPSource{
		baseURL:    strings.TrimRight(baseURL, "/"),
		coinID:     coinID,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(minInterval), 1),
	}
}

func (s *HTTPSource) Rate(ctx context.Context) (decimal.Decimal, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return decimal.Zero, fmt.Errorf("failed to wait for rate limiter: %w", err)
	}

	query := url.Values{}
	query.Set("ids", s.coinID)
	query.Set("vs_currencies", vsCurrency)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/simple/price?"+query.Encode(), nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to fetch price: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("price source returned %d: %s", resp.StatusCode, string(body))
	}

	var prices map[string]map[string]decimal.Decimal
	if err = json.Unmarshal(body, &prices); err != nil {
		return decimal.Zero, fmt.Errorf("failed to unmarshal prices: %w", err)
	}
	price, ok := prices[s.coinID][vsCurrency]
	if !ok || !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: no %s price for %s", ErrRateUnavailable, vsCurrency, s.coinID)
	}
	return price, nil
}

// CachedProvider caches the rate for ttl. When the source fails the last
// known rate is served while it is younger than maxStale.
type CachedProvider struct {
	source   Provider
	cache    *cache.Cache
	maxStale time.Duration
	logger   logger.Logger
}

type staleRate struct {
	value     decimal.Decimal
	fetchedAt time.Time
}

func NewCachedProvider(source Provider, ttl, maxStale time.Duration, l logger.Logger) *CachedProvider {
	return &CachedProvider{
		source:   source,
		cache:    cache.New(ttl, 2*ttl),
		maxStale: maxStale,
		logger:   l,
	}
}

func (p *CachedProvider) Rate(ctx context.Context) (decimal.Decimal, error) {
	if v, ok := p.cache.Get(rateKey); ok {
		return v.(decimal.Decimal), nil
	}

	value, err := p.source.Rate(ctx)
	if err == nil {
		p.cache.SetDefault(rateKey, value)
		p.cache.Set(staleRateKey, staleRate{value: value, fetchedAt: time.Now()}, cache.NoExpiration)
		return value, nil
	}

	if v, ok := p.cache.Get(staleRateKey); ok {
		stale := v.(staleRate)
		if age := time.Since(stale.fetchedAt); age <= p.maxStale {
			p.logger.Warn("using stale currency rate %s (age %s): %v", stale.value, age.Truncate(time.Second), err)
			return stale.value, nil
		}
	}

	return decimal.Zero, fmt.Errorf("%w: %v", ErrRateUnavailable, err)
}
