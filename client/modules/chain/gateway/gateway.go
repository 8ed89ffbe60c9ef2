package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lidofinance/govtx/client/modules/chain"
	"github.com/lidofinance/govtx/client/modules/logger"
	"github.com/lidofinance/govtx/client/types"
)

const (
	defaultPollingPeriod = time.Second
	maxPollBackoff       = 30 * time.Second
	requestTimeout       = 30 * time.Second
)

var errNotFound = errors.New("not found")

// Gateway is a chain.Client talking to a chain gateway service over HTTP.
// Transaction status is polled after the extrinsic is submitted until it is
// terminal or the watch context ends.
type Gateway struct {
	baseURL       string
	httpClient    *http.Client
	pollingPeriod time.Duration
	logger        logger.Logger
}

func NewGateway(baseURL string, pollingPeriod time.Duration, l logger.Logger) *Gateway {
	if pollingPeriod <= 0 {
		pollingPeriod = defaultPollingPeriod
	}
	return &Gateway{
		baseURL:       strings.TrimRight(baseURL, "/"),
		httpClient:    &http.Client{Timeout: requestTimeout},
		pollingPeriod: pollingPeriod,
		logger:        l,
	}
}

func (g *Gateway) Account(ctx context.Context, address string) (*chain.AccountInfo, error) {
	var account chain.AccountInfo
	err := g.get(ctx, "/accounts/"+url.PathEscape(address), &account)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account %s: %w", address, err)
	}
	return &account, nil
}

func (g *Gateway) Constants(ctx context.Context) (*chain.Constants, error) {
	var constants chain.Constants
	if err := g.get(ctx, "/constants", &constants); err != nil {
		return nil, fmt.Errorf("failed to get runtime constants: %w", err)
	}
	return &constants, nil
}

func (g *Gateway) DecisionDeposit(ctx context.Context, trackID uint16) (types.Balance, error) {
	var resp struct {
		Deposit types.Balance `json:"deposit"`
	}
	if err := g.get(ctx, fmt.Sprintf("/tracks/%d/decision-deposit", trackID), &resp); err != nil {
		return types.Balance{}, fmt.Errorf("failed to get decision deposit of track %d: %w", trackID, err)
	}
	return resp.Deposit, nil
}

func (g *Gateway) MultisigExists(ctx context.Context, address string) (bool, error) {
	var resp struct {
		Exists bool `json:"exists"`
	}
	if err := g.get(ctx, "/multisigs/"+url.PathEscape(address), &resp); err != nil {
		return false, fmt.Errorf("failed to get multisig %s: %w", address, err)
	}
	return resp.Exists, nil
}

func (g *Gateway) PendingMultisig(ctx context.Context, address string, callHash types.Bytes) (*types.Timepoint, error) {
	var resp struct {
		When types.Timepoint `json:"when"`
	}
	path := fmt.Sprintf("/multisigs/%s/pending/0x%x", url.PathEscape(address), []byte(callHash))
	err := g.get(ctx, path, &resp)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pending multisig of %s: %w", address, err)
	}
	return &resp.When, nil
}

func (g *Gateway) Bounties(ctx context.Context) ([]chain.Bounty, error) {
	var bounties []chain.Bounty
	if err := g.get(ctx, "/bounties", &bounties); err != nil {
		return nil, fmt.Errorf("failed to get bounties: %w", err)
	}
	return bounties, nil
}

func (g *Gateway) EncodeCall(ctx context.Context, call *types.Call) (types.Bytes, error) {
	var resp struct {
		Data types.Bytes `json:"data"`
	}
	if err := g.post(ctx, "/calls/encode", call, &resp); err != nil {
		return nil, fmt.Errorf("failed to encode call %s: %w", call.Name(), err)
	}
	return resp.Data, nil
}

func (g *Gateway) SigningPayload(ctx context.Context, signer string, call *types.Call) (types.Bytes, error) {
	req := struct {
		Signer string      `json:"signer"`
		Call   *types.Call `json:"call"`
	}{
		Signer: signer,
		Call:   call,
	}
	var resp struct {
		Payload types.Bytes `json:"payload"`
	}
	if err := g.post(ctx, "/tx/payload", req, &resp); err != nil {
		return nil, fmt.Errorf("failed to get signing payload: %w", err)
	}
	return resp.Payload, nil
}

func (g *Gateway) SubmitAndWatch(ctx context.Context, tx *chain.SignedTx) (<-chan chain.TxStatus, error) {
	var resp struct {
		TxHash string `json:"txHash"`
	}
	if err := g.post(ctx, "/tx/submit", tx, &resp); err != nil {
		return nil, fmt.Errorf("failed to submit extrinsic: %w", err)
	}

	statuses := make(chan chain.TxStatus, 1)
	statuses <- chain.TxStatus{Type: chain.StatusBroadcasted, TxHash: resp.TxHash}

	go g.watch(ctx, resp.TxHash, statuses)

	return statuses, nil
}

// watch polls the extrinsic status until it is terminal, only changes are
// sent. The extrinsic is already broadcast, so failed polls (including an
// extrinsic the gateway does not know yet) back off and poll again.
func (g *Gateway) watch(ctx context.Context, txHash string, statuses chan<- chain.TxStatus) {
	defer close(statuses)

	var (
		last     = chain.TxStatus{Type: chain.StatusBroadcasted}
		lastHash string
		failures int
		delay    = g.pollingPeriod
	)

	timer := time.NewTimer(delay)
	defer timer.Stop()
	for {
		select {
		case <-timer.C:
		case <-ctx.Done():
			return
		}

		var status chain.TxStatus
		if err := g.get(ctx, "/tx/"+url.PathEscape(txHash), &status); err != nil {
			failures++
			if delay *= 2; delay > maxPollBackoff {
				delay = maxPollBackoff
			}
			g.logger.Warn("failed to poll status of %s (%d in a row, next in %s): %v", txHash, failures, delay, err)
			timer.Reset(delay)
			continue
		}
		failures = 0
		delay = g.pollingPeriod
		timer.Reset(delay)
		status.TxHash = txHash

		blockHash := ""
		if status.Payload != nil {
			blockHash = status.Payload.Block.Hash
		}
		if status.Type == last.Type && status.Finalized == last.Finalized && blockHash == lastHash {
			continue
		}
		last, lastHash = status, blockHash

		select {
		case statuses <- status:
		case <-ctx.Done():
			return
		}
		if status.IsTerminal() {
			return
		}
	}
}

func (g *Gateway) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return g.do(req, out)
}

func (g *Gateway) post(ctx context.Context, path string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return g.do(req, out)
}

func (g *Gateway) do(req *http.Request, out interface{}) error {
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make HTTP request to %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read body: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err = json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
