package http_api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/lidofinance/govtx/client/api/http_api/handlers"
	"github.com/lidofinance/govtx/client/modules/chain"
	"github.com/lidofinance/govtx/client/modules/keystore"
	"github.com/lidofinance/govtx/client/modules/logger"
	"github.com/lidofinance/govtx/client/modules/metrics"
	"github.com/lidofinance/govtx/client/modules/rate"
	"github.com/lidofinance/govtx/client/modules/ss58"
	"github.com/lidofinance/govtx/client/modules/state"
	"github.com/lidofinance/govtx/client/repositories/attempt"
	flowrepo "github.com/lidofinance/govtx/client/repositories/flow"
	"github.com/lidofinance/govtx/client/services/flow"
	"github.com/lidofinance/govtx/client/types"
	"github.com/lidofinance/govtx/mocks/chainMocks"
)

type response struct {
	Result       json.RawMessage `json:"result"`
	ErrorMessage string          `json:"error_message"`
}

func newTestServer(t *testing.T) (*echo.Echo, *keystore.Signer) {
	e, signer, _ := newTestServerWithAttempts(t)
	return e, signer
}

func newTestServerWithAttempts(t *testing.T) (*echo.Echo, *keystore.Signer, *attempt.BaseAttemptRepo) {
	dbPath := "/tmp/govtx_test_http_api_" + t.Name()
	t.Cleanup(func() { os.RemoveAll(dbPath) })

	stg, err := state.NewLevelDBState(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { stg.Close() })

	ctrl := gomock.NewController(t)
	chainMock := chainMocks.NewMockClient(ctrl)
	chainMock.EXPECT().Constants(gomock.Any()).Return(&chain.Constants{
		MultisigDepositBase:   types.NewBalance(100),
		MultisigDepositFactor: types.NewBalance(10),
		BountyDepositBase:     types.NewBalance(50),
		DataDepositPerByte:    types.NewBalance(2),
		SubmissionDeposit:     types.NewBalance(7),
		CuratorDeposit:        types.NewBalance(30),
	}, nil).AnyTimes()
	chainMock.EXPECT().DecisionDeposit(gomock.Any(), gomock.Any()).Return(types.NewBalance(10), nil).AnyTimes()
	chainMock.EXPECT().EncodeCall(gomock.Any(), gomock.Any()).Return(types.Bytes{0xca, 0xfe}, nil).AnyTimes()
	chainMock.EXPECT().Bounties(gomock.Any()).Return([]chain.Bounty{
		{ID: 3, Description: "KSM RFP #4: Explorer"},
	}, nil).AnyTimes()
	chainMock.EXPECT().Account(gomock.Any(), gomock.Any()).Return(&chain.AccountInfo{
		Free: types.NewBalance(1_000_000),
	}, nil).AnyTimes()

	l := logger.NewLoggerWithOutput("test", io.Discard, logrus.InfoLevel)
	m := metrics.New()
	signer := keystore.NewSigner(keystore.NewKeyPair(), types.Kusama.SS58Prefix)
	rates := rate.FixedProvider(decimal.NewFromInt(20))

	attempts := attempt.NewAttemptRepo(stg)
	service := flow.NewService(flow.Deps{
		Chain:    chainMock,
		Rates:    rates,
		Network:  types.Kusama,
		Signer:   signer,
		Flows:    flowrepo.NewFlowRepo(stg),
		Attempts: attempts,
		Metrics:  m,
		Logger:   l,
	})

	h := handlers.NewHTTPApp(handlers.Deps{
		Username: "alice",
		Address:  signer.Address(),
		Network:  types.Kusama,
		Chain:    chainMock,
		Rates:    rates,
		Flows:    service,
	})
	return NewEcho(h, l, m), signer, attempts
}

func do(t *testing.T, e *echo.Echo, method, target string, body interface{}) (int, response) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	r := httptest.NewRequest(method, target, reader)
	if body != nil {
		r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	w := httptest.NewRecorder()
	e.ServeHTTP(w, r)

	var resp response
	if strings.HasPrefix(w.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w.Code, resp
}

func tipBody(usd int64) map[string]interface{} {
	return map[string]interface{}{
		"form": map[string]interface{}{
			"tipBeneficiary": ss58.MustEncode(bytes.Repeat([]byte{7}, 32), types.Kusama.SS58Prefix),
			"tipAmount":      decimal.NewFromInt(usd),
		},
	}
}

func TestAPI_Account(t *testing.T) {
	req := require.New(t)
	e, signer := newTestServer(t)

	code, resp := do(t, e, http.MethodGet, "/getUsername", nil)
	req.Equal(http.StatusOK, code)
	req.JSONEq(`"alice"`, string(resp.Result))

	code, resp = do(t, e, http.MethodGet, "/getRate", nil)
	req.Equal(http.StatusOK, code)
	req.JSONEq(`"20"`, string(resp.Result))

	code, resp = do(t, e, http.MethodGet, "/getAddress", nil)
	req.Equal(http.StatusOK, code)
	var address struct {
		Address string `json:"address"`
		Network string `json:"network"`
	}
	req.NoError(json.Unmarshal(resp.Result, &address))
	req.Equal(signer.Address(), address.Address)
	req.Equal(types.Kusama.Name, address.Network)

	code, resp = do(t, e, http.MethodGet, "/getNextRfpTitle?projectTitle=Indexer", nil)
	req.Equal(http.StatusOK, code)
	req.JSONEq(`"KSM RFP #5: Indexer"`, string(resp.Result))
}

func TestAPI_TipFlow(t *testing.T) {
	req := require.New(t)
	e, _ := newTestServer(t)

	code, resp := do(t, e, http.MethodPost, "/createTipFlow", tipBody(100))
	req.Equal(http.StatusOK, code, resp.ErrorMessage)
	var created struct {
		ID    string          `json:"id"`
		Kind  types.FlowKind  `json:"kind"`
		Steps []types.StepTag `json:"steps"`
		Tip   *types.TipForm  `json:"tip"`
	}
	req.NoError(json.Unmarshal(resp.Result, &created))
	req.NotEmpty(created.ID)
	req.Equal(types.FlowTip, created.Kind)
	req.Equal(types.SmallTipper, created.Tip.TipperTrack)
	req.Equal(types.FlowTip.Steps(), created.Steps)

	code, resp = do(t, e, http.MethodGet, "/getFlows", nil)
	req.Equal(http.StatusOK, code)
	var flows []json.RawMessage
	req.NoError(json.Unmarshal(resp.Result, &flows))
	req.Len(flows, 1)

	code, resp = do(t, e, http.MethodGet, "/getActiveStep?flowID="+created.ID, nil)
	req.Equal(http.StatusOK, code, resp.ErrorMessage)
	var active types.ActiveStep
	req.NoError(json.Unmarshal(resp.Result, &active))
	req.False(active.Finished)
	req.NotNil(active.Step)
	req.Equal(types.StepReferendum, active.Step.Tag)

	code, resp = do(t, e, http.MethodGet, "/getCostEstimate?flowID="+created.ID, nil)
	req.Equal(http.StatusOK, code, resp.ErrorMessage)

	code, resp = do(t, e, http.MethodGet, "/getReferendumIndex?flowID="+created.ID, nil)
	req.Equal(http.StatusOK, code)
	req.JSONEq(`null`, string(resp.Result))

	code, resp = do(t, e, http.MethodPost, "/submitStep", map[string]string{"flowID": created.ID, "step": "bounty"})
	req.Equal(http.StatusBadRequest, code)
	req.NotEmpty(resp.ErrorMessage)

	code, _ = do(t, e, http.MethodPost, "/deleteFlow", map[string]string{"flowID": created.ID})
	req.Equal(http.StatusOK, code)

	code, resp = do(t, e, http.MethodGet, "/getActiveStep?flowID="+created.ID, nil)
	req.Equal(http.StatusNotFound, code)
	req.NotEmpty(resp.ErrorMessage)
}

func TestAPI_AttemptsHideCancellation(t *testing.T) {
	req := require.New(t)
	e, _, attempts := newTestServerWithAttempts(t)

	code, resp := do(t, e, http.MethodPost, "/createTipFlow", tipBody(100))
	req.Equal(http.StatusOK, code, resp.ErrorMessage)
	var created struct {
		ID string `json:"id"`
	}
	req.NoError(json.Unmarshal(resp.Result, &created))

	for _, event := range []*types.TxEvent{
		{Type: types.TxEventSigned, AttemptID: "a1", Step: types.StepReferendum},
		{Type: types.TxEventError, AttemptID: "a1", Step: types.StepReferendum,
			Err: types.NewTxError(types.ErrCancelled, "superseded by a new attempt")},
		{Type: types.TxEventSigned, AttemptID: "a2", Step: types.StepReferendum},
		{Type: types.TxEventError, AttemptID: "a2", Step: types.StepReferendum,
			Err: types.NewTxError(types.ErrSignerRejected, "user rejected the request")},
	} {
		req.NoError(attempts.AppendEvent(created.ID, event))
	}

	code, resp = do(t, e, http.MethodGet, "/getAttempts?flowID="+created.ID, nil)
	req.Equal(http.StatusOK, code, resp.ErrorMessage)

	var list []struct {
		ID         string           `json:"id"`
		Superseded bool             `json:"superseded"`
		Events     []*types.TxEvent `json:"events"`
	}
	req.NoError(json.Unmarshal(resp.Result, &list))
	req.Len(list, 2)

	byID := make(map[string]int)
	for i, a := range list {
		byID[a.ID] = i
	}
	superseded := list[byID["a1"]]
	req.True(superseded.Superseded)
	req.Len(superseded.Events, 1)
	req.Equal(types.TxEventSigned, superseded.Events[0].Type)

	rejected := list[byID["a2"]]
	req.False(rejected.Superseded)
	req.Len(rejected.Events, 2)
	req.ErrorIs(rejected.Events[1].Err, types.ErrSignerRejected)
	req.NotContains(string(resp.Result), "cancelled")
}

func TestAPI_Errors(t *testing.T) {
	req := require.New(t)
	e, _ := newTestServer(t)

	code, _ := do(t, e, http.MethodPost, "/createTipFlow", tipBody(1000))
	req.Equal(http.StatusBadRequest, code)

	code, _ = do(t, e, http.MethodPost, "/createTipFlow", map[string]interface{}{
		"form": map[string]interface{}{"tipBeneficiary": "nope", "tipAmount": "1"},
	})
	req.Equal(http.StatusBadRequest, code)

	code, _ = do(t, e, http.MethodGet, "/getActiveStep", nil)
	req.NotEqual(http.StatusOK, code)

	code, _ = do(t, e, http.MethodGet, "/getAttempts?flowID=missing", nil)
	req.Equal(http.StatusNotFound, code)

	code, _ = do(t, e, http.MethodGet, "/nothing", nil)
	req.Equal(http.StatusNotFound, code)
}

func TestAPI_Metrics(t *testing.T) {
	req := require.New(t)
	e, _ := newTestServer(t)

	do(t, e, http.MethodGet, "/getUsername", nil)

	r := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	e.ServeHTTP(w, r)
	req.Equal(http.StatusOK, w.Code)
	req.Contains(w.Body.String(), `govtx_http_requests_total{method="GET",path="/getUsername",status="200"} 1`)
}
