package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"

	"github.com/lidofinance/govtx/client/types"
)

func init() {
	color.NoColor = true
}

func TestCall(t *testing.T) {
	req := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/getActiveStep":
			if r.URL.Query().Get("flowID") != "f1" {
				w.WriteHeader(http.StatusNotFound)
				w.Write([]byte(`{"result":{},"error_message":"flow not found"}`))
				return
			}
			w.Write([]byte(`{"result":{"finished":false,"step":{"tag":"decision","kind":"not_ready","error":"pending dependency: referendum is not created yet"}}}`))
		case "/deleteFlow":
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			if body["flowID"] != "f1" {
				w.WriteHeader(http.StatusConflict)
				w.Write([]byte(`{"result":{},"error_message":"flow has a live attempt"}`))
				return
			}
			w.Write([]byte(`{"result":"ok"}`))
		}
	}))
	defer srv.Close()
	host := strings.TrimPrefix(srv.URL, "http://")

	var step activeStepView
	req.NoError(call(host, http.MethodGet, "/getActiveStep", flowQuery("f1"), nil, &step))
	req.NotNil(step.Step)
	req.Equal(types.StepDecision, step.Step.Tag)
	req.Equal(types.StepNotReady, step.Step.Kind)
	req.Contains(formatActiveStep(step), "Reason: pending dependency")

	err := call(host, http.MethodGet, "/getActiveStep", flowQuery("f2"), nil, &step)
	req.EqualError(err, "flow not found (404)")

	req.NoError(call(host, http.MethodPost, "/deleteFlow", nil, map[string]string{"flowID": "f1"}, nil))
	err = call(host, http.MethodPost, "/deleteFlow", nil, map[string]string{"flowID": "f2"}, nil)
	req.EqualError(err, "flow has a live attempt (409)")
}

func TestFormatActiveStep(t *testing.T) {
	req := require.New(t)

	index := uint32(12)
	out := formatActiveStep(activeStepView{
		Finished: true,
		Step: &stepView{StepState: types.StepState{
			Tag:  types.StepDecision,
			Kind: types.StepDone,
			Descriptor: &types.TxDescriptor{
				Explanation: types.NewExplanation("Place decision deposit").With("referendum", "12"),
			},
		}},
		ReferendumIndex: &index,
	})
	req.Equal("flow finished\n"+
		"Step: decision (done)\n"+
		"Place decision deposit\n"+
		"  referendum: 12\n"+
		"Referendum: #12\n", out)

	req.Equal("-", formatEvent(nil))
	req.Equal("broadcast failed: timeout", formatEvent(&types.TxEvent{
		Type: types.TxEventError,
		Err:  types.NewTxError(types.ErrBroadcastFailed, "timeout"),
	}))
}
