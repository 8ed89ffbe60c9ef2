package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/fatih/color"

	"github.com/lidofinance/govtx/client/types"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

type Response struct {
	ErrorMessage string          `json:"error_message,omitempty"`
	Result       json.RawMessage `json:"result"`
}

type stepView struct {
	types.StepState
	Error string `json:"error"`
}

type activeStepView struct {
	Finished        bool      `json:"finished"`
	Step            *stepView `json:"step"`
	ReferendumIndex *uint32   `json:"referendumIndex"`
}

type flowView struct {
	types.FlowRecord
	Steps      []types.StepTag `json:"steps"`
	ActiveStep activeStepView  `json:"activeStep"`
}

type attemptView struct {
	types.AttemptRecord
	Superseded bool `json:"superseded"`
}

type addressView struct {
	Address string        `json:"address"`
	Network string        `json:"network"`
	Free    types.Balance `json:"free"`
}

// call sends a request to the daemon and decodes the result into out
func call(host, method, path string, query url.Values, body, out interface{}) error {
	target := fmt.Sprintf("http://%s%s", host, path)
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", path, err)
	}
	defer resp.Body.Close()
	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read body: %w", err)
	}

	var response Response
	if err = json.Unmarshal(responseBody, &response); err != nil {
		return fmt.Errorf("failed to unmarshal response: %v", err)
	}
	if response.ErrorMessage != "" {
		return fmt.Errorf("%s (%d)", response.ErrorMessage, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err = json.Unmarshal(response.Result, out); err != nil {
		return fmt.Errorf("failed to unmarshal result: %v", err)
	}
	return nil
}

func stepKind(kind types.StepStateKind) string {
	switch kind {
	case types.StepDone:
		return green(kind)
	case types.StepTxReady:
		return bold(kind)
	case types.StepSubmitting:
		return yellow(kind)
	default:
		return red(kind)
	}
}

func formatEvent(e *types.TxEvent) string {
	if e == nil {
		return "-"
	}
	switch {
	case e.IsDone() && e.Payload != nil:
		return green(fmt.Sprintf("finalized in block #%d", e.Payload.Block.Number))
	case e.IsDone():
		return green("finalized")
	case e.Err != nil:
		return red(e.Err.Error())
	case e.Type == types.TxEventFinalized:
		return red("finalized with a failed dispatch")
	default:
		return yellow(string(e.Type))
	}
}

func writeExplanation(sb *strings.Builder, e *types.TxExplanation, indent int) {
	if e == nil {
		return
	}
	pad := strings.Repeat("  ", indent)
	sb.WriteString(pad + bold(e.Label) + "\n")
	for _, p := range e.Params {
		if p.Node != nil {
			sb.WriteString(fmt.Sprintf("%s  %s:\n", pad, p.Key))
			writeExplanation(sb, p.Node, indent+2)
			continue
		}
		sb.WriteString(fmt.Sprintf("%s  %s: %s\n", pad, p.Key, p.Text))
	}
}

func formatActiveStep(a activeStepView) string {
	var sb strings.Builder
	if a.Finished {
		sb.WriteString(green("flow finished") + "\n")
	}
	if a.Step != nil {
		sb.WriteString(fmt.Sprintf("Step: %s (%s)\n", a.Step.Tag, stepKind(a.Step.Kind)))
		if a.Step.Error != "" {
			sb.WriteString(fmt.Sprintf("Reason: %s\n", a.Step.Error))
		}
		if a.Step.Event != nil {
			sb.WriteString(fmt.Sprintf("Last event: %s\n", formatEvent(a.Step.Event)))
		}
		if a.Step.Descriptor != nil {
			writeExplanation(&sb, a.Step.Descriptor.Explanation, 0)
		}
	}
	if a.ReferendumIndex != nil {
		sb.WriteString(fmt.Sprintf("Referendum: #%d\n", *a.ReferendumIndex))
	}
	return sb.String()
}
