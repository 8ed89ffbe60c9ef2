package flow

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/lidofinance/govtx/client/modules/state"
	"github.com/lidofinance/govtx/client/types"
)

const (
	FlowsKey        = "flows"
	DeletedFlowsKey = "deleted_flows"
)

var ErrFlowNotFound = errors.New("flow not found")

type FlowRepo interface {
	PutFlow(flow *types.FlowRecord) error
	UpdateFlow(flow *types.FlowRecord) error
	DeleteFlow(flowID string) error
	GetFlows() ([]*types.FlowRecord, error)
	GetFlowByID(flowID string) (*types.FlowRecord, error)
}

// BaseFlowRepo stores every flow under its own key. Deleted flows are moved
// under DeletedFlowsKey and are not returned anymore.
type BaseFlowRepo struct {
	state state.State
}

func NewFlowRepo(s state.State) *BaseFlowRepo {
	return &BaseFlowRepo{
		state: s,
	}
}

func flowKey(flowID string) string {
	return state.MakeCompositeKeyString(FlowsKey, flowID)
}

func deletedFlowKey(flowID string) string {
	return state.MakeCompositeKeyString(DeletedFlowsKey, flowID)
}

// PutFlow stores a new flow, existing ids are rejected
func (r *BaseFlowRepo) PutFlow(flow *types.FlowRecord) error {
	bz, err := r.state.Get(flowKey(flow.ID))
	if err != nil {
		return fmt.Errorf("failed to get flow %s: %w", flow.ID, err)
	}
	if bz != nil {
		return fmt.Errorf("flow %s already exists", flow.ID)
	}

	return r.save(flow)
}

func (r *BaseFlowRepo) UpdateFlow(flow *types.FlowRecord) error {
	if _, err := r.GetFlowByID(flow.ID); err != nil {
		return err
	}

	flow.UpdatedAt = time.Now().UTC()
	return r.save(flow)
}

func (r *BaseFlowRepo) DeleteFlow(flowID string) error {
	bz, err := r.state.Get(flowKey(flowID))
	if err != nil {
		return fmt.Errorf("failed to get flow %s: %w", flowID, err)
	}
	if bz == nil {
		return fmt.Errorf("%w: %s", ErrFlowNotFound, flowID)
	}

	if err := r.state.Set(deletedFlowKey(flowID), bz); err != nil {
		return fmt.Errorf("failed to put deleted flow: %w", err)
	}
	if err := r.state.Delete(flowKey(flowID)); err != nil {
		return fmt.Errorf("failed to delete flow: %w", err)
	}

	return nil
}

func (r *BaseFlowRepo) GetFlowByID(flowID string) (*types.FlowRecord, error) {
	bz, err := r.state.Get(flowKey(flowID))
	if err != nil {
		return nil, fmt.Errorf("failed to get flow %s: %w", flowID, err)
	}
	if bz == nil {
		return nil, fmt.Errorf("%w: %s", ErrFlowNotFound, flowID)
	}

	var flow types.FlowRecord
	if err := json.Unmarshal(bz, &flow); err != nil {
		return nil, fmt.Errorf("failed to unmarshal flow: %w", err)
	}
	return &flow, nil
}

// GetFlows returns all flows ordered by creation time
func (r *BaseFlowRepo) GetFlows() ([]*types.FlowRecord, error) {
	values, err := r.state.List(FlowsKey + "_")
	if err != nil {
		return nil, fmt.Errorf("failed to list flows: %w", err)
	}

	flows := make([]*types.FlowRecord, 0, len(values))
	for id, bz := range values {
		var flow types.FlowRecord
		if err := json.Unmarshal(bz, &flow); err != nil {
			return nil, fmt.Errorf("failed to unmarshal flow %s: %w", id, err)
		}
		flows = append(flows, &flow)
	}

	sort.Slice(flows, func(i, j int) bool {
		if flows[i].CreatedAt.Equal(flows[j].CreatedAt) {
			return flows[i].ID < flows[j].ID
		}
		return flows[i].CreatedAt.Before(flows[j].CreatedAt)
	})
	return flows, nil
}

func (r *BaseFlowRepo) save(flow *types.FlowRecord) error {
	flowJSON, err := json.Marshal(flow)
	if err != nil {
		return fmt.Errorf("failed to marshal flow: %w", err)
	}

	if err := r.state.Set(flowKey(flow.ID), flowJSON); err != nil {
		return fmt.Errorf("failed to put flow: %w", err)
	}
	return nil
}
