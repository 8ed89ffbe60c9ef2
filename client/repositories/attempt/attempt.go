package attempt

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/lidofinance/govtx/client/modules/state"
	"github.com/lidofinance/govtx/client/types"
)

const (
	AttemptsKeyPrefix = "attempts"
)

var ErrAttemptNotFound = errors.New("attempt not found")

type AttemptRepo interface {
	SaveAttempt(attempt *types.AttemptRecord) error
	AppendEvent(flowID string, event *types.TxEvent) error
	GetAttempt(flowID, attemptID string) (*types.AttemptRecord, error)
	GetAttempts(flowID string) ([]*types.AttemptRecord, error)
}

// BaseAttemptRepo keeps attempts under "attempts_<flowID>_<attemptID>"
type BaseAttemptRepo struct {
	state state.State
}

func NewAttemptRepo(s state.State) *BaseAttemptRepo {
	return &BaseAttemptRepo{s}
}

func flowPrefix(flowID string) string {
	return state.MakeCompositeKeyString(AttemptsKeyPrefix, flowID) + "_"
}

func attemptKey(flowID, attemptID string) string {
	return flowPrefix(flowID) + attemptID
}

func (r *BaseAttemptRepo) SaveAttempt(attempt *types.AttemptRecord) error {
	bz, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("failed to marshal attempt: %w", err)
	}
	if err := r.state.Set(attemptKey(attempt.FlowID, attempt.ID), bz); err != nil {
		return fmt.Errorf("failed to save attempt %s: %w", attempt.ID, err)
	}
	return nil
}

// AppendEvent adds the event to its attempt, the attempt is created on the first event
func (r *BaseAttemptRepo) AppendEvent(flowID string, event *types.TxEvent) error {
	attempt, err := r.GetAttempt(flowID, event.AttemptID)
	if errors.Is(err, ErrAttemptNotFound) {
		attempt = &types.AttemptRecord{
			ID:        event.AttemptID,
			FlowID:    flowID,
			Step:      event.Step,
			CreatedAt: event.At,
		}
	} else if err != nil {
		return err
	}

	attempt.Events = append(attempt.Events, event)
	return r.SaveAttempt(attempt)
}

func (r *BaseAttemptRepo) GetAttempt(flowID, attemptID string) (*types.AttemptRecord, error) {
	bz, err := r.state.Get(attemptKey(flowID, attemptID))
	if err != nil {
		return nil, fmt.Errorf("failed to get attempt %s: %w", attemptID, err)
	}
	if bz == nil {
		return nil, fmt.Errorf("%w: %s", ErrAttemptNotFound, attemptID)
	}

	var attempt types.AttemptRecord
	if err := json.Unmarshal(bz, &attempt); err != nil {
		return nil, fmt.Errorf("failed to unmarshal attempt: %w", err)
	}
	return &attempt, nil
}

// GetAttempts returns the attempts of the flow ordered by creation time
func (r *BaseAttemptRepo) GetAttempts(flowID string) ([]*types.AttemptRecord, error) {
	values, err := r.state.List(flowPrefix(flowID))
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts of flow %s: %w", flowID, err)
	}

	attempts := make([]*types.AttemptRecord, 0, len(values))
	for id, bz := range values {
		var attempt types.AttemptRecord
		if err := json.Unmarshal(bz, &attempt); err != nil {
			return nil, fmt.Errorf("failed to unmarshal attempt %s: %w", id, err)
		}
		attempts = append(attempts, &attempt)
	}

	sort.Slice(attempts, func(i, j int) bool {
		return attempts[i].CreatedAt.Before(attempts[j].CreatedAt)
	})
	return attempts, nil
}
