package sequencer

import (
	"github.com/lidofinance/govtx/client/types"
)

// Terminal extracts the flow identifier from the finalized last step
type Terminal func(last types.StepState) (uint32, bool)

// ReferendumIndex reads the index from Referenda events of the finalized payload
func ReferendumIndex(last types.StepState) (uint32, bool) {
	if last.Event == nil || last.Event.Payload == nil {
		return 0, false
	}
	return last.Event.Payload.ReferendumIndex()
}

// Classify derives the state of one step. A cancelled lifecycle counts as
// no lifecycle, so the step falls back to its descriptor.
func Classify(tag types.StepTag, descriptor *types.TxDescriptor, descErr error, lifecycle *types.TxEvent) types.StepState {
	state := types.StepState{
		Tag:        tag,
		Descriptor: descriptor,
	}

	switch {
	case lifecycle.IsDone():
		state.Kind = types.StepDone
		state.Event = lifecycle
	case lifecycle != nil && !lifecycle.IsCancelled():
		state.Kind = types.StepSubmitting
		state.Event = lifecycle
	case descriptor != nil:
		state.Kind = types.StepTxReady
	default:
		state.Kind = types.StepNotReady
		state.Descriptor = nil
		state.Err = descErr
		if state.Err == nil {
			state.Err = types.ErrPendingDependency
		}
	}
	return state
}

// Reduce walks the steps in reverse declared order. The first tx_ready or
// submitting step wins, so an in-flight attempt outranks a recomputed
// descriptor. A done step hands over to the step after it, a done last step
// finishes the flow.
func Reduce(steps []types.StepState, terminal Terminal) types.ActiveStep {
	if len(steps) == 0 {
		return types.ActiveStep{Finished: true}
	}
	if terminal == nil {
		terminal = ReferendumIndex
	}

	for i := len(steps) - 1; i >= 0; i-- {
		switch steps[i].Kind {
		case types.StepTxReady, types.StepSubmitting:
			step := steps[i]
			return types.ActiveStep{Step: &step}
		case types.StepDone:
			if i == len(steps)-1 {
				active := types.ActiveStep{Finished: true}
				if index, ok := terminal(steps[i]); ok {
					active.ReferendumIndex = &index
				}
				return active
			}
			next := steps[i+1]
			return types.ActiveStep{Step: &next}
		}
	}

	first := steps[0]
	return types.ActiveStep{Step: &first}
}
