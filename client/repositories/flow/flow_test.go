package flow

import (
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/lidofinance/govtx/client/modules/state"
	"github.com/lidofinance/govtx/client/types"
)

func newTestRepo(t *testing.T, dbPath string) *BaseFlowRepo {
	stg, err := state.NewLevelDBState(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() {
		stg.Close()
		os.RemoveAll(dbPath)
	})
	return NewFlowRepo(stg)
}

func testFlow(id string, createdAt time.Time) *types.FlowRecord {
	return &types.FlowRecord{
		ID:      id,
		Kind:    types.FlowTip,
		Network: types.Kusama.Name,
		Tip: &types.TipForm{
			TipBeneficiary: "beneficiary",
			TipAmount:      decimal.NewFromInt(100),
			TipperTrack:    types.SmallTipper,
		},
		Attempts:  map[types.StepTag]string{},
		CreatedAt: createdAt,
	}
}

func TestPutFlow(t *testing.T) {
	var (
		req  = require.New(t)
		repo = newTestRepo(t, "/tmp/govtx_test_PutFlow")
	)

	flow := testFlow("flow_id", time.Now().UTC())
	req.NoError(repo.PutFlow(flow))

	loaded, err := repo.GetFlowByID(flow.ID)
	req.NoError(err)
	req.Equal(flow.ID, loaded.ID)
	req.Equal(flow.Kind, loaded.Kind)
	req.True(flow.Tip.TipAmount.Equal(loaded.Tip.TipAmount))

	req.Error(repo.PutFlow(flow))

	_, err = repo.GetFlowByID("missing")
	req.ErrorIs(err, ErrFlowNotFound)
}

func TestUpdateFlow(t *testing.T) {
	var (
		req  = require.New(t)
		repo = newTestRepo(t, "/tmp/govtx_test_UpdateFlow")
	)

	flow := testFlow("flow_id", time.Now().UTC())
	req.ErrorIs(repo.UpdateFlow(flow), ErrFlowNotFound)
	req.NoError(repo.PutFlow(flow))

	flow.Attempts[types.StepReferendum] = "attempt_1"
	req.NoError(repo.UpdateFlow(flow))

	loaded, err := repo.GetFlowByID(flow.ID)
	req.NoError(err)
	req.Equal("attempt_1", loaded.Attempts[types.StepReferendum])
	req.False(loaded.UpdatedAt.IsZero())
}

func TestGetFlows(t *testing.T) {
	var (
		req  = require.New(t)
		repo = newTestRepo(t, "/tmp/govtx_test_GetFlows")
		now  = time.Now().UTC()
	)

	req.NoError(repo.PutFlow(testFlow("b", now.Add(time.Minute))))
	req.NoError(repo.PutFlow(testFlow("a", now.Add(2*time.Minute))))
	req.NoError(repo.PutFlow(testFlow("c", now)))

	flows, err := repo.GetFlows()
	req.NoError(err)
	req.Len(flows, 3)
	req.Equal("c", flows[0].ID)
	req.Equal("b", flows[1].ID)
	req.Equal("a", flows[2].ID)
}

func TestDeleteFlow(t *testing.T) {
	var (
		req  = require.New(t)
		repo = newTestRepo(t, "/tmp/govtx_test_DeleteFlow")
	)

	req.NoError(repo.PutFlow(testFlow("flow_1", time.Now().UTC())))
	req.NoError(repo.PutFlow(testFlow("flow_2", time.Now().UTC())))

	req.NoError(repo.DeleteFlow("flow_1"))
	req.ErrorIs(repo.DeleteFlow("flow_1"), ErrFlowNotFound)

	flows, err := repo.GetFlows()
	req.NoError(err)
	req.Len(flows, 1)
	req.Equal("flow_2", flows[0].ID)
}
