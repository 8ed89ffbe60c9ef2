package state_test

import (
	"os"
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/lidofinance/govtx/client/modules/state"

	"github.com/stretchr/testify/require"
)

func TestLevelDBState_GetSetDelete(t *testing.T) {
	var (
		req    = require.New(t)
		dbPath = "/tmp/govtx_test_GetSetDelete"
	)
	defer os.RemoveAll(dbPath)

	stg, err := state.NewLevelDBState(dbPath)
	req.NoError(err)
	defer stg.Close()

	value, err := stg.Get("missing")
	req.NoError(err)
	req.Nil(value)

	req.NoError(stg.Set("key", []byte("value")))
	value, err = stg.Get("key")
	req.NoError(err)
	req.Equal([]byte("value"), value)

	req.NoError(stg.Delete("key"))
	req.NoError(stg.Delete("key"))
	value, err = stg.Get("key")
	req.NoError(err)
	req.Nil(value)
}

func TestLevelDBState_List(t *testing.T) {
	var (
		req    = require.New(t)
		dbPath = "/tmp/govtx_test_List"
	)
	defer os.RemoveAll(dbPath)

	stg, err := state.NewLevelDBState(dbPath)
	req.NoError(err)
	defer stg.Close()

	req.NoError(stg.Set(state.MakeCompositeKeyString("flows", "a"), []byte("1")))
	req.NoError(stg.Set(state.MakeCompositeKeyString("flows", "b"), []byte("2")))
	req.NoError(stg.Set(state.MakeCompositeKeyString("attempts", "c"), []byte("3")))

	values, err := stg.List("flows_")
	req.NoError(err)
	req.Equal(map[string][]byte{"a": []byte("1"), "b": []byte("2")}, values)
}

func TestLevelDBState_Reset(t *testing.T) {
	var (
		req    = require.New(t)
		dbPath = "/tmp/govtx_test_Reset"
		re     = regexp.MustCompile(dbPath + `_(?P<ts>\d+)`)
	)
	defer os.RemoveAll(dbPath)

	st, err := state.NewLevelDBState(dbPath)
	req.NoError(err)
	defer st.Close()

	req.NoError(st.Set("key", []byte("value")))

	timeBefore := time.Now().Unix()
	path, err := st.Reset("")
	timeAfter := time.Now().Unix()
	req.NoError(err)
	defer os.RemoveAll(path)

	submatches := re.FindStringSubmatch(path)
	req.Greater(len(submatches), 0)

	ts, err := strconv.Atoi(submatches[1])
	req.NoError(err)
	req.GreaterOrEqual(int64(ts), timeBefore)
	req.LessOrEqual(int64(ts), timeAfter)

	value, err := st.Get("key")
	req.NoError(err)
	req.Nil(value)
}
