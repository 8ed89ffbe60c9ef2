package file_storage

import (
	"crypto/ed25519"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lidofinance/govtx/storage"
)

func TestFileStorage_Send(t *testing.T) {
	var (
		req      = require.New(t)
		N        = 10
		testFile = "/tmp/govtx_test_file_storage"
		lockFile = "/tmp/govtx_test_file_storage_lock"
	)
	defer os.Remove(testFile)
	defer os.Remove(lockFile)

	fs, err := NewFileStorage(testFile, lockFile)
	req.NoError(err)
	defer fs.Close()

	msgs := make([]storage.Message, 0, N)
	for i := 0; i < N; i++ {
		msg, err := storage.NewMessage("flow", "bounty", "signed", map[string]int{"n": i})
		req.NoError(err)
		msgs = append(msgs, msg)
	}

	req.NoError(fs.Send(msgs...))
	for i, msg := range msgs {
		req.NotEmpty(msg.ID)
		req.Equal(uint64(i), msg.Offset)
	}

	offsetMsgs, err := fs.GetMessages(0)
	req.NoError(err)
	req.Equal(msgs, offsetMsgs)

	offsetMsgs, err = fs.GetMessages(7)
	req.NoError(err)
	req.Equal(msgs[7:], offsetMsgs)
}

func TestFileStorage_Reopen(t *testing.T) {
	var (
		req      = require.New(t)
		testFile = "/tmp/govtx_test_file_storage_reopen"
		lockFile = "/tmp/govtx_test_file_storage_reopen_lock"
	)
	defer os.Remove(testFile)
	defer os.Remove(lockFile)

	for i := 0; i < 3; i++ {
		fs, err := NewFileStorage(testFile, lockFile)
		req.NoError(err)

		msg, err := storage.NewMessage("flow", "ref", fmt.Sprintf("event_%d", i), nil)
		req.NoError(err)
		req.NoError(fs.Send(msg))
		req.NoError(fs.Close())
	}

	fs, err := NewFileStorage(testFile, lockFile)
	req.NoError(err)
	defer fs.Close()

	msgs, err := fs.GetMessages(0)
	req.NoError(err)
	req.Len(msgs, 3)
	for i, msg := range msgs {
		req.Equal(uint64(i), msg.Offset)
		req.Equal(fmt.Sprintf("event_%d", i), msg.Event)
	}
}

func TestMessage_Signature(t *testing.T) {
	req := require.New(t)

	pub, priv, err := ed25519.GenerateKey(nil)
	req.NoError(err)

	msg, err := storage.NewMessage("flow", "decision", "finalized", map[string]bool{"ok": true})
	req.NoError(err)
	req.ErrorIs(msg.Verify(pub), storage.ErrInvalidSignature)

	msg.Sign("alice", priv)
	req.NoError(msg.Verify(pub))

	msg.Event = "error"
	req.ErrorIs(msg.Verify(pub), storage.ErrInvalidSignature)
}
