package keystore

import (
	"context"
	"crypto/ed25519"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lidofinance/govtx/client/modules/ss58"
)

func TestLevelDBKeyStore(t *testing.T) {
	var (
		req    = require.New(t)
		dbPath = "/tmp/govtx_test_KeyStore"
	)
	defer os.RemoveAll(dbPath)

	ks, err := NewLevelDBKeyStore(dbPath)
	req.NoError(err)

	_, err = ks.LoadKeys("alice", "")
	req.ErrorIs(err, ErrKeyNotFound)

	keyPair := NewKeyPair()
	req.NoError(ks.PutKeys("alice", keyPair))
	req.NoError(ks.Close())

	// keys survive reopening
	ks, err = NewLevelDBKeyStore(dbPath)
	req.NoError(err)
	defer ks.Close()

	loaded, err := ks.LoadKeys("alice", "")
	req.NoError(err)
	req.Equal(keyPair.Pub, loaded.Pub)
	req.Equal(keyPair.Priv, loaded.Priv)
}

func TestNewKeyPairFromMnemonic(t *testing.T) {
	req := require.New(t)

	mnemonic, err := NewMnemonic()
	req.NoError(err)
	req.Len(strings.Fields(mnemonic), 24)

	kp1, err := NewKeyPairFromMnemonic(mnemonic, "")
	req.NoError(err)
	kp2, err := NewKeyPairFromMnemonic(mnemonic, "")
	req.NoError(err)
	req.Equal(kp1.Pub, kp2.Pub)

	kp3, err := NewKeyPairFromMnemonic(mnemonic, "password")
	req.NoError(err)
	req.NotEqual(kp1.Pub, kp3.Pub)

	_, err = NewKeyPairFromMnemonic("not a valid mnemonic", "")
	req.Error(err)
}

func TestSigner(t *testing.T) {
	req := require.New(t)

	keyPair := NewKeyPair()
	signer := NewSigner(keyPair, 2)

	prefix, pk, err := ss58.Decode(signer.Address())
	req.NoError(err)
	req.Equal(uint16(2), prefix)
	req.Equal([]byte(keyPair.Pub), pk)

	payload := []byte("payload")
	sig, err := signer.Sign(context.Background(), payload)
	req.NoError(err)
	req.True(ed25519.Verify(keyPair.Pub, payload, sig))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = signer.Sign(ctx, payload)
	req.ErrorIs(err, context.Canceled)
}
