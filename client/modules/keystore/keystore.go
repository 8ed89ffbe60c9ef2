package keystore

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/tyler-smith/go-bip39"
	"lukechampine.com/frand"

	"github.com/lidofinance/govtx/client/modules/ss58"
)

const (
	secretsKey = "secrets"
)

var ErrKeyNotFound = errors.New("key pair not found")

type KeyStore interface {
	PutKeys(username string, keyPair *KeyPair) error
	LoadKeys(username, password string) (*KeyPair, error)
	Close() error
}

// LevelDBKeyStore keeps hot signing keys of the daemon users.
type LevelDBKeyStore struct {
	keystoreDb *leveldb.DB
}

func NewLevelDBKeyStore(keystorePath string) (*LevelDBKeyStore, error) {
	db, err := leveldb.OpenFile(keystorePath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open keystore: %w", err)
	}

	keystore := &LevelDBKeyStore{
		keystoreDb: db,
	}

	if err := keystore.initJsonKey(secretsKey, map[string]*KeyPair{}); err != nil {
		return nil, fmt.Errorf("failed to init %s storage: %w", secretsKey, err)
	}

	return keystore, nil
}

func (s *LevelDBKeyStore) PutKeys(username string, keyPair *KeyPair) error {
	keyPairs, err := s.keyPairs()
	if err != nil {
		return err
	}

	keyPairs[username] = keyPair

	keyPairsBz, err := json.Marshal(keyPairs)
	if err != nil {
		return fmt.Errorf("failed to marshal key pairs: %w", err)
	}

	if err = s.keystoreDb.Put([]byte(secretsKey), keyPairsBz, nil); err != nil {
		return fmt.Errorf("failed to put key pairs: %w", err)
	}

	return nil
}

// LoadKeys returns the key pair of the user. Password is reserved for an encrypted storage.
func (s *LevelDBKeyStore) LoadKeys(username, _ string) (*KeyPair, error) {
	keyPairs, err := s.keyPairs()
	if err != nil {
		return nil, err
	}

	keyPair, ok := keyPairs[username]
	if !ok {
		return nil, fmt.Errorf("%w for user %s", ErrKeyNotFound, username)
	}

	return keyPair, nil
}

func (s *LevelDBKeyStore) Close() error {
	return s.keystoreDb.Close()
}

func (s *LevelDBKeyStore) keyPairs() (map[string]*KeyPair, error) {
	bz, err := s.keystoreDb.Get([]byte(secretsKey), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read keystore: %w", err)
	}

	var keyPairs = map[string]*KeyPair{}
	if err := json.Unmarshal(bz, &keyPairs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal key pairs: %w", err)
	}
	return keyPairs, nil
}

func (s *LevelDBKeyStore) initJsonKey(key string, data interface{}) error {
	if _, err := s.keystoreDb.Get([]byte(key), nil); err == nil {
		return nil
	}

	dataBz, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal storage structure: %w", err)
	}
	if err = s.keystoreDb.Put([]byte(key), dataBz, nil); err != nil {
		return fmt.Errorf("failed to init state: %w", err)
	}
	return nil
}

type KeyPair struct {
	Pub  ed25519.PublicKey
	Priv ed25519.PrivateKey
}

func NewKeyPair() *KeyPair {
	pub, priv, _ := ed25519.GenerateKey(frand.Reader)
	return &KeyPair{
		Pub:  pub,
		Priv: priv,
	}
}

// NewKeyPairFromMnemonic derives an ed25519 key from the first 32 bytes of the BIP39 seed
func NewKeyPairFromMnemonic(mnemonic, password string) (*KeyPair, error) {
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, password)
	if err != nil {
		return nil, fmt.Errorf("invalid mnemonic: %w", err)
	}

	priv := ed25519.NewKeyFromSeed(seed[:ed25519.SeedSize])
	return &KeyPair{
		Pub:  priv.Public().(ed25519.PublicKey),
		Priv: priv,
	}, nil
}

// NewMnemonic generates a fresh 24 words mnemonic
func NewMnemonic() (string, error) {
	entropy := frand.Bytes(32)
	return bip39.NewMnemonic(entropy)
}

func (p *KeyPair) Address(prefix uint16) string {
	return ss58.MustEncode(p.Pub, prefix)
}

// Signer signs extrinsic payloads with a stored key pair
type Signer struct {
	keyPair *KeyPair
	prefix  uint16
}

func NewSigner(keyPair *KeyPair, ss58Prefix uint16) *Signer {
	return &Signer{
		keyPair: keyPair,
		prefix:  ss58Prefix,
	}
}

func (s *Signer) Address() string {
	return s.keyPair.Address(s.prefix)
}

func (s *Signer) PublicKey() []byte {
	return s.keyPair.Pub
}

func (s *Signer) Sign(ctx context.Context, payload []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ed25519.Sign(s.keyPair.Priv, payload), nil
}
