// Package ss58 implements the Substrate address format and multisig account ids.
package ss58

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"
)

const (
	PublicKeyLength = 32
	checksumLength  = 2

	maxSimplePrefix = 63
	maxPrefix       = 16383
)

var (
	checksumPrefix = []byte("SS58PRE")
	multisigPrefix = []byte("modlpy/utilisuba")

	ErrInvalidAddress  = errors.New("invalid ss58 address")
	ErrInvalidChecksum = errors.New("invalid ss58 checksum")
)

// Encode renders a 32-byte public key as an SS58 address for the network prefix
func Encode(publicKey []byte, prefix uint16) (string, error) {
	if len(publicKey) != PublicKeyLength {
		return "", fmt.Errorf("%w: public key must be %d bytes, got %d", ErrInvalidAddress, PublicKeyLength, len(publicKey))
	}
	if prefix > maxPrefix {
		return "", fmt.Errorf("%w: prefix %d out of range", ErrInvalidAddress, prefix)
	}

	var data []byte
	if prefix <= maxSimplePrefix {
		data = append(data, byte(prefix))
	} else {
		data = append(data,
			byte((prefix&0b1111_1100)>>2)|0b0100_0000,
			byte(prefix>>8)|byte((prefix&0b11)<<6),
		)
	}
	data = append(data, publicKey...)

	sum := checksum(data)
	data = append(data, sum[:checksumLength]...)

	return base58.Encode(data), nil
}

// MustEncode panics on invalid input, for keys produced by this package
func MustEncode(publicKey []byte, prefix uint16) string {
	addr, err := Encode(publicKey, prefix)
	if err != nil {
		panic(err)
	}
	return addr
}

// Decode returns the network prefix and the public key of the address
func Decode(address string) (uint16, []byte, error) {
	data, err := base58.Decode(address)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if len(data) < 1 {
		return 0, nil, ErrInvalidAddress
	}

	var (
		prefix    uint16
		prefixLen int
	)
	switch {
	case data[0] <= maxSimplePrefix:
		prefix, prefixLen = uint16(data[0]), 1
	case data[0] < 128:
		if len(data) < 2 {
			return 0, nil, ErrInvalidAddress
		}
		lower := uint16(data[0]<<2) | uint16(data[1]>>6)
		upper := uint16(data[1] & 0b0011_1111)
		prefix, prefixLen = lower|upper<<8, 2
	default:
		return 0, nil, fmt.Errorf("%w: reserved prefix byte %d", ErrInvalidAddress, data[0])
	}

	if len(data) != prefixLen+PublicKeyLength+checksumLength {
		return 0, nil, fmt.Errorf("%w: unexpected length %d", ErrInvalidAddress, len(data))
	}

	body := data[:len(data)-checksumLength]
	sum := checksum(body)
	if !bytes.Equal(sum[:checksumLength], data[len(data)-checksumLength:]) {
		return 0, nil, ErrInvalidChecksum
	}

	publicKey := make([]byte, PublicKeyLength)
	copy(publicKey, body[prefixLen:])

	return prefix, publicKey, nil
}

// PublicKey decodes the address ignoring its prefix
func PublicKey(address string) ([]byte, error) {
	_, pk, err := Decode(address)
	return pk, err
}

// Reencode converts the address to another network prefix
func Reencode(address string, prefix uint16) (string, error) {
	pk, err := PublicKey(address)
	if err != nil {
		return "", err
	}
	return Encode(pk, prefix)
}

func checksum(data []byte) [blake2b.Size]byte {
	return blake2b.Sum512(append(append([]byte{}, checksumPrefix...), data...))
}

// SortSignatories sorts public keys the way the multisig pallet does
func SortSignatories(signatories [][]byte) [][]byte {
	sorted := make([][]byte, len(signatories))
	copy(sorted, signatories)
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i], sorted[j]) < 0
	})
	return sorted
}

// MultisigAccountID derives the multisig account for signatories and threshold
func MultisigAccountID(signatories [][]byte, threshold uint16) ([]byte, error) {
	if len(signatories) == 0 {
		return nil, errors.New("multisig requires at least one signatory")
	}

	var buf bytes.Buffer
	buf.Write(multisigPrefix)
	buf.Write(compactLength(len(signatories)))
	for _, s := range SortSignatories(signatories) {
		if len(s) != PublicKeyLength {
			return nil, fmt.Errorf("signatory must be %d bytes, got %d", PublicKeyLength, len(s))
		}
		buf.Write(s)
	}

	bz := make([]byte, 2)
	binary.LittleEndian.PutUint16(bz, threshold)
	buf.Write(bz)

	id := blake2b.Sum256(buf.Bytes())
	return id[:], nil
}

// MultisigAddress derives the multisig SS58 address from SS58 signatory addresses
func MultisigAddress(signatories []string, threshold uint16, prefix uint16) (string, error) {
	keys := make([][]byte, 0, len(signatories))
	for _, addr := range signatories {
		pk, err := PublicKey(addr)
		if err != nil {
			return "", fmt.Errorf("failed to decode signatory %s: %w", addr, err)
		}
		keys = append(keys, pk)
	}

	id, err := MultisigAccountID(keys, threshold)
	if err != nil {
		return "", err
	}
	return Encode(id, prefix)
}

// compactLength is the SCALE compact encoding of a collection length
func compactLength(n int) []byte {
	switch {
	case n < 1<<6:
		return []byte{byte(n << 2)}
	case n < 1<<14:
		bz := make([]byte, 2)
		binary.LittleEndian.PutUint16(bz, uint16(n<<2|0b01))
		return bz
	default:
		bz := make([]byte, 4)
		binary.LittleEndian.PutUint32(bz, uint32(n<<2|0b10))
		return bz
	}
}
