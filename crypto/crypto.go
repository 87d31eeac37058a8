// Copyright 2025 The Erigon Authors
// This file is part of Erigon.
//
// Erigon is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Erigon is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Erigon. If not, see <http://www.gnu.org/licenses/>.

// Package crypto provides keccak hashing and secp256k1 signing used by transaction
// signing and block hashing.
package crypto

import (
	"errors"
	"fmt"
	"hash"
	"sync"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// SignatureLength is the length of a [R || S || V] signature.
const SignatureLength = 64 + 1

// RecoveryIDOffset points to the byte holding the recovery id.
const RecoveryIDOffset = 64

var (
	ErrInvalidSignatureLen = errors.New("invalid signature length")
	ErrInvalidRecoveryID   = errors.New("invalid signature recovery id")
)

// KeccakState wraps sha3.state. In addition to the usual hash methods, it also supports
// Read to get a variable amount of data from the hash state. Read is faster than Sum
// because it doesn't copy the internal state, but also modifies the internal state.
type KeccakState interface {
	hash.Hash
	Read([]byte) (int, error)
}

var hasherPool = sync.Pool{
	New: func() any { return sha3.NewLegacyKeccak256().(KeccakState) },
}

// NewKeccakState returns a fresh keccak256 state.
func NewKeccakState() KeccakState {
	return sha3.NewLegacyKeccak256().(KeccakState)
}

// Keccak256 calculates and returns the Keccak256 hash of the input data.
func Keccak256(data ...[]byte) []byte {
	h := Keccak256Hash(data...)
	return h[:]
}

// Keccak256Hash calculates and returns the Keccak256 hash of the input data,
// converting it to an internal Hash data structure.
func Keccak256Hash(data ...[]byte) (h common.Hash) {
	d := hasherPool.Get().(KeccakState)
	d.Reset()
	for _, b := range data {
		d.Write(b)
	}
	d.Read(h[:]) //nolint:errcheck
	hasherPool.Put(d)
	return h
}

// GenerateKey creates a new secp256k1 private key.
func GenerateKey() (*secp256k1.PrivateKey, error) {
	return secp256k1.GeneratePrivateKey()
}

// PubkeyToAddress derives the account address of a public key.
func PubkeyToAddress(pub *secp256k1.PublicKey) common.Address {
	uncompressed := pub.SerializeUncompressed()
	return common.BytesToAddress(Keccak256(uncompressed[1:])[12:])
}

// Sign calculates an ECDSA signature of a 32-byte digest.
// The produced signature is in the [R || S || V] format where V is 0 or 1.
func Sign(digest []byte, prv *secp256k1.PrivateKey) ([]byte, error) {
	if len(digest) != 32 {
		return nil, fmt.Errorf("hash is required to be exactly 32 bytes (%d)", len(digest))
	}
	// compact form is [27 + recid || R || S]
	compact := ecdsa.SignCompact(prv, digest, false)
	sig := make([]byte, SignatureLength)
	copy(sig, compact[1:])
	sig[RecoveryIDOffset] = compact[0] - 27
	return sig, nil
}

// Ecrecover returns the address that produced sig over digest.
func Ecrecover(digest, sig []byte) (common.Address, error) {
	if len(sig) != SignatureLength {
		return common.Address{}, ErrInvalidSignatureLen
	}
	if sig[RecoveryIDOffset] > 1 {
		return common.Address{}, ErrInvalidRecoveryID
	}
	compact := make([]byte, SignatureLength)
	compact[0] = sig[RecoveryIDOffset] + 27
	copy(compact[1:], sig[:RecoveryIDOffset])
	pub, _, err := ecdsa.RecoverCompact(compact, digest)
	if err != nil {
		return common.Address{}, err
	}
	return PubkeyToAddress(pub), nil
}
