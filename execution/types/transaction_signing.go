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

package types

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/erigontech/payloadconv/crypto"
)

var ErrInvalidChainId = errors.New("invalid chain id for signer")

var (
	secp256k1N     = uint256.MustFromHex("0xfffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364141")
	secp256k1halfN = new(uint256.Int).Rsh(secp256k1N, 1)
)

// Signer signs and recovers the senders of transactions bound to one chain.
// Legacy transactions follow EIP-155 when the chain id is non-zero; typed
// transactions must carry the signer's chain id.
type Signer struct {
	chainID    uint256.Int
	chainIDMul uint256.Int
}

// LatestSignerForChainID returns the signer accepting every transaction type
// known to this package.
func LatestSignerForChainID(chainID *big.Int) *Signer {
	var s Signer
	if chainID != nil {
		s.chainID.SetFromBig(chainID)
		s.chainIDMul.Mul(&s.chainID, uint256.NewInt(2))
	}
	return &s
}

// ChainID returns the chain id of the signer.
func (sg Signer) ChainID() *uint256.Int {
	return new(uint256.Int).Set(&sg.chainID)
}

// Hash returns the digest to be signed for tx.
func (sg Signer) Hash(tx Transaction) common.Hash {
	return tx.SigningHash(&sg.chainID)
}

func (sg Signer) checkChainID(tx Transaction) error {
	if tx.Type() == LegacyTxType {
		return nil
	}
	if !u256(tx.GetChainID()).Eq(&sg.chainID) {
		return fmt.Errorf("%w: have %d want %d", ErrInvalidChainId, u256(tx.GetChainID()), &sg.chainID)
	}
	return nil
}

// SignatureValues converts a [R || S || V] signature into the values stored in tx.
func (sg Signer) SignatureValues(tx Transaction, sig []byte) (r, s, v *uint256.Int, err error) {
	if len(sig) != crypto.SignatureLength {
		return nil, nil, nil, fmt.Errorf("%w: %d", crypto.ErrInvalidSignatureLen, len(sig))
	}
	if err := sg.checkChainID(tx); err != nil {
		return nil, nil, nil, err
	}
	r = new(uint256.Int).SetBytes(sig[:32])
	s = new(uint256.Int).SetBytes(sig[32:64])
	v = new(uint256.Int).SetUint64(uint64(sig[crypto.RecoveryIDOffset]))
	if tx.Type() == LegacyTxType {
		if sg.chainID.IsZero() {
			v.AddUint64(v, 27)
		} else {
			v.AddUint64(v, 35)
			v.Add(v, &sg.chainIDMul)
		}
	}
	return r, s, v, nil
}

// Sender recovers the address that signed tx.
func (sg Signer) Sender(tx Transaction) (common.Address, error) {
	V, R, S := tx.RawSignatureValues()
	recid := new(uint256.Int)
	var hash common.Hash
	switch {
	case tx.Type() != LegacyTxType:
		if err := sg.checkChainID(tx); err != nil {
			return common.Address{}, err
		}
		recid.Set(V)
		hash = tx.SigningHash(nil)
	case !tx.Protected():
		if V.Lt(uint256.NewInt(27)) {
			return common.Address{}, ErrInvalidSig
		}
		recid.SubUint64(V, 27)
		hash = tx.SigningHash(nil)
	default:
		if !DeriveChainId(V).Eq(&sg.chainID) {
			return common.Address{}, fmt.Errorf("%w: have %d want %d", ErrInvalidChainId, DeriveChainId(V), &sg.chainID)
		}
		recid.Sub(V, &sg.chainIDMul)
		recid.SubUint64(recid, 35)
		hash = tx.SigningHash(&sg.chainID)
	}
	if !recid.IsUint64() || recid.Uint64() > 1 || !validSignatureValues(R, S) {
		return common.Address{}, ErrInvalidSig
	}
	sig := make([]byte, crypto.SignatureLength)
	R.WriteToSlice(sig[:32])
	S.WriteToSlice(sig[32:64])
	sig[crypto.RecoveryIDOffset] = byte(recid.Uint64())
	return crypto.Ecrecover(hash[:], sig)
}

// validSignatureValues applies the homestead rules: r and s in [1, N) and s in the lower half.
func validSignatureValues(r, s *uint256.Int) bool {
	if r.IsZero() || s.IsZero() {
		return false
	}
	return r.Lt(secp256k1N) && !s.Gt(secp256k1halfN)
}

// SignTx signs tx with the given key.
func SignTx(tx Transaction, signer Signer, prv *secp256k1.PrivateKey) (Transaction, error) {
	h := signer.Hash(tx)
	sig, err := crypto.Sign(h[:], prv)
	if err != nil {
		return nil, err
	}
	return tx.WithSignature(signer, sig)
}

// Sender is a shortcut for signer.Sender(tx).
func Sender(signer Signer, tx Transaction) (common.Address, error) {
	return signer.Sender(tx)
}
