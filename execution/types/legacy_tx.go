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
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

// CommonTx holds the fields shared by every transaction kind.
type CommonTx struct {
	Nonce    uint64          // nonce of sender account
	GasLimit uint64          // gas limit
	To       *common.Address // recipient address (nil means contract creation)
	Value    *uint256.Int    // wei amount
	Data     []byte          // contract invocation input data
	V, R, S  uint256.Int     // signature values
}

func (ct *CommonTx) GetNonce() uint64 { return ct.Nonce }

func (ct *CommonTx) GetGasLimit() uint64 { return ct.GasLimit }

func (ct *CommonTx) GetTo() *common.Address { return ct.To }

func (ct *CommonTx) GetValue() *uint256.Int { return ct.Value }

func (ct *CommonTx) GetData() []byte { return ct.Data }

func (ct *CommonTx) GetBlobHashes() []common.Hash { return nil }

func (ct *CommonTx) RawSignatureValues() (*uint256.Int, *uint256.Int, *uint256.Int) {
	return &ct.V, &ct.R, &ct.S
}

func (ct *CommonTx) copy() CommonTx {
	cpy := CommonTx{
		Nonce:    ct.Nonce,
		GasLimit: ct.GasLimit,
		Value:    copyU256(ct.Value),
		Data:     common.CopyBytes(ct.Data),
	}
	if ct.To != nil {
		to := *ct.To
		cpy.To = &to
	}
	cpy.V.Set(&ct.V)
	cpy.R.Set(&ct.R)
	cpy.S.Set(&ct.S)
	return cpy
}

// LegacyTx is the transaction data of the original Ethereum transactions.
type LegacyTx struct {
	CommonTx
	GasPrice *uint256.Int // wei per gas
}

// legacyTxRLP is the rlp layout of a legacy transaction.
type legacyTxRLP struct {
	Nonce    uint64
	GasPrice *uint256.Int
	Gas      uint64
	To       *common.Address `rlp:"nil"`
	Value    *uint256.Int
	Data     []byte
	V, R, S  *uint256.Int
}

func decodeLegacyTx(data []byte) (*LegacyTx, error) {
	var dec legacyTxRLP
	if err := rlp.DecodeBytes(data, &dec); err != nil {
		return nil, fmt.Errorf("legacy transaction: %w", err)
	}
	tx := &LegacyTx{
		CommonTx: CommonTx{
			Nonce:    dec.Nonce,
			GasLimit: dec.Gas,
			To:       dec.To,
			Value:    dec.Value,
			Data:     dec.Data,
		},
		GasPrice: dec.GasPrice,
	}
	tx.V.Set(dec.V)
	tx.R.Set(dec.R)
	tx.S.Set(dec.S)
	return tx, nil
}

func (tx *LegacyTx) Type() byte { return LegacyTxType }

// GetChainID derives the chain id from V for EIP-155 transactions.
func (tx *LegacyTx) GetChainID() *uint256.Int {
	if !tx.Protected() {
		return nil
	}
	return DeriveChainId(&tx.V)
}

func (tx *LegacyTx) GetTipCap() *uint256.Int { return tx.GasPrice }

func (tx *LegacyTx) GetFeeCap() *uint256.Int { return tx.GasPrice }

func (tx *LegacyTx) GetAccessList() AccessList { return nil }

// Protected reports whether the signature is replay protected (EIP-155).
func (tx *LegacyTx) Protected() bool {
	return isProtectedV(&tx.V)
}

func (tx *LegacyTx) Hash() common.Hash { return txHash(tx) }

func (tx *LegacyTx) MarshalBinary(w io.Writer) error { return marshalBinary(tx, w) }

func (tx *LegacyTx) EncodeRLP(w io.Writer) error { return encodeNetwork(tx, w) }

func (tx *LegacyTx) encodePayload(w rlp.EncoderBuffer) {
	l := w.List()
	w.WriteUint64(tx.Nonce)
	w.WriteUint256(u256(tx.GasPrice))
	w.WriteUint64(tx.GasLimit)
	writeTo(w, tx.To)
	w.WriteUint256(u256(tx.Value))
	w.WriteBytes(tx.Data)
	w.WriteUint256(&tx.V)
	w.WriteUint256(&tx.R)
	w.WriteUint256(&tx.S)
	w.ListEnd(l)
}

// SigningHash follows EIP-155 when chainID is set, the homestead layout otherwise.
func (tx *LegacyTx) SigningHash(chainID *uint256.Int) common.Hash {
	if chainID != nil && !chainID.IsZero() {
		return rlpHash([]any{
			tx.Nonce,
			u256(tx.GasPrice),
			tx.GasLimit,
			tx.To,
			u256(tx.Value),
			tx.Data,
			chainID, uint(0), uint(0),
		})
	}
	return rlpHash([]any{
		tx.Nonce,
		u256(tx.GasPrice),
		tx.GasLimit,
		tx.To,
		u256(tx.Value),
		tx.Data,
	})
}

func (tx *LegacyTx) copy() *LegacyTx {
	return &LegacyTx{
		CommonTx: tx.CommonTx.copy(),
		GasPrice: copyU256(tx.GasPrice),
	}
}

func (tx *LegacyTx) WithSignature(signer Signer, sig []byte) (Transaction, error) {
	cpy := tx.copy()
	r, s, v, err := signer.SignatureValues(tx, sig)
	if err != nil {
		return nil, err
	}
	cpy.R.Set(r)
	cpy.S.Set(s)
	cpy.V.Set(v)
	return cpy, nil
}

func isProtectedV(V *uint256.Int) bool {
	if V.BitLen() <= 8 {
		v := V.Uint64()
		return v != 27 && v != 28 && v != 1 && v != 0
	}
	// anything not 27 or 28 is considered protected
	return true
}

// DeriveChainId derives the chain id from the given v parameter.
func DeriveChainId(v *uint256.Int) *uint256.Int {
	if v.IsUint64() {
		v := v.Uint64()
		if v == 27 || v == 28 {
			return new(uint256.Int)
		}
		return new(uint256.Int).SetUint64((v - 35) / 2)
	}
	r := new(uint256.Int).SubUint64(v, 35)
	return r.Rsh(r, 1)
}
