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

// DynamicFeeTransaction is the data of EIP-1559 transactions.
type DynamicFeeTransaction struct {
	CommonTx
	ChainID    *uint256.Int
	TipCap     *uint256.Int // max priority fee per gas
	FeeCap     *uint256.Int // max fee per gas
	AccessList AccessList
}

type dynamicFeeTxRLP struct {
	ChainID    *uint256.Int
	Nonce      uint64
	TipCap     *uint256.Int
	FeeCap     *uint256.Int
	Gas        uint64
	To         *common.Address `rlp:"nil"`
	Value      *uint256.Int
	Data       []byte
	AccessList AccessList
	V, R, S    *uint256.Int
}

func decodeDynamicFeeTx(body []byte) (*DynamicFeeTransaction, error) {
	var dec dynamicFeeTxRLP
	if err := rlp.DecodeBytes(body, &dec); err != nil {
		return nil, fmt.Errorf("dynamic fee transaction: %w", err)
	}
	tx := &DynamicFeeTransaction{
		CommonTx: CommonTx{
			Nonce:    dec.Nonce,
			GasLimit: dec.Gas,
			To:       dec.To,
			Value:    dec.Value,
			Data:     dec.Data,
		},
		ChainID:    dec.ChainID,
		TipCap:     dec.TipCap,
		FeeCap:     dec.FeeCap,
		AccessList: dec.AccessList,
	}
	tx.V.Set(dec.V)
	tx.R.Set(dec.R)
	tx.S.Set(dec.S)
	return tx, nil
}

func (tx *DynamicFeeTransaction) Type() byte { return DynamicFeeTxType }

func (tx *DynamicFeeTransaction) GetChainID() *uint256.Int { return tx.ChainID }

func (tx *DynamicFeeTransaction) GetTipCap() *uint256.Int { return tx.TipCap }

func (tx *DynamicFeeTransaction) GetFeeCap() *uint256.Int { return tx.FeeCap }

func (tx *DynamicFeeTransaction) GetAccessList() AccessList { return tx.AccessList }

func (tx *DynamicFeeTransaction) Protected() bool { return true }

func (tx *DynamicFeeTransaction) Hash() common.Hash { return txHash(tx) }

func (tx *DynamicFeeTransaction) MarshalBinary(w io.Writer) error { return marshalBinary(tx, w) }

func (tx *DynamicFeeTransaction) EncodeRLP(w io.Writer) error { return encodeNetwork(tx, w) }

// writeFeeFields writes the fields from chain id up to and including the
// access list.
func (tx *DynamicFeeTransaction) writeFeeFields(w rlp.EncoderBuffer) {
	w.WriteUint256(u256(tx.ChainID))
	w.WriteUint64(tx.Nonce)
	w.WriteUint256(u256(tx.TipCap))
	w.WriteUint256(u256(tx.FeeCap))
	w.WriteUint64(tx.GasLimit)
	writeTo(w, tx.To)
	w.WriteUint256(u256(tx.Value))
	w.WriteBytes(tx.Data)
	encodeAccessList(w, tx.AccessList)
}

func (tx *DynamicFeeTransaction) writeSignature(w rlp.EncoderBuffer) {
	w.WriteUint256(&tx.V)
	w.WriteUint256(&tx.R)
	w.WriteUint256(&tx.S)
}

func (tx *DynamicFeeTransaction) encodeFields(w rlp.EncoderBuffer, withSig bool) {
	l := w.List()
	tx.writeFeeFields(w)
	if withSig {
		tx.writeSignature(w)
	}
	w.ListEnd(l)
}

func (tx *DynamicFeeTransaction) encodePayload(w rlp.EncoderBuffer) { tx.encodeFields(w, true) }

func (tx *DynamicFeeTransaction) SigningHash(*uint256.Int) common.Hash {
	return signingHash(tx.Type(), tx.encodeFields)
}

func (tx *DynamicFeeTransaction) copy() *DynamicFeeTransaction {
	return &DynamicFeeTransaction{
		CommonTx:   tx.CommonTx.copy(),
		ChainID:    copyU256(tx.ChainID),
		TipCap:     copyU256(tx.TipCap),
		FeeCap:     copyU256(tx.FeeCap),
		AccessList: tx.AccessList.copy(),
	}
}

func (tx *DynamicFeeTransaction) WithSignature(signer Signer, sig []byte) (Transaction, error) {
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
