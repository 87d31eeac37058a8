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

// AccessTuple is the element type of an access list.
type AccessTuple struct {
	Address     common.Address `json:"address"`
	StorageKeys []common.Hash  `json:"storageKeys"`
}

// AccessList is an EIP-2930 access list.
type AccessList []AccessTuple

// StorageKeys returns the total number of storage keys in the access list.
func (al AccessList) StorageKeys() int {
	sum := 0
	for _, tuple := range al {
		sum += len(tuple.StorageKeys)
	}
	return sum
}

func (al AccessList) copy() AccessList {
	if al == nil {
		return nil
	}
	cpy := make(AccessList, len(al))
	for i, tuple := range al {
		cpy[i] = AccessTuple{
			Address:     tuple.Address,
			StorageKeys: append([]common.Hash(nil), tuple.StorageKeys...),
		}
	}
	return cpy
}

func encodeAccessList(w rlp.EncoderBuffer, al AccessList) {
	l := w.List()
	for _, tuple := range al {
		t := w.List()
		w.WriteBytes(tuple.Address[:])
		k := w.List()
		for _, key := range tuple.StorageKeys {
			w.WriteBytes(key[:])
		}
		w.ListEnd(k)
		w.ListEnd(t)
	}
	w.ListEnd(l)
}

// AccessListTx is the data of EIP-2930 access list transactions.
type AccessListTx struct {
	LegacyTx
	ChainID    *uint256.Int
	AccessList AccessList // EIP-2930 access list
}

type accessListTxRLP struct {
	ChainID    *uint256.Int
	Nonce      uint64
	GasPrice   *uint256.Int
	Gas        uint64
	To         *common.Address `rlp:"nil"`
	Value      *uint256.Int
	Data       []byte
	AccessList AccessList
	V, R, S    *uint256.Int
}

func decodeAccessListTx(body []byte) (*AccessListTx, error) {
	var dec accessListTxRLP
	if err := rlp.DecodeBytes(body, &dec); err != nil {
		return nil, fmt.Errorf("access list transaction: %w", err)
	}
	tx := &AccessListTx{
		LegacyTx: LegacyTx{
			CommonTx: CommonTx{
				Nonce:    dec.Nonce,
				GasLimit: dec.Gas,
				To:       dec.To,
				Value:    dec.Value,
				Data:     dec.Data,
			},
			GasPrice: dec.GasPrice,
		},
		ChainID:    dec.ChainID,
		AccessList: dec.AccessList,
	}
	tx.V.Set(dec.V)
	tx.R.Set(dec.R)
	tx.S.Set(dec.S)
	return tx, nil
}

func (tx *AccessListTx) Type() byte { return AccessListTxType }

func (tx *AccessListTx) GetChainID() *uint256.Int { return tx.ChainID }

func (tx *AccessListTx) GetAccessList() AccessList { return tx.AccessList }

func (tx *AccessListTx) Protected() bool { return true }

func (tx *AccessListTx) Hash() common.Hash { return txHash(tx) }

func (tx *AccessListTx) MarshalBinary(w io.Writer) error { return marshalBinary(tx, w) }

func (tx *AccessListTx) EncodeRLP(w io.Writer) error { return encodeNetwork(tx, w) }

func (tx *AccessListTx) encodeFields(w rlp.EncoderBuffer, withSig bool) {
	l := w.List()
	w.WriteUint256(u256(tx.ChainID))
	w.WriteUint64(tx.Nonce)
	w.WriteUint256(u256(tx.GasPrice))
	w.WriteUint64(tx.GasLimit)
	writeTo(w, tx.To)
	w.WriteUint256(u256(tx.Value))
	w.WriteBytes(tx.Data)
	encodeAccessList(w, tx.AccessList)
	if withSig {
		w.WriteUint256(&tx.V)
		w.WriteUint256(&tx.R)
		w.WriteUint256(&tx.S)
	}
	w.ListEnd(l)
}

func (tx *AccessListTx) encodePayload(w rlp.EncoderBuffer) { tx.encodeFields(w, true) }

func (tx *AccessListTx) SigningHash(*uint256.Int) common.Hash {
	return signingHash(tx.Type(), tx.encodeFields)
}

func (tx *AccessListTx) copy() *AccessListTx {
	return &AccessListTx{
		LegacyTx:   *tx.LegacyTx.copy(),
		ChainID:    copyU256(tx.ChainID),
		AccessList: tx.AccessList.copy(),
	}
}

func (tx *AccessListTx) WithSignature(signer Signer, sig []byte) (Transaction, error) {
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
