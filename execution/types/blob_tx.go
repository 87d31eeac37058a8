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
	"io"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

var ErrBlobTxCreate = errors.New("blob transaction of type create")

// BlobTx is the data of EIP-4844 blob transactions, without the blobs
// themselves. A blob transaction cannot create a contract, so To is required.
type BlobTx struct {
	DynamicFeeTransaction
	MaxFeePerBlobGas    *uint256.Int
	BlobVersionedHashes []common.Hash
}

type blobTxRLP struct {
	ChainID             *uint256.Int
	Nonce               uint64
	TipCap              *uint256.Int
	FeeCap              *uint256.Int
	Gas                 uint64
	To                  common.Address
	Value               *uint256.Int
	Data                []byte
	AccessList          AccessList
	MaxFeePerBlobGas    *uint256.Int
	BlobVersionedHashes []common.Hash
	V, R, S             *uint256.Int
}

func decodeBlobTx(body []byte) (*BlobTx, error) {
	// A create transaction carries an empty "to" string, which does not fit
	// the 20 byte address and fails below; check it first for a clearer error.
	if isBlobCreate(body) {
		return nil, ErrBlobTxCreate
	}
	var dec blobTxRLP
	if err := rlp.DecodeBytes(body, &dec); err != nil {
		return nil, fmt.Errorf("blob transaction: %w", err)
	}
	to := dec.To
	tx := &BlobTx{
		DynamicFeeTransaction: DynamicFeeTransaction{
			CommonTx: CommonTx{
				Nonce:    dec.Nonce,
				GasLimit: dec.Gas,
				To:       &to,
				Value:    dec.Value,
				Data:     dec.Data,
			},
			ChainID:    dec.ChainID,
			TipCap:     dec.TipCap,
			FeeCap:     dec.FeeCap,
			AccessList: dec.AccessList,
		},
		MaxFeePerBlobGas:    dec.MaxFeePerBlobGas,
		BlobVersionedHashes: dec.BlobVersionedHashes,
	}
	tx.V.Set(dec.V)
	tx.R.Set(dec.R)
	tx.S.Set(dec.S)
	return tx, nil
}

// isBlobCreate reports whether the sixth element of the payload list is empty.
func isBlobCreate(body []byte) bool {
	content, _, err := rlp.SplitList(body)
	if err != nil {
		return false
	}
	for i := 0; i < 5; i++ {
		if _, content, err = rlp.SplitString(content); err != nil {
			return false
		}
	}
	to, _, err := rlp.SplitString(content)
	return err == nil && len(to) == 0
}

func (tx *BlobTx) Type() byte { return BlobTxType }

func (tx *BlobTx) GetBlobHashes() []common.Hash { return tx.BlobVersionedHashes }

// GetMaxFeePerBlobGas returns the blob fee cap.
func (tx *BlobTx) GetMaxFeePerBlobGas() *uint256.Int { return tx.MaxFeePerBlobGas }

func (tx *BlobTx) Hash() common.Hash { return txHash(tx) }

func (tx *BlobTx) MarshalBinary(w io.Writer) error { return marshalBinary(tx, w) }

func (tx *BlobTx) EncodeRLP(w io.Writer) error { return encodeNetwork(tx, w) }

func (tx *BlobTx) encodeFields(w rlp.EncoderBuffer, withSig bool) {
	l := w.List()
	tx.writeFeeFields(w)
	w.WriteUint256(u256(tx.MaxFeePerBlobGas))
	h := w.List()
	for _, hash := range tx.BlobVersionedHashes {
		w.WriteBytes(hash[:])
	}
	w.ListEnd(h)
	if withSig {
		tx.writeSignature(w)
	}
	w.ListEnd(l)
}

func (tx *BlobTx) encodePayload(w rlp.EncoderBuffer) { tx.encodeFields(w, true) }

func (tx *BlobTx) SigningHash(*uint256.Int) common.Hash {
	return signingHash(tx.Type(), tx.encodeFields)
}

func (tx *BlobTx) copy() *BlobTx {
	return &BlobTx{
		DynamicFeeTransaction: *tx.DynamicFeeTransaction.copy(),
		MaxFeePerBlobGas:      copyU256(tx.MaxFeePerBlobGas),
		BlobVersionedHashes:   append([]common.Hash(nil), tx.BlobVersionedHashes...),
	}
}

func (tx *BlobTx) WithSignature(signer Signer, sig []byte) (Transaction, error) {
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
