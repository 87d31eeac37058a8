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
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/erigontech/payloadconv/crypto"
)

func TestSignTxRoundTrip(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	addr := crypto.PubkeyToAddress(key.PubKey())

	chainID := big.NewInt(1337)
	signer := *LatestSignerForChainID(chainID)
	to := common.HexToAddress("0x0000000000000000000000000000000000000042")
	cid := uint256.NewInt(1337)

	txs := []Transaction{
		&LegacyTx{CommonTx: CommonTx{Nonce: 1, GasLimit: 21000, To: &to, Value: uint256.NewInt(1)}, GasPrice: uint256.NewInt(10)},
		&AccessListTx{
			LegacyTx:   LegacyTx{CommonTx: CommonTx{Nonce: 2, GasLimit: 30000}, GasPrice: uint256.NewInt(10)},
			ChainID:    cid,
			AccessList: AccessList{{Address: to, StorageKeys: []common.Hash{{1}}}},
		},
		&DynamicFeeTransaction{
			CommonTx: CommonTx{Nonce: 3, GasLimit: 21000, To: &to, Data: []byte{1, 2, 3}},
			ChainID:  cid,
			TipCap:   uint256.NewInt(1),
			FeeCap:   uint256.NewInt(100),
		},
		&BlobTx{
			DynamicFeeTransaction: DynamicFeeTransaction{
				CommonTx: CommonTx{Nonce: 4, GasLimit: 21000, To: &to},
				ChainID:  cid,
				TipCap:   uint256.NewInt(1),
				FeeCap:   uint256.NewInt(100),
			},
			MaxFeePerBlobGas:    uint256.NewInt(5),
			BlobVersionedHashes: []common.Hash{{0x01}},
		},
	}
	for _, tx := range txs {
		signed, err := SignTx(tx, signer, key)
		require.NoError(t, err)
		require.True(t, signed.Protected())

		sender, err := Sender(signer, signed)
		require.NoError(t, err)
		require.Equal(t, addr, sender, "type %d", tx.Type())

		// the signature survives the envelope
		dec, err := UnmarshalTransactionFromBinary(EncodeTransaction(signed))
		require.NoError(t, err)
		sender, err = signer.Sender(dec)
		require.NoError(t, err)
		require.Equal(t, addr, sender)

		// the unsigned input is left untouched
		v, r, s := tx.RawSignatureValues()
		require.True(t, v.IsZero() && r.IsZero() && s.IsZero())
	}
}

func TestSenderChainIDMismatch(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	tx := &DynamicFeeTransaction{ChainID: uint256.NewInt(1), TipCap: uint256.NewInt(1), FeeCap: uint256.NewInt(1)}
	_, err = SignTx(tx, *LatestSignerForChainID(big.NewInt(2)), key)
	require.ErrorIs(t, err, ErrInvalidChainId)

	signed, err := SignTx(tx, *LatestSignerForChainID(big.NewInt(1)), key)
	require.NoError(t, err)
	_, err = LatestSignerForChainID(big.NewInt(2)).Sender(signed)
	require.ErrorIs(t, err, ErrInvalidChainId)

	legacy := &LegacyTx{GasPrice: uint256.NewInt(1)}
	signedLegacy, err := SignTx(legacy, *LatestSignerForChainID(big.NewInt(1)), key)
	require.NoError(t, err)
	_, err = LatestSignerForChainID(big.NewInt(5)).Sender(signedLegacy)
	require.ErrorIs(t, err, ErrInvalidChainId)
}

func TestUnprotectedLegacySender(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	signer := *LatestSignerForChainID(nil)
	signed, err := SignTx(&LegacyTx{GasPrice: uint256.NewInt(1)}, signer, key)
	require.NoError(t, err)
	require.False(t, signed.Protected())

	v, _, _ := signed.RawSignatureValues()
	require.True(t, v.Uint64() == 27 || v.Uint64() == 28)

	sender, err := LatestSignerForChainID(big.NewInt(1)).Sender(signed)
	require.NoError(t, err)
	require.Equal(t, crypto.PubkeyToAddress(key.PubKey()), sender)
}

func TestSenderRejectsHighS(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer := *LatestSignerForChainID(big.NewInt(1))

	signed, err := SignTx(&DynamicFeeTransaction{ChainID: uint256.NewInt(1)}, signer, key)
	require.NoError(t, err)
	dtx := signed.(*DynamicFeeTransaction)
	dtx.S.Sub(secp256k1N, &dtx.S)

	_, err = signer.Sender(dtx)
	require.ErrorIs(t, err, ErrInvalidSig)
}
