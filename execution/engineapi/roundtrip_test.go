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

package engineapi

import (
	"math/big"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/google/go-cmp/cmp"
	fuzz "github.com/google/gofuzz"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/erigontech/payloadconv/crypto"
	"github.com/erigontech/payloadconv/execution/engineapi/engine_types"
	"github.com/erigontech/payloadconv/execution/types"
)

const testChainID = 1337

var hexBigComparer = cmp.Comparer(func(x, y *hexutil.Big) bool {
	if x == nil || y == nil {
		return x == y
	}
	return x.ToInt().Cmp(y.ToInt()) == 0
})

type txSeed struct {
	Kind       uint8
	Nonce      uint64
	Gas        uint64
	GasPrice   uint64
	TipCap     uint64
	FeeCap     uint64
	BlobFee    uint64
	Value      uint64
	To         common.Address
	Data       []byte
	BlobHashes []common.Hash
}

type payloadSeed struct {
	ParentHash    common.Hash
	FeeRecipient  common.Address
	StateRoot     common.Hash
	ReceiptsRoot  common.Hash
	Bloom         types.Bloom
	PrevRandao    common.Hash
	Number        uint64
	GasLimit      uint64
	GasUsed       uint64
	Time          uint64
	Extra         []byte
	BaseFee       uint64
	Withdrawals   []types.Withdrawal
	BlobGasUsed   uint64
	ExcessBlobGas uint64
	BeaconRoot    common.Hash
	Txs           []txSeed
}

func signedTx(t *testing.T, seed txSeed, blobs bool, key *secp256k1.PrivateKey) types.Transaction {
	t.Helper()
	to := seed.To
	commonTx := types.CommonTx{
		Nonce:    seed.Nonce,
		GasLimit: seed.Gas,
		To:       &to,
		Value:    uint256.NewInt(seed.Value),
		Data:     seed.Data,
	}
	dynamic := types.DynamicFeeTransaction{
		CommonTx: commonTx,
		ChainID:  uint256.NewInt(testChainID),
		TipCap:   uint256.NewInt(seed.TipCap),
		FeeCap:   uint256.NewInt(seed.FeeCap),
	}
	var tx types.Transaction
	switch {
	case seed.Kind%3 == 0:
		tx = &types.LegacyTx{CommonTx: commonTx, GasPrice: uint256.NewInt(seed.GasPrice)}
	case seed.Kind%3 == 2 && blobs:
		tx = &types.BlobTx{
			DynamicFeeTransaction: dynamic,
			MaxFeePerBlobGas:      uint256.NewInt(seed.BlobFee),
			BlobVersionedHashes:   seed.BlobHashes,
		}
	default:
		tx = &dynamic
	}
	signed, err := types.SignTx(tx, *types.LatestSignerForChainID(big.NewInt(testChainID)), key)
	require.NoError(t, err)
	return signed
}

// randomPayload builds a payload of the given version from fuzzed fields,
// leaving the block hash zero, together with the matching sidecar.
func randomPayload(t *testing.T, f *fuzz.Fuzzer, version engine_types.PayloadVersion, key *secp256k1.PrivateKey) (*engine_types.ExecutionPayload, engine_types.PayloadSidecar) {
	t.Helper()
	var seed payloadSeed
	f.Fuzz(&seed)

	payload := &engine_types.ExecutionPayload{
		ParentHash:    seed.ParentHash,
		FeeRecipient:  seed.FeeRecipient,
		StateRoot:     seed.StateRoot,
		ReceiptsRoot:  seed.ReceiptsRoot,
		LogsBloom:     seed.Bloom.Bytes(),
		PrevRandao:    seed.PrevRandao,
		BlockNumber:   hexutil.Uint64(seed.Number),
		GasLimit:      hexutil.Uint64(seed.GasLimit),
		GasUsed:       hexutil.Uint64(seed.GasUsed),
		Timestamp:     hexutil.Uint64(seed.Time),
		ExtraData:     seed.Extra,
		BaseFeePerGas: (*hexutil.Big)(new(big.Int).SetUint64(seed.BaseFee)),
		Transactions:  make([]hexutil.Bytes, len(seed.Txs)),
	}
	for i, s := range seed.Txs {
		tx := signedTx(t, s, version >= engine_types.PayloadV3, key)
		payload.Transactions[i] = types.EncodeTransaction(tx)
	}
	if version < engine_types.PayloadV2 {
		return payload, engine_types.NoSidecar()
	}
	payload.Withdrawals = make([]*types.Withdrawal, len(seed.Withdrawals))
	for i := range seed.Withdrawals {
		payload.Withdrawals[i] = &seed.Withdrawals[i]
	}
	if version < engine_types.PayloadV3 {
		return payload, engine_types.NoSidecar()
	}
	blobGasUsed, excessBlobGas := hexutil.Uint64(seed.BlobGasUsed), hexutil.Uint64(seed.ExcessBlobGas)
	payload.BlobGasUsed, payload.ExcessBlobGas = &blobGasUsed, &excessBlobGas

	versionedHashes := []common.Hash{}
	for _, raw := range payload.Transactions {
		tx, err := types.UnmarshalTransactionFromBinary(raw)
		require.NoError(t, err)
		versionedHashes = append(versionedHashes, tx.GetBlobHashes()...)
	}
	return payload, engine_types.SidecarV3(engine_types.CancunPayloadFields{
		ParentBeaconBlockRoot: seed.BeaconRoot,
		VersionedHashes:       versionedHashes,
	})
}

// testHeader returns a post-merge header with random scalar fields.
func testHeader(f *fuzz.Fuzzer) *types.Header {
	var seed payloadSeed
	f.Fuzz(&seed)
	return &types.Header{
		ParentHash:  seed.ParentHash,
		UncleHash:   types.EmptyUncleHash,
		Coinbase:    seed.FeeRecipient,
		Root:        seed.StateRoot,
		ReceiptHash: seed.ReceiptsRoot,
		Bloom:       seed.Bloom,
		Difficulty:  new(big.Int),
		Number:      new(big.Int).SetUint64(seed.Number),
		GasLimit:    seed.GasLimit,
		GasUsed:     seed.GasUsed,
		Time:        seed.Time,
		MixDigest:   seed.PrevRandao,
		BaseFee:     big.NewInt(7),
	}
}

func TestRandomizedPayloadRoundtrip(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	f := fuzz.NewWithSeed(42).NilChance(0).NumElements(0, 4)

	for i := 0; i < 90; i++ {
		version := engine_types.PayloadVersion(i%3) + engine_types.PayloadV1
		payload, sidecar := randomPayload(t, f, version, key)
		require.Equal(t, version, payload.Version())

		block, err := PayloadToBlockWithSidecar(payload, sidecar)
		require.NoError(t, err)
		payload.BlockHash = block.Hash()

		verified, err := ConvertAndVerify(payload, sidecar)
		require.NoError(t, err)
		require.Equal(t, block.Hash(), verified.Hash())

		converted, err := BlockToPayload(block)
		require.NoError(t, err)
		if diff := cmp.Diff(payload, converted, hexBigComparer); diff != "" {
			t.Fatalf("payload mismatch for %s (-want +got):\n%s", version, diff)
		}
		require.Equal(t, sidecar, BlockSidecar(block))

		// the block survives its own RLP encoding
		enc, err := rlp.EncodeToBytes(block)
		require.NoError(t, err)
		decoded, err := types.DecodeBlock(enc)
		require.NoError(t, err)
		require.Equal(t, block.Hash(), decoded.Hash())
		converted, err = BlockToPayload(decoded)
		require.NoError(t, err)
		if diff := cmp.Diff(payload, converted, hexBigComparer); diff != "" {
			t.Fatalf("payload mismatch after block RLP for %s (-want +got):\n%s", version, diff)
		}
	}
}

func TestConversionPreservesOrder(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	f := fuzz.NewWithSeed(7).NilChance(0).NumElements(1, 8)

	for _, n := range []int{0, 1, 5} {
		txs := make(types.Transactions, n)
		for i := range txs {
			var seed txSeed
			f.Fuzz(&seed)
			seed.Kind, seed.Nonce = uint8(i), uint64(i)
			txs[i] = signedTx(t, seed, true, key)
		}
		withdrawals := make([]*types.Withdrawal, n)
		for i := range withdrawals {
			withdrawals[i] = &types.Withdrawal{Index: uint64(100 - i), Validator: uint64(i), Amount: uint64(i)}
			f.Fuzz(&withdrawals[i].Address)
		}
		block := types.NewBlock(testHeader(f), txs, nil, withdrawals)

		body := BlockToPayloadBody(block)
		require.Len(t, body.Transactions, n)
		require.Len(t, body.Withdrawals, n)
		for i := range txs {
			require.Equal(t, hexutil.Bytes(types.EncodeTransaction(txs[i])), body.Transactions[i])
			require.Equal(t, withdrawals[i], body.Withdrawals[i])
		}

		payload, err := BlockToPayload(block)
		require.NoError(t, err)
		require.Equal(t, engine_types.PayloadV2, payload.Version())
		reconstructed, err := PayloadToBlock(payload)
		require.NoError(t, err)
		require.NoError(t, VerifyBlockHash(reconstructed, block.Hash()))
		for i, tx := range reconstructed.Transactions() {
			require.Equal(t, txs[i].Hash(), tx.Hash())
		}
		require.Equal(t, types.Withdrawals(withdrawals), reconstructed.Withdrawals())
	}
}

func TestBlockToPayloadBodyWithoutWithdrawals(t *testing.T) {
	block := types.NewBlock(testHeader(fuzz.NewWithSeed(3)), nil, nil, nil)

	body := BlockToPayloadBody(block)
	require.NotNil(t, body.Transactions)
	require.Empty(t, body.Transactions)
	require.Nil(t, body.Withdrawals)

	payload, err := BlockToPayload(block)
	require.NoError(t, err)
	require.Equal(t, engine_types.PayloadV1, payload.Version())
	require.Equal(t, engine_types.NoSidecar(), BlockSidecar(block))
}
