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
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/erigontech/payloadconv/execution/engineapi/engine_types"
	"github.com/erigontech/payloadconv/execution/types"
)

// Header constants of proof-of-stake blocks.
var (
	proofOfStakeDifficulty = big.NewInt(0)
	proofOfStakeNonce      = types.BlockNonce{}
)

// BlockToPayloadBody projects a block onto the body returned by
// engine_getPayloadBodiesBy*V1. Transactions are EIP-2718 envelopes in block
// order; withdrawals are nil for blocks that predate them.
func BlockToPayloadBody(block *types.Block) *engine_types.ExecutionPayloadBodyV1 {
	txs := block.Transactions()
	body := &engine_types.ExecutionPayloadBodyV1{
		Transactions: make([]hexutil.Bytes, len(txs)),
		Withdrawals:  block.Withdrawals().Copy(),
	}
	for i, tx := range txs {
		body.Transactions[i] = types.EncodeTransaction(tx)
	}
	return body
}

// PayloadToBlock reconstructs the block of a payload without sidecar data.
// The parent beacon block root of a V3 payload is left unset; use
// PayloadToBlockWithSidecar to hash such blocks correctly.
//
// The declared block hash is not checked, see VerifyBlockHash.
func PayloadToBlock(payload *engine_types.ExecutionPayload) (*types.Block, error) {
	if err := payload.CheckShape(); err != nil {
		return nil, err
	}
	return payloadToBlock(payload, nil)
}

// PayloadToBlockWithSidecar reconstructs the block of a payload, taking the
// parent beacon block root from the sidecar. V3 payloads require Cancun
// sidecar fields and earlier versions must not have them.
func PayloadToBlockWithSidecar(payload *engine_types.ExecutionPayload, sidecar engine_types.PayloadSidecar) (*types.Block, error) {
	if err := payload.CheckShape(); err != nil {
		return nil, err
	}
	version := payload.Version()
	switch {
	case version >= engine_types.PayloadV3 && sidecar.Cancun == nil:
		return nil, fmt.Errorf("%w: %s payload without parent beacon block root", engine_types.ErrSchemaInconsistency, version)
	case version < engine_types.PayloadV3 && sidecar.Cancun != nil:
		return nil, fmt.Errorf("%w: Cancun sidecar for a %s payload", engine_types.ErrSchemaInconsistency, version)
	}
	return payloadToBlock(payload, sidecar.ParentBeaconBlockRoot())
}

func payloadToBlock(payload *engine_types.ExecutionPayload, parentBeaconBlockRoot *common.Hash) (*types.Block, error) {
	if len(payload.LogsBloom) != types.BloomByteLength {
		return nil, fmt.Errorf("%w: logsBloom has %d bytes, want %d", ErrInvalidPayloadField, len(payload.LogsBloom), types.BloomByteLength)
	}
	if len(payload.ExtraData) > types.MaximumExtraDataSize {
		return nil, fmt.Errorf("%w: extraData has %d bytes, at most %d allowed", ErrInvalidPayloadField, len(payload.ExtraData), types.MaximumExtraDataSize)
	}
	if payload.BaseFeePerGas == nil {
		return nil, fmt.Errorf("%w: missing baseFeePerGas", ErrInvalidPayloadField)
	}
	baseFee := payload.BaseFeePerGas.ToInt()
	if baseFee.Sign() < 0 || baseFee.BitLen() > 256 {
		return nil, fmt.Errorf("%w: baseFeePerGas %s out of range", ErrInvalidPayloadField, baseFee)
	}

	txs := make(types.Transactions, len(payload.Transactions))
	for i, raw := range payload.Transactions {
		tx, err := types.UnmarshalTransactionFromBinary(raw)
		if err != nil {
			return nil, &TxDecodeError{Index: i, Err: err}
		}
		txs[i] = tx
	}

	header := &types.Header{
		ParentHash:            payload.ParentHash,
		UncleHash:             types.EmptyUncleHash,
		Coinbase:              payload.FeeRecipient,
		Root:                  payload.StateRoot,
		TxHash:                types.DeriveSha(txs),
		ReceiptHash:           payload.ReceiptsRoot,
		Bloom:                 types.BytesToBloom(payload.LogsBloom),
		Difficulty:            proofOfStakeDifficulty,
		Number:                new(big.Int).SetUint64(uint64(payload.BlockNumber)),
		GasLimit:              uint64(payload.GasLimit),
		GasUsed:               uint64(payload.GasUsed),
		Time:                  uint64(payload.Timestamp),
		Extra:                 payload.ExtraData,
		MixDigest:             payload.PrevRandao,
		Nonce:                 proofOfStakeNonce,
		BaseFee:               baseFee,
		ParentBeaconBlockRoot: parentBeaconBlockRoot,
	}
	if payload.Withdrawals != nil {
		withdrawalsHash := types.DeriveSha(types.Withdrawals(payload.Withdrawals))
		header.WithdrawalsHash = &withdrawalsHash
	}
	if payload.BlobGasUsed != nil {
		blobGasUsed := uint64(*payload.BlobGasUsed)
		header.BlobGasUsed = &blobGasUsed
	}
	if payload.ExcessBlobGas != nil {
		excessBlobGas := uint64(*payload.ExcessBlobGas)
		header.ExcessBlobGas = &excessBlobGas
	}
	// NewBlockFromParts copies the header and the withdrawals
	return types.NewBlockFromParts(header, txs, nil, payload.Withdrawals), nil
}

// BlockToPayload converts a block into the richest payload its header
// supports. The block hash is taken from the header as is. Headers whose
// number or base fee cannot be carried by a payload are rejected with
// ErrInvalidPayloadField.
func BlockToPayload(block *types.Block) (*engine_types.ExecutionPayload, error) {
	header := block.HeaderNoCopy()
	if header.Number == nil || !header.Number.IsUint64() {
		return nil, fmt.Errorf("%w: block number %v does not fit in 64 bits", ErrInvalidPayloadField, header.Number)
	}
	if header.BaseFee != nil && (header.BaseFee.Sign() < 0 || header.BaseFee.BitLen() > 256) {
		return nil, fmt.Errorf("%w: baseFeePerGas %s out of range", ErrInvalidPayloadField, header.BaseFee)
	}
	payload := &engine_types.ExecutionPayload{
		ParentHash:   header.ParentHash,
		FeeRecipient: header.Coinbase,
		StateRoot:    header.Root,
		ReceiptsRoot: header.ReceiptHash,
		LogsBloom:    common.CopyBytes(header.Bloom[:]),
		PrevRandao:   header.MixDigest,
		BlockNumber:  hexutil.Uint64(header.Number.Uint64()),
		GasLimit:     hexutil.Uint64(header.GasLimit),
		GasUsed:      hexutil.Uint64(header.GasUsed),
		Timestamp:    hexutil.Uint64(header.Time),
		ExtraData:    common.CopyBytes(header.Extra),
		BlockHash:    block.Hash(),
		Transactions: make([]hexutil.Bytes, len(block.Transactions())),
		Withdrawals:  block.Withdrawals().Copy(),
	}
	if payload.ExtraData == nil {
		payload.ExtraData = hexutil.Bytes{}
	}
	if header.BaseFee != nil {
		payload.BaseFeePerGas = (*hexutil.Big)(new(big.Int).Set(header.BaseFee))
	}
	for i, tx := range block.Transactions() {
		payload.Transactions[i] = types.EncodeTransaction(tx)
	}
	if header.BlobGasUsed != nil {
		blobGasUsed := hexutil.Uint64(*header.BlobGasUsed)
		payload.BlobGasUsed = &blobGasUsed
	}
	if header.ExcessBlobGas != nil {
		excessBlobGas := hexutil.Uint64(*header.ExcessBlobGas)
		payload.ExcessBlobGas = &excessBlobGas
	}
	return payload, nil
}

// BlockSidecar returns the sidecar that travels with the payload of block:
// the parent beacon block root and the versioned hashes of its blob
// transactions for Cancun blocks, nothing otherwise.
func BlockSidecar(block *types.Block) engine_types.PayloadSidecar {
	root := block.HeaderNoCopy().ParentBeaconBlockRoot
	if root == nil {
		return engine_types.NoSidecar()
	}
	return engine_types.SidecarV3(engine_types.CancunPayloadFields{
		ParentBeaconBlockRoot: *root,
		VersionedHashes:       blobHashes(block),
	})
}

func blobHashes(block *types.Block) []common.Hash {
	hashes := []common.Hash{}
	for _, tx := range block.Transactions() {
		hashes = append(hashes, tx.GetBlobHashes()...)
	}
	return hashes
}
