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

package engine_types

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	jsoniter "github.com/json-iterator/go"

	"github.com/erigontech/payloadconv/execution/types"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ExecutionPayload represents an execution payload (aka block) of every
// version. Fields of later versions are optional: a nil Withdrawals slice
// means the payload predates Shanghai, nil blob gas fields mean it predates
// Cancun. An empty, non-nil Withdrawals slice is a V2+ payload without
// withdrawals.
type ExecutionPayload struct {
	ParentHash    common.Hash         `json:"parentHash"`
	FeeRecipient  common.Address      `json:"feeRecipient"`
	StateRoot     common.Hash         `json:"stateRoot"`
	ReceiptsRoot  common.Hash         `json:"receiptsRoot"`
	LogsBloom     hexutil.Bytes       `json:"logsBloom"`
	PrevRandao    common.Hash         `json:"prevRandao"`
	BlockNumber   hexutil.Uint64      `json:"blockNumber"`
	GasLimit      hexutil.Uint64      `json:"gasLimit"`
	GasUsed       hexutil.Uint64      `json:"gasUsed"`
	Timestamp     hexutil.Uint64      `json:"timestamp"`
	ExtraData     hexutil.Bytes       `json:"extraData"`
	BaseFeePerGas *hexutil.Big        `json:"baseFeePerGas"`
	BlockHash     common.Hash         `json:"blockHash"`
	Transactions  []hexutil.Bytes     `json:"transactions"`
	Withdrawals   []*types.Withdrawal `json:"withdrawals"`
	BlobGasUsed   *hexutil.Uint64     `json:"blobGasUsed"`
	ExcessBlobGas *hexutil.Uint64     `json:"excessBlobGas"`
}

// executionPayloadJSON is the wire form. Optional fields of later versions
// are left out instead of being written as null.
type executionPayloadJSON struct {
	ParentHash    *common.Hash         `json:"parentHash"`
	FeeRecipient  *common.Address      `json:"feeRecipient"`
	StateRoot     *common.Hash         `json:"stateRoot"`
	ReceiptsRoot  *common.Hash         `json:"receiptsRoot"`
	LogsBloom     *hexutil.Bytes       `json:"logsBloom"`
	PrevRandao    *common.Hash         `json:"prevRandao"`
	BlockNumber   *hexutil.Uint64      `json:"blockNumber"`
	GasLimit      *hexutil.Uint64      `json:"gasLimit"`
	GasUsed       *hexutil.Uint64      `json:"gasUsed"`
	Timestamp     *hexutil.Uint64      `json:"timestamp"`
	ExtraData     *hexutil.Bytes       `json:"extraData"`
	BaseFeePerGas *hexutil.Big         `json:"baseFeePerGas"`
	BlockHash     *common.Hash         `json:"blockHash"`
	Transactions  *[]hexutil.Bytes     `json:"transactions"`
	Withdrawals   *[]*types.Withdrawal `json:"withdrawals,omitempty"`
	BlobGasUsed   *hexutil.Uint64      `json:"blobGasUsed,omitempty"`
	ExcessBlobGas *hexutil.Uint64      `json:"excessBlobGas,omitempty"`
}

// MarshalJSON marshals as JSON.
func (p ExecutionPayload) MarshalJSON() ([]byte, error) {
	txs := p.Transactions
	if txs == nil {
		txs = []hexutil.Bytes{}
	}
	enc := executionPayloadJSON{
		ParentHash:    &p.ParentHash,
		FeeRecipient:  &p.FeeRecipient,
		StateRoot:     &p.StateRoot,
		ReceiptsRoot:  &p.ReceiptsRoot,
		LogsBloom:     &p.LogsBloom,
		PrevRandao:    &p.PrevRandao,
		BlockNumber:   &p.BlockNumber,
		GasLimit:      &p.GasLimit,
		GasUsed:       &p.GasUsed,
		Timestamp:     &p.Timestamp,
		ExtraData:     &p.ExtraData,
		BaseFeePerGas: p.BaseFeePerGas,
		BlockHash:     &p.BlockHash,
		Transactions:  &txs,
		BlobGasUsed:   p.BlobGasUsed,
		ExcessBlobGas: p.ExcessBlobGas,
	}
	if p.Withdrawals != nil {
		enc.Withdrawals = &p.Withdrawals
	}
	return json.Marshal(&enc)
}

// UnmarshalJSON unmarshals from JSON. A null withdrawals list or null blob
// gas field is treated as absent.
func (p *ExecutionPayload) UnmarshalJSON(input []byte) error {
	var dec executionPayloadJSON
	if err := json.Unmarshal(input, &dec); err != nil {
		return err
	}
	switch {
	case dec.ParentHash == nil:
		return errors.New("missing required field 'parentHash' for ExecutionPayload")
	case dec.FeeRecipient == nil:
		return errors.New("missing required field 'feeRecipient' for ExecutionPayload")
	case dec.StateRoot == nil:
		return errors.New("missing required field 'stateRoot' for ExecutionPayload")
	case dec.ReceiptsRoot == nil:
		return errors.New("missing required field 'receiptsRoot' for ExecutionPayload")
	case dec.LogsBloom == nil:
		return errors.New("missing required field 'logsBloom' for ExecutionPayload")
	case dec.PrevRandao == nil:
		return errors.New("missing required field 'prevRandao' for ExecutionPayload")
	case dec.BlockNumber == nil:
		return errors.New("missing required field 'blockNumber' for ExecutionPayload")
	case dec.GasLimit == nil:
		return errors.New("missing required field 'gasLimit' for ExecutionPayload")
	case dec.GasUsed == nil:
		return errors.New("missing required field 'gasUsed' for ExecutionPayload")
	case dec.Timestamp == nil:
		return errors.New("missing required field 'timestamp' for ExecutionPayload")
	case dec.ExtraData == nil:
		return errors.New("missing required field 'extraData' for ExecutionPayload")
	case dec.BaseFeePerGas == nil:
		return errors.New("missing required field 'baseFeePerGas' for ExecutionPayload")
	case dec.BlockHash == nil:
		return errors.New("missing required field 'blockHash' for ExecutionPayload")
	case dec.Transactions == nil:
		return errors.New("missing required field 'transactions' for ExecutionPayload")
	}
	*p = ExecutionPayload{
		ParentHash:    *dec.ParentHash,
		FeeRecipient:  *dec.FeeRecipient,
		StateRoot:     *dec.StateRoot,
		ReceiptsRoot:  *dec.ReceiptsRoot,
		LogsBloom:     *dec.LogsBloom,
		PrevRandao:    *dec.PrevRandao,
		BlockNumber:   *dec.BlockNumber,
		GasLimit:      *dec.GasLimit,
		GasUsed:       *dec.GasUsed,
		Timestamp:     *dec.Timestamp,
		ExtraData:     *dec.ExtraData,
		BaseFeePerGas: dec.BaseFeePerGas,
		BlockHash:     *dec.BlockHash,
		Transactions:  *dec.Transactions,
		BlobGasUsed:   dec.BlobGasUsed,
		ExcessBlobGas: dec.ExcessBlobGas,
	}
	if dec.Withdrawals != nil {
		p.Withdrawals = *dec.Withdrawals
		if p.Withdrawals == nil {
			p.Withdrawals = []*types.Withdrawal{}
		}
	}
	if p.Transactions == nil {
		p.Transactions = []hexutil.Bytes{}
	}
	return nil
}

// Version derives the payload version from the optional fields present.
// It does not check the shape; see CheckShape.
func (p *ExecutionPayload) Version() PayloadVersion {
	switch {
	case p.BlobGasUsed != nil || p.ExcessBlobGas != nil:
		return PayloadV3
	case p.Withdrawals != nil:
		return PayloadV2
	default:
		return PayloadV1
	}
}

// CheckShape reports whether the optional fields form a valid version:
// blob gas fields come in pairs and only together with withdrawals.
func (p *ExecutionPayload) CheckShape() error {
	_, err := versionFromShape(p.Withdrawals != nil, p.BlobGasUsed != nil, p.ExcessBlobGas != nil)
	return err
}

// Narrow returns a copy of p restricted to the fields of version v. Fields
// of later versions are dropped; a payload is never widened.
func (p *ExecutionPayload) Narrow(v PayloadVersion) *ExecutionPayload {
	cpy := p.Copy()
	if v < PayloadV3 {
		cpy.BlobGasUsed, cpy.ExcessBlobGas = nil, nil
	}
	if v < PayloadV2 {
		cpy.Withdrawals = nil
	}
	return cpy
}

// Copy returns a deep copy of p.
func (p *ExecutionPayload) Copy() *ExecutionPayload {
	cpy := *p
	cpy.LogsBloom = common.CopyBytes(p.LogsBloom)
	cpy.ExtraData = common.CopyBytes(p.ExtraData)
	if p.BaseFeePerGas != nil {
		cpy.BaseFeePerGas = (*hexutil.Big)(new(big.Int).Set(p.BaseFeePerGas.ToInt()))
	}
	if p.Transactions != nil {
		cpy.Transactions = make([]hexutil.Bytes, len(p.Transactions))
		for i, tx := range p.Transactions {
			cpy.Transactions[i] = common.CopyBytes(tx)
		}
	}
	cpy.Withdrawals = types.Withdrawals(p.Withdrawals).Copy()
	if p.BlobGasUsed != nil {
		v := *p.BlobGasUsed
		cpy.BlobGasUsed = &v
	}
	if p.ExcessBlobGas != nil {
		v := *p.ExcessBlobGas
		cpy.ExcessBlobGas = &v
	}
	return &cpy
}

// ExecutionPayloadBodyV1 is the body of a payload as returned by
// engine_getPayloadBodiesByHashV1 and engine_getPayloadBodiesByRangeV1.
type ExecutionPayloadBodyV1 struct {
	Transactions []hexutil.Bytes     `json:"transactions"`
	Withdrawals  []*types.Withdrawal `json:"withdrawals"`
}

// CancunPayloadFields are the fields handed to engine_newPayloadV3 next to
// the payload itself.
type CancunPayloadFields struct {
	ParentBeaconBlockRoot common.Hash   `json:"parentBeaconBlockRoot"`
	VersionedHashes       []common.Hash `json:"versionedHashes"`
}

// PayloadSidecar carries the data that travels next to a payload but is not
// part of it.
type PayloadSidecar struct {
	Cancun *CancunPayloadFields
}

// NoSidecar is the sidecar of V1 and V2 payloads.
func NoSidecar() PayloadSidecar { return PayloadSidecar{} }

// SidecarV3 wraps the Cancun fields of a V3 payload.
func SidecarV3(fields CancunPayloadFields) PayloadSidecar {
	return PayloadSidecar{Cancun: &fields}
}

// ParentBeaconBlockRoot returns the parent beacon block root, or nil.
func (s PayloadSidecar) ParentBeaconBlockRoot() *common.Hash {
	if s.Cancun == nil {
		return nil
	}
	root := s.Cancun.ParentBeaconBlockRoot
	return &root
}

// VersionedHashes returns the expected blob versioned hashes, or nil.
func (s PayloadSidecar) VersionedHashes() []common.Hash {
	if s.Cancun == nil {
		return nil
	}
	return s.Cancun.VersionedHashes
}
