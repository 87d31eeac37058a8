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
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/valyala/fastjson"
)

// PayloadVersion is the schema version of an execution payload.
type PayloadVersion uint8

const (
	PayloadV1 PayloadVersion = iota + 1 // Paris
	PayloadV2                           // Shanghai: withdrawals
	PayloadV3                           // Cancun: blob gas
)

func (v PayloadVersion) String() string {
	switch v {
	case PayloadV1:
		return "V1"
	case PayloadV2:
		return "V2"
	case PayloadV3:
		return "V3"
	default:
		return fmt.Sprintf("PayloadVersion(%d)", uint8(v))
	}
}

var ErrSchemaInconsistency = errors.New("inconsistent payload schema")

var parserPool fastjson.ParserPool

func versionFromShape(withdrawals, blobGasUsed, excessBlobGas bool) (PayloadVersion, error) {
	switch {
	case blobGasUsed != excessBlobGas:
		return 0, fmt.Errorf("%w: blobGasUsed and excessBlobGas must be set together", ErrSchemaInconsistency)
	case blobGasUsed && !withdrawals:
		return 0, fmt.Errorf("%w: blob gas fields without withdrawals", ErrSchemaInconsistency)
	case blobGasUsed:
		return PayloadV3, nil
	case withdrawals:
		return PayloadV2, nil
	default:
		return PayloadV1, nil
	}
}

// DetectVersion determines the version of an untagged payload object from
// the optional fields it carries. A field set to null counts as absent.
func DetectVersion(raw []byte) (PayloadVersion, error) {
	p := parserPool.Get()
	defer parserPool.Put(p)

	v, err := p.ParseBytes(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid payload json: %w", err)
	}
	obj, err := v.Object()
	if err != nil {
		return 0, fmt.Errorf("payload is not a json object: %w", err)
	}
	return versionFromShape(present(obj, "withdrawals"), present(obj, "blobGasUsed"), present(obj, "excessBlobGas"))
}

func present(obj *fastjson.Object, key string) bool {
	v := obj.Get(key)
	return v != nil && v.Type() != fastjson.TypeNull
}

// DecodeExecutionPayload detects the version of raw and decodes it.
func DecodeExecutionPayload(raw []byte) (*ExecutionPayload, PayloadVersion, error) {
	version, err := DetectVersion(raw)
	if err != nil {
		return nil, 0, err
	}
	payload := new(ExecutionPayload)
	if err := json.Unmarshal(raw, payload); err != nil {
		return nil, 0, fmt.Errorf("decode %s payload: %w", version, err)
	}
	if payload.Version() != version {
		return nil, 0, fmt.Errorf("%w: detected %s, decoded %s", ErrSchemaInconsistency, version, payload.Version())
	}
	return payload, version, nil
}

// DecodeNewPayloadParams decodes the params array of an engine_newPayload
// call: [payload] for V1 and V2, [payload, versionedHashes, parentBeaconBlockRoot]
// for V3.
func DecodeNewPayloadParams(raw []byte) (*ExecutionPayload, PayloadSidecar, error) {
	p := parserPool.Get()
	defer parserPool.Put(p)

	v, err := p.ParseBytes(raw)
	if err != nil {
		return nil, NoSidecar(), fmt.Errorf("invalid params json: %w", err)
	}
	params, err := v.Array()
	if err != nil {
		return nil, NoSidecar(), fmt.Errorf("params are not a json array: %w", err)
	}
	if len(params) != 1 && len(params) != 3 {
		return nil, NoSidecar(), fmt.Errorf("expected 1 or 3 params, got %d", len(params))
	}

	payload, version, err := DecodeExecutionPayload(params[0].MarshalTo(nil))
	if err != nil {
		return nil, NoSidecar(), err
	}
	if len(params) == 1 {
		if version == PayloadV3 {
			return nil, NoSidecar(), fmt.Errorf("%w: V3 payload without versioned hashes and parent beacon block root", ErrSchemaInconsistency)
		}
		return payload, NoSidecar(), nil
	}
	if version != PayloadV3 {
		return nil, NoSidecar(), fmt.Errorf("%w: Cancun fields for a %s payload", ErrSchemaInconsistency, version)
	}

	var fields CancunPayloadFields
	if err := json.Unmarshal(params[1].MarshalTo(nil), &fields.VersionedHashes); err != nil {
		return nil, NoSidecar(), fmt.Errorf("decode versioned hashes: %w", err)
	}
	if fields.VersionedHashes == nil {
		return nil, NoSidecar(), errors.New("missing versioned hashes")
	}
	var root *common.Hash
	if err := json.Unmarshal(params[2].MarshalTo(nil), &root); err != nil {
		return nil, NoSidecar(), fmt.Errorf("decode parent beacon block root: %w", err)
	}
	if root == nil {
		return nil, NoSidecar(), errors.New("missing parent beacon block root")
	}
	fields.ParentBeaconBlockRoot = *root
	return payload, SidecarV3(fields), nil
}
