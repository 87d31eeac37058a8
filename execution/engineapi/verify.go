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

	"github.com/ethereum/go-ethereum/common"

	"github.com/erigontech/payloadconv/execution/engineapi/engine_types"
	"github.com/erigontech/payloadconv/execution/types"
)

// VerifyBlockHash checks the hash of block against the declared one. The hash
// covers every populated header field, including the blob gas fields and the
// parent beacon block root.
func VerifyBlockHash(block *types.Block, declared common.Hash) error {
	if computed := block.Hash(); computed != declared {
		return &BlockHashMismatchError{Declared: declared, Computed: computed}
	}
	return nil
}

// ValidateVersionedHashes checks that the blob hashes of the block
// transactions, in order, are exactly the expected ones.
func ValidateVersionedHashes(block *types.Block, expected []common.Hash) error {
	actual := blobHashes(block)
	if len(actual) != len(expected) {
		return fmt.Errorf("%w: block has %d blob hashes, expected %d", ErrVersionedHashesMismatch, len(actual), len(expected))
	}
	for i := range actual {
		if actual[i] != expected[i] {
			return fmt.Errorf("%w: index %d: have %x, want %x", ErrVersionedHashesMismatch, i, actual[i], expected[i])
		}
	}
	return nil
}

// ConvertAndVerify reconstructs the block of a payload and runs the checks a
// caller owes before trusting it: the declared block hash and, for Cancun
// payloads, the versioned hashes of the sidecar.
func ConvertAndVerify(payload *engine_types.ExecutionPayload, sidecar engine_types.PayloadSidecar) (*types.Block, error) {
	block, err := PayloadToBlockWithSidecar(payload, sidecar)
	if err != nil {
		return nil, err
	}
	if err := VerifyBlockHash(block, payload.BlockHash); err != nil {
		return nil, err
	}
	if sidecar.Cancun != nil {
		if err := ValidateVersionedHashes(block, sidecar.VersionedHashes()); err != nil {
			return nil, err
		}
	}
	return block, nil
}
