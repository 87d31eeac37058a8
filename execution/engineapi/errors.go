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
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrDecodeTransaction       = errors.New("invalid transaction in payload")
	ErrInvalidPayloadField     = errors.New("invalid payload field")
	ErrInvalidBlockHash        = errors.New("invalid block hash")
	ErrVersionedHashesMismatch = errors.New("versioned hashes mismatch")
)

// TxDecodeError reports the payload transaction that failed strict decoding.
type TxDecodeError struct {
	Index int
	Err   error
}

func (e *TxDecodeError) Error() string {
	return fmt.Sprintf("%s: transaction %d: %v", ErrDecodeTransaction, e.Index, e.Err)
}

func (e *TxDecodeError) Is(target error) bool { return target == ErrDecodeTransaction }

func (e *TxDecodeError) Unwrap() error { return e.Err }

// BlockHashMismatchError is returned when the hash of a reconstructed block
// differs from the one declared by the payload.
type BlockHashMismatchError struct {
	Declared common.Hash
	Computed common.Hash
}

func (e *BlockHashMismatchError) Error() string {
	return fmt.Sprintf("%s: declared %x, computed %x", ErrInvalidBlockHash, e.Declared, e.Computed)
}

func (e *BlockHashMismatchError) Is(target error) bool { return target == ErrInvalidBlockHash }
