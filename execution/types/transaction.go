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
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"

	"github.com/erigontech/payloadconv/crypto"
)

var (
	ErrInvalidSig         = errors.New("invalid transaction v, r, s values")
	ErrTxTypeNotSupported = errors.New("transaction type not supported")
	ErrTypedTxnRlpWrapped = errors.New("typed transaction must not be wrapped in an rlp string")
	ErrTxTooShort         = errors.New("typed transaction too short")
	ErrTrailingBytes      = errors.New("trailing bytes after transaction")
)

// Transaction types.
const (
	LegacyTxType byte = iota
	AccessListTxType
	DynamicFeeTxType
	BlobTxType
)

// Transaction is implemented by all transaction kinds known to the payload
// conversion. Values are immutable once built; WithSignature returns a copy.
type Transaction interface {
	Type() byte
	GetChainID() *uint256.Int
	GetNonce() uint64
	GetTipCap() *uint256.Int
	GetFeeCap() *uint256.Int
	GetGasLimit() uint64
	GetTo() *common.Address
	GetValue() *uint256.Int
	GetData() []byte
	GetAccessList() AccessList
	GetBlobHashes() []common.Hash
	Protected() bool
	RawSignatureValues() (*uint256.Int, *uint256.Int, *uint256.Int)
	// Hash is keccak256 of the EIP-2718 envelope.
	Hash() common.Hash
	// SigningHash returns the digest a sender signs. The chain id is only
	// consulted by legacy transactions, typed ones carry their own.
	SigningHash(chainID *uint256.Int) common.Hash
	WithSignature(signer Signer, sig []byte) (Transaction, error)
	// MarshalBinary writes the EIP-2718 envelope, as used by execution payloads.
	MarshalBinary(w io.Writer) error
	// EncodeRLP writes the network form, as used inside block bodies.
	EncodeRLP(w io.Writer) error

	encodePayload(w rlp.EncoderBuffer)
}

// Transactions implements DerivableList for transactions.
type Transactions []Transaction

// Len returns the length of s.
func (s Transactions) Len() int { return len(s) }

// EncodeIndex encodes the i'th transaction to w. The trie value of a
// transaction is its EIP-2718 envelope.
func (s Transactions) EncodeIndex(i int, w *bytes.Buffer) {
	w.Write(EncodeTransaction(s[i])) //nolint:errcheck
}

// BinaryTransactions is a list of already encoded EIP-2718 envelopes.
type BinaryTransactions [][]byte

func (s BinaryTransactions) Len() int { return len(s) }

func (s BinaryTransactions) EncodeIndex(i int, w *bytes.Buffer) {
	w.Write(s[i]) //nolint:errcheck
}

// EncodeTransaction returns the canonical EIP-2718 envelope of tx:
// the type byte followed by the rlp payload list, or the bare list for legacy
// transactions.
func EncodeTransaction(tx Transaction) []byte {
	w := rlp.NewEncoderBuffer(nil)
	tx.encodePayload(w)
	payload := w.ToBytes()
	w.Flush() //nolint:errcheck
	if tx.Type() == LegacyTxType {
		return payload
	}
	enc := make([]byte, 0, 1+len(payload))
	enc = append(enc, tx.Type())
	return append(enc, payload...)
}

// MarshalTransactionsBinary encodes every transaction as an EIP-2718 envelope.
func MarshalTransactionsBinary(txs Transactions) [][]byte {
	out := make([][]byte, len(txs))
	for i, tx := range txs {
		out[i] = EncodeTransaction(tx)
	}
	return out
}

// NetworkEncoding returns the form a transaction takes inside an rlp block body:
// typed envelopes are wrapped in an rlp string, legacy transactions stay a list.
func NetworkEncoding(tx Transaction) []byte {
	envelope := EncodeTransaction(tx)
	if tx.Type() == LegacyTxType {
		return envelope
	}
	w := rlp.NewEncoderBuffer(nil)
	w.WriteBytes(envelope)
	enc := w.ToBytes()
	w.Flush() //nolint:errcheck
	return enc
}

func txHash(tx Transaction) common.Hash {
	return crypto.Keccak256Hash(EncodeTransaction(tx))
}

func marshalBinary(tx Transaction, w io.Writer) error {
	_, err := w.Write(EncodeTransaction(tx))
	return err
}

func encodeNetwork(tx Transaction, w io.Writer) error {
	_, err := w.Write(NetworkEncoding(tx))
	return err
}

// UnmarshalTransactionFromBinary decodes a transaction in the EIP-2718 envelope
// format used by execution payloads: a type byte followed by exactly one rlp
// list, or a bare rlp list for legacy transactions.
//
// A typed envelope wrapped in an rlp string header (the block body form) is
// rejected with ErrTypedTxnRlpWrapped instead of being unwrapped.
func UnmarshalTransactionFromBinary(data []byte) (Transaction, error) {
	if len(data) == 0 {
		return nil, ErrTxTooShort
	}
	switch prefix := data[0]; {
	case prefix >= 0xc0:
		return decodeLegacyTx(data)
	case prefix >= 0x80:
		kind, content, _, err := rlp.Split(data)
		if err == nil && kind == rlp.String && len(content) > 0 && content[0] >= AccessListTxType && content[0] <= BlobTxType {
			return nil, ErrTypedTxnRlpWrapped
		}
		return nil, fmt.Errorf("%w: unexpected rlp string of %d bytes", rlp.ErrExpectedList, len(content))
	default:
		return decodeTypedTx(data)
	}
}

// DecodeWrappedTransaction decodes a transaction in its network form: a legacy
// rlp list, or a typed envelope wrapped in an rlp string.
func DecodeWrappedTransaction(data []byte) (Transaction, error) {
	kind, content, rest, err := rlp.Split(data)
	if err != nil {
		return nil, err
	}
	if len(rest) > 0 {
		return nil, ErrTrailingBytes
	}
	switch kind {
	case rlp.List:
		return decodeLegacyTx(data)
	case rlp.String:
		if len(content) == 0 {
			return nil, ErrTxTooShort
		}
		if content[0] >= 0x80 {
			return nil, fmt.Errorf("%w: wrapped payload is not a typed envelope", ErrTxTypeNotSupported)
		}
		return decodeTypedTx(content)
	default:
		return nil, ErrTxTypeNotSupported
	}
}

// DecodeTransactions strictly decodes a list of EIP-2718 envelopes.
func DecodeTransactions(txs [][]byte) (Transactions, error) {
	result := make(Transactions, len(txs))
	for i, raw := range txs {
		tx, err := UnmarshalTransactionFromBinary(raw)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		result[i] = tx
	}
	return result, nil
}

func decodeTypedTx(data []byte) (Transaction, error) {
	if len(data) <= 1 {
		return nil, ErrTxTooShort
	}
	body := data[1:]
	switch data[0] {
	case AccessListTxType:
		return decodeAccessListTx(body)
	case DynamicFeeTxType:
		return decodeDynamicFeeTx(body)
	case BlobTxType:
		return decodeBlobTx(body)
	default:
		return nil, fmt.Errorf("%w: type %d", ErrTxTypeNotSupported, data[0])
	}
}

// u256 returns x, or zero if x is nil.
func u256(x *uint256.Int) *uint256.Int {
	if x == nil {
		return new(uint256.Int)
	}
	return x
}

func copyU256(x *uint256.Int) *uint256.Int {
	if x == nil {
		return nil
	}
	return new(uint256.Int).Set(x)
}

func writeTo(w rlp.EncoderBuffer, to *common.Address) {
	if to == nil {
		w.WriteBytes(nil)
		return
	}
	w.WriteBytes(to[:])
}

// signingHash hashes the type byte followed by the unsigned payload list.
func signingHash(txType byte, encode func(w rlp.EncoderBuffer, withSig bool)) common.Hash {
	w := rlp.NewEncoderBuffer(nil)
	encode(w, false)
	payload := w.ToBytes()
	w.Flush() //nolint:errcheck
	return crypto.Keccak256Hash([]byte{txType}, payload)
}
