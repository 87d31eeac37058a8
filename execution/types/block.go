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
	"encoding/binary"
	"fmt"
	"io"
	"math/big"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rlp"
)

const (
	// BloomByteLength is the number of bytes of a logs bloom.
	BloomByteLength = 256
	// MaximumExtraDataSize is the size limit of the header extra data.
	MaximumExtraDataSize = 32
)

// Bloom represents a 2048 bit bloom filter.
type Bloom [BloomByteLength]byte

// BytesToBloom converts a byte slice to a bloom filter, left-padding short input.
func BytesToBloom(b []byte) Bloom {
	var bloom Bloom
	bloom.SetBytes(b)
	return bloom
}

// SetBytes sets the content of b to the given bytes.
func (b *Bloom) SetBytes(d []byte) {
	if len(d) > len(b) {
		d = d[len(d)-len(b):]
	}
	copy(b[len(b)-len(d):], d)
}

// Bytes returns the backing byte slice of the bloom.
func (b Bloom) Bytes() []byte { return b[:] }

// MarshalText encodes b as a hex string with 0x prefix.
func (b Bloom) MarshalText() ([]byte, error) {
	return hexutil.Bytes(b[:]).MarshalText()
}

// UnmarshalText b as a hex string with 0x prefix.
func (b *Bloom) UnmarshalText(input []byte) error {
	return hexutil.UnmarshalFixedText("Bloom", input, b[:])
}

// A BlockNonce is a 64-bit hash which proves (combined with the
// mix-hash) that a sufficient amount of computation has been carried
// out on a block.
type BlockNonce [8]byte

// EncodeNonce converts the given integer to a block nonce.
func EncodeNonce(i uint64) BlockNonce {
	var n BlockNonce
	binary.BigEndian.PutUint64(n[:], i)
	return n
}

// Uint64 returns the integer value of a block nonce.
func (n BlockNonce) Uint64() uint64 {
	return binary.BigEndian.Uint64(n[:])
}

// MarshalText encodes n as a hex string with 0x prefix.
func (n BlockNonce) MarshalText() ([]byte, error) {
	return hexutil.Bytes(n[:]).MarshalText()
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (n *BlockNonce) UnmarshalText(input []byte) error {
	return hexutil.UnmarshalFixedText("BlockNonce", input, n[:])
}

// Header represents a block header in the Ethereum blockchain.
// Optional fields trail the legacy ones in fork order; a nil optional field
// is only left out of the encoding when every later one is nil as well.
type Header struct {
	ParentHash  common.Hash    `json:"parentHash"`
	UncleHash   common.Hash    `json:"sha3Uncles"`
	Coinbase    common.Address `json:"miner"`
	Root        common.Hash    `json:"stateRoot"`
	TxHash      common.Hash    `json:"transactionsRoot"`
	ReceiptHash common.Hash    `json:"receiptsRoot"`
	Bloom       Bloom          `json:"logsBloom"`
	Difficulty  *big.Int       `json:"difficulty"`
	Number      *big.Int       `json:"number"`
	GasLimit    uint64         `json:"gasLimit"`
	GasUsed     uint64         `json:"gasUsed"`
	Time        uint64         `json:"timestamp"`
	Extra       []byte         `json:"extraData"`
	MixDigest   common.Hash    `json:"mixHash"` // prevRandao after the merge
	Nonce       BlockNonce     `json:"nonce"`

	BaseFee *big.Int `json:"baseFeePerGas" rlp:"optional"` // EIP-1559

	WithdrawalsHash *common.Hash `json:"withdrawalsRoot" rlp:"optional"` // EIP-4895

	BlobGasUsed   *uint64 `json:"blobGasUsed" rlp:"optional"`   // EIP-4844
	ExcessBlobGas *uint64 `json:"excessBlobGas" rlp:"optional"` // EIP-4844

	ParentBeaconBlockRoot *common.Hash `json:"parentBeaconBlockRoot" rlp:"optional"` // EIP-4788

	RequestsHash *common.Hash `json:"requestsHash" rlp:"optional"` // EIP-7685
}

// Hash returns the block hash of the header, which is simply the keccak256
// hash of its RLP encoding.
func (h *Header) Hash() common.Hash {
	return rlpHash(h)
}

// CopyHeader creates a deep copy of a block header.
func CopyHeader(h *Header) *Header {
	cpy := *h
	if cpy.Difficulty = new(big.Int); h.Difficulty != nil {
		cpy.Difficulty.Set(h.Difficulty)
	}
	if cpy.Number = new(big.Int); h.Number != nil {
		cpy.Number.Set(h.Number)
	}
	if h.BaseFee != nil {
		cpy.BaseFee = new(big.Int).Set(h.BaseFee)
	}
	if len(h.Extra) > 0 {
		cpy.Extra = make([]byte, len(h.Extra))
		copy(cpy.Extra, h.Extra)
	}
	if h.WithdrawalsHash != nil {
		cpy.WithdrawalsHash = new(common.Hash)
		*cpy.WithdrawalsHash = *h.WithdrawalsHash
	}
	if h.BlobGasUsed != nil {
		cpy.BlobGasUsed = new(uint64)
		*cpy.BlobGasUsed = *h.BlobGasUsed
	}
	if h.ExcessBlobGas != nil {
		cpy.ExcessBlobGas = new(uint64)
		*cpy.ExcessBlobGas = *h.ExcessBlobGas
	}
	if h.ParentBeaconBlockRoot != nil {
		cpy.ParentBeaconBlockRoot = new(common.Hash)
		*cpy.ParentBeaconBlockRoot = *h.ParentBeaconBlockRoot
	}
	if h.RequestsHash != nil {
		cpy.RequestsHash = new(common.Hash)
		*cpy.RequestsHash = *h.RequestsHash
	}
	return &cpy
}

// RawBody is semi-parsed variant of Body, where transactions are still unparsed
// EIP-2718 envelopes.
type RawBody struct {
	Transactions [][]byte
	Uncles       []*Header
	Withdrawals  []*Withdrawal
}

// Block represents an entire block in the Ethereum blockchain.
type Block struct {
	header       *Header
	uncles       []*Header
	transactions Transactions
	withdrawals  Withdrawals

	// caches
	hash atomic.Pointer[common.Hash]
}

// extblock is the network encoding of a block.
type extblock struct {
	Header      *Header
	Txs         []rlp.RawValue
	Uncles      []*Header
	Withdrawals []*Withdrawal `rlp:"optional"`
}

// NewBlock creates a new block. The input data is copied, changes to header
// and to the field values will not affect the block.
//
// The values of TxHash, UncleHash and WithdrawalsHash in header are ignored
// and set to values derived from the given txs, uncles and withdrawals. A nil
// withdrawals list leaves WithdrawalsHash unset.
func NewBlock(header *Header, txs []Transaction, uncles []*Header, withdrawals []*Withdrawal) *Block {
	b := NewBlockFromParts(header, txs, uncles, withdrawals)
	if len(txs) == 0 {
		b.header.TxHash = EmptyRootHash
	} else {
		b.header.TxHash = DeriveSha(Transactions(txs))
	}
	if len(uncles) == 0 {
		b.header.UncleHash = EmptyUncleHash
	} else {
		b.header.UncleHash = rlpHash(uncles)
	}
	if withdrawals == nil {
		b.header.WithdrawalsHash = nil
	} else {
		h := DeriveSha(Withdrawals(withdrawals))
		b.header.WithdrawalsHash = &h
	}
	return b
}

// NewBlockFromParts assembles a block from its parts without touching the
// header roots. Header, uncles and withdrawals are copied; nil withdrawals stay nil.
func NewBlockFromParts(header *Header, txs []Transaction, uncles []*Header, withdrawals []*Withdrawal) *Block {
	b := &Block{header: CopyHeader(header)}
	if len(txs) > 0 {
		b.transactions = make(Transactions, len(txs))
		copy(b.transactions, txs)
	}
	if len(uncles) > 0 {
		b.uncles = make([]*Header, len(uncles))
		for i := range uncles {
			b.uncles[i] = CopyHeader(uncles[i])
		}
	}
	b.withdrawals = Withdrawals(withdrawals).Copy()
	return b
}

// Header returns a deep copy of the block header.
func (b *Block) Header() *Header { return CopyHeader(b.header) }

// HeaderNoCopy returns the block header itself; callers must not modify it.
func (b *Block) HeaderNoCopy() *Header { return b.header }

func (b *Block) Transactions() Transactions { return b.transactions }

func (b *Block) Uncles() []*Header { return b.uncles }

// Withdrawals returns the withdrawals, nil for blocks from before Shanghai.
func (b *Block) Withdrawals() Withdrawals { return b.withdrawals }

func (b *Block) Number() *big.Int         { return new(big.Int).Set(b.header.Number) }
func (b *Block) NumberU64() uint64        { return b.header.Number.Uint64() }
func (b *Block) ParentHash() common.Hash  { return b.header.ParentHash }
func (b *Block) Time() uint64             { return b.header.Time }
func (b *Block) GasLimit() uint64         { return b.header.GasLimit }
func (b *Block) GasUsed() uint64          { return b.header.GasUsed }
func (b *Block) Coinbase() common.Address { return b.header.Coinbase }
func (b *Block) Root() common.Hash        { return b.header.Root }
func (b *Block) TxHash() common.Hash      { return b.header.TxHash }
func (b *Block) Bloom() Bloom             { return b.header.Bloom }
func (b *Block) Extra() []byte            { return common.CopyBytes(b.header.Extra) }
func (b *Block) MixDigest() common.Hash   { return b.header.MixDigest }
func (b *Block) NonceU64() uint64         { return b.header.Nonce.Uint64() }

func (b *Block) Difficulty() *big.Int {
	if b.header.Difficulty == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(b.header.Difficulty)
}

func (b *Block) BaseFee() *big.Int {
	if b.header.BaseFee == nil {
		return nil
	}
	return new(big.Int).Set(b.header.BaseFee)
}

// Hash returns the keccak256 hash of b's header.
// The hash is computed on the first call and cached thereafter.
func (b *Block) Hash() common.Hash {
	if hash := b.hash.Load(); hash != nil {
		return *hash
	}
	h := b.header.Hash()
	b.hash.Store(&h)
	return h
}

// WithSeal returns a new block with the data from b but the header replaced
// with the sealed one.
func (b *Block) WithSeal(header *Header) *Block {
	return &Block{
		header:       CopyHeader(header),
		transactions: b.transactions,
		uncles:       b.uncles,
		withdrawals:  b.withdrawals,
	}
}

// RawBody returns the block body with transactions as EIP-2718 envelopes.
func (b *Block) RawBody() *RawBody {
	return &RawBody{
		Transactions: MarshalTransactionsBinary(b.transactions),
		Uncles:       b.uncles,
		Withdrawals:  b.withdrawals.Copy(),
	}
}

// EncodeRLP serializes b into the Ethereum RLP block format.
func (b *Block) EncodeRLP(w io.Writer) error {
	txs := make([]rlp.RawValue, len(b.transactions))
	for i, tx := range b.transactions {
		txs[i] = NetworkEncoding(tx)
	}
	return rlp.Encode(w, &extblock{
		Header:      b.header,
		Txs:         txs,
		Uncles:      b.uncles,
		Withdrawals: b.withdrawals,
	})
}

// DecodeRLP decodes a block in the network format, where typed transactions
// are wrapped in an rlp string.
func (b *Block) DecodeRLP(s *rlp.Stream) error {
	var eb extblock
	if err := s.Decode(&eb); err != nil {
		return err
	}
	txs := make(Transactions, len(eb.Txs))
	for i, raw := range eb.Txs {
		tx, err := DecodeWrappedTransaction(raw)
		if err != nil {
			return fmt.Errorf("block transaction %d: %w", i, err)
		}
		txs[i] = tx
	}
	if len(txs) == 0 {
		txs = nil
	}
	b.header, b.uncles, b.transactions, b.withdrawals = eb.Header, eb.Uncles, txs, eb.Withdrawals
	b.hash.Store(nil)
	return nil
}

// DecodeBlock decodes a block from its network rlp encoding.
func DecodeBlock(data []byte) (*Block, error) {
	b := new(Block)
	if err := rlp.DecodeBytes(data, b); err != nil {
		return nil, err
	}
	return b, nil
}
