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

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/ethereum/go-ethereum/trie"

	"github.com/erigontech/payloadconv/crypto"
)

var (
	// EmptyRootHash is the root of an empty ordered trie.
	EmptyRootHash = common.HexToHash("56e81f171bcc55a6ff8345e692c0f86e5b48e01b996cadc001622fb5e363b421")
	// EmptyUncleHash is the hash of an empty uncle list, keccak256(rlp([])).
	EmptyUncleHash = rlpHash([]*Header(nil))
	// EmptyWithdrawalsHash is the withdrawals root of a block without withdrawals.
	EmptyWithdrawalsHash = EmptyRootHash
)

// DerivableList is the input to DeriveSha.
// It is implemented by the 'Transactions' and 'Withdrawals' types.
// This is internal, do not use these methods.
type DerivableList interface {
	Len() int
	EncodeIndex(int, *bytes.Buffer)
}

func rlpHash(x any) (h common.Hash) {
	sha := crypto.NewKeccakState()
	rlp.Encode(sha, x) //nolint:errcheck
	sha.Read(h[:])     //nolint:errcheck
	return h
}

func encodeForDerive(list DerivableList, i int, buf *bytes.Buffer) []byte {
	buf.Reset()
	list.EncodeIndex(i, buf)
	// the trie keeps references to the value, so it must not be reused
	return common.CopyBytes(buf.Bytes())
}

// DeriveSha creates the root of an ordered trie keyed by rlp(index).
//
// Keys are fed to the stack trie in ascending byte order: rlp(1..127) sort
// before rlp(0)=0x80, which sorts before rlp(128..).
func DeriveSha(list DerivableList) common.Hash {
	st := trie.NewStackTrie(nil)
	valueBuf := new(bytes.Buffer)
	var indexBuf []byte

	for i := 1; i < list.Len() && i <= 0x7f; i++ {
		indexBuf = rlp.AppendUint64(indexBuf[:0], uint64(i))
		st.Update(indexBuf, encodeForDerive(list, i, valueBuf)) //nolint:errcheck
	}
	if list.Len() > 0 {
		indexBuf = rlp.AppendUint64(indexBuf[:0], 0)
		st.Update(indexBuf, encodeForDerive(list, 0, valueBuf)) //nolint:errcheck
	}
	for i := 0x80; i < list.Len(); i++ {
		indexBuf = rlp.AppendUint64(indexBuf[:0], uint64(i))
		st.Update(indexBuf, encodeForDerive(list, i, valueBuf)) //nolint:errcheck
	}
	return st.Hash()
}
