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
	"encoding/json"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rlp"
)

// Withdrawal represents a validator withdrawal from the consensus layer.
// See EIP-4895: Beacon chain push withdrawals as operations.
type Withdrawal struct {
	Index     uint64         `json:"index"`          // monotonically increasing identifier issued by consensus layer
	Validator uint64         `json:"validatorIndex"` // index of validator associated with withdrawal
	Address   common.Address `json:"address"`        // target address for withdrawn ether
	Amount    uint64         `json:"amount"`         // value of withdrawal in GWei
}

type withdrawalJSON struct {
	Index     *hexutil.Uint64 `json:"index"`
	Validator *hexutil.Uint64 `json:"validatorIndex"`
	Address   *common.Address `json:"address"`
	Amount    *hexutil.Uint64 `json:"amount"`
}

// MarshalJSON marshals as JSON.
func (obj Withdrawal) MarshalJSON() ([]byte, error) {
	index, validator, amount := hexutil.Uint64(obj.Index), hexutil.Uint64(obj.Validator), hexutil.Uint64(obj.Amount)
	return json.Marshal(withdrawalJSON{
		Index:     &index,
		Validator: &validator,
		Address:   &obj.Address,
		Amount:    &amount,
	})
}

// UnmarshalJSON unmarshals from JSON.
func (obj *Withdrawal) UnmarshalJSON(input []byte) error {
	var dec withdrawalJSON
	if err := json.Unmarshal(input, &dec); err != nil {
		return err
	}
	if dec.Index == nil {
		return errors.New("missing required field 'index' for Withdrawal")
	}
	if dec.Validator == nil {
		return errors.New("missing required field 'validatorIndex' for Withdrawal")
	}
	if dec.Address == nil {
		return errors.New("missing required field 'address' for Withdrawal")
	}
	if dec.Amount == nil {
		return errors.New("missing required field 'amount' for Withdrawal")
	}
	obj.Index = uint64(*dec.Index)
	obj.Validator = uint64(*dec.Validator)
	obj.Address = *dec.Address
	obj.Amount = uint64(*dec.Amount)
	return nil
}

// Withdrawals implements DerivableList for withdrawals.
type Withdrawals []*Withdrawal

// Len returns the length of s.
func (s Withdrawals) Len() int { return len(s) }

// EncodeIndex encodes the i'th withdrawal to w.
func (s Withdrawals) EncodeIndex(i int, w *bytes.Buffer) {
	rlp.Encode(w, s[i]) //nolint:errcheck
}

// Copy returns a deep copy, keeping nil distinct from empty.
func (s Withdrawals) Copy() Withdrawals {
	if s == nil {
		return nil
	}
	cpy := make(Withdrawals, len(s))
	for i, w := range s {
		if w == nil {
			continue
		}
		wc := *w
		cpy[i] = &wc
	}
	return cpy
}
