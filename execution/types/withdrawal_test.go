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
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestWithdrawalJSON(t *testing.T) {
	w := &Withdrawal{
		Index:     0x5ab202,
		Validator: 0xb1b,
		Address:   common.HexToAddress("0x388ea662ef2c223ec0b047d41bf3c0f362142ad5"),
		Amount:    0x19b3d,
	}
	enc, err := json.Marshal(w)
	require.NoError(t, err)
	require.JSONEq(t, `{"index":"0x5ab202","validatorIndex":"0xb1b","address":"0x388ea662ef2c223ec0b047d41bf3c0f362142ad5","amount":"0x19b3d"}`, string(enc))

	var dec Withdrawal
	require.NoError(t, json.Unmarshal(enc, &dec))
	require.Equal(t, *w, dec)

	err = json.Unmarshal([]byte(`{"index":"0x1","address":"0x388ea662ef2c223ec0b047d41bf3c0f362142ad5","amount":"0x1"}`), &dec)
	require.ErrorContains(t, err, "validatorIndex")
}

func TestWithdrawalsCopy(t *testing.T) {
	require.Nil(t, Withdrawals(nil).Copy())
	require.NotNil(t, Withdrawals{}.Copy())

	orig := Withdrawals{{Index: 1, Amount: 10}}
	cpy := orig.Copy()
	cpy[0].Amount = 11
	require.Equal(t, uint64(10), orig[0].Amount)
}
