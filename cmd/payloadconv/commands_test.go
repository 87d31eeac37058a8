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

package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/erigontech/payloadconv/execution/engineapi"
	"github.com/erigontech/payloadconv/execution/engineapi/engine_helpers"
	"github.com/erigontech/payloadconv/execution/engineapi/engine_types"
)

const (
	payloadV3Hash       = "0xa5ddd3f286f429458a39cafc13ffe89295a7efa8eb363cf89a1a4887dbcf272b"
	payloadV3BeaconRoot = "0x531cd53b8e68deef0ea65edfa3cda927a846c307b0907657af34bc3f313b5871"
	devnetBeaconRoot    = "0x1162de8a0f4d20d86b9ad6e0a2575ab60f00a433dc70d9318c8abc9041fddf54"
)

func testdataPath(name string) string {
	return filepath.Join("..", "..", "execution", "engineapi", "testdata", name)
}

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = io.Discard
	err := app.Run(append([]string{"payloadconv", "--log-level", "crit"}, args...))
	return out.String(), err
}

// payloadV3Versioned returns the blob versioned hashes of the testdata V3 payload.
func payloadV3Versioned(t *testing.T) []common.Hash {
	t.Helper()
	raw, err := os.ReadFile(testdataPath("payload_v3.json"))
	require.NoError(t, err)
	payload, _, err := engine_types.DecodeExecutionPayload(raw)
	require.NoError(t, err)
	block, err := engineapi.PayloadToBlock(payload)
	require.NoError(t, err)
	return block.Transactions()[1].GetBlobHashes()
}

func TestDecodeNewPayloadParams(t *testing.T) {
	raw, err := os.ReadFile(testdataPath("payload_v3.json"))
	require.NoError(t, err)
	hashes, err := json.Marshal(payloadV3Versioned(t))
	require.NoError(t, err)
	params := writeFile(t, "params.json", "["+string(raw)+","+string(hashes)+`,"`+payloadV3BeaconRoot+`"]`)

	out, err := runApp(t, "decode", params)
	require.NoError(t, err)
	require.Contains(t, out, "\tV3\t")
	require.Contains(t, out, "hash="+payloadV3Hash)
	require.Contains(t, out, "txs=2")
	require.Contains(t, out, "withdrawals=0")
}

func TestDecodeWithSidecarFlags(t *testing.T) {
	args := []string{"decode", "--beacon-root", payloadV3BeaconRoot}
	for _, hash := range payloadV3Versioned(t) {
		args = append(args, "--versioned-hashes", hash.Hex())
	}
	out, err := runApp(t, append(args, testdataPath("payload_v3.json"))...)
	require.NoError(t, err)
	require.Contains(t, out, "hash="+payloadV3Hash)

	// a V3 payload cannot be hashed without its sidecar
	out, err = runApp(t, "decode", testdataPath("payload_v3.json"))
	require.Error(t, err)
	require.Contains(t, out, "error:")

	_, err = runApp(t, "decode", "--versioned-hashes", payloadV3Hash, testdataPath("payload_v3.json"))
	require.ErrorContains(t, err, "requires --beacon-root")

	_, err = runApp(t, "decode", "--beacon-root", "0x1234", testdataPath("payload_v3.json"))
	require.ErrorContains(t, err, "invalid --beacon-root")
}

func TestDecodeDevnetPayload(t *testing.T) {
	out, err := runApp(t, "decode", "--beacon-root", devnetBeaconRoot, testdataPath("devnet_payload_v3.json"))
	require.ErrorContains(t, err, "1 of 1 payloads failed")
	require.Contains(t, out, "invalid block hash")

	out, err = runApp(t, "decode", "--verify=false", "--beacon-root", devnetBeaconRoot, testdataPath("devnet_payload_v3.json"))
	require.NoError(t, err)
	require.Contains(t, out, "hash=0xa7cdd5f9e54147b53a15833a8c45dffccbaed534d7fdc23458f45102a4bf71b0")
	require.Contains(t, out, "withdrawals=16")
}

func TestDecodeBatch(t *testing.T) {
	out, err := runApp(t, "--workers", "2", "decode", "--verify=false", "--beacon-root", payloadV3BeaconRoot,
		testdataPath("payload_v3.json"), testdataPath("payload_v3_wrapped_txs.json"), testdataPath("devnet_payload_v3.json"))
	require.ErrorContains(t, err, "1 of 3 payloads failed")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	require.Contains(t, lines[0], "payload_v3.json")
	require.Contains(t, lines[0], "txs=2")
	require.Contains(t, lines[1], "payload_v3_wrapped_txs.json")
	require.Contains(t, lines[1], "invalid transaction in payload: transaction 0")
	require.Contains(t, lines[2], "devnet_payload_v3.json")
	require.Contains(t, lines[2], "withdrawals=16")
}

func TestDecodeRegistersConversionMetrics(t *testing.T) {
	app := newApp()
	app.Writer = io.Discard
	app.ErrWriter = io.Discard
	err := app.Run([]string{"payloadconv", "--log-level", "crit", "decode", "--verify=false",
		"--beacon-root", devnetBeaconRoot, testdataPath("devnet_payload_v3.json")})
	require.NoError(t, err)

	reg, ok := app.Metadata[registryKey].(*prometheus.Registry)
	require.True(t, ok)
	counts, err := engine_helpers.ConversionCounts(reg)
	require.NoError(t, err)
	require.GreaterOrEqual(t, counts["ok"], float64(1))
}

func TestDecodeMaxPayloadSize(t *testing.T) {
	_, err := runApp(t, "--max-payload-size", "1KB", "decode", testdataPath("payload_v3.json"))
	require.ErrorContains(t, err, "exceeds max payload size")

	config := writeFile(t, "payloadconv.toml", `max_payload_size = "1KB"`)
	_, err = runApp(t, "--config", config, "decode", testdataPath("payload_v3.json"))
	require.ErrorContains(t, err, "exceeds max payload size")

	// flags win over the config file
	_, err = runApp(t, "--config", config, "--max-payload-size", "1MB", "decode", "--beacon-root", devnetBeaconRoot,
		"--verify=false", testdataPath("devnet_payload_v3.json"))
	require.NoError(t, err)
}

// writeBlock stores the RLP of the testdata V3 block as hex.
func writeBlock(t *testing.T) string {
	t.Helper()
	raw, err := os.ReadFile(testdataPath("payload_v3.json"))
	require.NoError(t, err)
	payload, _, err := engine_types.DecodeExecutionPayload(raw)
	require.NoError(t, err)
	block, err := engineapi.ConvertAndVerify(payload, engine_types.SidecarV3(engine_types.CancunPayloadFields{
		ParentBeaconBlockRoot: common.HexToHash(payloadV3BeaconRoot),
		VersionedHashes:       payloadV3Versioned(t),
	}))
	require.NoError(t, err)
	enc, err := rlp.EncodeToBytes(block)
	require.NoError(t, err)
	return writeFile(t, "block.rlp.hex", hexutil.Encode(enc)+"\n")
}

func TestEncodeCommand(t *testing.T) {
	out, err := runApp(t, "encode", writeBlock(t))
	require.NoError(t, err)

	var encoded encodedPayload
	require.NoError(t, json.Unmarshal([]byte(out), &encoded))
	require.Equal(t, "V3", encoded.Version)
	require.Equal(t, common.HexToHash(payloadV3Hash), encoded.ExecutionPayload.BlockHash)
	require.NotNil(t, encoded.Cancun)
	require.Equal(t, common.HexToHash(payloadV3BeaconRoot), encoded.Cancun.ParentBeaconBlockRoot)
	require.Equal(t, payloadV3Versioned(t), encoded.Cancun.VersionedHashes)

	raw, err := os.ReadFile(testdataPath("payload_v3.json"))
	require.NoError(t, err)
	payloadJSON, err := json.Marshal(encoded.ExecutionPayload)
	require.NoError(t, err)
	require.JSONEq(t, string(raw), string(payloadJSON))

	_, err = runApp(t, "encode")
	require.Error(t, err)
	_, err = runApp(t, "encode", writeFile(t, "bad.hex", "0xzz"))
	require.Error(t, err)
}

func TestBodiesCommand(t *testing.T) {
	block := writeBlock(t)
	out, err := runApp(t, "bodies", block, block)
	require.NoError(t, err)

	var bodies []*engine_types.ExecutionPayloadBodyV1
	require.NoError(t, json.Unmarshal([]byte(out), &bodies))
	require.Len(t, bodies, 2)
	require.Equal(t, bodies[0], bodies[1])
	for _, body := range bodies {
		require.Len(t, body.Transactions, 2)
		require.NotNil(t, body.Withdrawals)
		require.Empty(t, body.Withdrawals)
	}

	_, err = runApp(t, "bodies")
	require.Error(t, err)
}
