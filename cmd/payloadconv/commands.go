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
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/c2h5oh/datasize"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	jsoniter "github.com/json-iterator/go"
	"github.com/ledgerwatch/log/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"

	"github.com/erigontech/payloadconv/execution/engineapi"
	"github.com/erigontech/payloadconv/execution/engineapi/engine_helpers"
	"github.com/erigontech/payloadconv/execution/engineapi/engine_types"
	"github.com/erigontech/payloadconv/execution/types"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	configFlag = cli.StringFlag{
		Name:  "config",
		Usage: "TOML or YAML file with log_level, verify_hash, max_payload_size and workers",
	}
	logLevelFlag = cli.StringFlag{
		Name:  "log-level",
		Usage: "log verbosity: crit, error, warn, info, debug, trace",
	}
	workersFlag = cli.IntFlag{
		Name:  "workers",
		Usage: "number of payloads converted concurrently, 0 means one per CPU",
	}
	maxPayloadSizeFlag = cli.StringFlag{
		Name:  "max-payload-size",
		Usage: "largest input file accepted, e.g. 16MB",
	}
	verifyFlag = cli.BoolFlag{
		Name:  "verify",
		Usage: "check the declared block hash and, for V3 payloads, the versioned hashes",
		Value: true,
	}
	beaconRootFlag = cli.StringFlag{
		Name:  "beacon-root",
		Usage: "parent beacon block root handed in with V3 payloads",
	}
	versionedHashesFlag = cli.StringSliceFlag{
		Name:  "versioned-hashes",
		Usage: "expected blob versioned hashes of V3 payloads, in order",
	}
)

var decodeCommand = &cli.Command{
	Name:      "decode",
	Usage:     "reconstruct blocks from execution payloads and report their hashes",
	ArgsUsage: "<payload.json>...",
	Description: "Each file holds either a bare execution payload or the params array of an\n" +
		"engine_newPayload call. The payload version is detected from its fields.",
	Flags:  []cli.Flag{&verifyFlag, &beaconRootFlag, &versionedHashesFlag},
	Action: decodePayloads,
}

var encodeCommand = &cli.Command{
	Name:      "encode",
	Usage:     "convert an RLP encoded block into an execution payload and its sidecar",
	ArgsUsage: "<block.rlp.hex>",
	Action:    encodeBlock,
}

var bodiesCommand = &cli.Command{
	Name:      "bodies",
	Usage:     "emit the payload bodies of RLP encoded blocks",
	ArgsUsage: "<block.rlp.hex>...",
	Action:    blockBodies,
}

// encodedPayload is the output of the encode command.
type encodedPayload struct {
	Version          string                            `json:"version"`
	ExecutionPayload *engine_types.ExecutionPayload    `json:"executionPayload"`
	Cancun           *engine_types.CancunPayloadFields `json:"cancun,omitempty"`
}

func decodePayloads(cliCtx *cli.Context) error {
	cfg := configFrom(cliCtx)
	if err := cfg.applyFlags(cliCtx); err != nil {
		return err
	}
	paths := cliCtx.Args().Slice()
	if len(paths) == 0 {
		return errors.New("decode: expected at least one payload file")
	}
	override, err := sidecarFromFlags(cliCtx)
	if err != nil {
		return err
	}

	requests := make([]engine_helpers.PayloadRequest, len(paths))
	for i, path := range paths {
		raw, err := readInput(path, cfg.MaxPayloadSize)
		if err != nil {
			return err
		}
		payload, sidecar, err := parsePayload(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if override != nil {
			sidecar = *override
		}
		requests[i] = engine_helpers.PayloadRequest{Payload: payload, Sidecar: sidecar}
	}

	logger := log.Root()
	results, err := engine_helpers.NewPayloadBatch(cfg.Workers, cfg.VerifyHash, logger).Convert(cliCtx.Context, requests)
	if err != nil {
		return err
	}
	var failed int
	w := cliCtx.App.Writer
	for i, res := range results {
		version := requests[i].Payload.Version()
		if res.Err != nil {
			failed++
			fmt.Fprintf(w, "%s\t%s\terror: %v\n", paths[i], version, res.Err)
			continue
		}
		block := res.Block
		fmt.Fprintf(w, "%s\t%s\tnumber=%d\thash=%s\ttxs=%d\twithdrawals=%d\n",
			paths[i], version, block.NumberU64(), block.Hash().Hex(), len(block.Transactions()), len(block.Withdrawals()))
	}
	logger.Info("[payloadconv] decoded payloads", "total", len(results), "failed", failed, "verified", cfg.VerifyHash)
	logConversionCounts(cliCtx, logger)
	if failed > 0 {
		return fmt.Errorf("%d of %d payloads failed", failed, len(results))
	}
	return nil
}

// parsePayload accepts a bare payload object or engine_newPayload params.
func parsePayload(raw []byte) (*engine_types.ExecutionPayload, engine_types.PayloadSidecar, error) {
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '[' {
		return engine_types.DecodeNewPayloadParams(trimmed)
	}
	payload, _, err := engine_types.DecodeExecutionPayload(raw)
	if err != nil {
		return nil, engine_types.PayloadSidecar{}, err
	}
	return payload, engine_types.NoSidecar(), nil
}

func sidecarFromFlags(cliCtx *cli.Context) (*engine_types.PayloadSidecar, error) {
	if !cliCtx.IsSet(beaconRootFlag.Name) {
		if cliCtx.IsSet(versionedHashesFlag.Name) {
			return nil, fmt.Errorf("--%s requires --%s", versionedHashesFlag.Name, beaconRootFlag.Name)
		}
		return nil, nil
	}
	fields := engine_types.CancunPayloadFields{VersionedHashes: []common.Hash{}}
	if err := fields.ParentBeaconBlockRoot.UnmarshalText([]byte(cliCtx.String(beaconRootFlag.Name))); err != nil {
		return nil, fmt.Errorf("invalid --%s: %w", beaconRootFlag.Name, err)
	}
	for _, s := range cliCtx.StringSlice(versionedHashesFlag.Name) {
		var hash common.Hash
		if err := hash.UnmarshalText([]byte(s)); err != nil {
			return nil, fmt.Errorf("invalid --%s: %w", versionedHashesFlag.Name, err)
		}
		fields.VersionedHashes = append(fields.VersionedHashes, hash)
	}
	sidecar := engine_types.SidecarV3(fields)
	return &sidecar, nil
}

func encodeBlock(cliCtx *cli.Context) error {
	if cliCtx.NArg() != 1 {
		return errors.New("encode: expected exactly one block file")
	}
	block, err := readBlock(cliCtx.Args().First(), configFrom(cliCtx).MaxPayloadSize)
	if err != nil {
		return err
	}
	payload, err := engineapi.BlockToPayload(block)
	if err != nil {
		return err
	}
	out := encodedPayload{
		Version:          payload.Version().String(),
		ExecutionPayload: payload,
		Cancun:           engineapi.BlockSidecar(block).Cancun,
	}
	log.Debug("[payloadconv] encoded block", "number", block.NumberU64(), "hash", block.Hash(), "version", out.Version)
	return writeJSON(cliCtx, out)
}

func blockBodies(cliCtx *cli.Context) error {
	paths := cliCtx.Args().Slice()
	if len(paths) == 0 {
		return errors.New("bodies: expected at least one block file")
	}
	limit := configFrom(cliCtx).MaxPayloadSize
	blocks := make([]*types.Block, len(paths))
	for i, path := range paths {
		block, err := readBlock(path, limit)
		if err != nil {
			return err
		}
		blocks[i] = block
	}
	cache, err := engine_helpers.NewBodyCache(len(blocks))
	if err != nil {
		return err
	}
	bodies := cache.BodiesForBlocks(blocks)
	log.Debug("[payloadconv] payload bodies", "blocks", len(blocks), "distinct", cache.Len())
	return writeJSON(cliCtx, bodies)
}

// logConversionCounts dumps payload_conversions_total at debug level.
func logConversionCounts(cliCtx *cli.Context, logger log.Logger) {
	reg, ok := cliCtx.App.Metadata[registryKey].(prometheus.Gatherer)
	if !ok {
		return
	}
	counts, err := engine_helpers.ConversionCounts(reg)
	if err != nil {
		logger.Warn("[payloadconv] failed to gather metrics", "err", err)
		return
	}
	ctx := make([]interface{}, 0, 2*len(counts))
	for result, n := range counts {
		ctx = append(ctx, result, n)
	}
	logger.Debug("[payloadconv] payload_conversions_total", ctx...)
}

func readInput(path string, limit datasize.ByteSize) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if uint64(info.Size()) > limit.Bytes() {
		return nil, fmt.Errorf("%s: %s exceeds max payload size %s", path,
			datasize.ByteSize(info.Size()).HumanReadable(), limit.HumanReadable())
	}
	return os.ReadFile(path)
}

// readBlock reads a hex encoded block RLP, with or without 0x prefix.
func readBlock(path string, limit datasize.ByteSize) (*types.Block, error) {
	raw, err := readInput(path, limit)
	if err != nil {
		return nil, err
	}
	input := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(input, "0x") {
		input = "0x" + input
	}
	enc, err := hexutil.Decode(input)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	block, err := types.DecodeBlock(enc)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid block rlp: %w", path, err)
	}
	return block, nil
}

func writeJSON(cliCtx *cli.Context, v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cliCtx.App.Writer, string(out))
	return err
}
