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

package engine_helpers

import (
	"context"
	"runtime"

	"github.com/ledgerwatch/log/v3"
	"golang.org/x/sync/errgroup"

	"github.com/erigontech/payloadconv/execution/engineapi"
	"github.com/erigontech/payloadconv/execution/engineapi/engine_types"
	"github.com/erigontech/payloadconv/execution/types"
)

// PayloadRequest is one payload of a batch with the sidecar it came with.
type PayloadRequest struct {
	Payload *engine_types.ExecutionPayload
	Sidecar engine_types.PayloadSidecar
}

// PayloadResult is the outcome of converting one PayloadRequest. Exactly one
// of Block and Err is set.
type PayloadResult struct {
	Block *types.Block
	Err   error
}

// PayloadBatch converts independent payloads concurrently.
type PayloadBatch struct {
	workers    int
	verifyHash bool
	logger     log.Logger
}

// NewPayloadBatch creates a batch converter running at most workers
// conversions at a time; workers <= 0 means one per CPU. With verifyHash set
// each block is checked against its declared hash and sidecar.
func NewPayloadBatch(workers int, verifyHash bool, logger log.Logger) *PayloadBatch {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if logger == nil {
		logger = log.Root()
	}
	return &PayloadBatch{workers: workers, verifyHash: verifyHash, logger: logger}
}

// Convert converts every request and returns one result per request, in
// request order. A failing item never affects the others. Once ctx is done
// no further items are started; those get the context error as result and
// Convert returns it as well.
func (b *PayloadBatch) Convert(ctx context.Context, requests []PayloadRequest) ([]PayloadResult, error) {
	results := make([]PayloadResult, len(requests))

	var g errgroup.Group
	g.SetLimit(b.workers)
	for i := range requests {
		if err := ctx.Err(); err != nil {
			results[i].Err = err
			conversionsTotal.WithLabelValues(resultLabel(err)).Inc()
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = err
			} else {
				results[i].Block, results[i].Err = b.convert(requests[i])
			}
			conversionsTotal.WithLabelValues(resultLabel(results[i].Err)).Inc()
			if results[i].Err != nil {
				b.logger.Debug("[engine] payload conversion failed", "index", i, "err", results[i].Err)
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return results, err
	}
	b.logger.Debug("[engine] converted payload batch", "payloads", len(requests))
	return results, nil
}

func (b *PayloadBatch) convert(req PayloadRequest) (*types.Block, error) {
	if req.Payload == nil {
		return nil, engineapi.ErrInvalidPayloadField
	}
	if b.verifyHash {
		return engineapi.ConvertAndVerify(req.Payload, req.Sidecar)
	}
	return engineapi.PayloadToBlockWithSidecar(req.Payload, req.Sidecar)
}
