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
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/erigontech/payloadconv/execution/engineapi"
	"github.com/erigontech/payloadconv/execution/engineapi/engine_types"
	"github.com/erigontech/payloadconv/execution/types"
)

// BodiesForBlocks returns the payload bodies of blocks in request order. A nil
// block yields a nil body, which is how engine_getPayloadBodiesBy*V1 reports
// unknown blocks.
func BodiesForBlocks(blocks []*types.Block) []*engine_types.ExecutionPayloadBodyV1 {
	bodies := make([]*engine_types.ExecutionPayloadBodyV1, len(blocks))
	for i, block := range blocks {
		if block != nil {
			bodies[i] = engineapi.BlockToPayloadBody(block)
		}
	}
	return bodies
}

// BodyCache remembers the payload bodies of recently served blocks by block
// hash. Returned bodies are shared and must not be modified.
type BodyCache struct {
	bodies *lru.Cache[common.Hash, *engine_types.ExecutionPayloadBodyV1]
}

func NewBodyCache(size int) (*BodyCache, error) {
	bodies, err := lru.New[common.Hash, *engine_types.ExecutionPayloadBodyV1](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create payload body cache: %w", err)
	}
	return &BodyCache{bodies: bodies}, nil
}

// BodiesForBlocks is BodiesForBlocks backed by the cache.
func (c *BodyCache) BodiesForBlocks(blocks []*types.Block) []*engine_types.ExecutionPayloadBodyV1 {
	bodies := make([]*engine_types.ExecutionPayloadBodyV1, len(blocks))
	for i, block := range blocks {
		if block == nil {
			continue
		}
		hash := block.Hash()
		if body, ok := c.bodies.Get(hash); ok {
			bodies[i] = body
			continue
		}
		bodies[i] = engineapi.BlockToPayloadBody(block)
		c.bodies.Add(hash, bodies[i])
	}
	return bodies
}

func (c *BodyCache) Len() int { return c.bodies.Len() }
