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
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/erigontech/payloadconv/execution/engineapi"
	"github.com/erigontech/payloadconv/execution/engineapi/engine_types"
)

const (
	resultOK              = "ok"
	resultDecodeError     = "decode_error"
	resultInvalidPayload  = "invalid_payload"
	resultInvalidHash     = "invalid_block_hash"
	resultVersionedHashes = "versioned_hashes_mismatch"
	resultCancelled       = "cancelled"
	resultError           = "error"
)

var conversionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "payload_conversions_total",
	Help: "Number of execution payloads converted to blocks, by result.",
}, []string{"result"})

// RegisterMetrics registers the conversion counters with reg.
func RegisterMetrics(reg prometheus.Registerer) error {
	if err := reg.Register(conversionsTotal); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			return nil
		}
		return err
	}
	return nil
}

// ConversionCounts reads payload_conversions_total from g, keyed by result.
func ConversionCounts(g prometheus.Gatherer) (map[string]float64, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, err
	}
	counts := map[string]float64{}
	for _, family := range families {
		if family.GetName() != "payload_conversions_total" {
			continue
		}
		for _, m := range family.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "result" {
					counts[label.GetValue()] = m.GetCounter().GetValue()
				}
			}
		}
	}
	return counts, nil
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return resultOK
	case errors.Is(err, engineapi.ErrDecodeTransaction):
		return resultDecodeError
	case errors.Is(err, engineapi.ErrInvalidBlockHash):
		return resultInvalidHash
	case errors.Is(err, engineapi.ErrVersionedHashesMismatch):
		return resultVersionedHashes
	case errors.Is(err, engineapi.ErrInvalidPayloadField), errors.Is(err, engine_types.ErrSchemaInconsistency):
		return resultInvalidPayload
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return resultCancelled
	default:
		return resultError
	}
}
