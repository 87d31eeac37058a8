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
	"fmt"
	"os"

	"github.com/ledgerwatch/log/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"

	"github.com/erigontech/payloadconv/execution/engineapi/engine_helpers"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		if _, printErr := fmt.Fprintln(os.Stderr, err); printErr != nil {
			log.Warn("Fprintln error", "err", printErr)
		}
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "payloadconv",
		Usage: "convert between Engine API execution payloads and blocks",
		Flags: []cli.Flag{
			&configFlag,
			&logLevelFlag,
			&workersFlag,
			&maxPayloadSizeFlag,
		},
		Before: setup,
		Commands: []*cli.Command{
			decodeCommand,
			encodeCommand,
			bodiesCommand,
		},
	}
}

// setup loads the configuration, applies the global flags on top of it,
// installs the root log handler and registers the conversion metrics.
func setup(cliCtx *cli.Context) error {
	cfg, err := LoadConfig(cliCtx.String(configFlag.Name))
	if err != nil {
		return err
	}
	if err := cfg.applyFlags(cliCtx); err != nil {
		return err
	}
	lvl, err := log.LvlFromString(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	log.Root().SetHandler(log.LvlFilterHandler(lvl, log.StderrHandler))

	if cliCtx.App.Metadata == nil {
		cliCtx.App.Metadata = map[string]interface{}{}
	}
	cliCtx.App.Metadata[configKey] = cfg

	reg := prometheus.NewRegistry()
	if err := engine_helpers.RegisterMetrics(reg); err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}
	cliCtx.App.Metadata[registryKey] = reg
	log.Debug("[payloadconv] configuration", "log_level", cfg.LogLevel, "verify_hash", cfg.VerifyHash,
		"max_payload_size", cfg.MaxPayloadSize.HumanReadable(), "workers", cfg.Workers)
	return nil
}
