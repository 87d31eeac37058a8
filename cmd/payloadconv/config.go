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
	"path/filepath"

	"github.com/c2h5oh/datasize"
	"github.com/ledgerwatch/log/v3"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

const (
	configKey   = "config"
	registryKey = "metrics"
)

// Config holds the settings that can come from a TOML or YAML file. Command
// line flags take precedence over the file.
type Config struct {
	LogLevel       string            `toml:"log_level" yaml:"log_level"`
	VerifyHash     bool              `toml:"verify_hash" yaml:"verify_hash"`
	MaxPayloadSize datasize.ByteSize `toml:"max_payload_size" yaml:"max_payload_size"`
	Workers        int               `toml:"workers" yaml:"workers"`
}

func DefaultConfig() Config {
	return Config{
		LogLevel:       "info",
		VerifyHash:     true,
		MaxPayloadSize: 16 * datasize.MB,
		Workers:        0,
	}
}

// LoadConfig reads the .toml or .yaml file at path over the defaults. An
// empty path yields the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch filepath.Ext(path) {
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&cfg)
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(&cfg)
	default:
		return cfg, errors.New("config files only accepted are .yaml and .toml")
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	if _, err := log.LvlFromString(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	if c.MaxPayloadSize == 0 {
		return errors.New("max_payload_size must be positive")
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	return nil
}

// applyFlags overrides the config with the flags set on the command line.
func (c *Config) applyFlags(cliCtx *cli.Context) error {
	if cliCtx.IsSet(logLevelFlag.Name) {
		c.LogLevel = cliCtx.String(logLevelFlag.Name)
	}
	if cliCtx.IsSet(workersFlag.Name) {
		c.Workers = cliCtx.Int(workersFlag.Name)
	}
	if cliCtx.IsSet(maxPayloadSizeFlag.Name) {
		var size datasize.ByteSize
		if err := size.UnmarshalText([]byte(cliCtx.String(maxPayloadSizeFlag.Name))); err != nil {
			return fmt.Errorf("invalid --%s: %w", maxPayloadSizeFlag.Name, err)
		}
		c.MaxPayloadSize = size
	}
	if cliCtx.IsSet(verifyFlag.Name) {
		c.VerifyHash = cliCtx.Bool(verifyFlag.Name)
	}
	return c.validate()
}

func configFrom(cliCtx *cli.Context) Config {
	if cfg, ok := cliCtx.App.Metadata[configKey].(Config); ok {
		return cfg
	}
	return DefaultConfig()
}
