// config.go - Relay server configuration.
// Copyright (C) 2024  The SolConnect developers.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package config handles the relay server configuration.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/solconnect/solconnect/core/log"
)

const (
	defaultListenAddr  = "0.0.0.0:4433"
	defaultMetricsAddr = "0.0.0.0:8080"
	defaultLogLevel    = "INFO"
)

// Config is the top level relay configuration.
type Config struct {
	// ListenAddr is the QUIC listen address, host:port.
	ListenAddr string

	// MetricsAddr is the HTTP scrape/health listen address, host:port.
	MetricsAddr string

	// ManagementSocket is the path of the optional unix domain socket
	// serving the CBOR management interface.  Empty disables it.
	ManagementSocket string

	// TLSCertFile/TLSKeyFile point at a PEM certificate and key.  When
	// unset, a self-signed certificate for "localhost" is generated at
	// startup.
	TLSCertFile string
	TLSKeyFile  string

	// Logging.
	LogFile  string
	LogLevel string

	// Devnet is advisory and does not alter relay behavior.
	Devnet bool
}

// Load reads and validates a TOML config file.
func Load(path string) (*Config, error) {
	cfg := new(Config)
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) != 0 {
		return nil, fmt.Errorf("config: unknown keys: %v", undecoded)
	}
	if err := cfg.FixupAndValidate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FixupAndValidate applies defaults and validates the configuration.
func (c *Config) FixupAndValidate() error {
	if c.ListenAddr == "" {
		c.ListenAddr = defaultListenAddr
	}
	if c.MetricsAddr == "" {
		c.MetricsAddr = defaultMetricsAddr
	}
	if c.LogLevel == "" {
		if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
			c.LogLevel = lvl
		} else {
			c.LogLevel = defaultLogLevel
		}
	}

	for _, addr := range []string{c.ListenAddr, c.MetricsAddr} {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return fmt.Errorf("config: invalid address '%v': %v", addr, err)
		}
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: invalid LogLevel: '%v'", c.LogLevel)
	}
	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		return errors.New("config: TLSCertFile and TLSKeyFile must be set together")
	}
	return nil
}
