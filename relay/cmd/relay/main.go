// main.go - SolConnect relay daemon.
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

package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/solconnect/solconnect/relay"
	"github.com/solconnect/solconnect/relay/config"
)

func main() {
	var configPath string
	var listen string
	var metricsAddr string
	var managementSocket string
	var devnet bool

	flag.StringVar(&configPath, "config", "", "Path to a TOML config file")
	flag.StringVar(&listen, "listen", "", "QUIC listen address (default 0.0.0.0:4433)")
	flag.StringVar(&metricsAddr, "metrics-addr", "", "Metrics listen address (default 0.0.0.0:8080)")
	flag.StringVar(&managementSocket, "management", "", "Path of the management unix socket")
	flag.BoolVar(&devnet, "devnet", false, "Advisory devnet flag")
	flag.Parse()

	cfg := new(config.Config)
	if configPath != "" {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
	}
	if listen != "" {
		cfg.ListenAddr = listen
	}
	if metricsAddr != "" {
		cfg.MetricsAddr = metricsAddr
	}
	if managementSocket != "" {
		cfg.ManagementSocket = managementSocket
	}
	if devnet {
		cfg.Devnet = true
	}

	s, err := relay.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start relay: %v\n", err)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Wait()
	}()

	select {
	case <-sigCh:
		s.Shutdown()
	case err = <-errCh:
		s.Shutdown()
		if err != nil {
			os.Exit(1)
		}
	}
}
