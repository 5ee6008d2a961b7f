// server.go - Relay server.
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

// Package relay implements the SolConnect message relay server.
package relay

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/carlmjohnson/versioninfo"
	quic "github.com/quic-go/quic-go"
	"gopkg.in/op/go-logging.v1"

	"github.com/solconnect/solconnect/core/log"
	"github.com/solconnect/solconnect/core/worker"
	"github.com/solconnect/solconnect/relay/config"
	"github.com/solconnect/solconnect/relay/internal/conn"
	"github.com/solconnect/solconnect/relay/internal/instrument"
	"github.com/solconnect/solconnect/relay/internal/management"
	"github.com/solconnect/solconnect/relay/internal/router"
	"github.com/solconnect/solconnect/relay/internal/validator"
)

const statsInterval = 10 * time.Second

// Server is the relay process: acceptor, router, metrics surface and
// the per-connection actors, supervised together.
type Server struct {
	worker.Worker

	cfg        *config.Config
	logBackend *log.Backend
	log        *logging.Logger

	metrics    *instrument.Metrics
	metricsSrv *instrument.Server
	router     *router.Router
	validator  *validator.Validator
	mgmt       *management.Server

	listener *quic.Listener

	connsMu sync.Mutex
	conns   map[*conn.Conn]struct{}

	fatalErrCh chan error
	haltOnce   sync.Once
}

// New constructs a Server from cfg, binds its listeners, and starts
// serving.
func New(cfg *config.Config) (*Server, error) {
	if err := cfg.FixupAndValidate(); err != nil {
		return nil, err
	}

	logBackend, err := log.New(cfg.LogFile, cfg.LogLevel, false)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:        cfg,
		logBackend: logBackend,
		log:        logBackend.GetLogger("relay"),
		metrics:    instrument.New(),
		conns:      make(map[*conn.Conn]struct{}),
		fatalErrCh: make(chan error, 4),
	}
	s.log.Noticef("solconnect relay %v starting (devnet: %v)", versioninfo.Short(), cfg.Devnet)

	s.router = router.New(logBackend, s.metrics)
	s.validator = validator.New(logBackend, nil)

	tlsConf, err := tlsConfig(cfg)
	if err != nil {
		return nil, err
	}
	s.listener, err = quic.ListenAddr(cfg.ListenAddr, tlsConf, nil)
	if err != nil {
		return nil, err
	}
	s.log.Noticef("listening on %v", s.listener.Addr())

	s.metricsSrv, err = instrument.NewServer(s.metrics, cfg.MetricsAddr, logBackend, s.fatalErrCh)
	if err != nil {
		s.listener.Close()
		return nil, err
	}

	if cfg.ManagementSocket != "" {
		s.mgmt, err = management.New(logBackend, s.router, cfg.ManagementSocket)
		if err != nil {
			s.metricsSrv.Halt()
			s.listener.Close()
			return nil, err
		}
	}

	s.Go(s.acceptWorker)
	s.Go(s.statsWorker)
	return s, nil
}

// Addr returns the bound QUIC listen address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// MetricsAddr returns the bound scrape address.
func (s *Server) MetricsAddr() net.Addr {
	return s.metricsSrv.Addr()
}

// Wait blocks until a fatal failure or a call to Shutdown.  A non-nil
// return is the error that should take the process down.
func (s *Server) Wait() error {
	select {
	case err := <-s.fatalErrCh:
		s.log.Errorf("terminal failure: %v", err)
		return err
	case <-s.HaltCh():
		return nil
	}
}

// Shutdown stops accepting, tears down every live connection, and
// waits for all workers to exit.  Safe to call more than once.
func (s *Server) Shutdown() {
	s.haltOnce.Do(s.shutdown)
}

func (s *Server) shutdown() {
	s.log.Noticef("shutting down")
	s.listener.Close()
	if s.mgmt != nil {
		s.mgmt.Halt()
	}
	s.metricsSrv.Halt()

	s.connsMu.Lock()
	live := make([]*conn.Conn, 0, len(s.conns))
	for c := range s.conns {
		live = append(live, c)
	}
	s.connsMu.Unlock()
	for _, c := range live {
		c.Halt()
	}

	s.Halt()
	s.log.Noticef("shutdown complete")
}

func (s *Server) acceptWorker() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-s.HaltCh():
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		qc, err := s.listener.Accept(ctx)
		if err != nil {
			select {
			case <-s.HaltCh():
				return
			default:
			}
			if ctx.Err() != nil || errors.Is(err, quic.ErrServerClosed) {
				return
			}
			s.log.Errorf("accept: %v", err)
			select {
			case s.fatalErrCh <- err:
			default:
			}
			return
		}
		s.onNewConn(qc)
	}
}

func (s *Server) onNewConn(qc quic.Connection) {
	s.log.Debugf("new connection from %v", qc.RemoteAddr())
	c := conn.New(s.logBackend, qc, s.router, s.validator, s.metrics, s.onClosedConn)
	s.connsMu.Lock()
	s.conns[c] = struct{}{}
	s.connsMu.Unlock()
	c.Start()
}

func (s *Server) onClosedConn(c *conn.Conn) {
	s.connsMu.Lock()
	delete(s.conns, c)
	s.connsMu.Unlock()
}

// statsWorker refreshes the registered/queued gauges from the router.
func (s *Server) statsWorker() {
	t := time.NewTicker(statsInterval)
	defer t.Stop()
	for {
		select {
		case <-s.HaltCh():
			return
		case <-t.C:
			st := s.router.Stats()
			s.metrics.SetRegisteredClients(st.ConnectedClients)
			s.metrics.SetQueuedMessages(st.QueuedMessages)
		}
	}
}
