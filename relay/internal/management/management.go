// management.go - CBOR management socket.
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

// Package management exposes relay statistics over a CBOR unix domain
// socket for operator tooling.
package management

import (
	"errors"
	"net"
	"os"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/op/go-logging.v1"

	"github.com/solconnect/solconnect/core/log"
	"github.com/solconnect/solconnect/core/worker"
	"github.com/solconnect/solconnect/relay/internal/router"
)

// Request is one command sent by an operator tool.
type Request struct {
	// Stats requests a router statistics snapshot.
	Stats bool
}

// StatsResponse mirrors router.Stats.
type StatsResponse struct {
	ConnectedClients     int
	QueuedMessages       int
	RecipientsWithQueued int
}

// Response answers one Request.
type Response struct {
	Stats *StatsResponse
	Err   string
}

// Server is the management socket listener.
type Server struct {
	worker.Worker

	log      *logging.Logger
	router   *router.Router
	listener net.Listener
	path     string
}

// New binds the management socket at path and starts serving.
func New(logBackend *log.Backend, rt *router.Router, path string) (*Server, error) {
	// A stale socket from a previous run would fail the bind.
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}

	s := &Server{
		log:      logBackend.GetLogger("management"),
		router:   rt,
		listener: ln,
		path:     path,
	}
	s.Go(s.acceptWorker)
	s.Go(s.haltWorker)
	s.log.Noticef("management socket at %v", path)
	return s, nil
}

func (s *Server) haltWorker() {
	<-s.HaltCh()
	_ = s.listener.Close()
	_ = os.Remove(s.path)
}

func (s *Server) acceptWorker() {
	for {
		c, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.HaltCh():
			default:
				s.log.Errorf("accept: %v", err)
			}
			return
		}
		s.Go(func() { s.onConn(c) })
	}
}

func (s *Server) onConn(c net.Conn) {
	defer c.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-s.HaltCh():
			_ = c.Close()
		case <-done:
		}
	}()

	dec := cbor.NewDecoder(c)
	enc := cbor.NewEncoder(c)
	for {
		req := new(Request)
		if err := dec.Decode(req); err != nil {
			return
		}
		var resp Response
		switch {
		case req.Stats:
			st := s.router.Stats()
			resp.Stats = &StatsResponse{
				ConnectedClients:     st.ConnectedClients,
				QueuedMessages:       st.QueuedMessages,
				RecipientsWithQueued: st.RecipientsWithQueued,
			}
		default:
			resp.Err = "unknown command"
		}
		if err := enc.Encode(&resp); err != nil {
			s.log.Errorf("encode response: %v", err)
			return
		}
	}
}
