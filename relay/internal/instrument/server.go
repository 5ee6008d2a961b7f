// server.go - Metrics scrape and health HTTP server.
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

package instrument

import (
	"errors"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/op/go-logging.v1"

	"github.com/solconnect/solconnect/core/log"
	"github.com/solconnect/solconnect/core/worker"
)

// Server serves /metrics and /health over HTTP.
type Server struct {
	worker.Worker

	log      *logging.Logger
	listener net.Listener
	srv      *http.Server

	fatalErrCh chan<- error
}

// NewServer binds the scrape listener and starts serving.  A terminal
// serve failure is reported on fatalErrCh.
func NewServer(m *Metrics, addr string, logBackend *log.Backend, fatalErrCh chan<- error) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	s := &Server{
		log:        logBackend.GetLogger("instrument"),
		listener:   ln,
		fatalErrCh: fatalErrCh,
	}

	scrape := promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{})
	s.srv = &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/metrics":
				scrape.ServeHTTP(w, r)
			case "/health":
				w.Header().Set("Content-Type", "text/plain")
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte("OK"))
			default:
				http.NotFound(w, r)
			}
		}),
	}

	s.Go(s.serveWorker)
	s.Go(s.haltWorker)
	s.log.Noticef("metrics listening on %v", ln.Addr())
	return s, nil
}

// Addr returns the bound scrape address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

func (s *Server) serveWorker() {
	err := s.srv.Serve(s.listener)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.log.Errorf("metrics server failure: %v", err)
		select {
		case s.fatalErrCh <- err:
		case <-s.HaltCh():
		}
		return
	}
	s.log.Debugf("metrics server stopped")
}

func (s *Server) haltWorker() {
	<-s.HaltCh()
	_ = s.srv.Close()
}
