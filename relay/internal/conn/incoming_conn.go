// incoming_conn.go - Relay incoming connection actor.
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

// Package conn implements the per-connection actor: an inbound stream
// demultiplexer and an outbound pump sharing one QUIC connection.
package conn

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	quic "github.com/quic-go/quic-go"
	"gopkg.in/op/go-logging.v1"

	"github.com/solconnect/solconnect/core/log"
	"github.com/solconnect/solconnect/core/message"
	"github.com/solconnect/solconnect/core/wallet"
	"github.com/solconnect/solconnect/core/worker"
	"github.com/solconnect/solconnect/relay/internal/instrument"
	"github.com/solconnect/solconnect/relay/internal/router"
	"github.com/solconnect/solconnect/relay/internal/validator"
)

const deliverTimeout = 10 * time.Second

// Conn owns one accepted QUIC connection and the task pair serving it.
type Conn struct {
	worker.Worker

	log       *logging.Logger
	qconn     quic.Connection
	router    *router.Router
	validator *validator.Validator
	metrics   *instrument.Metrics
	onClosed  func(*Conn)

	outbox      chan *router.Routable
	connectedAt time.Time

	// registeredWallet latches on the first Chat that passes
	// validation; only the inbound worker writes it.
	registeredWallet *wallet.Address
}

// New constructs the actor for an accepted connection.  Call Start to
// begin serving it.
func New(logBackend *log.Backend, qconn quic.Connection, rt *router.Router, val *validator.Validator, metrics *instrument.Metrics, onClosed func(*Conn)) *Conn {
	c := &Conn{
		log:         logBackend.GetLogger(fmt.Sprintf("conn:%v", qconn.RemoteAddr())),
		qconn:       qconn,
		router:      rt,
		validator:   val,
		metrics:     metrics,
		onClosed:    onClosed,
		outbox:      make(chan *router.Routable, router.OutboxCapacity),
		connectedAt: time.Now(),
	}
	return c
}

// Start launches the inbound and outbound workers.
func (c *Conn) Start() {
	c.metrics.ConnectionOpened()
	c.Go(c.inboundWorker)
	c.Go(c.outboundWorker)
	go func() {
		c.Wait()
		c.onClose()
	}()
}

func (c *Conn) onClose() {
	d := time.Since(c.connectedAt)
	c.metrics.ConnectionClosed(d)
	if w := c.registeredWallet; w != nil {
		c.router.Unregister(*w)
	}
	_ = c.qconn.CloseWithError(0, "")
	if c.onClosed != nil {
		c.onClosed(c)
	}
	c.log.Debugf("connection closed after %v", d)
}

// inboundWorker serves the peer's bidirectional streams sequentially;
// the per-sender delivery order guarantee depends on this loop being
// the only caller of Route for the connection.
func (c *Conn) inboundWorker() {
	// Closing the connection on the way out unblocks the outbound
	// worker, which watches the connection context.
	defer func() { _ = c.qconn.CloseWithError(0, "") }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-c.HaltCh():
			cancel()
			// Unblock any stalled stream read as well.
			_ = c.qconn.CloseWithError(0, "")
		case <-ctx.Done():
		}
	}()

	for {
		stream, err := c.qconn.AcceptStream(ctx)
		if err != nil {
			c.log.Debugf("accept stream: %v", err)
			return
		}
		c.handleStream(stream)
	}
}

func (c *Conn) handleStream(stream quic.Stream) {
	defer stream.Close()

	start := time.Now()
	body, err := io.ReadAll(io.LimitReader(stream, message.MaxFrameSize+1))
	if err != nil {
		c.log.Errorf("stream read: %v", err)
		c.metrics.MessageFailed()
		return
	}
	c.metrics.BytesReceived(len(body))

	oversize := len(body) > message.MaxFrameSize
	if oversize {
		body = body[:message.MaxFrameSize]
		stream.CancelRead(0)
	}

	env, err := message.Decode(body)
	if err != nil {
		c.log.Warningf("undecodable frame (%d bytes): %v", len(body), err)
		c.metrics.MessageFailed()
		return
	}

	var reply message.Envelope
	if oversize {
		c.log.Warningf("oversize frame rejected, id %v", env.MessageID())
		reply = message.AckRejected(env.MessageID())
	} else {
		reply = c.process(env)
	}
	c.metrics.MessageProcessed(len(body), string(env.Type()))

	raw, err := message.Encode(reply)
	if err != nil {
		c.log.Errorf("encode reply: %v", err)
		return
	}
	if _, err = stream.Write(raw); err != nil {
		c.log.Errorf("stream write: %v", err)
		return
	}
	c.metrics.BytesSent(len(raw))
	c.metrics.ObserveLatency(time.Since(start))
}

func (c *Conn) process(env message.Envelope) message.Envelope {
	switch m := env.(type) {
	case *message.Chat:
		sender, err := c.validator.ValidateChat(m, time.Now())
		if err != nil {
			status := message.StatusRejected
			var rej *validator.Rejection
			if errors.As(err, &rej) {
				status = rej.Status
			}
			c.log.Debugf("chat %v refused: %v", m.ID, err)
			return message.NewAck(m.ID, status)
		}
		if c.registeredWallet == nil {
			c.router.Register(sender, c.outbox)
			w := sender
			c.registeredWallet = &w
		}
		return message.NewAck(m.ID, c.router.Route(m, c.qconn.RemoteAddr()))
	case *message.Ping:
		c.router.Route(m, c.qconn.RemoteAddr())
		return message.NewPong(m)
	default:
		return message.NewAck(env.MessageID(), c.router.Route(env, c.qconn.RemoteAddr()))
	}
}

// outboundWorker drains the outbox onto fresh streams.  A failed open
// or write drops the message; the sender already holds the relay's
// acceptance ack.
func (c *Conn) outboundWorker() {
	for {
		select {
		case <-c.HaltCh():
			return
		case <-c.qconn.Context().Done():
			return
		case m := <-c.outbox:
			if err := c.deliver(m); err != nil {
				c.log.Errorf("outbound delivery of %v failed: %v", m.Envelope.MessageID(), err)
			}
		}
	}
}

func (c *Conn) deliver(m *router.Routable) error {
	raw, err := message.Encode(m.Envelope)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
	defer cancel()
	stream, err := c.qconn.OpenStreamSync(ctx)
	if err != nil {
		return err
	}
	defer stream.Close()

	if _, err = stream.Write(raw); err != nil {
		return err
	}
	c.metrics.BytesSent(len(raw))
	c.log.Debugf("delivered %v (%v, from %v)", m.Envelope.MessageID(), m.Envelope.Type(), m.SenderAddr)
	return nil
}
