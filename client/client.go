// client.go - Minimal relay client.
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

// Package client is a minimal SolConnect relay client: one envelope
// per stream, with the typed reply read back on the same stream.  It
// exists for tooling and tests; the mobile SDK carries the full
// session logic.
package client

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"

	quic "github.com/quic-go/quic-go"
	"gopkg.in/op/go-logging.v1"

	"github.com/solconnect/solconnect/core/log"
	"github.com/solconnect/solconnect/core/message"
)

// Client is one QUIC connection to a relay.
type Client struct {
	log   *logging.Logger
	qconn quic.Connection
}

// Dial connects to the relay at addr.  The relay presents a
// self-signed certificate, so verification is skipped.
func Dial(ctx context.Context, addr string, logBackend *log.Backend) (*Client, error) {
	tlsConf := &tls.Config{
		InsecureSkipVerify: true,
		NextProtos:         []string{message.ALPN},
	}
	qconn, err := quic.DialAddr(ctx, addr, tlsConf, nil)
	if err != nil {
		return nil, fmt.Errorf("client: dial %v: %w", addr, err)
	}
	c := &Client{
		log:   logBackend.GetLogger("client"),
		qconn: qconn,
	}
	c.log.Debugf("connected to %v", addr)
	return c, nil
}

// Do sends one envelope on a fresh stream and returns the decoded
// reply.
func (c *Client) Do(ctx context.Context, env message.Envelope) (message.Envelope, error) {
	raw, err := message.Encode(env)
	if err != nil {
		return nil, err
	}
	reply, err := c.DoRaw(ctx, raw)
	if err != nil {
		return nil, err
	}
	return message.Decode(reply)
}

// DoRaw sends raw bytes as one frame and returns the raw reply body,
// which is empty when the relay drops the frame without answering.
func (c *Client) DoRaw(ctx context.Context, raw []byte) ([]byte, error) {
	stream, err := c.qconn.OpenStreamSync(ctx)
	if err != nil {
		return nil, err
	}
	if _, err = stream.Write(raw); err != nil {
		stream.CancelRead(0)
		return nil, err
	}
	// Half-close to mark the end of the frame; the reply comes back
	// before the relay finishes the stream.
	if err = stream.Close(); err != nil {
		return nil, err
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			stream.CancelRead(0)
		case <-done:
		}
	}()

	return io.ReadAll(io.LimitReader(stream, message.MaxFrameSize+1))
}

// Receive blocks for the next relay-pushed envelope (a message routed
// to this client's wallet).
func (c *Client) Receive(ctx context.Context) (message.Envelope, error) {
	stream, err := c.qconn.AcceptStream(ctx)
	if err != nil {
		return nil, err
	}
	body, err := io.ReadAll(io.LimitReader(stream, message.MaxFrameSize+1))
	if err != nil {
		return nil, err
	}
	return message.Decode(body)
}

// Close tears down the connection.
func (c *Client) Close() error {
	return c.qconn.CloseWithError(0, "")
}
