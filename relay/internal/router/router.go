// router.go - Message router.
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

// Package router maintains the wallet to connection routing table and
// the per-recipient offline queues.
package router

import (
	"net"
	"strings"
	"sync"
	"time"

	"gopkg.in/op/go-logging.v1"

	"github.com/solconnect/solconnect/core/log"
	"github.com/solconnect/solconnect/core/message"
	"github.com/solconnect/solconnect/core/wallet"
	"github.com/solconnect/solconnect/relay/internal/instrument"
)

const (
	// MaxQueuedMessages bounds each recipient's offline queue.
	MaxQueuedMessages = 100

	// OutboxCapacity is the bound of each client's outbox channel.
	OutboxCapacity = 100
)

// Routable is an envelope paired with the network address it arrived
// from.  The address is carried for logging, never for routing.
type Routable struct {
	Envelope   message.Envelope
	SenderAddr net.Addr
}

type clientEntry struct {
	wallet      wallet.Address
	outbox      chan<- *Routable
	connectedAt time.Time
}

// Router routes envelopes between registered clients and buffers
// traffic for recipients that are offline.
type Router struct {
	log     *logging.Logger
	metrics *instrument.Metrics

	// mu is the single lock domain covering both the table and the
	// queues; Route's fast path only ever takes it shared.
	mu      sync.RWMutex
	clients map[string]*clientEntry
	queues  map[string][]*Routable
}

// New constructs an empty Router.
func New(logBackend *log.Backend, metrics *instrument.Metrics) *Router {
	return &Router{
		log:     logBackend.GetLogger("router"),
		metrics: metrics,
		clients: make(map[string]*clientEntry),
		queues:  make(map[string][]*Routable),
	}
}

// Register inserts or replaces the table entry for addr and drains any
// offline queue for it into outbox in FIFO order.  If a drain send
// fails, the remainder is pushed back to the head of the queue; the
// registration itself still succeeds.
func (r *Router) Register(addr wallet.Address, outbox chan<- *Routable) {
	key := addr.String()

	r.mu.Lock()
	r.clients[key] = &clientEntry{
		wallet:      addr,
		outbox:      outbox,
		connectedAt: time.Now(),
	}
	n := len(r.clients)
	r.mu.Unlock()

	r.metrics.SetRegisteredClients(n)
	r.log.Infof("registered client %v", key)

	r.drainQueue(key, outbox)
}

// Unregister removes the table entry for addr if present.  Queued
// messages are untouched.
func (r *Router) Unregister(addr wallet.Address) {
	key := addr.String()

	r.mu.Lock()
	_, ok := r.clients[key]
	if ok {
		delete(r.clients, key)
	}
	n := len(r.clients)
	r.mu.Unlock()

	if ok {
		r.metrics.SetRegisteredClients(n)
		r.log.Infof("unregistered client %v", key)
	}
}

// Route resolves an envelope's destination and returns the ack status
// to report to the sender.
func (r *Router) Route(env message.Envelope, senderAddr net.Addr) message.AckStatus {
	switch m := env.(type) {
	case *message.Chat:
		return r.routeChat(m, senderAddr)
	case *message.Ack:
		return r.routeReply(m, m.RefMessageID, senderAddr)
	case *message.ReadReceipt:
		return r.routeReply(m, m.RefMessageID, senderAddr)
	case *message.Ping, *message.Pong:
		// Not routed; accepting the frame is the whole transaction.
		r.log.Debugf("%v from %v", env.Type(), senderAddr)
		return message.StatusDelivered
	default:
		r.log.Errorf("unroutable envelope type %T", env)
		return message.StatusFailed
	}
}

func (r *Router) routeChat(chat *message.Chat, senderAddr net.Addr) message.AckStatus {
	key := chat.RecipientWallet
	routable := &Routable{Envelope: chat, SenderAddr: senderAddr}

	r.mu.RLock()
	if entry, ok := r.clients[key]; ok {
		select {
		case entry.outbox <- routable:
			r.mu.RUnlock()
			r.log.Debugf("chat %v routed to online recipient %v", chat.ID, key)
			return message.StatusDelivered
		default:
			// Outbox full; fall through to the queue.
		}
	}
	r.mu.RUnlock()

	r.enqueue(key, routable)
	r.log.Debugf("chat %v queued for recipient %v", chat.ID, key)

	// The ack means "accepted by the relay", not end to end receipt,
	// so a queued message still acks as delivered.
	return message.StatusDelivered
}

// routeReply routes an Ack or ReadReceipt back to the sender of the
// referenced message.  The origin wallet is recovered from the portion
// of the referenced id before the first '-'; clients that want replies
// embed their wallet there.
func (r *Router) routeReply(env message.Envelope, refID string, senderAddr net.Addr) message.AckStatus {
	origin := refID
	if idx := strings.IndexByte(refID, '-'); idx >= 0 {
		origin = refID[:idx]
	}
	routable := &Routable{Envelope: env, SenderAddr: senderAddr}

	r.mu.RLock()
	entry, ok := r.clients[origin]
	if ok {
		select {
		case entry.outbox <- routable:
			r.mu.RUnlock()
			r.log.Debugf("%v routed to original sender %v", env.Type(), origin)
			return message.StatusDelivered
		default:
		}
	}
	r.mu.RUnlock()

	r.log.Warningf("cannot route %v: original sender %v unavailable", env.Type(), origin)
	return message.StatusFailed
}

func (r *Router) enqueue(key string, m *Routable) {
	r.mu.Lock()
	defer r.mu.Unlock()

	q := r.queues[key]
	if len(q) >= MaxQueuedMessages {
		r.log.Warningf("queue full for recipient %v, dropping oldest message", key)
		q = q[1:]
	}
	r.queues[key] = append(q, m)
	r.metrics.SetQueuedMessages(r.totalQueuedLocked())
}

func (r *Router) drainQueue(key string, outbox chan<- *Routable) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pending, ok := r.queues[key]
	if !ok {
		return
	}
	delete(r.queues, key)

	delivered := 0
	for i, m := range pending {
		select {
		case outbox <- m:
			delivered++
			continue
		default:
		}
		// Recipient gone (or outbox full): the remainder goes back to
		// the head in its original order.
		r.queues[key] = pending[i:]
		break
	}

	r.log.Infof("delivered %d/%d queued messages to %v", delivered, len(pending), key)
	r.metrics.SetQueuedMessages(r.totalQueuedLocked())
}

func (r *Router) totalQueuedLocked() int {
	total := 0
	for _, q := range r.queues {
		total += len(q)
	}
	return total
}

// Stats is a point in time snapshot of router state.
type Stats struct {
	ConnectedClients     int
	QueuedMessages       int
	RecipientsWithQueued int
}

// Stats returns the current router statistics.
func (r *Router) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return Stats{
		ConnectedClients:     len(r.clients),
		QueuedMessages:       r.totalQueuedLocked(),
		RecipientsWithQueued: len(r.queues),
	}
}
