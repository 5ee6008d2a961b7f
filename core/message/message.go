// message.go - Wire envelope types.
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

// Package message defines the five wire envelope variants of the
// solchat.message protocol and their codec.
package message

import (
	"time"

	"github.com/google/uuid"

	"github.com/solconnect/solconnect/core/wallet"
)

// ALPN is the TLS application protocol identifier spoken on relay
// connections.
const ALPN = "solchat"

// MaxFrameSize is the largest accepted envelope body, in bytes.
const MaxFrameSize = 65536

// Type identifies an envelope variant.
type Type string

const (
	TypeChat        Type = "chat"
	TypeAck         Type = "ack"
	TypeReadReceipt Type = "read_receipt"
	TypePing        Type = "ping"
	TypePong        Type = "pong"
)

// AckStatus is the coarse delivery outcome returned to a sender.
type AckStatus int32

const (
	StatusDelivered AckStatus = 0
	StatusFailed    AckStatus = 1
	StatusExpired   AckStatus = 2
	StatusRejected  AckStatus = 3
)

// String returns the protocol name of the status.
func (s AckStatus) String() string {
	switch s {
	case StatusDelivered:
		return "DELIVERED"
	case StatusFailed:
		return "FAILED"
	case StatusExpired:
		return "EXPIRED"
	case StatusRejected:
		return "REJECTED"
	default:
		return "UNKNOWN"
	}
}

// Envelope is one of the five wire variants.
type Envelope interface {
	// MessageID returns the envelope's client generated id.
	MessageID() string

	// Type returns the variant tag.
	Type() Type
}

// Chat is an opaque encrypted message from one wallet to another.  The
// relay never interprets the payload.
type Chat struct {
	ID               string
	SenderWallet     string
	RecipientWallet  string
	Timestamp        uint64
	TTL              uint32
	EncryptedPayload []byte
	AttachmentURL    *string
	Signature        []byte
}

// NewChat constructs a Chat between two wallets, stamped with the
// current time and a fresh id.
func NewChat(sender, recipient wallet.Address, encryptedPayload, signature []byte) *Chat {
	return &Chat{
		ID:               "msg_" + uuid.New().String(),
		SenderWallet:     sender.String(),
		RecipientWallet:  recipient.String(),
		Timestamp:        uint64(time.Now().Unix()),
		EncryptedPayload: encryptedPayload,
		Signature:        signature,
	}
}

// WithTTL sets the expiry window in seconds, 0 meaning no expiry.
func (c *Chat) WithTTL(ttlSeconds uint32) *Chat {
	c.TTL = ttlSeconds
	return c
}

// WithAttachment sets the attachment URL.
func (c *Chat) WithAttachment(url string) *Chat {
	c.AttachmentURL = &url
	return c
}

// Sender parses the sender wallet address.
func (c *Chat) Sender() (wallet.Address, error) {
	return wallet.FromString(c.SenderWallet)
}

// Recipient parses the recipient wallet address.
func (c *Chat) Recipient() (wallet.Address, error) {
	return wallet.FromString(c.RecipientWallet)
}

// Expired returns true iff the Chat carries a TTL and now is past
// Timestamp + TTL.
func (c *Chat) Expired(now time.Time) bool {
	if c.TTL == 0 {
		return false
	}
	return uint64(now.Unix()) > c.Timestamp+uint64(c.TTL)
}

// MessageID implements Envelope.
func (c *Chat) MessageID() string { return c.ID }

// Type implements Envelope.
func (c *Chat) Type() Type { return TypeChat }

// Ack is the relay's typed receipt for an ingress envelope.
type Ack struct {
	ID           string
	RefMessageID string
	Status       AckStatus
}

// NewAck constructs an Ack referencing the given message id.
func NewAck(refMessageID string, status AckStatus) *Ack {
	return &Ack{
		ID:           "ack_" + uuid.New().String(),
		RefMessageID: refMessageID,
		Status:       status,
	}
}

// AckDelivered is shorthand for NewAck(ref, StatusDelivered).
func AckDelivered(refMessageID string) *Ack { return NewAck(refMessageID, StatusDelivered) }

// AckFailed is shorthand for NewAck(ref, StatusFailed).
func AckFailed(refMessageID string) *Ack { return NewAck(refMessageID, StatusFailed) }

// AckExpired is shorthand for NewAck(ref, StatusExpired).
func AckExpired(refMessageID string) *Ack { return NewAck(refMessageID, StatusExpired) }

// AckRejected is shorthand for NewAck(ref, StatusRejected).
func AckRejected(refMessageID string) *Ack { return NewAck(refMessageID, StatusRejected) }

// MessageID implements Envelope.
func (a *Ack) MessageID() string { return a.ID }

// Type implements Envelope.
func (a *Ack) Type() Type { return TypeAck }

// ReadReceipt notifies a message's sender that the recipient read it.
type ReadReceipt struct {
	ID           string
	RefMessageID string
	ReaderWallet string
	ReadAt       uint64
}

// NewReadReceipt constructs a ReadReceipt for the referenced message.
func NewReadReceipt(refMessageID string, reader wallet.Address) *ReadReceipt {
	return &ReadReceipt{
		ID:           "rcpt_" + uuid.New().String(),
		RefMessageID: refMessageID,
		ReaderWallet: reader.String(),
		ReadAt:       uint64(time.Now().Unix()),
	}
}

// MessageID implements Envelope.
func (r *ReadReceipt) MessageID() string { return r.ID }

// Type implements Envelope.
func (r *ReadReceipt) Type() Type { return TypeReadReceipt }

// Ping is a connection liveness probe.
type Ping struct {
	ID        string
	Timestamp uint64
	Data      []byte
}

// NewPing constructs a Ping carrying the given opaque data.
func NewPing(data []byte) *Ping {
	return &Ping{
		ID:        "ping_" + uuid.New().String(),
		Timestamp: uint64(time.Now().Unix()),
		Data:      data,
	}
}

// MessageID implements Envelope.
func (p *Ping) MessageID() string { return p.ID }

// Type implements Envelope.
func (p *Ping) Type() Type { return TypePing }

// Pong is the reply to a Ping, echoing its data.
type Pong struct {
	ID        string
	RefPingID string
	Timestamp uint64
	Data      []byte
}

// NewPong constructs the Pong answering ping.
func NewPong(ping *Ping) *Pong {
	return &Pong{
		ID:        "pong_" + uuid.New().String(),
		RefPingID: ping.ID,
		Timestamp: uint64(time.Now().Unix()),
		Data:      ping.Data,
	}
}

// MessageID implements Envelope.
func (p *Pong) MessageID() string { return p.ID }

// Type implements Envelope.
func (p *Pong) Type() Type { return TypePong }
