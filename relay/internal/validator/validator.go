// validator.go - Ingress chat validation.
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

// Package validator performs the structural and temporal checks applied
// to Chat envelopes before routing.
package validator

import (
	"fmt"
	"time"

	"gopkg.in/op/go-logging.v1"

	"github.com/solconnect/solconnect/core/log"
	"github.com/solconnect/solconnect/core/message"
	"github.com/solconnect/solconnect/core/wallet"
)

// Rejection describes why a Chat was refused, carrying the ack status
// to report to the sender.
type Rejection struct {
	Status message.AckStatus
	Reason string
}

// Error implements the error interface.
func (r *Rejection) Error() string {
	return fmt.Sprintf("validator: %v: %v", r.Status, r.Reason)
}

func rejected(f string, a ...interface{}) error {
	return &Rejection{Status: message.StatusRejected, Reason: fmt.Sprintf(f, a...)}
}

// SignatureVerifier checks a Chat's signature against its sender
// wallet.  The relay installs NoopVerifier until a real verifier is
// wired in.
type SignatureVerifier interface {
	Verify(chat *message.Chat, sender wallet.Address) error
}

// NoopVerifier accepts every signature.
type NoopVerifier struct{}

// Verify implements SignatureVerifier.
func (NoopVerifier) Verify(*message.Chat, wallet.Address) error { return nil }

// Validator applies the ingress checks to Chat envelopes.
type Validator struct {
	log      *logging.Logger
	verifier SignatureVerifier
}

// New constructs a Validator.  A nil verifier means NoopVerifier.
func New(logBackend *log.Backend, verifier SignatureVerifier) *Validator {
	if verifier == nil {
		verifier = NoopVerifier{}
	}
	return &Validator{
		log:      logBackend.GetLogger("validator"),
		verifier: verifier,
	}
}

// ValidateChat checks chat in ingress order: non-empty payload, TTL,
// sender address, recipient address, signature hook.  On success it
// returns the parsed sender wallet; on failure the error is a
// *Rejection whose Status is the ack to send.
func (v *Validator) ValidateChat(chat *message.Chat, now time.Time) (wallet.Address, error) {
	if len(chat.EncryptedPayload) == 0 {
		return wallet.Address{}, rejected("empty encrypted payload")
	}
	if chat.Expired(now) {
		return wallet.Address{}, &Rejection{
			Status: message.StatusExpired,
			Reason: fmt.Sprintf("expired %ds ago", uint64(now.Unix())-(chat.Timestamp+uint64(chat.TTL))),
		}
	}
	sender, err := chat.Sender()
	if err != nil {
		return wallet.Address{}, rejected("bad sender: %v", err)
	}
	if _, err = chat.Recipient(); err != nil {
		return wallet.Address{}, rejected("bad recipient: %v", err)
	}
	if err = v.verifier.Verify(chat, sender); err != nil {
		v.log.Warningf("chat %v failed signature verification: %v", chat.ID, err)
		return wallet.Address{}, rejected("signature: %v", err)
	}
	return sender, nil
}
