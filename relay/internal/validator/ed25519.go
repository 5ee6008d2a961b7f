// ed25519.go - Ed25519 signature verifier.
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

package validator

import (
	"bytes"
	"crypto/ed25519"
	"encoding/binary"
	"errors"
	"fmt"

	"filippo.io/edwards25519"

	"github.com/solconnect/solconnect/core/message"
	"github.com/solconnect/solconnect/core/wallet"
)

// Ed25519Verifier treats the sender wallet as an ed25519 public key and
// verifies the Chat signature over id || timestamp || payload.  It is
// provided for deployments that opt in; the relay default remains
// NoopVerifier.
type Ed25519Verifier struct{}

// Verify implements SignatureVerifier.
func (Ed25519Verifier) Verify(chat *message.Chat, sender wallet.Address) error {
	// Reject non-canonical point encodings before handing the key to
	// the verifier.  SetBytes accepts non-canonical encodings of valid
	// points, so the decoded point must also re-encode to the same bytes.
	p, err := new(edwards25519.Point).SetBytes(sender.Bytes())
	if err != nil {
		return fmt.Errorf("wallet is not a canonical ed25519 public key: %v", err)
	}
	if !bytes.Equal(p.Bytes(), sender.Bytes()) {
		return errors.New("wallet is not a canonical ed25519 public key")
	}
	if len(chat.Signature) != ed25519.SignatureSize {
		return fmt.Errorf("signature is %d bytes, want %d", len(chat.Signature), ed25519.SignatureSize)
	}
	if !ed25519.Verify(ed25519.PublicKey(sender.Bytes()), SignedBytes(chat), chat.Signature) {
		return errors.New("signature verification failed")
	}
	return nil
}

// SignedBytes returns the byte string a Chat signature covers.
func SignedBytes(chat *message.Chat) []byte {
	b := make([]byte, 0, len(chat.ID)+8+len(chat.EncryptedPayload))
	b = append(b, chat.ID...)
	b = binary.BigEndian.AppendUint64(b, chat.Timestamp)
	return append(b, chat.EncryptedPayload...)
}
