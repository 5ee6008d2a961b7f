// validator_test.go - Validator tests.
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
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/solconnect/solconnect/core/log"
	"github.com/solconnect/solconnect/core/message"
	"github.com/solconnect/solconnect/core/wallet"
)

func testValidator(t *testing.T, verifier SignatureVerifier) *Validator {
	logBackend, err := log.New("", "DEBUG", true)
	require.NoError(t, err)
	return New(logBackend, verifier)
}

func requireRejection(t *testing.T, err error, status message.AckStatus) {
	var rej *Rejection
	require.ErrorAs(t, err, &rej)
	require.Equal(t, status, rej.Status)
}

func TestValidateChatAccepts(t *testing.T) {
	v := testValidator(t, nil)
	sender := wallet.TestAddress(1)
	c := message.NewChat(sender, wallet.TestAddress(2), []byte("hi"), []byte("sig"))

	got, err := v.ValidateChat(c, time.Now())
	require.NoError(t, err)
	require.True(t, sender.Equal(got))
}

func TestValidateChatEmptyPayload(t *testing.T) {
	v := testValidator(t, nil)
	c := message.NewChat(wallet.TestAddress(1), wallet.TestAddress(2), nil, []byte("sig"))

	_, err := v.ValidateChat(c, time.Now())
	requireRejection(t, err, message.StatusRejected)
}

func TestValidateChatExpired(t *testing.T) {
	v := testValidator(t, nil)
	c := message.NewChat(wallet.TestAddress(1), wallet.TestAddress(2), []byte("stale"), nil)
	now := time.Now()
	c.Timestamp = uint64(now.Unix()) - 3600
	c.TTL = 1800

	_, err := v.ValidateChat(c, now)
	requireRejection(t, err, message.StatusExpired)
}

func TestValidateChatBadAddresses(t *testing.T) {
	v := testValidator(t, nil)

	c := message.NewChat(wallet.TestAddress(1), wallet.TestAddress(2), []byte("hi"), nil)
	c.SenderWallet = "not-base58-0OIl"
	_, err := v.ValidateChat(c, time.Now())
	requireRejection(t, err, message.StatusRejected)

	c = message.NewChat(wallet.TestAddress(1), wallet.TestAddress(2), []byte("hi"), nil)
	c.RecipientWallet = ""
	_, err = v.ValidateChat(c, time.Now())
	requireRejection(t, err, message.StatusRejected)
}

// Validation order matters: an empty payload outranks an expired TTL.
func TestValidateChatOrder(t *testing.T) {
	v := testValidator(t, nil)
	c := message.NewChat(wallet.TestAddress(1), wallet.TestAddress(2), nil, nil)
	now := time.Now()
	c.Timestamp = uint64(now.Unix()) - 3600
	c.TTL = 1800

	_, err := v.ValidateChat(c, now)
	requireRejection(t, err, message.StatusRejected)
}

type denyVerifier struct{}

func (denyVerifier) Verify(*message.Chat, wallet.Address) error {
	return errors.New("denied")
}

func TestVerifierHook(t *testing.T) {
	v := testValidator(t, denyVerifier{})
	c := message.NewChat(wallet.TestAddress(1), wallet.TestAddress(2), []byte("hi"), nil)

	_, err := v.ValidateChat(c, time.Now())
	requireRejection(t, err, message.StatusRejected)
}

func TestEd25519Verifier(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	sender, err := wallet.FromBytes(pub)
	require.NoError(t, err)

	c := message.NewChat(sender, wallet.TestAddress(2), []byte("signed payload"), nil)
	c.Signature = ed25519.Sign(priv, SignedBytes(c))

	verifier := Ed25519Verifier{}
	require.NoError(t, verifier.Verify(c, sender))

	// Tampering must fail.
	c.EncryptedPayload = []byte("tampered")
	require.Error(t, verifier.Verify(c, sender))

	// A non-canonical encoding (y = 2^255-1 > p) must fail before
	// verification.
	var bogus wallet.Address
	for i := range bogus {
		bogus[i] = 0xff
	}
	bogus[31] = 0x7f
	c2 := message.NewChat(bogus, wallet.TestAddress(2), []byte("x"), make([]byte, ed25519.SignatureSize))
	require.Error(t, verifier.Verify(c2, bogus))
}
