// message_test.go - Envelope type tests.
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

package message

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/solconnect/solconnect/core/wallet"
)

func TestChatCreation(t *testing.T) {
	sender := wallet.TestAddress(1)
	recipient := wallet.TestAddress(2)
	payload := []byte("Hello, SolConnect!")
	signature := []byte("fake_signature")

	c := NewChat(sender, recipient, payload, signature)
	require.NotEmpty(t, c.ID)
	require.Equal(t, payload, c.EncryptedPayload)
	require.Equal(t, signature, c.Signature)
	require.Zero(t, c.TTL)
	require.False(t, c.Expired(time.Now()))

	gotSender, err := c.Sender()
	require.NoError(t, err)
	require.True(t, sender.Equal(gotSender))
	gotRecipient, err := c.Recipient()
	require.NoError(t, err)
	require.True(t, recipient.Equal(gotRecipient))
}

func TestChatExpiry(t *testing.T) {
	c := NewChat(wallet.TestAddress(1), wallet.TestAddress(2), []byte("stale"), nil)

	now := time.Now()
	c.Timestamp = uint64(now.Unix()) - 3600
	c.TTL = 1800
	require.True(t, c.Expired(now))

	// A TTL of zero never expires.
	c.TTL = 0
	require.False(t, c.Expired(now))

	// Still inside the window.
	c.TTL = 7200
	require.False(t, c.Expired(now))
}

func TestChatBuilders(t *testing.T) {
	c := NewChat(wallet.TestAddress(1), wallet.TestAddress(2), []byte("x"), nil).
		WithTTL(3600).
		WithAttachment("https://example.com/file.jpg")
	require.Equal(t, uint32(3600), c.TTL)
	require.NotNil(t, c.AttachmentURL)
	require.Equal(t, "https://example.com/file.jpg", *c.AttachmentURL)
}

func TestAckCreation(t *testing.T) {
	refID := "msg_12345"

	delivered := AckDelivered(refID)
	require.NotEmpty(t, delivered.ID)
	require.Equal(t, refID, delivered.RefMessageID)
	require.Equal(t, StatusDelivered, delivered.Status)

	require.Equal(t, StatusFailed, AckFailed(refID).Status)
	require.Equal(t, StatusExpired, AckExpired(refID).Status)
	require.Equal(t, StatusRejected, AckRejected(refID).Status)
}

func TestAckStatusNames(t *testing.T) {
	require.Equal(t, "DELIVERED", StatusDelivered.String())
	require.Equal(t, "FAILED", StatusFailed.String())
	require.Equal(t, "EXPIRED", StatusExpired.String())
	require.Equal(t, "REJECTED", StatusRejected.String())
}

func TestPingPong(t *testing.T) {
	ping := NewPing([]byte{0xde, 0xad})
	require.NotEmpty(t, ping.ID)

	pong := NewPong(ping)
	require.Equal(t, ping.ID, pong.RefPingID)
	require.Equal(t, ping.Data, pong.Data)
}

func TestEnvelopeTypes(t *testing.T) {
	require.Equal(t, TypeChat, NewChat(wallet.TestAddress(1), wallet.TestAddress(2), []byte("x"), nil).Type())
	require.Equal(t, TypeAck, AckDelivered("ref").Type())
	require.Equal(t, TypeReadReceipt, NewReadReceipt("ref", wallet.TestAddress(3)).Type())
	require.Equal(t, TypePing, NewPing(nil).Type())
	require.Equal(t, TypePong, NewPong(NewPing(nil)).Type())
}
