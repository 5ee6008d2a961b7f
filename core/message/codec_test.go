// codec_test.go - Envelope codec tests.
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

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/solconnect/solconnect/core/wallet"
)

func TestChatRoundTrip(t *testing.T) {
	c := NewChat(wallet.TestAddress(1), wallet.TestAddress(2), []byte("opaque bytes"), []byte("sig")).
		WithTTL(3600).
		WithAttachment("https://example.com/a.bin")

	raw, err := Encode(c)
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	env, err := Decode(raw)
	require.NoError(t, err)
	decoded, ok := env.(*Chat)
	require.True(t, ok)
	require.Equal(t, c, decoded)
}

func TestAckRoundTrip(t *testing.T) {
	for _, status := range []AckStatus{StatusDelivered, StatusFailed, StatusExpired, StatusRejected} {
		a := NewAck("msg_ref", status)
		raw, err := Encode(a)
		require.NoError(t, err)

		env, err := Decode(raw)
		require.NoError(t, err)
		decoded, ok := env.(*Ack)
		require.True(t, ok, "status %v decoded as %T", status, env)
		require.Equal(t, a, decoded)
	}
}

func TestPingRoundTrip(t *testing.T) {
	p := NewPing([]byte{1, 2, 3})
	raw, err := Encode(p)
	require.NoError(t, err)

	env, err := Decode(raw)
	require.NoError(t, err)
	decoded, ok := env.(*Ping)
	require.True(t, ok)
	require.Equal(t, p, decoded)
}

func TestPongRoundTrip(t *testing.T) {
	p := NewPong(NewPing([]byte{9}))
	raw, err := Encode(p)
	require.NoError(t, err)

	env, err := Decode(raw)
	require.NoError(t, err)
	decoded, ok := env.(*Pong)
	require.True(t, ok)
	require.Equal(t, p, decoded)
}

// A Pong whose data is empty still carries its data field on the wire,
// which is what keeps it from aliasing as an Ack (and vice versa); the
// strict decoder must yield a Pong.
func TestPongWithoutDataIsNotAnAck(t *testing.T) {
	p := NewPong(NewPing(nil))
	raw, err := Encode(p)
	require.NoError(t, err)

	env, err := Decode(raw)
	require.NoError(t, err)
	require.Equal(t, TypePong, env.Type())
}

func TestDecodeGarbage(t *testing.T) {
	_, err := Decode([]byte("this is not a protobuf frame at all"))
	require.ErrorIs(t, err, ErrNoVariant)
}

func TestDecodeUnknownField(t *testing.T) {
	// A frame consisting solely of an unknown high field number decodes
	// as no variant.
	var raw []byte
	raw = protowire.AppendTag(raw, 100, protowire.BytesType)
	raw = protowire.AppendString(raw, "zzz")
	_, err := Decode(raw)
	require.ErrorIs(t, err, ErrNoVariant)
}

// An Ack-shaped frame with an out-of-range status must be malformed,
// not fall through the try-order and resurface as a data-less Pong.
func TestDecodeAckStatusRange(t *testing.T) {
	var raw []byte
	raw = protowire.AppendTag(raw, 1, protowire.BytesType)
	raw = protowire.AppendString(raw, "ack_1")
	raw = protowire.AppendTag(raw, 2, protowire.BytesType)
	raw = protowire.AppendString(raw, "msg_1")
	raw = protowire.AppendTag(raw, 3, protowire.VarintType)
	raw = protowire.AppendVarint(raw, 99)

	_, err := Decode(raw)
	require.ErrorIs(t, err, ErrNoVariant)
}

func TestRoundTripLargePayload(t *testing.T) {
	for _, size := range []int{64, 1024, 16384, 60000} {
		payload := make([]byte, size)
		for i := range payload {
			payload[i] = byte(i)
		}
		c := NewChat(wallet.TestAddress(1), wallet.TestAddress(2), payload, []byte("sig"))
		raw, err := Encode(c)
		require.NoError(t, err)

		env, err := Decode(raw)
		require.NoError(t, err)
		require.Equal(t, payload, env.(*Chat).EncryptedPayload)
	}
}

func TestEmptyPayloadChatStillDecodes(t *testing.T) {
	c := NewChat(wallet.TestAddress(1), wallet.TestAddress(2), nil, []byte("sig"))
	raw, err := Encode(c)
	require.NoError(t, err)

	env, err := Decode(raw)
	require.NoError(t, err)
	decoded, ok := env.(*Chat)
	require.True(t, ok)
	require.Empty(t, decoded.EncryptedPayload)
	require.Equal(t, c.ID, decoded.ID)
}
