// codec.go - Strict envelope codec.
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
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// ErrNoVariant is returned by Decode when a frame is none of the five
// envelope variants.
var ErrNoVariant = errors.New("message: frame decodes as no envelope variant")

var errWireType = errors.New("message: wire type mismatch")

// Encode serializes an envelope to its protobuf wire form, the entire
// body of one stream.
func Encode(env Envelope) ([]byte, error) {
	switch m := env.(type) {
	case *Chat:
		return m.marshal(), nil
	case *Ack:
		return m.marshal(), nil
	case *ReadReceipt:
		return m.marshal(), nil
	case *Ping:
		return m.marshal(), nil
	case *Pong:
		return m.marshal(), nil
	default:
		return nil, fmt.Errorf("message: unsupported envelope type %T", env)
	}
}

// Decode attempts each envelope variant in a fixed order, Chat, Ack,
// ReadReceipt, Ping, Pong, and returns the first that decodes without
// error.  Decoding is strict: unknown field numbers, wire type
// mismatches and out of range enum values all fail an attempt.
func Decode(data []byte) (Envelope, error) {
	chat := new(Chat)
	if err := chat.unmarshal(data); err == nil {
		return chat, nil
	}
	ack := new(Ack)
	if err := ack.unmarshal(data); err == nil {
		return ack, nil
	}
	receipt := new(ReadReceipt)
	if err := receipt.unmarshal(data); err == nil {
		return receipt, nil
	}
	ping := new(Ping)
	if err := ping.unmarshal(data); err == nil {
		return ping, nil
	}
	pong := new(Pong)
	if err := pong.unmarshal(data); err == nil {
		return pong, nil
	}
	return nil, ErrNoVariant
}

func (c *Chat) marshal() []byte {
	var b []byte
	b = appendStringField(b, 1, c.ID)
	b = appendStringField(b, 2, c.SenderWallet)
	b = appendStringField(b, 3, c.RecipientWallet)
	// The timestamp is always emitted, zero included; its presence is
	// what the decoder discriminates a Chat on.
	b = protowire.AppendTag(b, 4, protowire.VarintType)
	b = protowire.AppendVarint(b, c.Timestamp)
	b = appendVarintField(b, 5, uint64(c.TTL))
	b = appendBytesField(b, 6, c.EncryptedPayload)
	if c.AttachmentURL != nil {
		b = protowire.AppendTag(b, 7, protowire.BytesType)
		b = protowire.AppendString(b, *c.AttachmentURL)
	}
	b = appendBytesField(b, 8, c.Signature)
	return b
}

func (c *Chat) unmarshal(data []byte) error {
	// Every real Chat is stamped with a nonzero epoch timestamp;
	// requiring its presence on the wire is what keeps a status-less
	// Ack (two bare strings) from aliasing as a Chat.
	sawTimestamp := false
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeStringField(b, typ, &c.ID)
		case 2:
			return consumeStringField(b, typ, &c.SenderWallet)
		case 3:
			return consumeStringField(b, typ, &c.RecipientWallet)
		case 4:
			sawTimestamp = true
			return consumeVarintField(b, typ, &c.Timestamp)
		case 5:
			return consumeVarint32Field(b, typ, &c.TTL)
		case 6:
			return consumeBytesField(b, typ, &c.EncryptedPayload)
		case 7:
			var s string
			n, err := consumeStringField(b, typ, &s)
			if err == nil {
				c.AttachmentURL = &s
			}
			return n, err
		case 8:
			return consumeBytesField(b, typ, &c.Signature)
		default:
			return 0, fmt.Errorf("message: unknown ChatMessage field %d", num)
		}
	})
	if err != nil {
		return err
	}
	if !sawTimestamp {
		return errors.New("message: ChatMessage missing timestamp")
	}
	return nil
}

func (a *Ack) marshal() []byte {
	var b []byte
	b = appendStringField(b, 1, a.ID)
	b = appendStringField(b, 2, a.RefMessageID)
	b = appendVarintField(b, 3, uint64(a.Status))
	return b
}

func (a *Ack) unmarshal(data []byte) error {
	return walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeStringField(b, typ, &a.ID)
		case 2:
			return consumeStringField(b, typ, &a.RefMessageID)
		case 3:
			var v uint64
			n, err := consumeVarintField(b, typ, &v)
			if err != nil {
				return n, err
			}
			if v > uint64(StatusRejected) {
				return 0, fmt.Errorf("message: AckStatus out of range: %d", v)
			}
			a.Status = AckStatus(v)
			return n, nil
		default:
			return 0, fmt.Errorf("message: unknown AckMessage field %d", num)
		}
	})
}

func (r *ReadReceipt) marshal() []byte {
	var b []byte
	b = appendStringField(b, 1, r.ID)
	b = appendStringField(b, 2, r.RefMessageID)
	b = appendStringField(b, 3, r.ReaderWallet)
	b = appendVarintField(b, 4, r.ReadAt)
	return b
}

func (r *ReadReceipt) unmarshal(data []byte) error {
	return walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeStringField(b, typ, &r.ID)
		case 2:
			return consumeStringField(b, typ, &r.RefMessageID)
		case 3:
			return consumeStringField(b, typ, &r.ReaderWallet)
		case 4:
			return consumeVarintField(b, typ, &r.ReadAt)
		default:
			return 0, fmt.Errorf("message: unknown ReadReceipt field %d", num)
		}
	})
}

func (p *Ping) marshal() []byte {
	var b []byte
	b = appendStringField(b, 1, p.ID)
	b = appendVarintField(b, 2, p.Timestamp)
	b = appendBytesField(b, 3, p.Data)
	return b
}

func (p *Ping) unmarshal(data []byte) error {
	return walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeStringField(b, typ, &p.ID)
		case 2:
			return consumeVarintField(b, typ, &p.Timestamp)
		case 3:
			return consumeBytesField(b, typ, &p.Data)
		default:
			return 0, fmt.Errorf("message: unknown PingMessage field %d", num)
		}
	})
}

func (p *Pong) marshal() []byte {
	var b []byte
	b = appendStringField(b, 1, p.ID)
	b = appendStringField(b, 2, p.RefPingID)
	b = appendVarintField(b, 3, p.Timestamp)
	// The data field is always emitted, empty included; its presence
	// is what the decoder discriminates a Pong from an Ack on, since
	// an Ack whose status byte is corrupt would otherwise alias as a
	// data-less Pong.
	b = protowire.AppendTag(b, 4, protowire.BytesType)
	b = protowire.AppendBytes(b, p.Data)
	return b
}

func (p *Pong) unmarshal(data []byte) error {
	sawData := false
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeStringField(b, typ, &p.ID)
		case 2:
			return consumeStringField(b, typ, &p.RefPingID)
		case 3:
			return consumeVarintField(b, typ, &p.Timestamp)
		case 4:
			sawData = true
			return consumeBytesField(b, typ, &p.Data)
		default:
			return 0, fmt.Errorf("message: unknown PongMessage field %d", num)
		}
	})
	if err != nil {
		return err
	}
	if !sawData {
		return errors.New("message: PongMessage missing data")
	}
	return nil
}

// walkFields iterates the top level fields of data, handing each to
// field, which consumes the value and reports the bytes used.
func walkFields(data []byte, field func(protowire.Number, protowire.Type, []byte) (int, error)) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]
		n, err := field(num, typ, data)
		if err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

func appendStringField(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendBytesField(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendVarintField(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func consumeStringField(b []byte, typ protowire.Type, out *string) (int, error) {
	if typ != protowire.BytesType {
		return 0, errWireType
	}
	v, n := protowire.ConsumeString(b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	*out = v
	return n, nil
}

func consumeBytesField(b []byte, typ protowire.Type, out *[]byte) (int, error) {
	if typ != protowire.BytesType {
		return 0, errWireType
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	*out = append([]byte(nil), v...)
	return n, nil
}

func consumeVarintField(b []byte, typ protowire.Type, out *uint64) (int, error) {
	if typ != protowire.VarintType {
		return 0, errWireType
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	*out = v
	return n, nil
}

func consumeVarint32Field(b []byte, typ protowire.Type, out *uint32) (int, error) {
	var v uint64
	n, err := consumeVarintField(b, typ, &v)
	if err != nil {
		return n, err
	}
	if v > math.MaxUint32 {
		return 0, fmt.Errorf("message: varint overflows uint32: %d", v)
	}
	*out = uint32(v)
	return n, nil
}
