// address.go - Wallet address.
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

// Package wallet provides the wallet address identity used to route
// messages between peers.
package wallet

import (
	"fmt"

	base58 "github.com/jbenet/go-base58"
)

// AddressSize is the length of a raw wallet address in bytes.
const AddressSize = 32

// Address is a 32 byte wallet identity, rendered as base58 on the wire
// and used as the routing key by the relay.
type Address [AddressSize]byte

// FromBytes constructs an Address from a raw byte slice.
func FromBytes(b []byte) (Address, error) {
	var a Address
	if len(b) != AddressSize {
		return a, fmt.Errorf("wallet: invalid address length: %d", len(b))
	}
	copy(a[:], b)
	return a, nil
}

// FromString parses a base58 encoded wallet address.
func FromString(s string) (Address, error) {
	if s == "" {
		return Address{}, fmt.Errorf("wallet: empty address")
	}
	raw := base58.Decode(s)
	if len(raw) != AddressSize {
		return Address{}, fmt.Errorf("wallet: invalid address: '%v'", s)
	}
	return FromBytes(raw)
}

// Bytes returns the raw address bytes.
func (a Address) Bytes() []byte {
	b := make([]byte, AddressSize)
	copy(b, a[:])
	return b
}

// String returns the base58 rendering of the address.
func (a Address) String() string {
	return base58.Encode(a[:])
}

// Equal returns true iff the two addresses have identical raw bytes.
func (a Address) Equal(other Address) bool {
	return a == other
}

// TestAddress returns the deterministic address {seed, 0, ..., 0},
// used by tests and development tooling.
func TestAddress(seed byte) Address {
	var a Address
	a[0] = seed
	return a
}
