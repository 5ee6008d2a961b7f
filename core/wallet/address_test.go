// address_test.go - Wallet address tests.
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

package wallet

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddressRoundTrip(t *testing.T) {
	a := TestAddress(42)
	require.Equal(t, byte(42), a.Bytes()[0])
	require.Equal(t, make([]byte, 31), a.Bytes()[1:])

	parsed, err := FromString(a.String())
	require.NoError(t, err)
	require.True(t, a.Equal(parsed))
}

func TestAddressFromBytes(t *testing.T) {
	raw := make([]byte, AddressSize)
	raw[0] = 7
	a, err := FromBytes(raw)
	require.NoError(t, err)
	require.Equal(t, raw, a.Bytes())

	_, err = FromBytes(raw[:31])
	require.Error(t, err)
}

func TestAddressParseFailures(t *testing.T) {
	_, err := FromString("")
	require.Error(t, err)

	// Invalid base58 alphabet.
	_, err = FromString("0OIl")
	require.Error(t, err)

	// Wrong decoded length.
	_, err = FromString("2g")
	require.Error(t, err)
}

func TestAddressEquality(t *testing.T) {
	a := TestAddress(1)
	b := TestAddress(2)
	require.False(t, a.Equal(b))
	require.True(t, a.Equal(TestAddress(1)))
}
