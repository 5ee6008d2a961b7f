// management_test.go - Management socket tests.
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

package management

import (
	"net"
	"path/filepath"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/require"

	"github.com/solconnect/solconnect/core/log"
	"github.com/solconnect/solconnect/core/message"
	"github.com/solconnect/solconnect/core/wallet"
	"github.com/solconnect/solconnect/relay/internal/instrument"
	"github.com/solconnect/solconnect/relay/internal/router"
)

func TestStatsCommand(t *testing.T) {
	logBackend, err := log.New("", "DEBUG", true)
	require.NoError(t, err)

	rt := router.New(logBackend, instrument.New())
	a := wallet.TestAddress(1)
	outbox := make(chan *router.Routable, router.OutboxCapacity)
	rt.Register(a, outbox)
	chat := message.NewChat(a, wallet.TestAddress(2), []byte("held"), nil)
	rt.Route(chat, &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 1})

	sock := filepath.Join(t.TempDir(), "mgmt.sock")
	s, err := New(logBackend, rt, sock)
	require.NoError(t, err)
	defer s.Halt()

	c, err := net.Dial("unix", sock)
	require.NoError(t, err)
	defer c.Close()

	enc := cbor.NewEncoder(c)
	dec := cbor.NewDecoder(c)

	require.NoError(t, enc.Encode(&Request{Stats: true}))
	resp := new(Response)
	require.NoError(t, dec.Decode(resp))
	require.Empty(t, resp.Err)
	require.NotNil(t, resp.Stats)
	require.Equal(t, 1, resp.Stats.ConnectedClients)
	require.Equal(t, 1, resp.Stats.QueuedMessages)
	require.Equal(t, 1, resp.Stats.RecipientsWithQueued)

	// An unknown command gets an error response on the same conn.
	require.NoError(t, enc.Encode(&Request{}))
	resp = new(Response)
	require.NoError(t, dec.Decode(resp))
	require.Equal(t, "unknown command", resp.Err)
}
