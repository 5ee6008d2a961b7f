// tls_test.go - TLS setup tests.
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

package relay

import (
	"crypto/x509"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/solconnect/solconnect/core/message"
	"github.com/solconnect/solconnect/relay/config"
)

func TestSelfSignedTLSConfig(t *testing.T) {
	cfg := new(config.Config)
	require.NoError(t, cfg.FixupAndValidate())

	tlsConf, err := tlsConfig(cfg)
	require.NoError(t, err)
	require.Equal(t, []string{message.ALPN}, tlsConf.NextProtos)
	require.Len(t, tlsConf.Certificates, 1)

	cert, err := x509.ParseCertificate(tlsConf.Certificates[0].Certificate[0])
	require.NoError(t, err)
	require.Equal(t, "localhost", cert.Subject.CommonName)
	require.Contains(t, cert.DNSNames, "localhost")
}
