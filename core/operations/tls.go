/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package operations

import (
	"crypto/tls"
	"crypto/x509"
	"io/ioutil"

	"github.com/hyperledger/fabric-chaincode-shim/core/comm"
	"github.com/pkg/errors"
)

// TLS configures the operations endpoint. Files are PEM encoded.
type TLS struct {
	Enabled            bool
	CertFile           string
	KeyFile            string
	ClientCertRequired bool
	ClientCACertFiles  []string
}

// Config returns the server side TLS configuration, or nil when TLS is
// disabled.
func (t TLS) Config() (*tls.Config, error) {
	if !t.Enabled {
		return nil, nil
	}

	cert, err := tls.LoadX509KeyPair(t.CertFile, t.KeyFile)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load operations key pair")
	}
	caCertPool := x509.NewCertPool()
	for _, caPath := range t.ClientCACertFiles {
		caPem, err := ioutil.ReadFile(caPath)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read client CA %s", caPath)
		}
		if !caCertPool.AppendCertsFromPEM(caPem) {
			return nil, errors.Errorf("no certificates found in %s", caPath)
		}
	}

	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{cert},
		CipherSuites: comm.DefaultTLSCipherSuites,
		ClientCAs:    caCertPool,
		ClientAuth:   tls.VerifyClientCertIfGiven,
		MinVersion:   tls.VersionTLS12,
	}
	if t.ClientCertRequired {
		tlsConfig.ClientAuth = tls.RequireAndVerifyClientCert
	}
	return tlsConfig, nil
}
