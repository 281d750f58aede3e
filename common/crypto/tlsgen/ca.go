/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package tlsgen issues throwaway TLS material for tests of peer and
// chaincode connections.
package tlsgen

import (
	"crypto"
	"crypto/tls"
	"crypto/x509"
)

// CertKeyPair is a PEM encoded certificate with its PEM encoded key.
type CertKeyPair struct {
	Cert []byte
	Key  []byte

	crypto.Signer
	TLSCert *x509.Certificate
}

// TLSCertificate returns the pair in the form tls.Config expects.
func (p *CertKeyPair) TLSCertificate() (tls.Certificate, error) {
	return tls.X509KeyPair(p.Cert, p.Key)
}

// CA issues certificates for peers and chaincode servers.
type CA interface {
	// CertBytes returns the PEM encoded CA certificate.
	CertBytes() []byte

	// CertPool returns a pool that trusts only this CA.
	CertPool() *x509.CertPool

	// NewClientCertKeyPair issues a pair for TLS client authentication.
	NewClientCertKeyPair() (*CertKeyPair, error)

	// NewServerCertKeyPair issues a pair with host as its subject
	// alternative name.
	NewServerCertKeyPair(host string) (*CertKeyPair, error)
}

type ca struct {
	root *CertKeyPair
}

func NewCA() (CA, error) {
	root, err := newCertKeyPair(true, false, "", nil, nil)
	if err != nil {
		return nil, err
	}
	return &ca{root: root}, nil
}

func (c *ca) CertBytes() []byte {
	return c.root.Cert
}

func (c *ca) CertPool() *x509.CertPool {
	pool := x509.NewCertPool()
	pool.AddCert(c.root.TLSCert)
	return pool
}

func (c *ca) NewClientCertKeyPair() (*CertKeyPair, error) {
	return newCertKeyPair(false, false, "", c.root.Signer, c.root.TLSCert)
}

func (c *ca) NewServerCertKeyPair(host string) (*CertKeyPair, error) {
	return newCertKeyPair(false, true, host, c.root.Signer, c.root.TLSCert)
}
