/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package comm

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"time"

	grpc_middleware "github.com/grpc-ecosystem/go-grpc-middleware"
	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

// GRPCClient dials the peer.
type GRPCClient struct {
	// TLS configuration used by the grpc.ClientConn
	tlsConfig *tls.Config
	// Options for setting up new connections
	dialOpts []grpc.DialOption
	// Duration for which to block while established a new connection
	timeout time.Duration
	// Maximum message size the client can receive
	maxRecvMsgSize int
	// Maximum message size the client can send
	maxSendMsgSize int
}

// NewGRPCClient creates a new implementation of GRPCClient given an address
// and client configuration
func NewGRPCClient(config ClientConfig) (*GRPCClient, error) {
	client := &GRPCClient{
		timeout:        config.Timeout,
		maxRecvMsgSize: MaxRecvMsgSize,
		maxSendMsgSize: MaxSendMsgSize,
	}
	if client.timeout <= 0 {
		client.timeout = DefaultConnectionTimeout
	}

	if err := client.parseSecureOptions(config.SecOpts); err != nil {
		return nil, err
	}

	client.dialOpts = append(client.dialOpts, config.KaOpts.orDefault().ClientKeepaliveOptions()...)
	if !config.AsyncConnect {
		client.dialOpts = append(client.dialOpts, grpc.WithBlock())
	}
	if len(config.StreamInterceptors) > 0 {
		client.dialOpts = append(client.dialOpts, grpc.WithStreamInterceptor(grpc_middleware.ChainStreamClient(config.StreamInterceptors...)))
	}
	return client, nil
}

func (client *GRPCClient) parseSecureOptions(opts SecureOptions) error {
	if !opts.UseTLS {
		return nil
	}

	client.tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	if len(opts.ServerRootCAs) > 0 {
		client.tlsConfig.RootCAs = x509.NewCertPool()
		for _, certBytes := range opts.ServerRootCAs {
			if err := AddPemToCertPool(certBytes, client.tlsConfig.RootCAs); err != nil {
				commLogger.Debugf("error adding root certificate: %v", err)
				return errors.WithMessage(err, "error adding root certificate")
			}
		}
	}
	if opts.RequireClientCert {
		if opts.Key == nil || opts.Certificate == nil {
			return errors.New("both Key and Certificate are required when using mutual TLS")
		}
		cert, err := tls.X509KeyPair(opts.Certificate, opts.Key)
		if err != nil {
			return errors.WithMessage(err, "failed to load client certificate")
		}
		client.tlsConfig.Certificates = append(client.tlsConfig.Certificates, cert)
	}
	return nil
}

// TLSEnabled is a flag indicating whether to use TLS for client
// connections
func (client *GRPCClient) TLSEnabled() bool {
	return client.tlsConfig != nil
}

// MutualTLSRequired is a flag indicating whether the client
// must send a certificate when using TLS
func (client *GRPCClient) MutualTLSRequired() bool {
	return client.tlsConfig != nil && len(client.tlsConfig.Certificates) > 0
}

// SetMaxRecvMsgSize sets the maximum message size the client can receive
func (client *GRPCClient) SetMaxRecvMsgSize(size int) {
	client.maxRecvMsgSize = size
}

// SetMaxSendMsgSize sets the maximum message size the client can send
func (client *GRPCClient) SetMaxSendMsgSize(size int) {
	client.maxSendMsgSize = size
}

// NewConnection returns a grpc.ClientConn for the target address. When
// serverNameOverride is not empty it is used to verify the server's
// certificate.
func (client *GRPCClient) NewConnection(address string, serverNameOverride string) (*grpc.ClientConn, error) {
	var dialOpts []grpc.DialOption
	dialOpts = append(dialOpts, client.dialOpts...)

	if client.tlsConfig != nil {
		tlsConfig := client.tlsConfig.Clone()
		tlsConfig.ServerName = serverNameOverride
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(credentials.NewTLS(tlsConfig)))
	} else {
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}
	dialOpts = append(dialOpts, grpc.WithDefaultCallOptions(
		grpc.MaxCallRecvMsgSize(client.maxRecvMsgSize),
		grpc.MaxCallSendMsgSize(client.maxSendMsgSize),
	))

	ctx, cancel := context.WithTimeout(context.Background(), client.timeout)
	defer cancel()
	conn, err := grpc.DialContext(ctx, address, dialOpts...)
	if err != nil {
		return nil, errors.WithMessage(errors.WithStack(err), "failed to create new connection")
	}
	return conn, nil
}
