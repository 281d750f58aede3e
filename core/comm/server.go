/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package comm

import (
	"crypto/tls"
	"crypto/x509"
	"net"

	grpc_middleware "github.com/grpc-ecosystem/go-grpc-middleware"
	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
)

// GRPCServer serves chaincode streams to the peer.
type GRPCServer struct {
	// Listen address for the server specified as hostname:port
	address string
	// Listener for handling network requests
	listener net.Listener
	// GRPC server
	server *grpc.Server
	// TLS configuration used by the grpc server
	tlsConfig *tls.Config
}

// NewGRPCServer creates a new implementation of a GRPCServer given a
// listen address
func NewGRPCServer(address string, serverConfig ServerConfig) (*GRPCServer, error) {
	if address == "" {
		return nil, errors.New("missing address parameter")
	}
	lis, err := net.Listen("tcp", address)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to listen on %s", address)
	}
	return NewGRPCServerFromListener(lis, serverConfig)
}

// NewGRPCServerFromListener creates a new implementation of a GRPCServer
// given an existing net.Listener instance using default keepalive
func NewGRPCServerFromListener(listener net.Listener, serverConfig ServerConfig) (*GRPCServer, error) {
	grpcServer := &GRPCServer{
		address:  listener.Addr().String(),
		listener: listener,
	}

	var serverOpts []grpc.ServerOption

	secureConfig := serverConfig.SecOpts
	if secureConfig.UseTLS {
		if secureConfig.Key == nil || secureConfig.Certificate == nil {
			return nil, errors.New("serverConfig.SecOpts must contain both Key and Certificate when UseTLS is true")
		}
		cert, err := tls.X509KeyPair(secureConfig.Certificate, secureConfig.Key)
		if err != nil {
			return nil, errors.Wrap(err, "failed to load server certificate")
		}
		if len(secureConfig.CipherSuites) == 0 {
			secureConfig.CipherSuites = DefaultTLSCipherSuites
		}
		grpcServer.tlsConfig = &tls.Config{
			Certificates:           []tls.Certificate{cert},
			SessionTicketsDisabled: true,
			CipherSuites:           secureConfig.CipherSuites,
			MinVersion:             tls.VersionTLS12,
			ClientAuth:             tls.RequestClientCert,
		}
		if secureConfig.RequireClientCert {
			grpcServer.tlsConfig.ClientAuth = tls.RequireAndVerifyClientCert
			grpcServer.tlsConfig.ClientCAs = x509.NewCertPool()
			for _, clientRootCA := range secureConfig.ClientRootCAs {
				if err := AddPemToCertPool(clientRootCA, grpcServer.tlsConfig.ClientCAs); err != nil {
					return nil, errors.WithMessage(err, "failed to append client root certificate(s)")
				}
			}
		}
		serverOpts = append(serverOpts, grpc.Creds(credentials.NewTLS(grpcServer.tlsConfig)))
	}

	serverOpts = append(serverOpts, grpc.MaxSendMsgSize(MaxSendMsgSize))
	serverOpts = append(serverOpts, grpc.MaxRecvMsgSize(MaxRecvMsgSize))
	serverOpts = append(serverOpts, serverConfig.KaOpts.orDefault().ServerKeepaliveOptions()...)
	if serverConfig.ConnectionTimeout <= 0 {
		serverConfig.ConnectionTimeout = DefaultConnectionTimeout
	}
	serverOpts = append(serverOpts, grpc.ConnectionTimeout(serverConfig.ConnectionTimeout))

	streamInterceptors := serverConfig.StreamInterceptors
	if serverConfig.MaxConcurrentStreams > 0 {
		throttle := NewStreamThrottle(serverConfig.MaxConcurrentStreams)
		streamInterceptors = append([]grpc.StreamServerInterceptor{throttle.Intercept}, streamInterceptors...)
	}
	if len(streamInterceptors) > 0 {
		serverOpts = append(serverOpts, grpc.StreamInterceptor(grpc_middleware.ChainStreamServer(streamInterceptors...)))
	}

	if serverConfig.MetricsProvider != nil {
		serverOpts = append(serverOpts, grpc.StatsHandler(NewServerStatsHandler(serverConfig.MetricsProvider)))
	}

	grpcServer.server = grpc.NewServer(serverOpts...)
	return grpcServer, nil
}

// Address returns the listen address for this GRPCServer instance
func (gServer *GRPCServer) Address() string {
	return gServer.address
}

// Listener returns the net.Listener for the GRPCServer instance
func (gServer *GRPCServer) Listener() net.Listener {
	return gServer.listener
}

// Server returns the grpc.Server for the GRPCServer instance
func (gServer *GRPCServer) Server() *grpc.Server {
	return gServer.server
}

// TLSEnabled is a flag indicating whether or not TLS is enabled for the
// GRPCServer instance
func (gServer *GRPCServer) TLSEnabled() bool {
	return gServer.tlsConfig != nil
}

// MutualTLSRequired is a flag indicating whether or not client certificates
// are required for this GRPCServer instance
func (gServer *GRPCServer) MutualTLSRequired() bool {
	return gServer.tlsConfig != nil && gServer.tlsConfig.ClientAuth == tls.RequireAndVerifyClientCert
}

// Start starts the underlying grpc.Server. It blocks until Stop is called.
func (gServer *GRPCServer) Start() error {
	return gServer.server.Serve(gServer.listener)
}

// Stop stops the underlying grpc.Server
func (gServer *GRPCServer) Stop() {
	gServer.server.Stop()
}
