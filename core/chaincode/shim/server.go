/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package shim

import (
	"net"
	"sync"

	"github.com/hyperledger/fabric-chaincode-shim/common/flogging"
	"github.com/hyperledger/fabric-chaincode-shim/common/grpclogging"
	"github.com/hyperledger/fabric-chaincode-shim/common/grpcmetrics"
	"github.com/hyperledger/fabric-chaincode-shim/common/metrics"
	"github.com/hyperledger/fabric-chaincode-shim/core/comm"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/pkg/errors"
	"google.golang.org/grpc"
)

// TLSProperties holds the PEM encoded material of a ChaincodeServer.
type TLSProperties struct {
	// Disabled serves without TLS. Key and Cert are required otherwise.
	Disabled bool
	Key      []byte
	Cert     []byte
	// ClientCACerts, when set, requires peers to present a certificate
	// issued by one of these CAs.
	ClientCACerts []byte
}

// ChaincodeServer serves a chaincode to peers that connect to it. Every
// connection gets its own TaskManager.
type ChaincodeServer struct {
	pb.UnimplementedChaincodeServer

	CCID     string
	Address  string
	CC       Chaincode
	TLSProps TLSProperties
	KaOpts   comm.KeepaliveOptions
	// MaxConnections bounds the peer connections served at once. Further
	// peers wait for a slot. Zero means no bound.
	MaxConnections int
	// Options configure the TaskManager of each connection.
	Options []Option
	// MetricsProvider records connection and task metrics when set.
	MetricsProvider metrics.Provider

	mutex    sync.Mutex
	server   *comm.GRPCServer
	managers map[*TaskManager]struct{}
	metrics  *TaskMetrics
	stopped  bool
}

// Connect runs the protocol on a stream opened by the peer.
func (cs *ChaincodeServer) Connect(stream pb.Chaincode_ConnectServer) error {
	tm, err := cs.newTaskManager()
	if err != nil {
		return err
	}
	defer cs.release(tm)

	if cert := comm.ExtractCertificateFromContext(stream.Context()); cert != nil {
		chaincodeLogger.Debugf("Peer connected with certificate of %s", cert.Subject)
	}

	err = tm.Chat(stream)
	chaincodeLogger.Debugf("Connection for chaincode %s ended: %s", cs.CCID, err)
	if errors.Is(err, ErrShutdown) {
		return nil
	}
	return err
}

func (cs *ChaincodeServer) newTaskManager() (*TaskManager, error) {
	cs.mutex.Lock()
	defer cs.mutex.Unlock()
	if cs.stopped {
		return nil, errors.WithMessage(ErrShutdown, "chaincode server stopped")
	}

	opts := []Option{WithMetrics(cs.metrics)}
	opts = append(opts, cs.Options...)
	tm, err := NewTaskManager(cs.CC, &pb.ChaincodeID{Name: cs.CCID}, opts...)
	if err != nil {
		return nil, err
	}
	cs.managers[tm] = struct{}{}
	return tm, nil
}

func (cs *ChaincodeServer) release(tm *TaskManager) {
	tm.Shutdown()
	cs.mutex.Lock()
	delete(cs.managers, tm)
	cs.mutex.Unlock()
}

func (cs *ChaincodeServer) serverConfig() (comm.ServerConfig, error) {
	config := comm.ServerConfig{
		KaOpts:               cs.KaOpts,
		MaxConcurrentStreams: cs.MaxConnections,
		StreamInterceptors: []grpc.StreamServerInterceptor{
			grpclogging.StreamServerInterceptor(flogging.MustGetLogger("shim.comm").Zap()),
		},
	}
	if cs.TLSProps.Disabled {
		return config, nil
	}
	if cs.TLSProps.Key == nil || cs.TLSProps.Cert == nil {
		return comm.ServerConfig{}, invalidArgument("key and cert must be provided when TLS is enabled")
	}
	config.SecOpts = comm.SecureOptions{
		UseTLS:      true,
		Key:         cs.TLSProps.Key,
		Certificate: cs.TLSProps.Cert,
	}
	if cs.TLSProps.ClientCACerts != nil {
		config.SecOpts.RequireClientCert = true
		config.SecOpts.ClientRootCAs = [][]byte{cs.TLSProps.ClientCACerts}
	}
	return config, nil
}

// Listen validates the server and binds its address. It is called by Start
// when the server is not listening yet.
func (cs *ChaincodeServer) Listen() error {
	if cs.CCID == "" {
		return invalidArgument("ccid must be specified")
	}
	if cs.Address == "" {
		return invalidArgument("address must be specified")
	}
	if cs.CC == nil {
		return invalidArgument("chaincode must be specified")
	}
	config, err := cs.serverConfig()
	if err != nil {
		return err
	}

	cs.mutex.Lock()
	defer cs.mutex.Unlock()
	if cs.server != nil {
		return errors.New("chaincode server already listening")
	}

	cs.metrics = nil
	if cs.MetricsProvider != nil {
		config.MetricsProvider = cs.MetricsProvider
		config.StreamInterceptors = append(config.StreamInterceptors,
			grpcmetrics.StreamServerInterceptor(grpcmetrics.NewStreamMetrics(cs.MetricsProvider)))
		cs.metrics = NewTaskMetrics(cs.MetricsProvider)
	}

	lis, err := net.Listen("tcp", cs.Address)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", cs.Address)
	}
	server, err := comm.NewGRPCServerFromListener(lis, config)
	if err != nil {
		lis.Close()
		return err
	}
	cs.managers = map[*TaskManager]struct{}{}
	cs.server = server
	pb.RegisterChaincodeServer(server.Server(), cs)
	return nil
}

// ListenAddress returns the bound address, or "" before Listen.
func (cs *ChaincodeServer) ListenAddress() string {
	cs.mutex.Lock()
	defer cs.mutex.Unlock()
	if cs.server == nil {
		return ""
	}
	return cs.server.Address()
}

// Start serves peer connections until Stop is called.
func (cs *ChaincodeServer) Start() error {
	cs.mutex.Lock()
	listening := cs.server != nil
	cs.mutex.Unlock()
	if !listening {
		if err := cs.Listen(); err != nil {
			return err
		}
	}

	chaincodeLogger.Infof("Chaincode %s listening on %s", cs.CCID, cs.ListenAddress())
	cs.mutex.Lock()
	server := cs.server
	cs.mutex.Unlock()
	return server.Start()
}

// Stop closes the listener and shuts down every connection.
func (cs *ChaincodeServer) Stop() {
	cs.mutex.Lock()
	cs.stopped = true
	server := cs.server
	managers := make([]*TaskManager, 0, len(cs.managers))
	for tm := range cs.managers {
		managers = append(managers, tm)
	}
	cs.mutex.Unlock()

	for _, tm := range managers {
		tm.Shutdown()
	}
	if server != nil {
		server.Stop()
	}
}
