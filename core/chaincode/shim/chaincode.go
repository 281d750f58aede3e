/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package shim runs a chaincode against a peer. It registers the chaincode,
// executes every INIT and TRANSACTION in its own task and carries the
// requests those tasks make back to the peer.
package shim

import (
	"context"
	"os"

	"github.com/hyperledger/fabric-chaincode-shim/common/grpcmetrics"
	"github.com/hyperledger/fabric-chaincode-shim/core/comm"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"google.golang.org/grpc"
)

// Start connects to the peer configured by the CORE environment and serves
// cc until the connection ends.
func Start(cc Chaincode) error {
	SetupChaincodeLogging()

	config, err := LoadConfig(NewViper())
	if err != nil {
		return err
	}
	return StartWithConfig(context.Background(), config, cc)
}

// StartWithConfig dials peer.address and serves cc until the connection
// ends or ctx is done. A done context shuts the connection down and the
// returned error matches ErrShutdown.
func StartWithConfig(ctx context.Context, config *Config, cc Chaincode, opts ...Option) (err error) {
	setupLoggingOnce(config.Chaincode.Logging)

	clientConfig, err := config.ClientConfig()
	if err != nil {
		return err
	}
	if config.MetricsProvider != nil {
		clientConfig.StreamInterceptors = append(clientConfig.StreamInterceptors,
			grpcmetrics.StreamClientInterceptor(grpcmetrics.NewStreamMetrics(config.MetricsProvider)))
		opts = append([]Option{WithMetrics(NewTaskMetrics(config.MetricsProvider))}, opts...)
	}
	conn, err := dialPeer(config.Peer.Address, clientConfig)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, conn.Close())
	}()

	tm, err := NewTaskManager(cc, &pb.ChaincodeID{Name: config.Chaincode.ID.Name}, append(config.Options(), opts...)...)
	if err != nil {
		return err
	}

	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stream, err := pb.NewChaincodeSupportClient(conn).Register(streamCtx)
	if err != nil {
		return errors.WithMessagef(err, "error chatting with leader at address=%s", config.Peer.Address)
	}

	go func() {
		select {
		case <-ctx.Done():
			tm.Shutdown()
			cancel()
		case <-tm.Done():
		}
	}()

	return tm.Chat(stream)
}

func dialPeer(address string, config comm.ClientConfig) (*grpc.ClientConn, error) {
	chaincodeLogger.Debugf("Peer address: %s", address)
	client, err := comm.NewGRPCClient(config)
	if err != nil {
		return nil, errors.WithMessage(err, "error trying to connect to local peer")
	}
	conn, err := client.NewConnection(address, "")
	if err != nil {
		return nil, errors.WithMessage(err, "error trying to connect to local peer")
	}
	chaincodeLogger.Debugf("os.Args returns: %s", os.Args)
	return conn, nil
}

// StartInProc serves cc to a peer in the same process. Messages from the
// peer arrive on recv and messages to the peer are written to send.
func StartInProc(name string, cc Chaincode, recv <-chan *pb.ChaincodeMessage, send chan<- *pb.ChaincodeMessage, opts ...Option) error {
	if name == "" {
		return invalidArgument("chaincode id not provided")
	}
	chaincodeLogger.Debugf("starting chat with peer using name=%s", name)

	tm, err := NewTaskManager(cc, &pb.ChaincodeID{Name: name}, opts...)
	if err != nil {
		return err
	}
	return tm.Chat(newInProcStream(recv, send))
}
