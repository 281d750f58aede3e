/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package shim_test

import (
	"context"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/hyperledger/fabric-chaincode-shim/common/crypto/tlsgen"
	"github.com/hyperledger/fabric-chaincode-shim/common/metrics/disabled"
	mockpeer "github.com/hyperledger/fabric-chaincode-shim/common/mocks/peer"
	"github.com/hyperledger/fabric-chaincode-shim/core/chaincode/shim"
	"github.com/hyperledger/fabric-chaincode-shim/core/chaincode/shim/fakes"
	"github.com/hyperledger/fabric-chaincode-shim/core/chaincode/shim/message"
	"github.com/hyperledger/fabric-chaincode-shim/core/comm"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"google.golang.org/grpc"
)

// peerStream is the peer end of a chaincode connection.
type peerStream interface {
	Send(*pb.ChaincodeMessage) error
	Recv() (*pb.ChaincodeMessage, error)
}

// handshake plays the peer side of registration for the chaincode named
// name.
func handshake(stream peerStream, name string) {
	reg, err := stream.Recv()
	Expect(err).NotTo(HaveOccurred())
	Expect(reg.Type).To(Equal(pb.ChaincodeMessage_REGISTER))
	id := &pb.ChaincodeID{}
	Expect(proto.Unmarshal(reg.Payload, id)).To(Succeed())
	Expect(id.Name).To(Equal(name))

	Expect(stream.Send(message.NewRegistered())).To(Succeed())
	Expect(stream.Send(message.NewReady())).To(Succeed())
}

// roundTrip sends a transaction and returns the terminal reply.
func roundTrip(stream peerStream, txID string) *pb.ChaincodeMessage {
	Expect(stream.Send(transaction("ch", txID, "invoke"))).To(Succeed())
	for {
		msg, err := stream.Recv()
		Expect(err).NotTo(HaveOccurred())
		if msg.Type == pb.ChaincodeMessage_KEEPALIVE {
			continue
		}
		Expect(msg.Txid).To(Equal(txID))
		return msg
	}
}

var _ = Describe("Chaincode entry points", func() {
	var fakeCC *fakes.Chaincode

	BeforeEach(func() {
		fakeCC = &fakes.Chaincode{}
		fakeCC.InvokeReturns(shim.Success([]byte("ok")))
	})

	Describe("StartWithConfig", func() {
		var (
			server  *comm.GRPCServer
			support *mockpeer.MockChaincodeSupport
			config  *shim.Config
			comms   chan *mockpeer.MockCCComm
		)

		BeforeEach(func() {
			var err error
			server, err = comm.NewGRPCServer("127.0.0.1:0", comm.ServerConfig{})
			Expect(err).NotTo(HaveOccurred())

			comms = make(chan *mockpeer.MockCCComm, 1)
			support = &mockpeer.MockChaincodeSupport{
				Streams: comms,
				NewComm: func(mcc *mockpeer.MockCCComm) {
					mcc.SetResponses(&mockpeer.MockResponseSet{
						// READY and the transaction follow REGISTERED
						DoneFunc: func(int, error) {
							go func() {
								mcc.Send(message.NewReady())
								mcc.Send(transaction("ch", "tx1", "invoke"))
							}()
						},
						Responses: []*mockpeer.MockResponse{
							{RecvMsg: &pb.ChaincodeMessage{Type: pb.ChaincodeMessage_REGISTER}, RespMsg: message.NewRegistered()},
						},
					})
				},
			}
			pb.RegisterChaincodeSupportServer(server.Server(), support)
			go server.Start()

			config = &shim.Config{}
			config.Chaincode.ID.Name = "mycc"
			config.Chaincode.Logging.Level = "info"
			config.Peer.Address = server.Address()
		})

		AfterEach(func() {
			server.Stop()
		})

		completed := func(mcc *mockpeer.MockCCComm) func() *pb.ChaincodeMessage {
			return func() *pb.ChaincodeMessage {
				for _, msg := range mcc.Received() {
					if msg.Type == pb.ChaincodeMessage_COMPLETED {
						return msg
					}
				}
				return nil
			}
		}

		It("serves transactions until the context is done", func() {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			errCh := make(chan error, 1)
			go func() { errCh <- shim.StartWithConfig(ctx, config, fakeCC) }()

			var mcc *mockpeer.MockCCComm
			Eventually(comms).Should(Receive(&mcc))
			Eventually(completed(mcc)).ShouldNot(BeNil())
			msg := completed(mcc)()
			Expect(msg.Txid).To(Equal("tx1"))
			Expect(completedResponse(msg).Payload).To(Equal([]byte("ok")))
			Expect(fakeCC.InvokeCallCount()).To(Equal(1))

			cancel()
			var err error
			Eventually(errCh).Should(Receive(&err))
			Expect(err).To(MatchError(shim.ErrShutdown))
		})

		It("returns a transport error when the peer ends the stream", func() {
			errCh := make(chan error, 1)
			go func() { errCh <- shim.StartWithConfig(context.Background(), config, fakeCC) }()

			var mcc *mockpeer.MockCCComm
			Eventually(comms).Should(Receive(&mcc))
			Eventually(completed(mcc)).ShouldNot(BeNil())
			mcc.Quit()

			var err error
			Eventually(errCh).Should(Receive(&err))
			Expect(err).To(MatchError(shim.ErrConnectionLost))
		})

		It("fails without a peer address", func() {
			config.Peer.Address = ""
			err := shim.StartWithConfig(context.Background(), config, fakeCC)
			Expect(err).To(MatchError(shim.ErrInvalidArgument))
		})
	})

	Describe("StartInProc", func() {
		It("serves a peer in the same process", func() {
			support := mockpeer.NewMockPeerSupport()
			recv := make(chan *pb.ChaincodeMessage)
			send := make(chan *pb.ChaincodeMessage)
			ccSide, err := support.AddCC("incc", recv, send)
			Expect(err).NotTo(HaveOccurred())
			peerSide := support.GetCCMirror("incc")

			errCh := make(chan error, 1)
			go func() { errCh <- shim.StartInProc("incc", fakeCC, recv, send) }()

			handshake(peerSide, "incc")
			msg := roundTrip(peerSide, "tx1")
			Expect(completedResponse(msg).Payload).To(Equal([]byte("ok")))

			ccSide.Quit()
			Eventually(errCh).Should(Receive(MatchError(shim.ErrConnectionLost)))
			Expect(support.RemoveCC("incc")).To(Succeed())
		})

		It("requires a name", func() {
			err := shim.StartInProc("", fakeCC, nil, nil)
			Expect(err).To(MatchError(shim.ErrInvalidArgument))
		})
	})

	Describe("ChaincodeServer", func() {
		var (
			cs    *shim.ChaincodeServer
			conns []*grpc.ClientConn
		)

		BeforeEach(func() {
			conns = nil
			cs = &shim.ChaincodeServer{
				CCID:            "mycc",
				Address:         "127.0.0.1:0",
				CC:              fakeCC,
				TLSProps:        shim.TLSProperties{Disabled: true},
				MetricsProvider: &disabled.Provider{},
			}
		})

		AfterEach(func() {
			for _, conn := range conns {
				conn.Close()
			}
			cs.Stop()
		})

		connect := func(config comm.ClientConfig) pb.Chaincode_ConnectClient {
			client, err := comm.NewGRPCClient(config)
			Expect(err).NotTo(HaveOccurred())
			conn, err := client.NewConnection(cs.ListenAddress(), "")
			Expect(err).NotTo(HaveOccurred())
			conns = append(conns, conn)

			stream, err := pb.NewChaincodeClient(conn).Connect(context.Background())
			Expect(err).NotTo(HaveOccurred())
			return stream
		}

		It("runs the protocol for a connecting peer", func() {
			Expect(cs.Listen()).To(Succeed())
			go cs.Start()

			stream := connect(comm.ClientConfig{Timeout: 5 * time.Second})
			handshake(stream, "mycc")
			msg := roundTrip(stream, "tx1")
			Expect(completedResponse(msg).Payload).To(Equal([]byte("ok")))

			cs.Stop()
			Eventually(func() error {
				_, err := stream.Recv()
				return err
			}).Should(HaveOccurred())
		})

		It("makes further peers wait while MaxConnections are served", func() {
			cs.MaxConnections = 1
			Expect(cs.Listen()).To(Succeed())
			go cs.Start()

			first := connect(comm.ClientConfig{Timeout: 5 * time.Second})
			handshake(first, "mycc")

			second := connect(comm.ClientConfig{Timeout: 5 * time.Second})
			registered := make(chan *pb.ChaincodeMessage, 1)
			go func() {
				if msg, err := second.Recv(); err == nil {
					registered <- msg
				}
			}()
			Consistently(registered, 200*time.Millisecond).ShouldNot(Receive())

			Expect(first.CloseSend()).To(Succeed())
			var reg *pb.ChaincodeMessage
			Eventually(registered, 5*time.Second).Should(Receive(&reg))
			Expect(reg.Type).To(Equal(pb.ChaincodeMessage_REGISTER))
		})

		It("requires mutual TLS when client CAs are set", func() {
			ca, err := tlsgen.NewCA()
			Expect(err).NotTo(HaveOccurred())
			serverPair, err := ca.NewServerCertKeyPair("127.0.0.1")
			Expect(err).NotTo(HaveOccurred())
			clientPair, err := ca.NewClientCertKeyPair()
			Expect(err).NotTo(HaveOccurred())

			cs.TLSProps = shim.TLSProperties{Key: serverPair.Key, Cert: serverPair.Cert, ClientCACerts: ca.CertBytes()}
			Expect(cs.Listen()).To(Succeed())
			go cs.Start()

			stream := connect(comm.ClientConfig{
				Timeout: 5 * time.Second,
				SecOpts: comm.SecureOptions{
					UseTLS:            true,
					RequireClientCert: true,
					Key:               clientPair.Key,
					Certificate:       clientPair.Cert,
					ServerRootCAs:     [][]byte{ca.CertBytes()},
				},
			})
			handshake(stream, "mycc")
			msg := roundTrip(stream, "tx1")
			Expect(msg.Type).To(Equal(pb.ChaincodeMessage_COMPLETED))
		})

		It("validates its fields", func() {
			cs.CCID = ""
			Expect(cs.Listen()).To(MatchError(ContainSubstring("ccid must be specified")))
			cs.CCID = "mycc"
			cs.CC = nil
			Expect(cs.Listen()).To(MatchError(ContainSubstring("chaincode must be specified")))
			cs.CC = fakeCC
			cs.TLSProps = shim.TLSProperties{}
			Expect(cs.Listen()).To(MatchError(ContainSubstring("key and cert must be provided")))
			Expect(cs.ListenAddress()).To(BeEmpty())
		})

		It("refuses to listen twice", func() {
			Expect(cs.Listen()).To(Succeed())
			Expect(cs.Listen()).To(MatchError("chaincode server already listening"))
		})
	})
})
