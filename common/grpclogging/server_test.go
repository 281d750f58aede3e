/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package grpclogging_test

import (
	"context"
	"encoding/json"
	"io"

	"github.com/hyperledger/fabric-chaincode-shim/common/grpclogging"
	"github.com/hyperledger/fabric-chaincode-shim/core/comm"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

type echoSupport struct {
	pb.UnimplementedChaincodeSupportServer
	fields chan []zapcore.Field
	err    error
}

func (e *echoSupport) Register(stream pb.ChaincodeSupport_RegisterServer) error {
	e.fields <- grpclogging.Fields(stream.Context())
	msg, err := stream.Recv()
	if err != nil {
		return err
	}
	if err := stream.Send(msg); err != nil {
		return err
	}
	return e.err
}

var _ = Describe("StreamServerInterceptor", func() {
	var (
		observed *observer.ObservedLogs
		support  *echoSupport
		server   *comm.GRPCServer
		conn     *grpc.ClientConn
	)

	start := func(opts ...grpclogging.Option) {
		var core zapcore.Core
		core, observed = observer.New(zapcore.Level(grpclogging.PayloadLevel))
		interceptor := grpclogging.StreamServerInterceptor(zap.New(core), opts...)

		var err error
		server, err = comm.NewGRPCServer("127.0.0.1:0", comm.ServerConfig{
			StreamInterceptors: []grpc.StreamServerInterceptor{interceptor},
		})
		Expect(err).NotTo(HaveOccurred())
		pb.RegisterChaincodeSupportServer(server.Server(), support)
		go server.Start()

		conn, err = grpc.Dial(server.Address(), grpc.WithTransportCredentials(insecure.NewCredentials()))
		Expect(err).NotTo(HaveOccurred())
	}

	exchange := func() error {
		stream, err := pb.NewChaincodeSupportClient(conn).Register(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(stream.Send(&pb.ChaincodeMessage{Type: pb.ChaincodeMessage_REGISTER, Txid: "tx1"})).To(Succeed())
		_, err = stream.Recv()
		Expect(err).NotTo(HaveOccurred())
		_, err = stream.Recv()
		return err
	}

	BeforeEach(func() {
		support = &echoSupport{fields: make(chan []zapcore.Field, 1)}
	})

	AfterEach(func() {
		conn.Close()
		server.Stop()
	})

	It("logs the completed call with its fields", func() {
		start()
		Expect(exchange()).To(Equal(io.EOF))

		Eventually(func() int { return observed.FilterMessage("streaming call completed").Len() }).Should(Equal(1))
		entry := observed.FilterMessage("streaming call completed").All()[0]
		Expect(entry.Level).To(Equal(zapcore.InfoLevel))
		fields := entry.ContextMap()
		Expect(fields).To(HaveKeyWithValue("grpc.service", "protos.ChaincodeSupport"))
		Expect(fields).To(HaveKeyWithValue("grpc.method", "Register"))
		Expect(fields).To(HaveKeyWithValue("grpc.code", "OK"))
		Expect(fields).To(HaveKey("grpc.peer_address"))
		Expect(fields).To(HaveKey("grpc.call_duration"))
		Expect(fields).NotTo(HaveKey("error"))

		var ctxFields []zapcore.Field
		Eventually(support.fields).Should(Receive(&ctxFields))
		Expect(ctxFields).To(ContainElement(zap.String("grpc.method", "Register")))
	})

	It("logs payloads at the payload level", func() {
		start()
		Expect(exchange()).To(Equal(io.EOF))

		payloadEntries := func() int {
			n := 0
			for _, e := range observed.All() {
				if e.LoggerName == "payload" {
					n++
				}
			}
			return n
		}
		Eventually(payloadEntries).Should(Equal(2))
		received := observed.FilterMessage("received stream message").All()
		Expect(received).To(HaveLen(1))
		Expect(received[0].Level).To(Equal(zapcore.Level(grpclogging.PayloadLevel)))
		rendered, err := json.Marshal(received[0].ContextMap()["message"])
		Expect(err).NotTo(HaveOccurred())
		Expect(string(rendered)).To(ContainSubstring(`"txid":"tx1"`))
		Expect(observed.FilterMessage("sending stream message").Len()).To(Equal(1))
	})

	It("records the error and code of a failed call", func() {
		support.err = status.Error(codes.Unavailable, "going away")
		start(grpclogging.WithLevel(zapcore.WarnLevel), grpclogging.WithPayloadLevel(zapcore.DebugLevel))
		Expect(status.Code(exchange())).To(Equal(codes.Unavailable))

		Eventually(func() int { return observed.FilterMessage("streaming call completed").Len() }).Should(Equal(1))
		entry := observed.FilterMessage("streaming call completed").All()[0]
		Expect(entry.Level).To(Equal(zapcore.WarnLevel))
		Expect(entry.ContextMap()).To(HaveKeyWithValue("grpc.code", "Unavailable"))
		Expect(entry.ContextMap()).To(HaveKeyWithValue("error", "rpc error: code = Unavailable desc = going away"))
		Expect(observed.FilterMessage("received stream message").All()[0].Level).To(Equal(zapcore.DebugLevel))
	})
})
