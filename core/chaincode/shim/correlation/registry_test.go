/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package correlation_test

import (
	"context"
	"time"

	"github.com/hyperledger/fabric-chaincode-shim/core/chaincode/shim/correlation"
	"github.com/hyperledger/fabric-chaincode-shim/core/chaincode/shim/message"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
)

var _ = Describe("Registry", func() {
	var (
		registry *correlation.Registry
		key      message.Key
	)

	BeforeEach(func() {
		registry = correlation.NewRegistry()
		key = message.Key{ChannelID: "ch", TxID: "tx1"}
	})

	waitAsync := func(w *correlation.Waiter, ctx context.Context) (<-chan *pb.ChaincodeMessage, <-chan error) {
		msgCh := make(chan *pb.ChaincodeMessage, 1)
		errCh := make(chan error, 1)
		go func() {
			msg, err := w.Wait(ctx)
			msgCh <- msg
			errCh <- err
		}()
		return msgCh, errCh
	}

	Describe("Register", func() {
		It("tracks the pending request", func() {
			_, err := registry.Register(key, pb.ChaincodeMessage_RESPONSE)
			Expect(err).NotTo(HaveOccurred())
			Expect(registry.Pending()).To(Equal(1))
		})

		It("rejects a second request for the same key", func() {
			_, err := registry.Register(key, pb.ChaincodeMessage_RESPONSE)
			Expect(err).NotTo(HaveOccurred())

			_, err = registry.Register(key, pb.ChaincodeMessage_RESPONSE)
			Expect(err).To(MatchError("txid: tx1(ch) exists: duplicate outstanding request"))
			Expect(errors.Is(err, correlation.ErrDuplicateOutstandingRequest)).To(BeTrue())
			Expect(registry.Pending()).To(Equal(1))
		})

		It("allows the same txid on another channel", func() {
			_, err := registry.Register(key, pb.ChaincodeMessage_RESPONSE)
			Expect(err).NotTo(HaveOccurred())
			_, err = registry.Register(message.Key{ChannelID: "other", TxID: "tx1"}, pb.ChaincodeMessage_RESPONSE)
			Expect(err).NotTo(HaveOccurred())
			Expect(registry.Pending()).To(Equal(2))
		})

		It("allows a new request once the previous one resolved", func() {
			_, err := registry.Register(key, pb.ChaincodeMessage_RESPONSE)
			Expect(err).NotTo(HaveOccurred())
			Expect(registry.Resolve(&pb.ChaincodeMessage{Type: pb.ChaincodeMessage_RESPONSE, ChannelId: "ch", Txid: "tx1"})).To(BeTrue())

			_, err = registry.Register(key, pb.ChaincodeMessage_RESPONSE)
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("Resolve", func() {
		It("delivers the expected response to the waiter", func() {
			w, err := registry.Register(key, pb.ChaincodeMessage_RESPONSE)
			Expect(err).NotTo(HaveOccurred())

			resp := &pb.ChaincodeMessage{Type: pb.ChaincodeMessage_RESPONSE, ChannelId: "ch", Txid: "tx1", Payload: []byte("v")}
			Expect(registry.Resolve(resp)).To(BeTrue())
			Expect(registry.Pending()).To(Equal(0))

			msg, err := w.Wait(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(msg).To(Equal(resp))
		})

		It("always accepts an ERROR for the key", func() {
			w, err := registry.Register(key, pb.ChaincodeMessage_RESPONSE)
			Expect(err).NotTo(HaveOccurred())

			Expect(registry.Resolve(&pb.ChaincodeMessage{Type: pb.ChaincodeMessage_ERROR, ChannelId: "ch", Txid: "tx1"})).To(BeTrue())
			msg, err := w.Wait(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(msg.Type).To(Equal(pb.ChaincodeMessage_ERROR))
		})

		It("leaves unexpected types alone", func() {
			_, err := registry.Register(key, pb.ChaincodeMessage_RESPONSE)
			Expect(err).NotTo(HaveOccurred())

			Expect(registry.Resolve(&pb.ChaincodeMessage{Type: pb.ChaincodeMessage_TRANSACTION, ChannelId: "ch", Txid: "tx1"})).To(BeFalse())
			Expect(registry.Pending()).To(Equal(1))
		})

		It("ignores unknown keys", func() {
			Expect(registry.Resolve(&pb.ChaincodeMessage{Type: pb.ChaincodeMessage_RESPONSE, ChannelId: "ch", Txid: "nope"})).To(BeFalse())
			Expect(registry.Resolve(nil)).To(BeFalse())
		})

		It("does not cross channels", func() {
			_, err := registry.Register(key, pb.ChaincodeMessage_RESPONSE)
			Expect(err).NotTo(HaveOccurred())
			Expect(registry.Resolve(&pb.ChaincodeMessage{Type: pb.ChaincodeMessage_RESPONSE, ChannelId: "other", Txid: "tx1"})).To(BeFalse())
		})
	})

	Describe("CancelAll", func() {
		It("unblocks every waiter with the reason", func() {
			w1, err := registry.Register(key, pb.ChaincodeMessage_RESPONSE)
			Expect(err).NotTo(HaveOccurred())
			w2, err := registry.Register(message.Key{ChannelID: "ch", TxID: "tx2"}, pb.ChaincodeMessage_RESPONSE)
			Expect(err).NotTo(HaveOccurred())

			_, errCh1 := waitAsync(w1, context.Background())
			_, errCh2 := waitAsync(w2, context.Background())
			Consistently(errCh1).ShouldNot(Receive())

			reason := errors.New("connection lost")
			registry.CancelAll(reason)
			Eventually(errCh1).Should(Receive(Equal(reason)))
			Eventually(errCh2).Should(Receive(Equal(reason)))
			Expect(registry.Pending()).To(Equal(0))
		})

		It("refuses later registrations", func() {
			reason := errors.New("shutdown")
			registry.CancelAll(reason)
			registry.CancelAll(errors.New("second"))

			_, err := registry.Register(key, pb.ChaincodeMessage_RESPONSE)
			Expect(err).To(Equal(reason))
		})
	})

	Describe("Wait", func() {
		It("cancels only the waiter whose context ended", func() {
			w1, err := registry.Register(key, pb.ChaincodeMessage_RESPONSE)
			Expect(err).NotTo(HaveOccurred())
			w2, err := registry.Register(message.Key{ChannelID: "ch", TxID: "tx2"}, pb.ChaincodeMessage_RESPONSE)
			Expect(err).NotTo(HaveOccurred())

			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			_, errCh1 := waitAsync(w1, ctx)
			msgCh2, errCh2 := waitAsync(w2, context.Background())

			var err1 error
			Eventually(errCh1).Should(Receive(&err1))
			Expect(errors.Is(err1, correlation.ErrRequestCancelled)).To(BeTrue())
			Expect(errors.Is(err1, context.DeadlineExceeded)).To(BeTrue())
			Expect(err1.Error()).To(ContainSubstring("request for [tx1] on channel [ch] cancelled"))

			Expect(registry.Pending()).To(Equal(1))
			Expect(registry.Abandoned()).To(Equal(1))
			Consistently(errCh2).ShouldNot(Receive())

			Expect(registry.Resolve(&pb.ChaincodeMessage{Type: pb.ChaincodeMessage_RESPONSE, ChannelId: "ch", Txid: "tx2"})).To(BeTrue())
			Eventually(msgCh2).Should(Receive(Not(BeNil())))
			Eventually(errCh2).Should(Receive(BeNil()))
		})

		It("returns a response delivered before the context ended", func() {
			w, err := registry.Register(key, pb.ChaincodeMessage_RESPONSE)
			Expect(err).NotTo(HaveOccurred())
			Expect(registry.Resolve(&pb.ChaincodeMessage{Type: pb.ChaincodeMessage_RESPONSE, ChannelId: "ch", Txid: "tx1"})).To(BeTrue())

			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			// either branch of the select must yield the delivered response
			msg, err := w.Wait(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(msg.Type).To(Equal(pb.ChaincodeMessage_RESPONSE))
		})
	})

	Describe("abandoned requests", func() {
		var late *pb.ChaincodeMessage

		BeforeEach(func() {
			w, err := registry.Register(key, pb.ChaincodeMessage_RESPONSE)
			Expect(err).NotTo(HaveOccurred())
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err = w.Wait(ctx)
			Expect(errors.Is(err, correlation.ErrRequestCancelled)).To(BeTrue())
			w.Cancel()

			late = &pb.ChaincodeMessage{Type: pb.ChaincodeMessage_RESPONSE, ChannelId: "ch", Txid: "tx1", Payload: []byte("late")}
		})

		It("keeps the key reserved until the late reply arrives", func() {
			_, err := registry.Register(key, pb.ChaincodeMessage_RESPONSE)
			Expect(err).To(MatchError("txid: tx1(ch): abandoned request awaiting peer response"))
			Expect(errors.Is(err, correlation.ErrAbandonedRequest)).To(BeTrue())
			Expect(registry.Pending()).To(Equal(0))
			Expect(registry.Abandoned()).To(Equal(1))

			Expect(registry.Resolve(late)).To(BeTrue())
			Expect(registry.Abandoned()).To(Equal(0))

			w, err := registry.Register(key, pb.ChaincodeMessage_RESPONSE)
			Expect(err).NotTo(HaveOccurred())
			_, errCh := waitAsync(w, context.Background())
			Consistently(errCh).ShouldNot(Receive())
		})

		It("discards a late ERROR too", func() {
			late.Type = pb.ChaincodeMessage_ERROR
			Expect(registry.Resolve(late)).To(BeTrue())
			Expect(registry.Abandoned()).To(Equal(0))
		})

		It("frees the key on release", func() {
			registry.Release(key)
			Expect(registry.Abandoned()).To(Equal(0))
			Expect(registry.Resolve(late)).To(BeFalse())

			_, err := registry.Register(key, pb.ChaincodeMessage_RESPONSE)
			Expect(err).NotTo(HaveOccurred())
			registry.Release(key)
			Expect(registry.Pending()).To(Equal(1))
		})

		It("is dropped by CancelAll", func() {
			registry.CancelAll(errors.New("shutdown"))
			Expect(registry.Abandoned()).To(Equal(0))
		})
	})

	Describe("Cancel", func() {
		It("releases the key", func() {
			w, err := registry.Register(key, pb.ChaincodeMessage_RESPONSE)
			Expect(err).NotTo(HaveOccurred())
			w.Cancel()
			w.Cancel()
			Expect(registry.Pending()).To(Equal(0))
			Expect(registry.Resolve(&pb.ChaincodeMessage{Type: pb.ChaincodeMessage_RESPONSE, ChannelId: "ch", Txid: "tx1"})).To(BeFalse())

			_, err = registry.Register(key, pb.ChaincodeMessage_RESPONSE)
			Expect(err).NotTo(HaveOccurred())
		})

		It("does not release a newer request under the same key", func() {
			w, err := registry.Register(key, pb.ChaincodeMessage_RESPONSE)
			Expect(err).NotTo(HaveOccurred())
			w.Cancel()
			_, err = registry.Register(key, pb.ChaincodeMessage_RESPONSE)
			Expect(err).NotTo(HaveOccurred())

			w.Cancel()
			Expect(registry.Pending()).To(Equal(1))
		})
	})
})
