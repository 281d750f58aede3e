/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package grpcmetrics records metrics for streaming gRPC calls. The
// chaincode protocol runs over a single bidirectional stream per
// connection, so only stream interceptors are provided.
package grpcmetrics

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/hyperledger/fabric-chaincode-shim/common/metrics"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

var (
	streamsOpened = metrics.CounterOpts{
		Namespace:  "grpc",
		Subsystem:  "stream",
		Name:       "opened",
		Help:       "The number of streams opened.",
		LabelNames: []string{"side", "service", "method"},
	}
	streamsClosed = metrics.CounterOpts{
		Namespace:  "grpc",
		Subsystem:  "stream",
		Name:       "closed",
		Help:       "The number of streams closed.",
		LabelNames: []string{"side", "service", "method", "code"},
	}
	streamDuration = metrics.HistogramOpts{
		Namespace:  "grpc",
		Subsystem:  "stream",
		Name:       "duration",
		Help:       "The lifetime of a stream in seconds.",
		LabelNames: []string{"side", "service", "method", "code"},
	}
	messagesSent = metrics.CounterOpts{
		Namespace:  "grpc",
		Subsystem:  "stream",
		Name:       "messages_sent",
		Help:       "The number of stream messages sent.",
		LabelNames: []string{"side", "service", "method"},
	}
	messagesReceived = metrics.CounterOpts{
		Namespace:  "grpc",
		Subsystem:  "stream",
		Name:       "messages_received",
		Help:       "The number of stream messages received.",
		LabelNames: []string{"side", "service", "method"},
	}
)

type StreamMetrics struct {
	Opened           metrics.Counter
	Closed           metrics.Counter
	Duration         metrics.Histogram
	MessagesSent     metrics.Counter
	MessagesReceived metrics.Counter
}

func NewStreamMetrics(p metrics.Provider) *StreamMetrics {
	return &StreamMetrics{
		Opened:           p.NewCounter(streamsOpened),
		Closed:           p.NewCounter(streamsClosed),
		Duration:         p.NewHistogram(streamDuration),
		MessagesSent:     p.NewCounter(messagesSent),
		MessagesReceived: p.NewCounter(messagesReceived),
	}
}

// StreamServerInterceptor counts the streams a server handles and the
// messages they carry.
func StreamServerInterceptor(sm *StreamMetrics) grpc.StreamServerInterceptor {
	return func(svc interface{}, stream grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		labels := labels("server", info.FullMethod)
		sm.Opened.With(labels...).Add(1)

		startTime := time.Now()
		err := handler(svc, &serverStream{
			ServerStream: stream,
			counters:     sm.counters(labels),
		})
		sm.closed(labels, err, time.Since(startTime))
		return err
	}
}

// StreamClientInterceptor counts the streams a client opens and the
// messages they carry. A stream is closed when RecvMsg fails.
func StreamClientInterceptor(sm *StreamMetrics) grpc.StreamClientInterceptor {
	return func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, streamer grpc.Streamer, opts ...grpc.CallOption) (grpc.ClientStream, error) {
		labels := labels("client", method)
		startTime := time.Now()
		stream, err := streamer(ctx, desc, cc, method, opts...)
		if err != nil {
			sm.closed(labels, err, time.Since(startTime))
			return nil, err
		}
		sm.Opened.With(labels...).Add(1)
		return &clientStream{
			ClientStream: stream,
			counters:     sm.counters(labels),
			closed: func(err error) {
				sm.closed(labels, err, time.Since(startTime))
			},
		}, nil
	}
}

func (sm *StreamMetrics) counters(labels []string) counters {
	return counters{
		sent:     sm.MessagesSent.With(labels...),
		received: sm.MessagesReceived.With(labels...),
	}
}

func (sm *StreamMetrics) closed(labels []string, err error, d time.Duration) {
	labels = append(labels, "code", status.Code(err).String())
	sm.Duration.With(labels...).Observe(d.Seconds())
	sm.Closed.With(labels...).Add(1)
}

func labels(side, fullMethod string) []string {
	service, method := serviceMethod(fullMethod)
	return []string{"side", side, "service", service, "method", method}
}

func serviceMethod(fullMethod string) (service, method string) {
	parts := strings.Split(strings.Replace(fullMethod, ".", "_", -1), "/")
	if len(parts) != 3 {
		return "unknown", "unknown"
	}
	return parts[1], parts[2]
}

type counters struct {
	sent     metrics.Counter
	received metrics.Counter
}

type serverStream struct {
	grpc.ServerStream
	counters
}

func (ss *serverStream) SendMsg(msg interface{}) error {
	ss.sent.Add(1)
	return ss.ServerStream.SendMsg(msg)
}

func (ss *serverStream) RecvMsg(msg interface{}) error {
	err := ss.ServerStream.RecvMsg(msg)
	if err == nil {
		ss.received.Add(1)
	}
	return err
}

type clientStream struct {
	grpc.ClientStream
	counters
	once   sync.Once
	closed func(error)
}

func (cs *clientStream) SendMsg(msg interface{}) error {
	err := cs.ClientStream.SendMsg(msg)
	if err == nil {
		cs.sent.Add(1)
	}
	return err
}

func (cs *clientStream) RecvMsg(msg interface{}) error {
	err := cs.ClientStream.RecvMsg(msg)
	switch err {
	case nil:
		cs.received.Add(1)
	case io.EOF:
		cs.once.Do(func() { cs.closed(nil) })
	default:
		cs.once.Do(func() { cs.closed(err) })
	}
	return err
}
