/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package grpclogging logs the lifecycle of streaming gRPC calls and,
// at a level below debug, the messages they carry.
package grpclogging

import (
	"context"
	"strings"
	"time"

	"github.com/golang/protobuf/jsonpb"
	"github.com/golang/protobuf/proto"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// PayloadLevel is the default level of message logging. It is below debug
// so payloads are only written when explicitly enabled.
const PayloadLevel = zapcore.DebugLevel - 1

type options struct {
	level        zapcore.Level
	payloadLevel zapcore.Level
}

type Option func(o *options)

// WithLevel sets the level of the call completion entry.
func WithLevel(l zapcore.Level) Option {
	return func(o *options) { o.level = l }
}

// WithPayloadLevel sets the level of the per message entries.
func WithPayloadLevel(l zapcore.Level) Option {
	return func(o *options) { o.payloadLevel = l }
}

type fieldKeyType struct{}

var fieldKey = &fieldKeyType{}

// Fields returns the call fields attached to ctx by the interceptor.
func Fields(ctx context.Context) []zapcore.Field {
	fields, _ := ctx.Value(fieldKey).([]zapcore.Field)
	return fields
}

func StreamServerInterceptor(logger *zap.Logger, opts ...Option) grpc.StreamServerInterceptor {
	o := &options{level: zapcore.InfoLevel, payloadLevel: PayloadLevel}
	for _, opt := range opts {
		opt(o)
	}

	return func(service interface{}, stream grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		startTime := time.Now()
		fields := callFields(stream.Context(), info.FullMethod)
		logger := logger.With(fields...)

		err := handler(service, &serverStream{
			ServerStream:  stream,
			context:       context.WithValue(stream.Context(), fieldKey, fields),
			payloadLogger: logger.Named("payload"),
			payloadLevel:  o.payloadLevel,
		})
		if ce := logger.Check(o.level, "streaming call completed"); ce != nil {
			ce.Write(
				errorField(err),
				zap.Stringer("grpc.code", status.Code(err)),
				zap.Duration("grpc.call_duration", time.Since(startTime)),
			)
		}
		return err
	}
}

func callFields(ctx context.Context, method string) []zapcore.Field {
	var fields []zapcore.Field
	if parts := strings.Split(method, "/"); len(parts) == 3 {
		fields = append(fields, zap.String("grpc.service", parts[1]), zap.String("grpc.method", parts[2]))
	}
	if p, ok := peer.FromContext(ctx); ok {
		fields = append(fields, zap.String("grpc.peer_address", p.Addr.String()))
		if ti, ok := p.AuthInfo.(credentials.TLSInfo); ok && len(ti.State.PeerCertificates) > 0 {
			fields = append(fields, zap.String("grpc.peer_subject", ti.State.PeerCertificates[0].Subject.String()))
		}
	}
	return fields
}

func errorField(err error) zapcore.Field {
	if err == nil {
		return zap.Skip()
	}
	return zap.Error(err)
}

type protoMarshaler struct {
	message proto.Message
}

func (m *protoMarshaler) MarshalJSON() ([]byte, error) {
	out, err := (&jsonpb.Marshaler{}).MarshalToString(m.message)
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

// messageField renders protobuf messages as JSON.
func messageField(val interface{}) zapcore.Field {
	if pm, ok := val.(proto.Message); ok {
		return zap.Reflect("message", &protoMarshaler{message: pm})
	}
	return zap.Any("message", val)
}

type serverStream struct {
	grpc.ServerStream
	context       context.Context
	payloadLogger *zap.Logger
	payloadLevel  zapcore.Level
}

func (ss *serverStream) Context() context.Context {
	return ss.context
}

func (ss *serverStream) SendMsg(msg interface{}) error {
	if ce := ss.payloadLogger.Check(ss.payloadLevel, "sending stream message"); ce != nil {
		ce.Write(messageField(msg))
	}
	return ss.ServerStream.SendMsg(msg)
}

func (ss *serverStream) RecvMsg(msg interface{}) error {
	err := ss.ServerStream.RecvMsg(msg)
	if ce := ss.payloadLogger.Check(ss.payloadLevel, "received stream message"); ce != nil && err == nil {
		ce.Write(messageField(msg))
	}
	return err
}
