/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package comm

import (
	"context"

	"github.com/hyperledger/fabric-chaincode-shim/common/semaphore"
	"github.com/pkg/errors"
	"google.golang.org/grpc"
)

type Semaphore interface {
	Acquire(ctx context.Context) error
	Release()
}

type NewSemaphoreFunc func(size int) Semaphore

// StreamThrottle bounds the number of streams a server runs at once. A
// stream that finds no free slot waits until one is released or its
// context ends.
type StreamThrottle struct {
	slots Semaphore
}

type ThrottleOption func(newSemaphore *NewSemaphoreFunc)

func WithNewSemaphore(newSemaphore NewSemaphoreFunc) ThrottleOption {
	return func(f *NewSemaphoreFunc) { *f = newSemaphore }
}

func NewStreamThrottle(maxStreams int, options ...ThrottleOption) *StreamThrottle {
	newSemaphore := NewSemaphoreFunc(func(count int) Semaphore { return semaphore.New(count) })
	for _, option := range options {
		option(&newSemaphore)
	}
	return &StreamThrottle{slots: newSemaphore(maxStreams)}
}

// Intercept holds a slot for the lifetime of the stream.
func (t *StreamThrottle) Intercept(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	if err := t.slots.Acquire(ss.Context()); err != nil {
		return errors.WithMessage(err, "no stream slot available")
	}
	defer t.slots.Release()

	return handler(srv, ss)
}
