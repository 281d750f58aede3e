/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package semaphore provides a context aware counting semaphore used to
// bound concurrent work such as running chaincode tasks or server streams.
package semaphore

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

type Semaphore struct {
	weighted *semaphore.Weighted
	held     int64
}

// New creates a semaphore with count slots.
func New(count int) *Semaphore {
	if count <= 0 {
		panic("count must be greater than 0")
	}
	return &Semaphore{weighted: semaphore.NewWeighted(int64(count))}
}

// Acquire blocks until a slot is available or ctx is done.
func (s *Semaphore) Acquire(ctx context.Context) error {
	if err := s.weighted.Acquire(ctx, 1); err != nil {
		return err
	}
	atomic.AddInt64(&s.held, 1)
	return nil
}

// TryAcquire takes a slot without blocking and reports whether it did.
func (s *Semaphore) TryAcquire() bool {
	if !s.weighted.TryAcquire(1) {
		return false
	}
	atomic.AddInt64(&s.held, 1)
	return true
}

// Release returns a slot. Releasing more slots than were acquired panics.
func (s *Semaphore) Release() {
	for {
		held := atomic.LoadInt64(&s.held)
		if held <= 0 {
			panic("semaphore buffer is empty")
		}
		if atomic.CompareAndSwapInt64(&s.held, held, held-1) {
			break
		}
	}
	s.weighted.Release(1)
}
