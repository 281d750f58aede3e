/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package correlation matches responses from the peer to the requests that
// are waiting for them.
package correlation

import (
	"context"
	"fmt"
	"sync"

	"github.com/hyperledger/fabric-chaincode-shim/core/chaincode/shim/message"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/pkg/errors"
)

var (
	// ErrDuplicateOutstandingRequest is returned when a key already has a
	// request waiting for the peer.
	ErrDuplicateOutstandingRequest = errors.New("duplicate outstanding request")

	// ErrRequestCancelled is matched by the error returned from Wait when the
	// waiter's context ends before a response arrives.
	ErrRequestCancelled = errors.New("request cancelled")

	// ErrAbandonedRequest is returned when a key still waits for the peer's
	// answer to a request whose waiter gave up.
	ErrAbandonedRequest = errors.New("abandoned request awaiting peer response")
)

type cancelledError struct {
	key   message.Key
	cause error
}

func (e *cancelledError) Error() string {
	return fmt.Sprintf("request for [%s] on channel [%s] cancelled: %s", message.ShortTxID(e.key.TxID), e.key.ChannelID, e.cause)
}

func (e *cancelledError) Is(target error) bool { return target == ErrRequestCancelled }
func (e *cancelledError) Unwrap() error        { return e.cause }

type result struct {
	msg *pb.ChaincodeMessage
	err error
}

// Registry holds at most one pending request per key.
type Registry struct {
	mutex   sync.Mutex
	pending map[message.Key]*Waiter
	closed  error
}

func NewRegistry() *Registry {
	return &Registry{pending: map[message.Key]*Waiter{}}
}

// Waiter is the receiving end of one pending request.
type Waiter struct {
	key      message.Key
	expected map[pb.ChaincodeMessage_Type]struct{}
	resultCh chan result
	registry *Registry
	// abandoned is set under the registry lock once Wait gave up. The key
	// stays reserved until the peer answers or the key is released.
	abandoned bool
}

func (w *Waiter) Key() message.Key { return w.key }

// Register reserves key for a request expecting a response of one of the
// expected types. An ERROR for the key is always accepted.
func (r *Registry) Register(key message.Key, expected ...pb.ChaincodeMessage_Type) (*Waiter, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.closed != nil {
		return nil, r.closed
	}
	if w, ok := r.pending[key]; ok {
		if w.abandoned {
			return nil, errors.WithMessagef(ErrAbandonedRequest, "txid: %s(%s)", key.TxID, key.ChannelID)
		}
		return nil, errors.WithMessagef(ErrDuplicateOutstandingRequest, "txid: %s(%s) exists", key.TxID, key.ChannelID)
	}

	w := &Waiter{
		key:      key,
		expected: make(map[pb.ChaincodeMessage_Type]struct{}, len(expected)),
		resultCh: make(chan result, 1),
		registry: r,
	}
	for _, t := range expected {
		w.expected[t] = struct{}{}
	}
	r.pending[key] = w
	return w, nil
}

// Resolve hands msg to the request pending under its key when the type is
// one the request expects, or is ERROR. It reports whether msg was consumed.
// A reply to an abandoned request is consumed and discarded.
func (r *Registry) Resolve(msg *pb.ChaincodeMessage) bool {
	if msg == nil {
		return false
	}
	key := message.KeyOf(msg)

	r.mutex.Lock()
	defer r.mutex.Unlock()

	w, ok := r.pending[key]
	if !ok {
		return false
	}
	if _, expected := w.expected[msg.Type]; !expected && msg.Type != pb.ChaincodeMessage_ERROR {
		return false
	}

	delete(r.pending, key)
	if !w.abandoned {
		w.resultCh <- result{msg: msg}
	}
	return true
}

// CancelAll delivers reason to every pending request and refuses all later
// registrations with the same reason.
func (r *Registry) CancelAll(reason error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.closed == nil {
		r.closed = reason
	}
	for key, w := range r.pending {
		delete(r.pending, key)
		if !w.abandoned {
			w.resultCh <- result{err: reason}
		}
	}
}

// Release drops an abandoned request for key so the key can be reused.
// A request that is still being waited on is left alone.
func (r *Registry) Release(key message.Key) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if w, ok := r.pending[key]; ok && w.abandoned {
		delete(r.pending, key)
	}
}

// Pending returns the number of requests with a live waiter.
func (r *Registry) Pending() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.pendingLocked()
}

// Abandoned returns the number of keys held by requests whose waiter gave up.
func (r *Registry) Abandoned() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.pending) - r.pendingLocked()
}

func (r *Registry) pendingLocked() int {
	n := 0
	for _, w := range r.pending {
		if !w.abandoned {
			n++
		}
	}
	return n
}

func (r *Registry) remove(w *Waiter) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.pending[w.key] != w || w.abandoned {
		return false
	}
	delete(r.pending, w.key)
	return true
}

// abandon keeps the key reserved for the reply the peer still owes.
func (r *Registry) abandon(w *Waiter) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.pending[w.key] != w {
		return false
	}
	w.abandoned = true
	return true
}

// Wait blocks until the response arrives, the registry is cancelled or ctx
// is done. Only this waiter is affected by ctx. When ctx ends first the key
// stays reserved until the late reply is discarded by Resolve or the key is
// released.
func (w *Waiter) Wait(ctx context.Context) (*pb.ChaincodeMessage, error) {
	select {
	case res := <-w.resultCh:
		return res.msg, res.err
	case <-ctx.Done():
		if w.registry.abandon(w) {
			return nil, &cancelledError{key: w.key, cause: ctx.Err()}
		}
		// delivery happens under the registry lock before removal
		res := <-w.resultCh
		return res.msg, res.err
	}
}

// Cancel releases the key if the request is still pending and its waiter
// has not given up.
func (w *Waiter) Cancel() {
	w.registry.remove(w)
}
