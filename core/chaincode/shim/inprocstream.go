/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package shim

import (
	"fmt"
	"sync"

	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/pkg/errors"
)

// SendPanicFailure is returned when the peer closed the channel the stream
// sends on.
type SendPanicFailure string

func (e SendPanicFailure) Error() string {
	return fmt.Sprintf("send failure %s", string(e))
}

// ErrStreamClosed is returned by Recv once the inbound channel is closed.
var ErrStreamClosed = errors.New("channel is closed")

// inProcStream connects a chaincode to a peer running in the same process.
type inProcStream struct {
	recv <-chan *pb.ChaincodeMessage
	send chan<- *pb.ChaincodeMessage

	closeOnce sync.Once
	closed    chan struct{}
}

func newInProcStream(recv <-chan *pb.ChaincodeMessage, send chan<- *pb.ChaincodeMessage) *inProcStream {
	return &inProcStream{
		recv:   recv,
		send:   send,
		closed: make(chan struct{}),
	}
}

func (s *inProcStream) Send(msg *pb.ChaincodeMessage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = SendPanicFailure(fmt.Sprintf("%s", r))
		}
	}()

	select {
	case <-s.closed:
		return errors.New("stream closed for sending")
	default:
	}

	select {
	case s.send <- msg:
		return nil
	case <-s.closed:
		return errors.New("stream closed for sending")
	}
}

func (s *inProcStream) Recv() (*pb.ChaincodeMessage, error) {
	msg, ok := <-s.recv
	if !ok {
		return nil, ErrStreamClosed
	}
	return msg, nil
}

// CloseSend unblocks pending sends and refuses new ones. The send channel
// belongs to the peer and is left open.
func (s *inProcStream) CloseSend() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}
