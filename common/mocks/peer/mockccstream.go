/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package peer

import (
	"io"
	"sync"
	"time"

	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/pkg/errors"
)

// MockResponseSet is the script a MockCCComm plays against a chaincode.
type MockResponseSet struct {
	// DoneFunc is called after the last response was sent.
	DoneFunc func(int, error)

	// ErrorFunc is called when a message does not match the expected type.
	// The message is then skipped.
	ErrorFunc func(int, error)

	Responses []*MockResponse
}

// MockResponse answers the next message from the chaincode. RespMsg is a
// *pb.ChaincodeMessage or a func(*pb.ChaincodeMessage) *pb.ChaincodeMessage
// building the answer from the received message. A nil RespMsg consumes the
// message without answering.
type MockResponse struct {
	RecvMsg *pb.ChaincodeMessage
	RespMsg interface{}
}

// MockCCComm is the peer end of a chaincode stream. Messages written with
// Send reach the chaincode; Recv returns what the chaincode sent.
type MockCCComm struct {
	name        string
	bailOnError bool
	keepAlive   *pb.ChaincodeMessage
	recvStream  chan *pb.ChaincodeMessage
	sendStream  chan *pb.ChaincodeMessage
	respIndex   int
	respLock    sync.Mutex
	respSet     *MockResponseSet
	pong        bool
	skipClose   bool

	sendLock sync.RWMutex
	quit     chan struct{}
	quitOnce sync.Once

	receivedLock sync.Mutex
	received     []*pb.ChaincodeMessage
}

// NewMockCCComm returns a peer end that receives on recv and sends on send.
func NewMockCCComm(name string, recv, send chan *pb.ChaincodeMessage) *MockCCComm {
	return &MockCCComm{
		name:       name,
		recvStream: recv,
		sendStream: send,
		respSet:    &MockResponseSet{},
		quit:       make(chan struct{}),
	}
}

func (s *MockCCComm) Name() string {
	return s.name
}

func (s *MockCCComm) SetName(newname string) {
	s.name = newname
}

// Send delivers msg to the chaincode. It fails once the stream quit.
func (s *MockCCComm) Send(msg *pb.ChaincodeMessage) error {
	s.sendLock.RLock()
	defer s.sendLock.RUnlock()

	select {
	case <-s.quit:
		return errors.Errorf("mock stream %s closed", s.name)
	default:
	}
	select {
	case s.sendStream <- msg:
		return nil
	case <-s.quit:
		return errors.Errorf("mock stream %s closed", s.name)
	}
}

// Recv returns the next message from the chaincode and io.EOF once the
// chaincode side is closed.
func (s *MockCCComm) Recv() (*pb.ChaincodeMessage, error) {
	select {
	case msg, ok := <-s.recvStream:
		if !ok {
			return nil, io.EOF
		}
		s.receivedLock.Lock()
		s.received = append(s.received, msg)
		s.receivedLock.Unlock()
		return msg, nil
	case <-s.quit:
		return nil, io.EOF
	}
}

func (s *MockCCComm) CloseSend() error {
	return nil
}

// Received returns every message read from the chaincode so far.
func (s *MockCCComm) Received() []*pb.ChaincodeMessage {
	s.receivedLock.Lock()
	defer s.receivedLock.Unlock()
	return append([]*pb.ChaincodeMessage(nil), s.received...)
}

func (s *MockCCComm) GetRecvStream() chan *pb.ChaincodeMessage {
	return s.recvStream
}

func (s *MockCCComm) GetSendStream() chan *pb.ChaincodeMessage {
	return s.sendStream
}

// Quit ends the stream. Unless the comm is a mirror it also closes both
// channels, which the chaincode observes as a lost connection.
func (s *MockCCComm) Quit() {
	s.quitOnce.Do(func() {
		close(s.quit)
		if s.skipClose {
			return
		}
		s.sendLock.Lock()
		close(s.sendStream)
		s.sendLock.Unlock()
		close(s.recvStream)
	})
}

func (s *MockCCComm) SetBailOnError(b bool) {
	s.bailOnError = b
}

// SetPong echoes KEEPALIVE messages received from the chaincode.
func (s *MockCCComm) SetPong(val bool) {
	s.pong = val
}

// SetKeepAlive sends ka to the chaincode every 10ms while Run is active.
func (s *MockCCComm) SetKeepAlive(ka *pb.ChaincodeMessage) {
	s.keepAlive = ka
}

func (s *MockCCComm) SetResponses(respSet *MockResponseSet) {
	s.respLock.Lock()
	s.respSet = respSet
	s.respIndex = 0
	s.respLock.Unlock()
}

func (s *MockCCComm) ka(done <-chan struct{}) {
	for {
		if s.keepAlive == nil {
			return
		}
		if err := s.Send(s.keepAlive); err != nil {
			return
		}
		select {
		case <-time.After(10 * time.Millisecond):
		case <-done:
			return
		case <-s.quit:
			return
		}
	}
}

// Run plays the response script until the chaincode closes its side, done
// is closed or, with bail on error set, a response fails.
func (s *MockCCComm) Run(done <-chan struct{}) error {
	go s.ka(done)
	defer s.Quit()

	msgs := make(chan *pb.ChaincodeMessage)
	errs := make(chan error, 1)
	go func() {
		for {
			msg, err := s.Recv()
			if err != nil {
				errs <- err
				return
			}
			select {
			case msgs <- msg:
			case <-s.quit:
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return nil
		case err := <-errs:
			if err == io.EOF {
				return nil
			}
			return err
		case msg := <-msgs:
			if err := s.respond(msg); err != nil && s.bailOnError {
				return err
			}
		}
	}
}

func (s *MockCCComm) respond(msg *pb.ChaincodeMessage) error {
	if msg.Type == pb.ChaincodeMessage_KEEPALIVE {
		if s.pong {
			return s.Send(msg)
		}
		return nil
	}

	s.respLock.Lock()
	defer s.respLock.Unlock()

	if s.respIndex >= len(s.respSet.Responses) {
		return errors.Errorf("unscripted %s received by %s", msg.Type, s.name)
	}

	index := s.respIndex
	mockResp := s.respSet.Responses[index]
	s.respIndex++

	if mockResp.RecvMsg != nil && msg.Type != mockResp.RecvMsg.Type {
		err := errors.Errorf("invalid message at %d: expected %s, received %s", index, mockResp.RecvMsg.Type, msg.Type)
		if s.respSet.ErrorFunc != nil {
			s.respSet.ErrorFunc(index, err)
		}
		return err
	}

	var err error
	if mockResp.RespMsg != nil {
		var ccMsg *pb.ChaincodeMessage
		switch resp := mockResp.RespMsg.(type) {
		case *pb.ChaincodeMessage:
			ccMsg = resp
		case func(*pb.ChaincodeMessage) *pb.ChaincodeMessage:
			ccMsg = resp(msg)
		}
		if ccMsg == nil {
			return errors.Errorf("response %d is not a chaincode message", index)
		}
		err = s.Send(ccMsg)
	}

	if s.respIndex == len(s.respSet.Responses) && s.respSet.DoneFunc != nil {
		s.respSet.DoneFunc(s.respIndex, err)
	}
	return err
}
