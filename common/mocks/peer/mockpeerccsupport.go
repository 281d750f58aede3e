/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package peer

import (
	"sync"

	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/pkg/errors"
)

// MockPeerCCSupport keeps the channel pairs of in-process chaincodes.
type MockPeerCCSupport struct {
	mutex    sync.Mutex
	ccStream map[string]*MockCCComm
}

func NewMockPeerSupport() *MockPeerCCSupport {
	return &MockPeerCCSupport{ccStream: make(map[string]*MockCCComm)}
}

// AddCC records the chaincode end of a channel pair: the chaincode reads
// recv and writes send.
func (mp *MockPeerCCSupport) AddCC(name string, recv chan *pb.ChaincodeMessage, send chan *pb.ChaincodeMessage) (*MockCCComm, error) {
	mp.mutex.Lock()
	defer mp.mutex.Unlock()
	if mp.ccStream[name] != nil {
		return nil, errors.Errorf("CC %s already added", name)
	}
	mcc := NewMockCCComm(name, recv, send)
	mp.ccStream[name] = mcc
	return mcc, nil
}

func (mp *MockPeerCCSupport) GetCC(name string) (*MockCCComm, error) {
	mp.mutex.Lock()
	defer mp.mutex.Unlock()
	s := mp.ccStream[name]
	if s == nil {
		return nil, errors.Errorf("CC %s not added", name)
	}
	return s, nil
}

// GetCCMirror returns the peer end of the named chaincode's channels.
func (mp *MockPeerCCSupport) GetCCMirror(name string) *MockCCComm {
	mp.mutex.Lock()
	defer mp.mutex.Unlock()
	s := mp.ccStream[name]
	if s == nil {
		return nil
	}

	mirror := NewMockCCComm(name, s.sendStream, s.recvStream)
	mirror.skipClose = true
	return mirror
}

func (mp *MockPeerCCSupport) RemoveCC(name string) error {
	mp.mutex.Lock()
	defer mp.mutex.Unlock()
	if mp.ccStream[name] == nil {
		return errors.Errorf("CC %s not added", name)
	}
	delete(mp.ccStream, name)
	return nil
}

func (mp *MockPeerCCSupport) RemoveAll() error {
	mp.mutex.Lock()
	defer mp.mutex.Unlock()
	mp.ccStream = make(map[string]*MockCCComm)
	return nil
}

// MockChaincodeSupport is a peer accepting chaincode registrations over
// gRPC. Every stream is played against a fresh MockCCComm built by
// NewComm and published on Streams when Streams is not nil.
type MockChaincodeSupport struct {
	pb.UnimplementedChaincodeSupportServer

	// NewComm scripts the comm of a new stream.
	NewComm func(*MockCCComm)
	Streams chan *MockCCComm
}

// Register bridges stream to a MockCCComm and runs it until either end
// closes.
func (m *MockChaincodeSupport) Register(stream pb.ChaincodeSupport_RegisterServer) error {
	fromCC := make(chan *pb.ChaincodeMessage)
	toCC := make(chan *pb.ChaincodeMessage)
	mcc := NewMockCCComm("grpc", fromCC, toCC)
	mcc.skipClose = true
	if m.NewComm != nil {
		m.NewComm(mcc)
	}
	if m.Streams != nil {
		m.Streams <- mcc
	}

	go func() {
		defer close(fromCC)
		for {
			msg, err := stream.Recv()
			if err != nil {
				return
			}
			select {
			case fromCC <- msg:
			case <-mcc.quit:
				return
			}
		}
	}()

	sendErr := make(chan error, 1)
	go func() {
		for {
			select {
			case msg := <-toCC:
				if err := stream.Send(msg); err != nil {
					sendErr <- err
					mcc.Quit()
					return
				}
			case <-mcc.quit:
				return
			}
		}
	}()

	err := mcc.Run(stream.Context().Done())
	select {
	case serr := <-sendErr:
		if err == nil {
			err = serr
		}
	default:
	}
	return err
}
