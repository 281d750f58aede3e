/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package shim

import (
	"context"
	"io"
	"runtime/debug"
	"sync"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/hyperledger/fabric-chaincode-shim/common/flogging"
	"github.com/hyperledger/fabric-chaincode-shim/common/metrics/disabled"
	"github.com/hyperledger/fabric-chaincode-shim/common/semaphore"
	"github.com/hyperledger/fabric-chaincode-shim/core/chaincode/shim/correlation"
	"github.com/hyperledger/fabric-chaincode-shim/core/chaincode/shim/message"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// State is the registration state of the connection to the peer.
type State string

const (
	Created            State = "created"
	AwaitingRegistered State = "awaiting-registered"
	AwaitingReady      State = "awaiting-ready"
	Ready              State = "ready"
	Terminated         State = "terminated"
)

// ChaincodeMessageSender is the egress toward the peer.
type ChaincodeMessageSender interface {
	Send(*pb.ChaincodeMessage) error
}

// PeerChaincodeStream is the duplex connection to the peer. Recv returns
// io.EOF once the peer closed the stream.
type PeerChaincodeStream interface {
	Send(*pb.ChaincodeMessage) error
	Recv() (*pb.ChaincodeMessage, error)
}

// ClientStream is a PeerChaincodeStream dialed by the chaincode.
type ClientStream interface {
	PeerChaincodeStream
	CloseSend() error
}

// Option configures a TaskManager.
type Option func(*TaskManager)

// WithLogger replaces the default "shim" logger.
func WithLogger(logger *flogging.FabricLogger) Option {
	return func(tm *TaskManager) { tm.logger = logger }
}

// WithMetrics records task metrics. Metrics are created once per provider
// and may be shared by many task managers.
func WithMetrics(m *TaskMetrics) Option {
	return func(tm *TaskManager) { tm.metrics = m }
}

// WithMaxConcurrency bounds the number of tasks executing chaincode at the
// same time. Tasks beyond the bound wait for a slot in their own goroutine.
func WithMaxConcurrency(n int) Option {
	return func(tm *TaskManager) {
		if n > 0 {
			tm.sema = semaphore.New(n)
		}
	}
}

// WithRequestTimeout bounds the wait for each peer response. The expiry
// fails only the request that timed out.
func WithRequestTimeout(d time.Duration) Option {
	return func(tm *TaskManager) { tm.requestTimeout = d }
}

// TaskManager runs the chaincode side of the protocol on one connection: it
// drives the registration handshake, starts a task per transaction, routes
// peer responses to the tasks waiting for them and owns the only path to
// the peer.
type TaskManager struct {
	cc             Chaincode
	chaincodeID    *pb.ChaincodeID
	logger         *flogging.FabricLogger
	metrics        *TaskMetrics
	sema           *semaphore.Semaphore
	requestTimeout time.Duration

	// serialLock serializes writes to the peer and the consumer callback
	serialLock       sync.Mutex
	sender           ChaincodeMessageSender
	responseConsumer func(*pb.ChaincodeMessage)

	stateLock    sync.RWMutex
	state        State
	terminateErr error

	registry     *correlation.Registry
	tasks        *activeTasks
	ctx          context.Context
	cancel       context.CancelFunc
	shutdownOnce sync.Once
}

// NewTaskManager creates a task manager for the chaincode cc identified by
// chaincodeID.
func NewTaskManager(cc Chaincode, chaincodeID *pb.ChaincodeID, opts ...Option) (*TaskManager, error) {
	if cc == nil {
		return nil, invalidArgument("chaincode is required")
	}
	if chaincodeID == nil || chaincodeID.Name == "" {
		return nil, invalidArgument("chaincode id with a name is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	tm := &TaskManager{
		cc:          cc,
		chaincodeID: proto.Clone(chaincodeID).(*pb.ChaincodeID),
		logger:      flogging.MustGetLogger("shim"),
		state:       Created,
		registry:    correlation.NewRegistry(),
		tasks:       newActiveTasks(),
		ctx:         ctx,
		cancel:      cancel,
	}
	for _, opt := range opts {
		opt(tm)
	}
	if tm.metrics == nil {
		tm.metrics = NewTaskMetrics(&disabled.Provider{})
	}
	return tm, nil
}

// ChaincodeID returns the identity sent with REGISTER.
func (tm *TaskManager) ChaincodeID() *pb.ChaincodeID {
	return proto.Clone(tm.chaincodeID).(*pb.ChaincodeID)
}

// State returns the current registration state.
func (tm *TaskManager) State() State {
	tm.stateLock.RLock()
	defer tm.stateLock.RUnlock()
	return tm.state
}

// Done is closed when the connection terminates.
func (tm *TaskManager) Done() <-chan struct{} {
	return tm.ctx.Done()
}

// Err returns the reason the connection terminated, or nil.
func (tm *TaskManager) Err() error {
	tm.stateLock.RLock()
	defer tm.stateLock.RUnlock()
	return tm.terminateErr
}

// TaskState reports the state of the live task for the transaction.
func (tm *TaskManager) TaskState(channelID, txID string) (TaskState, bool) {
	t, ok := tm.tasks.get(message.Key{ChannelID: channelID, TxID: txID})
	if !ok {
		return "", false
	}
	return t.State(), true
}

// ActiveTasks returns the number of live tasks.
func (tm *TaskManager) ActiveTasks() int {
	return tm.tasks.len()
}

// SetResponseConsumer installs a callback that observes every message
// successfully sent to the peer, in send order. nil detaches it.
func (tm *TaskManager) SetResponseConsumer(consumer func(*pb.ChaincodeMessage)) {
	tm.serialLock.Lock()
	tm.responseConsumer = consumer
	tm.serialLock.Unlock()
}

func (tm *TaskManager) transition(from, to State) bool {
	tm.stateLock.Lock()
	defer tm.stateLock.Unlock()
	if tm.state != from {
		return false
	}
	tm.logger.Debugf("Moving state from %s to %s", from, to)
	tm.state = to
	return true
}

// Register attaches the egress toward the peer and sends REGISTER.
func (tm *TaskManager) Register(sender ChaincodeMessageSender) error {
	if sender == nil {
		return invalidArgument("sender is required")
	}
	regMsg, err := message.NewRegister(tm.chaincodeID)
	if err != nil {
		return err
	}

	tm.serialLock.Lock()
	if tm.sender != nil {
		tm.serialLock.Unlock()
		return errors.New("already registered with the peer")
	}
	if !tm.transition(Created, AwaitingRegistered) {
		tm.serialLock.Unlock()
		return errors.Errorf("cannot register in state %s", tm.State())
	}
	tm.sender = sender
	tm.logger.Debugf("Registering chaincode %s with the peer", tm.chaincodeID.Name)
	err = tm.sendLocked(regMsg)
	tm.serialLock.Unlock()

	if err != nil {
		terr := &TransportError{Op: "send", Err: err}
		tm.terminate(terr)
		return errors.WithMessage(terr, "error sending chaincode REGISTER")
	}
	return nil
}

// Send is the only path to the peer. Concurrent calls are serialized, so
// the messages of each caller reach the peer in the order they were sent.
func (tm *TaskManager) Send(msg *pb.ChaincodeMessage) error {
	if msg == nil {
		return invalidArgument("message is required")
	}

	tm.serialLock.Lock()
	if tm.State() == Terminated {
		tm.serialLock.Unlock()
		return errors.WithMessagef(ErrTerminated, "[%s] cannot send %s", shorttxid(msg.Txid), msg.Type)
	}
	if tm.sender == nil {
		tm.serialLock.Unlock()
		return errors.WithMessagef(ErrNotRegistered, "[%s] cannot send %s", shorttxid(msg.Txid), msg.Type)
	}
	err := tm.sendLocked(msg)
	tm.serialLock.Unlock()

	if err != nil {
		terr := &TransportError{Op: "send", Err: err}
		tm.logger.Errorf("[%s] error sending %s: %s", shorttxid(msg.Txid), msg.Type, err)
		tm.terminate(terr)
		return terr
	}
	return nil
}

func (tm *TaskManager) sendLocked(msg *pb.ChaincodeMessage) error {
	if err := tm.sender.Send(msg); err != nil {
		return err
	}
	if tm.responseConsumer != nil {
		tm.responseConsumer(msg)
	}
	return nil
}

// HandleMessage processes one inbound message. It never waits for a task:
// transactions are handed to their own goroutine and responses are handed
// to the task waiting for them. Errors describe the message that was
// dropped; only an ERROR during the handshake ends the connection.
func (tm *TaskManager) HandleMessage(msg *pb.ChaincodeMessage) error {
	if msg == nil {
		return invalidArgument("message is required")
	}

	state := tm.State()
	tm.logger.Debugf("[%s] Handling ChaincodeMessage of type: %s(state:%s)", shorttxid(msg.Txid), msg.Type, state)

	if state == Terminated {
		return errors.WithMessagef(ErrTerminated, "[%s] dropping %s", shorttxid(msg.Txid), msg.Type)
	}

	if msg.Type == pb.ChaincodeMessage_KEEPALIVE {
		tm.logger.Debug("Sending KEEPALIVE response")
		go func() {
			if err := tm.Send(msg); err != nil {
				tm.logger.Debugf("error answering KEEPALIVE: %s", err)
			}
		}()
		return nil
	}

	if state != Ready {
		return tm.handleHandshake(msg, state)
	}
	return tm.dispatch(msg)
}

func (tm *TaskManager) handleHandshake(msg *pb.ChaincodeMessage, state State) error {
	switch msg.Type {
	case pb.ChaincodeMessage_REGISTERED:
		if (state == Created || state == AwaitingRegistered) && tm.transition(state, AwaitingReady) {
			tm.logger.Debugf("Received %s, ready for invocations", msg.Type)
			return nil
		}
	case pb.ChaincodeMessage_READY:
		if state == AwaitingReady && tm.transition(state, Ready) {
			tm.logger.Infof("Chaincode %s is ready", tm.chaincodeID.Name)
			return nil
		}
	case pb.ChaincodeMessage_ERROR:
		err := &PeerRejectedError{Op: pb.ChaincodeMessage_REGISTER.String(), TxID: msg.Txid, Payload: msg.Payload}
		tm.logger.Errorf("Received %s in state %s: %s", msg.Type, state, err)
		tm.terminate(err)
		return errors.WithMessage(err, "peer rejected registration")
	}

	tm.logger.Warningf("[%s] Received %s, ignoring in state %s", shorttxid(msg.Txid), msg.Type, state)
	return errors.WithMessagef(ErrUnexpectedMessage, "[%s] received %s in state %s", shorttxid(msg.Txid), msg.Type, state)
}

func (tm *TaskManager) dispatch(msg *pb.ChaincodeMessage) error {
	if tm.registry.Resolve(msg) {
		return nil
	}

	switch msg.Type {
	case pb.ChaincodeMessage_INIT, pb.ChaincodeMessage_TRANSACTION:
		return tm.startTask(msg)
	case pb.ChaincodeMessage_RESPONSE, pb.ChaincodeMessage_ERROR:
		return tm.anomaly(msg, "no request is waiting for it")
	case pb.ChaincodeMessage_REGISTER, pb.ChaincodeMessage_REGISTERED, pb.ChaincodeMessage_READY:
		return tm.anomaly(msg, "the connection is already ready")
	case pb.ChaincodeMessage_COMPLETED,
		pb.ChaincodeMessage_GET_STATE,
		pb.ChaincodeMessage_PUT_STATE,
		pb.ChaincodeMessage_DEL_STATE,
		pb.ChaincodeMessage_INVOKE_CHAINCODE,
		pb.ChaincodeMessage_GET_STATE_BY_RANGE,
		pb.ChaincodeMessage_GET_QUERY_RESULT,
		pb.ChaincodeMessage_QUERY_STATE_NEXT,
		pb.ChaincodeMessage_QUERY_STATE_CLOSE,
		pb.ChaincodeMessage_GET_HISTORY_FOR_KEY,
		pb.ChaincodeMessage_GET_STATE_METADATA,
		pb.ChaincodeMessage_PUT_STATE_METADATA,
		pb.ChaincodeMessage_GET_PRIVATE_DATA_HASH,
		pb.ChaincodeMessage_PURGE_PRIVATE_DATA:
		return tm.anomaly(msg, "it is only sent by chaincode")
	default:
		return tm.anomaly(msg, "unknown message type")
	}
}

func (tm *TaskManager) anomaly(msg *pb.ChaincodeMessage, reason string) error {
	tm.metrics.ProtocolAnomalies.With("type", msg.Type.String()).Add(1)
	tm.logger.Warningf("[%s] Dropping %s on channel [%s]: %s", shorttxid(msg.Txid), msg.Type, msg.ChannelId, reason)
	return errors.WithMessagef(ErrProtocolAnomaly, "[%s] %s: %s", shorttxid(msg.Txid), msg.Type, reason)
}

func (tm *TaskManager) startTask(msg *pb.ChaincodeMessage) error {
	if err := message.Validate(msg); err != nil {
		tm.logger.Errorf("Dropping malformed %s: %s", msg.Type, err)
		return err
	}

	t := newTask(tm.ctx, msg)
	if !tm.tasks.add(t) {
		if tm.State() == Terminated {
			return errors.WithMessagef(ErrTerminated, "[%s] dropping %s", shorttxid(msg.Txid), msg.Type)
		}
		tm.logger.Errorf("[%s] Another %s is pending for this chaincode on channel [%s]. Cannot process.", shorttxid(msg.Txid), msg.Type, msg.ChannelId)
		return errors.WithMessagef(ErrDuplicateTransaction, "txid: %s(%s) exists", msg.Txid, msg.ChannelId)
	}

	tm.metrics.TasksStarted.With("type", msg.Type.String()).Add(1)
	tm.metrics.ActiveTasks.Add(1)
	go tm.runTask(t)
	return nil
}

func (tm *TaskManager) runTask(t *task) {
	defer func() {
		tm.registry.Release(t.key)
		tm.tasks.remove(t)
		tm.metrics.ActiveTasks.Add(-1)
	}()

	if tm.sema != nil {
		if err := tm.sema.Acquire(t.ctx); err != nil {
			tm.failTask(t, errors.Wrap(err, "failed to acquire execution slot"), nil)
			return
		}
		defer tm.sema.Release()
	}

	if !t.start() {
		return
	}

	resp, stub, err := tm.execute(t)
	var event *pb.ChaincodeEvent
	if stub != nil {
		event = stub.chaincodeEvent
	}
	if err != nil {
		tm.failTask(t, err, event)
		return
	}

	completed, err := message.NewCompleted(t.key.ChannelID, t.key.TxID, &resp, event)
	if err != nil {
		tm.failTask(t, err, event)
		return
	}
	t.finish(TaskCompleted, nil, func() {
		tm.logger.Debugf("[%s] %s completed. Sending %s", shorttxid(t.key.TxID), t.kind, pb.ChaincodeMessage_COMPLETED)
		t.observe(tm, true)
		if err := tm.Send(completed); err != nil {
			tm.logger.Errorf("[%s] error sending %s: %s", shorttxid(t.key.TxID), pb.ChaincodeMessage_COMPLETED, err)
		}
	})
}

// execute runs the chaincode for t. A panic in chaincode fails the task.
func (tm *TaskManager) execute(t *task) (resp pb.Response, stub *ChaincodeStub, err error) {
	defer func() {
		if r := recover(); r != nil {
			tm.logger.Errorf("[%s] chaincode panicked: %v\n%s", shorttxid(t.key.TxID), r, debug.Stack())
			err = errors.Errorf("chaincode panicked: %v", r)
		}
	}()

	input := &pb.ChaincodeInput{}
	if err := proto.Unmarshal(t.request.Payload, input); err != nil {
		tm.logger.Errorf("[%s] Incorrect payload format. Sending %s", shorttxid(t.key.TxID), pb.ChaincodeMessage_ERROR)
		return pb.Response{}, nil, errors.Wrap(err, "incorrect payload format")
	}

	stub, err = newChaincodeStub(tm, t, input, t.request.Proposal)
	if err != nil {
		return pb.Response{}, stub, errors.WithMessage(err, "failed to create stub")
	}

	switch t.kind {
	case pb.ChaincodeMessage_INIT:
		resp = tm.cc.Init(stub)
		tm.logger.Debugf("[%s] Init get response status: %d", shorttxid(t.key.TxID), resp.Status)
		if resp.Status >= ERROR {
			return resp, stub, &initError{message: resp.Message}
		}
	default:
		resp = tm.cc.Invoke(stub)
	}
	return resp, stub, nil
}

// initError carries the message of an Init response with an error status.
// The message is the ERROR payload as is.
type initError struct{ message string }

func (e *initError) Error() string { return e.message }

func (tm *TaskManager) failTask(t *task, cause error, event *pb.ChaincodeEvent) {
	t.finish(TaskFailed, cause, func() {
		tm.logger.Errorf("[%s] %s failed: %s. Sending %s", shorttxid(t.key.TxID), t.kind, cause, pb.ChaincodeMessage_ERROR)
		t.observe(tm, false)
		errMsg := message.NewError(t.key.ChannelID, t.key.TxID, []byte(cause.Error()), event)
		if err := tm.Send(errMsg); err != nil {
			tm.logger.Errorf("[%s] error sending %s: %s", shorttxid(t.key.TxID), pb.ChaincodeMessage_ERROR, err)
		}
	})
}

// Shutdown terminates the connection. Pending requests and running tasks
// fail with ErrShutdown and no further message reaches the peer.
func (tm *TaskManager) Shutdown() {
	tm.shutdownOnce.Do(func() {
		tm.logger.Infof("Shutting down chaincode %s", tm.chaincodeID.Name)
		tm.terminate(ErrShutdown)
	})
}

// terminate moves the connection to Terminated once and fails everything in
// flight with reason.
func (tm *TaskManager) terminate(reason error) {
	tm.stateLock.Lock()
	if tm.state == Terminated {
		tm.stateLock.Unlock()
		return
	}
	tm.logger.Debugf("Moving state from %s to %s: %s", tm.state, Terminated, reason)
	tm.state = Terminated
	tm.terminateErr = reason
	tm.stateLock.Unlock()

	tm.cancel()
	tm.registry.CancelAll(reason)
	for _, t := range tm.tasks.close() {
		if t.finish(TaskFailed, reason, nil) {
			tm.logger.Debugf("[%s] %s aborted: %s", shorttxid(t.key.TxID), t.kind, reason)
			t.observe(tm, false)
		}
	}
}

// Chat registers with the peer over stream and processes inbound messages
// until the stream ends or the connection terminates. It always returns the
// error that ended the connection.
func (tm *TaskManager) Chat(stream PeerChaincodeStream) (err error) {
	if stream == nil {
		return invalidArgument("stream is required")
	}
	if cs, ok := stream.(ClientStream); ok {
		defer func() {
			err = multierr.Append(err, cs.CloseSend())
		}()
	}

	if err := tm.Register(stream); err != nil {
		return err
	}

	for {
		in, err := stream.Recv()
		if err != nil {
			if err == io.EOF {
				tm.logger.Debugf("Received EOF, ending chaincode stream")
			} else {
				tm.logger.Errorf("Received error from server, ending chaincode stream: %s", err)
			}
			if tm.State() == Terminated {
				return tm.Err()
			}
			terr := &TransportError{Op: "recv", Err: err}
			tm.terminate(terr)
			return terr
		}

		if err := tm.HandleMessage(in); err != nil {
			if tm.State() == Terminated {
				return tm.Err()
			}
			tm.logger.Debugf("[%s] %s", shorttxid(in.Txid), err)
		}
	}
}
