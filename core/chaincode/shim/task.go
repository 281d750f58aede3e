/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package shim

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/hyperledger/fabric-chaincode-shim/core/chaincode/shim/message"
	pb "github.com/hyperledger/fabric-protos-go/peer"
)

// TaskState is the lifecycle state of the task running one transaction.
type TaskState string

const (
	TaskCreated   TaskState = "created"
	TaskRunning   TaskState = "running"
	TaskCompleted TaskState = "completed"
	TaskFailed    TaskState = "failed"
)

// task runs the chaincode for one INIT or TRANSACTION. It sends exactly one
// terminal message and is removed from the active set afterwards.
type task struct {
	key     message.Key
	kind    pb.ChaincodeMessage_Type
	request *pb.ChaincodeMessage
	ctx     context.Context
	cancel  context.CancelFunc
	started time.Time

	mutex sync.Mutex
	state TaskState
	err   error

	terminal sync.Once
}

func newTask(parent context.Context, msg *pb.ChaincodeMessage) *task {
	ctx, cancel := context.WithCancel(parent)
	return &task{
		key:     message.KeyOf(msg),
		kind:    msg.Type,
		request: msg,
		ctx:     ctx,
		cancel:  cancel,
		state:   TaskCreated,
	}
}

func (t *task) State() TaskState {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.state
}

func (t *task) Err() error {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.err
}

// start moves a created task to running. It fails if the task was aborted
// before it got to run.
func (t *task) start() bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if t.state != TaskCreated {
		return false
	}
	t.state = TaskRunning
	t.started = time.Now()
	return true
}

// finish records the terminal state and runs send once. Later calls are
// ignored, so a task aborted by shutdown keeps its failure.
func (t *task) finish(state TaskState, err error, send func()) bool {
	finished := false
	t.terminal.Do(func() {
		t.mutex.Lock()
		t.state = state
		t.err = err
		t.mutex.Unlock()
		t.cancel()
		if send != nil {
			send()
		}
		finished = true
	})
	return finished
}

func (t *task) duration() time.Duration {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if t.started.IsZero() {
		return 0
	}
	return time.Since(t.started)
}

func (t *task) observe(tm *TaskManager, success bool) {
	s := strconv.FormatBool(success)
	tm.metrics.TasksCompleted.With("type", t.kind.String(), "success", s).Add(1)
	tm.metrics.TaskDuration.With("type", t.kind.String(), "success", s).Observe(t.duration().Seconds())
}

// activeTasks holds the live tasks of a connection keyed by channel and
// transaction id.
type activeTasks struct {
	mutex  sync.Mutex
	tasks  map[message.Key]*task
	closed bool
}

func newActiveTasks() *activeTasks {
	return &activeTasks{tasks: map[message.Key]*task{}}
}

// add reports false if a task for the same key is live or the set is closed.
func (a *activeTasks) add(t *task) bool {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	if a.closed {
		return false
	}
	if _, ok := a.tasks[t.key]; ok {
		return false
	}
	a.tasks[t.key] = t
	return true
}

func (a *activeTasks) remove(t *task) {
	a.mutex.Lock()
	if a.tasks[t.key] == t {
		delete(a.tasks, t.key)
	}
	a.mutex.Unlock()
}

func (a *activeTasks) get(key message.Key) (*task, bool) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	t, ok := a.tasks[key]
	return t, ok
}

func (a *activeTasks) len() int {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return len(a.tasks)
}

// close refuses new tasks and returns the live ones.
func (a *activeTasks) close() []*task {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	a.closed = true
	live := make([]*task, 0, len(a.tasks))
	for _, t := range a.tasks {
		live = append(live, t)
	}
	return live
}
