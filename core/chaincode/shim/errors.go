/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package shim

import (
	"fmt"

	"github.com/hyperledger/fabric-chaincode-shim/core/chaincode/shim/message"
	"github.com/pkg/errors"
)

var (
	// ErrInvalidArgument is matched by errors for missing or malformed
	// inputs at the call site.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrDuplicateTransaction is returned when INIT or TRANSACTION arrives
	// for a transaction that already has a live task.
	ErrDuplicateTransaction = errors.New("duplicate transaction")

	// ErrProtocolAnomaly is returned for inbound messages that fit no
	// routing rule once the connection is ready.
	ErrProtocolAnomaly = errors.New("protocol anomaly")

	// ErrUnexpectedMessage is returned for messages dropped during the
	// registration handshake.
	ErrUnexpectedMessage = errors.New("unexpected message")

	// ErrNotRegistered is returned by Send before an egress is attached.
	ErrNotRegistered = errors.New("not registered with the peer")

	// ErrTerminated is returned for any traffic after the connection ended.
	ErrTerminated = errors.New("connection terminated")

	// ErrShutdown is delivered to pending requests and running tasks when
	// the task manager is shut down.
	ErrShutdown = errors.New("task manager shut down")

	// ErrConnectionLost is matched by every TransportError.
	ErrConnectionLost = errors.New("connection to peer lost")
)

// PeerRejectedError reports an ERROR from the peer in reply to a request.
// Its message is the payload of the ERROR.
type PeerRejectedError struct {
	Op      string
	TxID    string
	Payload []byte
}

func (e *PeerRejectedError) Error() string {
	return string(e.Payload)
}

// TransportError reports a failure to send to or receive from the peer. It
// terminates the connection.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s failed: %s", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error        { return e.Err }
func (e *TransportError) Is(target error) bool { return target == ErrConnectionLost }

func invalidArgument(format string, args ...interface{}) error {
	return errors.WithMessagef(ErrInvalidArgument, format, args...)
}

func shorttxid(txid string) string {
	return message.ShortTxID(txid)
}
