/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package shim

import (
	"github.com/golang/protobuf/ptypes/timestamp"
	"github.com/hyperledger/fabric-protos-go/ledger/queryresult"
	pb "github.com/hyperledger/fabric-protos-go/peer"
)

// Chaincode interface must be implemented by all chaincodes. The shim calls
// these functions from the task running each transaction.
type Chaincode interface {
	// Init is called during instantiate or upgrade to initialize any data.
	Init(stub ChaincodeStubInterface) pb.Response

	// Invoke is called to update or query the ledger in a proposal
	// transaction. Updated state variables are not committed until the
	// transaction is committed.
	Invoke(stub ChaincodeStubInterface) pb.Response
}

// ChaincodeStubInterface is the capability handed to chaincode for one
// transaction. Every state call is a blocking request to the peer scoped to
// that transaction.
type ChaincodeStubInterface interface {
	// GetArgs returns the arguments intended for the chaincode Init and
	// Invoke as an array of byte arrays.
	GetArgs() [][]byte

	// GetStringArgs returns the arguments as strings.
	GetStringArgs() []string

	// GetFunctionAndParameters returns the first argument as the function
	// name and the rest of the arguments as parameters.
	GetFunctionAndParameters() (string, []string)

	// GetArgsSlice returns the arguments concatenated into one byte slice.
	GetArgsSlice() ([]byte, error)

	// GetTxID returns the tx_id of the transaction proposal, which is unique
	// per transaction and per client.
	GetTxID() string

	// GetChannelID returns the channel the proposal is sent to.
	GetChannelID() string

	// InvokeChaincode calls chaincodeName on channel, or on the current
	// channel when channel is empty, within the same transaction context.
	// A rejected call is reported as a response with status ERROR.
	InvokeChaincode(chaincodeName string, args [][]byte, channel string) pb.Response

	// GetState returns the value of key from the ledger. A missing key
	// yields nil and no error.
	GetState(key string) ([]byte, error)

	// PutState puts key and value into the transaction's writeset. The write
	// is only applied when the transaction is validated and committed.
	PutState(key string, value []byte) error

	// DelState records the deletion of key in the transaction's writeset.
	DelState(key string) error

	// SetStateValidationParameter sets the key-level endorsement policy.
	SetStateValidationParameter(key string, ep []byte) error

	// GetStateValidationParameter returns the key-level endorsement policy.
	GetStateValidationParameter(key string) ([]byte, error)

	// GetStateByRange returns an iterator over keys in [startKey, endKey).
	// Empty bounds mean an unbounded range. The iterator must be closed.
	GetStateByRange(startKey, endKey string) (StateQueryIteratorInterface, error)

	// GetStateByRangeWithPagination returns one page of a range query and
	// the bookmark for the next page.
	GetStateByRangeWithPagination(startKey, endKey string, pageSize int32,
		bookmark string) (StateQueryIteratorInterface, *pb.QueryResponseMetadata, error)

	// GetStateByPartialCompositeKey queries keys sharing the given composite
	// key prefix.
	GetStateByPartialCompositeKey(objectType string, keys []string) (StateQueryIteratorInterface, error)

	// GetStateByPartialCompositeKeyWithPagination is the paged variant of
	// GetStateByPartialCompositeKey.
	GetStateByPartialCompositeKeyWithPagination(objectType string, keys []string,
		pageSize int32, bookmark string) (StateQueryIteratorInterface, *pb.QueryResponseMetadata, error)

	// CreateCompositeKey combines objectType and attributes into a key.
	CreateCompositeKey(objectType string, attributes []string) (string, error)

	// SplitCompositeKey splits a composite key into its object type and
	// attributes.
	SplitCompositeKey(compositeKey string) (string, []string, error)

	// GetQueryResult runs a rich query against a state database that
	// supports it.
	GetQueryResult(query string) (StateQueryIteratorInterface, error)

	// GetQueryResultWithPagination is the paged variant of GetQueryResult.
	GetQueryResultWithPagination(query string, pageSize int32,
		bookmark string) (StateQueryIteratorInterface, *pb.QueryResponseMetadata, error)

	// GetHistoryForKey returns the committed history of key.
	GetHistoryForKey(key string) (HistoryQueryIteratorInterface, error)

	// GetPrivateData returns the value of key in collection.
	GetPrivateData(collection, key string) ([]byte, error)

	// PutPrivateData writes key to collection.
	PutPrivateData(collection string, key string, value []byte) error

	// DelPrivateData deletes key from collection.
	DelPrivateData(collection, key string) error

	// PurgePrivateData removes key and its history from collection on every
	// peer holding it.
	PurgePrivateData(collection, key string) error

	// SetPrivateDataValidationParameter sets the key-level endorsement
	// policy of a private key.
	SetPrivateDataValidationParameter(collection, key string, ep []byte) error

	// GetPrivateDataValidationParameter returns the key-level endorsement
	// policy of a private key.
	GetPrivateDataValidationParameter(collection, key string) ([]byte, error)

	// GetPrivateDataByRange is GetStateByRange for a collection.
	GetPrivateDataByRange(collection, startKey, endKey string) (StateQueryIteratorInterface, error)

	// GetPrivateDataByPartialCompositeKey is GetStateByPartialCompositeKey
	// for a collection.
	GetPrivateDataByPartialCompositeKey(collection, objectType string, keys []string) (StateQueryIteratorInterface, error)

	// GetPrivateDataQueryResult is GetQueryResult for a collection.
	GetPrivateDataQueryResult(collection, query string) (StateQueryIteratorInterface, error)

	// GetCreator returns the identity of the proposal's submitter.
	GetCreator() ([]byte, error)

	// GetTransient returns the transient field of the proposal payload.
	GetTransient() (map[string][]byte, error)

	// GetBinding returns the hash binding the proposal to its submitter
	// and nonce.
	GetBinding() ([]byte, error)

	// GetDecorations returns the decorations the peer attached to the input.
	GetDecorations() map[string][]byte

	// GetSignedProposal returns the signed proposal of the transaction.
	GetSignedProposal() (*pb.SignedProposal, error)

	// GetTxTimestamp returns the timestamp from the transaction's channel
	// header.
	GetTxTimestamp() (*timestamp.Timestamp, error)

	// SetEvent sets the single event included with the transaction's
	// terminal message.
	SetEvent(name string, payload []byte) error
}

// CommonIteratorInterface allows a chaincode to check whether any more
// results are to be fetched from an iterator and close it when done.
type CommonIteratorInterface interface {
	// HasNext returns true if the range query iterator contains additional
	// keys and values.
	HasNext() bool

	// Close closes the iterator. This should be called when done reading
	// from the iterator to free up resources.
	Close() error
}

// StateQueryIteratorInterface allows a chaincode to iterate over a set of
// key/value pairs returned by range and execute query.
type StateQueryIteratorInterface interface {
	CommonIteratorInterface

	// Next returns the next key and value in the range and execute query
	// iterator.
	Next() (*queryresult.KV, error)
}

// HistoryQueryIteratorInterface allows a chaincode to iterate over a set of
// key/value pairs returned by a history query.
type HistoryQueryIteratorInterface interface {
	CommonIteratorInterface

	// Next returns the next key and value in the history query iterator.
	Next() (*queryresult.KeyModification, error)
}
