/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package shimtest runs chaincode against an in-memory ledger for unit tests.
package shimtest

import (
	"sort"
	"unicode/utf8"

	"github.com/golang/protobuf/ptypes"
	"github.com/golang/protobuf/ptypes/timestamp"
	"github.com/hyperledger/fabric-chaincode-shim/common/flogging"
	"github.com/hyperledger/fabric-chaincode-shim/core/chaincode/shim"
	"github.com/hyperledger/fabric-protos-go/ledger/queryresult"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/pkg/errors"
)

var mockLogger = flogging.MustGetLogger("shimtest")

// MockStub is a ChaincodeStubInterface backed by maps. Use it in place of
// the stub handed out by a TaskManager when unit testing Init and Invoke.
// It runs one transaction at a time.
type MockStub struct {
	args [][]byte
	cc   shim.Chaincode

	// Name identifies the stub in logs.
	Name string

	// State is the public world state.
	State map[string][]byte
	// Keys holds the keys of State in sorted order.
	Keys []string

	// PvtState is the private world state per collection.
	PvtState map[string]map[string][]byte

	// EndorsementPolicies holds key level validation parameters per
	// collection; public state is the empty collection.
	EndorsementPolicies map[string]map[string][]byte

	// History records every write of a public key.
	History map[string][]*queryresult.KeyModification

	// Invokables are the chaincodes reachable through InvokeChaincode,
	// addressed as "name" or "name/channel".
	Invokables map[string]*MockStub

	TxID        string
	TxTimestamp *timestamp.Timestamp
	ChannelID   string

	Creator      []byte
	TransientMap map[string][]byte
	Decorations  map[string][]byte

	// ChaincodeEventsChannel receives the event of every transaction that
	// set one.
	ChaincodeEventsChannel chan *pb.ChaincodeEvent

	signedProposal *pb.SignedProposal
	event          *pb.ChaincodeEvent
}

// NewMockStub returns an empty stub running cc.
func NewMockStub(name string, cc shim.Chaincode) *MockStub {
	mockLogger.Debugf("MockStub(%s, %T)", name, cc)
	return &MockStub{
		Name:                   name,
		cc:                     cc,
		State:                  map[string][]byte{},
		PvtState:               map[string]map[string][]byte{},
		EndorsementPolicies:    map[string]map[string][]byte{},
		History:                map[string][]*queryresult.KeyModification{},
		Invokables:             map[string]*MockStub{},
		Decorations:            map[string][]byte{},
		ChaincodeEventsChannel: make(chan *pb.ChaincodeEvent, 100),
	}
}

// MockTransactionStart marks the beginning of transaction txid. Writes
// outside a transaction fail.
func (stub *MockStub) MockTransactionStart(txid string) {
	stub.TxID = txid
	stub.signedProposal = &pb.SignedProposal{}
	stub.TxTimestamp = ptypes.TimestampNow()
	stub.event = nil
}

// MockTransactionEnd ends the current transaction and publishes its event.
func (stub *MockStub) MockTransactionEnd(txid string) {
	if stub.event != nil {
		stub.ChaincodeEventsChannel <- stub.event
		stub.event = nil
	}
	stub.signedProposal = nil
	stub.TxID = ""
}

// MockPeerChaincode makes otherStub callable through InvokeChaincode. A
// non-empty channel is appended to name as "/channel".
func (stub *MockStub) MockPeerChaincode(name string, otherStub *MockStub, channel string) {
	if channel != "" {
		name = name + "/" + channel
	}
	stub.Invokables[name] = otherStub
}

// MockInit runs Init of the chaincode in transaction txid.
func (stub *MockStub) MockInit(txid string, args [][]byte) pb.Response {
	stub.args = args
	stub.MockTransactionStart(txid)
	defer stub.MockTransactionEnd(txid)
	return stub.cc.Init(stub)
}

// MockInvoke runs Invoke of the chaincode in transaction txid.
func (stub *MockStub) MockInvoke(txid string, args [][]byte) pb.Response {
	stub.args = args
	stub.MockTransactionStart(txid)
	defer stub.MockTransactionEnd(txid)
	return stub.cc.Invoke(stub)
}

// MockInvokeWithSignedProposal runs Invoke with sp as the signed proposal.
func (stub *MockStub) MockInvokeWithSignedProposal(txid string, args [][]byte, sp *pb.SignedProposal) pb.Response {
	stub.args = args
	stub.MockTransactionStart(txid)
	stub.signedProposal = sp
	defer stub.MockTransactionEnd(txid)
	return stub.cc.Invoke(stub)
}

func (stub *MockStub) GetTxID() string {
	return stub.TxID
}

func (stub *MockStub) GetChannelID() string {
	return stub.ChannelID
}

func (stub *MockStub) GetArgs() [][]byte {
	return stub.args
}

func (stub *MockStub) GetStringArgs() []string {
	strargs := make([]string, 0, len(stub.args))
	for _, barg := range stub.args {
		strargs = append(strargs, string(barg))
	}
	return strargs
}

func (stub *MockStub) GetFunctionAndParameters() (function string, params []string) {
	allargs := stub.GetStringArgs()
	params = []string{}
	if len(allargs) >= 1 {
		function = allargs[0]
		params = allargs[1:]
	}
	return
}

func (stub *MockStub) GetArgsSlice() ([]byte, error) {
	var res []byte
	for _, barg := range stub.args {
		res = append(res, barg...)
	}
	return res, nil
}

func (stub *MockStub) GetDecorations() map[string][]byte {
	return stub.Decorations
}

func (stub *MockStub) GetCreator() ([]byte, error) {
	return stub.Creator, nil
}

func (stub *MockStub) GetTransient() (map[string][]byte, error) {
	return stub.TransientMap, nil
}

// GetBinding is not modeled and returns nil.
func (stub *MockStub) GetBinding() ([]byte, error) {
	return nil, nil
}

func (stub *MockStub) GetSignedProposal() (*pb.SignedProposal, error) {
	return stub.signedProposal, nil
}

func (stub *MockStub) GetTxTimestamp() (*timestamp.Timestamp, error) {
	if stub.TxTimestamp == nil {
		return nil, errors.New("TxTimestamp not set")
	}
	return stub.TxTimestamp, nil
}

// SetEvent records the event of the current transaction. It is published on
// ChaincodeEventsChannel when the transaction ends.
func (stub *MockStub) SetEvent(name string, payload []byte) error {
	if name == "" {
		return errors.WithMessage(shim.ErrInvalidArgument, "event name can not be empty string")
	}
	stub.event = &pb.ChaincodeEvent{EventName: name, Payload: payload}
	return nil
}

// ---- public state ----

func (stub *MockStub) GetState(key string) ([]byte, error) {
	value := stub.State[key]
	mockLogger.Debugf("MockStub %s getting %s: %x", stub.Name, key, value)
	return value, nil
}

// PutState writes key. An empty value deletes it.
func (stub *MockStub) PutState(key string, value []byte) error {
	if err := stub.checkWrite(key); err != nil {
		return err
	}
	if len(value) == 0 {
		mockLogger.Debugf("MockStub %s: empty value for %s, deleting", stub.Name, key)
		return stub.DelState(key)
	}

	mockLogger.Debugf("MockStub %s putting %s: %x", stub.Name, key, value)
	if _, ok := stub.State[key]; !ok {
		i := sort.SearchStrings(stub.Keys, key)
		stub.Keys = append(stub.Keys, "")
		copy(stub.Keys[i+1:], stub.Keys[i:])
		stub.Keys[i] = key
	}
	stub.State[key] = value
	stub.recordHistory(key, value, false)
	return nil
}

func (stub *MockStub) DelState(key string) error {
	if err := stub.checkWrite(key); err != nil {
		return err
	}
	mockLogger.Debugf("MockStub %s deleting %s", stub.Name, key)
	if _, ok := stub.State[key]; !ok {
		return nil
	}
	delete(stub.State, key)
	i := sort.SearchStrings(stub.Keys, key)
	stub.Keys = append(stub.Keys[:i], stub.Keys[i+1:]...)
	stub.recordHistory(key, nil, true)
	return nil
}

func (stub *MockStub) checkWrite(key string) error {
	if stub.TxID == "" {
		err := errors.New("cannot write state without a transaction, call MockTransactionStart first")
		mockLogger.Errorf("%+v", err)
		return err
	}
	if key == "" {
		return errors.WithMessage(shim.ErrInvalidArgument, "key must not be an empty string")
	}
	return nil
}

func (stub *MockStub) recordHistory(key string, value []byte, isDelete bool) {
	stub.History[key] = append(stub.History[key], &queryresult.KeyModification{
		TxId:      stub.TxID,
		Value:     value,
		Timestamp: stub.TxTimestamp,
		IsDelete:  isDelete,
	})
}

func (stub *MockStub) SetStateValidationParameter(key string, ep []byte) error {
	return stub.SetPrivateDataValidationParameter("", key, ep)
}

func (stub *MockStub) GetStateValidationParameter(key string) ([]byte, error) {
	return stub.GetPrivateDataValidationParameter("", key)
}

// ---- private data ----

func (stub *MockStub) GetPrivateData(collection string, key string) ([]byte, error) {
	if collection == "" {
		return nil, errors.WithMessage(shim.ErrInvalidArgument, "collection must not be an empty string")
	}
	return stub.PvtState[collection][key], nil
}

func (stub *MockStub) PutPrivateData(collection string, key string, value []byte) error {
	if collection == "" {
		return errors.WithMessage(shim.ErrInvalidArgument, "collection must not be an empty string")
	}
	if err := stub.checkWrite(key); err != nil {
		return err
	}
	if stub.PvtState[collection] == nil {
		stub.PvtState[collection] = map[string][]byte{}
	}
	stub.PvtState[collection][key] = value
	return nil
}

func (stub *MockStub) DelPrivateData(collection string, key string) error {
	if collection == "" {
		return errors.WithMessage(shim.ErrInvalidArgument, "collection must not be an empty string")
	}
	if err := stub.checkWrite(key); err != nil {
		return err
	}
	delete(stub.PvtState[collection], key)
	return nil
}

// PurgePrivateData behaves like DelPrivateData; the mock keeps no private
// history.
func (stub *MockStub) PurgePrivateData(collection string, key string) error {
	return stub.DelPrivateData(collection, key)
}

func (stub *MockStub) GetPrivateDataByRange(collection, startKey, endKey string) (shim.StateQueryIteratorInterface, error) {
	if collection == "" {
		return nil, errors.WithMessage(shim.ErrInvalidArgument, "collection must not be an empty string")
	}
	if err := shim.ValidateSimpleKeys(startKey, endKey); err != nil {
		return nil, err
	}
	return newRangeIterator(stub.PvtState[collection], sortedKeys(stub.PvtState[collection]), simpleStartKey(startKey), endKey), nil
}

func (stub *MockStub) GetPrivateDataByPartialCompositeKey(collection, objectType string, attributes []string) (shim.StateQueryIteratorInterface, error) {
	if collection == "" {
		return nil, errors.WithMessage(shim.ErrInvalidArgument, "collection must not be an empty string")
	}
	startKey, endKey, err := partialCompositeKeyRange(objectType, attributes)
	if err != nil {
		return nil, err
	}
	return newRangeIterator(stub.PvtState[collection], sortedKeys(stub.PvtState[collection]), startKey, endKey), nil
}

// GetPrivateDataQueryResult is not supported: the mock has no query engine.
func (stub *MockStub) GetPrivateDataQueryResult(collection, query string) (shim.StateQueryIteratorInterface, error) {
	return nil, errors.New("not implemented")
}

func (stub *MockStub) SetPrivateDataValidationParameter(collection, key string, ep []byte) error {
	if stub.EndorsementPolicies[collection] == nil {
		stub.EndorsementPolicies[collection] = map[string][]byte{}
	}
	stub.EndorsementPolicies[collection][key] = ep
	return nil
}

func (stub *MockStub) GetPrivateDataValidationParameter(collection, key string) ([]byte, error) {
	return stub.EndorsementPolicies[collection][key], nil
}

// ---- queries ----

func (stub *MockStub) GetStateByRange(startKey, endKey string) (shim.StateQueryIteratorInterface, error) {
	if err := shim.ValidateSimpleKeys(startKey, endKey); err != nil {
		return nil, err
	}
	return newRangeIterator(stub.State, stub.Keys, simpleStartKey(startKey), endKey), nil
}

func (stub *MockStub) GetStateByRangeWithPagination(startKey, endKey string, pageSize int32,
	bookmark string) (shim.StateQueryIteratorInterface, *pb.QueryResponseMetadata, error) {
	if err := shim.ValidateSimpleKeys(startKey, endKey); err != nil {
		return nil, nil, err
	}
	iter, md := stub.page(simpleStartKey(startKey), endKey, pageSize, bookmark)
	return iter, md, nil
}

func (stub *MockStub) GetStateByPartialCompositeKey(objectType string, attributes []string) (shim.StateQueryIteratorInterface, error) {
	startKey, endKey, err := partialCompositeKeyRange(objectType, attributes)
	if err != nil {
		return nil, err
	}
	return newRangeIterator(stub.State, stub.Keys, startKey, endKey), nil
}

func (stub *MockStub) GetStateByPartialCompositeKeyWithPagination(objectType string, keys []string,
	pageSize int32, bookmark string) (shim.StateQueryIteratorInterface, *pb.QueryResponseMetadata, error) {
	startKey, endKey, err := partialCompositeKeyRange(objectType, keys)
	if err != nil {
		return nil, nil, err
	}
	iter, md := stub.page(startKey, endKey, pageSize, bookmark)
	return iter, md, nil
}

// page returns at most pageSize keys of [startKey, endKey) starting at
// bookmark. The returned bookmark is the first key of the next page.
func (stub *MockStub) page(startKey, endKey string, pageSize int32, bookmark string) (*MockStateRangeQueryIterator, *pb.QueryResponseMetadata) {
	if bookmark != "" && bookmark > startKey {
		startKey = bookmark
	}
	all := newRangeIterator(stub.State, stub.Keys, startKey, endKey)
	md := &pb.QueryResponseMetadata{}
	if pageSize > 0 && int32(len(all.keys)) > pageSize {
		md.Bookmark = all.keys[pageSize]
		all.keys = all.keys[:pageSize]
	}
	md.FetchedRecordsCount = int32(len(all.keys))
	return all, md
}

// GetQueryResult is not supported: the mock has no query engine.
func (stub *MockStub) GetQueryResult(query string) (shim.StateQueryIteratorInterface, error) {
	return nil, errors.New("not implemented")
}

func (stub *MockStub) GetQueryResultWithPagination(query string, pageSize int32,
	bookmark string) (shim.StateQueryIteratorInterface, *pb.QueryResponseMetadata, error) {
	return nil, nil, errors.New("not implemented")
}

func (stub *MockStub) GetHistoryForKey(key string) (shim.HistoryQueryIteratorInterface, error) {
	return &MockHistoryQueryIterator{modifications: append([]*queryresult.KeyModification(nil), stub.History[key]...)}, nil
}

func (stub *MockStub) CreateCompositeKey(objectType string, attributes []string) (string, error) {
	return shim.CreateCompositeKey(objectType, attributes)
}

func (stub *MockStub) SplitCompositeKey(compositeKey string) (string, []string, error) {
	return shim.SplitCompositeKey(compositeKey)
}

// InvokeChaincode runs a chaincode registered with MockPeerChaincode in the
// current transaction.
func (stub *MockStub) InvokeChaincode(chaincodeName string, args [][]byte, channel string) pb.Response {
	if channel != "" {
		chaincodeName = chaincodeName + "/" + channel
	}
	otherStub, ok := stub.Invokables[chaincodeName]
	if !ok {
		return shim.Error("chaincode " + chaincodeName + " not registered with " + stub.Name)
	}
	mockLogger.Debugf("MockStub %s invoking %s", stub.Name, otherStub.Name)
	res := otherStub.MockInvoke(stub.TxID, args)
	mockLogger.Debugf("MockStub %s invoked %s: status %d", stub.Name, otherStub.Name, res.Status)
	return res
}

func partialCompositeKeyRange(objectType string, attributes []string) (string, string, error) {
	partial, err := shim.CreateCompositeKey(objectType, attributes)
	if err != nil {
		return "", "", err
	}
	return partial, partial + string(utf8.MaxRune), nil
}

// simpleStartKey keeps an unbounded range out of the composite key namespace.
func simpleStartKey(startKey string) string {
	if startKey == "" {
		return "\x01"
	}
	return startKey
}

func sortedKeys(m map[string][]byte) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MockStateRangeQueryIterator iterates over a snapshot of the keys in
// [startKey, endKey). An empty endKey is unbounded.
type MockStateRangeQueryIterator struct {
	Closed bool

	state map[string][]byte
	keys  []string
}

func newRangeIterator(state map[string][]byte, sorted []string, startKey, endKey string) *MockStateRangeQueryIterator {
	lo := sort.SearchStrings(sorted, startKey)
	hi := len(sorted)
	if endKey != "" {
		hi = sort.SearchStrings(sorted, endKey)
	}
	if hi < lo {
		hi = lo
	}
	return &MockStateRangeQueryIterator{
		state: state,
		keys:  append([]string(nil), sorted[lo:hi]...),
	}
}

func (iter *MockStateRangeQueryIterator) HasNext() bool {
	return !iter.Closed && len(iter.keys) > 0
}

func (iter *MockStateRangeQueryIterator) Next() (*queryresult.KV, error) {
	if iter.Closed {
		return nil, errors.New("MockStateRangeQueryIterator.Next() called after Close()")
	}
	if len(iter.keys) == 0 {
		return nil, errors.New("MockStateRangeQueryIterator.Next() called when it does not HaveNext()")
	}
	key := iter.keys[0]
	iter.keys = iter.keys[1:]
	return &queryresult.KV{Key: key, Value: iter.state[key]}, nil
}

func (iter *MockStateRangeQueryIterator) Close() error {
	if iter.Closed {
		return errors.New("MockStateRangeQueryIterator.Close() called after Close()")
	}
	iter.Closed = true
	return nil
}

// MockHistoryQueryIterator iterates over the recorded modifications of a key.
type MockHistoryQueryIterator struct {
	modifications []*queryresult.KeyModification
	closed        bool
}

func (iter *MockHistoryQueryIterator) HasNext() bool {
	return !iter.closed && len(iter.modifications) > 0
}

func (iter *MockHistoryQueryIterator) Next() (*queryresult.KeyModification, error) {
	if !iter.HasNext() {
		return nil, errors.New("no such key")
	}
	km := iter.modifications[0]
	iter.modifications = iter.modifications[1:]
	return km, nil
}

func (iter *MockHistoryQueryIterator) Close() error {
	iter.closed = true
	return nil
}
