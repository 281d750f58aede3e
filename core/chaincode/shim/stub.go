/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package shim

import (
	"unicode/utf8"

	"github.com/golang/protobuf/proto"
	"github.com/golang/protobuf/ptypes/timestamp"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/pkg/errors"
)

const (
	minUnicodeRuneValue   = 0            //U+0000
	maxUnicodeRuneValue   = utf8.MaxRune //U+10FFFF - maximum (and unallocated) code point
	compositeKeyNamespace = "\x00"
	emptyKeySubstitute    = "\x01"
)

// ChaincodeStub is handed to Init and Invoke. Every ledger call it makes is
// a request to the peer on behalf of the transaction it was created for.
type ChaincodeStub struct {
	TxID           string
	ChannelID      string
	tm             *TaskManager
	task           *task
	args           [][]byte
	decorations    map[string][]byte
	signedProposal *pb.SignedProposal
	proposal       *proposalContext
	chaincodeEvent *pb.ChaincodeEvent

	validationParameterMetakey string
}

func newChaincodeStub(tm *TaskManager, t *task, input *pb.ChaincodeInput, signedProposal *pb.SignedProposal) (*ChaincodeStub, error) {
	stub := &ChaincodeStub{
		TxID:                       t.key.TxID,
		ChannelID:                  t.key.ChannelID,
		tm:                         tm,
		task:                       t,
		args:                       input.Args,
		decorations:                input.Decorations,
		signedProposal:             signedProposal,
		validationParameterMetakey: pb.MetaDataKeys_VALIDATION_PARAMETER.String(),
	}

	// a nil proposal is legal for calls that do not originate from a client
	if signedProposal != nil {
		pc, err := parseSignedProposal(signedProposal)
		if err != nil {
			return nil, err
		}
		stub.proposal = pc
	}
	return stub, nil
}

func (stub *ChaincodeStub) GetTxID() string {
	return stub.TxID
}

func (stub *ChaincodeStub) GetChannelID() string {
	return stub.ChannelID
}

func (stub *ChaincodeStub) GetDecorations() map[string][]byte {
	return stub.decorations
}

// InvokeChaincode addresses a chaincode on another channel as "name/channel".
func (stub *ChaincodeStub) InvokeChaincode(chaincodeName string, args [][]byte, channel string) pb.Response {
	if channel != "" {
		chaincodeName = chaincodeName + "/" + channel
	}
	return stub.tm.handleInvokeChaincode(stub.task, chaincodeName, args)
}

// ---- state ----

// Public state is the empty collection.

func (stub *ChaincodeStub) GetState(key string) ([]byte, error) {
	return stub.tm.handleGetState(stub.task, "", key)
}

func (stub *ChaincodeStub) PutState(key string, value []byte) error {
	if key == "" {
		return invalidArgument("key must not be an empty string")
	}
	return stub.tm.handlePutState(stub.task, "", key, value)
}

func (stub *ChaincodeStub) DelState(key string) error {
	return stub.tm.handleDelState(stub.task, "", key)
}

func (stub *ChaincodeStub) SetStateValidationParameter(key string, ep []byte) error {
	return stub.tm.handlePutStateMetadataEntry(stub.task, "", key, stub.validationParameterMetakey, ep)
}

func (stub *ChaincodeStub) GetStateValidationParameter(key string) ([]byte, error) {
	return stub.getValidationParameter("", key)
}

func (stub *ChaincodeStub) getValidationParameter(collection, key string) ([]byte, error) {
	md, err := stub.tm.handleGetStateMetadata(stub.task, collection, key)
	if err != nil {
		return nil, err
	}
	return md[stub.validationParameterMetakey], nil
}

// ---- private data ----

func (stub *ChaincodeStub) GetPrivateData(collection string, key string) ([]byte, error) {
	if collection == "" {
		return nil, invalidArgument("collection must not be an empty string")
	}
	return stub.tm.handleGetState(stub.task, collection, key)
}

func (stub *ChaincodeStub) PutPrivateData(collection string, key string, value []byte) error {
	if collection == "" {
		return invalidArgument("collection must not be an empty string")
	}
	if key == "" {
		return invalidArgument("key must not be an empty string")
	}
	return stub.tm.handlePutState(stub.task, collection, key, value)
}

func (stub *ChaincodeStub) DelPrivateData(collection string, key string) error {
	if collection == "" {
		return invalidArgument("collection must not be an empty string")
	}
	return stub.tm.handleDelState(stub.task, collection, key)
}

// PurgePrivateData removes the key and its history from the collection.
func (stub *ChaincodeStub) PurgePrivateData(collection string, key string) error {
	if collection == "" {
		return invalidArgument("collection must not be an empty string")
	}
	if key == "" {
		return invalidArgument("key must not be an empty string")
	}
	return stub.tm.handlePurgePrivateData(stub.task, collection, key)
}

func (stub *ChaincodeStub) GetPrivateDataByRange(collection, startKey, endKey string) (StateQueryIteratorInterface, error) {
	if collection == "" {
		return nil, invalidArgument("collection must not be an empty string")
	}
	if startKey == "" {
		startKey = emptyKeySubstitute
	}
	if err := validateSimpleKeys(startKey, endKey); err != nil {
		return nil, err
	}
	iterator, _, err := stub.handleGetStateByRange(collection, startKey, endKey, nil)
	return iterator, err
}

func (stub *ChaincodeStub) GetPrivateDataByPartialCompositeKey(collection, objectType string, attributes []string) (StateQueryIteratorInterface, error) {
	if collection == "" {
		return nil, invalidArgument("collection must not be an empty string")
	}
	startKey, endKey, err := createRangeKeysForPartialCompositeKey(objectType, attributes)
	if err != nil {
		return nil, err
	}
	iterator, _, err := stub.handleGetStateByRange(collection, startKey, endKey, nil)
	return iterator, err
}

func (stub *ChaincodeStub) GetPrivateDataQueryResult(collection, query string) (StateQueryIteratorInterface, error) {
	if collection == "" {
		return nil, invalidArgument("collection must not be an empty string")
	}
	iterator, _, err := stub.handleGetQueryResult(collection, query, nil)
	return iterator, err
}

func (stub *ChaincodeStub) GetPrivateDataValidationParameter(collection, key string) ([]byte, error) {
	return stub.getValidationParameter(collection, key)
}

func (stub *ChaincodeStub) SetPrivateDataValidationParameter(collection, key string, ep []byte) error {
	return stub.tm.handlePutStateMetadataEntry(stub.task, collection, key, stub.validationParameterMetakey, ep)
}

// ---- queries ----

func (stub *ChaincodeStub) handleGetStateByRange(collection, startKey, endKey string, metadata []byte) (StateQueryIteratorInterface, *pb.QueryResponseMetadata, error) {
	response, err := stub.tm.handleGetStateByRange(stub.task, collection, startKey, endKey, metadata)
	if err != nil {
		return nil, nil, err
	}
	return stub.stateIterator(response)
}

func (stub *ChaincodeStub) handleGetQueryResult(collection, query string, metadata []byte) (StateQueryIteratorInterface, *pb.QueryResponseMetadata, error) {
	response, err := stub.tm.handleGetQueryResult(stub.task, collection, query, metadata)
	if err != nil {
		return nil, nil, err
	}
	return stub.stateIterator(response)
}

func (stub *ChaincodeStub) stateIterator(response *pb.QueryResponse) (StateQueryIteratorInterface, *pb.QueryResponseMetadata, error) {
	responseMetadata := &pb.QueryResponseMetadata{}
	if err := proto.Unmarshal(response.Metadata, responseMetadata); err != nil {
		return nil, nil, errors.Wrap(err, "error unmarshaling query response metadata")
	}
	return &StateQueryIterator{CommonIterator: stub.newIterator(response)}, responseMetadata, nil
}

func (stub *ChaincodeStub) newIterator(response *pb.QueryResponse) *CommonIterator {
	return &CommonIterator{tm: stub.tm, task: stub.task, response: response}
}

func (stub *ChaincodeStub) GetStateByRange(startKey, endKey string) (StateQueryIteratorInterface, error) {
	if startKey == "" {
		startKey = emptyKeySubstitute
	}
	if err := validateSimpleKeys(startKey, endKey); err != nil {
		return nil, err
	}
	iterator, _, err := stub.handleGetStateByRange("", startKey, endKey, nil)
	return iterator, err
}

func (stub *ChaincodeStub) GetStateByRangeWithPagination(startKey, endKey string, pageSize int32,
	bookmark string) (StateQueryIteratorInterface, *pb.QueryResponseMetadata, error) {
	if startKey == "" {
		startKey = emptyKeySubstitute
	}
	if err := validateSimpleKeys(startKey, endKey); err != nil {
		return nil, nil, err
	}
	metadata, err := createQueryMetadata(pageSize, bookmark)
	if err != nil {
		return nil, nil, err
	}
	return stub.handleGetStateByRange("", startKey, endKey, metadata)
}

// GetStateByPartialCompositeKey returns the states whose composite key
// starts with objectType and attributes.
func (stub *ChaincodeStub) GetStateByPartialCompositeKey(objectType string, attributes []string) (StateQueryIteratorInterface, error) {
	startKey, endKey, err := createRangeKeysForPartialCompositeKey(objectType, attributes)
	if err != nil {
		return nil, err
	}
	iterator, _, err := stub.handleGetStateByRange("", startKey, endKey, nil)
	return iterator, err
}

func (stub *ChaincodeStub) GetStateByPartialCompositeKeyWithPagination(objectType string, keys []string,
	pageSize int32, bookmark string) (StateQueryIteratorInterface, *pb.QueryResponseMetadata, error) {
	metadata, err := createQueryMetadata(pageSize, bookmark)
	if err != nil {
		return nil, nil, err
	}
	startKey, endKey, err := createRangeKeysForPartialCompositeKey(objectType, keys)
	if err != nil {
		return nil, nil, err
	}
	return stub.handleGetStateByRange("", startKey, endKey, metadata)
}

func (stub *ChaincodeStub) GetQueryResult(query string) (StateQueryIteratorInterface, error) {
	iterator, _, err := stub.handleGetQueryResult("", query, nil)
	return iterator, err
}

func (stub *ChaincodeStub) GetQueryResultWithPagination(query string, pageSize int32,
	bookmark string) (StateQueryIteratorInterface, *pb.QueryResponseMetadata, error) {
	metadata, err := createQueryMetadata(pageSize, bookmark)
	if err != nil {
		return nil, nil, err
	}
	return stub.handleGetQueryResult("", query, metadata)
}

func (stub *ChaincodeStub) GetHistoryForKey(key string) (HistoryQueryIteratorInterface, error) {
	response, err := stub.tm.handleGetHistoryForKey(stub.task, key)
	if err != nil {
		return nil, err
	}
	return &HistoryQueryIterator{CommonIterator: stub.newIterator(response)}, nil
}

func createQueryMetadata(pageSize int32, bookmark string) ([]byte, error) {
	metadataBytes, err := proto.Marshal(&pb.QueryMetadata{PageSize: pageSize, Bookmark: bookmark})
	if err != nil {
		return nil, errors.Wrap(err, "error marshaling query metadata")
	}
	return metadataBytes, nil
}

// ---- composite keys ----

func (stub *ChaincodeStub) CreateCompositeKey(objectType string, attributes []string) (string, error) {
	return createCompositeKey(objectType, attributes)
}

func (stub *ChaincodeStub) SplitCompositeKey(compositeKey string) (string, []string, error) {
	return splitCompositeKey(compositeKey)
}

// CreateCompositeKey builds the composite key of objectType and attributes
// without a transaction.
func CreateCompositeKey(objectType string, attributes []string) (string, error) {
	return createCompositeKey(objectType, attributes)
}

// SplitCompositeKey is the inverse of CreateCompositeKey.
func SplitCompositeKey(compositeKey string) (string, []string, error) {
	return splitCompositeKey(compositeKey)
}

// ValidateSimpleKeys fails for keys in the composite key namespace.
func ValidateSimpleKeys(simpleKeys ...string) error {
	return validateSimpleKeys(simpleKeys...)
}

func createCompositeKey(objectType string, attributes []string) (string, error) {
	if err := validateCompositeKeyAttribute(objectType); err != nil {
		return "", err
	}
	ck := compositeKeyNamespace + objectType + string(rune(minUnicodeRuneValue))
	for _, att := range attributes {
		if err := validateCompositeKeyAttribute(att); err != nil {
			return "", err
		}
		ck += att + string(rune(minUnicodeRuneValue))
	}
	return ck, nil
}

func splitCompositeKey(compositeKey string) (string, []string, error) {
	if len(compositeKey) == 0 || compositeKey[0] != compositeKeyNamespace[0] {
		return "", nil, invalidArgument("[%x] is not a composite key", compositeKey)
	}
	componentIndex := 1
	components := []string{}
	for i := 1; i < len(compositeKey); i++ {
		if compositeKey[i] == minUnicodeRuneValue {
			components = append(components, compositeKey[componentIndex:i])
			componentIndex = i + 1
		}
	}
	if len(components) == 0 {
		return "", nil, invalidArgument("[%x] is not a composite key", compositeKey)
	}
	return components[0], components[1:], nil
}

func createRangeKeysForPartialCompositeKey(objectType string, attributes []string) (string, string, error) {
	partialCompositeKey, err := createCompositeKey(objectType, attributes)
	if err != nil {
		return "", "", err
	}
	return partialCompositeKey, partialCompositeKey + string(rune(maxUnicodeRuneValue)), nil
}

func validateCompositeKeyAttribute(str string) error {
	if !utf8.ValidString(str) {
		return invalidArgument("not a valid utf8 string: [%x]", str)
	}
	for index, runeValue := range str {
		if runeValue == minUnicodeRuneValue || runeValue == maxUnicodeRuneValue {
			return invalidArgument(`input contains unicode %#U starting at position [%d]. %#U and %#U are not allowed in the input attribute of a composite key`,
				runeValue, index, rune(minUnicodeRuneValue), rune(maxUnicodeRuneValue))
		}
	}
	return nil
}

// validateSimpleKeys rejects keys in the composite key namespace.
func validateSimpleKeys(simpleKeys ...string) error {
	for _, key := range simpleKeys {
		if len(key) > 0 && key[0] == compositeKeyNamespace[0] {
			return invalidArgument(`first character of the key [%s] contains a null character which is not allowed`, key)
		}
	}
	return nil
}

// ---- arguments and proposal ----

func (stub *ChaincodeStub) GetArgs() [][]byte {
	return stub.args
}

func (stub *ChaincodeStub) GetStringArgs() []string {
	args := stub.GetArgs()
	strargs := make([]string, 0, len(args))
	for _, barg := range args {
		strargs = append(strargs, string(barg))
	}
	return strargs
}

func (stub *ChaincodeStub) GetFunctionAndParameters() (function string, params []string) {
	allargs := stub.GetStringArgs()
	params = []string{}
	if len(allargs) >= 1 {
		function = allargs[0]
		params = allargs[1:]
	}
	return
}

func (stub *ChaincodeStub) GetArgsSlice() ([]byte, error) {
	res := []byte{}
	for _, barg := range stub.GetArgs() {
		res = append(res, barg...)
	}
	return res, nil
}

func (stub *ChaincodeStub) GetCreator() ([]byte, error) {
	if stub.proposal == nil {
		return nil, nil
	}
	return stub.proposal.creator, nil
}

func (stub *ChaincodeStub) GetTransient() (map[string][]byte, error) {
	if stub.proposal == nil {
		return nil, nil
	}
	return stub.proposal.transient, nil
}

func (stub *ChaincodeStub) GetBinding() ([]byte, error) {
	if stub.proposal == nil {
		return nil, nil
	}
	return stub.proposal.binding, nil
}

func (stub *ChaincodeStub) GetSignedProposal() (*pb.SignedProposal, error) {
	return stub.signedProposal, nil
}

func (stub *ChaincodeStub) GetTxTimestamp() (*timestamp.Timestamp, error) {
	if stub.proposal == nil {
		return nil, errors.Errorf("[%s] no proposal available for the transaction", shorttxid(stub.TxID))
	}
	return stub.proposal.timestamp, nil
}

// SetEvent attaches an event to the transaction. A later call replaces it.
func (stub *ChaincodeStub) SetEvent(name string, payload []byte) error {
	if name == "" {
		return invalidArgument("event name can not be empty string")
	}
	stub.chaincodeEvent = &pb.ChaincodeEvent{EventName: name, Payload: payload}
	return nil
}
