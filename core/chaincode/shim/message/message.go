/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package message builds the protocol messages exchanged between a chaincode
// and its peer. Every constructor checks the fields the protocol requires and
// refuses to produce a malformed message.
package message

import (
	"github.com/golang/protobuf/proto"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/pkg/errors"
)

// ErrInvalidMessage is matched by every error returned for a message that
// violates the protocol shape.
var ErrInvalidMessage = errors.New("invalid message")

// Key identifies the transaction a message belongs to. At most one request
// per Key may be outstanding toward the peer.
type Key struct {
	ChannelID string
	TxID      string
}

// KeyOf returns the correlation key carried by msg.
func KeyOf(msg *pb.ChaincodeMessage) Key {
	return Key{ChannelID: msg.ChannelId, TxID: msg.Txid}
}

func (k Key) String() string {
	return k.ChannelID + k.TxID
}

// ShortTxID returns the first eight characters of txid for log lines.
func ShortTxID(txid string) string {
	if len(txid) < 8 {
		return txid
	}
	return txid[0:8]
}

// IsConnectionLevel reports whether messages of type t belong to the
// connection rather than to a transaction.
func IsConnectionLevel(t pb.ChaincodeMessage_Type) bool {
	switch t {
	case pb.ChaincodeMessage_REGISTER,
		pb.ChaincodeMessage_REGISTERED,
		pb.ChaincodeMessage_READY,
		pb.ChaincodeMessage_KEEPALIVE:
		return true
	default:
		return false
	}
}

// RequiresTxID reports whether messages of type t must carry a transaction
// id. ERROR may be sent for the connection as a whole and is exempt.
func RequiresTxID(t pb.ChaincodeMessage_Type) bool {
	return !IsConnectionLevel(t) && t != pb.ChaincodeMessage_ERROR && t != pb.ChaincodeMessage_UNDEFINED
}

// Validate checks the shape of a message received from or bound for the peer.
func Validate(msg *pb.ChaincodeMessage) error {
	if msg == nil {
		return invalidf("nil message")
	}
	if _, ok := pb.ChaincodeMessage_Type_name[int32(msg.Type)]; !ok || msg.Type == pb.ChaincodeMessage_UNDEFINED {
		return invalidf("unknown message type %d", msg.Type)
	}
	if RequiresTxID(msg.Type) && msg.Txid == "" {
		return invalidf("%s requires a transaction id", msg.Type)
	}
	return nil
}

func invalidf(format string, args ...interface{}) error {
	return errors.WithMessagef(ErrInvalidMessage, format, args...)
}

func newTxMessage(t pb.ChaincodeMessage_Type, channelID, txid string, payload []byte) (*pb.ChaincodeMessage, error) {
	if txid == "" {
		return nil, invalidf("%s requires a transaction id", t)
	}
	return &pb.ChaincodeMessage{Type: t, ChannelId: channelID, Txid: txid, Payload: payload}, nil
}

func marshalTxMessage(t pb.ChaincodeMessage_Type, channelID, txid string, payload proto.Message) (*pb.ChaincodeMessage, error) {
	if txid == "" {
		return nil, invalidf("%s requires a transaction id", t)
	}
	b, err := proto.Marshal(payload)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to marshal %s payload", t)
	}
	return newTxMessage(t, channelID, txid, b)
}

// NewRegister creates the REGISTER message announcing the chaincode identity.
func NewRegister(id *pb.ChaincodeID) (*pb.ChaincodeMessage, error) {
	if id == nil || id.Name == "" {
		return nil, invalidf("REGISTER requires a chaincode name")
	}
	payload, err := proto.Marshal(id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal chaincode id")
	}
	return &pb.ChaincodeMessage{Type: pb.ChaincodeMessage_REGISTER, Payload: payload}, nil
}

// NewRegistered creates the peer's acknowledgement of a REGISTER.
func NewRegistered() *pb.ChaincodeMessage {
	return &pb.ChaincodeMessage{Type: pb.ChaincodeMessage_REGISTERED}
}

// NewReady creates the message that opens the connection for transactions.
func NewReady() *pb.ChaincodeMessage {
	return &pb.ChaincodeMessage{Type: pb.ChaincodeMessage_READY}
}

// NewKeepalive creates a KEEPALIVE message, which either side echoes.
func NewKeepalive() *pb.ChaincodeMessage {
	return &pb.ChaincodeMessage{Type: pb.ChaincodeMessage_KEEPALIVE}
}

// NewInit creates an INIT request carrying the marshaled input.
func NewInit(channelID, txid string, input *pb.ChaincodeInput, signedProp *pb.SignedProposal) (*pb.ChaincodeMessage, error) {
	return newInvocation(pb.ChaincodeMessage_INIT, channelID, txid, input, signedProp)
}

// NewTransaction creates a TRANSACTION request carrying the marshaled input.
func NewTransaction(channelID, txid string, input *pb.ChaincodeInput, signedProp *pb.SignedProposal) (*pb.ChaincodeMessage, error) {
	return newInvocation(pb.ChaincodeMessage_TRANSACTION, channelID, txid, input, signedProp)
}

func newInvocation(t pb.ChaincodeMessage_Type, channelID, txid string, input *pb.ChaincodeInput, signedProp *pb.SignedProposal) (*pb.ChaincodeMessage, error) {
	if input == nil {
		input = &pb.ChaincodeInput{}
	}
	msg, err := marshalTxMessage(t, channelID, txid, input)
	if err != nil {
		return nil, err
	}
	msg.Proposal = signedProp
	return msg, nil
}

// NewCompleted creates the terminal message of a successful task.
func NewCompleted(channelID, txid string, resp *pb.Response, event *pb.ChaincodeEvent) (*pb.ChaincodeMessage, error) {
	if resp == nil {
		return nil, invalidf("COMPLETED requires a response")
	}
	msg, err := marshalTxMessage(pb.ChaincodeMessage_COMPLETED, channelID, txid, resp)
	if err != nil {
		return nil, err
	}
	msg.ChaincodeEvent = event
	return msg, nil
}

// NewError creates an ERROR message. An empty txid addresses the connection.
func NewError(channelID, txid string, payload []byte, event *pb.ChaincodeEvent) *pb.ChaincodeMessage {
	return &pb.ChaincodeMessage{
		Type:           pb.ChaincodeMessage_ERROR,
		ChannelId:      channelID,
		Txid:           txid,
		Payload:        payload,
		ChaincodeEvent: event,
	}
}

// NewResponse creates a RESPONSE to a request made by the other side.
func NewResponse(channelID, txid string, payload []byte) (*pb.ChaincodeMessage, error) {
	return newTxMessage(pb.ChaincodeMessage_RESPONSE, channelID, txid, payload)
}

// NewGetState creates a GET_STATE request for key in collection, or in the
// public state when collection is empty.
func NewGetState(channelID, txid, collection, key string) (*pb.ChaincodeMessage, error) {
	return marshalTxMessage(pb.ChaincodeMessage_GET_STATE, channelID, txid, &pb.GetState{Key: key, Collection: collection})
}

// NewPutState creates a PUT_STATE request writing value under key.
func NewPutState(channelID, txid, collection, key string, value []byte) (*pb.ChaincodeMessage, error) {
	return marshalTxMessage(pb.ChaincodeMessage_PUT_STATE, channelID, txid, &pb.PutState{Key: key, Value: value, Collection: collection})
}

// NewDelState creates a DEL_STATE request.
func NewDelState(channelID, txid, collection, key string) (*pb.ChaincodeMessage, error) {
	return marshalTxMessage(pb.ChaincodeMessage_DEL_STATE, channelID, txid, &pb.DelState{Key: key, Collection: collection})
}

// NewPurgePrivateData creates a PURGE_PRIVATE_DATA request. Purging is only
// defined for private data, so a collection is required.
func NewPurgePrivateData(channelID, txid, collection, key string) (*pb.ChaincodeMessage, error) {
	if collection == "" {
		return nil, invalidf("PURGE_PRIVATE_DATA requires a collection")
	}
	return marshalTxMessage(pb.ChaincodeMessage_PURGE_PRIVATE_DATA, channelID, txid, &pb.DelState{Key: key, Collection: collection})
}

// NewGetStateByRange creates a GET_STATE_BY_RANGE request. metadata holds the
// marshaled pagination options, if any.
func NewGetStateByRange(channelID, txid, collection, startKey, endKey string, metadata []byte) (*pb.ChaincodeMessage, error) {
	return marshalTxMessage(pb.ChaincodeMessage_GET_STATE_BY_RANGE, channelID, txid, &pb.GetStateByRange{
		StartKey:   startKey,
		EndKey:     endKey,
		Collection: collection,
		Metadata:   metadata,
	})
}

// NewQueryStateNext asks for the next batch of the iterator id.
func NewQueryStateNext(channelID, txid, id string) (*pb.ChaincodeMessage, error) {
	if id == "" {
		return nil, invalidf("QUERY_STATE_NEXT requires an iterator id")
	}
	return marshalTxMessage(pb.ChaincodeMessage_QUERY_STATE_NEXT, channelID, txid, &pb.QueryStateNext{Id: id})
}

// NewQueryStateClose releases the iterator id on the peer.
func NewQueryStateClose(channelID, txid, id string) (*pb.ChaincodeMessage, error) {
	if id == "" {
		return nil, invalidf("QUERY_STATE_CLOSE requires an iterator id")
	}
	return marshalTxMessage(pb.ChaincodeMessage_QUERY_STATE_CLOSE, channelID, txid, &pb.QueryStateClose{Id: id})
}

// NewGetQueryResult creates a GET_QUERY_RESULT request for a rich query.
func NewGetQueryResult(channelID, txid, collection, query string, metadata []byte) (*pb.ChaincodeMessage, error) {
	return marshalTxMessage(pb.ChaincodeMessage_GET_QUERY_RESULT, channelID, txid, &pb.GetQueryResult{
		Query:      query,
		Collection: collection,
		Metadata:   metadata,
	})
}

// NewGetHistoryForKey creates a GET_HISTORY_FOR_KEY request.
func NewGetHistoryForKey(channelID, txid, key string) (*pb.ChaincodeMessage, error) {
	return marshalTxMessage(pb.ChaincodeMessage_GET_HISTORY_FOR_KEY, channelID, txid, &pb.GetHistoryForKey{Key: key})
}

// NewGetStateMetadata creates a GET_STATE_METADATA request.
func NewGetStateMetadata(channelID, txid, collection, key string) (*pb.ChaincodeMessage, error) {
	return marshalTxMessage(pb.ChaincodeMessage_GET_STATE_METADATA, channelID, txid, &pb.GetStateMetadata{Key: key, Collection: collection})
}

// NewPutStateMetadata creates a PUT_STATE_METADATA request setting metakey.
func NewPutStateMetadata(channelID, txid, collection, key, metakey string, value []byte) (*pb.ChaincodeMessage, error) {
	if metakey == "" {
		return nil, invalidf("PUT_STATE_METADATA requires a metadata key")
	}
	return marshalTxMessage(pb.ChaincodeMessage_PUT_STATE_METADATA, channelID, txid, &pb.PutStateMetadata{
		Key:        key,
		Collection: collection,
		Metadata:   &pb.StateMetadata{Metakey: metakey, Value: value},
	})
}

// NewInvokeChaincode creates a request to invoke another chaincode. name may
// carry a "/channel" suffix selecting the target channel.
func NewInvokeChaincode(channelID, txid, name string, args [][]byte) (*pb.ChaincodeMessage, error) {
	if name == "" {
		return nil, invalidf("INVOKE_CHAINCODE requires a chaincode name")
	}
	return marshalTxMessage(pb.ChaincodeMessage_INVOKE_CHAINCODE, channelID, txid, &pb.ChaincodeSpec{
		ChaincodeId: &pb.ChaincodeID{Name: name},
		Input:       &pb.ChaincodeInput{Args: args},
	})
}
