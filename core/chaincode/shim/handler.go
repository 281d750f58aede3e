/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package shim

import (
	"context"
	"fmt"
	"strconv"

	"github.com/golang/protobuf/proto"
	"github.com/hyperledger/fabric-chaincode-shim/core/chaincode/shim/message"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/pkg/errors"
)

// callPeer sends req on behalf of t and waits for the RESPONSE. An ERROR
// from the peer is returned as a *PeerRejectedError.
func (tm *TaskManager) callPeer(t *task, req *pb.ChaincodeMessage) (resp *pb.ChaincodeMessage, err error) {
	defer func() {
		tm.metrics.PeerRequests.With("type", req.Type.String(), "success", strconv.FormatBool(err == nil)).Add(1)
	}()

	w, err := tm.registry.Register(t.key, pb.ChaincodeMessage_RESPONSE)
	if err != nil {
		tm.logger.Errorf("[%s] Another request pending for this channel and txid. Cannot process %s.", shorttxid(t.key.TxID), req.Type)
		return nil, err
	}
	defer w.Cancel()

	tm.logger.Debugf("[%s] Sending %s", shorttxid(req.Txid), req.Type)
	if err := tm.Send(req); err != nil {
		return nil, err
	}

	ctx := t.ctx
	if tm.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, tm.requestTimeout)
		defer cancel()
	}

	resp, err = w.Wait(ctx)
	if err != nil {
		return nil, err
	}
	if resp.Type == pb.ChaincodeMessage_ERROR {
		tm.logger.Errorf("[%s] Received %s in reply to %s. Payload: %s", shorttxid(resp.Txid), resp.Type, req.Type, resp.Payload)
		return nil, &PeerRejectedError{Op: req.Type.String(), TxID: resp.Txid, Payload: resp.Payload}
	}
	tm.logger.Debugf("[%s] Received %s in reply to %s", shorttxid(resp.Txid), resp.Type, req.Type)
	return resp, nil
}

func (tm *TaskManager) handleGetState(t *task, collection, key string) ([]byte, error) {
	req, err := message.NewGetState(t.key.ChannelID, t.key.TxID, collection, key)
	if err != nil {
		return nil, err
	}
	resp, err := tm.callPeer(t, req)
	if err != nil {
		return nil, errors.WithMessagef(err, "[%s] error sending %s", shorttxid(t.key.TxID), req.Type)
	}
	return resp.Payload, nil
}

func (tm *TaskManager) handleGetStateMetadata(t *task, collection, key string) (map[string][]byte, error) {
	req, err := message.NewGetStateMetadata(t.key.ChannelID, t.key.TxID, collection, key)
	if err != nil {
		return nil, err
	}
	resp, err := tm.callPeer(t, req)
	if err != nil {
		return nil, errors.WithMessagef(err, "[%s] error sending %s", shorttxid(t.key.TxID), req.Type)
	}

	mdResult := &pb.StateMetadataResult{}
	if err := proto.Unmarshal(resp.Payload, mdResult); err != nil {
		tm.logger.Errorf("[%s] GetStateMetadata could not unmarshal result", shorttxid(resp.Txid))
		return nil, errors.Wrap(err, "could not unmarshal metadata response")
	}
	metadata := make(map[string][]byte, len(mdResult.Entries))
	for _, md := range mdResult.Entries {
		metadata[md.Metakey] = md.Value
	}
	return metadata, nil
}

func (tm *TaskManager) handlePutState(t *task, collection, key string, value []byte) error {
	req, err := message.NewPutState(t.key.ChannelID, t.key.TxID, collection, key, value)
	if err != nil {
		return err
	}
	if _, err := tm.callPeer(t, req); err != nil {
		return errors.WithMessagef(err, "[%s] error sending %s", shorttxid(t.key.TxID), req.Type)
	}
	return nil
}

func (tm *TaskManager) handlePutStateMetadataEntry(t *task, collection, key, metakey string, metadata []byte) error {
	req, err := message.NewPutStateMetadata(t.key.ChannelID, t.key.TxID, collection, key, metakey, metadata)
	if err != nil {
		return err
	}
	if _, err := tm.callPeer(t, req); err != nil {
		return errors.WithMessagef(err, "[%s] error sending %s", shorttxid(t.key.TxID), req.Type)
	}
	return nil
}

func (tm *TaskManager) handleDelState(t *task, collection, key string) error {
	req, err := message.NewDelState(t.key.ChannelID, t.key.TxID, collection, key)
	if err != nil {
		return err
	}
	if _, err := tm.callPeer(t, req); err != nil {
		return errors.WithMessagef(err, "[%s] error sending %s", shorttxid(t.key.TxID), req.Type)
	}
	return nil
}

func (tm *TaskManager) handlePurgePrivateData(t *task, collection, key string) error {
	req, err := message.NewPurgePrivateData(t.key.ChannelID, t.key.TxID, collection, key)
	if err != nil {
		return err
	}
	if _, err := tm.callPeer(t, req); err != nil {
		return errors.WithMessagef(err, "[%s] error sending %s", shorttxid(t.key.TxID), req.Type)
	}
	return nil
}

// queryPeer sends a request answered with a QueryResponse.
func (tm *TaskManager) queryPeer(t *task, req *pb.ChaincodeMessage, err error) (*pb.QueryResponse, error) {
	if err != nil {
		return nil, err
	}
	resp, err := tm.callPeer(t, req)
	if err != nil {
		return nil, errors.WithMessagef(err, "[%s] error sending %s", shorttxid(t.key.TxID), req.Type)
	}

	queryResponse := &pb.QueryResponse{}
	if err := proto.Unmarshal(resp.Payload, queryResponse); err != nil {
		tm.logger.Errorf("[%s] unmarshal error in reply to %s", shorttxid(resp.Txid), req.Type)
		return nil, errors.Wrapf(err, "[%s] %s response unmarshal error", shorttxid(resp.Txid), req.Type)
	}
	return queryResponse, nil
}

func (tm *TaskManager) handleGetStateByRange(t *task, collection, startKey, endKey string, metadata []byte) (*pb.QueryResponse, error) {
	req, err := message.NewGetStateByRange(t.key.ChannelID, t.key.TxID, collection, startKey, endKey, metadata)
	return tm.queryPeer(t, req, err)
}

func (tm *TaskManager) handleQueryStateNext(t *task, id string) (*pb.QueryResponse, error) {
	req, err := message.NewQueryStateNext(t.key.ChannelID, t.key.TxID, id)
	return tm.queryPeer(t, req, err)
}

func (tm *TaskManager) handleQueryStateClose(t *task, id string) (*pb.QueryResponse, error) {
	req, err := message.NewQueryStateClose(t.key.ChannelID, t.key.TxID, id)
	return tm.queryPeer(t, req, err)
}

func (tm *TaskManager) handleGetQueryResult(t *task, collection, query string, metadata []byte) (*pb.QueryResponse, error) {
	req, err := message.NewGetQueryResult(t.key.ChannelID, t.key.TxID, collection, query, metadata)
	return tm.queryPeer(t, req, err)
}

func (tm *TaskManager) handleGetHistoryForKey(t *task, key string) (*pb.QueryResponse, error) {
	req, err := message.NewGetHistoryForKey(t.key.ChannelID, t.key.TxID, key)
	return tm.queryPeer(t, req, err)
}

// handleInvokeChaincode calls another chaincode. Every failure is reported
// as a response with ERROR status.
func (tm *TaskManager) handleInvokeChaincode(t *task, chaincodeName string, args [][]byte) pb.Response {
	req, err := message.NewInvokeChaincode(t.key.ChannelID, t.key.TxID, chaincodeName, args)
	if err != nil {
		return Error(err.Error())
	}

	resp, err := tm.callPeer(t, req)
	if err != nil {
		if rejected, ok := err.(*PeerRejectedError); ok {
			return Error(rejected.Error())
		}
		errStr := fmt.Sprintf("[%s] error sending %s: %s", shorttxid(t.key.TxID), req.Type, err)
		tm.logger.Error(errStr)
		return Error(errStr)
	}

	respMsg := &pb.ChaincodeMessage{}
	if err := proto.Unmarshal(resp.Payload, respMsg); err != nil {
		tm.logger.Errorf("[%s] Error unmarshaling called chaincode response: %s", shorttxid(resp.Txid), err)
		return Error(err.Error())
	}
	if respMsg.Type != pb.ChaincodeMessage_COMPLETED {
		tm.logger.Errorf("[%s] Received %s. Error from chaincode", shorttxid(resp.Txid), respMsg.Type)
		return Error(string(respMsg.Payload))
	}

	res := &pb.Response{}
	if err := proto.Unmarshal(respMsg.Payload, res); err != nil {
		tm.logger.Errorf("[%s] Error unmarshaling payload of response: %s", shorttxid(resp.Txid), err)
		return Error(err.Error())
	}
	tm.logger.Debugf("[%s] Successfully invoked chaincode %s", shorttxid(resp.Txid), chaincodeName)
	return *res
}
