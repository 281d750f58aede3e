/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package shim

import (
	"github.com/golang/protobuf/proto"
	"github.com/hyperledger/fabric-protos-go/ledger/queryresult"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/pkg/errors"
)

// CommonIterator walks the pages of a query held open by the peer.
type CommonIterator struct {
	tm         *TaskManager
	task       *task
	response   *pb.QueryResponse
	currentLoc int
}

type StateQueryIterator struct {
	*CommonIterator
}

type HistoryQueryIterator struct {
	*CommonIterator
}

func (iter *StateQueryIterator) Next() (*queryresult.KV, error) {
	kv := &queryresult.KV{}
	if err := iter.nextResult(kv); err != nil {
		return nil, err
	}
	return kv, nil
}

func (iter *HistoryQueryIterator) Next() (*queryresult.KeyModification, error) {
	km := &queryresult.KeyModification{}
	if err := iter.nextResult(km); err != nil {
		return nil, err
	}
	return km, nil
}

func (iter *CommonIterator) HasNext() bool {
	return iter.currentLoc < len(iter.response.Results) || iter.response.HasMore
}

// nextResult decodes the next cached result into out. Consuming the last
// cached result of a page fetches the next page.
func (iter *CommonIterator) nextResult(out proto.Message) error {
	if iter.currentLoc >= len(iter.response.Results) {
		if !iter.response.HasMore {
			return errors.New("no such key")
		}
		return errors.New("invalid iterator state")
	}

	if err := proto.Unmarshal(iter.response.Results[iter.currentLoc].ResultBytes, out); err != nil {
		iter.tm.logger.Errorf("Failed to decode query results: %s", err)
		return errors.Wrap(err, "error unmarshaling result from bytes")
	}
	iter.currentLoc++

	if iter.currentLoc == len(iter.response.Results) && iter.response.HasMore {
		if err := iter.fetchNextQueryResult(); err != nil {
			iter.tm.logger.Errorf("Failed to fetch next results: %s", err)
			return err
		}
	}
	return nil
}

func (iter *CommonIterator) fetchNextQueryResult() error {
	response, err := iter.tm.handleQueryStateNext(iter.task, iter.response.Id)
	if err != nil {
		return err
	}
	iter.currentLoc = 0
	iter.response = response
	return nil
}

func (iter *CommonIterator) Close() error {
	_, err := iter.tm.handleQueryStateClose(iter.task, iter.response.Id)
	return err
}
