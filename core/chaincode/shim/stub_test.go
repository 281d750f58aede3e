/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package shim_test

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/golang/protobuf/proto"
	"github.com/golang/protobuf/ptypes/timestamp"
	"github.com/google/uuid"
	"github.com/hyperledger/fabric-chaincode-shim/core/chaincode/shim"
	"github.com/hyperledger/fabric-chaincode-shim/core/chaincode/shim/fakes"
	"github.com/hyperledger/fabric-chaincode-shim/core/chaincode/shim/message"
	"github.com/hyperledger/fabric-protos-go/common"
	"github.com/hyperledger/fabric-protos-go/ledger/queryresult"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

const ledgerPageSize = 2

// ledgerPeer answers ledger requests from an in-memory world state. Range
// and query results are returned ledgerPageSize at a time.
type ledgerPeer struct {
	mutex     sync.Mutex
	state     map[string]map[string][]byte
	metadata  map[string]map[string][]byte
	history   map[string][]*queryresult.KeyModification
	iterators map[string][]*pb.QueryResultBytes
	requests  []*pb.ChaincodeMessage
	nextID    int
}

func newLedgerPeer() *ledgerPeer {
	return &ledgerPeer{
		state:     map[string]map[string][]byte{},
		metadata:  map[string]map[string][]byte{},
		history:   map[string][]*queryresult.KeyModification{},
		iterators: map[string][]*pb.QueryResultBytes{},
	}
}

func (l *ledgerPeer) put(collection, key string, value []byte) {
	if l.state[collection] == nil {
		l.state[collection] = map[string][]byte{}
	}
	l.state[collection][key] = value
}

func (l *ledgerPeer) get(collection, key string) []byte {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.state[collection][key]
}

func (l *ledgerPeer) requestTypes() []pb.ChaincodeMessage_Type {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	var types []pb.ChaincodeMessage_Type
	for _, r := range l.requests {
		types = append(types, r.Type)
	}
	return types
}

func (l *ledgerPeer) reply(req *pb.ChaincodeMessage) *pb.ChaincodeMessage {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.requests = append(l.requests, req)

	switch req.Type {
	case pb.ChaincodeMessage_GET_STATE:
		gs := &pb.GetState{}
		Expect(proto.Unmarshal(req.Payload, gs)).To(Succeed())
		return response(req, l.state[gs.Collection][gs.Key])

	case pb.ChaincodeMessage_PUT_STATE:
		ps := &pb.PutState{}
		Expect(proto.Unmarshal(req.Payload, ps)).To(Succeed())
		l.put(ps.Collection, ps.Key, ps.Value)
		l.history[ps.Key] = append(l.history[ps.Key], &queryresult.KeyModification{TxId: req.Txid, Value: ps.Value})
		return response(req, nil)

	case pb.ChaincodeMessage_DEL_STATE, pb.ChaincodeMessage_PURGE_PRIVATE_DATA:
		ds := &pb.DelState{}
		Expect(proto.Unmarshal(req.Payload, ds)).To(Succeed())
		delete(l.state[ds.Collection], ds.Key)
		l.history[ds.Key] = append(l.history[ds.Key], &queryresult.KeyModification{TxId: req.Txid, IsDelete: true})
		return response(req, nil)

	case pb.ChaincodeMessage_GET_STATE_METADATA:
		gm := &pb.GetStateMetadata{}
		Expect(proto.Unmarshal(req.Payload, gm)).To(Succeed())
		result := &pb.StateMetadataResult{}
		for k, v := range l.metadata[gm.Collection+"/"+gm.Key] {
			result.Entries = append(result.Entries, &pb.StateMetadata{Metakey: k, Value: v})
		}
		return response(req, marshal(result))

	case pb.ChaincodeMessage_PUT_STATE_METADATA:
		pm := &pb.PutStateMetadata{}
		Expect(proto.Unmarshal(req.Payload, pm)).To(Succeed())
		id := pm.Collection + "/" + pm.Key
		if l.metadata[id] == nil {
			l.metadata[id] = map[string][]byte{}
		}
		l.metadata[id][pm.Metadata.Metakey] = pm.Metadata.Value
		return response(req, nil)

	case pb.ChaincodeMessage_GET_STATE_BY_RANGE:
		gr := &pb.GetStateByRange{}
		Expect(proto.Unmarshal(req.Payload, gr)).To(Succeed())
		startKey := gr.StartKey
		if startKey == "\x01" {
			startKey = ""
		}
		return l.page(req, gr.Metadata, func(key string) bool {
			return key >= startKey && (gr.EndKey == "" || key < gr.EndKey)
		}, gr.Collection)

	case pb.ChaincodeMessage_GET_QUERY_RESULT:
		gq := &pb.GetQueryResult{}
		Expect(proto.Unmarshal(req.Payload, gq)).To(Succeed())
		if !strings.HasPrefix(gq.Query, "prefix:") {
			return message.NewError(req.ChannelId, req.Txid, []byte("unsupported query "+gq.Query), nil)
		}
		prefix := strings.TrimPrefix(gq.Query, "prefix:")
		return l.page(req, gq.Metadata, func(key string) bool { return strings.HasPrefix(key, prefix) }, gq.Collection)

	case pb.ChaincodeMessage_QUERY_STATE_NEXT:
		qn := &pb.QueryStateNext{}
		Expect(proto.Unmarshal(req.Payload, qn)).To(Succeed())
		rest, ok := l.iterators[qn.Id]
		if !ok {
			return message.NewError(req.ChannelId, req.Txid, []byte("query iterator not found"), nil)
		}
		return response(req, marshal(l.nextPage(qn.Id, rest)))

	case pb.ChaincodeMessage_QUERY_STATE_CLOSE:
		qc := &pb.QueryStateClose{}
		Expect(proto.Unmarshal(req.Payload, qc)).To(Succeed())
		delete(l.iterators, qc.Id)
		return response(req, marshal(&pb.QueryResponse{Id: qc.Id}))

	case pb.ChaincodeMessage_GET_HISTORY_FOR_KEY:
		gh := &pb.GetHistoryForKey{}
		Expect(proto.Unmarshal(req.Payload, gh)).To(Succeed())
		qr := &pb.QueryResponse{}
		for _, km := range l.history[gh.Key] {
			qr.Results = append(qr.Results, &pb.QueryResultBytes{ResultBytes: marshal(km)})
		}
		return response(req, marshal(qr))

	case pb.ChaincodeMessage_INVOKE_CHAINCODE:
		spec := &pb.ChaincodeSpec{}
		Expect(proto.Unmarshal(req.Payload, spec)).To(Succeed())
		name := spec.ChaincodeId.Name
		switch {
		case strings.HasPrefix(name, "missing"):
			return message.NewError(req.ChannelId, req.Txid, []byte("chaincode "+name+" not found"), nil)
		case strings.HasPrefix(name, "failing"):
			return response(req, marshal(&pb.ChaincodeMessage{Type: pb.ChaincodeMessage_ERROR, Payload: []byte("callee failed")}))
		default:
			payload := fmt.Sprintf("%s:%s", name, spec.Input.Args[0])
			called := &pb.ChaincodeMessage{Type: pb.ChaincodeMessage_COMPLETED, Payload: marshal(&pb.Response{Status: shim.OK, Payload: []byte(payload)})}
			return response(req, marshal(called))
		}
	}
	return message.NewError(req.ChannelId, req.Txid, []byte("unsupported request "+req.Type.String()), nil)
}

// page collects the matching keys of collection in order and returns the
// first page. With query metadata the peer returns a single page of the
// requested size instead of an iterator.
func (l *ledgerPeer) page(req *pb.ChaincodeMessage, metadata []byte, match func(string) bool, collection string) *pb.ChaincodeMessage {
	var keys []string
	for k := range l.state[collection] {
		if match(k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	l.nextID++
	id := fmt.Sprintf("iter%d", l.nextID)
	if metadata != nil {
		qm := &pb.QueryMetadata{}
		Expect(proto.Unmarshal(metadata, qm)).To(Succeed())
		for len(keys) > 0 && qm.Bookmark != "" && keys[0] < qm.Bookmark {
			keys = keys[1:]
		}
		bookmark := ""
		if int32(len(keys)) > qm.PageSize {
			bookmark = keys[qm.PageSize]
			keys = keys[:qm.PageSize]
		}
		qr := &pb.QueryResponse{
			Id:       id,
			Results:  l.results(collection, keys),
			Metadata: marshal(&pb.QueryResponseMetadata{FetchedRecordsCount: int32(len(keys)), Bookmark: bookmark}),
		}
		return response(req, marshal(qr))
	}

	return response(req, marshal(l.nextPage(id, l.results(collection, keys))))
}

func (l *ledgerPeer) results(collection string, keys []string) []*pb.QueryResultBytes {
	var results []*pb.QueryResultBytes
	for _, k := range keys {
		kv := &queryresult.KV{Namespace: "cc1", Key: k, Value: l.state[collection][k]}
		results = append(results, &pb.QueryResultBytes{ResultBytes: marshal(kv)})
	}
	return results
}

func (l *ledgerPeer) nextPage(id string, results []*pb.QueryResultBytes) *pb.QueryResponse {
	qr := &pb.QueryResponse{Id: id}
	if len(results) > ledgerPageSize {
		qr.Results = results[:ledgerPageSize]
		qr.HasMore = true
		l.iterators[id] = results[ledgerPageSize:]
		return qr
	}
	qr.Results = results
	delete(l.iterators, id)
	return qr
}

func signedProposal(creator, nonce []byte, epoch uint64, ts *timestamp.Timestamp, transient map[string][]byte) *pb.SignedProposal {
	hdr := &common.Header{
		ChannelHeader:   marshal(&common.ChannelHeader{ChannelId: "ch", Epoch: epoch, Timestamp: ts}),
		SignatureHeader: marshal(&common.SignatureHeader{Creator: creator, Nonce: nonce}),
	}
	prop := &pb.Proposal{
		Header:  marshal(hdr),
		Payload: marshal(&pb.ChaincodeProposalPayload{TransientMap: transient}),
	}
	return &pb.SignedProposal{ProposalBytes: marshal(prop), Signature: []byte("signature")}
}

var _ = Describe("ChaincodeStub", func() {
	var (
		fakeCC   *fakes.Chaincode
		tm       *shim.TaskManager
		ledger   *ledgerPeer
		terminal <-chan *pb.ChaincodeMessage
	)

	BeforeEach(func() {
		fakeCC = &fakes.Chaincode{}
		ledger = newLedgerPeer()
		var sent chan *pb.ChaincodeMessage
		tm, _, sent = readyManager(fakeCC)
		terminal = answer(tm, sent, ledger.reply)
	})

	AfterEach(func() {
		tm.Shutdown()
	})

	// invoke runs fn as the chaincode of a new transaction and waits for it
	// to complete.
	invoke := func(msg *pb.ChaincodeMessage, fn func(shim.ChaincodeStubInterface)) *pb.ChaincodeMessage {
		fakeCC.InvokeStub = func(stub shim.ChaincodeStubInterface) pb.Response {
			defer GinkgoRecover()
			fn(stub)
			return shim.Success(nil)
		}
		Expect(tm.HandleMessage(msg)).To(Succeed())
		var done *pb.ChaincodeMessage
		Eventually(terminal).Should(Receive(&done))
		return done
	}
	run := func(fn func(shim.ChaincodeStubInterface)) {
		done := invoke(transaction("ch", uuid.New().String(), "fn", "a", "b"), fn)
		Expect(completedResponse(done).Status).To(BeEquivalentTo(shim.OK))
	}

	Describe("arguments", func() {
		It("exposes the invocation input", func() {
			run(func(stub shim.ChaincodeStubInterface) {
				Expect(stub.GetArgs()).To(Equal([][]byte{[]byte("fn"), []byte("a"), []byte("b")}))
				Expect(stub.GetStringArgs()).To(Equal([]string{"fn", "a", "b"}))
				function, params := stub.GetFunctionAndParameters()
				Expect(function).To(Equal("fn"))
				Expect(params).To(Equal([]string{"a", "b"}))
				slice, err := stub.GetArgsSlice()
				Expect(err).NotTo(HaveOccurred())
				Expect(slice).To(Equal([]byte("fnab")))
				Expect(stub.GetChannelID()).To(Equal("ch"))
				Expect(stub.GetTxID()).NotTo(BeEmpty())
			})
		})

		It("returns empty parameters without arguments", func() {
			done := invoke(transaction("ch", "noargs"), func(stub shim.ChaincodeStubInterface) {
				function, params := stub.GetFunctionAndParameters()
				Expect(function).To(BeEmpty())
				Expect(params).To(BeEmpty())
			})
			Expect(done.Type).To(Equal(pb.ChaincodeMessage_COMPLETED))
		})

		It("exposes decorations", func() {
			input := &pb.ChaincodeInput{Args: [][]byte{[]byte("fn")}, Decorations: map[string][]byte{"k": []byte("v")}}
			msg, err := message.NewTransaction("ch", "deco", input, nil)
			Expect(err).NotTo(HaveOccurred())
			invoke(msg, func(stub shim.ChaincodeStubInterface) {
				Expect(stub.GetDecorations()).To(HaveKeyWithValue("k", []byte("v")))
			})
		})
	})

	Describe("proposal", func() {
		It("exposes the fields of the signed proposal", func() {
			ts := &timestamp.Timestamp{Seconds: 1700000000, Nanos: 42}
			sp := signedProposal([]byte("creator"), []byte("nonce"), 7, ts, map[string][]byte{"secret": []byte("s3cr3t")})
			msg, err := message.NewTransaction("ch", "prop", &pb.ChaincodeInput{}, sp)
			Expect(err).NotTo(HaveOccurred())

			epoch := make([]byte, 8)
			binary.LittleEndian.PutUint64(epoch, 7)
			expectedBinding := sha256.Sum256(append([]byte("noncecreator"), epoch...))

			done := invoke(msg, func(stub shim.ChaincodeStubInterface) {
				creator, err := stub.GetCreator()
				Expect(err).NotTo(HaveOccurred())
				Expect(creator).To(Equal([]byte("creator")))

				transient, err := stub.GetTransient()
				Expect(err).NotTo(HaveOccurred())
				Expect(transient).To(HaveKeyWithValue("secret", []byte("s3cr3t")))

				binding, err := stub.GetBinding()
				Expect(err).NotTo(HaveOccurred())
				Expect(binding).To(Equal(expectedBinding[:]))

				txts, err := stub.GetTxTimestamp()
				Expect(err).NotTo(HaveOccurred())
				Expect(proto.Equal(txts, ts)).To(BeTrue())

				signed, err := stub.GetSignedProposal()
				Expect(err).NotTo(HaveOccurred())
				Expect(proto.Equal(signed, sp)).To(BeTrue())
			})
			Expect(done.Type).To(Equal(pb.ChaincodeMessage_COMPLETED))
		})

		It("has no proposal fields without a proposal", func() {
			run(func(stub shim.ChaincodeStubInterface) {
				creator, err := stub.GetCreator()
				Expect(err).NotTo(HaveOccurred())
				Expect(creator).To(BeNil())
				sp, err := stub.GetSignedProposal()
				Expect(err).NotTo(HaveOccurred())
				Expect(sp).To(BeNil())
				_, err = stub.GetTxTimestamp()
				Expect(err).To(MatchError(ContainSubstring("no proposal available")))
			})
		})
	})

	Describe("state", func() {
		It("puts, gets and deletes keys", func() {
			run(func(stub shim.ChaincodeStubInterface) {
				Expect(stub.PutState("k1", []byte("v1"))).To(Succeed())
				v, err := stub.GetState("k1")
				Expect(err).NotTo(HaveOccurred())
				Expect(v).To(Equal([]byte("v1")))

				Expect(stub.DelState("k1")).To(Succeed())
				v, err = stub.GetState("k1")
				Expect(err).NotTo(HaveOccurred())
				Expect(v).To(BeEmpty())
			})
			Expect(ledger.requestTypes()).To(Equal([]pb.ChaincodeMessage_Type{
				pb.ChaincodeMessage_PUT_STATE,
				pb.ChaincodeMessage_GET_STATE,
				pb.ChaincodeMessage_DEL_STATE,
				pb.ChaincodeMessage_GET_STATE,
			}))
		})

		It("rejects an empty key without asking the peer", func() {
			run(func(stub shim.ChaincodeStubInterface) {
				err := stub.PutState("", []byte("v"))
				Expect(err).To(MatchError(shim.ErrInvalidArgument))
			})
			Expect(ledger.requestTypes()).To(BeEmpty())
		})

		It("stores validation parameters as metadata", func() {
			run(func(stub shim.ChaincodeStubInterface) {
				Expect(stub.SetStateValidationParameter("k1", []byte("policy"))).To(Succeed())
				ep, err := stub.GetStateValidationParameter("k1")
				Expect(err).NotTo(HaveOccurred())
				Expect(ep).To(Equal([]byte("policy")))

				ep, err = stub.GetStateValidationParameter("other")
				Expect(err).NotTo(HaveOccurred())
				Expect(ep).To(BeNil())
			})
		})
	})

	Describe("private data", func() {
		It("keeps collections apart from public state", func() {
			run(func(stub shim.ChaincodeStubInterface) {
				Expect(stub.PutPrivateData("coll", "k1", []byte("private"))).To(Succeed())
				Expect(stub.PutState("k1", []byte("public"))).To(Succeed())

				v, err := stub.GetPrivateData("coll", "k1")
				Expect(err).NotTo(HaveOccurred())
				Expect(v).To(Equal([]byte("private")))

				Expect(stub.SetPrivateDataValidationParameter("coll", "k1", []byte("ep"))).To(Succeed())
				ep, err := stub.GetPrivateDataValidationParameter("coll", "k1")
				Expect(err).NotTo(HaveOccurred())
				Expect(ep).To(Equal([]byte("ep")))

				Expect(stub.DelPrivateData("coll", "k1")).To(Succeed())
			})
			Expect(ledger.get("coll", "k1")).To(BeNil())
			Expect(ledger.get("", "k1")).To(Equal([]byte("public")))
		})

		It("purges a key", func() {
			run(func(stub shim.ChaincodeStubInterface) {
				Expect(stub.PutPrivateData("coll", "k1", []byte("private"))).To(Succeed())
				Expect(stub.PurgePrivateData("coll", "k1")).To(Succeed())
			})
			Expect(ledger.requestTypes()).To(ContainElement(pb.ChaincodeMessage_PURGE_PRIVATE_DATA))
			Expect(ledger.get("coll", "k1")).To(BeNil())
		})

		It("requires a collection", func() {
			run(func(stub shim.ChaincodeStubInterface) {
				_, err := stub.GetPrivateData("", "k")
				Expect(err).To(MatchError(shim.ErrInvalidArgument))
				Expect(stub.PutPrivateData("", "k", nil)).To(MatchError(shim.ErrInvalidArgument))
				Expect(stub.DelPrivateData("", "k")).To(MatchError(shim.ErrInvalidArgument))
				Expect(stub.PurgePrivateData("", "k")).To(MatchError(shim.ErrInvalidArgument))
				_, err = stub.GetPrivateDataByRange("", "a", "b")
				Expect(err).To(MatchError(shim.ErrInvalidArgument))
				_, err = stub.GetPrivateDataByPartialCompositeKey("", "obj", nil)
				Expect(err).To(MatchError(shim.ErrInvalidArgument))
				_, err = stub.GetPrivateDataQueryResult("", "prefix:")
				Expect(err).To(MatchError(shim.ErrInvalidArgument))
			})
			Expect(ledger.requestTypes()).To(BeEmpty())
		})

		It("requires a key to write", func() {
			run(func(stub shim.ChaincodeStubInterface) {
				Expect(stub.PutPrivateData("coll", "", nil)).To(MatchError(shim.ErrInvalidArgument))
				Expect(stub.PurgePrivateData("coll", "")).To(MatchError(shim.ErrInvalidArgument))
			})
		})
	})

	Describe("range queries", func() {
		BeforeEach(func() {
			for _, k := range []string{"a", "b", "c", "d", "e"} {
				ledger.put("", k, []byte("value-"+k))
			}
		})

		It("iterates across pages", func() {
			run(func(stub shim.ChaincodeStubInterface) {
				iter, err := stub.GetStateByRange("b", "")
				Expect(err).NotTo(HaveOccurred())
				var keys []string
				for iter.HasNext() {
					kv, err := iter.Next()
					Expect(err).NotTo(HaveOccurred())
					keys = append(keys, kv.Key)
				}
				Expect(keys).To(Equal([]string{"b", "c", "d", "e"}))
				_, err = iter.Next()
				Expect(err).To(MatchError("no such key"))
				Expect(iter.Close()).To(Succeed())
			})
			Expect(ledger.requestTypes()).To(Equal([]pb.ChaincodeMessage_Type{
				pb.ChaincodeMessage_GET_STATE_BY_RANGE,
				pb.ChaincodeMessage_QUERY_STATE_NEXT,
				pb.ChaincodeMessage_QUERY_STATE_CLOSE,
			}))
		})

		It("reads the whole namespace with empty bounds", func() {
			run(func(stub shim.ChaincodeStubInterface) {
				iter, err := stub.GetStateByRange("", "c")
				Expect(err).NotTo(HaveOccurred())
				defer iter.Close()
				var keys []string
				for iter.HasNext() {
					kv, err := iter.Next()
					Expect(err).NotTo(HaveOccurred())
					keys = append(keys, kv.Key)
				}
				Expect(keys).To(Equal([]string{"a", "b"}))
			})
		})

		It("returns a page with its metadata", func() {
			run(func(stub shim.ChaincodeStubInterface) {
				iter, md, err := stub.GetStateByRangeWithPagination("", "", 3, "")
				Expect(err).NotTo(HaveOccurred())
				Expect(md.FetchedRecordsCount).To(BeEquivalentTo(3))
				Expect(md.Bookmark).To(Equal("d"))
				Expect(iter.Close()).To(Succeed())

				iter, md, err = stub.GetStateByRangeWithPagination("", "", 3, md.Bookmark)
				Expect(err).NotTo(HaveOccurred())
				Expect(md.FetchedRecordsCount).To(BeEquivalentTo(2))
				Expect(md.Bookmark).To(BeEmpty())
				kv, err := iter.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(kv.Key).To(Equal("d"))
			})
		})

		It("rejects keys in the composite key namespace", func() {
			run(func(stub shim.ChaincodeStubInterface) {
				_, err := stub.GetStateByRange("\x00obj", "")
				Expect(err).To(MatchError(shim.ErrInvalidArgument))
				_, _, err = stub.GetStateByRangeWithPagination("a", "\x00z", 1, "")
				Expect(err).To(MatchError(shim.ErrInvalidArgument))
			})
			Expect(ledger.requestTypes()).To(BeEmpty())
		})

		It("runs rich queries", func() {
			ledger.put("", "car1", []byte("red"))
			ledger.put("", "car2", []byte("blue"))
			run(func(stub shim.ChaincodeStubInterface) {
				iter, err := stub.GetQueryResult("prefix:car")
				Expect(err).NotTo(HaveOccurred())
				kv, err := iter.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(kv.Value).To(Equal([]byte("red")))
				kv, err = iter.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(kv.Value).To(Equal([]byte("blue")))
				Expect(iter.HasNext()).To(BeFalse())

				_, md, err := stub.GetQueryResultWithPagination("prefix:car", 1, "")
				Expect(err).NotTo(HaveOccurred())
				Expect(md.Bookmark).To(Equal("car2"))

				_, err = stub.GetQueryResult("select *")
				Expect(err).To(MatchError(ContainSubstring("unsupported query select *")))
			})
		})
	})

	Describe("composite keys", func() {
		It("creates and splits keys", func() {
			run(func(stub shim.ChaincodeStubInterface) {
				key, err := stub.CreateCompositeKey("car", []string{"red", "1"})
				Expect(err).NotTo(HaveOccurred())
				Expect(key).To(Equal("\x00car\x00red\x001\x00"))

				objectType, attributes, err := stub.SplitCompositeKey(key)
				Expect(err).NotTo(HaveOccurred())
				Expect(objectType).To(Equal("car"))
				Expect(attributes).To(Equal([]string{"red", "1"}))
			})
		})

		It("rejects invalid attributes", func() {
			run(func(stub shim.ChaincodeStubInterface) {
				_, err := stub.CreateCompositeKey("car", []string{"a\x00b"})
				Expect(err).To(MatchError(shim.ErrInvalidArgument))
				_, err = stub.CreateCompositeKey("car", []string{string([]byte{0xff})})
				Expect(err).To(MatchError(ContainSubstring("not a valid utf8 string")))
				_, err = stub.CreateCompositeKey("car\U0010FFFF", nil)
				Expect(err).To(MatchError(shim.ErrInvalidArgument))
				_, _, err = stub.SplitCompositeKey("plain")
				Expect(err).To(MatchError(ContainSubstring("is not a composite key")))
			})
		})

		It("queries by partial composite key", func() {
			for _, attrs := range [][]string{{"red", "1"}, {"red", "2"}, {"blue", "3"}} {
				key := "\x00car\x00" + strings.Join(attrs, "\x00") + "\x00"
				ledger.put("", key, []byte(attrs[1]))
			}
			ledger.put("", "car", []byte("simple"))

			run(func(stub shim.ChaincodeStubInterface) {
				iter, err := stub.GetStateByPartialCompositeKey("car", []string{"red"})
				Expect(err).NotTo(HaveOccurred())
				var values []string
				for iter.HasNext() {
					kv, err := iter.Next()
					Expect(err).NotTo(HaveOccurred())
					values = append(values, string(kv.Value))
				}
				Expect(values).To(Equal([]string{"1", "2"}))

				iter, md, err := stub.GetStateByPartialCompositeKeyWithPagination("car", nil, 10, "")
				Expect(err).NotTo(HaveOccurred())
				Expect(md.FetchedRecordsCount).To(BeEquivalentTo(3))
				Expect(iter.HasNext()).To(BeTrue())
			})
		})
	})

	Describe("history", func() {
		It("returns every modification of a key", func() {
			run(func(stub shim.ChaincodeStubInterface) {
				Expect(stub.PutState("k", []byte("v1"))).To(Succeed())
				Expect(stub.DelState("k")).To(Succeed())
			})
			run(func(stub shim.ChaincodeStubInterface) {
				iter, err := stub.GetHistoryForKey("k")
				Expect(err).NotTo(HaveOccurred())
				km, err := iter.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(km.Value).To(Equal([]byte("v1")))
				Expect(km.IsDelete).To(BeFalse())
				km, err = iter.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(km.IsDelete).To(BeTrue())
				Expect(iter.HasNext()).To(BeFalse())
			})
		})
	})

	Describe("InvokeChaincode", func() {
		It("returns the response of the called chaincode", func() {
			run(func(stub shim.ChaincodeStubInterface) {
				resp := stub.InvokeChaincode("other", [][]byte{[]byte("query")}, "")
				Expect(resp.Status).To(BeEquivalentTo(shim.OK))
				Expect(resp.Payload).To(Equal([]byte("other:query")))

				resp = stub.InvokeChaincode("other", [][]byte{[]byte("query")}, "ch2")
				Expect(resp.Payload).To(Equal([]byte("other/ch2:query")))
			})
		})

		It("reports a rejected invocation as an error response", func() {
			run(func(stub shim.ChaincodeStubInterface) {
				resp := stub.InvokeChaincode("missing", [][]byte{[]byte("query")}, "")
				Expect(resp.Status).To(BeEquivalentTo(shim.ERROR))
				Expect(resp.Message).To(Equal("chaincode missing not found"))
			})
		})

		It("reports a failed callee as an error response", func() {
			run(func(stub shim.ChaincodeStubInterface) {
				resp := stub.InvokeChaincode("failing", [][]byte{[]byte("query")}, "")
				Expect(resp.Status).To(BeEquivalentTo(shim.ERROR))
				Expect(resp.Message).To(Equal("callee failed"))
			})
		})
	})

	Describe("SetEvent", func() {
		It("requires an event name", func() {
			run(func(stub shim.ChaincodeStubInterface) {
				Expect(stub.SetEvent("", []byte("payload"))).To(MatchError(shim.ErrInvalidArgument))
			})
		})

		It("keeps the last event", func() {
			done := invoke(transaction("ch", "events"), func(stub shim.ChaincodeStubInterface) {
				Expect(stub.SetEvent("first", nil)).To(Succeed())
				Expect(stub.SetEvent("second", []byte("p"))).To(Succeed())
			})
			Expect(done.ChaincodeEvent.EventName).To(Equal("second"))
			Expect(done.ChaincodeEvent.Payload).To(Equal([]byte("p")))
		})
	})
})
