/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package shim

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/golang/protobuf/proto"
	"github.com/golang/protobuf/ptypes/timestamp"
	"github.com/hyperledger/fabric-protos-go/common"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/pkg/errors"
)

// proposalContext holds the fields a stub exposes from a signed proposal.
type proposalContext struct {
	proposal  *pb.Proposal
	creator   []byte
	transient map[string][]byte
	binding   []byte
	timestamp *timestamp.Timestamp
}

func parseSignedProposal(signedProposal *pb.SignedProposal) (*proposalContext, error) {
	proposal := &pb.Proposal{}
	if err := proto.Unmarshal(signedProposal.ProposalBytes, proposal); err != nil {
		return nil, errors.Wrap(err, "failed extracting proposal from signed proposal")
	}

	hdr := &common.Header{}
	if err := proto.Unmarshal(proposal.Header, hdr); err != nil {
		return nil, errors.Wrap(err, "failed extracting header from proposal")
	}
	chdr := &common.ChannelHeader{}
	if err := proto.Unmarshal(hdr.ChannelHeader, chdr); err != nil {
		return nil, errors.Wrap(err, "failed extracting channel header from proposal")
	}
	shdr := &common.SignatureHeader{}
	if err := proto.Unmarshal(hdr.SignatureHeader, shdr); err != nil {
		return nil, errors.Wrap(err, "failed extracting signature header from proposal")
	}

	payload := &pb.ChaincodeProposalPayload{}
	if err := proto.Unmarshal(proposal.Payload, payload); err != nil {
		return nil, errors.Wrap(err, "failed extracting proposal payload")
	}

	return &proposalContext{
		proposal:  proposal,
		creator:   shdr.Creator,
		transient: payload.TransientMap,
		binding:   computeBinding(shdr.Nonce, shdr.Creator, chdr.Epoch),
		timestamp: chdr.Timestamp,
	}, nil
}

// computeBinding hashes nonce, creator and the little endian epoch.
func computeBinding(nonce, creator []byte, epoch uint64) []byte {
	epochBytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(epochBytes, epoch)

	digest := sha256.New()
	digest.Write(nonce)
	digest.Write(creator)
	digest.Write(epochBytes)
	return digest.Sum(nil)
}
