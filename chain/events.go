package chain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// BountyCreatedEvent is the decoded BountyCreated log.
type BountyCreatedEvent struct {
	BountyID      uint64
	Creator       common.Address
	EvaluationCID string
	PayoutWei     *big.Int
}

// SubmissionPreparedEvent is the decoded SubmissionPrepared log.
type SubmissionPreparedEvent struct {
	BountyID      uint64
	SubmissionID  uint64
	Hunter        common.Address
	EvalWallet    common.Address
	LinkMaxBudget *big.Int
}

// WorkSubmittedEvent is the decoded WorkSubmitted log.
type WorkSubmittedEvent struct {
	BountyID     uint64
	SubmissionID uint64
	AggID        common.Hash
}

// SubmissionFinalizedEvent is the decoded SubmissionFinalized log.
type SubmissionFinalizedEvent struct {
	BountyID     uint64
	SubmissionID uint64
	Approved     bool
}

// PayoutSentEvent is the decoded PayoutSent log.
type PayoutSentEvent struct {
	BountyID  uint64
	Winner    common.Address
	AmountWei *big.Int
}

func (c *Client) eventLogs(receipt *types.Receipt, name string) []*types.Log {
	topic := escrowABI.Events[name].ID
	var logs []*types.Log
	for _, l := range receipt.Logs {
		if l.Address == c.escrow && len(l.Topics) > 0 && l.Topics[0] == topic {
			logs = append(logs, l)
		}
	}
	return logs
}

// DecodeBountyCreated finds and decodes the BountyCreated event in a
// createBounty receipt.
func (c *Client) DecodeBountyCreated(receipt *types.Receipt) (BountyCreatedEvent, error) {
	logs := c.eventLogs(receipt, "BountyCreated")
	if len(logs) == 0 {
		return BountyCreatedEvent{}, fmt.Errorf("receipt %s has no BountyCreated event", receipt.TxHash.Hex())
	}
	l := logs[0]
	if len(l.Topics) < 3 {
		return BountyCreatedEvent{}, fmt.Errorf("BountyCreated log has %d topics, want 3", len(l.Topics))
	}
	ev := BountyCreatedEvent{
		BountyID: new(big.Int).SetBytes(l.Topics[1].Bytes()).Uint64(),
		Creator:  common.BytesToAddress(l.Topics[2].Bytes()),
	}
	data, err := escrowABI.Events["BountyCreated"].Inputs.NonIndexed().Unpack(l.Data)
	if err != nil {
		return BountyCreatedEvent{}, fmt.Errorf("decode BountyCreated data: %w", err)
	}
	ev.EvaluationCID = data[0].(string)
	ev.PayoutWei = data[1].(*big.Int)
	return ev, nil
}

// DecodeSubmissionPrepared finds and decodes the SubmissionPrepared event in
// a prepareSubmission receipt.
func (c *Client) DecodeSubmissionPrepared(receipt *types.Receipt) (SubmissionPreparedEvent, error) {
	logs := c.eventLogs(receipt, "SubmissionPrepared")
	if len(logs) == 0 {
		return SubmissionPreparedEvent{}, fmt.Errorf("receipt %s has no SubmissionPrepared event", receipt.TxHash.Hex())
	}
	l := logs[0]
	if len(l.Topics) < 4 {
		return SubmissionPreparedEvent{}, fmt.Errorf("SubmissionPrepared log has %d topics, want 4", len(l.Topics))
	}
	ev := SubmissionPreparedEvent{
		BountyID:     new(big.Int).SetBytes(l.Topics[1].Bytes()).Uint64(),
		SubmissionID: new(big.Int).SetBytes(l.Topics[2].Bytes()).Uint64(),
		Hunter:       common.BytesToAddress(l.Topics[3].Bytes()),
	}
	data, err := escrowABI.Events["SubmissionPrepared"].Inputs.NonIndexed().Unpack(l.Data)
	if err != nil {
		return SubmissionPreparedEvent{}, fmt.Errorf("decode SubmissionPrepared data: %w", err)
	}
	ev.EvalWallet = data[0].(common.Address)
	ev.LinkMaxBudget = data[1].(*big.Int)
	return ev, nil
}

// DecodeWorkSubmitted decodes the oracle dispatch event from a start receipt.
func (c *Client) DecodeWorkSubmitted(receipt *types.Receipt) (WorkSubmittedEvent, error) {
	logs := c.eventLogs(receipt, "WorkSubmitted")
	if len(logs) == 0 {
		return WorkSubmittedEvent{}, fmt.Errorf("receipt %s has no WorkSubmitted event", receipt.TxHash.Hex())
	}
	l := logs[0]
	if len(l.Topics) < 3 {
		return WorkSubmittedEvent{}, fmt.Errorf("WorkSubmitted log has %d topics, want 3", len(l.Topics))
	}
	ev := WorkSubmittedEvent{
		BountyID:     new(big.Int).SetBytes(l.Topics[1].Bytes()).Uint64(),
		SubmissionID: new(big.Int).SetBytes(l.Topics[2].Bytes()).Uint64(),
	}
	data, err := escrowABI.Events["WorkSubmitted"].Inputs.NonIndexed().Unpack(l.Data)
	if err != nil {
		return WorkSubmittedEvent{}, fmt.Errorf("decode WorkSubmitted data: %w", err)
	}
	ev.AggID = common.Hash(data[0].([32]byte))
	return ev, nil
}

// DecodeSubmissionFinalized decodes the finalize outcome, plus the payout
// event when the submission was approved.
func (c *Client) DecodeSubmissionFinalized(receipt *types.Receipt) (SubmissionFinalizedEvent, *PayoutSentEvent, error) {
	logs := c.eventLogs(receipt, "SubmissionFinalized")
	if len(logs) == 0 {
		return SubmissionFinalizedEvent{}, nil, fmt.Errorf("receipt %s has no SubmissionFinalized event", receipt.TxHash.Hex())
	}
	l := logs[0]
	if len(l.Topics) < 3 {
		return SubmissionFinalizedEvent{}, nil, fmt.Errorf("SubmissionFinalized log has %d topics, want 3", len(l.Topics))
	}
	ev := SubmissionFinalizedEvent{
		BountyID:     new(big.Int).SetBytes(l.Topics[1].Bytes()).Uint64(),
		SubmissionID: new(big.Int).SetBytes(l.Topics[2].Bytes()).Uint64(),
	}
	data, err := escrowABI.Events["SubmissionFinalized"].Inputs.NonIndexed().Unpack(l.Data)
	if err != nil {
		return SubmissionFinalizedEvent{}, nil, fmt.Errorf("decode SubmissionFinalized data: %w", err)
	}
	ev.Approved = data[0].(bool)

	var payout *PayoutSentEvent
	if paid := c.eventLogs(receipt, "PayoutSent"); len(paid) > 0 {
		pl := paid[0]
		if len(pl.Topics) < 3 {
			return ev, nil, fmt.Errorf("PayoutSent log has %d topics, want 3", len(pl.Topics))
		}
		pdata, err := escrowABI.Events["PayoutSent"].Inputs.NonIndexed().Unpack(pl.Data)
		if err != nil {
			return ev, nil, fmt.Errorf("decode PayoutSent data: %w", err)
		}
		payout = &PayoutSentEvent{
			BountyID:  new(big.Int).SetBytes(pl.Topics[1].Bytes()).Uint64(),
			Winner:    common.BytesToAddress(pl.Topics[2].Bytes()),
			AmountWei: pdata[0].(*big.Int),
		}
	}
	return ev, payout, nil
}
