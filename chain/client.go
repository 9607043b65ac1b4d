package chain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"bounty-orchestrator/core/bounty"
)

// Client is the typed read/write surface of the escrow contract.
type Client struct {
	eth     *ethclient.Client
	escrow  common.Address
	link    common.Address
	chainID *big.Int
}

// Dial connects to the configured RPC endpoint.
func Dial(ctx context.Context, cfg NetworkConfig) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc %s: %w", cfg.RPCURL, err)
	}
	return &Client{
		eth:     eth,
		escrow:  cfg.Escrow(),
		link:    cfg.LinkTokenAddress(),
		chainID: cfg.ChainIDBig(),
	}, nil
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	c.eth.Close()
}

// Backend exposes the raw ethclient for the executor and onboarding checks.
func (c *Client) Backend() *ethclient.Client { return c.eth }

// EscrowAddress returns the escrow contract address.
func (c *Client) EscrowAddress() common.Address { return c.escrow }

func (c *Client) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := escrowABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	raw, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &c.escrow, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	out, err := escrowABI.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return out, nil
}

// GetBounty reads one bounty record. Callers that confirm a just-written
// state wrap this with WithReadRetry.
func (c *Client) GetBounty(ctx context.Context, id uint64) (bounty.Bounty, error) {
	out, err := c.call(ctx, "getBounty", new(big.Int).SetUint64(id))
	if err != nil {
		return bounty.Bounty{}, err
	}
	b := bounty.Bounty{
		ID:              id,
		Creator:         out[0].(common.Address),
		EvaluationCID:   out[1].(string),
		ClassID:         out[2].(*big.Int).Uint64(),
		Threshold:       out[3].(*big.Int).Uint64(),
		PayoutWei:       out[4].(*big.Int),
		Status:          bounty.BountyStatus(out[7].(uint8)),
		SubmissionCount: out[9].(*big.Int).Uint64(),
	}
	if created := out[5].(*big.Int); created.Sign() > 0 {
		b.CreatedAt = time.Unix(created.Int64(), 0)
	}
	if deadline := out[6].(*big.Int); deadline.Sign() > 0 {
		b.SubmissionDeadline = time.Unix(deadline.Int64(), 0)
	}
	if winner := out[8].(common.Address); winner != (common.Address{}) {
		b.Winner = &winner
	}
	// An empty creator means the contract returned a zero record for an id
	// it has never assigned.
	if b.Creator == (common.Address{}) {
		return bounty.Bounty{}, fmt.Errorf("getBounty %d: not found", id)
	}
	return b, nil
}

// GetSubmission reads one submission record.
func (c *Client) GetSubmission(ctx context.Context, bountyID, submissionID uint64) (bounty.Submission, error) {
	out, err := c.call(ctx, "getSubmission", new(big.Int).SetUint64(bountyID), new(big.Int).SetUint64(submissionID))
	if err != nil {
		return bounty.Submission{}, err
	}
	sub := bounty.Submission{
		BountyID:      bountyID,
		SubmissionID:  submissionID,
		Hunter:        out[0].(common.Address),
		HunterCID:     out[1].(string),
		EvalWallet:    out[2].(common.Address),
		LinkMaxBudget: out[3].(*big.Int),
		Status:        chainSubmissionStatus(out[5].(uint8)),
	}
	if agg := out[4].([32]byte); agg != ([32]byte{}) {
		sub.VerdiktaAggID = common.BytesToHash(agg[:]).Hex()
	}
	if sub.Hunter == (common.Address{}) {
		return bounty.Submission{}, fmt.Errorf("getSubmission %d/%d: not found", bountyID, submissionID)
	}
	return sub, nil
}

// IsAcceptingSubmissions reports whether the bounty is open and before its
// deadline according to the contract.
func (c *Client) IsAcceptingSubmissions(ctx context.Context, id uint64) (bool, error) {
	out, err := c.call(ctx, "isAcceptingSubmissions", new(big.Int).SetUint64(id))
	if err != nil {
		return false, err
	}
	return out[0].(bool), nil
}

// CreateBountyTx builds the unsigned funding transaction.
func (c *Client) CreateBountyTx(cid string, classID uint64, threshold uint64, deadline time.Time, value *big.Int) (UnsignedTx, error) {
	data, err := escrowABI.Pack("createBounty",
		cid,
		new(big.Int).SetUint64(classID),
		new(big.Int).SetUint64(threshold),
		big.NewInt(deadline.Unix()),
	)
	if err != nil {
		return UnsignedTx{}, fmt.Errorf("pack createBounty: %w", err)
	}
	return UnsignedTx{Op: "createBounty", To: c.escrow, Data: data, Value: value}, nil
}

// FinalizeSubmissionTx builds the unsigned finalize transaction for the
// trustless path where the API tx endpoint is unavailable.
func (c *Client) FinalizeSubmissionTx(bountyID, submissionID uint64) (UnsignedTx, error) {
	data, err := escrowABI.Pack("finalizeSubmission", new(big.Int).SetUint64(bountyID), new(big.Int).SetUint64(submissionID))
	if err != nil {
		return UnsignedTx{}, fmt.Errorf("pack finalizeSubmission: %w", err)
	}
	return UnsignedTx{Op: "finalizeSubmission", To: c.escrow, Data: data}, nil
}

// ApproveTx builds an unsigned fee-token approval for the evaluation wallet.
func (c *Client) ApproveTx(spender common.Address, amount *big.Int) (UnsignedTx, error) {
	data, err := erc20ABI.Pack("approve", spender, amount)
	if err != nil {
		return UnsignedTx{}, fmt.Errorf("pack approve: %w", err)
	}
	return UnsignedTx{Op: "approve", To: c.link, Data: data}, nil
}

// LinkBalance reads the fee-token balance of an account.
func (c *Client) LinkBalance(ctx context.Context, owner common.Address) (*big.Int, error) {
	data, err := erc20ABI.Pack("balanceOf", owner)
	if err != nil {
		return nil, fmt.Errorf("pack balanceOf: %w", err)
	}
	raw, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &c.link, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call balanceOf: %w", err)
	}
	out, err := erc20ABI.Unpack("balanceOf", raw)
	if err != nil {
		return nil, fmt.Errorf("unpack balanceOf: %w", err)
	}
	return out[0].(*big.Int), nil
}

// NativeBalance reads the native-token balance of an account.
func (c *Client) NativeBalance(ctx context.Context, owner common.Address) (*big.Int, error) {
	return c.eth.BalanceAt(ctx, owner, nil)
}

// chainSubmissionStatus maps the contract's status enum to the typed status.
func chainSubmissionStatus(v uint8) bounty.SubmissionStatus {
	switch v {
	case 0:
		return bounty.SubmissionPrepared
	case 1:
		return bounty.SubmissionPendingEvaluation
	case 2:
		return bounty.SubmissionAcceptedPendingClaim
	case 3:
		return bounty.SubmissionRejectedPendingFinalization
	case 4:
		return bounty.SubmissionApproved
	case 5:
		return bounty.SubmissionRejected
	case 6:
		return bounty.SubmissionTimedOut
	default:
		return bounty.SubmissionUnknown
	}
}
