package api

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"bounty-orchestrator/chain"
	"bounty-orchestrator/core/bounty"
)

// CreateJobRequest is the input to POST /jobs/create. The service builds and
// pins the evaluation package from the rubric and jury.
type CreateJobRequest struct {
	Title                 string             `json:"title"`
	Description           string             `json:"description"`
	Creator               string             `json:"creator"`
	BountyAmount          string             `json:"bountyAmount"`
	Threshold             float64            `json:"threshold"`
	ClassID               uint64             `json:"classId"`
	SubmissionWindowHours int                `json:"submissionWindowHours"`
	WorkProductType       string             `json:"workProductType"`
	Rubric                []bounty.Criterion `json:"rubric"`
	JuryNodes             []bounty.JuryNode  `json:"juryNodes"`
}

// CreateJobResponse carries the API-assigned job id and the pinned package
// CID.
type CreateJobResponse struct {
	JobID         uint64 `json:"jobId"`
	EvaluationCID string `json:"evaluationCid"`
}

// LinkBountyRequest links an API job to the on-chain bounty that funded it.
type LinkBountyRequest struct {
	BountyID    uint64 `json:"bountyId"`
	TxHash      string `json:"txHash"`
	BlockNumber uint64 `json:"blockNumber"`
}

// ConfirmRequest records a prepared submission with the API. Idempotent.
type ConfirmRequest struct {
	SubmissionID uint64 `json:"submissionId"`
	Hunter       string `json:"hunter"`
	HunterCID    string `json:"hunterCid"`
}

// Issue is one diagnostic finding from /validate or /diagnose.
type Issue struct {
	Severity       string `json:"severity"`
	Code           string `json:"code"`
	Message        string `json:"message"`
	Recommendation string `json:"recommendation,omitempty"`
}

// IsError reports whether the issue blocks the workflow.
func (i Issue) IsError() bool {
	return strings.EqualFold(i.Severity, "error")
}

// ClassInfo is the oracle-class availability record.
type ClassInfo struct {
	ID     uint64 `json:"id"`
	Status string `json:"status"`
}

// ModelInfo is one eligible oracle model in a class.
type ModelInfo struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Active   bool   `json:"active"`
}

// FeeOverrides tunes the evaluation-fee parameters at prepare time. Zero
// values defer to server defaults.
type FeeOverrides struct {
	Alpha              uint64 `json:"alpha,omitempty"`
	MaxOracleFee       string `json:"maxOracleFee,omitempty"`
	EstimatedBaseCost  string `json:"estimatedBaseCost,omitempty"`
	MaxFeeBasedScaling uint64 `json:"maxFeeBasedScaling,omitempty"`
}

// SubmissionRecord is the API's view of one submission.
type SubmissionRecord struct {
	SubmissionID      uint64                  `json:"submissionId"`
	BountyID          uint64                  `json:"bountyId"`
	Hunter            string                  `json:"hunter"`
	HunterCID         string                  `json:"hunterCid"`
	Status            bounty.SubmissionStatus `json:"-"`
	RawStatus         string                  `json:"status"`
	Acceptance        string                  `json:"acceptance,omitempty"`
	Rejection         string                  `json:"rejection,omitempty"`
	JustificationCIDs []string                `json:"justificationCids,omitempty"`
	PayoutWei         string                  `json:"payoutWei,omitempty"`
}

// UnmarshalJSON resolves the typed status and legacy field aliases.
func (r *SubmissionRecord) UnmarshalJSON(data []byte) error {
	type wire SubmissionRecord
	var w struct {
		wire
		Creator    string `json:"creator"`
		PrimaryCID string `json:"primaryCid"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*r = SubmissionRecord(w.wire)
	if r.Hunter == "" {
		r.Hunter = w.Creator
	}
	if r.HunterCID == "" {
		r.HunterCID = w.PrimaryCID
	}
	r.Status = bounty.ParseSubmissionStatus(r.RawStatus)
	return nil
}

// TxPayload is an unsigned chain transaction returned by the API.
type TxPayload struct {
	To       string `json:"to"`
	Data     string `json:"data"`
	Value    string `json:"value,omitempty"`
	GasLimit uint64 `json:"gasLimit,omitempty"`
}

// ToUnsigned converts the wire payload into an executor transaction.
// useServerGas makes the executor take GasLimit verbatim; start transactions
// have oracle-dependent costs the client must not estimate.
func (p TxPayload) ToUnsigned(op string, useServerGas bool) (chain.UnsignedTx, error) {
	if !common.IsHexAddress(p.To) {
		return chain.UnsignedTx{}, fmt.Errorf("%s: invalid to address %q", op, p.To)
	}
	data, err := hex.DecodeString(strings.TrimPrefix(p.Data, "0x"))
	if err != nil {
		return chain.UnsignedTx{}, fmt.Errorf("%s: invalid tx data: %w", op, err)
	}
	value := new(big.Int)
	if v := strings.TrimSpace(p.Value); v != "" {
		var ok bool
		if strings.HasPrefix(v, "0x") {
			value, ok = new(big.Int).SetString(strings.TrimPrefix(v, "0x"), 16)
		} else {
			value, ok = new(big.Int).SetString(v, 10)
		}
		if !ok {
			return chain.UnsignedTx{}, fmt.Errorf("%s: invalid tx value %q", op, p.Value)
		}
	}
	return chain.UnsignedTx{
		Op:           op,
		To:           common.HexToAddress(p.To),
		Data:         data,
		Value:        value,
		GasLimit:     p.GasLimit,
		UseServerGas: useServerGas && p.GasLimit > 0,
	}, nil
}
