package bounty

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// BountyStatus is the on-chain lifecycle state of a bounty.
type BountyStatus uint8

const (
	BountyOpen BountyStatus = iota
	BountyAwarded
	BountyCancelled
)

func (s BountyStatus) String() string {
	switch s {
	case BountyOpen:
		return "OPEN"
	case BountyAwarded:
		return "AWARDED"
	case BountyCancelled:
		return "CANCELLED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(s))
	}
}

// SubmissionStatus is the lifecycle state of a submission. Statuses advance
// monotonically: Prepared -> PendingEvaluation -> one of the pending-finalize
// states -> Approved/Rejected. TimedOut is terminal.
type SubmissionStatus uint8

const (
	SubmissionUnknown SubmissionStatus = iota
	SubmissionPrepared
	SubmissionPendingEvaluation
	SubmissionAcceptedPendingClaim
	SubmissionRejectedPendingFinalization
	SubmissionApproved
	SubmissionRejected
	SubmissionTimedOut
)

func (s SubmissionStatus) String() string {
	switch s {
	case SubmissionPrepared:
		return "PREPARED"
	case SubmissionPendingEvaluation:
		return "PENDING_EVALUATION"
	case SubmissionAcceptedPendingClaim:
		return "ACCEPTED_PENDING_CLAIM"
	case SubmissionRejectedPendingFinalization:
		return "REJECTED_PENDING_FINALIZATION"
	case SubmissionApproved:
		return "APPROVED"
	case SubmissionRejected:
		return "REJECTED"
	case SubmissionTimedOut:
		return "TIMED_OUT"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether no further status transition can occur.
func (s SubmissionStatus) Terminal() bool {
	switch s {
	case SubmissionApproved, SubmissionRejected, SubmissionTimedOut:
		return true
	}
	return false
}

// ParseSubmissionStatus maps API status strings (several spellings are in the
// wild) to the typed status.
func ParseSubmissionStatus(raw string) SubmissionStatus {
	switch strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(raw), "-", "_")) {
	case "PREPARED":
		return SubmissionPrepared
	case "PENDING_EVALUATION", "PENDINGEVALUATION", "EVALUATING":
		return SubmissionPendingEvaluation
	case "ACCEPTED_PENDING_CLAIM", "ACCEPTEDPENDINGCLAIM":
		return SubmissionAcceptedPendingClaim
	case "REJECTED_PENDING_FINALIZATION", "REJECTEDPENDINGFINALIZATION":
		return SubmissionRejectedPendingFinalization
	case "APPROVED":
		return SubmissionApproved
	case "REJECTED":
		return SubmissionRejected
	case "TIMED_OUT", "TIMEDOUT":
		return SubmissionTimedOut
	default:
		return SubmissionUnknown
	}
}

// Criterion is a single rubric entry. Weight is a fraction of the total
// score; must-pass criteria gate acceptance regardless of weight.
type Criterion struct {
	ID          string  `json:"id"`
	Description string  `json:"description"`
	Weight      float64 `json:"weight"`
	Must        bool    `json:"must"`
}

// JuryNode configures one oracle model in the jury.
type JuryNode struct {
	Provider string  `json:"provider"`
	Model    string  `json:"model"`
	Weight   float64 `json:"weight"`
	Runs     int     `json:"runs"`
}

// EvaluationPackage is the content-addressed document the oracle consumes.
// Immutable once pinned.
type EvaluationPackage struct {
	Rubric           []Criterion `json:"rubric"`
	Threshold        float64     `json:"threshold"`
	Jury             []JuryNode  `json:"juryNodes"`
	ForbiddenContent []string    `json:"forbiddenContent,omitempty"`
}

// Bounty mirrors the on-chain bounty record.
type Bounty struct {
	ID                 uint64
	Creator            common.Address
	EvaluationCID      string
	ClassID            uint64
	Threshold          uint64
	PayoutWei          *big.Int
	CreatedAt          time.Time
	SubmissionDeadline time.Time
	Status             BountyStatus
	Winner             *common.Address
	SubmissionCount    uint64
}

// Submission mirrors the on-chain submission record. HunterCID and
// LinkMaxBudget are fixed at prepare time and never change.
type Submission struct {
	BountyID      uint64
	SubmissionID  uint64
	Hunter        common.Address
	HunterCID     string
	EvalWallet    common.Address
	LinkMaxBudget *big.Int
	VerdiktaAggID string
	Status        SubmissionStatus
}

// Job is the API mirror of a bounty. The API assigns its own integer id at
// creation and later reconciles it to the on-chain bounty id.
type Job struct {
	ID                  uint64
	BountyID            uint64
	Title               string
	Description         string
	Creator             string
	EvaluationCID       string
	ClassID             uint64
	Threshold           float64
	Status              string
	SubmissionCloseTime time.Time
	Rubric              []Criterion
	Jury                []JuryNode
}

// jobWire accepts both the canonical and the legacy field spellings that
// older API versions still emit (primaryCid, jobId, closeTime as unix).
type jobWire struct {
	ID             uint64      `json:"id"`
	JobID          uint64      `json:"jobId,omitempty"`
	BountyID       uint64      `json:"bountyId,omitempty"`
	Title          string      `json:"title"`
	Description    string      `json:"description,omitempty"`
	Creator        string      `json:"creator,omitempty"`
	Hunter         string      `json:"hunter,omitempty"`
	EvaluationCID  string      `json:"evaluationCid,omitempty"`
	PrimaryCID     string      `json:"primaryCid,omitempty"`
	ClassID        uint64      `json:"classId,omitempty"`
	Threshold      float64     `json:"threshold,omitempty"`
	Status         string      `json:"status,omitempty"`
	SubmissionEnd  string      `json:"submissionCloseTime,omitempty"`
	SubmissionUnix int64       `json:"submissionCloseUnix,omitempty"`
	Rubric         []Criterion `json:"rubric"`
	Jury           []JuryNode  `json:"juryNodes"`
}

// UnmarshalJSON normalizes legacy field aliases into the canonical record.
func (j *Job) UnmarshalJSON(data []byte) error {
	var w jobWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	j.ID = w.ID
	if j.ID == 0 {
		j.ID = w.JobID
	}
	j.BountyID = w.BountyID
	j.Title = w.Title
	j.Description = w.Description
	j.Creator = w.Creator
	if j.Creator == "" {
		j.Creator = w.Hunter
	}
	j.EvaluationCID = w.EvaluationCID
	if j.EvaluationCID == "" {
		j.EvaluationCID = w.PrimaryCID
	}
	j.ClassID = w.ClassID
	j.Threshold = w.Threshold
	j.Status = strings.ToUpper(strings.TrimSpace(w.Status))
	j.Rubric = w.Rubric
	j.Jury = w.Jury
	if w.SubmissionEnd != "" {
		if t, err := time.Parse(time.RFC3339, w.SubmissionEnd); err == nil {
			j.SubmissionCloseTime = t
		}
	}
	if j.SubmissionCloseTime.IsZero() && w.SubmissionUnix > 0 {
		j.SubmissionCloseTime = time.Unix(w.SubmissionUnix, 0)
	}
	return nil
}

// MarshalJSON emits the canonical field names only.
func (j Job) MarshalJSON() ([]byte, error) {
	w := jobWire{
		ID:            j.ID,
		BountyID:      j.BountyID,
		Title:         j.Title,
		Description:   j.Description,
		Creator:       j.Creator,
		EvaluationCID: j.EvaluationCID,
		ClassID:       j.ClassID,
		Threshold:     j.Threshold,
		Status:        j.Status,
		Rubric:        j.Rubric,
		Jury:          j.Jury,
	}
	if !j.SubmissionCloseTime.IsZero() {
		w.SubmissionEnd = j.SubmissionCloseTime.UTC().Format(time.RFC3339)
	}
	type alias jobWire
	return json.Marshal(alias(w))
}
