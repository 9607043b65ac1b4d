package workflow

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/core/types"

	"bounty-orchestrator/api"
	"bounty-orchestrator/chain"
	"bounty-orchestrator/core/bounty"
	"bounty-orchestrator/storage/runlog"
)

// ChainClient is the escrow read/build surface the workflows need.
type ChainClient interface {
	GetBounty(ctx context.Context, id uint64) (bounty.Bounty, error)
	GetSubmission(ctx context.Context, bountyID, submissionID uint64) (bounty.Submission, error)
	IsAcceptingSubmissions(ctx context.Context, id uint64) (bool, error)
	CreateBountyTx(cid string, classID, threshold uint64, deadline time.Time, value *big.Int) (chain.UnsignedTx, error)
	DecodeBountyCreated(receipt *types.Receipt) (chain.BountyCreatedEvent, error)
	DecodeSubmissionPrepared(receipt *types.Receipt) (chain.SubmissionPreparedEvent, error)
	DecodeWorkSubmitted(receipt *types.Receipt) (chain.WorkSubmittedEvent, error)
	DecodeSubmissionFinalized(receipt *types.Receipt) (chain.SubmissionFinalizedEvent, *chain.PayoutSentEvent, error)
}

// TxExecutor runs one transaction through dry-run, broadcast, and wait.
type TxExecutor interface {
	Execute(ctx context.Context, tx chain.UnsignedTx) (*types.Receipt, error)
}

// JobAPI is the job-tracking service surface the workflows consume.
type JobAPI interface {
	CreateJob(ctx context.Context, req api.CreateJobRequest) (api.CreateJobResponse, error)
	LinkBountyID(ctx context.Context, jobID uint64, req api.LinkBountyRequest) (bounty.Job, error)
	ResolveBountyID(ctx context.Context, jobID uint64, req api.LinkBountyRequest) (bounty.Job, error)
	GetJob(ctx context.Context, jobID uint64) (bounty.Job, error)
	ValidateJob(ctx context.Context, jobID uint64) ([]api.Issue, error)
	SubmitFiles(ctx context.Context, jobID uint64, paths []string, narrative string) (string, error)
	PrepareSubmissionTx(ctx context.Context, jobID uint64, overrides api.FeeOverrides) (api.TxPayload, error)
	ApprovalTx(ctx context.Context, jobID uint64) (api.TxPayload, error)
	StartSubmissionTx(ctx context.Context, jobID, submissionID uint64) (api.TxPayload, error)
	ConfirmSubmission(ctx context.Context, jobID uint64, req api.ConfirmRequest) (bool, error)
	RefreshSubmission(ctx context.Context, jobID, submissionID uint64) (api.SubmissionRecord, error)
	FinalizeSubmissionTx(ctx context.Context, jobID, submissionID uint64) (api.TxPayload, error)
	Diagnose(ctx context.Context, jobID, submissionID uint64) ([]api.Issue, error)
	GetClass(ctx context.Context, classID uint64) (api.ClassInfo, error)
	GetClassModels(ctx context.Context, classID uint64) ([]api.ModelInfo, error)
}

// ObjectStore fetches pinned content for integrity verification.
type ObjectStore interface {
	Fetch(ctx context.Context, cid string) ([]byte, error)
}

// RunLog records workflow outcomes and previously-working orderings.
type RunLog interface {
	SaveRun(ctx context.Context, rec runlog.Record) error
	LastOrdering(ctx context.Context, jobID uint64) (string, error)
}

// Deps bundles the collaborators shared by the three workflows. Sender is
// the signing account in hex; now and sleep are injectable for tests.
type Deps struct {
	Chain  ChainClient
	Exec   TxExecutor
	API    JobAPI
	Store  ObjectStore
	Runs   RunLog
	Log    Logger
	Sender string

	now   func() time.Time
	sleep func(time.Duration)
}

func (d *Deps) clock() func() time.Time {
	if d.now != nil {
		return d.now
	}
	return time.Now
}

func (d *Deps) pause(interval time.Duration) {
	if d.sleep != nil {
		d.sleep(interval)
		return
	}
	time.Sleep(interval)
}

func (d *Deps) logger() Logger {
	if d.Log != nil {
		return d.Log
	}
	return StdLogger{}
}
