package workflow

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"bounty-orchestrator/api"
	"bounty-orchestrator/chain"
	"bounty-orchestrator/core/bounty"
	"bounty-orchestrator/storage/runlog"
)

const testSender = "0xAb00000000000000000000000000000000000001"

// fakeChain serves canned chain state and records which calls were made.
type fakeChain struct {
	calls []string

	bounty       bounty.Bounty
	bountyErr    error
	submission   bounty.Submission
	accepting    bool
	acceptingErr error

	created   chain.BountyCreatedEvent
	prepared  chain.SubmissionPreparedEvent
	submitted chain.WorkSubmittedEvent
	finalized chain.SubmissionFinalizedEvent
	payout    *chain.PayoutSentEvent
}

func (f *fakeChain) GetBounty(ctx context.Context, id uint64) (bounty.Bounty, error) {
	f.calls = append(f.calls, fmt.Sprintf("GetBounty(%d)", id))
	if f.bountyErr != nil {
		return bounty.Bounty{}, f.bountyErr
	}
	return f.bounty, nil
}

func (f *fakeChain) GetSubmission(ctx context.Context, bountyID, submissionID uint64) (bounty.Submission, error) {
	f.calls = append(f.calls, fmt.Sprintf("GetSubmission(%d,%d)", bountyID, submissionID))
	return f.submission, nil
}

func (f *fakeChain) IsAcceptingSubmissions(ctx context.Context, id uint64) (bool, error) {
	f.calls = append(f.calls, fmt.Sprintf("IsAcceptingSubmissions(%d)", id))
	return f.accepting, f.acceptingErr
}

func (f *fakeChain) CreateBountyTx(cid string, classID, threshold uint64, deadline time.Time, value *big.Int) (chain.UnsignedTx, error) {
	f.calls = append(f.calls, "CreateBountyTx")
	return chain.UnsignedTx{Op: "createBounty", Value: value}, nil
}

func (f *fakeChain) DecodeBountyCreated(receipt *types.Receipt) (chain.BountyCreatedEvent, error) {
	return f.created, nil
}

func (f *fakeChain) DecodeSubmissionPrepared(receipt *types.Receipt) (chain.SubmissionPreparedEvent, error) {
	return f.prepared, nil
}

func (f *fakeChain) DecodeWorkSubmitted(receipt *types.Receipt) (chain.WorkSubmittedEvent, error) {
	return f.submitted, nil
}

func (f *fakeChain) DecodeSubmissionFinalized(receipt *types.Receipt) (chain.SubmissionFinalizedEvent, *chain.PayoutSentEvent, error) {
	return f.finalized, f.payout, nil
}

// fakeExec records executed operations and fails ops listed in failOps.
type fakeExec struct {
	ops     []string
	failOps map[string]error
}

func (f *fakeExec) Execute(ctx context.Context, tx chain.UnsignedTx) (*types.Receipt, error) {
	f.ops = append(f.ops, tx.Op)
	if err, ok := f.failOps[tx.Op]; ok {
		return nil, err
	}
	return &types.Receipt{
		TxHash:      common.HexToHash(fmt.Sprintf("0x%x", len(f.ops))),
		BlockNumber: big.NewInt(int64(100 + len(f.ops))),
		Status:      types.ReceiptStatusSuccessful,
	}, nil
}

// fakeAPI serves canned API responses and records the call sequence.
type fakeAPI struct {
	calls []string

	createResp    api.CreateJobResponse
	createErr     error
	linkJob       bounty.Job
	linkErr       error
	resolveJob    bounty.Job
	resolveErr    error
	jobs          map[uint64]bounty.Job
	jobErr        error
	issues        []api.Issue
	validateErr   error
	hunterCID     string
	submitErr     error
	prepareTx     api.TxPayload
	approveTx     api.TxPayload
	startTx       api.TxPayload
	startErrs     []error
	confirmErr    error
	confirmExists bool
	refreshes     []api.SubmissionRecord
	refreshErr    error
	finalizeTx    api.TxPayload
	finalizeErr   error
	diagIssues    []api.Issue
	class         api.ClassInfo
	classErr      error
	models        []api.ModelInfo
	modelsErr     error

	refreshCount int
	startCount   int
}

func (f *fakeAPI) CreateJob(ctx context.Context, req api.CreateJobRequest) (api.CreateJobResponse, error) {
	f.calls = append(f.calls, "CreateJob")
	return f.createResp, f.createErr
}

func (f *fakeAPI) LinkBountyID(ctx context.Context, jobID uint64, req api.LinkBountyRequest) (bounty.Job, error) {
	f.calls = append(f.calls, fmt.Sprintf("LinkBountyID(%d)", jobID))
	return f.linkJob, f.linkErr
}

func (f *fakeAPI) ResolveBountyID(ctx context.Context, jobID uint64, req api.LinkBountyRequest) (bounty.Job, error) {
	f.calls = append(f.calls, fmt.Sprintf("ResolveBountyID(%d)", jobID))
	return f.resolveJob, f.resolveErr
}

func (f *fakeAPI) GetJob(ctx context.Context, jobID uint64) (bounty.Job, error) {
	f.calls = append(f.calls, fmt.Sprintf("GetJob(%d)", jobID))
	if f.jobErr != nil {
		return bounty.Job{}, f.jobErr
	}
	job, ok := f.jobs[jobID]
	if !ok {
		return bounty.Job{}, fmt.Errorf("job %d: %w", jobID, api.ErrNotFound)
	}
	return job, nil
}

func (f *fakeAPI) ValidateJob(ctx context.Context, jobID uint64) ([]api.Issue, error) {
	f.calls = append(f.calls, fmt.Sprintf("ValidateJob(%d)", jobID))
	return f.issues, f.validateErr
}

func (f *fakeAPI) SubmitFiles(ctx context.Context, jobID uint64, paths []string, narrative string) (string, error) {
	f.calls = append(f.calls, fmt.Sprintf("SubmitFiles(%d)", jobID))
	return f.hunterCID, f.submitErr
}

func (f *fakeAPI) PrepareSubmissionTx(ctx context.Context, jobID uint64, overrides api.FeeOverrides) (api.TxPayload, error) {
	f.calls = append(f.calls, fmt.Sprintf("PrepareSubmissionTx(%d)", jobID))
	return f.prepareTx, nil
}

func (f *fakeAPI) ApprovalTx(ctx context.Context, jobID uint64) (api.TxPayload, error) {
	f.calls = append(f.calls, fmt.Sprintf("ApprovalTx(%d)", jobID))
	return f.approveTx, nil
}

func (f *fakeAPI) StartSubmissionTx(ctx context.Context, jobID, submissionID uint64) (api.TxPayload, error) {
	f.calls = append(f.calls, fmt.Sprintf("StartSubmissionTx(%d,%d)", jobID, submissionID))
	idx := f.startCount
	f.startCount++
	if idx < len(f.startErrs) && f.startErrs[idx] != nil {
		return api.TxPayload{}, f.startErrs[idx]
	}
	return f.startTx, nil
}

func (f *fakeAPI) ConfirmSubmission(ctx context.Context, jobID uint64, req api.ConfirmRequest) (bool, error) {
	f.calls = append(f.calls, fmt.Sprintf("ConfirmSubmission(%d,%d)", jobID, req.SubmissionID))
	return f.confirmExists, f.confirmErr
}

func (f *fakeAPI) RefreshSubmission(ctx context.Context, jobID, submissionID uint64) (api.SubmissionRecord, error) {
	f.calls = append(f.calls, fmt.Sprintf("RefreshSubmission(%d,%d)", jobID, submissionID))
	if f.refreshErr != nil {
		return api.SubmissionRecord{}, f.refreshErr
	}
	idx := f.refreshCount
	if idx >= len(f.refreshes) {
		idx = len(f.refreshes) - 1
	}
	f.refreshCount++
	return f.refreshes[idx], nil
}

func (f *fakeAPI) FinalizeSubmissionTx(ctx context.Context, jobID, submissionID uint64) (api.TxPayload, error) {
	f.calls = append(f.calls, fmt.Sprintf("FinalizeSubmissionTx(%d,%d)", jobID, submissionID))
	return f.finalizeTx, f.finalizeErr
}

func (f *fakeAPI) Diagnose(ctx context.Context, jobID, submissionID uint64) ([]api.Issue, error) {
	f.calls = append(f.calls, fmt.Sprintf("Diagnose(%d,%d)", jobID, submissionID))
	return f.diagIssues, nil
}

func (f *fakeAPI) GetClass(ctx context.Context, classID uint64) (api.ClassInfo, error) {
	f.calls = append(f.calls, fmt.Sprintf("GetClass(%d)", classID))
	return f.class, f.classErr
}

func (f *fakeAPI) GetClassModels(ctx context.Context, classID uint64) ([]api.ModelInfo, error) {
	f.calls = append(f.calls, fmt.Sprintf("GetClassModels(%d)", classID))
	return f.models, f.modelsErr
}

func (f *fakeAPI) called(prefix string) bool {
	for _, c := range f.calls {
		if c == prefix || len(c) > len(prefix) && c[:len(prefix)+1] == prefix+"(" {
			return true
		}
	}
	return false
}

// fakeStore serves pinned content by CID.
type fakeStore struct {
	objects map[string][]byte
}

func (f *fakeStore) Fetch(ctx context.Context, cid string) ([]byte, error) {
	if data, ok := f.objects[cid]; ok {
		return data, nil
	}
	return nil, fmt.Errorf("cat %s: not found", cid)
}

// silentLogger keeps test output clean.
type silentLogger struct{}

func (silentLogger) Infof(format string, args ...any)  {}
func (silentLogger) Warnf(format string, args ...any)  {}
func (silentLogger) Errorf(format string, args ...any) {}

func testDeps(ch *fakeChain, ex *fakeExec, ap *fakeAPI) (*Deps, *runlog.MemoryStore) {
	runs := runlog.NewMemoryStore()
	deps := &Deps{
		Chain:  ch,
		Exec:   ex,
		API:    ap,
		Store:  &fakeStore{},
		Runs:   runs,
		Log:    silentLogger{},
		Sender: testSender,
		now:    func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
		sleep:  func(time.Duration) {},
	}
	return deps, runs
}
