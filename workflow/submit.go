package workflow

import (
	"context"
	"errors"
	"fmt"

	"bounty-orchestrator/api"
	"bounty-orchestrator/core/bounty"
	"bounty-orchestrator/storage/runlog"
)

// SubmitOptions tune the submit workflow. SkipConfirm and ConfirmFirst are
// mutually exclusive; with neither set the workflow uses the documented
// ordering (start, then confirm) and falls back automatically when the
// backend wants the legacy confirm-first ordering.
type SubmitOptions struct {
	Files        []string
	Narrative    string
	Fees         api.FeeOverrides
	SkipConfirm  bool
	ConfirmFirst bool
}

// Submit uploads the hunter's work, prepares and funds the submission
// on-chain, and starts the oracle evaluation. On any failure after a
// submission id exists it pulls /diagnose output into the log.
func (d *Deps) Submit(ctx context.Context, jobID uint64, opts SubmitOptions) (SubmitState, error) {
	state := SubmitState{JobID: jobID}
	if opts.SkipConfirm && opts.ConfirmFirst {
		return state, &bounty.ValidationError{Fields: []string{"skip-confirm", "confirm-first"}, Reason: "flags are mutually exclusive"}
	}
	if len(opts.Files) == 0 {
		return state, &bounty.ValidationError{Fields: []string{"file"}, Reason: "at least one file is required"}
	}

	job, err := d.checkJobOpen(ctx, jobID)
	if err != nil {
		return state, err
	}
	if err := d.checkPackageValid(ctx, jobID); err != nil {
		return state, err
	}
	state.BountyID = job.BountyID
	if state.BountyID == 0 {
		state.BountyID = jobID
	}
	if err := d.checkAccepting(ctx, state.BountyID); err != nil {
		return state, err
	}

	state.HunterCID, err = d.API.SubmitFiles(ctx, jobID, opts.Files, opts.Narrative)
	if err != nil {
		return state, fmt.Errorf("upload files: %w", err)
	}
	d.logger().Infof("uploaded %d file(s) as %s", len(opts.Files), state.HunterCID)

	payload, err := d.API.PrepareSubmissionTx(ctx, jobID, opts.Fees)
	if err != nil {
		return state, fmt.Errorf("prepare submission tx: %w", err)
	}
	unsigned, err := payload.ToUnsigned("prepareSubmission", false)
	if err != nil {
		return state, err
	}
	receipt, err := d.Exec.Execute(ctx, unsigned)
	if err != nil {
		countRevert(err)
		return state, err
	}
	state.PrepareTx = receipt.TxHash.Hex()
	prepared, err := d.Chain.DecodeSubmissionPrepared(receipt)
	if err != nil {
		return state, fmt.Errorf("decode SubmissionPrepared from %s: %w", receipt.TxHash.Hex(), err)
	}
	state.SubmissionID = prepared.SubmissionID
	d.logger().Infof("submission %d prepared, eval wallet %s, fee budget %s",
		prepared.SubmissionID, prepared.EvalWallet.Hex(), prepared.LinkMaxBudget.String())

	payload, err = d.API.ApprovalTx(ctx, jobID)
	if err != nil {
		d.reportDiagnostics(ctx, jobID, state.SubmissionID)
		return state, fmt.Errorf("approval tx: %w", err)
	}
	unsigned, err = payload.ToUnsigned("approve", false)
	if err != nil {
		return state, err
	}
	receipt, err = d.Exec.Execute(ctx, unsigned)
	if err != nil {
		countRevert(err)
		d.reportDiagnostics(ctx, jobID, state.SubmissionID)
		return state, err
	}
	state.ApproveTx = receipt.TxHash.Hex()

	if err := d.startSubmission(ctx, &state, opts); err != nil {
		d.reportDiagnostics(ctx, jobID, state.SubmissionID)
		return state, err
	}

	submissionsStarted.WithLabelValues(state.Ordering).Inc()
	d.saveRun(ctx, runlog.Record{
		Workflow:       "submit",
		EffectiveJobID: jobID,
		BountyID:       state.BountyID,
		SubmissionID:   state.SubmissionID,
		Ordering:       state.Ordering,
		Outcome:        "started",
		TxHash:         state.StartTx,
		CreatedAt:      d.clock()(),
	})
	return state, nil
}

// startSubmission runs steps 4 and 5 under the selected ordering strategy.
// The start transaction always uses the API-recommended gas limit verbatim;
// its cost depends on how many oracle calls the contract dispatches, which
// the client cannot estimate.
func (d *Deps) startSubmission(ctx context.Context, state *SubmitState, opts SubmitOptions) error {
	confirmFirst := opts.ConfirmFirst
	if !confirmFirst && !opts.SkipConfirm {
		if last := d.lastOrdering(ctx, state.JobID); last == "confirm-first" {
			d.logger().Infof("previous run of job %d needed confirm-first ordering, using it", state.JobID)
			confirmFirst = true
		}
	}
	state.Ordering = orderingLabel(confirmFirst, opts.SkipConfirm)

	if confirmFirst {
		if err := d.confirm(ctx, state); err != nil {
			return err
		}
	}

	payload, err := d.API.StartSubmissionTx(ctx, state.JobID, state.SubmissionID)
	if err != nil && !confirmFirst && !opts.SkipConfirm && errors.Is(err, api.ErrNotFound) {
		// Legacy backends refuse to hand out the start tx until the
		// submission record is confirmed. Fall back and retry once.
		d.logger().Warnf("start tx for submission %d not found, falling back to confirm-first ordering", state.SubmissionID)
		if err := d.confirm(ctx, state); err != nil {
			return err
		}
		state.Ordering = "confirm-first"
		payload, err = d.API.StartSubmissionTx(ctx, state.JobID, state.SubmissionID)
	}
	if err != nil {
		return fmt.Errorf("start tx: %w", err)
	}

	unsigned, err := payload.ToUnsigned("startPreparedSubmission", true)
	if err != nil {
		return err
	}
	receipt, err := d.Exec.Execute(ctx, unsigned)
	if err != nil {
		countRevert(err)
		return err
	}
	state.StartTx = receipt.TxHash.Hex()
	submitted, err := d.Chain.DecodeWorkSubmitted(receipt)
	if err != nil {
		return fmt.Errorf("decode WorkSubmitted from %s: %w", receipt.TxHash.Hex(), err)
	}
	d.logger().Infof("submission %d started, oracle request %s", submitted.SubmissionID, submitted.AggID.Hex())

	if !opts.SkipConfirm && !state.Confirmed {
		if err := d.confirm(ctx, state); err != nil {
			return err
		}
	}
	return nil
}

func (d *Deps) confirm(ctx context.Context, state *SubmitState) error {
	already, err := d.API.ConfirmSubmission(ctx, state.JobID, api.ConfirmRequest{
		SubmissionID: state.SubmissionID,
		Hunter:       d.Sender,
		HunterCID:    state.HunterCID,
	})
	if err != nil {
		return fmt.Errorf("confirm submission %d: %w", state.SubmissionID, err)
	}
	if already {
		d.logger().Infof("submission %d already confirmed", state.SubmissionID)
	}
	state.Confirmed = true
	return nil
}

func (d *Deps) lastOrdering(ctx context.Context, jobID uint64) string {
	if d.Runs == nil {
		return ""
	}
	ordering, err := d.Runs.LastOrdering(ctx, jobID)
	if err != nil {
		d.logger().Warnf("look up previous ordering for job %d: %v", jobID, err)
		return ""
	}
	return ordering
}
