package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bounty-orchestrator/core/bounty"
	"bounty-orchestrator/storage/runlog"
)

const defaultPollInterval = 30 * time.Second

// ClaimOptions tune the claim workflow. MaxWait bounds the evaluation wait;
// zero means the 600s default.
type ClaimOptions struct {
	MaxWait      time.Duration
	PollInterval time.Duration
}

// Claim polls the submission until the oracle verdict lands, then sends the
// finalize transaction. An approved submission pays out to the hunter; a
// rejected one releases the fee budget back. The workflow is re-runnable:
// killed mid-wait, a later invocation picks up from current chain state.
func (d *Deps) Claim(ctx context.Context, jobID, submissionID uint64, opts ClaimOptions) (ClaimState, error) {
	state := ClaimState{JobID: jobID, SubmissionID: submissionID}
	maxWait := opts.MaxWait
	if maxWait <= 0 {
		maxWait = 600 * time.Second
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}

	status, err := d.awaitVerdict(ctx, &state, maxWait, interval)
	if err != nil {
		state.Outcome = "timeout"
		claimsFinalized.WithLabelValues("timeout").Inc()
		d.recordClaim(ctx, state)
		return state, err
	}

	switch status {
	case bounty.SubmissionApproved:
		state.Outcome = "PASSED - payout claimed"
		d.logger().Infof("submission %d already finalized as approved, nothing to send", submissionID)
		claimsFinalized.WithLabelValues("already-finalized").Inc()
		d.recordClaim(ctx, state)
		return state, nil
	case bounty.SubmissionRejected:
		state.Outcome = "FAILED - refunded"
		d.logger().Infof("submission %d already finalized as rejected, nothing to send", submissionID)
		claimsFinalized.WithLabelValues("already-finalized").Inc()
		d.recordClaim(ctx, state)
		return state, nil
	case bounty.SubmissionTimedOut:
		state.Outcome = "TIMED OUT - no payout"
		d.logger().Infof("submission %d timed out on-chain, nothing to send", submissionID)
		claimsFinalized.WithLabelValues("already-finalized").Inc()
		d.recordClaim(ctx, state)
		return state, nil
	}

	err = d.finalize(ctx, &state, status)
	outcome := "passed"
	if err != nil {
		outcome = "error"
	} else if status == bounty.SubmissionRejectedPendingFinalization {
		outcome = "failed"
	}
	claimsFinalized.WithLabelValues(outcome).Inc()
	d.recordClaim(ctx, state)
	return state, err
}

func (d *Deps) recordClaim(ctx context.Context, state ClaimState) {
	d.saveRun(ctx, runlog.Record{
		Workflow:       "claim",
		EffectiveJobID: state.JobID,
		SubmissionID:   state.SubmissionID,
		Outcome:        state.Outcome,
		TxHash:         state.FinalizeTx,
		CreatedAt:      d.clock()(),
	})
}

// awaitVerdict polls /refresh until the submission leaves the evaluating
// states or maxWait elapses.
func (d *Deps) awaitVerdict(ctx context.Context, state *ClaimState, maxWait, interval time.Duration) (bounty.SubmissionStatus, error) {
	start := d.clock()()
	for {
		rec, err := d.API.RefreshSubmission(ctx, state.JobID, state.SubmissionID)
		if err != nil {
			return bounty.SubmissionUnknown, fmt.Errorf("refresh submission %d: %w", state.SubmissionID, err)
		}
		state.FinalStatus = rec.Status.String()

		switch rec.Status {
		case bounty.SubmissionAcceptedPendingClaim,
			bounty.SubmissionRejectedPendingFinalization,
			bounty.SubmissionApproved,
			bounty.SubmissionRejected,
			bounty.SubmissionTimedOut:
			return rec.Status, nil
		case bounty.SubmissionPrepared, bounty.SubmissionPendingEvaluation:
			d.logger().Infof("submission %d is %s, waiting", state.SubmissionID, rec.Status)
		default:
			d.logger().Warnf("submission %d reported status %q, waiting", state.SubmissionID, rec.RawStatus)
		}

		elapsed := d.clock()().Sub(start)
		if elapsed >= maxWait {
			return bounty.SubmissionUnknown, fmt.Errorf("timed out after %s waiting for evaluation of submission %d; re-run once the oracle has answered", maxWait, state.SubmissionID)
		}
		wait := interval
		if remaining := maxWait - elapsed; remaining < wait {
			wait = remaining
		}
		d.pause(wait)
	}
}

func (d *Deps) finalize(ctx context.Context, state *ClaimState, status bounty.SubmissionStatus) error {
	payload, err := d.API.FinalizeSubmissionTx(ctx, state.JobID, state.SubmissionID)
	if err != nil {
		var notReady *bounty.OracleNotReadyError
		if errors.As(err, &notReady) {
			d.reportDiagnostics(ctx, state.JobID, state.SubmissionID)
		}
		return err
	}
	unsigned, err := payload.ToUnsigned("finalizeSubmission", false)
	if err != nil {
		return err
	}
	receipt, err := d.Exec.Execute(ctx, unsigned)
	if err != nil {
		countRevert(err)
		return err
	}
	state.FinalizeTx = receipt.TxHash.Hex()

	fin, payout, err := d.Chain.DecodeSubmissionFinalized(receipt)
	if err != nil {
		return fmt.Errorf("decode SubmissionFinalized from %s: %w", receipt.TxHash.Hex(), err)
	}
	if fin.Approved {
		state.Outcome = "PASSED - payout claimed"
		if payout != nil {
			d.logger().Infof("payout of %s wei sent to %s", payout.AmountWei.String(), payout.Winner.Hex())
		}
	} else {
		state.Outcome = "FAILED - refunded"
	}
	state.FinalStatus = chainFinalStatus(fin.Approved).String()
	d.logger().Infof("submission %d finalized in %s: %s", state.SubmissionID, state.FinalizeTx, state.Outcome)
	return nil
}

func chainFinalStatus(approved bool) bounty.SubmissionStatus {
	if approved {
		return bounty.SubmissionApproved
	}
	return bounty.SubmissionRejected
}
