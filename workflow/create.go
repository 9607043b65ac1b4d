package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"bounty-orchestrator/api"
	"bounty-orchestrator/chain"
	"bounty-orchestrator/core/bounty"
	"bounty-orchestrator/storage/runlog"
)

// CreateOptions tune the create workflow.
type CreateOptions struct {
	SkipClassCheck bool
}

// Create runs the full bounty creation pipeline: local validation, class
// preflight, server-side package build and pin, on-chain funding, id
// reconciliation, and the post-funding integrity check. The returned state
// carries every identifier produced so far even when the error is non-nil.
func (d *Deps) Create(ctx context.Context, cfg bounty.BountyConfig, opts CreateOptions) (CreateState, error) {
	state := CreateState{}

	if err := cfg.Validate(); err != nil {
		return state, err
	}
	amount, err := cfg.AmountWei()
	if err != nil {
		return state, err
	}

	if opts.SkipClassCheck {
		d.logger().Warnf("class preflight suppressed for class %d", cfg.ClassID)
	} else if err := d.checkClass(ctx, cfg.ClassID); err != nil {
		return state, err
	}

	created, err := d.API.CreateJob(ctx, api.CreateJobRequest{
		Title:                 cfg.Title,
		Description:           cfg.Description,
		Creator:               d.Sender,
		BountyAmount:          cfg.BountyAmount,
		Threshold:             cfg.Threshold,
		ClassID:               cfg.ClassID,
		SubmissionWindowHours: cfg.SubmissionWindowHours,
		WorkProductType:       cfg.WorkProductType,
		Rubric:                cfg.Rubric,
		JuryNodes:             cfg.Jury,
	})
	if err != nil {
		return state, fmt.Errorf("create job: %w", err)
	}
	state.APIJobID = created.JobID
	state.EvaluationCID = created.EvaluationCID
	d.logger().Infof("job %d created, evaluation package %s", created.JobID, created.EvaluationCID)

	deadline := d.clock()().Add(time.Duration(cfg.SubmissionWindowHours) * time.Hour)
	unsigned, err := d.Chain.CreateBountyTx(created.EvaluationCID, cfg.ClassID, uint64(cfg.Threshold), deadline, amount)
	if err != nil {
		return state, err
	}
	receipt, err := d.Exec.Execute(ctx, unsigned)
	if err != nil {
		countRevert(err)
		return state, err
	}
	state.FundTxHash = receipt.TxHash.Hex()

	ev, err := d.Chain.DecodeBountyCreated(receipt)
	if err != nil {
		return state, fmt.Errorf("decode BountyCreated from %s: %w", receipt.TxHash.Hex(), err)
	}
	state.BountyID = ev.BountyID
	d.logger().Infof("bounty %d funded in tx %s", ev.BountyID, receipt.TxHash.Hex())

	state.EffectiveJobID = d.ReconcileJobID(ctx, state.APIJobID, ev.BountyID, created.EvaluationCID, api.LinkBountyRequest{
		BountyID:    ev.BountyID,
		TxHash:      receipt.TxHash.Hex(),
		BlockNumber: receipt.BlockNumber.Uint64(),
	})

	verdictErr := d.verifyCreation(ctx, cfg, created.EvaluationCID, state)
	if verdictErr != nil {
		state.Verdict = "NO-GO"
		d.logger().Errorf("integrity check failed: %v", verdictErr)
	} else {
		state.Verdict = "GO"
	}
	bountiesCreated.WithLabelValues(state.Verdict).Inc()
	d.logger().Infof("%s: verdict %s", jobRef(state.APIJobID, state.EffectiveJobID), state.Verdict)

	d.saveRun(ctx, runlog.Record{
		Workflow:       "create",
		APIJobID:       state.APIJobID,
		BountyID:       state.BountyID,
		EffectiveJobID: state.EffectiveJobID,
		Outcome:        state.Verdict,
		TxHash:         state.FundTxHash,
		CreatedAt:      d.clock()(),
	})
	return state, verdictErr
}

// verifyCreation checks the three views of the new bounty against each
// other. Funds are already on-chain, so a mismatch is surfaced as NO-GO
// rather than rolled back.
func (d *Deps) verifyCreation(ctx context.Context, cfg bounty.BountyConfig, evaluationCID string, state CreateState) error {
	var onchain bounty.Bounty
	err := chain.WithReadRetry(ctx, "getBounty", chain.IsStaleRead, func(ctx context.Context) error {
		var readErr error
		onchain, readErr = d.Chain.GetBounty(ctx, state.BountyID)
		return readErr
	})
	if err != nil {
		return fmt.Errorf("read back bounty %d: %w", state.BountyID, err)
	}
	if !strings.EqualFold(onchain.Creator.Hex(), d.Sender) {
		return &bounty.IntegrityError{Field: "creator", Expected: d.Sender, Observed: onchain.Creator.Hex()}
	}
	if onchain.EvaluationCID != evaluationCID {
		return &bounty.IntegrityError{Field: "evaluationCid", Expected: evaluationCID, Observed: onchain.EvaluationCID}
	}
	if onchain.ClassID != cfg.ClassID {
		return &bounty.IntegrityError{Field: "classId", Expected: fmt.Sprint(cfg.ClassID), Observed: fmt.Sprint(onchain.ClassID)}
	}
	if onchain.Threshold != uint64(cfg.Threshold) {
		return &bounty.IntegrityError{Field: "threshold", Expected: fmt.Sprint(uint64(cfg.Threshold)), Observed: fmt.Sprint(onchain.Threshold)}
	}

	job, err := d.API.GetJob(ctx, state.EffectiveJobID)
	if err != nil {
		return fmt.Errorf("read back job %d: %w", state.EffectiveJobID, err)
	}
	if job.EvaluationCID != evaluationCID {
		return &bounty.IntegrityError{Field: "job.evaluationCid", Expected: evaluationCID, Observed: job.EvaluationCID}
	}

	d.verifyPinnedPackage(ctx, evaluationCID)
	return nil
}

// verifyPinnedPackage re-reads the pinned package from the object store and
// re-runs the local rules on it. The store may be unreachable from this
// host, so failures here only warn.
func (d *Deps) verifyPinnedPackage(ctx context.Context, evaluationCID string) {
	if d.Store == nil {
		return
	}
	raw, err := d.Store.Fetch(ctx, evaluationCID)
	if err != nil {
		d.logger().Warnf("fetch pinned package %s: %v", evaluationCID, err)
		return
	}
	var pkg bounty.EvaluationPackage
	if err := json.Unmarshal(raw, &pkg); err != nil {
		d.logger().Warnf("pinned package %s is not valid JSON: %v", evaluationCID, err)
		return
	}
	if err := bounty.ValidatePackage(pkg); err != nil {
		d.logger().Warnf("pinned package %s fails local validation: %v", evaluationCID, err)
	}
}

func (d *Deps) saveRun(ctx context.Context, rec runlog.Record) {
	if d.Runs == nil {
		return
	}
	if err := d.Runs.SaveRun(ctx, rec); err != nil {
		d.logger().Warnf("save run record: %v", err)
	}
}

func countRevert(err error) {
	var re *bounty.RevertError
	if errors.As(err, &re) {
		dryRunReverts.WithLabelValues(re.Op).Inc()
	}
}
