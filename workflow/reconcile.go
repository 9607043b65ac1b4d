package workflow

import (
	"context"
	"fmt"
	"time"

	"bounty-orchestrator/api"
	"bounty-orchestrator/core/bounty"
)

// reconcileSettleWait gives the background sync service a moment to move the
// job record before we read it back by bounty id.
const reconcileSettleWait = 3 * time.Second

// ReconcileJobID maps the API job id onto the on-chain bounty id after
// funding. The sync service and the explicit link call race, so the cascade
// tries every path before defaulting to the chain-authoritative id:
//
//  1. PATCH /jobs/{apiJobId}/bountyId and trust the id the API reports back.
//  2. Wait, then GET /jobs/{bountyId}; if its evaluationCid matches the one
//     just pinned, the sync service already rekeyed the record.
//  3. PATCH .../resolve under both ids.
//  4. Warn and default to bountyId.
//
// Every later API call for this bounty must use the returned effective id.
func (d *Deps) ReconcileJobID(ctx context.Context, apiJobID, bountyID uint64, evaluationCID string, link api.LinkBountyRequest) uint64 {
	job, err := d.API.LinkBountyID(ctx, apiJobID, link)
	if err == nil {
		if job.ID != 0 {
			return job.ID
		}
		return bountyID
	}
	d.logger().Warnf("link bounty %d to job %d: %v", bountyID, apiJobID, err)

	d.pause(reconcileSettleWait)
	job, err = d.API.GetJob(ctx, bountyID)
	if err == nil && job.EvaluationCID == evaluationCID {
		return bountyID
	}

	for _, id := range []uint64{bountyID, apiJobID} {
		job, err = d.API.ResolveBountyID(ctx, id, link)
		if err == nil {
			if job.ID != 0 {
				return job.ID
			}
			return bountyID
		}
	}

	recErr := &bounty.ReconciliationError{APIJobID: apiJobID, BountyID: bountyID, Err: err}
	d.logger().Warnf("%v; defaulting to on-chain id %d", recErr, bountyID)
	reconcileFallbacks.Inc()
	return bountyID
}

// orderingLabel is the run-log and metrics tag for a submit strategy.
func orderingLabel(confirmFirst, skipConfirm bool) string {
	switch {
	case skipConfirm:
		return "skip-confirm"
	case confirmFirst:
		return "confirm-first"
	default:
		return "documented"
	}
}

func jobRef(apiJobID, effectiveJobID uint64) string {
	if apiJobID == effectiveJobID {
		return fmt.Sprintf("job %d", effectiveJobID)
	}
	return fmt.Sprintf("job %d (api id %d)", effectiveJobID, apiJobID)
}
