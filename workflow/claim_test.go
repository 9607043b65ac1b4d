package workflow

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"bounty-orchestrator/api"
	"bounty-orchestrator/chain"
	"bounty-orchestrator/core/bounty"
)

func claimFixtures() (*fakeChain, *fakeExec, *fakeAPI) {
	ch := &fakeChain{
		finalized: chain.SubmissionFinalizedEvent{BountyID: 17, SubmissionID: 4, Approved: true},
		payout: &chain.PayoutSentEvent{
			BountyID:  17,
			Winner:    common.HexToAddress(testSender),
			AmountWei: big.NewInt(1e16),
		},
	}
	ex := &fakeExec{}
	ap := &fakeAPI{
		finalizeTx: api.TxPayload{To: "0x00000000000000000000000000000000000000e5", Data: "0x04"},
	}
	return ch, ex, ap
}

func record(status bounty.SubmissionStatus) api.SubmissionRecord {
	return api.SubmissionRecord{SubmissionID: 4, BountyID: 17, Status: status, RawStatus: status.String()}
}

// advanceClock makes each pause move the workflow clock forward.
func advanceClock(deps *Deps, start time.Time) {
	now := start
	deps.now = func() time.Time { return now }
	deps.sleep = func(d time.Duration) { now = now.Add(d) }
}

func TestClaimAcceptedPaysOut(t *testing.T) {
	ch, ex, ap := claimFixtures()
	ap.refreshes = []api.SubmissionRecord{
		record(bounty.SubmissionPendingEvaluation),
		record(bounty.SubmissionPendingEvaluation),
		record(bounty.SubmissionAcceptedPendingClaim),
	}
	deps, _ := testDeps(ch, ex, ap)
	advanceClock(deps, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	state, err := deps.Claim(context.Background(), 17, 4, ClaimOptions{})
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if state.Outcome != "PASSED - payout claimed" {
		t.Errorf("outcome = %q", state.Outcome)
	}
	if len(ex.ops) != 1 || ex.ops[0] != "finalizeSubmission" {
		t.Errorf("executed ops = %v", ex.ops)
	}
	if ap.refreshCount != 3 {
		t.Errorf("refresh calls = %d, want 3", ap.refreshCount)
	}
}

func TestClaimRejectedReleasesBudget(t *testing.T) {
	ch, ex, ap := claimFixtures()
	ch.finalized.Approved = false
	ch.payout = nil
	ap.refreshes = []api.SubmissionRecord{record(bounty.SubmissionRejectedPendingFinalization)}
	deps, _ := testDeps(ch, ex, ap)

	state, err := deps.Claim(context.Background(), 17, 4, ClaimOptions{})
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if state.Outcome != "FAILED - refunded" {
		t.Errorf("outcome = %q", state.Outcome)
	}
	if len(ex.ops) != 1 {
		t.Errorf("the rejected path still finalizes on-chain: %v", ex.ops)
	}
}

func TestClaimAlreadyFinalized(t *testing.T) {
	for _, status := range []bounty.SubmissionStatus{bounty.SubmissionApproved, bounty.SubmissionRejected} {
		ch, ex, ap := claimFixtures()
		ap.refreshes = []api.SubmissionRecord{record(status)}
		deps, runs := testDeps(ch, ex, ap)

		state, err := deps.Claim(context.Background(), 17, 4, ClaimOptions{})
		if err != nil {
			t.Fatalf("claim with status %v: %v", status, err)
		}
		if len(ex.ops) != 0 {
			t.Errorf("already-finalized submission must not send a tx: %v", ex.ops)
		}
		if state.Outcome == "" {
			t.Error("outcome must still be reported")
		}
		if recs, _ := runs.RunsForJob(context.Background(), 17); len(recs) != 1 {
			t.Errorf("run log for status %v = %+v", status, recs)
		}
	}
}

func TestClaimObservedTimedOut(t *testing.T) {
	ch, ex, ap := claimFixtures()
	ap.refreshes = []api.SubmissionRecord{record(bounty.SubmissionTimedOut)}
	deps, runs := testDeps(ch, ex, ap)

	state, err := deps.Claim(context.Background(), 17, 4, ClaimOptions{})
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if state.Outcome != "TIMED OUT - no payout" {
		t.Errorf("outcome = %q", state.Outcome)
	}
	if len(ex.ops) != 0 {
		t.Errorf("a timed-out submission is terminal, no tx may be sent: %v", ex.ops)
	}
	if ap.refreshCount != 1 {
		t.Errorf("refresh calls = %d, want 1 (no point polling a terminal status)", ap.refreshCount)
	}
	recs, _ := runs.RunsForJob(context.Background(), 17)
	if len(recs) != 1 || recs[0].Outcome != "TIMED OUT - no payout" {
		t.Errorf("run log = %+v", recs)
	}
}

func TestClaimTimesOut(t *testing.T) {
	ch, ex, ap := claimFixtures()
	ap.refreshes = []api.SubmissionRecord{record(bounty.SubmissionPendingEvaluation)}
	deps, runs := testDeps(ch, ex, ap)
	advanceClock(deps, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	_, err := deps.Claim(context.Background(), 17, 4, ClaimOptions{MaxWait: 90 * time.Second})
	if err == nil || !strings.Contains(err.Error(), "timed out") {
		t.Fatalf("expected timeout, got %v", err)
	}
	if len(ex.ops) != 0 {
		t.Errorf("timeout must not finalize: %v", ex.ops)
	}
	// 30s cadence against a 90s budget: polls at 0s, 30s, 60s, 90s.
	if ap.refreshCount != 4 {
		t.Errorf("refresh calls = %d, want 4", ap.refreshCount)
	}
	recs, _ := runs.RunsForJob(context.Background(), 17)
	if len(recs) != 1 || recs[0].Outcome != "timeout" {
		t.Errorf("run log = %+v", recs)
	}
}

func TestClaimFinalWaitIsClamped(t *testing.T) {
	ch, _, ap := claimFixtures()
	ap.refreshes = []api.SubmissionRecord{record(bounty.SubmissionPendingEvaluation)}
	deps, _ := testDeps(ch, &fakeExec{}, ap)

	var slept []time.Duration
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	deps.now = func() time.Time { return now }
	deps.sleep = func(d time.Duration) {
		slept = append(slept, d)
		now = now.Add(d)
	}

	_, err := deps.Claim(context.Background(), 17, 4, ClaimOptions{MaxWait: 45 * time.Second})
	if err == nil {
		t.Fatal("expected timeout")
	}
	if len(slept) != 2 || slept[0] != 30*time.Second || slept[1] != 15*time.Second {
		t.Errorf("sleeps = %v, want [30s 15s]", slept)
	}
}

func TestClaimOracleNotReadyAborts(t *testing.T) {
	ch, ex, ap := claimFixtures()
	ap.refreshes = []api.SubmissionRecord{record(bounty.SubmissionAcceptedPendingClaim)}
	ap.finalizeErr = &bounty.OracleNotReadyError{JobID: 17, SubmissionID: 4}
	deps, _ := testDeps(ch, ex, ap)

	_, err := deps.Claim(context.Background(), 17, 4, ClaimOptions{})
	var notReady *bounty.OracleNotReadyError
	if !errors.As(err, &notReady) {
		t.Fatalf("expected *OracleNotReadyError, got %v", err)
	}
	if !ap.called("Diagnose") {
		t.Error("not-ready abort must pull diagnostics")
	}
	if len(ex.ops) != 0 {
		t.Errorf("no tx may be sent: %v", ex.ops)
	}
}
