package workflow

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"bounty-orchestrator/api"
	"bounty-orchestrator/chain"
	"bounty-orchestrator/core/bounty"
)

func testBountyConfig() bounty.BountyConfig {
	return bounty.BountyConfig{
		Title:                 "Fix the parser",
		BountyAmount:          "0.01",
		Threshold:             70,
		ClassID:               128,
		SubmissionWindowHours: 48,
		Rubric: []bounty.Criterion{
			{ID: "correctness", Description: "Output is correct", Weight: 1.0, Must: true},
		},
		Jury: []bounty.JuryNode{
			{Provider: "openai", Model: "gpt-4o", Runs: 1, Weight: 1.0},
		},
	}
}

func createFixtures() (*fakeChain, *fakeExec, *fakeAPI) {
	ch := &fakeChain{
		created: chain.BountyCreatedEvent{
			BountyID:      17,
			Creator:       common.HexToAddress(testSender),
			EvaluationCID: "QmEval",
			PayoutWei:     big.NewInt(1e16),
		},
		bounty: bounty.Bounty{
			ID:            17,
			Creator:       common.HexToAddress(testSender),
			EvaluationCID: "QmEval",
			ClassID:       128,
			Threshold:     70,
		},
	}
	ex := &fakeExec{}
	ap := &fakeAPI{
		createResp: api.CreateJobResponse{JobID: 42, EvaluationCID: "QmEval"},
		linkJob:    bounty.Job{ID: 17, BountyID: 17, EvaluationCID: "QmEval"},
		jobs: map[uint64]bounty.Job{
			17: {ID: 17, BountyID: 17, EvaluationCID: "QmEval", Status: "OPEN"},
		},
		class:  api.ClassInfo{ID: 128, Status: "ACTIVE"},
		models: []api.ModelInfo{{Provider: "openai", Model: "gpt-4o", Active: true}},
	}
	return ch, ex, ap
}

func TestCreateHappyPath(t *testing.T) {
	ch, ex, ap := createFixtures()
	deps, runs := testDeps(ch, ex, ap)

	state, err := deps.Create(context.Background(), testBountyConfig(), CreateOptions{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if state.APIJobID != 42 || state.BountyID != 17 || state.EffectiveJobID != 17 {
		t.Fatalf("ids = %+v", state)
	}
	if state.Verdict != "GO" {
		t.Errorf("verdict = %q", state.Verdict)
	}
	if len(ex.ops) != 1 || ex.ops[0] != "createBounty" {
		t.Errorf("executed ops = %v", ex.ops)
	}

	recs, _ := runs.RunsForJob(context.Background(), 17)
	if len(recs) != 1 || recs[0].Outcome != "GO" {
		t.Errorf("run log = %+v", recs)
	}
}

func TestCreateLocalValidationMakesNoCalls(t *testing.T) {
	ch, ex, ap := createFixtures()
	deps, _ := testDeps(ch, ex, ap)

	cfg := testBountyConfig()
	cfg.Rubric[0].Weight = 0.5 // sum 0.5, outside tolerance

	_, err := deps.Create(context.Background(), cfg, CreateOptions{})
	var ve *bounty.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if len(ap.calls) != 0 || len(ex.ops) != 0 || len(ch.calls) != 0 {
		t.Errorf("validation failure must make no network calls: api=%v exec=%v chain=%v", ap.calls, ex.ops, ch.calls)
	}
}

func TestCreateClassPreflight(t *testing.T) {
	t.Run("inactive class refuses before funding", func(t *testing.T) {
		ch, ex, ap := createFixtures()
		ap.class.Status = "DEPRECATED"
		deps, _ := testDeps(ch, ex, ap)

		_, err := deps.Create(context.Background(), testBountyConfig(), CreateOptions{})
		var pe *bounty.PreflightError
		if !errors.As(err, &pe) || pe.Check != "class" {
			t.Fatalf("expected class preflight error, got %v", err)
		}
		if ap.called("CreateJob") || len(ex.ops) != 0 {
			t.Error("nothing may be pinned or funded after a preflight refusal")
		}
	})

	t.Run("class with no models refuses", func(t *testing.T) {
		ch, ex, ap := createFixtures()
		ap.models = nil
		deps, _ := testDeps(ch, ex, ap)

		_, err := deps.Create(context.Background(), testBountyConfig(), CreateOptions{})
		var pe *bounty.PreflightError
		if !errors.As(err, &pe) {
			t.Fatalf("expected preflight error, got %v", err)
		}
	})

	t.Run("suppressed check skips the class reads", func(t *testing.T) {
		ch, ex, ap := createFixtures()
		ap.classErr = errors.New("class endpoint down")
		deps, _ := testDeps(ch, ex, ap)

		if _, err := deps.Create(context.Background(), testBountyConfig(), CreateOptions{SkipClassCheck: true}); err != nil {
			t.Fatalf("create: %v", err)
		}
		if ap.called("GetClass") {
			t.Error("suppressed preflight must not read the class")
		}
	})
}

func TestCreateDryRunRevertAborts(t *testing.T) {
	ch, ex, ap := createFixtures()
	ex.failOps = map[string]error{"createBounty": &bounty.RevertError{Op: "createBounty", Reason: "deadline passed"}}
	deps, _ := testDeps(ch, ex, ap)

	state, err := deps.Create(context.Background(), testBountyConfig(), CreateOptions{})
	var re *bounty.RevertError
	if !errors.As(err, &re) {
		t.Fatalf("expected *RevertError, got %v", err)
	}
	// The job was created and pinned before funding; its id must survive
	// for the caller.
	if state.APIJobID != 42 || state.BountyID != 0 {
		t.Errorf("state = %+v", state)
	}
	if ap.called("LinkBountyID") {
		t.Error("no reconciliation after a funding failure")
	}
}

func TestCreateIntegrityMismatchIsNoGo(t *testing.T) {
	ch, ex, ap := createFixtures()
	ch.bounty.EvaluationCID = "QmTampered"
	deps, _ := testDeps(ch, ex, ap)

	state, err := deps.Create(context.Background(), testBountyConfig(), CreateOptions{})
	var ie *bounty.IntegrityError
	if !errors.As(err, &ie) {
		t.Fatalf("expected *IntegrityError, got %v", err)
	}
	if ie.Field != "evaluationCid" {
		t.Errorf("field = %q", ie.Field)
	}
	if state.Verdict != "NO-GO" {
		t.Errorf("verdict = %q", state.Verdict)
	}
	// Funds are on-chain; the ids must still be reported.
	if state.BountyID != 17 || state.EffectiveJobID != 17 {
		t.Errorf("ids = %+v", state)
	}
}

func TestCreateJobCidMismatchIsNoGo(t *testing.T) {
	ch, ex, ap := createFixtures()
	ap.jobs[17] = bounty.Job{ID: 17, EvaluationCID: "QmDrifted", Status: "OPEN"}
	deps, _ := testDeps(ch, ex, ap)

	state, err := deps.Create(context.Background(), testBountyConfig(), CreateOptions{})
	var ie *bounty.IntegrityError
	if !errors.As(err, &ie) || ie.Field != "job.evaluationCid" {
		t.Fatalf("expected job cid integrity error, got %v", err)
	}
	if state.Verdict != "NO-GO" {
		t.Errorf("verdict = %q", state.Verdict)
	}
}
