package workflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	bountiesCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orchestrator_bounties_created_total",
		Help: "Bounty creations by integrity verdict.",
	}, []string{"verdict"})

	submissionsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orchestrator_submissions_started_total",
		Help: "Submissions started, by ordering strategy used.",
	}, []string{"ordering"})

	claimsFinalized = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orchestrator_claims_finalized_total",
		Help: "Claim workflow outcomes.",
	}, []string{"outcome"})

	dryRunReverts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orchestrator_dry_run_reverts_total",
		Help: "Dry-run reverts that aborted a workflow before broadcast.",
	}, []string{"op"})

	reconcileFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orchestrator_reconcile_fallbacks_total",
		Help: "Id reconciliations that fell through to the chain-authoritative default.",
	})
)
