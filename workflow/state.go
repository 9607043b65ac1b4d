package workflow

// CreateState accumulates the identifiers produced by the create workflow so
// callers can print them in machine-readable form even on partial failure.
type CreateState struct {
	APIJobID       uint64
	BountyID       uint64
	EffectiveJobID uint64
	EvaluationCID  string
	FundTxHash     string
	Verdict        string
}

// SubmitState accumulates the identifiers produced by the submit workflow.
type SubmitState struct {
	JobID        uint64
	BountyID     uint64
	SubmissionID uint64
	HunterCID    string
	Ordering     string
	PrepareTx    string
	ApproveTx    string
	StartTx      string
	Confirmed    bool
}

// ClaimState accumulates the result of the claim workflow.
type ClaimState struct {
	JobID        uint64
	SubmissionID uint64
	FinalStatus  string
	FinalizeTx   string
	Outcome      string
}
