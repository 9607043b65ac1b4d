package bounty

import (
	"fmt"
	"strings"
)

// ValidationError reports malformed local input (rubric, jury, config).
// Nothing is broadcast when one of these is returned.
type ValidationError struct {
	Fields []string
	Reason string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed on %s: %s", strings.Join(e.Fields, ", "), e.Reason)
}

// PreflightError reports a condition that would guarantee a later-tier
// failure: inactive class, closed bounty, expired deadline, invalid package.
type PreflightError struct {
	Check  string
	Reason string
}

func (e *PreflightError) Error() string {
	return fmt.Sprintf("preflight %s: %s", e.Check, e.Reason)
}

// RevertError is a chain dry-run revert. The workflow aborts before any funds
// are spent; the reason is reported verbatim.
type RevertError struct {
	Op     string
	Reason string
}

func (e *RevertError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s: execution reverted", e.Op)
	}
	return fmt.Sprintf("%s: execution reverted: %s", e.Op, e.Reason)
}

// TransientRPCError marks a retryable read failure (stale state behind a
// load balancer, temporary RPC unavailability). Writes are never retried.
type TransientRPCError struct {
	Op  string
	Err error
}

func (e *TransientRPCError) Error() string {
	return fmt.Sprintf("%s: transient rpc failure: %v", e.Op, e.Err)
}

func (e *TransientRPCError) Unwrap() error { return e.Err }

// ReconciliationError means every id-mapping path failed. Callers downgrade
// it to a warning and fall back to the on-chain bounty id.
type ReconciliationError struct {
	APIJobID uint64
	BountyID uint64
	Err      error
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("id reconciliation failed (api job %d, bounty %d): %v", e.APIJobID, e.BountyID, e.Err)
}

func (e *ReconciliationError) Unwrap() error { return e.Err }

// IntegrityError records a post-creation mismatch between the chain and the
// API view. Funds are already on-chain, so the verdict is NO-GO with no
// rollback.
type IntegrityError struct {
	Field    string
	Expected string
	Observed string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity mismatch on %s: expected %q, observed %q", e.Field, e.Expected, e.Observed)
}

// OracleNotReadyError is returned by finalize when the oracle has not
// answered yet. The claim workflow is re-runnable.
type OracleNotReadyError struct {
	JobID        uint64
	SubmissionID uint64
}

func (e *OracleNotReadyError) Error() string {
	return fmt.Sprintf("evaluation not ready for job %d submission %d; re-run later", e.JobID, e.SubmissionID)
}

// AuthError means credentials are missing or rejected. Maps to exit code 2.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return "auth: " + e.Reason
}
