package workflow

import (
	"context"
	"fmt"
	"strings"

	"bounty-orchestrator/core/bounty"
)

// checkClass refuses classes that cannot evaluate anything: a funded bounty
// with no eligible models is unevaluable.
func (d *Deps) checkClass(ctx context.Context, classID uint64) error {
	info, err := d.API.GetClass(ctx, classID)
	if err != nil {
		return &bounty.PreflightError{Check: "class", Reason: fmt.Sprintf("fetch class %d: %v", classID, err)}
	}
	if !strings.EqualFold(info.Status, "ACTIVE") {
		return &bounty.PreflightError{Check: "class", Reason: fmt.Sprintf("class %d is %s, not ACTIVE", classID, info.Status)}
	}
	models, err := d.API.GetClassModels(ctx, classID)
	if err != nil {
		return &bounty.PreflightError{Check: "class", Reason: fmt.Sprintf("fetch models for class %d: %v", classID, err)}
	}
	if len(models) == 0 {
		return &bounty.PreflightError{Check: "class", Reason: fmt.Sprintf("class %d has no eligible models", classID)}
	}
	return nil
}

// checkJobOpen verifies the job record is submittable: open, before its
// deadline, with a pinned evaluation package.
func (d *Deps) checkJobOpen(ctx context.Context, jobID uint64) (bounty.Job, error) {
	job, err := d.API.GetJob(ctx, jobID)
	if err != nil {
		return bounty.Job{}, &bounty.PreflightError{Check: "job", Reason: fmt.Sprintf("fetch job %d: %v", jobID, err)}
	}
	if job.Status != "OPEN" {
		return bounty.Job{}, &bounty.PreflightError{Check: "job", Reason: fmt.Sprintf("job %d is %s, not OPEN", jobID, job.Status)}
	}
	if job.EvaluationCID == "" {
		return bounty.Job{}, &bounty.PreflightError{Check: "job", Reason: fmt.Sprintf("job %d has no evaluation package pinned", jobID)}
	}
	if err := bounty.ValidateDeadline(job.SubmissionCloseTime, d.clock()()); err != nil {
		return bounty.Job{}, err
	}
	return job, nil
}

// checkPackageValid runs the server-side package validation. Error-severity
// issues block; warnings are logged and allowed through.
func (d *Deps) checkPackageValid(ctx context.Context, jobID uint64) error {
	issues, err := d.API.ValidateJob(ctx, jobID)
	if err != nil {
		return &bounty.PreflightError{Check: "package", Reason: fmt.Sprintf("validate job %d: %v", jobID, err)}
	}
	for _, issue := range issues {
		if issue.IsError() {
			return &bounty.PreflightError{Check: "package", Reason: fmt.Sprintf("%s: %s", issue.Code, issue.Message)}
		}
		d.logger().Warnf("job %d validation: %s: %s", jobID, issue.Code, issue.Message)
	}
	return nil
}

// checkAccepting asks the contract directly whether submissions are open.
func (d *Deps) checkAccepting(ctx context.Context, bountyID uint64) error {
	accepting, err := d.Chain.IsAcceptingSubmissions(ctx, bountyID)
	if err != nil {
		return &bounty.PreflightError{Check: "chain", Reason: fmt.Sprintf("isAcceptingSubmissions(%d): %v", bountyID, err)}
	}
	if !accepting {
		return &bounty.PreflightError{Check: "chain", Reason: fmt.Sprintf("bounty %d is not accepting submissions", bountyID)}
	}
	return nil
}

// reportDiagnostics fetches and logs /diagnose output after a submission
// failure. Best effort; diagnosis failures are only logged.
func (d *Deps) reportDiagnostics(ctx context.Context, jobID, submissionID uint64) {
	issues, err := d.API.Diagnose(ctx, jobID, submissionID)
	if err != nil {
		d.logger().Warnf("diagnose job %d submission %d: %v", jobID, submissionID, err)
		return
	}
	if len(issues) == 0 {
		d.logger().Infof("diagnose job %d submission %d: no issues reported", jobID, submissionID)
		return
	}
	for _, issue := range issues {
		if issue.Recommendation != "" {
			d.logger().Warnf("diagnose [%s] %s: %s (try: %s)", issue.Severity, issue.Code, issue.Message, issue.Recommendation)
		} else {
			d.logger().Warnf("diagnose [%s] %s: %s", issue.Severity, issue.Code, issue.Message)
		}
	}
}
