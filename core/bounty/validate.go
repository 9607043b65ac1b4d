package bounty

import (
	"fmt"
	"math"
	"time"
)

// WeightTolerance is the allowed deviation of a weight sum from 1.0.
const WeightTolerance = 0.01

// ValidatePackage checks the rubric/jury invariants before anything is
// pinned or funded. Field names in the error are specific so the caller can
// fix the input.
func ValidatePackage(p EvaluationPackage) error {
	if len(p.Rubric) == 0 {
		return &ValidationError{Fields: []string{"rubric"}, Reason: "at least one criterion is required"}
	}
	seen := make(map[string]bool, len(p.Rubric))
	sum := 0.0
	for i, c := range p.Rubric {
		field := fmt.Sprintf("rubric[%d]", i)
		if c.ID == "" {
			return &ValidationError{Fields: []string{field + ".id"}, Reason: "criterion id is required"}
		}
		if c.Description == "" {
			return &ValidationError{Fields: []string{field + ".description"}, Reason: "criterion description is required"}
		}
		if c.Weight < 0 || c.Weight > 1 {
			return &ValidationError{Fields: []string{field + ".weight"}, Reason: "criterion weight must be within [0,1]"}
		}
		if seen[c.ID] {
			return &ValidationError{Fields: []string{field + ".id"}, Reason: fmt.Sprintf("duplicate criterion id %q", c.ID)}
		}
		seen[c.ID] = true
		sum += c.Weight
	}
	if math.Abs(sum-1.0) > WeightTolerance {
		return &ValidationError{Fields: []string{"rubric"}, Reason: fmt.Sprintf("criterion weights must sum to 1.0 (got %.3f)", sum)}
	}
	if p.Threshold < 0 || p.Threshold > 100 {
		return &ValidationError{Fields: []string{"threshold"}, Reason: "threshold must be within [0,100]"}
	}
	if len(p.Jury) == 0 {
		return &ValidationError{Fields: []string{"juryNodes"}, Reason: "at least one jury node is required"}
	}
	jurySum := 0.0
	for i, n := range p.Jury {
		field := fmt.Sprintf("juryNodes[%d]", i)
		if n.Provider == "" || n.Model == "" {
			return &ValidationError{Fields: []string{field}, Reason: "jury node provider and model are required"}
		}
		if n.Runs < 1 {
			return &ValidationError{Fields: []string{field + ".runs"}, Reason: "jury node runs must be >= 1"}
		}
		jurySum += n.Weight
	}
	if math.Abs(jurySum-1.0) > WeightTolerance {
		return &ValidationError{Fields: []string{"juryNodes"}, Reason: fmt.Sprintf("jury weights must sum to 1.0 (got %.3f)", jurySum)}
	}
	return nil
}

// ValidateDeadline rejects deadlines at or before now. A deadline exactly at
// now is already closed.
func ValidateDeadline(deadline, now time.Time) error {
	if !deadline.After(now) {
		return &PreflightError{Check: "deadline", Reason: fmt.Sprintf("submission deadline %s has passed", deadline.UTC().Format(time.RFC3339))}
	}
	return nil
}
