package bounty

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"strings"
)

// BountyConfig is the creation input read from a JSON file. BountyAmount is
// a decimal string in native-token units ("0.001").
type BountyConfig struct {
	Title                 string      `json:"title"`
	Description           string      `json:"description"`
	BountyAmount          string      `json:"bountyAmount"`
	Threshold             float64     `json:"threshold"`
	ClassID               uint64      `json:"classId"`
	SubmissionWindowHours int         `json:"submissionWindowHours"`
	WorkProductType       string      `json:"workProductType"`
	Rubric                []Criterion `json:"rubric"`
	Jury                  []JuryNode  `json:"juryNodes"`
	ForbiddenContent      []string    `json:"forbiddenContent,omitempty"`
}

// LoadBountyConfig reads and validates a creation config file.
func LoadBountyConfig(path string) (BountyConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return BountyConfig{}, fmt.Errorf("read config: %w", err)
	}
	var cfg BountyConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return BountyConfig{}, &ValidationError{Fields: []string{"config"}, Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}
	if err := cfg.Validate(); err != nil {
		return BountyConfig{}, err
	}
	return cfg, nil
}

// Validate applies the local creation rules. No network calls are made here.
func (c BountyConfig) Validate() error {
	if strings.TrimSpace(c.Title) == "" {
		return &ValidationError{Fields: []string{"title"}, Reason: "title is required"}
	}
	amount, err := c.AmountWei()
	if err != nil {
		return err
	}
	if amount.Sign() <= 0 {
		return &ValidationError{Fields: []string{"bountyAmount"}, Reason: "bounty amount must be > 0"}
	}
	if c.SubmissionWindowHours <= 0 {
		return &ValidationError{Fields: []string{"submissionWindowHours"}, Reason: "submission window must be > 0 hours"}
	}
	return ValidatePackage(EvaluationPackage{
		Rubric:           c.Rubric,
		Threshold:        c.Threshold,
		Jury:             c.Jury,
		ForbiddenContent: c.ForbiddenContent,
	})
}

// AmountWei converts the decimal native-token amount to wei.
func (c BountyConfig) AmountWei() (*big.Int, error) {
	return ParseDecimalWei(c.BountyAmount)
}

// ParseDecimalWei converts a decimal token string ("0.001") to an 18-decimal
// integer amount.
func ParseDecimalWei(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, &ValidationError{Fields: []string{"bountyAmount"}, Reason: "amount is required"}
	}
	f, ok := new(big.Float).SetPrec(256).SetString(s)
	if !ok {
		return nil, &ValidationError{Fields: []string{"bountyAmount"}, Reason: fmt.Sprintf("invalid decimal amount %q", s)}
	}
	wei := new(big.Float).SetPrec(256).Mul(f, big.NewFloat(1e18))
	out, _ := wei.Int(nil)
	return out, nil
}
