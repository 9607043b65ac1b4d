package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"bounty-orchestrator/core/bounty"
	"bounty-orchestrator/security"
)

// ErrNotFound marks a 404 from the job service. The submit workflow uses it
// to detect the confirm-before-start server variant.
var ErrNotFound = errors.New("api: not found")

// BotCredentials identify a registered bot to the job service. The file they
// live in must be private to the user.
type BotCredentials struct {
	APIKey string `json:"apiKey"`
	BotID  string `json:"botId"`
}

// Client is the typed HTTP surface of the job-tracking service.
type Client struct {
	baseURL string
	http    *http.Client
	creds   BotCredentials
}

// NewClient builds a client with explicit credentials.
func NewClient(baseURL string, creds BotCredentials) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 60 * time.Second},
		creds:   creds,
	}
}

// NewClientFromEnv reads bot credentials from BOT_FILE (default
// ~/.bounty-orchestrator/bot.json).
func NewClientFromEnv(baseURL string) (*Client, error) {
	path := strings.TrimSpace(os.Getenv("BOT_FILE"))
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, &bounty.AuthError{Reason: "BOT_FILE is not set and home directory is unknown"}
		}
		path = filepath.Join(home, ".bounty-orchestrator", "bot.json")
	}
	creds, err := LoadBotCredentials(path)
	if err != nil {
		return nil, err
	}
	return NewClient(baseURL, creds), nil
}

// LoadBotCredentials reads and checks the bot credentials file.
func LoadBotCredentials(path string) (BotCredentials, error) {
	info, err := os.Stat(path)
	if err != nil {
		return BotCredentials{}, &bounty.AuthError{Reason: fmt.Sprintf("bot credentials not found at %s", path)}
	}
	if info.Mode().Perm()&0o077 != 0 {
		return BotCredentials{}, &bounty.AuthError{Reason: fmt.Sprintf("bot credentials %s must have mode 0600, has %04o", path, info.Mode().Perm())}
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return BotCredentials{}, &bounty.AuthError{Reason: fmt.Sprintf("read bot credentials: %v", err)}
	}
	var creds BotCredentials
	if err := json.Unmarshal(raw, &creds); err != nil {
		return BotCredentials{}, &bounty.AuthError{Reason: fmt.Sprintf("parse bot credentials: %v", err)}
	}
	if creds.APIKey == "" {
		return BotCredentials{}, &bounty.AuthError{Reason: "bot credentials missing apiKey"}
	}
	return creds, nil
}

type apiError struct {
	Status int
	Body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("api: status %d: %s", e.Status, e.Body)
}

// do issues one JSON request. A nil out discards the response body.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: read response: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.statusError(resp.StatusCode, raw, path)
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("%s %s: decode response: %w", method, path, err)
		}
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.creds.APIKey)
	if c.creds.BotID != "" {
		req.Header.Set("X-Bot-Id", c.creds.BotID)
	}
}

func (c *Client) statusError(status int, raw []byte, path string) error {
	body := strings.TrimSpace(string(raw))
	switch status {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s: %s", ErrNotFound, path, body)
	case http.StatusUnauthorized, http.StatusForbidden:
		return &bounty.AuthError{Reason: fmt.Sprintf("api rejected credentials (%d): %s", status, body)}
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		var ve struct {
			Error  string   `json:"error"`
			Fields []string `json:"fields"`
		}
		if err := json.Unmarshal(raw, &ve); err == nil && ve.Error != "" {
			return &bounty.ValidationError{Fields: ve.Fields, Reason: ve.Error}
		}
	}
	return &apiError{Status: status, Body: body}
}

// CreateJob builds and pins the evaluation package server-side and returns
// the API job id plus its CID.
func (c *Client) CreateJob(ctx context.Context, req CreateJobRequest) (CreateJobResponse, error) {
	var out CreateJobResponse
	if err := c.do(ctx, http.MethodPost, "/jobs/create", req, &out); err != nil {
		return CreateJobResponse{}, err
	}
	if out.JobID == 0 || out.EvaluationCID == "" {
		return CreateJobResponse{}, fmt.Errorf("create job: incomplete response (jobId=%d, cid=%q)", out.JobID, out.EvaluationCID)
	}
	return out, nil
}

// LinkBountyID attaches the on-chain bounty id to an API job. The returned
// record's id is the authoritative effective job id.
func (c *Client) LinkBountyID(ctx context.Context, jobID uint64, req LinkBountyRequest) (bounty.Job, error) {
	var out bounty.Job
	err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/jobs/%d/bountyId", jobID), req, &out)
	return out, err
}

// ResolveBountyID is the fallback link path for records the background sync
// service has already moved.
func (c *Client) ResolveBountyID(ctx context.Context, jobID uint64, req LinkBountyRequest) (bounty.Job, error) {
	var out bounty.Job
	err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/jobs/%d/bountyId/resolve", jobID), req, &out)
	return out, err
}

// GetJob reads the current (possibly reconciled) job record.
func (c *Client) GetJob(ctx context.Context, jobID uint64) (bounty.Job, error) {
	var out bounty.Job
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/jobs/%d", jobID), nil, &out)
	return out, err
}

// ValidateJob validates the pinned evaluation package server-side.
func (c *Client) ValidateJob(ctx context.Context, jobID uint64) ([]Issue, error) {
	var out struct {
		Issues []Issue `json:"issues"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/jobs/%d/validate", jobID), nil, &out); err != nil {
		return nil, err
	}
	return out.Issues, nil
}

// SubmitFiles uploads the hunter's files plus narrative and returns the
// pinned bundle CID.
func (c *Client) SubmitFiles(ctx context.Context, jobID uint64, paths []string, narrative string) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return "", fmt.Errorf("open %s: %w", p, err)
		}
		part, err := writer.CreateFormFile("files", security.SanitizeFilename(p))
		if err != nil {
			f.Close()
			return "", err
		}
		if _, err := io.Copy(part, f); err != nil {
			f.Close()
			return "", fmt.Errorf("read %s: %w", p, err)
		}
		f.Close()
	}
	if narrative != "" {
		if err := writer.WriteField("narrative", narrative); err != nil {
			return "", err
		}
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	path := fmt.Sprintf("/jobs/%d/submit", jobID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload files: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("upload files: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", c.statusError(resp.StatusCode, raw, path)
	}
	var out struct {
		HunterCID  string `json:"hunterCid"`
		PrimaryCID string `json:"primaryCid"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("upload files: decode response: %w", err)
	}
	cid := out.HunterCID
	if cid == "" {
		cid = out.PrimaryCID
	}
	if cid == "" {
		return "", fmt.Errorf("upload files: response missing hunterCid")
	}
	return cid, nil
}

// PrepareSubmissionTx returns the unsigned prepareSubmission transaction.
func (c *Client) PrepareSubmissionTx(ctx context.Context, jobID uint64, overrides FeeOverrides) (TxPayload, error) {
	var out TxPayload
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/jobs/%d/submit/prepare", jobID), overrides, &out)
	return out, err
}

// ApprovalTx returns the unsigned fee-token approval transaction.
func (c *Client) ApprovalTx(ctx context.Context, jobID uint64) (TxPayload, error) {
	var out TxPayload
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/jobs/%d/submit/approve", jobID), struct{}{}, &out)
	return out, err
}

// StartSubmissionTx returns the unsigned startPreparedSubmission transaction
// with the server-recommended gas limit.
func (c *Client) StartSubmissionTx(ctx context.Context, jobID, submissionID uint64) (TxPayload, error) {
	var out TxPayload
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/jobs/%d/submissions/%d/start", jobID, submissionID), struct{}{}, &out)
	return out, err
}

// ConfirmSubmission records the prepared submission with the API. Both an
// alreadyExists body and a 409 status mean the record is present; either is
// idempotent success.
func (c *Client) ConfirmSubmission(ctx context.Context, jobID uint64, req ConfirmRequest) (alreadyExisted bool, err error) {
	var out struct {
		Status string `json:"status"`
	}
	err = c.do(ctx, http.MethodPost, fmt.Sprintf("/jobs/%d/submissions/confirm", jobID), req, &out)
	if err != nil {
		var ae *apiError
		if errors.As(err, &ae) && ae.Status == http.StatusConflict {
			return true, nil
		}
		return false, err
	}
	return strings.EqualFold(out.Status, "alreadyExists"), nil
}

// RefreshSubmission forces the API to re-read chain state and returns the
// refreshed record.
func (c *Client) RefreshSubmission(ctx context.Context, jobID, submissionID uint64) (SubmissionRecord, error) {
	var out SubmissionRecord
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/jobs/%d/submissions/%d/refresh", jobID, submissionID), struct{}{}, &out)
	return out, err
}

// FinalizeSubmissionTx returns the unsigned finalizeSubmission transaction.
// Fails with OracleNotReadyError until the oracle has answered.
func (c *Client) FinalizeSubmissionTx(ctx context.Context, jobID, submissionID uint64) (TxPayload, error) {
	var out TxPayload
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/jobs/%d/submissions/%d/finalize", jobID, submissionID), struct{}{}, &out)
	if err != nil {
		if isNotReady(err) {
			return TxPayload{}, &bounty.OracleNotReadyError{JobID: jobID, SubmissionID: submissionID}
		}
		return TxPayload{}, err
	}
	return out, nil
}

func isNotReady(err error) bool {
	var ae *apiError
	if !errors.As(err, &ae) {
		return false
	}
	body := strings.ToLower(ae.Body)
	return strings.Contains(body, "not ready") || strings.Contains(body, "evaluation pending") || strings.Contains(body, "still evaluating")
}

// Diagnose reports issues and recommendations for a submission.
func (c *Client) Diagnose(ctx context.Context, jobID, submissionID uint64) ([]Issue, error) {
	var out struct {
		Issues []Issue `json:"issues"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/jobs/%d/submissions/%d/diagnose", jobID, submissionID), nil, &out); err != nil {
		return nil, err
	}
	return out.Issues, nil
}

// GetClass reads the oracle-class availability record.
func (c *Client) GetClass(ctx context.Context, classID uint64) (ClassInfo, error) {
	var out ClassInfo
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/classes/%d", classID), nil, &out)
	return out, err
}

// GetClassModels lists models eligible to evaluate for a class.
func (c *Client) GetClassModels(ctx context.Context, classID uint64) ([]ModelInfo, error) {
	var out struct {
		Models []ModelInfo `json:"models"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/classes/%d/models", classID), nil, &out); err != nil {
		return nil, err
	}
	return out.Models, nil
}
