package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"bounty-orchestrator/core/bounty"
	"bounty-orchestrator/workflow"
)

// MCPServer exposes the three bounty workflows as MCP tools so agents can
// drive the full lifecycle over stdio.
type MCPServer struct {
	mcpServer *server.MCPServer
	deps      *workflow.Deps
}

// NewMCPServer creates the MCP server and registers all tools.
func NewMCPServer(deps *workflow.Deps) *MCPServer {
	mcpServer := server.NewMCPServer(
		"Bounty Orchestrator",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	s := &MCPServer{mcpServer: mcpServer, deps: deps}
	s.registerTools()
	return s
}

// GetMCPServer returns the underlying MCP server for transport setup.
func (s *MCPServer) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *MCPServer) registerTools() {
	s.registerCreateBountyTool()
	s.registerSubmitTool()
	s.registerClaimTool()
	s.registerBountyStatusTool()
}

func (s *MCPServer) registerCreateBountyTool() {
	tool := mcp.NewTool("create_bounty",
		mcp.WithDescription("Create and fund a bounty from a JSON configuration file"),
		mcp.WithString("config_path", mcp.Required(), mcp.Description("Path to the bounty configuration JSON")),
		mcp.WithBoolean("skip_class_check", mcp.Description("Skip the oracle-class availability preflight")),
	)

	s.mcpServer.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		configPath, err := request.RequireString("config_path")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		args := request.GetArguments()

		cfg, err := bounty.LoadBountyConfig(configPath)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to load config: %v", err)), nil
		}

		state, err := s.deps.Create(ctx, cfg, workflow.CreateOptions{
			SkipClassCheck: toBool(args["skip_class_check"]),
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to create bounty: %v (apiJobId=%d bountyId=%d)", err, state.APIJobID, state.BountyID)), nil
		}

		return mcp.NewToolResultText(fmt.Sprintf(
			"Bounty created.\n\nAPI_JOB_ID=%d\nEFFECTIVE_JOB_ID=%d\nBOUNTY_ID=%d\nevaluationCid=%s\nfundTx=%s\nverdict=%s",
			state.APIJobID, state.EffectiveJobID, state.BountyID, state.EvaluationCID, state.FundTxHash, state.Verdict)), nil
	})
}

func (s *MCPServer) registerSubmitTool() {
	tool := mcp.NewTool("submit_to_bounty",
		mcp.WithDescription("Upload work files and start an oracle evaluation for a bounty"),
		mcp.WithNumber("job_id", mcp.Required(), mcp.Description("Effective job id of the bounty")),
		mcp.WithArray("files", mcp.Required(), mcp.Description("Paths of files to submit")),
		mcp.WithString("narrative", mcp.Description("Optional narrative accompanying the submission")),
		mcp.WithBoolean("skip_confirm", mcp.Description("Trustless mode: never call the confirm endpoint")),
		mcp.WithBoolean("confirm_first", mcp.Description("Force the legacy confirm-before-start ordering")),
	)

	s.mcpServer.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		jobID := toUint64(args["job_id"])
		if jobID == 0 {
			return mcp.NewToolResultError("job_id is required"), nil
		}
		files := toStrings(args["files"])
		if len(files) == 0 {
			return mcp.NewToolResultError("files is required"), nil
		}

		state, err := s.deps.Submit(ctx, jobID, workflow.SubmitOptions{
			Files:        files,
			Narrative:    toString(args["narrative"]),
			SkipConfirm:  toBool(args["skip_confirm"]),
			ConfirmFirst: toBool(args["confirm_first"]),
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to submit: %v (submissionId=%d)", err, state.SubmissionID)), nil
		}

		return mcp.NewToolResultText(fmt.Sprintf(
			"Submission started.\n\njobId=%d\nsubmissionId=%d\nhunterCid=%s\nordering=%s\nstartTx=%s",
			state.JobID, state.SubmissionID, state.HunterCID, state.Ordering, state.StartTx)), nil
	})
}

func (s *MCPServer) registerClaimTool() {
	tool := mcp.NewTool("claim_bounty",
		mcp.WithDescription("Wait for the oracle verdict and finalize a submission"),
		mcp.WithNumber("job_id", mcp.Required(), mcp.Description("Effective job id of the bounty")),
		mcp.WithNumber("submission_id", mcp.Required(), mcp.Description("Submission to finalize")),
		mcp.WithNumber("max_wait_seconds", mcp.Description("Maximum seconds to wait for the verdict (default 600)")),
	)

	s.mcpServer.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		jobID := toUint64(args["job_id"])
		submissionID := toUint64(args["submission_id"])
		if jobID == 0 || submissionID == 0 {
			return mcp.NewToolResultError("job_id and submission_id are required"), nil
		}

		state, err := s.deps.Claim(ctx, jobID, submissionID, workflow.ClaimOptions{
			MaxWait: time.Duration(toUint64(args["max_wait_seconds"])) * time.Second,
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to claim: %v (status=%s)", err, state.FinalStatus)), nil
		}

		return mcp.NewToolResultText(fmt.Sprintf(
			"Claim finished.\n\njobId=%d\nsubmissionId=%d\nstatus=%s\nfinalizeTx=%s\noutcome=%s",
			state.JobID, state.SubmissionID, state.FinalStatus, state.FinalizeTx, state.Outcome)), nil
	})
}

func (s *MCPServer) registerBountyStatusTool() {
	tool := mcp.NewTool("bounty_status",
		mcp.WithDescription("Read the current on-chain and API state of a bounty"),
		mcp.WithNumber("job_id", mcp.Required(), mcp.Description("Effective job id of the bounty")),
	)

	s.mcpServer.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jobID := toUint64(request.GetArguments()["job_id"])
		if jobID == 0 {
			return mcp.NewToolResultError("job_id is required"), nil
		}

		job, jobErr := s.deps.API.GetJob(ctx, jobID)

		bountyID := jobID
		if jobErr == nil && job.BountyID != 0 {
			bountyID = job.BountyID
		}
		onchain, chainErr := s.deps.Chain.GetBounty(ctx, bountyID)

		if jobErr != nil && chainErr != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to read bounty %d: api: %v; chain: %v", jobID, jobErr, chainErr)), nil
		}

		result := map[string]interface{}{}
		if jobErr == nil {
			result["job"] = job
		} else {
			result["jobError"] = jobErr.Error()
		}
		if chainErr == nil {
			result["bounty"] = statusView(onchain)
		} else {
			result["bountyError"] = chainErr.Error()
		}

		return mcp.NewToolResultText(fmt.Sprintf("Bounty %d status:\n\n%+v", jobID, result)), nil
	})
}

func statusView(b bounty.Bounty) map[string]interface{} {
	view := map[string]interface{}{
		"id":            b.ID,
		"creator":       b.Creator.Hex(),
		"evaluationCid": b.EvaluationCID,
		"classId":       b.ClassID,
		"threshold":     b.Threshold,
		"status":        b.Status.String(),
		"deadline":      b.SubmissionDeadline.UTC().Format(time.RFC3339),
	}
	if b.PayoutWei != nil {
		view["payoutWei"] = b.PayoutWei.String()
	}
	return view
}
