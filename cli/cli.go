// Package cli wires the workflow dependencies for the command-line entry
// points and maps errors to process exit codes.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"bounty-orchestrator/api"
	"bounty-orchestrator/chain"
	"bounty-orchestrator/core/bounty"
	"bounty-orchestrator/ipfs"
	"bounty-orchestrator/storage/runlog"
	"bounty-orchestrator/workflow"
)

// Exit codes shared by all commands.
const (
	ExitOK            = 0
	ExitUnrecoverable = 1
	ExitSetup         = 2
)

// Runtime holds everything a command needs to run a workflow.
type Runtime struct {
	Network chain.NetworkConfig
	Chain   *chain.Client
	Signer  *chain.Signer
	Deps    *workflow.Deps

	runs runlog.Store
}

// Setup builds the full dependency set from the environment: network
// selection, chain client, keystore signer, API client, object store, and
// run log. Callers must Close the runtime.
func Setup(ctx context.Context, network string) (*Runtime, error) {
	cfg, err := chain.LoadNetwork(network)
	if err != nil {
		return nil, err
	}

	signer, err := chain.NewSignerFromEnv(cfg.ChainIDBig())
	if err != nil {
		return nil, err
	}

	chainClient, err := chain.Dial(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.RPCURL, err)
	}

	apiClient, err := api.NewClientFromEnv(cfg.APIBaseURL)
	if err != nil {
		chainClient.Close()
		return nil, err
	}

	runs, err := runlog.NewFromEnv(ctx)
	if err != nil {
		chainClient.Close()
		return nil, fmt.Errorf("open run log: %w", err)
	}

	deps := &workflow.Deps{
		Chain:  chainClient,
		Exec:   chain.NewExecutor(chainClient.Backend(), signer),
		API:    apiClient,
		Store:  ipfs.NewClientFromEnv(),
		Runs:   runs,
		Log:    workflow.StdLogger{},
		Sender: signer.Address().Hex(),
	}

	return &Runtime{Network: cfg, Chain: chainClient, Signer: signer, Deps: deps, runs: runs}, nil
}

// Close releases the runtime's connections.
func (r *Runtime) Close() {
	if r.runs != nil {
		r.runs.Close()
	}
	if r.Chain != nil {
		r.Chain.Close()
	}
}

// ExitCode maps an error to the process exit code: 0 for nil, 2 for setup
// problems the user must fix before anything can run, 1 for everything else.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var authErr *bounty.AuthError
	if errors.As(err, &authErr) {
		return ExitSetup
	}
	return ExitUnrecoverable
}

// Fail logs the error and exits with its mapped code.
func Fail(err error) {
	log.Printf("error: %v", err)
	os.Exit(ExitCode(err))
}
