package main

import (
	"context"
	"fmt"
	"log"
	"os"

	flag "github.com/spf13/pflag"

	"bounty-orchestrator/cli"
	"bounty-orchestrator/core/bounty"
	"bounty-orchestrator/workflow"
)

func main() {
	configPath := flag.String("config", "", "path to the bounty configuration JSON")
	network := flag.String("network", "testnet", "target network (testnet|mainnet)")
	skipClassCheck := flag.Bool("skip-class-check", false, "skip the oracle-class availability preflight")
	flag.Parse()

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "usage: create_bounty --config <path.json> [--network testnet|mainnet]")
		os.Exit(cli.ExitSetup)
	}

	cfg, err := bounty.LoadBountyConfig(*configPath)
	if err != nil {
		cli.Fail(err)
	}

	ctx := context.Background()
	rt, err := cli.Setup(ctx, *network)
	if err != nil {
		cli.Fail(err)
	}
	defer rt.Close()

	log.Printf("creating bounty %q on %s as %s", cfg.Title, rt.Network.Name, rt.Signer.Address().Hex())

	state, err := rt.Deps.Create(ctx, cfg, workflow.CreateOptions{SkipClassCheck: *skipClassCheck})

	// Downstream automation parses these lines; print whatever ids exist
	// even when the workflow failed partway.
	if state.APIJobID != 0 {
		fmt.Printf("API_JOB_ID=%d\n", state.APIJobID)
	}
	if state.EffectiveJobID != 0 {
		fmt.Printf("EFFECTIVE_JOB_ID=%d\n", state.EffectiveJobID)
	}
	if state.BountyID != 0 {
		fmt.Printf("BOUNTY_ID=%d\n", state.BountyID)
	}

	if err != nil {
		cli.Fail(err)
	}
	log.Printf("bounty %d created (verdict %s, funding tx %s)", state.BountyID, state.Verdict, state.FundTxHash)
}
