package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"bounty-orchestrator/cli"
	"bounty-orchestrator/workflow"
)

func main() {
	jobID := flag.Uint64("jobId", 0, "effective job id of the bounty")
	submissionID := flag.Uint64("submissionId", 0, "submission to finalize")
	maxWait := flag.Uint64("maxWait", 600, "maximum seconds to wait for the oracle verdict")
	network := flag.String("network", "testnet", "target network (testnet|mainnet)")
	flag.Parse()

	if *jobID == 0 || *submissionID == 0 {
		fmt.Fprintln(os.Stderr, "usage: claim_bounty --jobId N --submissionId M [--maxWait S]")
		os.Exit(cli.ExitSetup)
	}

	ctx := context.Background()
	rt, err := cli.Setup(ctx, *network)
	if err != nil {
		cli.Fail(err)
	}
	defer rt.Close()

	log.Printf("claiming submission %d of job %d on %s as %s", *submissionID, *jobID, rt.Network.Name, rt.Signer.Address().Hex())

	state, err := rt.Deps.Claim(ctx, *jobID, *submissionID, workflow.ClaimOptions{
		MaxWait: time.Duration(*maxWait) * time.Second,
	})
	if err != nil {
		cli.Fail(err)
	}
	log.Printf("claim result: %s (status %s)", state.Outcome, state.FinalStatus)
	fmt.Println(state.Outcome)
}
