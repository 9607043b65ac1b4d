package main

import (
	"context"
	"fmt"
	"log"
	"os"

	flag "github.com/spf13/pflag"

	"bounty-orchestrator/api"
	"bounty-orchestrator/cli"
	"bounty-orchestrator/workflow"
)

func main() {
	jobID := flag.Uint64("jobId", 0, "effective job id of the bounty")
	files := flag.StringArray("file", nil, "path of a file to submit (repeatable)")
	narrative := flag.String("narrative", "", "optional narrative accompanying the submission")
	network := flag.String("network", "testnet", "target network (testnet|mainnet)")
	alpha := flag.Uint64("alpha", 0, "fee override: alpha")
	maxOracleFee := flag.String("maxOracleFee", "", "fee override: maximum oracle fee")
	estimatedBaseCost := flag.String("estimatedBaseCost", "", "fee override: estimated base cost")
	maxFeeBasedScaling := flag.Uint64("maxFeeBasedScaling", 0, "fee override: maximum fee-based scaling")
	skipConfirm := flag.Bool("skip-confirm", false, "trustless mode: never call the confirm endpoint")
	confirmFirst := flag.Bool("confirm-first", false, "force the legacy confirm-before-start ordering")
	flag.Parse()

	if *jobID == 0 || len(*files) == 0 {
		fmt.Fprintln(os.Stderr, "usage: submit_to_bounty --jobId N --file P [--file P2]... [--narrative S]")
		os.Exit(cli.ExitSetup)
	}

	ctx := context.Background()
	rt, err := cli.Setup(ctx, *network)
	if err != nil {
		cli.Fail(err)
	}
	defer rt.Close()

	log.Printf("submitting %d file(s) to job %d on %s as %s", len(*files), *jobID, rt.Network.Name, rt.Signer.Address().Hex())

	state, err := rt.Deps.Submit(ctx, *jobID, workflow.SubmitOptions{
		Files:     *files,
		Narrative: *narrative,
		Fees: api.FeeOverrides{
			Alpha:              *alpha,
			MaxOracleFee:       *maxOracleFee,
			EstimatedBaseCost:  *estimatedBaseCost,
			MaxFeeBasedScaling: *maxFeeBasedScaling,
		},
		SkipConfirm:  *skipConfirm,
		ConfirmFirst: *confirmFirst,
	})

	if state.SubmissionID != 0 {
		fmt.Printf("SUBMISSION_ID=%d\n", state.SubmissionID)
	}
	if state.HunterCID != "" {
		fmt.Printf("HUNTER_CID=%s\n", state.HunterCID)
	}

	if err != nil {
		cli.Fail(err)
	}
	log.Printf("submission %d started (%s ordering, tx %s)", state.SubmissionID, state.Ordering, state.StartTx)
}
