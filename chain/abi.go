package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// escrowABIJSON is the escrow contract surface the orchestrator touches.
// Event topic hashes derived from these signatures are the canonical event
// identifiers.
const escrowABIJSON = `[
  {"type":"function","name":"createBounty","stateMutability":"payable","inputs":[
    {"name":"evaluationCid","type":"string"},
    {"name":"classId","type":"uint256"},
    {"name":"threshold","type":"uint256"},
    {"name":"submissionDeadline","type":"uint256"}],
   "outputs":[{"name":"bountyId","type":"uint256"}]},
  {"type":"function","name":"prepareSubmission","stateMutability":"nonpayable","inputs":[
    {"name":"bountyId","type":"uint256"},
    {"name":"hunterCid","type":"string"},
    {"name":"alpha","type":"uint256"},
    {"name":"maxOracleFee","type":"uint256"},
    {"name":"estimatedBaseCost","type":"uint256"},
    {"name":"maxFeeBasedScaling","type":"uint256"}],
   "outputs":[
    {"name":"submissionId","type":"uint256"},
    {"name":"evalWallet","type":"address"},
    {"name":"linkMaxBudget","type":"uint256"}]},
  {"type":"function","name":"startPreparedSubmission","stateMutability":"nonpayable","inputs":[
    {"name":"bountyId","type":"uint256"},
    {"name":"submissionId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"finalizeSubmission","stateMutability":"nonpayable","inputs":[
    {"name":"bountyId","type":"uint256"},
    {"name":"submissionId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"getBounty","stateMutability":"view","inputs":[
    {"name":"bountyId","type":"uint256"}],
   "outputs":[
    {"name":"creator","type":"address"},
    {"name":"evaluationCid","type":"string"},
    {"name":"classId","type":"uint256"},
    {"name":"threshold","type":"uint256"},
    {"name":"payout","type":"uint256"},
    {"name":"createdAt","type":"uint256"},
    {"name":"submissionDeadline","type":"uint256"},
    {"name":"status","type":"uint8"},
    {"name":"winner","type":"address"},
    {"name":"submissionCount","type":"uint256"}]},
  {"type":"function","name":"getSubmission","stateMutability":"view","inputs":[
    {"name":"bountyId","type":"uint256"},
    {"name":"submissionId","type":"uint256"}],
   "outputs":[
    {"name":"hunter","type":"address"},
    {"name":"hunterCid","type":"string"},
    {"name":"evalWallet","type":"address"},
    {"name":"linkMaxBudget","type":"uint256"},
    {"name":"aggId","type":"bytes32"},
    {"name":"status","type":"uint8"}]},
  {"type":"function","name":"isAcceptingSubmissions","stateMutability":"view","inputs":[
    {"name":"bountyId","type":"uint256"}],
   "outputs":[{"name":"","type":"bool"}]},
  {"type":"event","name":"BountyCreated","inputs":[
    {"name":"bountyId","type":"uint256","indexed":true},
    {"name":"creator","type":"address","indexed":true},
    {"name":"evaluationCid","type":"string","indexed":false},
    {"name":"payout","type":"uint256","indexed":false}],"anonymous":false},
  {"type":"event","name":"SubmissionPrepared","inputs":[
    {"name":"bountyId","type":"uint256","indexed":true},
    {"name":"submissionId","type":"uint256","indexed":true},
    {"name":"hunter","type":"address","indexed":true},
    {"name":"evalWallet","type":"address","indexed":false},
    {"name":"linkMaxBudget","type":"uint256","indexed":false}],"anonymous":false},
  {"type":"event","name":"WorkSubmitted","inputs":[
    {"name":"bountyId","type":"uint256","indexed":true},
    {"name":"submissionId","type":"uint256","indexed":true},
    {"name":"aggId","type":"bytes32","indexed":false}],"anonymous":false},
  {"type":"event","name":"SubmissionFinalized","inputs":[
    {"name":"bountyId","type":"uint256","indexed":true},
    {"name":"submissionId","type":"uint256","indexed":true},
    {"name":"approved","type":"bool","indexed":false}],"anonymous":false},
  {"type":"event","name":"PayoutSent","inputs":[
    {"name":"bountyId","type":"uint256","indexed":true},
    {"name":"winner","type":"address","indexed":true},
    {"name":"amount","type":"uint256","indexed":false}],"anonymous":false}
]`

const erc20ABIJSON = `[
  {"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[
    {"name":"spender","type":"address"},
    {"name":"amount","type":"uint256"}],
   "outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"balanceOf","stateMutability":"view","inputs":[
    {"name":"owner","type":"address"}],
   "outputs":[{"name":"","type":"uint256"}]}
]`

var (
	escrowABI = mustParseABI(escrowABIJSON)
	erc20ABI  = mustParseABI(erc20ABIJSON)

	// revertStringArgs decodes the payload of Error(string) revert data.
	revertStringArgs = abi.Arguments{{Type: mustType("string")}}
)

func mustType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic("chain: bad ABI type " + t + ": " + err.Error())
	}
	return typ
}

func mustParseABI(src string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(src))
	if err != nil {
		panic("chain: bad ABI constant: " + err.Error())
	}
	return parsed
}
