package workflow

// Stage identifies one step of the orchestrated journey. Stages run in
// declaration order, strictly sequentially; each is gated on the presence of
// its required upstream artifact.
type Stage int

const (
	StageReachability Stage = iota
	StageRegistration
	StageLogin
	StageWalletActivation
	StageCurrentUser
	StageLedgerInit
	StageCampaignList
	StageCampaignCreate
	StageCampaignVerify
	StageTotalDonations
	StageDepositConfirm
	StageExplorerChecks
)

var stageNames = map[Stage]string{
	StageReachability:     "reachability",
	StageRegistration:     "registration",
	StageLogin:            "login",
	StageWalletActivation: "wallet-activation",
	StageCurrentUser:      "current-user",
	StageLedgerInit:       "ledger-init",
	StageCampaignList:     "campaign-list",
	StageCampaignCreate:   "campaign-create",
	StageCampaignVerify:   "campaign-verify",
	StageTotalDonations:   "total-donations",
	StageDepositConfirm:   "deposit-confirm",
	StageExplorerChecks:   "explorer-checks",
}

func (s Stage) String() string {
	if n, ok := stageNames[s]; ok {
		return n
	}
	return "unknown"
}

// allStages is the total order of the journey.
var allStages = []Stage{
	StageReachability,
	StageRegistration,
	StageLogin,
	StageWalletActivation,
	StageCurrentUser,
	StageLedgerInit,
	StageCampaignList,
	StageCampaignCreate,
	StageCampaignVerify,
	StageTotalDonations,
	StageDepositConfirm,
	StageExplorerChecks,
}

// ready is the guard predicate: whether the stage's required upstream
// artifacts are present. A stage whose guard fails is skipped whole, never
// partially executed.
func (s Stage) ready(c *Context) bool {
	switch s {
	case StageLogin:
		return c.username != ""
	case StageWalletActivation:
		return c.userID != ""
	case StageCurrentUser:
		return c.authToken != ""
	default:
		return true
	}
}
