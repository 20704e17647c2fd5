package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/kindledger/ledgercheck/internal/client"
	"github.com/kindledger/ledgercheck/internal/common"
	"github.com/kindledger/ledgercheck/internal/discovery"
	"github.com/kindledger/ledgercheck/internal/scenario"
)

// ErrGatewayUnreachable aborts the run when the reachability stage fails.
// It is the only error that escapes the orchestrator.
var ErrGatewayUnreachable = errors.New("gateway unreachable")

// TxVerifier cross-checks a transaction id against the optional secondary
// event/index store. Implementations log their own findings; absence of a
// record is a warning, never a failure.
type TxVerifier interface {
	VerifyTx(ctx context.Context, txID string)
}

const testPassword = "Test123456!"

// Config wires an Orchestrator.
type Config struct {
	Gateway  *client.Client
	Explorer *client.Client
	Runner   *scenario.Runner
	// Store is the optional secondary store verifier; nil disables it.
	Store TxVerifier
	// Pause replaces the eventual-consistency sleeps in tests.
	Pause func(context.Context, time.Duration)
	// Now replaces the clock used for unique identifiers in tests.
	Now func() time.Time
}

// Orchestrator sequences the full user journey against the gateway,
// threading identity and campaign artifacts between stages and skipping
// stages whose upstream artifact is missing. Every stage failure except
// reachability is recorded and the run continues.
type Orchestrator struct {
	gw       *client.Client
	explorer *client.Client
	runner   *scenario.Runner
	prober   *discovery.Prober
	store    TxVerifier
	pause    func(context.Context, time.Duration)
	now      func() time.Time
	logger   *common.Logger
	state    Context
}

// New builds an Orchestrator from cfg.
func New(cfg Config) *Orchestrator {
	o := &Orchestrator{
		gw:       cfg.Gateway,
		explorer: cfg.Explorer,
		runner:   cfg.Runner,
		prober:   discovery.NewProber(cfg.Gateway),
		store:    cfg.Store,
		pause:    cfg.Pause,
		now:      cfg.Now,
		logger:   common.GetLogger().WithComponent("workflow"),
	}
	if o.pause == nil {
		o.pause = sleepCtx
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o
}

// State exposes the threaded context for inspection after a run.
func (o *Orchestrator) State() *Context {
	return &o.state
}

// Run executes the journey stage by stage. It returns
// ErrGatewayUnreachable when the reachability stage fails, the context
// error when interrupted, and nil otherwise regardless of scenario verdicts.
func (o *Orchestrator) Run(ctx context.Context) error {
	for _, st := range allStages {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !st.ready(&o.state) {
			o.logger.WithStage(st.String()).Warn("stage skipped",
				"reason", "required upstream artifact missing")
			continue
		}
		if err := o.runStage(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) runStage(ctx context.Context, st Stage) error {
	switch st {
	case StageReachability:
		return o.stageReachability(ctx)
	case StageRegistration:
		o.stageRegistration(ctx)
	case StageLogin:
		o.stageLogin(ctx)
	case StageWalletActivation:
		o.stageWalletActivation(ctx)
	case StageCurrentUser:
		o.stageCurrentUser(ctx)
	case StageLedgerInit:
		o.stageLedgerInit(ctx)
	case StageCampaignList:
		o.stageCampaignList(ctx)
	case StageCampaignCreate:
		o.stageCampaignCreate(ctx)
	case StageCampaignVerify:
		o.stageCampaignVerify(ctx)
	case StageTotalDonations:
		o.stageTotalDonations(ctx)
	case StageDepositConfirm:
		o.stageDepositConfirm(ctx)
	case StageExplorerChecks:
		o.stageExplorerChecks(ctx)
	}
	return nil
}

func (o *Orchestrator) stageReachability(ctx context.Context) error {
	env := o.runner.RunOK(ctx, "Health Check", func(ctx context.Context) (*client.Envelope, error) {
		env, err := o.gw.Get(ctx, "/health", nil)
		if err == nil && env.HasJSON {
			o.logger.Info("gateway health",
				"service", env.Field("service").String(), "status", env.Field("status").String())
		}
		return env, err
	})
	if env == nil {
		return fmt.Errorf("%w: %s", ErrGatewayUnreachable, o.gw.BaseURL())
	}
	return nil
}

func (o *Orchestrator) stageRegistration(ctx context.Context) {
	ts := o.now().Unix()
	username := fmt.Sprintf("testuser_%d", ts)
	payload := map[string]any{
		"username": username,
		"email":    fmt.Sprintf("test_%d@kindledger.com", ts),
		"password": testPassword,
		"fullName": "Test User",
	}
	env := o.runner.RunOK(ctx, "User Registration", func(ctx context.Context) (*client.Envelope, error) {
		return o.gw.Post(ctx, "/auth/register", payload)
	})
	if env == nil {
		o.logger.Warn("registration failed; identity-dependent stages will be skipped")
		return
	}
	userID := env.Field("data.userId").String()
	uname := env.Field("data.username").String()
	token := env.Field("data.token").String()
	if userID == "" || uname == "" || token == "" {
		o.logger.Warn("registration response missing identity fields",
			"has_user_id", userID != "", "has_username", uname != "", "has_token", token != "")
	}
	o.state.setIdentity(userID, uname, token)
	o.logger.Info("registered user", "user_id", userID, "username", uname)
	o.inspectToken(token)
}

// inspectToken parses the issued token without verifying its signature and
// warns when it is not a JWT or carries no subject. Diagnostics only.
func (o *Orchestrator) inspectToken(token string) {
	if token == "" {
		return
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		o.logger.Warn("auth token is not a parseable JWT", "error", err)
		return
	}
	if sub, err := claims.GetSubject(); err != nil || sub == "" {
		o.logger.Warn("auth token carries no subject claim")
	}
}

func (o *Orchestrator) stageLogin(ctx context.Context) {
	payload := map[string]any{
		"username": o.state.username,
		"password": testPassword,
	}
	o.runner.RunOK(ctx, "User Login", func(ctx context.Context) (*client.Envelope, error) {
		return o.gw.Post(ctx, "/auth/login", payload)
	})
}

func (o *Orchestrator) stageWalletActivation(ctx context.Context) {
	addr := DeriveWalletAddress(o.state.userID)
	o.state.setWalletAddress(addr)
	log := o.logger.WithStage(StageWalletActivation.String())
	log.Info("derived wallet address", "wallet", addr)

	// While the wallet is pending (no linked bank account), a deposit must
	// be rejected.
	o.runner.Run(ctx, "Deposit Rejected When Wallet Pending", func(ctx context.Context) (*client.Envelope, error) {
		return o.gw.Post(ctx, "/v1/deposit", map[string]any{
			"accountNumber": "9999999999",
			"amount":        1000.0,
			"walletAddress": addr,
		})
	}, 400)

	uid := strings.TrimPrefix(o.state.userID, "user-")
	o.runner.RunOK(ctx, "Link Bank to Activate Wallet", func(ctx context.Context) (*client.Envelope, error) {
		return o.gw.Post(ctx, "/v1/users/"+uid+"/link-bank", map[string]any{
			"accountNumber": "1234567890",
		})
	})

	o.depositAndBalance(ctx, addr, 12345.0)
	o.state.depositVerified = true
}

// depositAndBalance deposits amount into wallet and, when any
// balance-reporting endpoint is discoverable, cross-checks the reported
// balance. A balance below the deposited amount is a warning only: the read
// path may lag the write path.
func (o *Orchestrator) depositAndBalance(ctx context.Context, wallet string, amount float64) {
	o.runner.RunOK(ctx, "Deposit and Balance Check", func(ctx context.Context) (*client.Envelope, error) {
		env, err := o.gw.Post(ctx, "/v1/deposit", map[string]any{
			"accountNumber": "1234567898",
			"amount":        amount,
			"walletAddress": wallet,
		})
		if err != nil {
			return nil, err
		}
		txID := env.Field("txId").String()
		if txID == "" {
			return env, nil
		}
		o.logger.Info("deposit accepted", "tx_id", txID, "wallet", wallet)

		res := o.prober.DiscoverBalance(ctx, wallet, discovery.DefaultBalanceCandidates(wallet))
		if res.Found {
			o.logger.Info("wallet balance",
				"wallet", wallet, "balance", res.Value, "source_endpoint", res.Source)
			if res.Value < amount {
				o.logger.Warn("balance below deposited amount; read path may lag the write path",
					"balance", res.Value, "deposited", amount)
			}
		} else {
			o.logger.Info("no balance endpoint discoverable", "wallet", wallet)
		}

		if o.store != nil {
			o.pause(ctx, 2*time.Second)
			o.store.VerifyTx(ctx, txID)
		}
		return env, nil
	})
}

func (o *Orchestrator) stageCurrentUser(ctx context.Context) {
	headers := map[string]string{"Authorization": o.state.authToken}
	o.runner.RunOK(ctx, "Get Current User", func(ctx context.Context) (*client.Envelope, error) {
		env, err := o.gw.Get(ctx, "/auth/me", headers)
		if err == nil && env.HasJSON {
			o.logger.Info("current user", "username", env.Field("data.username").String())
		}
		return env, err
	})
}

func (o *Orchestrator) stageLedgerInit(ctx context.Context) {
	o.runner.RunOK(ctx, "Initialize Ledger", func(ctx context.Context) (*client.Envelope, error) {
		return o.gw.Post(ctx, "/init", nil)
	})
	// Let the ledger settle before listing campaigns.
	o.pause(ctx, 2*time.Second)
}

func (o *Orchestrator) stageCampaignList(ctx context.Context) {
	o.runner.RunOK(ctx, "Get All Campaigns", func(ctx context.Context) (*client.Envelope, error) {
		env, err := o.gw.Get(ctx, "/campaigns", nil)
		if err == nil && env.HasJSON {
			o.logger.Info("campaigns listed", "count", len(env.Field("data").Array()))
		}
		return env, err
	})
}

func (o *Orchestrator) stageCampaignCreate(ctx context.Context) {
	ts := o.now().Unix()
	payload := map[string]any{
		"id":          fmt.Sprintf("camp_%d", ts),
		"name":        "Test Campaign for Donation",
		"description": "This is a test campaign to verify the system works",
		"owner":       "TestOwner",
		"goal":        10000.0,
	}
	env := o.runner.RunOK(ctx, "Create Campaign", func(ctx context.Context) (*client.Envelope, error) {
		return o.gw.Post(ctx, "/campaigns", payload)
	})

	id := ""
	if env != nil {
		id = env.Field("data.id").String()
	}
	if id == "" {
		o.logger.Warn("campaign id not confirmed, substituting placeholder",
			"campaign_id", PlaceholderCampaignID)
		o.state.setCampaignID(PlaceholderCampaignID, true)
		return
	}
	o.state.setCampaignID(id, false)
}

func (o *Orchestrator) stageCampaignVerify(ctx context.Context) {
	id := o.state.campaignID
	o.runner.RunOK(ctx, "Get Campaign by ID", func(ctx context.Context) (*client.Envelope, error) {
		env, err := o.gw.Get(ctx, "/campaigns/"+id, nil)
		if err == nil && env.HasJSON && env.Field("success").Bool() {
			o.logger.Info("campaign read back",
				"name", env.Field("data.name").String(), "goal", env.Field("data.goal").Float())
		}
		return env, err
	})
	o.pause(ctx, time.Second)

	donation := map[string]any{
		"campaignId": id,
		"donorId":    fmt.Sprintf("donor_%d", o.now().Unix()),
		"donorName":  "Test Donor",
		"amount":     500.0,
	}
	o.runner.RunOK(ctx, "Make Donation", func(ctx context.Context) (*client.Envelope, error) {
		return o.gw.Post(ctx, "/donate", donation)
	})
	o.pause(ctx, time.Second)
}

func (o *Orchestrator) stageTotalDonations(ctx context.Context) {
	o.runner.RunOK(ctx, "Get Total Donations", func(ctx context.Context) (*client.Envelope, error) {
		env, err := o.gw.Get(ctx, "/stats/total", nil)
		if err == nil && env.HasJSON && env.Field("success").Bool() {
			o.logger.Info("total donations", "total", env.Field("data").Float())
		}
		return env, err
	})
}

func (o *Orchestrator) stageDepositConfirm(ctx context.Context) {
	if o.state.depositVerified {
		o.logger.Info("deposit already confirmed with activated wallet, skipping duplicate")
		return
	}
	o.depositAndBalance(ctx, "wallet-mb-003", 12345.0)
}

// stageExplorerChecks queries the secondary read service. These checks are
// best-effort and read-only; their outcome never affects the verdict.
func (o *Orchestrator) stageExplorerChecks(ctx context.Context) {
	if o.explorer == nil {
		o.logger.Debug("no explorer configured, skipping read checks")
		return
	}
	checks := []struct {
		name string
		path string
	}{
		{"Explorer Blockchain Info", "/blockchain/info"},
		{"Explorer Recent Blocks", "/blocks"},
	}
	for _, c := range checks {
		env, err := o.explorer.Get(ctx, c.path, nil)
		if err != nil || env.StatusCode != 200 {
			status := 0
			diag := ""
			if env != nil {
				status, diag = env.StatusCode, env.Err
			}
			o.logger.Warn("explorer check failed", "check", c.name,
				"status_code", status, "error", diag)
			continue
		}
		o.logger.Info("explorer check ok", "check", c.name)
	}
}

// RunTransferTrace exercises a wallet-to-wallet transfer end to end: both
// wallets must be active, the transfer must yield a txId, and the trace
// endpoint must report the transaction committed to the chain. It requires
// two pre-provisioned active wallets in the backend.
func (o *Orchestrator) RunTransferTrace(ctx context.Context) {
	const fromWallet, toWallet = "0xMB001", "0xMB002"
	const amount = 100.25

	o.runner.RunOK(ctx, "Transfer Between Wallets", func(ctx context.Context) (*client.Envelope, error) {
		for _, w := range []string{fromWallet, toWallet} {
			env, err := o.gw.Get(ctx, "/v1/wallet/"+w, nil)
			if err != nil {
				return nil, err
			}
			if env.StatusCode != 200 || !env.Field("active").Bool() {
				return &client.Envelope{StatusCode: 400,
					Err: fmt.Sprintf("wallet %s inactive or not found", w)}, nil
			}
		}

		env, err := o.gw.Post(ctx, "/v1/transfer", map[string]any{
			"fromWallet": fromWallet,
			"toWallet":   toWallet,
			"amount":     amount,
		})
		if err != nil || env.StatusCode != 200 {
			return env, err
		}
		txID := env.Field("txId").String()
		if txID == "" {
			return &client.Envelope{StatusCode: 400, Err: "missing txId in transfer response"}, nil
		}

		// Give the chain a moment to commit before tracing.
		o.pause(ctx, 2*time.Second)
		trace, err := o.gw.Get(ctx, "/v1/token/trace/"+txID, nil)
		if err != nil || trace.StatusCode != 200 {
			return trace, err
		}
		if trace.Field("blockchainStatus").String() != "COMMITTED" {
			return &client.Envelope{StatusCode: 400, Err: "blockchain commit not verified"}, nil
		}
		if o.store != nil {
			o.store.VerifyTx(ctx, txID)
		}
		return trace, nil
	})
}

// sleepCtx sleeps for d unless the context is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
