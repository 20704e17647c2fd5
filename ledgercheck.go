// Package ledgercheck drives a realistic user journey against a live
// Kind-Ledger gateway (register, login, link bank, activate wallet, deposit,
// transfer, trace-verify) plus standalone validation, edge-case, security
// and auth scenario batches, and reports a pass/fail verdict. It tolerates
// partial backend unavailability: only an unreachable gateway is fatal.
package ledgercheck

import (
	"context"
	"time"

	"github.com/kindledger/ledgercheck/internal/client"
	"github.com/kindledger/ledgercheck/internal/groups"
	"github.com/kindledger/ledgercheck/internal/httpc"
	"github.com/kindledger/ledgercheck/internal/ledgerstore"
	"github.com/kindledger/ledgercheck/internal/scenario"
	"github.com/kindledger/ledgercheck/internal/workflow"
)

// Stats is the per-run pass/fail accumulator.
type Stats = scenario.Stats

// Envelope is the normalized outcome of one HTTP call.
type Envelope = client.Envelope

// ErrGatewayUnreachable is returned by Run when the gateway cannot be
// reached; no further scenarios execute after it.
var ErrGatewayUnreachable = workflow.ErrGatewayUnreachable

// Config selects the services under test.
type Config struct {
	// GatewayURL is the base URL of the gateway API (including any path
	// prefix, e.g. http://localhost:8080/api).
	GatewayURL string
	// ExplorerURL is the base URL of the explorer read service; empty
	// disables the explorer checks.
	ExplorerURL string
	// Timeout is the per-request budget; zero means the default 30s.
	Timeout time.Duration
	// MongoURI enables best-effort transaction verification against the
	// secondary event/index store; empty disables it.
	MongoURI string

	// pause overrides the eventual-consistency waits in tests.
	pause func(context.Context, time.Duration)
}

// Run executes the full suite: the orchestrated journey, then each
// standalone scenario batch, then the wallet transfer trace. It returns the
// accumulated stats in every case; the error is non-nil only for an
// unreachable gateway or a cancelled context, and the stats returned
// alongside it cover whatever ran before the abort.
func Run(ctx context.Context, cfg Config) (*Stats, error) {
	stats := &Stats{}
	runner := scenario.NewRunner(stats, scenario.DefaultPolicy())

	hc := &httpc.Httpc{Timeout: cfg.Timeout}
	gw := client.New(cfg.GatewayURL, hc)
	var explorer *client.Client
	if cfg.ExplorerURL != "" {
		explorer = client.New(cfg.ExplorerURL, hc)
	}

	var store workflow.TxVerifier
	if v := ledgerstore.New(cfg.MongoURI); v != nil {
		store = v
	}

	o := workflow.New(workflow.Config{
		Gateway:  gw,
		Explorer: explorer,
		Runner:   runner,
		Store:    store,
		Pause:    cfg.pause,
	})
	if err := o.Run(ctx); err != nil {
		return stats, err
	}

	groups.Run(ctx, runner, gw, groups.All(time.Now().Unix()))
	o.RunTransferTrace(ctx)

	return stats, ctx.Err()
}
