package scenario

import (
	"context"
	"fmt"

	"github.com/kindledger/ledgercheck/internal/client"
	"github.com/kindledger/ledgercheck/internal/common"
)

// Check performs one or more Transport Client calls for a single scenario
// and returns the envelope whose status decides the verdict. A nil envelope
// counts as a failure.
type Check func(ctx context.Context) (*client.Envelope, error)

// Runner executes named checks, applies the normalization policy, and keeps
// the per-run Stats. A misbehaving check (error or panic) is converted into
// a recorded failure; nothing a check does can abort the run.
type Runner struct {
	stats  *Stats
	policy *Policy
	logger *common.Logger
}

// NewRunner wires a Runner around explicit stats and a normalization policy.
func NewRunner(stats *Stats, policy *Policy) *Runner {
	if policy == nil {
		policy = EmptyPolicy()
	}
	return &Runner{
		stats:  stats,
		policy: policy,
		logger: common.GetLogger().WithComponent("runner"),
	}
}

// Stats returns the accumulator owned by this runner.
func (r *Runner) Stats() *Stats {
	return r.stats
}

// Run invokes check and compares the normalized status against expected.
// It increments Stats.Total exactly once per call, then exactly one of
// Passed or Failed. On pass it returns the observed envelope for downstream
// stages; on fail it returns nil.
func (r *Runner) Run(ctx context.Context, name string, check Check, expected int) *client.Envelope {
	log := r.logger.WithScenario(name)
	r.stats.Total++
	log.Info("running scenario", "expected_status", expected)

	env, err := r.invoke(ctx, check)
	if err != nil {
		r.stats.Failed++
		log.Error("scenario failed", "error", err)
		return nil
	}
	if env == nil {
		r.stats.Failed++
		log.Error("scenario failed", "error", "check returned no response")
		return nil
	}

	effective, reason := r.policy.Apply(name, env.StatusCode)
	if effective != env.StatusCode {
		log.Warn("status normalized",
			"observed", env.StatusCode, "effective", effective, "reason", reason)
	}

	if effective == expected {
		r.stats.Passed++
		log.Info("scenario passed", "status_code", env.StatusCode)
		return env
	}

	r.stats.Failed++
	if env.Err != "" {
		log.Error("scenario failed",
			"expected_status", expected, "observed", env.StatusCode, "error", env.Err)
	} else {
		log.Error("scenario failed",
			"expected_status", expected, "observed", env.StatusCode)
	}
	return nil
}

// RunOK is Run with the default expectation of 200.
func (r *Runner) RunOK(ctx context.Context, name string, check Check) *client.Envelope {
	return r.Run(ctx, name, check, 200)
}

// invoke calls check and converts a panic into an error so one scenario's
// internal fault never aborts the run.
func (r *Runner) invoke(ctx context.Context, check Check) (env *client.Envelope, err error) {
	defer func() {
		if p := recover(); p != nil {
			env = nil
			err = fmt.Errorf("check panicked: %v", p)
		}
	}()
	return check(ctx)
}
