package main

import (
	"context"
	"fmt"
	"time"

	"github.com/kindledger/ledgercheck/internal/httpc"
)

const (
	defaultWaitTimeout  = 5 * time.Second
	defaultWaitInterval = time.Second
)

// waitForGateway polls the gateway health endpoint until it answers 200 or
// the budget elapses. A gateway that never answers is fatal: no scenario
// executes after this returns an error.
func waitForGateway(ctx context.Context, baseURL string) error {
	hcfg := &httpc.Httpc{Timeout: defaultWaitInterval}
	client := hcfg.New()
	deadline := time.Now().Add(defaultWaitTimeout)
	var lastStatus int

	for {
		resp, err := client.R().SetContext(ctx).Get(baseURL + "/health")
		if err == nil && resp.StatusCode() == 200 {
			return nil
		}
		if resp != nil {
			lastStatus = resp.StatusCode()
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("wait: timeout waiting for %s/health to return 200 (last=%d)",
				baseURL, lastStatus)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(defaultWaitInterval):
		}
	}
}
