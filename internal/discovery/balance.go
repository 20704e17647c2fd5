package discovery

import (
	"context"
	"net/http"
	"strconv"

	"github.com/kindledger/ledgercheck/internal/client"
	"github.com/kindledger/ledgercheck/internal/common"
	"github.com/tidwall/gjson"
)

// Candidate is one plausible but unconfirmed shape of a balance endpoint.
type Candidate struct {
	Endpoint string
	Method   string
}

// Result is the outcome of one probing operation. Found=false is an explicit
// "no balance endpoint discoverable", distinct from a balance of zero.
type Result struct {
	Found  bool
	Value  float64
	Source string
}

// balanceFields is the ordered list of field names scanned inside a
// candidate's JSON body. First coercible numeric match wins.
var balanceFields = []string{"balance", "data", "amount", "value"}

// DefaultBalanceCandidates lists the endpoint shapes known to be deployed
// across gateway versions, in probe order.
func DefaultBalanceCandidates(wallet string) []Candidate {
	return []Candidate{
		{Endpoint: "/v1/balance", Method: http.MethodPost},
		{Endpoint: "/v1/balance/" + wallet, Method: http.MethodGet},
		{Endpoint: "/v1/wallet/balance", Method: http.MethodPost},
	}
}

// Prober performs best-effort schema sniffing against endpoints whose
// response contract is not guaranteed stable across environments.
type Prober struct {
	gw     *client.Client
	logger *common.Logger
}

// NewProber returns a Prober bound to the gateway client.
func NewProber(gw *client.Client) *Prober {
	return &Prober{gw: gw, logger: common.GetLogger().WithComponent("discovery")}
}

// DiscoverBalance probes candidates in order and returns the first plausible
// numeric balance for wallet. A malformed candidate (bad status, non-JSON
// body, no coercible field) is skipped, never an error.
func (p *Prober) DiscoverBalance(ctx context.Context, wallet string, candidates []Candidate) Result {
	for _, c := range candidates {
		var env *client.Envelope
		var err error
		switch c.Method {
		case http.MethodPost:
			env, err = p.gw.Post(ctx, c.Endpoint, map[string]string{"walletAddress": wallet})
		default:
			env, err = p.gw.Get(ctx, c.Endpoint, nil)
		}
		if err != nil || env == nil {
			continue
		}
		if env.StatusCode != 200 || !env.HasJSON {
			p.logger.Debug("balance candidate skipped",
				"endpoint", c.Endpoint, "status_code", env.StatusCode)
			continue
		}
		for _, field := range balanceFields {
			if v, ok := coerceNumber(env.Field(field)); ok {
				p.logger.Debug("balance discovered",
					"endpoint", c.Endpoint, "field", field, "value", v)
				return Result{Found: true, Value: v, Source: c.Endpoint}
			}
		}
	}
	return Result{}
}

// coerceNumber accepts JSON numbers and numeric strings.
func coerceNumber(res gjson.Result) (float64, bool) {
	switch res.Type {
	case gjson.Number:
		return res.Num, true
	case gjson.String:
		if f, err := strconv.ParseFloat(res.Str, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}
