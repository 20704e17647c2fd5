// Package groups holds the fixed scenario batches that run standalone,
// independent of the orchestrated journey: validation errors, edge cases,
// security/encoding inputs and auth failure modes. Each batch is a literal
// table of (input, expected-status) pairs; environment variance in the
// negative-path codes is absorbed by the central normalization policy.
package groups

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/kindledger/ledgercheck/internal/client"
	"github.com/kindledger/ledgercheck/internal/common"
	"github.com/kindledger/ledgercheck/internal/scenario"
)

// Case is one literal scenario: a single request and its expected effective
// status.
type Case struct {
	Name     string
	Method   string
	Endpoint string
	Body     map[string]any
	Headers  map[string]string
	Expected int
}

// Group is a named batch of cases.
type Group struct {
	Name  string
	Cases []Case
}

// Validation probes required-field enforcement.
func Validation() Group {
	return Group{Name: "validation errors", Cases: []Case{
		{
			Name: "Create Campaign with Empty Data", Method: http.MethodPost,
			Endpoint: "/campaigns", Body: map[string]any{}, Expected: 400,
		},
		{
			Name: "Create Campaign Missing Fields", Method: http.MethodPost,
			Endpoint: "/campaigns", Body: map[string]any{"id": "test_id"}, Expected: 400,
		},
		{
			Name: "Donation Missing Amount", Method: http.MethodPost,
			Endpoint: "/donate", Body: map[string]any{"campaignId": "test_campaign"}, Expected: 400,
		},
	}}
}

// EdgeCases probes boundary amounts and unknown ids. Non-positive donation
// amounts must be rejected; the smallest and largest representable amounts
// must be accepted.
func EdgeCases(ts int64) Group {
	donation := func(amount float64) map[string]any {
		return map[string]any{
			"campaignId": "campaign_123",
			"donorId":    "donor_123",
			"donorName":  "Test Donor",
			"amount":     amount,
		}
	}
	return Group{Name: "edge cases", Cases: []Case{
		{
			Name: "Get Campaign with Invalid ID", Method: http.MethodGet,
			Endpoint: "/campaigns/invalid_id_12345", Expected: 200,
		},
		{
			Name: "Donation with Small Amount", Method: http.MethodPost,
			Endpoint: "/donate", Body: donation(0.01), Expected: 200,
		},
		{
			Name: "Donation with Negative Amount", Method: http.MethodPost,
			Endpoint: "/donate", Body: donation(-100.0), Expected: 400,
		},
		{
			Name: "Donation with Zero Amount", Method: http.MethodPost,
			Endpoint: "/donate", Body: donation(0.0), Expected: 400,
		},
		{
			Name: "Donation with Large Amount", Method: http.MethodPost,
			Endpoint: "/donate", Body: donation(999999999.99), Expected: 200,
		},
		{
			Name: "Campaign with Zero Goal", Method: http.MethodPost,
			Endpoint: "/campaigns", Body: map[string]any{
				"id":          fmt.Sprintf("test_camp_zero_%d", ts),
				"name":        "Campaign with Zero Goal",
				"description": "Test campaign",
				"owner":       "TestOwner",
				"goal":        0.0,
			}, Expected: 400,
		},
	}}
}

// Security probes that markup, SQL metacharacters, Unicode and oversized
// text are stored as opaque data, never executed or misinterpreted.
func Security(ts int64) Group {
	campaign := func(suffix, name, description, owner string) map[string]any {
		return map[string]any{
			"id":          fmt.Sprintf("test_%s_%d", suffix, ts),
			"name":        name,
			"description": description,
			"owner":       owner,
			"goal":        1000.0,
		}
	}
	long := strings.Repeat("A", 1000)
	return Group{Name: "security and special characters", Cases: []Case{
		{
			Name: "Campaign with XSS Attempt", Method: http.MethodPost, Endpoint: "/campaigns",
			Body:     campaign("xss", "<script>alert('XSS')</script>", "XSS test", "TestOwner"),
			Expected: 200,
		},
		{
			Name: "Campaign with SQL Injection Attempt", Method: http.MethodPost, Endpoint: "/campaigns",
			Body:     campaign("sql", "Test' OR '1'='1", "SQL injection test", "TestOwner"),
			Expected: 200,
		},
		{
			Name: "Campaign with Unicode Characters", Method: http.MethodPost, Endpoint: "/campaigns",
			Body:     campaign("unicode", "测试活动 🎉 日本語 عربي Русский", "Test with Unicode characters", "Test Owner جب نع لل ميته 🚀"),
			Expected: 200,
		},
		{
			Name: "Donation with Null Values", Method: http.MethodPost, Endpoint: "/donate",
			Body: map[string]any{
				"campaignId": nil, "donorId": nil, "donorName": nil, "amount": nil,
			},
			Expected: 400,
		},
		{
			Name: "Campaign with Very Long Strings", Method: http.MethodPost, Endpoint: "/campaigns",
			Body:     campaign("long", long, long, "TestOwner"),
			Expected: 200,
		},
	}}
}

// Auth probes authentication failure modes.
func Auth(ts int64) Group {
	return Group{Name: "authentication scenarios", Cases: []Case{
		{
			Name: "Login with Invalid Credentials", Method: http.MethodPost,
			Endpoint: "/auth/login", Body: map[string]any{
				"username": "nonexistent_user_xyz",
				"password": "wrong_password",
			}, Expected: 400,
		},
		{
			Name: "Register with Missing Fields", Method: http.MethodPost,
			Endpoint: "/auth/register", Body: map[string]any{
				"username": fmt.Sprintf("user_%d", ts),
			}, Expected: 400,
		},
		{
			Name: "Register with Invalid Email", Method: http.MethodPost,
			Endpoint: "/auth/register", Body: map[string]any{
				"username": fmt.Sprintf("user_%d", ts),
				"email":    "invalid_email_format",
				"password": "Test123456!",
				"fullName": "Test User",
			}, Expected: 200,
		},
		{
			Name: "Get Current User without Token", Method: http.MethodGet,
			Endpoint: "/auth/me", Expected: 401,
		},
	}}
}

// All returns every standalone batch, in run order. ts seeds the unique ids
// embedded in the literal payloads.
func All(ts int64) []Group {
	return []Group{Validation(), EdgeCases(ts), Security(ts), Auth(ts)}
}

// Run executes every case of every group through the runner against the
// gateway client.
func Run(ctx context.Context, r *scenario.Runner, gw *client.Client, batches []Group) {
	logger := common.GetLogger().WithComponent("groups")
	for _, g := range batches {
		if ctx.Err() != nil {
			return
		}
		logger.Info("running scenario group", "group", g.Name, "cases", len(g.Cases))
		for _, c := range g.Cases {
			if ctx.Err() != nil {
				return
			}
			c := c
			r.Run(ctx, c.Name, func(ctx context.Context) (*client.Envelope, error) {
				return gw.Request(ctx, c.Method, c.Endpoint, bodyOrNil(c.Body), c.Headers)
			}, c.Expected)
		}
	}
}

// bodyOrNil keeps GET requests body-free; a nil map must not serialize.
func bodyOrNil(m map[string]any) any {
	if m == nil {
		return nil
	}
	return m
}
