package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/kindledger/ledgercheck/internal/client"
	"github.com/kindledger/ledgercheck/internal/common"
	"github.com/kindledger/ledgercheck/internal/scenario"
)

func noPause(context.Context, time.Duration) {}

// fakeGateway mimics the gateway surface the journey exercises, with just
// enough state to model wallet activation.
type fakeGateway struct {
	mux        *http.ServeMux
	linked     bool
	deposits   int
	registered bool
}

func newFakeGateway(t *testing.T) (*fakeGateway, *httptest.Server) {
	t.Helper()
	g := &fakeGateway{mux: http.NewServeMux()}

	writeJSON := func(w http.ResponseWriter, status int, v any) {
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}

	g.mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]any{"status": "UP", "service": "gateway"})
	})
	g.mux.HandleFunc("/auth/register", func(w http.ResponseWriter, _ *http.Request) {
		g.registered = true
		writeJSON(w, 200, map[string]any{"success": true, "data": map[string]any{
			"userId": "user-abc123", "username": "testuser_1", "token": "tok-xyz",
		}})
	})
	g.mux.HandleFunc("/auth/login", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]any{"success": true, "data": map[string]any{"token": "tok-xyz"}})
	})
	g.mux.HandleFunc("/auth/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "tok-xyz" {
			writeJSON(w, 401, map[string]any{"success": false})
			return
		}
		writeJSON(w, 200, map[string]any{"success": true, "data": map[string]any{"username": "testuser_1"}})
	})
	g.mux.HandleFunc("/v1/users/abc123/link-bank", func(w http.ResponseWriter, _ *http.Request) {
		g.linked = true
		writeJSON(w, 200, map[string]any{"success": true})
	})
	g.mux.HandleFunc("/v1/deposit", func(w http.ResponseWriter, _ *http.Request) {
		g.deposits++
		if !g.linked {
			writeJSON(w, 422, map[string]any{"error": "wallet not active"})
			return
		}
		writeJSON(w, 200, map[string]any{"txId": "tx-1"})
	})
	g.mux.HandleFunc("/v1/balance", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]any{"balance": 99999.0})
	})
	g.mux.HandleFunc("/init", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]any{"message": "ledger initialized"})
	})
	g.mux.HandleFunc("/campaigns", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			writeJSON(w, 200, map[string]any{"success": true, "data": map[string]any{"id": "camp_1"}})
			return
		}
		writeJSON(w, 200, map[string]any{"success": true, "data": []any{}})
	})
	g.mux.HandleFunc("/campaigns/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]any{"success": true, "data": map[string]any{
			"name": "Test Campaign for Donation", "goal": 10000.0,
		}})
	})
	g.mux.HandleFunc("/donate", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]any{"success": true, "message": "donation recorded"})
	})
	g.mux.HandleFunc("/stats/total", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]any{"success": true, "data": 500.0})
	})

	srv := httptest.NewServer(g.mux)
	t.Cleanup(srv.Close)
	return g, srv
}

type recordingVerifier struct {
	txIDs []string
}

func (r *recordingVerifier) VerifyTx(_ context.Context, txID string) {
	r.txIDs = append(r.txIDs, txID)
}

func newOrchestrator(srv *httptest.Server, stats *scenario.Stats, store TxVerifier) *Orchestrator {
	return New(Config{
		Gateway: client.New(srv.URL, nil),
		Runner:  scenario.NewRunner(stats, scenario.DefaultPolicy()),
		Store:   store,
		Pause:   noPause,
	})
}

func TestRun_FullJourneyPasses(t *testing.T) {
	gw, srv := newFakeGateway(t)
	stats := &scenario.Stats{}
	verifier := &recordingVerifier{}
	o := newOrchestrator(srv, stats, verifier)

	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stats.Failed != 0 {
		t.Fatalf("expected no failures, got %+v", stats)
	}
	if stats.Total != 13 {
		t.Fatalf("expected 13 scenarios, got %d", stats.Total)
	}
	if got := o.State().WalletAddress(); got != "WAL-abc123" {
		t.Fatalf("expected derived wallet WAL-abc123, got %q", got)
	}
	if got := o.State().CampaignID(); got != "camp_1" {
		t.Fatalf("expected campaign id camp_1, got %q", got)
	}
	if o.State().CampaignIsPlaceholder() {
		t.Fatalf("real campaign id must not be flagged as placeholder")
	}
	// One rejected deposit while pending, one accepted after linking; the
	// standalone confirmation stage must not add a third.
	if gw.deposits != 2 {
		t.Fatalf("expected exactly 2 deposits, got %d", gw.deposits)
	}
	if len(verifier.txIDs) != 1 || verifier.txIDs[0] != "tx-1" {
		t.Fatalf("expected secondary-store verification of tx-1, got %v", verifier.txIDs)
	}
}

func TestRun_RegistrationFailureSkipsIdentityStages(t *testing.T) {
	gw, _ := newFakeGateway(t)
	// Wrap the fake so registration returns a server error while the rest
	// of the surface stays intact.
	wrapped := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/auth/register":
			w.WriteHeader(500)
		case strings.HasPrefix(r.URL.Path, "/v1/users/"),
			r.URL.Path == "/auth/login",
			r.URL.Path == "/auth/me":
			t.Fatalf("identity-dependent endpoint %s must not be called", r.URL.Path)
		case r.URL.Path == "/v1/deposit":
			// Only the standalone deposit confirmation may reach here.
			gw.mux.ServeHTTP(w, r)
		default:
			gw.mux.ServeHTTP(w, r)
		}
	}))
	defer wrapped.Close()

	stats := &scenario.Stats{}
	o := newOrchestrator(wrapped, stats, nil)
	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("run must continue past registration failure: %v", err)
	}

	if o.State().UserID() != "" || o.State().WalletAddress() != "" {
		t.Fatalf("context must stay empty after failed registration: %+v", o.State())
	}
	if stats.Failed != 1 {
		t.Fatalf("expected exactly the registration failure, got %+v", stats)
	}
	// Health + registration + init + list + create + get + donate + stats +
	// standalone deposit confirmation.
	if stats.Total != 9 {
		t.Fatalf("expected 9 scenarios, got %d", stats.Total)
	}
}

func TestRun_UnreachableGatewayIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	stats := &scenario.Stats{}
	o := New(Config{
		Gateway: client.New(url, nil),
		Runner:  scenario.NewRunner(stats, scenario.DefaultPolicy()),
		Pause:   noPause,
	})
	err := o.Run(context.Background())
	if !errors.Is(err, ErrGatewayUnreachable) {
		t.Fatalf("expected ErrGatewayUnreachable, got %v", err)
	}
	if stats.Total != 1 || stats.Failed != 1 {
		t.Fatalf("only the reachability scenario may run: %+v", stats)
	}
}

func TestRun_PlaceholderCampaignIDSubstituted(t *testing.T) {
	gw, _ := newFakeGateway(t)
	var readBackID string
	wrapped := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/campaigns" && r.Method == http.MethodPost:
			// Chain down: creation cannot be confirmed.
			w.WriteHeader(500)
		case strings.HasPrefix(r.URL.Path, "/campaigns/"):
			readBackID = strings.TrimPrefix(r.URL.Path, "/campaigns/")
			w.WriteHeader(400)
		default:
			gw.mux.ServeHTTP(w, r)
		}
	}))
	defer wrapped.Close()

	stats := &scenario.Stats{}
	o := newOrchestrator(wrapped, stats, nil)
	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !o.State().CampaignIsPlaceholder() {
		t.Fatalf("expected placeholder substitution to be recorded")
	}
	if o.State().CampaignID() != PlaceholderCampaignID {
		t.Fatalf("expected placeholder id, got %q", o.State().CampaignID())
	}
	if readBackID != PlaceholderCampaignID {
		t.Fatalf("read-back must exercise the placeholder id, got %q", readBackID)
	}
	// Create (500→200) and read-back (400→200) both normalize to passes.
	if stats.Failed != 0 {
		t.Fatalf("expected normalized passes, got %+v", stats)
	}
}

func TestRunTransferTrace_Committed(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/wallet/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"active":true,"balance":1000}`))
	})
	mux.HandleFunc("/v1/transfer", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"txId":"tx-42"}`))
	})
	mux.HandleFunc("/v1/token/trace/tx-42", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"blockchainStatus":"COMMITTED"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	stats := &scenario.Stats{}
	o := newOrchestrator(srv, stats, nil)
	o.RunTransferTrace(context.Background())

	if stats.Total != 1 || stats.Passed != 1 {
		t.Fatalf("expected transfer trace to pass, got %+v", stats)
	}
}

func TestRunTransferTrace_UncommittedFails(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/wallet/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"active":true}`))
	})
	mux.HandleFunc("/v1/transfer", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"txId":"tx-43"}`))
	})
	mux.HandleFunc("/v1/token/trace/tx-43", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"blockchainStatus":"PENDING"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	stats := &scenario.Stats{}
	o := newOrchestrator(srv, stats, nil)
	o.RunTransferTrace(context.Background())

	if stats.Failed != 1 {
		t.Fatalf("expected uncommitted transfer to fail, got %+v", stats)
	}
}

// captureLogs routes the default logger into a buffer for the duration of
// the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	original := common.GetLogger()
	common.SetDefaultLogger(&common.Logger{Logger: slog.New(slog.NewTextHandler(&buf, nil))})
	t.Cleanup(func() { common.SetDefaultLogger(original) })
	return &buf
}

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("unit-key"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func TestInspectToken_OpaqueTokenWarns(t *testing.T) {
	buf := captureLogs(t)
	o := New(Config{Pause: noPause})

	o.inspectToken("tok-not-a-jwt")

	if !strings.Contains(buf.String(), "not a parseable JWT") {
		t.Fatalf("expected warning for an opaque token, got log: %q", buf.String())
	}
}

func TestInspectToken_MissingSubjectWarns(t *testing.T) {
	buf := captureLogs(t)
	o := New(Config{Pause: noPause})

	o.inspectToken(signedToken(t, jwt.MapClaims{"exp": 4102444800}))

	if !strings.Contains(buf.String(), "no subject claim") {
		t.Fatalf("expected warning for a token without subject, got log: %q", buf.String())
	}
}

func TestInspectToken_WellFormedTokenIsSilent(t *testing.T) {
	buf := captureLogs(t)
	o := New(Config{Pause: noPause})

	o.inspectToken(signedToken(t, jwt.MapClaims{"sub": "user-abc123"}))
	o.inspectToken("")

	if strings.Contains(buf.String(), "WARN") {
		t.Fatalf("expected no warnings, got log: %q", buf.String())
	}
}

func TestDeriveWalletAddress(t *testing.T) {
	cases := []struct{ in, want string }{
		{"user-abc-123", "WAL-abc-123"},
		{"abc-123", "WAL-abc-123"},
	}
	for _, c := range cases {
		if got := DeriveWalletAddress(c.in); got != c.want {
			t.Fatalf("DeriveWalletAddress(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
