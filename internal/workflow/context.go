package workflow

import "strings"

// Context carries the artifacts threaded through the orchestrated journey.
// Each field is set at most once, by the stage that produces it; later
// stages only read. The orchestrator owns the single instance per run.
type Context struct {
	authToken     string
	userID        string
	username      string
	walletAddress string
	campaignID    string

	// campaignPlaceholder records that campaign creation could not be
	// confirmed and a fixed placeholder id was substituted.
	campaignPlaceholder bool
	// depositVerified records that the wallet-activation stage already
	// confirmed a deposit, so the standalone confirmation is skipped.
	depositVerified bool
}

// PlaceholderCampaignID is exercised by downstream campaign steps when
// creation returned no identifiable id.
const PlaceholderCampaignID = "mock_campaign_123"

func (c *Context) setIdentity(userID, username, token string) {
	if c.userID == "" {
		c.userID = userID
	}
	if c.username == "" {
		c.username = username
	}
	if c.authToken == "" {
		c.authToken = token
	}
}

func (c *Context) setWalletAddress(addr string) {
	if c.walletAddress == "" {
		c.walletAddress = addr
	}
}

func (c *Context) setCampaignID(id string, placeholder bool) {
	if c.campaignID == "" {
		c.campaignID = id
		c.campaignPlaceholder = placeholder
	}
}

// AuthToken returns the token issued at registration, or "".
func (c *Context) AuthToken() string { return c.authToken }

// UserID returns the registered user id, or "".
func (c *Context) UserID() string { return c.userID }

// Username returns the registered username, or "".
func (c *Context) Username() string { return c.username }

// WalletAddress returns the derived wallet address, or "".
func (c *Context) WalletAddress() string { return c.walletAddress }

// CampaignID returns the campaign id in scope (real or placeholder), or "".
func (c *Context) CampaignID() string { return c.campaignID }

// CampaignIsPlaceholder reports whether the campaign id was substituted.
func (c *Context) CampaignIsPlaceholder() bool { return c.campaignPlaceholder }

// DeriveWalletAddress computes the wallet address the backend assigns to a
// user: a fixed "WAL-" prefix plus the user's UUID, with the "user-" id
// prefix stripped when present. The address is derived, never server-issued.
func DeriveWalletAddress(userID string) string {
	return "WAL-" + strings.TrimPrefix(userID, "user-")
}
