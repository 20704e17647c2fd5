// Package ledgerstore cross-checks transaction ids against the optional
// secondary index the chain event listener maintains. The store may be
// absent or lagging in any given environment, so every negative outcome
// here is a warning, never a failure.
package ledgerstore

import (
	"context"
	"errors"
	"time"

	"github.com/kindledger/ledgercheck/internal/common"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	databaseName     = "kindledger"
	eventsCollection = "chaincode_events"
	ledgerCollection = "transactions_ledger"

	defaultSelectionTimeout = 2 * time.Second
)

// Verifier looks up transaction records in the secondary store.
type Verifier struct {
	uri     string
	timeout time.Duration
	logger  *common.Logger
}

// New returns a Verifier for uri, or nil when uri is empty (verification
// disabled).
func New(uri string) *Verifier {
	if uri == "" {
		return nil
	}
	return &Verifier{
		uri:     uri,
		timeout: defaultSelectionTimeout,
		logger:  common.GetLogger().WithComponent("ledgerstore"),
	}
}

// VerifyTx checks both record collections for txID. The listener indexing
// the chain may still be catching up, so a missing record only warns.
func (v *Verifier) VerifyTx(ctx context.Context, txID string) {
	opts := options.Client().ApplyURI(v.uri).SetServerSelectionTimeout(v.timeout)
	cl, err := mongo.Connect(ctx, opts)
	if err != nil {
		v.logger.Warn("secondary store verification skipped", "error", err)
		return
	}
	defer func() { _ = cl.Disconnect(ctx) }()

	db := cl.Database(databaseName)
	for _, coll := range []string{eventsCollection, ledgerCollection} {
		err := db.Collection(coll).FindOne(ctx, bson.M{"txId": txID}).Err()
		switch {
		case err == nil:
			v.logger.Info("secondary store has transaction", "collection", coll, "tx_id", txID)
		case errors.Is(err, mongo.ErrNoDocuments):
			v.logger.Warn("secondary store missing transaction, listener may be catching up",
				"collection", coll, "tx_id", txID)
		default:
			v.logger.Warn("secondary store verification skipped", "collection", coll, "error", err)
			return
		}
	}
}
