// Package ledger owns the append-only transaction log. It is the single
// source of truth for "a purchase happened": business preconditions are
// checked upstream by the orchestrator, the log only rejects structurally
// invalid references.
package ledger

import (
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/intelmarket/core"
	"github.com/hupe1980/intelmarket/logging"
)

// Log is an in-memory transaction log. Transactions are appended in
// settlement order and never removed; the only post-append mutation is the
// one-shot rating.
type Log struct {
	mu   sync.RWMutex
	txs  []*core.Transaction
	byID map[string]*core.Transaction

	maxRating int
	logger    logging.Logger
}

// NewLog constructs an empty transaction log. maxRating bounds the rating
// scale accepted by Rate.
func NewLog(maxRating int, logger logging.Logger) *Log {
	return &Log{
		byID:      make(map[string]*core.Transaction),
		maxRating: maxRating,
		logger:    logging.OrNoOp(logger),
	}
}

// Settle appends a new transaction with a generated id and the current
// timestamp. The price is the value charged at purchase time, copied by the
// caller from the listing. Empty buyer, seller or listing keys fail with
// core.ErrInvalidReference; everything else is accepted.
func (l *Log) Settle(buyerKey, sellerKey, listingID string, price float64, commitID string) (*core.Transaction, error) {
	if buyerKey == "" || sellerKey == "" || listingID == "" {
		return nil, fmt.Errorf("%w: buyer, seller and listing are required", core.ErrInvalidReference)
	}
	tx := &core.Transaction{
		ID:        core.NewID(),
		BuyerKey:  buyerKey,
		SellerKey: sellerKey,
		ListingID: listingID,
		Price:     price,
		CommitID:  commitID,
		Timestamp: time.Now().UTC(),
	}
	l.mu.Lock()
	l.txs = append(l.txs, tx)
	l.byID[tx.ID] = tx
	l.mu.Unlock()
	l.logger.Info("transaction settled", "tx_id", tx.ID, "buyer", buyerKey, "seller", sellerKey, "listing_id", listingID, "price", price)
	return tx.Clone(), nil
}

// Rate records a rating on the first unrated transaction matching
// (buyerKey, listingID). The rating is immutable once set: if every matching
// transaction already carries a rating, or none exists, Rate fails with
// core.ErrAlreadyRated. Scores outside [1, maxRating] fail with
// core.ErrRatingOutOfRange.
func (l *Log) Rate(buyerKey, listingID string, score int, review string) (*core.Transaction, error) {
	if score < 1 || score > l.maxRating {
		return nil, fmt.Errorf("%w: %d not in [1, %d]", core.ErrRatingOutOfRange, score, l.maxRating)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, tx := range l.txs {
		if tx.BuyerKey != buyerKey || tx.ListingID != listingID || tx.Rating != nil {
			continue
		}
		rating := score
		tx.Rating = &rating
		tx.Review = review
		l.logger.Info("transaction rated", "tx_id", tx.ID, "buyer", buyerKey, "listing_id", listingID, "rating", score)
		return tx.Clone(), nil
	}
	return nil, fmt.Errorf("%w: buyer %s, listing %s", core.ErrAlreadyRated, buyerKey, listingID)
}

// Get returns a clone of the transaction with id.
func (l *Log) Get(id string) (*core.Transaction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	tx, ok := l.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrTransactionNotFound, id)
	}
	return tx.Clone(), nil
}

// ForAgent returns clones of every transaction where the agent participates
// as buyer or seller, in settlement order.
func (l *Log) ForAgent(key string) []core.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []core.Transaction
	for _, tx := range l.txs {
		if tx.BuyerKey == key || tx.SellerKey == key {
			out = append(out, *tx.Clone())
		}
	}
	return out
}

// ForListing returns clones of every transaction referencing the listing.
func (l *Log) ForListing(listingID string) []core.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []core.Transaction
	for _, tx := range l.txs {
		if tx.ListingID == listingID {
			out = append(out, *tx.Clone())
		}
	}
	return out
}

// All returns clones of every transaction in settlement order.
func (l *Log) All() []core.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]core.Transaction, 0, len(l.txs))
	for _, tx := range l.txs {
		out = append(out, *tx.Clone())
	}
	return out
}

// Count returns the number of settled transactions.
func (l *Log) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.txs)
}

// Volume returns the sum of all transaction prices.
func (l *Log) Volume() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var total float64
	for _, tx := range l.txs {
		total += tx.Price
	}
	return total
}
