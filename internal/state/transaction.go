package state

import (
	"context"
	"errors"

	"github.com/apiroute/routing-engine/pkg/logger"
	"github.com/apiroute/routing-engine/pkg/metrics"
)

type txMarker struct{}

// WithTransaction runs body inside a single atomic transaction. When body
// returns nil the transaction is committed; a commit failure surfaces as an
// OpError of kind ErrTransaction. When body returns an error the
// transaction is aborted, no partial writes survive, and body's error is
// returned unchanged. The ctx handed to body carries the transaction and
// must be used for all Tx calls; calling WithTransaction with it again
// yields ErrNestedTransaction.
func (c *Client) WithTransaction(ctx context.Context, body func(ctx context.Context, tx Tx) error) error {
	if ctx.Value(txMarker{}) != nil {
		return ErrNestedTransaction
	}

	conn, err := c.mgr.Handle(ctx)
	if err != nil {
		return err
	}

	ctx = context.WithValue(ctx, txMarker{}, struct{}{})
	err = conn.RunTransaction(ctx, body)
	if err == nil {
		metrics.StoreTransactions.WithLabelValues("ok").Inc()
		return nil
	}

	var ce *commitError
	if errors.As(err, &ce) {
		metrics.StoreTransactions.WithLabelValues("error").Inc()
		werr := &OpError{Op: "transaction", Kind: ErrTransaction, Err: ce.err}
		logger.Errorf("state: %v", werr)
		return werr
	}

	// body error: transaction aborted, error passed through unchanged
	metrics.StoreTransactions.WithLabelValues("aborted").Inc()
	logger.Debugf("state: transaction aborted: %v", err)
	return err
}
