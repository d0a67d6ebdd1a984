package state

import (
	"context"

	"github.com/apiroute/routing-engine/pkg/logger"
	"github.com/apiroute/routing-engine/pkg/metrics"
)

// Client issues document operations over the manager's connection. All
// methods are safe for concurrent use; every call is a remote round trip,
// so callers bound latency through ctx.
type Client struct {
	mgr *Manager
}

func NewClient(m *Manager) *Client {
	return &Client{mgr: m}
}

// CreateDocument stores doc in collection. With a non-empty documentID the
// write is an upsert under that identifier, which is returned unchanged.
// With an empty documentID the store generates a fresh identifier and the
// write is a pure insert.
func (c *Client) CreateDocument(ctx context.Context, collection string, doc Document, documentID string) (string, error) {
	conn, err := c.mgr.Handle(ctx)
	if err != nil {
		return "", err
	}

	if documentID != "" {
		if err := conn.Create(ctx, collection, documentID, doc); err != nil {
			return "", c.fail("create", collection, ErrWrite, err)
		}
		c.done("create", collection)
		logger.Debugf("state: document created collection=%s id=%s", collection, documentID)
		return documentID, nil
	}

	id, err := conn.Add(ctx, collection, doc)
	if err != nil {
		return "", c.fail("create", collection, ErrWrite, err)
	}
	c.done("create", collection)
	logger.Debugf("state: document created collection=%s id=%s (generated)", collection, id)
	return id, nil
}

// GetDocument fetches one document. Absence is reported through the
// boolean, never as an error.
func (c *Client) GetDocument(ctx context.Context, collection, id string) (Document, bool, error) {
	conn, err := c.mgr.Handle(ctx)
	if err != nil {
		return nil, false, err
	}

	doc, found, err := conn.Get(ctx, collection, id)
	if err != nil {
		return nil, false, c.fail("get", collection, ErrRead, err)
	}
	c.done("get", collection)
	return doc, found, nil
}

// UpdateDocument merges fields into an existing document and reports
// whether one was found.
func (c *Client) UpdateDocument(ctx context.Context, collection, id string, fields Document) (bool, error) {
	conn, err := c.mgr.Handle(ctx)
	if err != nil {
		return false, err
	}

	found, err := conn.Update(ctx, collection, id, fields)
	if err != nil {
		return false, c.fail("update", collection, ErrWrite, err)
	}
	c.done("update", collection)
	return found, nil
}

// DeleteDocument removes a document. Deleting an absent document is not an
// error.
func (c *Client) DeleteDocument(ctx context.Context, collection, id string) error {
	conn, err := c.mgr.Handle(ctx)
	if err != nil {
		return err
	}

	if err := conn.Delete(ctx, collection, id); err != nil {
		return c.fail("delete", collection, ErrWrite, err)
	}
	c.done("delete", collection)
	return nil
}

// QueryDocuments returns the documents in collection matching every filter.
func (c *Client) QueryDocuments(ctx context.Context, collection string, filters ...Filter) ([]Result, error) {
	conn, err := c.mgr.Handle(ctx)
	if err != nil {
		return nil, err
	}

	results, err := conn.Query(ctx, collection, filters)
	if err != nil {
		return nil, c.fail("query", collection, ErrRead, err)
	}
	c.done("query", collection)
	return results, nil
}

func (c *Client) done(op, collection string) {
	metrics.StoreOps.WithLabelValues(op, collection, "ok").Inc()
}

func (c *Client) fail(op, collection string, kind, cause error) error {
	metrics.StoreOps.WithLabelValues(op, collection, "error").Inc()
	err := &OpError{Op: op, Collection: collection, Kind: kind, Err: cause}
	logger.Errorf("state: %v", err)
	return err
}
