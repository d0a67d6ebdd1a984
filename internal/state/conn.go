package state

import "context"

// Filter restricts a query to documents whose field compares against a
// value. Op is one of "==", "<", "<=", ">", ">=".
type Filter struct {
	Field string
	Op    string
	Value Value
}

// Result pairs a queried document with its identifier.
type Result struct {
	ID  string
	Doc Document
}

// Tx is the capability handed to a transaction body. All operations issued
// on it commit together or not at all. On the Firestore backend every Get
// must happen before the first Set or Delete.
type Tx interface {
	Get(ctx context.Context, collection, id string) (Document, bool, error)
	Set(ctx context.Context, collection, id string, doc Document) error
	Delete(ctx context.Context, collection, id string) error
}

// Conn is an established session against a concrete document database.
// Implementations return raw driver errors; the Client classifies them.
type Conn interface {
	// Create stores doc under id, overwriting any existing document.
	Create(ctx context.Context, collection, id string, doc Document) error
	// Add stores doc under a freshly generated identifier and returns it.
	Add(ctx context.Context, collection string, doc Document) (string, error)
	// Get reports (doc, true, nil) when present and (nil, false, nil) when
	// absent; errors are reserved for transport and service failures.
	Get(ctx context.Context, collection, id string) (Document, bool, error)
	// Update merges fields into an existing document; false when absent.
	Update(ctx context.Context, collection, id string, fields Document) (bool, error)
	// Delete removes the document; deleting an absent document succeeds.
	Delete(ctx context.Context, collection, id string) error
	Query(ctx context.Context, collection string, filters []Filter) ([]Result, error)
	// RunTransaction executes fn atomically. Errors returned by fn come
	// back unchanged; failures of the transaction machinery itself are
	// wrapped in commitError.
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Close() error
}

// commitError marks a failure in the transaction machinery (begin, commit,
// abort), as opposed to an error returned by the body.
type commitError struct{ err error }

func (e *commitError) Error() string { return e.err.Error() }
func (e *commitError) Unwrap() error { return e.err }
