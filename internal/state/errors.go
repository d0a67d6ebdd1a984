package state

import (
	"errors"
	"fmt"
)

var (
	// ErrCredentialsNotFound is returned when the configured credentials
	// file does not exist or is not readable.
	ErrCredentialsNotFound = errors.New("state: credentials file not found")

	// ErrNestedTransaction is returned when WithTransaction is called from
	// inside a transaction body.
	ErrNestedTransaction = errors.New("state: nested transactions are not supported")

	// Kinds used to classify an OpError.
	ErrInitialization = errors.New("state: store initialization failed")
	ErrRead           = errors.New("state: store read failed")
	ErrWrite          = errors.New("state: store write failed")
	ErrTransaction    = errors.New("state: store transaction failed")
)

// OpError records a failed store operation together with its classification
// and the underlying cause. errors.Is matches the Kind, errors.Unwrap
// reaches the cause.
type OpError struct {
	Op         string
	Collection string
	Kind       error
	Err        error
}

func (e *OpError) Error() string {
	if e.Collection != "" {
		return fmt.Sprintf("%v: %s %s: %v", e.Kind, e.Op, e.Collection, e.Err)
	}
	return fmt.Sprintf("%v: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

func (e *OpError) Is(target error) bool { return target == e.Kind }
