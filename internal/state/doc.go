// Package state is the state synchronization layer of the routing engine:
// a managed client for the document store that holds routing metadata.
//
// A [Manager] owns the single, lazily established connection to the backing
// database (Firestore in deployment, MongoDB or an in-process store when so
// configured). A [Client] issues CRUD and query operations over named
// collections through that connection, and [Client.WithTransaction] runs a
// group of operations with commit-or-abort semantics.
//
// Document payloads are modeled as [Document], a mapping of field names to
// tagged [Value] entries covering the closed set of types every supported
// backend can represent losslessly.
//
// # Errors
//
//   - [ErrCredentialsNotFound] - the configured credentials file is missing
//   - [ErrInitialization] - session establishment failed (retryable)
//   - [ErrRead], [ErrWrite], [ErrTransaction] - a remote operation failed;
//     the cause is preserved and reachable via errors.Unwrap
//   - [ErrNestedTransaction] - WithTransaction called inside a transaction
//
// "Not found" is never an error: reads report absence through a boolean.
// The layer performs no retries and no fallback values; callers impose
// timeouts through the context they pass in.
package state
