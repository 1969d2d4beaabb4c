// Package dal defines the error taxonomy shared by the art catalog data-access layer.
//
// Every public operation in [github.com/jacentio/artcatalog/store],
// [github.com/jacentio/artcatalog/orders] and [github.com/jacentio/artcatalog/comments]
// returns either a payload or one of these errors, never a raw driver or SDK error.
//
// # Errors
//
//   - [ErrNotFound] - parent or target entity absent
//   - [ErrInvalidInput] - required fields missing or disallowed fields supplied
//   - [ErrWrongUser] - ownership check failed
//   - [ErrWriteConflict] - version token mismatch on a conditional write
//   - [StoreError] - backing store failure, original cause available via errors.Unwrap
//
// Callers translate kinds to transport outcomes, for example with [StatusCode].
package dal
