// Package source holds the authoritative lookup backends the cache falls back
// to on a miss. Every backend answers Search(ctx, id) with either a fresh User
// owned by the caller, ErrNotFound when the user does not exist, or any other
// error when the backend itself failed. The cache relies on that distinction:
// absence is an answer, a failure is not, and neither is ever cached.
package source
