// Package store declares errors shared by the catalog implementations.
package store

import "errors"

// ErrNotFound signals that the requested record does not exist.
var ErrNotFound = errors.New("record not found")
