package database

import "errors"

// ErrNotFound indicates that a requested record does not exist. Repositories
// return it (wrapped) from lookups of single records by key.
var ErrNotFound = errors.New("record not found")
