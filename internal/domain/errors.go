// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates a uniqueness violation or a concurrent modification conflict.
var ErrConflict = errors.New("conflict: resource already exists or was modified")

// ErrValidation indicates the request failed domain validation.
var ErrValidation = errors.New("validation failed")
