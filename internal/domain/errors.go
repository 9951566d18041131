// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates the entity already exists (duplicate username, ...).
var ErrConflict = errors.New("conflict: resource already exists")

// ErrValidation indicates caller input failed validation.
var ErrValidation = errors.New("validation failed")

// ErrMalformedEntity indicates an entity payload lacks its identifier and
// cannot be indexed by a store.
var ErrMalformedEntity = errors.New("malformed entity: missing identifier")

// ErrUpstream indicates the reference-data API failed or was unreachable.
var ErrUpstream = errors.New("upstream reference api failed")

// ErrUnauthorized indicates missing or invalid credentials.
var ErrUnauthorized = errors.New("unauthorized")
