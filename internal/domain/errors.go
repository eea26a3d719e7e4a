package domain

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

// ErrRejected is returned by a LeadNotifier when the downstream system
// refuses a lead permanently.
var ErrRejected = errors.New("rejected")

// ErrUnauthorized is returned by a LeadNotifier when the downstream system
// refuses our credentials. Retrying with the same configuration will fail
// for every lead.
var ErrUnauthorized = errors.New("unauthorized")
