package services

import "errors"

// Caller errors are rejected before any state change. Store failures are
// returned verbatim (wrapped) so callers can retry.
var (
	ErrUnknownTrigger = errors.New("unknown trigger")
	ErrRuleNotFound   = errors.New("rule not found")
	ErrActionNotFound = errors.New("action not found")
	ErrInvalidRequest = errors.New("invalid request")
)
