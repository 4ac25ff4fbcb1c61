package models

import "errors"

// Storage results that are control flow, not failures. Callers branch on
// these explicitly.
var (
	ErrMissionNotFound         = errors.New("mission not found")
	ErrFireNotFound            = errors.New("fire not found")
	ErrUserNotFound            = errors.New("user not found")
	ErrConflict                = errors.New("mission already terminal")
	ErrInvalidTransition       = errors.New("invalid fire transition")
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")
	ErrConcurrentFireExists    = errors.New("concurrent fire exists")
)

// Dispatch rejections, surfaced synchronously with a reason the caller can
// show as-is.
var (
	ErrMissionClosed       = errors.New("MissionClosed")
	ErrAlreadyInFlight     = errors.New("AlreadyInFlight")
	ErrSlotLimitExceeded   = errors.New("SlotLimitExceeded")
	ErrDrawdownCapExceeded = errors.New("DrawdownCapExceeded")
	ErrCooldownActive      = errors.New("CooldownActive")
	ErrPeerUnreachable     = errors.New("peer unreachable")
)
