package services

import "errors"

var (
	// ErrValidation marks bad input shape on initiation.
	ErrValidation = errors.New("invalid payment request")
	// ErrUnknownTransaction marks a callback whose CheckoutRequestID matches
	// no ledger record. Expected and recoverable: duplicate, late or
	// malformed deliveries land here.
	ErrUnknownTransaction = errors.New("unknown transaction")
	// ErrConflict marks a duplicate correlation id on insert.
	ErrConflict = errors.New("transaction already exists")
	// ErrNotFound is the ledger/order store absence sentinel.
	ErrNotFound = errors.New("not found")
	// ErrPersistence marks a ledger or order write failure.
	ErrPersistence = errors.New("persistence failure")
)
