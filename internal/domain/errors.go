package domain

import "errors"

// Sentinel errors for the failure classes that cross package boundaries.
// Handlers match these with errors.Is and convert them into user-facing
// replies; nothing below the conversation-turn boundary panics outward.
var (
	// ErrValidation marks bad user input. The turn re-prompts, state unchanged.
	ErrValidation = errors.New("validation failed")

	// ErrRetrieval marks an unreachable or failing vector store.
	ErrRetrieval = errors.New("retrieval failed")

	// ErrGeneration marks a failed or timed-out language-model call.
	ErrGeneration = errors.New("generation failed")

	// ErrCapacity marks a booking attempt past slot capacity.
	ErrCapacity = errors.New("slot capacity exceeded")

	// ErrPaymentVerification marks a payment callback signature mismatch.
	ErrPaymentVerification = errors.New("payment signature mismatch")

	// ErrPersistence marks a failed storage write.
	ErrPersistence = errors.New("persistence failed")
)
