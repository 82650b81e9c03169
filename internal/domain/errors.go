package domain

import "errors"

var (
	// Validation failures. Always roll back any in-flight creation.
	ErrAssetNotFound  = errors.New("asset not found")
	ErrInvalidRequest = errors.New("invalid request")

	// Conflicts, recoverable by retrying the operation.
	ErrAssetUnavailable = errors.New("asset is not available")
	ErrNumberConflict   = errors.New("application number already taken")

	// Policy failure, fatal to the operation: the approver directory has
	// nobody who can receive this request.
	ErrNoApproverAvailable = errors.New("no approver available")

	// Authorization failures, user-facing.
	ErrAlreadyLinked = errors.New("submission is already linked to an account")
	ErrEmailMismatch = errors.New("email does not match submission")
	ErrNotAuthorized = errors.New("not authorized")

	// Token-state failures. Both block the transition but are reported
	// separately so the approval UI can message accordingly.
	ErrTokenInvalid = errors.New("approval token is invalid")
	ErrTokenExpired = errors.New("approval token has expired")

	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid status for this operation")
)
