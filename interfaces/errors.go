package interfaces

import "errors"

var (
	// ErrValidation is returned for bad input the caller can correct.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidHashFormat is returned for malformed digest strings.
	ErrInvalidHashFormat = errors.New("invalid document hash format")

	// ErrNoProvider is returned when no signing-capable provider is
	// available in the environment.
	ErrNoProvider = errors.New("no signing provider available")

	// ErrUserRejected is returned when the signing provider declines
	// authorization.
	ErrUserRejected = errors.New("authorization rejected by signing provider")

	// ErrWalletNotConnected is returned by state-changing ledger operations
	// attempted without a connected wallet session.
	ErrWalletNotConnected = errors.New("wallet is not connected")

	// ErrSubmissionRejected is returned when the signer declines to sign a
	// transaction.
	ErrSubmissionRejected = errors.New("transaction submission rejected by signer")

	// ErrChain is returned for network or contract failures. Retryable.
	ErrChain = errors.New("ledger operation failed")

	// ErrInvalidTransition is returned when a lifecycle operation is called
	// on a request in a state that does not allow it. Indicates a caller bug.
	ErrInvalidTransition = errors.New("invalid request status transition")

	// ErrPermissionDenied is returned when the identity collaborator's role
	// check fails.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotAuthenticated is returned when no valid session user is present.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrRequestNotFound is returned when a request id is unknown to the
	// record store.
	ErrRequestNotFound = errors.New("request not found")

	// ErrContentNotFound is returned when a stored document cannot be found.
	ErrContentNotFound = errors.New("content not found")
)
