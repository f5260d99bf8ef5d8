package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNoData indicates a report was requested over an empty dataset.
	ErrNoData = errors.New("no data for the selected period")
	// ErrTenantMissing occurs when no tenant database name could be resolved.
	ErrTenantMissing = errors.New("tenant database name missing")
	// ErrCSRFTokenMissing indicates a state-changing request without a token.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch indicates the supplied token did not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)
