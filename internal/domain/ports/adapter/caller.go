package adapter

import (
	"context"
	"fmt"
)

// Provider status constants. These are defined by the upstream caller-ID
// service and treated as opaque enumerations everywhere else.
const (
	LoginStatusSent      = 1
	LoginStatusSentAlt   = 9
	LoginStatusLocked    = 5
	LoginStatusRateLimit = 6

	OtpStatusMaxAttempts = 7
	OtpStatusInvalidCode = 11

	SearchStatusUnauthorized   = 40101
	SearchStatusAccountBlocked = 42601
)

// LoginResult is the structured outcome of a phone-number login request.
type LoginResult struct {
	Status  int
	Message string
	// RequestID is the opaque login challenge; it must be echoed back verbatim
	// when verifying the one-time code.
	RequestID string
	// ParsedCountryCode is the 2-letter country the provider derived from the
	// submitted number.
	ParsedCountryCode string
}

// ChallengeSent reports whether the provider accepted the number and sent a code.
func (r *LoginResult) ChallengeSent() bool {
	return r.Status == LoginStatusSent || r.Status == LoginStatusSentAlt || r.Message == "Sent"
}

// RateLimited reports whether the provider locked further login attempts.
func (r *LoginResult) RateLimited() bool {
	return r.Status == LoginStatusLocked || r.Status == LoginStatusRateLimit
}

// OtpResult is the structured outcome of a one-time-code verification.
type OtpResult struct {
	Status         int
	Message        string
	InstallationID string
	Suspended      bool
}

func (r *OtpResult) InvalidCode() bool { return r.Status == OtpStatusInvalidCode }
func (r *OtpResult) MaxAttempts() bool { return r.Status == OtpStatusMaxAttempts }

// SearchResult carries the resolved identity for a looked-up number.
type SearchResult struct {
	Name string
}

// AccountError is a structured account/credential failure from the directory
// service (invalid or expired installation). It is recoverable: the user is
// told to re-authenticate. Anything else a gateway returns as error is fatal
// for the dispatch.
type AccountError struct {
	Status  int
	Message string
}

func (e *AccountError) Error() string {
	return fmt.Sprintf("account error %d: %s", e.Status, e.Message)
}

// AuthGateway is the port to the external authentication service.
type AuthGateway interface {
	Login(ctx context.Context, phoneNumber string) (*LoginResult, error)
	VerifyOTP(ctx context.Context, phoneNumber, challenge, code string) (*OtpResult, error)
}

// DirectoryGateway is the port to the external number-lookup service.
// Search returns *AccountError for credential failures the user can recover
// from by logging in again.
type DirectoryGateway interface {
	Search(ctx context.Context, number, countryCode, installationID string) (*SearchResult, error)
}
