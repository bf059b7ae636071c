package model

import (
	"encoding/json"
	"fmt"
)

// Status identifies which step of the login flow a chat currently occupies.
// The string values double as the wire encoding of stored records, so renaming
// one invalidates every record written under the old name.
type Status string

const (
	StatusLoggedOut              Status = "logged_out"
	StatusAwaitingPhoneNumber    Status = "awaiting_phone_no"
	StatusAwaitingOTP            Status = "awaiting_otp"
	StatusAwaitingInstallationID Status = "awaiting_installation_id"
	StatusAwaitingCountryCode    Status = "awaiting_country_code"
	StatusLoggedIn               Status = "logged_in"
)

// ConversationState is the per-chat state of the login flow. Exactly one
// variant is active per chat at any time; a transition fully replaces the
// stored record. An absent record is equivalent to LoggedOut.
type ConversationState interface {
	Status() Status

	// sealed: only the variants below implement the interface.
	conversationState()
}

// LoggedOut is the initial/default state; no credential on file.
type LoggedOut struct{}

// AwaitingPhoneNumber means the user sent /login and we wait for a phone number.
type AwaitingPhoneNumber struct{}

// AwaitingOTP means a login challenge was issued and we wait for the one-time code.
// LoginChallenge is the exact opaque token returned by the most recent login call;
// CountryCode is the country the provider parsed out of the submitted number.
type AwaitingOTP struct {
	PhoneNumber    string
	LoginChallenge string
	CountryCode    string
}

// AwaitingInstallationID means the user chose manual credential import.
type AwaitingInstallationID struct{}

// AwaitingCountryCode means the installation id was captured and we wait for a
// 2-letter country code.
type AwaitingCountryCode struct {
	InstallationID string
}

// LoggedIn is the fully authenticated rest state; lookups are permitted.
type LoggedIn struct {
	InstallationID string
	CountryCode    string
}

func (LoggedOut) Status() Status              { return StatusLoggedOut }
func (AwaitingPhoneNumber) Status() Status    { return StatusAwaitingPhoneNumber }
func (AwaitingOTP) Status() Status            { return StatusAwaitingOTP }
func (AwaitingInstallationID) Status() Status { return StatusAwaitingInstallationID }
func (AwaitingCountryCode) Status() Status    { return StatusAwaitingCountryCode }
func (LoggedIn) Status() Status               { return StatusLoggedIn }

func (LoggedOut) conversationState()              {}
func (AwaitingPhoneNumber) conversationState()    {}
func (AwaitingOTP) conversationState()            {}
func (AwaitingInstallationID) conversationState() {}
func (AwaitingCountryCode) conversationState()    {}
func (LoggedIn) conversationState()               {}

// stateRecord is the flat JSON envelope stored in Redis. Only the fields of
// the active variant are populated.
type stateRecord struct {
	Status         Status `json:"status"`
	PhoneNumber    string `json:"phone_number,omitempty"`
	LoginChallenge string `json:"login_challenge,omitempty"`
	InstallationID string `json:"installation_id,omitempty"`
	CountryCode    string `json:"country_code,omitempty"`
}

// MarshalState encodes a state for storage.
func MarshalState(s ConversationState) ([]byte, error) {
	rec := stateRecord{Status: s.Status()}
	switch v := s.(type) {
	case LoggedOut, AwaitingPhoneNumber, AwaitingInstallationID:
	case AwaitingOTP:
		rec.PhoneNumber = v.PhoneNumber
		rec.LoginChallenge = v.LoginChallenge
		rec.CountryCode = v.CountryCode
	case AwaitingCountryCode:
		rec.InstallationID = v.InstallationID
	case LoggedIn:
		rec.InstallationID = v.InstallationID
		rec.CountryCode = v.CountryCode
	default:
		return nil, fmt.Errorf("marshal state: unknown variant %T", s)
	}
	return json.Marshal(rec)
}

// UnmarshalState decodes a stored record back into its variant.
func UnmarshalState(data []byte) (ConversationState, error) {
	var rec stateRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal state: %w", err)
	}
	switch rec.Status {
	case StatusLoggedOut:
		return LoggedOut{}, nil
	case StatusAwaitingPhoneNumber:
		return AwaitingPhoneNumber{}, nil
	case StatusAwaitingOTP:
		return AwaitingOTP{
			PhoneNumber:    rec.PhoneNumber,
			LoginChallenge: rec.LoginChallenge,
			CountryCode:    rec.CountryCode,
		}, nil
	case StatusAwaitingInstallationID:
		return AwaitingInstallationID{}, nil
	case StatusAwaitingCountryCode:
		return AwaitingCountryCode{InstallationID: rec.InstallationID}, nil
	case StatusLoggedIn:
		return LoggedIn{
			InstallationID: rec.InstallationID,
			CountryCode:    rec.CountryCode,
		}, nil
	default:
		return nil, fmt.Errorf("unmarshal state: unknown status %q", rec.Status)
	}
}
