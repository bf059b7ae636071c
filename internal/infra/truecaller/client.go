package truecaller

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"telegram-caller-lookup/internal/config"
	"telegram-caller-lookup/internal/domain/ports/adapter"
)

var (
	_ adapter.AuthGateway      = (*Client)(nil)
	_ adapter.DirectoryGateway = (*Client)(nil)
)

const userAgent = "Truecaller/11.75.5 (Android;10)"

// Client talks to the caller-ID provider's account and search services.
// Outcomes the user can recover from are reported in the structured result
// types; everything else comes back as an error.
type Client struct {
	accountBase string
	searchBase  string
	httpClient  *http.Client
}

func NewClient(cfg *config.ProviderConfig) *Client {
	return &Client{
		accountBase: strings.TrimRight(cfg.AccountBaseURL, "/"),
		searchBase:  strings.TrimRight(cfg.SearchBaseURL, "/"),
		httpClient:  &http.Client{Timeout: cfg.Timeout},
	}
}

type loginResponse struct {
	Status            int    `json:"status"`
	Message           string `json:"message"`
	RequestID         string `json:"requestId"`
	ParsedCountryCode string `json:"parsedCountryCode"`
}

// Login submits a phone number and asks the provider to send a one-time code.
func (c *Client) Login(ctx context.Context, phoneNumber string) (*adapter.LoginResult, error) {
	payload := map[string]any{
		"phoneNumber": phoneNumber,
		"region":      "region-2",
		"sequenceNo":  2,
	}
	var out loginResponse
	if err := c.postJSON(ctx, c.accountBase+"/sendOnboardingOtp?encoding=json", payload, &out); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return &adapter.LoginResult{
		Status:            out.Status,
		Message:           out.Message,
		RequestID:         out.RequestID,
		ParsedCountryCode: out.ParsedCountryCode,
	}, nil
}

type otpResponse struct {
	Status         int    `json:"status"`
	Message        string `json:"message"`
	InstallationID string `json:"installationId"`
	Suspended      bool   `json:"suspended"`
}

// VerifyOTP exchanges the login challenge plus the received code for an
// installation credential.
func (c *Client) VerifyOTP(ctx context.Context, phoneNumber, challenge, code string) (*adapter.OtpResult, error) {
	payload := map[string]any{
		"phoneNumber": phoneNumber,
		"requestId":   challenge,
		"token":       code,
	}
	var out otpResponse
	if err := c.postJSON(ctx, c.accountBase+"/verifyOnboardingOtp", payload, &out); err != nil {
		return nil, fmt.Errorf("verify otp: %w", err)
	}
	return &adapter.OtpResult{
		Status:         out.Status,
		Message:        out.Message,
		InstallationID: out.InstallationID,
		Suspended:      out.Suspended,
	}, nil
}

type searchResponse struct {
	Data []struct {
		Name string `json:"name"`
	} `json:"data"`
}

type searchError struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// Search resolves a number to a display name. Credential failures the user can
// fix by re-authenticating come back as *adapter.AccountError.
func (c *Client) Search(ctx context.Context, number, countryCode, installationID string) (*adapter.SearchResult, error) {
	q := url.Values{}
	q.Set("q", number)
	q.Set("countryCode", countryCode)
	q.Set("type", "4")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.searchBase+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+installationID)
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("search: read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var se searchError
		if err := json.Unmarshal(body, &se); err == nil {
			if se.Status == adapter.SearchStatusUnauthorized || se.Status == adapter.SearchStatusAccountBlocked {
				return nil, &adapter.AccountError{Status: se.Status, Message: se.Message}
			}
			return nil, fmt.Errorf("search: provider status %d: %s", se.Status, se.Message)
		}
		return nil, fmt.Errorf("search: http %d", resp.StatusCode)
	}

	var out searchResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("search: decode: %w", err)
	}
	if len(out.Data) == 0 || out.Data[0].Name == "" {
		return &adapter.SearchResult{Name: "unknown name"}, nil
	}
	return &adapter.SearchResult{Name: out.Data[0].Name}, nil
}

func (c *Client) postJSON(ctx context.Context, endpoint string, payload any, out any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(string(b)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// The account service reports domain outcomes in the body's status field,
	// also on non-2xx responses, so decode before judging the HTTP code.
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode (http %d): %w", resp.StatusCode, err)
	}
	return nil
}
